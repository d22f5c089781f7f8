package lib

import (
	"context"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
)

var sess *aws.Config
var sessLock sync.Mutex
var sessRegion string

// SessionRegion pins the region for all clients. Call before the first
// client is constructed, typically right after the deploy config is parsed.
func SessionRegion(region string) {
	sessLock.Lock()
	defer sessLock.Unlock()
	sessRegion = region
}

func Session() *aws.Config {
	sessLock.Lock()
	defer sessLock.Unlock()
	if sess == nil {
		opts := []func(*config.LoadOptions) error{
			config.WithRetryMaxAttempts(5),
		}
		if sessRegion != "" {
			opts = append(opts, config.WithRegion(sessRegion))
		}
		cfg, err := config.LoadDefaultConfig(context.Background(), opts...)
		if err != nil {
			panic(err)
		}
		sess = &cfg
	}
	return sess
}

func Region() string {
	return Session().Region
}
