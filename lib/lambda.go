package lib

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	lambdatypes "github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"github.com/dustin/go-humanize"
	"github.com/r3labs/diff/v2"
)

const (
	lambdaLogGroupPrefix = "/aws/lambda/"

	// principal carried by permission statements created for api gateway
	// route integrations, the only ones the teardown removes
	apigatewayPrincipal = "apigateway.amazonaws.com"
)

const (
	lambdaAttrMemory  = "memory"
	lambdaAttrTimeout = "timeout"
)

var lambdaClient *lambda.Client
var lambdaClientLock sync.Mutex

func LambdaClient() *lambda.Client {
	lambdaClientLock.Lock()
	defer lambdaClientLock.Unlock()
	if lambdaClient == nil {
		lambdaClient = lambda.NewFromConfig(*Session())
	}
	return lambdaClient
}

const (
	ErrLambdaNotFound = "ErrLambdaNotFound"
)

func LambdaGetFunction(ctx context.Context, name string) (*lambdatypes.FunctionConfiguration, error) {
	var out *lambda.GetFunctionOutput
	err := Retry(ctx, func() error {
		var err error
		out, err = LambdaClient().GetFunction(ctx, &lambda.GetFunctionInput{
			FunctionName: aws.String(name),
		})
		if err != nil {
			var nfe *lambdatypes.ResourceNotFoundException
			if errors.As(err, &nfe) {
				out = nil
				return nil
			}
			return err
		}
		return nil
	})
	if err != nil {
		Logger.Println("error:", err)
		return nil, err
	}
	if out == nil {
		return nil, fmt.Errorf("%s", ErrLambdaNotFound)
	}
	return out.Configuration, nil
}

func LambdaArn(ctx context.Context, name string) (string, error) {
	fn, err := LambdaGetFunction(ctx, name)
	if err != nil {
		return "", err
	}
	return *fn.FunctionArn, nil
}

func LambdaGetPolicy(ctx context.Context, name string) (string, error) {
	var policy *string
	err := Retry(ctx, func() error {
		out, err := LambdaClient().GetPolicy(ctx, &lambda.GetPolicyInput{
			FunctionName: aws.String(name),
		})
		if err != nil {
			var nfe *lambdatypes.ResourceNotFoundException
			if errors.As(err, &nfe) {
				policy = nil
				return nil
			}
			return err
		}
		policy = out.Policy
		return nil
	})
	if err != nil {
		Logger.Println("error:", err)
		return "", err
	}
	if policy == nil {
		return "", fmt.Errorf("%s", ErrLambdaNotFound)
	}
	return *policy, nil
}

// lambdaPermissionSids returns the statement ids in a function policy whose
// principal is the given service. principals are either {"Service": "name"}
// or {"Service": ["name", ...]}.
func lambdaPermissionSids(policyString, principal string) ([]string, error) {
	policy := IamPolicyDocument{}
	err := json.Unmarshal([]byte(policyString), &policy)
	if err != nil {
		Logger.Println("error:", err)
		return nil, err
	}
	var sids []string
	for _, statement := range policy.Statement {
		p, ok := statement.Principal.(map[string]any)
		if !ok {
			continue
		}
		match := false
		switch service := p["Service"].(type) {
		case string:
			match = service == principal
		case []any:
			for _, s := range service {
				if s == principal {
					match = true
				}
			}
		}
		if match && statement.Sid != "" {
			sids = append(sids, statement.Sid)
		}
	}
	return sids, nil
}

func LambdaRemovePermission(ctx context.Context, name, sid string, preview bool) error {
	if !preview {
		_, err := LambdaClient().RemovePermission(ctx, &lambda.RemovePermissionInput{
			FunctionName: aws.String(name),
			StatementId:  aws.String(sid),
		})
		if err != nil {
			var nfe *lambdatypes.ResourceNotFoundException
			if errors.As(err, &nfe) {
				return nil
			}
			Logger.Println("error:", err)
			return err
		}
	}
	Logger.Println(PreviewString(preview)+"removed permission:", name, sid)
	return nil
}

func LambdaDeleteFunction(ctx context.Context, name string, preview bool) error {
	if !preview {
		err := Retry(ctx, func() error {
			_, err := LambdaClient().DeleteFunction(ctx, &lambda.DeleteFunctionInput{
				FunctionName: aws.String(name),
			})
			if err != nil {
				var nfe *lambdatypes.ResourceNotFoundException
				if errors.As(err, &nfe) {
					return nil
				}
				return err
			}
			return nil
		})
		if err != nil {
			Logger.Println("error:", err)
			return err
		}
	}
	Logger.Println(PreviewString(preview)+"deleted function:", name)
	return nil
}

func LambdaUpdateFunctionZip(ctx context.Context, name, pth string, preview bool) error {
	zipBytes, err := os.ReadFile(pth)
	if err != nil {
		Logger.Println("error:", err)
		return err
	}
	if !preview {
		err = Retry(ctx, func() error {
			_, err := LambdaClient().UpdateFunctionCode(ctx, &lambda.UpdateFunctionCodeInput{
				FunctionName: aws.String(name),
				ZipFile:      zipBytes,
			})
			return err
		})
		if err != nil {
			Logger.Println("error:", err)
			return err
		}
	}
	Logger.Println(PreviewString(preview)+"updated function code:", name, humanize.Bytes(uint64(len(zipBytes))))
	return nil
}

func LambdaUpdateFunctionS3(ctx context.Context, name, bucket, key string, preview bool) error {
	if !preview {
		err := Retry(ctx, func() error {
			_, err := LambdaClient().UpdateFunctionCode(ctx, &lambda.UpdateFunctionCodeInput{
				FunctionName: aws.String(name),
				S3Bucket:     aws.String(bucket),
				S3Key:        aws.String(key),
			})
			return err
		})
		if err != nil {
			Logger.Println("error:", err)
			return err
		}
	}
	Logger.Println(PreviewString(preview)+"updated function code:", name, "s3://"+bucket+"/"+key)
	return nil
}

func LambdaWaitUpdated(ctx context.Context, name string) error {
	waiter := lambda.NewFunctionUpdatedV2Waiter(LambdaClient())
	err := waiter.Wait(ctx, &lambda.GetFunctionInput{
		FunctionName: aws.String(name),
	}, 5*time.Minute)
	if err != nil {
		Logger.Println("error:", err)
		return err
	}
	return nil
}

type lambdaConfig struct {
	Runtime string
	Handler string
	Timeout int32
	Memory  int32
}

func diffMapStringString(a, b map[string]string) bool {
	if len(a) != len(b) {
		return true
	}
	for k, v := range a {
		other, ok := b[k]
		if !ok || other != v {
			return true
		}
	}
	return false
}

func LambdaEnsureConfiguration(ctx context.Context, infra *Infra, preview bool) error {
	fn, err := LambdaGetFunction(ctx, infra.Name)
	if err != nil {
		Logger.Println("error:", err)
		return err
	}
	live := lambdaConfig{
		Runtime: string(fn.Runtime),
		Handler: aws.ToString(fn.Handler),
		Timeout: aws.ToInt32(fn.Timeout),
		Memory:  aws.ToInt32(fn.MemorySize),
	}
	want := lambdaConfig{
		Runtime: infra.Runtime,
		Handler: infra.Handler,
		Timeout: int32(infra.timeout),
		Memory:  int32(infra.memory),
	}
	changes, err := diff.Diff(live, want)
	if err != nil {
		Logger.Println("error:", err)
		return err
	}
	for _, change := range changes {
		Logger.Printf(PreviewString(preview)+"update %s: %v => %v\n", strings.ToLower(strings.Join(change.Path, ".")), change.From, change.To)
	}
	env := make(map[string]string)
	for _, val := range infra.Env {
		k, v, err := SplitOnce(val, "=")
		if err != nil {
			Logger.Println("error:", err)
			return err
		}
		env[k] = v
	}
	liveEnv := make(map[string]string)
	if fn.Environment != nil && fn.Environment.Variables != nil {
		liveEnv = fn.Environment.Variables
	}
	needsUpdate := len(changes) != 0
	if diffMapStringString(env, liveEnv) {
		needsUpdate = true
		Logger.Println(PreviewString(preview) + "update env vars") // values often contain secrets, never log them
	}
	if !needsUpdate {
		return nil
	}
	if !preview {
		err = Retry(ctx, func() error {
			_, err := LambdaClient().UpdateFunctionConfiguration(ctx, &lambda.UpdateFunctionConfigurationInput{
				FunctionName: aws.String(infra.Name),
				Runtime:      lambdatypes.Runtime(infra.Runtime),
				Handler:      aws.String(infra.Handler),
				Timeout:      aws.Int32(int32(infra.timeout)),
				MemorySize:   aws.Int32(int32(infra.memory)),
				Environment:  &lambdatypes.Environment{Variables: env},
			})
			return err
		})
		if err != nil {
			Logger.Println("error:", err)
			return err
		}
	}
	Logger.Println(PreviewString(preview)+"updated function configuration:", infra.Name)
	return nil
}

func LambdaInvoke(ctx context.Context, name string, payload []byte, event bool) (*lambda.InvokeOutput, error) {
	invocationType := lambdatypes.InvocationTypeRequestResponse
	logType := lambdatypes.LogTypeTail
	if event {
		invocationType = lambdatypes.InvocationTypeEvent
		logType = lambdatypes.LogTypeNone
	}
	out, err := LambdaClient().Invoke(ctx, &lambda.InvokeInput{
		FunctionName:   aws.String(name),
		InvocationType: invocationType,
		LogType:        logType,
		Payload:        payload,
	})
	if err != nil {
		Logger.Println("error:", err)
		return nil, err
	}
	return out, nil
}
