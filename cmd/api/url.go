package mcpaws

import (
	"context"
	"fmt"

	"github.com/alexflint/go-arg"
	"github.com/gauravkantrodtw/mcp-aws/lib"
)

func init() {
	lib.Commands["api-url"] = apiUrl
	lib.Args["api-url"] = apiUrlArgs{}
}

type apiUrlArgs struct {
	YamlPath string `arg:"positional,required"`
}

func (apiUrlArgs) Description() string {
	return "\nget the deployment's api url\n"
}

func apiUrl() {
	var args apiUrlArgs
	arg.MustParse(&args)
	ctx := context.Background()
	infra, err := lib.InfraParse(args.YamlPath)
	if err != nil {
		lib.Logger.Fatal("error: ", err)
	}
	url, err := lib.ApiUrl(ctx, infra.Api)
	if err != nil {
		lib.Logger.Fatal("error: ", err)
	}
	fmt.Println(url)
}
