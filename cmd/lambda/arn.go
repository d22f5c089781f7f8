package mcpaws

import (
	"context"
	"fmt"

	"github.com/alexflint/go-arg"
	"github.com/gauravkantrodtw/mcp-aws/lib"
)

func init() {
	lib.Commands["lambda-arn"] = lambdaArn
	lib.Args["lambda-arn"] = lambdaArnArgs{}
}

type lambdaArnArgs struct {
	YamlPath string `arg:"positional,required"`
}

func (lambdaArnArgs) Description() string {
	return "\nget the deployment's lambda arn\n"
}

func lambdaArn() {
	var args lambdaArnArgs
	arg.MustParse(&args)
	ctx := context.Background()
	infra, err := lib.InfraParse(args.YamlPath)
	if err != nil {
		lib.Logger.Fatal("error: ", err)
	}
	arn, err := lib.LambdaArn(ctx, infra.Name)
	if err != nil {
		lib.Logger.Fatal("error: ", err)
	}
	fmt.Println(arn)
}
