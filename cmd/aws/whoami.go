package mcpaws

import (
	"context"
	"fmt"

	"github.com/alexflint/go-arg"
	"github.com/gauravkantrodtw/mcp-aws/lib"
)

func init() {
	lib.Commands["aws-whoami"] = whoami
	lib.Args["aws-whoami"] = whoamiArgs{}
}

type whoamiArgs struct {
}

func (whoamiArgs) Description() string {
	return "\ncurrent caller identity arn\n"
}

func whoami() {
	var args whoamiArgs
	arg.MustParse(&args)
	ctx := context.Background()
	arn, err := lib.StsArn(ctx)
	if err != nil {
		lib.Logger.Fatal("error: ", err)
	}
	fmt.Println(arn)
}
