package mcpaws

import (
	"context"
	"fmt"

	"github.com/alexflint/go-arg"
	"github.com/gauravkantrodtw/mcp-aws/lib"
)

func init() {
	lib.Commands["infra-ls"] = infraLs
	lib.Args["infra-ls"] = infraLsArgs{}
}

type infraLsArgs struct {
	YamlPath string `arg:"positional,required"`
}

func (infraLsArgs) Description() string {
	return "\nshow the live state of the deployment\n"
}

func infraLs() {
	var args infraLsArgs
	arg.MustParse(&args)
	ctx := context.Background()
	infra, err := lib.InfraParse(args.YamlPath)
	if err != nil {
		lib.Logger.Fatal("error: ", err)
	}
	out, err := lib.InfraLs(ctx, infra)
	if err != nil {
		lib.Logger.Fatal("error: ", err)
	}
	fmt.Println(lib.Pformat(out))
}
