package mcpaws

import (
	"context"
	"fmt"

	"github.com/alexflint/go-arg"
	"github.com/gauravkantrodtw/mcp-aws/lib"
	"gopkg.in/yaml.v3"
)

func init() {
	lib.Commands["infra-rm"] = infraRm
	lib.Args["infra-rm"] = infraRmArgs{}
}

type infraRmArgs struct {
	YamlPath string `arg:"positional,required"`
	Preview  bool   `arg:"-p,--preview"`
	Yes      bool   `arg:"-y,--yes" help:"skip the confirmation prompt"`
}

func (infraRmArgs) Description() string {
	return "\ntear down the deployment: api gateway permissions, api, function, log group, role\n"
}

func infraRm() {
	var args infraRmArgs
	arg.MustParse(&args)
	ctx := context.Background()
	infra, err := lib.InfraParse(args.YamlPath)
	if err != nil {
		lib.Logger.Fatal("error: ", err)
	}
	confirm := lib.ConfirmProceed
	if args.Yes {
		confirm = nil
	}
	out, err := lib.InfraRm(ctx, infra, args.Preview, confirm)
	if err != nil {
		lib.Logger.Fatal("error: ", err)
	}
	if out == nil {
		return // declined at the prompt
	}
	_ = lib.BundleRm(infra, args.Preview)
	data, err := yaml.Marshal(out)
	if err != nil {
		lib.Logger.Fatal("error: ", err)
	}
	fmt.Println(string(data))
	err = out.Err()
	if err != nil {
		lib.Logger.Fatal("error: ", err)
	}
}
