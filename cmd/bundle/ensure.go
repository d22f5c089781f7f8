package mcpaws

import (
	"github.com/alexflint/go-arg"
	"github.com/gauravkantrodtw/mcp-aws/lib"
)

func init() {
	lib.Commands["bundle-ensure"] = bundleEnsure
	lib.Args["bundle-ensure"] = bundleEnsureArgs{}
}

type bundleEnsureArgs struct {
	YamlPath string `arg:"positional,required"`
	Preview  bool   `arg:"-p,--preview"`
}

func (bundleEnsureArgs) Description() string {
	return "\nassemble the deployment zip: locked requirements, platform wheels, sources\n"
}

func bundleEnsure() {
	var args bundleEnsureArgs
	arg.MustParse(&args)
	infra, err := lib.InfraParse(args.YamlPath)
	if err != nil {
		lib.Logger.Fatal("error: ", err)
	}
	err = lib.BundleEnsure(infra, args.Preview)
	if err != nil {
		lib.Logger.Fatal("error: ", err)
	}
}
