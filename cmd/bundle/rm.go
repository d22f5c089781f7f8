package mcpaws

import (
	"github.com/alexflint/go-arg"
	"github.com/gauravkantrodtw/mcp-aws/lib"
)

func init() {
	lib.Commands["bundle-rm"] = bundleRm
	lib.Args["bundle-rm"] = bundleRmArgs{}
}

type bundleRmArgs struct {
	YamlPath string `arg:"positional,required"`
	Preview  bool   `arg:"-p,--preview"`
}

func (bundleRmArgs) Description() string {
	return "\nremove local build artifacts: zip, invoke fixtures, scratch dir\n"
}

func bundleRm() {
	var args bundleRmArgs
	arg.MustParse(&args)
	infra, err := lib.InfraParse(args.YamlPath)
	if err != nil {
		lib.Logger.Fatal("error: ", err)
	}
	err = lib.BundleRm(infra, args.Preview)
	if err != nil {
		lib.Logger.Fatal("error: ", err)
	}
}
