package mcpaws

import (
	"context"

	"github.com/alexflint/go-arg"
	"github.com/gauravkantrodtw/mcp-aws/lib"
)

func init() {
	lib.Commands["infra-ensure"] = infraEnsure
	lib.Args["infra-ensure"] = infraEnsureArgs{}
}

type infraEnsureArgs struct {
	YamlPath string `arg:"positional,required"`
	Preview  bool   `arg:"-p,--preview"`
	ViaS3    bool   `arg:"-s,--via-s3" help:"stage the zip in s3 and update from there, needed above the direct upload size limit"`
}

func (infraEnsureArgs) Description() string {
	return "\nbuild the bundle and deploy it to the existing function\n"
}

func infraEnsure() {
	var args infraEnsureArgs
	arg.MustParse(&args)
	ctx := context.Background()
	infra, err := lib.InfraParse(args.YamlPath)
	if err != nil {
		lib.Logger.Fatal("error: ", err)
	}
	err = lib.InfraEnsure(ctx, infra, args.ViaS3, args.Preview)
	if err != nil {
		lib.Logger.Fatal("error: ", err)
	}
}
