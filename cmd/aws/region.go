package mcpaws

import (
	"fmt"

	"github.com/alexflint/go-arg"
	"github.com/gauravkantrodtw/mcp-aws/lib"
)

func init() {
	lib.Commands["aws-region"] = region
	lib.Args["aws-region"] = regionArgs{}
}

type regionArgs struct {
	YamlPath string `arg:"positional" help:"print the region this deployment would use instead of the ambient one"`
}

func (regionArgs) Description() string {
	return "\ncurrent region id\n"
}

func region() {
	var args regionArgs
	arg.MustParse(&args)
	if args.YamlPath != "" {
		_, err := lib.InfraParse(args.YamlPath)
		if err != nil {
			lib.Logger.Fatal("error: ", err)
		}
	}
	fmt.Println(lib.Region())
}
