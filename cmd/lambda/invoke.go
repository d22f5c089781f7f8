package mcpaws

import (
	"context"
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"

	"github.com/alexflint/go-arg"
	"github.com/gauravkantrodtw/mcp-aws/lib"
)

func init() {
	lib.Commands["lambda-invoke"] = lambdaInvoke
	lib.Args["lambda-invoke"] = lambdaInvokeArgs{}
}

type lambdaInvokeArgs struct {
	YamlPath      string `arg:"positional,required"`
	PayloadFile   string `arg:"-f,--payload-file" default:"payload.json" help:"payload path relative to the yaml file"`
	PayloadString string `arg:"-s,--payload-string"`
	Event         bool   `arg:"-e,--event" help:"async invoke, no response"`
}

func (lambdaInvokeArgs) Description() string {
	return "\ninvoke the function, writing the response to response.json\n"
}

func lambdaInvoke() {
	var args lambdaInvokeArgs
	arg.MustParse(&args)
	ctx := context.Background()
	infra, err := lib.InfraParse(args.YamlPath)
	if err != nil {
		lib.Logger.Fatal("error: ", err)
	}
	dir := filepath.Dir(args.YamlPath)
	var payload []byte
	if args.PayloadString != "" {
		payload = []byte(args.PayloadString)
	} else {
		payload, err = os.ReadFile(filepath.Join(dir, args.PayloadFile))
		if err != nil {
			lib.Logger.Fatal("error: ", err)
		}
	}
	out, err := lib.LambdaInvoke(ctx, infra.Name, payload, args.Event)
	if err != nil {
		lib.Logger.Fatal("error: ", err)
	}
	if out.LogResult != nil {
		log := *out.LogResult
		data, err := base64.StdEncoding.DecodeString(*out.LogResult)
		if err == nil {
			log = string(data)
		}
		fmt.Fprintln(os.Stderr, log)
	}
	if !args.Event {
		err = os.WriteFile(filepath.Join(dir, "response.json"), out.Payload, 0644)
		if err != nil {
			lib.Logger.Fatal("error: ", err)
		}
	}
	if out.FunctionError != nil {
		lib.Logger.Fatalf("function error: %s\n%s\n", *out.FunctionError, out.Payload)
	}
	fmt.Println(string(out.Payload))
}
