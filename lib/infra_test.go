package lib

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/gofrs/uuid"
)

func checkAccountInfra(t *testing.T) {
	if os.Getenv("MCP_AWS_TEST_ACCOUNT") == "" {
		t.Skip("set MCP_AWS_TEST_ACCOUNT to run tests against a live account")
	}
	account, err := StsAccount(context.Background())
	if err != nil {
		panic(err)
	}
	if os.Getenv("MCP_AWS_TEST_ACCOUNT") != account {
		panic(fmt.Sprintf("%s != %s", os.Getenv("MCP_AWS_TEST_ACCOUNT"), account))
	}
}

func writeInfraYaml(t *testing.T, content string) string {
	pth := filepath.Join(t.TempDir(), "deploy.yaml")
	err := os.WriteFile(pth, []byte(content), 0644)
	if err != nil {
		panic(err)
	}
	return pth
}

func TestInfraParseDefaults(t *testing.T) {
	infra, err := InfraParse(writeInfraYaml(t, "name: mcp-server\n"))
	if err != nil {
		t.Error(err)
		return
	}
	type test struct {
		key  string
		got  string
		want string
	}
	tests := []test{
		{"name", infra.Name, "mcp-server"},
		{"role", infra.Role, "mcp-server-role"},
		{"api", infra.Api, "mcp-server"},
		{"handler", infra.Handler, "lambda_handler.lambda_handler"},
		{"runtime", infra.Runtime, "python3.11"},
		{"python", infra.Python, "3.11"},
		{"platform", infra.Platform, "x86_64-manylinux2014"},
		{"require", infra.Require, "pyproject.toml"},
	}
	for _, test := range tests {
		if test.got != test.want {
			t.Errorf("\n%s\ngot:\n%s\nwant:\n%s\n", test.key, test.got, test.want)
			return
		}
	}
	if fmt.Sprint(infra.Policy) != fmt.Sprint([]string{"AWSLambdaBasicExecutionRole", "AmazonS3ReadOnlyAccess"}) {
		t.Errorf("\ngot:\n%v\n", infra.Policy)
		return
	}
	if fmt.Sprint(infra.Native) != fmt.Sprint([]string{"pydantic_core/_pydantic_core*"}) {
		t.Errorf("\ngot:\n%v\n", infra.Native)
		return
	}
	if infra.memory != 512 {
		t.Errorf("\ngot: %d want: 512", infra.memory)
		return
	}
	if infra.timeout != 30 {
		t.Errorf("\ngot: %d want: 30", infra.timeout)
		return
	}
	if infra.logGroup() != "/aws/lambda/mcp-server" {
		t.Errorf("\ngot:\n%s\n", infra.logGroup())
		return
	}
	if filepath.Base(infra.zipFile()) != "mcp-server-lambda-deployment.zip" {
		t.Errorf("\ngot:\n%s\n", infra.zipFile())
		return
	}
	if infra.s3Key() != "lambda-deployments/mcp-server.zip" {
		t.Errorf("\ngot:\n%s\n", infra.s3Key())
		return
	}
}

func TestInfraParseAttr(t *testing.T) {
	infra, err := InfraParse(writeInfraYaml(t, `
name: mcp-server
attr:
  - memory=1024
  - timeout=60
`))
	if err != nil {
		t.Error(err)
		return
	}
	if infra.memory != 1024 {
		t.Errorf("\ngot: %d want: 1024", infra.memory)
		return
	}
	if infra.timeout != 60 {
		t.Errorf("\ngot: %d want: 60", infra.timeout)
		return
	}
}

func TestInfraParseErrors(t *testing.T) {
	type test struct {
		name string
		yaml string
	}
	tests := []test{
		{"empty name", "api: mcp-server\n"},
		{"unknown key", "name: mcp-server\nmisc: x\n"},
		{"wrong type", "name: mcp-server\ninclude: lambda_handler.py\n"},
		{"wrong elem type", "name: mcp-server\ninclude:\n  - 5\n"},
		{"non python runtime", "name: mcp-server\nruntime: nodejs18.x\n"},
		{"unknown attr", "name: mcp-server\nattr:\n  - concurrency=5\n"},
		{"non digit attr", "name: mcp-server\nattr:\n  - memory=big\n"},
		{"bad attr", "name: mcp-server\nattr:\n  - memory\n"},
		{"bad env", "name: mcp-server\nenv:\n  - FASTMCP_LOG_LEVEL\n"},
	}
	for _, test := range tests {
		_, err := InfraParse(writeInfraYaml(t, test.yaml))
		if err == nil {
			t.Errorf("\nexpected error for: %s", test.name)
			return
		}
	}
}

func TestInfraParseEnvVars(t *testing.T) {
	t.Setenv("MCP_AWS_TEST_BUCKET", "mcp-server-artifacts")
	infra, err := InfraParse(writeInfraYaml(t, "name: mcp-server\nbucket: ${MCP_AWS_TEST_BUCKET}\n"))
	if err != nil {
		t.Error(err)
		return
	}
	if infra.Bucket != "mcp-server-artifacts" {
		t.Errorf("\ngot:\n%s\n", infra.Bucket)
		return
	}
	t.Setenv("MCP_AWS_TEST_BUCKET", "")
	_, err = InfraParse(writeInfraYaml(t, "name: mcp-server\nbucket: ${MCP_AWS_TEST_BUCKET}\n"))
	if err == nil {
		t.Error("expected error for missing environment variable")
		return
	}
}

func TestInfraRmOutputErr(t *testing.T) {
	type test struct {
		steps []StepResult
		err   bool
	}
	tests := []test{
		{nil, false},
		{[]StepResult{
			{Step: infraStepFunction, Status: StepFailed},
		}, true},
		{[]StepResult{
			{Step: infraStepRole, Status: StepFailed},
		}, false},
		{[]StepResult{
			{Step: infraStepPermissions, Status: StepFailed},
			{Step: infraStepApi, Status: StepFailed},
			{Step: infraStepFunction, Status: StepSuccess},
			{Step: infraStepLogs, Status: StepFailed},
			{Step: infraStepRole, Status: StepFailed},
		}, false},
		{[]StepResult{
			{Step: infraStepFunction, Status: StepNotFound},
		}, false},
	}
	for i, test := range tests {
		out := &InfraRmOutput{Steps: test.steps}
		err := out.Err()
		if test.err && err == nil {
			t.Errorf("\nexpected error for case: %d", i)
			return
		}
		if !test.err && err != nil {
			t.Errorf("\nunexpected error for case: %d: %v", i, err)
			return
		}
	}
}

func TestInfraRmMissing(t *testing.T) {
	checkAccountInfra(t)
	name := "mcp-aws-test-" + uuid.Must(uuid.NewV4()).String()
	infra, err := InfraParse(writeInfraYaml(t, "name: "+name+"\n"))
	if err != nil {
		t.Error(err)
		return
	}
	ctx := context.Background()
	out, err := InfraRm(ctx, infra, false, nil)
	if err != nil {
		t.Error(err)
		return
	}
	if len(out.Steps) != 5 {
		t.Errorf("\ngot: %d steps want: 5", len(out.Steps))
		return
	}
	for _, step := range out.Steps {
		if step.Status != StepNotFound {
			t.Errorf("\ngot: %s %s want: %s", step.Step, step.Status, StepNotFound)
			return
		}
	}
	if out.Err() != nil {
		t.Error(out.Err())
		return
	}
}

func TestInfraRmDeclined(t *testing.T) {
	checkAccountInfra(t)
	name := "mcp-aws-test-" + uuid.Must(uuid.NewV4()).String()
	infra, err := InfraParse(writeInfraYaml(t, "name: "+name+"\n"))
	if err != nil {
		t.Error(err)
		return
	}
	declined := func(_ []string) (bool, error) {
		return false, nil
	}
	out, err := InfraRm(context.Background(), infra, false, declined)
	if err != nil {
		t.Error(err)
		return
	}
	if out != nil {
		t.Errorf("\ngot:\n%v\nwant: nil", out)
		return
	}
}
