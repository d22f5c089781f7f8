package lib

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/dustin/go-humanize"
	"gopkg.in/yaml.v3"
)

const (
	infraKeyName     = "name"
	infraKeyRegion   = "region"
	infraKeyRole     = "role"
	infraKeyApi      = "api"
	infraKeyHandler  = "handler"
	infraKeyRuntime  = "runtime"
	infraKeyAttr     = "attr"
	infraKeyEnv      = "env"
	infraKeyPolicy   = "policy"
	infraKeyInclude  = "include"
	infraKeyRequire  = "require"
	infraKeyPlatform = "platform"
	infraKeyPython   = "python"
	infraKeyNative   = "native"
	infraKeyBucket   = "bucket"
)

// Infra is one deployment: a python lambda behind an http api, with its
// role, log group, and packaging inputs. paths are relative to the yaml
// file's directory.
type Infra struct {
	dir     string
	memory  int
	timeout int

	Name     string   `json:"name"               yaml:"name"`
	Region   string   `json:"region,omitempty"   yaml:"region,omitempty"`
	Role     string   `json:"role,omitempty"     yaml:"role,omitempty"`
	Api      string   `json:"api,omitempty"      yaml:"api,omitempty"`
	Handler  string   `json:"handler,omitempty"  yaml:"handler,omitempty"`
	Runtime  string   `json:"runtime,omitempty"  yaml:"runtime,omitempty"`
	Attr     []string `json:"attr,omitempty"     yaml:"attr,omitempty"`
	Env      []string `json:"env,omitempty"      yaml:"env,omitempty"`
	Policy   []string `json:"policy,omitempty"   yaml:"policy,omitempty"`
	Include  []string `json:"include,omitempty"  yaml:"include,omitempty"`
	Require  string   `json:"require,omitempty"  yaml:"require,omitempty"`
	Platform string   `json:"platform,omitempty" yaml:"platform,omitempty"`
	Python   string   `json:"python,omitempty"   yaml:"python,omitempty"`
	Native   []string `json:"native,omitempty"   yaml:"native,omitempty"`
	Bucket   string   `json:"bucket,omitempty"   yaml:"bucket,omitempty"`
}

func (i *Infra) zipFile() string {
	return filepath.Join(i.dir, i.Name+"-lambda-deployment.zip")
}

func (i *Infra) scratch() string {
	return filepath.Join(i.dir, bundleScratchDir)
}

func (i *Infra) logGroup() string {
	return lambdaLogGroupPrefix + i.Name
}

func (i *Infra) bucket() string {
	if i.Bucket != "" {
		return i.Bucket
	}
	return fmt.Sprintf("%s-deployments-%s", i.Name, Region())
}

func (i *Infra) s3Key() string {
	return "lambda-deployments/" + i.Name + ".zip"
}

func (i *Infra) plan() []string {
	return []string{
		"function: " + i.Name,
		"api: " + i.Api,
		"log group: " + i.logGroup(),
		"role: " + i.Role,
	}
}

func resolveEnvVars(s string) (string, error) {
	for _, variable := range regexp.MustCompile(`(\$\{[^\}]+})`).FindAllString(s, -1) {
		variableName := variable[2 : len(variable)-1]
		variableValue := os.Getenv(variableName)
		if variableValue == "" {
			err := fmt.Errorf("missing environment variable: %s", variableName)
			Logger.Println("error:", err)
			return "", err
		}
		s = strings.Replace(s, variable, variableValue, 1)
	}
	return s, nil
}

func infraParseValidateString(key string, val any) error {
	_, ok := val.(string)
	if !ok {
		err := fmt.Errorf("infra key %s should be type: string, got: %#v", key, val)
		Logger.Println("error:", err)
		return err
	}
	return nil
}

func infraParseValidateStringSlice(key string, val any) error {
	xs, ok := val.([]any)
	if !ok {
		err := fmt.Errorf("infra key %s should be type: []string, got: %#v", key, val)
		Logger.Println("error:", err)
		return err
	}
	for _, x := range xs {
		_, ok := x.(string)
		if !ok {
			err := fmt.Errorf("infra key %s should be type: []string, got: %#v", key, x)
			Logger.Println("error:", err)
			return err
		}
	}
	return nil
}

func InfraParse(yamlPath string) (*Infra, error) {
	data, err := os.ReadFile(yamlPath)
	if err != nil {
		Logger.Println("error:", err)
		return nil, err
	}
	resolved, err := resolveEnvVars(string(data))
	if err != nil {
		Logger.Println("error:", err)
		return nil, err
	}
	data = []byte(resolved)
	val := make(map[string]any)
	err = yaml.Unmarshal(data, &val)
	if err != nil {
		Logger.Println("error:", err)
		return nil, err
	}
	for k, v := range val {
		switch k {
		case infraKeyName, infraKeyRegion, infraKeyRole, infraKeyApi, infraKeyHandler,
			infraKeyRuntime, infraKeyRequire, infraKeyPlatform, infraKeyPython, infraKeyBucket:
			err := infraParseValidateString(k, v)
			if err != nil {
				return nil, err
			}
		case infraKeyAttr, infraKeyEnv, infraKeyPolicy, infraKeyInclude, infraKeyNative:
			err := infraParseValidateStringSlice(k, v)
			if err != nil {
				return nil, err
			}
		default:
			err := fmt.Errorf("unknown infra key: %s: %v", k, v)
			Logger.Println("error:", err)
			return nil, err
		}
	}
	infra := &Infra{}
	err = yaml.Unmarshal(data, infra)
	if err != nil {
		Logger.Println("error:", err)
		return nil, err
	}
	if infra.Name == "" {
		err := fmt.Errorf("infra name cannot be empty")
		Logger.Println("error:", err)
		return nil, err
	}
	yamlPath, err = filepath.Abs(yamlPath)
	if err != nil {
		Logger.Println("error:", err)
		return nil, err
	}
	infra.dir = filepath.Dir(yamlPath)
	if infra.Role == "" {
		infra.Role = infra.Name + "-role"
	}
	if infra.Api == "" {
		infra.Api = infra.Name
	}
	if infra.Handler == "" {
		infra.Handler = "lambda_handler.lambda_handler"
	}
	if infra.Runtime == "" {
		infra.Runtime = "python3.11"
	}
	if !strings.HasPrefix(infra.Runtime, "python") {
		err := fmt.Errorf("only python runtimes are supported, got: %s", infra.Runtime)
		Logger.Println("error:", err)
		return nil, err
	}
	if infra.Python == "" {
		infra.Python = strings.TrimPrefix(infra.Runtime, "python")
	}
	if infra.Platform == "" {
		infra.Platform = "x86_64-manylinux2014"
	}
	if infra.Require == "" {
		infra.Require = "pyproject.toml"
	}
	if len(infra.Policy) == 0 {
		infra.Policy = []string{"AWSLambdaBasicExecutionRole", "AmazonS3ReadOnlyAccess"}
	}
	if len(infra.Native) == 0 {
		infra.Native = []string{"pydantic_core/_pydantic_core*"}
	}
	infra.memory = 512
	infra.timeout = 30
	for _, attr := range infra.Attr {
		k, v, err := SplitOnce(attr, "=")
		if err != nil {
			Logger.Println("error:", err)
			return nil, err
		}
		if !IsDigit(v) {
			err := fmt.Errorf("attr value should be digits: %s=%s", k, v)
			Logger.Println("error:", err)
			return nil, err
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			Logger.Println("error:", err)
			return nil, err
		}
		switch k {
		case lambdaAttrMemory:
			infra.memory = n
		case lambdaAttrTimeout:
			infra.timeout = n
		default:
			err := fmt.Errorf("unknown attr: %s", k)
			Logger.Println("error:", err)
			return nil, err
		}
	}
	for _, val := range infra.Env {
		_, _, err := SplitOnce(val, "=")
		if err != nil {
			err := fmt.Errorf("env should be key=value, got: %s", val)
			Logger.Println("error:", err)
			return nil, err
		}
	}
	if infra.Region != "" {
		SessionRegion(infra.Region)
	}
	return infra, nil
}

type StepStatus string

const (
	StepSuccess  StepStatus = "success"
	StepNotFound StepStatus = "not-found"
	StepFailed   StepStatus = "failed"
)

const (
	infraStepPermissions = "permissions"
	infraStepApi         = "api"
	infraStepFunction    = "function"
	infraStepLogs        = "logs"
	infraStepRole        = "role"
)

type StepResult struct {
	Step     string     `json:"step"             yaml:"step"`
	Resource string     `json:"resource"         yaml:"resource"`
	Status   StepStatus `json:"status"           yaml:"status"`
	Detail   string     `json:"detail,omitempty" yaml:"detail,omitempty"`
}

type InfraRmOutput struct {
	Account string       `json:"account" yaml:"account"`
	Region  string       `json:"region"  yaml:"region"`
	Steps   []StepResult `json:"steps"   yaml:"steps"`
}

func (o *InfraRmOutput) add(result StepResult) {
	switch result.Status {
	case StepSuccess:
		Logger.Success(result.Step+":", result.Resource)
	case StepNotFound:
		Logger.Info(result.Step+":", result.Resource, "(not found)")
	case StepFailed:
		Logger.Warning(result.Step+":", result.Resource, result.Detail)
	}
	o.Steps = append(o.Steps, result)
}

// Err reports whether the run must exit non zero. only the function step
// is critical, everything after it is cleanup.
func (o *InfraRmOutput) Err() error {
	for _, step := range o.Steps {
		if step.Step == infraStepFunction && step.Status == StepFailed {
			return fmt.Errorf("failed to delete function: %s: %s", step.Resource, step.Detail)
		}
	}
	return nil
}

// InfraRm tears down the deployment in dependency order: api gateway
// permissions on the function, the api, the function itself, its log
// group, then the role. every step runs no matter what happened before
// it, and a missing resource is an expected outcome, not an error.
func InfraRm(ctx context.Context, infra *Infra, preview bool, confirm func([]string) (bool, error)) (*InfraRmOutput, error) {
	account, err := StsAccount(ctx)
	if err != nil {
		Logger.Println("error:", err)
		return nil, err
	}
	arn, err := StsArn(ctx)
	if err != nil {
		Logger.Println("error:", err)
		return nil, err
	}
	Logger.Info("account:", account)
	Logger.Info("caller:", arn)
	Logger.Info("region:", Region())
	if confirm != nil {
		ok, err := confirm(infra.plan())
		if err != nil {
			Logger.Println("error:", err)
			return nil, err
		}
		if !ok {
			Logger.Info("aborted, nothing deleted")
			return nil, nil
		}
	}
	out := &InfraRmOutput{
		Account: account,
		Region:  Region(),
	}
	out.add(infraRmPermissions(ctx, infra, preview))
	out.add(infraRmApi(ctx, infra, preview))
	out.add(infraRmFunction(ctx, infra, preview))
	out.add(infraRmLogs(ctx, infra, preview))
	out.add(infraRmRole(ctx, infra, preview))
	return out, nil
}

func infraRmPermissions(ctx context.Context, infra *Infra, preview bool) StepResult {
	result := StepResult{Step: infraStepPermissions, Resource: infra.Name}
	policy, err := LambdaGetPolicy(ctx, infra.Name)
	if err != nil {
		if err.Error() == ErrLambdaNotFound {
			result.Status = StepNotFound
			return result
		}
		result.Status = StepFailed
		result.Detail = err.Error()
		return result
	}
	sids, err := lambdaPermissionSids(policy, apigatewayPrincipal)
	if err != nil {
		result.Status = StepFailed
		result.Detail = err.Error()
		return result
	}
	if len(sids) == 0 {
		result.Status = StepNotFound
		result.Detail = "no api gateway statements"
		return result
	}
	for _, sid := range sids {
		err := LambdaRemovePermission(ctx, infra.Name, sid, preview)
		if err != nil {
			result.Status = StepFailed
			result.Detail = err.Error()
			return result
		}
	}
	result.Status = StepSuccess
	result.Detail = fmt.Sprintf("%d statements", len(sids))
	return result
}

func infraRmApi(ctx context.Context, infra *Infra, preview bool) StepResult {
	result := StepResult{Step: infraStepApi, Resource: infra.Api}
	api, err := Api(ctx, infra.Api)
	if err != nil {
		if err.Error() == ErrApiNotFound {
			result.Status = StepNotFound
			return result
		}
		result.Status = StepFailed
		result.Detail = err.Error()
		return result
	}
	err = ApiDelete(ctx, *api.ApiId, preview)
	if err != nil {
		result.Status = StepFailed
		result.Detail = err.Error()
		return result
	}
	result.Status = StepSuccess
	return result
}

func infraRmFunction(ctx context.Context, infra *Infra, preview bool) StepResult {
	result := StepResult{Step: infraStepFunction, Resource: infra.Name}
	_, err := LambdaGetFunction(ctx, infra.Name)
	if err != nil {
		if err.Error() == ErrLambdaNotFound {
			result.Status = StepNotFound
			return result
		}
		result.Status = StepFailed
		result.Detail = err.Error()
		return result
	}
	err = LambdaDeleteFunction(ctx, infra.Name, preview)
	if err != nil {
		result.Status = StepFailed
		result.Detail = err.Error()
		return result
	}
	result.Status = StepSuccess
	return result
}

func infraRmLogs(ctx context.Context, infra *Infra, preview bool) StepResult {
	result := StepResult{Step: infraStepLogs, Resource: infra.logGroup()}
	groups, err := LogsListLogGroups(ctx, infra.logGroup())
	if err != nil {
		result.Status = StepFailed
		result.Detail = err.Error()
		return result
	}
	found := false
	for _, group := range groups {
		if aws.ToString(group.LogGroupName) == infra.logGroup() {
			found = true
			break
		}
	}
	if !found {
		result.Status = StepNotFound
		return result
	}
	err = LogsDeleteGroup(ctx, infra.logGroup(), preview)
	if err != nil {
		result.Status = StepFailed
		result.Detail = err.Error()
		return result
	}
	result.Status = StepSuccess
	return result
}

func infraRmRole(ctx context.Context, infra *Infra, preview bool) StepResult {
	result := StepResult{Step: infraStepRole, Resource: infra.Role}
	exists, err := IamRoleExists(ctx, infra.Role)
	if err != nil {
		result.Status = StepFailed
		result.Detail = err.Error()
		return result
	}
	if !exists {
		result.Status = StepNotFound
		return result
	}
	attached, err := IamListRolePolicies(ctx, infra.Role)
	if err != nil {
		Logger.Warning("could not list attached policies:", infra.Role, err)
	}
	for _, policy := range attached {
		if Contains(infra.Policy, aws.ToString(policy.PolicyName)) {
			err := IamDetachRolePolicy(ctx, infra.Role, aws.ToString(policy.PolicyArn), preview)
			if err != nil {
				Logger.Warning("could not detach policy, continuing:", aws.ToString(policy.PolicyName), err)
			}
		}
	}
	err = IamDeleteRole(ctx, infra.Role, preview)
	if err != nil {
		result.Status = StepFailed
		result.Detail = err.Error()
		Logger.Warning("could not delete role:", infra.Role, "- detach its remaining policies and delete it manually")
		return result
	}
	result.Status = StepSuccess
	return result
}

// InfraEnsure pushes a fresh bundle to an existing function and brings
// its configuration in line with the yaml. creating the function, role,
// and api is provisioning, not deployment, and stays out of scope.
func InfraEnsure(ctx context.Context, infra *Infra, viaS3, preview bool) error {
	account, err := StsAccount(ctx)
	if err != nil {
		Logger.Println("error:", err)
		return err
	}
	arn, err := StsArn(ctx)
	if err != nil {
		Logger.Println("error:", err)
		return err
	}
	Logger.Info("account:", account)
	Logger.Info("caller:", arn)
	Logger.Info("region:", Region())
	_, err = LambdaGetFunction(ctx, infra.Name)
	if err != nil {
		if err.Error() == ErrLambdaNotFound {
			err := fmt.Errorf("function not found, create it before deploying: %s", infra.Name)
			Logger.Println("error:", err)
			return err
		}
		return err
	}
	err = BundleEnsure(infra, preview)
	if err != nil {
		Logger.Println("error:", err)
		return err
	}
	if viaS3 || infra.Bucket != "" {
		bucket := infra.bucket()
		err := S3EnsureBucket(ctx, bucket, preview)
		if err != nil {
			Logger.Println("error:", err)
			return err
		}
		var data []byte
		if !preview {
			data, err = os.ReadFile(infra.zipFile())
			if err != nil {
				Logger.Println("error:", err)
				return err
			}
		}
		err = S3PutObject(ctx, bucket, infra.s3Key(), data, preview)
		if err != nil {
			Logger.Println("error:", err)
			return err
		}
		err = LambdaUpdateFunctionS3(ctx, infra.Name, bucket, infra.s3Key(), preview)
		if err != nil {
			Logger.Println("error:", err)
			return err
		}
	} else {
		err = LambdaUpdateFunctionZip(ctx, infra.Name, infra.zipFile(), preview)
		if err != nil {
			Logger.Println("error:", err)
			return err
		}
	}
	if !preview {
		err = LambdaWaitUpdated(ctx, infra.Name)
		if err != nil {
			Logger.Println("error:", err)
			return err
		}
	}
	err = LambdaEnsureConfiguration(ctx, infra, preview)
	if err != nil {
		Logger.Println("error:", err)
		return err
	}
	if !preview {
		err = LambdaWaitUpdated(ctx, infra.Name)
		if err != nil {
			Logger.Println("error:", err)
			return err
		}
	}
	Logger.Success(PreviewString(preview)+"deployed:", infra.Name)
	url, err := ApiUrl(ctx, infra.Api)
	if err == nil {
		Logger.Info("url:", url)
	}
	return nil
}

type InfraLsLogGroup struct {
	Name          string `json:"name"                     yaml:"name"`
	Stored        string `json:"stored,omitempty"         yaml:"stored,omitempty"`
	RetentionDays int32  `json:"retention-days,omitempty" yaml:"retention-days,omitempty"`
}

type InfraLsOutput struct {
	Account  string            `json:"account"              yaml:"account"`
	Region   string            `json:"region"               yaml:"region"`
	Name     string            `json:"name"                 yaml:"name"`
	Arn      string            `json:"arn,omitempty"        yaml:"arn,omitempty"`
	ApiId    string            `json:"api-id,omitempty"     yaml:"api-id,omitempty"`
	State    string            `json:"state,omitempty"      yaml:"state,omitempty"`
	Runtime  string            `json:"runtime,omitempty"    yaml:"runtime,omitempty"`
	Handler  string            `json:"handler,omitempty"    yaml:"handler,omitempty"`
	Timeout  int32             `json:"timeout,omitempty"    yaml:"timeout,omitempty"`
	Memory   int32             `json:"memory,omitempty"     yaml:"memory,omitempty"`
	CodeSize string            `json:"code-size,omitempty"  yaml:"code-size,omitempty"`
	Modified string            `json:"modified,omitempty"   yaml:"modified,omitempty"`
	Url      string            `json:"url,omitempty"        yaml:"url,omitempty"`
	Role     string            `json:"role,omitempty"       yaml:"role,omitempty"`
	Policy   []string          `json:"policy,omitempty"     yaml:"policy,omitempty"`
	LogGroup []InfraLsLogGroup `json:"log-group,omitempty"  yaml:"log-group,omitempty"`
}

func InfraLs(ctx context.Context, infra *Infra) (*InfraLsOutput, error) {
	account, err := StsAccount(ctx)
	if err != nil {
		Logger.Println("error:", err)
		return nil, err
	}
	out := &InfraLsOutput{
		Account: account,
		Region:  Region(),
		Name:    infra.Name,
	}
	lock := sync.Mutex{}
	errs := make(chan error)
	count := 0

	// function
	count++
	go func() {
		fn, err := LambdaGetFunction(ctx, infra.Name)
		if err != nil {
			if err.Error() == ErrLambdaNotFound {
				errs <- nil
				return
			}
			errs <- err
			return
		}
		lock.Lock()
		out.Arn = aws.ToString(fn.FunctionArn)
		out.State = string(fn.State)
		out.Runtime = string(fn.Runtime)
		out.Handler = aws.ToString(fn.Handler)
		out.Timeout = aws.ToInt32(fn.Timeout)
		out.Memory = aws.ToInt32(fn.MemorySize)
		out.CodeSize = strings.ReplaceAll(humanize.Bytes(uint64(fn.CodeSize)), " ", "")
		out.Modified = aws.ToString(fn.LastModified)
		lock.Unlock()
		errs <- nil
	}()

	// api
	count++
	go func() {
		api, err := Api(ctx, infra.Api)
		if err != nil {
			if err.Error() == ErrApiNotFound {
				errs <- nil
				return
			}
			errs <- err
			return
		}
		lock.Lock()
		out.ApiId = aws.ToString(api.ApiId)
		out.Url = apiUrl(out.ApiId)
		lock.Unlock()
		errs <- nil
	}()

	// role
	count++
	go func() {
		exists, err := IamRoleExists(ctx, infra.Role)
		if err != nil {
			errs <- err
			return
		}
		if !exists {
			errs <- nil
			return
		}
		policies, err := IamListRolePolicies(ctx, infra.Role)
		if err != nil {
			errs <- err
			return
		}
		lock.Lock()
		out.Role = infra.Role
		for _, policy := range policies {
			out.Policy = append(out.Policy, aws.ToString(policy.PolicyName))
		}
		lock.Unlock()
		errs <- nil
	}()

	// log groups
	count++
	go func() {
		groups, err := LogsListLogGroups(ctx, infra.logGroup())
		if err != nil {
			errs <- err
			return
		}
		lock.Lock()
		for _, group := range groups {
			out.LogGroup = append(out.LogGroup, InfraLsLogGroup{
				Name:          aws.ToString(group.LogGroupName),
				Stored:        strings.ReplaceAll(humanize.Bytes(uint64(aws.ToInt64(group.StoredBytes))), " ", ""),
				RetentionDays: aws.ToInt32(group.RetentionInDays),
			})
		}
		lock.Unlock()
		errs <- nil
	}()

	for i := 0; i < count; i++ {
		e := <-errs
		if e != nil && err == nil {
			err = e
		}
	}
	if err != nil {
		Logger.Println("error:", err)
		return nil, err
	}
	return out, nil
}
