package lib

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	iamtypes "github.com/aws/aws-sdk-go-v2/service/iam/types"
)

var iamClient *iam.Client
var iamClientLock sync.Mutex

func IamClient() *iam.Client {
	iamClientLock.Lock()
	defer iamClientLock.Unlock()
	if iamClient == nil {
		iamClient = iam.NewFromConfig(*Session())
	}
	return iamClient
}

type IamStatementEntry struct {
	Sid       string `json:",omitempty" yaml:",omitempty"`
	Effect    string `json:",omitempty" yaml:",omitempty"`
	Resource  any    `json:",omitempty" yaml:",omitempty"`
	Principal any    `json:",omitempty" yaml:",omitempty"`
	Action    any    `json:",omitempty" yaml:",omitempty"`
}

type IamPolicyDocument struct {
	Version   string              `json:",omitempty" yaml:",omitempty"`
	Id        string              `json:",omitempty" yaml:",omitempty"`
	Statement []IamStatementEntry `json:",omitempty" yaml:",omitempty"`
}

func IamRoleExists(ctx context.Context, roleName string) (bool, error) {
	if doDebug {
		d := &Debug{start: time.Now(), name: "IamRoleExists"}
		defer d.Log()
	}
	_, err := IamClient().GetRole(ctx, &iam.GetRoleInput{
		RoleName: aws.String(roleName),
	})
	if err != nil {
		var nse *iamtypes.NoSuchEntityException
		if errors.As(err, &nse) {
			return false, nil
		}
		Logger.Println("error:", err)
		return false, err
	}
	return true, nil
}

func IamListRolePolicies(ctx context.Context, roleName string) ([]iamtypes.AttachedPolicy, error) {
	if doDebug {
		d := &Debug{start: time.Now(), name: "IamListRolePolicies"}
		defer d.Log()
	}
	var policies []iamtypes.AttachedPolicy
	var marker *string
	for {
		out, err := IamClient().ListAttachedRolePolicies(ctx, &iam.ListAttachedRolePoliciesInput{
			RoleName: aws.String(roleName),
			Marker:   marker,
		})
		if err != nil {
			return nil, err
		}
		policies = append(policies, out.AttachedPolicies...)
		if out.Marker == nil {
			break
		}
		marker = out.Marker
	}
	return policies, nil
}

func IamDetachRolePolicy(ctx context.Context, roleName, policyArn string, preview bool) error {
	if !preview {
		_, err := IamClient().DetachRolePolicy(ctx, &iam.DetachRolePolicyInput{
			RoleName:  aws.String(roleName),
			PolicyArn: aws.String(policyArn),
		})
		if err != nil {
			var nse *iamtypes.NoSuchEntityException
			if errors.As(err, &nse) {
				return nil
			}
			Logger.Println("error:", err)
			return err
		}
	}
	Logger.Println(PreviewString(preview)+"detached role policy:", roleName, Last(strings.Split(policyArn, "/")))
	return nil
}

func IamDeleteRole(ctx context.Context, roleName string, preview bool) error {
	if doDebug {
		d := &Debug{start: time.Now(), name: "IamDeleteRole"}
		defer d.Log()
	}
	if !preview {
		_, err := IamClient().DeleteRole(ctx, &iam.DeleteRoleInput{
			RoleName: aws.String(roleName),
		})
		if err != nil {
			var nse *iamtypes.NoSuchEntityException
			if errors.As(err, &nse) {
				return nil
			}
			Logger.Println("error:", err)
			return err
		}
	}
	Logger.Println(PreviewString(preview)+"deleted role:", roleName)
	return nil
}
