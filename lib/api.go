package lib

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/apigatewayv2"
	apitypes "github.com/aws/aws-sdk-go-v2/service/apigatewayv2/types"
)

var apiClient *apigatewayv2.Client
var apiClientLock sync.Mutex

func ApiClient() *apigatewayv2.Client {
	apiClientLock.Lock()
	defer apiClientLock.Unlock()
	if apiClient == nil {
		apiClient = apigatewayv2.NewFromConfig(*Session())
	}
	return apiClient
}

func ApiList(ctx context.Context) ([]apitypes.Api, error) {
	if doDebug {
		d := &Debug{start: time.Now(), name: "ApiList"}
		defer d.Log()
	}
	var token *string
	var items []apitypes.Api
	for {
		out, err := ApiClient().GetApis(ctx, &apigatewayv2.GetApisInput{
			NextToken: token,
		})
		if err != nil {
			Logger.Println("error:", err)
			return nil, err
		}
		items = append(items, out.Items...)
		if out.NextToken == nil {
			break
		}
		token = out.NextToken
	}
	return items, nil
}

const (
	ErrApiNotFound = "ErrApiNotFound"
)

func Api(ctx context.Context, name string) (*apitypes.Api, error) {
	if doDebug {
		d := &Debug{start: time.Now(), name: "Api"}
		defer d.Log()
	}
	var count int
	var result *apitypes.Api
	apis, err := ApiList(ctx)
	if err != nil {
		Logger.Println("error:", err)
		return nil, err
	}
	for i, api := range apis {
		if api.Name != nil && *api.Name == name {
			count++
			result = &apis[i]
		}
	}
	switch count {
	case 0:
		return nil, fmt.Errorf("%s", ErrApiNotFound)
	case 1:
		return result, nil
	default:
		err := fmt.Errorf("more than 1 api (%d) with name: %s", count, name)
		Logger.Println("error:", err)
		return nil, err
	}
}

func apiUrl(apiID string) string {
	return fmt.Sprintf("https://%s.execute-api.%s.amazonaws.com", apiID, Region())
}

func ApiUrl(ctx context.Context, name string) (string, error) {
	if doDebug {
		d := &Debug{start: time.Now(), name: "ApiUrl"}
		defer d.Log()
	}
	api, err := Api(ctx, name)
	if err != nil {
		return "", err
	}
	return apiUrl(*api.ApiId), nil
}

func ApiDelete(ctx context.Context, apiID string, preview bool) error {
	if !preview {
		_, err := ApiClient().DeleteApi(ctx, &apigatewayv2.DeleteApiInput{
			ApiId: aws.String(apiID),
		})
		if err != nil {
			var nfe *apitypes.NotFoundException
			if errors.As(err, &nfe) {
				return nil
			}
			Logger.Println("error:", err)
			return err
		}
	}
	Logger.Println(PreviewString(preview)+"deleted api:", apiID)
	return nil
}
