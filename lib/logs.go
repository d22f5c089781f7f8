package lib

import (
	"context"
	"errors"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	logstypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
)

var logsClient *cloudwatchlogs.Client
var logsClientLock sync.Mutex

func LogsClient() *cloudwatchlogs.Client {
	logsClientLock.Lock()
	defer logsClientLock.Unlock()
	if logsClient == nil {
		logsClient = cloudwatchlogs.NewFromConfig(*Session())
	}
	return logsClient
}

func LogsListLogGroups(ctx context.Context, prefix string) ([]logstypes.LogGroup, error) {
	var token *string
	var groups []logstypes.LogGroup
	for {
		input := &cloudwatchlogs.DescribeLogGroupsInput{
			NextToken: token,
		}
		if prefix != "" {
			input.LogGroupNamePrefix = aws.String(prefix)
		}
		out, err := LogsClient().DescribeLogGroups(ctx, input)
		if err != nil {
			Logger.Println("error:", err)
			return nil, err
		}
		groups = append(groups, out.LogGroups...)
		if out.NextToken == nil {
			break
		}
		token = out.NextToken
	}
	return groups, nil
}

func LogsDeleteGroup(ctx context.Context, name string, preview bool) error {
	if !preview {
		_, err := LogsClient().DeleteLogGroup(ctx, &cloudwatchlogs.DeleteLogGroupInput{
			LogGroupName: aws.String(name),
		})
		if err != nil {
			var nfe *logstypes.ResourceNotFoundException
			if errors.As(err, &nfe) {
				return nil
			}
			Logger.Println("error:", err)
			return err
		}
	}
	Logger.Println(PreviewString(preview)+"deleted log group:", name)
	return nil
}
