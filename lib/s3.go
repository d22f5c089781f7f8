package lib

import (
	"bytes"
	"context"
	"errors"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

var s3Client *s3.Client
var s3ClientLock sync.Mutex

func S3Client() *s3.Client {
	s3ClientLock.Lock()
	defer s3ClientLock.Unlock()
	if s3Client == nil {
		s3Client = s3.NewFromConfig(*Session())
	}
	return s3Client
}

func S3EnsureBucket(ctx context.Context, name string, preview bool) error {
	_, err := S3Client().HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(name),
	})
	if err == nil {
		return nil
	}
	var nf *s3types.NotFound
	if !errors.As(err, &nf) {
		Logger.Println("error:", err)
		return err
	}
	if !preview {
		input := &s3.CreateBucketInput{
			Bucket: aws.String(name),
		}
		if Region() != "us-east-1" {
			input.CreateBucketConfiguration = &s3types.CreateBucketConfiguration{
				LocationConstraint: s3types.BucketLocationConstraint(Region()),
			}
		}
		_, err := S3Client().CreateBucket(ctx, input)
		if err != nil {
			var owned *s3types.BucketAlreadyOwnedByYou
			if !errors.As(err, &owned) {
				Logger.Println("error:", err)
				return err
			}
		}
	}
	Logger.Println(PreviewString(preview)+"created bucket:", name)
	return nil
}

func S3PutObject(ctx context.Context, bucket, key string, data []byte, preview bool) error {
	if !preview {
		err := Retry(ctx, func() error {
			_, err := S3Client().PutObject(ctx, &s3.PutObjectInput{
				Bucket: aws.String(bucket),
				Key:    aws.String(key),
				Body:   bytes.NewReader(data),
			})
			return err
		})
		if err != nil {
			Logger.Println("error:", err)
			return err
		}
	}
	Logger.Println(PreviewString(preview)+"put object:", "s3://"+bucket+"/"+key)
	return nil
}
