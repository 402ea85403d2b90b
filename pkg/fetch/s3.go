package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

// S3API is the subset of the S3 client the fetcher uses.
type S3API interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Fetcher reads fragments from objects under a bucket prefix.
type S3Fetcher struct {
	client S3API
	bucket string
	prefix string
}

// NewS3 creates a fetcher over client.
func NewS3(client S3API, bucket, prefix string) *S3Fetcher {
	return &S3Fetcher{client: client, bucket: bucket, prefix: prefix}
}

// NewS3FromEnv loads the default AWS configuration (environment, shared
// config files, instance role) and creates a fetcher.
func NewS3FromEnv(ctx context.Context, bucket, prefix string) (*S3Fetcher, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch: load aws config: %w", err)
	}
	return NewS3(s3.NewFromConfig(cfg), bucket, prefix), nil
}

func (f *S3Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	key := objectPath(f.prefix, url)
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var nsk *types.NoSuchKey
		if errors.As(err, &nsk) {
			return "", fmt.Errorf("fetch s3://%s/%s: %w", f.bucket, key, ErrNotFound)
		}
		return "", fmt.Errorf("fetch s3://%s/%s: %w", f.bucket, key, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(io.LimitReader(out.Body, DefaultMaxBody))
	if err != nil {
		return "", fmt.Errorf("fetch s3://%s/%s: read body: %w", f.bucket, key, err)
	}
	return string(data), nil
}
