package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"
	"google.golang.org/api/option"
)

// GCSFetcher reads fragments from objects under a Cloud Storage prefix.
type GCSFetcher struct {
	open   func(ctx context.Context, bucket, object string) (io.ReadCloser, error)
	bucket string
	prefix string
}

// NewGCS creates a fetcher over an existing client.
func NewGCS(client *storage.Client, bucket, prefix string) *GCSFetcher {
	return &GCSFetcher{
		open: func(ctx context.Context, bucket, object string) (io.ReadCloser, error) {
			return client.Bucket(bucket).Object(object).NewReader(ctx)
		},
		bucket: bucket,
		prefix: prefix,
	}
}

// NewGCSClient creates a storage client. An empty credentialsFile uses
// application default credentials.
func NewGCSClient(ctx context.Context, credentialsFile string) (*storage.Client, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	client, err := storage.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("fetch: create gcs client: %w", err)
	}
	return client, nil
}

func (f *GCSFetcher) Fetch(ctx context.Context, url string) (string, error) {
	object := objectPath(f.prefix, url)
	r, err := f.open(ctx, f.bucket, object)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return "", fmt.Errorf("fetch gs://%s/%s: %w", f.bucket, object, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("fetch gs://%s/%s: %w", f.bucket, object, err)
	}
	defer r.Close()

	data, err := io.ReadAll(io.LimitReader(r, DefaultMaxBody))
	if err != nil {
		return "", fmt.Errorf("fetch gs://%s/%s: read: %w", f.bucket, object, err)
	}
	return string(data), nil
}
