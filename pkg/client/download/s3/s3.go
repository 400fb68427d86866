// Package s3 opens AWS S3 buckets with temporary credentials.
package s3

import (
	"context"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"gocloud.dev/blob"
	"gocloud.dev/blob/s3blob"
)

const Provider = "aws"

type Credentials struct {
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
}

type Params struct {
	Bucket      string
	Region      string
	Credentials Credentials
}

// BucketURL returns the gocloud URL of the bucket and key.
func (p Params) BucketURL(key string) string {
	return fmt.Sprintf("s3://%s/%s", p.Bucket, key)
}

// OpenBucket opens the bucket, the default AWS HTTP client is used if the transport is nil.
func OpenBucket(ctx context.Context, params Params, transport http.RoundTripper) (*blob.Bucket, error) {
	opts := []func(*config.LoadOptions) error{
		config.WithRegion(params.Region),
		config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(
				params.Credentials.AccessKeyID,
				params.Credentials.SecretAccessKey,
				params.Credentials.SessionToken,
			),
		),
	}
	if transport != nil {
		opts = append(opts, config.WithHTTPClient(&http.Client{Transport: transport}))
	}

	var cfg aws.Config
	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg)
	b, err := s3blob.OpenBucketV2(ctx, client, params.Bucket, nil)
	if err != nil {
		return nil, fmt.Errorf(`cannot open bucket "%s": %w`, params.Bucket, err)
	}
	return b, nil
}
