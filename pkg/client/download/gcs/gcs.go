// Package gcs opens Google Cloud Storage buckets with short-lived access token credentials.
package gcs

import (
	"context"
	"fmt"
	"net/http"

	"cloud.google.com/go/storage"
	"github.com/googleapis/gax-go/v2"
	"gocloud.dev/blob"
	"gocloud.dev/blob/gcsblob"
	"gocloud.dev/gcp"
	"golang.org/x/oauth2"
)

const Provider = "gcp"

type Credentials struct {
	AccessToken string
	TokenType   string
}

type Params struct {
	Bucket      string
	Credentials Credentials
}

// BucketURL returns the gocloud URL of the bucket and key.
func (p Params) BucketURL(key string) string {
	return fmt.Sprintf("gs://%s/%s", p.Bucket, key)
}

// OpenBucket opens the bucket, the default GCP transport is used if the transport is nil.
func OpenBucket(ctx context.Context, params Params, transport http.RoundTripper) (*blob.Bucket, error) {
	tokenSource := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: params.Credentials.AccessToken,
		TokenType:   params.Credentials.TokenType,
	})

	if transport == nil {
		transport = gcp.DefaultTransport()
	}
	client, err := gcp.NewHTTPClient(transport, tokenSource)
	if err != nil {
		return nil, err
	}
	b, err := gcsblob.OpenBucket(ctx, client, params.Bucket, nil)
	if err != nil {
		return nil, fmt.Errorf(`cannot open bucket "%s": %w`, params.Bucket, err)
	}

	var gcsClient *storage.Client
	if b.As(&gcsClient) {
		gcsClient.SetRetry(
			storage.WithBackoff(gax.Backoff{}),
			storage.WithPolicy(storage.RetryIdempotent),
		)
	}

	return b, nil
}
