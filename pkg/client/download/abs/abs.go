// Package abs opens Azure Blob Storage containers with a SAS connection string.
package abs

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"gocloud.dev/blob"
	"gocloud.dev/blob/azureblob"
)

const Provider = "azure"

const (
	blobEndpointKey = "BlobEndpoint"
	sasKey          = "SharedAccessSignature"
)

type Credentials struct {
	// SASConnectionString in form "BlobEndpoint=https://...;SharedAccessSignature=...".
	SASConnectionString string
}

type Params struct {
	AccountName string
	Container   string
	Credentials Credentials
}

// BucketURL returns the gocloud URL of the container and key.
func (p Params) BucketURL(key string) string {
	return fmt.Sprintf("azure://%s.blob.core.windows.net/%s/%s", p.AccountName, p.Container, key)
}

// ContainerURL returns the container url with the SAS token from the connection string.
func (p Params) ContainerURL() (string, error) {
	parts := make(map[string]string)
	for _, item := range strings.Split(p.Credentials.SASConnectionString, ";") {
		if key, value, found := strings.Cut(item, "="); found {
			parts[key] = value
		}
	}
	endpoint, sas := parts[blobEndpointKey], parts[sasKey]
	if endpoint == "" || sas == "" {
		return "", fmt.Errorf(`connection string must contain "%s" and "%s"`, blobEndpointKey, sasKey)
	}
	return fmt.Sprintf("%s/%s?%s", strings.TrimRight(endpoint, "/"), p.Container, sas), nil
}

// OpenBucket opens the container, the default Azure transport is used if the transport is nil.
func OpenBucket(ctx context.Context, params Params, transport http.RoundTripper) (*blob.Bucket, error) {
	containerURL, err := params.ContainerURL()
	if err != nil {
		return nil, err
	}

	opts := &container.ClientOptions{}
	if transport != nil {
		opts.ClientOptions = azcore.ClientOptions{Transport: &http.Client{Transport: transport}}
	}
	client, err := container.NewClientWithNoCredential(containerURL, opts)
	if err != nil {
		return nil, fmt.Errorf(`cannot create container client "%s": %w`, params.Container, err)
	}

	b, err := azureblob.OpenBucket(ctx, client, nil)
	if err != nil {
		return nil, fmt.Errorf(`cannot open container "%s": %w`, params.Container, err)
	}
	return b, nil
}
