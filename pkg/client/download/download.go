// Package download serves and stores bodies fetched by the client.
//
// A body can be streamed to a browser by Serve,
// or stored into a bucket of any gocloud.dev/blob provider by ToBucket and ToBucketAll.
package download

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strconv"

	"github.com/gabriel-vasile/mimetype"
	"gocloud.dev/blob"
	"golang.org/x/sync/errgroup"

	// Drivers for the OpenBucket URLs.
	_ "gocloud.dev/blob/azureblob"
	_ "gocloud.dev/blob/fileblob"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/keboola/go-multiclient/pkg/client"
)

// DefaultFileName is used if the name cannot be determined from the url.
const DefaultFileName = "download"

// DefaultUploadConcurrency is the maximum number of parallel uploads in ToBucketAll.
const DefaultUploadConcurrency = 8

// FileName returns the last segment of the effective url path.
func FileName(res *client.Response) string {
	u, err := url.Parse(res.Info().EffectiveURL)
	if err != nil {
		return DefaultFileName
	}
	name := path.Base(u.Path)
	if name == "." || name == "/" {
		return DefaultFileName
	}
	return name
}

// ContentType returns the type by the fileName extension, or the type detected from the body.
func ContentType(fileName string, body []byte) string {
	if v := mime.TypeByExtension(path.Ext(fileName)); v != "" {
		return v
	}
	return mimetype.Detect(body).String()
}

// Serve writes the body as an attachment to the w.
// If the fileName is empty, the FileName is used.
func Serve(w http.ResponseWriter, res *client.Response, fileName string) error {
	if err := res.Err(); err != nil {
		return err
	}
	if !res.HasBody() {
		return fmt.Errorf(`cannot serve "%s": no body captured`, res.ID())
	}
	if fileName == "" {
		fileName = FileName(res)
	}

	body := res.Body(nil)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": fileName}))
	w.Header().Set("Content-Type", ContentType(fileName, body))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf(`cannot serve "%s": %w`, res.ID(), err)
	}
	return nil
}

// OpenBucket opens a bucket by the URL, for example "s3://my-bucket?region=us-west-1", "gs://my-bucket",
// "azblob://my-container", "file:///path/to/dir" or "mem://".
func OpenBucket(ctx context.Context, bucketURL string) (*blob.Bucket, error) {
	b, err := blob.OpenBucket(ctx, bucketURL)
	if err != nil {
		return nil, fmt.Errorf(`cannot open bucket "%s": %w`, bucketURL, err)
	}
	return b, nil
}

// ToBucket writes the body to the key in the bucket.
func ToBucket(ctx context.Context, bucket *blob.Bucket, key string, res *client.Response) (err error) {
	if err := res.Err(); err != nil {
		return err
	}
	if !res.HasBody() {
		return fmt.Errorf(`cannot store "%s": no body captured`, res.ID())
	}

	body := res.Body(nil)
	contentType := res.Info().ContentType
	if contentType == "" {
		contentType = ContentType(key, body)
	}

	bw, err := bucket.NewWriter(ctx, key, &blob.WriterOptions{ContentType: contentType})
	if err != nil {
		return fmt.Errorf(`opening blob "%s" failed: %w`, key, err)
	}
	defer func() {
		if closeErr := bw.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf(`cannot close blob "%s": %w`, key, closeErr)
		}
	}()

	if _, err := bw.Write(body); err != nil {
		return fmt.Errorf(`cannot write blob "%s": %w`, key, err)
	}
	return nil
}

// ToBucketAll writes bodies of all responses to the bucket, the key is the prefix + the map key.
// The first error cancels the remaining uploads.
func ToBucketAll(ctx context.Context, bucket *blob.Bucket, prefix string, responses map[string]*client.Response) error {
	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(DefaultUploadConcurrency)
	for id, res := range responses {
		key := prefix + id
		grp.Go(func() error {
			return ToBucket(ctx, bucket, key, res)
		})
	}
	return grp.Wait()
}
