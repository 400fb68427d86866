// Package client provides a batched HTTP client.
//
// Requests are configured on handles, each handle is identified by a caller-chosen string.
// The configuration is kept until the handle is executed, no network I/O is done before.
// After the execution, the Response of each handle can be read by its identifier.
//
// Client is a synchronous client with a single handle, each method builder executes the request immediately.
//
// Async is a concurrent client with many handles, see Async.Create, Async.Use and Async.Execute.
// Transfers of one batch run concurrently, the concurrency is limited by Config.WithMaxConcurrency.
//
// Config is shared by all handles of a client, it contains the base url, default headers and options,
// the HTTP transport and trace/telemetry hooks.
//
// Both clients must be released by the Close method.
package client

import (
	"context"

	"github.com/keboola/go-multiclient/pkg/client/method"
)

// DefaultHandle is identifier of the single handle of the Client.
const DefaultHandle = "default"

// Client sends one request at a time, using a single handle.
//
//	c := client.New(client.NewConfig().WithBaseURL("https://example.com"))
//	defer c.Close()
//	res, err := c.SetToken("my-token").Get(ctx, "ping", nil)
type Client struct {
	*Registry
	request *Request
}

// New creates the Client with the DefaultHandle.
func New(cfg Config) *Client {
	r := newRegistry(cfg)
	if err := r.Create(DefaultHandle); err != nil {
		panic(err)
	}
	h, err := r.Handle(DefaultHandle)
	if err != nil {
		panic(err)
	}
	return &Client{Registry: r, request: newRequest(r, h)}
}

// NewWithBaseURL is a shortcut for New(NewConfig().WithBaseURL(baseURL)).
func NewWithBaseURL(baseURL string) *Client {
	return New(NewConfig().WithBaseURL(baseURL))
}

// Handle returns the handle of the Client.
func (c *Client) Handle() Handle {
	return c.request.handle
}

// Err returns the first error of a setter, if any.
func (c *Client) Err() error {
	return c.request.Err()
}

// SetOptions merges the options to the pending configuration.
func (c *Client) SetOptions(options Options) *Client {
	c.request.SetOptions(options)
	return c
}

// SetHeaders merges the headers to the pending configuration.
func (c *Client) SetHeaders(headers map[string]string) *Client {
	c.request.SetHeaders(headers)
	return c
}

// SetHeader sets one header of the pending configuration.
func (c *Client) SetHeader(key, value string) *Client {
	c.request.SetHeader(key, value)
	return c
}

// SetToken sets the "Authorization: Bearer <token>" header of the pending configuration.
func (c *Client) SetToken(token string) *Client {
	c.request.SetToken(token)
	return c
}

// Response returns the last Response.
func (c *Client) Response() (*Response, error) {
	return c.Registry.Response(DefaultHandle)
}

func (c *Client) Get(ctx context.Context, path string, data map[string]any) (*Response, error) {
	return c.Do(ctx, method.Get, path, data, false)
}

func (c *Client) Connect(ctx context.Context, path string, data map[string]any, jsonEncode bool) (*Response, error) {
	return c.Do(ctx, method.Connect, path, data, jsonEncode)
}

func (c *Client) Delete(ctx context.Context, path string, data map[string]any, jsonEncode bool) (*Response, error) {
	return c.Do(ctx, method.Delete, path, data, jsonEncode)
}

func (c *Client) Head(ctx context.Context, path string, data map[string]any, jsonEncode bool) (*Response, error) {
	return c.Do(ctx, method.Head, path, data, jsonEncode)
}

func (c *Client) Options(ctx context.Context, path string, data map[string]any, jsonEncode bool) (*Response, error) {
	return c.Do(ctx, method.Options, path, data, jsonEncode)
}

func (c *Client) Patch(ctx context.Context, path string, data map[string]any, jsonEncode bool) (*Response, error) {
	return c.Do(ctx, method.Patch, path, data, jsonEncode)
}

func (c *Client) Post(ctx context.Context, path string, data map[string]any, jsonEncode bool) (*Response, error) {
	return c.Do(ctx, method.Post, path, data, jsonEncode)
}

func (c *Client) Put(ctx context.Context, path string, data map[string]any, jsonEncode bool) (*Response, error) {
	return c.Do(ctx, method.Put, path, data, jsonEncode)
}

func (c *Client) Trace(ctx context.Context, path string, data map[string]any, jsonEncode bool) (*Response, error) {
	return c.Do(ctx, method.Trace, path, data, jsonEncode)
}

// DoString is like Do, but the method is given by its name.
func (c *Client) DoString(ctx context.Context, methodName, path string, data map[string]any, jsonEncode bool) (*Response, error) {
	m, err := method.Parse(methodName)
	if err != nil {
		return nil, err
	}
	return c.Do(ctx, m, path, data, jsonEncode)
}

// Do configures the request, see Request.Do, and executes it.
//
// A transport error is not returned, it is part of the Response, see Response.IsError.
// The returned error means that the request has not been executed.
// The pending configuration is reset after the execution or after the returned error, the setter error too.
func (c *Client) Do(ctx context.Context, m method.Method, path string, data map[string]any, jsonEncode bool) (*Response, error) {
	err := c.request.Do(m, path, data, jsonEncode)
	c.request.err = nil
	if err != nil {
		// Partially applied setters must not leak to the next request
		_ = c.request.Reset()
		return nil, err
	}
	return c.execute(ctx)
}

// Download gets the file from the url.
// The body is kept in the Response, use the download package to serve or store it.
func (c *Client) Download(ctx context.Context, url string) (*Response, error) {
	return c.Get(ctx, url, nil)
}

func (c *Client) execute(ctx context.Context) (*Response, error) {
	transfers, err := c.begin(DefaultHandle)
	if err != nil {
		return nil, err
	}

	results := make(map[string]*rawResult, len(transfers))
	for _, t := range transfers {
		results[t.id] = t.perform(ctx, c.transport(), c.config.traceFactory)
	}

	c.finish(results)
	return c.Response()
}
