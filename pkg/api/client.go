// Package api provides a batch oriented client of a JSON API.
//
// Requests are added by AddRequest, performed concurrently by Execute
// and their responses are read by Response:
//
//	c := api.NewClient(client.NewConfig().WithBaseURL("https://example.com/api"))
//	c.SetAuthenticationHeaders(map[string]string{"X-Api-Key": "secret"})
//	_ = c.AddRequest(api.NewRequest("users", "get", "/users", nil, nil, true))
//	_ = c.AddRequest(api.NewRequest("create", "post", "/users", map[string]any{"name": "John"}, nil, true))
//	_ = c.Execute(ctx)
//	res, _ := c.Response("users")
package api

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"

	"golang.org/x/oauth2"

	"github.com/keboola/go-multiclient/pkg/client"
	"github.com/keboola/go-multiclient/pkg/client/header"
	"github.com/keboola/go-multiclient/pkg/client/method"
)

// Client collects requests into a batch, the batch is performed by the Execute method.
// Authentication and per-method headers are kept between batches.
type Client struct {
	config      client.Config
	lock        sync.Mutex
	authHeaders *header.Map
	tokenSource oauth2.TokenSource
	headers     map[method.Method]*header.Map
	async       *client.Async
	requestIDs  []string
	responses   map[string]*Response
}

// NewClient creates an API client, the base url is taken from the Config.
func NewClient(cfg client.Config) *Client {
	return &Client{
		config:      cfg,
		authHeaders: header.NewMap(),
		headers:     make(map[method.Method]*header.Map),
		responses:   make(map[string]*Response),
	}
}

// BaseURL returns the url to which request paths are appended.
func (c *Client) BaseURL() string {
	return c.config.BaseURL()
}

// SetAuthenticationHeaders merges the headers to the authentication headers.
// They are sent with each request which requires authentication.
func (c *Client) SetAuthenticationHeaders(headers map[string]string) *Client {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.authHeaders.Merge(headers)
	return c
}

// AuthenticationHeaders returns a copy of the authentication headers.
func (c *Client) AuthenticationHeaders() map[string]string {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.authHeaders.ToMap()
}

// WithTokenSource sets a source of the "Authorization" header for requests which require authentication.
// The token is requested when the request is added.
func (c *Client) WithTokenSource(ts oauth2.TokenSource) *Client {
	c.lock.Lock()
	defer c.lock.Unlock()
	c.tokenSource = ts
	return c
}

// SetHeaders merges the headers to the default headers of the method.
func (c *Client) SetHeaders(m method.Method, headers map[string]string) *Client {
	c.lock.Lock()
	defer c.lock.Unlock()
	if _, found := c.headers[m]; !found {
		c.headers[m] = header.NewMap()
	}
	c.headers[m].Merge(headers)
	return c
}

// ForgetHeaders removes the keys from the default headers of the method.
func (c *Client) ForgetHeaders(m method.Method, keys ...string) *Client {
	c.lock.Lock()
	defer c.lock.Unlock()
	if h, found := c.headers[m]; found {
		for _, key := range keys {
			h.Delete(key)
		}
	}
	return c
}

// Headers returns a copy of the default headers of the method.
func (c *Client) Headers(m method.Method) map[string]string {
	c.lock.Lock()
	defer c.lock.Unlock()
	if h, found := c.headers[m]; found {
		return h.ToMap()
	}
	return map[string]string{}
}

// AddRequest adds the request to the current batch.
// The first request of a batch clears responses of the previous batch.
//
// Headers are merged in the order: authentication headers, request headers, method headers.
// Data are sent as the JSON body, or as the query string for the GET method.
func (c *Client) AddRequest(req Request) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	req = req.normalize()
	m, err := method.Parse(req.Method)
	if err != nil {
		return &Error{Op: "add request", ID: req.ID, Err: err}
	}

	if c.async == nil {
		c.responses = make(map[string]*Response)
		c.async = client.NewAsync(c.config)
	}
	if err := c.async.Create(req.ID); err != nil {
		return &Error{Op: "add request", ID: req.ID, Err: err}
	}
	r, err := c.async.Use(req.ID)
	if err != nil {
		return &Error{Op: "add request", ID: req.ID, Err: err}
	}

	if req.RequiresAuthentication {
		if err := c.authenticate(r); err != nil {
			return &Error{Op: "add request", ID: req.ID, Err: err}
		}
	}
	r.SetHeaders(req.Headers)
	if h, found := c.headers[m]; found {
		r.SetHeaders(h.ToMap())
	}

	if err := r.Do(m, req.Path, req.Data, true); err != nil {
		return &Error{Op: "add request", ID: req.ID, Err: err}
	}
	if !slices.Contains(c.requestIDs, req.ID) {
		c.requestIDs = append(c.requestIDs, req.ID)
	}
	return nil
}

// Execute performs all added requests concurrently and stores their responses.
// If no request has been added, Execute does nothing.
func (c *Client) Execute(ctx context.Context) error {
	c.lock.Lock()
	defer c.lock.Unlock()

	if c.async == nil {
		return nil
	}

	// The batch is discarded in any case
	async, ids := c.async, c.requestIDs
	c.async, c.requestIDs = nil, nil
	defer func() { _ = async.Close() }()

	if err := async.Execute(ctx); err != nil {
		return &Error{Op: "execute", Err: err}
	}
	for _, id := range ids {
		res, err := async.Response(id)
		if err != nil {
			return &Error{Op: "execute", ID: id, Err: err}
		}
		c.responses[id] = newResponse(res)
	}
	return nil
}

// Response returns the response of the request from the last batch.
func (c *Client) Response(id string) (*Response, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	res, found := c.responses[id]
	if !found {
		return nil, &Error{Op: "get response", ID: id, Err: &client.UnknownHandleError{ID: id}}
	}
	return res, nil
}

// Request performs the requests as one batch and returns responses by the map keys.
// It doesn't affect the batch collected by AddRequest.
// The map key is used as the request ID, the per-method headers are not applied
// and data are sent as the form encoded body, or as the query string for the GET method.
func (c *Client) Request(ctx context.Context, requests map[string]Request) (map[string]*Response, error) {
	ids := make([]string, 0, len(requests))
	for id := range requests {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	async := client.NewAsync(c.config)
	defer func() { _ = async.Close() }()

	if len(ids) > 0 {
		if err := async.Create(ids...); err != nil {
			return nil, &Error{Op: "perform request", Err: err}
		}
	}
	for _, id := range ids {
		req := requests[id].normalize()
		m, err := method.Parse(req.Method)
		if err != nil {
			return nil, &Error{Op: "perform request", ID: id, Err: err}
		}
		r, err := async.Use(id)
		if err != nil {
			return nil, &Error{Op: "perform request", ID: id, Err: err}
		}
		if req.RequiresAuthentication {
			c.lock.Lock()
			err = c.authenticate(r)
			c.lock.Unlock()
			if err != nil {
				return nil, &Error{Op: "perform request", ID: id, Err: err}
			}
		}
		r.SetHeaders(req.Headers)
		if err := r.Do(m, req.Path, req.Data, false); err != nil {
			return nil, &Error{Op: "perform request", ID: id, Err: err}
		}
	}

	if err := async.Execute(ctx); err != nil {
		return nil, &Error{Op: "perform request", Err: err}
	}

	out := make(map[string]*Response, len(ids))
	for _, id := range ids {
		res, err := async.Response(id)
		if err != nil {
			return nil, &Error{Op: "perform request", ID: id, Err: err}
		}
		out[id] = newResponse(res)
	}
	return out, nil
}

// authenticate sets the authentication headers and the token, the lock must be held.
func (c *Client) authenticate(r *client.Request) error {
	r.SetHeaders(c.authHeaders.ToMap())
	if c.tokenSource == nil {
		return nil
	}
	token, err := c.tokenSource.Token()
	if err != nil {
		return fmt.Errorf("cannot get token: %w", err)
	}
	r.SetHeader("Authorization", token.Type()+" "+token.AccessToken)
	return r.Err()
}
