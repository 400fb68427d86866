package client

import (
	"fmt"

	"github.com/keboola/go-multiclient/pkg/client/method"
)

// Request configures one handle of a Registry.
//
// Setters are chainable, their error is kept and returned by the next method builder or by the Err method.
// A method builder, for example Get or Post, sets the method, the url and the body of the handle.
// No network I/O is done before the execution.
type Request struct {
	registry *Registry
	handle   Handle
	err      error
}

func newRequest(r *Registry, h Handle) *Request {
	return &Request{registry: r, handle: h}
}

// Handle returns the configured handle.
func (r *Request) Handle() Handle {
	return r.handle
}

// ID returns identifier of the configured handle.
func (r *Request) ID() string {
	return r.handle.id
}

// Err returns the first error of a setter, if any.
func (r *Request) Err() error {
	return r.err
}

// Config returns a copy of the pending configuration.
func (r *Request) Config() (*RequestConfig, error) {
	return r.registry.RequestConfig(r.handle)
}

// SetOptions merges the options to the pending configuration.
func (r *Request) SetOptions(options Options) *Request {
	if err := options.Validate(); err != nil {
		r.setErr(err)
		return r
	}
	r.setErr(r.registry.configure(r.handle, func(c *RequestConfig) error {
		c.options.Merge(options)
		return nil
	}))
	return r
}

// SetHeaders merges the headers to the pending configuration.
// Header keys are case-sensitive, the last write wins.
func (r *Request) SetHeaders(headers map[string]string) *Request {
	r.setErr(r.registry.configure(r.handle, func(c *RequestConfig) error {
		c.headers.Merge(headers)
		return nil
	}))
	return r
}

// SetHeader sets one header.
func (r *Request) SetHeader(key, value string) *Request {
	r.setErr(r.registry.configure(r.handle, func(c *RequestConfig) error {
		c.headers.Set(key, value)
		return nil
	}))
	return r
}

// SetToken sets the "Authorization: Bearer <token>" header.
func (r *Request) SetToken(token string) *Request {
	return r.SetHeader("Authorization", "Bearer "+token)
}

// Reset clears the pending configuration, default options and headers are applied again.
func (r *Request) Reset() error {
	return r.registry.configure(r.handle, func(c *RequestConfig) error {
		*c = *r.registry.config.newRequestConfig()
		return nil
	})
}

// Get configures a GET request, non-empty data are appended to the url as the query string.
func (r *Request) Get(path string, data map[string]any) error {
	return r.Do(method.Get, path, data, false)
}

// Connect configures a CONNECT request, see Do for the data encoding.
func (r *Request) Connect(path string, data map[string]any, jsonEncode bool) error {
	return r.Do(method.Connect, path, data, jsonEncode)
}

// Delete configures a DELETE request, see Do for the data encoding.
func (r *Request) Delete(path string, data map[string]any, jsonEncode bool) error {
	return r.Do(method.Delete, path, data, jsonEncode)
}

// Head configures a HEAD request, see Do for the data encoding.
func (r *Request) Head(path string, data map[string]any, jsonEncode bool) error {
	return r.Do(method.Head, path, data, jsonEncode)
}

// Options configures an OPTIONS request, see Do for the data encoding.
func (r *Request) Options(path string, data map[string]any, jsonEncode bool) error {
	return r.Do(method.Options, path, data, jsonEncode)
}

// Patch configures a PATCH request, see Do for the data encoding.
func (r *Request) Patch(path string, data map[string]any, jsonEncode bool) error {
	return r.Do(method.Patch, path, data, jsonEncode)
}

// Post configures a POST request, see Do for the data encoding.
func (r *Request) Post(path string, data map[string]any, jsonEncode bool) error {
	return r.Do(method.Post, path, data, jsonEncode)
}

// Put configures a PUT request, see Do for the data encoding.
func (r *Request) Put(path string, data map[string]any, jsonEncode bool) error {
	return r.Do(method.Put, path, data, jsonEncode)
}

// Trace configures a TRACE request, see Do for the data encoding.
func (r *Request) Trace(path string, data map[string]any, jsonEncode bool) error {
	return r.Do(method.Trace, path, data, jsonEncode)
}

// DoString is like Do, but the method is given by its name.
// An unknown method name results in the *method.InvalidMethodError.
func (r *Request) DoString(methodName, path string, data map[string]any, jsonEncode bool) error {
	m, err := method.Parse(methodName)
	if err != nil {
		return err
	}
	return r.Do(m, path, data, jsonEncode)
}

// Do configures a request with the method.
//
// The path is resolved against the base url of the Config, see ResolveURL.
//
// GET data are encoded to the query string, the request has no body.
// For other methods, non-empty data are sent as the body:
//   - jsonEncode=true:  JSON body, "Content-Type: application/json" is set, if not already present.
//   - jsonEncode=false: URL-encoded form, "Content-Type: application/x-www-form-urlencoded" is set, if not already present.
func (r *Request) Do(m method.Method, path string, data map[string]any, jsonEncode bool) error {
	if r.err != nil {
		return r.err
	}
	if !m.IsValid() {
		return &method.InvalidMethodError{Method: m.String()}
	}

	reqURL := ResolveURL(r.registry.config.baseURL, path)

	// Encode data before the registry is locked
	var body []byte
	var contentType string
	if len(data) > 0 {
		switch {
		case m.DataInQuery():
			query, err := EncodeQuery(data)
			if err != nil {
				return fmt.Errorf(`cannot encode query of the handle "%s": %w`, r.handle.id, err)
			}
			reqURL += "?" + query
		case jsonEncode:
			encoded, err := encodeJSON(data)
			if err != nil {
				return fmt.Errorf(`handle "%s": %w`, r.handle.id, err)
			}
			body, contentType = encoded, ContentTypeApplicationJSON
		default:
			encoded, err := EncodeQuery(data)
			if err != nil {
				return fmt.Errorf(`cannot encode body of the handle "%s": %w`, r.handle.id, err)
			}
			body, contentType = []byte(encoded), ContentTypeFormURLEncoded
		}
	}

	return r.registry.configure(r.handle, func(c *RequestConfig) error {
		c.method = m
		c.url = reqURL
		c.body = body
		if contentType != "" && !c.headers.Has("Content-Type") {
			c.headers.Set("Content-Type", contentType)
		}
		return nil
	})
}

func (r *Request) setErr(err error) {
	if r.err == nil && err != nil {
		r.err = err
	}
}
