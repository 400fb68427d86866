package client

import (
	"bytes"

	"github.com/keboola/go-multiclient/pkg/client/header"
	"github.com/keboola/go-multiclient/pkg/client/method"
)

// RequestConfig is the pending configuration of one handle.
// The method and the url are set together by a method builder, see Request.
type RequestConfig struct {
	method  method.Method
	url     string
	headers *header.Map
	options Options
	body    []byte
}

// Configured returns true if a method builder has been called since the last reset.
func (c *RequestConfig) Configured() bool {
	return c.method.IsValid()
}

func (c *RequestConfig) Method() method.Method {
	return c.method
}

func (c *RequestConfig) URL() string {
	return c.url
}

// Headers returns a copy of the request headers.
func (c *RequestConfig) Headers() *header.Map {
	return c.headers.Clone()
}

// Options returns a copy of the request options.
func (c *RequestConfig) Options() Options {
	return c.options.Clone()
}

// Body returns a copy of the request body, nil if there is no body.
func (c *RequestConfig) Body() []byte {
	return bytes.Clone(c.body)
}

func (c *RequestConfig) clone() *RequestConfig {
	return &RequestConfig{
		method:  c.method,
		url:     c.url,
		headers: c.headers.Clone(),
		options: c.options.Clone(),
		body:    bytes.Clone(c.body),
	}
}
