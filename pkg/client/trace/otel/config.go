package otel

import (
	"strings"

	"go.opentelemetry.io/otel/propagation"
)

type config struct {
	propagators         propagation.TextMapPropagator
	redactedQueryParams map[string]struct{}
	redactedHeaders     map[string]struct{}
	bodyMetrics         bool
}

type Option func(*config)

// WithPropagators injects trace headers into each sent request, including redirects.
func WithPropagators(v propagation.TextMapPropagator) Option {
	return func(c *config) {
		c.propagators = v
	}
}

// WithRedactedQueryParam masks values of the query parameters in the span and metric attributes.
func WithRedactedQueryParam(params ...string) Option {
	return func(c *config) {
		for _, p := range params {
			c.redactedQueryParams[strings.ToLower(p)] = struct{}{}
		}
	}
}

// WithRedactedHeaders masks values of the headers in the span attributes.
func WithRedactedHeaders(headers ...string) Option {
	return func(c *config) {
		for _, h := range headers {
			c.redactedHeaders[strings.ToLower(h)] = struct{}{}
		}
	}
}

// WithBodyMetrics enables the received body size counter.
func WithBodyMetrics() Option {
	return func(c *config) {
		c.bodyMetrics = true
	}
}

func newConfig(opts []Option) config {
	cfg := config{
		redactedQueryParams: make(map[string]struct{}),
		// Same as in the otelhttptrace
		redactedHeaders: map[string]struct{}{
			"authorization":       {},
			"www-authenticate":    {},
			"proxy-authenticate":  {},
			"proxy-authorization": {},
			"cookie":              {},
			"set-cookie":          {},
		},
	}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}
