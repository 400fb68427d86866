package client

import (
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/metric"
	otelTrace "go.opentelemetry.io/otel/trace"

	"github.com/keboola/go-multiclient/pkg/client/header"
	"github.com/keboola/go-multiclient/pkg/client/trace"
	"github.com/keboola/go-multiclient/pkg/client/trace/otel"
)

// Version of the library, it is part of the default User-Agent.
const Version = "1.0.0"

// DefaultUserAgent is sent if no other User-Agent is configured.
const DefaultUserAgent = "go-multiclient/" + Version + " +https://github.com/keboola/go-multiclient"

// DefaultConnectTimeout specifies default maximum time of the connection phase of a transfer.
const DefaultConnectTimeout = 60 * time.Second

// DefaultTimeout specifies default maximum time of a whole transfer.
const DefaultTimeout = 60 * time.Second

// DefaultMaxRedirects specifies default maximum number of followed redirects.
const DefaultMaxRedirects = 5

// DefaultMaxConcurrency specifies default maximum number of transfers running at once in one batch.
const DefaultMaxConcurrency = 32

// Config is shared by all handles of a client.
// Each With* method returns a modified clone, so a Config value can be safely reused by multiple clients.
type Config struct {
	baseURL        string
	header         *header.Map
	options        Options
	transport      http.RoundTripper
	traceFactory   trace.Factory
	maxConcurrency int64
}

// NewConfig creates a Config with the DefaultTransport.
func NewConfig() Config {
	return Config{
		header:         header.NewMap(),
		options:        make(Options),
		transport:      DefaultTransport(),
		maxConcurrency: DefaultMaxConcurrency,
	}
}

// WithBaseURL returns a clone of the Config with base url set.
// Request paths are appended to the base url.
func (c Config) WithBaseURL(baseURL string) Config {
	c.baseURL = baseURL
	return c
}

// WithHeader returns a clone of the Config with a default header set.
func (c Config) WithHeader(key, value string) Config {
	c.header = c.header.Clone()
	c.header.Set(key, value)
	return c
}

// WithHeaders returns a clone of the Config with default headers set.
func (c Config) WithHeaders(headers map[string]string) Config {
	c.header = c.header.Clone()
	c.header.Merge(headers)
	return c
}

// WithOptions returns a clone of the Config with default options set, they are applied over the DefaultOptions.
// Invalid options cause a panic, like other invalid Config values.
func (c Config) WithOptions(options Options) Config {
	if err := options.Validate(); err != nil {
		panic(err)
	}
	c.options = c.options.Clone()
	c.options.Merge(options)
	return c
}

// WithTransport returns a clone of the Config with a HTTP transport set.
func (c Config) WithTransport(transport http.RoundTripper) Config {
	if transport == nil {
		panic(fmt.Errorf("transport cannot be nil"))
	}
	c.transport = transport
	return c
}

// WithMaxConcurrency returns a clone of the Config with maximum number of parallel transfers set.
func (c Config) WithMaxConcurrency(limit int64) Config {
	if limit < 1 {
		panic(fmt.Errorf("max concurrency must be greater than 0, given %d", limit))
	}
	c.maxConcurrency = limit
	return c
}

// AndTrace returns a clone of the Config with the trace factory added.
// Hooks of the previously added factories are called first.
func (c Config) AndTrace(fn trace.Factory) Config {
	c.traceFactory = trace.ComposeFactories(c.traceFactory, fn)
	return c
}

// WithTelemetry returns a clone of the Config with OpenTelemetry tracing and metrics added.
func (c Config) WithTelemetry(tracerProvider otelTrace.TracerProvider, meterProvider metric.MeterProvider, opts ...otel.Option) Config {
	return c.AndTrace(otel.NewTrace(tracerProvider, meterProvider, opts...))
}

func (c Config) BaseURL() string {
	return c.baseURL
}

func (c Config) Transport() http.RoundTripper {
	return c.transport
}

// newRequestConfig creates an empty RequestConfig with default options and headers applied.
func (c Config) newRequestConfig() *RequestConfig {
	options := DefaultOptions()
	options.Merge(c.options)
	return &RequestConfig{headers: c.header.Clone(), options: options}
}
