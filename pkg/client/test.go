package client

import (
	"os"

	"github.com/jarcoal/httpmock"

	"github.com/keboola/go-multiclient/pkg/client/trace"
)

var testTransport = DefaultTransport() //nolint:gochecknoglobals

// NewTestConfig creates the Config for tests.
//
// If the TEST_HTTP_CLIENT_VERBOSE environment variable is set to "true",
// then all HTTP requests and responses are dumped to stdout.
//
// Output may contain unmasked tokens, do not use it in production.
func NewTestConfig() Config {
	cfg := NewConfig().WithTransport(testTransport)
	if os.Getenv("TEST_HTTP_CLIENT_VERBOSE") == "true" {
		cfg = cfg.AndTrace(trace.DumpTracer(os.Stdout))
	}
	return cfg
}

// NewMockedConfig creates the Config with mocked HTTP transport.
func NewMockedConfig() (Config, *httpmock.MockTransport) {
	mockTransport := httpmock.NewMockTransport()
	return NewTestConfig().WithTransport(mockTransport), mockTransport
}
