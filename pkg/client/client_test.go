package client_test

import (
	"context"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/keboola/go-multiclient/pkg/client"
	"github.com/keboola/go-multiclient/pkg/client/method"
)

type testStruct struct {
	Foo string `json:"foo"`
}

func TestNew(t *testing.T) {
	t.Parallel()
	c := New(NewConfig())
	defer func() { assert.NoError(t, c.Close()) }()
	assert.NotNil(t, c)
	assert.Equal(t, DefaultHandle, c.Handle().ID())
	assert.Equal(t, []string{DefaultHandle}, c.IDs())
}

func TestNew_NotInitializedConfig(t *testing.T) {
	t.Parallel()
	assert.PanicsWithError(t, "config value is not initialized, use NewConfig", func() {
		New(Config{})
	})
}

func TestClient_Get(t *testing.T) {
	t.Parallel()

	// Mocked response
	cfg, transport := NewMockedConfig()
	transport.RegisterResponder("GET", "https://example.com/ping", httpmock.NewStringResponder(200, "pong"))

	ctx := context.Background()
	c := New(cfg.WithBaseURL("https://example.com/"))
	defer func() { assert.NoError(t, c.Close()) }()

	res, err := c.Get(ctx, "/ping", nil)
	require.NoError(t, err)
	assert.False(t, res.IsError())
	assert.Equal(t, 200, res.StatusCode())
	assert.True(t, res.IsOk())
	assert.True(t, res.IsSuccessful())
	assert.Equal(t, "pong", res.BodyString(""))
	assert.Equal(t, 1, transport.GetCallCountInfo()["GET https://example.com/ping"])

	// The same response is stored
	stored, err := c.Response()
	require.NoError(t, err)
	assert.Same(t, res, stored)
}

func TestClient_Get_Query(t *testing.T) {
	t.Parallel()

	// Mocked response
	cfg, transport := NewMockedConfig()
	transport.RegisterResponder("GET", "https://example.com/search", func(request *http.Request) (*http.Response, error) {
		assert.Equal(t, "a=1&b%5B0%5D=x&b%5B1%5D=y&c=1", request.URL.RawQuery)
		assert.True(t, request.Body == nil || request.Body == http.NoBody)
		return httpmock.NewStringResponse(200, "ok"), nil
	})

	ctx := context.Background()
	c := New(cfg.WithBaseURL("https://example.com"))
	defer func() { assert.NoError(t, c.Close()) }()

	res, err := c.Get(ctx, "search", map[string]any{"a": 1, "b": []string{"x", "y"}, "c": true})
	require.NoError(t, err)
	assert.Equal(t, 200, res.StatusCode())
	assert.Equal(t, "https://example.com/search?a=1&b%5B0%5D=x&b%5B1%5D=y&c=1", res.Info().EffectiveURL)
}

func TestClient_Post_JSON(t *testing.T) {
	t.Parallel()

	// Mocked response
	cfg, transport := NewMockedConfig()
	transport.RegisterResponder("POST", "https://example.com/echo", func(request *http.Request) (*http.Response, error) {
		assert.Equal(t, "application/json", request.Header.Get("Content-Type"))
		body, err := io.ReadAll(request.Body)
		assert.NoError(t, err)
		assert.JSONEq(t, `{"foo":"bar"}`, string(body))
		return httpmock.NewBytesResponse(201, body), nil
	})

	ctx := context.Background()
	c := New(cfg.WithBaseURL("https://example.com"))
	defer func() { assert.NoError(t, c.Close()) }()

	res, err := c.Post(ctx, "echo", map[string]any{"foo": "bar"}, true)
	require.NoError(t, err)
	assert.Equal(t, 201, res.StatusCode())
	assert.True(t, res.IsSuccessful())
	assert.False(t, res.IsOk())
	assert.Equal(t, map[string]any{"foo": "bar"}, res.JSON(nil))

	var out testStruct
	assert.NoError(t, res.DecodeJSON(&out))
	assert.Equal(t, testStruct{Foo: "bar"}, out)
}

func TestClient_Post_Form(t *testing.T) {
	t.Parallel()

	// Mocked response
	cfg, transport := NewMockedConfig()
	transport.RegisterResponder("PUT", "https://example.com/form", func(request *http.Request) (*http.Response, error) {
		assert.Equal(t, "application/x-www-form-urlencoded", request.Header.Get("Content-Type"))
		body, err := io.ReadAll(request.Body)
		assert.NoError(t, err)
		assert.Equal(t, "key=value&nested%5Bsub%5D=1", string(body))
		return httpmock.NewStringResponse(204, ""), nil
	})

	ctx := context.Background()
	c := New(cfg.WithBaseURL("https://example.com"))
	defer func() { assert.NoError(t, c.Close()) }()

	res, err := c.Put(ctx, "form", map[string]any{"key": "value", "nested": map[string]any{"sub": 1}}, false)
	require.NoError(t, err)
	assert.Equal(t, 204, res.StatusCode())
	assert.True(t, res.HasBody())
	assert.Equal(t, []byte{}, res.Body(nil))
}

func TestClient_ContentType_NotOverwritten(t *testing.T) {
	t.Parallel()

	// Mocked response
	cfg, transport := NewMockedConfig()
	transport.RegisterResponder("POST", "https://example.com/echo", func(request *http.Request) (*http.Response, error) {
		assert.Equal(t, []string{"application/vnd.api+json"}, request.Header["Content-Type"])
		return httpmock.NewStringResponse(200, "ok"), nil
	})

	ctx := context.Background()
	c := New(cfg.WithBaseURL("https://example.com"))
	defer func() { assert.NoError(t, c.Close()) }()

	res, err := c.SetHeader("Content-Type", "application/vnd.api+json").Post(ctx, "echo", map[string]any{"foo": "bar"}, true)
	require.NoError(t, err)
	assert.Equal(t, 200, res.StatusCode())
}

func TestClient_Headers(t *testing.T) {
	t.Parallel()

	// Mocked response
	cfg, transport := NewMockedConfig()
	transport.RegisterResponder("GET", "https://example.com", func(request *http.Request) (*http.Response, error) {
		assert.Equal(t, http.Header{
			"User-Agent":    []string{DefaultUserAgent},
			"Authorization": []string{"Bearer my-token"},
			"x-default":     []string{"default"},
			"x-request":     []string{"second"},
		}, request.Header)
		return httpmock.NewStringResponse(200, "test"), nil
	})

	ctx := context.Background()
	c := New(cfg.WithHeader("x-default", "default"))
	defer func() { assert.NoError(t, c.Close()) }()

	res, err := c.
		SetToken("my-token").
		SetHeaders(map[string]string{"x-request": "first"}).
		SetHeader("x-request", "second").
		Get(ctx, "https://example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, 200, res.StatusCode())

	// Headers are reset after the execution, defaults are applied again
	cfgAfter, err := c.RequestConfig(c.Handle())
	require.NoError(t, err)
	assert.False(t, cfgAfter.Configured())
	assert.Equal(t, map[string]string{"x-default": "default"}, cfgAfter.Headers().ToMap())
}

func TestClient_UserAgent(t *testing.T) {
	t.Parallel()

	// Mocked response
	cfg, transport := NewMockedConfig()
	transport.RegisterResponder("GET", "https://example.com", func(request *http.Request) (*http.Response, error) {
		assert.Equal(t, http.Header{"User-Agent": []string{"my-user-agent"}}, request.Header)
		return httpmock.NewStringResponse(200, "test"), nil
	})

	ctx := context.Background()
	c := New(cfg.WithOptions(Options{OptUserAgent: "my-user-agent"}))
	defer func() { assert.NoError(t, c.Close()) }()

	_, err := c.Get(ctx, "https://example.com", nil)
	assert.NoError(t, err)
	assert.Equal(t, 1, transport.GetCallCountInfo()["GET https://example.com"])
}

func TestClient_ResponseHeaders(t *testing.T) {
	t.Parallel()

	// Mocked response
	cfg, transport := NewMockedConfig()
	transport.RegisterResponder("GET", "https://example.com", func(request *http.Request) (*http.Response, error) {
		res := httpmock.NewStringResponse(200, "body")
		res.Header.Set("X-Foo", "  bar ")
		res.Header.Set("Content-Type", "text/plain")
		return res, nil
	})

	ctx := context.Background()
	c := New(cfg)
	defer func() { assert.NoError(t, c.Close()) }()

	res, err := c.Get(ctx, "https://example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, "bar", res.Header("X-Foo", ""))
	assert.Equal(t, "text/plain", res.Header("Content-Type", ""))
	assert.Equal(t, "default", res.Header("X-Missing", "default"))
	assert.Equal(t, "body", res.BodyString(""))
	assert.Equal(t, "text/plain", res.Info().ContentType)
	assert.False(t, res.IsJSON())
	assert.Positive(t, res.Info().HeaderSize)
}

func TestClient_NoHeaderCapture(t *testing.T) {
	t.Parallel()

	// Mocked response
	cfg, transport := NewMockedConfig()
	transport.RegisterResponder("GET", "https://example.com", func(request *http.Request) (*http.Response, error) {
		res := httpmock.NewStringResponse(200, "body")
		res.Header.Set("X-Foo", "bar")
		return res, nil
	})

	ctx := context.Background()
	c := New(cfg)
	defer func() { assert.NoError(t, c.Close()) }()

	res, err := c.SetOptions(Options{OptHeader: false}).Get(ctx, "https://example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, res.Headers().Len())
	assert.Equal(t, "body", res.BodyString(""))
}

func TestClient_NoReturnTransfer(t *testing.T) {
	t.Parallel()

	// Mocked response
	cfg, transport := NewMockedConfig()
	transport.RegisterResponder("GET", "https://example.com", httpmock.NewStringResponder(200, "body"))

	ctx := context.Background()
	c := New(cfg)
	defer func() { assert.NoError(t, c.Close()) }()

	res, err := c.SetOptions(Options{OptReturnTransfer: false}).Get(ctx, "https://example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, 200, res.StatusCode())
	assert.False(t, res.HasBody())
	assert.Equal(t, []byte("default"), res.Body([]byte("default")))
	assert.Equal(t, int64(4), res.Info().SizeDownload)
	assert.Positive(t, res.Info().StartTransferTime)
	assert.GreaterOrEqual(t, res.Info().TotalTime, res.Info().StartTransferTime)
}

func TestClient_ClientError(t *testing.T) {
	t.Parallel()

	// Mocked response
	cfg, transport := NewMockedConfig()
	transport.RegisterResponder("DELETE", "https://example.com/item", httpmock.NewStringResponder(404, "not found"))

	ctx := context.Background()
	c := New(cfg.WithBaseURL("https://example.com"))
	defer func() { assert.NoError(t, c.Close()) }()

	// HTTP error status is not a transport error
	res, err := c.Delete(ctx, "item", nil, false)
	require.NoError(t, err)
	assert.False(t, res.IsError())
	assert.Equal(t, ErrorCodeOK, res.ErrorNumber())
	assert.Equal(t, "", res.ErrorMessage())
	assert.True(t, res.IsClientError())
	assert.True(t, res.IsNotFound())
	assert.False(t, res.IsSuccessful())
}

func TestClient_TransportError(t *testing.T) {
	t.Parallel()

	// Mocked response
	cfg, transport := NewMockedConfig()
	transport.RegisterResponder("GET", "https://example.com", httpmock.NewErrorResponder(io.ErrUnexpectedEOF))

	ctx := context.Background()
	c := New(cfg)
	defer func() { assert.NoError(t, c.Close()) }()

	res, err := c.Get(ctx, "https://example.com", nil)
	require.NoError(t, err)
	assert.True(t, res.IsError(), spew.Sdump(res))
	assert.Equal(t, 0, res.StatusCode())
	assert.Equal(t, ErrorCodeGotNothing, res.ErrorNumber())
	assert.Equal(t, `request GET "https://example.com" failed: empty reply from server: unexpected EOF`, res.ErrorMessage())
	assert.ErrorIs(t, res.Err(), io.ErrUnexpectedEOF)
}

func TestClient_Timeout(t *testing.T) {
	t.Parallel()

	// Mocked response
	cfg, transport := NewMockedConfig()
	transport.RegisterResponder("GET", "https://example.com", func(request *http.Request) (*http.Response, error) {
		time.Sleep(100 * time.Millisecond) // <<<<<<<
		return httpmock.NewStringResponse(200, "test"), nil
	})

	ctx := context.Background()
	c := New(cfg)
	defer func() { assert.NoError(t, c.Close()) }()

	res, err := c.SetOptions(Options{OptTimeout: 5 * time.Millisecond}).Get(ctx, "https://example.com", nil)
	require.NoError(t, err)
	assert.True(t, res.IsError())
	assert.Equal(t, ErrorCodeOperationTimedOut, res.ErrorNumber())
	assert.Contains(t, res.ErrorMessage(), `request GET "https://example.com" failed: timeout after`)
}

func TestClient_Context_Canceled(t *testing.T) {
	t.Parallel()

	// Mocked response
	cfg, transport := NewMockedConfig()
	transport.RegisterResponder("GET", "https://example.com", func(request *http.Request) (*http.Response, error) {
		time.Sleep(100 * time.Millisecond) // <<<<<<<
		return httpmock.NewStringResponse(200, "test"), nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	c := New(cfg)
	defer func() { assert.NoError(t, c.Close()) }()

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()

	res, err := c.Get(ctx, "https://example.com", nil)
	require.NoError(t, err)
	assert.True(t, res.IsError())
	assert.Equal(t, ErrorCodeAbortedByCallback, res.ErrorNumber())
	assert.Contains(t, res.ErrorMessage(), `request GET "https://example.com" failed: canceled after`)
}

func TestClient_NoBaseURL_RelativePath(t *testing.T) {
	t.Parallel()

	cfg, _ := NewMockedConfig()
	c := New(cfg)
	defer func() { assert.NoError(t, c.Close()) }()

	res, err := c.Get(context.Background(), "/ping", nil)
	require.NoError(t, err)
	assert.True(t, res.IsError())
	assert.Equal(t, ErrorCodeUnsupportedProtocol, res.ErrorNumber())
}

func TestClient_DoString(t *testing.T) {
	t.Parallel()

	// Mocked response
	cfg, transport := NewMockedConfig()
	transport.RegisterResponder("PATCH", "https://example.com/item", httpmock.NewStringResponder(200, "patched"))

	ctx := context.Background()
	c := New(cfg.WithBaseURL("https://example.com"))
	defer func() { assert.NoError(t, c.Close()) }()

	res, err := c.DoString(ctx, "patch", "item", nil, false)
	require.NoError(t, err)
	assert.Equal(t, "patched", res.BodyString(""))

	_, err = c.DoString(ctx, "FOO", "item", nil, false)
	var methodErr *method.InvalidMethodError
	require.ErrorAs(t, err, &methodErr)
	assert.Equal(t, "FOO", methodErr.Method)
	assert.Equal(t, 1, transport.GetCallCountInfo()["PATCH https://example.com/item"])
}

func TestClient_AllMethods(t *testing.T) {
	t.Parallel()

	cfg, transport := NewMockedConfig()
	for _, m := range method.All() {
		if m == method.Connect {
			continue
		}
		transport.RegisterResponder(m.String(), "https://example.com/all", httpmock.NewStringResponder(200, m.String()))
	}

	ctx := context.Background()
	c := New(cfg.WithBaseURL("https://example.com"))
	defer func() { assert.NoError(t, c.Close()) }()

	builders := map[method.Method]func() (*Response, error){
		method.Get:     func() (*Response, error) { return c.Get(ctx, "all", nil) },
		method.Delete:  func() (*Response, error) { return c.Delete(ctx, "all", nil, false) },
		method.Head:    func() (*Response, error) { return c.Head(ctx, "all", nil, false) },
		method.Options: func() (*Response, error) { return c.Options(ctx, "all", nil, false) },
		method.Patch:   func() (*Response, error) { return c.Patch(ctx, "all", nil, false) },
		method.Post:    func() (*Response, error) { return c.Post(ctx, "all", nil, false) },
		method.Put:     func() (*Response, error) { return c.Put(ctx, "all", nil, false) },
		method.Trace:   func() (*Response, error) { return c.Trace(ctx, "all", nil, false) },
	}
	for m, fn := range builders {
		res, err := fn()
		require.NoError(t, err, m.String())
		assert.Equal(t, 200, res.StatusCode(), m.String())
		assert.Equal(t, 1, transport.GetCallCountInfo()[m.String()+" https://example.com/all"], m.String())
	}
}

func TestClient_SetOptions_Invalid(t *testing.T) {
	t.Parallel()

	cfg, transport := NewMockedConfig()
	c := New(cfg)
	defer func() { assert.NoError(t, c.Close()) }()

	// Setter error is returned by the builder, the request is not sent
	c.SetHeader("X-Partial", "value").SetOptions(Options{OptMaxRedirs: "foo"})
	assert.Error(t, c.Err())
	_, err := c.Get(context.Background(), "https://example.com", nil)
	assert.ErrorContains(t, err, `invalid options: option "max_redirs"`)
	assert.Equal(t, 0, transport.GetTotalCallCount())

	// The error is cleared
	assert.NoError(t, c.Err())

	// Partially applied setters are discarded
	cfgAfter, err := c.RequestConfig(c.Handle())
	require.NoError(t, err)
	assert.False(t, cfgAfter.Headers().Has("X-Partial"))
	transport.RegisterResponder("GET", "https://example.com", func(request *http.Request) (*http.Response, error) {
		assert.Empty(t, request.Header.Get("X-Partial"))
		return httpmock.NewStringResponse(200, "ok"), nil
	})
	res, err := c.Get(context.Background(), "https://example.com", nil)
	require.NoError(t, err)
	assert.Equal(t, "ok", res.BodyString(""))
}

func TestClient_Close(t *testing.T) {
	t.Parallel()

	cfg, _ := NewMockedConfig()
	c := New(cfg)
	assert.False(t, c.Closed())
	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
	assert.True(t, c.Closed())

	_, err := c.Get(context.Background(), "https://example.com", nil)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = c.Response()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestClient_Download(t *testing.T) {
	t.Parallel()

	// Mocked response
	cfg, transport := NewMockedConfig()
	transport.RegisterResponder("GET", "https://example.com/files/report.csv", func(request *http.Request) (*http.Response, error) {
		res := httpmock.NewStringResponse(200, "a,b\n1,2\n")
		res.Header.Set("Content-Length", "8")
		return res, nil
	})

	ctx := context.Background()
	c := New(cfg.WithBaseURL("https://example.com"))
	defer func() { assert.NoError(t, c.Close()) }()

	res, err := c.Download(ctx, "files/report.csv")
	require.NoError(t, err)
	assert.Equal(t, "a,b\n1,2\n", res.BodyString(""))
	assert.Equal(t, "8", res.Header("Content-Length", ""))
	assert.Equal(t, "https://example.com/files/report.csv", res.Info().EffectiveURL)
}

func TestClient_IsJSON(t *testing.T) {
	t.Parallel()

	// Mocked response
	cfg, transport := NewMockedConfig()
	transport.RegisterResponder("GET", "https://example.com/item", func(request *http.Request) (*http.Response, error) {
		res := httpmock.NewStringResponse(200, `{"id":1}`)
		res.Header.Set("Content-Type", "application/vnd.api+json; charset=utf-8")
		return res, nil
	})

	ctx := context.Background()
	c := New(cfg.WithBaseURL("https://example.com"))
	defer func() { assert.NoError(t, c.Close()) }()

	res, err := c.Get(ctx, "item", nil)
	require.NoError(t, err)
	assert.True(t, res.IsJSON())
}
