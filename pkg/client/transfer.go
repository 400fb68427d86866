package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"net/url"
	"time"

	"github.com/keboola/go-multiclient/pkg/client/counter"
	"github.com/keboola/go-multiclient/pkg/client/decode"
	"github.com/keboola/go-multiclient/pkg/client/header"
	"github.com/keboola/go-multiclient/pkg/client/method"
	"github.com/keboola/go-multiclient/pkg/client/trace"
)

// transfer is an immutable snapshot of a configured handle, it is performed by a goroutine of the batch.
type transfer struct {
	id      string
	method  method.Method
	url     string
	headers []header.Pair
	body    []byte
	options transferOptions
}

func newTransfer(id string, c *RequestConfig) (*transfer, error) {
	opts, err := c.options.resolve()
	if err != nil {
		return nil, fmt.Errorf(`handle "%s": %w`, id, err)
	}
	return &transfer{
		id:      id,
		method:  c.method,
		url:     c.url,
		headers: c.headers.Pairs(),
		body:    bytes.Clone(c.body),
		options: opts,
	}, nil
}

// perform runs the transfer to a terminal state, a transport error is part of the result.
func (t *transfer) perform(ctx context.Context, transport http.RoundTripper, traceFactory trace.Factory) (out *rawResult) {
	startedAt := time.Now()
	out = &rawResult{id: t.id, headersCaptured: t.options.header, bodyCaptured: t.options.returnTransfer}
	out.info.SizeUpload = int64(len(t.body))

	// Init trace
	var userTrace *trace.ClientTrace
	if traceFactory != nil {
		ctx, userTrace = traceFactory(ctx, trace.Transfer{ID: t.id, Method: t.method.String(), URL: t.url})
	}

	// Collect header blocks of all responses, including redirects.
	// The raw block is recorded on HTTP/1.x connections of the DefaultTransport,
	// otherwise it is rendered from the parsed response.
	var headerBlocks bytes.Buffer
	wire := &wireRecorder{}
	tc := &trace.ClientTrace{}
	tc.GotConn = func(info httptrace.GotConnInfo) {
		if info.Conn != nil {
			out.info.RemoteAddr = info.Conn.RemoteAddr().String()
			wire.attach(info.Conn)
		}
	}
	tc.HTTPRequestDone = func(res *http.Response, err error) {
		if res == nil {
			wire.take(0)
			return
		}
		if block := wire.take(res.StatusCode); block != nil {
			headerBlocks.Write(block)
		} else {
			headerBlocks.Write(header.Block(res))
		}
	}
	tc.Compose(userTrace)
	ctx = httptrace.WithClientTrace(ctx, &tc.ClientTrace)

	var bodyBytes int64
	defer func() {
		out.info.TotalTime = time.Since(startedAt)
		out.info.SizeDownload = bodyBytes
		out.info.StatusCode = out.statusCode
		if tc.TransferDone != nil {
			var err error
			if out.err != nil {
				err = out.err
			}
			tc.TransferDone(out.statusCode, bodyBytes, err)
		}
	}()

	// Validate url
	if t.url == "" {
		out.err = newTransportError(ErrorCodeURLMalformat, t.method.String(), t.url, errors.New("no url set"))
		return out
	}
	if u, err := url.Parse(t.url); err != nil {
		out.err = newTransportError(ErrorCodeURLMalformat, t.method.String(), t.url, err)
		return out
	} else if u.Scheme == "" {
		out.err = newTransportError(ErrorCodeUnsupportedProtocol, t.method.String(), t.url, errors.New(`unsupported protocol scheme ""`))
		return out
	}

	// Create request
	if t.options.connectTimeout > 0 {
		ctx = withConnectTimeout(ctx, t.options.connectTimeout)
	}
	var body io.Reader
	if t.body != nil {
		body = bytes.NewReader(t.body)
	}
	req, err := http.NewRequestWithContext(ctx, t.method.String(), t.url, body)
	if err != nil {
		out.err = newTransportError(ErrorCodeURLMalformat, t.method.String(), t.url, err)
		return out
	}

	// Headers are sent with the exact case
	for _, p := range t.headers {
		req.Header[p.Key] = []string{p.Value}
	}
	if _, found := req.Header["User-Agent"]; !found {
		req.Header.Set("User-Agent", t.options.userAgent)
	}
	if _, found := req.Header["Accept-Encoding"]; !found && t.options.encoding != "" {
		req.Header.Set("Accept-Encoding", t.options.encoding)
	}

	// Setup native client
	nativeClient := http.Client{
		Timeout:   t.options.timeout,
		Transport: roundTripper{trace: tc, wrapped: transport},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if !t.options.followLocation {
				return http.ErrUseLastResponse
			}
			if t.options.maxRedirs >= 0 && len(via) > t.options.maxRedirs {
				return errTooManyRedirects
			}
			out.info.RedirectCount = len(via)
			return nil
		},
	}

	// Send request
	res, err := nativeClient.Do(req)
	if res != nil {
		out.statusCode = res.StatusCode
		out.info.EffectiveURL = t.url
		if res.Request != nil {
			out.info.EffectiveURL = res.Request.URL.String()
		}
		out.info.ContentType = res.Header.Get("Content-Type")
		out.info.Proto = res.Proto
	}
	if t.options.header {
		out.raw = append(out.raw, headerBlocks.Bytes()...)
		out.headerSize = len(out.raw)
		out.info.HeaderSize = out.headerSize
	}
	if err != nil {
		// The last response is returned together with an error, if the redirect limit is reached
		if res != nil && res.Body != nil {
			_ = res.Body.Close()
		}
		out.err = handleSendError(req.Context(), startedAt, t.options, t.method.String(), t.url, err)
		return out
	}

	// Read body
	countingBody := counter.New(res.Body, func(stats counter.Stats) {
		bodyBytes = stats.Bytes
		if !stats.FirstByteAt.IsZero() {
			out.info.StartTransferTime = stats.FirstByteAt.Sub(startedAt)
		}
	})
	var bodyReader io.ReadCloser = countingBody
	if t.options.encoding != "" {
		bodyReader, err = decode.Decode(countingBody, res.Header.Get("Content-Encoding"))
		if err != nil {
			_ = countingBody.Close()
			out.err = newTransportError(ErrorCodeBadContentEncoding, t.method.String(), t.url, err)
			return out
		}
	}
	bodyContent, readErr := io.ReadAll(bodyReader)
	closeErr := bodyReader.Close()
	if readErr == nil && closeErr != nil && !errors.Is(closeErr, http.ErrBodyReadAfterClose) {
		readErr = closeErr
	}
	if readErr != nil {
		var decodeErr *decode.Error
		if errors.As(readErr, &decodeErr) {
			out.err = newTransportError(ErrorCodeBadContentEncoding, t.method.String(), t.url, readErr)
		} else {
			out.err = handleSendError(req.Context(), startedAt, t.options, t.method.String(), t.url, readErr)
		}
	}
	if t.options.returnTransfer {
		out.raw = append(out.raw, bodyContent...)
	}
	return out
}

// roundTripper wraps a http.RoundTripper and adds trace hooks for each request, including redirects.
type roundTripper struct {
	trace   *trace.ClientTrace
	wrapped http.RoundTripper
}

func (rt roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	// Trace request start
	if rt.trace != nil && rt.trace.HTTPRequestStart != nil {
		rt.trace.HTTPRequestStart(req)
	}

	// Send
	res, err := rt.wrapped.RoundTrip(req)

	// Trace request done
	if rt.trace != nil && rt.trace.HTTPRequestDone != nil {
		rt.trace.HTTPRequestDone(res, err)
	}

	return res, err
}
