package trace

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httputil"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/keboola/go-multiclient/pkg/client/decode"
)

const dumpTraceMaxLength = 2000

// dumpTrace buffers the dump of one transfer, the buffer is flushed when the transfer is done.
// Dumps of parallel transfers are not interleaved.
type dumpTrace struct {
	ClientTrace
	out *bytes.Buffer
}

// DumpTracer dumps HTTP requests and responses of each transfer to a writer.
// Output may contain unmasked tokens, do not use it in production!
func DumpTracer(wr io.Writer) Factory {
	lock := &sync.Mutex{}
	return func(ctx context.Context, transfer Transfer) (context.Context, *ClientTrace) {
		var responseStatusCode int
		var requestDump []byte
		var startTime, headersTime time.Time

		t := &dumpTrace{out: &bytes.Buffer{}}
		t.HTTPRequestStart = func(r *http.Request) {
			if startTime.IsZero() {
				startTime = time.Now()
			}
			requestDump, _ = httputil.DumpRequestOut(r, true)
		}
		t.HTTPRequestDone = func(r *http.Response, err error) {
			// Response can be nil, for example, if some network error occurred
			if r != nil {
				responseStatusCode = r.StatusCode
				headersTime = time.Now()
			}

			// Dump request
			t.log()
			t.log(">>>>>> HTTP DUMP", fmt.Sprintf("[%s]", transfer.ID))
			t.dump(string(requestDump))

			// Dump response
			t.log("------")
			if err != nil {
				t.log("ERROR: ", err)
			} else {
				// Dump response headers
				if v, err := httputil.DumpResponse(r, false); err == nil {
					t.log(strings.TrimSpace(string(v)))
				} else {
					t.log("cannot dump response headers: ", err)
				}
				// Dump response body, redirect responses are not read by the client
				if r.Body != nil && r.Body != http.NoBody && !isRedirect(r) {
					// Decode body and copy raw body to rawBody buffer
					var rawBody bytes.Buffer
					var decodedBody strings.Builder
					bodyReader, err := decode.Decode(io.NopCloser(io.TeeReader(r.Body, &rawBody)), r.Header.Get("Content-Encoding"))
					if err != nil {
						t.log("cannot read response body: ", err)
					} else if _, err := io.Copy(&decodedBody, bodyReader); err != nil {
						t.log("cannot read response body: ", err)
					}
					// Set buffered raw body back to the response
					r.Body = io.NopCloser(bytes.NewReader(rawBody.Bytes()))
					// Dump decoded response
					t.log("------")
					t.dump(decodedBody.String())
				}
			}
			t.log("<<<<<< HTTP DUMP END")
		}
		t.TransferDone = func(statusCode int, bodyBytes int64, err error) {
			if statusCode == 0 {
				statusCode = responseStatusCode
			}
			t.log()
			t.log(">>>>>> TRANSFER DONE", fmt.Sprintf("[%s]", transfer.ID), "| ", transfer.Method, transfer.URL, statusCode, "| BYTES:", bodyBytes, "| ERROR:", err, "| HEADERS AT:", sinceStart(startTime, headersTime), "| DONE AT:", sinceStart(startTime, time.Now()))

			lock.Lock()
			defer lock.Unlock()
			_, _ = t.out.WriteTo(wr)
		}
		return ctx, &t.ClientTrace
	}
}

func (t *dumpTrace) dump(body string) {
	body = strings.TrimSpace(body)
	if len(body) > dumpTraceMaxLength && os.Getenv("HTTP_DUMP_TRACE_FULL") != "true" { //nolint:forbidigo
		t.log(body[:dumpTraceMaxLength])
		t.log("... (set env HTTP_DUMP_TRACE_FULL=true to see full output)")
	} else {
		t.log(body)
	}
}

func (t *dumpTrace) log(a ...any) {
	_, _ = fmt.Fprintln(t.out, a...)
}

func isRedirect(r *http.Response) bool {
	return r.StatusCode >= 300 && r.StatusCode < 400 && r.Header.Get("Location") != ""
}

func sinceStart(start, t time.Time) time.Duration {
	if start.IsZero() || t.IsZero() {
		return 0
	}
	return t.Sub(start)
}
