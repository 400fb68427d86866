package trace

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptrace"
	"sync"
	"time"
)

type logTrace struct {
	ClientTrace
	wr *syncWriter
}

// syncWriter serializes lines of transfers running in parallel.
type syncWriter struct {
	lock sync.Mutex
	wr   io.Writer
}

// LogTracer logs each transfer to the writer, one line per event.
// The line is prefixed by the handle identifier, for example:
//
//	TRANSFER[users] START GET "https://example.com/users"
func LogTracer(wr io.Writer) Factory {
	sw := &syncWriter{wr: wr}
	return func(ctx context.Context, transfer Transfer) (context.Context, *ClientTrace) {
		var req *http.Request
		var connStartTime time.Time
		var startTime time.Time
		var doneTime time.Time

		t := &logTrace{wr: sw}
		t.ConnectStart = func(network, addr string) {
			connStartTime = time.Now()
		}
		t.GotConn = func(info httptrace.GotConnInfo) {
			if req == nil {
				return
			}
			var infoStr string
			if info.Reused {
				if info.WasIdle {
					infoStr = fmt.Sprintf("reused conn (was idle=%s)", info.IdleTime)
				} else {
					infoStr = "reused conn"
				}
			} else {
				infoStr = fmt.Sprintf("new conn | %s", time.Since(connStartTime))
			}
			t.log(transfer.ID, fmt.Sprintf(`CONN  %s "%s" | %s`, req.Method, req.URL.String(), infoStr))
		}
		t.HTTPRequestStart = func(r *http.Request) {
			req = r
			startTime = time.Now()
			t.log(transfer.ID, fmt.Sprintf(`START %s "%s"`, req.Method, req.URL.String()))
		}
		t.HTTPRequestDone = func(r *http.Response, err error) {
			doneTime = time.Now()
			var statusCode int
			var errorStr string
			if r != nil {
				statusCode = r.StatusCode
			}
			if err != nil {
				errorStr = fmt.Sprintf(" | error=%s", err)
			}
			t.log(transfer.ID, fmt.Sprintf(`DONE  %s "%s" | %d | %s%s`, req.Method, req.URL.String(), statusCode, doneTime.Sub(startTime).String(), errorStr))
		}
		t.TransferDone = func(statusCode int, bodyBytes int64, err error) {
			var errorStr string
			if err != nil {
				errorStr = fmt.Sprintf(" | error=%s", err)
			}
			var elapsed time.Duration
			if !doneTime.IsZero() {
				elapsed = time.Since(doneTime)
			}
			t.log(transfer.ID, fmt.Sprintf(`BODY  %s "%s" | %d | %dB | %s%s`, transfer.Method, transfer.URL, statusCode, bodyBytes, elapsed.String(), errorStr))
		}
		return ctx, &t.ClientTrace
	}
}

func (t *logTrace) log(transferID string, a ...any) {
	a = append([]any{fmt.Sprintf("TRANSFER[%s]", transferID)}, a...)
	t.wr.lock.Lock()
	defer t.wr.lock.Unlock()
	_, _ = fmt.Fprintln(t.wr.wr, a...)
}
