// Package trace extends the httptrace.ClientTrace and adds additional transfer hooks.
// A custom ClientTrace definition can be registered in the client.Config by the AndTrace method.
package trace

import (
	"context"
	"net/http"
	"net/http/httptrace"
	"reflect"
)

// Transfer describes one transfer of a batch, a new ClientTrace is created for each transfer.
type Transfer struct {
	// ID is the caller-chosen identifier of the handle.
	ID string
	// Method is the HTTP method, for example "GET".
	Method string
	// URL is the resolved request URL.
	URL string
}

// Factory creates ClientTrace hooks for a transfer.
type Factory func(ctx context.Context, transfer Transfer) (context.Context, *ClientTrace)

// ClientTrace is a set of hooks to run at various stages of a transfer.
type ClientTrace struct {
	httptrace.ClientTrace // native, low level trace
	// HTTPRequestStart is called when the request begins. It includes redirects.
	HTTPRequestStart func(request *http.Request)
	// HTTPRequestDone is called when the response headers are received. It includes redirects.
	HTTPRequestDone func(response *http.Response, err error)
	// TransferDone is called when the transfer is terminal: the body is buffered or a transport error occurred.
	TransferDone func(statusCode int, bodyBytes int64, err error)
}

// Compose modifies t such that it respects the previously-registered hooks in old.
// Copy of httptrace.compose.
func (t *ClientTrace) Compose(old *ClientTrace) {
	if old == nil {
		return
	}
	tv := reflect.ValueOf(t).Elem()
	ov := reflect.ValueOf(old).Elem()
	compose(tv, ov)
}

func compose(tv, ov reflect.Value) {
	structType := tv.Type()
	for i := 0; i < structType.NumField(); i++ {
		tf := tv.Field(i)
		of := ov.Field(i)

		// Embedded native trace
		if tf.Kind() == reflect.Struct {
			compose(tf, of)
			continue
		}

		hookType := tf.Type()
		if hookType.Kind() != reflect.Func {
			continue
		}
		if of.IsNil() {
			continue
		}
		if tf.IsNil() {
			tf.Set(of)
			continue
		}

		// Make a copy of tf for tf to call. (Otherwise it
		// creates a recursive call cycle and stack overflows)
		tfCopy := reflect.ValueOf(tf.Interface())

		// We need to call both tf and of in some order.
		newFunc := reflect.MakeFunc(hookType, func(args []reflect.Value) []reflect.Value {
			of.Call(args)
			return tfCopy.Call(args)
		})
		tf.Set(newFunc)
	}
}

// ComposeFactories returns a Factory calling both factories, hooks of the first one are called first.
func ComposeFactories(first, second Factory) Factory {
	switch {
	case first == nil:
		return second
	case second == nil:
		return first
	}
	return func(ctx context.Context, transfer Transfer) (context.Context, *ClientTrace) {
		ctx, firstTrace := first(ctx, transfer)
		ctx, secondTrace := second(ctx, transfer)
		switch {
		case firstTrace == nil:
			return ctx, secondTrace
		case secondTrace == nil:
			return ctx, firstTrace
		}
		secondTrace.Compose(firstTrace)
		return ctx, secondTrace
	}
}
