// Package otel provides OpenTelemetry tracing and metrics for transfers of the multi client.
//
// The package provides 3 types of telemetry:
// 1. [otelhttptrace] like low-level telemetry:
//   - It provides spans for HTTP request parts, for example: "http.dns", "http.tls", "http.getconn".
//   - Span names start with "http".
//   - Metrics are not provided.
//
// 2. Request telemetry
//   - It provides span and metrics for every sent HTTP request, including redirects.
//   - Span name is "http.request".
//   - Metrics names start with "keboola.go.http." (httpMeterPrefix const).
//
// 3. Transfer telemetry
//   - It provides span and metrics for each transfer of a batch.
//   - Main span "keboola.go.client.transfer" wraps all redirects and the body download together.
//   - Metrics names start with "keboola.go.client." (transferMeterPrefix const).
//
// [otelhttptrace]: https://pkg.go.dev/go.opentelemetry.io/contrib/instrumentation/net/http/httptrace/otelhttptrace
package otel

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelMetric "go.opentelemetry.io/otel/metric"
	metricNoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	otelTrace "go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/keboola/go-multiclient/pkg/client/trace"
)

const (
	traceAppName     = "github.com/keboola/go-multiclient"
	attrResourceName = attribute.Key("resource.name")
	// Low-level tracing, for each redirect.
	httpSpanPrefix             = "http."
	httpRequestSpanName        = httpSpanPrefix + "request"
	httpDNSSpanName            = httpSpanPrefix + "dns"
	httpGetConnSpanName        = httpSpanPrefix + "getconn"
	httpConnectSpanName        = httpSpanPrefix + "connect"
	httpTLSHandshakeSpanName   = httpSpanPrefix + "tls"
	httpHeadersSpanName        = httpSpanPrefix + "headers"
	httpSendSpanName           = httpSpanPrefix + "send"
	httpReceiveSpanName        = httpSpanPrefix + "receive"
	attrDNSAddresses           = attribute.Key("http.dns.addrs")
	attrRemoteAddr             = attribute.Key("http.remote")
	attrLocalAddr              = attribute.Key("http.local")
	attrConnectionReused       = attribute.Key("http.conn.reused")
	attrConnectionWasIdle      = attribute.Key("http.conn.wasidle")
	attrConnectionIdleTime     = attribute.Key("http.conn.idletime")
	attrConnectionStartNetwork = attribute.Key("http.conn.start.network")
	attrConnectionDoneNetwork  = attribute.Key("http.conn.done.network")
	attrConnectionDoneAddr     = attribute.Key("http.conn.done.addr")
	// High-level tracing.
	transferSpanName = "keboola.go.client.transfer"
	// Extra attributes for DataDog.
	attrSpanKind            = attribute.Key("span.kind")
	attrSpanKindValueClient = "client"
	attrSpanType            = attribute.Key("span.type")
	attrSpanTypeValueHTTP   = "http"
)

// NewTrace creates a trace.Factory which reports spans and metrics of each transfer.
func NewTrace(tracerProvider otelTrace.TracerProvider, meterProvider otelMetric.MeterProvider, opts ...Option) trace.Factory {
	cfg := newConfig(opts)
	if tracerProvider == nil {
		tracerProvider = noop.NewTracerProvider()
	}
	if meterProvider == nil {
		meterProvider = metricNoop.NewMeterProvider()
	}
	tracer := tracerProvider.Tracer(traceAppName)
	meters := newMeters(meterProvider.Meter(traceAppName), cfg)

	return func(rootCtx context.Context, transfer trace.Transfer) (context.Context, *trace.ClientTrace) {
		tc := &trace.ClientTrace{}
		attrs := newAttributes(cfg, transfer)

		// Create root span and metrics, it may contain multiple HTTP requests (redirects).
		var httpRequestSpan otelTrace.Span
		var receiveSpan otelTrace.Span
		{
			var rootSpan otelTrace.Span

			// Metrics
			startTime := time.Now()
			meters.transfer.inFlight.Add(rootCtx, 1, otelMetric.WithAttributes(attrs.transfer...))

			// Tracing
			rootCtx, rootSpan = tracer.Start(
				rootCtx,
				transferSpanName,
				otelTrace.WithSpanKind(otelTrace.SpanKindClient),
				otelTrace.WithAttributes(
					attrResourceName.String(transfer.ID),
					attrSpanKind.String(attrSpanKindValueClient),
					attrSpanType.String(attrSpanTypeValueHTTP),
				),
				otelTrace.WithAttributes(attrs.transfer...),
			)
			tc.TransferDone = func(statusCode int, bodyBytes int64, err error) {
				elapsedTime := float64(time.Since(startTime)) / float64(time.Millisecond)

				// Metrics
				meterAttrs := append([]attribute.KeyValue{}, attrs.transfer...)
				meterAttrs = append(meterAttrs, semconv.HTTPStatusCodeKey.Int(statusCode), attrTransferSuccess.Bool(err == nil))
				meters.transfer.inFlight.Add(rootCtx, -1, otelMetric.WithAttributes(attrs.transfer...)) // same attributes/dimensions as above (+1)!
				meters.transfer.duration.Record(rootCtx, elapsedTime, otelMetric.WithAttributes(meterAttrs...))
				if meters.body.bytes != nil {
					meters.body.bytes.Add(rootCtx, bodyBytes, otelMetric.WithAttributes(attrs.transfer...))
				}

				// Tracing
				endSpan(&receiveSpan, nil)
				endSpan(&httpRequestSpan, nil)
				if rootSpan != nil {
					// Add attributes from the last response
					rootSpan.SetAttributes(semconv.HTTPStatusCodeKey.Int(statusCode), attrTransferBytes.Int64(bodyBytes))
					rootSpan.SetAttributes(attrs.httpResponseExtra...)
					if err == nil {
						rootSpan.End()
					} else {
						rootSpan.RecordError(err)
						rootSpan.SetStatus(codes.Error, err.Error())
						rootSpan.End(otelTrace.WithStackTrace(true))
					}
					rootSpan = nil
				}
			}
		}

		// Handle HTTP requests
		var httpCtx context.Context
		{
			var httpRequestStart time.Time
			tc.HTTPRequestStart = func(req *http.Request) {
				// End span of the previous redirect
				endSpan(&receiveSpan, nil)
				endSpan(&httpRequestSpan, nil)

				// Create HTTP request span
				httpCtx, httpRequestSpan = tracer.Start(
					rootCtx,
					httpRequestSpanName,
					otelTrace.WithSpanKind(otelTrace.SpanKindClient),
					otelTrace.WithAttributes(
						attrSpanKind.String(attrSpanKindValueClient),
						attrSpanType.String(attrSpanTypeValueHTTP),
					),
				)

				// Inject trace headers
				if cfg.propagators != nil {
					cfg.propagators.Inject(httpCtx, propagation.HeaderCarrier(req.Header))
				}

				// Attrs
				httpRequestStart = time.Now()
				attrs.SetFromRequest(req)
				httpRequestSpan.SetAttributes(attrResourceName.String(req.URL.Path))

				// Metrics
				meters.http.inFlight.Add(rootCtx, 1, otelMetric.WithAttributes(attrs.httpRequest...))

				// Tracing
				httpRequestSpan.SetAttributes(attrs.httpRequest...)
				httpRequestSpan.SetAttributes(attrs.httpRequestExtra...)
			}
			tc.GotFirstResponseByte = func() {
				if httpCtx != nil {
					_, receiveSpan = tracer.Start(
						httpCtx,
						httpReceiveSpanName,
						otelTrace.WithSpanKind(otelTrace.SpanKindClient),
					)
				}
			}
			tc.HTTPRequestDone = func(res *http.Response, err error) {
				elapsedTime := float64(time.Since(httpRequestStart)) / float64(time.Millisecond)
				attrs.SetFromResponse(res, err)

				// Metrics
				meters.http.inFlight.Add(
					rootCtx,
					-1,
					otelMetric.WithAttributes(attrs.httpRequest...), // same attributes/dimensions as in HTTPRequestStart!
				)
				meters.http.duration.Record(
					rootCtx,
					elapsedTime,
					otelMetric.WithAttributes(append(append([]attribute.KeyValue{}, attrs.httpRequest...), attrs.httpResponse...)...),
				)

				// Tracing, the span of the last request is ended when the body is received
				if httpRequestSpan != nil {
					httpRequestSpan.SetAttributes(attrs.httpResponse...)
					httpRequestSpan.SetAttributes(attrs.httpResponseExtra...)
					switch {
					case err != nil:
						httpRequestSpan.RecordError(err)
						httpRequestSpan.SetStatus(codes.Error, err.Error())
					case res != nil && res.StatusCode >= http.StatusBadRequest:
						httpErr := fmt.Errorf(`HTTP status code: %d %s`, res.StatusCode, http.StatusText(res.StatusCode))
						httpRequestSpan.RecordError(httpErr)
						httpRequestSpan.SetStatus(codes.Error, httpErr.Error())
					}
				}
				if err != nil {
					endSpan(&receiveSpan, err)
				}
			}
		}

		// Register low-level tracing
		spans := &lowLevelSpans{tracer: tracer, parent: func() context.Context {
			if httpCtx != nil {
				return httpCtx
			}
			return rootCtx
		}}
		spans.register(tc)

		return rootCtx, tc
	}
}
