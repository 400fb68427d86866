package otel

import (
	"context"
	"crypto/tls"
	"net/http/httptrace"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	otelTrace "go.opentelemetry.io/otel/trace"

	"github.com/keboola/go-multiclient/pkg/client/trace"
)

// lowLevelSpans reports one span per a pair of httptrace hooks, the parent is the current HTTP request span.
// The "otelhttptrace" pkg from the opentelemetry-contrib module does not end spans:
// https://github.com/open-telemetry/opentelemetry-go-contrib/issues/399
type lowLevelSpans struct {
	tracer       otelTrace.Tracer
	parent       func() context.Context
	dns          otelTrace.Span
	getConn      otelTrace.Span
	connect      otelTrace.Span
	tlsHandshake otelTrace.Span
	headers      otelTrace.Span
	send         otelTrace.Span
}

func (s *lowLevelSpans) start(name string, attrs ...attribute.KeyValue) otelTrace.Span {
	_, span := s.tracer.Start(s.parent(), name, otelTrace.WithSpanKind(otelTrace.SpanKindClient), otelTrace.WithAttributes(attrs...))
	return span
}

func (s *lowLevelSpans) register(tc *trace.ClientTrace) {
	tc.DNSStart = func(info httptrace.DNSStartInfo) {
		s.dns = s.start(httpDNSSpanName, semconv.NetHostName(info.Host))
	}
	tc.DNSDone = func(info httptrace.DNSDoneInfo) {
		addrs := make([]string, 0, len(info.Addrs))
		for _, addr := range info.Addrs {
			addrs = append(addrs, addr.String())
		}
		endSpan(&s.dns, info.Err, attrDNSAddresses.String(strings.Join(addrs, ";")))
	}

	tc.GetConn = func(host string) {
		s.getConn = s.start(httpGetConnSpanName, semconv.NetHostName(host))
	}
	tc.GotConn = func(info httptrace.GotConnInfo) {
		attrs := []attribute.KeyValue{attrConnectionReused.Bool(info.Reused), attrConnectionWasIdle.Bool(info.WasIdle)}
		if info.Conn != nil {
			attrs = append(attrs, attrRemoteAddr.String(info.Conn.RemoteAddr().String()), attrLocalAddr.String(info.Conn.LocalAddr().String()))
		}
		if info.WasIdle {
			attrs = append(attrs, attrConnectionIdleTime.String(info.IdleTime.String()))
		}
		endSpan(&s.getConn, nil, attrs...)
	}

	tc.ConnectStart = func(network, addr string) {
		s.connect = s.start(httpConnectSpanName, attrRemoteAddr.String(addr), attrConnectionStartNetwork.String(network))
	}
	tc.ConnectDone = func(network, addr string, err error) {
		endSpan(&s.connect, err, attrConnectionDoneAddr.String(addr), attrConnectionDoneNetwork.String(network))
	}

	// Not reported if the http2.Transport is used directly, without upgrade from http.Transport.
	tc.TLSHandshakeStart = func() {
		s.tlsHandshake = s.start(httpTLSHandshakeSpanName)
	}
	tc.TLSHandshakeDone = func(_ tls.ConnectionState, err error) {
		endSpan(&s.tlsHandshake, err)
	}

	// The headers span starts with the first header field, the send span follows it.
	tc.WroteHeaderField = func(_ string, _ []string) {
		if s.headers == nil {
			s.headers = s.start(httpHeadersSpanName)
		}
	}
	tc.WroteHeaders = func() {
		endSpan(&s.headers, nil)
		s.send = s.start(httpSendSpanName)
	}
	tc.WroteRequest = func(info httptrace.WroteRequestInfo) {
		endSpan(&s.send, info.Err)
	}
}

// endSpan sets the attributes, records the error and ends the span, if any.
func endSpan(span *otelTrace.Span, err error, attrs ...attribute.KeyValue) {
	if *span == nil {
		return
	}
	(*span).SetAttributes(attrs...)
	if err != nil {
		(*span).RecordError(err)
		(*span).SetStatus(codes.Error, err.Error())
	}
	(*span).End()
	*span = nil
}
