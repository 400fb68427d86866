package client

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"net/http/httptrace"
	"time"

	"golang.org/x/net/http2"
)

// DialTimeout specifies default maximum connection initialization time, if it is not set by the OptConnectTimeout.
const DialTimeout = 3 * time.Second

// KeepAlive specifies default interval between keep-alive probes.
const KeepAlive = 10 * time.Second

// TLSHandshakeTimeout specifies default timeout of TLS handshake.
const TLSHandshakeTimeout = 5 * time.Second

// MaxConnectionsPerHost specifies default maximum number of open connections to a host.
const MaxConnectionsPerHost = 32

type connectTimeoutCtxKey struct{}

// DefaultTransport default transport with reasonable limits.
// The connection phase is limited by the OptConnectTimeout of the transfer.
// Responses are not decompressed by the transport, see OptEncoding.
//
// HTTP/1.x connections are wrapped to record raw response header blocks, so header keys are kept as sent.
// The TLS handshake is made by the transport itself, HTTP2 is used if the server negotiates it.
func DefaultTransport() http.RoundTripper {
	dialer := Dialer()
	dial := func(ctx context.Context, network, addr string) (net.Conn, error) {
		if timeout, ok := ctx.Value(connectTimeoutCtxKey{}).(time.Duration); ok && timeout > 0 {
			d := *dialer
			d.Timeout = timeout
			return d.DialContext(ctx, network, addr)
		}
		return dialer.DialContext(ctx, network, addr)
	}
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dial(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			return newWireConn(conn), nil
		},
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			conn, err := dial(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			tlsConn, err := tlsHandshake(ctx, conn, addr)
			if err != nil {
				_ = conn.Close()
				return nil, err
			}
			// The transport detects HTTP2 only on the *tls.Conn
			if tlsConn.ConnectionState().NegotiatedProtocol == http2.NextProtoTLS {
				return tlsConn, nil
			}
			return newWireConn(tlsConn), nil
		},
		ForceAttemptHTTP2:   true, // HTTP2 is preferred.
		DisableCompression:  true,
		MaxConnsPerHost:     MaxConnectionsPerHost,
		MaxIdleConnsPerHost: MaxConnectionsPerHost,
	}
}

// tlsHandshake makes the client side of the TLS handshake, limited by the TLSHandshakeTimeout.
// The handshake is reported to the httptrace hooks, like the http.Transport does it.
func tlsHandshake(ctx context.Context, conn net.Conn, addr string) (*tls.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	tlsConn := tls.Client(conn, &tls.Config{
		ServerName: host,
		NextProtos: []string{http2.NextProtoTLS, "http/1.1"},
		MinVersion: tls.VersionTLS12,
	})

	hooks := httptrace.ContextClientTrace(ctx)
	if hooks != nil && hooks.TLSHandshakeStart != nil {
		hooks.TLSHandshakeStart()
	}

	ctx, cancel := context.WithTimeout(ctx, TLSHandshakeTimeout)
	defer cancel()
	err = tlsConn.HandshakeContext(ctx)

	if hooks != nil && hooks.TLSHandshakeDone != nil {
		hooks.TLSHandshakeDone(tlsConn.ConnectionState(), err)
	}
	if err != nil {
		return nil, err
	}
	return tlsConn, nil
}

// HTTP2Transport forces HTTP2 protocol.
func HTTP2Transport() http.RoundTripper {
	dialer := Dialer()
	return &http2.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string, cfg *tls.Config) (net.Conn, error) {
			d := &tls.Dialer{NetDialer: dialer, Config: cfg}
			if timeout, ok := ctx.Value(connectTimeoutCtxKey{}).(time.Duration); ok && timeout > 0 {
				netDialer := *dialer
				netDialer.Timeout = timeout
				d.NetDialer = &netDialer
			}
			return d.DialContext(ctx, network, addr)
		},
		DisableCompression: true,
		ReadIdleTimeout:    3 * time.Second,
		PingTimeout:        3 * time.Second,
		WriteByteTimeout:   3 * time.Second,
	}
}

// Dialer - default dialer.
func Dialer() *net.Dialer {
	return &net.Dialer{
		Timeout:   DialTimeout,
		KeepAlive: KeepAlive,
	}
}

func withConnectTimeout(ctx context.Context, timeout time.Duration) context.Context {
	return context.WithValue(ctx, connectTimeoutCtxKey{}, timeout)
}
