package client

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/url"
	"strings"
	"time"
)

// ErrClosed is returned by any operation on a closed client.
var ErrClosed = errors.New("client is closed")

// ErrExecuting is returned if handles are modified while a batch is executing.
var ErrExecuting = errors.New("client is executing a batch")

// ErrNoCurrentHandle is returned if no handle has been created or selected yet.
var ErrNoCurrentHandle = errors.New("no handle is selected")

// errTooManyRedirects is returned by the CheckRedirect function.
var errTooManyRedirects = errors.New("too many redirects")

// UnknownHandleError is returned if the handle identifier has never been created.
type UnknownHandleError struct {
	ID string
}

func (e *UnknownHandleError) Error() string {
	return fmt.Sprintf(`handle "%s" does not exist`, e.ID)
}

// ForeignHandleError is returned if the handle has been issued by another client.
type ForeignHandleError struct {
	ID string
}

func (e *ForeignHandleError) Error() string {
	return fmt.Sprintf(`handle "%s" belongs to another client`, e.ID)
}

// ErrorCode is a numeric code of a transport error, the codes are compatible with libcurl.
type ErrorCode int

const (
	ErrorCodeOK                     ErrorCode = 0
	ErrorCodeUnsupportedProtocol    ErrorCode = 1
	ErrorCodeURLMalformat           ErrorCode = 3
	ErrorCodeCouldNotResolveHost    ErrorCode = 6
	ErrorCodeCouldNotConnect        ErrorCode = 7
	ErrorCodeOperationTimedOut      ErrorCode = 28
	ErrorCodeSSLConnectError        ErrorCode = 35
	ErrorCodeAbortedByCallback      ErrorCode = 42
	ErrorCodeTooManyRedirects       ErrorCode = 47
	ErrorCodeGotNothing             ErrorCode = 52
	ErrorCodeSendError              ErrorCode = 55
	ErrorCodeRecvError              ErrorCode = 56
	ErrorCodePeerFailedVerification ErrorCode = 60
	ErrorCodeBadContentEncoding     ErrorCode = 61
)

var errorCodeNames = map[ErrorCode]string{ //nolint:gochecknoglobals
	ErrorCodeOK:                     "OK",
	ErrorCodeUnsupportedProtocol:    "UNSUPPORTED_PROTOCOL",
	ErrorCodeURLMalformat:           "URL_MALFORMAT",
	ErrorCodeCouldNotResolveHost:    "COULDNT_RESOLVE_HOST",
	ErrorCodeCouldNotConnect:        "COULDNT_CONNECT",
	ErrorCodeOperationTimedOut:      "OPERATION_TIMEDOUT",
	ErrorCodeSSLConnectError:        "SSL_CONNECT_ERROR",
	ErrorCodeAbortedByCallback:      "ABORTED_BY_CALLBACK",
	ErrorCodeTooManyRedirects:       "TOO_MANY_REDIRECTS",
	ErrorCodeGotNothing:             "GOT_NOTHING",
	ErrorCodeSendError:              "SEND_ERROR",
	ErrorCodeRecvError:              "RECV_ERROR",
	ErrorCodePeerFailedVerification: "PEER_FAILED_VERIFICATION",
	ErrorCodeBadContentEncoding:     "BAD_CONTENT_ENCODING",
}

func (c ErrorCode) String() string {
	if name, ok := errorCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("ErrorCode(%d)", int(c))
}

// TransportError is a network or protocol level failure of one transfer.
// It is never returned by the batch execution, it is stored in the Response of the handle.
type TransportError struct {
	Code    ErrorCode
	Message string
	err     error
}

func (e *TransportError) Error() string {
	return e.Message
}

func (e *TransportError) Unwrap() error {
	return e.err
}

func newTransportError(code ErrorCode, method, reqURL string, err error) *TransportError {
	return &TransportError{
		Code:    code,
		Message: fmt.Sprintf(`request %s "%s" failed: %s`, method, reqURL, err),
		err:     err,
	}
}

// handleSendError converts an error returned by the http.Client to a TransportError.
func handleSendError(ctx context.Context, startedAt time.Time, opts transferOptions, method, reqURL string, err error) *TransportError {
	// Unwrap url error, the method and the url are part of the message
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		reqURL = urlErr.URL
		err = urlErr.Err
	}

	var netErr net.Error
	var dnsErr *net.DNSError
	var opErr *net.OpError
	var tlsRecordErr tls.RecordHeaderError
	var certInvalidErr x509.CertificateInvalidError
	var unknownAuthorityErr x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	switch {
	case errors.Is(err, errTooManyRedirects):
		return newTransportError(ErrorCodeTooManyRedirects, method, reqURL, fmt.Errorf("maximum (%d) redirects followed", opts.maxRedirs))
	case errors.Is(err, context.Canceled) || errors.Is(ctx.Err(), context.Canceled):
		return newTransportError(ErrorCodeAbortedByCallback, method, reqURL, fmt.Errorf("canceled after %s", time.Since(startedAt)))
	case errors.Is(err, context.DeadlineExceeded):
		if deadline, ok := ctx.Deadline(); ok {
			return newTransportError(ErrorCodeOperationTimedOut, method, reqURL, fmt.Errorf("timeout after %s", deadline.Sub(startedAt)))
		}
		return newTransportError(ErrorCodeOperationTimedOut, method, reqURL, fmt.Errorf("timeout after %s", time.Since(startedAt)))
	case errors.As(err, &netErr) && netErr.Timeout():
		switch {
		case strings.Contains(err.Error(), "Client.Timeout exceeded"):
			return newTransportError(ErrorCodeOperationTimedOut, method, reqURL, fmt.Errorf("timeout after %s", opts.timeout))
		case errors.As(err, &opErr) && opErr.Op == "dial":
			return newTransportError(ErrorCodeOperationTimedOut, method, reqURL, fmt.Errorf("connection timeout after %s", time.Since(startedAt)))
		default:
			return newTransportError(ErrorCodeOperationTimedOut, method, reqURL, fmt.Errorf("timeout after %s", time.Since(startedAt)))
		}
	case errors.As(err, &dnsErr):
		return newTransportError(ErrorCodeCouldNotResolveHost, method, reqURL, err)
	case errors.As(err, &certInvalidErr), errors.As(err, &unknownAuthorityErr), errors.As(err, &hostnameErr):
		return newTransportError(ErrorCodePeerFailedVerification, method, reqURL, err)
	case errors.As(err, &tlsRecordErr):
		return newTransportError(ErrorCodeSSLConnectError, method, reqURL, err)
	case errors.As(err, &opErr) && opErr.Op == "dial":
		return newTransportError(ErrorCodeCouldNotConnect, method, reqURL, err)
	case strings.Contains(err.Error(), "unsupported protocol scheme"):
		return newTransportError(ErrorCodeUnsupportedProtocol, method, reqURL, err)
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return newTransportError(ErrorCodeGotNothing, method, reqURL, fmt.Errorf("empty reply from server: %w", err))
	case errors.As(err, &opErr) && opErr.Op == "write":
		return newTransportError(ErrorCodeSendError, method, reqURL, err)
	default:
		return newTransportError(ErrorCodeRecvError, method, reqURL, err)
	}
}
