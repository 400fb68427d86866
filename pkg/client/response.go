package client

import (
	"bytes"
	"errors"
	"time"

	"github.com/keboola/go-multiclient/pkg/client/header"
	"github.com/keboola/go-multiclient/pkg/client/status"
)

// Response is the result of the last executed transfer of a handle.
// It is immutable, the next execution of the handle creates a new Response.
//
// A transport error is not returned by the execution, it is stored in the Response,
// see IsError, ErrorNumber and ErrorMessage. Status code 0 with an error means that no response has been received.
type Response struct {
	id         string
	statusCode int
	headers    *header.Map
	body       []byte
	err        *TransportError
	info       Info
}

// Info contains details of the transfer.
type Info struct {
	// EffectiveURL is the url of the last request, after redirects.
	EffectiveURL string
	// ContentType of the last response.
	ContentType string
	StatusCode  int
	// Proto of the last response, for example "HTTP/1.1".
	Proto string
	// HeaderSize is the length of all received header blocks, including redirect responses.
	HeaderSize int
	// SizeUpload is the length of the request body.
	SizeUpload int64
	// SizeDownload is the number of body bytes read from the connection, before decoding.
	SizeDownload  int64
	RedirectCount int
	// StartTransferTime is the time from the start to the first received body byte, zero for an empty body.
	StartTransferTime time.Duration
	TotalTime         time.Duration
	// RemoteAddr of the last used connection.
	RemoteAddr string
}

// emptyResponse is returned for a handle which has not been executed yet.
func emptyResponse(id string) *Response {
	return &Response{id: id, headers: header.NewMap()}
}

// ID returns the identifier of the handle.
func (r *Response) ID() string {
	return r.id
}

// StatusCode returns the HTTP status code of the last response, 0 if no response has been received.
func (r *Response) StatusCode() int {
	return r.statusCode
}

// Headers returns a copy of the response headers.
// On HTTP/1.x connections of the DefaultTransport, keys and their order are kept as received.
// Otherwise, for example over HTTP2 or with a custom transport, keys are canonicalized and sorted.
func (r *Response) Headers() *header.Map {
	return r.headers.Clone()
}

// Header returns the header value, or the defaultValue if the header is not present.
// The key is case-sensitive.
func (r *Response) Header(key, defaultValue string) string {
	return r.headers.GetOr(key, defaultValue)
}

// HasBody returns false if no body has been captured, see OptReturnTransfer.
func (r *Response) HasBody() bool {
	return r.body != nil
}

// Body returns a copy of the body, or the defaultValue if no body has been captured.
func (r *Response) Body(defaultValue []byte) []byte {
	if r.body == nil {
		return defaultValue
	}
	return bytes.Clone(r.body)
}

// BodyString returns the body as a string, or the defaultValue if no body has been captured.
func (r *Response) BodyString(defaultValue string) string {
	if r.body == nil {
		return defaultValue
	}
	return string(r.body)
}

// JSON decodes the body to a generic value, the defaultValue is returned if there is no body or it is not a valid JSON.
func (r *Response) JSON(defaultValue any) any {
	if len(r.body) == 0 {
		return defaultValue
	}
	var out any
	if err := decodeJSON(r.body, &out); err != nil {
		return defaultValue
	}
	return out
}

// DecodeJSON decodes the body to the target.
func (r *Response) DecodeJSON(target any) error {
	if r.body == nil {
		return errors.New("cannot decode JSON body: no body captured")
	}
	return decodeJSON(r.body, target)
}

// IsJSON returns true if the Content-Type of the last response is "application/json" or "application/*+json".
func (r *Response) IsJSON() bool {
	return IsJSONContentType(r.info.ContentType)
}

// IsError returns true if a transport error occurred.
func (r *Response) IsError() bool {
	return r.err != nil
}

// ErrorNumber returns the code of the transport error, 0 if there is no error.
func (r *Response) ErrorNumber() ErrorCode {
	if r.err == nil {
		return ErrorCodeOK
	}
	return r.err.Code
}

// ErrorMessage returns the message of the transport error, an empty string if there is no error.
func (r *Response) ErrorMessage() string {
	if r.err == nil {
		return ""
	}
	return r.err.Message
}

// Err returns the transport error or nil.
func (r *Response) Err() error {
	if r.err == nil {
		return nil
	}
	return r.err
}

func (r *Response) Info() Info {
	return r.info
}

func (r *Response) IsInformational() bool {
	return status.IsInformational(r.statusCode)
}

func (r *Response) IsSuccessful() bool {
	return status.IsSuccessful(r.statusCode)
}

func (r *Response) IsRedirection() bool {
	return status.IsRedirection(r.statusCode)
}

func (r *Response) IsClientError() bool {
	return status.IsClientError(r.statusCode)
}

func (r *Response) IsServerError() bool {
	return status.IsServerError(r.statusCode)
}

func (r *Response) IsOk() bool {
	return status.IsOk(r.statusCode)
}

func (r *Response) IsForbidden() bool {
	return status.IsForbidden(r.statusCode)
}

func (r *Response) IsNotFound() bool {
	return status.IsNotFound(r.statusCode)
}
