package api

import (
	"strings"

	"github.com/keboola/go-multiclient/pkg/client"
)

// Request describes one request of a batch.
type Request struct {
	// ID is the unique identifier of the request in the batch.
	ID string
	// Method name, it is case-insensitive.
	Method string
	// Path relative to the base url.
	Path string
	Data map[string]any
	// Headers of the request, they overwrite the authentication headers.
	Headers map[string]string
	// RequiresAuthentication adds the authentication headers.
	RequiresAuthentication bool
}

// NewRequest creates a normalized Request.
func NewRequest(id, method, path string, data map[string]any, headers map[string]string, requiresAuthentication bool) Request {
	return Request{
		ID:                     id,
		Method:                 method,
		Path:                   path,
		Data:                   data,
		Headers:                headers,
		RequiresAuthentication: requiresAuthentication,
	}.normalize()
}

// normalize upper-cases the method and removes leading slashes from the path.
func (r Request) normalize() Request {
	r.Method = strings.ToUpper(r.Method)
	r.Path = strings.TrimLeft(r.Path, "/")
	return r
}

// Response of one request of a batch.
type Response struct {
	// Status is the HTTP status code, 0 if no response has been received.
	Status  int
	Headers map[string]string
	// Body is the JSON decoded body, nil if the Content-Type is not JSON or the body is not a JSON object.
	Body map[string]any
	// RawBody is the body as received.
	RawBody []byte
	// Err is the transport error, if any.
	Err error
}

func newResponse(res *client.Response) *Response {
	out := &Response{
		Status:  res.StatusCode(),
		Headers: res.Headers().ToMap(),
		RawBody: res.Body(nil),
		Err:     res.Err(),
	}
	if res.IsJSON() {
		if body, ok := res.JSON(nil).(map[string]any); ok {
			out.Body = body
		}
	}
	return out
}
