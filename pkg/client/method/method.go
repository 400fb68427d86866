// Package method defines the closed set of HTTP methods supported by request builders.
//
// Text is converted to a Method only by Parse, unknown values are rejected there
// with an InvalidMethodError, so a Method value is always one of the nine variants.
package method

import (
	"fmt"
	"net/http"
	"strings"
)

// Method is one of the supported HTTP methods.
type Method int

const (
	Connect Method = iota + 1
	Delete
	Get
	Head
	Options
	Patch
	Post
	Put
	Trace
)

var names = map[Method]string{ //nolint:gochecknoglobals
	Connect: http.MethodConnect,
	Delete:  http.MethodDelete,
	Get:     http.MethodGet,
	Head:    http.MethodHead,
	Options: http.MethodOptions,
	Patch:   http.MethodPatch,
	Post:    http.MethodPost,
	Put:     http.MethodPut,
	Trace:   http.MethodTrace,
}

// InvalidMethodError is returned if a method name is not one of the supported methods.
type InvalidMethodError struct {
	Method string
}

func (e *InvalidMethodError) Error() string {
	return fmt.Sprintf(`invalid request method "%s"`, e.Method)
}

// All returns all supported methods in a stable order.
func All() []Method {
	return []Method{Connect, Delete, Get, Head, Options, Patch, Post, Put, Trace}
}

// Parse converts a method name to the Method, the name is case-insensitive.
func Parse(name string) (Method, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	for _, m := range All() {
		if names[m] == upper {
			return m, nil
		}
	}
	return 0, &InvalidMethodError{Method: name}
}

// MustParse is like Parse, but it panics on an invalid method name.
func MustParse(name string) Method {
	m, err := Parse(name)
	if err != nil {
		panic(err)
	}
	return m
}

// IsValid returns false for the zero value and for values outside the enum.
func (m Method) IsValid() bool {
	_, ok := names[m]
	return ok
}

// String returns the method name as it is sent on the wire, e.g. "GET".
func (m Method) String() string {
	if v, ok := names[m]; ok {
		return v
	}
	return fmt.Sprintf("Method(%d)", int(m))
}

// DataInQuery returns true if request data are sent as the URL query instead of the body.
// Only GET sends data in the query.
func (m Method) DataInQuery() bool {
	return m == Get
}
