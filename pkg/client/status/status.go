// Package status classifies HTTP status codes.
//
// All functions are pure, a code belongs to exactly one Class.
package status

// Class is a band of HTTP status codes.
type Class int

const (
	Unknown Class = iota
	Informational
	Successful
	Redirection
	ClientError
	ServerError
)

func (c Class) String() string {
	switch c {
	case Informational:
		return "informational"
	case Successful:
		return "successful"
	case Redirection:
		return "redirection"
	case ClientError:
		return "client error"
	case ServerError:
		return "server error"
	default:
		return "unknown"
	}
}

// ClassOf returns the band of the code, Unknown for codes outside [100, 600), for example 0 if no response was received.
func ClassOf(code int) Class {
	switch {
	case IsInformational(code):
		return Informational
	case IsSuccessful(code):
		return Successful
	case IsRedirection(code):
		return Redirection
	case IsClientError(code):
		return ClientError
	case IsServerError(code):
		return ServerError
	default:
		return Unknown
	}
}

func IsInformational(code int) bool {
	return code >= 100 && code < 200
}

func IsSuccessful(code int) bool {
	return code >= 200 && code < 300
}

func IsRedirection(code int) bool {
	return code >= 300 && code < 400
}

func IsClientError(code int) bool {
	return code >= 400 && code < 500
}

func IsServerError(code int) bool {
	return code >= 500 && code < 600
}

// IsOk returns true for 200 OK.
func IsOk(code int) bool {
	return code == 200
}

// IsForbidden returns true for 403 Forbidden.
func IsForbidden(code int) bool {
	return code == 403
}

// IsNotFound returns true for 404 Not Found.
func IsNotFound(code int) bool {
	return code == 404
}
