package api

import "fmt"

// Error of the API client operation, it wraps the underlying error.
type Error struct {
	// Op is the operation, for example "add request".
	Op string
	// ID of the request.
	ID  string
	Err error
}

func (e *Error) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("unable to %s: %s", e.Op, e.Err)
	}
	return fmt.Sprintf(`unable to %s "%s": %s`, e.Op, e.ID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
