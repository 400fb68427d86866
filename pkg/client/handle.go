package client

import "fmt"

// Handle is a typed reference to one transfer slot of a registry.
// It is valid only within the registry that issued it.
type Handle struct {
	id    string
	owner uint64
}

// ID returns the caller-chosen identifier of the handle.
func (h Handle) ID() string {
	return h.id
}

func (h Handle) IsZero() bool {
	return h == Handle{}
}

func (h Handle) String() string {
	return fmt.Sprintf("handle[%s]", h.id)
}
