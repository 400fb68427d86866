package client

import (
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
)

var registrySerial atomic.Uint64 //nolint:gochecknoglobals

// Registry owns the handles of a client, keyed by caller-chosen identifiers.
// Each handle has its pending RequestConfig and the last Response.
//
// Handles are released by the Close method, call it when the client is no longer needed.
type Registry struct {
	config    Config
	serial    uint64
	lock      sync.Mutex
	ids       []string // in creation order
	requests  map[string]*RequestConfig
	store     *store
	current   string
	lastBatch []string
	executing bool
	closed    bool
}

func newRegistry(cfg Config) *Registry {
	if cfg.transport == nil {
		panic(fmt.Errorf("config value is not initialized, use NewConfig"))
	}
	return &Registry{
		config:   cfg,
		serial:   registrySerial.Add(1),
		requests: make(map[string]*RequestConfig),
		store:    newStore(),
	}
}

// Config returns the configuration shared by all handles.
func (r *Registry) Config() Config {
	return r.config
}

// Create allocates one handle per identifier not already present.
// Default options and headers are applied to each new handle.
// The last identifier becomes the current one.
func (r *Registry) Create(ids ...string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if err := r.checkWritable(); err != nil {
		return err
	}
	for _, id := range ids {
		if id == "" {
			return errors.New("handle identifier cannot be empty")
		}
	}
	for _, id := range ids {
		if _, found := r.requests[id]; !found {
			r.ids = append(r.ids, id)
			r.requests[id] = r.config.newRequestConfig()
		}
		r.current = id
	}
	return nil
}

// Select makes the handle the current one.
func (r *Registry) Select(id string) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.closed {
		return ErrClosed
	}
	if _, found := r.requests[id]; !found {
		return &UnknownHandleError{ID: id}
	}
	r.current = id
	return nil
}

// Handle returns the typed handle of the identifier.
func (r *Registry) Handle(id string) (Handle, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.closed {
		return Handle{}, ErrClosed
	}
	if _, found := r.requests[id]; !found {
		return Handle{}, &UnknownHandleError{ID: id}
	}
	return Handle{id: id, owner: r.serial}, nil
}

// Current returns the current handle.
func (r *Registry) Current() (Handle, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.closed {
		return Handle{}, ErrClosed
	}
	if r.current == "" {
		return Handle{}, ErrNoCurrentHandle
	}
	return Handle{id: r.current, owner: r.serial}, nil
}

// IDs returns identifiers of all handles, in creation order.
func (r *Registry) IDs() []string {
	r.lock.Lock()
	defer r.lock.Unlock()
	return append([]string(nil), r.ids...)
}

// RequestConfig returns a copy of the pending configuration of the handle.
func (r *Registry) RequestConfig(h Handle) (*RequestConfig, error) {
	var out *RequestConfig
	err := r.configure(h, func(c *RequestConfig) error {
		out = c.clone()
		return nil
	})
	return out, err
}

// Reset clears the pending configuration of all handles, default options and headers are applied again.
// Handles and responses are kept.
func (r *Registry) Reset() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if err := r.checkWritable(); err != nil {
		return err
	}
	r.resetAll()
	return nil
}

// ResetCurrent is like Reset, but only for the current handle.
func (r *Registry) ResetCurrent() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if err := r.checkWritable(); err != nil {
		return err
	}
	if r.current == "" {
		return ErrNoCurrentHandle
	}
	r.requests[r.current] = r.config.newRequestConfig()
	return nil
}

// Response returns the last response of the handle.
// If the handle has not been executed yet, an empty Response is returned.
func (r *Registry) Response(id string) (*Response, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	if _, found := r.requests[id]; !found {
		return nil, &UnknownHandleError{ID: id}
	}
	return r.store.get(id), nil
}

// Responses returns the last response of each handle, in creation order.
func (r *Registry) Responses() ([]*Response, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.closed {
		return nil, ErrClosed
	}
	out := make([]*Response, 0, len(r.ids))
	for _, id := range r.ids {
		out = append(out, r.store.get(id))
	}
	return out, nil
}

// Close releases all handles, pending configurations and responses.
// Idle connections of the transport are closed.
// The method is idempotent, any other operation on a closed registry fails with ErrClosed.
func (r *Registry) Close() error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.closed {
		return nil
	}
	if r.executing {
		return ErrExecuting
	}
	r.closed = true
	r.ids = nil
	r.requests = nil
	r.current = ""
	r.lastBatch = nil
	r.store.clear()
	if t, ok := r.config.transport.(interface{ CloseIdleConnections() }); ok {
		t.CloseIdleConnections()
	}
	return nil
}

// Closed returns true if the Close method has been called.
func (r *Registry) Closed() bool {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.closed
}

// configure calls the fn with the pending configuration of the handle.
func (r *Registry) configure(h Handle, fn func(c *RequestConfig) error) error {
	r.lock.Lock()
	defer r.lock.Unlock()
	if err := r.checkWritable(); err != nil {
		return err
	}
	if h.owner != r.serial {
		return &ForeignHandleError{ID: h.id}
	}
	c, found := r.requests[h.id]
	if !found {
		return &UnknownHandleError{ID: h.id}
	}
	return fn(c)
}

// begin marks the registry as executing and returns the configured transfers, in creation order.
func (r *Registry) begin(only ...string) ([]*transfer, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if err := r.checkWritable(); err != nil {
		return nil, err
	}

	ids := r.ids
	if len(only) > 0 {
		ids = only
	}

	var out []*transfer
	for _, id := range ids {
		c, found := r.requests[id]
		if !found {
			return nil, &UnknownHandleError{ID: id}
		}
		if !c.Configured() {
			continue
		}
		t, err := newTransfer(id, c)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}

	r.executing = true
	return out, nil
}

// finish stores demultiplexed results in creation order and resets all handles.
func (r *Registry) finish(results map[string]*rawResult) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.executing = false
	if len(results) == 0 {
		return
	}
	r.lastBatch = r.lastBatch[:0]
	for _, id := range r.ids {
		if result, found := results[id]; found {
			r.store.set(result.demultiplex())
			r.lastBatch = append(r.lastBatch, id)
		}
	}
	r.resetAll()
}

func (r *Registry) resetAll() {
	for _, id := range r.ids {
		r.requests[id] = r.config.newRequestConfig()
	}
}

func (r *Registry) checkWritable() error {
	if r.closed {
		return ErrClosed
	}
	if r.executing {
		return ErrExecuting
	}
	return nil
}

func (r *Registry) transport() http.RoundTripper {
	return r.config.transport
}
