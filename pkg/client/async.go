package client

import (
	"context"

	"github.com/hashicorp/go-multierror"
)

// Async runs requests of multiple handles concurrently.
//
//	c := client.NewAsync(client.NewConfig().WithBaseURL("https://example.com"))
//	defer c.Close()
//	_ = c.Create("a", "b")
//	a, _ := c.Use("a")
//	_ = a.Get("ping", nil)
//	b, _ := c.Use("b")
//	_ = b.Post("echo", map[string]any{"key": "value"}, true)
//	_ = c.Execute(ctx)
//	res, _ := c.Response("a")
type Async struct {
	*Registry
}

// NewAsync creates a client without any handle, see the Create method.
func NewAsync(cfg Config) *Async {
	return &Async{Registry: newRegistry(cfg)}
}

// Use makes the handle the current one and returns its Request.
func (c *Async) Use(id string) (*Request, error) {
	if err := c.Select(id); err != nil {
		return nil, err
	}
	return c.Request()
}

// Request returns the Request of the current handle.
func (c *Async) Request() (*Request, error) {
	h, err := c.Current()
	if err != nil {
		return nil, err
	}
	return newRequest(c.Registry, h), nil
}

// Execute performs all configured requests concurrently and waits until each of them is finished.
//
// Responses are stored in the creation order of handles and all handles are reset.
// Transport errors are not returned, they are stored in responses, see Err.
// If no handle is configured, Execute does nothing and the previous responses are kept.
//
// Cancellation of the ctx aborts all transfers in progress, Execute still waits until all of them are finished.
func (c *Async) Execute(ctx context.Context) error {
	transfers, err := c.begin()
	if err != nil {
		return err
	}
	if len(transfers) == 0 {
		c.finish(nil)
		return nil
	}

	transport := c.transport()
	traceFactory := c.config.traceFactory
	m := newMulti(ctx, c.config.maxConcurrency, len(transfers), func(ctx context.Context, t *transfer) *rawResult {
		return t.perform(ctx, transport, traceFactory)
	})
	for _, t := range transfers {
		m.Add(t)
	}
	for m.Perform() > 0 {
		m.Wait()
	}

	c.finish(m.Results())
	return nil
}

// Err returns transport errors of the last executed batch, if any.
// A single error is returned as is, multiple errors are wrapped by the *multierror.Error.
func (c *Async) Err() error {
	c.lock.Lock()
	defer c.lock.Unlock()

	var errs *multierror.Error
	for _, id := range c.lastBatch {
		if res := c.store.get(id); res.err != nil {
			errs = multierror.Append(errs, res.err)
		}
	}

	// If there is only one error, then unwrap multierror
	if errs != nil && len(errs.Errors) == 1 {
		return errs.Errors[0]
	}
	return errs.ErrorOrNil()
}
