// Package counter measures a response body while it is read by a transfer.
package counter

import (
	"errors"
	"io"
	"sync"
	"time"
)

// Stats of a read body.
type Stats struct {
	// Bytes read from the wrapped body.
	Bytes int64
	// FirstByteAt is zero if no byte has been read.
	FirstByteAt time.Time
	// Err is the first read error other than io.EOF, or the close error.
	Err error
}

// Body wraps a response body, Stats can be read concurrently with the reading.
// The done callback is called once, by the first Close.
type Body struct {
	wrapped  io.ReadCloser
	done     func(Stats)
	lock     sync.Mutex
	stats    Stats
	closed   bool
	closeErr error
}

func New(wrapped io.ReadCloser, done func(Stats)) *Body {
	return &Body{wrapped: wrapped, done: done}
}

func (b *Body) Stats() Stats {
	b.lock.Lock()
	defer b.lock.Unlock()
	return b.stats
}

func (b *Body) Read(p []byte) (int, error) {
	n, err := b.wrapped.Read(p)

	b.lock.Lock()
	defer b.lock.Unlock()
	if n > 0 && b.stats.FirstByteAt.IsZero() {
		b.stats.FirstByteAt = time.Now()
	}
	b.stats.Bytes += int64(n)
	if err != nil && !errors.Is(err, io.EOF) && b.stats.Err == nil {
		b.stats.Err = err
	}
	return n, err
}

func (b *Body) Close() error {
	b.lock.Lock()
	if b.closed {
		defer b.lock.Unlock()
		return b.closeErr
	}
	b.closed = true
	b.closeErr = b.wrapped.Close()
	if b.closeErr != nil && b.stats.Err == nil {
		b.stats.Err = b.closeErr
	}
	stats := b.stats
	b.lock.Unlock()

	if b.done != nil {
		b.done(stats)
	}
	return b.closeErr
}
