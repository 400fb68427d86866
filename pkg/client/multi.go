package client

import (
	"context"
	"errors"

	"golang.org/x/sync/semaphore"
)

// performFn runs one transfer to a terminal state.
type performFn func(ctx context.Context, t *transfer) *rawResult

// multi drives many transfers at once.
//
// Each added transfer runs in its own goroutine, the number of transfers in progress is limited by a semaphore.
// Terminal results are reported to the done channel, the caller collects them by the Perform and Wait methods:
//
//	for m.Perform() > 0 {
//		m.Wait()
//	}
type multi struct {
	ctx     context.Context
	sem     *semaphore.Weighted
	perform performFn
	done    chan *rawResult
	running int
	results map[string]*rawResult
}

func newMulti(ctx context.Context, limit int64, capacity int, perform performFn) *multi {
	return &multi{
		ctx:     ctx,
		sem:     semaphore.NewWeighted(limit),
		perform: perform,
		done:    make(chan *rawResult, capacity),
		results: make(map[string]*rawResult, capacity),
	}
}

// Add starts the transfer.
func (m *multi) Add(t *transfer) {
	m.running++
	go func() {
		// Limit number of concurrent transfers
		if err := m.sem.Acquire(m.ctx, 1); err != nil {
			// Ctx is done, the transfer has not been started
			m.done <- abortedResult(t, err)
			return
		}
		defer m.sem.Release(1)
		m.done <- m.perform(m.ctx, t)
	}()
}

// Perform collects already finished transfers, it doesn't block.
// It returns the number of transfers still in progress.
func (m *multi) Perform() int {
	for {
		select {
		case result := <-m.done:
			m.collect(result)
		default:
			return m.running
		}
	}
}

// Wait blocks until at least one transfer is finished.
func (m *multi) Wait() {
	if m.running == 0 {
		return
	}
	m.collect(<-m.done)
}

// Results returns terminal results of all transfers, it must be called when no transfer is in progress.
func (m *multi) Results() map[string]*rawResult {
	return m.results
}

func (m *multi) collect(result *rawResult) {
	m.results[result.id] = result
	m.running--
}

func abortedResult(t *transfer, err error) *rawResult {
	if errors.Is(err, context.DeadlineExceeded) {
		return &rawResult{
			id:              t.id,
			headersCaptured: t.options.header,
			bodyCaptured:    t.options.returnTransfer,
			err:             newTransportError(ErrorCodeOperationTimedOut, t.method.String(), t.url, errors.New("timeout before the transfer started")),
		}
	}
	return &rawResult{
		id:              t.id,
		headersCaptured: t.options.header,
		bodyCaptured:    t.options.returnTransfer,
		err:             newTransportError(ErrorCodeAbortedByCallback, t.method.String(), t.url, errors.New("canceled before the transfer started")),
	}
}
