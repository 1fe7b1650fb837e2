package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/clinicfinder/backend/internal/infrastructure/observability"
)

// TaskRunner runs background work detached from the request that started it.
// Failures are logged and published on Errors; they never reach the caller.
type TaskRunner struct {
	mu     sync.Mutex
	wg     sync.WaitGroup
	errs   chan error
	closed bool
}

// NewTaskRunner creates a runner whose error channel holds up to buffer
// failures. Further failures are dropped once the buffer is full.
func NewTaskRunner(buffer int) *TaskRunner {
	if buffer < 1 {
		buffer = 1
	}
	return &TaskRunner{errs: make(chan error, buffer)}
}

// Go starts fn on its own goroutine. fn receives a context that keeps ctx's
// values but is not cancelled when ctx is.
func (r *TaskRunner) Go(ctx context.Context, name string, fn func(ctx context.Context) error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		observability.LoggerFromContext(ctx).Warn().Str("task", name).Msg("Task runner closed, dropping task")
		return
	}
	r.wg.Add(1)
	r.mu.Unlock()

	detached := context.WithoutCancel(ctx)
	go func() {
		defer r.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				r.report(detached, name, fmt.Errorf("panic: %v", p))
			}
		}()

		if err := fn(detached); err != nil {
			r.report(detached, name, err)
		}
	}()
}

func (r *TaskRunner) report(ctx context.Context, name string, err error) {
	observability.LoggerFromContext(ctx).Error().Err(err).Str("task", name).Msg("Background task failed")
	select {
	case r.errs <- fmt.Errorf("%s: %w", name, err):
	default:
	}
}

// Errors returns the channel failures are published on. It is closed by Close.
func (r *TaskRunner) Errors() <-chan error {
	return r.errs
}

// Wait blocks until every started task has returned
func (r *TaskRunner) Wait() {
	r.wg.Wait()
}

// Close stops accepting tasks, waits for running ones and closes Errors
func (r *TaskRunner) Close() {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return
	}
	r.closed = true
	r.mu.Unlock()

	r.wg.Wait()
	close(r.errs)
}
