// Package dispatch implements the server's scheduling model: a
// single main loop that consumes envelopes in arrival order, plus a
// bounded worker pool for the validator subprocess runs, which mustn't
// block the loop. Include expansion runs on the main loop.
//
// The bounded pool uses golang.org/x/sync's weighted semaphore rather
// than a hand-rolled buffered channel, since a real semaphore
// primitive also supports context cancellation for the "safe point"
// checks the request-cancellation model requires.
package dispatch

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Pool bounds how many off-loop tasks (validator runs) may run
// concurrently.
type Pool struct {
	sem *semaphore.Weighted
}

// NewPool creates a pool that allows at most n concurrent tasks.
func NewPool(n int64) *Pool {
	if n < 1 {
		n = 1
	}
	return &Pool{sem: semaphore.NewWeighted(n)}
}

// Run blocks until a slot is free (or ctx is cancelled) and then runs
// fn. Returns ctx.Err() without running fn if the wait was cancelled.
func (p *Pool) Run(ctx context.Context, fn func()) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer p.sem.Release(1)
	fn()
	return nil
}

// TryRun attempts to run fn immediately without blocking; returns
// false if the pool is already at capacity.
func (p *Pool) TryRun(fn func()) bool {
	if !p.sem.TryAcquire(1) {
		return false
	}
	defer p.sem.Release(1)
	fn()
	return true
}
