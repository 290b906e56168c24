// Package pool caps the number of concurrently in-flight provider calls
// across the whole process. Under a request burst the semaphore makes
// submission block instead of letting goroutines and sockets grow without
// bound; the block is the backpressure signal.
package pool

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"golang.org/x/sync/semaphore"
)

// ErrShutdown is returned by Submit after Shutdown has begun.
var ErrShutdown = errors.New("pool: shut down")

// Config tunes a Pool. Zero values select the defaults.
type Config struct {
	// Size is the maximum number of tasks running at once.
	// Default: 4 x GOMAXPROCS (two providers per request, IO-bound work).
	Size int
}

// Pool is a fixed-capacity task runner, safe for concurrent use.
type Pool struct {
	sem  *semaphore.Weighted
	size int

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

func New(cfg Config) *Pool {
	size := cfg.Size
	if size <= 0 {
		size = 4 * runtime.GOMAXPROCS(0)
	}
	return &Pool{sem: semaphore.NewWeighted(int64(size)), size: size}
}

// Size returns the pool's concurrency ceiling.
func (p *Pool) Size() int { return p.size }

// Submit runs fn on the pool, blocking while capacity is exhausted.
// It returns once fn is scheduled, or with ctx.Err() if the caller gives
// up waiting, or ErrShutdown once the pool is draining.
func (p *Pool) Submit(ctx context.Context, fn func(context.Context)) error {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return err
	}

	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.sem.Release(1)
		return ErrShutdown
	}
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		defer p.sem.Release(1)
		fn(ctx)
	}()
	return nil
}

// Shutdown rejects new submissions and drains in-flight tasks. It returns
// early with ctx.Err() when the context expires first; tasks keep running
// to completion regardless. Safe to call more than once.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Future is the pending result of a task submitted with Submit[T].
type Future[T any] struct {
	done chan struct{}
	val  T
	err  error
}

// Wait blocks until the task finishes or ctx is done.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

// Submit schedules fn on p and returns a Future for its result.
// Generic functions cannot be methods, hence the package-level form.
func Submit[T any](ctx context.Context, p *Pool, fn func(context.Context) (T, error)) (*Future[T], error) {
	f := &Future[T]{done: make(chan struct{})}
	err := p.Submit(ctx, func(ctx context.Context) {
		f.val, f.err = fn(ctx)
		close(f.done)
	})
	if err != nil {
		return nil, err
	}
	return f, nil
}

// The process-wide pool. Provider fan-out shares one ceiling no matter how
// many orchestrators are constructed; lazy init keeps tests and callers
// that pass their own pool from paying for it.
var (
	defaultOnce sync.Once
	defaultPool *Pool
)

// Default returns the process-wide pool, creating it on first use.
func Default() *Pool {
	defaultOnce.Do(func() {
		defaultPool = New(Config{})
	})
	return defaultPool
}

// ShutdownDefault drains the process-wide pool. Call exactly once at
// process exit, after all orchestrators are done.
func ShutdownDefault(ctx context.Context) error {
	defaultOnce.Do(func() {
		defaultPool = New(Config{})
	})
	return defaultPool.Shutdown(ctx)
}
