// Package worker bounds how many blocking extraction and transcode calls run
// at once across all requests.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	xlog "github.com/ytget/yt-bot/internal/log"
	"github.com/ytget/yt-bot/internal/metrics"
)

// Pool size limits
const (
	DefaultSize = 2
	MinSize     = 1
	MaxSize     = 10
)

// ErrClosed is returned by Run after Close.
var ErrClosed = errors.New("worker pool is closed")

// Pool is a bounded executor for blocking calls
type Pool struct {
	sem  *semaphore.Weighted
	size int

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	logger zerolog.Logger
}

// NewPool creates a pool with size slots, clamped to [MinSize, MaxSize]
func NewPool(size int) *Pool {
	size = ClampSize(size)
	return &Pool{
		sem:    semaphore.NewWeighted(int64(size)),
		size:   size,
		logger: xlog.WithComponent("worker"),
	}
}

// ClampSize clamps n into the allowed pool size range
func ClampSize(n int) int {
	return min(max(n, MinSize), MaxSize)
}

// Size returns the number of slots
func (p *Pool) Size() int {
	return p.size
}

// Run waits for a free slot and runs fn on it, returning its result. A canceled
// ctx aborts the wait for a slot; once fn has started Run waits for it to
// return. A panic in fn is returned as an error.
func Run[T any](ctx context.Context, p *Pool, fn func(context.Context) (T, error)) (result T, err error) {
	if !p.enter() {
		return result, ErrClosed
	}
	defer p.wg.Done()

	if err := p.sem.Acquire(ctx, 1); err != nil {
		return result, err
	}
	defer p.sem.Release(1)

	metrics.WorkerJobsInFlight.Inc()
	defer metrics.WorkerJobsInFlight.Dec()

	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().Interface("panic", r).Msg("worker job panicked")
			err = fmt.Errorf("worker job panicked: %v", r)
		}
	}()

	return fn(ctx)
}

// Do is Run for jobs without a result value
func Do(ctx context.Context, p *Pool, fn func(context.Context) error) error {
	_, err := Run(ctx, p, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, fn(ctx)
	})
	return err
}

func (p *Pool) enter() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return false
	}
	p.wg.Add(1)
	return true
}

// Close rejects new jobs and waits for running ones to finish or ctx to end
func (p *Pool) Close(ctx context.Context) error {
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
