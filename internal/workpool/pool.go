// Package workpool runs blocking calls on a bounded set of goroutines.
package workpool

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Pool bounds how many dispatched calls run at once.
type Pool struct {
	sem    *semaphore.Weighted
	size   int
	logger *zap.Logger
}

// New creates a pool allowing size concurrent calls. size <= 0 means 1.
func New(size int, logger *zap.Logger) *Pool {
	if size <= 0 {
		size = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pool{
		sem:    semaphore.NewWeighted(int64(size)),
		size:   size,
		logger: logger,
	}
}

// Size returns the concurrency limit.
func (p *Pool) Size() int { return p.size }

type result[T any] struct {
	val T
	err error
}

// Do runs fn on the pool and waits for its result.
//
// If ctx is cancelled after fn was dispatched, Do returns ctx.Err() at once.
// fn keeps running with a context detached from ctx's cancellation and its
// result is dropped.
func Do[T any](ctx context.Context, p *Pool, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return zero, err
	}

	done := make(chan result[T], 1)
	workCtx := context.WithoutCancel(ctx)

	go func() {
		defer p.sem.Release(1)
		defer func() {
			if r := recover(); r != nil {
				p.logger.Error("dispatched call panicked", zap.Any("panic", r))
				done <- result[T]{err: fmt.Errorf("dispatched call panicked: %v", r)}
			}
		}()

		v, err := fn(workCtx)
		done <- result[T]{val: v, err: err}
	}()

	select {
	case r := <-done:
		return r.val, r.err
	case <-ctx.Done():
		p.logger.Debug("caller gave up, dispatched call continues", zap.Error(ctx.Err()))
		return zero, ctx.Err()
	}
}
