package workpool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_ReturnsResult(t *testing.T) {
	p := New(2, nil)
	v, err := Do(context.Background(), p, func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestDo_PropagatesError(t *testing.T) {
	p := New(1, nil)
	boom := errors.New("boom")
	_, err := Do(context.Background(), p, func(ctx context.Context) (string, error) {
		return "", boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestDo_BoundsConcurrency(t *testing.T) {
	p := New(2, nil)
	var running, peak int32

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = Do(context.Background(), p, func(ctx context.Context) (struct{}, error) {
				n := atomic.AddInt32(&running, 1)
				for {
					old := atomic.LoadInt32(&peak)
					if n <= old || atomic.CompareAndSwapInt32(&peak, old, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				atomic.AddInt32(&running, -1)
				return struct{}{}, nil
			})
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(2))
	assert.Equal(t, 2, p.Size())
}

func TestDo_CallerCancellationDoesNotStopWork(t *testing.T) {
	p := New(1, nil)
	ctx, cancel := context.WithCancel(context.Background())

	started := make(chan struct{})
	release := make(chan struct{})
	finished := make(chan error, 1)

	errCh := make(chan error, 1)
	go func() {
		_, err := Do(ctx, p, func(workCtx context.Context) (int, error) {
			close(started)
			<-release
			finished <- workCtx.Err()
			return 1, nil
		})
		errCh <- err
	}()

	<-started
	cancel()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("caller did not return after cancellation")
	}

	close(release)
	select {
	case err := <-finished:
		assert.NoError(t, err, "dispatched work must not observe caller cancellation")
	case <-time.After(2 * time.Second):
		t.Fatal("dispatched work did not finish")
	}
}

func TestDo_CancelledBeforeDispatch(t *testing.T) {
	p := New(1, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := Do(ctx, p, func(context.Context) (int, error) {
		called = true
		return 0, nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestDo_RecoversPanic(t *testing.T) {
	p := New(1, nil)
	_, err := Do(context.Background(), p, func(context.Context) (int, error) {
		panic("kaboom")
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "kaboom")

	// The slot must have been released.
	v, err := Do(context.Background(), p, func(context.Context) (int, error) { return 7, nil })
	require.NoError(t, err)
	assert.Equal(t, 7, v)
}
