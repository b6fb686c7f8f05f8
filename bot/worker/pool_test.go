package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolRunsTasks(t *testing.T) {
	pool := New(4)

	var counter atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		require.NoError(t, pool.Submit(func() {
			defer wg.Done()
			counter.Add(1)
		}))
	}
	wg.Wait()

	assert.EqualValues(t, 32, counter.Load())
	require.NoError(t, pool.Shutdown(context.Background()))
}

func TestPoolBoundsConcurrency(t *testing.T) {
	pool := New(2)

	var current, peak atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		require.NoError(t, pool.Submit(func() {
			defer wg.Done()
			n := current.Add(1)
			for {
				p := peak.Load()
				if n <= p || peak.CompareAndSwap(p, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			current.Add(-1)
		}))
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int64(2))
	require.NoError(t, pool.Shutdown(context.Background()))
}

func TestSubmitAfterShutdown(t *testing.T) {
	pool := New(1)
	require.NoError(t, pool.Shutdown(context.Background()))

	assert.ErrorIs(t, pool.Submit(func() {}), ErrPoolClosed)
}

func TestShutdownWaitsForTasks(t *testing.T) {
	pool := New(1)

	var done atomic.Bool
	require.NoError(t, pool.Submit(func() {
		time.Sleep(20 * time.Millisecond)
		done.Store(true)
	}))

	require.NoError(t, pool.Shutdown(context.Background()))
	assert.True(t, done.Load())
}

func TestSubmitDuringShutdownDoesNotPanic(t *testing.T) {
	for i := 0; i < 50; i++ {
		pool := New(1)

		var wg sync.WaitGroup
		for j := 0; j < 4; j++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for k := 0; k < 20; k++ {
					if err := pool.Submit(func() {}); err != nil {
						return
					}
				}
			}()
		}

		require.NoError(t, pool.Shutdown(context.Background()))
		wg.Wait()
	}
}

func TestSubmitQueueFull(t *testing.T) {
	pool := New(1)
	gate := make(chan struct{})

	require.NoError(t, pool.Submit(func() { <-gate }))

	var err error
	for i := 0; i < 32; i++ {
		if err = pool.Submit(func() { <-gate }); err != nil {
			break
		}
	}
	assert.ErrorIs(t, err, ErrQueueFull)

	close(gate)
	require.NoError(t, pool.Shutdown(context.Background()))
}

func TestSizeFloor(t *testing.T) {
	pool := New(0)
	assert.Equal(t, 1, pool.Size())
	require.NoError(t, pool.Shutdown(context.Background()))
}
