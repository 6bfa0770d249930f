package uploads

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

func TestLimiter_AcquireRelease(t *testing.T) {
	l := NewLimiter(2, time.Second)
	ctx := context.Background()

	assert.Equal(t, 0, l.ActiveCount())
	assert.Equal(t, 2, l.Available())

	require.NoError(t, l.Acquire(ctx))
	require.NoError(t, l.Acquire(ctx))
	assert.Equal(t, 2, l.ActiveCount())
	assert.Equal(t, 0, l.Available())

	l.Release()
	assert.Equal(t, 1, l.ActiveCount())
	assert.Equal(t, 1, l.Available())

	l.Release()
	assert.Equal(t, 0, l.ActiveCount())
}

func TestLimiter_Defaults(t *testing.T) {
	l := NewLimiter(0, 0)
	assert.Equal(t, DefaultMaxConcurrent, l.MaxConcurrent())
	assert.Equal(t, DefaultMaxWait, l.maxWait)
}

func TestLimiter_TimesOutWhenFull(t *testing.T) {
	l := NewLimiter(1, 50*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, l.Acquire(ctx))
	defer l.Release()

	start := time.Now()
	err := l.Acquire(ctx)
	assert.ErrorIs(t, err, ErrTooManyUploads)
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)
}

func TestLimiter_ContextCancelled(t *testing.T) {
	l := NewLimiter(1, time.Minute)
	require.True(t, l.TryAcquire())
	defer l.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := l.Acquire(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 1, l.ActiveCount())
}

func TestLimiter_TryAcquire(t *testing.T) {
	l := NewLimiter(1, time.Second)
	assert.True(t, l.TryAcquire())
	assert.False(t, l.TryAcquire())
	l.Release()
	assert.True(t, l.TryAcquire())
	l.Release()
}

func TestLimiter_ConcurrentAccess(t *testing.T) {
	const maxConcurrent = 3
	l := NewLimiter(maxConcurrent, 5*time.Second)

	var (
		wg      sync.WaitGroup
		current atomic.Int64
		peak    atomic.Int64
	)
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := l.Do(context.Background(), func(context.Context) error {
				n := current.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(5 * time.Millisecond)
				current.Add(-1)
				return nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, peak.Load(), int64(maxConcurrent))
	assert.Equal(t, 0, l.ActiveCount())
}

func TestLimiter_DoPropagatesError(t *testing.T) {
	l := NewLimiter(1, time.Second)
	boom := errors.New("boom")

	err := l.Do(context.Background(), func(context.Context) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, l.Available())
}

func TestLimiter_OnWait(t *testing.T) {
	l := NewLimiter(1, time.Second)
	var observed int
	l.OnWait(func(time.Duration) { observed++ })

	require.NoError(t, l.Acquire(context.Background()))
	l.Release()
	assert.Equal(t, 1, observed)
}

func TestLimiter_AcquireWaitsForRelease(t *testing.T) {
	l := NewLimiter(1, time.Second)
	var waited time.Duration
	l.OnWait(func(d time.Duration) { waited = d })

	require.True(t, l.TryAcquire())
	go func() {
		time.Sleep(30 * time.Millisecond)
		l.Release()
	}()

	require.NoError(t, l.Acquire(context.Background()))
	defer l.Release()
	assert.GreaterOrEqual(t, waited, 20*time.Millisecond)
	assert.Equal(t, 1, l.ActiveCount())
}

func TestLimiter_WaitForDrain(t *testing.T) {
	l := NewLimiter(2, time.Second)
	require.NoError(t, l.WaitForDrain(context.Background()))

	require.True(t, l.TryAcquire())
	go func() {
		time.Sleep(20 * time.Millisecond)
		l.Release()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, l.WaitForDrain(ctx))
}

func TestLimiter_WaitForDrainTimeout(t *testing.T) {
	l := NewLimiter(1, time.Second)
	require.True(t, l.TryAcquire())
	defer l.Release()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, l.WaitForDrain(ctx), context.DeadlineExceeded)
}

func TestLimiter_Status(t *testing.T) {
	l := NewLimiter(3, time.Second)
	require.True(t, l.TryAcquire())
	defer l.Release()

	assert.Equal(t, Status{Active: 1, Available: 2, MaxConcurrent: 3}, l.Status())
}
