// Package uploads bounds how many uploaded files are parsed at once.
//
// Parsing a large spreadsheet holds the whole workbook in memory, so the
// number of parses in flight is capped with a weighted semaphore. Callers
// that cannot get a slot within the configured wait receive ErrTooManyUploads.
package uploads

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrTooManyUploads is returned when all slots stay occupied for the whole
// wait. Clients should retry after a short delay.
var ErrTooManyUploads = errors.New("too many concurrent uploads, please try again later")

const (
	DefaultMaxConcurrent = 5
	DefaultMaxWait       = 30 * time.Second
)

// drainPollInterval is how often WaitForDrain re-checks the active count.
const drainPollInterval = 50 * time.Millisecond

// Limiter is a counting semaphore for upload parsing.
type Limiter struct {
	sem     *semaphore.Weighted
	max     int
	maxWait time.Duration
	active  atomic.Int64

	// onWait, when set, observes how long each successful acquire waited.
	onWait func(time.Duration)
}

// NewLimiter allows at most maxConcurrent parses at once. Non-positive
// arguments fall back to the defaults.
func NewLimiter(maxConcurrent int, maxWait time.Duration) *Limiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrent
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &Limiter{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		max:     maxConcurrent,
		maxWait: maxWait,
	}
}

// OnWait registers an observer for acquire wait times. Call before use.
func (l *Limiter) OnWait(fn func(time.Duration)) {
	l.onWait = fn
}

// Acquire takes a slot, waiting up to the configured maximum.
// It returns ErrTooManyUploads on timeout and ctx.Err() if ctx ends first.
// Every successful Acquire must be paired with Release.
func (l *Limiter) Acquire(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	if !l.TryAcquire() {
		waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
		defer cancel()

		if err := l.sem.Acquire(waitCtx, 1); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return ErrTooManyUploads
		}
		l.active.Add(1)
	}

	if l.onWait != nil {
		l.onWait(time.Since(start))
	}
	return nil
}

// TryAcquire takes a slot only if one is free right now.
func (l *Limiter) TryAcquire() bool {
	if !l.sem.TryAcquire(1) {
		return false
	}
	l.active.Add(1)
	return true
}

// Release returns a slot taken by Acquire or TryAcquire.
func (l *Limiter) Release() {
	l.active.Add(-1)
	l.sem.Release(1)
}

// Do runs fn while holding a slot.
func (l *Limiter) Do(ctx context.Context, fn func(context.Context) error) error {
	if err := l.Acquire(ctx); err != nil {
		return err
	}
	defer l.Release()
	return fn(ctx)
}

// ActiveCount returns the number of parses in flight.
func (l *Limiter) ActiveCount() int {
	return int(l.active.Load())
}

// MaxConcurrent returns the slot count.
func (l *Limiter) MaxConcurrent() int {
	return l.max
}

// Available returns the number of free slots.
func (l *Limiter) Available() int {
	return l.max - l.ActiveCount()
}

// WaitForDrain blocks until no parse is in flight or ctx ends.
// Used during graceful shutdown.
func (l *Limiter) WaitForDrain(ctx context.Context) error {
	if l.ActiveCount() == 0 {
		return nil
	}

	ticker := time.NewTicker(drainPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if l.ActiveCount() == 0 {
				return nil
			}
		}
	}
}

// Status is a point-in-time view of the limiter, served by /healthz.
type Status struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"maxConcurrent"`
}

// Status returns the current limiter state.
func (l *Limiter) Status() Status {
	return Status{
		Active:        l.ActiveCount(),
		Available:     l.Available(),
		MaxConcurrent: l.MaxConcurrent(),
	}
}
