package core

// run_limiter.go bounds how many detection runs execute at once.
//
// Each run holds a fully buffered upload plus its decoded table. When every
// slot is taken, new runs wait up to maxWait before failing with ErrTooManyUploads.
// WaitForDrain lets shutdown wait for in-flight runs.

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"golang.org/x/sync/semaphore"
)

// ErrTooManyUploads is returned when no run slot frees up within the wait time.
var ErrTooManyUploads = errors.New("too many uploads in progress, please try again later")

// DefaultMaxConcurrentRuns is the default limit for parallel detection runs.
const DefaultMaxConcurrentRuns = 4

// DefaultMaxWaitTime is how long to wait for a slot before rejecting.
const DefaultMaxWaitTime = 30 * time.Second

// RunLimiter is a weighted semaphore with occupancy tracking.
type RunLimiter struct {
	sem     *semaphore.Weighted
	max     int
	maxWait time.Duration
	active  atomic.Int64
}

// NewRunLimiter creates a limiter allowing maxConcurrent simultaneous runs.
func NewRunLimiter(maxConcurrent int, maxWait time.Duration) *RunLimiter {
	if maxConcurrent <= 0 {
		maxConcurrent = DefaultMaxConcurrentRuns
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWaitTime
	}
	return &RunLimiter{
		sem:     semaphore.NewWeighted(int64(maxConcurrent)),
		max:     maxConcurrent,
		maxWait: maxWait,
	}
}

// Acquire waits for a slot. It returns ErrTooManyUploads when maxWait elapses
// and ctx.Err() when ctx ends first. Callers must Release after success.
func (l *RunLimiter) Acquire(ctx context.Context) error {
	waitCtx, cancel := context.WithTimeout(ctx, l.maxWait)
	defer cancel()

	if err := l.sem.Acquire(waitCtx, 1); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return ErrTooManyUploads
	}
	l.active.Add(1)
	activeRuns.Inc()
	return nil
}

// TryAcquire takes a slot without blocking.
func (l *RunLimiter) TryAcquire() bool {
	if !l.sem.TryAcquire(1) {
		return false
	}
	l.active.Add(1)
	activeRuns.Inc()
	return true
}

// Release frees a slot taken by Acquire or TryAcquire.
func (l *RunLimiter) Release() {
	l.active.Add(-1)
	activeRuns.Dec()
	l.sem.Release(1)
}

// ActiveCount returns the number of runs holding a slot.
func (l *RunLimiter) ActiveCount() int {
	return int(l.active.Load())
}

// MaxConcurrent returns the slot count.
func (l *RunLimiter) MaxConcurrent() int {
	return l.max
}

// Available returns the number of free slots.
func (l *RunLimiter) Available() int {
	return l.max - l.ActiveCount()
}

// WaitForDrain blocks until no run holds a slot or ctx ends.
func (l *RunLimiter) WaitForDrain(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if l.ActiveCount() == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunLimiterStatus is a snapshot of limiter occupancy.
type RunLimiterStatus struct {
	Active        int `json:"active"`
	Available     int `json:"available"`
	MaxConcurrent int `json:"max_concurrent"`
}

// Status returns the current limiter state for monitoring.
func (l *RunLimiter) Status() RunLimiterStatus {
	active := l.ActiveCount()
	return RunLimiterStatus{
		Active:        active,
		Available:     l.max - active,
		MaxConcurrent: l.max,
	}
}
