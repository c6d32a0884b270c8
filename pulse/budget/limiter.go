// Package budget enforces call budgets for external generation calls.
package budget

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/teranos/scribe/errors"
)

// DefaultWindow is the trailing interval over which admitted calls are counted
const DefaultWindow = 60 * time.Second

// Limiter enforces max calls per time window using sliding window algorithm
type Limiter struct {
	maxCalls  int
	window    time.Duration
	mu        sync.Mutex
	callTimes []time.Time // admission timestamps, oldest first
	clock     Clock
}

// NewLimiter creates a rate limiter with real time
func NewLimiter(maxCallsPerMinute int) *Limiter {
	return NewLimiterWithClock(maxCallsPerMinute, RealClock())
}

// NewLimiterWithClock creates a rate limiter with injectable clock (for testing)
func NewLimiterWithClock(maxCallsPerMinute int, clock Clock) *Limiter {
	return NewLimiterWithWindow(maxCallsPerMinute, DefaultWindow, clock)
}

// NewLimiterWithWindow creates a limiter admitting maxCalls per window.
// maxCalls below 1 is treated as 1.
func NewLimiterWithWindow(maxCalls int, window time.Duration, clock Clock) *Limiter {
	if maxCalls < 1 {
		maxCalls = 1
	}
	if clock == nil {
		clock = RealClock()
	}
	return &Limiter{
		maxCalls:  maxCalls,
		window:    window,
		callTimes: make([]time.Time, 0, maxCalls),
		clock:     clock,
	}
}

// Allow checks if a call is allowed under rate limits and records it.
// Returns error if rate limit exceeded
func (r *Limiter) Allow() error {
	if retryAfter, ok := r.TryAcquire(); !ok {
		err := errors.Newf("rate limit exceeded: %d calls per %s", r.maxCalls, r.window)
		err = errors.WithDetail(err, fmt.Sprintf("Retry after: %s", retryAfter))
		return err
	}
	return nil
}

// TryAcquire records an admission if the window has room.
// When it does not, retryAfter is how long until the oldest admission ages out.
func (r *Limiter) TryAcquire() (retryAfter time.Duration, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock.Now()
	r.removeExpiredCalls(now)

	if len(r.callTimes) >= r.maxCalls {
		return r.callTimes[0].Add(r.window).Sub(now), false
	}

	r.callTimes = append(r.callTimes, now)
	return 0, true
}

// Wait blocks until a call is allowed under rate limits
// Returns error if context is cancelled
func (r *Limiter) Wait(ctx context.Context) error {
	return r.WaitNotify(ctx, nil)
}

// WaitNotify is Wait with a hook invoked before each suspension.
// The hook receives how long the caller is about to sleep.
func (r *Limiter) WaitNotify(ctx context.Context, onThrottle func(wait time.Duration)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		retryAfter, ok := r.TryAcquire()
		if ok {
			return nil
		}
		// Clock granularity can make the computed wait zero or negative
		if retryAfter <= 0 {
			retryAfter = time.Millisecond
		}
		if onThrottle != nil {
			onThrottle(retryAfter)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-r.clock.After(retryAfter):
		}
	}
}

// removeExpiredCalls removes call timestamps that are outside the sliding window
// Must be called with lock held
func (r *Limiter) removeExpiredCalls(now time.Time) {
	cutoff := now.Add(-r.window)

	// Timestamps are ordered, so expired calls are a prefix
	expired := 0
	for _, callTime := range r.callTimes {
		if !callTime.After(cutoff) {
			expired++
		} else {
			break
		}
	}

	r.callTimes = r.callTimes[expired:]
}

// Reset clears the rate limiter state
func (r *Limiter) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.callTimes = r.callTimes[:0]
}

// Stats returns current rate limiter statistics
func (r *Limiter) Stats() (callsInWindow int, remaining int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.removeExpiredCalls(r.clock.Now())

	callsInWindow = len(r.callTimes)
	remaining = r.maxCalls - callsInWindow
	if remaining < 0 {
		remaining = 0
	}

	return callsInWindow, remaining
}

// Limit returns the configured number of calls per window
func (r *Limiter) Limit() int {
	return r.maxCalls
}
