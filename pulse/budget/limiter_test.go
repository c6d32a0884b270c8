package budget

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockClock allows controlling time in tests.
// After advances the clock by d and fires immediately, so sleepers never block.
type mockClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newMockClock(now time.Time) *mockClock {
	return &mockClock{now: now}
}

func (m *mockClock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

func (m *mockClock) Advance(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
}

func (m *mockClock) After(d time.Duration) <-chan time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = m.now.Add(d)
	m.sleeps = append(m.sleeps, d)
	ch := make(chan time.Time, 1)
	ch <- m.now
	return ch
}

func (m *mockClock) Sleeps() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.sleeps...)
}

// Given: Limiter configured for 10 calls/minute
// When: Making exactly 10 calls within 1 minute
// Then: All calls are allowed, the 11th is rejected
func TestLimiter_AtLimit(t *testing.T) {
	clock := newMockClock(time.Now())
	limiter := NewLimiterWithClock(10, clock)

	for i := 0; i < 10; i++ {
		require.NoError(t, limiter.Allow(), "call %d", i+1)
		clock.Advance(time.Second)
	}

	err := limiter.Allow()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit exceeded")
}

// Given: Limiter at capacity
// When: The oldest admission is exactly one window old
// Then: It no longer counts against the window
func TestLimiter_WindowBoundaryExpires(t *testing.T) {
	clock := newMockClock(time.Now())
	limiter := NewLimiterWithClock(2, clock)

	require.NoError(t, limiter.Allow())
	require.NoError(t, limiter.Allow())
	require.Error(t, limiter.Allow())

	clock.Advance(59 * time.Second)
	require.Error(t, limiter.Allow())

	clock.Advance(time.Second)
	assert.NoError(t, limiter.Allow())
}

// Given: Sliding window limiter with 10 calls/minute limit
// When: Making 10 calls instantly, then waiting 61s, then 10 more
// Then: Second batch is allowed once the first ages out
func TestLimiter_BurstHandling(t *testing.T) {
	clock := newMockClock(time.Now())
	limiter := NewLimiterWithClock(10, clock)

	for i := 0; i < 10; i++ {
		require.NoError(t, limiter.Allow())
	}
	assert.Error(t, limiter.Allow(), "at capacity")

	clock.Advance(30 * time.Second)
	assert.Error(t, limiter.Allow(), "still inside the window at 30s")

	clock.Advance(31 * time.Second)
	for i := 0; i < 10; i++ {
		assert.NoError(t, limiter.Allow(), "post-window call %d", i+1)
	}
}

func TestLimiter_TryAcquireReportsRetryAfter(t *testing.T) {
	clock := newMockClock(time.Now())
	limiter := NewLimiterWithClock(1, clock)

	_, ok := limiter.TryAcquire()
	require.True(t, ok)

	clock.Advance(15 * time.Second)
	retryAfter, ok := limiter.TryAcquire()
	assert.False(t, ok)
	assert.Equal(t, 45*time.Second, retryAfter)
}

// Given: Limiter with 2 calls/minute
// When: 5 callers Wait sequentially
// Then: Admissions come in pairs 60s apart and each sleep is the computed remainder
func TestLimiter_WaitSleepsUntilOldestExpires(t *testing.T) {
	start := time.Now()
	clock := newMockClock(start)
	limiter := NewLimiterWithClock(2, clock)

	var admitted []time.Duration
	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.Wait(context.Background()))
		admitted = append(admitted, clock.Now().Sub(start))
	}

	assert.Equal(t, []time.Duration{0, 0, 60 * time.Second, 60 * time.Second, 120 * time.Second}, admitted)
	assert.Equal(t, []time.Duration{60 * time.Second, 60 * time.Second}, clock.Sleeps())
}

func TestLimiter_WaitNotifyReportsThrottle(t *testing.T) {
	clock := newMockClock(time.Now())
	limiter := NewLimiterWithClock(1, clock)
	require.NoError(t, limiter.Allow())

	var waits []time.Duration
	err := limiter.WaitNotify(context.Background(), func(wait time.Duration) {
		waits = append(waits, wait)
	})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{60 * time.Second}, waits)
}

func TestLimiter_WaitHonoursCancellation(t *testing.T) {
	limiter := NewLimiter(1)
	require.NoError(t, limiter.Allow())

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := limiter.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	calls, _ := limiter.Stats()
	assert.Equal(t, 1, calls, "cancelled waiter must not be recorded")
}

// Given: Limiter configured for 100 calls/minute
// When: 10 goroutines each making 20 calls (200 total)
// Then: Exactly 100 succeed
func TestLimiter_Concurrent(t *testing.T) {
	limiter := NewLimiter(100)

	var wg sync.WaitGroup
	results := make(chan bool, 200)
	for g := 0; g < 10; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 20; i++ {
				results <- limiter.Allow() == nil
			}
		}()
	}
	wg.Wait()
	close(results)

	success := 0
	for ok := range results {
		if ok {
			success++
		}
	}
	assert.Equal(t, 100, success)
}

// Given: A short real-time window and more waiters than the limit
// When: All waiters block concurrently
// Then: No window-length span contains more admissions than the limit
func TestLimiter_ConcurrentWaitersRespectWindow(t *testing.T) {
	const (
		limit   = 3
		window  = 150 * time.Millisecond
		waiters = 8
		// admissions are stamped after Wait returns, so allow scheduling lag
		slack = 25 * time.Millisecond
	)
	limiter := NewLimiterWithWindow(limit, window, RealClock())

	var (
		mu    sync.Mutex
		times []time.Time
		wg    sync.WaitGroup
	)
	for i := 0; i < waiters; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			require.NoError(t, limiter.Wait(context.Background()))
			mu.Lock()
			times = append(times, time.Now())
			mu.Unlock()
		}()
	}
	wg.Wait()

	sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })
	require.Len(t, times, waiters)
	for i := range times {
		inWindow := 0
		for j := i; j < len(times) && times[j].Sub(times[i]) < window-slack; j++ {
			inWindow++
		}
		assert.LessOrEqual(t, inWindow, limit, "window starting at admission %d", i)
	}
}

func TestLimiter_Stats(t *testing.T) {
	clock := newMockClock(time.Now())
	limiter := NewLimiterWithClock(10, clock)

	calls, remaining := limiter.Stats()
	assert.Equal(t, 0, calls)
	assert.Equal(t, 10, remaining)

	for i := 0; i < 5; i++ {
		require.NoError(t, limiter.Allow())
	}
	calls, remaining = limiter.Stats()
	assert.Equal(t, 5, calls)
	assert.Equal(t, 5, remaining)

	clock.Advance(61 * time.Second)
	calls, remaining = limiter.Stats()
	assert.Equal(t, 0, calls)
	assert.Equal(t, 10, remaining)
}

func TestLimiter_Reset(t *testing.T) {
	clock := newMockClock(time.Now())
	limiter := NewLimiterWithClock(10, clock)

	for i := 0; i < 10; i++ {
		require.NoError(t, limiter.Allow())
	}
	require.Error(t, limiter.Allow())

	limiter.Reset()
	for i := 0; i < 10; i++ {
		assert.NoError(t, limiter.Allow())
	}
}

func TestLimiter_NonPositiveLimitAdmitsOne(t *testing.T) {
	limiter := NewLimiterWithClock(0, newMockClock(time.Now()))
	assert.Equal(t, 1, limiter.Limit())
	require.NoError(t, limiter.Allow())
	assert.Error(t, limiter.Allow())
}
