package generate

import (
	"time"

	"github.com/teranos/scribe/errors"
)

// errPermanent marks failures that retrying cannot fix
var errPermanent = errors.New("permanent failure")

// Permanent marks err so the item fails without further attempts
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return errors.Mark(err, errPermanent)
}

// IsPermanent reports whether err was marked with Permanent
func IsPermanent(err error) bool {
	return errors.Is(err, errPermanent)
}

// BackoffFunc returns the delay before the retry following the given attempt
type BackoffFunc func(attempt int) time.Duration

// ConstantBackoff waits d before every retry
func ConstantBackoff(d time.Duration) BackoffFunc {
	return func(int) time.Duration { return d }
}

// ExponentialBackoff doubles from base per attempt, capped at max
func ExponentialBackoff(base, max time.Duration) BackoffFunc {
	return func(attempt int) time.Duration {
		if attempt < 1 {
			attempt = 1
		}
		d := base
		for i := 1; i < attempt; i++ {
			d *= 2
			if d >= max {
				return max
			}
		}
		return min(d, max)
	}
}

// RetryPolicy decides what happens to an item after a failed attempt.
// An item is attempted at most MaxRetries+1 times.
type RetryPolicy struct {
	MaxRetries int
	Backoff    BackoffFunc
}

// Decision is the outcome of a failed attempt
type Decision struct {
	Retry  bool
	Delay  time.Duration
	Reason string
}

// Decide evaluates attempt number attempts (1-based) that failed with err
func (p RetryPolicy) Decide(attempts int, err error) Decision {
	if IsPermanent(err) {
		return Decision{Reason: "permanent error"}
	}
	if attempts > p.MaxRetries {
		return Decision{Reason: "max retries exceeded"}
	}
	d := Decision{Retry: true, Reason: "retrying"}
	if p.Backoff != nil {
		d.Delay = p.Backoff(attempts)
	}
	return d
}
