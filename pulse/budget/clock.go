package budget

import "time"

// Clock supplies time to the limiter and to anything that sleeps alongside it.
// Tests inject a fake clock so a 60 second window costs no wall time.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type realClock struct{}

func (realClock) Now() time.Time                         { return time.Now() }
func (realClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// RealClock returns the wall clock
func RealClock() Clock {
	return realClock{}
}
