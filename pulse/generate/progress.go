package generate

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/teranos/scribe/logger"
	"github.com/teranos/scribe/pulse"
)

// Snapshot is the run's progress immediately after a transition
type Snapshot struct {
	Total     int
	Completed int
	Failed    int
	Running   int
	Pending   int
	Skipped   int
	Cancelled int
	CacheHits int

	// EstimatedRemaining is elapsed/completed*pending; nil until something completed
	EstimatedRemaining *time.Duration

	CurrentItem    string
	CurrentState   State
	CurrentAttempt int
}

// Settled counts items that will not run again
func (s Snapshot) Settled() int {
	return s.Completed + s.Failed + s.Skipped + s.Cancelled
}

// Observer receives progress snapshots. It is called on worker goroutines
// and may be called concurrently.
type Observer func(Snapshot)

// estimateRemaining projects time left from the average completion rate
func estimateRemaining(elapsed time.Duration, completed, pending int) *time.Duration {
	if completed == 0 {
		return nil
	}
	eta := time.Duration(float64(elapsed) / float64(completed) * float64(pending))
	return &eta
}

// progressLogInterval bounds how often progress is written to the debug log
const progressLogInterval = 500 * time.Millisecond

// reporter delivers snapshots outside the run lock with a bounded wait
type reporter struct {
	observer Observer
	timeout  time.Duration
	logger   pulseLogger
	sample   *rate.Limiter
}

func newReporter(observer Observer, timeout time.Duration, log pulseLogger) *reporter {
	return &reporter{
		observer: observer,
		timeout:  timeout,
		logger:   log,
		sample:   rate.NewLimiter(rate.Every(progressLogInterval), 1),
	}
}

func (r *reporter) deliver(s Snapshot) {
	if r.sample.Allow() {
		r.logger.Debugw("Progress",
			logger.FieldItemID, s.CurrentItem,
			logger.FieldState, s.CurrentState,
			logger.FieldCompleted, s.Completed,
			logger.FieldFailed, s.Failed,
			logger.FieldRunning, s.Running,
			logger.FieldPending, s.Pending,
			logger.FieldTotalCount, s.Total)
	}
	if r.observer == nil {
		return
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		defer func() {
			if p := recover(); p != nil {
				r.logger.Warnw("Progress observer panicked", "panic", p, logger.FieldItemID, s.CurrentItem)
			}
		}()
		r.observer(s)
	}()

	timer := time.NewTimer(r.timeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		r.logger.Warnw("Progress observer exceeded timeout, continuing without it",
			logger.FieldItemID, s.CurrentItem,
			"timeout", r.timeout)
	}
}

// EmitterObserver forwards snapshots to a ProgressEmitter. Emitters that
// also implement pulse.TaskTracker receive per-item start and finish updates.
func EmitterObserver(emitter pulse.ProgressEmitter) Observer {
	tracker, _ := emitter.(pulse.TaskTracker)
	return func(s Snapshot) {
		if tracker != nil && s.CurrentItem != "" {
			switch {
			case s.CurrentState == StateRunning && s.CurrentAttempt == 1:
				tracker.AddTask(s.CurrentItem, s.CurrentItem)
			case s.CurrentState.IsTerminal():
				tracker.UpdateTaskStatus(s.CurrentItem, s.CurrentState == StateCompleted, string(s.CurrentState))
			}
		}

		metadata := map[string]interface{}{
			"total":      s.Total,
			"completed":  s.Completed,
			"failed":     s.Failed,
			"running":    s.Running,
			"pending":    s.Pending,
			"skipped":    s.Skipped,
			"cancelled":  s.Cancelled,
			"cache_hits": s.CacheHits,
			"item_id":    s.CurrentItem,
			"state":      string(s.CurrentState),
		}
		if s.EstimatedRemaining != nil {
			metadata["eta_seconds"] = s.EstimatedRemaining.Seconds()
		}
		emitter.EmitProgress(s.Settled(), metadata)
	}
}
