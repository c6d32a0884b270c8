package generate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/teranos/scribe/errors"
	"github.com/teranos/scribe/logger"
)

// Failure records an item that exhausted its attempts
type Failure struct {
	ID       string
	Attempts int
	Err      error
}

// Skip records an item that was not attempted because a dependency failed
type Skip struct {
	ID     string
	Reason string
}

// Summary reports the outcome of a run
type Summary struct {
	RunID          string
	Total          int
	Completed      int
	Failed         int
	Skipped        int
	Pending        int // never dispatched: dependency failed under LeavePending, or on a cycle
	CancelledItems int
	CacheHits      int
	Executions     int // executor invocations, cache hits excluded
	Elapsed        time.Duration
	Throughput     float64 // completed items per second
	Cancelled      bool
	Failures       []Failure
	Skips          []Skip
	Items          map[string]ItemReport
}

// Item returns the report for one item
func (s *Summary) Item(id string) (ItemReport, bool) {
	r, ok := s.Items[id]
	return r, ok
}

// run is the state of one Run call. Everything below mu is guarded by it.
type run struct {
	e      *Engine
	id     string
	logger pulseLogger
	report *reporter

	wg   sync.WaitGroup
	mu   sync.Mutex
	cond *sync.Cond

	items     map[string]*WorkItem
	order     []*WorkItem
	ready     *readySet
	inflight  map[string]chan struct{}
	startedAt time.Time

	running    int
	delayed    int
	completed  int
	failed     int
	skipped    int
	cancelled  int
	cacheHits  int
	executions int
	stopped    bool

	failures []Failure
	skips    []Skip
}

func newRun(e *Engine, specs []ItemSpec) *run {
	id := uuid.New().String()
	log := pulseLogger{e.logger.With(logger.FieldRunID, id)}
	r := &run{
		e:        e,
		id:       id,
		logger:   log,
		report:   newReporter(e.observer, e.cfg.ObserverTimeout, log),
		items:    make(map[string]*WorkItem, len(specs)),
		order:    make([]*WorkItem, 0, len(specs)),
		inflight: make(map[string]chan struct{}),
	}
	r.cond = sync.NewCond(&r.mu)

	now := e.clock.Now()
	for _, s := range specs {
		w := newWorkItem(s, now)
		r.items[w.ID] = w
		r.order = append(r.order, w)
	}
	r.ready = newReadySet(r.order)
	return r
}

func (r *run) execute(ctx context.Context) (*Summary, error) {
	r.startedAt = r.e.clock.Now()
	r.logger.Starting("Run starting",
		logger.FieldTotalCount, len(r.order),
		"workers", r.e.cfg.MaxConcurrent,
		"rate_limit_per_minute", r.e.cfg.RateLimitPerMinute,
		logger.FieldMaxRetries, r.e.cfg.MaxRetries)

	if ctx.Err() != nil {
		r.stop()
	}
	stop := context.AfterFunc(ctx, r.stop)
	defer stop()

	for i := 0; i < r.e.cfg.MaxConcurrent; i++ {
		r.wg.Add(1)
		go r.worker(ctx, i)
	}
	r.wg.Wait()

	// AfterFunc runs asynchronously and may not have fired yet
	if ctx.Err() != nil {
		r.stop()
	}
	summary, cancelled := r.finish()
	for _, s := range cancelled {
		r.report.deliver(s)
	}
	if summary.Cancelled {
		r.logger.Closing("Run cancelled",
			logger.FieldCompleted, summary.Completed,
			"cancelled", summary.CancelledItems,
			logger.FieldElapsed, summary.Elapsed)
		return summary, errors.WrapCancelled(ctx.Err(), "generation run cancelled")
	}

	r.logger.Pulse("Run finished",
		logger.FieldCompleted, summary.Completed,
		logger.FieldFailed, summary.Failed,
		logger.FieldSkipped, summary.Skipped,
		logger.FieldPending, summary.Pending,
		"cache_hits", summary.CacheHits,
		logger.FieldElapsed, summary.Elapsed)
	return summary, nil
}

// stop halts dispatch; called once when the run's context is done
func (r *run) stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stopped = true
	r.cond.Broadcast()
}

// next blocks until an item is dispatchable or the run is over.
// The returned item is already RUNNING.
func (r *run) next() (*WorkItem, Snapshot, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for {
		if r.stopped {
			return nil, Snapshot{}, false
		}
		if w := r.ready.queue.pop(); w != nil {
			if w.State != StatePending {
				continue
			}
			w.start(r.e.clock.Now())
			r.running++
			return w, r.snapshotLocked(w), true
		}
		if r.running == 0 && r.delayed == 0 {
			// Nothing can make more work ready; wake the other idle workers
			r.cond.Broadcast()
			return nil, Snapshot{}, false
		}
		r.cond.Wait()
	}
}

// complete settles a successful attempt and releases dependents
func (r *run) complete(w *WorkItem, result Result, cacheHit bool) {
	r.mu.Lock()
	w.complete(r.e.clock.Now(), result, cacheHit)
	r.running--
	r.completed++
	if cacheHit {
		r.cacheHits++
	}
	for _, id := range r.ready.complete(w.ID) {
		if d := r.items[id]; d.State == StatePending {
			r.ready.queue.push(d)
		}
	}
	snap := r.snapshotLocked(w)
	r.cond.Broadcast()
	r.mu.Unlock()

	r.logger.Debugw("Item completed",
		logger.FieldItemID, w.ID,
		logger.FieldAttempt, snap.CurrentAttempt,
		"cache_hit", cacheHit)
	r.report.deliver(snap)
}

// failAttempt settles a failed attempt: retry, fail, or park if the run is stopping
func (r *run) failAttempt(ctx context.Context, w *WorkItem, err error) {
	r.mu.Lock()
	r.running--

	if r.stopped || ctx.Err() != nil {
		// Interrupted by cancellation; finish() marks it cancelled
		w.requeue(err)
		snap := r.snapshotLocked(w)
		r.cond.Broadcast()
		r.mu.Unlock()
		r.report.deliver(snap)
		return
	}

	decision := r.e.retry.Decide(w.Attempts, err)
	var skipped []Snapshot
	if decision.Retry {
		w.requeue(err)
		if decision.Delay > 0 {
			r.delayed++
			r.wg.Add(1)
			go r.delayRetry(ctx, w, decision.Delay)
		} else {
			r.ready.queue.push(w)
		}
	} else {
		w.fail(r.e.clock.Now(), err)
		r.failed++
		r.failures = append(r.failures, Failure{ID: w.ID, Attempts: w.Attempts, Err: err})
		if r.e.cfg.FailedDependency == SkipDependents {
			skipped = r.skipDependentsLocked(w.ID)
		}
	}
	snap := r.snapshotLocked(w)
	r.cond.Broadcast()
	r.mu.Unlock()

	if decision.Retry {
		r.logger.Pulse("Attempt failed, retrying",
			logger.FieldItemID, w.ID,
			logger.FieldAttempt, snap.CurrentAttempt,
			logger.FieldMaxRetries, r.e.retry.MaxRetries,
			"delay", decision.Delay,
			logger.FieldError, err)
	} else {
		r.logger.Errorw("Item failed",
			logger.FieldItemID, w.ID,
			logger.FieldAttempt, snap.CurrentAttempt,
			"reason", decision.Reason,
			logger.FieldError, err)
		if len(skipped) > 0 {
			r.logger.Warnw("Skipped dependents of failed item",
				logger.FieldItemID, w.ID,
				logger.FieldCount, len(skipped))
		}
	}
	r.report.deliver(snap)
	for _, s := range skipped {
		r.report.deliver(s)
	}
}

// delayRetry re-enqueues w after the backoff, unless the run stops first
func (r *run) delayRetry(ctx context.Context, w *WorkItem, delay time.Duration) {
	defer r.wg.Done()

	select {
	case <-r.e.clock.After(delay):
	case <-ctx.Done():
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.delayed--
	if !r.stopped && w.State == StatePending {
		r.ready.queue.push(w)
	}
	r.cond.Broadcast()
}

// skipDependentsLocked marks every pending transitive dependent of id as
// skipped and returns one snapshot per skipped item, taken once all are settled.
func (r *run) skipDependentsLocked(id string) []Snapshot {
	now := r.e.clock.Now()
	var skipped []*WorkItem

	frontier := []string{id}
	for len(frontier) > 0 {
		cur := frontier[0]
		frontier = frontier[1:]
		for _, depID := range r.ready.dependents[cur] {
			d := r.items[depID]
			if d.State != StatePending {
				continue
			}
			reason := fmt.Sprintf("dependency %s failed", cur)
			if cur != id {
				reason = fmt.Sprintf("dependency %s skipped", cur)
			}
			d.skip(now, reason)
			r.skipped++
			r.skips = append(r.skips, Skip{ID: depID, Reason: reason})
			skipped = append(skipped, d)
			frontier = append(frontier, depID)
		}
	}

	snaps := make([]Snapshot, len(skipped))
	for i, d := range skipped {
		snaps[i] = r.snapshotLocked(d)
	}
	return snaps
}

// snapshotLocked builds the progress view with w as the current item
func (r *run) snapshotLocked(w *WorkItem) Snapshot {
	total := len(r.order)
	pending := total - r.completed - r.failed - r.skipped - r.cancelled - r.running
	s := Snapshot{
		Total:              total,
		Completed:          r.completed,
		Failed:             r.failed,
		Running:            r.running,
		Pending:            pending,
		Skipped:            r.skipped,
		Cancelled:          r.cancelled,
		CacheHits:          r.cacheHits,
		EstimatedRemaining: estimateRemaining(r.e.clock.Now().Sub(r.startedAt), r.completed, pending),
	}
	if w != nil {
		s.CurrentItem = w.ID
		s.CurrentState = w.State
		s.CurrentAttempt = w.Attempts
	}
	return s
}

// claimFingerprint makes the caller the executing owner of fp, or returns
// the channel that closes when the current owner is done.
func (r *run) claimFingerprint(fp string) (done chan struct{}, owner bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ch, busy := r.inflight[fp]; busy {
		return ch, false
	}
	ch := make(chan struct{})
	r.inflight[fp] = ch
	return ch, true
}

func (r *run) releaseFingerprint(fp string, done chan struct{}) {
	r.mu.Lock()
	delete(r.inflight, fp)
	r.mu.Unlock()
	close(done)
}

func (r *run) countExecution() {
	r.mu.Lock()
	r.executions++
	r.mu.Unlock()
}

// finish cancels what a stopped run left behind and builds the summary.
// The returned snapshots, one per cancelled item, are delivered by the caller
// outside the lock.
func (r *run) finish() (*Summary, []Snapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.e.clock.Now()
	var cancelled []*WorkItem
	if r.stopped {
		for _, w := range r.order {
			if w.State == StatePending {
				w.cancel(now, "run cancelled")
				r.cancelled++
				cancelled = append(cancelled, w)
			}
		}
	}
	snaps := make([]Snapshot, len(cancelled))
	for i, w := range cancelled {
		snaps[i] = r.snapshotLocked(w)
	}

	s := &Summary{
		RunID:          r.id,
		Total:          len(r.order),
		Completed:      r.completed,
		Failed:         r.failed,
		Skipped:        r.skipped,
		CancelledItems: r.cancelled,
		CacheHits:      r.cacheHits,
		Executions:     r.executions,
		Elapsed:        now.Sub(r.startedAt),
		Cancelled:      r.cancelled > 0,
		Failures:       append([]Failure(nil), r.failures...),
		Skips:          append([]Skip(nil), r.skips...),
		Items:          make(map[string]ItemReport, len(r.order)),
	}
	s.Pending = s.Total - s.Completed - s.Failed - s.Skipped - s.CancelledItems
	if secs := s.Elapsed.Seconds(); secs > 0 {
		s.Throughput = float64(s.Completed) / secs
	}
	for _, w := range r.order {
		s.Items[w.ID] = w.report()
	}
	return s, snaps
}
