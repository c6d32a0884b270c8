package generate

import "time"

// Kind distinguishes parent entities from the children that depend on them
type Kind string

const (
	KindParent Kind = "parent"
	KindChild  Kind = "child"
)

// State represents the current state of a work item
type State string

const (
	StatePending   State = "pending"
	StateRunning   State = "running"
	StateCompleted State = "completed"
	StateFailed    State = "failed"
	StateSkipped   State = "skipped"
	StateCancelled State = "cancelled"
)

// IsTerminal reports whether no further transition can leave s
func (s State) IsTerminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateSkipped, StateCancelled:
		return true
	default:
		return false
	}
}

// ItemSpec describes one unit of generation work handed to RunItems.
//
// Context may be nil when Entity is set; the engine then asks its
// ContextBuilder for one at dispatch time.
type ItemSpec struct {
	ID           string
	Kind         Kind
	Priority     int
	Dependencies []string
	Context      Context
	Entity       Entity
}

// WorkItem is the engine's record of one item over the life of a run.
// Fields are guarded by the run lock and only copied out through ItemReport.
type WorkItem struct {
	ID          string
	Kind        Kind
	Priority    int
	State       State
	Attempts    int
	Result      Result
	Err         error
	Reason      string
	CacheHit    bool
	CreatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time

	dependencies []string
	context      Context
	entity       Entity
	seq          uint64
}

func newWorkItem(spec ItemSpec, now time.Time) *WorkItem {
	return &WorkItem{
		ID:           spec.ID,
		Kind:         spec.Kind,
		Priority:     spec.Priority,
		State:        StatePending,
		CreatedAt:    now,
		dependencies: append([]string(nil), spec.Dependencies...),
		context:      spec.Context,
		entity:       spec.Entity,
	}
}

// start marks the item as running and counts the attempt
func (w *WorkItem) start(now time.Time) {
	w.State = StateRunning
	w.Attempts++
	w.StartedAt = now
}

// complete marks the item as completed with its result
func (w *WorkItem) complete(now time.Time, result Result, cacheHit bool) {
	w.State = StateCompleted
	w.Result = result
	w.CacheHit = cacheHit
	w.Err = nil
	w.CompletedAt = now
}

// requeue returns a failed attempt to pending, keeping the error for reporting
func (w *WorkItem) requeue(err error) {
	w.State = StatePending
	w.Err = err
}

// fail marks the item as failed with the last attempt's error
func (w *WorkItem) fail(now time.Time, err error) {
	w.State = StateFailed
	w.Err = err
	w.CompletedAt = now
}

// skip marks a pending item as skipped with a reason
func (w *WorkItem) skip(now time.Time, reason string) {
	w.State = StateSkipped
	w.Reason = reason
	w.CompletedAt = now
}

// cancel marks a pending item as cancelled with a reason
func (w *WorkItem) cancel(now time.Time, reason string) {
	w.State = StateCancelled
	w.Reason = reason
	w.CompletedAt = now
}

// ItemReport is a read-only copy of a WorkItem's outcome
type ItemReport struct {
	ID       string
	Kind     Kind
	State    State
	Attempts int
	CacheHit bool
	Result   Result
	Err      error
	Reason   string
	Duration time.Duration
}

func (w *WorkItem) report() ItemReport {
	r := ItemReport{
		ID:       w.ID,
		Kind:     w.Kind,
		State:    w.State,
		Attempts: w.Attempts,
		CacheHit: w.CacheHit,
		Result:   w.Result,
		Err:      w.Err,
		Reason:   w.Reason,
	}
	if !w.StartedAt.IsZero() && !w.CompletedAt.IsZero() {
		r.Duration = w.CompletedAt.Sub(w.StartedAt)
	}
	return r
}
