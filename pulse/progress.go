// Package pulse holds the scheduling infrastructure shared by generation runs:
// call budgets (pulse/budget), the generation engine (pulse/generate) and the
// progress surface both report through.
package pulse

// ProgressEmitter defines the domain-agnostic interface for emitting progress updates
// during long-running operations. It must not grow domain-specific methods;
// domains pass their data as metadata maps.
type ProgressEmitter interface {
	// EmitStage announces the start of a processing stage
	EmitStage(stage string, message string)

	// EmitProgress announces progress with a count of settled items and optional metadata
	EmitProgress(count int, metadata map[string]interface{})

	// EmitComplete announces successful completion with summary
	EmitComplete(summary map[string]interface{})

	// EmitError announces an error during processing
	EmitError(stage string, err error)

	// EmitInfo emits general informational message
	EmitInfo(message string)
}

// TaskTracker is an optional interface that ProgressEmitter implementations
// can implement to support per-item tracking.
type TaskTracker interface {
	// AddTask registers a new task that will be tracked
	AddTask(taskID string, taskName string)

	// UpdateTaskStatus updates a task's completion status.
	// completed is false for failed, skipped and cancelled tasks.
	UpdateTaskStatus(taskID string, completed bool, result string)
}

// NopEmitter discards everything
type NopEmitter struct{}

func (NopEmitter) EmitStage(string, string)                 {}
func (NopEmitter) EmitProgress(int, map[string]interface{}) {}
func (NopEmitter) EmitComplete(map[string]interface{})      {}
func (NopEmitter) EmitError(string, error)                  {}
func (NopEmitter) EmitInfo(string)                          {}
