package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/pterm/pterm"

	"github.com/teranos/scribe/pulse"
)

// ProgressEvent represents a structured JSON progress event
type ProgressEvent struct {
	Type      string                 `json:"type"`      // "stage", "progress", "task", "complete", "error", "info"
	Timestamp time.Time              `json:"timestamp"` // When this event occurred
	Data      map[string]interface{} `json:"data"`      // Event-specific data
}

// newEmitter picks the emitter for --json
func newEmitter(jsonOutput bool, out io.Writer, verbosity int) pulse.ProgressEmitter {
	if jsonOutput {
		return NewJSONEmitter(out)
	}
	return NewCLIEmitter(verbosity)
}

// CLIEmitter outputs pretty-printed progress to terminal using pterm.
// Observers are called from many workers, so every method locks.
type CLIEmitter struct {
	mu        sync.Mutex
	verbosity int
	spinner   *pterm.SpinnerPrinter
}

var (
	_ pulse.ProgressEmitter = (*CLIEmitter)(nil)
	_ pulse.TaskTracker     = (*CLIEmitter)(nil)
)

// NewCLIEmitter creates a CLI progress emitter for terminal output
func NewCLIEmitter(verbosity int) *CLIEmitter {
	return &CLIEmitter{verbosity: verbosity}
}

// EmitStage prints a stage announcement and starts the spinner
func (e *CLIEmitter) EmitStage(stage string, message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	pterm.Printf("🔄 %s: %s\n", pterm.LightCyan(stage), message)
	if e.spinner == nil {
		e.spinner, _ = pterm.DefaultSpinner.Start(message)
	}
}

// EmitProgress updates the spinner with settled counts
func (e *CLIEmitter) EmitProgress(count int, metadata map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.spinner == nil {
		return
	}
	text := fmt.Sprintf("%s/%v settled, %v running, %v failed",
		pterm.Green(fmt.Sprintf("%d", count)), metadata["total"], metadata["running"], metadata["failed"])
	if eta, ok := metadata["eta_seconds"].(float64); ok {
		text += fmt.Sprintf(", about %s left", (time.Duration(eta) * time.Second).Round(time.Second))
	}
	e.spinner.UpdateText(text)
}

// AddTask prints a started item at -v
func (e *CLIEmitter) AddTask(taskID string, taskName string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.verbosity >= 1 {
		pterm.Printf("  … %s\n", taskName)
	}
}

// UpdateTaskStatus prints finished items at -v, and always prints failures
func (e *CLIEmitter) UpdateTaskStatus(taskID string, completed bool, result string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case completed && e.verbosity >= 1:
		pterm.Printf("  ✅ %s\n", taskID)
	case !completed:
		pterm.Printf("  %s %s (%s)\n", pterm.Red("✗"), taskID, result)
	}
}

// EmitComplete stops the spinner and prints the summary
func (e *CLIEmitter) EmitComplete(summary map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	msg := "Generation complete!"
	if e.spinner != nil {
		e.spinner.Success(msg)
		e.spinner = nil
	} else {
		pterm.Success.Println(msg)
	}
	for _, key := range sortedKeys(summary) {
		pterm.Printf("  %s: %v\n", key, summary[key])
	}
}

// EmitError prints an error
func (e *CLIEmitter) EmitError(stage string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.spinner != nil {
		_ = e.spinner.Stop()
		e.spinner = nil
	}
	pterm.Error.Printf("Error in %s: %v\n", stage, err)
}

// EmitInfo prints informational message
func (e *CLIEmitter) EmitInfo(message string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.verbosity >= 1 {
		pterm.Info.Println(message)
	}
}

// JSONEmitter outputs structured JSON events, one per line
type JSONEmitter struct {
	mu      sync.Mutex
	encoder *json.Encoder
	now     func() time.Time
}

var (
	_ pulse.ProgressEmitter = (*JSONEmitter)(nil)
	_ pulse.TaskTracker     = (*JSONEmitter)(nil)
)

// NewJSONEmitter creates a JSON progress emitter writing to w
func NewJSONEmitter(w io.Writer) *JSONEmitter {
	return &JSONEmitter{encoder: json.NewEncoder(w), now: time.Now}
}

func (e *JSONEmitter) emit(typ string, data map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	_ = e.encoder.Encode(ProgressEvent{Type: typ, Timestamp: e.now(), Data: data})
}

// EmitStage emits a stage event as JSON
func (e *JSONEmitter) EmitStage(stage string, message string) {
	e.emit("stage", map[string]interface{}{
		"stage":   stage,
		"message": message,
	})
}

// EmitProgress emits a progress event as JSON
func (e *JSONEmitter) EmitProgress(count int, metadata map[string]interface{}) {
	data := map[string]interface{}{
		"count": count,
	}
	for k, v := range metadata {
		data[k] = v
	}
	e.emit("progress", data)
}

// AddTask emits a task start event
func (e *JSONEmitter) AddTask(taskID string, taskName string) {
	e.emit("task", map[string]interface{}{
		"task_id": taskID,
		"name":    taskName,
		"status":  "started",
	})
}

// UpdateTaskStatus emits a task end event
func (e *JSONEmitter) UpdateTaskStatus(taskID string, completed bool, result string) {
	e.emit("task", map[string]interface{}{
		"task_id":   taskID,
		"status":    result,
		"completed": completed,
	})
}

// EmitComplete emits a completion event as JSON
func (e *JSONEmitter) EmitComplete(summary map[string]interface{}) {
	e.emit("complete", summary)
}

// EmitError emits an error event as JSON
func (e *JSONEmitter) EmitError(stage string, err error) {
	e.emit("error", map[string]interface{}{
		"stage": stage,
		"error": err.Error(),
	})
}

// EmitInfo emits an info event as JSON
func (e *JSONEmitter) EmitInfo(message string) {
	e.emit("info", map[string]interface{}{
		"message": message,
	})
}

func sortedKeys(m map[string]interface{}) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
