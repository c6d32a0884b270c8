// Package sym defines the glyphs scribe prints in logs and CLI output.
// These symbols are stable across log lines and terminal output.
package sym

// System glyphs.
const (
	Pulse      = "꩜" // scheduling, rate limiting, retries
	PulseOpen  = "✿" // run start, worker start
	PulseClose = "❀" // run end, cancellation, worker exit
	DB         = "⊔" // database/storage layer
	AM         = "≡" // configuration
)

// Descriptions maps each glyph to what it marks.
var Descriptions = map[string]string{
	Pulse:      "Scheduling, rate limiting, retries",
	PulseOpen:  "Run and worker startup",
	PulseClose: "Run completion and cancellation",
	DB:         "Database/storage layer",
	AM:         "Configuration",
}

// Describe returns the description for a glyph, or "" if unknown.
func Describe(glyph string) string {
	return Descriptions[glyph]
}
