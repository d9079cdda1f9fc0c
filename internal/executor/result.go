package executor

import "time"

// Result holds the complete outcome of one execution attempt. It is
// built exactly once, never mutated afterwards, and every field
// survives a JSON round trip.
type Result struct {
	RequestID string `json:"request_id"`
	Command   string `json:"command"`
	Success   bool   `json:"success"`
	Stdout    string `json:"stdout"`
	Stderr    string `json:"stderr"`

	// ExitCode is the process's native exit status. -1 is reserved for
	// "no real exit code": timeout, cancellation, or spawn failure.
	ExitCode int `json:"exit_code"`

	// ExecutionTime is wall-clock seconds from spawn attempt to final
	// determination.
	ExecutionTime float64 `json:"execution_time"`

	WorkingDir string    `json:"working_dir,omitempty"`
	Timestamp  time.Time `json:"timestamp"`

	// Error carries an execution-layer failure description (timeout,
	// spawn failure). It is empty when the command simply exited
	// non-zero on its own.
	Error string `json:"error,omitempty"`

	// Truncated is set when stdout or stderr hit the output cap.
	Truncated bool `json:"truncated,omitempty"`
}
