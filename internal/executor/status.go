package executor

import "time"

// State tags the executor's advisory status.
type State string

const (
	// StateReady means the executor can accept a request.
	StateReady State = "ready"
	// StateExecuting means one request is in flight.
	StateExecuting State = "executing"
	// StateError means the last request failed at the execution layer.
	StateError State = "error"
	// StateStopped means the owning service has shut down.
	StateStopped State = "stopped"
)

// Status is the externally observable record the executor maintains
// around each execution. It is advisory only: consumers must never use
// it for synchronization.
type Status struct {
	State     State     `json:"status"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	ShellPath string    `json:"shell_path"`
	ShellKind string    `json:"shell_kind"`

	// CommandsExecuted counts runs that reached normal process
	// completion, including non-zero exits. Timeouts and spawn
	// failures do not count.
	CommandsExecuted uint64 `json:"commands_executed"`
}

// Status returns a copy of the current advisory status.
func (e *Executor) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

func (e *Executor) setStatus(state State, message string) {
	e.mu.Lock()
	e.status.State = state
	e.status.Message = message
	e.status.Timestamp = time.Now()
	e.status.CommandsExecuted = e.executed
	e.mu.Unlock()
}

// MarkStopped records service shutdown in the advisory status.
func (e *Executor) MarkStopped(message string) {
	e.setStatus(StateStopped, message)
}

// MarkReady records service startup in the advisory status.
func (e *Executor) MarkReady(message string) {
	e.setStatus(StateReady, message)
}
