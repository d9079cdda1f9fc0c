// Package relay exchanges execution requests and results with a
// running connector through JSON files in a shared work directory.
//
// The consistency model is file-existence only: a request is a file
// written atomically to a known path, the response appears at another
// known path, and there is no locking. At most one outstanding request
// per work directory is assumed.
package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/deixis/shellbridge/internal/executor"
)

// File names inside the work directory.
const (
	CommandFile  = "command.json"
	ResponseFile = "response.json"
	StatusFile   = "status.json"
)

const (
	// Margin is added to the command timeout when waiting for a
	// response, covering shell startup and relay latency. Absence
	// after timeout+Margin is a relay timeout, distinct from the
	// executor's own timeout.
	Margin = 10 * time.Second

	pollInterval = 200 * time.Millisecond
)

// ErrTimeout reports that no response appeared within the bound.
var ErrTimeout = errors.New("timed out waiting for connector response")

// ErrNotRunning reports that no connector status file exists.
var ErrNotRunning = errors.New("connector is not running")

// Command is the wire form of an execution request.
type Command struct {
	ID         string  `json:"id"`
	Command    string  `json:"command"`
	WorkingDir string  `json:"working_dir,omitempty"`
	Timeout    float64 `json:"timeout"` // seconds
}

// Status is the wire form of the connector's advisory status file.
type Status struct {
	Status           string    `json:"status"`
	Message          string    `json:"message"`
	Timestamp        time.Time `json:"timestamp"`
	WorkDir          string    `json:"work_dir"`
	ShellPath        string    `json:"shell_path"`
	ShellKind        string    `json:"shell_kind"`
	ShellArgs        []string  `json:"shell_args"`
	CommandsExecuted uint64    `json:"commands_executed"`
	Uptime           float64   `json:"uptime"` // seconds
	PID              int       `json:"pid"`
}

// WriteAtomic writes data to path through a temp file and rename, so
// a watcher never observes a half-written file.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("publishing %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Send writes a command file into workDir and waits for the matching
// response. The wait is bounded by the command timeout plus Margin.
func Send(workDir string, cmd Command) (*executor.Result, error) {
	if cmd.ID == "" {
		cmd.ID = uuid.New().String()
	}
	timeout := time.Duration(cmd.Timeout * float64(time.Second))
	if timeout <= 0 {
		timeout = executor.DefaultTimeout
		cmd.Timeout = timeout.Seconds()
	}

	responsePath := filepath.Join(workDir, ResponseFile)
	// A stale response from a previous exchange must not satisfy this one.
	_ = os.Remove(responsePath)

	data, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("marshalling command: %w", err)
	}
	if err := WriteAtomic(filepath.Join(workDir, CommandFile), data); err != nil {
		return nil, err
	}

	bound := timeout + Margin
	deadline := time.Now().Add(bound)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(responsePath)
		if err == nil {
			var res executor.Result
			if err := json.Unmarshal(data, &res); err == nil {
				_ = os.Remove(responsePath)
				return &res, nil
			}
		}
		time.Sleep(pollInterval)
	}
	return nil, fmt.Errorf("%w after %s", ErrTimeout, bound)
}

// ReadStatus reads the connector's status file from workDir.
func ReadStatus(workDir string) (*Status, error) {
	data, err := os.ReadFile(filepath.Join(workDir, StatusFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotRunning
		}
		return nil, fmt.Errorf("reading status: %w", err)
	}
	var st Status
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parsing status: %w", err)
	}
	return &st, nil
}

// Running reports whether a connector currently claims the work
// directory. A stopped status counts as not running.
func Running(workDir string) bool {
	st, err := ReadStatus(workDir)
	return err == nil && st.Status != string(executor.StateStopped) && st.PID > 0
}

// SignalStop asks the connector recorded in the status file to shut
// down, by signalling its pid.
func SignalStop(workDir string) error {
	st, err := ReadStatus(workDir)
	if err != nil {
		return err
	}
	if st.PID <= 0 {
		return fmt.Errorf("status file carries no pid")
	}
	proc, err := os.FindProcess(st.PID)
	if err != nil {
		return fmt.Errorf("finding connector process %d: %w", st.PID, err)
	}
	if err := proc.Signal(os.Interrupt); err != nil {
		return fmt.Errorf("signalling connector process %d: %w", st.PID, err)
	}
	return nil
}
