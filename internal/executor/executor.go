// Package executor runs one shell command per request with a hard
// timeout, process-group cleanup, and capped output capture.
package executor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/deixis/shellbridge/internal/shell"
)

// ErrInvalidCommand is returned for an empty or whitespace-only
// command, before any process is spawned.
var ErrInvalidCommand = errors.New("command is empty")

const (
	// DefaultTimeout applies when a request carries no timeout.
	DefaultTimeout = 30 * time.Second

	// drainGrace bounds the wait for buffered output after a forced
	// kill. If the drain itself stalls, captured output is dropped
	// rather than blocking further.
	drainGrace = 2 * time.Second

	statusMessageLimit = 50
)

// Request describes one command execution.
type Request struct {
	// Command is the shell command text. Must be non-empty after
	// trimming whitespace.
	Command string
	// WorkingDir, when set, must be an existing directory the command
	// runs in.
	WorkingDir string
	// Timeout bounds the execution. Any positive value is accepted;
	// zero falls back to DefaultTimeout.
	Timeout time.Duration
	// RequestID correlates the result with the caller's request. A
	// fresh UUID is generated when empty.
	RequestID string
}

// Executor executes requests against a single resolved shell. Each
// call is synchronous; the design assumes at most one in-flight
// execution per instance, and concurrent callers against one instance
// have undefined interleaving.
type Executor struct {
	Shell *shell.Descriptor

	// MaxOutput caps captured stdout and stderr, in bytes each.
	MaxOutput int

	// Env holds extra KEY=VALUE entries appended to the inherited
	// host environment.
	Env []string

	mu       sync.Mutex
	status   Status
	executed uint64
}

// New creates an Executor bound to a resolved shell.
func New(sh *shell.Descriptor, maxOutput int) *Executor {
	e := &Executor{Shell: sh, MaxOutput: maxOutput}
	e.mu.Lock()
	e.status = Status{
		State:     StateReady,
		Message:   "executor initialized",
		Timestamp: time.Now(),
		ShellPath: sh.Path,
		ShellKind: string(sh.Kind),
	}
	e.mu.Unlock()
	return e
}

// Execute runs exactly one request and returns exactly one Result.
// The only error it returns is ErrInvalidCommand; every runtime
// failure mode (timeout, spawn failure, IO failure) terminates in a
// well-formed Result instead of an error.
func (e *Executor) Execute(ctx context.Context, req Request) (*Result, error) {
	command := strings.TrimSpace(req.Command)
	if command == "" {
		return nil, ErrInvalidCommand
	}

	if req.RequestID == "" {
		req.RequestID = uuid.New().String()
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	e.setStatus(StateExecuting, "running: "+clip(command, statusMessageLimit))
	start := time.Now()

	finalCommand, nativeDir, err := e.applyWorkingDir(command, req.WorkingDir)
	if err != nil {
		e.setStatus(StateError, "execution error: "+err.Error())
		return e.failure(req, command, start, err.Error()), nil
	}

	args := append(append([]string{}, e.Shell.Args...), finalCommand)
	cmd := exec.Command(e.Shell.Path, args...)
	cmd.Dir = nativeDir
	cmd.Env = e.environ()

	maxOutput := e.MaxOutput
	if maxOutput <= 0 {
		maxOutput = 1 << 20
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &limitWriter{buf: &stdout, limit: maxOutput}
	cmd.Stderr = &limitWriter{buf: &stderr, limit: maxOutput}

	// Stdin stays nil so the child reads from the null device. Some
	// shells block forever waiting for stdin data or EOF; never
	// attaching a pipe is a correctness requirement, not a tweak.
	cmd.Stdin = nil

	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		e.setStatus(StateError, "execution error: "+err.Error())
		return e.failure(req, command, start, err.Error()), nil
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var waitErr error
	select {
	case waitErr = <-done:
	case <-ctx.Done():
		out, errOut := e.killAndDrain(cmd, done, &stdout, &stderr)
		e.setStatus(StateReady, "command canceled")
		res := e.failure(req, command, start, fmt.Sprintf("execution canceled: %v", ctx.Err()))
		res.Stdout, res.Stderr = out, errOut
		res.Truncated = len(out) >= maxOutput || len(errOut) >= maxOutput
		return res, nil
	case <-timer.C:
		out, errOut := e.killAndDrain(cmd, done, &stdout, &stderr)
		e.setStatus(StateReady, "command timed out")
		res := e.failure(req, command, start, fmt.Sprintf("command timed out after %g seconds", timeout.Seconds()))
		res.Stdout, res.Stderr = out, errOut
		res.Truncated = len(out) >= maxOutput || len(errOut) >= maxOutput
		return res, nil
	}

	elapsed := time.Since(start)

	exitCode := 0
	if waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(waitErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			// Wait failed without an exit status: an IO-layer fault.
			e.setStatus(StateError, "execution error: "+waitErr.Error())
			res := e.failure(req, command, start, waitErr.Error())
			res.Stdout = stdout.String()
			res.Stderr = stderr.String()
			return res, nil
		}
	}

	e.mu.Lock()
	e.executed++
	e.mu.Unlock()

	if exitCode == 0 {
		e.setStatus(StateReady, "command completed")
	} else {
		e.setStatus(StateReady, fmt.Sprintf("command failed: exit code %d", exitCode))
	}

	return &Result{
		RequestID:     req.RequestID,
		Command:       command,
		Success:       exitCode == 0,
		Stdout:        stdout.String(),
		Stderr:        stderr.String(),
		ExitCode:      exitCode,
		ExecutionTime: elapsed.Seconds(),
		WorkingDir:    req.WorkingDir,
		Timestamp:     time.Now(),
		Truncated:     stdout.Len() >= maxOutput || stderr.Len() >= maxOutput,
	}, nil
}

// killAndDrain force-kills the process group, then waits up to
// drainGrace for the wait goroutine to hand the buffers back. On a
// drain timeout the buffers are still owned by the copier goroutines,
// so captured output is reported empty.
func (e *Executor) killAndDrain(cmd *exec.Cmd, done <-chan error, stdout, stderr *bytes.Buffer) (string, string) {
	killProcessGroup(cmd)
	select {
	case <-done:
		return stdout.String(), stderr.String()
	case <-time.After(drainGrace):
		return "", ""
	}
}

func (e *Executor) failure(req Request, command string, start time.Time, message string) *Result {
	return &Result{
		RequestID:     req.RequestID,
		Command:       command,
		Success:       false,
		ExitCode:      -1,
		ExecutionTime: time.Since(start).Seconds(),
		WorkingDir:    req.WorkingDir,
		Timestamp:     time.Now(),
		Error:         message,
	}
}

// applyWorkingDir resolves the working-directory mechanism for the
// request. The native spawn parameter is preferred; only a
// path-translating shell (Cygwin/MSYS on Windows) gets a cd prefix,
// because there the shell itself must resolve the translated path.
func (e *Executor) applyWorkingDir(command, workingDir string) (finalCommand, nativeDir string, err error) {
	if workingDir == "" {
		return command, "", nil
	}
	info, statErr := os.Stat(workingDir)
	if statErr != nil {
		return "", "", fmt.Errorf("working directory %q: %w", workingDir, statErr)
	}
	if !info.IsDir() {
		return "", "", fmt.Errorf("working directory %q is not a directory", workingDir)
	}

	if e.Shell.NeedsPathTranslation() {
		translated := translateWindowsPath(workingDir)
		return "cd " + quoteSingle(translated) + " && " + command, "", nil
	}
	return command, workingDir, nil
}

// environ builds the child environment: the host environment plus
// deterministic UTF-8 overrides so output decoding is stable across
// platforms, plus any executor-level extras.
func (e *Executor) environ() []string {
	env := append([]string{}, os.Environ()...)
	env = append(env, "LC_ALL=C.UTF-8", "LANG=C.UTF-8")
	if e.Shell.NeedsPathTranslation() {
		env = append(env, "CYGWIN=nodosfilewarning")
	}
	return append(env, e.Env...)
}

// quoteSingle wraps s in single quotes for a POSIX shell, escaping
// embedded single quotes. This is the quoting rule for the cd prefix
// fallback.
func quoteSingle(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

// translateWindowsPath rewrites a drive-letter path to the mount style
// Cygwin and MSYS use: C:\work\x -> /cygdrive/c/work/x.
func translateWindowsPath(p string) string {
	if len(p) < 2 || p[1] != ':' {
		return strings.ReplaceAll(p, `\`, "/")
	}
	drive := strings.ToLower(p[:1])
	rest := strings.ReplaceAll(strings.TrimPrefix(p[2:], `\`), `\`, "/")
	return "/cygdrive/" + drive + "/" + rest
}

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// limitWriter writes up to limit bytes to buf, then silently discards the rest.
type limitWriter struct {
	buf   *bytes.Buffer
	limit int
}

func (w *limitWriter) Write(p []byte) (int, error) {
	remaining := w.limit - w.buf.Len()
	if remaining <= 0 {
		return len(p), nil // discard
	}
	if len(p) > remaining {
		// Write only what fits, but report all bytes as consumed
		// to avoid short write errors from io.Copy.
		w.buf.Write(p[:remaining])
		return len(p), nil
	}
	return w.buf.Write(p)
}
