// Package connector runs the long-lived bridge service. It owns one
// executor bound to one resolved shell, watches the work directory for
// command files, writes responses, and projects advisory status to
// status.json for external observers.
package connector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/deixis/shellbridge/internal/config"
	"github.com/deixis/shellbridge/internal/executor"
	"github.com/deixis/shellbridge/internal/history"
	"github.com/deixis/shellbridge/internal/relay"
	"github.com/deixis/shellbridge/internal/shell"
)

// Guard errors for the service state machine. These signal caller
// misuse, unlike execution failures, which are encoded in results.
var (
	ErrAlreadyRunning = errors.New("connector is already running")
	ErrNotRunning     = errors.New("connector is not running")
)

// historyCapacity bounds the in-memory result cache.
const historyCapacity = 16

// Connector bridges file-relay requests to the executor. One instance
// serves one work directory; it assumes at most one in-flight
// execution at a time.
type Connector struct {
	workDir        string
	defaultTimeout time.Duration
	exec           *executor.Executor
	store          history.Store
	log            *zap.Logger

	mu      sync.Mutex
	running bool
	started time.Time
	stop    chan struct{}
	wg      sync.WaitGroup
}

// New resolves the shell once and prepares a connector for workDir.
// The resolved shell is reused for the connector's whole lifetime.
func New(cfg *config.Config, baseDir string, logger *zap.Logger) (*Connector, error) {
	var (
		sh  *shell.Descriptor
		err error
	)
	if cfg.ShellPath != "" {
		sh, err = shell.FromPath(cfg.ShellPath)
	} else {
		sh, err = shell.Resolve()
	}
	if err != nil {
		return nil, err
	}

	workDir := cfg.WorkDir(baseDir)
	if err := os.MkdirAll(workDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating work directory: %w", err)
	}

	exec := executor.New(sh, cfg.MaxOutputBytes())
	store := history.NewLRUStore(historyCapacity, history.NewDiskStore(filepath.Join(workDir, "results")))

	c := &Connector{
		workDir:        workDir,
		defaultTimeout: cfg.Timeout(),
		exec:           exec,
		store:          store,
		log:            logger,
	}

	// Until Start, status.json must read as not running so a relay
	// client probing it falls back to one-shot dispatch instead of
	// writing a command file nobody will consume.
	exec.MarkStopped("connector not started")
	c.projectStatus()
	logger.Info("connector initialized",
		zap.String("work_dir", workDir),
		zap.String("shell_path", sh.Path),
		zap.String("shell_kind", string(sh.Kind)))
	return c, nil
}

// Executor exposes the owned executor for in-process dispatch (MCP,
// one-shot CLI paths).
func (c *Connector) Executor() *executor.Executor { return c.exec }

// WorkDir returns the relay work directory.
func (c *Connector) WorkDir() string { return c.workDir }

// Start begins watching the work directory for command files. A
// second Start while running fails with ErrAlreadyRunning.
func (c *Connector) Start() error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return ErrAlreadyRunning
	}
	c.running = true
	c.started = time.Now()
	c.stop = make(chan struct{})
	stop := c.stop
	c.mu.Unlock()

	c.exec.MarkReady("connector started")
	c.projectStatus()

	c.wg.Add(1)
	go c.watch(stop)

	c.log.Info("connector started", zap.String("work_dir", c.workDir))
	return nil
}

// Stop halts the watcher and marks the connector stopped. Stopping an
// idle connector is a no-op. A stopped connector can be restarted
// with Start.
func (c *Connector) Stop() {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return
	}
	c.running = false
	close(c.stop)
	c.mu.Unlock()

	c.wg.Wait()

	c.exec.MarkStopped("connector stopped")
	c.projectStatus()
	c.log.Info("connector stopped")
}

// Running reports whether the connector is accepting requests.
func (c *Connector) Running() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}

// Execute runs one request through the owned executor and records the
// result in the history store. It fails with ErrNotRunning when the
// connector is stopped, and with executor.ErrInvalidCommand for an
// empty command; every runtime failure comes back inside the result.
func (c *Connector) Execute(ctx context.Context, req executor.Request) (*executor.Result, error) {
	if !c.Running() {
		return nil, ErrNotRunning
	}
	if req.Timeout <= 0 {
		req.Timeout = c.defaultTimeout
	}

	c.projectStatus()
	res, err := c.exec.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	if err := c.store.Save(res); err != nil {
		c.log.Warn("saving result to history", zap.String("request_id", res.RequestID), zap.Error(err))
	}
	c.projectStatus()

	c.log.Info("command finished",
		zap.String("request_id", res.RequestID),
		zap.Bool("success", res.Success),
		zap.Int("exit_code", res.ExitCode),
		zap.Float64("execution_time", res.ExecutionTime))
	return res, nil
}

// Result returns a previously executed result by request ID.
func (c *Connector) Result(requestID string) (*executor.Result, error) {
	return c.store.Load(requestID)
}

// processCommandFile handles one request file dropped into the work
// directory: execute, write the response atomically, remove the
// request. Any connector-layer fault still produces a well-formed
// response file.
func (c *Connector) processCommandFile() {
	path := filepath.Join(c.workDir, relay.CommandFile)
	data, err := os.ReadFile(path)
	if err != nil {
		// Already consumed, or not fully visible yet.
		return
	}

	var cmd relay.Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		c.log.Error("malformed command file", zap.Error(err))
		c.writeResponse(c.connectorFailure(cmd, fmt.Sprintf("connector error: %v", err)))
		_ = os.Remove(path)
		return
	}

	req := executor.Request{
		Command:    cmd.Command,
		WorkingDir: cmd.WorkingDir,
		Timeout:    time.Duration(cmd.Timeout * float64(time.Second)),
		RequestID:  cmd.ID,
	}

	res, err := c.Execute(context.Background(), req)
	if err != nil {
		res = c.connectorFailure(cmd, err.Error())
	}
	c.writeResponse(res)
	_ = os.Remove(path)
}

// connectorFailure builds a response for faults that never reached the
// executor (malformed file, empty command, stopped service).
func (c *Connector) connectorFailure(cmd relay.Command, message string) *executor.Result {
	id := cmd.ID
	if id == "" {
		id = "unknown"
	}
	return &executor.Result{
		RequestID:  id,
		Command:    cmd.Command,
		Success:    false,
		ExitCode:   -1,
		WorkingDir: cmd.WorkingDir,
		Timestamp:  time.Now(),
		Error:      message,
	}
}

func (c *Connector) writeResponse(res *executor.Result) {
	data, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		c.log.Error("marshalling response", zap.Error(err))
		return
	}
	if err := relay.WriteAtomic(filepath.Join(c.workDir, relay.ResponseFile), data); err != nil {
		c.log.Error("writing response", zap.Error(err))
	}
}

// projectStatus writes the executor's advisory status to status.json.
// The file is a projection for external observers only; nothing
// synchronizes on it.
func (c *Connector) projectStatus() {
	st := c.exec.Status()

	c.mu.Lock()
	var uptime float64
	if !c.started.IsZero() {
		uptime = time.Since(c.started).Seconds()
	}
	c.mu.Unlock()

	wire := relay.Status{
		Status:           string(st.State),
		Message:          st.Message,
		Timestamp:        st.Timestamp,
		WorkDir:          c.workDir,
		ShellPath:        c.exec.Shell.Path,
		ShellKind:        string(c.exec.Shell.Kind),
		ShellArgs:        c.exec.Shell.Args,
		CommandsExecuted: st.CommandsExecuted,
		Uptime:           uptime,
		PID:              os.Getpid(),
	}
	data, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		c.log.Error("marshalling status", zap.Error(err))
		return
	}
	if err := relay.WriteAtomic(filepath.Join(c.workDir, relay.StatusFile), data); err != nil {
		c.log.Error("writing status", zap.Error(err))
	}
}
