// Command shellbridge bridges a desktop assistant to shell command
// execution on the local host.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"time"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/shellbridge"
	"github.com/deixis/shellbridge/internal/config"
	"github.com/deixis/shellbridge/internal/connector"
	"github.com/deixis/shellbridge/internal/executor"
	"github.com/deixis/shellbridge/internal/history"
	"github.com/deixis/shellbridge/internal/logging"
	bridgemcp "github.com/deixis/shellbridge/internal/mcp"
	"github.com/deixis/shellbridge/internal/relay"
	"github.com/deixis/shellbridge/internal/shell"
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("shellbridge: ")

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "start":
		err = startMain(args)
	case "stop":
		err = stopMain(args)
	case "status":
		err = statusMain(args)
	case "exec":
		err = execMain(args)
	case "test":
		err = testMain(args)
	case "mcp":
		err = mcpMain(args)
	case "version":
		fmt.Println(shellbridge.Version)
	case "help", "-h", "--help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "shellbridge: unknown command %q\n", cmd)
		usage()
		os.Exit(2)
	}

	if err != nil {
		log.Fatal(err)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `Usage: shellbridge <command> [flags] [args]

Commands:
  start       Run the connector service (file relay) until interrupted
  stop        Ask a running connector to shut down
  status      Show the connector status
  exec        Execute a command (via a running connector, or one-shot)
  test        Check shell connectivity with a few probe commands
  mcp         Start the MCP server (stdio, or HTTP with -http)
  version     Print the version
  help        Show this help

Use "shellbridge <command> -h" for command-specific flags.`)
}

// commonFlags are the config overrides shared by most subcommands.
type commonFlags struct {
	workDir string
	shell   string
	timeout time.Duration
}

func (f *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&f.workDir, "work-dir", "", "work directory for relay files")
	fs.StringVar(&f.shell, "shell", "", "path to the shell executable")
	fs.DurationVar(&f.timeout, "timeout", 0, "default command timeout (e.g. 45s)")
}

// loadConfig reads .shellbridge from the current directory and applies
// flag overrides on top of file and environment values.
func loadConfig(f *commonFlags) (*config.Config, string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, "", fmt.Errorf("determining working directory: %w", err)
	}
	cfg, err := config.Load(cwd)
	if err != nil {
		return nil, "", fmt.Errorf("loading config: %w", err)
	}
	if f.workDir != "" {
		cfg.RawWorkDir = f.workDir
	}
	if f.shell != "" {
		cfg.ShellPath = f.shell
	}
	if f.timeout > 0 {
		cfg.RawTimeout = f.timeout.String()
	}
	return cfg, cwd, nil
}

// --- start ---

func startMain(args []string) error {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	var cf commonFlags
	cf.register(fs)
	logLevel := fs.String("log-level", "", "log level (debug, info, warn, error)")
	_ = fs.Parse(args)

	cfg, cwd, err := loadConfig(&cf)
	if err != nil {
		return err
	}
	if *logLevel != "" {
		cfg.RawLogLevel = *logLevel
	}

	logger, err := logging.New(cfg.LogLevel(), "json")
	if err != nil {
		return err
	}
	defer logger.Sync()

	c, err := connector.New(cfg, cwd, logger)
	if err != nil {
		return err
	}
	if err := c.Start(); err != nil {
		return err
	}

	fmt.Printf("connector started\n")
	fmt.Printf("  work dir: %s\n", c.WorkDir())
	fmt.Printf("  shell:    %s\n", c.Executor().Shell.Path)
	fmt.Printf("  timeout:  %s\n", cfg.Timeout())
	fmt.Println("press Ctrl+C to stop")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	<-ctx.Done()

	fmt.Println("stopping connector")
	c.Stop()
	return nil
}

// --- stop ---

func stopMain(args []string) error {
	fs := flag.NewFlagSet("stop", flag.ExitOnError)
	var cf commonFlags
	cf.register(fs)
	_ = fs.Parse(args)

	cfg, cwd, err := loadConfig(&cf)
	if err != nil {
		return err
	}
	workDir := cfg.WorkDir(cwd)

	if err := relay.SignalStop(workDir); err != nil {
		if errors.Is(err, relay.ErrNotRunning) {
			return fmt.Errorf("no connector is running in %s", workDir)
		}
		return err
	}
	fmt.Println("stop signal sent")
	return nil
}

// --- status ---

func statusMain(args []string) error {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	var cf commonFlags
	cf.register(fs)
	_ = fs.Parse(args)

	cfg, cwd, err := loadConfig(&cf)
	if err != nil {
		return err
	}

	st, err := relay.ReadStatus(cfg.WorkDir(cwd))
	if err != nil {
		if errors.Is(err, relay.ErrNotRunning) {
			fmt.Println("status: not running")
			return nil
		}
		return err
	}

	fmt.Printf("status:            %s\n", strings.ToUpper(st.Status))
	if st.Message != "" {
		fmt.Printf("message:           %s\n", st.Message)
	}
	fmt.Printf("work dir:          %s\n", st.WorkDir)
	fmt.Printf("shell:             %s (%s)\n", st.ShellPath, st.ShellKind)
	fmt.Printf("commands executed: %d\n", st.CommandsExecuted)
	fmt.Printf("uptime:            %.1fs\n", st.Uptime)
	fmt.Printf("pid:               %d\n", st.PID)
	return nil
}

// --- exec ---

func execMain(args []string) error {
	fs := flag.NewFlagSet("exec", flag.ExitOnError)
	var cf commonFlags
	cf.register(fs)
	workingDir := fs.String("C", "", "directory the command runs in")
	_ = fs.Parse(args)

	command := strings.Join(fs.Args(), " ")
	if strings.TrimSpace(command) == "" {
		return fmt.Errorf("usage: shellbridge exec [flags] <command>")
	}

	cfg, cwd, err := loadConfig(&cf)
	if err != nil {
		return err
	}
	workDir := cfg.WorkDir(cwd)
	timeout := cfg.Timeout()

	var res *executor.Result
	if relay.Running(workDir) {
		res, err = relay.Send(workDir, relay.Command{
			Command:    command,
			WorkingDir: *workingDir,
			Timeout:    timeout.Seconds(),
		})
	} else {
		res, err = oneShot(cfg, command, *workingDir, timeout)
	}
	if err != nil {
		return err
	}

	printResult(res)
	if !res.Success {
		os.Exit(1)
	}
	return nil
}

// oneShot executes directly in-process when no connector daemon owns
// the work directory.
func oneShot(cfg *config.Config, command, workingDir string, timeout time.Duration) (*executor.Result, error) {
	sh, err := resolveShell(cfg)
	if err != nil {
		return nil, err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	exec := executor.New(sh, cfg.MaxOutputBytes())
	return exec.Execute(ctx, executor.Request{
		Command:    command,
		WorkingDir: workingDir,
		Timeout:    timeout,
	})
}

func resolveShell(cfg *config.Config) (*shell.Descriptor, error) {
	if cfg.ShellPath != "" {
		return shell.FromPath(cfg.ShellPath)
	}
	return shell.Resolve()
}

func printResult(res *executor.Result) {
	switch {
	case res.Success:
		fmt.Printf("ok (%.2fs)\n", res.ExecutionTime)
	case res.Error != "":
		fmt.Printf("FAIL: %s (%.2fs)\n", res.Error, res.ExecutionTime)
	default:
		fmt.Printf("FAIL: exit code %d (%.2fs)\n", res.ExitCode, res.ExecutionTime)
	}
	if res.Truncated {
		fmt.Println("(output truncated)")
	}
	if res.Stdout != "" {
		fmt.Print(res.Stdout)
		if !strings.HasSuffix(res.Stdout, "\n") {
			fmt.Println()
		}
	}
	if res.Stderr != "" {
		fmt.Fprint(os.Stderr, res.Stderr)
		if !strings.HasSuffix(res.Stderr, "\n") {
			fmt.Fprintln(os.Stderr)
		}
	}
}

// --- test ---

func testMain(args []string) error {
	fs := flag.NewFlagSet("test", flag.ExitOnError)
	var cf commonFlags
	cf.register(fs)
	_ = fs.Parse(args)

	cfg, _, err := loadConfig(&cf)
	if err != nil {
		return err
	}
	sh, err := resolveShell(cfg)
	if err != nil {
		return err
	}

	fmt.Printf("shell: %s (%s)\n", sh.Path, sh.Kind)

	exec := executor.New(sh, cfg.MaxOutputBytes())
	probes := []string{"echo 'hello from shellbridge'", "pwd", "whoami"}

	failed := 0
	for _, probe := range probes {
		res, err := exec.Execute(context.Background(), executor.Request{
			Command: probe,
			Timeout: 10 * time.Second,
		})
		if err != nil {
			return err
		}
		if res.Success {
			fmt.Printf("  ok   %-35s %s\n", probe, strings.TrimSpace(res.Stdout))
		} else {
			failed++
			reason := res.Error
			if reason == "" {
				reason = fmt.Sprintf("exit code %d", res.ExitCode)
			}
			fmt.Printf("  FAIL %-35s %s\n", probe, reason)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d probes failed", failed, len(probes))
	}
	fmt.Println("all probes passed")
	return nil
}

// --- mcp ---

func mcpMain(args []string) error {
	fs := flag.NewFlagSet("mcp", flag.ExitOnError)
	var cf commonFlags
	cf.register(fs)
	instructions := fs.Bool("instructions", false, "print model instructions and exit")
	httpAddr := fs.String("http", "", "start HTTP server on address (e.g. :9090)")
	_ = fs.Parse(args)

	if *instructions {
		fmt.Print(bridgemcp.Instructions)
		return nil
	}

	cfg, cwd, err := loadConfig(&cf)
	if err != nil {
		return err
	}
	sh, err := resolveShell(cfg)
	if err != nil {
		return err
	}

	exec := executor.New(sh, cfg.MaxOutputBytes())
	store := history.NewLRUStore(16, history.NewDiskStore(filepath.Join(cfg.WorkDir(cwd), "results")))
	server := bridgemcp.NewServer(cfg, exec, store)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if *httpAddr != "" {
		return serveHTTP(ctx, server, *httpAddr)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, addr string) error {
	handler := mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	)

	httpServer := &http.Server{
		Addr:    addr,
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	log.Printf("listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
