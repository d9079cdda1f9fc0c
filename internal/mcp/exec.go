package mcp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/shellbridge/internal/executor"
)

type execParams struct {
	Command        string  `json:"command" jsonschema:"the shell command to execute"`
	WorkingDir     string  `json:"working_dir,omitempty" jsonschema:"existing directory the command runs in"`
	TimeoutSeconds float64 `json:"timeout_seconds,omitempty" jsonschema:"execution timeout in seconds; the configured default applies when omitted"`
}

func (h *handler) execHandler(ctx context.Context, req *sdkmcp.CallToolRequest, params execParams) (*sdkmcp.CallToolResult, any, error) {
	timeout := h.defaultTimeout
	if params.TimeoutSeconds > 0 {
		timeout = time.Duration(params.TimeoutSeconds * float64(time.Second))
	}

	res, err := h.exec.Execute(ctx, executor.Request{
		Command:    params.Command,
		WorkingDir: params.WorkingDir,
		Timeout:    timeout,
	})
	if err != nil {
		if errors.Is(err, executor.ErrInvalidCommand) {
			return errorResult("command is required and must not be blank")
		}
		return errorResult(fmt.Sprintf("execution failed: %v", err))
	}

	// History is best-effort; the live result still goes back either way.
	_ = h.store.Save(res)

	return textResult(formatResult(res))
}

// formatResult renders a result for the assistant: outcome first, then
// captured output.
func formatResult(res *executor.Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Request: %s\n", res.RequestID)
	switch {
	case res.Success:
		fmt.Fprintf(&b, "Exit code: 0 (%.2fs)\n", res.ExecutionTime)
	case res.Error != "":
		fmt.Fprintf(&b, "Failed: %s (%.2fs)\n", res.Error, res.ExecutionTime)
	default:
		fmt.Fprintf(&b, "Exit code: %d (%.2fs)\n", res.ExitCode, res.ExecutionTime)
	}
	if res.Truncated {
		fmt.Fprintln(&b, "Output was truncated at the configured cap.")
	}

	if res.Stdout != "" {
		fmt.Fprintf(&b, "\nstdout:\n%s", ensureNewline(res.Stdout))
	}
	if res.Stderr != "" {
		fmt.Fprintf(&b, "\nstderr:\n%s", ensureNewline(res.Stderr))
	}
	if res.Stdout == "" && res.Stderr == "" {
		fmt.Fprintln(&b, "\n(no output)")
	}

	return b.String()
}

func ensureNewline(s string) string {
	if strings.HasSuffix(s, "\n") {
		return s
	}
	return s + "\n"
}
