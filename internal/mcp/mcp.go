// Package mcp provides the shellbridge MCP server, registering the
// bridge tools and publishing model instructions.
package mcp

import (
	_ "embed"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/shellbridge"
	"github.com/deixis/shellbridge/internal/config"
	"github.com/deixis/shellbridge/internal/executor"
	"github.com/deixis/shellbridge/internal/history"
)

//go:embed instructions.md
var Instructions string

// handler holds shared dependencies for all tool handlers.
type handler struct {
	exec           *executor.Executor
	store          history.Store
	defaultTimeout time.Duration
}

// NewServer creates an MCP server with all bridge tools registered.
// The executor is used in-process; no file relay is involved on this
// dispatch path.
func NewServer(cfg *config.Config, exec *executor.Executor, store history.Store) *mcp.Server {
	h := &handler{
		exec:           exec,
		store:          store,
		defaultTimeout: cfg.Timeout(),
	}

	mcpOpts := &mcp.ServerOptions{
		Instructions: Instructions,
		Capabilities: &mcp.ServerCapabilities{
			Tools: &mcp.ToolCapabilities{ListChanged: false},
		},
	}
	s := mcp.NewServer(&mcp.Implementation{Name: "shellbridge", Version: shellbridge.Version}, mcpOpts)

	mcp.AddTool(s, &mcp.Tool{
		Name: "bridge_exec",
		Description: `Execute a shell command on the host and return its structured result.

The command runs through the host's resolved shell with a hard timeout. The result
carries stdout, stderr, the exit code, and timing. A timed-out or unspawnable command
reports exit code -1 with an error message; a command that exits non-zero on its own
reports its real exit code with no error message.`,
	}, h.execHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "bridge_status",
		Description: `Report the bridge's advisory status: resolved shell, state, and commands executed.

Use this to verify the bridge is healthy and to see which shell commands run under.`,
	}, h.statusHandler)

	mcp.AddTool(s, &mcp.Tool{
		Name: "bridge_result",
		Description: `Fetch the stored result of a previous execution by its request_id.

Every bridge_exec result is retained for a while; use this to re-read output
without re-running the command.`,
	}, h.resultHandler)

	return s
}

// textResult is a helper to build a text-only tool result.
func textResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}, nil, nil
}

// errorResult is a helper to build an error tool result.
func errorResult(text string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
		IsError: true,
	}, nil, nil
}
