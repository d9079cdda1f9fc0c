package mcp

import (
	"context"
	"fmt"
	"strings"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

type statusParams struct{}

func (h *handler) statusHandler(ctx context.Context, req *sdkmcp.CallToolRequest, _ statusParams) (*sdkmcp.CallToolResult, any, error) {
	st := h.exec.Status()

	var b strings.Builder
	fmt.Fprintf(&b, "State: %s\n", st.State)
	if st.Message != "" {
		fmt.Fprintf(&b, "Message: %s\n", st.Message)
	}
	fmt.Fprintf(&b, "Shell: %s (%s)\n", st.ShellPath, st.ShellKind)
	fmt.Fprintf(&b, "Invocation args: %s\n", strings.Join(h.exec.Shell.Args, " "))
	fmt.Fprintf(&b, "Commands executed: %d\n", st.CommandsExecuted)
	fmt.Fprintf(&b, "Default timeout: %s\n", h.defaultTimeout)

	return textResult(b.String())
}
