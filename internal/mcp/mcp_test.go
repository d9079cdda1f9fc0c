package mcp

import (
	"context"
	"runtime"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/deixis/shellbridge/internal/config"
	"github.com/deixis/shellbridge/internal/executor"
	"github.com/deixis/shellbridge/internal/history"
	"github.com/deixis/shellbridge/internal/shell"
)

// setup creates a full bridge MCP server + client over in-memory transports.
func setup(t *testing.T) *mcp.ClientSession {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("tests assume a POSIX shell")
	}
	ctx := context.Background()

	sh, err := shell.Resolve()
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	cfg := &config.Config{RawTimeout: "10s"}
	exec := executor.New(sh, cfg.MaxOutputBytes())
	store := history.NewLRUStore(5, history.NewDiskStore(t.TempDir()))

	server := NewServer(cfg, exec, store)

	ct, st := mcp.NewInMemoryTransports()
	ss, err := server.Connect(ctx, st, nil)
	if err != nil {
		t.Fatalf("server.Connect: %v", err)
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "v0.0.1"}, nil)
	cs, err := client.Connect(ctx, ct, nil)
	if err != nil {
		t.Fatalf("client.Connect: %v", err)
	}

	t.Cleanup(func() {
		_ = cs.Close()
		_ = ss.Wait()
	})

	return cs
}

func callTool(t *testing.T, cs *mcp.ClientSession, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      name,
		Arguments: args,
	})
	if err != nil {
		t.Fatalf("CallTool(%s): %v", name, err)
	}
	return res
}

func resultText(r *mcp.CallToolResult) string {
	var parts []string
	for _, c := range r.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n")
}

// --- bridge_exec ---

func TestBridgeExec_Success(t *testing.T) {
	cs := setup(t)
	res := callTool(t, cs, "bridge_exec", map[string]any{"command": "echo hi"})
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	if !strings.Contains(text, "Exit code: 0") {
		t.Errorf("expected Exit code: 0, got:\n%s", text)
	}
	if !strings.Contains(text, "hi") {
		t.Errorf("expected stdout to appear, got:\n%s", text)
	}
}

func TestBridgeExec_EmptyCommand(t *testing.T) {
	cs := setup(t)
	res := callTool(t, cs, "bridge_exec", map[string]any{"command": "   "})
	if !res.IsError {
		t.Errorf("expected IsError for blank command, got:\n%s", resultText(res))
	}
}

func TestBridgeExec_NonZeroExit(t *testing.T) {
	cs := setup(t)
	res := callTool(t, cs, "bridge_exec", map[string]any{"command": "exit 7"})
	text := resultText(res)
	if res.IsError {
		t.Fatalf("non-zero exit is a result, not a tool error: %s", text)
	}
	if !strings.Contains(text, "Exit code: 7") {
		t.Errorf("expected Exit code: 7, got:\n%s", text)
	}
}

func TestBridgeExec_Timeout(t *testing.T) {
	cs := setup(t)
	res := callTool(t, cs, "bridge_exec", map[string]any{
		"command":         "sleep 10",
		"timeout_seconds": 1,
	})
	text := resultText(res)
	if !strings.Contains(text, "timed out") {
		t.Errorf("expected timeout message, got:\n%s", text)
	}
}

// --- bridge_status ---

func TestBridgeStatus(t *testing.T) {
	cs := setup(t)
	res := callTool(t, cs, "bridge_status", nil)
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	for _, want := range []string{"State:", "Shell:", "Commands executed:"} {
		if !strings.Contains(text, want) {
			t.Errorf("expected %q in status, got:\n%s", want, text)
		}
	}
}

// --- bridge_result ---

func TestBridgeResult_RoundTrip(t *testing.T) {
	cs := setup(t)
	execRes := callTool(t, cs, "bridge_exec", map[string]any{"command": "echo stored"})
	execText := resultText(execRes)

	var requestID string
	for _, line := range strings.Split(execText, "\n") {
		if strings.HasPrefix(line, "Request: ") {
			requestID = strings.TrimPrefix(line, "Request: ")
			break
		}
	}
	if requestID == "" {
		t.Fatalf("no request ID in exec output:\n%s", execText)
	}

	res := callTool(t, cs, "bridge_result", map[string]any{"request_id": requestID})
	text := resultText(res)
	if res.IsError {
		t.Fatalf("unexpected error: %s", text)
	}
	if !strings.Contains(text, "stored") {
		t.Errorf("expected stored stdout, got:\n%s", text)
	}
}

func TestBridgeResult_MissingID(t *testing.T) {
	cs := setup(t)
	_, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "bridge_result",
		Arguments: map[string]any{},
	})
	if err == nil {
		t.Error("expected error for missing request_id")
	}
}

func TestBridgeResult_UnknownID(t *testing.T) {
	cs := setup(t)
	res := callTool(t, cs, "bridge_result", map[string]any{"request_id": "no-such-id"})
	if !res.IsError {
		t.Error("expected IsError for unknown request_id")
	}
}
