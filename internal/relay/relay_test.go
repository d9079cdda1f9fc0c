package relay

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/deixis/shellbridge/internal/executor"
)

func TestWriteAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.json")
	if err := WriteAtomic(path, []byte(`{"ok":true}`)); err != nil {
		t.Fatalf("WriteAtomic: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != `{"ok":true}` {
		t.Errorf("content = %q", data)
	}

	// No temp litter may remain.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries, want 1", len(entries))
	}
}

func TestReadStatus_NotRunning(t *testing.T) {
	if _, err := ReadStatus(t.TempDir()); !errors.Is(err, ErrNotRunning) {
		t.Errorf("err = %v, want ErrNotRunning", err)
	}
}

func TestRunning(t *testing.T) {
	dir := t.TempDir()
	if Running(dir) {
		t.Error("Running = true with no status file")
	}

	st := Status{Status: "ready", PID: os.Getpid()}
	data, _ := json.Marshal(st)
	if err := WriteAtomic(filepath.Join(dir, StatusFile), data); err != nil {
		t.Fatal(err)
	}
	if !Running(dir) {
		t.Error("Running = false with ready status")
	}

	st.Status = "stopped"
	data, _ = json.Marshal(st)
	if err := WriteAtomic(filepath.Join(dir, StatusFile), data); err != nil {
		t.Fatal(err)
	}
	if Running(dir) {
		t.Error("Running = true with stopped status")
	}
}

// TestSend_FakeResponder drives the client side against a minimal
// in-test responder, without a full connector.
func TestSend_FakeResponder(t *testing.T) {
	dir := t.TempDir()

	done := make(chan struct{})
	go func() {
		defer close(done)
		commandPath := filepath.Join(dir, CommandFile)
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			data, err := os.ReadFile(commandPath)
			if err != nil {
				time.Sleep(20 * time.Millisecond)
				continue
			}
			var cmd Command
			if err := json.Unmarshal(data, &cmd); err != nil {
				return
			}
			res := executor.Result{
				RequestID: cmd.ID,
				Command:   cmd.Command,
				Success:   true,
				Stdout:    "pong\n",
				Timestamp: time.Now(),
			}
			out, _ := json.Marshal(&res)
			_ = WriteAtomic(filepath.Join(dir, ResponseFile), out)
			_ = os.Remove(commandPath)
			return
		}
	}()

	res, err := Send(dir, Command{Command: "ping", Timeout: 5})
	<-done
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if !res.Success || res.Stdout != "pong\n" {
		t.Errorf("result = %+v, want pong", res)
	}
	if res.RequestID == "" {
		t.Error("RequestID was not generated")
	}

	// Response file must be consumed by the client.
	if _, err := os.Stat(filepath.Join(dir, ResponseFile)); !os.IsNotExist(err) {
		t.Error("response file still present after Send")
	}
}

func TestSend_RemovesStaleResponse(t *testing.T) {
	dir := t.TempDir()
	stale := executor.Result{RequestID: "stale", Success: true}
	data, _ := json.Marshal(&stale)
	if err := WriteAtomic(filepath.Join(dir, ResponseFile), data); err != nil {
		t.Fatal(err)
	}

	go func() {
		commandPath := filepath.Join(dir, CommandFile)
		deadline := time.Now().Add(5 * time.Second)
		for time.Now().Before(deadline) {
			data, err := os.ReadFile(commandPath)
			if err != nil {
				time.Sleep(20 * time.Millisecond)
				continue
			}
			var cmd Command
			_ = json.Unmarshal(data, &cmd)
			res := executor.Result{RequestID: cmd.ID, Success: true}
			out, _ := json.Marshal(&res)
			_ = WriteAtomic(filepath.Join(dir, ResponseFile), out)
			_ = os.Remove(commandPath)
			return
		}
	}()

	res, err := Send(dir, Command{ID: "fresh", Command: "ping", Timeout: 5})
	if err != nil {
		t.Fatalf("Send: %v", err)
	}
	if res.RequestID != "fresh" {
		t.Errorf("RequestID = %q, want fresh (stale response must not satisfy a new request)", res.RequestID)
	}
}
