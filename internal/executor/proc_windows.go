//go:build windows

package executor

import "os/exec"

// setProcessGroup is a no-op on Windows; process groups are not
// available the way POSIX sessions are.
func setProcessGroup(cmd *exec.Cmd) {}

// killProcessGroup kills the direct child. Descendants spawned by the
// shell may survive; this is the documented fallback when group
// signaling is unavailable.
func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	_ = cmd.Process.Kill()
}
