//go:build !windows

package executor

import (
	"os/exec"
	"syscall"
)

// setProcessGroup places the child in its own process group so a
// timeout can terminate the shell and every descendant it forked as a
// unit. Killing only the direct child would leak grandchildren.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

// killProcessGroup force-kills the child's process group, falling back
// to the direct child if group signaling fails.
func killProcessGroup(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	if err := syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL); err != nil {
		_ = cmd.Process.Kill()
	}
}
