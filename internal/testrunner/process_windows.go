//go:build windows

package testrunner

import (
	"os/exec"
	"syscall"
)

// setupProcessGroup configures the command to use a Windows process
// group. Windows process semantics differ from Unix; this is
// best-effort.
func setupProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.CreationFlags = syscall.CREATE_NEW_PROCESS_GROUP
}

// terminateProcessGroup has no Windows equivalent of SIGINT for an
// arbitrary process group; it is a no-op, and killProcessGroup performs
// the actual termination.
func terminateProcessGroup(_ *exec.Cmd) error {
	return nil
}

// killProcessGroup kills the process. Windows has no Unix-style process
// groups, so this may not reap every child.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}

	return cmd.Process.Kill()
}
