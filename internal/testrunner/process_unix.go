//go:build unix

package testrunner

import (
	"os/exec"
	"syscall"
)

// setupProcessGroup configures the command to run in a new process
// group so its children can be cleaned up together.
func setupProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
}

// terminateProcessGroup sends SIGINT to the whole process group, the
// first stage of the two-stage grace.
func terminateProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}

	return syscall.Kill(-cmd.Process.Pid, syscall.SIGINT)
}

// killProcessGroup sends SIGKILL to the whole process group, the final
// stage of the two-stage grace.
func killProcessGroup(cmd *exec.Cmd) error {
	if cmd.Process == nil {
		return nil
	}

	return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
}
