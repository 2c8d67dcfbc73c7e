//go:build !windows

package proc

import (
	"os/exec"
	"syscall"
)

// The child gets its own process group so the terminator can address the
// whole descendant tree with one signal.
func configureSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func shellInvocation(command string) (string, []string) {
	return "/bin/sh", []string{"-c", command}
}
