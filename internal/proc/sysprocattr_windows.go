//go:build windows

package proc

import "os/exec"

// Windows has no Setpgid equivalent; tree termination degrades to root-only
// delivery (see internal/proctree).
func configureSysProcAttr(cmd *exec.Cmd) {}

func shellInvocation(command string) (string, []string) {
	return "cmd", []string{"/C", command}
}
