//go:build !windows

package daemonclient

import (
	"os/exec"
	"syscall"
)

// detach puts cmd in its own session so it survives this process exiting
// (spec §4.8: the spawned daemon must outlive the client invocation).
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
}
