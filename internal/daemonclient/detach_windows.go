//go:build windows

package daemonclient

import (
	"os/exec"
	"syscall"
)

// detach marks cmd to run detached from the parent's console (spec §4.8).
func detach(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{CreationFlags: syscall.CREATE_NEW_PROCESS_GROUP}
}
