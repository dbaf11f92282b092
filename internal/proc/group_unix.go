//go:build unix

package proc

import (
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// setProcessGroup puts the child in its own process group so cancellation
// also reaches the programs it spawns.
func setProcessGroup(cmd *exec.Cmd) {
	if cmd.SysProcAttr == nil {
		cmd.SysProcAttr = &syscall.SysProcAttr{}
	}
	cmd.SysProcAttr.Setpgid = true
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		pgid, err := unix.Getpgid(cmd.Process.Pid)
		if err == nil && pgid > 0 {
			if err := unix.Kill(-pgid, unix.SIGKILL); err == nil {
				return nil
			}
		}
		return cmd.Process.Kill()
	}
}
