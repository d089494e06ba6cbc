//go:build unix

package git

import (
	"os/exec"
	"syscall"
)

// setProcessGroup puts the child in its own process group and arranges
// for context cancellation to signal the whole group. git spawns ssh and
// credential helpers; killing only the direct child would leave those
// holding the network connection.
func setProcessGroup(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		if cmd.Process == nil {
			return nil
		}
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
	}
}
