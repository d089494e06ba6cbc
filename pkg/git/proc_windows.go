//go:build windows

package git

import "os/exec"

// setProcessGroup is a no-op on Windows; exec.CommandContext's default
// kill is the best available behavior there.
func setProcessGroup(_ *exec.Cmd) {}
