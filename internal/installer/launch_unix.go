//go:build unix

package installer

import (
	"fmt"
	"os"
	"os/exec"
	"syscall"
)

// prepareExecutable makes the downloaded file runnable.
func prepareExecutable(path string) error {
	if err := os.Chmod(path, 0755); err != nil {
		return fmt.Errorf("chmod installer: %w", err)
	}
	return nil
}

// configureCommand puts the installer in its own process group so a
// terminal interrupt aimed at the dashboard does not reach it.
func configureCommand(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}
