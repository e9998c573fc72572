//go:build windows

package installer

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sys/windows"
)

// prepareExecutable checks that path is an .exe that still exists.
func prepareExecutable(path string) error {
	if !strings.EqualFold(filepath.Ext(path), ".exe") {
		return fmt.Errorf("installer %s is not an .exe", filepath.Base(path))
	}
	if _, err := os.Stat(path); err != nil {
		return err
	}
	return nil
}

// configureCommand starts the installer in its own process group so a
// console interrupt aimed at the dashboard does not reach it.
func configureCommand(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{
		CreationFlags: windows.CREATE_NEW_PROCESS_GROUP,
	}
}
