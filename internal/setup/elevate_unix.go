//go:build linux || darwin

package setup

import "os"

// CheckElevation fails with ErrNotElevated when system mode is requested by
// a non-root user. User mode never needs it.
func CheckElevation(mode InstallMode) error {
	if mode == ModeUser || os.Geteuid() == 0 {
		return nil
	}
	return notElevated("root", "Run with sudo:\n  sudo "+os.Args[0]+" init --mode system")
}
