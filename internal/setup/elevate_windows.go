//go:build windows

package setup

import (
	"fmt"
	"os"

	"golang.org/x/sys/windows"
)

// CheckElevation fails with ErrNotElevated when system mode is requested
// from a token without Administrator rights. User mode never needs it.
func CheckElevation(mode InstallMode) error {
	if mode == ModeUser {
		return nil
	}
	var token windows.Token
	if err := windows.OpenProcessToken(windows.CurrentProcess(), windows.TOKEN_QUERY, &token); err != nil {
		return fmt.Errorf("cannot check elevation: %w", err)
	}
	defer token.Close()

	if token.IsElevated() {
		return nil
	}
	return notElevated("Administrator", "Run from an elevated prompt:\n  "+os.Args[0]+" init --mode system")
}
