//go:build windows

package setup

import (
	"os"
	"path/filepath"

	"github.com/Guliveer/devdash/internal/config"
)

func ResolvePaths(mode InstallMode) Paths {
	if mode == ModeUser {
		base := filepath.Join(os.Getenv("LOCALAPPDATA"), "devdash")
		return newPaths(base, "devdash.exe", filepath.Join(base, "config.yaml"), config.DataDir())
	}
	programData := filepath.Join(os.Getenv("ProgramData"), "devdash")
	return newPaths(
		filepath.Join(os.Getenv("ProgramFiles"), "devdash"),
		"devdash.exe",
		filepath.Join(programData, "config.yaml"),
		programData,
	)
}
