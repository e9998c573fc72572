//go:build windows

package config

import (
	"os"
	"path/filepath"
)

func configSearchPaths() []string {
	local := os.Getenv("LOCALAPPDATA")
	programData := os.Getenv("ProgramData")
	return []string{
		filepath.Join(local, "devdash", "config.yaml"),
		filepath.Join(programData, "devdash", "config.yaml"),
	}
}

// DataDir is where logs, the job archive and downloads live by default.
func DataDir() string {
	if local := os.Getenv("LOCALAPPDATA"); local != "" {
		return filepath.Join(local, "devdash")
	}
	return filepath.Join(os.TempDir(), "devdash")
}
