//go:build linux || darwin

package config

import (
	"os"
	"path/filepath"
)

func configSearchPaths() []string {
	home, _ := os.UserHomeDir()
	return []string{
		filepath.Join(home, ".devdash", "config.yaml"),
		"/etc/devdash/config.yaml",
	}
}

// DataDir is where logs, the job archive and downloads live by default.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(os.TempDir(), "devdash")
	}
	return filepath.Join(home, ".devdash")
}
