//go:build linux || darwin

package setup

import (
	"os"
	"path/filepath"

	"github.com/Guliveer/devdash/internal/config"
)

func ResolvePaths(mode InstallMode) Paths {
	if mode == ModeUser {
		home, _ := os.UserHomeDir()
		base := filepath.Join(home, ".devdash")
		return newPaths(filepath.Join(base, "bin"), "devdash", filepath.Join(base, "config.yaml"), config.DataDir())
	}
	return newPaths("/usr/local/bin", "devdash", "/etc/devdash/config.yaml", "/var/lib/devdash")
}
