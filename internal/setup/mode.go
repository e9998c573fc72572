package setup

import (
	"errors"
	"fmt"
	"path/filepath"
)

// ErrNotElevated is returned by CheckElevation when system mode lacks the
// privileges to write machine-wide paths.
var ErrNotElevated = errors.New("system-wide setup requires elevated privileges")

func notElevated(role, hint string) error {
	return fmt.Errorf("%w (%s)\n\n%s", ErrNotElevated, role, hint)
}

// InstallMode selects a per-machine or per-user layout.
type InstallMode int

const (
	ModeSystem InstallMode = iota
	ModeUser
)

func (m InstallMode) String() string {
	switch m {
	case ModeSystem:
		return "system"
	case ModeUser:
		return "user"
	default:
		return "unknown"
	}
}

func ParseMode(s string) (InstallMode, error) {
	switch s {
	case "system":
		return ModeSystem, nil
	case "user":
		return ModeUser, nil
	default:
		return 0, fmt.Errorf("invalid install mode %q (expected \"system\" or \"user\")", s)
	}
}

// Paths is the on-disk layout for one mode. ConfigPath is always one of the
// locations config.Locate searches.
type Paths struct {
	BinDir      string
	BinPath     string
	ConfigPath  string
	DataDir     string
	DownloadDir string
	ArchiveDir  string
	LogFile     string
}

func newPaths(binDir, binName, configPath, dataDir string) Paths {
	return Paths{
		BinDir:      binDir,
		BinPath:     filepath.Join(binDir, binName),
		ConfigPath:  configPath,
		DataDir:     dataDir,
		DownloadDir: filepath.Join(dataDir, "downloads"),
		ArchiveDir:  filepath.Join(dataDir, "archive"),
		LogFile:     filepath.Join(dataDir, "devdash.log"),
	}
}
