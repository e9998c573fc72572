package catalog

import (
	"context"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// installerPrefix is the executable name prefix of bundle installers.
const installerPrefix = "ninite"

// isInstallerProcess matches ninite*.exe case-insensitively.
func isInstallerProcess(name string) bool {
	n := strings.ToLower(strings.TrimSpace(name))
	return strings.HasPrefix(n, installerPrefix) && strings.HasSuffix(n, ".exe")
}

// ProcessLister returns the names of running processes.
type ProcessLister func(ctx context.Context) ([]string, error)

// ListProcesses lists process names through gopsutil. Processes whose name
// cannot be read are skipped.
func ListProcesses(ctx context.Context) ([]string, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(procs))
	for _, p := range procs {
		name, err := p.NameWithContext(ctx)
		if err != nil || name == "" {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

// InstallerRunning reports whether a bundle installer process is alive.
// A nil lister uses ListProcesses.
func InstallerRunning(ctx context.Context, list ProcessLister) (bool, error) {
	if list == nil {
		list = ListProcesses
	}
	names, err := list(ctx)
	if err != nil {
		return false, err
	}
	for _, n := range names {
		if isInstallerProcess(n) {
			return true, nil
		}
	}
	return false, nil
}
