// System collector: OS name/version, hostname, uptime and boot time.
// OS identity is resolved with platform-specific methods and cached, since it
// does not change while the process runs:
//   - Linux: reads /etc/os-release
//   - macOS: uses sw_vers
//   - Windows: queries Win32_OperatingSystem via PowerShell
package collector

import (
	"context"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/host"

	"github.com/Guliveer/devdash/internal/models"
)

type osInfo struct {
	OSVersion string // e.g., "14.2.1", "22.04", "10.0.22631"
	OSName    string // e.g., "macOS", "Ubuntu 22.04.4 LTS", "Microsoft Windows 11 Pro"
}

// SystemCollector collects host identity and uptime.
type SystemCollector struct {
	bootTime func(ctx context.Context) (uint64, error)
	hostname func() (string, error)
	osInfo   func(ctx context.Context) osInfo
	now      func() time.Time

	once  sync.Once
	cache osInfo
}

// NewSystemCollector creates a new system collector.
func NewSystemCollector() *SystemCollector {
	return &SystemCollector{
		bootTime: host.BootTimeWithContext,
		hostname: os.Hostname,
		osInfo:   collectOSInfo,
		now:      time.Now,
	}
}

// Name returns the collector identifier.
func (c *SystemCollector) Name() string { return "system" }

// Category returns models.CategorySystem.
func (c *SystemCollector) Category() models.Category { return models.CategorySystem }

// Collect gathers host info. Uptime is derived from the boot time so it
// advances between samples without another syscall.
func (c *SystemCollector) Collect(ctx context.Context) (models.Reading, error) {
	boot, err := c.bootTime(ctx)
	if err != nil {
		return models.Reading{}, err
	}
	c.once.Do(func() { c.cache = c.osInfo(ctx) })

	hostname, _ := c.hostname()
	now := c.now()
	bootAt := time.Unix(int64(boot), 0)
	uptime := now.Sub(bootAt)
	if uptime < 0 {
		uptime = 0
	}

	r := newReading(models.CategorySystem, now)
	r.System = &models.SystemReading{
		OSName:    c.cache.OSName,
		OSVersion: c.cache.OSVersion,
		Hostname:  hostname,
		Uptime:    uptime.Truncate(time.Second),
		BootTime:  bootAt,
	}
	return r, nil
}

// IsAvailable returns true; host info is available on all platforms.
func (c *SystemCollector) IsAvailable() bool { return true }

// collectOSInfo dispatches to platform-specific collection logic.
func collectOSInfo(ctx context.Context) osInfo {
	switch runtime.GOOS {
	case "linux":
		return collectLinuxOSInfo(ctx)
	case "darwin":
		return collectDarwinOSInfo(ctx)
	case "windows":
		return collectWindowsOSInfo(ctx)
	default:
		return osInfo{
			OSName:    runtime.GOOS,
			OSVersion: "unknown",
		}
	}
}

// collectLinuxOSInfo reads /etc/os-release to determine the Linux distribution
// name and version. Falls back to lsb_release if the file is unavailable.
func collectLinuxOSInfo(ctx context.Context) osInfo {
	result := osInfo{
		OSName:    "Linux",
		OSVersion: "unknown",
	}

	// /etc/os-release is present on most modern distros
	out, err := os.ReadFile("/etc/os-release")
	if err == nil {
		fields := parseKeyValueFile(string(out))
		if name, ok := fields["NAME"]; ok {
			result.OSName = strings.Trim(name, "\"")
		}
		if version, ok := fields["VERSION_ID"]; ok {
			result.OSVersion = strings.Trim(version, "\"")
		}
		// If we have PRETTY_NAME, use it as the OS name for richer info
		if pretty, ok := fields["PRETTY_NAME"]; ok {
			result.OSName = strings.Trim(pretty, "\"")
		}
		return result
	}

	// Fallback: try lsb_release
	out, err = exec.CommandContext(ctx, "lsb_release", "-d", "-s").Output()
	if err == nil {
		result.OSName = strings.TrimSpace(string(out))
	}

	out, err = exec.CommandContext(ctx, "lsb_release", "-r", "-s").Output()
	if err == nil {
		result.OSVersion = strings.TrimSpace(string(out))
	}

	return result
}

// collectDarwinOSInfo uses sw_vers to determine macOS name and version.
func collectDarwinOSInfo(ctx context.Context) osInfo {
	result := osInfo{
		OSName:    "macOS",
		OSVersion: "unknown",
	}

	// Get product version (e.g., "14.2.1")
	out, err := exec.CommandContext(ctx, "sw_vers", "-productVersion").Output()
	if err == nil {
		result.OSVersion = strings.TrimSpace(string(out))
	}

	// Get product name (e.g., "macOS")
	out, err = exec.CommandContext(ctx, "sw_vers", "-productName").Output()
	if err == nil {
		name := strings.TrimSpace(string(out))
		if name != "" {
			result.OSName = name
		}
	}

	return result
}

// collectWindowsOSInfo uses PowerShell to determine Windows version information.
func collectWindowsOSInfo(ctx context.Context) osInfo {
	result := osInfo{
		OSName:    "Windows",
		OSVersion: "unknown",
	}

	// Use PowerShell to get OS caption and version
	out, err := exec.CommandContext(ctx, "powershell", "-NoProfile", "-Command",
		"(Get-CimInstance Win32_OperatingSystem).Caption").Output()
	if err == nil {
		caption := strings.TrimSpace(string(out))
		if caption != "" {
			result.OSName = caption
		}
	}

	out, err = exec.CommandContext(ctx, "powershell", "-NoProfile", "-Command",
		"(Get-CimInstance Win32_OperatingSystem).Version").Output()
	if err == nil {
		version := strings.TrimSpace(string(out))
		if version != "" {
			result.OSVersion = version
		}
	}

	return result
}

// parseKeyValueFile parses a file with KEY=VALUE lines (like /etc/os-release).
func parseKeyValueFile(content string) map[string]string {
	fields := make(map[string]string)
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) == 2 {
			fields[parts[0]] = parts[1]
		}
	}
	return fields
}
