// Package platform provides an OS abstraction layer for platform-specific
// functionality that cannot be handled by gopsutil alone.
// Each supported OS implements the Platform interface.
package platform

import (
	"context"
	"errors"
)

// ErrNotSupported is returned for queries the current OS cannot answer.
var ErrNotSupported = errors.New("not supported on this platform")

// GPUStats is one adapter as reported by the vendor CLI or the OS.
type GPUStats struct {
	Index        int
	Name         string
	Driver       string
	Utilization  float64
	MemoryUsed   uint64
	MemoryTotal  uint64
	TemperatureC *float64
}

// Platform provides OS-specific functionality beyond what gopsutil offers.
type Platform interface {
	// QueryGPUs lists NVIDIA adapters through nvidia-smi. It returns
	// ErrNoGPU when the tool is missing or reports no device.
	QueryGPUs(ctx context.Context) ([]GPUStats, error)

	// QueryVideoControllers lists display adapters of any vendor through
	// the OS. Memory used is not reported. It returns ErrNoGPU when there
	// is no adapter or the OS has no such query.
	QueryVideoControllers(ctx context.Context) ([]GPUStats, error)

	// RegistryKeyExists reports whether a registry key is present. The key
	// is given with its hive prefix, e.g. `HKLM\SOFTWARE\Mozilla`.
	RegistryKeyExists(key string) (bool, error)

	// Name returns the platform name (windows, unix).
	Name() string
}
