//go:build !windows

package platform

import "context"

// UnixPlatform is the Platform for Linux and macOS.
type UnixPlatform struct {
	smi *nvidiaSMI
}

// New creates the platform instance for the current OS.
func New() Platform {
	return &UnixPlatform{smi: newNvidiaSMI()}
}

// Name returns the platform identifier.
func (p *UnixPlatform) Name() string { return "unix" }

// QueryGPUs queries nvidia-smi.
func (p *UnixPlatform) QueryGPUs(ctx context.Context) ([]GPUStats, error) {
	return p.smi.query(ctx)
}

// QueryVideoControllers reports ErrNoGPU; adapters of other vendors are
// read through sysfs sensors instead.
func (p *UnixPlatform) QueryVideoControllers(context.Context) ([]GPUStats, error) {
	return nil, ErrNoGPU
}

// RegistryKeyExists always reports ErrNotSupported: there is no registry.
func (p *UnixPlatform) RegistryKeyExists(string) (bool, error) {
	return false, ErrNotSupported
}
