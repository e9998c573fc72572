//go:build windows

// Windows-specific Platform implementation.
package platform

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sys/windows/registry"
)

// WindowsPlatform implements Platform for Windows systems.
type WindowsPlatform struct {
	smi *nvidiaSMI
}

// New creates a new Windows platform instance.
func New() Platform {
	return &WindowsPlatform{smi: newNvidiaSMI()}
}

// Name returns the platform identifier.
func (p *WindowsPlatform) Name() string { return "windows" }

// QueryGPUs queries nvidia-smi, which the NVIDIA driver installs on PATH.
func (p *WindowsPlatform) QueryGPUs(ctx context.Context) ([]GPUStats, error) {
	return p.smi.query(ctx)
}

var hives = map[string]registry.Key{
	"HKLM":               registry.LOCAL_MACHINE,
	"HKEY_LOCAL_MACHINE": registry.LOCAL_MACHINE,
	"HKCU":               registry.CURRENT_USER,
	"HKEY_CURRENT_USER":  registry.CURRENT_USER,
	"HKCR":               registry.CLASSES_ROOT,
	"HKEY_CLASSES_ROOT":  registry.CLASSES_ROOT,
}

// RegistryKeyExists opens the key read-only in both registry views.
func (p *WindowsPlatform) RegistryKeyExists(key string) (bool, error) {
	hiveName, path, ok := strings.Cut(key, `\`)
	if !ok {
		return false, fmt.Errorf("registry key %q has no hive", key)
	}
	hive, ok := hives[strings.ToUpper(hiveName)]
	if !ok {
		return false, fmt.Errorf("unknown registry hive %q", hiveName)
	}

	// 32-bit installers register under WOW6432Node; check both views.
	for _, view := range []uint32{registry.WOW64_64KEY, registry.WOW64_32KEY} {
		k, err := registry.OpenKey(hive, path, registry.QUERY_VALUE|view)
		if err == nil {
			k.Close()
			return true, nil
		}
		if !errors.Is(err, registry.ErrNotExist) {
			return false, fmt.Errorf("open registry key %s: %w", key, err)
		}
	}
	return false, nil
}
