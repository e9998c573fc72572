//go:build windows

package platform

import (
	"context"
	"fmt"
	"strings"

	"github.com/yusufpapurcu/wmi"
)

// win32VideoController mirrors the Win32_VideoController columns we read.
type win32VideoController struct {
	Name          string
	AdapterRAM    *uint32
	DriverVersion *string
}

// win32GPUEngine is one row of the GPU engine performance counters.
type win32GPUEngine struct {
	Name                  string
	UtilizationPercentage uint64
}

// QueryVideoControllers lists display adapters through WMI, skipping the
// Microsoft Basic Display fallback driver. Utilization is the summed 3D
// engine load, which is what Task Manager shows; it is attached to the
// first adapter because the counters are not reliably tied to one.
func (p *WindowsPlatform) QueryVideoControllers(ctx context.Context) ([]GPUStats, error) {
	var controllers []win32VideoController
	if err := wmi.Query("SELECT Name, AdapterRAM, DriverVersion FROM Win32_VideoController", &controllers); err != nil {
		return nil, fmt.Errorf("wmi video controllers: %w", err)
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	gpus := videoControllers(controllers)
	if len(gpus) == 0 {
		return nil, fmt.Errorf("%w: no display adapter in WMI", ErrNoGPU)
	}

	var engines []win32GPUEngine
	if err := wmi.Query("SELECT Name, UtilizationPercentage FROM Win32_PerfFormattedData_GPUPerformanceCounters_GPUEngine", &engines); err == nil {
		gpus[0].Utilization = engineUtilization(engines)
	}
	return gpus, nil
}

func videoControllers(rows []win32VideoController) []GPUStats {
	var out []GPUStats
	for _, c := range rows {
		if strings.Contains(strings.ToLower(c.Name), "microsoft basic display") {
			continue
		}
		g := GPUStats{Index: len(out), Name: strings.TrimSpace(c.Name)}
		if c.AdapterRAM != nil {
			g.MemoryTotal = uint64(*c.AdapterRAM)
		}
		if c.DriverVersion != nil {
			g.Driver = *c.DriverVersion
		}
		out = append(out, g)
	}
	return out
}

func engineUtilization(rows []win32GPUEngine) float64 {
	var total uint64
	for _, e := range rows {
		if strings.HasSuffix(e.Name, "engtype_3D") {
			total += e.UtilizationPercentage
		}
	}
	return float64(min(total, 100))
}
