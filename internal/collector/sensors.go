// Thermal sensor reader. Finds the hottest matching sensor for the CPU and
// GPU across platforms using gopsutil host sensors.
package collector

import (
	"context"
	"strings"

	"github.com/shirou/gopsutil/v3/host"
	"go.uber.org/zap"
)

// Sensor name substrings used to identify CPU temperature sensors across platforms.
// Linux:  coretemp_core_0_input, k10temp_tctl_input, acpitz_temp1_input, zenpower_tctl_input
// macOS:  TC0P (CPU proximity), TC0D (CPU die), TCXC (CPU core)
// Windows: CPU Package, CPU Core #0, etc.
var cpuSensorKeys = []string{
	"cpu", "core", "package",
	"tctl", "tdie", "k10temp", "coretemp",
	"tc0p", "tc0d", "tcxc",
	"acpitz", "zenpower",
}

// Sensor name substrings used to identify GPU temperature sensors.
// Linux:  amdgpu_edge_input, nouveau_temp1_input
// macOS:  TG0P (GPU proximity), TG0D (GPU die)
var gpuSensorKeys = []string{
	"gpu", "nvidia", "amd", "radeon",
	"tg0p", "tg0d",
	"amdgpu", "nouveau",
}

const (
	minValidTemp = 0.0
	// Readings above this are sensor errors.
	maxValidTemp = 150.0
)

// SensorReader reads thermal sensors. A nil *SensorReader reports nothing.
type SensorReader struct {
	temps  func(ctx context.Context) ([]host.TemperatureStat, error)
	logger *zap.Logger
}

// NewSensorReader creates a sensor reader backed by gopsutil.
func NewSensorReader(logger *zap.Logger) *SensorReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SensorReader{temps: host.SensorsTemperaturesWithContext, logger: logger}
}

// CPUTemperature returns the hottest CPU sensor, or nil if none matched.
func (s *SensorReader) CPUTemperature(ctx context.Context) *float64 {
	return s.hottest(ctx, cpuSensorKeys)
}

// GPUTemperature returns the hottest GPU sensor, or nil if none matched.
func (s *SensorReader) GPUTemperature(ctx context.Context) *float64 {
	return s.hottest(ctx, gpuSensorKeys)
}

func (s *SensorReader) hottest(ctx context.Context, keys []string) *float64 {
	if s == nil || s.temps == nil {
		return nil
	}
	temps, err := s.temps(ctx)
	if err != nil {
		// gopsutil returns partial results with a warnings error on some
		// platforms; keep going with whatever was read.
		s.logger.Debug("Temperature sensors reported an error", zap.Error(err))
	}

	var max float64
	found := false
	for _, t := range temps {
		if !isValidTemperature(t.Temperature) {
			continue
		}
		if !matchesSensor(strings.ToLower(t.SensorKey), keys) {
			continue
		}
		if !found || t.Temperature > max {
			max = t.Temperature
			found = true
		}
	}
	if !found {
		return nil
	}
	return &max
}

// matchesSensor checks if the sensor name contains any of the given key substrings.
func matchesSensor(name string, keys []string) bool {
	for _, key := range keys {
		if strings.Contains(name, key) {
			return true
		}
	}
	return false
}

// isValidTemperature returns true if the temperature is within a plausible range.
func isValidTemperature(temp float64) bool {
	return temp > minValidTemp && temp <= maxValidTemp
}
