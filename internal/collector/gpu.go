// GPU collector: utilization, memory and temperature of the first adapter.
// NVML is tried first, then nvidia-smi, then the OS adapter list (WMI on
// Windows) for other vendors.
package collector

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Guliveer/devdash/internal/models"
	"github.com/Guliveer/devdash/internal/platform"
)

// gpuBackend is one way of reading the adapter. Sample returns an error
// wrapping ErrNoDevice when the backend cannot see any device.
type gpuBackend interface {
	Name() string
	Sample(ctx context.Context) (models.GPUReading, error)
}

// GPUCollector collects GPU metrics. A host with no compatible device
// yields a permanent Unavailable error, never a crash.
type GPUCollector struct {
	backends []gpuBackend
	sensors  *SensorReader
	logger   *zap.Logger
	now      func() time.Time

	mu   sync.Mutex
	dead map[string]bool
}

// NewGPUCollector creates a GPU collector using NVML (where built in), the
// platform's nvidia-smi query and its video controller query.
func NewGPUCollector(p platform.Platform, sensors *SensorReader, logger *zap.Logger) *GPUCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	backends := []gpuBackend{newNVMLBackend(logger)}
	if p != nil {
		backends = append(backends, &smiBackend{p: p}, &adapterBackend{p: p})
	}
	return newGPUCollector(backends, sensors, logger)
}

func newGPUCollector(backends []gpuBackend, sensors *SensorReader, logger *zap.Logger) *GPUCollector {
	return &GPUCollector{
		backends: backends,
		sensors:  sensors,
		logger:   logger,
		now:      time.Now,
		dead:     make(map[string]bool),
	}
}

// Name returns the collector identifier.
func (c *GPUCollector) Name() string { return "gpu" }

// Category returns models.CategoryGPU.
func (c *GPUCollector) Category() models.Category { return models.CategoryGPU }

// Collect samples the first backend that sees a device. Backends that
// reported no device are skipped on later calls.
func (c *GPUCollector) Collect(ctx context.Context) (models.Reading, error) {
	var lastErr error
	for _, b := range c.backends {
		if c.isDead(b.Name()) {
			continue
		}
		g, err := b.Sample(ctx)
		if err == nil {
			g.Backend = b.Name()
			if !g.HasTemperature {
				if t := c.sensors.GPUTemperature(ctx); t != nil {
					g.TemperatureC, g.HasTemperature = *t, true
				}
			}
			r := newReading(models.CategoryGPU, c.now())
			r.GPU = &g
			return r, nil
		}
		if errors.Is(err, ErrNoDevice) {
			c.markDead(b.Name(), err)
			continue
		}
		lastErr = err
	}
	if lastErr != nil {
		return models.Reading{}, lastErr
	}
	return models.Reading{}, Unavailable(c.Name(), ErrNoDevice)
}

// IsAvailable returns true; absence of a device is reported per sample.
func (c *GPUCollector) IsAvailable() bool { return true }

func (c *GPUCollector) isDead(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dead[name]
}

func (c *GPUCollector) markDead(name string, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dead[name] {
		c.logger.Info("GPU backend has no device", zap.String("backend", name), zap.Error(err))
	}
	c.dead[name] = true
}

// smiBackend reads the adapter through the platform's nvidia-smi query.
type smiBackend struct {
	p platform.Platform
}

func (b *smiBackend) Name() string { return "nvidia-smi" }

func (b *smiBackend) Sample(ctx context.Context) (models.GPUReading, error) {
	return firstGPU(b.p.QueryGPUs(ctx))
}

// adapterBackend reads the OS list of display adapters. Memory used is not
// known there, so only the total is filled in.
type adapterBackend struct {
	p platform.Platform
}

func (b *adapterBackend) Name() string { return "wmi" }

func (b *adapterBackend) Sample(ctx context.Context) (models.GPUReading, error) {
	return firstGPU(b.p.QueryVideoControllers(ctx))
}

func firstGPU(gpus []platform.GPUStats, err error) (models.GPUReading, error) {
	if err == nil && len(gpus) == 0 {
		err = platform.ErrNoGPU
	}
	if err != nil {
		if errors.Is(err, platform.ErrNoGPU) {
			return models.GPUReading{}, fmt.Errorf("%w: %v", ErrNoDevice, err)
		}
		return models.GPUReading{}, err
	}
	g := gpus[0]
	out := models.GPUReading{
		Name:        g.Name,
		Driver:      g.Driver,
		Utilization: g.Utilization,
		MemoryUsed:  g.MemoryUsed,
		MemoryTotal: g.MemoryTotal,
	}
	if g.TemperatureC != nil {
		out.TemperatureC, out.HasTemperature = *g.TemperatureC, true
	}
	return out, nil
}
