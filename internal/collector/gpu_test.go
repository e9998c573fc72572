package collector

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Guliveer/devdash/internal/models"
	"github.com/Guliveer/devdash/internal/platform"
)

type fakeBackend struct {
	name  string
	out   models.GPUReading
	err   error
	calls int
}

func (b *fakeBackend) Name() string { return b.name }

func (b *fakeBackend) Sample(context.Context) (models.GPUReading, error) {
	b.calls++
	return b.out, b.err
}

func TestGPUFallsBackAndRemembersMissingBackend(t *testing.T) {
	nvml := &fakeBackend{name: "nvml", err: fmt.Errorf("%w: library not found", ErrNoDevice)}
	smi := &fakeBackend{name: "nvidia-smi", out: models.GPUReading{Name: "RTX", Utilization: 12, HasTemperature: true, TemperatureC: 50}}
	c := newGPUCollector([]gpuBackend{nvml, smi}, nil, zap.NewNop())

	for i := 0; i < 3; i++ {
		r, err := c.Collect(context.Background())
		require.NoError(t, err)
		require.NotNil(t, r.GPU)
		assert.Equal(t, "nvidia-smi", r.GPU.Backend)
		assert.Equal(t, "RTX", r.GPU.Name)
	}
	assert.Equal(t, 1, nvml.calls)
	assert.Equal(t, 3, smi.calls)
}

func TestGPUNoDeviceIsPermanentUnavailable(t *testing.T) {
	c := newGPUCollector([]gpuBackend{
		&fakeBackend{name: "nvml", err: ErrNoDevice},
		&fakeBackend{name: "nvidia-smi", err: fmt.Errorf("%w: not on PATH", ErrNoDevice)},
	}, nil, zap.NewNop())

	_, err := c.Collect(context.Background())
	var se *SourceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindUnavailable, se.Kind)
}

func TestGPUTransientErrorIsNotUnavailable(t *testing.T) {
	boom := errors.New("driver busy")
	c := newGPUCollector([]gpuBackend{&fakeBackend{name: "nvml", err: boom}}, nil, zap.NewNop())

	_, err := c.Collect(context.Background())
	require.ErrorIs(t, err, boom)
	assert.Equal(t, KindFailed, Classify("gpu", err).Kind)
}

func TestGPUTemperatureFromSensors(t *testing.T) {
	sensors := &SensorReader{
		temps: func(context.Context) ([]host.TemperatureStat, error) {
			return []host.TemperatureStat{{SensorKey: "amdgpu_edge_input", Temperature: 44}}, nil
		},
		logger: zap.NewNop(),
	}
	c := newGPUCollector([]gpuBackend{&fakeBackend{name: "nvidia-smi", out: models.GPUReading{Name: "GPU"}}}, sensors, zap.NewNop())

	r, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.True(t, r.GPU.HasTemperature)
	assert.InDelta(t, 44.0, r.GPU.TemperatureC, 0.001)
}

type fakePlatform struct {
	gpus     []platform.GPUStats
	err      error
	adapters []platform.GPUStats
}

func (p *fakePlatform) Name() string { return "fake" }

func (p *fakePlatform) QueryGPUs(context.Context) ([]platform.GPUStats, error) {
	return p.gpus, p.err
}

func (p *fakePlatform) QueryVideoControllers(context.Context) ([]platform.GPUStats, error) {
	if len(p.adapters) == 0 {
		return nil, platform.ErrNoGPU
	}
	return p.adapters, nil
}

func (p *fakePlatform) RegistryKeyExists(string) (bool, error) { return false, platform.ErrNotSupported }

func TestSMIBackendMapsNoGPU(t *testing.T) {
	b := &smiBackend{p: &fakePlatform{err: platform.ErrNoGPU}}
	_, err := b.Sample(context.Background())
	assert.ErrorIs(t, err, ErrNoDevice)

	temp := 70.0
	b = &smiBackend{p: &fakePlatform{gpus: []platform.GPUStats{{Name: "T4", MemoryUsed: 1, MemoryTotal: 4, TemperatureC: &temp}}}}
	g, err := b.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "T4", g.Name)
	assert.True(t, g.HasTemperature)
	assert.InDelta(t, 0.25, g.MemoryFraction(), 0.0001)
}

func TestGPUFallsBackToVideoControllers(t *testing.T) {
	p := &fakePlatform{
		err:      platform.ErrNoGPU,
		adapters: []platform.GPUStats{{Name: "AMD Radeon RX 6600", Driver: "31.0.21921.1000", Utilization: 37, MemoryTotal: 8 << 30}},
	}
	c := newGPUCollector([]gpuBackend{&smiBackend{p: p}, &adapterBackend{p: p}}, nil, zap.NewNop())

	r, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "wmi", r.GPU.Backend)
	assert.Equal(t, "AMD Radeon RX 6600", r.GPU.Name)
	assert.InDelta(t, 37.0, r.GPU.Utilization, 0.001)
	assert.Equal(t, uint64(8<<30), r.GPU.MemoryTotal)
	assert.Zero(t, r.GPU.MemoryUsed)
}

func TestGPUWithoutAnyAdapterIsUnavailable(t *testing.T) {
	p := &fakePlatform{err: platform.ErrNoGPU}
	c := newGPUCollector([]gpuBackend{&smiBackend{p: p}, &adapterBackend{p: p}}, nil, zap.NewNop())

	_, err := c.Collect(context.Background())
	require.ErrorIs(t, err, ErrNoDevice)
	assert.Equal(t, KindUnavailable, Classify("gpu", err).Kind)
}
