//go:build linux && cgo

package collector

import (
	"context"
	"testing"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeDevice struct {
	utilRet nvml.Return
}

func (fakeDevice) GetName() (string, nvml.Return) { return "Fake GPU", nvml.SUCCESS }

func (d fakeDevice) GetUtilizationRates() (nvml.Utilization, nvml.Return) {
	return nvml.Utilization{Gpu: 42, Memory: 7}, d.utilRet
}

func (fakeDevice) GetMemoryInfo() (nvml.Memory, nvml.Return) {
	return nvml.Memory{Total: 8 << 30, Used: 2 << 30, Free: 6 << 30}, nvml.SUCCESS
}

func (fakeDevice) GetTemperature(nvml.TemperatureSensors) (uint32, nvml.Return) {
	return 65, nvml.SUCCESS
}

type fakeLib struct {
	initRet nvml.Return
	count   int
	device  fakeDevice
	inits   int
}

func (l *fakeLib) Init() nvml.Return {
	l.inits++
	return l.initRet
}

func (l *fakeLib) DeviceGetCount() (int, nvml.Return) { return l.count, nvml.SUCCESS }

func (l *fakeLib) DeviceGetHandleByIndex(int) (gpuDevice, nvml.Return) {
	return l.device, nvml.SUCCESS
}

func (l *fakeLib) SystemGetDriverVersion() (string, nvml.Return) { return "550.1", nvml.SUCCESS }

func TestNVMLBackendSample(t *testing.T) {
	lib := &fakeLib{initRet: nvml.SUCCESS, count: 1, device: fakeDevice{utilRet: nvml.SUCCESS}}
	b := &nvmlBackend{lib: lib, logger: zap.NewNop()}

	g, err := b.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Fake GPU", g.Name)
	assert.Equal(t, "550.1", g.Driver)
	assert.InDelta(t, 42.0, g.Utilization, 0.001)
	assert.Equal(t, uint64(2<<30), g.MemoryUsed)
	assert.True(t, g.HasTemperature)
	assert.InDelta(t, 65.0, g.TemperatureC, 0.001)

	_, err = b.Sample(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, lib.inits, "library is initialised once")
}

func TestNVMLBackendNoDevice(t *testing.T) {
	tests := []struct {
		name string
		lib  *fakeLib
	}{
		{"library missing", &fakeLib{initRet: nvml.ERROR_LIBRARY_NOT_FOUND}},
		{"zero devices", &fakeLib{initRet: nvml.SUCCESS, count: 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &nvmlBackend{lib: tt.lib, logger: zap.NewNop()}
			_, err := b.Sample(context.Background())
			assert.ErrorIs(t, err, ErrNoDevice)
		})
	}
}

func TestNVMLBackendTransientReadError(t *testing.T) {
	lib := &fakeLib{initRet: nvml.SUCCESS, count: 1, device: fakeDevice{utilRet: nvml.ERROR_GPU_IS_LOST}}
	b := &nvmlBackend{lib: lib, logger: zap.NewNop()}

	_, err := b.Sample(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoDevice)
}
