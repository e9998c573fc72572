//go:build linux && cgo

package collector

import (
	"context"
	"fmt"
	"sync"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
	"go.uber.org/zap"

	"github.com/Guliveer/devdash/internal/models"
)

// gpuDevice is the subset of nvml.Device the backend reads.
type gpuDevice interface {
	GetName() (string, nvml.Return)
	GetUtilizationRates() (nvml.Utilization, nvml.Return)
	GetMemoryInfo() (nvml.Memory, nvml.Return)
	GetTemperature(nvml.TemperatureSensors) (uint32, nvml.Return)
}

// nvmlLib is the subset of the NVML library entry points used here.
type nvmlLib interface {
	Init() nvml.Return
	DeviceGetCount() (int, nvml.Return)
	DeviceGetHandleByIndex(int) (gpuDevice, nvml.Return)
	SystemGetDriverVersion() (string, nvml.Return)
}

type realNVML struct{}

func (realNVML) Init() nvml.Return                  { return nvml.Init() }
func (realNVML) DeviceGetCount() (int, nvml.Return) { return nvml.DeviceGetCount() }
func (realNVML) SystemGetDriverVersion() (string, nvml.Return) {
	return nvml.SystemGetDriverVersion()
}
func (realNVML) DeviceGetHandleByIndex(i int) (gpuDevice, nvml.Return) {
	return nvml.DeviceGetHandleByIndex(i)
}

type nvmlError struct {
	op  string
	ret nvml.Return
}

func (e *nvmlError) Error() string {
	return fmt.Sprintf("nvml %s: %s", e.op, nvml.ErrorString(e.ret))
}

type nvmlBackend struct {
	lib    nvmlLib
	logger *zap.Logger

	once    sync.Once
	initErr error
	device  gpuDevice
	name    string
	driver  string
}

func newNVMLBackend(logger *zap.Logger) gpuBackend {
	return &nvmlBackend{lib: realNVML{}, logger: logger}
}

func (b *nvmlBackend) Name() string { return "nvml" }

// init loads the library and picks device 0. A missing library, a failed
// init or zero devices all mean no device for this process.
func (b *nvmlBackend) init() error {
	b.once.Do(func() {
		if ret := b.lib.Init(); ret != nvml.SUCCESS {
			b.initErr = fmt.Errorf("%w: %v", ErrNoDevice, &nvmlError{op: "init", ret: ret})
			return
		}
		count, ret := b.lib.DeviceGetCount()
		if ret != nvml.SUCCESS {
			b.initErr = fmt.Errorf("%w: %v", ErrNoDevice, &nvmlError{op: "device count", ret: ret})
			return
		}
		if count == 0 {
			b.initErr = fmt.Errorf("%w: nvml reports 0 devices", ErrNoDevice)
			return
		}
		device, ret := b.lib.DeviceGetHandleByIndex(0)
		if ret != nvml.SUCCESS {
			b.initErr = fmt.Errorf("%w: %v", ErrNoDevice, &nvmlError{op: "device handle", ret: ret})
			return
		}
		b.device = device
		if name, ret := device.GetName(); ret == nvml.SUCCESS {
			b.name = name
		}
		if v, ret := b.lib.SystemGetDriverVersion(); ret == nvml.SUCCESS {
			b.driver = v
		}
		b.logger.Info("Detected GPU", zap.String("name", b.name), zap.String("driver", b.driver))
	})
	return b.initErr
}

func (b *nvmlBackend) Sample(ctx context.Context) (models.GPUReading, error) {
	if err := b.init(); err != nil {
		return models.GPUReading{}, err
	}
	if err := ctx.Err(); err != nil {
		return models.GPUReading{}, err
	}

	util, ret := b.device.GetUtilizationRates()
	if ret != nvml.SUCCESS {
		return models.GPUReading{}, &nvmlError{op: "utilization", ret: ret}
	}
	memInfo, ret := b.device.GetMemoryInfo()
	if ret != nvml.SUCCESS {
		return models.GPUReading{}, &nvmlError{op: "memory info", ret: ret}
	}

	out := models.GPUReading{
		Name:        b.name,
		Driver:      b.driver,
		Utilization: float64(util.Gpu),
		MemoryUsed:  memInfo.Used,
		MemoryTotal: memInfo.Total,
	}
	if temp, ret := b.device.GetTemperature(nvml.TEMPERATURE_GPU); ret == nvml.SUCCESS {
		out.TemperatureC, out.HasTemperature = float64(temp), true
	}
	return out, nil
}
