//go:build !linux || !cgo

package collector

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/Guliveer/devdash/internal/models"
)

// noNVML stands in where the NVML bindings are not built.
type noNVML struct{}

func newNVMLBackend(*zap.Logger) gpuBackend { return noNVML{} }

func (noNVML) Name() string { return "nvml" }

func (noNVML) Sample(context.Context) (models.GPUReading, error) {
	return models.GPUReading{}, fmt.Errorf("%w: nvml not built for this platform", ErrNoDevice)
}
