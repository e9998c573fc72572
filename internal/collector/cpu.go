// CPU usage collector: per-core utilization, model info, load and package
// temperature. Uses gopsutil for cross-platform CPU metrics.
package collector

import (
	"context"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/load"
	"go.uber.org/zap"

	"github.com/Guliveer/devdash/internal/models"
)

// CPUCollector collects CPU usage metrics.
type CPUCollector struct {
	logger  *zap.Logger
	percent func(ctx context.Context) ([]float64, error)
	loadAvg func(ctx context.Context) (*load.AvgStat, error)
	sensors *SensorReader
	now     func() time.Time

	infoOnce sync.Once
	info     cpuInfo
}

type cpuInfo struct {
	model    string
	mhz      float64
	logical  int
	physical int
}

// NewCPUCollector creates a new CPU collector.
func NewCPUCollector(sensors *SensorReader, logger *zap.Logger) *CPUCollector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CPUCollector{
		logger: logger,
		percent: func(ctx context.Context) ([]float64, error) {
			// Interval 0 compares against the previous call, so the sample
			// never blocks; the first call measures since boot.
			return cpu.PercentWithContext(ctx, 0, true)
		},
		loadAvg: load.AvgWithContext,
		sensors: sensors,
		now:     time.Now,
	}
}

// Name returns the collector identifier.
func (c *CPUCollector) Name() string { return "cpu" }

// Category returns models.CategoryCPU.
func (c *CPUCollector) Category() models.Category { return models.CategoryCPU }

// Collect gathers per-core usage and derives the aggregate as the mean of
// the cores, capped at 100.
func (c *CPUCollector) Collect(ctx context.Context) (models.Reading, error) {
	cores, err := c.percent(ctx)
	if err != nil {
		return models.Reading{}, err
	}

	c.infoOnce.Do(func() { c.info = loadCPUInfo(ctx) })

	payload := &models.CPUReading{
		Overall:       aggregateCPU(cores),
		Cores:         cores,
		Model:         c.info.model,
		MHz:           c.info.mhz,
		LogicalCores:  c.info.logical,
		PhysicalCores: c.info.physical,
	}
	if payload.LogicalCores == 0 {
		payload.LogicalCores = len(cores)
	}

	if c.loadAvg != nil {
		if avg, err := c.loadAvg(ctx); err == nil && avg != nil {
			payload.Load1, payload.Load5, payload.Load15 = avg.Load1, avg.Load5, avg.Load15
		}
	}

	if c.sensors != nil {
		payload.Temperature = c.sensors.CPUTemperature(ctx)
	}

	r := newReading(models.CategoryCPU, c.now())
	r.CPU = payload
	return r, nil
}

// IsAvailable returns true; CPU metrics are available on all platforms.
func (c *CPUCollector) IsAvailable() bool { return true }

// aggregateCPU returns the arithmetic mean of the per-core values, capped at 100.
func aggregateCPU(cores []float64) float64 {
	if len(cores) == 0 {
		return 0
	}
	var sum float64
	for _, v := range cores {
		sum += v
	}
	avg := sum / float64(len(cores))
	if avg > 100 {
		return 100
	}
	if avg < 0 {
		return 0
	}
	return avg
}

func loadCPUInfo(ctx context.Context) cpuInfo {
	var info cpuInfo
	if stats, err := cpu.InfoWithContext(ctx); err == nil && len(stats) > 0 {
		info.model = stats[0].ModelName
		info.mhz = stats[0].Mhz
	}
	if n, err := cpu.CountsWithContext(ctx, true); err == nil {
		info.logical = n
	}
	if n, err := cpu.CountsWithContext(ctx, false); err == nil {
		info.physical = n
	}
	return info
}
