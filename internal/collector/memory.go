// RAM usage collector: used/total memory and swap.
// Uses gopsutil for cross-platform memory metrics.
package collector

import (
	"context"
	"time"

	"github.com/shirou/gopsutil/v3/mem"

	"github.com/Guliveer/devdash/internal/models"
)

// MemoryCollector collects RAM usage metrics.
type MemoryCollector struct {
	virtual func(ctx context.Context) (*mem.VirtualMemoryStat, error)
	swap    func(ctx context.Context) (*mem.SwapMemoryStat, error)
	now     func() time.Time
}

// NewMemoryCollector creates a new memory collector.
func NewMemoryCollector() *MemoryCollector {
	return &MemoryCollector{
		virtual: mem.VirtualMemoryWithContext,
		swap:    mem.SwapMemoryWithContext,
		now:     time.Now,
	}
}

// Name returns the collector identifier.
func (c *MemoryCollector) Name() string { return "memory" }

// Category returns models.CategoryMemory.
func (c *MemoryCollector) Category() models.Category { return models.CategoryMemory }

// Collect gathers memory usage. Used is total minus available, which counts
// reclaimable caches as free.
func (c *MemoryCollector) Collect(ctx context.Context) (models.Reading, error) {
	v, err := c.virtual(ctx)
	if err != nil {
		return models.Reading{}, err
	}

	payload := &models.MemoryReading{Total: v.Total}
	if v.Available <= v.Total {
		payload.Used = v.Total - v.Available
	}

	if s, err := c.swap(ctx); err == nil && s != nil {
		payload.SwapUsed = s.Used
		payload.SwapTotal = s.Total
	}

	r := newReading(models.CategoryMemory, c.now())
	r.Memory = payload
	return r, nil
}

// IsAvailable returns true; memory metrics are available on all platforms.
func (c *MemoryCollector) IsAvailable() bool { return true }
