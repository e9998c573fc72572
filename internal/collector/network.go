// Network I/O collector: per-interface RX/TX deltas and rates.
// Uses gopsutil for cross-platform network counters.
package collector

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/net"

	"github.com/Guliveer/devdash/internal/models"
)

// InterfaceCounters are the cumulative byte counters of one interface.
type InterfaceCounters struct {
	Name string
	Rx   uint64
	Tx   uint64
}

type counterSample struct {
	rx, tx uint64
	at     time.Time
}

// NetworkCollector collects per-interface network traffic. It keeps only the
// previous counter and timestamp per interface to compute deltas.
type NetworkCollector struct {
	counters     func(ctx context.Context) ([]InterfaceCounters, error)
	now          func() time.Time
	physicalOnly atomic.Bool

	mu   sync.Mutex
	prev map[string]counterSample
}

// NewNetworkCollector creates a new network collector. With physicalOnly set
// only ethernet and wireless interfaces are reported.
func NewNetworkCollector(physicalOnly bool) *NetworkCollector {
	return newNetworkCollector(gopsutilCounters, time.Now, physicalOnly)
}

func newNetworkCollector(counters func(context.Context) ([]InterfaceCounters, error), now func() time.Time, physicalOnly bool) *NetworkCollector {
	c := &NetworkCollector{
		counters: counters,
		now:      now,
		prev:     make(map[string]counterSample),
	}
	c.physicalOnly.Store(physicalOnly)
	return c
}

// SetPhysicalOnly switches the interface filter for later samples.
func (c *NetworkCollector) SetPhysicalOnly(on bool) {
	c.physicalOnly.Store(on)
}

// PhysicalOnly reports whether the interface filter is on.
func (c *NetworkCollector) PhysicalOnly() bool {
	return c.physicalOnly.Load()
}

func gopsutilCounters(ctx context.Context) ([]InterfaceCounters, error) {
	stats, err := net.IOCountersWithContext(ctx, true)
	if err != nil {
		return nil, err
	}
	out := make([]InterfaceCounters, 0, len(stats))
	for _, s := range stats {
		out = append(out, InterfaceCounters{Name: s.Name, Rx: s.BytesRecv, Tx: s.BytesSent})
	}
	return out, nil
}

// Name returns the collector identifier.
func (c *NetworkCollector) Name() string { return "network" }

// Category returns models.CategoryNetwork.
func (c *NetworkCollector) Category() models.Category { return models.CategoryNetwork }

// Collect reads the counters and reports the traffic since the previous
// sample. The first sample of an interface is a baseline with no deltas.
// A counter that went backwards (driver reset, interface re-created) yields
// zero deltas and marks the whole reading Stale.
func (c *NetworkCollector) Collect(ctx context.Context) (models.Reading, error) {
	counters, err := c.counters(ctx)
	if err != nil {
		return models.Reading{}, err
	}
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	next := make(map[string]counterSample, len(counters))
	ifaces := make([]models.NetworkInterface, 0, len(counters))
	reset := false

	for _, ic := range counters {
		if c.physicalOnly.Load() && !IsPhysicalInterface(ic.Name) {
			continue
		}
		next[ic.Name] = counterSample{rx: ic.Rx, tx: ic.Tx, at: now}

		ni := models.NetworkInterface{Name: ic.Name}
		prev, ok := c.prev[ic.Name]
		if !ok {
			ni.Baseline = true
			ifaces = append(ifaces, ni)
			continue
		}

		rx, rxOk := counterDelta(prev.rx, ic.Rx)
		tx, txOk := counterDelta(prev.tx, ic.Tx)
		if !rxOk || !txOk {
			ni.Reset = true
			reset = true
		}
		ni.RxBytes, ni.TxBytes = rx, tx
		if elapsed := now.Sub(prev.at).Seconds(); elapsed > 0 {
			ni.RxPerSecond = float64(rx) / elapsed
			ni.TxPerSecond = float64(tx) / elapsed
		}
		ifaces = append(ifaces, ni)
	}
	// Interfaces that vanished are forgotten.
	c.prev = next

	sort.Slice(ifaces, func(i, j int) bool { return ifaces[i].Name < ifaces[j].Name })

	r := newReading(models.CategoryNetwork, now)
	r.Network = &models.NetworkReading{Interfaces: ifaces}
	if reset {
		r.Health = models.HealthStale
		r.Error = "counter reset"
	}
	return r, nil
}

// IsAvailable returns true; network metrics are available on all platforms.
func (c *NetworkCollector) IsAvailable() bool { return true }

// counterDelta returns cur-prev; ok is false when the counter went backwards,
// in which case the delta is clamped to zero.
func counterDelta(prev, cur uint64) (uint64, bool) {
	if cur < prev {
		return 0, false
	}
	return cur - prev, true
}

// IsPhysicalInterface reports whether name looks like a wired or wireless
// adapter rather than loopback, bridges, tunnels or container veths.
func IsPhysicalInterface(name string) bool {
	n := strings.ToLower(name)
	if strings.Contains(n, "ethernet") || strings.Contains(n, "wireless") {
		return true
	}
	for _, prefix := range []string{"eth", "en", "wlan", "wl", "wi-fi"} {
		if strings.HasPrefix(n, prefix) {
			return true
		}
	}
	return false
}
