// Package models defines the data structures shared between the samplers,
// the snapshot store, the installer and the dashboard.
package models

import (
	"fmt"
	"time"
)

// Category identifies one metric source kind. The set is fixed.
type Category int

const (
	CategoryCPU Category = iota
	CategoryMemory
	CategoryDisk
	CategoryNetwork
	CategoryGPU
	CategorySystem

	// NumCategories is the number of categories; Snapshot sizes its table by it.
	NumCategories = int(CategorySystem) + 1
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryCPU,
	CategoryMemory,
	CategoryDisk,
	CategoryNetwork,
	CategoryGPU,
	CategorySystem,
}

var categoryNames = [...]string{"cpu", "memory", "disk", "network", "gpu", "system"}

// String returns the lowercase category name used in config and logs.
func (c Category) String() string {
	if c < 0 || int(c) >= len(categoryNames) {
		return "unknown"
	}
	return categoryNames[c]
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c >= 0 && int(c) < NumCategories
}

// ParseCategory maps a config name back to its Category.
func ParseCategory(s string) (Category, error) {
	for i, name := range categoryNames {
		if name == s {
			return Category(i), nil
		}
	}
	return 0, fmt.Errorf("unknown metric category %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// Health is the freshness/availability flag carried by every reading.
type Health int

const (
	HealthOk Health = iota
	HealthUnavailable
	HealthStale
)

// String returns a human-readable health label.
func (h Health) String() string {
	switch h {
	case HealthOk:
		return "ok"
	case HealthUnavailable:
		return "unavailable"
	case HealthStale:
		return "stale"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (h Health) MarshalText() ([]byte, error) {
	return []byte(h.String()), nil
}

// Reading is one normalized sample from a single source. Exactly one of the
// payload pointers is set, matching Category; it may be nil when the source
// has never produced data (Health is then Unavailable).
type Reading struct {
	Category   Category  `json:"category" yaml:"category"`
	CapturedAt time.Time `json:"captured_at" yaml:"captured_at"`
	Health     Health    `json:"health" yaml:"health"`
	Error      string    `json:"error,omitempty" yaml:"error,omitempty"`

	CPU     *CPUReading     `json:"cpu,omitempty" yaml:"cpu,omitempty"`
	Memory  *MemoryReading  `json:"memory,omitempty" yaml:"memory,omitempty"`
	Disk    *DiskReading    `json:"disk,omitempty" yaml:"disk,omitempty"`
	Network *NetworkReading `json:"network,omitempty" yaml:"network,omitempty"`
	GPU     *GPUReading     `json:"gpu,omitempty" yaml:"gpu,omitempty"`
	System  *SystemReading  `json:"system,omitempty" yaml:"system,omitempty"`
}

// IsZero reports whether the reading was never written.
func (r Reading) IsZero() bool {
	return r.CapturedAt.IsZero()
}

// HasPayload reports whether the payload matching Category is present.
func (r Reading) HasPayload() bool {
	switch r.Category {
	case CategoryCPU:
		return r.CPU != nil
	case CategoryMemory:
		return r.Memory != nil
	case CategoryDisk:
		return r.Disk != nil
	case CategoryNetwork:
		return r.Network != nil
	case CategoryGPU:
		return r.GPU != nil
	case CategorySystem:
		return r.System != nil
	default:
		return false
	}
}

// WithHealth returns a copy of r carrying a different health flag and error text.
// Payload pointers are shared; readings are treated as immutable once stored.
func (r Reading) WithHealth(h Health, errText string) Reading {
	r.Health = h
	r.Error = errText
	return r
}

// CPUReading holds processor utilization.
type CPUReading struct {
	Overall       float64   `json:"overall" yaml:"overall"`
	Cores         []float64 `json:"cores" yaml:"cores"`
	Model         string    `json:"model,omitempty" yaml:"model,omitempty"`
	LogicalCores  int       `json:"logical_cores" yaml:"logical_cores"`
	PhysicalCores int       `json:"physical_cores" yaml:"physical_cores"`
	MHz           float64   `json:"mhz,omitempty" yaml:"mhz,omitempty"`
	Temperature   *float64  `json:"temperature,omitempty" yaml:"temperature,omitempty"`
	Load1         float64   `json:"load1,omitempty" yaml:"load1,omitempty"`
	Load5         float64   `json:"load5,omitempty" yaml:"load5,omitempty"`
	Load15        float64   `json:"load15,omitempty" yaml:"load15,omitempty"`
}

// MemoryReading holds RAM and swap usage in bytes.
type MemoryReading struct {
	Used      uint64 `json:"used" yaml:"used"`
	Total     uint64 `json:"total" yaml:"total"`
	SwapUsed  uint64 `json:"swap_used" yaml:"swap_used"`
	SwapTotal uint64 `json:"swap_total" yaml:"swap_total"`
}

// UsedFraction returns Used/Total in [0,1].
func (m MemoryReading) UsedFraction() float64 {
	return fraction(m.Used, m.Total)
}

// DiskReading holds per-volume usage.
type DiskReading struct {
	Volumes []DiskInfo `json:"volumes" yaml:"volumes"`
}

// DiskInfo represents usage for a single disk/partition.
type DiskInfo struct {
	Mount string `json:"mount" yaml:"mount"`
	Fs    string `json:"fs,omitempty" yaml:"fs,omitempty"`
	Total uint64 `json:"total" yaml:"total"`
	Used  uint64 `json:"used" yaml:"used"`
	Free  uint64 `json:"free" yaml:"free"`
}

// UsedFraction returns Used/Total in [0,1].
func (d DiskInfo) UsedFraction() float64 {
	return fraction(d.Used, d.Total)
}

// NetworkReading holds per-interface traffic since the previous sample.
type NetworkReading struct {
	Interfaces []NetworkInterface `json:"interfaces" yaml:"interfaces"`
}

// NetworkInterface is the traffic of one interface between two samples.
//
// Baseline is set on the first sample of an interface: no previous counter
// exists so the deltas are not applicable. Reset is set when a counter went
// backwards; the deltas are then clamped to zero.
type NetworkInterface struct {
	Name        string  `json:"name" yaml:"name"`
	RxBytes     uint64  `json:"rx_bytes" yaml:"rx_bytes"`
	TxBytes     uint64  `json:"tx_bytes" yaml:"tx_bytes"`
	RxPerSecond float64 `json:"rx_per_second" yaml:"rx_per_second"`
	TxPerSecond float64 `json:"tx_per_second" yaml:"tx_per_second"`
	Baseline    bool    `json:"baseline,omitempty" yaml:"baseline,omitempty"`
	Reset       bool    `json:"reset,omitempty" yaml:"reset,omitempty"`
}

// GPUReading holds graphics adapter state.
type GPUReading struct {
	Name           string  `json:"name" yaml:"name"`
	Driver         string  `json:"driver,omitempty" yaml:"driver,omitempty"`
	Backend        string  `json:"backend" yaml:"backend"`
	Utilization    float64 `json:"utilization" yaml:"utilization"`
	MemoryUsed     uint64  `json:"memory_used" yaml:"memory_used"`
	MemoryTotal    uint64  `json:"memory_total" yaml:"memory_total"`
	TemperatureC   float64 `json:"temperature_c" yaml:"temperature_c"`
	HasTemperature bool    `json:"has_temperature" yaml:"has_temperature"`
}

// MemoryFraction returns MemoryUsed/MemoryTotal in [0,1].
func (g GPUReading) MemoryFraction() float64 {
	return fraction(g.MemoryUsed, g.MemoryTotal)
}

// SystemReading holds host identity and uptime.
type SystemReading struct {
	OSName    string        `json:"os_name" yaml:"os_name"`
	OSVersion string        `json:"os_version" yaml:"os_version"`
	Hostname  string        `json:"hostname" yaml:"hostname"`
	Uptime    time.Duration `json:"uptime" yaml:"uptime"`
	BootTime  time.Time     `json:"boot_time" yaml:"boot_time"`
}

// Snapshot is the latest reading per category, versioned as a unit.
// A Snapshot handed out by the store is never modified afterwards.
type Snapshot struct {
	Version  uint64                 `json:"version" yaml:"version"`
	Readings [NumCategories]Reading `json:"readings" yaml:"readings"`
}

// Get returns the reading for c; ok is false if it was never written.
func (s *Snapshot) Get(c Category) (Reading, bool) {
	if !c.Valid() {
		return Reading{}, false
	}
	r := s.Readings[c]
	return r, !r.IsZero()
}

func fraction(used, total uint64) float64 {
	if total == 0 {
		return 0
	}
	f := float64(used) / float64(total)
	if f > 1 {
		return 1
	}
	return f
}
