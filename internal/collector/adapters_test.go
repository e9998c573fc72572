package collector

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/load"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Guliveer/devdash/internal/models"
)

func TestAggregateCPU(t *testing.T) {
	tests := []struct {
		name  string
		cores []float64
		want  float64
	}{
		{"empty", nil, 0},
		{"mean", []float64{10, 20, 30, 40}, 25},
		{"capped", []float64{100, 120}, 100},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, aggregateCPU(tt.cores), 0.0001)
		})
	}
}

func TestCPUCollect(t *testing.T) {
	c := NewCPUCollector(nil, zap.NewNop())
	c.percent = func(context.Context) ([]float64, error) { return []float64{50, 100}, nil }
	c.loadAvg = func(context.Context) (*load.AvgStat, error) { return &load.AvgStat{Load1: 1.5}, nil }
	c.infoOnce.Do(func() { c.info = cpuInfo{model: "Test CPU", logical: 2, physical: 1} })

	r, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.NotNil(t, r.CPU)
	assert.Equal(t, models.CategoryCPU, r.Category)
	assert.InDelta(t, 75.0, r.CPU.Overall, 0.0001)
	assert.Equal(t, "Test CPU", r.CPU.Model)
	assert.InDelta(t, 1.5, r.CPU.Load1, 0.0001)
	assert.Nil(t, r.CPU.Temperature)
}

func TestCPUCollectError(t *testing.T) {
	c := NewCPUCollector(nil, zap.NewNop())
	boom := errors.New("no /proc/stat")
	c.percent = func(context.Context) ([]float64, error) { return nil, boom }

	_, err := c.Collect(context.Background())
	assert.ErrorIs(t, err, boom)
}

func TestMemoryUsedIsTotalMinusAvailable(t *testing.T) {
	c := NewMemoryCollector()
	c.virtual = func(context.Context) (*mem.VirtualMemoryStat, error) {
		return &mem.VirtualMemoryStat{Total: 16 << 30, Available: 10 << 30, Used: 4 << 30}, nil
	}
	c.swap = func(context.Context) (*mem.SwapMemoryStat, error) {
		return nil, errors.New("no swap")
	}

	r, err := c.Collect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(6<<30), r.Memory.Used)
	assert.Equal(t, uint64(16<<30), r.Memory.Total)
	assert.Zero(t, r.Memory.SwapTotal)
}

func TestDiskSkipsPseudoAndEmptyVolumes(t *testing.T) {
	c := NewDiskCollector(zap.NewNop())
	c.partitions = func(context.Context, bool) ([]disk.PartitionStat, error) {
		return []disk.PartitionStat{
			{Mountpoint: "/", Fstype: "ext4"},
			{Mountpoint: "/proc", Fstype: "proc"},
			{Mountpoint: "/home", Fstype: "btrfs"},
			{Mountpoint: "/home", Fstype: "btrfs"},
			{Mountpoint: "/boot/efi", Fstype: "vfat"},
			{Mountpoint: "/mnt/nas", Fstype: "nfs4"},
			{Mountpoint: "/System/Volumes/VM", Fstype: "apfs"},
		}, nil
	}
	c.usage = func(_ context.Context, path string) (*disk.UsageStat, error) {
		switch path {
		case "/boot/efi":
			return &disk.UsageStat{}, nil
		default:
			return &disk.UsageStat{Total: 100, Used: 40, Free: 60}, nil
		}
	}

	r, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, r.Disk.Volumes, 2)
	assert.Equal(t, "/", r.Disk.Volumes[0].Mount)
	assert.Equal(t, "/home", r.Disk.Volumes[1].Mount)
	assert.InDelta(t, 0.4, r.Disk.Volumes[0].UsedFraction(), 0.0001)
}

func TestSystemCollect(t *testing.T) {
	boot := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	infoCalls := 0
	c := NewSystemCollector()
	c.bootTime = func(context.Context) (uint64, error) { return uint64(boot.Unix()), nil }
	c.hostname = func() (string, error) { return "devbox", nil }
	c.osInfo = func(context.Context) osInfo {
		infoCalls++
		return osInfo{OSName: "Ubuntu 24.04 LTS", OSVersion: "24.04"}
	}
	c.now = func() time.Time { return boot.Add(90 * time.Minute) }

	for i := 0; i < 2; i++ {
		r, err := c.Collect(context.Background())
		require.NoError(t, err)
		assert.Equal(t, "devbox", r.System.Hostname)
		assert.Equal(t, "Ubuntu 24.04 LTS", r.System.OSName)
		assert.Equal(t, 90*time.Minute, r.System.Uptime)
	}
	assert.Equal(t, 1, infoCalls, "OS info is cached")
}

func TestParseKeyValueFile(t *testing.T) {
	fields := parseKeyValueFile("# comment\nNAME=\"Fedora Linux\"\nVERSION_ID=40\n\nBROKEN\n")
	assert.Equal(t, "\"Fedora Linux\"", fields["NAME"])
	assert.Equal(t, "40", fields["VERSION_ID"])
	assert.NotContains(t, fields, "BROKEN")
}

func TestSensorReaderHottestMatch(t *testing.T) {
	s := &SensorReader{
		temps: func(context.Context) ([]host.TemperatureStat, error) {
			return []host.TemperatureStat{
				{SensorKey: "coretemp_core_0_input", Temperature: 48},
				{SensorKey: "coretemp_core_1_input", Temperature: 55},
				{SensorKey: "coretemp_package_id_0_input", Temperature: 200},
				{SensorKey: "nvme_composite_input", Temperature: 60},
			}, errors.New("partial read")
		},
		logger: zap.NewNop(),
	}

	cpu := s.CPUTemperature(context.Background())
	require.NotNil(t, cpu)
	assert.InDelta(t, 55.0, *cpu, 0.0001)
	assert.Nil(t, s.GPUTemperature(context.Background()))

	var none *SensorReader
	assert.Nil(t, none.CPUTemperature(context.Background()))
}
