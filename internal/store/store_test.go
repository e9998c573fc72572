package store

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guliveer/devdash/internal/models"
)

func cpuReading(overall float64) models.Reading {
	return models.Reading{
		Category:   models.CategoryCPU,
		CapturedAt: time.Now(),
		Health:     models.HealthOk,
		CPU:        &models.CPUReading{Overall: overall, Cores: []float64{overall, overall}},
	}
}

func TestUpdateIncrementsVersion(t *testing.T) {
	s := New()
	snap, v := s.Read()
	assert.Zero(t, v)
	_, ok := snap.Get(models.CategoryCPU)
	assert.False(t, ok)

	assert.Equal(t, uint64(1), s.Update(cpuReading(10)))
	assert.Equal(t, uint64(2), s.Update(models.Reading{
		Category:   models.CategoryMemory,
		CapturedAt: time.Now(),
		Memory:     &models.MemoryReading{Used: 1, Total: 2},
	}))

	snap, v = s.Read()
	assert.Equal(t, uint64(2), v)
	cpu, ok := snap.Get(models.CategoryCPU)
	require.True(t, ok)
	assert.InDelta(t, 10.0, cpu.CPU.Overall, 0.001)
	_, ok = s.Latest(models.CategoryMemory)
	assert.True(t, ok)
}

func TestUpdateDropsUnknownCategory(t *testing.T) {
	s := New()
	s.Update(cpuReading(1))
	assert.Equal(t, uint64(1), s.Update(models.Reading{Category: models.Category(99)}))
}

func TestReadIsIsolatedFromLaterWrites(t *testing.T) {
	s := New()
	s.Update(cpuReading(10))
	snap, _ := s.Read()

	s.Update(cpuReading(90))

	cpu, _ := snap.Get(models.CategoryCPU)
	assert.InDelta(t, 10.0, cpu.CPU.Overall, 0.001)
	assert.Equal(t, uint64(1), snap.Version)
}

// Concurrent writers on different categories while a reader checks every
// snapshot is complete: each CPU reading carries its value twice in Cores, and
// versions never go backwards.
func TestConcurrentWritersAndReader(t *testing.T) {
	s := New()
	const writers, perWriter = 4, 500

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				if w%2 == 0 {
					s.Update(cpuReading(float64(i)))
				} else {
					s.Update(models.Reading{
						Category:   models.CategoryNetwork,
						CapturedAt: time.Now(),
						Network:    &models.NetworkReading{},
					})
				}
			}
		}(w)
	}

	done := make(chan struct{})
	readerErr := make(chan string, 1)
	go func() {
		defer close(done)
		var last uint64
		for {
			snap, v := s.Read()
			if v < last {
				readerErr <- "version went backwards"
				return
			}
			last = v
			if cpu, ok := snap.Get(models.CategoryCPU); ok {
				if cpu.CPU == nil || len(cpu.CPU.Cores) != 2 || cpu.CPU.Cores[0] != cpu.CPU.Overall {
					readerErr <- "torn cpu reading"
					return
				}
			}
			if v == writers*perWriter {
				return
			}
		}
	}()

	wg.Wait()
	<-done
	select {
	case msg := <-readerErr:
		t.Fatal(msg)
	default:
	}
	assert.Equal(t, uint64(writers*perWriter), s.Version())
}
