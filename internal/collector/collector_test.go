package collector

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Guliveer/devdash/internal/models"
)

// fakeCollector returns canned results and can block until released.
type fakeCollector struct {
	name    string
	cat     models.Category
	block   chan struct{}
	err     error
	calls   atomic.Int32
	running atomic.Int32
}

func (f *fakeCollector) Name() string              { return f.name }
func (f *fakeCollector) Category() models.Category { return f.cat }
func (f *fakeCollector) IsAvailable() bool         { return true }

func (f *fakeCollector) Collect(ctx context.Context) (models.Reading, error) {
	f.calls.Add(1)
	f.running.Add(1)
	defer f.running.Add(-1)
	if f.block != nil {
		// Ignores ctx on purpose: models a driver call that cannot be interrupted.
		<-f.block
	}
	if f.err != nil {
		return models.Reading{}, f.err
	}
	return models.Reading{Health: models.HealthOk, Memory: &models.MemoryReading{Used: 1, Total: 2}}, nil
}

func TestPollStampsReading(t *testing.T) {
	f := &fakeCollector{name: "memory", cat: models.CategoryMemory}
	p := NewPoller(f)
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	p.now = func() time.Time { return at }

	r, err := p.Poll(context.Background(), time.Second)
	require.NoError(t, err)
	assert.Equal(t, models.CategoryMemory, r.Category)
	assert.Equal(t, at, r.CapturedAt)
	assert.True(t, r.HasPayload())
}

func TestPollTimeoutDoesNotPileUp(t *testing.T) {
	release := make(chan struct{})
	f := &fakeCollector{name: "gpu", cat: models.CategoryGPU, block: release}
	p := NewPoller(f)

	start := time.Now()
	_, err := p.Poll(context.Background(), 20*time.Millisecond)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second)

	var se *SourceError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, KindTimeout, se.Kind)
	assert.True(t, se.Transient())

	// The first call is still stuck; later polls fail fast without calling Collect.
	for i := 0; i < 5; i++ {
		_, err = p.Poll(context.Background(), 20*time.Millisecond)
		require.ErrorIs(t, err, ErrStillRunning)
	}
	assert.Equal(t, int32(1), f.calls.Load())

	close(release)
	require.Eventually(t, func() bool { return f.running.Load() == 0 }, time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool {
		_, err := p.Poll(context.Background(), time.Second)
		return err == nil
	}, time.Second, 5*time.Millisecond)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorKind
	}{
		{"no device", fmt.Errorf("probe: %w", ErrNoDevice), KindUnavailable},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"other", errors.New("read failed"), KindFailed},
		{"already classified", Unavailable("gpu", errors.New("x")), KindUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := Classify("src", tt.err)
			assert.Equal(t, tt.want, se.Kind)
			assert.ErrorIs(t, se, tt.err)
		})
	}
}

func TestPollClassifiesCollectorError(t *testing.T) {
	f := &fakeCollector{name: "gpu", cat: models.CategoryGPU, err: ErrNoDevice}
	_, err := NewPoller(f).Poll(context.Background(), time.Second)

	var se *SourceError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindUnavailable, se.Kind)
	assert.False(t, se.Transient())
	assert.Equal(t, "gpu", se.Source)
}

func TestRegistryCollectAll(t *testing.T) {
	r := NewRegistry(nil)
	r.Register(&fakeCollector{name: "memory", cat: models.CategoryMemory})
	r.Register(&fakeCollector{name: "gpu", cat: models.CategoryGPU, err: ErrNoDevice})

	assert.Equal(t, []models.Category{models.CategoryMemory, models.CategoryGPU}, r.Categories())

	got := r.CollectAll(context.Background(), time.Second)
	require.Len(t, got, 1)
	assert.Contains(t, got, models.CategoryMemory)
}
