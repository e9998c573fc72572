// Package scheduler polls every metric source on its own cadence and writes
// the results into the snapshot store. A slow or failing source never
// delays another: each source runs in its own loop under an errgroup.
package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Guliveer/devdash/internal/collector"
	"github.com/Guliveer/devdash/internal/config"
	"github.com/Guliveer/devdash/internal/models"
)

// Writer receives readings. *store.Store implements it.
type Writer interface {
	Update(models.Reading) uint64
}

// settings is one immutable generation of the source configuration.
type settings struct {
	sources map[models.Category]models.SourceConfig
	backoff int
	// wake is closed when this generation is replaced.
	wake chan struct{}
}

// Scheduler manages the per-source polling loops.
type Scheduler struct {
	registry *collector.Registry
	store    Writer
	logger   *zap.Logger
	now      func() time.Time

	mu      sync.Mutex // serialises Reconfigure
	current atomic.Pointer[settings]
}

// New creates a Scheduler over the registered collectors.
func New(registry *collector.Registry, store Writer, sources config.SourcesConfig, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		registry: registry,
		store:    store,
		logger:   logger.Named("scheduler"),
		now:      time.Now,
	}
	s.current.Store(newSettings(sources))
	return s
}

func newSettings(sources config.SourcesConfig) *settings {
	backoff := sources.UnavailableBackoff
	if backoff < 1 {
		backoff = 1
	}
	return &settings{sources: sources.Map(), backoff: backoff, wake: make(chan struct{})}
}

// Reconfigure replaces the whole source configuration at once. Every loop
// wakes up and continues with the new settings; a source that was disabled
// starts sampling immediately.
func (s *Scheduler) Reconfigure(sources config.SourcesConfig) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := newSettings(sources)
	prev := s.current.Swap(next)
	close(prev.wake)
	s.logger.Info("Source configuration replaced")
}

// Source returns the settings currently in effect for c.
func (s *Scheduler) Source(c models.Category) models.SourceConfig {
	return s.current.Load().sources[c]
}

// Run starts one loop per registered source and blocks until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, cat := range s.registry.Categories() {
		p, _ := s.registry.Poller(cat)
		g.Go(func() error {
			s.runSource(gctx, cat, p)
			return nil
		})
	}
	s.logger.Info("Scheduler running", zap.Int("sources", len(s.registry.Categories())))
	return g.Wait()
}

// sourceState is owned by a single loop.
type sourceState struct {
	last        models.Reading
	lastSuccess time.Time
	failing     bool
	// degraded is the health written since the last success; HealthOk
	// means nothing was written.
	degraded models.Health
	disabled bool
}

func (s *Scheduler) runSource(ctx context.Context, cat models.Category, p *collector.Poller) {
	st := &sourceState{}
	log := s.logger.With(zap.Stringer("source", cat))

	for {
		gen := s.current.Load()
		cfg := gen.sources[cat]

		wait := time.Duration(-1)
		if !cfg.Enabled || cfg.IntervalMS <= 0 {
			s.disable(cat, st)
		} else {
			st.disabled = false
			start := s.now()
			next := s.sample(ctx, cat, p, cfg, gen.backoff, st, log)
			wait = next - s.now().Sub(start)
			if wait < 0 {
				wait = 0
			}
		}

		if !sleep(ctx, wait, gen.wake) {
			return
		}
	}
}

// disable replaces whatever the source last showed with an Unavailable
// "disabled" reading, once per disable. A source that never wrote anything
// stays absent from the snapshot.
func (s *Scheduler) disable(cat models.Category, st *sourceState) {
	if st.disabled {
		return
	}
	shown := !st.last.IsZero() || st.degraded != models.HealthOk
	*st = sourceState{disabled: true}
	if !shown {
		return
	}
	s.store.Update(models.Reading{
		Category:   cat,
		CapturedAt: s.now(),
		Health:     models.HealthUnavailable,
		Error:      "disabled",
	})
}

// sample polls once and returns the delay until the next poll.
func (s *Scheduler) sample(ctx context.Context, cat models.Category, p *collector.Poller, cfg models.SourceConfig, backoff int, st *sourceState, log *zap.Logger) time.Duration {
	reading, err := p.Poll(ctx, cfg.Timeout())
	now := s.now()

	if err == nil {
		s.store.Update(reading)
		st.last = reading
		st.lastSuccess = now
		st.degraded = models.HealthOk
		if st.failing {
			log.Info("Source recovered")
			st.failing = false
		}
		return cfg.Interval()
	}
	if ctx.Err() != nil {
		return 0
	}

	se := collector.Classify(p.Collector().Name(), err)
	if !st.failing {
		log.Warn("Source poll failed", zap.Stringer("kind", se.Kind), zap.Error(se.Err))
		st.failing = true
	} else {
		log.Debug("Source poll failed", zap.Stringer("kind", se.Kind), zap.Error(se.Err))
	}

	if se.Kind == collector.KindUnavailable {
		s.write(st, models.Reading{
			Category:   cat,
			CapturedAt: now,
			Health:     models.HealthUnavailable,
			Error:      se.Error(),
		})
		return cfg.Interval() * time.Duration(backoff)
	}

	switch {
	case st.last.IsZero():
		// Nothing to keep yet.
		s.write(st, models.Reading{
			Category:   cat,
			CapturedAt: now,
			Health:     models.HealthUnavailable,
			Error:      se.Error(),
		})
	case now.Sub(st.lastSuccess) > cfg.StaleAfter():
		s.write(st, st.last.WithHealth(models.HealthStale, se.Error()))
	}
	return cfg.Interval()
}

// write stores r unless the same health was already written since the last
// success, so a persistent failure does not churn the version.
func (s *Scheduler) write(st *sourceState, r models.Reading) {
	if st.degraded == r.Health {
		return
	}
	s.store.Update(r)
	st.degraded = r.Health
}

// sleep waits for d, ctx or wake. d < 0 waits without a deadline. It
// returns false when ctx is done.
func sleep(ctx context.Context, d time.Duration, wake <-chan struct{}) bool {
	if d < 0 {
		select {
		case <-ctx.Done():
			return false
		case <-wake:
			return true
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-wake:
		return true
	case <-timer.C:
		return true
	}
}
