package collector

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/Guliveer/devdash/internal/models"
)

// Registry holds one collector per category. Collectors are registered at
// startup; the scheduler takes a Poller per registered source.
type Registry struct {
	pollers map[models.Category]*Poller
	order   []models.Category
	logger  *zap.Logger
}

// NewRegistry creates a new collector registry with the given logger.
func NewRegistry(logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		pollers: make(map[models.Category]*Poller),
		logger:  logger,
	}
}

// Register adds a collector if it's available on the current platform.
// A later collector for the same category replaces the earlier one.
func (r *Registry) Register(c Collector) {
	if !c.IsAvailable() {
		r.logger.Warn("Collector not available, skipping", zap.String("name", c.Name()))
		return
	}
	cat := c.Category()
	if _, exists := r.pollers[cat]; !exists {
		r.order = append(r.order, cat)
	}
	r.pollers[cat] = NewPoller(c)
	r.logger.Info("Registered collector",
		zap.String("name", c.Name()),
		zap.Stringer("category", cat))
}

// Poller returns the poller for category c.
func (r *Registry) Poller(c models.Category) (*Poller, bool) {
	p, ok := r.pollers[c]
	return p, ok
}

// Categories returns the registered categories in registration order.
func (r *Registry) Categories() []models.Category {
	out := make([]models.Category, len(r.order))
	copy(out, r.order)
	return out
}

// CollectAll polls every registered collector concurrently and returns the
// readings that succeeded. Failures are logged and do not prevent other
// collectors from completing.
func (r *Registry) CollectAll(ctx context.Context, timeout time.Duration) map[models.Category]models.Reading {
	results := make(map[models.Category]models.Reading, len(r.order))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, cat := range r.order {
		p := r.pollers[cat]
		wg.Add(1)
		go func(cat models.Category, p *Poller) {
			defer wg.Done()
			reading, err := p.Poll(ctx, timeout)
			if err != nil {
				r.logger.Warn("Collection failed",
					zap.String("collector", p.Collector().Name()),
					zap.Error(err))
				return
			}
			mu.Lock()
			results[cat] = reading
			mu.Unlock()
		}(cat, p)
	}

	wg.Wait()
	return results
}
