// Package collector defines the Collector interface and provides
// implementations for the dashboard's metric sources.
package collector

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Guliveer/devdash/internal/models"
)

// Collector is the interface that all metric sources must implement.
// Each collector produces readings for exactly one category.
type Collector interface {
	// Name returns the unique identifier for this collector.
	Name() string

	// Category returns the metric category this collector feeds.
	Category() models.Category

	// Collect takes one sample. Implementations must honour ctx and must
	// not retain the returned reading.
	Collect(ctx context.Context) (models.Reading, error)

	// IsAvailable checks if this collector can run on the current platform.
	IsAvailable() bool
}

// ErrorKind classifies a source failure.
type ErrorKind int

const (
	// KindFailed is a transient error; the next sample may succeed.
	KindFailed ErrorKind = iota
	// KindTimeout means the sample did not finish within its budget.
	KindTimeout
	// KindUnavailable means the device or driver is absent. It is permanent
	// for the lifetime of the process.
	KindUnavailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindFailed:
		return "failed"
	case KindTimeout:
		return "timeout"
	case KindUnavailable:
		return "unavailable"
	default:
		return "unknown"
	}
}

var (
	// ErrNoDevice is returned by sources whose hardware is not present.
	ErrNoDevice = errors.New("no compatible device")
	// ErrStillRunning is returned while an abandoned sample is still in flight.
	ErrStillRunning = errors.New("previous sample still running")
)

// SourceError is the classified error of one sample attempt.
type SourceError struct {
	Source string
	Kind   ErrorKind
	Err    error
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Source, e.Kind, e.Err)
}

func (e *SourceError) Unwrap() error { return e.Err }

// Transient reports whether a later sample may succeed.
func (e *SourceError) Transient() bool { return e.Kind != KindUnavailable }

// Unavailable wraps err as a permanent source error.
func Unavailable(source string, err error) error {
	return &SourceError{Source: source, Kind: KindUnavailable, Err: err}
}

// Classify turns any error returned by a collector into a *SourceError.
// Errors wrapping ErrNoDevice are Unavailable, deadline errors are Timeout,
// everything else is Failed.
func Classify(source string, err error) *SourceError {
	var se *SourceError
	if errors.As(err, &se) {
		return se
	}
	switch {
	case errors.Is(err, ErrNoDevice):
		return &SourceError{Source: source, Kind: KindUnavailable, Err: err}
	case errors.Is(err, context.DeadlineExceeded):
		return &SourceError{Source: source, Kind: KindTimeout, Err: err}
	default:
		return &SourceError{Source: source, Kind: KindFailed, Err: err}
	}
}

// Poller wraps a Collector with a latency budget. At most one Collect call
// per source is in flight: if an earlier call overran its budget and is
// still running, Poll fails fast with a Timeout instead of stacking another
// goroutine on the same source.
type Poller struct {
	c    Collector
	busy atomic.Bool
	now  func() time.Time
}

// NewPoller creates a Poller for c.
func NewPoller(c Collector) *Poller {
	return &Poller{c: c, now: time.Now}
}

// Collector returns the wrapped collector.
func (p *Poller) Collector() Collector { return p.c }

// Poll runs one Collect and returns no later than timeout. A timeout of zero
// or less means no budget beyond ctx.
func (p *Poller) Poll(ctx context.Context, timeout time.Duration) (models.Reading, error) {
	name := p.c.Name()
	if !p.busy.CompareAndSwap(false, true) {
		return models.Reading{}, &SourceError{Source: name, Kind: KindTimeout, Err: ErrStillRunning}
	}

	var (
		cctx   context.Context
		cancel context.CancelFunc
	)
	if timeout > 0 {
		cctx, cancel = context.WithTimeout(ctx, timeout)
	} else {
		cctx, cancel = context.WithCancel(ctx)
	}

	type result struct {
		reading models.Reading
		err     error
	}
	done := make(chan result, 1)
	go func() {
		defer p.busy.Store(false)
		defer cancel()
		r, err := p.c.Collect(cctx)
		done <- result{r, err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return models.Reading{}, Classify(name, res.err)
		}
		r := res.reading
		r.Category = p.c.Category()
		if r.CapturedAt.IsZero() {
			r.CapturedAt = p.now()
		}
		return r, nil
	case <-cctx.Done():
		return models.Reading{}, &SourceError{Source: name, Kind: KindTimeout, Err: cctx.Err()}
	}
}

// newReading stamps an Ok reading for category c.
func newReading(c models.Category, at time.Time) models.Reading {
	return models.Reading{Category: c, CapturedAt: at, Health: models.HealthOk}
}
