package models

import "time"

// SourceConfig controls how one metric source is polled.
type SourceConfig struct {
	Enabled    bool `json:"enabled" yaml:"enabled"`
	IntervalMS int  `json:"interval_ms" yaml:"interval_ms"`
	// TimeoutMS bounds a single poll. Zero means the interval.
	TimeoutMS int `json:"timeout_ms,omitempty" yaml:"timeout_ms,omitempty"`
	// StaleAfterMS is the grace period after the last success before the
	// kept reading is marked Stale. Zero means three intervals.
	StaleAfterMS int `json:"stale_after_ms,omitempty" yaml:"stale_after_ms,omitempty"`
}

// Interval returns the polling cadence.
func (s SourceConfig) Interval() time.Duration {
	return time.Duration(s.IntervalMS) * time.Millisecond
}

// Timeout returns the per-poll latency budget.
func (s SourceConfig) Timeout() time.Duration {
	if s.TimeoutMS > 0 {
		return time.Duration(s.TimeoutMS) * time.Millisecond
	}
	return s.Interval()
}

// StaleAfter returns the freshness window of a kept reading.
func (s SourceConfig) StaleAfter() time.Duration {
	if s.StaleAfterMS > 0 {
		return time.Duration(s.StaleAfterMS) * time.Millisecond
	}
	return 3 * s.Interval()
}
