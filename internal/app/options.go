package app

import (
	"time"

	"github.com/svangsta/eventfeed/pkg/logger"
	"github.com/svangsta/eventfeed/pkg/metrics"
)

// Option applies a configuration option to the Runner.
type Option func(*Runner)

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(r *Runner) {
		if log != nil {
			r.log = log
		}
	}
}

// WithMetrics attaches a metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(r *Runner) {
		r.metrics = m
	}
}

// WithClock overrides the wall clock, anchoring "today" in tests.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.now = now
		}
	}
}
