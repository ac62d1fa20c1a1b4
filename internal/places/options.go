package places

import (
	"net/http"

	"github.com/svangsta/eventfeed/pkg/logger"
	"github.com/svangsta/eventfeed/pkg/metrics"
)

// Option applies a configuration option to the Resolver.
type Option func(*Resolver)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(r *Resolver) {
		if client != nil {
			r.client = client
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(r *Resolver) {
		if log != nil {
			r.log = log
		}
	}
}

// WithMetrics attaches a metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(r *Resolver) {
		r.metrics = m
	}
}
