package church

import (
	"net/http"

	"github.com/svangsta/eventfeed/pkg/logger"
	"github.com/svangsta/eventfeed/pkg/metrics"
)

// Option applies a configuration option to the Source.
type Option func(*Source)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Source) {
		if client != nil {
			s.client = client
		}
	}
}

// WithLogger sets a custom logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Source) {
		if log != nil {
			s.log = log
		}
	}
}

// WithMetrics attaches a metrics manager.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Source) {
		s.metrics = m
	}
}
