// Package metrics provides Prometheus metrics for the event feed pipeline.
//
// The pipeline is a run-to-completion batch job, so instead of exposing a
// scrape endpoint the Manager gathers its private registry at the end of a
// run and writes it in the node-exporter textfile collector format.
package metrics

import (
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

// Manager manages all Prometheus metrics for one pipeline run.
//
// All record/observe methods are safe on a nil receiver, so components can
// treat metrics as strictly optional.
type Manager struct {
	namespace string
	registry  *prometheus.Registry

	// Per-source pipeline counters.
	eventsFetched     *prometheus.CounterVec
	eventsTransformed *prometheus.CounterVec
	recordsDropped    *prometheus.CounterVec
	sourceFailures    *prometheus.CounterVec

	// Enrichment counters.
	placeLookups   prometheus.Counter
	placeCacheHits prometheus.Counter

	// Run outcome.
	feedEventsWritten prometheus.Gauge
	runDuration       prometheus.Gauge
	lastRunUnix       prometheus.Gauge
}

// NewManager constructs a Manager with its own registry.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace: "eventfeed",
		registry:  prometheus.NewRegistry(),
	}
	for _, opt := range opts {
		opt(m)
	}

	factory := promauto.With(m.registry)

	m.eventsFetched = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "events_fetched_total",
		Help:      "Raw records fetched, per source.",
	}, []string{"source"})
	m.eventsTransformed = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "events_transformed_total",
		Help:      "Canonical future events produced, per source.",
	}, []string{"source"})
	m.recordsDropped = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "records_dropped_total",
		Help:      "Raw records dropped as unparseable or incomplete, per source.",
	}, []string{"source"})
	m.sourceFailures = factory.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "source_failures_total",
		Help:      "Sources that contributed zero events due to a failure.",
	}, []string{"source"})

	m.placeLookups = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "place_lookups_total",
		Help:      "HTTP lookups issued against the place API.",
	})
	m.placeCacheHits = factory.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Name:      "place_cache_hits_total",
		Help:      "Place resolutions served from the per-run cache.",
	})

	m.feedEventsWritten = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "feed_events_written",
		Help:      "Events in the persisted feed after the run.",
	})
	m.runDuration = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "run_duration_seconds",
		Help:      "Wall-clock duration of the run.",
	})
	m.lastRunUnix = factory.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Name:      "last_run_unix",
		Help:      "Unix time the run finished.",
	})

	return m
}

// AddFetched records raw records fetched for a source.
func (m *Manager) AddFetched(source string, n int) {
	if m == nil {
		return
	}
	m.eventsFetched.WithLabelValues(source).Add(float64(n))
}

// AddTransformed records canonical events produced for a source.
func (m *Manager) AddTransformed(source string, n int) {
	if m == nil {
		return
	}
	m.eventsTransformed.WithLabelValues(source).Add(float64(n))
}

// AddDropped records raw records a transformer discarded.
func (m *Manager) AddDropped(source string, n int) {
	if m == nil {
		return
	}
	m.recordsDropped.WithLabelValues(source).Add(float64(n))
}

// IncSourceFailure records a source that failed for the run.
func (m *Manager) IncSourceFailure(source string) {
	if m == nil {
		return
	}
	m.sourceFailures.WithLabelValues(source).Inc()
}

// IncPlaceLookup records one HTTP place lookup.
func (m *Manager) IncPlaceLookup() {
	if m == nil {
		return
	}
	m.placeLookups.Inc()
}

// IncPlaceCacheHit records a place resolution answered from cache.
func (m *Manager) IncPlaceCacheHit() {
	if m == nil {
		return
	}
	m.placeCacheHits.Inc()
}

// SetEventsWritten records the size of the persisted feed.
func (m *Manager) SetEventsWritten(n int) {
	if m == nil {
		return
	}
	m.feedEventsWritten.Set(float64(n))
}

// ObserveRun records the run duration and completion time.
func (m *Manager) ObserveRun(start time.Time) {
	if m == nil {
		return
	}
	m.runDuration.Set(time.Since(start).Seconds())
	m.lastRunUnix.Set(float64(time.Now().Unix()))
}

// WriteTextfile gathers the registry and writes it to path in the textfile
// collector exposition format. The file is replaced atomically so a
// concurrently scraping node exporter never sees a partial write.
func (m *Manager) WriteTextfile(path string) error {
	if m == nil {
		return ErrNilManager
	}
	if path == "" {
		return ErrEmptyPath
	}

	families, err := m.registry.Gather()
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".eventfeed-metrics-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	for _, family := range families {
		if _, err := expfmt.MetricFamilyToText(tmp, family); err != nil {
			tmp.Close()
			return err
		}
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
