// Package app orchestrates one aggregation run: fetch all sources
// concurrently, isolate per-source failures, merge with the previous feed
// and persist the replacement document.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/svangsta/eventfeed/internal/dates"
	"github.com/svangsta/eventfeed/internal/feed"
	"github.com/svangsta/eventfeed/internal/model"
	"github.com/svangsta/eventfeed/internal/sources"
	"github.com/svangsta/eventfeed/pkg/logger"
	"github.com/svangsta/eventfeed/pkg/metrics"
)

// Runner executes the pipeline once.
type Runner struct {
	feedPath string
	sources  []sources.Source
	log      logger.Logger
	metrics  *metrics.Manager
	now      func() time.Time
}

// New constructs a Runner writing to feedPath from the given sources.
func New(feedPath string, srcs []sources.Source, opts ...Option) *Runner {
	r := &Runner{
		feedPath: feedPath,
		sources:  srcs,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.log == nil {
		r.log = logger.Get()
	}
	return r
}

// Summary reports what a run produced.
type Summary struct {
	// Total is the number of events in the persisted feed.
	Total int
	// PerSource maps source name to the fresh events it contributed.
	PerSource map[string]int
	// FailedSources lists sources that contributed nothing due to an error.
	FailedSources []string
	// PastKept and ForeignKept count previous-feed events carried forward.
	PastKept    int
	ForeignKept int
}

// outcome is one source's result, success or failure.
type outcome struct {
	name   string
	events []model.Event
	err    error
}

// Run executes the pipeline. Source failures are contained: a failing
// source contributes zero events and Run still succeeds. Only an unreadable
// previous feed or a failed write is returned as an error.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	start := time.Now()
	defer r.metrics.ObserveRun(start)

	previous, err := feed.Load(r.feedPath)
	if err != nil {
		return Summary{}, err
	}
	r.log.Info(ctx, "loaded previous feed",
		logger.String("path", r.feedPath), logger.Int("events", len(previous)))

	now := r.now()
	today := dates.DayString(now)

	// All sources fetch concurrently; each goroutine only writes its own
	// slot, and the wait joins them before any slot is read.
	outcomes := make([]outcome, len(r.sources))
	var wg sync.WaitGroup
	for i, src := range r.sources {
		wg.Add(1)
		go func(i int, src sources.Source) {
			defer wg.Done()
			defer func() {
				if p := recover(); p != nil {
					outcomes[i] = outcome{name: src.Name(), err: fmt.Errorf("source panic: %v", p)}
				}
			}()
			events, err := src.Events(ctx, now)
			outcomes[i] = outcome{name: src.Name(), events: events, err: err}
		}(i, src)
	}
	wg.Wait()

	summary := Summary{PerSource: make(map[string]int, len(r.sources))}
	var fresh []model.Event
	for _, o := range outcomes {
		if o.err != nil {
			r.log.Error(ctx, "source failed, contributing no events",
				logger.String("source", o.name), logger.Error(o.err))
			r.metrics.IncSourceFailure(o.name)
			summary.FailedSources = append(summary.FailedSources, o.name)
			summary.PerSource[o.name] = 0
			continue
		}
		summary.PerSource[o.name] = len(o.events)
		fresh = append(fresh, o.events...)
	}

	result := feed.Merge(previous, fresh, sources.Prefixes(r.sources), today)
	if err := feed.Save(r.feedPath, result.Events); err != nil {
		return Summary{}, err
	}

	summary.Total = len(result.Events)
	summary.PastKept = result.PastKept
	summary.ForeignKept = result.ForeignKept
	r.metrics.SetEventsWritten(summary.Total)

	fields := []logger.Field{
		logger.String("path", r.feedPath),
		logger.Int("total", summary.Total),
		logger.Int("past_kept", summary.PastKept),
		logger.Int("foreign_kept", summary.ForeignKept),
	}
	for name, count := range summary.PerSource {
		fields = append(fields, logger.Int(name, count))
	}
	r.log.Info(ctx, "feed written", fields...)

	return summary, nil
}
