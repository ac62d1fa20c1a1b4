// Command eventfeed aggregates event listings from the town's sources into
// one normalized, deduplicated JSON feed. It runs to completion once per
// invocation; scheduling is left to cron or CI.
package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/svangsta/eventfeed/internal/app"
	"github.com/svangsta/eventfeed/internal/config"
	"github.com/svangsta/eventfeed/internal/places"
	"github.com/svangsta/eventfeed/internal/sources"
	"github.com/svangsta/eventfeed/internal/sources/church"
	"github.com/svangsta/eventfeed/internal/sources/esport"
	"github.com/svangsta/eventfeed/internal/sources/garden"
	"github.com/svangsta/eventfeed/pkg/logger"
	"github.com/svangsta/eventfeed/pkg/metrics"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		cfgPath     = flag.String("config", "", "path to YAML config (or EVENTFEED_CONFIG)")
		output      = flag.String("output", "", "override the output feed path")
		metricsFile = flag.String("metrics-file", "", "override the metrics textfile path")
	)
	flag.Parse()

	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return 1
	}

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx, *cfgPath)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return 1
	}
	if *output != "" {
		cfg.OutputFile = *output
	}
	if *metricsFile != "" {
		cfg.MetricsFile = *metricsFile
	}

	log := logger.Get().With(logger.String("run_id", uuid.NewString()))

	// Apply configured log level (fallback to info on invalid input).
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level, falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	m := metrics.NewManager()
	httpClient := &http.Client{Timeout: time.Duration(cfg.HTTPTimeoutSeconds) * time.Second}

	resolver := places.New(cfg.Places,
		places.WithHTTPClient(httpClient),
		places.WithLogger(log.Named("places")),
		places.WithMetrics(m),
	)

	srcs := buildSources(cfg, resolver, httpClient, log, m)
	if len(srcs) == 0 {
		log.Error(ctx, "no sources enabled, refusing to run")
		return 1
	}

	runner := app.New(cfg.OutputFile, srcs, app.WithLogger(log), app.WithMetrics(m))
	summary, err := runner.Run(ctx)
	if err != nil {
		log.Error(ctx, "run failed", logger.Error(err))
		return 1
	}

	if cfg.MetricsFile != "" {
		if err := m.WriteTextfile(cfg.MetricsFile); err != nil {
			// Metrics export is best-effort; the feed has been written.
			log.Warn(ctx, "failed to write metrics textfile",
				logger.String("path", cfg.MetricsFile), logger.Error(err))
		}
	}

	log.Info(ctx, "run complete",
		logger.Int("total", summary.Total),
		logger.Int("failed_sources", len(summary.FailedSources)))
	return 0
}

// buildSources assembles the enabled sources in a fixed order so the merge
// input is deterministic across runs.
func buildSources(cfg *config.Config, resolver *places.Resolver, client *http.Client, log logger.Logger, m *metrics.Manager) []sources.Source {
	var srcs []sources.Source
	if cfg.Church.Enabled {
		srcs = append(srcs, church.New(cfg.Church, resolver,
			church.WithHTTPClient(client),
			church.WithLogger(log.Named("church")),
			church.WithMetrics(m),
		))
	}
	if cfg.Garden.Enabled {
		srcs = append(srcs, garden.New(cfg.Garden,
			garden.WithHTTPClient(client),
			garden.WithLogger(log.Named("garden")),
			garden.WithMetrics(m),
		))
	}
	if cfg.Esport.Enabled {
		srcs = append(srcs, esport.New(cfg.Esport,
			esport.WithHTTPClient(client),
			esport.WithLogger(log.Named("esport")),
			esport.WithMetrics(m),
		))
	}
	return srcs
}
