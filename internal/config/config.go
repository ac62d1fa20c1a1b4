// Package config defines pipeline configuration structures and loading hooks.
//
// Conventions:
// - Provide New(...) to build a Config with defaults.
// - Load layers defaults, an optional YAML file and EVENTFEED_* env vars.
// - External errors must be wrapped via this package's error helpers.
package config

import "context"

// Config contains process configuration for one aggregation run.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// OutputFile is the path of the persisted feed JSON document.
	OutputFile string `koanf:"output_file"`

	// MetricsFile, when non-empty, is where run metrics are written in the
	// node-exporter textfile collector format.
	MetricsFile string `koanf:"metrics_file"`

	// HTTPTimeoutSeconds bounds every outbound HTTP request.
	HTTPTimeoutSeconds int `koanf:"http_timeout_seconds"`

	Church ChurchConfig `koanf:"church"`
	Garden GardenConfig `koanf:"garden"`
	Esport EsportConfig `koanf:"esport"`
	Places PlacesConfig `koanf:"places"`
}

// ChurchConfig configures the parish calendar API source.
type ChurchConfig struct {
	Enabled bool   `koanf:"enabled"`
	APIURL  string `koanf:"api_url"`
	APIKey  string `koanf:"api_key"`
	OwnerID string `koanf:"owner_id"`
}

// GardenConfig configures the garden society listing source.
type GardenConfig struct {
	Enabled bool   `koanf:"enabled"`
	URL     string `koanf:"url"`
}

// EsportConfig configures the esport association calendar source.
type EsportConfig struct {
	Enabled bool   `koanf:"enabled"`
	BaseURL string `koanf:"base_url"`

	// MonthsAhead bounds the calendar lookahead window, current month
	// included.
	MonthsAhead int `koanf:"months_ahead"`
}

// PlacesConfig configures the place-lookup API used to enrich church events
// with street addresses.
type PlacesConfig struct {
	APIURL string `koanf:"api_url"`
	APIKey string `koanf:"api_key"`

	// DelayMS is the pause between consecutive distinct lookups. The
	// endpoint is a shared third-party service; keep this at a polite value.
	DelayMS int `koanf:"delay_ms"`
}

// New creates a Config with defaults. Context is accepted first to satisfy
// the project-wide convention; it is reserved for future use and currently
// unused.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:           "info",
		OutputFile:         "src/data/events.json",
		MetricsFile:        "",
		HTTPTimeoutSeconds: 30,
		Church: ChurchConfig{
			Enabled: true,
			APIURL:  "https://svk-apim-prod.azure-api.net/calendar/v1/event/search/",
			OwnerID: "22059",
		},
		Garden: GardenConfig{
			Enabled: true,
			URL:     "https://svangstatradgard.se/index.php/category/evenemang/",
		},
		Esport: EsportConfig{
			Enabled:     true,
			BaseURL:     "https://www.svangstaesport.se/kalender",
			MonthsAhead: 4,
		},
		Places: PlacesConfig{
			APIURL:  "https://api.svenskakyrkan.se/platser/v4/place",
			DelayMS: 200,
		},
	}
}
