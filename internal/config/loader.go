package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Load builds a Config by layering defaults, optional file, and env vars.
// Order of precedence (low -> high):
//  1. defaults (New(ctx))
//  2. file (YAML) if path or EVENTFEED_CONFIG is set
//  3. env (prefix EVENTFEED_)
//
// Env keys use a double underscore as the nesting separator so that keys
// containing underscores survive the mapping: EVENTFEED_CHURCH__API_KEY ->
// church.api_key, EVENTFEED_LOG_LEVEL -> log_level.
func Load(ctx context.Context, path string) (*Config, error) {
	base := New(ctx)

	k := koanf.New(".")

	if path == "" {
		path = os.Getenv("EVENTFEED_CONFIG")
	}
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
		}
	}

	envProvider := env.Provider("EVENTFEED_", ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, "eventfeed_")
		return strings.ReplaceAll(s, "__", ".")
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadConfig, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.OutputFile == "" {
		return fmt.Errorf("%w: output_file must not be empty", ErrInvalidConfig)
	}
	if c.HTTPTimeoutSeconds <= 0 {
		return fmt.Errorf("%w: http_timeout_seconds must be positive", ErrInvalidConfig)
	}
	if c.Church.Enabled && c.Church.APIKey == "" {
		return fmt.Errorf("%w: church.api_key must be set (EVENTFEED_CHURCH__API_KEY)", ErrInvalidConfig)
	}
	if c.Esport.Enabled && c.Esport.MonthsAhead <= 0 {
		return fmt.Errorf("%w: esport.months_ahead must be positive", ErrInvalidConfig)
	}
	return nil
}
