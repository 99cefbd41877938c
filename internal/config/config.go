// Package config loads and validates application configuration from YAML,
// environment variables, and defaults via viper.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/jonesrussell/tenderwatch/internal/archive"
	"github.com/jonesrussell/tenderwatch/internal/fetch"
	"github.com/jonesrussell/tenderwatch/internal/logger"
)

// FeedSource is one configured RSS/Atom source.
type FeedSource struct {
	// Name is the unique identifier for the source; it becomes the record's
	// source column.
	Name string `mapstructure:"name"`
	// URL is the feed address.
	URL string `mapstructure:"url"`
	// FollowDetail enables detail-page enrichment for this source.
	FollowDetail bool `mapstructure:"follow_detail"`
}

// Validate validates a feed source.
func (s *FeedSource) Validate() error {
	if s.Name == "" {
		return errors.New("feed source name is required")
	}
	if s.URL == "" {
		return fmt.Errorf("feed source %q: url is required", s.Name)
	}
	return nil
}

// AppConfig holds application-level settings.
type AppConfig struct {
	// Timezone is the civil timezone publication dates refer to.
	Timezone string `mapstructure:"timezone"`
}

// ArchiveConfig holds bulk archive collector settings.
type ArchiveConfig struct {
	// URLTemplate is the monthly archive address with a {yyyymm} placeholder.
	URLTemplate string `mapstructure:"url_template"`
}

// FetchConfig holds HTTP client settings.
type FetchConfig struct {
	// Timeout is the per-attempt request deadline.
	Timeout time.Duration `mapstructure:"timeout"`
	// UserAgent identifies the aggregator to upstream portals.
	UserAgent string `mapstructure:"user_agent"`
	// DetailDelay is the courtesy pause before each detail-page fetch.
	DetailDelay time.Duration `mapstructure:"detail_delay"`
	// Retry is the backoff policy for transient failures.
	Retry fetch.RetryConfig `mapstructure:"retry"`
}

// RunConfig holds the default run parameters; flags override them.
type RunConfig struct {
	// When selects the archive date field: updated, published, either.
	When string `mapstructure:"when"`
	// CPV is the default target code list.
	CPV []string `mapstructure:"cpv"`
	// CPVMode is exact or prefix.
	CPVMode string `mapstructure:"cpv_mode"`
	// CPVScope is folder, lots, or both.
	CPVScope string `mapstructure:"cpv_scope"`
}

// Config is the root configuration.
type Config struct {
	App     AppConfig     `mapstructure:"app"`
	Log     logger.Config `mapstructure:"log"`
	Archive ArchiveConfig `mapstructure:"archive"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Run     RunConfig     `mapstructure:"run"`
	Sources []FeedSource  `mapstructure:"sources"`
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	switch c.Run.When {
	case archive.WhenUpdated, archive.WhenPublished, archive.WhenEither:
	default:
		return fmt.Errorf("run.when must be updated, published or either, got %q", c.Run.When)
	}

	switch c.Run.CPVScope {
	case archive.ScopeFolder, archive.ScopeLots, archive.ScopeBoth:
	default:
		return fmt.Errorf("run.cpv_scope must be folder, lots or both, got %q", c.Run.CPVScope)
	}

	if c.Run.CPVMode != "exact" && c.Run.CPVMode != "prefix" {
		return fmt.Errorf("run.cpv_mode must be exact or prefix, got %q", c.Run.CPVMode)
	}

	for i := range c.Sources {
		if err := c.Sources[i].Validate(); err != nil {
			return err
		}
	}

	return nil
}

// SetDefaults registers the configuration defaults on a viper instance.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("app.timezone", "Europe/Madrid")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("archive.url_template", archive.DefaultURLTemplate)
	v.SetDefault("fetch.timeout", "2m")
	v.SetDefault("fetch.user_agent", "tenderwatch/1.0 (+public procurement aggregator)")
	v.SetDefault("fetch.detail_delay", "800ms")
	v.SetDefault("fetch.retry.max_attempts", 3)
	v.SetDefault("fetch.retry.initial_delay", "1s")
	v.SetDefault("fetch.retry.max_delay", "30s")
	v.SetDefault("fetch.retry.multiplier", 2.0)
	v.SetDefault("run.when", archive.WhenEither)
	v.SetDefault("run.cpv_mode", "exact")
	v.SetDefault("run.cpv_scope", archive.ScopeFolder)
}

// Load decodes and validates the configuration from a prepared viper
// instance.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create decoder: %w", err)
	}

	if decodeErr := decoder.Decode(v.AllSettings()); decodeErr != nil {
		return nil, fmt.Errorf("unmarshal config: %w", decodeErr)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}
