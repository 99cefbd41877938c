// Package common provides shared dependency construction for the CLI
// commands.
package common

import (
	"fmt"
	"time"

	"github.com/spf13/viper"

	"github.com/jonesrussell/tenderwatch/internal/aggregate"
	"github.com/jonesrussell/tenderwatch/internal/archive"
	"github.com/jonesrussell/tenderwatch/internal/config"
	"github.com/jonesrussell/tenderwatch/internal/detail"
	"github.com/jonesrussell/tenderwatch/internal/feed"
	"github.com/jonesrussell/tenderwatch/internal/fetch"
	"github.com/jonesrussell/tenderwatch/internal/logger"
)

// Deps bundles the dependencies every command starts from.
type Deps struct {
	Config   *config.Config
	Logger   logger.Interface
	Location *time.Location
}

// NewCommandDeps loads configuration from the global viper instance and
// builds the logger and timezone.
func NewCommandDeps() (*Deps, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	log, err := logger.New(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	loc, err := time.LoadLocation(cfg.App.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", cfg.App.Timezone, err)
	}

	return &Deps{Config: cfg, Logger: log, Location: loc}, nil
}

// NewFetchClient builds the HTTP client from config.
func NewFetchClient(deps *Deps) *fetch.Client {
	return fetch.NewClient(
		deps.Config.Fetch.Timeout,
		deps.Config.Fetch.Retry,
		deps.Config.Fetch.UserAgent,
		deps.Logger,
	)
}

// NewOrchestrator wires the collector families into an orchestrator.
func NewOrchestrator(deps *Deps) *aggregate.Orchestrator {
	client := NewFetchClient(deps)

	archiveCollector := archive.NewCollector(deps.Config.Archive.URLTemplate, client, deps.Logger)
	feedCollector := feed.NewCollector(client, detail.NewRegistry(), deps.Config.Fetch.DetailDelay, deps.Logger)

	return aggregate.New(archiveCollector, feedCollector, deps.Logger)
}

// FeedSources converts configured sources to collector inputs, preserving
// order.
func FeedSources(cfg *config.Config) []feed.Source {
	sources := make([]feed.Source, 0, len(cfg.Sources))
	for _, s := range cfg.Sources {
		sources = append(sources, feed.Source{
			Name:         s.Name,
			URL:          s.URL,
			FollowDetail: s.FollowDetail,
		})
	}
	return sources
}
