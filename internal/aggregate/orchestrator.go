// Package aggregate drives the collector families across a date window and
// reconciles their output into one deduplicated record set.
package aggregate

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/tenderwatch/internal/archive"
	"github.com/jonesrussell/tenderwatch/internal/cpv"
	"github.com/jonesrussell/tenderwatch/internal/datewindow"
	"github.com/jonesrussell/tenderwatch/internal/domain"
	"github.com/jonesrussell/tenderwatch/internal/feed"
	"github.com/jonesrussell/tenderwatch/internal/logger"
)

// ArchiveCollector is the bulk archive collector capability.
type ArchiveCollector interface {
	Collect(ctx context.Context, day string, opts archive.Options) ([]domain.TenderRecord, error)
}

// FeedCollector is the feed collector capability.
type FeedCollector interface {
	Collect(ctx context.Context, src feed.Source, opts feed.Options) ([]domain.TenderRecord, error)
}

// Params are the run parameters consumed by the core.
type Params struct {
	// Date is a day "YYYY-MM-DD" or range "YYYY-MM-DD,YYYY-MM-DD".
	Date string
	// When selects the archive date field: updated, published, either.
	When string
	// CPV is the raw target code list.
	CPV []string
	// CPVMode is exact or prefix.
	CPVMode string
	// CPVScope is folder, lots, or both (archive collector only).
	CPVScope string
	// DisableArchive and DisableFeeds toggle the collector families.
	DisableArchive bool
	DisableFeeds   bool
	// Sources lists the configured feeds, in emission order.
	Sources []feed.Source
	// Location is the civil timezone for the window; nil means UTC.
	Location *time.Location
}

// Result is a completed run.
type Result struct {
	Records     []domain.TenderRecord
	Window      datewindow.Window
	ArchiveRows int
	FeedRows    int
	Duplicates  int
	FailedDays  []string
	FailedFeeds []string
}

// Orchestrator wires the collectors together for a run.
type Orchestrator struct {
	archive ArchiveCollector
	feeds   FeedCollector
	log     logger.Interface
}

// New creates an orchestrator.
func New(archiveCollector ArchiveCollector, feedCollector FeedCollector, log logger.Interface) *Orchestrator {
	return &Orchestrator{
		archive: archiveCollector,
		feeds:   feedCollector,
		log:     log,
	}
}

// Run resolves the window and CPV targets once, invokes the archive
// collector per day and the feed collector per source, and deduplicates the
// concatenated output keeping first occurrences. Invalid date or CPV-mode
// input fails before any network activity; per-day and per-source failures
// are logged and the run continues.
func (o *Orchestrator) Run(ctx context.Context, p Params) (*Result, error) {
	mode, err := cpv.ParseMode(p.CPVMode)
	if err != nil {
		return nil, err
	}

	window, err := datewindow.Resolve(p.Date, p.Location)
	if err != nil {
		return nil, fmt.Errorf("resolve date window: %w", err)
	}

	// Normalized once, shared read-only across all collectors.
	targets := cpv.Normalize(p.CPV, mode)

	log := o.log.With("run_id", uuid.NewString())
	log.Info("run started",
		"window_start", window.Start.Format(time.RFC3339),
		"window_end", window.End.Format(time.RFC3339),
		"cpv_targets", len(targets),
		"cpv_mode", string(mode))

	result := &Result{Window: window}
	var all []domain.TenderRecord

	if !p.DisableArchive {
		archiveOpts := archive.Options{
			When:       p.When,
			CPVTargets: targets,
			CPVMode:    mode,
			CPVScope:   p.CPVScope,
		}

		for _, day := range window.Days() {
			records, err := o.archive.Collect(ctx, day, archiveOpts)
			if err != nil {
				// Fatal for this day only; remaining days still run.
				log.Error("archive collection failed", "day", day, "error", err)
				result.FailedDays = append(result.FailedDays, day)
				continue
			}

			log.Info("archive day collected", "day", day, "rows", len(records))
			result.ArchiveRows += len(records)
			all = append(all, records...)
		}
	}

	if !p.DisableFeeds {
		feedOpts := feed.Options{
			Window:     window,
			CPVTargets: targets,
			CPVMode:    mode,
		}

		for _, src := range p.Sources {
			records, err := o.feeds.Collect(ctx, src, feedOpts)
			if err != nil {
				log.Error("feed collection failed", "source", src.Name, "error", err)
				result.FailedFeeds = append(result.FailedFeeds, src.Name)
				continue
			}

			log.Info("feed collected", "source", src.Name, "rows", len(records))
			result.FeedRows += len(records)
			all = append(all, records...)
		}
	}

	result.Records = domain.Dedupe(all)
	result.Duplicates = len(all) - len(result.Records)

	log.Info("run finished",
		"rows", len(result.Records),
		"duplicates_dropped", result.Duplicates,
		"failed_days", len(result.FailedDays),
		"failed_feeds", len(result.FailedFeeds))

	return result, nil
}
