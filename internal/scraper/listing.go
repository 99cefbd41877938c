// Package scraper implements the alternate listing front-end: it walks a
// search-results listing page by page and emits the same record schema as
// the core collectors, filtered with the shared CPV matcher. It replaces
// the browser-automation flow with plain HTML collection and is outside the
// core archive/feed pipeline.
package scraper

import (
	"context"
	"fmt"
	"time"

	colly "github.com/gocolly/colly/v2"

	"github.com/jonesrussell/tenderwatch/internal/cpv"
	"github.com/jonesrussell/tenderwatch/internal/domain"
	"github.com/jonesrussell/tenderwatch/internal/logger"
	"github.com/jonesrussell/tenderwatch/internal/textx"
)

// Options control one listing walk.
type Options struct {
	// CPVTargets is the normalized target set; empty disables the filter.
	CPVTargets []string
	// CPVMode selects exact or prefix matching.
	CPVMode cpv.Mode
	// MaxPages caps pagination; 0 means no limit.
	MaxPages int
	// Delay is the courtesy pause between page requests.
	Delay time.Duration
}

// Collector scrapes tender listings.
type Collector struct {
	sourceName string
	userAgent  string
	log        logger.Interface
}

// New creates a listing collector. sourceName becomes the record's source
// column.
func New(sourceName, userAgent string, log logger.Interface) *Collector {
	return &Collector{
		sourceName: sourceName,
		userAgent:  userAgent,
		log:        log,
	}
}

// Collect walks the listing starting at startURL, following rel=next
// pagination links, and returns the deduplicated records passing the CPV
// filter. Rows without a link are skipped; a row that fails to parse only
// loses its optional fields.
func (c *Collector) Collect(ctx context.Context, startURL string, opts Options) ([]domain.TenderRecord, error) {
	collector := colly.NewCollector(
		colly.UserAgent(c.userAgent),
		colly.StdlibContext(ctx),
	)

	if opts.Delay > 0 {
		if err := collector.Limit(&colly.LimitRule{DomainGlob: "*", Delay: opts.Delay}); err != nil {
			return nil, fmt.Errorf("listing limit rule: %w", err)
		}
	}

	var records []domain.TenderRecord
	pages := 0

	collector.OnHTML("tr", func(row *colly.HTMLElement) {
		link := row.ChildAttr("a[href]", "href")
		if link == "" {
			return
		}

		text := row.Text
		rec := domain.TenderRecord{
			Source: c.sourceName,
			CaseID: textx.CaseID(text),
			Title:  textx.NormalizeSpaces(row.ChildText("a[href]")),
			Amount: textx.Amount(text),
			CPV:    cpv.ExtractFromText(text),
			Link:   row.Request.AbsoluteURL(link),
		}

		if rec.CaseID == "" && rec.Title == "" {
			return
		}

		records = append(records, rec)
	})

	collector.OnHTML("a[rel='next']", func(next *colly.HTMLElement) {
		pages++
		if opts.MaxPages > 0 && pages >= opts.MaxPages {
			return
		}

		if err := next.Request.Visit(next.Attr("href")); err != nil {
			c.log.Warn("pagination visit failed", "href", next.Attr("href"), "error", err)
		}
	})

	collector.OnError(func(resp *colly.Response, err error) {
		c.log.Warn("listing fetch failed", "url", resp.Request.URL.String(), "error", err)
	})

	if err := collector.Visit(startURL); err != nil {
		return nil, fmt.Errorf("listing %s: %w", startURL, err)
	}
	collector.Wait()

	var out []domain.TenderRecord
	for _, rec := range records {
		if cpv.Match(rec.CPV, opts.CPVTargets, opts.CPVMode) {
			out = append(out, rec)
		}
	}

	return domain.Dedupe(out), nil
}
