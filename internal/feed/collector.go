// Package feed implements the RSS/Atom source collector with optional
// detail-page enrichment.
package feed

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"

	"github.com/jonesrussell/tenderwatch/internal/cpv"
	"github.com/jonesrussell/tenderwatch/internal/datewindow"
	"github.com/jonesrussell/tenderwatch/internal/detail"
	"github.com/jonesrussell/tenderwatch/internal/domain"
	"github.com/jonesrussell/tenderwatch/internal/logger"
	"github.com/jonesrussell/tenderwatch/internal/textx"
)

// authorityLabels is the label vocabulary for authority extraction from
// feed summaries.
var authorityLabels = []string{"Órgano", "Organismo", "Entidad"}

// createdLayouts are tried for raw "created" timestamps that gofeed does
// not parse itself.
var createdLayouts = []string{
	time.RFC3339,
	time.RFC1123Z,
	time.RFC1123,
	"2006-01-02",
}

// Source identifies one configured feed.
type Source struct {
	Name string
	URL  string
	// FollowDetail enables detail-page enrichment for this source.
	FollowDetail bool
}

// Fetcher provides the network capability the collector depends on.
// Collectors never depend on a specific fetch mechanism beyond this.
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
	FetchDocument(ctx context.Context, url string) (*goquery.Document, error)
}

// Options control one collection call. The window and targets are shared
// read-only across all sources of a run.
type Options struct {
	Window     datewindow.Window
	CPVTargets []string
	CPVMode    cpv.Mode
}

// Collector ingests RSS/Atom feeds into tender records.
type Collector struct {
	fetcher  Fetcher
	registry *detail.Registry
	delay    time.Duration
	log      logger.Interface
}

// NewCollector creates a feed collector. delay is the courtesy pause before
// each detail fetch.
func NewCollector(fetcher Fetcher, registry *detail.Registry, delay time.Duration, log logger.Interface) *Collector {
	return &Collector{
		fetcher:  fetcher,
		registry: registry,
		delay:    delay,
		log:      log,
	}
}

// Collect fetches and parses one feed, filters entries by the date window,
// optionally enriches them from their detail pages, and applies the CPV
// filter against the enriched code set. A feed fetch or parse failure
// aborts this source only.
func (c *Collector) Collect(ctx context.Context, src Source, opts Options) ([]domain.TenderRecord, error) {
	body, err := c.fetcher.FetchBytes(ctx, src.URL)
	if err != nil {
		return nil, fmt.Errorf("feed %s: %w", src.Name, err)
	}

	parsed, err := gofeed.NewParser().Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("feed %s: parse: %w", src.Name, err)
	}

	var records []domain.TenderRecord

	for _, item := range parsed.Items {
		instant := publishInstant(item)

		// Window test first: dated-unknown items are dropped, and no
		// detail fetch happens for out-of-window entries.
		if !opts.Window.ContainsPtr(instant) {
			continue
		}

		rec := c.baseRecord(src, item, instant)

		if src.FollowDetail {
			c.enrich(ctx, &rec)
		} else {
			rec.DetailStatus = domain.DetailSkipped
		}

		if !cpv.Match(rec.CPV, opts.CPVTargets, opts.CPVMode) {
			continue
		}

		records = append(records, rec)
	}

	return records, nil
}

// baseRecord builds a record from feed title+summary text only.
func (c *Collector) baseRecord(src Source, item *gofeed.Item, instant *time.Time) domain.TenderRecord {
	content := item.Title + "\n" + item.Description

	rec := domain.TenderRecord{
		Source:    src.Name,
		CaseID:    textx.CaseID(content),
		Title:     item.Title,
		Authority: textx.Authority(item.Description, authorityLabels),
		Amount:    textx.Amount(content),
		CPV:       cpv.ExtractFromText(content),
		Published: instant.Format(time.RFC3339),
		Link:      item.Link,
	}

	if len(rec.CPV) > 0 {
		rec.CPVSource = domain.ProvenanceFeed
	}
	if rec.Amount != "" {
		rec.AmountSource = domain.ProvenanceFeed
	}

	return rec
}

// enrich fetches the record's detail page and merges the extracted fields.
// Failures degrade to a status tag; they are never propagated.
func (c *Collector) enrich(ctx context.Context, rec *domain.TenderRecord) {
	if rec.Link == "" {
		rec.DetailStatus = domain.DetailNoLink
		return
	}

	if err := pause(ctx, c.delay); err != nil {
		rec.DetailStatus = domain.DetailSkipped
		return
	}

	doc, err := c.fetcher.FetchDocument(ctx, rec.Link)
	if err != nil {
		c.log.Warn("detail fetch failed", "link", rec.Link, "error", err)
		rec.DetailStatus = domain.DetailFetchFailed
		return
	}

	extractor, matched := c.registry.Lookup(hostOf(rec.Link))

	fields, err := safeExtract(extractor, doc)
	if err != nil {
		c.log.Warn("detail extraction failed", "link", rec.Link, "error", err)
		rec.DetailStatus = domain.DetailException
		return
	}

	if matched {
		rec.DetailStatus = domain.DetailParsed
	} else {
		rec.DetailStatus = domain.DetailFallback
	}

	mergeDetail(rec, fields)
}

// mergeDetail applies conservative merge precedence: a non-empty detail
// value overwrites the feed value field-by-field, except CPV which unions.
func mergeDetail(rec *domain.TenderRecord, fields detail.Fields) {
	if fields.Title != "" {
		rec.Title = fields.Title
	}
	if fields.CaseID != "" {
		rec.CaseID = fields.CaseID
	}
	if fields.Authority != "" {
		rec.Authority = fields.Authority
	}
	if fields.Amount != "" {
		rec.Amount = fields.Amount
		rec.AmountSource = domain.ProvenanceDetail
	}
	if len(fields.CPV) > 0 {
		rec.CPV = cpv.Union(rec.CPV, fields.CPV)
		rec.CPVSource = domain.ProvenanceDetail
	}
}

// safeExtract shields the collector from extractor panics; any such failure
// becomes a DetailException status upstream.
func safeExtract(e detail.Extractor, doc *goquery.Document) (fields detail.Fields, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extractor panic: %v", r)
		}
	}()

	return e.Extract(doc), nil
}

// publishInstant resolves an entry's instant by trying published, updated,
// and created timestamps in that priority, accepting the first parseable.
func publishInstant(item *gofeed.Item) *time.Time {
	if item.PublishedParsed != nil {
		return item.PublishedParsed
	}
	if item.UpdatedParsed != nil {
		return item.UpdatedParsed
	}

	if item.DublinCoreExt != nil {
		for _, raw := range item.DublinCoreExt.Date {
			if t := parseCreated(raw); t != nil {
				return t
			}
		}
	}

	return nil
}

func parseCreated(raw string) *time.Time {
	for _, layout := range createdLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

func hostOf(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// pause waits the courtesy delay, honoring cancellation.
func pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
