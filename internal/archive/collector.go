// Package archive implements the bulk collector for the monthly PLACSP
// syndication archive: a ZIP refreshed daily, containing one Atom file per
// contracting profile with CODICE-annotated entries.
package archive

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/antchfx/xmlquery"

	"github.com/jonesrussell/tenderwatch/internal/cpv"
	"github.com/jonesrussell/tenderwatch/internal/domain"
	"github.com/jonesrussell/tenderwatch/internal/logger"
)

// SourceName tags every record produced by this collector.
const SourceName = "PLACSP"

// DefaultURLTemplate is the monthly archive address; {yyyymm} is replaced
// with the month derived from the requested day.
const DefaultURLTemplate = "https://contrataciondelestado.es/sindicacion/sindicacion_643/" +
	"licitacionesPerfilesContratanteCompleto3_{yyyymm}.zip"

// Date-field selectors for the entry date predicate.
const (
	WhenUpdated   = "updated"
	WhenPublished = "published"
	WhenEither    = "either"
)

// CPV extraction scopes.
const (
	// ScopeFolder reads codes from the contract folder's ProcurementProject.
	ScopeFolder = "folder"
	// ScopeLots reads codes from the per-lot subtrees only.
	ScopeLots = "lots"
	// ScopeBoth reads codes anywhere in the entry.
	ScopeBoth = "both"
)

// Fetcher fetches the archive bytes. Satisfied by fetch.Client.
type Fetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// Options control one collection call.
type Options struct {
	// When selects which entry date fields the day predicate applies to.
	When string
	// CPVTargets is the normalized target set; empty disables the filter.
	CPVTargets []string
	// CPVMode selects exact or prefix matching.
	CPVMode cpv.Mode
	// CPVScope selects where in the entry codes are read from.
	CPVScope string
}

// Collector ingests the monthly archive for single days.
type Collector struct {
	urlTemplate string
	fetcher     Fetcher
	log         logger.Interface
}

// NewCollector creates an archive collector. An empty urlTemplate uses the
// production PLACSP address.
func NewCollector(urlTemplate string, fetcher Fetcher, log logger.Interface) *Collector {
	if urlTemplate == "" {
		urlTemplate = DefaultURLTemplate
	}

	return &Collector{
		urlTemplate: urlTemplate,
		fetcher:     fetcher,
		log:         log,
	}
}

// Collect fetches the month's archive for the given ISO day and returns the
// entries whose date matches the day and whose CPV codes pass the filter.
// An archive fetch failure is fatal for this day only; malformed members
// and entries are skipped. Output is stable-sorted by (case-id, link).
func (c *Collector) Collect(ctx context.Context, day string, opts Options) ([]domain.TenderRecord, error) {
	url, err := c.archiveURL(day)
	if err != nil {
		return nil, err
	}

	data, err := c.fetcher.FetchBytes(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("archive for %s: %w", day, err)
	}

	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open archive for %s: %w", day, err)
	}

	var records []domain.TenderRecord

	for _, member := range zr.File {
		if !strings.HasSuffix(strings.ToLower(member.Name), ".atom") {
			continue
		}

		entries, err := c.readMember(member)
		if err != nil {
			c.log.Warn("skipping archive member", "member", member.Name, "error", err)
			continue
		}

		for _, entry := range entries {
			if rec, ok := buildRecord(entry, day, opts); ok {
				records = append(records, rec)
			}
		}
	}

	sort.SliceStable(records, func(i, j int) bool {
		if records[i].CaseID != records[j].CaseID {
			return records[i].CaseID < records[j].CaseID
		}
		return records[i].Link < records[j].Link
	})

	return records, nil
}

// archiveURL derives the monthly archive address from an ISO day.
func (c *Collector) archiveURL(day string) (string, error) {
	if len(day) < 7 {
		return "", fmt.Errorf("invalid day %q for archive url", day)
	}

	month := strings.ReplaceAll(day[:7], "-", "")
	return strings.ReplaceAll(c.urlTemplate, "{yyyymm}", month), nil
}

// readMember parses one Atom member and returns its entry nodes.
func (c *Collector) readMember(member *zip.File) ([]*xmlquery.Node, error) {
	rc, err := member.Open()
	if err != nil {
		return nil, fmt.Errorf("open member: %w", err)
	}
	defer rc.Close()

	body, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read member: %w", err)
	}

	doc, err := xmlquery.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse member: %w", err)
	}

	return xmlquery.Find(doc, "//*[local-name()='entry']"), nil
}

// buildRecord evaluates one entry against the date and CPV predicates and
// converts it to a record when it passes.
func buildRecord(entry *xmlquery.Node, day string, opts Options) (domain.TenderRecord, bool) {
	okDate := false
	switch opts.When {
	case WhenUpdated:
		okDate = dateStarts(entry, day, "updated")
	case WhenPublished:
		okDate = dateStarts(entry, day, "published")
	default:
		okDate = dateStarts(entry, day, "updated") || dateStarts(entry, day, "published")
	}
	if !okDate {
		return domain.TenderRecord{}, false
	}

	codes := cpv.Union(scopedCPVs(entry, opts.CPVScope))
	if !cpv.Match(codes, opts.CPVTargets, opts.CPVMode) {
		return domain.TenderRecord{}, false
	}

	return domain.TenderRecord{
		Source:    SourceName,
		CaseID:    text1(entry, ".//*[local-name()='ContractFolderID']"),
		Title:     text1(entry, "./*[local-name()='title']"),
		Authority: text1(entry, ".//*[local-name()='ContractingPartyName']"),
		Status:    text1(entry, ".//*[local-name()='ContractFolderStatus']"),
		Amount:    text1(entry, ".//*[local-name()='TotalAmount']"),
		CPV:       codes,
		Published: text1(entry, "./*[local-name()='published']"),
		Updated:   text1(entry, "./*[local-name()='updated']"),
		Link:      bestLink(entry),
	}, true
}

// dateStarts applies the day predicate: a raw string-prefix test against the
// rendered date value. Upstream renders dates with varying precision, so
// this is deliberately not a parsed-timestamp comparison.
func dateStarts(entry *xmlquery.Node, day, field string) bool {
	v := text1(entry, "./*[local-name()='"+field+"']")
	return v != "" && strings.HasPrefix(v, day)
}

// bestLink prefers the rel=alternate link, falling back to any link href.
func bestLink(entry *xmlquery.Node) string {
	if href := text1(entry, "./*[local-name()='link' and @rel='alternate']/@href"); href != "" {
		return href
	}
	return text1(entry, "./*[local-name()='link']/@href")
}

// scopedCPVs extracts classification codes from the entry subtree selected
// by scope.
func scopedCPVs(entry *xmlquery.Node, scope string) []string {
	var expr string
	switch scope {
	case ScopeFolder:
		expr = ".//*[local-name()='ProcurementProject']//*[local-name()='ItemClassificationCode']"
	case ScopeLots:
		expr = ".//*[local-name()='ProcurementProjectLot']//*[local-name()='ItemClassificationCode']"
	default:
		expr = ".//*[local-name()='ItemClassificationCode']"
	}

	var codes []string
	for _, n := range xmlquery.Find(entry, expr) {
		if v := strings.TrimSpace(n.InnerText()); v != "" {
			codes = append(codes, v)
		}
	}
	return codes
}

// text1 returns the trimmed text of the first node matching expr, or "".
func text1(n *xmlquery.Node, expr string) string {
	found := xmlquery.FindOne(n, expr)
	if found == nil {
		return ""
	}
	return strings.TrimSpace(found.InnerText())
}
