// Package domain defines the normalized tender record shared by every
// collector.
package domain

import "strings"

// Provenance values for CPV and amount fields.
const (
	ProvenanceFeed   = "feed"
	ProvenanceDetail = "detail"
)

// DetailStatus records the outcome of detail-page enrichment for a record.
type DetailStatus string

const (
	// DetailParsed means a domain-specific extractor handled the page.
	DetailParsed DetailStatus = "parsed"
	// DetailFallback means the generic extractor handled the page.
	DetailFallback DetailStatus = "fallback"
	// DetailFetchFailed means the detail page could not be fetched.
	DetailFetchFailed DetailStatus = "fetch-failed"
	// DetailException means extraction itself failed unexpectedly.
	DetailException DetailStatus = "exception"
	// DetailSkipped means enrichment was disabled for the source.
	DetailSkipped DetailStatus = "skipped"
	// DetailNoLink means the entry carried no link to follow.
	DetailNoLink DetailStatus = "no-link"
)

// TenderRecord is one normalized procurement announcement. It is created by
// exactly one collector, optionally mutated once by a detail-enrichment
// merge, and frozen after orchestrator-level deduplication.
type TenderRecord struct {
	Source    string
	CaseID    string
	Title     string
	Authority string
	Status    string
	Amount    string
	CPV       []string
	Published string
	Updated   string
	Link      string

	// Provenance tags.
	CPVSource    string
	AmountSource string
	DetailStatus DetailStatus
}

// Key is the deduplication identity of a record.
type Key struct {
	Source string
	CaseID string
	Link   string
}

// Key returns the record's deduplication identity.
func (r *TenderRecord) Key() Key {
	return Key{Source: r.Source, CaseID: r.CaseID, Link: r.Link}
}

// CPVJoined serializes the code set as a semicolon-joined list. Callers are
// expected to store CPV sorted and unique; the join preserves that order.
func (r *TenderRecord) CPVJoined() string {
	return strings.Join(r.CPV, ";")
}

// Dedupe removes records sharing a (source, case-id, link) key, keeping the
// first occurrence even when later duplicates carry different field values.
// Collector ordering therefore has observable precedence.
func Dedupe(records []TenderRecord) []TenderRecord {
	seen := make(map[Key]struct{}, len(records))
	out := make([]TenderRecord, 0, len(records))

	for _, r := range records {
		k := r.Key()
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, r)
	}

	return out
}
