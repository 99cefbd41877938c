// Package detail extracts tender fields from fetched detail pages. A fixed
// registry dispatches per portal domain, with a mandatory generic fallback
// for unknown hosts. Extraction is best-effort per field: one field's
// absence never blocks another's.
package detail

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Fields holds the values an extractor recovered from a page. Empty values
// mean "not found"; the merge into a record only applies non-empty values.
type Fields struct {
	Title     string
	CaseID    string
	Authority string
	Amount    string
	CPV       []string
}

// Extractor extracts fields from a parsed detail page.
type Extractor interface {
	Extract(doc *goquery.Document) Fields
}

// Registry maps portal hosts to extractors.
type Registry struct {
	byHost   map[string]Extractor
	fallback Extractor
}

// NewRegistry returns the registry with the known portal extractors
// registered and the generic extractor as fallback.
func NewRegistry() *Registry {
	r := &Registry{
		byHost:   make(map[string]Extractor),
		fallback: &genericExtractor{},
	}

	madrid := newMadridExtractor()
	galicia := newGaliciaExtractor()

	r.Register("contratos-publicos.comunidad.madrid", madrid)
	r.Register("contratosdegalicia.gal", galicia)
	r.Register("www.contratosdegalicia.gal", galicia)

	return r
}

// Register maps a host to an extractor. Hosts are stored lowercase.
func (r *Registry) Register(host string, e Extractor) {
	r.byHost[strings.ToLower(host)] = e
}

// Lookup resolves the extractor for a host by exact-or-suffix match,
// case-insensitive. The boolean reports whether a registered portal matched;
// false means the generic fallback was returned.
func (r *Registry) Lookup(host string) (Extractor, bool) {
	host = strings.ToLower(host)

	if e, ok := r.byHost[host]; ok {
		return e, true
	}
	for dom, e := range r.byHost {
		if strings.HasSuffix(host, "."+dom) {
			return e, true
		}
	}

	return r.fallback, false
}
