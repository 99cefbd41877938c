package detail

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/jonesrussell/tenderwatch/internal/cpv"
	"github.com/jonesrussell/tenderwatch/internal/textx"
)

// genericExtractor handles pages from unregistered portals using only
// whole-page heuristics.
type genericExtractor struct{}

func (genericExtractor) Extract(doc *goquery.Document) Fields {
	text := pageText(doc)

	return Fields{
		Title:  headingTitle(doc),
		CaseID: textx.CaseID(text),
		Amount: textx.Amount(text),
		CPV:    cpv.ExtractFromText(text),
	}
}

// siteExtractor implements the per-portal extraction recipe: label-driven
// authority and amount lookups plus a structured CPV table, each falling
// back to the whole-page heuristics.
type siteExtractor struct {
	authorityLabels []string
	amountLabels    []string
}

func newMadridExtractor() *siteExtractor {
	return &siteExtractor{
		authorityLabels: []string{"Órgano de contratación", "Entidad adjudicadora", "Organismo"},
		amountLabels:    []string{"Presupuesto base de licitación", "Valor estimado", "Importe"},
	}
}

func newGaliciaExtractor() *siteExtractor {
	return &siteExtractor{
		authorityLabels: []string{"Órgano de contratación", "Organismo", "Órgano"},
		amountLabels:    []string{"Orzamento base de licitación", "Presupuesto base de licitación", "Valor estimado", "Importe"},
	}
}

func (e *siteExtractor) Extract(doc *goquery.Document) Fields {
	text := pageText(doc)

	fields := Fields{
		Title:     headingTitle(doc),
		CaseID:    textx.CaseID(text),
		Authority: textAfterLabel(doc, e.authorityLabels),
	}

	fields.Amount = e.amount(doc, text)

	fields.CPV = cpvFromTable(doc)
	if len(fields.CPV) == 0 {
		fields.CPV = cpv.ExtractFromText(text)
	}

	return fields
}

// amount tries the label vocabulary first and falls back to the first bare
// currency amount in the page text.
func (e *siteExtractor) amount(doc *goquery.Document, text string) string {
	if v := textAfterLabel(doc, e.amountLabels); v != "" {
		if amount := textx.Amount(v); amount != "" {
			return amount
		}
	}
	return textx.Amount(text)
}

// headingTitle returns the first top-level heading, preferring h1 over h2.
func headingTitle(doc *goquery.Document) string {
	if t := textx.NormalizeSpaces(doc.Find("h1").First().Text()); t != "" {
		return t
	}
	return textx.NormalizeSpaces(doc.Find("h2").First().Text())
}

// pageText returns the document's full text content.
func pageText(doc *goquery.Document) string {
	return doc.Find("body").Text()
}

// textAfterLabel finds the first element whose own text contains one of the
// labels (case-insensitive, tried in order) and returns the text of the
// node following it.
func textAfterLabel(doc *goquery.Document, labels []string) string {
	for _, label := range labels {
		needle := strings.ToLower(label)

		var value string
		doc.Find("*").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if !strings.Contains(strings.ToLower(ownText(s)), needle) {
				return true
			}
			value = followingText(s)
			return value == ""
		})

		if value != "" {
			return value
		}
	}

	return ""
}

// ownText returns the element's direct text, excluding child elements.
func ownText(s *goquery.Selection) string {
	var sb strings.Builder
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			sb.WriteString(c.Text())
		}
	})
	return strings.TrimSpace(sb.String())
}

// followingText returns the text of the next sibling, walking up to the
// parent's next sibling when the label node has none.
func followingText(s *goquery.Selection) string {
	if v := textx.NormalizeSpaces(s.Next().Text()); v != "" {
		return v
	}
	return textx.NormalizeSpaces(s.Parent().Next().Text())
}

// leadingCodeRE matches a cell value starting with an 8-digit CPV code.
var leadingCodeRE = regexp.MustCompile(`^\s*(\d{8})`)

// cpvFromTable reads codes from the first column of a table associated with
// a CPV heading or caption. Returns nil when no such table yields codes.
func cpvFromTable(doc *goquery.Document) []string {
	var codes []string

	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		if !tableIsCPV(table) {
			return true
		}

		table.Find("tr").Each(func(_ int, row *goquery.Selection) {
			cell := row.Find("td").First().Text()
			if m := leadingCodeRE.FindStringSubmatch(cell); m != nil {
				codes = append(codes, m[1])
			}
		})

		return len(codes) == 0
	})

	if len(codes) == 0 {
		return nil
	}
	return cpv.Union(codes)
}

// tableIsCPV reports whether a table is labeled as the CPV classification
// table, via its caption, headers, or the heading right before it.
func tableIsCPV(table *goquery.Selection) bool {
	label := table.Find("caption").Text() + " " + table.Find("th").Text()
	label += " " + table.PrevFiltered("h1, h2, h3, h4").First().Text()

	lower := strings.ToLower(label)
	return strings.Contains(lower, "cpv") || strings.Contains(lower, "vocabulario común")
}
