// Package textx provides locale-aware free-text extraction heuristics for
// Spanish procurement announcements: case identifiers, awarding authority
// labels, and currency amounts. All functions are pure over their input
// text and independent of any document-traversal mechanism.
package textx

import (
	"fmt"
	"regexp"
	"strings"
	"sync"
)

var (
	// nbspRE matches the no-break space family that upstream portals mix
	// into rendered text.
	nbspRE  = regexp.MustCompile("[   ]")
	spaceRE = regexp.MustCompile(`\s+`)

	// caseIDRE matches administrative file identifiers such as
	// "C-2025/001234" or "EXP/2025/77": a word token, a 4-digit year, and
	// a sequence number.
	caseIDRE = regexp.MustCompile(`\b[\w\-]+/\d{4}/\d+\b`)

	// amountRE matches Spanish-formatted currency amounts such as
	// "1.234,56 €".
	amountRE = regexp.MustCompile(`[\d\.\s]+,\d{2}\s*€`)
)

// NormalizeSpaces replaces exotic space characters with plain spaces,
// collapses whitespace runs, and trims.
func NormalizeSpaces(s string) string {
	if s == "" {
		return s
	}
	s = nbspRE.ReplaceAllString(s, " ")
	return strings.TrimSpace(spaceRE.ReplaceAllString(s, " "))
}

// CaseID returns the first case identifier found in text, or "".
func CaseID(text string) string {
	return caseIDRE.FindString(text)
}

// Amount returns the first currency amount found in text, space-normalized,
// or "".
func Amount(text string) string {
	return NormalizeSpaces(amountRE.FindString(text))
}

// labelPatterns caches the compiled label:value pattern per label.
var labelPatterns sync.Map

// Authority scans text for "label: value" occurrences, trying labels in
// order and returning the first space-normalized value found. The match is
// case-insensitive; the value runs until a '<', a newline, or end of text,
// so it works on raw feed summaries that embed markup.
func Authority(text string, labels []string) string {
	for _, label := range labels {
		re := labelPattern(label)
		if m := re.FindStringSubmatch(text); m != nil {
			return NormalizeSpaces(m[1])
		}
	}
	return ""
}

func labelPattern(label string) *regexp.Regexp {
	if cached, ok := labelPatterns.Load(label); ok {
		re, isRE := cached.(*regexp.Regexp)
		if isRE {
			return re
		}
	}

	re := regexp.MustCompile(fmt.Sprintf(`(?i)%s.{0,3}:\s*(.+?)(?:<|\n|$)`, regexp.QuoteMeta(label)))
	labelPatterns.Store(label, re)
	return re
}
