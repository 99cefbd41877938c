// Package cpv normalizes and matches Common Procurement Vocabulary codes,
// the EU 8-digit classification for the subject of a tender.
package cpv

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// Mode selects how target codes are interpreted when filtering.
type Mode string

const (
	// ModeExact matches full 8-digit codes by set intersection.
	ModeExact Mode = "exact"
	// ModePrefix matches when a candidate code starts with a target prefix.
	ModePrefix Mode = "prefix"
)

// codeLength is the canonical length of a CPV code.
const codeLength = 8

// ParseMode validates a mode string from flags or configuration.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeExact, ModePrefix:
		return Mode(s), nil
	default:
		return "", fmt.Errorf("invalid cpv mode %q (want %q or %q)", s, ModeExact, ModePrefix)
	}
}

// Normalize cleans raw user-supplied codes into a sorted, deduplicated target set.
// In exact mode only numeric entries survive and are left-zero-padded to 8 digits.
// In prefix mode numeric entries of length 2 to 8 are kept unchanged.
// Empty and non-numeric entries are dropped silently.
func Normalize(raw []string, mode Mode) []string {
	seen := make(map[string]struct{}, len(raw))

	for _, code := range raw {
		code = strings.TrimSpace(code)
		if code == "" || !isDigits(code) {
			continue
		}

		switch mode {
		case ModeExact:
			if len(code) <= codeLength {
				seen[pad(code)] = struct{}{}
			}
		case ModePrefix:
			if len(code) >= 2 && len(code) <= codeLength {
				seen[code] = struct{}{}
			}
		}
	}

	return sortedKeys(seen)
}

// Match reports whether a candidate code set passes the target filter.
// Empty targets means no filter is active and everything passes. Empty
// candidates against non-empty targets never pass. Prefix mode is
// asymmetric: candidates are expected full-length, targets may be short.
func Match(candidates, targets []string, mode Mode) bool {
	if len(targets) == 0 {
		return true
	}
	if len(candidates) == 0 {
		return false
	}

	if mode == ModeExact {
		set := make(map[string]struct{}, len(targets))
		for _, t := range targets {
			set[t] = struct{}{}
		}
		for _, c := range candidates {
			if _, ok := set[c]; ok {
				return true
			}
		}
		return false
	}

	for _, c := range candidates {
		for _, t := range targets {
			if strings.HasPrefix(c, t) {
				return true
			}
		}
	}

	return false
}

// codeRE matches an 8-digit CPV code, tolerating the optional "-N" check
// digit suffix; only the 8 digits are captured.
var codeRE = regexp.MustCompile(`\b(\d{8})(?:-\d)?\b`)

// ExtractFromText returns every distinct CPV code found in free text, sorted.
func ExtractFromText(text string) []string {
	if text == "" {
		return nil
	}

	seen := make(map[string]struct{})
	for _, m := range codeRE.FindAllStringSubmatch(text, -1) {
		seen[m[1]] = struct{}{}
	}

	if len(seen) == 0 {
		return nil
	}

	return sortedKeys(seen)
}

// Union merges code slices into one sorted, deduplicated slice.
func Union(sets ...[]string) []string {
	seen := make(map[string]struct{})
	for _, set := range sets {
		for _, c := range set {
			if c != "" {
				seen[c] = struct{}{}
			}
		}
	}

	if len(seen) == 0 {
		return nil
	}

	return sortedKeys(seen)
}

func pad(code string) string {
	if len(code) >= codeLength {
		return code
	}
	return strings.Repeat("0", codeLength-len(code)) + code
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
