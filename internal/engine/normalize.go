// internal/engine/normalize.go
package engine

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/pmezard/go-difflib/difflib"
)

/*
 * Value normalization for rule evaluation.
 *
 * Converts heterogeneous raw values (strings, numbers, date-like strings)
 * into comparable forms. Every conversion is total: failure is reported
 * through an ok flag, never through an error or a panic, because a rule
 * that cannot resolve its operands must degrade to non-matching rather
 * than abort the run.
 *
 * Key functions:
 *   - normalizeString: trim + lowercase, nil/empty reported as absent
 *   - parseNumber: comma-as-decimal tolerant numeric parsing
 *   - parseDate: fixed ordered format list, exposed for rule authors
 *   - fuzzyRatio: difflib sequence-alignment similarity in [0,1]
 *
 * Fuzzy matching deliberately does not strip diacritics: "pomicultură"
 * and "pomicultura" differ by one rune and score ~0.909, not 1.0.
 */

// nonNumeric matches every character parseNumber discards before parsing.
var nonNumeric = regexp.MustCompile(`[^0-9.\-]`)

// dateFormats is the ordered list parseDate attempts for strings.
var dateFormats = []string{
	"2006-01-02",
	"02.01.2006",
	"02/01/2006",
	"2006/01/02",
}

// stringify renders a scalar as a string for text operators.
// Non-scalar values (maps, slices) report false: text comparison against
// structured data is meaningless and must fail closed.
func stringify(v any) (string, bool) {
	switch s := v.(type) {
	case nil:
		return "", false
	case string:
		return s, true
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64), true
	case int:
		return strconv.Itoa(s), true
	case int64:
		return strconv.FormatInt(s, 10), true
	case bool:
		return strconv.FormatBool(s), true
	default:
		return "", false
	}
}

// normalizeString trims and lowercases the stringified value.
// Reports false for nil, non-scalar values, and strings that are empty
// after trimming.
func normalizeString(v any) (string, bool) {
	s, ok := stringify(v)
	if !ok {
		return "", false
	}
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return "", false
	}
	return s, true
}

// parseNumber converts a value to float64 for ordered comparison.
// Native numeric types pass through unchanged. Strings are parsed
// leniently: "," becomes "." and everything except digits, dots, and
// minus signs is stripped, so "1234,56" parses while "100.000,50"
// (thousands separators plus decimal comma) does not. Reports false
// on empty or unparsable input.
func parseNumber(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		s := strings.ReplaceAll(strings.TrimSpace(n), ",", ".")
		s = nonNumeric.ReplaceAllString(s, "")
		if s == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// parseDate converts a value to time.Time. Date-typed values pass through
// unchanged; strings are tried against dateFormats in order. Reports false
// if nothing matches.
//
// Exposed for rule tooling; the ordering operators stay numeric-only and
// never call this.
func parseDate(v any) (time.Time, bool) {
	switch d := v.(type) {
	case time.Time:
		return d, true
	case string:
		s := strings.TrimSpace(d)
		if s == "" {
			return time.Time{}, false
		}
		for _, layout := range dateFormats {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
		return time.Time{}, false
	default:
		return time.Time{}, false
	}
}

// fuzzyRatio computes a similarity ratio in [0,1] between the normalized
// string forms of a and b using difflib's SequenceMatcher over runes
// (2*M/T, the same edit-distance-derived measure classic diff uses).
// Returns 0.0 if either side is nil or empty after normalization.
func fuzzyRatio(a, b any) float64 {
	na, ok := normalizeString(a)
	if !ok {
		return 0.0
	}
	nb, ok := normalizeString(b)
	if !ok {
		return 0.0
	}
	m := difflib.NewMatcher(strings.Split(na, ""), strings.Split(nb, ""))
	return m.Ratio()
}
