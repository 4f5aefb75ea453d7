// internal/engine/fieldpath.go
package engine

import (
	"strings"

	"github.com/agrimatch/agrimatch/internal/types"
)

/*
 * Field path resolution for profile records.
 *
 * A rule addresses data with a dotted path "<collection>.<a>.<b>...". The
 * collection name selects a record sequence from the dataset; the remaining
 * segments are walked against each record as a chain of mapping lookups.
 *
 * Nil-propagation invariant: a missing key, a non-mapping intermediate
 * value, or a nil record resolves to nil for that record - never an error.
 * collect therefore always returns exactly one value per input record, so
 * found_values in the audit trail lines up with the collection rows.
 */

// splitField separates the collection name from the attribute path.
// Reports false for an empty field, an empty collection segment, or a
// path deeper than types.MaxFieldPathDepth.
func splitField(field string) (collection string, path []string, ok bool) {
	field = strings.TrimSpace(field)
	if field == "" {
		return "", nil, false
	}
	parts := strings.Split(field, ".")
	if parts[0] == "" {
		return "", nil, false
	}
	if len(parts)-1 > types.MaxFieldPathDepth {
		return "", nil, false
	}
	return parts[0], parts[1:], true
}

// resolve walks path segments through nested mappings starting at rec.
// Zero segments yield the record itself. Any miss yields nil.
func resolve(rec types.Record, path []string) any {
	var current any = map[string]any(rec)
	for _, seg := range path {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = m[seg]
	}
	return current
}

// collect resolves path against every record, preserving order.
// Output length always equals input length; unresolvable records
// contribute nil rather than being dropped.
func collect(records []types.Record, path []string) []any {
	out := make([]any, len(records))
	for i, rec := range records {
		out[i] = resolve(rec, path)
	}
	return out
}
