// internal/engine/aggregate.go
package engine

import "github.com/agrimatch/agrimatch/internal/types"

/*
 * Aggregation strategies.
 *
 * A rule addresses a collection that may hold zero, one, or many records.
 * The aggregate mode reduces the per-record outcomes to one boolean and
 * decides which inspected values land in found_values:
 *
 *   - one: first record only; nil operand when the collection is empty
 *   - any: short-circuit over all records; found_values accumulate up to
 *     and including the first match, or the full sequence if none match
 *   - count>=: equality/membership count over all records against min;
 *     found_values is the full resolved sequence
 *
 * count>= ignores the rule's own operator: matches are counted with "in"
 * when the target is a sequence and "==" otherwise.
 */

// Aggregate is the closed enumeration of aggregation modes.
type Aggregate int

const (
	AggOne Aggregate = iota
	AggAny
	AggCountGte
)

// ParseAggregate maps a rule's aggregate string to its mode.
// Anything other than "any" and "count>=" falls back to "one".
func ParseAggregate(s string) Aggregate {
	switch s {
	case "any":
		return AggAny
	case "count>=":
		return AggCountGte
	default:
		return AggOne
	}
}

// aggregateOne applies the operator to the first record's resolved value.
// An empty collection yields a nil operand, so operators with vacuous
// nil semantics (e.g. !=) may still pass.
func aggregateOne(records []types.Record, path []string, op Operator, target any, threshold float64) (bool, []any) {
	var v any
	if len(records) > 0 {
		v = resolve(records[0], path)
	}
	return compare(op, v, target, threshold), []any{v}
}

// aggregateAny applies the operator per record and passes on the first
// match. Values are recorded incrementally so the audit trail shows how
// far evaluation progressed.
func aggregateAny(records []types.Record, path []string, op Operator, target any, threshold float64) (bool, []any) {
	found := make([]any, 0, len(records))
	for _, rec := range records {
		v := resolve(rec, path)
		found = append(found, v)
		if compare(op, v, target, threshold) {
			return true, found
		}
	}
	return false, found
}

// aggregateCount counts records whose resolved value matches the target
// under equality semantics (membership when the target is a sequence)
// and passes when the count meets min.
func aggregateCount(records []types.Record, path []string, target any, min int) (bool, []any) {
	found := collect(records, path)
	countOp := OpEq
	if _, isSeq := target.([]any); isSeq {
		countOp = OpIn
	}
	count := 0
	for _, v := range found {
		if compare(countOp, v, target, 0) {
			count++
		}
	}
	return count >= min, found
}
