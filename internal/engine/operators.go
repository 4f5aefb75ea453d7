// internal/engine/operators.go
package engine

import (
	"regexp"
	"strings"
)

/*
 * Operator comparison logic.
 *
 * Implements 12 comparison operators behind a closed Operator enum so that
 * adding an operator is an explicit decision, not a string falling through
 * a dispatch map. All operators are total: they return a boolean and never
 * panic, whatever the operand types.
 *
 * Operators:
 *   - exists: non-nil, non-empty-string check
 *   - ==/!=: raw equality with numeric type mixing (no string parsing)
 *   - >=/<=/>/<: both sides through parseNumber; false if either fails
 *   - in: membership of value in target sequence
 *   - any_in: non-empty intersection of value and target sequences
 *   - contains: normalized substring test
 *   - matches: case-insensitive regex over the stringified value
 *   - fuzzy: difflib similarity ratio against the rule threshold
 *
 * Why function-based: the operators vary only in their comparison, so a
 * switch over an enum stays cleaner than 12 single-method implementations.
 */

// Operator is the closed enumeration of comparison operators.
type Operator int

const (
	OpUnknown Operator = iota
	OpEq
	OpNeq
	OpGte
	OpLte
	OpGt
	OpLt
	OpIn
	OpAnyIn
	OpContains
	OpMatches
	OpFuzzy
	OpExists
)

// ParseOperator maps a rule's op string to its Operator. Unknown names map
// to OpUnknown, which compares to false for every input (fail-closed).
func ParseOperator(s string) Operator {
	switch strings.TrimSpace(s) {
	case "==":
		return OpEq
	case "!=":
		return OpNeq
	case ">=":
		return OpGte
	case "<=":
		return OpLte
	case ">":
		return OpGt
	case "<":
		return OpLt
	case "in":
		return OpIn
	case "any_in":
		return OpAnyIn
	case "contains":
		return OpContains
	case "matches":
		return OpMatches
	case "fuzzy":
		return OpFuzzy
	case "exists":
		return OpExists
	default:
		return OpUnknown
	}
}

// compare applies the operator to a resolved value and a target.
// threshold is consulted only by OpFuzzy.
func compare(op Operator, value, target any, threshold float64) bool {
	switch op {
	case OpExists:
		return compareExists(value)
	case OpEq:
		return compareEqual(value, target)
	case OpNeq:
		return !compareEqual(value, target)
	case OpGte:
		return compareOrdered(value, target, func(a, b float64) bool { return a >= b })
	case OpLte:
		return compareOrdered(value, target, func(a, b float64) bool { return a <= b })
	case OpGt:
		return compareOrdered(value, target, func(a, b float64) bool { return a > b })
	case OpLt:
		return compareOrdered(value, target, func(a, b float64) bool { return a < b })
	case OpIn:
		return compareIn(value, target)
	case OpAnyIn:
		return compareAnyIn(value, target)
	case OpContains:
		return compareContains(value, target)
	case OpMatches:
		return compareMatches(value, target)
	case OpFuzzy:
		return fuzzyRatio(value, target) >= threshold
	default:
		return false
	}
}

// compareExists reports whether value is non-nil and non-empty-string.
func compareExists(value any) bool {
	if value == nil {
		return false
	}
	if s, ok := value.(string); ok && s == "" {
		return false
	}
	return true
}

// compareEqual performs equality with numeric type mixing.
// float64/int/int64 compare by value (JSON decoding and SQL scanning
// disagree about integer types); everything else compares raw, guarded
// against uncomparable types.
func compareEqual(a, b any) bool {
	if na, nb, ok := asNumbers(a, b); ok {
		return na == nb
	}
	if !comparable2(a) || !comparable2(b) {
		return false
	}
	return a == b
}

// comparable2 reports whether == is safe on v (maps, slices, and funcs panic).
func comparable2(v any) bool {
	switch v.(type) {
	case nil, string, bool, float64, float32, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64:
		return true
	default:
		return false
	}
}

// compareOrdered passes both sides through parseNumber and applies cmp.
// False if either side fails to parse.
func compareOrdered(value, target any, cmp func(a, b float64) bool) bool {
	a, ok := parseNumber(value)
	if !ok {
		return false
	}
	b, ok := parseNumber(target)
	if !ok {
		return false
	}
	return cmp(a, b)
}

// asNumbers attempts to convert both values to float64.
// Handles float64, int, int64 mixing without string parsing.
func asNumbers(a, b any) (float64, float64, bool) {
	na, oka := toFloat64(a)
	nb, okb := toFloat64(b)
	return na, nb, oka && okb
}

// toFloat64 converts native numeric types only.
func toFloat64(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

// compareIn reports whether value is a member of the target sequence.
// A missing or non-sequence target defaults to empty (no match).
func compareIn(value, target any) bool {
	seq, ok := target.([]any)
	if !ok {
		return false
	}
	for _, elem := range seq {
		if compareEqual(value, elem) {
			return true
		}
	}
	return false
}

// compareAnyIn reports whether the value and target sequences share at
// least one element. Scalars on the value side count as one-element
// sequences; nil counts as empty.
func compareAnyIn(value, target any) bool {
	vals := asSequence(value)
	targets, ok := target.([]any)
	if !ok || len(vals) == 0 {
		return false
	}
	for _, v := range vals {
		for _, t := range targets {
			if compareEqual(v, t) {
				return true
			}
		}
	}
	return false
}

// asSequence views a value as a sequence: slices as-is, nil as empty,
// any other scalar as a singleton.
func asSequence(v any) []any {
	switch s := v.(type) {
	case nil:
		return nil
	case []any:
		return s
	default:
		return []any{v}
	}
}

// compareContains reports whether the normalized target string is a
// substring of the normalized value string.
func compareContains(value, target any) bool {
	vs, ok := normalizeString(value)
	if !ok {
		return false
	}
	ts, ok := normalizeString(target)
	if !ok {
		return false
	}
	return strings.Contains(vs, ts)
}

// compareMatches treats the target as a case-insensitive pattern and
// searches for it within the stringified value. Invalid patterns and
// unstringifiable operands yield false.
func compareMatches(value, target any) bool {
	vs, ok := stringify(value)
	if !ok {
		return false
	}
	ts, ok := stringify(target)
	if !ok {
		return false
	}
	re, err := regexp.Compile("(?i)" + ts)
	if err != nil {
		return false
	}
	return re.MatchString(vs)
}
