// Package types provides domain models shared across agrimatch components.
//
// Zero-dependency design: types.go, rules.go, and errors.go use only the
// standard library so the engine can be embedded without pulling in the
// service stack. ID utilities in ids.go import uuid but are isolated for
// selective inclusion.
package types

// Record is a single row of a profile collection: attribute name to scalar
// value (string, number, boolean, date-like string, nil) or nested mapping.
// Records come out of encoding/json or a SELECT *; the engine never assumes
// a schema and never mutates them.
type Record map[string]any

// Dataset maps a collection name ("users", "field", "cattle", "finance")
// to an ordered sequence of records. Insertion order is preserved but only
// meaningful for first-row rules. Supplied wholesale per evaluation call.
type Dataset map[string][]Record

// Resource limits enforced at the API boundary to keep evaluation cost
// bounded. Evaluation itself is O(rules x records) with no unbounded loops,
// so limiting the inputs limits the work.
const (
	// MaxRuleCount caps the number of rules accepted in one rule set.
	// 1024 rules covers every observed subsidy program by two orders
	// of magnitude.
	MaxRuleCount = 1024

	// MaxFieldPathDepth caps dotted-path segments after the collection
	// name. Profile records nest at most two levels in practice.
	MaxFieldPathDepth = 16
)
