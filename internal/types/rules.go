// internal/types/rules.go
package types

/*
 * Domain types for eligibility rule evaluation.
 *
 * Provides Rule, RuleSet, EvaluationResult, and RuleDetail structures used
 * by internal/engine. These types are the wire format: the JSON shape a
 * caller posts is decoded straight into them, so optional attributes are
 * pointers to distinguish "absent, use the default" from an explicit zero.
 *
 * Key types:
 *   - Rule: single eligibility predicate (field, op, value, aggregate, ...)
 *   - RuleSet: conjunction of rules ({"all": [...]})
 *   - EvaluationResult: overall pass/fail, 0-1 score, per-rule details
 *   - RuleDetail: audit trail entry with every inspected value
 *
 * Dependencies: none (encoding/json tags only)
 */

// Rule defaults applied when the corresponding JSON attribute is absent.
const (
	DefaultWeight         = 1.0
	DefaultFuzzyThreshold = 0.7
	DefaultMinCount       = 1
)

// Rule is a single eligibility predicate against one dotted field path.
// A rule set author controls comparison (Op), fan-out over one-to-many
// collections (Aggregate), score contribution (Weight), and whether a
// failure vetoes the whole result (Required).
type Rule struct {
	// Field is a dotted path "<collection>.<attribute>"; the attribute part
	// may itself be dotted for nested values.
	Field string `json:"field"`

	// Op names the comparison operator (==, !=, >=, <=, >, <, in, any_in,
	// contains, matches, fuzzy, exists). Unknown names evaluate to false.
	Op string `json:"op"`

	// Value is the comparison target: scalar, sequence, or pattern string.
	Value any `json:"value,omitempty"`

	// Aggregate is "one" (default, first record only), "any" (any record
	// satisfies), or "count>=" (matching-record count meets Min).
	Aggregate string `json:"aggregate,omitempty"`

	// Weight is the non-negative contribution to the overall score.
	// Absent means 1.0.
	Weight *float64 `json:"weight,omitempty"`

	// Threshold is the fuzzy-match minimum similarity ratio in [0,1].
	// Absent means 0.7. Only consulted when Op is "fuzzy".
	Threshold *float64 `json:"threshold,omitempty"`

	// Min is the minimum matching-record count for "count>=".
	// Absent means 1.
	Min *int `json:"min,omitempty"`

	// Required controls whether a failing rule forces overall failure.
	// Absent means true.
	Required *bool `json:"required,omitempty"`
}

// EffectiveWeight returns the rule weight with the default applied.
// Negative weights are malformed input and clamp to 0 so they cannot
// push the score outside [0,1].
func (r Rule) EffectiveWeight() float64 {
	if r.Weight == nil {
		return DefaultWeight
	}
	if *r.Weight < 0 {
		return 0
	}
	return *r.Weight
}

// EffectiveThreshold returns the fuzzy threshold with the default applied.
func (r Rule) EffectiveThreshold() float64 {
	if r.Threshold == nil {
		return DefaultFuzzyThreshold
	}
	return *r.Threshold
}

// EffectiveMin returns the count>= minimum with the default applied.
func (r Rule) EffectiveMin() int {
	if r.Min == nil {
		return DefaultMinCount
	}
	return *r.Min
}

// IsRequired reports whether a failure of this rule vetoes the overall
// result. Absence of the attribute defaults to required.
func (r Rule) IsRequired() bool {
	return r.Required == nil || *r.Required
}

// RuleSet is a conjunction of rules. There is no OR/NOT composition.
type RuleSet struct {
	All []Rule `json:"all"`
}

// RuleDetail records the outcome of a single rule for auditability.
// FoundValues holds every candidate value the evaluator inspected,
// including nils for missing attributes.
type RuleDetail struct {
	Rule         Rule    `json:"rule"`
	Passed       bool    `json:"passed"`
	Weight       float64 `json:"weight"`
	Contribution float64 `json:"contribution"`
	FoundValues  []any   `json:"found_values"`
}

// EvaluationResult is the outcome of evaluating one rule set against one
// dataset. Score is weighted partial credit in [0,1]; Passed is the
// conjunction of required rules only.
type EvaluationResult struct {
	Passed  bool         `json:"passed"`
	Score   float64      `json:"score"`
	Details []RuleDetail `json:"details"`
}
