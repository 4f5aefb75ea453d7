package types

import "errors"

// Sentinel errors for agrimatch operations. The rule engine itself is
// fail-closed and returns none of these; they belong to the service layers
// around it (store, API validation).
var (
	// ErrTooManyRules indicates a rule set exceeds MaxRuleCount.
	ErrTooManyRules = errors.New("rule set exceeds maximum rule count")

	// ErrFieldPathTooDeep indicates a dotted field path exceeds MaxFieldPathDepth.
	ErrFieldPathTooDeep = errors.New("field path exceeds maximum depth")

	// ErrSubsidyNotFound indicates no subsidy program exists for a code.
	ErrSubsidyNotFound = errors.New("subsidy not found")

	// ErrRuleSetNotFound indicates a subsidy program has no stored rule set.
	ErrRuleSetNotFound = errors.New("rule set not found")

	// ErrMatchRunNotFound indicates no match run exists for an ID.
	ErrMatchRunNotFound = errors.New("match run not found")
)
