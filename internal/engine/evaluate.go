// internal/engine/evaluate.go
package engine

import (
	"math"

	"github.com/agrimatch/agrimatch/internal/types"
)

/*
 * Rule set evaluation orchestration.
 *
 * Evaluate drives a rule set to a single explainable result: per rule it
 * resolves the target collection, applies the aggregation strategy, and
 * accumulates weighted partial credit.
 *
 * Evaluation flow:
 *   1. Per rule: effective weight into totalWeight
 *   2. Split field path -> select collection (absent == empty)
 *   3. Aggregate (one/any/count>=) -> passed + found values
 *   4. contribution = weight if passed else 0
 *   5. Overall: score = sum(contribution)/totalWeight, rounded to 3
 *      decimals; passed = AND over required rules only
 *
 * Failure semantics: no rule may abort the run. A malformed field, an
 * unknown operator, a wrong-typed value, or a missing collection degrades
 * to passed=false for that rule while its weight still dilutes the score.
 * The caller diagnoses through RuleDetail, not through errors.
 *
 * Purity: same inputs always produce the same result; no I/O, no shared
 * state. Independent evaluations are safe to run concurrently.
 */

// Evaluate scores a dataset against a rule set.
//
// An empty rule set is vacuously satisfied: {passed: true, score: 1.0}.
// The score invariant 0 <= score <= 1 holds for every input.
//
// Sharp edge, kept deliberately: required and weight are independent. A
// zero-weight required rule still vetoes the overall result, while a
// heavily weighted rule marked required=false can only lower the score.
func Evaluate(ruleSet types.RuleSet, dataset types.Dataset) types.EvaluationResult {
	details := make([]types.RuleDetail, 0, len(ruleSet.All))
	passed := true
	totalWeight := 0.0
	scoreSum := 0.0

	for _, rule := range ruleSet.All {
		weight := rule.EffectiveWeight()
		totalWeight += weight

		rulePassed, found := evaluateRule(rule, dataset)

		contribution := 0.0
		if rulePassed {
			contribution = weight
		}
		scoreSum += contribution

		if rule.IsRequired() && !rulePassed {
			passed = false
		}

		details = append(details, types.RuleDetail{
			Rule:         rule,
			Passed:       rulePassed,
			Weight:       weight,
			Contribution: contribution,
			FoundValues:  found,
		})
	}

	score := 1.0
	if totalWeight > 0 {
		score = round3(scoreSum / totalWeight)
	}

	return types.EvaluationResult{
		Passed:  passed,
		Score:   score,
		Details: details,
	}
}

// evaluateRule resolves one rule against the dataset.
// Returns the pass verdict and every inspected value; a rule whose field
// cannot even name a collection fails with nothing inspected.
func evaluateRule(rule types.Rule, dataset types.Dataset) (bool, []any) {
	collection, path, ok := splitField(rule.Field)
	if !ok {
		return false, []any{}
	}

	records := dataset[collection] // absent collection == empty sequence
	op := ParseOperator(rule.Op)

	switch ParseAggregate(rule.Aggregate) {
	case AggAny:
		return aggregateAny(records, path, op, rule.Value, rule.EffectiveThreshold())
	case AggCountGte:
		return aggregateCount(records, path, rule.Value, rule.EffectiveMin())
	default:
		return aggregateOne(records, path, op, rule.Value, rule.EffectiveThreshold())
	}
}

// round3 rounds to 3 decimals, matching the reported score precision.
func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
