// internal/engine/evaluate_test.go
package engine

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/agrimatch/agrimatch/internal/types"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }
func boolPtr(b bool) *bool        { return &b }

func testDataset() types.Dataset {
	return types.Dataset{
		"users": []types.Record{
			{"businessId": "b-1", "isOwner": true, "region": "Cahul"},
		},
		"field": []types.Record{
			{"cropType": "grâu", "areaHa": 12.5},
			{"cropType": "porumb", "areaHa": 30.0},
		},
		"cattle": []types.Record{
			{"species": "bovine", "headCount": 40.0},
			{"species": "bovine", "headCount": 12.0},
			{"species": "ovine", "headCount": 200.0},
		},
		"finance": []types.Record{
			{"annualRevenue": "150000", "currency": "MDL"},
		},
	}
}

func TestEvaluate_EmptyRuleSet(t *testing.T) {
	got := Evaluate(types.RuleSet{}, testDataset())

	if !got.Passed {
		t.Errorf("Passed = false, want true (vacuous)")
	}
	if got.Score != 1.0 {
		t.Errorf("Score = %v, want 1.0", got.Score)
	}
	if len(got.Details) != 0 {
		t.Errorf("Details = %v, want empty", got.Details)
	}
}

func TestEvaluate_SingleRule(t *testing.T) {
	t.Run("passing rule scores 1.0", func(t *testing.T) {
		rs := types.RuleSet{All: []types.Rule{
			{Field: "users.region", Op: "==", Value: "Cahul"},
		}}
		got := Evaluate(rs, testDataset())
		if !got.Passed || got.Score != 1.0 {
			t.Errorf("got passed=%v score=%v, want true/1.0", got.Passed, got.Score)
		}
		if got.Details[0].Contribution != 1.0 {
			t.Errorf("Contribution = %v, want 1.0", got.Details[0].Contribution)
		}
	})

	t.Run("failing rule scores 0.0 and fails overall", func(t *testing.T) {
		rs := types.RuleSet{All: []types.Rule{
			{Field: "users.region", Op: "==", Value: "Bălți"},
		}}
		got := Evaluate(rs, testDataset())
		if got.Passed || got.Score != 0.0 {
			t.Errorf("got passed=%v score=%v, want false/0.0", got.Passed, got.Score)
		}
		if got.Details[0].FoundValues[0] != "Cahul" {
			t.Errorf("FoundValues = %v, want the inspected value", got.Details[0].FoundValues)
		}
	})
}

func TestEvaluate_WeightedPartialCredit(t *testing.T) {
	rs := types.RuleSet{All: []types.Rule{
		{Field: "users.isOwner", Op: "==", Value: true, Weight: floatPtr(1)},
		{Field: "users.region", Op: "==", Value: "Bălți", Weight: floatPtr(3)},
	}}

	got := Evaluate(rs, testDataset())

	if got.Score != 0.25 {
		t.Errorf("Score = %v, want 0.25 (1 of 4 weight)", got.Score)
	}
	if got.Passed {
		t.Errorf("Passed = true, want false (required rule failed)")
	}
	if got.Details[1].Weight != 3 || got.Details[1].Contribution != 0 {
		t.Errorf("failing detail = %+v, want weight 3, contribution 0", got.Details[1])
	}
}

func TestEvaluate_AggregateAny(t *testing.T) {
	rs := types.RuleSet{All: []types.Rule{
		{Field: "field.cropType", Op: "in", Value: []any{"porumb"}, Aggregate: "any", Weight: floatPtr(2)},
	}}

	got := Evaluate(rs, testDataset())

	if !got.Passed {
		t.Fatalf("Passed = false, want true")
	}
	detail := got.Details[0]
	if detail.Contribution != 2 {
		t.Errorf("Contribution = %v, want 2", detail.Contribution)
	}
	// found_values accumulate up to and including the first match
	want := []any{"grâu", "porumb"}
	if !reflect.DeepEqual(detail.FoundValues, want) {
		t.Errorf("FoundValues = %v, want %v", detail.FoundValues, want)
	}
}

func TestEvaluate_AggregateAny_NoMatchRecordsAll(t *testing.T) {
	rs := types.RuleSet{All: []types.Rule{
		{Field: "field.cropType", Op: "==", Value: "orz", Aggregate: "any"},
	}}

	got := Evaluate(rs, testDataset())

	if got.Passed {
		t.Fatalf("Passed = true, want false")
	}
	if len(got.Details[0].FoundValues) != 2 {
		t.Errorf("FoundValues = %v, want full sequence on no match", got.Details[0].FoundValues)
	}
}

func TestEvaluate_AggregateCount(t *testing.T) {
	t.Run("count meets minimum", func(t *testing.T) {
		rs := types.RuleSet{All: []types.Rule{
			{Field: "cattle.species", Op: "==", Value: "bovine", Aggregate: "count>=", Min: intPtr(2)},
		}}
		got := Evaluate(rs, testDataset())
		if !got.Passed {
			t.Errorf("Passed = false, want true (2 bovine records)")
		}
		if len(got.Details[0].FoundValues) != 3 {
			t.Errorf("FoundValues = %v, want full resolved sequence", got.Details[0].FoundValues)
		}
	})

	t.Run("count below minimum", func(t *testing.T) {
		rs := types.RuleSet{All: []types.Rule{
			{Field: "cattle.species", Op: "==", Value: "bovine", Aggregate: "count>=", Min: intPtr(3)},
		}}
		if got := Evaluate(rs, testDataset()); got.Passed {
			t.Errorf("Passed = true, want false (only 2 bovine records)")
		}
	})

	t.Run("sequence target counts via membership", func(t *testing.T) {
		rs := types.RuleSet{All: []types.Rule{
			{Field: "cattle.species", Op: "==", Value: []any{"bovine", "ovine"}, Aggregate: "count>=", Min: intPtr(3)},
		}}
		if got := Evaluate(rs, testDataset()); !got.Passed {
			t.Errorf("Passed = false, want true (all 3 species in target set)")
		}
	})

	t.Run("default minimum is 1", func(t *testing.T) {
		rs := types.RuleSet{All: []types.Rule{
			{Field: "cattle.species", Op: "==", Value: "ovine", Aggregate: "count>="},
		}}
		if got := Evaluate(rs, testDataset()); !got.Passed {
			t.Errorf("Passed = false, want true with default min 1")
		}
	})
}

func TestEvaluate_FuzzyThreshold(t *testing.T) {
	ds := types.Dataset{
		"field": []types.Record{{"activity": "pomicultură"}},
	}
	rs := types.RuleSet{All: []types.Rule{
		{Field: "field.activity", Op: "fuzzy", Value: "pomicultura", Threshold: floatPtr(0.6)},
	}}

	if got := Evaluate(rs, ds); !got.Passed {
		t.Errorf("Passed = false, want true (ratio ~0.909 >= 0.6)")
	}

	strict := types.RuleSet{All: []types.Rule{
		{Field: "field.activity", Op: "fuzzy", Value: "pomicultura", Threshold: floatPtr(0.95)},
	}}
	if got := Evaluate(strict, ds); got.Passed {
		t.Errorf("Passed = true, want false (ratio ~0.909 < 0.95)")
	}
}

func TestEvaluate_NumericStringComparison(t *testing.T) {
	t.Run("plain numeric string passes", func(t *testing.T) {
		rs := types.RuleSet{All: []types.Rule{
			{Field: "finance.annualRevenue", Op: ">=", Value: 100000.0},
		}}
		if got := Evaluate(rs, testDataset()); !got.Passed {
			t.Errorf("Passed = false, want true for \"150000\" >= 100000")
		}
	})

	t.Run("mixed separators fail closed", func(t *testing.T) {
		ds := types.Dataset{
			"finance": []types.Record{{"annualRevenue": "100.000,50"}},
		}
		rs := types.RuleSet{All: []types.Rule{
			{Field: "finance.annualRevenue", Op: ">=", Value: 100000.0},
		}}
		if got := Evaluate(rs, ds); got.Passed {
			t.Errorf("Passed = true, want false for unparsable \"100.000,50\"")
		}
	})
}

func TestEvaluate_RequiredFlag(t *testing.T) {
	rs := types.RuleSet{All: []types.Rule{
		{Field: "users.isOwner", Op: "==", Value: true},
		{Field: "users.region", Op: "==", Value: "Bălți", Required: boolPtr(false)},
	}}

	got := Evaluate(rs, testDataset())

	if !got.Passed {
		t.Errorf("Passed = false, want true (failing rule is not required)")
	}
	if got.Score != 0.5 {
		t.Errorf("Score = %v, want 0.5 (failure still lowers the score)", got.Score)
	}
}

// Documented sharp edge: required and weight are independent. A zero-weight
// required rule vetoes the result; a heavy non-required rule cannot.
func TestEvaluate_ZeroWeightRequiredVeto(t *testing.T) {
	rs := types.RuleSet{All: []types.Rule{
		{Field: "users.isOwner", Op: "==", Value: true, Weight: floatPtr(5)},
		{Field: "users.region", Op: "==", Value: "Bălți", Weight: floatPtr(0)},
	}}

	got := Evaluate(rs, testDataset())

	if got.Passed {
		t.Errorf("Passed = true, want false (zero-weight required rule vetoes)")
	}
	if got.Score != 1.0 {
		t.Errorf("Score = %v, want 1.0 (zero weight cannot dilute)", got.Score)
	}
}

func TestEvaluate_MalformedRules(t *testing.T) {
	tests := []struct {
		name string
		rule types.Rule
	}{
		{name: "empty field", rule: types.Rule{Field: "", Op: "=="}},
		{name: "missing op", rule: types.Rule{Field: "users.region"}},
		{name: "unknown op", rule: types.Rule{Field: "users.region", Op: "between", Value: "x"}},
		{name: "missing collection", rule: types.Rule{Field: "vehicle.plate", Op: "exists"}},
		{name: "wrong-typed value", rule: types.Rule{Field: "field.areaHa", Op: "in", Value: "not-a-sequence"}},
		{name: "negative weight", rule: types.Rule{Field: "users.region", Op: "==", Value: "Cahul", Weight: floatPtr(-4)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("Evaluate panicked: %v", r)
				}
			}()

			got := Evaluate(types.RuleSet{All: []types.Rule{tt.rule}}, testDataset())
			if got.Score < 0 || got.Score > 1 {
				t.Errorf("Score = %v, want within [0,1]", got.Score)
			}
			if len(got.Details) != 1 {
				t.Fatalf("Details = %d entries, want 1", len(got.Details))
			}
			if got.Details[0].FoundValues == nil {
				t.Errorf("FoundValues = nil, want non-nil slice for JSON round-trip")
			}
		})
	}

	// Malformed JSON shape straight off the wire: null field decodes to "".
	t.Run("null field from wire", func(t *testing.T) {
		var rs types.RuleSet
		if err := json.Unmarshal([]byte(`{"all":[{"field":null,"op":"=="}]}`), &rs); err != nil {
			t.Fatal(err)
		}
		got := Evaluate(rs, testDataset())
		if got.Passed {
			t.Errorf("Passed = true, want false for malformed rule")
		}
	})
}

func TestEvaluate_MissingCollectionAndEmptyOne(t *testing.T) {
	// Absent collection behaves as empty; "one" then applies the operator
	// to nil, so != passes vacuously and == fails.
	rs := types.RuleSet{All: []types.Rule{
		{Field: "vehicle.category", Op: "!=", Value: "N1"},
	}}
	got := Evaluate(rs, testDataset())
	if !got.Passed {
		t.Errorf("Passed = false, want true (nil != target)")
	}
	if !reflect.DeepEqual(got.Details[0].FoundValues, []any{nil}) {
		t.Errorf("FoundValues = %v, want [nil]", got.Details[0].FoundValues)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	rs := types.RuleSet{All: []types.Rule{
		{Field: "field.cropType", Op: "in", Value: []any{"porumb"}, Aggregate: "any"},
		{Field: "finance.annualRevenue", Op: ">=", Value: 100000.0, Weight: floatPtr(2)},
		{Field: "cattle.species", Op: "==", Value: "bovine", Aggregate: "count>=", Min: intPtr(2)},
	}}
	ds := testDataset()

	first := Evaluate(rs, ds)
	second := Evaluate(rs, ds)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated evaluation differs:\n%+v\n%+v", first, second)
	}
}

// Property-based test: the score invariant holds for arbitrary rule sets.
func TestEvaluate_PropertyScoreBounds(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	ops := []string{"==", "!=", ">=", "<", "in", "any_in", "contains", "matches", "fuzzy", "exists", "bogus"}
	aggs := []string{"one", "any", "count>=", ""}
	fields := []string{"users.region", "field.cropType", "cattle.headCount", "missing.attr", "", "users"}

	properties.Property("0 <= score <= 1 and evaluation never panics", prop.ForAll(
		func(opIdx, aggIdx, fieldIdx, ruleCount int, weight float64, required bool) bool {
			rules := make([]types.Rule, ruleCount)
			for i := range rules {
				w := weight
				r := required
				rules[i] = types.Rule{
					Field:     fields[(fieldIdx+i)%len(fields)],
					Op:        ops[(opIdx+i)%len(ops)],
					Value:     "bovine",
					Aggregate: aggs[(aggIdx+i)%len(aggs)],
					Weight:    &w,
					Required:  &r,
				}
			}

			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Evaluate panicked: %v", r)
				}
			}()

			got := Evaluate(types.RuleSet{All: rules}, testDataset())
			return got.Score >= 0 && got.Score <= 1
		},
		gen.IntRange(0, len(ops)-1),
		gen.IntRange(0, len(aggs)-1),
		gen.IntRange(0, len(fields)-1),
		gen.IntRange(0, 16),
		gen.Float64Range(-2, 10),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
