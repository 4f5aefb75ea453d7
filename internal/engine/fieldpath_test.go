// internal/engine/fieldpath_test.go
package engine

import (
	"strings"
	"testing"

	"github.com/agrimatch/agrimatch/internal/types"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func TestSplitField(t *testing.T) {
	tests := []struct {
		name           string
		field          string
		wantCollection string
		wantPath       []string
		wantOK         bool
	}{
		{name: "collection and attribute", field: "field.cropType", wantCollection: "field", wantPath: []string{"cropType"}, wantOK: true},
		{name: "nested attribute", field: "users.address.region", wantCollection: "users", wantPath: []string{"address", "region"}, wantOK: true},
		{name: "collection only", field: "users", wantCollection: "users", wantPath: []string{}, wantOK: true},
		{name: "surrounding whitespace", field: "  finance.annualRevenue ", wantCollection: "finance", wantPath: []string{"annualRevenue"}, wantOK: true},
		{name: "empty", field: "", wantOK: false},
		{name: "whitespace only", field: "   ", wantOK: false},
		{name: "leading dot", field: ".cropType", wantOK: false},
		{name: "path too deep", field: "users." + strings.Repeat("a.", types.MaxFieldPathDepth) + "b", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			collection, path, ok := splitField(tt.field)
			if ok != tt.wantOK {
				t.Fatalf("splitField(%q) ok = %v, want %v", tt.field, ok, tt.wantOK)
			}
			if !ok {
				return
			}
			if collection != tt.wantCollection {
				t.Errorf("collection = %q, want %q", collection, tt.wantCollection)
			}
			if len(path) != len(tt.wantPath) {
				t.Fatalf("path = %v, want %v", path, tt.wantPath)
			}
			for i := range path {
				if path[i] != tt.wantPath[i] {
					t.Errorf("path[%d] = %q, want %q", i, path[i], tt.wantPath[i])
				}
			}
		})
	}
}

func TestResolve(t *testing.T) {
	rec := types.Record{
		"cropType": "grâu",
		"area":     12.5,
		"address":  map[string]any{"region": "Cahul", "zip": nil},
		"note":     nil,
	}

	tests := []struct {
		name string
		path []string
		want any
	}{
		{name: "top-level attribute", path: []string{"cropType"}, want: "grâu"},
		{name: "numeric attribute", path: []string{"area"}, want: 12.5},
		{name: "nested attribute", path: []string{"address", "region"}, want: "Cahul"},
		{name: "nested nil", path: []string{"address", "zip"}, want: nil},
		{name: "missing attribute", path: []string{"owner"}, want: nil},
		{name: "path through scalar", path: []string{"cropType", "deeper"}, want: nil},
		{name: "path through nil", path: []string{"note", "deeper"}, want: nil},
		{name: "missing nested attribute", path: []string{"address", "street"}, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := resolve(rec, tt.path); got != tt.want {
				t.Errorf("resolve(%v) = %v, want %v", tt.path, got, tt.want)
			}
		})
	}

	t.Run("zero segments yield the record", func(t *testing.T) {
		got := resolve(rec, nil)
		m, ok := got.(map[string]any)
		if !ok {
			t.Fatalf("resolve(nil path) = %T, want map", got)
		}
		if m["cropType"] != "grâu" {
			t.Errorf("record lost content through resolution")
		}
	})
}

func TestCollect(t *testing.T) {
	records := []types.Record{
		{"cropType": "grâu"},
		{"cropType": "porumb"},
		{"species": "bovine"}, // attribute absent
		nil,                   // nil record
	}

	got := collect(records, []string{"cropType"})
	if len(got) != len(records) {
		t.Fatalf("collect length = %d, want %d", len(got), len(records))
	}
	if got[0] != "grâu" || got[1] != "porumb" {
		t.Errorf("collect = %v, want leading [grâu porumb]", got)
	}
	if got[2] != nil || got[3] != nil {
		t.Errorf("missing records must contribute nil, got %v", got[2:])
	}

	t.Run("empty input", func(t *testing.T) {
		if got := collect(nil, []string{"cropType"}); len(got) != 0 {
			t.Errorf("collect(nil) = %v, want empty", got)
		}
	})
}

// Property-based test: resolution never panics and preserves length.
func TestCollect_PropertyLengthPreserved(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("output length equals input length for arbitrary shapes", prop.ForAll(
		func(n int, depth int, scalarLeaf bool) bool {
			records := make([]types.Record, n)
			for i := 0; i < n; i++ {
				switch i % 3 {
				case 0:
					records[i] = types.Record{"a": map[string]any{"b": "leaf"}}
				case 1:
					records[i] = types.Record{"a": 12.0}
				default:
					records[i] = nil
				}
			}

			path := make([]string, depth)
			for i := range path {
				if scalarLeaf {
					path[i] = "a"
				} else {
					path[i] = "b"
				}
			}

			defer func() {
				if r := recover(); r != nil {
					t.Errorf("collect panicked: %v", r)
				}
			}()

			return len(collect(records, path)) == n
		},
		gen.IntRange(0, 32),
		gen.IntRange(0, 8),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
