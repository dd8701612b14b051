// internal/rules/evaluate_test.go
package rules

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/solatis/importgate/internal/types"
)

func TestEvaluate_LeafOperators(t *testing.T) {
	record := types.Record{
		"status":       "active",
		"quantity":     10,
		"price":        12.5,
		"partNumber":   "PN-1001",
		"isSerialized": true,
		"blank":        "   ",
		"nothing":      nil,
		"received":     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{"equals string", Leaf("status", OpEquals, "active"), true},
		{"equals numeric across kinds", Leaf("quantity", OpEquals, 10.0), true},
		{"equals string vs number", Leaf("quantity", OpEquals, "10"), false},
		{"not equals", Leaf("status", OpNotEquals, "inactive"), true},
		{"greater than", Leaf("quantity", OpGreaterThan, 5), true},
		{"greater than equal boundary", Leaf("quantity", OpGreaterThanOrEqual, 10), true},
		{"less than", Leaf("price", OpLessThan, 12.4), false},
		{"less than or equal", Leaf("price", OpLessThanOrEqual, 12.5), true},
		{"ordering strings", Leaf("status", OpGreaterThan, "aaa"), true},
		{"ordering incomparable", Leaf("status", OpGreaterThan, 1), false},
		{"ordering times", Leaf("received", OpLessThan, time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)), true},
		{"in", Leaf("status", OpIn, []string{"active", "pending"}), true},
		{"in numeric", Leaf("quantity", OpIn, []any{1, 10.0}), true},
		{"not in", Leaf("status", OpNotIn, []any{"closed"}), true},
		{"contains", Leaf("partNumber", OpContains, "-10"), true},
		{"starts with", Leaf("partNumber", OpStartsWith, "PN"), true},
		{"ends with number coerced", Leaf("partNumber", OpEndsWith, 1001), true},
		{"contains on number", Leaf("quantity", OpContains, "1"), true},
		{"matches regex", Leaf("partNumber", OpMatchesRegex, `^PN-\d{4}$`), true},
		{"matches regex fails", Leaf("status", OpMatchesRegex, `^\d+$`), false},
		{"is empty whitespace", Leaf("blank", OpIsEmpty, nil), true},
		{"is empty nil", Leaf("nothing", OpIsEmpty, nil), true},
		{"is empty missing", Leaf("absent", OpIsEmpty, nil), true},
		{"is empty present", Leaf("status", OpIsEmpty, nil), false},
		{"is not empty", Leaf("status", OpIsNotEmpty, nil), true},
		{"is not empty missing", Leaf("absent", OpIsNotEmpty, nil), false},
		{"equals bool", Leaf("isSerialized", OpEquals, true), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			compiled, err := CompileCondition(tt.cond)
			if err != nil {
				t.Fatalf("CompileCondition() error = %v, want nil", err)
			}
			if got := compiled.Evaluate(record); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluate_MissingFieldOnlyMatchesIsEmpty(t *testing.T) {
	ops := []Operator{
		OpEquals, OpNotEquals, OpGreaterThan, OpLessThan, OpGreaterThanOrEqual,
		OpLessThanOrEqual, OpContains, OpStartsWith, OpEndsWith,
	}
	for _, op := range ops {
		if EvaluateCondition(Leaf("missing", op, "x"), types.Record{}) {
			t.Errorf("%s on missing field = true, want false", op)
		}
		if EvaluateCondition(Leaf("missing", op, "x"), types.Record{"missing": nil}) {
			t.Errorf("%s on nil field = true, want false", op)
		}
	}
	if EvaluateCondition(Leaf("missing", OpNotIn, []any{"x"}), types.Record{}) {
		t.Errorf("not_in on missing field = true, want false")
	}
}

func TestEvaluate_Compound(t *testing.T) {
	record := types.Record{"isSerialized": true, "serialNumber": "", "status": "active"}

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{
			name: "AND all true",
			cond: And(Leaf("isSerialized", OpEquals, true), Leaf("status", OpEquals, "active")),
			want: true,
		},
		{
			name: "AND one false",
			cond: And(Leaf("isSerialized", OpEquals, true), Leaf("status", OpEquals, "closed")),
			want: false,
		},
		{
			name: "OR one true",
			cond: Or(Leaf("status", OpEquals, "closed"), Leaf("serialNumber", OpIsEmpty, nil)),
			want: true,
		},
		{
			name: "NOT",
			cond: Not(Leaf("isSerialized", OpEquals, true)),
			want: false,
		},
		{
			name: "nested",
			cond: And(
				Leaf("isSerialized", OpEquals, true),
				Or(Leaf("status", OpIn, []any{"closed"}), Not(Leaf("serialNumber", OpIsNotEmpty, nil))),
			),
			want: true,
		},
		{
			name: "lower case connective",
			cond: Condition{Operator: "and", Conditions: []Condition{Leaf("status", "EQUALS", "active")}},
			want: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EvaluateCondition(tt.cond, record); got != tt.want {
				t.Errorf("EvaluateCondition() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluate_ShortCircuit(t *testing.T) {
	// The right child would be false for the record; a false left child must
	// decide AND without consulting it, and a true left child must decide OR.
	record := types.Record{"a": 1}

	andCond, err := CompileCondition(And(Leaf("a", OpEquals, 2), Leaf("a", OpEquals, 1)))
	if err != nil {
		t.Fatalf("CompileCondition() error = %v, want nil", err)
	}
	if andCond.Evaluate(record) {
		t.Errorf("AND Evaluate() = true, want false")
	}

	orCond, err := CompileCondition(Or(Leaf("a", OpEquals, 1), Leaf("a", OpEquals, 2)))
	if err != nil {
		t.Fatalf("CompileCondition() error = %v, want nil", err)
	}
	if !orCond.Evaluate(record) {
		t.Errorf("OR Evaluate() = false, want true")
	}
}

func TestEvaluateCondition_MalformedIsFalse(t *testing.T) {
	record := types.Record{"status": "active"}
	if EvaluateCondition(Leaf("status", "like", "act%"), record) {
		t.Errorf("EvaluateCondition(unknown operator) = true, want false")
	}
	if EvaluateCondition(Condition{Operator: OpNot}, record) {
		t.Errorf("EvaluateCondition(empty NOT) = true, want false")
	}
}

// Property-based test: evaluation never panics
func TestEvaluate_PropertyNeverPanics(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	ops := []Operator{
		OpEquals, OpNotEquals, OpGreaterThan, OpLessThan, OpGreaterThanOrEqual,
		OpLessThanOrEqual, OpContains, OpStartsWith, OpEndsWith, OpIsEmpty, OpIsNotEmpty,
	}
	values := []any{nil, "", "  ", "abc", 0, -3, 2.5, true, false, time.Unix(0, 0)}

	properties.Property("evaluation never panics on arbitrary records", prop.ForAll(
		func(opIdx, recordIdx, targetIdx int, negate bool) bool {
			cond := Leaf("f", ops[opIdx], values[targetIdx])
			if values[targetIdx] == nil {
				cond.Value = "fallback"
			}
			if negate {
				cond = Not(cond)
			}

			defer func() {
				if r := recover(); r != nil {
					t.Errorf("Evaluate() panicked: %v", r)
				}
			}()

			compiled, err := CompileCondition(cond)
			if err != nil {
				return false
			}
			_ = compiled.Evaluate(types.Record{"f": values[recordIdx]})
			return true
		},
		gen.IntRange(0, len(ops)-1),
		gen.IntRange(0, len(values)-1),
		gen.IntRange(0, len(values)-1),
		gen.Bool(),
	))

	properties.TestingRun(t)
}

// Property-based test: is_not_empty is the negation of is_empty
func TestEvaluate_PropertyEmptinessComplement(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("is_not_empty == !is_empty", prop.ForAll(
		func(s string, present bool) bool {
			record := types.Record{}
			if present {
				record["f"] = s
			}
			empty := EvaluateCondition(Leaf("f", OpIsEmpty, nil), record)
			notEmpty := EvaluateCondition(Leaf("f", OpIsNotEmpty, nil), record)
			return empty != notEmpty
		},
		gen.AnyString(),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
