// Package rules holds the condition evaluator and the rule registry.
//
// Conditions are structured expression trees that gate whether a rule applies
// to a record. They are compiled once at registration (operators checked,
// regexes and membership lists pre-built) and evaluated many times without
// allocation-heavy work. The registry stores validation rules, cross-field
// rules and aggregate rules behind one versioning and metadata mechanism.
package rules

import "strings"

// Operator names a leaf comparison or a compound connective.
type Operator string

// Leaf operators.
const (
	OpEquals             Operator = "equals"
	OpNotEquals          Operator = "not_equals"
	OpGreaterThan        Operator = "greater_than"
	OpLessThan           Operator = "less_than"
	OpGreaterThanOrEqual Operator = "greater_than_or_equal"
	OpLessThanOrEqual    Operator = "less_than_or_equal"
	OpIn                 Operator = "in"
	OpNotIn              Operator = "not_in"
	OpContains           Operator = "contains"
	OpStartsWith         Operator = "starts_with"
	OpEndsWith           Operator = "ends_with"
	OpMatchesRegex       Operator = "matches_regex"
	OpIsEmpty            Operator = "is_empty"
	OpIsNotEmpty         Operator = "is_not_empty"
)

// Compound connectives.
const (
	OpAnd Operator = "AND"
	OpOr  Operator = "OR"
	OpNot Operator = "NOT"
)

// Condition is a tagged variant: a leaf {Field, Operator, Value} or a compound
// {Operator: AND|OR|NOT, Conditions}. Build trees with Leaf, And, Or and Not
// or decode them from rule files.
type Condition struct {
	Field      string      `json:"field,omitempty" yaml:"field,omitempty"`
	Operator   Operator    `json:"operator" yaml:"operator"`
	Value      any         `json:"value,omitempty" yaml:"value,omitempty"`
	Conditions []Condition `json:"conditions,omitempty" yaml:"conditions,omitempty"`
}

// Leaf builds a single comparison.
func Leaf(field string, op Operator, value any) Condition {
	return Condition{Field: field, Operator: op, Value: value}
}

// And requires every child to hold.
func And(conditions ...Condition) Condition {
	return Condition{Operator: OpAnd, Conditions: conditions}
}

// Or requires at least one child to hold.
func Or(conditions ...Condition) Condition {
	return Condition{Operator: OpOr, Conditions: conditions}
}

// Not negates its single child.
func Not(condition Condition) Condition {
	return Condition{Operator: OpNot, Conditions: []Condition{condition}}
}

// normalizeOperator accepts the spellings seen in rule files:
// "greater-than", "GREATER_THAN" and "greater_than" are the same operator,
// and connectives are case-insensitive.
func normalizeOperator(op Operator) Operator {
	s := strings.TrimSpace(string(op))
	switch strings.ToUpper(s) {
	case "AND", "OR", "NOT":
		return Operator(strings.ToUpper(s))
	}
	return Operator(strings.ReplaceAll(strings.ToLower(s), "-", "_"))
}
