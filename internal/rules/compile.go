// internal/rules/compile.go
package rules

import (
	"fmt"
	"reflect"
	"regexp"

	"github.com/solatis/importgate/internal/types"
)

/*
 * Condition compilation and validation.
 *
 * Compiles a Condition tree into a CompiledCondition with normalized
 * operators, pre-compiled regexes and flattened membership lists.
 *
 * Compilation workflow:
 *   1. Normalize operator spelling
 *   2. Compound nodes: check child arity (NOT takes exactly one, AND/OR at
 *      least one) and depth, then compile children in order
 *   3. Leaf nodes: require a field, a known operator and a value for every
 *      operator except is_empty/is_not_empty
 *   4. in/not_in: flatten any slice type into []any, enforce size limit
 *   5. matches_regex: compile the pattern once
 *
 * Malformed conditions are configuration errors reported here, at rule
 * registration, so evaluation never has to fail.
 *
 * Child order is preserved: AND/OR short-circuit strictly left to right.
 */

// CompiledCondition is a validated condition ready for evaluation.
type CompiledCondition struct {
	Field    string
	Operator Operator
	Value    any
	Values   []any          // in/not_in membership list
	Pattern  *regexp.Regexp // matches_regex
	Children []*CompiledCondition
}

// CompileCondition validates a condition tree and pre-processes it for evaluation.
func CompileCondition(cond Condition) (*CompiledCondition, error) {
	return compileCondition(cond, 1)
}

func compileCondition(cond Condition, depth int) (*CompiledCondition, error) {
	if depth > types.MaxConditionDepth {
		return nil, types.ErrConditionTooDeep
	}

	op := normalizeOperator(cond.Operator)

	switch op {
	case OpAnd, OpOr, OpNot:
		return compileCompound(op, cond.Conditions, depth)
	}

	if len(cond.Conditions) > 0 {
		return nil, fmt.Errorf("%w: leaf operator %q cannot have child conditions", types.ErrInvalidCondition, op)
	}
	if cond.Field == "" {
		return nil, fmt.Errorf("%w: operator %q requires a field", types.ErrInvalidCondition, op)
	}

	compiled := &CompiledCondition{
		Field:    cond.Field,
		Operator: op,
		Value:    cond.Value,
	}

	switch op {
	case OpIsEmpty, OpIsNotEmpty:
		return compiled, nil
	case OpEquals, OpNotEquals, OpGreaterThan, OpLessThan, OpGreaterThanOrEqual, OpLessThanOrEqual,
		OpContains, OpStartsWith, OpEndsWith:
		if cond.Value == nil {
			return nil, fmt.Errorf("%w: operator %q on field %q requires a value", types.ErrInvalidCondition, op, cond.Field)
		}
		return compiled, nil
	case OpIn, OpNotIn:
		values, ok := toSlice(cond.Value)
		if !ok {
			return nil, fmt.Errorf("%w: operator %q on field %q requires a list value", types.ErrInvalidCondition, op, cond.Field)
		}
		if len(values) > types.MaxInOperatorValues {
			return nil, types.ErrTooManyInValues
		}
		compiled.Values = values
		return compiled, nil
	case OpMatchesRegex:
		pattern, ok := cond.Value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: matches_regex on field %q requires a string pattern", types.ErrInvalidCondition, cond.Field)
		}
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", types.ErrInvalidPattern, err)
		}
		compiled.Pattern = re
		return compiled, nil
	default:
		return nil, fmt.Errorf("%w: %q", types.ErrInvalidOperator, cond.Operator)
	}
}

// compileCompound checks connective arity and compiles children in order.
func compileCompound(op Operator, children []Condition, depth int) (*CompiledCondition, error) {
	switch op {
	case OpNot:
		if len(children) != 1 {
			return nil, fmt.Errorf("%w: NOT takes exactly one condition, got %d", types.ErrInvalidCondition, len(children))
		}
	default:
		if len(children) == 0 {
			return nil, fmt.Errorf("%w: %s requires at least one condition", types.ErrInvalidCondition, op)
		}
	}

	compiled := &CompiledCondition{
		Operator: op,
		Children: make([]*CompiledCondition, 0, len(children)),
	}
	for _, child := range children {
		cc, err := compileCondition(child, depth+1)
		if err != nil {
			return nil, err
		}
		compiled.Children = append(compiled.Children, cc)
	}
	return compiled, nil
}

// toSlice flattens any slice or array into []any.
func toSlice(v any) ([]any, bool) {
	if v == nil {
		return nil, false
	}
	if s, ok := v.([]any); ok {
		return s, true
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}
