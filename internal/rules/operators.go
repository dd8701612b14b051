// internal/rules/operators.go
package rules

import (
	"reflect"
	"strings"
	"time"
)

/*
 * Operator comparison logic.
 *
 * Compare is only reached for present, non-nil field values; missing and nil
 * fields are resolved by the evaluator before dispatch.
 *
 * Operators:
 *   - equals/not_equals: numeric-aware equality, time.Time by instant
 *   - greater/less[-or-equal]: numbers, times, or two strings (lexicographic)
 *   - in/not_in: membership with equality semantics
 *   - contains/starts_with/ends_with: both sides coerced to string
 *   - matches_regex: pre-compiled pattern against the string form
 *
 * Incomparable operands make ordering operators false rather than treating
 * them as equal.
 */

// compareLeaf applies a leaf operator to a present, non-nil value.
func compareLeaf(c *CompiledCondition, value any) bool {
	switch c.Operator {
	case OpEquals:
		return ValuesEqual(value, c.Value)
	case OpNotEquals:
		return !ValuesEqual(value, c.Value)
	case OpGreaterThan:
		cmp, ok := compareOrdered(value, c.Value)
		return ok && cmp > 0
	case OpGreaterThanOrEqual:
		cmp, ok := compareOrdered(value, c.Value)
		return ok && cmp >= 0
	case OpLessThan:
		cmp, ok := compareOrdered(value, c.Value)
		return ok && cmp < 0
	case OpLessThanOrEqual:
		cmp, ok := compareOrdered(value, c.Value)
		return ok && cmp <= 0
	case OpIn:
		return containsValue(c.Values, value)
	case OpNotIn:
		return !containsValue(c.Values, value)
	case OpContains:
		return compareText(value, c.Value, strings.Contains)
	case OpStartsWith:
		return compareText(value, c.Value, strings.HasPrefix)
	case OpEndsWith:
		return compareText(value, c.Value, strings.HasSuffix)
	case OpMatchesRegex:
		s, ok := asText(value)
		return ok && c.Pattern.MatchString(s)
	case OpIsEmpty:
		return IsEmptyValue(value)
	case OpIsNotEmpty:
		return !IsEmptyValue(value)
	default:
		return false
	}
}

// ValuesEqual performs equality with numeric type coercion.
// 1 == 1.0 holds; "1" == 1 does not. Times compare by instant.
func ValuesEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if na, ok := asNumber(a); ok {
		nb, ok := asNumber(b)
		return ok && na == nb
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		return ok && ta.Equal(tb)
	}
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}

// compareOrdered performs three-way comparison (-1/0/1).
// Returns ok=false for incomparable operands.
func compareOrdered(a, b any) (int, bool) {
	if na, ok := asNumber(a); ok {
		nb, ok := asNumber(b)
		if !ok {
			return 0, false
		}
		return threeWay(na < nb, na > nb), true
	}
	if ta, ok := a.(time.Time); ok {
		tb, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		return threeWay(ta.Before(tb), ta.After(tb)), true
	}
	sa, okA := a.(string)
	sb, okB := b.(string)
	if okA && okB {
		return strings.Compare(sa, sb), true
	}
	return 0, false
}

func threeWay(less, greater bool) int {
	switch {
	case less:
		return -1
	case greater:
		return 1
	default:
		return 0
	}
}

// containsValue checks membership using ValuesEqual semantics.
func containsValue(set []any, value any) bool {
	for _, elem := range set {
		if ValuesEqual(value, elem) {
			return true
		}
	}
	return false
}

// compareText coerces both sides to strings before applying fn.
func compareText(value, target any, fn func(s, substr string) bool) bool {
	vs, ok1 := asText(value)
	ts, ok2 := asText(target)
	if !ok1 || !ok2 {
		return false
	}
	return fn(vs, ts)
}
