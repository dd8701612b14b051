// internal/rules/evaluate.go
package rules

import "github.com/solatis/importgate/internal/types"

/*
 * Condition evaluation.
 *
 * Evaluation is pure and total: a compiled condition always yields a bool.
 *
 * Leaf evaluation:
 *   1. Look up the field in the record
 *   2. Missing or nil: is_empty holds, every other operator is false
 *   3. Otherwise dispatch to compareLeaf
 *
 * Compound evaluation short-circuits left to right: AND stops at the first
 * false child, OR at the first true child, NOT negates its only child.
 */

// Evaluate reports whether the condition holds for record.
func (c *CompiledCondition) Evaluate(record types.Record) bool {
	switch c.Operator {
	case OpAnd:
		for _, child := range c.Children {
			if !child.Evaluate(record) {
				return false
			}
		}
		return true
	case OpOr:
		for _, child := range c.Children {
			if child.Evaluate(record) {
				return true
			}
		}
		return false
	case OpNot:
		return !c.Children[0].Evaluate(record)
	}

	value, ok := record.Lookup(c.Field)
	if !ok || value == nil {
		return c.Operator == OpIsEmpty
	}
	return compareLeaf(c, value)
}

// EvaluateCondition compiles and evaluates cond in one step.
// Malformed conditions evaluate to false; register rules through the
// Registry to have them rejected up front instead.
func EvaluateCondition(cond Condition, record types.Record) bool {
	compiled, err := CompileCondition(cond)
	if err != nil {
		return false
	}
	return compiled.Evaluate(record)
}
