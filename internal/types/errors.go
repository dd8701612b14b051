package types

import "errors"

// Sentinel errors for importgate operations.
// Configuration errors wrap one of these; match with errors.Is.
var (
	// ErrInvalidOperator indicates an unknown condition operator or logic connective.
	ErrInvalidOperator = errors.New("invalid condition operator")

	// ErrInvalidCondition indicates a structurally malformed condition tree.
	ErrInvalidCondition = errors.New("invalid condition")

	// ErrConditionTooDeep indicates a condition tree exceeds MaxConditionDepth.
	ErrConditionTooDeep = errors.New("condition exceeds maximum depth")

	// ErrTooManyInValues indicates an in/not_in list exceeds MaxInOperatorValues.
	ErrTooManyInValues = errors.New("in operator has too many values")

	// ErrInvalidPattern indicates a regular expression failed to compile.
	ErrInvalidPattern = errors.New("invalid regular expression")

	// ErrInvalidRule indicates a rule definition failed registration checks.
	ErrInvalidRule = errors.New("invalid rule definition")

	// ErrDuplicateRule indicates a rule id is already registered.
	ErrDuplicateRule = errors.New("rule already registered")

	// ErrRuleNotFound indicates a rule id is not registered.
	ErrRuleNotFound = errors.New("rule not found")

	// ErrRuleKindMismatch indicates an update changed the kind of definition stored under an id.
	ErrRuleKindMismatch = errors.New("rule definition kind mismatch")

	// ErrMissingDependency indicates a declared rule dependency is not registered.
	ErrMissingDependency = errors.New("rule dependency not registered")

	// ErrInvalidConfig indicates a pipeline or scoring configuration is unusable.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrNonScalarValue indicates a record field holds a nested object or list.
	ErrNonScalarValue = errors.New("record field is not a scalar")
)
