// internal/rules/rule.go
package rules

import (
	"context"
	"fmt"
	"regexp"

	"github.com/solatis/importgate/internal/types"
)

/*
 * Rule definitions.
 *
 * Three definition kinds share the registry's versioning and metadata:
 *   - ValidationRule: registered per entity type, one rule kind, typed params
 *   - CrossFieldRule: predicate over a whole record
 *   - AggregateRule: predicate over the values of an ordered field list
 *
 * Built-in kinds carry a closed set of parameter payloads (Params is sealed).
 * BUSINESS_RULE and FOREIGN_KEY rules carry DelegateParams naming a
 * cross-field or aggregate rule, which is where custom Go predicates live.
 */

// DefinitionKind distinguishes the three kinds of registered definitions.
type DefinitionKind string

const (
	KindValidation DefinitionKind = "validation"
	KindCrossField DefinitionKind = "cross_field"
	KindAggregate  DefinitionKind = "aggregate"
)

// Definition is implemented by ValidationRule, CrossFieldRule and AggregateRule.
type Definition interface {
	DefinitionID() string
	DefinitionKind() DefinitionKind
	Metadata() RuleMeta
	withIdentity(id string, version int) Definition
}

// RuleMeta carries human-facing metadata and relationships to other rules.
type RuleMeta struct {
	Name          string   `yaml:"name,omitempty"`
	Description   string   `yaml:"description,omitempty"`
	Dependencies  []string `yaml:"dependencies,omitempty"`
	ConflictsWith []string `yaml:"conflicts_with,omitempty"`
}

// DataType is the declared type checked by DATA_TYPE rules.
type DataType string

const (
	DataTypeString  DataType = "string"
	DataTypeNumber  DataType = "number"
	DataTypeInteger DataType = "integer"
	DataTypeBoolean DataType = "boolean"
	DataTypeDate    DataType = "date"
)

// Params is the kind-specific payload of a ValidationRule.
type Params interface {
	ruleType() types.ErrorType
}

// RequiredParams configures REQUIRED_FIELD. Empty strings fail unless AllowEmpty.
type RequiredParams struct {
	AllowEmpty bool
}

// DataTypeParams configures DATA_TYPE. With Coerce, numeric, boolean and
// date strings are accepted for their declared types.
type DataTypeParams struct {
	Type   DataType
	Coerce bool
}

// FormatParams configures FORMAT.
type FormatParams struct {
	Pattern string
}

// RangeParams configures RANGE. Nil bounds are open.
type RangeParams struct {
	Min          *float64
	Max          *float64
	ExclusiveMin bool
	ExclusiveMax bool
}

// EnumParams configures ENUM.
type EnumParams struct {
	Values          []any
	CaseInsensitive bool
	AllowNull       bool
}

// DelegateParams names the cross-field or aggregate rule a BUSINESS_RULE or
// FOREIGN_KEY rule delegates to.
type DelegateParams struct {
	RuleID string
}

func (RequiredParams) ruleType() types.ErrorType { return types.ErrorTypeRequiredField }
func (DataTypeParams) ruleType() types.ErrorType { return types.ErrorTypeDataType }
func (FormatParams) ruleType() types.ErrorType   { return types.ErrorTypeFormat }
func (RangeParams) ruleType() types.ErrorType    { return types.ErrorTypeRange }
func (EnumParams) ruleType() types.ErrorType     { return types.ErrorTypeEnum }
func (DelegateParams) ruleType() types.ErrorType { return types.ErrorTypeBusinessRule }

// Float returns a pointer to f, for RangeParams bounds.
func Float(f float64) *float64 {
	return &f
}

// ValidationRule is a single-kind rule registered against an entity type.
// Disabled rules stay registered and visible in metadata but never fire.
type ValidationRule struct {
	ID           string
	EntityType   string
	Field        string // empty for cross-cutting rules
	Type         types.ErrorType
	Severity     types.Severity // empty on delegating rules inherits the predicate's
	Message      string
	SuggestedFix string
	Condition    *Condition
	Disabled     bool
	Version      int // assigned by the registry
	Params       Params
	Meta         RuleMeta
}

func (r ValidationRule) DefinitionID() string           { return r.ID }
func (r ValidationRule) DefinitionKind() DefinitionKind { return KindValidation }
func (r ValidationRule) Metadata() RuleMeta             { return r.Meta }

func (r ValidationRule) withIdentity(id string, version int) Definition {
	r.ID = id
	r.Version = version
	return r
}

// CrossFieldOutcome is the verdict of a cross-field predicate.
type CrossFieldOutcome struct {
	Valid        bool
	Message      string
	SuggestedFix string
}

// CrossFieldPredicate inspects a whole record. A returned error means the
// predicate could not decide; the engine reports it as a failed check.
type CrossFieldPredicate func(ctx context.Context, record types.Record) (CrossFieldOutcome, error)

// CrossFieldRule validates relationships between fields of one record.
type CrossFieldRule struct {
	ID        string
	Fields    []string
	Predicate CrossFieldPredicate
	Severity  types.Severity // defaults to ERROR
	Meta      RuleMeta
	Version   int
}

func (r CrossFieldRule) DefinitionID() string           { return r.ID }
func (r CrossFieldRule) DefinitionKind() DefinitionKind { return KindCrossField }
func (r CrossFieldRule) Metadata() RuleMeta             { return r.Meta }

func (r CrossFieldRule) withIdentity(id string, version int) Definition {
	r.ID = id
	r.Version = version
	return r
}

// AggregatePredicate receives the values of the rule's fields, in field order.
// Missing fields contribute nil.
type AggregatePredicate func(ctx context.Context, values []any) (bool, error)

// AggregateRule validates a property of several field values taken together.
type AggregateRule struct {
	ID        string
	Fields    []string
	Predicate AggregatePredicate
	Severity  types.Severity // defaults to ERROR
	Message   string
	Meta      RuleMeta
	Version   int
}

func (r AggregateRule) DefinitionID() string           { return r.ID }
func (r AggregateRule) DefinitionKind() DefinitionKind { return KindAggregate }
func (r AggregateRule) Metadata() RuleMeta             { return r.Meta }

func (r AggregateRule) withIdentity(id string, version int) Definition {
	r.ID = id
	r.Version = version
	return r
}

// CompiledRule is a validation rule with its condition and pattern pre-built.
type CompiledRule struct {
	Rule    ValidationRule
	When    *CompiledCondition // nil: always applies
	Pattern *regexp.Regexp     // FORMAT rules only
}

// Applies reports whether the rule's gating condition holds for record.
func (c *CompiledRule) Applies(record types.Record) bool {
	return c.When == nil || c.When.Evaluate(record)
}

// compileRule validates a validation rule and pre-builds its condition and pattern.
func compileRule(rule ValidationRule) (*CompiledRule, error) {
	invalid := func(format string, args ...any) error {
		return fmt.Errorf("%w: rule %q: %s", types.ErrInvalidRule, rule.ID, fmt.Sprintf(format, args...))
	}

	if rule.ID == "" {
		return nil, fmt.Errorf("%w: rule id is required", types.ErrInvalidRule)
	}
	if rule.EntityType == "" {
		return nil, invalid("entity type is required")
	}
	if !rule.Type.IsRuleKind() {
		return nil, invalid("unknown rule type %q", rule.Type)
	}

	delegating := rule.Type == types.ErrorTypeBusinessRule || rule.Type == types.ErrorTypeForeignKey
	if !rule.Severity.Valid() && !(delegating && rule.Severity == "") {
		return nil, invalid("unknown severity %q", rule.Severity)
	}
	if !delegating && rule.Field == "" {
		return nil, invalid("%s rules require a field", rule.Type)
	}

	compiled := &CompiledRule{Rule: rule}

	switch p := rule.Params.(type) {
	case nil:
		if rule.Type != types.ErrorTypeRequiredField {
			return nil, invalid("%s rules require parameters", rule.Type)
		}
	case RequiredParams:
		if rule.Type != types.ErrorTypeRequiredField {
			return nil, invalid("required parameters on %s rule", rule.Type)
		}
	case DataTypeParams:
		if rule.Type != types.ErrorTypeDataType {
			return nil, invalid("data type parameters on %s rule", rule.Type)
		}
		switch p.Type {
		case DataTypeString, DataTypeNumber, DataTypeInteger, DataTypeBoolean, DataTypeDate:
		default:
			return nil, invalid("unknown data type %q", p.Type)
		}
	case FormatParams:
		if rule.Type != types.ErrorTypeFormat {
			return nil, invalid("format parameters on %s rule", rule.Type)
		}
		re, err := regexp.Compile(p.Pattern)
		if err != nil {
			return nil, fmt.Errorf("%w: rule %q: %v", types.ErrInvalidPattern, rule.ID, err)
		}
		compiled.Pattern = re
	case RangeParams:
		if rule.Type != types.ErrorTypeRange {
			return nil, invalid("range parameters on %s rule", rule.Type)
		}
		if p.Min == nil && p.Max == nil {
			return nil, invalid("range requires min or max")
		}
		if p.Min != nil && p.Max != nil && *p.Min > *p.Max {
			return nil, invalid("range min %v exceeds max %v", *p.Min, *p.Max)
		}
	case EnumParams:
		if rule.Type != types.ErrorTypeEnum {
			return nil, invalid("enum parameters on %s rule", rule.Type)
		}
		if len(p.Values) == 0 {
			return nil, invalid("enum requires at least one allowed value")
		}
	case DelegateParams:
		if !delegating {
			return nil, invalid("delegate parameters on %s rule", rule.Type)
		}
		if p.RuleID == "" {
			return nil, invalid("delegate rule id is required")
		}
	default:
		return nil, invalid("unsupported parameters %T", p)
	}

	if rule.Condition != nil {
		when, err := CompileCondition(*rule.Condition)
		if err != nil {
			return nil, fmt.Errorf("rule %q condition: %w", rule.ID, err)
		}
		compiled.When = when
	}

	return compiled, nil
}

// checkCrossFieldRule validates a cross-field rule and fills in defaults.
func checkCrossFieldRule(rule CrossFieldRule) (CrossFieldRule, error) {
	if rule.ID == "" {
		return rule, fmt.Errorf("%w: rule id is required", types.ErrInvalidRule)
	}
	if len(rule.Fields) == 0 {
		return rule, fmt.Errorf("%w: rule %q: at least one field is required", types.ErrInvalidRule, rule.ID)
	}
	if rule.Predicate == nil {
		return rule, fmt.Errorf("%w: rule %q: predicate is required", types.ErrInvalidRule, rule.ID)
	}
	if rule.Severity == "" {
		rule.Severity = types.SeverityError
	}
	if !rule.Severity.Valid() {
		return rule, fmt.Errorf("%w: rule %q: unknown severity %q", types.ErrInvalidRule, rule.ID, rule.Severity)
	}
	return rule, nil
}

// checkAggregateRule validates an aggregate rule and fills in defaults.
func checkAggregateRule(rule AggregateRule) (AggregateRule, error) {
	if rule.ID == "" {
		return rule, fmt.Errorf("%w: rule id is required", types.ErrInvalidRule)
	}
	if len(rule.Fields) == 0 {
		return rule, fmt.Errorf("%w: rule %q: at least one field is required", types.ErrInvalidRule, rule.ID)
	}
	if rule.Predicate == nil {
		return rule, fmt.Errorf("%w: rule %q: predicate is required", types.ErrInvalidRule, rule.ID)
	}
	if rule.Severity == "" {
		rule.Severity = types.SeverityError
	}
	if !rule.Severity.Valid() {
		return rule, fmt.Errorf("%w: rule %q: unknown severity %q", types.ErrInvalidRule, rule.ID, rule.Severity)
	}
	return rule, nil
}
