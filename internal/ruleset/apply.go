package ruleset

import (
	"context"
	"fmt"

	"github.com/solatis/importgate/internal/rules"
	"github.com/solatis/importgate/internal/types"
)

/*
 * Rule set registration.
 *
 * Apply workflow:
 *   1. Convert every spec into its registry definition (ids generated for
 *      rules declared without one, assert conditions compiled)
 *   2. Reject ids that repeat within the document or are already registered
 *   3. Register validation rules atomically (AddRules)
 *   4. Register cross-field and aggregate rules
 *
 * Delegate targets are not resolved here: the registry checks them when an
 * entity type is validated, so a document may reference rules that a later
 * document supplies.
 */

// Definitions converts the document into registry definitions without
// registering them.
func (f *File) Definitions() ([]rules.ValidationRule, []rules.CrossFieldRule, []rules.AggregateRule, error) {
	validation := make([]rules.ValidationRule, 0, len(f.ValidationRules))
	for i, spec := range f.ValidationRules {
		rule, err := spec.toRule(f.EntityType)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("validation_rules[%d]: %w", i, err)
		}
		validation = append(validation, rule)
	}

	cross := make([]rules.CrossFieldRule, 0, len(f.CrossFieldRules))
	for i, spec := range f.CrossFieldRules {
		rule, err := spec.toRule()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("cross_field_rules[%d]: %w", i, err)
		}
		cross = append(cross, rule)
	}

	aggregate := make([]rules.AggregateRule, 0, len(f.AggregateRules))
	for i, spec := range f.AggregateRules {
		rule, err := spec.toRule()
		if err != nil {
			return nil, nil, nil, fmt.Errorf("aggregate_rules[%d]: %w", i, err)
		}
		aggregate = append(aggregate, rule)
	}

	return validation, cross, aggregate, nil
}

// Apply registers every definition in the document with r.
func (f *File) Apply(r *rules.Registry) error {
	validation, cross, aggregate, err := f.Definitions()
	if err != nil {
		return err
	}

	seen := make(map[string]bool)
	claim := func(id string) error {
		if seen[id] {
			return fmt.Errorf("%w: %q declared twice", types.ErrDuplicateRule, id)
		}
		seen[id] = true
		if _, exists := r.GetRuleMetadata(id); exists {
			return fmt.Errorf("%w: %q", types.ErrDuplicateRule, id)
		}
		return nil
	}
	for _, rule := range validation {
		if err := claim(rule.ID); err != nil {
			return err
		}
	}
	for _, rule := range cross {
		if err := claim(rule.ID); err != nil {
			return err
		}
	}
	for _, rule := range aggregate {
		if err := claim(rule.ID); err != nil {
			return err
		}
	}

	if err := r.AddRules(validation); err != nil {
		return err
	}
	for _, rule := range cross {
		if err := r.AddCrossFieldRule(rule); err != nil {
			return err
		}
	}
	for _, rule := range aggregate {
		if err := r.AddAggregateRule(rule); err != nil {
			return err
		}
	}
	return nil
}

func (s ValidationSpec) toRule(defaultEntity string) (rules.ValidationRule, error) {
	rule := rules.ValidationRule{
		ID:           s.ID,
		EntityType:   s.EntityType,
		Field:        s.Field,
		Type:         s.Type,
		Severity:     s.Severity,
		Message:      s.Message,
		SuggestedFix: s.SuggestedFix,
		Condition:    s.Condition,
		Disabled:     s.Enabled != nil && !*s.Enabled,
		Meta:         s.RuleMeta,
	}
	if rule.ID == "" {
		rule.ID = types.NewRuleID()
	}
	if rule.EntityType == "" {
		rule.EntityType = defaultEntity
	}
	if rule.Severity == "" && !delegating(rule.Type) {
		rule.Severity = types.SeverityError
	}

	p := s.Params
	switch rule.Type {
	case types.ErrorTypeRequiredField:
		rule.Params = rules.RequiredParams{AllowEmpty: p.AllowEmpty}
	case types.ErrorTypeDataType:
		rule.Params = rules.DataTypeParams{Type: rules.DataType(p.DataType), Coerce: p.Coerce}
	case types.ErrorTypeFormat:
		rule.Params = rules.FormatParams{Pattern: p.Pattern}
	case types.ErrorTypeRange:
		rule.Params = rules.RangeParams{Min: p.Min, Max: p.Max, ExclusiveMin: p.ExclusiveMin, ExclusiveMax: p.ExclusiveMax}
	case types.ErrorTypeEnum:
		rule.Params = rules.EnumParams{Values: p.Values, CaseInsensitive: p.CaseInsensitive, AllowNull: p.AllowNull}
	case types.ErrorTypeBusinessRule, types.ErrorTypeForeignKey:
		rule.Params = rules.DelegateParams{RuleID: p.RuleID}
	default:
		return rule, fmt.Errorf("%w: rule %q: unknown rule type %q", types.ErrInvalidRule, rule.ID, rule.Type)
	}
	return rule, nil
}

func delegating(t types.ErrorType) bool {
	return t == types.ErrorTypeBusinessRule || t == types.ErrorTypeForeignKey
}

func (s CrossFieldSpec) toRule() (rules.CrossFieldRule, error) {
	id := s.ID
	if id == "" {
		id = types.NewRuleID()
	}
	assert, err := rules.CompileCondition(s.Assert)
	if err != nil {
		return rules.CrossFieldRule{}, fmt.Errorf("rule %q assert: %w", id, err)
	}

	message := s.Message
	if message == "" {
		message = fmt.Sprintf("Fields %v violate rule %s", s.Fields, id)
	}
	outcome := rules.CrossFieldOutcome{Valid: false, Message: message, SuggestedFix: s.SuggestedFix}

	return rules.CrossFieldRule{
		ID:       id,
		Fields:   s.Fields,
		Severity: s.Severity,
		Meta:     s.RuleMeta,
		Predicate: func(_ context.Context, record types.Record) (rules.CrossFieldOutcome, error) {
			if assert.Evaluate(record) {
				return rules.CrossFieldOutcome{Valid: true}, nil
			}
			return outcome, nil
		},
	}, nil
}

func (s AggregateSpec) toRule() (rules.AggregateRule, error) {
	id := s.ID
	if id == "" {
		id = types.NewRuleID()
	}
	predicate, err := aggregateFunction(s.Function, s.Limit)
	if err != nil {
		return rules.AggregateRule{}, fmt.Errorf("rule %q: %w", id, err)
	}
	return rules.AggregateRule{
		ID:        id,
		Fields:    s.Fields,
		Predicate: predicate,
		Severity:  s.Severity,
		Message:   s.Message,
		Meta:      s.RuleMeta,
	}, nil
}
