// Package validation applies registered rules to records.
//
// The engine snapshots the active rule set of an entity type into a Plan,
// then evaluates records against it. A Plan is immutable and safe for
// concurrent use; batches share one Plan across goroutines.
package validation

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cast"

	"github.com/solatis/importgate/internal/rules"
	"github.com/solatis/importgate/internal/types"
)

// Engine validates records against a rule registry.
type Engine struct {
	registry *rules.Registry
	logger   *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for predicate failures.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) { e.logger = logger }
}

// NewEngine creates an engine reading rules from registry.
func NewEngine(registry *rules.Registry, opts ...Option) *Engine {
	e := &Engine{
		registry: registry,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry the engine reads rules from.
func (e *Engine) Registry() *rules.Registry {
	return e.registry
}

// Plan is the resolved rule set for one entity type.
type Plan struct {
	entityType string
	rules      []*rules.CompiledRule
	cross      map[string]rules.CrossFieldRule
	aggregate  map[string]rules.AggregateRule
	logger     *slog.Logger
}

// EntityType returns the entity type the plan validates.
func (p *Plan) EntityType() string {
	return p.entityType
}

// RuleCount returns the number of enabled rules in the plan.
func (p *Plan) RuleCount() int {
	return len(p.rules)
}

// Prepare resolves the enabled rules of entityType and their delegate
// targets. Missing dependencies and unregistered delegates are configuration
// errors reported here, before any record is evaluated.
func (e *Engine) Prepare(entityType string) (*Plan, error) {
	if err := e.registry.CheckEntityRules(entityType); err != nil {
		return nil, err
	}

	p := &Plan{
		entityType: entityType,
		rules:      e.registry.ActiveRules(entityType),
		cross:      make(map[string]rules.CrossFieldRule),
		aggregate:  make(map[string]rules.AggregateRule),
		logger:     e.logger,
	}
	for _, c := range p.rules {
		delegate, ok := c.Rule.Params.(rules.DelegateParams)
		if !ok {
			continue
		}
		if cf, ok := e.registry.CrossFieldRule(delegate.RuleID); ok {
			p.cross[delegate.RuleID] = cf
			continue
		}
		if agg, ok := e.registry.AggregateRule(delegate.RuleID); ok {
			p.aggregate[delegate.RuleID] = agg
			continue
		}
		return nil, fmt.Errorf("%w: rule %q delegates to %q", types.ErrRuleNotFound, c.Rule.ID, delegate.RuleID)
	}
	return p, nil
}

// ValidateRecord validates one record. The record id is taken from its "id"
// field when present.
func (e *Engine) ValidateRecord(ctx context.Context, record types.Record, entityType string) (*Result, error) {
	return e.ValidateRecordWithID(ctx, record, entityType, RecordIDOf(record), 0)
}

// ValidateRecordWithID validates one record, tagging the result and every
// error with recordID and row.
func (e *Engine) ValidateRecordWithID(ctx context.Context, record types.Record, entityType, recordID string, row int) (*Result, error) {
	plan, err := e.Prepare(entityType)
	if err != nil {
		return nil, err
	}
	return plan.Validate(ctx, record, recordID, row), nil
}

// RecordIDOf returns the record's "id" field rendered as a string, or "".
func RecordIDOf(record types.Record) string {
	v, ok := record.Lookup("id")
	if !ok || v == nil {
		return ""
	}
	return cast.ToString(v)
}

// Validate applies the plan's rules to record in registration order.
func (p *Plan) Validate(ctx context.Context, record types.Record, recordID string, row int) *Result {
	result := newResult(recordID, row)

	for _, c := range p.rules {
		rule := c.Rule
		if rule.Field != "" && rule.Type != types.ErrorTypeRequiredField {
			if _, present := record.Lookup(rule.Field); !present {
				continue
			}
		}
		if !c.Applies(record) {
			continue
		}

		verr := p.check(ctx, c, record)
		if rule.Field != "" {
			result.noteField(rule.Field, record, rule.ID, verr)
		}
		if verr == nil {
			continue
		}
		verr.RuleID = rule.ID
		verr.Row = row
		verr.RecordID = recordID
		result.add(*verr)
	}

	result.finish()
	return result
}

// check runs one rule. Returns nil when the record passes.
func (p *Plan) check(ctx context.Context, c *rules.CompiledRule, record types.Record) *types.ValidationError {
	switch c.Rule.Type {
	case types.ErrorTypeBusinessRule, types.ErrorTypeForeignKey:
		return p.checkDelegate(ctx, c, record)
	default:
		value, _ := record.Lookup(c.Rule.Field)
		return checkField(c, value)
	}
}
