// internal/rules/registry.go
package rules

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/solatis/importgate/internal/types"
)

/*
 * Rule registry.
 *
 * Holds validation, cross-field and aggregate definitions under one id space.
 * Every id maps to an append-only version history with exactly one active
 * version; nothing is ever hard-deleted except by ClearAllRules.
 *
 * Concurrency: single writer, many readers (sync.RWMutex). Imports running in
 * parallel read the same rule set while registration and version changes are
 * serialized.
 *
 * Registration order is preserved per entity type so validation errors come
 * out in a deterministic order.
 */

// Registry stores rule definitions and their version history.
type Registry struct {
	mu      sync.RWMutex
	entries map[string]*entry
	order   []string // registration order of all ids
	now     func() time.Time
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryClock overrides the clock used for version timestamps.
func WithRegistryClock(now func() time.Time) RegistryOption {
	return func(r *Registry) { r.now = now }
}

// entry is the version history of one id.
type entry struct {
	kind      DefinitionKind
	versions  []*version // ascending by number
	active    int        // index into versions
	createdAt time.Time
	updatedAt time.Time
}

type version struct {
	number    int
	def       Definition
	compiled  *CompiledRule // validation rules only
	note      string
	createdAt time.Time
}

func (e *entry) current() *version {
	return e.versions[e.active]
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...RegistryOption) *Registry {
	r := &Registry{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AddRule registers a validation rule. The rule is validated and its
// condition compiled; malformed rules are rejected.
func (r *Registry) AddRule(rule ValidationRule) error {
	compiled, err := compileRule(rule)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(rule, compiled)
}

// AddRules registers several validation rules atomically: if any rule is
// invalid or duplicated, none is registered.
func (r *Registry) AddRules(rules []ValidationRule) error {
	compiled := make([]*CompiledRule, len(rules))
	seen := make(map[string]bool, len(rules))
	for i, rule := range rules {
		c, err := compileRule(rule)
		if err != nil {
			return err
		}
		if seen[rule.ID] {
			return fmt.Errorf("%w: %q appears twice in batch", types.ErrDuplicateRule, rule.ID)
		}
		seen[rule.ID] = true
		compiled[i] = c
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	for _, rule := range rules {
		if _, exists := r.entries[rule.ID]; exists {
			return fmt.Errorf("%w: %q", types.ErrDuplicateRule, rule.ID)
		}
	}
	for i, rule := range rules {
		if err := r.insertLocked(rule, compiled[i]); err != nil {
			return err
		}
	}
	return nil
}

// AddCrossFieldRule registers a cross-field rule.
func (r *Registry) AddCrossFieldRule(rule CrossFieldRule) error {
	rule, err := checkCrossFieldRule(rule)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(rule, nil)
}

// AddAggregateRule registers an aggregate rule.
func (r *Registry) AddAggregateRule(rule AggregateRule) error {
	rule, err := checkAggregateRule(rule)
	if err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertLocked(rule, nil)
}

// insertLocked stores the first version of a new id. Caller holds mu.
func (r *Registry) insertLocked(def Definition, compiled *CompiledRule) error {
	id := def.DefinitionID()
	if _, exists := r.entries[id]; exists {
		return fmt.Errorf("%w: %q", types.ErrDuplicateRule, id)
	}

	number := initialVersion(def)
	def = def.withIdentity(id, number)
	if compiled != nil {
		compiled.Rule = def.(ValidationRule)
	}

	now := r.now()
	r.entries[id] = &entry{
		kind: def.DefinitionKind(),
		versions: []*version{{
			number:    number,
			def:       def,
			compiled:  compiled,
			note:      "initial version",
			createdAt: now,
		}},
		createdAt: now,
		updatedAt: now,
	}
	r.order = append(r.order, id)
	return nil
}

// initialVersion honours a caller-supplied starting version, defaulting to 1.
func initialVersion(def Definition) int {
	var v int
	switch d := def.(type) {
	case ValidationRule:
		v = d.Version
	case CrossFieldRule:
		v = d.Version
	case AggregateRule:
		v = d.Version
	}
	if v < 1 {
		return 1
	}
	return v
}

// GetRules returns the active version of every validation rule registered for
// entityType, in registration order. Disabled rules are included.
func (r *Registry) GetRules(entityType string) []ValidationRule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []ValidationRule
	for _, id := range r.order {
		e := r.entries[id]
		if e.kind != KindValidation {
			continue
		}
		rule := e.current().def.(ValidationRule)
		if rule.EntityType == entityType {
			out = append(out, rule)
		}
	}
	return out
}

// ActiveRules returns the compiled, enabled, active-version validation rules
// for entityType in registration order. This is the set the validation
// engine evaluates.
func (r *Registry) ActiveRules(entityType string) []*CompiledRule {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*CompiledRule
	for _, id := range r.order {
		e := r.entries[id]
		if e.kind != KindValidation {
			continue
		}
		compiled := e.current().compiled
		if compiled.Rule.EntityType == entityType && !compiled.Rule.Disabled {
			out = append(out, compiled)
		}
	}
	return out
}

// EntityTypes returns every entity type with at least one registered rule, sorted.
func (r *Registry) EntityTypes() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	for _, e := range r.entries {
		if e.kind != KindValidation {
			continue
		}
		seen[e.current().def.(ValidationRule).EntityType] = true
	}
	out := make([]string, 0, len(seen))
	for et := range seen {
		out = append(out, et)
	}
	sort.Strings(out)
	return out
}

// CrossFieldRule returns the active version of a cross-field rule.
func (r *Registry) CrossFieldRule(id string) (CrossFieldRule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok || e.kind != KindCrossField {
		return CrossFieldRule{}, false
	}
	return e.current().def.(CrossFieldRule), true
}

// AggregateRule returns the active version of an aggregate rule.
func (r *Registry) AggregateRule(id string) (AggregateRule, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok || e.kind != KindAggregate {
		return AggregateRule{}, false
	}
	return e.current().def.(AggregateRule), true
}

// ClearAllRules removes every definition and its history.
func (r *Registry) ClearAllRules() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = make(map[string]*entry)
	r.order = nil
}

// DependencyCheck reports whether a rule's declared dependencies are registered.
type DependencyCheck struct {
	Satisfied bool
	Missing   []string
}

// CheckRuleDependencies checks that every dependency declared by the active
// version of id is currently registered. An unknown id declares nothing and
// is trivially satisfied.
func (r *Registry) CheckRuleDependencies(id string) DependencyCheck {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dependenciesLocked(id)
}

func (r *Registry) dependenciesLocked(id string) DependencyCheck {
	check := DependencyCheck{Satisfied: true}
	e, ok := r.entries[id]
	if !ok {
		return check
	}
	for _, dep := range e.current().def.Metadata().Dependencies {
		if _, registered := r.entries[dep]; !registered {
			check.Missing = append(check.Missing, dep)
		}
	}
	check.Satisfied = len(check.Missing) == 0
	return check
}

// CheckRuleConflicts returns the registered rules that conflict with id,
// whether the conflict is declared by id or by the other rule. Sorted, unique.
func (r *Registry) CheckRuleConflicts(id string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conflicts := make(map[string]bool)
	if e, ok := r.entries[id]; ok {
		for _, other := range e.current().def.Metadata().ConflictsWith {
			if _, registered := r.entries[other]; registered && other != id {
				conflicts[other] = true
			}
		}
	}
	for otherID, e := range r.entries {
		if otherID == id {
			continue
		}
		for _, target := range e.current().def.Metadata().ConflictsWith {
			if target == id {
				conflicts[otherID] = true
			}
		}
	}

	out := make([]string, 0, len(conflicts))
	for c := range conflicts {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// CheckEntityRules verifies, before evaluation starts, that every enabled
// rule of entityType has its dependencies registered and that delegating
// rules point at a registered cross-field or aggregate rule.
func (r *Registry) CheckEntityRules(entityType string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var errs []error
	for _, id := range r.order {
		e := r.entries[id]
		if e.kind != KindValidation {
			continue
		}
		rule := e.current().def.(ValidationRule)
		if rule.EntityType != entityType || rule.Disabled {
			continue
		}
		if check := r.dependenciesLocked(id); !check.Satisfied {
			errs = append(errs, fmt.Errorf("%w: rule %q needs %v", types.ErrMissingDependency, id, check.Missing))
		}
		delegate, ok := rule.Params.(DelegateParams)
		if !ok {
			continue
		}
		target, registered := r.entries[delegate.RuleID]
		if !registered || target.kind == KindValidation {
			errs = append(errs, fmt.Errorf("%w: rule %q delegates to %q", types.ErrRuleNotFound, id, delegate.RuleID))
			continue
		}
		if check := r.dependenciesLocked(delegate.RuleID); !check.Satisfied {
			errs = append(errs, fmt.Errorf("%w: rule %q needs %v", types.ErrMissingDependency, delegate.RuleID, check.Missing))
		}
	}
	return errors.Join(errs...)
}
