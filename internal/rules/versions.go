// internal/rules/versions.go
package rules

import (
	"fmt"
	"sort"
	"time"

	"github.com/solatis/importgate/internal/types"
)

// VersionInfo describes one entry in a rule's version history.
type VersionInfo struct {
	Version    int
	ChangeNote string
	CreatedAt  time.Time
	Active     bool
}

// RuleMetadata summarizes a registered definition and its history.
type RuleMetadata struct {
	ID            string
	Kind          DefinitionKind
	EntityType    string // validation rules only
	Type          types.ErrorType
	Name          string
	Description   string
	Enabled       bool
	Version       int // active version
	Dependencies  []string
	ConflictsWith []string
	History       []VersionInfo // ascending by version
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// UpdateRuleWithVersion stores def as a new version of id and makes it the
// active one. Returns the new version number. The kind of def must match the
// kind already registered under id.
func (r *Registry) UpdateRuleWithVersion(id string, def Definition, changeNote string) (int, error) {
	var compiled *CompiledRule
	switch d := def.(type) {
	case ValidationRule:
		d.ID = id
		c, err := compileRule(d)
		if err != nil {
			return 0, err
		}
		compiled = c
	case CrossFieldRule:
		d.ID = id
		checked, err := checkCrossFieldRule(d)
		if err != nil {
			return 0, err
		}
		def = checked
	case AggregateRule:
		d.ID = id
		checked, err := checkAggregateRule(d)
		if err != nil {
			return 0, err
		}
		def = checked
	default:
		return 0, fmt.Errorf("%w: unsupported definition %T", types.ErrInvalidRule, def)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.appendVersionLocked(id, def, compiled, changeNote)
}

// SetRuleEnabled stores a new version of a validation rule with its enabled
// flag flipped. Returns the new version number.
func (r *Registry) SetRuleEnabled(id string, enabled bool) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return 0, fmt.Errorf("%w: %q", types.ErrRuleNotFound, id)
	}
	if e.kind != KindValidation {
		return 0, fmt.Errorf("%w: %q is a %s rule", types.ErrRuleKindMismatch, id, e.kind)
	}

	rule := e.current().def.(ValidationRule)
	rule.Disabled = !enabled
	compiled, err := compileRule(rule)
	if err != nil {
		return 0, err
	}

	note := "disabled"
	if enabled {
		note = "enabled"
	}
	return r.appendVersionLocked(id, rule, compiled, note)
}

// appendVersionLocked appends the next version of id. Caller holds mu.
func (r *Registry) appendVersionLocked(id string, def Definition, compiled *CompiledRule, note string) (int, error) {
	e, ok := r.entries[id]
	if !ok {
		return 0, fmt.Errorf("%w: %q", types.ErrRuleNotFound, id)
	}
	if e.kind != def.DefinitionKind() {
		return 0, fmt.Errorf("%w: %q is a %s rule, got %s", types.ErrRuleKindMismatch, id, e.kind, def.DefinitionKind())
	}

	number := e.versions[len(e.versions)-1].number + 1
	def = def.withIdentity(id, number)
	if compiled != nil {
		compiled.Rule = def.(ValidationRule)
	}

	now := r.now()
	e.versions = append(e.versions, &version{
		number:    number,
		def:       def,
		compiled:  compiled,
		note:      note,
		createdAt: now,
	})
	e.active = len(e.versions) - 1
	e.updatedAt = now
	return number, nil
}

// ActivateRuleVersion makes an existing version of id the active one.
// Returns false if the id or version is unknown.
func (r *Registry) ActivateRuleVersion(id string, number int) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return false
	}
	for i, v := range e.versions {
		if v.number == number {
			e.active = i
			e.updatedAt = r.now()
			return true
		}
	}
	return false
}

// GetRuleMetadata returns the metadata of id's active version.
func (r *Registry) GetRuleMetadata(id string) (RuleMetadata, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[id]
	if !ok {
		return RuleMetadata{}, false
	}
	return metadataOf(id, e), true
}

// GetAllRuleMetadata returns metadata for every registered definition,
// disabled ones included, sorted by id.
func (r *Registry) GetAllRuleMetadata() []RuleMetadata {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]RuleMetadata, 0, len(r.entries))
	for id, e := range r.entries {
		out = append(out, metadataOf(id, e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func metadataOf(id string, e *entry) RuleMetadata {
	cur := e.current()
	meta := cur.def.Metadata()
	md := RuleMetadata{
		ID:            id,
		Kind:          e.kind,
		Name:          meta.Name,
		Description:   meta.Description,
		Enabled:       true,
		Version:       cur.number,
		Dependencies:  append([]string(nil), meta.Dependencies...),
		ConflictsWith: append([]string(nil), meta.ConflictsWith...),
		CreatedAt:     e.createdAt,
		UpdatedAt:     e.updatedAt,
	}
	if rule, ok := cur.def.(ValidationRule); ok {
		md.EntityType = rule.EntityType
		md.Type = rule.Type
		md.Enabled = !rule.Disabled
	}
	if md.Name == "" {
		md.Name = id
	}

	md.History = make([]VersionInfo, len(e.versions))
	for i, v := range e.versions {
		md.History[i] = VersionInfo{
			Version:    v.number,
			ChangeNote: v.note,
			CreatedAt:  v.createdAt,
			Active:     i == e.active,
		}
	}
	return md
}
