// Package ruleset loads declarative rule definitions from YAML documents and
// registers them with a rules.Registry.
//
// A document declares validation rules plus the cross-field and aggregate
// rules they delegate to. Cross-field predicates are written as structured
// conditions (assert); aggregate predicates pick one of a fixed set of
// built-in functions. No expression strings are evaluated.
package ruleset

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/solatis/importgate/internal/rules"
	"github.com/solatis/importgate/internal/types"
)

// File is one parsed rule set document.
type File struct {
	// EntityType is the default entity type for validation rules that omit one.
	EntityType      string           `yaml:"entity_type"`
	Description     string           `yaml:"description,omitempty"`
	ValidationRules []ValidationSpec `yaml:"validation_rules"`
	CrossFieldRules []CrossFieldSpec `yaml:"cross_field_rules"`
	AggregateRules  []AggregateSpec  `yaml:"aggregate_rules"`
	Source          string           `yaml:"-"`
}

// ValidationSpec is the YAML form of a rules.ValidationRule.
type ValidationSpec struct {
	ID           string           `yaml:"id"`
	EntityType   string           `yaml:"entity_type,omitempty"`
	Field        string           `yaml:"field,omitempty"`
	Type         types.ErrorType  `yaml:"type"`
	Severity     types.Severity   `yaml:"severity,omitempty"`
	Message      string           `yaml:"message,omitempty"`
	SuggestedFix string           `yaml:"suggested_fix,omitempty"`
	Enabled      *bool            `yaml:"enabled,omitempty"`
	Condition    *rules.Condition `yaml:"condition,omitempty"`
	Params       ParamsSpec       `yaml:"params,omitempty"`

	rules.RuleMeta `yaml:",inline"`
}

// ParamsSpec holds every kind-specific parameter; only those matching the
// rule type are read.
type ParamsSpec struct {
	AllowEmpty      bool     `yaml:"allow_empty,omitempty"`
	DataType        string   `yaml:"data_type,omitempty"`
	Coerce          bool     `yaml:"coerce,omitempty"`
	Pattern         string   `yaml:"pattern,omitempty"`
	Min             *float64 `yaml:"min,omitempty"`
	Max             *float64 `yaml:"max,omitempty"`
	ExclusiveMin    bool     `yaml:"exclusive_min,omitempty"`
	ExclusiveMax    bool     `yaml:"exclusive_max,omitempty"`
	Values          []any    `yaml:"values,omitempty"`
	CaseInsensitive bool     `yaml:"case_insensitive,omitempty"`
	AllowNull       bool     `yaml:"allow_null,omitempty"`
	RuleID          string   `yaml:"rule_id,omitempty"`
}

// CrossFieldSpec declares a cross-field rule whose predicate is a condition
// that must hold for the record.
type CrossFieldSpec struct {
	ID           string          `yaml:"id"`
	Fields       []string        `yaml:"fields"`
	Severity     types.Severity  `yaml:"severity,omitempty"`
	Message      string          `yaml:"message,omitempty"`
	SuggestedFix string          `yaml:"suggested_fix,omitempty"`
	Assert       rules.Condition `yaml:"assert"`

	rules.RuleMeta `yaml:",inline"`
}

// AggregateSpec declares an aggregate rule backed by a built-in function.
type AggregateSpec struct {
	ID       string         `yaml:"id"`
	Fields   []string       `yaml:"fields"`
	Function string         `yaml:"function"`
	Limit    float64        `yaml:"limit,omitempty"`
	Severity types.Severity `yaml:"severity,omitempty"`
	Message  string         `yaml:"message,omitempty"`

	rules.RuleMeta `yaml:",inline"`
}

// LoadFile reads and parses a rule set document from disk.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rule set %s: %w", path, err)
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("rule set %s: %w", path, err)
	}
	f.Source = path
	return f, nil
}

// Parse decodes a rule set document. Unknown keys are rejected so that
// misspelled parameters do not silently disable a check.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: %v", types.ErrInvalidRule, err)
	}
	return &f, nil
}
