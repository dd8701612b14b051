// Package pipeline drives a batch of records through the staged import
// validation: PRE_IMPORT, PER_RECORD, POST_IMPORT and COMMIT.
//
// The pipeline never persists records. It returns a BulkImportValidationResult
// that the import driver uses to decide whether to commit the batch.
package pipeline

import (
	"fmt"

	"github.com/solatis/importgate/internal/types"
)

// Stage is one phase of the import pipeline.
type Stage string

const (
	StagePreImport  Stage = "PRE_IMPORT"
	StagePerRecord  Stage = "PER_RECORD"
	StagePostImport Stage = "POST_IMPORT"
	StageCommit     Stage = "COMMIT"
)

// Stages lists the stages in execution order.
var Stages = []Stage{StagePreImport, StagePerRecord, StagePostImport, StageCommit}

// Strategy decides how strictly invalid records block an import.
type Strategy string

const (
	// StrategyStrict proceeds only when every record is validated and valid.
	StrategyStrict Strategy = "STRICT"
	// StrategyLenient proceeds when at least one record is valid.
	StrategyLenient Strategy = "LENIENT"
	// StrategyProgressive always proceeds; invalid records are reported.
	StrategyProgressive Strategy = "PROGRESSIVE"
)

// ParseStrategy converts a case-sensitive strategy name.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case StrategyStrict, StrategyLenient, StrategyProgressive:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("%w: unknown strategy %q", types.ErrInvalidConfig, s)
	}
}

// Config selects stages and policies for one import.
type Config struct {
	EntityType            string   `mapstructure:"entity_type" json:"entityType"`
	Strategy              Strategy `mapstructure:"strategy" json:"strategy"`
	ValidatePreImport     bool     `mapstructure:"validate_pre_import" json:"validatePreImport"`
	ValidatePerRecord     bool     `mapstructure:"validate_per_record" json:"validatePerRecord"`
	ValidatePostImport    bool     `mapstructure:"validate_post_import" json:"validatePostImport"`
	ValidateBeforeCommit  bool     `mapstructure:"validate_before_commit" json:"validateBeforeCommit"`
	CalculateQualityScore bool     `mapstructure:"calculate_quality_score" json:"calculateQualityScore"`
	GenerateReport        bool     `mapstructure:"generate_report" json:"generateReport"`
	StopOnError           bool     `mapstructure:"stop_on_error" json:"stopOnError"`
	// MaxErrorsToCollect caps the aggregate error list; 0 is unbounded.
	MaxErrorsToCollect int `mapstructure:"max_errors_to_collect" json:"maxErrorsToCollect"`
	// DedupFields are compared by POST_IMPORT; empty compares whole records.
	DedupFields []string `mapstructure:"dedup_fields" json:"dedupFields,omitempty"`
	// TotalFieldCount is the schema size used for quality scoring; 0 infers
	// it from the distinct field names in the batch.
	TotalFieldCount int `mapstructure:"total_field_count" json:"totalFieldCount"`
	// Concurrency bounds parallel PER_RECORD validation; 0 or 1 is sequential.
	Concurrency int `mapstructure:"concurrency" json:"concurrency"`
}

// DefaultConfig enables every stage under STRICT without early stop.
func DefaultConfig(entityType string) Config {
	return Config{
		EntityType:            entityType,
		Strategy:              StrategyStrict,
		ValidatePreImport:     true,
		ValidatePerRecord:     true,
		ValidatePostImport:    true,
		ValidateBeforeCommit:  true,
		CalculateQualityScore: true,
		GenerateReport:        true,
	}
}

// Validate checks the configuration before any stage runs.
func (c Config) Validate() error {
	if c.EntityType == "" {
		return fmt.Errorf("%w: entity type is required", types.ErrInvalidConfig)
	}
	if _, err := ParseStrategy(string(c.Strategy)); err != nil {
		return err
	}
	if c.MaxErrorsToCollect < 0 {
		return fmt.Errorf("%w: max errors to collect must not be negative", types.ErrInvalidConfig)
	}
	if c.TotalFieldCount < 0 {
		return fmt.Errorf("%w: total field count must not be negative", types.ErrInvalidConfig)
	}
	if c.Concurrency < 0 {
		return fmt.Errorf("%w: concurrency must not be negative", types.ErrInvalidConfig)
	}
	return nil
}

// stopsEarly reports whether the first failure ends the import.
func (c Config) stopsEarly() bool {
	return c.Strategy == StrategyStrict && c.StopOnError
}
