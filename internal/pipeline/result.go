package pipeline

import (
	"time"

	"github.com/solatis/importgate/internal/quality"
	"github.com/solatis/importgate/internal/types"
	"github.com/solatis/importgate/internal/validation"
)

// ImportRecord is one record of an import batch. Row 0 is assigned from the
// record's position (1-based).
type ImportRecord struct {
	Row  int          `json:"row,omitempty"`
	ID   string       `json:"id,omitempty"`
	Data types.Record `json:"data"`
}

// StageResult is the outcome of one stage.
type StageResult struct {
	Stage            Stage                   `json:"stage"`
	Passed           bool                    `json:"passed"`
	Timestamp        time.Time               `json:"timestamp"`
	Duration         time.Duration           `json:"duration"`
	RecordsProcessed int                     `json:"recordsProcessed"`
	RecordsValid     int                     `json:"recordsValid"`
	RecordsInvalid   int                     `json:"recordsInvalid"`
	Errors           []types.ValidationError `json:"errors"`
}

// BulkImportValidationResult is the outcome of ValidateBulkImport.
type BulkImportValidationResult struct {
	ImportID   types.ImportID          `json:"importId"`
	EntityType string                  `json:"entityType"`
	Strategy   Strategy                `json:"strategy"`
	Stages     map[Stage]*StageResult  `json:"stages"`
	Errors     []types.ValidationError `json:"errors"`
	// TotalErrorCount counts every error, including those dropped by
	// MaxErrorsToCollect.
	TotalErrorCount int  `json:"totalErrorCount"`
	ErrorsTruncated bool `json:"errorsTruncated"`
	WarningCount    int  `json:"warningCount"`

	TotalRecords   int     `json:"totalRecords"`
	ValidRecords   int     `json:"validRecords"`
	InvalidRecords int     `json:"invalidRecords"`
	SkippedRecords int     `json:"skippedRecords"`
	SuccessRate    float64 `json:"successRate"`
	StoppedEarly   bool    `json:"stoppedEarly"`

	StartedAt   time.Time     `json:"startedAt"`
	CompletedAt time.Time     `json:"completedAt"`
	Duration    time.Duration `json:"duration"`

	// RecordResults holds one entry per input record; nil for records that
	// were never validated.
	RecordResults []*validation.Result `json:"-"`

	QualityScore *quality.DatasetQualityScore `json:"qualityScore,omitempty"`
	ErrorReport  *ErrorReport                 `json:"errorReport,omitempty"`
}

// Stage returns the result of stage, or nil if it did not run.
func (r *BulkImportValidationResult) Stage(stage Stage) *StageResult {
	return r.Stages[stage]
}

// Progress is reported after each validated record.
type Progress struct {
	Percentage     float64 `json:"percentage"`
	Processed      int     `json:"processed"`
	Total          int     `json:"total"`
	CurrentErrors  int     `json:"currentErrors"`
	ValidRecords   int     `json:"validRecords"`
	InvalidRecords int     `json:"invalidRecords"`
}

// ProgressFunc receives progress updates. Calls are serialized and block
// validation while they run.
type ProgressFunc func(Progress)
