// Package types provides domain models shared across importgate components.
//
// Records, error classifications and quality dimensions live here so that the
// rules, validation, quality and pipeline packages agree on one vocabulary
// without importing each other. Protobuf adapters in record.go are isolated
// for callers that receive records from ETL drivers as structpb payloads.
package types

// Record is one already-parsed business record: field name to scalar value.
// Values are strings, Go numeric kinds, bools, time.Time or nil.
// The core never mutates a Record handed to it.
type Record map[string]any

// Lookup returns the value stored under field and whether the key exists.
// A present key holding nil reports (nil, true).
func (r Record) Lookup(field string) (any, bool) {
	v, ok := r[field]
	return v, ok
}

// ErrorType classifies a validation error. The first seven values are rule
// kinds; the remainder are raised by pipeline stages.
type ErrorType string

const (
	ErrorTypeRequiredField ErrorType = "REQUIRED_FIELD"
	ErrorTypeDataType      ErrorType = "DATA_TYPE"
	ErrorTypeFormat        ErrorType = "FORMAT"
	ErrorTypeRange         ErrorType = "RANGE"
	ErrorTypeEnum          ErrorType = "ENUM"
	ErrorTypeBusinessRule  ErrorType = "BUSINESS_RULE"
	ErrorTypeForeignKey    ErrorType = "FOREIGN_KEY"

	ErrorTypeEmptyBatch      ErrorType = "EMPTY_BATCH"
	ErrorTypeEmptyRecord     ErrorType = "EMPTY_RECORD"
	ErrorTypeDuplicateRecord ErrorType = "DUPLICATE_RECORD"
	ErrorTypeCommitBlocked   ErrorType = "COMMIT_BLOCKED"
)

// IsRuleKind reports whether t may be used as the type of a ValidationRule.
func (t ErrorType) IsRuleKind() bool {
	switch t {
	case ErrorTypeRequiredField, ErrorTypeDataType, ErrorTypeFormat, ErrorTypeRange,
		ErrorTypeEnum, ErrorTypeBusinessRule, ErrorTypeForeignKey:
		return true
	default:
		return false
	}
}

// Severity of a validation error. Only ERROR makes a record invalid.
type Severity string

const (
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	return s == SeverityError || s == SeverityWarning
}

// Dimension is one axis of data quality.
type Dimension string

const (
	DimensionCompleteness Dimension = "completeness"
	DimensionValidity     Dimension = "validity"
	DimensionConsistency  Dimension = "consistency"
	DimensionAccuracy     Dimension = "accuracy"
)

// Dimensions lists all quality dimensions in reporting order.
var Dimensions = []Dimension{
	DimensionCompleteness,
	DimensionValidity,
	DimensionConsistency,
	DimensionAccuracy,
}

// DimensionOf maps an error type to the quality dimension it degrades.
// Pipeline error types belong to no dimension and return ("", false).
// Batch scoring and record scoring both use this partition.
func DimensionOf(t ErrorType) (Dimension, bool) {
	switch t {
	case ErrorTypeRequiredField:
		return DimensionCompleteness, true
	case ErrorTypeDataType, ErrorTypeFormat, ErrorTypeEnum, ErrorTypeRange:
		return DimensionValidity, true
	case ErrorTypeBusinessRule:
		return DimensionConsistency, true
	case ErrorTypeForeignKey:
		return DimensionAccuracy, true
	default:
		return "", false
	}
}

// Resource limits enforced at rule registration.
const (
	// MaxConditionDepth bounds recursion through compound conditions.
	MaxConditionDepth = 16

	// MaxInOperatorValues limits in/not_in list size to keep membership checks linear and small.
	MaxInOperatorValues = 256
)
