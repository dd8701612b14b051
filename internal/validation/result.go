package validation

import "github.com/solatis/importgate/internal/types"

// Result is the outcome of validating one record.
type Result struct {
	Valid        bool                    `json:"valid"`
	Errors       []types.ValidationError `json:"errors"`
	Warnings     []types.ValidationError `json:"warnings"`
	Fields       map[string]*FieldDetail `json:"fields"`
	QualityScore int                     `json:"qualityScore"`
	RecordID     string                  `json:"recordId,omitempty"`
	Row          int                     `json:"row,omitempty"`
}

// FieldDetail records which rules examined a field and how it fared.
type FieldDetail struct {
	Field    string   `json:"field"`
	Value    any      `json:"value,omitempty"`
	Present  bool     `json:"present"`
	Valid    bool     `json:"valid"`
	Rules    []string `json:"rules"`
	Errors   int      `json:"errors"`
	Warnings int      `json:"warnings"`
}

func newResult(recordID string, row int) *Result {
	return &Result{
		Errors:   []types.ValidationError{},
		Warnings: []types.ValidationError{},
		Fields:   make(map[string]*FieldDetail),
		RecordID: recordID,
		Row:      row,
	}
}

func (r *Result) add(verr types.ValidationError) {
	if verr.Severity == types.SeverityWarning {
		r.Warnings = append(r.Warnings, verr)
		return
	}
	r.Errors = append(r.Errors, verr)
}

func (r *Result) noteField(field string, record types.Record, ruleID string, verr *types.ValidationError) {
	detail, ok := r.Fields[field]
	if !ok {
		value, present := record.Lookup(field)
		detail = &FieldDetail{Field: field, Value: value, Present: present, Valid: true}
		r.Fields[field] = detail
	}
	detail.Rules = append(detail.Rules, ruleID)
	if verr == nil {
		return
	}
	if verr.Severity == types.SeverityWarning {
		detail.Warnings++
		return
	}
	detail.Errors++
	detail.Valid = false
}

// finish derives Valid and QualityScore from the collected issues.
func (r *Result) finish() {
	r.Valid = len(r.Errors) == 0
	r.QualityScore = RecordQualityScore(len(r.Errors), len(r.Warnings))
}

// RecordQualityScore is the quick per-record score: 100 less 10 per error
// and 2 per warning, floored at 0.
func RecordQualityScore(errors, warnings int) int {
	return max(0, 100-10*errors-2*warnings)
}

// Issues returns errors followed by warnings.
func (r *Result) Issues() []types.ValidationError {
	out := make([]types.ValidationError, 0, len(r.Errors)+len(r.Warnings))
	out = append(out, r.Errors...)
	return append(out, r.Warnings...)
}

// HasDimensionError reports whether any ERROR-severity issue falls in dim.
func (r *Result) HasDimensionError(dim types.Dimension) bool {
	for _, e := range r.Errors {
		if d, ok := types.DimensionOf(e.Type); ok && d == dim {
			return true
		}
	}
	return false
}
