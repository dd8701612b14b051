package pipeline

import (
	"sort"

	"github.com/solatis/importgate/internal/quality"
	"github.com/solatis/importgate/internal/types"
)

// maxReportSamples bounds the sample errors kept per error type.
const maxReportSamples = 5

// ErrorReport groups the collected errors for operators.
type ErrorReport struct {
	ByType  map[types.ErrorType]int `json:"byType"`
	ByField map[string]int          `json:"byField"`
	// TopFields lists fields by descending error count.
	TopFields []FieldErrorCount                         `json:"topFields"`
	Samples   map[types.ErrorType][]types.ValidationError `json:"samples"`
	Warnings  int                                       `json:"warnings"`
	Truncated bool                                      `json:"truncated"`

	QualityReport *quality.QualityReport `json:"qualityReport,omitempty"`
}

// FieldErrorCount is one entry of ErrorReport.TopFields.
type FieldErrorCount struct {
	Field string `json:"field"`
	Count int    `json:"count"`
}

// buildReport groups the collected errors. The grouping covers only the
// errors retained under MaxErrorsToCollect; Truncated reports the gap.
func (r *run) buildReport() *ErrorReport {
	snap := r.acc.snapshot()
	rep := &ErrorReport{
		ByType:    make(map[types.ErrorType]int),
		ByField:   make(map[string]int),
		Samples:   make(map[types.ErrorType][]types.ValidationError),
		Warnings:  snap.warnings,
		Truncated: snap.truncated,
	}
	for _, e := range snap.errors {
		rep.ByType[e.Type]++
		for _, f := range e.ImplicatedFields() {
			rep.ByField[f]++
		}
		if len(rep.Samples[e.Type]) < maxReportSamples {
			rep.Samples[e.Type] = append(rep.Samples[e.Type], e)
		}
	}

	rep.TopFields = make([]FieldErrorCount, 0, len(rep.ByField))
	for f, n := range rep.ByField {
		rep.TopFields = append(rep.TopFields, FieldErrorCount{Field: f, Count: n})
	}
	sort.Slice(rep.TopFields, func(i, j int) bool {
		a, b := rep.TopFields[i], rep.TopFields[j]
		if a.Count != b.Count {
			return a.Count > b.Count
		}
		return a.Field < b.Field
	})

	if r.result.QualityScore != nil && r.p.scorer != nil {
		qr := r.p.scorer.GenerateQualityReport(*r.result.QualityScore, &quality.Period{
			Start: r.result.StartedAt,
			End:   r.p.now(),
		})
		rep.QualityReport = &qr
	}
	return rep
}
