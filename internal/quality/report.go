package quality

import (
	"fmt"
	"strings"
	"time"

	"github.com/solatis/importgate/internal/types"
)

// MetricStatus grades a metric against the configured bands.
type MetricStatus string

const (
	StatusOK       MetricStatus = "ok"
	StatusWarning  MetricStatus = "warning"
	StatusCritical MetricStatus = "critical"
)

// Priority of a recommendation.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// Metric names in report order.
const (
	MetricOverall    = "Overall Quality Score"
	MetricValidRatio = "Valid Records Ratio"
)

// Metric is one graded value in a report.
type Metric struct {
	Name   string       `json:"name"`
	Value  float64      `json:"value"`
	Unit   string       `json:"unit"`
	Status MetricStatus `json:"status"`
}

// Recommendation is an improvement suggestion.
type Recommendation struct {
	Priority  Priority        `json:"priority"`
	Dimension types.Dimension `json:"dimension,omitempty"`
	Message   string          `json:"message"`
}

// Trend is a placeholder for change over time; direction is "unknown" until
// reports are compared across periods.
type Trend struct {
	Metric    string  `json:"metric"`
	Direction string  `json:"direction"`
	Change    float64 `json:"change"`
}

// Period bounds the time range a report covers.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// QualityReport summarizes a dataset score for operators.
type QualityReport struct {
	Summary         DatasetQualityScore `json:"summary"`
	Metrics         []Metric            `json:"metrics"`
	Recommendations []Recommendation    `json:"recommendations"`
	Trends          []Trend             `json:"trends"`
	Period          *Period             `json:"period,omitempty"`
	GeneratedAt     time.Time           `json:"generatedAt"`
}

// GenerateQualityReport grades score against the configured bands.
// Recommendations are empty for EXCELLENT and led by a high-priority item
// for POOR and CRITICAL.
func (s *Scorer) GenerateQualityReport(score DatasetQualityScore, period *Period) QualityReport {
	cfg := s.GetConfig()

	report := QualityReport{
		Summary:         score,
		Recommendations: []Recommendation{},
		Period:          period,
		GeneratedAt:     s.now(),
	}

	report.Metrics = append(report.Metrics,
		Metric{Name: MetricOverall, Value: score.Overall, Unit: "score", Status: status(cfg, score.Overall)},
		Metric{Name: MetricValidRatio, Value: score.ValidRatio(), Unit: "percent", Status: status(cfg, score.ValidRatio())},
	)
	for _, dim := range types.Dimensions {
		v := score.Dimensions[dim].Score
		report.Metrics = append(report.Metrics, Metric{Name: dimensionTitle(dim), Value: v, Unit: "score", Status: status(cfg, v)})
	}

	report.Recommendations = recommendations(cfg, score)

	for _, m := range report.Metrics {
		report.Trends = append(report.Trends, Trend{Metric: m.Name, Direction: "unknown"})
	}
	return report
}

func status(cfg Config, v float64) MetricStatus {
	switch {
	case v >= cfg.Bands.Good:
		return StatusOK
	case v >= cfg.Bands.Acceptable:
		return StatusWarning
	default:
		return StatusCritical
	}
}

func dimensionTitle(dim types.Dimension) string {
	s := string(dim)
	return strings.ToUpper(s[:1]) + s[1:]
}

var dimensionAdvice = map[types.Dimension]string{
	types.DimensionCompleteness: "fill in missing required fields at the source",
	types.DimensionValidity:     "correct data types, formats and out-of-range values",
	types.DimensionConsistency:  "resolve records that break cross-field business rules",
	types.DimensionAccuracy:     "fix references to records that do not exist",
}

func recommendations(cfg Config, score DatasetQualityScore) []Recommendation {
	out := []Recommendation{}
	if score.Band == BandExcellent {
		return out
	}

	severe := score.Band == BandPoor || score.Band == BandCritical
	if severe {
		out = append(out, Recommendation{
			Priority: PriorityHigh,
			Message: fmt.Sprintf("Overall quality is %s (%.2f); hold the import until the %d invalid records are corrected",
				score.Band, score.Overall, score.InvalidRecords),
		})
	}

	for _, dim := range types.Dimensions {
		v := score.Dimensions[dim].Score
		var p Priority
		switch {
		case v >= cfg.Bands.Good:
			continue
		case v < cfg.Bands.Acceptable && severe:
			p = PriorityHigh
		case v < cfg.Bands.Acceptable:
			p = PriorityMedium
		default:
			p = PriorityLow
		}
		out = append(out, Recommendation{
			Priority:  p,
			Dimension: dim,
			Message:   fmt.Sprintf("%s is %.2f: %s", dimensionTitle(dim), v, dimensionAdvice[dim]),
		})
	}

	if !severe && len(out) == 0 && score.TotalIssues > 0 {
		out = append(out, Recommendation{
			Priority: PriorityLow,
			Message:  fmt.Sprintf("Review the %d reported issues to reach %s", score.TotalIssues, BandExcellent),
		})
	}
	return out
}
