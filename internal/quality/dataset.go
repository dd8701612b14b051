package quality

import (
	"github.com/solatis/importgate/internal/types"
	"github.com/solatis/importgate/internal/validation"
)

// Coverage buckets records by how much of their data survived validation.
type Coverage struct {
	Complete int `json:"complete"` // no issues
	Partial  int `json:"partial"`  // issues, none on required fields
	Empty    int `json:"empty"`    // at least one required-field issue
}

// DatasetQualityScore is the quality score of a batch of records.
type DatasetQualityScore struct {
	EntityType             string                             `json:"entityType"`
	Overall                float64                            `json:"overall"`
	Band                   Band                               `json:"band"`
	Dimensions             map[types.Dimension]DimensionScore `json:"dimensions"`
	Confidence             float64                            `json:"confidence"`
	TotalRecords           int                                `json:"totalRecords"`
	ScoredRecords          int                                `json:"scoredRecords"`
	ValidRecords           int                                `json:"validRecords"`
	InvalidRecords         int                                `json:"invalidRecords"`
	TotalIssues            int                                `json:"totalIssues"`
	AverageIssuesPerRecord float64                            `json:"averageIssuesPerRecord"`
	Coverage               Coverage                           `json:"coverage"`
}

// ValidRatio returns valid records as a percentage of scored records.
func (d DatasetQualityScore) ValidRatio() float64 {
	if d.ScoredRecords == 0 {
		return 0
	}
	return round2(100 * float64(d.ValidRecords) / float64(d.ScoredRecords))
}

// CalculateDatasetScore averages per-record scores over results.
// totalRecords is the size of the batch the results came from; records that
// were never validated lower nothing but are reported in TotalRecords.
// An empty result list scores 0 (CRITICAL).
func (s *Scorer) CalculateDatasetScore(results []*validation.Result, totalRecords int, entityType string, totalFieldCount int) DatasetQualityScore {
	cfg := s.GetConfig()

	ds := DatasetQualityScore{
		EntityType:    entityType,
		Dimensions:    make(map[types.Dimension]DimensionScore, len(types.Dimensions)),
		TotalRecords:  max(totalRecords, len(results)),
		ScoredRecords: len(results),
	}
	if len(results) == 0 {
		for _, dim := range types.Dimensions {
			ds.Dimensions[dim] = DimensionScore{Weight: cfg.Weights.Of(dim)}
		}
		ds.Band = cfg.Bands.Classify(0)
		return ds
	}

	dimSums := make(map[types.Dimension]float64, len(types.Dimensions))
	dimIssues := make(map[types.Dimension]int, len(types.Dimensions))
	var overallSum, confidenceSum float64

	for _, r := range results {
		rs := scoreRecord(cfg, r, entityType, totalFieldCount)
		overallSum += rs.Overall
		confidenceSum += rs.Confidence
		for dim, d := range rs.Dimensions {
			dimSums[dim] += d.Score
			dimIssues[dim] += d.Issues
		}

		if r.Valid {
			ds.ValidRecords++
		} else {
			ds.InvalidRecords++
		}
		ds.TotalIssues += rs.IssueCount
		ds.Coverage.add(r)
	}

	n := float64(len(results))
	for _, dim := range types.Dimensions {
		ds.Dimensions[dim] = DimensionScore{
			Score:  round2(dimSums[dim] / n),
			Issues: dimIssues[dim],
			Weight: cfg.Weights.Of(dim),
		}
	}
	ds.Overall = round2(overallSum / n)
	ds.Band = cfg.Bands.Classify(ds.Overall)
	ds.Confidence = round2(confidenceSum / n)
	ds.AverageIssuesPerRecord = round2(float64(ds.TotalIssues) / n)
	return ds
}

func (c *Coverage) add(r *validation.Result) {
	issues := r.Issues()
	if len(issues) == 0 {
		c.Complete++
		return
	}
	for _, issue := range issues {
		if issue.Type == types.ErrorTypeRequiredField {
			c.Empty++
			return
		}
	}
	c.Partial++
}
