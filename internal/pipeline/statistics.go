package pipeline

import (
	"time"
)

// CanProceedWithImport applies the strategy to a finished result.
func CanProceedWithImport(result *BulkImportValidationResult) bool {
	if result == nil {
		return false
	}
	switch result.Strategy {
	case StrategyStrict:
		return result.InvalidRecords == 0 && result.SkippedRecords == 0
	case StrategyLenient:
		return result.ValidRecords > 0
	case StrategyProgressive:
		return true
	default:
		return false
	}
}

// ImportStatistics summarizes a result for operators.
type ImportStatistics struct {
	ImportID       string  `json:"importId"`
	EntityType     string  `json:"entityType"`
	Strategy       string  `json:"strategy"`
	TotalRecords   int     `json:"totalRecords"`
	ValidRecords   int     `json:"validRecords"`
	InvalidRecords int     `json:"invalidRecords"`
	SkippedRecords int     `json:"skippedRecords"`
	SuccessRate    float64 `json:"successRate"`
	// AverageErrorsPerInvalidRecord is 0 when no record is invalid.
	AverageErrorsPerInvalidRecord float64 `json:"averageErrorsPerInvalidRecord"`
	TotalErrors                   int     `json:"totalErrors"`
	TotalWarnings                 int     `json:"totalWarnings"`
	Duration                      string  `json:"duration"`
	CanProceed                    bool    `json:"canProceed"`
	StoppedEarly                  bool    `json:"stoppedEarly"`
}

// GetImportStatistics derives statistics without re-running validation.
func GetImportStatistics(result *BulkImportValidationResult) ImportStatistics {
	stats := ImportStatistics{
		ImportID:       string(result.ImportID),
		EntityType:     result.EntityType,
		Strategy:       string(result.Strategy),
		TotalRecords:   result.TotalRecords,
		ValidRecords:   result.ValidRecords,
		InvalidRecords: result.InvalidRecords,
		SkippedRecords: result.SkippedRecords,
		SuccessRate:    round2(result.SuccessRate),
		TotalErrors:    result.TotalErrorCount,
		TotalWarnings:  result.WarningCount,
		Duration:       formatDuration(result.Duration),
		CanProceed:     CanProceedWithImport(result),
		StoppedEarly:   result.StoppedEarly,
	}
	if result.InvalidRecords > 0 {
		stats.AverageErrorsPerInvalidRecord = round2(float64(recordErrorCount(result)) / float64(result.InvalidRecords))
	}
	return stats
}

// recordErrorCount counts ERROR-severity issues raised against records,
// including duplicates, but not batch-level stage errors.
func recordErrorCount(result *BulkImportValidationResult) int {
	n := 0
	for _, rr := range result.RecordResults {
		if rr != nil {
			n += len(rr.Errors)
		}
	}
	if post := result.Stage(StagePostImport); post != nil {
		n += len(post.Errors)
	}
	return n
}

// formatDuration renders d at millisecond precision, e.g. "1.25s" or "340ms".
func formatDuration(d time.Duration) string {
	if d < time.Millisecond {
		return d.String()
	}
	return d.Round(time.Millisecond).String()
}

func round2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
