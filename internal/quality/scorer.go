package quality

import (
	"math"
	"sync"
	"time"

	"github.com/solatis/importgate/internal/types"
	"github.com/solatis/importgate/internal/validation"
)

/*
 * Record scoring.
 *
 * Dimension scores are relative to the schema's field count, not to the
 * number of issues: a record loses points in proportion to how many of its
 * fields an issue implicates.
 *
 * Per dimension:
 *   1. Collect the fields implicated by issues of that dimension
 *   2. Weigh each field 1 if any ERROR touches it, 0.5 if only WARNINGs do
 *   3. score = 100 * (1 - weightSum / totalFieldCount), clamped to [0, 100]
 *      and rounded to 2 decimals
 *
 * Issues that name no field count as one implicated field of their own.
 *
 * Overall = sum(score * weight) rounded to 2 decimals. Adding an issue can
 * only raise a field's weight, so overall never increases with more issues.
 */

// DimensionScore is the score of one dimension.
type DimensionScore struct {
	Score  float64 `json:"score"`
	Issues int     `json:"issues"`
	Weight float64 `json:"weight"`
}

// RecordQualityScore is the quality score of one record.
type RecordQualityScore struct {
	RecordID   string                             `json:"recordId,omitempty"`
	EntityType string                             `json:"entityType"`
	Overall    float64                            `json:"overall"`
	Band       Band                               `json:"band"`
	Dimensions map[types.Dimension]DimensionScore `json:"dimensions"`
	IssueCount int                                `json:"issueCount"`
	Confidence float64                            `json:"confidence"`
	Timestamp  time.Time                          `json:"timestamp"`
}

// Scorer computes quality scores and keeps per-record score history.
type Scorer struct {
	mu         sync.RWMutex
	config     Config
	history    map[string][]RecordQualityScore
	maxHistory int
	now        func() time.Time
}

// Option configures a Scorer.
type Option func(*Scorer)

// WithConfig replaces the default configuration.
func WithConfig(cfg Config) Option {
	return func(s *Scorer) { s.config = cfg }
}

// WithClock overrides the clock used for score timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Scorer) { s.now = now }
}

// WithMaxHistoryPerRecord bounds the history kept per record id; the oldest
// entries are evicted first. 0 keeps everything.
func WithMaxHistoryPerRecord(n int) Option {
	return func(s *Scorer) { s.maxHistory = n }
}

// NewScorer creates a scorer with DefaultConfig unless overridden.
func NewScorer(opts ...Option) *Scorer {
	s := &Scorer{
		config:  DefaultConfig(),
		history: make(map[string][]RecordQualityScore),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetConfig returns the current configuration.
func (s *Scorer) GetConfig() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.config
}

// UpdateConfig merges u into the configuration and returns the result.
// Weights are not renormalized.
func (s *Scorer) UpdateConfig(u ConfigUpdate) Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.config = u.apply(s.config)
	return s.config
}

// CalculateRecordScore scores one validation result. A non-empty recordID
// appends the score to that record's history.
func (s *Scorer) CalculateRecordScore(result *validation.Result, entityType string, totalFieldCount int, recordID string) RecordQualityScore {
	cfg := s.GetConfig()
	score := scoreRecord(cfg, result, entityType, totalFieldCount)
	score.RecordID = recordID
	score.Timestamp = s.now()

	if recordID != "" {
		s.appendHistory(recordID, score)
	}
	return score
}

func scoreRecord(cfg Config, result *validation.Result, entityType string, totalFieldCount int) RecordQualityScore {
	issues := result.Issues()

	weights := make(map[types.Dimension]map[string]float64, len(types.Dimensions))
	counts := make(map[types.Dimension]int, len(types.Dimensions))
	for _, dim := range types.Dimensions {
		weights[dim] = make(map[string]float64)
	}
	for _, issue := range issues {
		dim, ok := types.DimensionOf(issue.Type)
		if !ok {
			continue
		}
		counts[dim]++
		w := 0.5
		if issue.Severity != types.SeverityWarning {
			w = 1
		}
		fields := issue.ImplicatedFields()
		if len(fields) == 0 {
			fields = []string{"rule:" + issue.RuleID}
		}
		for _, f := range fields {
			weights[dim][f] = math.Max(weights[dim][f], w)
		}
	}

	denominator := float64(totalFieldCount)
	if denominator <= 0 {
		denominator = 1
	}

	score := RecordQualityScore{
		EntityType: entityType,
		Dimensions: make(map[types.Dimension]DimensionScore, len(types.Dimensions)),
		IssueCount: len(issues),
	}
	overall := 0.0
	for _, dim := range types.Dimensions {
		sum := 0.0
		for _, w := range weights[dim] {
			sum += w
		}
		ds := DimensionScore{
			Score:  round2(clamp(100*(1-sum/denominator), 0, 100)),
			Issues: counts[dim],
			Weight: cfg.Weights.Of(dim),
		}
		score.Dimensions[dim] = ds
		overall += ds.Score * ds.Weight
	}
	score.Overall = round2(overall)
	score.Band = cfg.Bands.Classify(score.Overall)
	score.Confidence = confidence(cfg, len(result.Errors), len(result.Warnings))
	return score
}

// confidence is 1 minus the severity penalties, floored at MinConfidence.
func confidence(cfg Config, errors, warnings int) float64 {
	if errors == 0 && warnings == 0 {
		return 1
	}
	penalty := float64(errors)*cfg.ErrorPenalty + float64(warnings)*cfg.WarningPenalty
	return math.Max(cfg.MinConfidence, round2(1-penalty))
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func (s *Scorer) appendHistory(recordID string, score RecordQualityScore) {
	s.mu.Lock()
	defer s.mu.Unlock()

	h := append(s.history[recordID], score)
	if s.maxHistory > 0 && len(h) > s.maxHistory {
		h = append([]RecordQualityScore(nil), h[len(h)-s.maxHistory:]...)
	}
	s.history[recordID] = h
}

// GetScoreHistory returns the recorded scores of recordID, oldest first.
func (s *Scorer) GetScoreHistory(recordID string) []RecordQualityScore {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]RecordQualityScore(nil), s.history[recordID]...)
}

// ClearHistory drops the history of one record.
func (s *Scorer) ClearHistory(recordID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.history, recordID)
}

// ClearAllHistory drops every record's history.
func (s *Scorer) ClearAllHistory() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = make(map[string][]RecordQualityScore)
}

// HistorySize returns the number of record ids with history.
func (s *Scorer) HistorySize() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.history)
}
