package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/solatis/importgate/internal/quality"
	"github.com/solatis/importgate/internal/types"
	"github.com/solatis/importgate/internal/validation"
)

/*
 * Staged import validation.
 *
 * ValidateBulkImport workflow:
 *   1. Validate the config and resolve the entity's rule plan (configuration
 *      errors return before any stage runs)
 *   2. PRE_IMPORT: reject empty batches and empty records
 *   3. PER_RECORD: validate each record, accumulate errors, report progress
 *   4. Quality: score the validated records (optional)
 *   5. POST_IMPORT: flag duplicates on the dedup fields, recount
 *   6. COMMIT: gate on strategy and unvalidated records
 *   7. Report: group errors and attach the quality report (optional)
 *
 * Disabled stages leave no entry in Stages. Under STRICT with StopOnError,
 * the first failed stage or invalid record ends stage execution; records not
 * validated by then count as skipped.
 *
 * Cancelling ctx returns the partial result together with ctx.Err(); stage
 * results recorded up to that point stay valid.
 */

// Pipeline runs bulk import validation.
type Pipeline struct {
	engine  *validation.Engine
	scorer  *quality.Scorer
	logger  *slog.Logger
	metrics *Metrics
	now     func() time.Time
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the pipeline logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = logger }
}

// WithMetrics records import metrics.
func WithMetrics(m *Metrics) Option {
	return func(p *Pipeline) { p.metrics = m }
}

// WithClock overrides the clock used for timestamps and durations.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// New creates a pipeline. scorer may be nil when quality scoring is never requested.
func New(engine *validation.Engine, scorer *quality.Scorer, opts ...Option) *Pipeline {
	p := &Pipeline{
		engine: engine,
		scorer: scorer,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// run carries the state of one import through the stages.
type run struct {
	p        *Pipeline
	cfg      Config
	plan     *validation.Plan
	records  []ImportRecord
	result   *BulkImportValidationResult
	acc      *accumulator
	progress ProgressFunc
	stopped  bool
	dups     map[int]bool
	logger   *slog.Logger
}

// ValidateBulkImport validates records under cfg. An empty importID is
// replaced by a generated UUIDv7.
func (p *Pipeline) ValidateBulkImport(ctx context.Context, importID types.ImportID, records []ImportRecord, cfg Config, progress ProgressFunc) (*BulkImportValidationResult, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.CalculateQualityScore && p.scorer == nil {
		return nil, fmt.Errorf("%w: quality scoring requested without a scorer", types.ErrInvalidConfig)
	}
	plan, err := p.engine.Prepare(cfg.EntityType)
	if err != nil {
		return nil, err
	}
	if importID == "" {
		importID = types.NewImportID()
	}

	r := &run{
		p:        p,
		cfg:      cfg,
		plan:     plan,
		records:  numberRows(records),
		acc:      newAccumulator(cfg.MaxErrorsToCollect),
		progress: progress,
		dups:     make(map[int]bool),
		logger:   p.logger.With("import_id", string(importID), "entity_type", cfg.EntityType),
	}
	r.result = &BulkImportValidationResult{
		ImportID:      importID,
		EntityType:    cfg.EntityType,
		Strategy:      cfg.Strategy,
		Stages:        make(map[Stage]*StageResult),
		TotalRecords:  len(records),
		StartedAt:     p.now(),
		RecordResults: make([]*validation.Result, len(records)),
	}
	r.logger.Info("import validation started",
		"records", len(records), "strategy", cfg.Strategy, "rules", plan.RuleCount())

	err = r.execute(ctx)
	r.finish()
	p.metrics.observeImport(r.result)

	if err != nil {
		r.logger.Warn("import validation interrupted", "error", err,
			"validated", r.result.ValidRecords+r.result.InvalidRecords)
		return r.result, err
	}
	r.logger.Info("import validation completed",
		"valid", r.result.ValidRecords,
		"invalid", r.result.InvalidRecords,
		"skipped", r.result.SkippedRecords,
		"errors", r.result.TotalErrorCount,
		"can_proceed", CanProceedWithImport(r.result),
		"duration", r.result.Duration)
	return r.result, nil
}

func (r *run) execute(ctx context.Context) error {
	if r.cfg.ValidatePreImport {
		r.stage(StagePreImport, r.preImport)
	}
	if r.cfg.ValidatePerRecord && !r.stopped {
		var err error
		r.stage(StagePerRecord, func(sr *StageResult) { err = r.perRecord(ctx, sr) })
		if err != nil {
			return err
		}
	}
	if r.cfg.CalculateQualityScore && len(r.records) > 0 {
		r.scoreQuality()
	}
	if r.cfg.ValidatePostImport && !r.stopped {
		r.stage(StagePostImport, r.postImport)
	}
	if r.cfg.ValidateBeforeCommit && !r.stopped {
		r.stage(StageCommit, r.commit)
	}
	if r.cfg.GenerateReport && len(r.records) > 0 {
		r.result.ErrorReport = r.buildReport()
	}
	return nil
}

// stage times fn, records its result and applies the early-stop policy.
func (r *run) stage(stage Stage, fn func(*StageResult)) {
	start := r.p.now()
	sr := &StageResult{Stage: stage, Timestamp: start, Errors: []types.ValidationError{}}
	fn(sr)
	sr.Duration = r.p.now().Sub(start)
	r.result.Stages[stage] = sr
	r.p.metrics.observeStage(r.cfg.EntityType, sr)

	r.logger.Debug("stage finished", "stage", stage, "passed", sr.Passed,
		"processed", sr.RecordsProcessed, "errors", len(sr.Errors))
	if !sr.Passed && r.cfg.stopsEarly() {
		r.stopped = true
	}
}

// finish derives counts and timing from the accumulated state.
func (r *run) finish() {
	res := r.result
	snap := r.acc.snapshot()
	res.Errors = snap.errors
	res.TotalErrorCount = snap.total
	res.ErrorsTruncated = snap.truncated
	res.WarningCount = snap.warnings
	res.StoppedEarly = r.stopped
	r.recount()
	if res.TotalRecords > 0 {
		res.SuccessRate = 100 * float64(res.ValidRecords) / float64(res.TotalRecords)
	}
	res.CompletedAt = r.p.now()
	res.Duration = res.CompletedAt.Sub(res.StartedAt)
}

// recount derives valid/invalid/skipped from the per-record results.
// Duplicates found by POST_IMPORT count as invalid.
func (r *run) recount() {
	res := r.result
	res.ValidRecords, res.InvalidRecords = 0, 0
	validated := 0
	for i, rr := range res.RecordResults {
		if rr == nil {
			continue
		}
		validated++
		if rr.Valid && !r.dups[i] {
			res.ValidRecords++
		} else {
			res.InvalidRecords++
		}
	}
	res.SkippedRecords = res.TotalRecords - validated
}

// numberRows copies records, assigning 1-based rows where missing.
func numberRows(records []ImportRecord) []ImportRecord {
	out := make([]ImportRecord, len(records))
	for i, rec := range records {
		if rec.Row <= 0 {
			rec.Row = i + 1
		}
		if rec.ID == "" {
			rec.ID = validation.RecordIDOf(rec.Data)
		}
		out[i] = rec
	}
	return out
}
