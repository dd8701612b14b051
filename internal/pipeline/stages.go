// internal/pipeline/stages.go
package pipeline

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/solatis/importgate/internal/types"
	"github.com/solatis/importgate/internal/validation"
)

func stageError(kind types.ErrorType, row int, recordID, message string) types.ValidationError {
	return types.ValidationError{
		Type:     kind,
		Severity: types.SeverityError,
		Message:  message,
		Row:      row,
		RecordID: recordID,
	}
}

// preImport rejects an empty batch and records without any field.
func (r *run) preImport(sr *StageResult) {
	if len(r.records) == 0 {
		sr.Errors = append(sr.Errors, stageError(types.ErrorTypeEmptyBatch, 0, "", "import batch contains no records"))
	}
	for _, rec := range r.records {
		if len(rec.Data) == 0 {
			sr.Errors = append(sr.Errors, stageError(types.ErrorTypeEmptyRecord, rec.Row, rec.ID,
				fmt.Sprintf("record at row %d has no fields", rec.Row)))
		}
	}
	sr.RecordsProcessed = len(r.records)
	sr.Passed = len(sr.Errors) == 0
	r.acc.addStageErrors(sr.Errors)
}

// perRecord validates every record against the plan. Under STRICT with
// StopOnError the first invalid record stops the stage; with Concurrency > 1
// records already in flight still finish. stopCtx only gates starting new
// records; predicates see ctx, so an early stop never cancels them.
func (r *run) perRecord(ctx context.Context, sr *StageResult) error {
	stopCtx, stop := context.WithCancel(ctx)
	defer stop()

	total := len(r.records)
	validate := func(i int) {
		rec := r.records[i]
		res := r.plan.Validate(ctx, rec.Data, rec.ID, rec.Row)
		r.result.RecordResults[i] = res
		r.acc.addRecord(res, total, r.progress)
		if !res.Valid && r.cfg.stopsEarly() {
			stop()
		}
	}

	if r.cfg.Concurrency > 1 {
		g := new(errgroup.Group)
		g.SetLimit(r.cfg.Concurrency)
		for i := range r.records {
			if stopCtx.Err() != nil {
				break
			}
			g.Go(func() error {
				if stopCtx.Err() != nil {
					return nil
				}
				validate(i)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range r.records {
			if stopCtx.Err() != nil {
				break
			}
			validate(i)
		}
	}

	snap := r.acc.snapshot()
	sr.RecordsProcessed = snap.processed
	sr.RecordsValid = snap.valid
	sr.RecordsInvalid = snap.invalid
	for _, res := range r.result.RecordResults {
		if res != nil {
			sr.Errors = appendCapped(sr.Errors, res.Errors, r.cfg.MaxErrorsToCollect)
		}
	}
	sr.Passed = snap.invalid == 0 && snap.processed == total

	if err := ctx.Err(); err != nil {
		return err
	}
	return nil
}

func appendCapped(dst, src []types.ValidationError, limit int) []types.ValidationError {
	for _, e := range src {
		if limit > 0 && len(dst) >= limit {
			return dst
		}
		dst = append(dst, e)
	}
	return dst
}

// scoreQuality scores the records PER_RECORD validated.
func (r *run) scoreQuality() {
	results := r.validatedResults()
	if len(results) == 0 {
		return
	}
	fieldCount := r.cfg.TotalFieldCount
	if fieldCount == 0 {
		fieldCount = distinctFields(r.records)
	}
	score := r.p.scorer.CalculateDatasetScore(results, len(r.records), r.cfg.EntityType, fieldCount)
	r.result.QualityScore = &score
}

func (r *run) validatedResults() []*validation.Result {
	out := make([]*validation.Result, 0, len(r.result.RecordResults))
	for _, res := range r.result.RecordResults {
		if res != nil {
			out = append(out, res)
		}
	}
	return out
}

func distinctFields(records []ImportRecord) int {
	seen := make(map[string]struct{})
	for _, rec := range records {
		for f := range rec.Data {
			seen[f] = struct{}{}
		}
	}
	return len(seen)
}

// postImport flags duplicates within the batch and recounts.
func (r *run) postImport(sr *StageResult) {
	dupErrors := findDuplicates(r.records, r.cfg.DedupFields)
	for _, d := range dupErrors {
		r.dups[d.index] = true
		sr.Errors = append(sr.Errors, d.err)
	}
	r.acc.addStageErrors(sr.Errors)

	r.recount()
	sr.RecordsProcessed = len(r.records)
	sr.RecordsValid = r.result.ValidRecords
	sr.RecordsInvalid = r.result.InvalidRecords
	sr.Passed = len(dupErrors) == 0
}

// commit gates the import. STRICT blocks on any invalid record; every
// strategy blocks while records remain unvalidated.
func (r *run) commit(sr *StageResult) {
	r.recount()
	res := r.result
	sr.RecordsProcessed = res.TotalRecords
	sr.RecordsValid = res.ValidRecords
	sr.RecordsInvalid = res.InvalidRecords

	switch {
	case r.cfg.Strategy == StrategyStrict && res.InvalidRecords > 0:
		sr.Errors = append(sr.Errors, stageError(types.ErrorTypeCommitBlocked, 0, "",
			fmt.Sprintf("%d invalid records block a STRICT import", res.InvalidRecords)))
	case res.SkippedRecords > 0:
		sr.Errors = append(sr.Errors, stageError(types.ErrorTypeCommitBlocked, 0, "",
			fmt.Sprintf("%d records were not validated", res.SkippedRecords)))
	}
	sr.Passed = len(sr.Errors) == 0
	r.acc.addStageErrors(sr.Errors)
}
