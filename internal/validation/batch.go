package validation

import (
	"context"
	"math"

	"golang.org/x/sync/errgroup"

	"github.com/solatis/importgate/internal/types"
)

/*
 * Batch validation.
 *
 * Records are validated against one Plan. With Concurrency > 1 an errgroup
 * fans records out, each goroutine writing only its own slot of the results
 * slice; the reduction into counts and dimension scores runs afterwards on a
 * single goroutine, so no counter is shared between workers.
 *
 * Row numbers are 1-based and offset by one for the header line of the
 * source file (first record is row 2) unless SkipHeaderOffset is set.
 */

// BatchOptions tunes ValidateBatch.
type BatchOptions struct {
	// SkipHeaderOffset numbers the first record row 1 instead of row 2.
	SkipHeaderOffset bool
	// Concurrency bounds parallel record validation. 0 or 1 is sequential.
	Concurrency int
}

// BatchResult aggregates the results of a batch.
type BatchResult struct {
	EntityType      string                  `json:"entityType"`
	TotalRecords    int                     `json:"totalRecords"`
	ValidRecords    int                     `json:"validRecords"`
	InvalidRecords  int                     `json:"invalidRecords"`
	TotalErrors     int                     `json:"totalErrors"`
	TotalWarnings   int                     `json:"totalWarnings"`
	DimensionScores map[types.Dimension]int `json:"dimensionScores"`
	QualityScore    float64                 `json:"qualityScore"`
	Results         []*Result               `json:"results"`
}

// RowNumber returns the 1-based row number of the record at index.
func (o BatchOptions) RowNumber(index int) int {
	if o.SkipHeaderOffset {
		return index + 1
	}
	return index + 2
}

// ValidateBatch validates every record and aggregates the results.
// On cancellation it returns ctx.Err() and no result.
func (e *Engine) ValidateBatch(ctx context.Context, records []types.Record, entityType string, opts BatchOptions) (*BatchResult, error) {
	plan, err := e.Prepare(entityType)
	if err != nil {
		return nil, err
	}

	results := make([]*Result, len(records))
	validateAt := func(i int) {
		results[i] = plan.Validate(ctx, records[i], RecordIDOf(records[i]), opts.RowNumber(i))
	}

	if opts.Concurrency > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(opts.Concurrency)
		for i := range records {
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				validateAt(i)
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i := range records {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			validateAt(i)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return Summarize(entityType, results), nil
}

// Summarize reduces per-record results into batch counts and scores.
// Dimension scores are 100 * (1 - recordsWithDimensionError / total),
// rounded; an empty batch scores 0 everywhere.
func Summarize(entityType string, results []*Result) *BatchResult {
	batch := &BatchResult{
		EntityType:      entityType,
		TotalRecords:    len(results),
		DimensionScores: make(map[types.Dimension]int, len(types.Dimensions)),
		Results:         results,
	}

	affected := make(map[types.Dimension]int, len(types.Dimensions))
	scoreSum := 0
	for _, r := range results {
		if r.Valid {
			batch.ValidRecords++
		} else {
			batch.InvalidRecords++
		}
		batch.TotalErrors += len(r.Errors)
		batch.TotalWarnings += len(r.Warnings)
		scoreSum += r.QualityScore
		for _, dim := range types.Dimensions {
			if r.HasDimensionError(dim) {
				affected[dim]++
			}
		}
	}

	for _, dim := range types.Dimensions {
		if batch.TotalRecords == 0 {
			batch.DimensionScores[dim] = 0
			continue
		}
		ratio := float64(affected[dim]) / float64(batch.TotalRecords)
		batch.DimensionScores[dim] = int(math.Round(100 * (1 - ratio)))
	}
	if batch.TotalRecords > 0 {
		batch.QualityScore = float64(scoreSum) / float64(batch.TotalRecords)
	}
	return batch
}
