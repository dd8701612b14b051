package pipeline

import (
	"sync"

	"github.com/solatis/importgate/internal/types"
	"github.com/solatis/importgate/internal/validation"
)

/*
 * Import-wide error accumulator.
 *
 * PER_RECORD may run records in parallel; every worker reports through this
 * accumulator, which is the only shared mutable state of an import. Counts
 * stay exact after the error list hits its cap.
 *
 * The progress callback is invoked while the lock is held, so callers see a
 * consistent snapshot and never run concurrently with themselves.
 */

type accumulator struct {
	mu        sync.Mutex
	limit     int // 0: unbounded
	errors    []types.ValidationError
	total     int
	truncated bool
	warnings  int

	processed int
	valid     int
	invalid   int
}

func newAccumulator(limit int) *accumulator {
	return &accumulator{limit: limit, errors: []types.ValidationError{}}
}

// addLocked appends ERROR-severity issues up to the cap and counts warnings.
func (a *accumulator) addLocked(errs []types.ValidationError) {
	for _, e := range errs {
		if e.Severity == types.SeverityWarning {
			a.warnings++
			continue
		}
		a.total++
		if a.limit > 0 && len(a.errors) >= a.limit {
			a.truncated = true
			continue
		}
		a.errors = append(a.errors, e)
	}
}

// addStageErrors records errors raised by a stage rather than a rule.
func (a *accumulator) addStageErrors(errs []types.ValidationError) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.addLocked(errs)
}

// addRecord counts a validated record and reports progress.
func (a *accumulator) addRecord(res *validation.Result, total int, progress ProgressFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.processed++
	if res.Valid {
		a.valid++
	} else {
		a.invalid++
	}
	a.addLocked(res.Errors)
	a.warnings += len(res.Warnings)

	if progress == nil {
		return
	}
	pct := 100.0
	if total > 0 {
		pct = 100 * float64(a.processed) / float64(total)
	}
	progress(Progress{
		Percentage:     pct,
		Processed:      a.processed,
		Total:          total,
		CurrentErrors:  a.total,
		ValidRecords:   a.valid,
		InvalidRecords: a.invalid,
	})
}

type snapshot struct {
	errors    []types.ValidationError
	total     int
	truncated bool
	warnings  int
	processed int
	valid     int
	invalid   int
}

func (a *accumulator) snapshot() snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return snapshot{
		errors:    append([]types.ValidationError{}, a.errors...),
		total:     a.total,
		truncated: a.truncated,
		warnings:  a.warnings,
		processed: a.processed,
		valid:     a.valid,
		invalid:   a.invalid,
	}
}
