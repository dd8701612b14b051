package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/solatis/importgate/internal/pipeline"
	"github.com/solatis/importgate/internal/types"
)

/*
 * Import audit store.
 *
 * SaveImport workflow:
 *   1. Serialize the full result (without per-record results) to JSON
 *   2. Begin transaction
 *   3. Insert the summary row into imports
 *   4. Insert each collected error into import_errors, numbered by position
 *   5. Commit
 *
 * Only the errors retained under MaxErrorsToCollect are stored; error_count
 * holds the full count. Saving the same import id twice fails on the
 * primary key.
 */

// ErrImportNotFound is returned when an import id has no audit record.
var ErrImportNotFound = errors.New("import not found")

// ImportSummary is one row of the imports table.
type ImportSummary struct {
	ImportID       string          `db:"import_id" json:"importId"`
	EntityType     string          `db:"entity_type" json:"entityType"`
	Strategy       string          `db:"strategy" json:"strategy"`
	TotalRecords   int             `db:"total_records" json:"totalRecords"`
	ValidRecords   int             `db:"valid_records" json:"validRecords"`
	InvalidRecords int             `db:"invalid_records" json:"invalidRecords"`
	SkippedRecords int             `db:"skipped_records" json:"skippedRecords"`
	ErrorCount     int             `db:"error_count" json:"errorCount"`
	WarningCount   int             `db:"warning_count" json:"warningCount"`
	SuccessRate    float64         `db:"success_rate" json:"successRate"`
	QualityScore   sql.NullFloat64 `db:"quality_score" json:"-"`
	QualityBand    sql.NullString  `db:"quality_band" json:"-"`
	CanProceed     bool            `db:"can_proceed" json:"canProceed"`
	StoppedEarly   bool            `db:"stopped_early" json:"stoppedEarly"`
	StartedAtMs    int64           `db:"started_at" json:"-"`
	CompletedAtMs  int64           `db:"completed_at" json:"-"`
	DurationMs     int64           `db:"duration_ms" json:"durationMs"`
}

// StartedAt returns the import start time in UTC.
func (s ImportSummary) StartedAt() time.Time {
	return time.UnixMilli(s.StartedAtMs).UTC()
}

// CompletedAt returns the import completion time in UTC.
func (s ImportSummary) CompletedAt() time.Time {
	return time.UnixMilli(s.CompletedAtMs).UTC()
}

// StoredError is one row of the import_errors table.
type StoredError struct {
	ImportID  string `db:"import_id" json:"importId"`
	Seq       int    `db:"seq" json:"seq"`
	Row       int    `db:"row_num" json:"row"`
	RecordID  string `db:"record_id" json:"recordId"`
	Field     string `db:"field" json:"field"`
	ErrorType string `db:"error_type" json:"errorType"`
	Severity  string `db:"severity" json:"severity"`
	RuleID    string `db:"rule_id" json:"ruleId"`
	Message   string `db:"message" json:"message"`
}

// ErrorTypeCount is one row of count-import-errors-by-type.
type ErrorTypeCount struct {
	ErrorType string `db:"error_type"`
	Count     int    `db:"count"`
}

// Store persists import validation results.
type Store struct {
	db      *sqlx.DB
	queries *Queries
	logger  *slog.Logger
}

// NewStore wraps a migrated database.
func NewStore(db *sqlx.DB, logger *slog.Logger) (*Store, error) {
	queries, err := LoadQueries(db)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{db: db, queries: queries, logger: logger}, nil
}

// SaveImport records a finished import.
func (s *Store) SaveImport(ctx context.Context, res *pipeline.BulkImportValidationResult) error {
	payload, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to encode import %s: %w", res.ImportID, err)
	}

	var score sql.NullFloat64
	var band sql.NullString
	if res.QualityScore != nil {
		score = sql.NullFloat64{Float64: res.QualityScore.Overall, Valid: true}
		band = sql.NullString{String: string(res.QualityScore.Band), Valid: true}
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = s.queries.ExecTx(ctx, tx, "insert-import",
		string(res.ImportID), res.EntityType, string(res.Strategy),
		res.TotalRecords, res.ValidRecords, res.InvalidRecords, res.SkippedRecords,
		res.TotalErrorCount, res.WarningCount, res.SuccessRate,
		score, band, pipeline.CanProceedWithImport(res), res.StoppedEarly,
		res.StartedAt.UnixMilli(), res.CompletedAt.UnixMilli(), res.Duration.Milliseconds(),
		string(payload),
	)
	if err != nil {
		return fmt.Errorf("failed to insert import %s: %w", res.ImportID, err)
	}

	for i, e := range res.Errors {
		_, err := s.queries.ExecTx(ctx, tx, "insert-import-error",
			string(res.ImportID), i, e.Row, e.RecordID, errorField(e),
			string(e.Type), string(e.Severity), e.RuleID, e.Message,
		)
		if err != nil {
			return fmt.Errorf("failed to insert error %d of import %s: %w", i, res.ImportID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit import %s: %w", res.ImportID, err)
	}
	s.logger.Debug("import recorded", "import_id", string(res.ImportID), "errors", len(res.Errors))
	return nil
}

// errorField flattens the implicated fields into one column.
func errorField(e types.ValidationError) string {
	return strings.Join(e.ImplicatedFields(), ",")
}

// GetImport returns the summary of one import.
func (s *Store) GetImport(ctx context.Context, id types.ImportID) (*ImportSummary, error) {
	var summary ImportSummary
	if err := s.queries.Get(ctx, "get-import", &summary, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrImportNotFound, id)
		}
		return nil, fmt.Errorf("failed to get import %s: %w", id, err)
	}
	return &summary, nil
}

// GetImportResult decodes the stored result. RecordResults is not stored.
func (s *Store) GetImportResult(ctx context.Context, id types.ImportID) (*pipeline.BulkImportValidationResult, error) {
	var payload string
	if err := s.queries.Get(ctx, "get-import-result", &payload, string(id)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrImportNotFound, id)
		}
		return nil, fmt.Errorf("failed to get import %s: %w", id, err)
	}
	var res pipeline.BulkImportValidationResult
	if err := json.Unmarshal([]byte(payload), &res); err != nil {
		return nil, fmt.Errorf("failed to decode import %s: %w", id, err)
	}
	return &res, nil
}

// ListImports returns the most recent imports first. An empty entityType
// lists every entity type.
func (s *Store) ListImports(ctx context.Context, entityType string, limit int) ([]ImportSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	var summaries []ImportSummary
	var err error
	if entityType == "" {
		err = s.queries.Select(ctx, "list-imports", &summaries, limit)
	} else {
		err = s.queries.Select(ctx, "list-imports-by-entity", &summaries, entityType, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list imports: %w", err)
	}
	return summaries, nil
}

// ImportErrors returns the stored errors of an import in collection order.
func (s *Store) ImportErrors(ctx context.Context, id types.ImportID) ([]StoredError, error) {
	var errs []StoredError
	if err := s.queries.Select(ctx, "list-import-errors", &errs, string(id)); err != nil {
		return nil, fmt.Errorf("failed to list errors of import %s: %w", id, err)
	}
	return errs, nil
}

// CountErrorsByType groups the stored errors of an import by error type.
func (s *Store) CountErrorsByType(ctx context.Context, id types.ImportID) ([]ErrorTypeCount, error) {
	var counts []ErrorTypeCount
	if err := s.queries.Select(ctx, "count-import-errors-by-type", &counts, string(id)); err != nil {
		return nil, fmt.Errorf("failed to count errors of import %s: %w", id, err)
	}
	return counts, nil
}

// DeleteImport removes an import and its errors. Deleting an unknown id
// returns ErrImportNotFound.
func (s *Store) DeleteImport(ctx context.Context, id types.ImportID) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := s.queries.ExecTx(ctx, tx, "delete-import-errors", string(id)); err != nil {
		return fmt.Errorf("failed to delete errors of import %s: %w", id, err)
	}
	res, err := s.queries.ExecTx(ctx, tx, "delete-import", string(id))
	if err != nil {
		return fmt.Errorf("failed to delete import %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", ErrImportNotFound, id)
	}
	return tx.Commit()
}
