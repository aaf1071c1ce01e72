package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Veraticus/flavyr/internal/common"
	"github.com/Veraticus/flavyr/internal/model"
	"github.com/mattn/go-sqlite3"
)

// DefaultRunListLimit caps ListRuns when the caller passes a non-positive limit.
const DefaultRunListLimit = 20

// SaveRun records an analysis run.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run *model.RunRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRun(run); err != nil {
		return err
	}

	var result any
	if len(run.Result) > 0 {
		result = string(run.Result)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO analysis_runs (
			id, created_at, cuisine_type, dining_model, source, outcome, grade, critical, result_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC(), run.Segment.CuisineType, run.Segment.DiningModel,
		string(run.Source), run.Outcome, run.Grade, run.Critical, result,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("run %s: %w", run.ID, common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to save run: %w", err)
	}
	return nil
}

// GetRun loads a run with its stored result. It returns common.ErrNotFound
// when the id is unknown.
func (s *SQLiteStorage) GetRun(ctx context.Context, id string) (*model.RunRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, created_at, cuisine_type, dining_model, source, outcome, grade, critical, result_json
		FROM analysis_runs
		WHERE id = ?`, id)

	run, err := scanRun(row.Scan, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s: %w", id, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get run: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first, without their stored results.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = DefaultRunListLimit
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, created_at, cuisine_type, dining_model, source, outcome, grade, critical
		FROM analysis_runs
		ORDER BY created_at DESC, id
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []model.RunRecord
	for rows.Next() {
		run, err := scanRun(rows.Scan, false)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

func scanRun(scan func(dest ...any) error, withResult bool) (*model.RunRecord, error) {
	var (
		run       model.RunRecord
		source    string
		createdAt time.Time
		result    sql.NullString
	)
	dest := []any{
		&run.ID, &createdAt, &run.Segment.CuisineType, &run.Segment.DiningModel,
		&source, &run.Outcome, &run.Grade, &run.Critical,
	}
	if withResult {
		dest = append(dest, &result)
	}
	if err := scan(dest...); err != nil {
		return nil, err
	}
	run.CreatedAt = createdAt.UTC()
	run.Source = model.RunSource(source)
	if result.Valid {
		run.Result = []byte(result.String)
	}
	return &run, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint
}
