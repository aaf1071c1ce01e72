package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/Veraticus/flavyr/internal/model"
)

const dayLayout = "2006-01-02"

// SaveRestaurantRows appends uploaded daily rows in a single transaction.
func (s *SQLiteStorage) SaveRestaurantRows(ctx context.Context, rows []model.RestaurantDay) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRestaurantRows(rows); err != nil {
		return err
	}

	// #nosec G201 - column names come from kpiColumns
	query := fmt.Sprintf(`INSERT INTO restaurants (day, cuisine_type, dining_model, %s)
		VALUES (?, ?, ?%s)`, strings.Join(kpiColumns, ", "), strings.Repeat(", ?", len(kpiColumns)))

	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, query)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for i, row := range rows {
			args := []any{row.Date.Format(dayLayout), row.Segment.CuisineType, row.Segment.DiningModel}
			for _, key := range kpiColumns {
				args = append(args, row.Values[key])
			}
			if _, err := stmt.ExecContext(ctx, args...); err != nil {
				return fmt.Errorf("failed to insert restaurant row %d: %w", i, err)
			}
		}
		return nil
	})
}

// CountRestaurantRows returns how many uploaded rows exist for segment.
func (s *SQLiteStorage) CountRestaurantRows(ctx context.Context, segment model.Segment) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM restaurants WHERE cuisine_type = ? AND dining_model = ?`,
		segment.CuisineType, segment.DiningModel,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("failed to count restaurant rows: %w", err)
	}
	return n, nil
}
