package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Benchmarks, deal bank and restaurant uploads",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS benchmarks (
					cuisine_type TEXT NOT NULL,
					dining_model TEXT NOT NULL,
					avg_ticket REAL NOT NULL,
					covers REAL NOT NULL,
					labor_cost_pct REAL NOT NULL,
					food_cost_pct REAL NOT NULL,
					table_turnover REAL NOT NULL,
					sales_per_sqft REAL NOT NULL,
					expected_customer_repeat_rate REAL NOT NULL,
					PRIMARY KEY (cuisine_type, dining_model)
				)`,

				`CREATE TABLE IF NOT EXISTS deal_bank (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					business_problem TEXT NOT NULL,
					deal_types TEXT NOT NULL,
					rationale TEXT NOT NULL
				)`,
				`CREATE INDEX idx_deal_bank_problem ON deal_bank(business_problem)`,

				`CREATE TABLE IF NOT EXISTS restaurants (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					upload_date DATETIME DEFAULT CURRENT_TIMESTAMP,
					day DATE NOT NULL,
					cuisine_type TEXT NOT NULL,
					dining_model TEXT NOT NULL,
					avg_ticket REAL NOT NULL,
					covers REAL NOT NULL,
					labor_cost_pct REAL NOT NULL,
					food_cost_pct REAL NOT NULL,
					table_turnover REAL NOT NULL,
					sales_per_sqft REAL NOT NULL,
					expected_customer_repeat_rate REAL NOT NULL
				)`,
				`CREATE INDEX idx_restaurants_segment ON restaurants(cuisine_type, dining_model)`,
			}
			return execAll(tx, queries)
		},
	},
	{
		Version:     2,
		Description: "Transaction benchmarks and deal mapping",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS transaction_benchmarks (
					cuisine_type TEXT NOT NULL,
					dining_model TEXT NOT NULL,
					benchmark_loyalty_rate REAL NOT NULL,
					benchmark_aov_weekday REAL NOT NULL,
					benchmark_aov_weekend REAL NOT NULL,
					benchmark_aov_variation_pct REAL NOT NULL,
					expected_slowest_day TEXT NOT NULL,
					benchmark_slow_day_drop_pct REAL NOT NULL,
					benchmark_top_item_share_pct REAL NOT NULL,
					benchmark_bottom_item_threshold_pct REAL NOT NULL,
					PRIMARY KEY (cuisine_type, dining_model)
				)`,

				`CREATE TABLE IF NOT EXISTS transaction_deal_mapping (
					transaction_metric TEXT PRIMARY KEY,
					business_problem TEXT NOT NULL,
					priority INTEGER NOT NULL DEFAULT 0
				)`,
			}
			return execAll(tx, queries)
		},
	},
	{
		Version:     3,
		Description: "Analysis run history",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS analysis_runs (
					id TEXT PRIMARY KEY,
					created_at DATETIME NOT NULL,
					cuisine_type TEXT NOT NULL,
					dining_model TEXT NOT NULL,
					source TEXT NOT NULL CHECK (source IN ('aggregate', 'transactions')),
					outcome TEXT NOT NULL,
					grade TEXT NOT NULL DEFAULT '',
					critical INTEGER NOT NULL DEFAULT 0,
					result_json TEXT
				)`,
				`CREATE INDEX idx_analysis_runs_created ON analysis_runs(created_at)`,
			}
			return execAll(tx, queries)
		},
	},
}

func execAll(tx *sql.Tx, queries []string) error {
	for _, query := range queries {
		if _, err := tx.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query: %w", err)
		}
	}
	return nil
}

// Migrate runs all database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}

// SchemaVersion reports the database's user_version pragma.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}
