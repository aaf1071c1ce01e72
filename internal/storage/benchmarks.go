package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Veraticus/flavyr/internal/model"
)

// kpiColumns are the KPI keys stored as columns of benchmarks and
// restaurants. Column names match the KPI keys.
var kpiColumns = []string{
	model.KPIAvgTicket,
	model.KPICovers,
	model.KPILaborCostPct,
	model.KPIFoodCostPct,
	model.KPITableTurnover,
	model.KPISalesPerSqft,
	model.KPICustomerRepeat,
}

// GetBenchmark returns the benchmark for segment, or nil when none is stored.
func (s *SQLiteStorage) GetBenchmark(ctx context.Context, segment model.Segment) (*model.MetricRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateSegment(segment); err != nil {
		return nil, err
	}

	if record := s.getCachedBenchmark(segment); record != nil {
		return copyRecord(record), nil
	}

	record, err := s.getBenchmark(ctx, s.db, segment)
	if err != nil || record == nil {
		return record, err
	}

	s.cacheBenchmark(record)
	return copyRecord(record), nil
}

func (s *SQLiteStorage) getBenchmark(ctx context.Context, q queryable, segment model.Segment) (*model.MetricRecord, error) {
	values := make([]float64, len(kpiColumns))
	dest := make([]any, len(kpiColumns))
	for i := range values {
		dest[i] = &values[i]
	}

	// #nosec G201 - column names come from kpiColumns
	query := fmt.Sprintf(`SELECT %s FROM benchmarks WHERE cuisine_type = ? AND dining_model = ?`,
		strings.Join(kpiColumns, ", "))
	err := q.QueryRowContext(ctx, query, segment.CuisineType, segment.DiningModel).Scan(dest...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query benchmark for %s: %w", segment, err)
	}

	record := model.NewMetricRecord(model.RecordBenchmark, segment)
	for i, key := range kpiColumns {
		record.Set(key, values[i])
	}
	return &record, nil
}

// SaveBenchmark inserts or replaces the benchmark row for the record's segment.
func (s *SQLiteStorage) SaveBenchmark(ctx context.Context, record model.MetricRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateBenchmark(record); err != nil {
		return err
	}

	if err := s.withTx(ctx, func(tx *sql.Tx) error {
		return saveBenchmarkTx(ctx, tx, record)
	}); err != nil {
		return err
	}

	s.invalidateBenchmark(record.Segment)
	return nil
}

func saveBenchmarkTx(ctx context.Context, q queryable, record model.MetricRecord) error {
	args := []any{record.Segment.CuisineType, record.Segment.DiningModel}
	for _, key := range kpiColumns {
		args = append(args, record.Values[key])
	}

	// #nosec G201 - column names come from kpiColumns
	query := fmt.Sprintf(`INSERT OR REPLACE INTO benchmarks (cuisine_type, dining_model, %s)
		VALUES (?, ?%s)`, strings.Join(kpiColumns, ", "), strings.Repeat(", ?", len(kpiColumns)))
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to save benchmark for %s: %w", record.Segment, err)
	}
	return nil
}

// GetTransactionBenchmark returns the transaction-level benchmark for
// segment, or nil when none is stored.
func (s *SQLiteStorage) GetTransactionBenchmark(ctx context.Context, segment model.Segment) (*model.TransactionBenchmark, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateSegment(segment); err != nil {
		return nil, err
	}

	bench := model.TransactionBenchmark{Segment: segment}
	var slowest string
	err := s.db.QueryRowContext(ctx, `
		SELECT benchmark_loyalty_rate, benchmark_aov_weekday, benchmark_aov_weekend,
			benchmark_aov_variation_pct, expected_slowest_day, benchmark_slow_day_drop_pct,
			benchmark_top_item_share_pct, benchmark_bottom_item_threshold_pct
		FROM transaction_benchmarks
		WHERE cuisine_type = ? AND dining_model = ?`,
		segment.CuisineType, segment.DiningModel,
	).Scan(
		&bench.LoyaltyRatePct, &bench.AOVWeekday, &bench.AOVWeekend,
		&bench.AOVVariationPct, &slowest, &bench.SlowDayDropPct,
		&bench.TopItemSharePct, &bench.BottomItemThresholdPct,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query transaction benchmark for %s: %w", segment, err)
	}

	day, err := model.ParseWeekday(slowest)
	if err != nil {
		return nil, fmt.Errorf("transaction benchmark for %s: %w", segment, err)
	}
	bench.ExpectedSlowestDay = day
	return &bench, nil
}

// SaveTransactionBenchmark inserts or replaces a transaction-level benchmark.
func (s *SQLiteStorage) SaveTransactionBenchmark(ctx context.Context, bench model.TransactionBenchmark) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateTransactionBenchmark(bench); err != nil {
		return err
	}
	return saveTransactionBenchmarkTx(ctx, s.db, bench)
}

func saveTransactionBenchmarkTx(ctx context.Context, q queryable, bench model.TransactionBenchmark) error {
	_, err := q.ExecContext(ctx, `
		INSERT OR REPLACE INTO transaction_benchmarks (
			cuisine_type, dining_model, benchmark_loyalty_rate, benchmark_aov_weekday,
			benchmark_aov_weekend, benchmark_aov_variation_pct, expected_slowest_day,
			benchmark_slow_day_drop_pct, benchmark_top_item_share_pct,
			benchmark_bottom_item_threshold_pct
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		bench.Segment.CuisineType, bench.Segment.DiningModel,
		bench.LoyaltyRatePct, bench.AOVWeekday, bench.AOVWeekend, bench.AOVVariationPct,
		bench.ExpectedSlowestDay.String(), bench.SlowDayDropPct,
		bench.TopItemSharePct, bench.BottomItemThresholdPct,
	)
	if err != nil {
		return fmt.Errorf("failed to save transaction benchmark for %s: %w", bench.Segment, err)
	}
	return nil
}

// ListSegments returns every segment that has an aggregate or a
// transaction benchmark, ordered by cuisine then dining model.
func (s *SQLiteStorage) ListSegments(ctx context.Context) ([]model.Segment, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT cuisine_type, dining_model FROM benchmarks
		UNION
		SELECT cuisine_type, dining_model FROM transaction_benchmarks
		ORDER BY cuisine_type, dining_model`)
	if err != nil {
		return nil, fmt.Errorf("failed to query segments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var segments []model.Segment
	for rows.Next() {
		var seg model.Segment
		if err := rows.Scan(&seg.CuisineType, &seg.DiningModel); err != nil {
			return nil, fmt.Errorf("failed to scan segment: %w", err)
		}
		segments = append(segments, seg)
	}
	return segments, rows.Err()
}

// WarmBenchmarkCache preloads every aggregate benchmark into memory.
func (s *SQLiteStorage) WarmBenchmarkCache(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT cuisine_type, dining_model FROM benchmarks`)
	if err != nil {
		return fmt.Errorf("failed to query benchmarks: %w", err)
	}
	var segments []model.Segment
	for rows.Next() {
		var seg model.Segment
		if err := rows.Scan(&seg.CuisineType, &seg.DiningModel); err != nil {
			_ = rows.Close()
			return fmt.Errorf("failed to scan benchmark segment: %w", err)
		}
		segments = append(segments, seg)
	}
	if err := rows.Close(); err != nil {
		return err
	}

	for _, seg := range segments {
		record, err := s.getBenchmark(ctx, s.db, seg)
		if err != nil {
			return err
		}
		if record != nil {
			s.cacheBenchmark(record)
		}
	}
	return nil
}

// getCachedBenchmark retrieves a benchmark from the cache.
func (s *SQLiteStorage) getCachedBenchmark(segment model.Segment) *model.MetricRecord {
	s.cacheMutex.RLock()

	if time.Now().After(s.cacheExpiry) {
		s.cacheMutex.RUnlock()
		s.cacheMutex.Lock()
		defer s.cacheMutex.Unlock()

		// Re-check under the write lock.
		if time.Now().After(s.cacheExpiry) {
			s.benchmarkCache = make(map[model.Segment]*model.MetricRecord)
		}
		return nil
	}

	record := s.benchmarkCache[segment]
	s.cacheMutex.RUnlock()
	return record
}

// cacheBenchmark adds a benchmark to the cache.
func (s *SQLiteStorage) cacheBenchmark(record *model.MetricRecord) {
	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()

	if len(s.benchmarkCache) == 0 {
		s.cacheExpiry = time.Now().Add(benchmarkCacheTTL)
	}
	s.benchmarkCache[record.Segment] = record
}

func (s *SQLiteStorage) invalidateBenchmark(segment model.Segment) {
	s.cacheMutex.Lock()
	delete(s.benchmarkCache, segment)
	s.cacheMutex.Unlock()
}

func (s *SQLiteStorage) clearBenchmarkCache() {
	s.cacheMutex.Lock()
	s.benchmarkCache = make(map[model.Segment]*model.MetricRecord)
	s.cacheMutex.Unlock()
}

// copyRecord keeps callers from mutating cached values.
func copyRecord(r *model.MetricRecord) *model.MetricRecord {
	out := model.NewMetricRecord(r.Kind, r.Segment)
	for k, v := range r.Values {
		out.Values[k] = v
	}
	return &out
}
