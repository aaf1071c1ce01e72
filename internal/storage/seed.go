package storage

import (
	"bytes"
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"os"

	"github.com/Veraticus/flavyr/internal/model"
	"gopkg.in/yaml.v3"
)

//go:embed seed/default.yaml
var defaultSeed []byte

// BenchmarkSeed is one aggregate benchmark row in a seed file.
type BenchmarkSeed struct {
	Metrics     map[string]float64 `yaml:"metrics"`
	CuisineType string             `yaml:"cuisine_type"`
	DiningModel string             `yaml:"dining_model"`
}

// TransactionBenchmarkSeed is one transaction benchmark row. Omitted fields
// take the values of model.DefaultTransactionBenchmark.
type TransactionBenchmarkSeed struct {
	LoyaltyRatePct         *float64 `yaml:"loyalty_rate_pct"`
	AOVWeekday             *float64 `yaml:"aov_weekday"`
	AOVWeekend             *float64 `yaml:"aov_weekend"`
	AOVVariationPct        *float64 `yaml:"aov_variation_pct"`
	SlowDayDropPct         *float64 `yaml:"slow_day_drop_pct"`
	TopItemSharePct        *float64 `yaml:"top_item_share_pct"`
	BottomItemThresholdPct *float64 `yaml:"bottom_item_threshold_pct"`
	CuisineType            string   `yaml:"cuisine_type"`
	DiningModel            string   `yaml:"dining_model"`
	ExpectedSlowestDay     string   `yaml:"expected_slowest_day"`
}

// SeedData is the catalogue content loaded by Seed.
type SeedData struct {
	Benchmarks            []BenchmarkSeed            `yaml:"benchmarks"`
	TransactionBenchmarks []TransactionBenchmarkSeed `yaml:"transaction_benchmarks"`
	Deals                 []model.Deal               `yaml:"deals"`
	DealMappings          []model.DealMapping        `yaml:"deal_mappings"`
}

// SeedReport counts the rows written per table. A zero count means the
// table already had data or the seed had none for it.
type SeedReport struct {
	Benchmarks            int
	TransactionBenchmarks int
	Deals                 int
	DealMappings          int
}

// DefaultSeed returns the built-in sample catalogue.
func DefaultSeed() (SeedData, error) {
	return ParseSeed(defaultSeed)
}

// LoadSeedFile reads a YAML seed file from disk.
func LoadSeedFile(path string) (SeedData, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is supplied by the operator
	if err != nil {
		return SeedData{}, fmt.Errorf("failed to read seed file: %w", err)
	}
	return ParseSeed(data)
}

// ParseSeed decodes seed YAML, rejecting unknown fields.
func ParseSeed(data []byte) (SeedData, error) {
	var seed SeedData
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&seed); err != nil {
		return SeedData{}, fmt.Errorf("failed to parse seed data: %w", err)
	}
	return seed, nil
}

// MetricRecords converts the aggregate benchmark rows.
func (d SeedData) MetricRecords() []model.MetricRecord {
	records := make([]model.MetricRecord, 0, len(d.Benchmarks))
	for _, b := range d.Benchmarks {
		r := model.NewMetricRecord(model.RecordBenchmark, model.Segment{
			CuisineType: b.CuisineType,
			DiningModel: b.DiningModel,
		})
		for k, v := range b.Metrics {
			r.Set(k, v)
		}
		records = append(records, r)
	}
	return records
}

// TransactionBenchmarkRecords converts the transaction benchmark rows,
// filling omitted fields from the defaults.
func (d SeedData) TransactionBenchmarkRecords() ([]model.TransactionBenchmark, error) {
	out := make([]model.TransactionBenchmark, 0, len(d.TransactionBenchmarks))
	for _, s := range d.TransactionBenchmarks {
		b := model.DefaultTransactionBenchmark(model.Segment{
			CuisineType: s.CuisineType,
			DiningModel: s.DiningModel,
		})
		setIf(&b.LoyaltyRatePct, s.LoyaltyRatePct)
		setIf(&b.AOVWeekday, s.AOVWeekday)
		setIf(&b.AOVWeekend, s.AOVWeekend)
		setIf(&b.AOVVariationPct, s.AOVVariationPct)
		setIf(&b.SlowDayDropPct, s.SlowDayDropPct)
		setIf(&b.TopItemSharePct, s.TopItemSharePct)
		setIf(&b.BottomItemThresholdPct, s.BottomItemThresholdPct)
		if s.ExpectedSlowestDay != "" {
			day, err := model.ParseWeekday(s.ExpectedSlowestDay)
			if err != nil {
				return nil, fmt.Errorf("transaction benchmark %s: %w", b.Segment, err)
			}
			b.ExpectedSlowestDay = day
		}
		out = append(out, b)
	}
	return out, nil
}

func setIf(dst *float64, v *float64) {
	if v != nil {
		*dst = *v
	}
}

// Seed loads data into every catalogue table that is still empty. Tables
// that already hold rows are left untouched, so repeated calls are safe.
func (s *SQLiteStorage) Seed(ctx context.Context, data SeedData) (SeedReport, error) {
	return s.seed(ctx, data, false)
}

// ReplaceCatalogue overwrites every catalogue table the seed has rows for.
func (s *SQLiteStorage) ReplaceCatalogue(ctx context.Context, data SeedData) (SeedReport, error) {
	return s.seed(ctx, data, true)
}

func (s *SQLiteStorage) seed(ctx context.Context, data SeedData, replace bool) (SeedReport, error) {
	var report SeedReport
	if err := validateContext(ctx); err != nil {
		return report, err
	}

	records := data.MetricRecords()
	for _, r := range records {
		if err := validateBenchmark(r); err != nil {
			return report, err
		}
	}
	txBenches, err := data.TransactionBenchmarkRecords()
	if err != nil {
		return report, err
	}
	for _, b := range txBenches {
		if err := validateTransactionBenchmark(b); err != nil {
			return report, err
		}
	}
	if len(data.Deals) > 0 {
		if err := validateDeals(data.Deals); err != nil {
			return report, err
		}
	}
	if len(data.DealMappings) > 0 {
		if err := validateDealMappings(data.DealMappings); err != nil {
			return report, err
		}
	}

	err = s.withTx(ctx, func(tx *sql.Tx) error {
		load := func(table string, n int) (bool, error) {
			if n == 0 {
				return false, nil
			}
			if replace {
				// #nosec G201 - table names are fixed below
				if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", table)); err != nil {
					return false, fmt.Errorf("failed to clear %s: %w", table, err)
				}
				return true, nil
			}
			existing, err := countRows(ctx, tx, table)
			if err != nil {
				return false, err
			}
			if existing > 0 {
				slog.Debug("Skipping seed for non-empty table", "table", table, "rows", existing)
				return false, nil
			}
			return true, nil
		}

		ok, err := load("benchmarks", len(records))
		if err != nil {
			return err
		}
		if ok {
			for _, r := range records {
				if err := saveBenchmarkTx(ctx, tx, r); err != nil {
					return err
				}
			}
			report.Benchmarks = len(records)
		}

		if ok, err = load("transaction_benchmarks", len(txBenches)); err != nil {
			return err
		}
		if ok {
			for _, b := range txBenches {
				if err := saveTransactionBenchmarkTx(ctx, tx, b); err != nil {
					return err
				}
			}
			report.TransactionBenchmarks = len(txBenches)
		}

		if ok, err = load("deal_bank", len(data.Deals)); err != nil {
			return err
		}
		if ok {
			if err := saveDealsTx(ctx, tx, data.Deals); err != nil {
				return err
			}
			report.Deals = len(data.Deals)
		}

		if ok, err = load("transaction_deal_mapping", len(data.DealMappings)); err != nil {
			return err
		}
		if ok {
			if err := saveDealMappingsTx(ctx, tx, data.DealMappings); err != nil {
				return err
			}
			report.DealMappings = len(data.DealMappings)
		}
		return nil
	})
	if err != nil {
		return SeedReport{}, err
	}

	s.clearBenchmarkCache()
	slog.Info("Seeded catalogue",
		"benchmarks", report.Benchmarks,
		"transaction_benchmarks", report.TransactionBenchmarks,
		"deals", report.Deals,
		"deal_mappings", report.DealMappings)
	return report, nil
}
