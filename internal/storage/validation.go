// Package storage provides the data persistence layer for flavyr.
package storage

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/Veraticus/flavyr/internal/model"
)

// Validation errors.
var (
	ErrNilContext           = errors.New("context cannot be nil")
	ErrEmptyString          = errors.New("string parameter cannot be empty")
	ErrNilParameter         = errors.New("parameter cannot be nil")
	ErrEmptySlice           = errors.New("slice cannot be empty")
	ErrInvalidSegment       = errors.New("invalid segment")
	ErrInvalidBenchmark     = errors.New("invalid benchmark")
	ErrInvalidDeal          = errors.New("invalid deal")
	ErrInvalidDealMapping   = errors.New("invalid deal mapping")
	ErrInvalidRun           = errors.New("invalid analysis run")
	ErrInvalidRestaurantRow = errors.New("invalid restaurant row")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateSegment(seg model.Segment) error {
	if strings.TrimSpace(seg.CuisineType) == "" {
		return fmt.Errorf("%w: missing cuisine type", ErrInvalidSegment)
	}
	if strings.TrimSpace(seg.DiningModel) == "" {
		return fmt.Errorf("%w: missing dining model", ErrInvalidSegment)
	}
	return nil
}

// validateKPIValues checks that every stored KPI column has a finite value.
func validateKPIValues(values map[string]float64, sentinel error) error {
	for _, key := range kpiColumns {
		v, ok := values[key]
		if !ok {
			return fmt.Errorf("%w: missing %s", sentinel, key)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not a finite number", sentinel, key)
		}
	}
	return nil
}

func validateBenchmark(record model.MetricRecord) error {
	if err := validateSegment(record.Segment); err != nil {
		return err
	}
	return validateKPIValues(record.Values, ErrInvalidBenchmark)
}

func validateTransactionBenchmark(bench model.TransactionBenchmark) error {
	if err := validateSegment(bench.Segment); err != nil {
		return err
	}
	for name, v := range map[string]float64{
		"loyalty rate":          bench.LoyaltyRatePct,
		"weekday AOV":           bench.AOVWeekday,
		"weekend AOV":           bench.AOVWeekend,
		"AOV variation":         bench.AOVVariationPct,
		"slow day drop":         bench.SlowDayDropPct,
		"top item share":        bench.TopItemSharePct,
		"bottom item threshold": bench.BottomItemThresholdPct,
	} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s must be a non-negative number", ErrInvalidBenchmark, name)
		}
	}
	return nil
}

func validateDeals(deals []model.Deal) error {
	if deals == nil {
		return fmt.Errorf("%w: deals", ErrNilParameter)
	}
	for i, d := range deals {
		if strings.TrimSpace(d.BusinessProblem) == "" {
			return fmt.Errorf("deal at index %d: %w: missing business problem", i, ErrInvalidDeal)
		}
		if len(d.Types()) == 0 {
			return fmt.Errorf("deal at index %d: %w: missing deal types", i, ErrInvalidDeal)
		}
	}
	return nil
}

func validateDealMappings(mappings []model.DealMapping) error {
	if mappings == nil {
		return fmt.Errorf("%w: mappings", ErrNilParameter)
	}
	seen := make(map[string]bool, len(mappings))
	for i, m := range mappings {
		if strings.TrimSpace(m.Key) == "" {
			return fmt.Errorf("mapping at index %d: %w: missing key", i, ErrInvalidDealMapping)
		}
		if strings.TrimSpace(m.BusinessProblem) == "" {
			return fmt.Errorf("mapping at index %d: %w: missing business problem", i, ErrInvalidDealMapping)
		}
		if seen[m.Key] {
			return fmt.Errorf("mapping at index %d: %w: duplicate key %q", i, ErrInvalidDealMapping, m.Key)
		}
		seen[m.Key] = true
	}
	return nil
}

func validateRestaurantRows(rows []model.RestaurantDay) error {
	if rows == nil {
		return fmt.Errorf("%w: rows", ErrNilParameter)
	}
	if len(rows) == 0 {
		return fmt.Errorf("%w: rows", ErrEmptySlice)
	}
	for i, row := range rows {
		if row.Date.IsZero() {
			return fmt.Errorf("row %d: %w: missing date", i, ErrInvalidRestaurantRow)
		}
		if err := validateSegment(row.Segment); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
		if err := validateKPIValues(row.Values, ErrInvalidRestaurantRow); err != nil {
			return fmt.Errorf("row %d: %w", i, err)
		}
	}
	return nil
}

func validateRun(run *model.RunRecord) error {
	if run == nil {
		return fmt.Errorf("%w: run", ErrNilParameter)
	}
	if run.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidRun)
	}
	if run.CreatedAt.IsZero() {
		return fmt.Errorf("%w: missing creation time", ErrInvalidRun)
	}
	switch run.Source {
	case model.SourceAggregate, model.SourceTransactions:
	default:
		return fmt.Errorf("%w: unknown source %q", ErrInvalidRun, run.Source)
	}
	if run.Outcome == "" {
		return fmt.Errorf("%w: missing outcome", ErrInvalidRun)
	}
	return nil
}
