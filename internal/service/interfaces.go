// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/Veraticus/flavyr/internal/model"
)

// BenchmarkStore provides segment benchmarks. Both getters return nil, nil
// when the segment has no row.
type BenchmarkStore interface {
	GetBenchmark(ctx context.Context, segment model.Segment) (*model.MetricRecord, error)
	GetTransactionBenchmark(ctx context.Context, segment model.Segment) (*model.TransactionBenchmark, error)
}

// DealStore provides the deal catalogue and the tactical mapping table.
type DealStore interface {
	GetDeals(ctx context.Context) ([]model.Deal, error)
	GetTransactionDealMappings(ctx context.Context) ([]model.DealMapping, error)
}

// RunStore persists analysis run summaries.
type RunStore interface {
	SaveRun(ctx context.Context, run *model.RunRecord) error
	GetRun(ctx context.Context, id string) (*model.RunRecord, error)
	ListRuns(ctx context.Context, limit int) ([]model.RunRecord, error)
}

// Storage defines the contract for our persistence layer.
type Storage interface {
	BenchmarkStore
	DealStore
	RunStore

	// Catalogue maintenance
	SaveBenchmark(ctx context.Context, record model.MetricRecord) error
	SaveTransactionBenchmark(ctx context.Context, bench model.TransactionBenchmark) error
	SaveDeals(ctx context.Context, deals []model.Deal) error
	SaveDealMappings(ctx context.Context, mappings []model.DealMapping) error
	ListSegments(ctx context.Context) ([]model.Segment, error)

	// Uploaded aggregate rows
	SaveRestaurantRows(ctx context.Context, rows []model.RestaurantDay) error

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
