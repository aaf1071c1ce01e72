// Package pipeline runs a full analysis: benchmark lookup, gap scoring,
// tactical comparison and the merged recommendation plan.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/flavyr/internal/benchmark"
	"github.com/Veraticus/flavyr/internal/model"
	"github.com/Veraticus/flavyr/internal/recommend"
	"github.com/Veraticus/flavyr/internal/service"
	"github.com/google/uuid"
)

// DefaultBenchmarkSampleSize is the assumed number of restaurants behind a
// segment benchmark when none is configured.
const DefaultBenchmarkSampleSize = 500

// ProgressFunc receives a stage description and a completion percentage.
type ProgressFunc func(stage string, pct int)

// UploadStore persists uploaded daily rows.
type UploadStore interface {
	SaveRestaurantRows(ctx context.Context, rows []model.RestaurantDay) error
}

// Options tunes a pipeline. Zero values take the package defaults.
type Options struct {
	Progress            ProgressFunc
	Threshold           float64
	TopLimit            int
	BenchmarkSampleSize int
	Locations           int
}

// Deps contains all dependencies required by the pipeline.
type Deps struct {
	// Benchmarks provides segment benchmarks.
	Benchmarks service.BenchmarkStore
	// Deals provides the deal catalogue and tactical mapping.
	Deals service.DealStore
	// Runs records successful runs. Optional.
	Runs service.RunStore
	// Uploads records uploaded daily rows. Optional.
	Uploads UploadStore
	// Registry defaults to model.DefaultRegistry.
	Registry *model.Registry
	Logger   *slog.Logger
	Clock    func() time.Time
	NewID    func() string
	Options  Options
}

// Validate ensures all required dependencies are provided.
func (d *Deps) Validate() error {
	if d.Benchmarks == nil {
		return fmt.Errorf("benchmark store dependency is required")
	}
	if d.Deals == nil {
		return fmt.Errorf("deal store dependency is required")
	}
	return nil
}

func (d *Deps) applyDefaults() {
	if d.Registry == nil {
		d.Registry = model.DefaultRegistry()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.NewID == nil {
		d.NewID = uuid.NewString
	}
	if d.Options.Threshold == 0 {
		d.Options.Threshold = benchmark.DefaultThreshold
	}
	if d.Options.TopLimit <= 0 {
		d.Options.TopLimit = recommend.DefaultTopLimit
	}
	if d.Options.BenchmarkSampleSize <= 0 {
		d.Options.BenchmarkSampleSize = DefaultBenchmarkSampleSize
	}
	if d.Options.Locations <= 0 {
		d.Options.Locations = 1
	}
	if d.Options.Progress == nil {
		d.Options.Progress = func(string, int) {}
	}
}

// Pipeline runs analyses. It holds no per-run state and is safe for
// concurrent use when its stores are.
type Pipeline struct {
	deps Deps
}

// New creates a pipeline with the provided dependencies.
func New(deps Deps) (*Pipeline, error) {
	if err := deps.Validate(); err != nil {
		return nil, fmt.Errorf("invalid dependencies: %w", err)
	}
	deps.applyDefaults()
	return &Pipeline{deps: deps}, nil
}

// Registry returns the KPI registry the pipeline scores against.
func (p *Pipeline) Registry() *model.Registry {
	return p.deps.Registry
}

// WithProgress returns a copy of p reporting to fn.
func (p *Pipeline) WithProgress(fn ProgressFunc) *Pipeline {
	deps := p.deps
	deps.Options.Progress = fn
	if fn == nil {
		deps.Options.Progress = func(string, int) {}
	}
	return &Pipeline{deps: deps}
}
