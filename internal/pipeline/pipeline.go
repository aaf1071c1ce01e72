package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Veraticus/flavyr/internal/benchmark"
	"github.com/Veraticus/flavyr/internal/common"
	"github.com/Veraticus/flavyr/internal/ingest"
	"github.com/Veraticus/flavyr/internal/model"
	"github.com/Veraticus/flavyr/internal/performance"
	"github.com/Veraticus/flavyr/internal/recommend"
	"github.com/Veraticus/flavyr/internal/transactions"
	"github.com/Veraticus/flavyr/internal/transparency"
)

// Outcome classifies how a run ended.
type Outcome string

// Run outcomes.
const (
	OutcomeOK          Outcome = "ok"
	OutcomeNoBenchmark Outcome = "no_benchmark"
)

// Result is everything one run produced.
type Result struct {
	GeneratedAt   time.Time                           `json:"generated_at"`
	Explanations  map[string]transparency.Explanation `json:"explanations,omitempty"`
	Provenance    map[string]model.Provenance         `json:"provenance,omitempty"`
	Analysis      *benchmark.Analysis                 `json:"analysis,omitempty"`
	Tactical      *transactions.Analysis              `json:"tactical,omitempty"`
	Summary       *transactions.DataSummary           `json:"data_summary,omitempty"`
	Performance   *performance.Report                 `json:"performance,omitempty"`
	Segment       model.Segment                       `json:"segment"`
	ID            string                              `json:"id"`
	Source        model.RunSource                     `json:"source"`
	Outcome       Outcome                             `json:"outcome"`
	Message       string                              `json:"message,omitempty"`
	Warnings      []string                            `json:"warnings,omitempty"`
	LowConfidence []string                            `json:"low_confidence,omitempty"`
	TacticalRecs  []recommend.Recommendation          `json:"tactical_recommendations,omitempty"`
	Audit         []transparency.AuditEntry           `json:"audit,omitempty"`
	Strategic     recommend.StrategicResult           `json:"strategic"`
	Plan          recommend.Plan                      `json:"plan"`
	Confidence    transparency.Confidence             `json:"confidence"`
}

// Grade returns the overall letter grade, or GradeNone before analysis.
func (r *Result) Grade() benchmark.Grade {
	if r.Analysis == nil {
		return benchmark.GradeNone
	}
	return r.Analysis.Grade
}

// RunAggregate compares a complete KPI record with its segment benchmark and
// recommends deals for the underperforming KPIs.
func (p *Pipeline) RunAggregate(ctx context.Context, actual model.MetricRecord) (*Result, error) {
	res, trail := p.newResult(actual.Segment, model.SourceAggregate)
	trail.Add("Received aggregate metrics", map[string]any{"segment": actual.Segment.String()})

	if err := p.strategic(ctx, res, trail, actual); err != nil {
		return res, err
	}

	res.Confidence = transparency.Assess(transparency.Factors{
		SampleSize:          1,
		DaysOfData:          1,
		BenchmarkSampleSize: p.deps.Options.BenchmarkSampleSize,
		Locations:           p.deps.Options.Locations,
	})
	p.finish(res, trail, nil)
	return res, p.save(ctx, res)
}

// RunDaily aggregates uploaded daily rows and runs the aggregate analysis.
// Rows are stored first when an upload store is configured.
func (p *Pipeline) RunDaily(ctx context.Context, rows []model.RestaurantDay) (*Result, error) {
	actual, err := ingest.AggregateDaily(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate daily rows: %w", err)
	}

	res, trail := p.newResult(actual.Segment, model.SourceAggregate)
	trail.Add("Aggregated daily rows", map[string]any{"rows": len(rows)})
	p.deps.Options.Progress("Aggregating daily rows", 5)

	if p.deps.Uploads != nil {
		if err := p.deps.Uploads.SaveRestaurantRows(ctx, rows); err != nil {
			return nil, fmt.Errorf("failed to store uploaded rows: %w", err)
		}
	}

	if err := p.strategic(ctx, res, trail, actual); err != nil {
		return res, err
	}

	days := make(map[string]struct{}, len(rows))
	for _, r := range rows {
		days[r.Date.Format("2006-01-02")] = struct{}{}
	}
	res.Confidence = transparency.Assess(transparency.Factors{
		SampleSize:          len(rows),
		DaysOfData:          len(days),
		BenchmarkSampleSize: p.deps.Options.BenchmarkSampleSize,
		Locations:           p.deps.Options.Locations,
	})
	p.finish(res, trail, nil)
	return res, p.save(ctx, res)
}

// RunTransactions analyzes a transaction batch on both scales: the derived
// aggregate against the segment benchmark, and the tactical comparison
// against the transaction benchmark.
func (p *Pipeline) RunTransactions(ctx context.Context, txns []model.Transaction, segment model.Segment) (*Result, error) {
	if len(txns) == 0 {
		return nil, common.ErrNoTransactions
	}

	res, trail := p.newResult(segment, model.SourceTransactions)
	trail.Add("Received transactions", map[string]any{"transactions": len(txns)})

	p.deps.Options.Progress("Deriving aggregate metrics", 5)
	derived, err := transactions.DeriveAggregate(txns, segment)
	if err != nil {
		return nil, fmt.Errorf("failed to derive aggregate: %w", err)
	}
	res.Provenance = derived.Provenance
	res.LowConfidence = derived.LowConfidence(p.deps.Registry)
	trail.Add("Derived aggregate metrics", map[string]any{
		"derived":        p.deps.Registry.Len() - len(res.LowConfidence),
		"low_confidence": res.LowConfidence,
	})

	if err := p.strategic(ctx, res, trail, derived.Record); err != nil {
		return res, err
	}

	p.deps.Options.Progress("Analyzing transactions", 50)
	tactical, err := transactions.Analyze(txns)
	if err != nil {
		return nil, fmt.Errorf("failed to analyze transactions: %w", err)
	}
	res.Tactical = tactical
	summary := transactions.Summarize(txns)
	res.Summary = &summary

	bench, err := p.deps.Benchmarks.GetTransactionBenchmark(ctx, segment)
	if err != nil {
		return nil, fmt.Errorf("failed to load transaction benchmark: %w", err)
	}
	if bench == nil {
		return res, p.noBenchmark(res, trail, segment, "transaction")
	}
	trail.Add("Loaded transaction benchmark", map[string]any{"segment": segment.String()})

	p.deps.Options.Progress("Comparing with transaction benchmark", 65)
	res.Performance = performance.Compare(tactical, *bench)
	trail.Add("Compared transaction metrics", map[string]any{
		"issues":       len(res.Performance.Issues),
		"has_critical": res.Performance.HasCritical,
	})

	mappings, err := p.deps.Deals.GetTransactionDealMappings(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load deal mappings: %w", err)
	}
	deals, err := p.deps.Deals.GetDeals(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load deals: %w", err)
	}
	res.TacticalRecs = recommend.Tactical(res.Performance.Issues, mappings, deals)
	trail.Add("Mapped tactical issues to deals", map[string]any{"recommendations": len(res.TacticalRecs)})

	res.Confidence = transparency.Assess(transparency.Factors{
		SampleSize:          len(txns),
		DaysOfData:          summary.Days,
		BenchmarkSampleSize: p.deps.Options.BenchmarkSampleSize,
		Locations:           p.deps.Options.Locations,
	})

	top := 0.0
	if len(tactical.Items.TopByRevenue) > 0 {
		top = tactical.Items.TopByRevenue[0].Revenue
	}
	p.finish(res, trail, map[string]transparency.Explanation{
		transparency.ExplainLoyalty: transparency.Loyalty(res.Performance.Loyalty, segment),
		transparency.ExplainAOV:     transparency.AOV(res.Performance.AOV, tactical.TotalRevenue, tactical.TransactionCount, segment),
		transparency.ExplainSlowDay: transparency.SlowDay(res.Performance.SlowDay, segment),
		transparency.ExplainItems:   transparency.Items(res.Performance.Items, top, tactical.TotalRevenue),
	})
	return res, p.save(ctx, res)
}

func (p *Pipeline) newResult(segment model.Segment, source model.RunSource) (*Result, *transparency.Trail) {
	return &Result{
		ID:          p.deps.NewID(),
		GeneratedAt: p.deps.Clock().UTC(),
		Segment:     segment,
		Source:      source,
		Outcome:     OutcomeOK,
	}, transparency.NewTrail(p.deps.Clock)
}

// strategic loads the aggregate benchmark, scores the gaps and builds the
// catalogue-backed recommendations. A missing benchmark marks res and
// returns a *common.NoBenchmarkError.
func (p *Pipeline) strategic(ctx context.Context, res *Result, trail *transparency.Trail, actual model.MetricRecord) error {
	p.deps.Options.Progress("Loading benchmark", 10)
	bench, err := p.deps.Benchmarks.GetBenchmark(ctx, actual.Segment)
	if err != nil {
		return fmt.Errorf("failed to load benchmark: %w", err)
	}
	if bench == nil {
		return p.noBenchmark(res, trail, actual.Segment, "")
	}
	trail.Add("Loaded benchmark", map[string]any{"segment": actual.Segment.String()})

	p.deps.Options.Progress("Scoring KPI gaps", 25)
	analysis, err := benchmark.AnalyzeWithThreshold(actual, *bench, p.deps.Registry, p.deps.Options.Threshold)
	if err != nil {
		return fmt.Errorf("failed to compare with benchmark: %w", err)
	}
	res.Analysis = analysis
	trail.Add("Computed KPI gaps", map[string]any{
		"grade":           string(analysis.Grade),
		"score":           analysis.Score,
		"underperforming": len(analysis.Underperforming),
	})

	deals, err := p.deps.Deals.GetDeals(ctx)
	if err != nil {
		return fmt.Errorf("failed to load deals: %w", err)
	}
	res.Strategic = recommend.Strategic(analysis.Gaps, p.deps.Registry, deals, p.deps.Options.Threshold)
	trail.Add("Matched business problems to deals", map[string]any{
		"problems":  len(res.Strategic.Problems),
		"fallbacks": len(res.Strategic.Fallbacks),
	})
	return nil
}

// noBenchmark marks res as stopped for lack of a benchmark of the given kind
// ("" for the KPI benchmark) and returns the matching error.
func (p *Pipeline) noBenchmark(res *Result, trail *transparency.Trail, segment model.Segment, kind string) error {
	nbErr := &common.NoBenchmarkError{Segment: segment.String(), Kind: kind}
	res.Outcome = OutcomeNoBenchmark
	res.Message = nbErr.UserMessage()
	trail.Add("No benchmark found", map[string]any{"segment": segment.String(), "kind": kind})
	res.Audit = trail.Entries()
	p.deps.Logger.Warn("No benchmark for segment", "segment", segment.String(), "kind", kind, "run_id", res.ID)
	return nbErr
}

// finish merges recommendations and attaches explanations and the audit trail.
func (p *Pipeline) finish(res *Result, trail *transparency.Trail, explanations map[string]transparency.Explanation) {
	p.deps.Options.Progress("Merging recommendations", 85)
	res.Plan = recommend.Merge(res.Strategic, res.TacticalRecs, p.deps.Options.TopLimit)
	trail.Add("Merged recommendations", map[string]any{
		"total":    len(res.Plan.All),
		"critical": res.Plan.Critical,
	})

	if explanations == nil {
		explanations = make(map[string]transparency.Explanation, 1)
	}
	if res.Analysis != nil {
		explanations[transparency.ExplainScore] = transparency.Score(res.Analysis)
	}
	res.Explanations = explanations
	res.Audit = trail.Entries()
}

// save records a successful run. Store failures are logged and do not fail
// the run. A cancelled run is not recorded.
func (p *Pipeline) save(ctx context.Context, res *Result) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("analysis cancelled: %w", err)
	}
	defer p.deps.Options.Progress("Done", 100)

	p.deps.Logger.Info("Analysis complete",
		"run_id", res.ID,
		"segment", res.Segment.String(),
		"source", string(res.Source),
		"grade", string(res.Grade()),
		"recommendations", len(res.Plan.All),
		"critical", res.Plan.Critical)

	if p.deps.Runs == nil {
		return nil
	}
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("failed to encode run result: %w", err)
	}
	run := &model.RunRecord{
		ID:        res.ID,
		CreatedAt: res.GeneratedAt,
		Segment:   res.Segment,
		Source:    res.Source,
		Outcome:   string(res.Outcome),
		Grade:     string(res.Grade()),
		Critical:  res.Plan.Critical,
		Result:    data,
	}
	if err := p.deps.Runs.SaveRun(ctx, run); err != nil {
		p.deps.Logger.Error("Failed to record run", "run_id", res.ID, "error", err)
	}
	return nil
}

// DecodeResult parses a stored run result.
func DecodeResult(data []byte) (*Result, error) {
	var res Result
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to decode run result: %w", err)
	}
	return &res, nil
}
