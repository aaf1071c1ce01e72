package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/Veraticus/flavyr/internal/common"
	"github.com/Veraticus/flavyr/internal/config"
	"github.com/Veraticus/flavyr/internal/ingest"
	"github.com/Veraticus/flavyr/internal/model"
	"github.com/Veraticus/flavyr/internal/pipeline"
	"github.com/spf13/cobra"
)

func analyzeCmd(a *app) *cobra.Command {
	var (
		sheet string
		opts  outputOptions
	)

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Benchmark daily restaurant metrics and recommend deals",
		Long: `Analyze a daily metrics upload (CSV or XLSX) against its segment benchmark.

Daily rows are aggregated (covers summed, everything else averaged), compared
with the benchmark for the segment named in the file, graded and mapped to
recommended deals.`,
		Example: `  flavyr analyze daily.csv
  flavyr analyze daily.xlsx --sheet January --xlsx report.xlsx
  flavyr analyze daily.csv --format json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}

			rows, err := readRestaurantFile(config.ExpandPath(args[0]), sheet)
			if err != nil {
				return printValidation(cmd.ErrOrStderr(), err)
			}

			store, err := a.initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			p, err := a.newPipeline(store)
			if err != nil {
				return err
			}

			res, err := runWithProgress(cmd, p, "Analysis", opts,
				func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.Result, error) {
					return p.RunDaily(ctx, rows)
				})
			return a.finish(cmd, res, err, opts)
		},
	}

	cmd.Flags().StringVar(&sheet, "sheet", "", "Workbook sheet to read (default: first sheet)")
	opts.register(cmd)
	return cmd
}

func transactionsCmd(a *app) *cobra.Command {
	var (
		cuisine     string
		diningModel string
		opts        outputOptions
	)

	cmd := &cobra.Command{
		Use:   "transactions <file>",
		Short: "Analyze point-of-sale transactions and recommend deals",
		Long: `Analyze a transaction export (CSV with date, total, customer_id, item_name and
day_of_week columns).

Aggregate KPIs are derived from the transactions for the strategic comparison,
and customer loyalty, order value, day-of-week and menu patterns are checked
against the segment's transaction benchmark for tactical recommendations.`,
		Example: `  flavyr transactions pos.csv --cuisine American --dining-model "Casual Dining"
  flavyr transactions pos.csv --cuisine Italian --dining-model "Fine Dining" --browse`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			segment := model.Segment{CuisineType: cuisine, DiningModel: diningModel}

			f, err := os.Open(config.ExpandPath(args[0])) // #nosec G304
			if err != nil {
				return fmt.Errorf("failed to open %s: %w", args[0], err)
			}
			batch, err := ingest.ReadTransactionCSV(f)
			_ = f.Close()
			if err != nil {
				return printValidation(cmd.ErrOrStderr(), err)
			}

			store, err := a.initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			p, err := a.newPipeline(store)
			if err != nil {
				return err
			}

			res, err := runWithProgress(cmd, p, "Transaction analysis", opts,
				func(ctx context.Context, p *pipeline.Pipeline) (*pipeline.Result, error) {
					return p.RunTransactions(ctx, batch.Transactions, segment)
				})
			if res != nil {
				res.Warnings = append(append([]string(nil), batch.Validation.Warnings...), res.Warnings...)
			}
			return a.finish(cmd, res, err, opts)
		},
	}

	cmd.Flags().StringVar(&cuisine, "cuisine", "", "Cuisine type of the restaurant")
	cmd.Flags().StringVar(&diningModel, "dining-model", "", "Dining model of the restaurant")
	_ = cmd.MarkFlagRequired("cuisine")
	_ = cmd.MarkFlagRequired("dining-model")
	opts.register(cmd)
	return cmd
}

// finish reports a missing benchmark as a message rather than a failure and
// renders everything else.
func (a *app) finish(cmd *cobra.Command, res *pipeline.Result, err error, opts outputOptions) error {
	if err != nil {
		var nb *common.NoBenchmarkError
		if errors.As(err, &nb) && res != nil {
			opts.browse = false
			opts.xlsx = ""
			opts.sheets = false
			if werr := a.writeResult(cmd.Context(), cmd, res, opts); werr != nil {
				return werr
			}
		}
		return err
	}
	return a.writeResult(cmd.Context(), cmd, res, opts)
}
