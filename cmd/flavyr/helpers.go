package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/Veraticus/flavyr/internal/cli"
	"github.com/Veraticus/flavyr/internal/config"
	"github.com/Veraticus/flavyr/internal/ingest"
	"github.com/Veraticus/flavyr/internal/model"
	"github.com/Veraticus/flavyr/internal/pipeline"
	"github.com/Veraticus/flavyr/internal/report"
	"github.com/Veraticus/flavyr/internal/sheets"
	"github.com/Veraticus/flavyr/internal/storage"
	"github.com/Veraticus/flavyr/internal/tui"
	"github.com/spf13/cobra"
)

// initStorage opens the configured database and applies migrations.
func (a *app) initStorage(ctx context.Context) (*storage.SQLiteStorage, error) {
	dir := filepath.Dir(a.cfg.Database.Path)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	store, err := storage.NewSQLiteStorage(a.cfg.Database.Path)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

func (a *app) newPipeline(store *storage.SQLiteStorage) (*pipeline.Pipeline, error) {
	return pipeline.New(pipeline.Deps{
		Benchmarks: store,
		Deals:      store,
		Runs:       store,
		Uploads:    store,
		Logger:     slog.Default(),
		Options: pipeline.Options{
			Threshold:           a.cfg.Analysis.Threshold,
			TopLimit:            a.cfg.Analysis.TopLimit,
			BenchmarkSampleSize: a.cfg.Analysis.BenchmarkSampleSize,
			Locations:           a.cfg.Analysis.Locations,
		},
	})
}

// readRestaurantFile reads a daily upload, choosing the parser by extension.
func readRestaurantFile(path, sheet string) ([]model.RestaurantDay, error) {
	f, err := os.Open(path) // #nosec G304
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	var (
		rows []model.RestaurantDay
		errs []string
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		rows, errs = ingest.ReadRestaurantXLSX(f, sheet)
	default:
		rows, errs = ingest.ReadRestaurantCSV(f)
	}
	if len(errs) > 0 {
		return nil, &ingest.ValidationError{Errors: errs}
	}
	return rows, nil
}

// printValidation lists every problem of a failed upload before returning it.
func printValidation(w io.Writer, err error) error {
	if verr, ok := err.(*ingest.ValidationError); ok {
		_, _ = fmt.Fprintln(w, cli.FormatError("Upload failed validation:"))
		for _, e := range verr.Errors {
			_, _ = fmt.Fprintln(w, "  • "+e)
		}
	}
	return err
}

// outputOptions are the result rendering flags shared by analysis commands.
type outputOptions struct {
	format   string
	xlsx     string
	sheets   bool
	explain  bool
	browse   bool
	progress bool
}

func (o *outputOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&o.format, "format", "f", "text", "Output format (text, json)")
	cmd.Flags().StringVar(&o.xlsx, "xlsx", "", "Also export the report to this workbook path")
	cmd.Flags().BoolVar(&o.sheets, "sheets", false, "Also upload the report to Google Sheets")
	cmd.Flags().BoolVar(&o.explain, "explain", false, "Show step-by-step explanations")
	cmd.Flags().BoolVar(&o.browse, "browse", false, "Browse recommendations interactively")
	cmd.Flags().BoolVar(&o.progress, "progress", true, "Show a progress bar for text output")
}

func (o *outputOptions) validate() error {
	switch o.format {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("unsupported format %q (use text or json)", o.format)
	}
}

// writeResult renders res and performs the requested exports.
func (a *app) writeResult(ctx context.Context, cmd *cobra.Command, res *pipeline.Result, o outputOptions) error {
	out := cmd.OutOrStdout()

	switch o.format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(res); err != nil {
			return fmt.Errorf("failed to encode result: %w", err)
		}
	default:
		f := report.NewCLIFormatter()
		f.Explain = o.explain
		_, _ = fmt.Fprintln(out, f.Format(res))
	}

	if o.xlsx != "" {
		if err := report.NewExcelExporter().WriteFile(res, config.ExpandPath(o.xlsx)); err != nil {
			return err
		}
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatSuccess("Report written to "+o.xlsx))
	}

	if o.sheets {
		sheetsCfg, err := config.LoadSheetsConfig(a.v)
		if err != nil {
			return fmt.Errorf("google sheets not configured: %w", err)
		}
		w, err := sheets.NewWriter(ctx, *sheetsCfg, slog.Default())
		if err != nil {
			return err
		}
		id, err := w.Write(ctx, res)
		if err != nil {
			return fmt.Errorf("failed to upload report: %w", err)
		}
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), cli.FormatSuccess(
			fmt.Sprintf("Report uploaded: https://docs.google.com/spreadsheets/d/%s", id)))
	}

	if o.browse {
		return tui.Browse(ctx, res)
	}
	return nil
}

// runWithProgress runs an analysis under interrupt handling, drawing a
// progress bar on stderr for text output.
func runWithProgress(cmd *cobra.Command, p *pipeline.Pipeline, task string, o outputOptions,
	run func(context.Context, *pipeline.Pipeline) (*pipeline.Result, error),
) (*pipeline.Result, error) {
	handler := cli.NewInterruptHandler(cmd.ErrOrStderr(), task)
	ctx, stop := handler.HandleInterrupts(cmd.Context())
	defer stop()

	if o.progress && o.format == "text" {
		bar := cli.NewProgress(cmd.ErrOrStderr(), task)
		p = p.WithProgress(bar.Update)
	}

	res, err := run(ctx, p)
	if handler.WasInterrupted() {
		return nil, fmt.Errorf("%s interrupted", task)
	}
	return res, err
}
