package main

import (
	"fmt"

	"github.com/Veraticus/flavyr/internal/pipeline"
	"github.com/Veraticus/flavyr/internal/report"
	"github.com/spf13/cobra"
)

func runsCmd(a *app) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List past analysis runs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			runs, err := store.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), report.NewCLIFormatter().FormatRuns(runs))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to list")
	cmd.AddCommand(showRunCmd(a))
	return cmd
}

func showRunCmd(a *app) *cobra.Command {
	var opts outputOptions

	cmd := &cobra.Command{
		Use:   "show <id>",
		Short: "Show the full report of a past run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}

			store, err := a.initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			run, err := store.GetRun(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			res, err := pipeline.DecodeResult(run.Result)
			if err != nil {
				return err
			}
			return a.writeResult(cmd.Context(), cmd, res, opts)
		},
	}
	opts.register(cmd)
	return cmd
}
