package main

import (
	"fmt"

	"github.com/Veraticus/flavyr/internal/cli"
	"github.com/Veraticus/flavyr/internal/config"
	"github.com/Veraticus/flavyr/internal/report"
	"github.com/Veraticus/flavyr/internal/storage"
	"github.com/spf13/cobra"
)

func seedCmd(a *app) *cobra.Command {
	var (
		file    string
		replace bool
		yes     bool
	)

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load benchmarks and the deal bank",
		Long: `Load segment benchmarks, transaction benchmarks, the deal bank and the
issue-to-deal mapping into the database.

Without --replace only empty tables are filled, so seeding twice is safe.
With --replace the catalogue tables are overwritten after an automatic snapshot.`,
		Example: `  # Load the built-in sample catalogue
  flavyr seed

  # Replace the catalogue with your own benchmarks
  flavyr seed --file benchmarks.yaml --replace`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			path := file
			if path == "" {
				path = a.cfg.Database.SeedFile
			}
			var (
				data storage.SeedData
				err  error
			)
			if path != "" {
				data, err = storage.LoadSeedFile(config.ExpandPath(path))
			} else {
				data, err = storage.DefaultSeed()
			}
			if err != nil {
				return err
			}

			store, err := a.initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			out := cmd.OutOrStdout()
			var seeded storage.SeedReport
			if replace {
				if !yes {
					ok, confirmErr := cli.Confirm(ctx, cli.NewNonBlockingReader(cmd.InOrStdin()), out,
						"Replace the existing benchmark catalogue?", false)
					if confirmErr != nil {
						return confirmErr
					}
					if !ok {
						_, _ = fmt.Fprintln(out, cli.FormatInfo("Seed canceled"))
						return nil
					}
				}

				if manager, mErr := store.NewSnapshotManager(); mErr == nil {
					info, snapErr := manager.Create(ctx, "", "before seed --replace", true)
					if snapErr != nil {
						return fmt.Errorf("failed to snapshot before replace: %w", snapErr)
					}
					_, _ = fmt.Fprintln(out, cli.FormatInfo("Snapshot saved: "+info.ID))
				}

				seeded, err = store.ReplaceCatalogue(ctx, data)
			} else {
				seeded, err = store.Seed(ctx, data)
			}
			if err != nil {
				return fmt.Errorf("failed to seed database: %w", err)
			}

			_, _ = fmt.Fprintln(out, cli.FormatSuccess("Catalogue loaded"))
			_, _ = fmt.Fprintf(out, "  Benchmarks:             %d\n", seeded.Benchmarks)
			_, _ = fmt.Fprintf(out, "  Transaction benchmarks: %d\n", seeded.TransactionBenchmarks)
			_, _ = fmt.Fprintf(out, "  Deals:                  %d\n", seeded.Deals)
			_, _ = fmt.Fprintf(out, "  Deal mappings:          %d\n", seeded.DealMappings)
			if !replace && seeded == (storage.SeedReport{}) {
				_, _ = fmt.Fprintln(out, cli.FormatInfo("All tables already had data; use --replace to overwrite"))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "YAML seed file (default: built-in sample data)")
	cmd.Flags().BoolVar(&replace, "replace", false, "Overwrite existing catalogue tables")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Skip the confirmation prompt")

	return cmd
}

func segmentsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "segments",
		Short: "List benchmark segments",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := a.initStorage(cmd.Context())
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			segments, err := store.ListSegments(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), report.NewCLIFormatter().FormatSegments(segments))
			return nil
		},
	}
}
