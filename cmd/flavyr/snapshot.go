package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/Veraticus/flavyr/internal/cli"
	"github.com/Veraticus/flavyr/internal/storage"
	"github.com/spf13/cobra"
)

func snapshotCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "snapshot",
		Aliases: []string{"backup"},
		Short:   "Manage database snapshots",
		Long: `Create, list, and delete database snapshots.

A snapshot is taken automatically before 'flavyr seed --replace'.`,
		Example: `  flavyr snapshot create --tag before-q3-benchmarks
  flavyr snapshot list
  flavyr snapshot delete before-q3-benchmarks`,
	}

	cmd.AddCommand(createSnapshotCmd(a))
	cmd.AddCommand(listSnapshotsCmd(a))
	cmd.AddCommand(deleteSnapshotCmd(a))
	return cmd
}

func (a *app) snapshotManager(cmd *cobra.Command) (*storage.SnapshotManager, func(), error) {
	store, err := a.initStorage(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	manager, err := store.NewSnapshotManager()
	if err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("failed to create snapshot manager: %w", err)
	}
	return manager, func() { _ = store.Close() }, nil
}

func createSnapshotCmd(a *app) *cobra.Command {
	var tag, description string

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a new snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			manager, closeStore, err := a.snapshotManager(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			info, err := manager.Create(cmd.Context(), tag, description, false)
			if err != nil {
				return fmt.Errorf("failed to create snapshot: %w", err)
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s Created snapshot %s (%s)\n",
				cli.SuccessStyle.Render(cli.SuccessIcon),
				cli.InfoStyle.Render(info.ID),
				formatFileSize(info.FileSize))
			return nil
		},
	}

	cmd.Flags().StringVarP(&tag, "tag", "t", "", "Snapshot name (auto-generated if not provided)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Description of the snapshot")
	return cmd
}

func listSnapshotsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all snapshots",
		RunE: func(cmd *cobra.Command, _ []string) error {
			manager, closeStore, err := a.snapshotManager(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			snapshots, err := manager.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to list snapshots: %w", err)
			}
			if len(snapshots) == 0 {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.SubtitleStyle.Render("No snapshots found."))
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			_, _ = fmt.Fprintln(w, "ID\tCreated\tSize\tRuns\tDescription")
			for _, s := range snapshots {
				desc := s.Description
				if s.IsAuto {
					desc += " (auto)"
				}
				_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\n",
					s.ID,
					s.CreatedAt.Local().Format(time.DateTime),
					formatFileSize(s.FileSize),
					s.RowCounts["analysis_runs"],
					desc)
			}
			return w.Flush()
		},
	}
}

func deleteSnapshotCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			manager, closeStore, err := a.snapshotManager(cmd)
			if err != nil {
				return err
			}
			defer closeStore()

			if err := manager.Delete(cmd.Context(), args[0]); err != nil {
				return fmt.Errorf("failed to delete snapshot: %w", err)
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Deleted snapshot "+args[0]))
			return nil
		},
	}
}

func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}
