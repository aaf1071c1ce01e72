package main

import (
	"log/slog"

	"github.com/Veraticus/flavyr/internal/server"
	"github.com/spf13/cobra"
)

func serveCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the analysis API over HTTP",
		Long: `Start an HTTP server exposing segment listing, aggregate and transaction
analysis, stored runs and Prometheus metrics.`,
		Example: `  flavyr serve --addr :8080
  curl -X POST --data-binary @daily.csv -H 'Content-Type: text/csv' localhost:8080/v1/analyze/aggregate`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			store, err := a.initStorage(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			if err := store.WarmBenchmarkCache(ctx); err != nil {
				slog.Warn("Failed to warm benchmark cache", "error", err)
			}

			p, err := a.newPipeline(store)
			if err != nil {
				return err
			}

			srv, err := server.New(p, store, slog.Default(), server.Options{
				ReadTimeout:     a.cfg.Server.ReadTimeout,
				WriteTimeout:    a.cfg.Server.WriteTimeout,
				ShutdownTimeout: a.cfg.Server.ShutdownTimeout,
				MaxUploadBytes:  a.cfg.Server.MaxUploadBytes,
			})
			if err != nil {
				return err
			}

			if addr == "" {
				addr = a.cfg.Server.Addr
			}
			return srv.ListenAndServe(ctx, addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.addr from config)")
	return cmd
}
