package main

import (
	"fmt"
	"log/slog"

	"github.com/Veraticus/flavyr/internal/cli"
	"github.com/Veraticus/flavyr/internal/config"
	"github.com/Veraticus/flavyr/internal/sheets"
	"github.com/spf13/cobra"
)

func sheetsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Google Sheets export setup",
	}
	cmd.AddCommand(sheetsAuthCmd(a))
	return cmd
}

func sheetsAuthCmd(a *app) *cobra.Command {
	var (
		tokenFile string
		port      int
	)

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize flavyr to write reports to Google Sheets",
		Long: `Run the OAuth2 flow in your browser and print the refresh token to put in
your config as sheets.refresh_token (or FLAVYR_SHEETS_REFRESH_TOKEN).

Client credentials come from sheets.client_id and sheets.client_secret.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			clientID := a.v.GetString("sheets.client_id")
			clientSecret := a.v.GetString("sheets.client_secret")
			if clientID == "" || clientSecret == "" {
				return fmt.Errorf("sheets.client_id and sheets.client_secret must be configured")
			}

			out := cmd.OutOrStdout()
			auth := sheets.NewAuthorizer(sheets.OAuth2Config{
				ClientID:     clientID,
				ClientSecret: clientSecret,
				TokenFile:    config.ExpandPath(tokenFile),
				RedirectPort: port,
			}, out, slog.Default())
			token, err := auth.Token(cmd.Context())
			if err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}

			_, _ = fmt.Fprintln(out, cli.FormatSuccess("Google Sheets authorized"))
			_, _ = fmt.Fprintln(out, "Add this to your config:")
			_, _ = fmt.Fprintln(out, cli.RenderBox("config.yaml", fmt.Sprintf("sheets:\n  refresh_token: %s", token.RefreshToken)))
			return nil
		},
	}

	cmd.Flags().StringVar(&tokenFile, "token-file", "$HOME/.config/flavyr/sheets-token.json", "Where to cache the OAuth2 token")
	cmd.Flags().IntVar(&port, "port", sheets.DefaultRedirectPort, "Local port for the OAuth2 callback")
	return cmd
}
