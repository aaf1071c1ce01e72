package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/sheets/v4"
)

// Defaults for the interactive authorization flow.
const (
	DefaultRedirectPort = 8085
	DefaultAuthTimeout  = 5 * time.Minute
)

// OAuth2Config identifies the OAuth client and where its token is cached.
type OAuth2Config struct {
	ClientID     string
	ClientSecret string
	// TokenFile caches the token between runs. Empty disables caching.
	TokenFile    string
	RedirectPort int
	Timeout      time.Duration
}

func (c OAuth2Config) oauth(redirect string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirect,
		Scopes:       []string{sheets.SpreadsheetsScope},
	}
}

// Authorizer runs the browser consent flow for spreadsheet access.
type Authorizer struct {
	config OAuth2Config
	out    io.Writer
	logger *slog.Logger
}

// NewAuthorizer creates an Authorizer that prints the consent URL to out.
func NewAuthorizer(config OAuth2Config, out io.Writer, logger *slog.Logger) *Authorizer {
	if config.RedirectPort == 0 {
		config.RedirectPort = DefaultRedirectPort
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultAuthTimeout
	}
	if out == nil {
		out = io.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Authorizer{config: config, out: out, logger: logger}
}

// Token returns the cached token, refreshed if expired, or runs the consent
// flow when there is none.
func (a *Authorizer) Token(ctx context.Context) (*oauth2.Token, error) {
	if a.config.TokenFile != "" {
		token, err := LoadToken(a.config.TokenFile)
		if err == nil {
			a.logger.Debug("loaded cached sheets token", "file", a.config.TokenFile)
			return RefreshTokenIfNeeded(ctx, a.config, token)
		}
		a.logger.Debug("no cached sheets token", "file", a.config.TokenFile, "error", err)
	}
	return a.Authorize(ctx)
}

type callbackResult struct {
	code string
	err  error
}

// Authorize waits for the browser callback on localhost and exchanges the
// code for a token with offline access.
func (a *Authorizer) Authorize(ctx context.Context) (*oauth2.Token, error) {
	ctx, cancel := context.WithTimeout(ctx, a.config.Timeout)
	defer cancel()

	addr := fmt.Sprintf("localhost:%d", a.config.RedirectPort)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen for the OAuth2 callback on %s: %w", addr, err)
	}

	oauthConfig := a.config.oauth("http://" + addr + "/callback")
	state := uuid.NewString()
	results := make(chan callbackResult, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("/callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		var res callbackResult
		switch {
		case q.Get("state") != state:
			res.err = errors.New("OAuth2 callback state mismatch")
		case q.Get("error") != "":
			res.err = fmt.Errorf("authorization denied: %s", q.Get("error"))
		case q.Get("code") == "":
			res.err = errors.New("no authorization code received")
		default:
			res.code = q.Get("code")
		}

		if res.err != nil {
			_, _ = fmt.Fprintf(w, "flavyr authorization failed: %v\n", res.err)
		} else {
			_, _ = fmt.Fprintln(w, "flavyr is authorized. You can close this window.")
		}
		select {
		case results <- res:
		default:
		}
	})

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			select {
			case results <- callbackResult{err: fmt.Errorf("callback server failed: %w", err)}:
			default:
			}
		}
	}()
	defer func() {
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := server.Shutdown(shutdownCtx); err != nil {
			a.logger.Warn("failed to stop OAuth2 callback server", "error", err)
		}
	}()

	authURL := oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce)
	_, _ = fmt.Fprintf(a.out, "Open this URL to authorize Google Sheets access:\n\n  %s\n\nWaiting for the browser...\n", authURL)

	var res callbackResult
	select {
	case res = <-results:
	case <-ctx.Done():
		return nil, fmt.Errorf("no authorization received: %w", ctx.Err())
	}
	if res.err != nil {
		return nil, res.err
	}

	token, err := oauthConfig.Exchange(ctx, res.code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange authorization code: %w", err)
	}
	a.cache(token)
	return token, nil
}

func (a *Authorizer) cache(token *oauth2.Token) {
	if a.config.TokenFile == "" {
		return
	}
	if err := saveToken(a.config.TokenFile, token); err != nil {
		a.logger.Warn("failed to cache sheets token", "file", a.config.TokenFile, "error", err)
		return
	}
	a.logger.Info("cached sheets token", "file", a.config.TokenFile)
}

// LoadToken reads a cached token.
func LoadToken(tokenFile string) (*oauth2.Token, error) {
	data, err := os.ReadFile(tokenFile) // #nosec G304
	if err != nil {
		return nil, err
	}
	token := &oauth2.Token{}
	if err := json.Unmarshal(data, token); err != nil {
		return nil, fmt.Errorf("failed to decode token %s: %w", tokenFile, err)
	}
	return token, nil
}

func saveToken(path string, token *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to encode token: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write token file: %w", err)
	}
	return nil
}

// RefreshTokenIfNeeded returns token unchanged while it is valid and
// otherwise refreshes and re-caches it.
func RefreshTokenIfNeeded(ctx context.Context, config OAuth2Config, token *oauth2.Token) (*oauth2.Token, error) {
	if token.Valid() {
		return token, nil
	}

	fresh, err := config.oauth("").TokenSource(ctx, token).Token()
	if err != nil {
		return nil, fmt.Errorf("failed to refresh token: %w", err)
	}
	if config.TokenFile != "" {
		if err := saveToken(config.TokenFile, fresh); err != nil {
			slog.Warn("failed to cache refreshed sheets token", "error", err)
		}
	}
	return fresh, nil
}
