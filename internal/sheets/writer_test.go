package sheets

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/flavyr/internal/common"
	"github.com/Veraticus/flavyr/internal/pipeline"
	"github.com/Veraticus/flavyr/internal/report"
	"github.com/Veraticus/flavyr/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/sheets/v4"
)

type update struct {
	rng    string
	values [][]any
}

// fakeAPI keeps an in-memory spreadsheet.
type fakeAPI struct {
	getErr    error
	updateErr error
	existing  *sheets.Spreadsheet
	created   []*sheets.Spreadsheet
	cleared   []string
	updates   []update
	batches   [][]*sheets.Request
	nextID    int64
	mu        sync.Mutex
}

func (f *fakeAPI) Get(_ context.Context, id string) (*sheets.Spreadsheet, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.existing == nil || f.existing.SpreadsheetId != id {
		return nil, fmt.Errorf("spreadsheet %s not found", id)
	}
	return f.existing, nil
}

func (f *fakeAPI) Create(_ context.Context, s *sheets.Spreadsheet) (*sheets.Spreadsheet, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, s)
	for _, sh := range s.Sheets {
		f.nextID++
		sh.Properties.SheetId = f.nextID
	}
	s.SpreadsheetId = "created-1"
	s.SpreadsheetUrl = "https://docs.google.com/spreadsheets/d/created-1"
	f.existing = s
	return s, nil
}

func (f *fakeAPI) Clear(_ context.Context, _ string, rng string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared = append(f.cleared, rng)
	return nil
}

func (f *fakeAPI) Update(_ context.Context, _ string, rng string, values [][]any) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates = append(f.updates, update{rng: rng, values: values})
	return nil
}

func (f *fakeAPI) BatchUpdate(_ context.Context, _ string, reqs []*sheets.Request) (*sheets.BatchUpdateSpreadsheetResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.batches = append(f.batches, reqs)
	resp := &sheets.BatchUpdateSpreadsheetResponse{}
	for _, r := range reqs {
		reply := &sheets.Response{}
		if r.AddSheet != nil {
			f.nextID++
			props := *r.AddSheet.Properties
			props.SheetId = f.nextID
			reply.AddSheet = &sheets.AddSheetResponse{Properties: &props}
		}
		resp.Replies = append(resp.Replies, reply)
	}
	return resp, nil
}

func (f *fakeAPI) rowsFor(tab string) int {
	n := 0
	for _, u := range f.updates {
		if strings.HasPrefix(u.rng, quote(tab)+"!") {
			n += len(u.values)
		}
	}
	return n
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.BatchSize = 2
	cfg.RetryAttempts = 1
	cfg.RetryDelay = time.Millisecond
	return cfg
}

func aggregateResult(t *testing.T) *pipeline.Result {
	t.Helper()
	db := testutil.SetupSeededDB(t)
	p, err := pipeline.New(pipeline.Deps{Benchmarks: db.Storage, Deals: db.Storage})
	require.NoError(t, err)

	res, err := p.RunAggregate(context.Background(), db.Actual(testutil.CasualAmerican, 0.5))
	require.NoError(t, err)
	return res
}

func TestWriter_CreatesSpreadsheet(t *testing.T) {
	res := aggregateResult(t)
	api := &fakeAPI{}
	w := newWriter(api, testConfig(), nil)
	ctx := context.Background()

	id, err := w.Write(ctx, res)
	require.NoError(t, err)
	assert.Equal(t, "created-1", id)

	require.Len(t, api.created, 1)
	assert.Equal(t, DefaultSpreadsheetName, api.created[0].Properties.Title)
	require.Len(t, api.created[0].Sheets, 4)
	assert.Equal(t, report.TableGaps, api.created[0].Sheets[1].Properties.Title)

	assert.Equal(t, []string{"'Summary'", "'KPI Gaps'", "'Tactical'", "'Recommendations'"}, api.cleared)

	for _, tb := range report.Tables(res) {
		assert.Equal(t, len(tb.Rows)+1, api.rowsFor(tb.Name), tb.Name)
	}

	// A second write reuses the spreadsheet.
	id, err = w.Write(ctx, res)
	require.NoError(t, err)
	assert.Equal(t, "created-1", id)
	assert.Len(t, api.created, 1)
}

// batchStarts returns the ranges written for tab.
func batchStarts(api *fakeAPI, tab string) []string {
	var out []string
	for _, u := range api.updates {
		if strings.HasPrefix(u.rng, quote(tab)+"!") {
			out = append(out, u.rng)
		}
	}
	return out
}

func TestWriter_Batches(t *testing.T) {
	res := aggregateResult(t)
	api := &fakeAPI{}
	w := newWriter(api, testConfig(), nil)

	_, err := w.Write(context.Background(), res)
	require.NoError(t, err)

	// 7 KPI rows plus header in batches of two.
	assert.Equal(t, []string{
		"'KPI Gaps'!A1",
		"'KPI Gaps'!A3",
		"'KPI Gaps'!A5",
		"'KPI Gaps'!A7",
	}, batchStarts(api, report.TableGaps))
	for _, u := range api.updates {
		assert.LessOrEqual(t, len(u.values), 2)
	}
}

func TestWriter_ExistingSpreadsheetAddsMissingTabs(t *testing.T) {
	res := aggregateResult(t)
	api := &fakeAPI{
		nextID: 10,
		existing: &sheets.Spreadsheet{
			SpreadsheetId: "existing",
			Sheets: []*sheets.Sheet{
				{Properties: &sheets.SheetProperties{Title: report.TableSummary, SheetId: 1}},
				{Properties: &sheets.SheetProperties{Title: report.TableGaps, SheetId: 2}},
			},
		},
	}
	cfg := testConfig()
	cfg.SpreadsheetID = "existing"
	w := newWriter(api, cfg, nil)

	id, err := w.Write(context.Background(), res)
	require.NoError(t, err)
	assert.Equal(t, "existing", id)
	assert.Empty(t, api.created)

	require.Len(t, api.batches, 2, "one add-sheet batch then formatting")
	add := api.batches[0]
	require.Len(t, add, 2)
	assert.Equal(t, report.TableTactical, add[0].AddSheet.Properties.Title)
	assert.Equal(t, report.TableRecommendations, add[1].AddSheet.Properties.Title)

	// Formatting covers all four tabs with three requests each.
	format := api.batches[1]
	require.Len(t, format, 12)
	assert.Equal(t, int64(1), format[0].RepeatCell.Range.SheetId)
	assert.Equal(t, int64(11), format[6].RepeatCell.Range.SheetId)
	assert.Equal(t, int64(1), format[1].UpdateSheetProperties.Properties.GridProperties.FrozenRowCount)
}

func TestWriter_FormattingDisabled(t *testing.T) {
	res := aggregateResult(t)
	api := &fakeAPI{}
	cfg := testConfig()
	cfg.EnableFormatting = false

	_, err := newWriter(api, cfg, nil).Write(context.Background(), res)
	require.NoError(t, err)
	assert.Empty(t, api.batches)
}

func TestWriter_Errors(t *testing.T) {
	res := aggregateResult(t)
	ctx := context.Background()

	_, err := newWriter(&fakeAPI{}, testConfig(), nil).Write(ctx, nil)
	assert.Error(t, err)

	cfg := testConfig()
	cfg.SpreadsheetID = "missing"
	_, err = newWriter(&fakeAPI{getErr: errors.New("forbidden")}, cfg, nil).Write(ctx, res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to get spreadsheet")
	assert.ErrorIs(t, err, common.ErrMaxRetries)

	api := &fakeAPI{updateErr: &common.RetryableError{Err: errors.New("quota"), Retryable: false}}
	_, err = newWriter(api, testConfig(), nil).Write(ctx, res)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write Summary")
}

func TestNewWriter_InvalidConfig(t *testing.T) {
	_, err := NewWriter(context.Background(), DefaultConfig(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no authentication method configured")
}

func TestMockWriter(t *testing.T) {
	res := aggregateResult(t)
	m := NewMockWriter()

	id, err := m.Write(context.Background(), res)
	require.NoError(t, err)
	assert.Equal(t, "mock-spreadsheet", id)
	assert.Equal(t, 1, m.Calls())

	m.WriteFunc = func(context.Context, *pipeline.Result) (string, error) {
		return "", errors.New("boom")
	}
	_, err = m.Write(context.Background(), res)
	assert.Error(t, err)
	assert.Equal(t, 2, m.Calls())
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	token := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour).Truncate(time.Second),
	}

	require.NoError(t, saveToken(path, token))

	loaded, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, token.RefreshToken, loaded.RefreshToken)
	assert.True(t, token.Expiry.Equal(loaded.Expiry))

	// Valid tokens come back unchanged.
	same, err := RefreshTokenIfNeeded(context.Background(), OAuth2Config{}, loaded)
	require.NoError(t, err)
	assert.Same(t, loaded, same)

	_, err = LoadToken(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

type urlWriter chan string

func (w urlWriter) Write(p []byte) (int, error) {
	w <- string(p)
	return len(p), nil
}

func freePort(t *testing.T) int {
	t.Helper()
	l, err := net.Listen("tcp", "localhost:0")
	require.NoError(t, err)
	port := l.Addr().(*net.TCPAddr).Port
	require.NoError(t, l.Close())
	return port
}

func TestAuthorizer_CallbackErrors(t *testing.T) {
	tests := []struct {
		name  string
		query func(state string) url.Values
		want  string
	}{
		{
			name:  "state mismatch",
			query: func(string) url.Values { return url.Values{"state": {"forged"}, "code": {"abc"}} },
			want:  "state mismatch",
		},
		{
			name:  "denied",
			query: func(state string) url.Values { return url.Values{"state": {state}, "error": {"access_denied"}} },
			want:  "authorization denied: access_denied",
		},
		{
			name:  "no code",
			query: func(state string) url.Values { return url.Values{"state": {state}} },
			want:  "no authorization code received",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			port := freePort(t)
			out := make(urlWriter, 1)
			a := NewAuthorizer(OAuth2Config{ClientID: "id", ClientSecret: "secret", RedirectPort: port, Timeout: 10 * time.Second}, out, nil)

			errc := make(chan error, 1)
			go func() {
				_, err := a.Authorize(context.Background())
				errc <- err
			}()

			msg := <-out
			start := strings.Index(msg, "https://")
			require.GreaterOrEqual(t, start, 0, msg)
			authURL, err := url.Parse(strings.Fields(msg[start:])[0])
			require.NoError(t, err)
			state := authURL.Query().Get("state")
			require.NotEmpty(t, state)
			assert.Equal(t, fmt.Sprintf("http://localhost:%d/callback", port), authURL.Query().Get("redirect_uri"))

			resp, err := http.Get(fmt.Sprintf("http://localhost:%d/callback?%s", port, tt.query(state).Encode()))
			require.NoError(t, err)
			_ = resp.Body.Close()

			err = <-errc
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestAuthorizer_Timeout(t *testing.T) {
	a := NewAuthorizer(OAuth2Config{RedirectPort: freePort(t), Timeout: 20 * time.Millisecond}, nil, nil)
	_, err := a.Authorize(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestAuthorizer_Token_UsesCache(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	require.NoError(t, saveToken(path, &oauth2.Token{
		AccessToken: "cached",
		Expiry:      time.Now().Add(time.Hour),
	}))

	token, err := NewAuthorizer(OAuth2Config{TokenFile: path}, nil, nil).Token(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "cached", token.AccessToken)
}
