package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/Veraticus/flavyr/internal/common"
	"github.com/Veraticus/flavyr/internal/pipeline"
	"github.com/Veraticus/flavyr/internal/report"
	"github.com/Veraticus/flavyr/internal/service"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

// Writer pushes report tables to a Google spreadsheet.
type Writer struct {
	api    spreadsheetAPI
	logger *slog.Logger
	config Config
}

// NewWriter creates a new Google Sheets report writer.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	srv, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return newWriter(serviceAPI{srv: srv}, config, logger), nil
}

func newWriter(api spreadsheetAPI, config Config, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Writer{api: api, config: config, logger: logger}
}

// Write replaces the contents of every report tab with res and returns the
// spreadsheet ID.
func (w *Writer) Write(ctx context.Context, res *pipeline.Result) (string, error) {
	if res == nil {
		return "", fmt.Errorf("no result to write")
	}
	tables := report.Tables(res)

	w.logger.Info("starting report upload",
		"run_id", res.ID,
		"segment", res.Segment.String(),
		"tabs", len(tables))

	retryOpts := service.RetryOptions{
		MaxAttempts:  w.config.RetryAttempts,
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	var (
		spreadsheetID string
		tabIDs        map[string]int64
	)
	err := common.WithRetry(ctx, func() error {
		var err error
		spreadsheetID, tabIDs, err = w.getOrCreateSpreadsheet(ctx, tables)
		return err
	}, retryOpts)
	if err != nil {
		return "", fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	var rows int
	for _, t := range tables {
		values := tabValues(t)
		err := common.WithRetry(ctx, func() error {
			if err := w.api.Clear(ctx, spreadsheetID, quote(t.Name)); err != nil {
				return fmt.Errorf("failed to clear %s: %w", t.Name, err)
			}
			return w.writeData(ctx, spreadsheetID, t.Name, values)
		}, retryOpts)
		if err != nil {
			return "", fmt.Errorf("failed to write %s: %w", t.Name, err)
		}
		rows += len(values)
	}

	if w.config.EnableFormatting {
		err = common.WithRetry(ctx, func() error {
			return w.applyFormatting(ctx, spreadsheetID, tables, tabIDs)
		}, retryOpts)
		if err != nil {
			w.logger.Warn("failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("report upload completed",
		"spreadsheet_id", spreadsheetID,
		"rows_written", rows)

	return spreadsheetID, nil
}

// createSheetsService creates a Google Sheets API service.
func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}

		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		client := &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheets.SpreadsheetsScope},
		}

		token := &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		}

		tokenSource = client.TokenSource(ctx, token)
	}

	httpClient := oauth2.NewClient(ctx, tokenSource)
	srv, err := sheets.NewService(ctx, option.WithHTTPClient(httpClient))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}

	return srv, nil
}

// getOrCreateSpreadsheet opens the configured spreadsheet, adding any
// missing tabs, or creates a new one. It returns the tab IDs by title.
func (w *Writer) getOrCreateSpreadsheet(ctx context.Context, tables []report.Table) (string, map[string]int64, error) {
	if w.config.SpreadsheetID == "" {
		spreadsheet := &sheets.Spreadsheet{
			Properties: &sheets.SpreadsheetProperties{
				Title:    w.config.SpreadsheetName,
				TimeZone: w.config.TimeZone,
			},
		}
		for _, t := range tables {
			spreadsheet.Sheets = append(spreadsheet.Sheets, &sheets.Sheet{
				Properties: &sheets.SheetProperties{Title: t.Name},
			})
		}

		created, err := w.api.Create(ctx, spreadsheet)
		if err != nil {
			return "", nil, fmt.Errorf("unable to create spreadsheet: %w", err)
		}

		w.logger.Info("created new spreadsheet",
			"id", created.SpreadsheetId,
			"url", created.SpreadsheetUrl)

		// Later runs write to the same spreadsheet.
		w.config.SpreadsheetID = created.SpreadsheetId
		return created.SpreadsheetId, sheetIDs(created), nil
	}

	existing, err := w.api.Get(ctx, w.config.SpreadsheetID)
	if err != nil {
		return "", nil, fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
	}
	ids := sheetIDs(existing)

	var add []*sheets.Request
	for _, t := range tables {
		if _, ok := ids[t.Name]; !ok {
			add = append(add, &sheets.Request{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: t.Name},
				},
			})
		}
	}
	if len(add) > 0 {
		resp, err := w.api.BatchUpdate(ctx, w.config.SpreadsheetID, add)
		if err != nil {
			return "", nil, fmt.Errorf("unable to add report tabs: %w", err)
		}
		for _, reply := range resp.Replies {
			if reply != nil && reply.AddSheet != nil && reply.AddSheet.Properties != nil {
				ids[reply.AddSheet.Properties.Title] = reply.AddSheet.Properties.SheetId
			}
		}
		w.logger.Debug("added report tabs", "count", len(add))
	}
	return w.config.SpreadsheetID, ids, nil
}

func sheetIDs(s *sheets.Spreadsheet) map[string]int64 {
	ids := make(map[string]int64, len(s.Sheets))
	for _, sh := range s.Sheets {
		if sh.Properties != nil {
			ids[sh.Properties.Title] = sh.Properties.SheetId
		}
	}
	return ids
}

// writeData writes values to a tab in batches to stay under API limits.
func (w *Writer) writeData(ctx context.Context, spreadsheetID, tab string, values [][]any) error {
	for i := 0; i < len(values); i += w.config.BatchSize {
		end := i + w.config.BatchSize
		if end > len(values) {
			end = len(values)
		}

		batch := values[i:end]
		rangeStr := fmt.Sprintf("%s!A%d", quote(tab), i+1)
		if err := w.api.Update(ctx, spreadsheetID, rangeStr, batch); err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}

		w.logger.Debug("wrote batch", "tab", tab, "start_row", i+1, "rows", len(batch))
	}

	return nil
}

// applyFormatting bolds and freezes each header row and sizes the columns.
func (w *Writer) applyFormatting(ctx context.Context, spreadsheetID string, tables []report.Table, tabIDs map[string]int64) error {
	var requests []*sheets.Request
	for _, t := range tables {
		id, ok := tabIDs[t.Name]
		if !ok {
			continue
		}
		requests = append(requests,
			&sheets.Request{
				RepeatCell: &sheets.RepeatCellRequest{
					Range: &sheets.GridRange{
						SheetId:          id,
						StartRowIndex:    0,
						EndRowIndex:      1,
						StartColumnIndex: 0,
						EndColumnIndex:   int64(len(t.Header)),
					},
					Cell: &sheets.CellData{
						UserEnteredFormat: &sheets.CellFormat{
							TextFormat: &sheets.TextFormat{Bold: true},
						},
					},
					Fields: "userEnteredFormat.textFormat",
				},
			},
			&sheets.Request{
				UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
					Properties: &sheets.SheetProperties{
						SheetId: id,
						GridProperties: &sheets.GridProperties{
							FrozenRowCount: 1,
						},
					},
					Fields: "gridProperties.frozenRowCount",
				},
			},
			&sheets.Request{
				AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
					Dimensions: &sheets.DimensionRange{
						SheetId:    id,
						Dimension:  "COLUMNS",
						StartIndex: 0,
						EndIndex:   int64(len(t.Header)),
					},
				},
			},
		)
	}
	if len(requests) == 0 {
		return nil
	}

	_, err := w.api.BatchUpdate(ctx, spreadsheetID, requests)
	return err
}

// tabValues lays out a table as header row plus data rows.
func tabValues(t report.Table) [][]any {
	values := make([][]any, 0, len(t.Rows)+1)
	header := make([]any, len(t.Header))
	for i, h := range t.Header {
		header[i] = h
	}
	values = append(values, header)
	return append(values, t.Rows...)
}

func quote(tab string) string {
	return "'" + tab + "'"
}
