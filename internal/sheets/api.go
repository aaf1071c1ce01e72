package sheets

import (
	"context"

	"google.golang.org/api/sheets/v4"
)

// spreadsheetAPI is the subset of the Sheets service the writer uses.
type spreadsheetAPI interface {
	Get(ctx context.Context, id string) (*sheets.Spreadsheet, error)
	Create(ctx context.Context, s *sheets.Spreadsheet) (*sheets.Spreadsheet, error)
	Clear(ctx context.Context, id, rng string) error
	Update(ctx context.Context, id, rng string, values [][]any) error
	BatchUpdate(ctx context.Context, id string, requests []*sheets.Request) (*sheets.BatchUpdateSpreadsheetResponse, error)
}

type serviceAPI struct {
	srv *sheets.Service
}

func (a serviceAPI) Get(ctx context.Context, id string) (*sheets.Spreadsheet, error) {
	return a.srv.Spreadsheets.Get(id).Context(ctx).Do()
}

func (a serviceAPI) Create(ctx context.Context, s *sheets.Spreadsheet) (*sheets.Spreadsheet, error) {
	return a.srv.Spreadsheets.Create(s).Context(ctx).Do()
}

func (a serviceAPI) Clear(ctx context.Context, id, rng string) error {
	_, err := a.srv.Spreadsheets.Values.Clear(id, rng, &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

func (a serviceAPI) Update(ctx context.Context, id, rng string, values [][]any) error {
	_, err := a.srv.Spreadsheets.Values.Update(id, rng, &sheets.ValueRange{Values: values}).
		ValueInputOption("USER_ENTERED").
		Context(ctx).
		Do()
	return err
}

func (a serviceAPI) BatchUpdate(ctx context.Context, id string, requests []*sheets.Request) (*sheets.BatchUpdateSpreadsheetResponse, error) {
	return a.srv.Spreadsheets.BatchUpdate(id, &sheets.BatchUpdateSpreadsheetRequest{Requests: requests}).Context(ctx).Do()
}
