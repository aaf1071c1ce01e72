package ingest

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/Veraticus/flavyr/internal/model"
)

// Row is one uploaded record keyed by column name, as decoded from a JSON
// request body.
type Row map[string]any

// ReadRestaurantRows parses daily rows with the same checks as a CSV upload.
func ReadRestaurantRows(rows []Row) ([]model.RestaurantDay, []string) {
	return parseRestaurantRecords(rowRecords(RestaurantColumns, rows))
}

// ReadTransactionRows validates and prepares transactions with the same
// checks as a CSV upload.
func ReadTransactionRows(rows []Row) (*TransactionBatch, error) {
	return parseTransactionRecords(rowRecords(TransactionColumns, rows))
}

// rowRecords lays rows out as a header plus one record per row. Keys outside
// cols are ignored and missing keys become blank cells.
func rowRecords(cols []string, rows []Row) [][]string {
	if len(rows) == 0 {
		return nil
	}
	records := make([][]string, 0, len(rows)+1)
	records = append(records, cols)
	for _, row := range rows {
		rec := make([]string, len(cols))
		for i, c := range cols {
			rec[i] = rowCell(row[c])
		}
		records = append(records, rec)
	}
	return records
}

func rowCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	default:
		return fmt.Sprint(x)
	}
}
