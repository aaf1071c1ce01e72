// Package ingest reads uploaded restaurant data files into model types.
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Veraticus/flavyr/internal/common"
	"github.com/Veraticus/flavyr/internal/model"
	"github.com/xuri/excelize/v2"
)

// Restaurant upload columns.
const (
	ColDate        = "date"
	ColCuisineType = "cuisine_type"
	ColDiningModel = "dining_model"
)

// RestaurantColumns lists the required daily upload columns in file order.
var RestaurantColumns = []string{
	ColDate, ColCuisineType, ColDiningModel,
	model.KPIAvgTicket, model.KPICovers, model.KPILaborCostPct, model.KPIFoodCostPct,
	model.KPITableTurnover, model.KPISalesPerSqft, model.KPICustomerRepeat,
}

var (
	metricColumns = RestaurantColumns[3:]

	percentColumns = []string{model.KPILaborCostPct, model.KPIFoodCostPct, model.KPICustomerRepeat}

	nonNegativeColumns = []string{model.KPIAvgTicket, model.KPICovers, model.KPITableTurnover, model.KPISalesPerSqft}

	dateLayouts = []string{"2006-01-02", "2006/01/02", "01/02/2006", time.RFC3339}
)

// ReadRestaurantCSV parses a daily restaurant upload. On failure it returns
// the full list of problems found rather than stopping at the first.
func ReadRestaurantCSV(r io.Reader) ([]model.RestaurantDay, []string) {
	records, err := readCSV(r)
	if err != nil {
		return nil, []string{fmt.Sprintf("Error reading CSV file: %v", err)}
	}
	return parseRestaurantRecords(records)
}

// ReadRestaurantXLSX parses a daily upload from a workbook sheet. An empty
// sheet name reads the first sheet.
func ReadRestaurantXLSX(r io.Reader, sheet string) ([]model.RestaurantDay, []string) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, []string{fmt.Sprintf("Error reading workbook: %v", err)}
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return nil, []string{"Workbook has no sheets"}
		}
		sheet = sheets[0]
	}
	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, []string{fmt.Sprintf("Error reading sheet %q: %v", sheet, err)}
	}
	return parseRestaurantRecords(records)
}

func parseRestaurantRecords(records [][]string) ([]model.RestaurantDay, []string) {
	if len(records) == 0 {
		return nil, []string{"File is empty"}
	}
	cols := headerIndex(records[0])

	var missing []string
	for _, c := range RestaurantColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, []string{fmt.Sprintf("Missing required columns: %s", strings.Join(missing, ", "))}
	}

	data := records[1:]
	if len(data) == 0 {
		return nil, []string{"File has no data rows"}
	}

	var errs []string
	var badDates bool
	nonNumeric := map[string]bool{}
	blanks := map[string]int{}
	rows := make([]model.RestaurantDay, 0, len(data))

	for _, rec := range data {
		row := model.RestaurantDay{Values: make(map[string]float64, len(metricColumns))}
		for _, c := range RestaurantColumns {
			if cell(rec, cols[c]) == "" {
				blanks[c]++
			}
		}

		if raw := cell(rec, cols[ColDate]); raw != "" {
			d, err := parseDate(raw)
			if err != nil {
				badDates = true
			}
			row.Date = d
		}
		row.Segment = model.Segment{
			CuisineType: cell(rec, cols[ColCuisineType]),
			DiningModel: cell(rec, cols[ColDiningModel]),
		}
		for _, c := range metricColumns {
			raw := cell(rec, cols[c])
			if raw == "" {
				continue
			}
			v, err := parseNumber(raw)
			if err != nil {
				nonNumeric[c] = true
				continue
			}
			row.Values[c] = v
		}
		rows = append(rows, row)
	}

	if badDates {
		errs = append(errs, "'date' column contains invalid dates. Use format: YYYY-MM-DD")
	}
	for _, c := range metricColumns {
		if nonNumeric[c] {
			errs = append(errs, fmt.Sprintf("'%s' column contains non-numeric values", c))
		}
	}
	for _, c := range percentColumns {
		if outside(rows, c, 0, 100) {
			errs = append(errs, fmt.Sprintf("'%s' should be between 0 and 100", c))
		}
	}
	for _, c := range nonNegativeColumns {
		if outside(rows, c, 0, math.MaxFloat64) {
			errs = append(errs, fmt.Sprintf("'%s' should contain only positive values", c))
		}
	}
	for _, c := range RestaurantColumns {
		if n := blanks[c]; n > 0 {
			errs = append(errs, fmt.Sprintf("'%s' has %d missing values", c, n))
		}
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return rows, nil
}

func outside(rows []model.RestaurantDay, col string, lo, hi float64) bool {
	for _, r := range rows {
		if v, ok := r.Values[col]; ok && (v < lo || v > hi) {
			return true
		}
	}
	return false
}

// AggregateDaily collapses daily rows into one actual record: covers are
// summed and every other KPI is averaged. The segment comes from the first row.
func AggregateDaily(rows []model.RestaurantDay) (model.MetricRecord, error) {
	if len(rows) == 0 {
		return model.MetricRecord{}, fmt.Errorf("%w: no rows to aggregate", common.ErrInvalidInput)
	}

	record := model.NewMetricRecord(model.RecordActual, rows[0].Segment)
	for _, c := range metricColumns {
		var sum float64
		for i, r := range rows {
			v, ok := r.Values[c]
			if !ok {
				return model.MetricRecord{}, &common.MissingMetricError{
					KPI:    c,
					Record: fmt.Sprintf("row %d", i+1),
				}
			}
			sum += v
		}
		if c == model.KPICovers {
			record.Set(c, sum)
		} else {
			record.Set(c, sum/float64(len(rows)))
		}
	}
	return record, nil
}

func readCSV(r io.Reader) ([][]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true
	records, err := reader.ReadAll()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return nil, fmt.Errorf("line %d: %w", perr.Line, perr.Err)
		}
		return nil, err
	}
	return records, nil
}

// headerIndex maps trimmed column names to positions. The first occurrence
// of a duplicated name wins.
func headerIndex(header []string) map[string]int {
	idx := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if _, seen := idx[h]; !seen {
			idx[h] = i
		}
	}
	return idx
}

func cell(rec []string, i int) string {
	if i < 0 || i >= len(rec) {
		return ""
	}
	return strings.TrimSpace(rec[i])
}

// parseNumber parses a finite float. NaN and infinities count as non-numeric.
func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("non-finite number %q", s)
	}
	return v, nil
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q", s)
}
