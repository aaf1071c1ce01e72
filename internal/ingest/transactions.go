package ingest

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/flavyr/internal/common"
	"github.com/Veraticus/flavyr/internal/model"
)

// Transaction upload columns.
const (
	ColTotal      = "total"
	ColCustomerID = "customer_id"
	ColItemName   = "item_name"
	ColDayOfWeek  = "day_of_week"
)

// TransactionColumns lists the required transaction upload columns.
var TransactionColumns = []string{ColDate, ColTotal, ColCustomerID, ColItemName, ColDayOfWeek}

// Data quality thresholds below which a warning is raised.
const (
	MinTransactions = 30
	MinCustomers    = 10
	MinItems        = 5
	MinDaySpan      = 7
)

// Validation collects blocking errors and advisory warnings for an upload.
type Validation struct {
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// Valid reports whether the upload had no blocking errors.
func (v Validation) Valid() bool {
	return len(v.Errors) == 0
}

// ValidationError is returned when an upload has blocking errors.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Errors, "; ")
}

func (e *ValidationError) Unwrap() error {
	return common.ErrInvalidInput
}

// TransactionBatch is a prepared transaction upload.
type TransactionBatch struct {
	Transactions []model.Transaction
	Validation   Validation
	// Dropped counts rows removed during preparation.
	Dropped int
}

type rawTransaction struct {
	txn model.Transaction
	ok  bool
}

// ReadTransactionCSV validates and prepares a transaction upload. The batch
// is returned even when validation fails so callers can show every message;
// the error is then a *ValidationError.
func ReadTransactionCSV(r io.Reader) (*TransactionBatch, error) {
	records, err := readCSV(r)
	if err != nil {
		return nil, fmt.Errorf("error reading CSV file: %w", err)
	}
	return parseTransactionRecords(records)
}

func parseTransactionRecords(records [][]string) (*TransactionBatch, error) {
	batch := &TransactionBatch{}
	v := &batch.Validation

	if len(records) == 0 {
		v.Errors = append(v.Errors, "CSV file is empty")
		return batch, &ValidationError{Errors: v.Errors}
	}

	cols := headerIndex(records[0])
	var missing []string
	for _, c := range TransactionColumns {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		v.Errors = append(v.Errors, fmt.Sprintf("Missing required columns: %s", strings.Join(missing, ", ")))
		return batch, &ValidationError{Errors: v.Errors}
	}

	data := records[1:]
	if len(data) == 0 {
		v.Errors = append(v.Errors, "CSV file is empty")
		return batch, &ValidationError{Errors: v.Errors}
	}

	var badDates, badTotals, badDays, nonPositive int
	var minDate, maxDate time.Time
	blanks := map[string]int{}
	customers := map[string]struct{}{}
	items := map[string]struct{}{}
	raws := make([]rawTransaction, 0, len(data))

	for _, rec := range data {
		raw := rawTransaction{ok: true}
		for _, c := range TransactionColumns {
			if cell(rec, cols[c]) == "" {
				blanks[c]++
				raw.ok = false
			}
		}

		if s := cell(rec, cols[ColDate]); s != "" {
			d, err := time.Parse("2006-01-02", s)
			if err != nil {
				badDates++
				raw.ok = false
			} else {
				raw.txn.Date = d
				if minDate.IsZero() || d.Before(minDate) {
					minDate = d
				}
				if d.After(maxDate) {
					maxDate = d
				}
			}
		}

		if s := cell(rec, cols[ColTotal]); s != "" {
			t, err := parseNumber(s)
			if err != nil {
				badTotals++
				raw.ok = false
			} else {
				raw.txn.Amount = t
				if t <= 0 {
					nonPositive++
				}
			}
		}

		if s := cell(rec, cols[ColDayOfWeek]); s != "" {
			d, err := model.ParseWeekday(s)
			if err != nil {
				badDays++
				raw.ok = false
			}
			raw.txn.DayOfWeek = d
		}

		raw.txn.CustomerID = cell(rec, cols[ColCustomerID])
		raw.txn.ItemName = cell(rec, cols[ColItemName])
		if raw.txn.CustomerID != "" {
			customers[raw.txn.CustomerID] = struct{}{}
		}
		if raw.txn.ItemName != "" {
			items[raw.txn.ItemName] = struct{}{}
		}
		raws = append(raws, raw)
	}

	if badDates > 0 {
		v.Errors = append(v.Errors, fmt.Sprintf("%d invalid date(s) found - use YYYY-MM-DD format", badDates))
	}
	if badTotals > 0 {
		v.Errors = append(v.Errors, fmt.Sprintf("%d non-numeric transaction total(s) found", badTotals))
	}
	if badDays > 0 {
		v.Errors = append(v.Errors, fmt.Sprintf("%d invalid day_of_week values - must be full day names (Monday, Tuesday, etc.)", badDays))
	}
	for _, c := range TransactionColumns {
		if n := blanks[c]; n > 0 {
			v.Errors = append(v.Errors, fmt.Sprintf("%d missing value(s) in '%s' column", n, c))
		}
	}

	if nonPositive > 0 {
		v.Warnings = append(v.Warnings, fmt.Sprintf("%d transaction(s) with zero or negative totals", nonPositive))
	}
	if len(data) < MinTransactions {
		v.Warnings = append(v.Warnings, fmt.Sprintf("Only %d transactions - recommend at least %d for meaningful analysis", len(data), MinTransactions))
	}
	if len(customers) < MinCustomers {
		v.Warnings = append(v.Warnings, fmt.Sprintf("Only %d unique customers - results may not be representative", len(customers)))
	}
	if len(items) < MinItems {
		v.Warnings = append(v.Warnings, fmt.Sprintf("Only %d unique items - limited menu analysis possible", len(items)))
	}
	if !minDate.IsZero() {
		if span := int(maxDate.Sub(minDate).Hours() / 24); span < MinDaySpan {
			v.Warnings = append(v.Warnings, fmt.Sprintf("Data spans only %d days - recommend at least %d days for day-of-week analysis", span, MinDaySpan))
		}
	}

	if !v.Valid() {
		return batch, &ValidationError{Errors: v.Errors}
	}

	batch.Transactions = prepare(raws)
	batch.Dropped = len(raws) - len(batch.Transactions)
	if len(batch.Transactions) == 0 {
		v.Errors = append(v.Errors, "No usable transactions after cleaning - every total is zero or negative")
		return batch, &ValidationError{Errors: v.Errors}
	}
	return batch, nil
}

// prepare keeps complete rows with a positive total, sorted by date.
func prepare(raws []rawTransaction) []model.Transaction {
	out := make([]model.Transaction, 0, len(raws))
	for _, r := range raws {
		if !r.ok || r.txn.Amount <= 0 {
			continue
		}
		out = append(out, r.txn)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	return out
}
