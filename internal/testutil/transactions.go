package testutil

import (
	"fmt"
	"testing"
	"time"

	"github.com/Veraticus/flavyr/internal/model"
)

// TxnBuilder provides a fluent interface for constructing transaction batches.
//
// Example:
//
//	txns := testutil.NewTxnBuilder(t).
//		Add("2024-01-01", "C1", "Pasta", 24.50).
//		Repeat("2024-01-02", "C2", "Pizza", 18, 3).
//		Build()
type TxnBuilder struct {
	t    *testing.T
	txns []model.Transaction
}

// NewTxnBuilder starts an empty batch.
func NewTxnBuilder(t *testing.T) *TxnBuilder {
	t.Helper()
	return &TxnBuilder{t: t}
}

// Add appends one transaction dated YYYY-MM-DD. The weekday is taken from the date.
func (b *TxnBuilder) Add(date, customer, item string, amount float64) *TxnBuilder {
	b.t.Helper()
	d, err := time.Parse("2006-01-02", date)
	if err != nil {
		b.t.Fatalf("invalid test date %q: %v", date, err)
	}
	b.txns = append(b.txns, model.Transaction{
		Date:       d,
		CustomerID: customer,
		ItemName:   item,
		Amount:     amount,
		DayOfWeek:  d.Weekday(),
	})
	return b
}

// Repeat appends n identical transactions, each from a distinct customer
// derived from prefix.
func (b *TxnBuilder) Repeat(date, prefix, item string, amount float64, n int) *TxnBuilder {
	b.t.Helper()
	for i := 0; i < n; i++ {
		b.Add(date, fmt.Sprintf("%s-%d", prefix, i), item, amount)
	}
	return b
}

// Build returns the batch.
func (b *TxnBuilder) Build() []model.Transaction {
	out := make([]model.Transaction, len(b.txns))
	copy(out, b.txns)
	return out
}

// LoyaltyBatch returns a batch of customers where the first repeat customers
// visit twice and the rest once, spread over a week starting Monday 2024-01-01.
func LoyaltyBatch(t *testing.T, customers, repeat int) []model.Transaction {
	t.Helper()
	b := NewTxnBuilder(t)
	for i := 0; i < customers; i++ {
		id := fmt.Sprintf("C%03d", i)
		day := fmt.Sprintf("2024-01-%02d", 1+i%7)
		b.Add(day, id, "Burger", 15)
		if i < repeat {
			b.Add(fmt.Sprintf("2024-01-%02d", 8+i%7), id, "Fries", 5)
		}
	}
	return b.Build()
}
