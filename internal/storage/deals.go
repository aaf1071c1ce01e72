package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Veraticus/flavyr/internal/model"
)

// GetDeals returns the deal catalogue in insertion order.
func (s *SQLiteStorage) GetDeals(ctx context.Context) ([]model.Deal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT business_problem, deal_types, rationale
		FROM deal_bank
		ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query deal bank: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var deals []model.Deal
	for rows.Next() {
		var d model.Deal
		if err := rows.Scan(&d.BusinessProblem, &d.DealTypes, &d.Rationale); err != nil {
			return nil, fmt.Errorf("failed to scan deal: %w", err)
		}
		deals = append(deals, d)
	}
	return deals, rows.Err()
}

// SaveDeals replaces the deal catalogue.
func (s *SQLiteStorage) SaveDeals(ctx context.Context, deals []model.Deal) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateDeals(deals); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return saveDealsTx(ctx, tx, deals)
	})
}

func saveDealsTx(ctx context.Context, q queryable, deals []model.Deal) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM deal_bank`); err != nil {
		return fmt.Errorf("failed to clear deal bank: %w", err)
	}
	for _, d := range deals {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO deal_bank (business_problem, deal_types, rationale) VALUES (?, ?, ?)`,
			d.BusinessProblem, d.DealTypes, d.Rationale,
		); err != nil {
			return fmt.Errorf("failed to insert deal for %q: %w", d.BusinessProblem, err)
		}
	}
	return nil
}

// GetTransactionDealMappings returns the tactical mapping table ordered by
// priority, then key.
func (s *SQLiteStorage) GetTransactionDealMappings(ctx context.Context) ([]model.DealMapping, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT transaction_metric, business_problem, priority
		FROM transaction_deal_mapping
		ORDER BY priority, transaction_metric`)
	if err != nil {
		return nil, fmt.Errorf("failed to query deal mappings: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var mappings []model.DealMapping
	for rows.Next() {
		var m model.DealMapping
		if err := rows.Scan(&m.Key, &m.BusinessProblem, &m.Priority); err != nil {
			return nil, fmt.Errorf("failed to scan deal mapping: %w", err)
		}
		mappings = append(mappings, m)
	}
	return mappings, rows.Err()
}

// SaveDealMappings replaces the tactical mapping table.
func (s *SQLiteStorage) SaveDealMappings(ctx context.Context, mappings []model.DealMapping) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateDealMappings(mappings); err != nil {
		return err
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return saveDealMappingsTx(ctx, tx, mappings)
	})
}

func saveDealMappingsTx(ctx context.Context, q queryable, mappings []model.DealMapping) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM transaction_deal_mapping`); err != nil {
		return fmt.Errorf("failed to clear deal mappings: %w", err)
	}
	for _, m := range mappings {
		if _, err := q.ExecContext(ctx,
			`INSERT INTO transaction_deal_mapping (transaction_metric, business_problem, priority) VALUES (?, ?, ?)`,
			m.Key, m.BusinessProblem, m.Priority,
		); err != nil {
			return fmt.Errorf("failed to insert deal mapping %q: %w", m.Key, err)
		}
	}
	return nil
}
