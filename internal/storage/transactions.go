package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/model"
)

// InsertTransactions bulk-loads transactions with COPY. Used by the
// seeder; the workflow itself only reads this table.
func (db *DB) InsertTransactions(ctx context.Context, txns []model.Transaction) error {
	if len(txns) == 0 {
		return nil
	}
	rows := make([][]any, len(txns))
	for i, t := range txns {
		rows[i] = []any{t.ID, t.CustomerID, t.Amount, t.Currency, t.Merchant, t.Category, t.OccurredAt, t.IsAnomaly}
	}
	_, err := db.pool.CopyFrom(ctx,
		pgx.Identifier{"transactions"},
		[]string{"id", "customer_id", "amount", "currency", "merchant", "category", "occurred_at", "is_anomaly"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return fmt.Errorf("storage: copy transactions: %w", err)
	}
	return nil
}

// TransactionsByCustomer returns a customer's transactions inside
// [start, end], oldest first.
func (db *DB) TransactionsByCustomer(ctx context.Context, customerID uuid.UUID, start, end time.Time) ([]model.Transaction, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, customer_id, amount, currency, merchant, category, occurred_at, is_anomaly
		 FROM transactions
		 WHERE customer_id = $1 AND occurred_at >= $2 AND occurred_at <= $3
		 ORDER BY occurred_at`,
		customerID, start, end,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: query transactions: %w", err)
	}
	defer rows.Close()

	var txns []model.Transaction
	for rows.Next() {
		var t model.Transaction
		if err := rows.Scan(
			&t.ID, &t.CustomerID, &t.Amount, &t.Currency, &t.Merchant,
			&t.Category, &t.OccurredAt, &t.IsAnomaly,
		); err != nil {
			return nil, fmt.Errorf("storage: scan transaction: %w", err)
		}
		txns = append(txns, t)
	}
	return txns, rows.Err()
}

// CountTransactions returns the number of transaction records.
func (db *DB) CountTransactions(ctx context.Context) (int, error) {
	var count int
	if err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM transactions`).Scan(&count); err != nil {
		return 0, fmt.Errorf("storage: count transactions: %w", err)
	}
	return count, nil
}
