package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/model"
)

// CreateCustomer inserts a customer record.
func (db *DB) CreateCustomer(ctx context.Context, c model.Customer) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	_, err := db.pool.Exec(ctx,
		`INSERT INTO customers (id, name, email, account_type, created_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		c.ID, c.Name, c.Email, c.AccountType, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("storage: create customer: %w", err)
	}
	return nil
}

// GetCustomer retrieves a customer by ID.
func (db *DB) GetCustomer(ctx context.Context, id uuid.UUID) (model.Customer, error) {
	var c model.Customer
	err := db.pool.QueryRow(ctx,
		`SELECT id, name, email, account_type, created_at FROM customers WHERE id = $1`, id,
	).Scan(&c.ID, &c.Name, &c.Email, &c.AccountType, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.Customer{}, fmt.Errorf("%w: customer %s", ErrNotFound, id)
		}
		return model.Customer{}, fmt.Errorf("storage: get customer: %w", err)
	}
	return c, nil
}

// ListCustomers returns customers ordered by name.
func (db *DB) ListCustomers(ctx context.Context, limit int) ([]model.Customer, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, name, email, account_type, created_at FROM customers ORDER BY name LIMIT $1`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list customers: %w", err)
	}
	defer rows.Close()

	var customers []model.Customer
	for rows.Next() {
		var c model.Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Email, &c.AccountType, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("storage: scan customer: %w", err)
		}
		customers = append(customers, c)
	}
	return customers, rows.Err()
}

// CountCustomers returns the number of customer records.
func (db *DB) CountCustomers(ctx context.Context) (int, error) {
	var count int
	if err := db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM customers`).Scan(&count); err != nil {
		return 0, fmt.Errorf("storage: count customers: %w", err)
	}
	return count, nil
}
