package model

import (
	"time"

	"github.com/google/uuid"
)

// Customer is a synthetic demo account under review.
type Customer struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Email       string    `json:"email"`
	AccountType string    `json:"account_type"` // checking, savings, business
	CreatedAt   time.Time `json:"created_at"`
}

// Transaction is one synthetic card transaction, optionally pre-labeled
// as anomalous by the data generator.
type Transaction struct {
	ID         uuid.UUID `json:"id"`
	CustomerID uuid.UUID `json:"customer_id"`
	Amount     float64   `json:"amount"`
	Currency   string    `json:"currency"`
	Merchant   string    `json:"merchant"`
	Category   string    `json:"category"`
	OccurredAt time.Time `json:"occurred_at"`
	IsAnomaly  bool      `json:"is_anomaly"`
}
