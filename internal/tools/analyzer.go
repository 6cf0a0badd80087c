package tools

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/model"
)

// TransactionStore loads a customer's transactions inside a time window.
// Implemented by the storage layer; tests substitute an in-memory fake.
type TransactionStore interface {
	TransactionsByCustomer(ctx context.Context, customerID uuid.UUID, start, end time.Time) ([]model.Transaction, error)
}

const analyzerSchema = `{
	"type": "object",
	"properties": {
		"customer_id": {"type": "string"},
		"window_days": {"type": "integer", "minimum": 1, "maximum": 365},
		"include_anomalies": {"type": "boolean"}
	},
	"required": ["customer_id"],
	"additionalProperties": false
}`

// Analyzer summarizes a customer's transaction activity: volume, amount
// statistics, category breakdown, merchants, and the labeled anomaly count.
type Analyzer struct {
	store TransactionStore
}

// NewAnalyzer creates the transaction_analyzer tool.
func NewAnalyzer(store TransactionStore) *Analyzer {
	return &Analyzer{store: store}
}

func (a *Analyzer) Name() string        { return "transaction_analyzer" }
func (a *Analyzer) InputSchema() string { return analyzerSchema }

// Execute analyzes transactions in the window. An empty window yields a
// zeroed summary, not an error.
func (a *Analyzer) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	customerID, err := uuid.Parse(getString(input, "customer_id"))
	if err != nil {
		return nil, fmt.Errorf("tools: parse customer_id: %w", err)
	}
	windowDays := getInt(input, "window_days", 30)
	includeAnomalies := getBool(input, "include_anomalies", true)

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -windowDays)

	txns, err := a.store.TransactionsByCustomer(ctx, customerID, start, end)
	if err != nil {
		return nil, fmt.Errorf("tools: load transactions: %w", err)
	}
	if !includeAnomalies {
		filtered := txns[:0]
		for _, t := range txns {
			if !t.IsAnomaly {
				filtered = append(filtered, t)
			}
		}
		txns = filtered
	}

	timeRange := map[string]any{
		"start": start.Format(time.RFC3339),
		"end":   end.Format(time.RFC3339),
		"days":  windowDays,
	}

	if len(txns) == 0 {
		return map[string]any{
			"customer_id":        customerID.String(),
			"transaction_count":  0,
			"total_amount":       0.0,
			"average_amount":     0.0,
			"min_amount":         0.0,
			"max_amount":         0.0,
			"currency":           "USD",
			"category_breakdown": map[string]any{},
			"merchant_list":      []any{},
			"time_range":         timeRange,
			"anomaly_count":      0,
		}, nil
	}

	var total, minAmt, maxAmt float64
	minAmt = txns[0].Amount
	maxAmt = txns[0].Amount
	byCategory := make(map[string]float64)
	merchantSet := make(map[string]bool)
	anomalyCount := 0
	for _, t := range txns {
		total += t.Amount
		minAmt = math.Min(minAmt, t.Amount)
		maxAmt = math.Max(maxAmt, t.Amount)
		byCategory[t.Category] += t.Amount
		merchantSet[t.Merchant] = true
		if t.IsAnomaly {
			anomalyCount++
		}
	}

	breakdown := make(map[string]any, len(byCategory))
	for category, amount := range byCategory {
		breakdown[category] = round2(amount)
	}

	merchants := make([]string, 0, len(merchantSet))
	for m := range merchantSet {
		merchants = append(merchants, m)
	}
	sort.Strings(merchants)
	if len(merchants) > 20 {
		merchants = merchants[:20]
	}

	return map[string]any{
		"customer_id":        customerID.String(),
		"transaction_count":  len(txns),
		"total_amount":       round2(total),
		"average_amount":     round2(total / float64(len(txns))),
		"min_amount":         round2(minAmt),
		"max_amount":         round2(maxAmt),
		"currency":           txns[0].Currency,
		"category_breakdown": breakdown,
		"merchant_list":      toAny(merchants),
		"time_range":         timeRange,
		"anomaly_count":      anomalyCount,
	}, nil
}
