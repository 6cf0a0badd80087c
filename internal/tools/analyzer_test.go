package tools

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/model"
)

func txn(customerID uuid.UUID, amount float64, merchant, category string, at time.Time, anomaly bool) model.Transaction {
	return model.Transaction{
		ID:         uuid.New(),
		CustomerID: customerID,
		Amount:     amount,
		Currency:   "USD",
		Merchant:   merchant,
		Category:   category,
		OccurredAt: at,
		IsAnomaly:  anomaly,
	}
}

func TestAnalyzerEmptyWindow(t *testing.T) {
	customerID := uuid.New()
	a := NewAnalyzer(&memTxnStore{})

	out, err := a.Execute(context.Background(), map[string]any{
		"customer_id": customerID.String(),
		"window_days": 30,
	})
	require.NoError(t, err)

	assert.Equal(t, 0, out["transaction_count"])
	assert.Equal(t, 0.0, out["total_amount"])
	assert.Equal(t, "USD", out["currency"])
	assert.Empty(t, out["merchant_list"])
	assert.Equal(t, 0, out["anomaly_count"])

	tr, ok := out["time_range"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 30, tr["days"])
}

func TestAnalyzerStatistics(t *testing.T) {
	customerID := uuid.New()
	now := time.Now().UTC()
	store := &memTxnStore{txns: []model.Transaction{
		txn(customerID, 10, "Grocery Mart", "groceries", now.Add(-24*time.Hour), false),
		txn(customerID, 30, "Coffee Beans", "dining", now.Add(-48*time.Hour), false),
		txn(customerID, 20, "Grocery Mart", "groceries", now.Add(-72*time.Hour), true),
		// Outside the window, ignored.
		txn(customerID, 999, "Old Shop", "misc", now.AddDate(0, 0, -60), false),
		// Different customer, ignored.
		txn(uuid.New(), 500, "Other", "misc", now.Add(-24*time.Hour), false),
	}}

	out, err := NewAnalyzer(store).Execute(context.Background(), map[string]any{
		"customer_id": customerID.String(),
		"window_days": 30,
	})
	require.NoError(t, err)

	assert.Equal(t, 3, out["transaction_count"])
	assert.Equal(t, 60.0, out["total_amount"])
	assert.Equal(t, 20.0, out["average_amount"])
	assert.Equal(t, 10.0, out["min_amount"])
	assert.Equal(t, 30.0, out["max_amount"])
	assert.Equal(t, 1, out["anomaly_count"])

	breakdown, ok := out["category_breakdown"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 30.0, breakdown["groceries"])
	assert.Equal(t, 30.0, breakdown["dining"])

	assert.Equal(t, []any{"Coffee Beans", "Grocery Mart"}, out["merchant_list"])
}

func TestAnalyzerExcludesAnomaliesOnRequest(t *testing.T) {
	customerID := uuid.New()
	now := time.Now().UTC()
	store := &memTxnStore{txns: []model.Transaction{
		txn(customerID, 10, "A", "misc", now.Add(-time.Hour), false),
		txn(customerID, 90, "B", "misc", now.Add(-time.Hour), true),
	}}

	out, err := NewAnalyzer(store).Execute(context.Background(), map[string]any{
		"customer_id":       customerID.String(),
		"include_anomalies": false,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, out["transaction_count"])
	assert.Equal(t, 10.0, out["total_amount"])
	assert.Equal(t, 0, out["anomaly_count"])
}

func TestAnalyzerCapsMerchantList(t *testing.T) {
	customerID := uuid.New()
	now := time.Now().UTC()
	store := &memTxnStore{}
	for i := 0; i < 30; i++ {
		store.txns = append(store.txns,
			txn(customerID, 10, fmt.Sprintf("Merchant %02d", i), "misc", now.Add(-time.Hour), false))
	}

	out, err := NewAnalyzer(store).Execute(context.Background(), map[string]any{
		"customer_id": customerID.String(),
	})
	require.NoError(t, err)

	merchants, ok := out["merchant_list"].([]any)
	require.True(t, ok)
	assert.Len(t, merchants, 20)
}

func TestAnalyzerRejectsMalformedCustomerID(t *testing.T) {
	_, err := NewAnalyzer(&memTxnStore{}).Execute(context.Background(), map[string]any{
		"customer_id": "not-a-uuid",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse customer_id")
}
