package tools

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func draft(t *testing.T, input map[string]any) map[string]any {
	t.Helper()
	out, err := NewDrafter().Execute(context.Background(), input)
	require.NoError(t, err)
	return out
}

func TestDrafterNoAnomalies(t *testing.T) {
	out := draft(t, map[string]any{
		"customer_id":         uuid.NewString(),
		"anomalies":           []any{},
		"transaction_summary": map[string]any{"transaction_count": 42},
	})

	assert.Equal(t, "Analysis of 42 transactions identified 0 potential anomalies.", out["explanation"])
	assert.Equal(t, []any{"continue_normal_monitoring"}, out["recommended_actions"])
	assert.Equal(t, 0.95, out["confidence_score"])
	assert.Empty(t, out["policy_references"])
}

func TestDrafterFewAnomalies(t *testing.T) {
	out := draft(t, map[string]any{
		"customer_id": uuid.NewString(),
		"anomalies": []any{
			map[string]any{
				"amount":        1234.5,
				"merchant":      "UK-Web Store",
				"anomaly_score": 0.85,
				"reasons":       []any{"Foreign merchant", "Flagged in database as anomaly"},
			},
		},
		"transaction_summary": map[string]any{"transaction_count": 10},
	})

	explanation, ok := out["explanation"].(string)
	require.True(t, ok)
	assert.Contains(t, explanation, "identified 1 potential anomaly.")
	assert.Contains(t, explanation, "Detected anomalies include:")
	assert.Contains(t, explanation, "1. Transaction of $1234.50 at UK-Web Store (score: 0.85)")
	assert.Contains(t, explanation, "Reasons: Foreign merchant, Flagged in database as anomaly")

	assert.Equal(t, []any{"flag_for_review", "notify_customer"}, out["recommended_actions"])
	assert.Equal(t, 0.85, out["confidence_score"])
}

func TestDrafterManyAnomaliesEscalates(t *testing.T) {
	anomalies := make([]any, 4)
	for i := range anomalies {
		anomalies[i] = map[string]any{"amount": 100.0, "merchant": "X", "anomaly_score": 0.9}
	}

	out := draft(t, map[string]any{
		"customer_id":         uuid.NewString(),
		"anomalies":           anomalies,
		"transaction_summary": map[string]any{"transaction_count": 50},
	})

	assert.Equal(t,
		[]any{"escalate_to_analyst", "notify_customer", "enhanced_monitoring"},
		out["recommended_actions"])
	assert.Equal(t, 0.65, out["confidence_score"])

	// Only the top 3 anomalies are described.
	explanation := out["explanation"].(string)
	assert.Contains(t, explanation, "3. Transaction")
	assert.NotContains(t, explanation, "4. Transaction")
}

func TestDrafterPolicyReferences(t *testing.T) {
	policies := []any{
		map[string]any{"id": "p1", "title": "Fraud Detection Standards", "category": "fraud"},
		map[string]any{"id": "p2", "title": "Escalation Procedures", "category": "escalation"},
		map[string]any{"id": "p3", "title": "Monitoring Baseline", "category": "monitoring"},
		map[string]any{"id": "p4", "title": "Never Referenced", "category": "general"},
	}

	out := draft(t, map[string]any{
		"customer_id":         uuid.NewString(),
		"anomalies":           []any{},
		"transaction_summary": map[string]any{"transaction_count": 5},
		"policies":            policies,
	})

	refs, ok := out["policy_references"].([]any)
	require.True(t, ok)
	require.Len(t, refs, 3)
	first := refs[0].(map[string]any)
	assert.Equal(t, "p1", first["policy_id"])
	assert.Equal(t, "Fraud Detection Standards", first["title"])

	assert.Contains(t, out["explanation"].(string),
		"references 4 relevant internal policies")
}
