package tools

import (
	"context"
	"fmt"
	"strings"
)

const drafterSchema = `{
	"type": "object",
	"properties": {
		"customer_id": {"type": "string"},
		"anomalies": {"type": "array"},
		"transaction_summary": {"type": "object"},
		"policies": {"type": "array"}
	},
	"required": ["customer_id", "anomalies", "transaction_summary"],
	"additionalProperties": false
}`

// Confidence and recommended actions by anomaly count.
const (
	confidenceNoAnomalies   = 0.95
	confidenceFewAnomalies  = 0.85
	confidenceManyAnomalies = 0.65
)

// Drafter produces a deterministic template explanation of the findings
// together with recommended actions and a confidence score. It is the
// demo stand-in for an LLM-backed drafting step.
type Drafter struct{}

// NewDrafter creates the explanation_drafter tool.
func NewDrafter() *Drafter {
	return &Drafter{}
}

func (d *Drafter) Name() string        { return "explanation_drafter" }
func (d *Drafter) InputSchema() string { return drafterSchema }

// Execute drafts the explanation.
func (d *Drafter) Execute(_ context.Context, input map[string]any) (map[string]any, error) {
	customerID := getString(input, "customer_id")
	anomalies := getMapSlice(input, "anomalies")
	summary := getMap(input, "transaction_summary")
	policies := getMapSlice(input, "policies")

	numAnomalies := len(anomalies)
	totalTransactions := getInt(summary, "transaction_count", 0)

	var b strings.Builder
	noun := "anomalies"
	if numAnomalies == 1 {
		noun = "anomaly"
	}
	fmt.Fprintf(&b, "Analysis of %d transactions identified %d potential %s.",
		totalTransactions, numAnomalies, noun)

	if numAnomalies > 0 {
		b.WriteString("\n\nDetected anomalies include:")
		for i, anomaly := range topN(anomalies, 3) {
			fmt.Fprintf(&b, "\n%d. Transaction of $%.2f at %s (score: %.2f)",
				i+1,
				getFloat(anomaly, "amount", 0),
				getStringDefault(anomaly, "merchant", "Unknown"),
				getFloat(anomaly, "anomaly_score", 0),
			)
			if reasons := getStringSlice(anomaly, "reasons"); len(reasons) > 0 {
				fmt.Fprintf(&b, "   Reasons: %s", strings.Join(reasons, ", "))
			}
		}
	}

	if len(policies) > 0 {
		fmt.Fprintf(&b, "\n\nThis analysis references %d relevant internal policies "+
			"regarding transaction monitoring and fraud detection.", len(policies))
	}

	var actions []string
	var confidence float64
	switch {
	case numAnomalies == 0:
		actions = []string{"continue_normal_monitoring"}
		confidence = confidenceNoAnomalies
	case numAnomalies <= 2:
		actions = []string{"flag_for_review", "notify_customer"}
		confidence = confidenceFewAnomalies
	default:
		actions = []string{"escalate_to_analyst", "notify_customer", "enhanced_monitoring"}
		confidence = confidenceManyAnomalies
	}

	refs := make([]any, 0, 3)
	for _, policy := range topN(policies, 3) {
		refs = append(refs, map[string]any{
			"policy_id": getStringDefault(policy, "id", "unknown"),
			"title":     getStringDefault(policy, "title", "Unknown Policy"),
			"category":  getStringDefault(policy, "category", "general"),
		})
	}

	return map[string]any{
		"customer_id":         customerID,
		"explanation":         b.String(),
		"policy_references":   refs,
		"recommended_actions": toAny(actions),
		"confidence_score":    confidence,
	}, nil
}

func topN(items []map[string]any, n int) []map[string]any {
	if len(items) > n {
		return items[:n]
	}
	return items
}
