package tools

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/model"
)

const detectorSchema = `{
	"type": "object",
	"properties": {
		"customer_id": {"type": "string"},
		"window_days": {"type": "integer", "minimum": 1, "maximum": 365},
		"threshold": {"type": "number", "minimum": 0, "maximum": 1}
	},
	"required": ["customer_id"],
	"additionalProperties": false
}`

// Merchant name prefixes that mark a transaction as foreign.
var foreignPrefixes = []string{"UK-", "FR-", "DE-", "JP-", "AU-"}

// Detector scores transactions with rule-based heuristics and reports
// those at or above the caller's threshold, highest score first.
type Detector struct {
	store TransactionStore
}

// NewDetector creates the anomaly_detector tool.
func NewDetector(store TransactionStore) *Detector {
	return &Detector{store: store}
}

func (d *Detector) Name() string        { return "anomaly_detector" }
func (d *Detector) InputSchema() string { return detectorSchema }

// Execute detects anomalies in the customer's window.
func (d *Detector) Execute(ctx context.Context, input map[string]any) (map[string]any, error) {
	customerID, err := uuid.Parse(getString(input, "customer_id"))
	if err != nil {
		return nil, fmt.Errorf("tools: parse customer_id: %w", err)
	}
	windowDays := getInt(input, "window_days", 30)
	threshold := getFloat(input, "threshold", 0.8)

	end := time.Now().UTC()
	start := end.AddDate(0, 0, -windowDays)

	txns, err := d.store.TransactionsByCustomer(ctx, customerID, start, end)
	if err != nil {
		return nil, fmt.Errorf("tools: load transactions: %w", err)
	}

	if len(txns) == 0 {
		return map[string]any{
			"customer_id":         customerID.String(),
			"total_transactions":  0,
			"anomalies_detected":  0,
			"anomalies":           []any{},
			"detection_threshold": threshold,
		}, nil
	}

	var total float64
	for _, t := range txns {
		total += t.Amount
	}
	avg := total / float64(len(txns))
	var variance float64
	for _, t := range txns {
		variance += (t.Amount - avg) * (t.Amount - avg)
	}
	std := math.Sqrt(variance / float64(len(txns)))

	type scored struct {
		txn     model.Transaction
		score   float64
		reasons []string
	}
	var hits []scored
	for _, t := range txns {
		score, reasons := scoreTransaction(t, avg, std)
		if score >= threshold {
			hits = append(hits, scored{txn: t, score: score, reasons: reasons})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	anomalies := make([]any, len(hits))
	for i, h := range hits {
		anomalies[i] = map[string]any{
			"transaction_id": h.txn.ID.String(),
			"amount":         h.txn.Amount,
			"merchant":       h.txn.Merchant,
			"category":       h.txn.Category,
			"timestamp":      h.txn.OccurredAt.Format(time.RFC3339),
			"anomaly_score":  round3(h.score),
			"reasons":        toAny(h.reasons),
		}
	}

	return map[string]any{
		"customer_id":         customerID.String(),
		"total_transactions":  len(txns),
		"anomalies_detected":  len(anomalies),
		"anomalies":           anomalies,
		"detection_threshold": threshold,
	}, nil
}

// scoreTransaction applies the heuristic weights. Scores are additive
// and capped at 1.0; each triggered rule contributes a reason string.
func scoreTransaction(t model.Transaction, avg, std float64) (float64, []string) {
	score := 0.0
	var reasons []string

	if avg > 0 {
		z := math.Abs((t.Amount - avg) / (std + 0.01))
		if z > 3 {
			score += 0.3
			reasons = append(reasons, fmt.Sprintf("Amount %.1f standard deviations from mean", z))
		}
	}

	hour := t.OccurredAt.Hour()
	if hour >= 2 && hour <= 5 {
		score += 0.2
		reasons = append(reasons, fmt.Sprintf("Transaction at unusual hour (%d:00)", hour))
	}

	for _, prefix := range foreignPrefixes {
		if strings.HasPrefix(t.Merchant, prefix) {
			score += 0.15
			reasons = append(reasons, "Foreign merchant")
			break
		}
	}

	if t.IsAnomaly {
		score += 0.35
		reasons = append(reasons, "Flagged in database as anomaly")
	}

	if t.Amount > avg*5 {
		score += 0.1
		reasons = append(reasons, fmt.Sprintf("Amount >5x average ($%.2f)", avg))
	}

	return math.Min(score, 1.0), reasons
}
