package workflow

import (
	"github.com/google/uuid"

	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/model"
)

// State is the shared pipeline state for one run. Steps read what earlier
// steps produced and write their own fields; the engine owns the instance
// and steps run strictly in sequence, so no locking is needed.
type State struct {
	RunID      uuid.UUID
	CustomerID uuid.UUID
	Params     model.RunParams

	// Ingest.
	TransactionSummary map[string]any

	// Detect.
	Anomalies    []map[string]any
	AnomalyCount int

	// Retrieve.
	RetrievedPolicies []map[string]any

	// Draft.
	Explanation        string
	ConfidenceScore    float64
	RecommendedActions []string

	// Evaluate / escalate.
	IsEscalated      bool
	EscalationReason string
	Escalation       *model.EscalationRecord

	// Finalize.
	FinalResult model.WorkflowResult

	// Per-step failures, as "{step}: {message}". A non-empty list does
	// not fail the run; degraded steps still reach finalize.
	Errors []string
}

func newState(runID, customerID uuid.UUID, params model.RunParams) *State {
	return &State{
		RunID:              runID,
		CustomerID:         customerID,
		Params:             params,
		TransactionSummary: map[string]any{},
	}
}

func (s *State) recordError(step string, err error) {
	s.Errors = append(s.Errors, step+": "+err.Error())
}

func (s *State) policyTitles() []string {
	titles := make([]string, len(s.RetrievedPolicies))
	for i, p := range s.RetrievedPolicies {
		titles[i], _ = p["title"].(string)
	}
	return titles
}

func anyMaps(items []map[string]any) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}
