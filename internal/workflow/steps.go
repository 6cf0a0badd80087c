package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/model"
)

// Audit step names, one per pipeline stage.
const (
	stepIngest   = "ingest_transactions"
	stepDetect   = "detect_anomalies"
	stepRetrieve = "retrieve_policies"
	stepDraft    = "draft_explanation"
	stepEvaluate = "evaluate_confidence"
	stepEscalate = "escalate"
	stepFinalize = "finalize"
)

// Substituted when the drafted text trips the content filter.
const safeFallbackExplanation = "Analysis completed. Please contact support for details."

// Degraded draft output when the drafting tool fails.
const draftErrorExplanation = "Error generating explanation"

// How many policies the retrieve step asks for.
const policyTopK = 3

// ingestTransactions summarizes the customer's transaction window via
// the transaction_analyzer tool. On tool failure the summary stays empty
// and the pipeline continues.
func ingestTransactions(ctx context.Context, rc *runContext, state *State) error {
	rc.audit.StepStart(stepIngest)

	toolInput := map[string]any{
		"customer_id":       state.CustomerID.String(),
		"window_days":       state.Params.WindowDays,
		"include_anomalies": true,
	}
	result, err := rc.registry.Invoke(ctx, "transaction_analyzer", toolInput, stepIngest)
	if err != nil {
		rc.log.ErrorContext(ctx, "ingest step degraded", "error", err)
		state.recordError(stepIngest, err)
		return rc.audit.Error(ctx, stepIngest, err, stateSnapshot(state))
	}

	state.TransactionSummary = result
	return rc.audit.StepCompletion(ctx, stepIngest, toolInput, map[string]any{
		"transaction_summary": result,
	})
}

// detectAnomalies scores the window via the anomaly_detector tool. On
// tool failure the anomaly list stays empty and the pipeline continues.
func detectAnomalies(ctx context.Context, rc *runContext, state *State) error {
	rc.audit.StepStart(stepDetect)

	toolInput := map[string]any{
		"customer_id": state.CustomerID.String(),
		"window_days": state.Params.WindowDays,
		"threshold":   state.Params.AnomalyThreshold,
	}
	result, err := rc.registry.Invoke(ctx, "anomaly_detector", toolInput, stepDetect)
	if err != nil {
		rc.log.ErrorContext(ctx, "detect step degraded", "error", err)
		state.recordError(stepDetect, err)
		return rc.audit.Error(ctx, stepDetect, err, stateSnapshot(state))
	}

	state.Anomalies = asMapSlice(result["anomalies"])
	state.AnomalyCount = asInt(result["anomalies_detected"])
	return rc.audit.StepCompletion(ctx, stepDetect, toolInput, map[string]any{
		"anomalies":     anyMaps(state.Anomalies),
		"anomaly_count": state.AnomalyCount,
	})
}

// retrievePolicies finds the policies most relevant to the findings.
// The query is templated from the anomaly count so retrieval stays
// deterministic under the mock embedding provider.
func retrievePolicies(ctx context.Context, rc *runContext, state *State) error {
	rc.audit.StepStart(stepRetrieve)

	var query string
	if state.AnomalyCount > 0 {
		query = fmt.Sprintf(
			"Transaction anomalies detected for customer. Found %d suspicious transactions. "+
				"What policies apply to fraud detection and escalation?", state.AnomalyCount)
	} else {
		query = "Normal transaction monitoring policies"
	}

	excerpts, err := rc.retrieval.Retrieve(ctx, query, policyTopK, "")
	if err != nil {
		rc.log.ErrorContext(ctx, "retrieve step degraded", "error", err)
		state.RetrievedPolicies = nil
		state.recordError(stepRetrieve, err)
		return rc.audit.Error(ctx, stepRetrieve, err, stateSnapshot(state))
	}

	state.RetrievedPolicies = make([]map[string]any, len(excerpts))
	for i, excerpt := range excerpts {
		state.RetrievedPolicies[i] = map[string]any{
			"id":       excerpt.ID.String(),
			"title":    excerpt.Title,
			"content":  excerpt.Content,
			"category": excerpt.Category,
		}
	}

	return rc.audit.StepCompletion(ctx, stepRetrieve,
		map[string]any{"query": query},
		map[string]any{"retrieved_policies": anyMaps(state.RetrievedPolicies)},
	)
}

// draftExplanation produces the customer-facing explanation via the
// explanation_drafter tool and runs it through the content filter.
// Prohibited output is replaced with a fixed safe sentence; a failed
// tool call degrades to an error explanation with zero confidence.
func draftExplanation(ctx context.Context, rc *runContext, state *State) error {
	rc.audit.StepStart(stepDraft)

	toolInput := map[string]any{
		"customer_id":         state.CustomerID.String(),
		"anomalies":           anyMaps(state.Anomalies),
		"transaction_summary": state.TransactionSummary,
		"policies":            anyMaps(state.RetrievedPolicies),
	}
	result, err := rc.registry.Invoke(ctx, "explanation_drafter", toolInput, stepDraft)
	if err != nil {
		rc.log.ErrorContext(ctx, "draft step degraded", "error", err)
		state.Explanation = draftErrorExplanation
		state.ConfidenceScore = 0.0
		state.recordError(stepDraft, err)
		return rc.audit.Error(ctx, stepDraft, err, stateSnapshot(state))
	}

	explanation := asString(result["explanation"])
	if safetyErr := rc.enforcer.CheckContentSafety(explanation); safetyErr != nil {
		rc.log.WarnContext(ctx, "content safety check failed, substituting fallback",
			"error", safetyErr)
		explanation = safeFallbackExplanation
	}

	state.Explanation = explanation
	state.ConfidenceScore = asFloat(result["confidence_score"], 0.5)
	state.RecommendedActions = asStrings(result["recommended_actions"])

	return rc.audit.StepCompletion(ctx, stepDraft, toolInput, map[string]any{
		"explanation":         state.Explanation,
		"confidence_score":    state.ConfidenceScore,
		"recommended_actions": toAnyStrings(state.RecommendedActions),
	})
}

// evaluateConfidence decides the branch: confidence below the threshold
// routes the run through the escalate step.
func evaluateConfidence(ctx context.Context, rc *runContext, state *State) error {
	rc.audit.StepStart(stepEvaluate)

	state.IsEscalated = state.ConfidenceScore < rc.threshold
	updates := map[string]any{"is_escalated": state.IsEscalated}
	if state.IsEscalated {
		state.EscalationReason = fmt.Sprintf(
			"Confidence score %.2f below threshold %.2f", state.ConfidenceScore, rc.threshold)
		updates["escalation_reason"] = state.EscalationReason
	}

	return rc.audit.StepCompletion(ctx, stepEvaluate,
		map[string]any{"confidence": state.ConfidenceScore}, updates)
}

// escalate records the hand-off to human review. Runs only when the
// evaluate step set IsEscalated.
func escalate(ctx context.Context, rc *runContext, state *State) error {
	rc.audit.StepStart(stepEscalate)

	reason := state.EscalationReason
	if reason == "" {
		reason = "Low confidence"
	}
	record := model.EscalationRecord{
		Reason:          reason,
		ConfidenceScore: state.ConfidenceScore,
		AnomalyCount:    state.AnomalyCount,
		EscalatedAt:     time.Now().UTC(),
	}
	state.Escalation = &record

	escalationData := map[string]any{
		"reason":           record.Reason,
		"confidence_score": record.ConfidenceScore,
		"anomaly_count":    record.AnomalyCount,
		"escalated_at":     record.EscalatedAt.Format(time.RFC3339),
	}
	return rc.audit.StepCompletion(ctx, stepEscalate, escalationData, map[string]any{
		"status":          "escalated",
		"escalation_data": escalationData,
	})
}

// finalize assembles the definitive run result. It always runs last.
func finalize(ctx context.Context, rc *runContext, state *State) error {
	rc.audit.StepStart(stepFinalize)

	status := "completed"
	if state.IsEscalated {
		status = "escalated"
	}
	result := model.WorkflowResult{
		Status:             status,
		CustomerID:         state.CustomerID.String(),
		AnomaliesDetected:  state.AnomalyCount,
		ConfidenceScore:    state.ConfidenceScore,
		IsEscalated:        state.IsEscalated,
		Explanation:        state.Explanation,
		MatchedPolicies:    state.policyTitles(),
		RecommendedActions: state.RecommendedActions,
		Errors:             state.Errors,
	}
	if state.IsEscalated {
		result.EscalationReason = state.EscalationReason
		result.Escalation = state.Escalation
	}
	state.FinalResult = result

	return rc.audit.StepCompletion(ctx, stepFinalize, map[string]any{}, map[string]any{
		"final_result": resultAuditMap(result),
	})
}

// stateSnapshot is the audit input payload for failed steps: enough to
// replay the failure without dumping the whole state.
func stateSnapshot(state *State) map[string]any {
	return map[string]any{
		"customer_id": state.CustomerID.String(),
		"input_params": map[string]any{
			"analysis_window_days": state.Params.WindowDays,
			"anomaly_threshold":    state.Params.AnomalyThreshold,
		},
		"anomaly_count": state.AnomalyCount,
		"errors":        toAnyStrings(state.Errors),
	}
}

func resultAuditMap(r model.WorkflowResult) map[string]any {
	m := map[string]any{
		"status":              r.Status,
		"customer_id":         r.CustomerID,
		"anomalies_detected":  r.AnomaliesDetected,
		"confidence_score":    r.ConfidenceScore,
		"is_escalated":        r.IsEscalated,
		"explanation":         r.Explanation,
		"matched_policies":    toAnyStrings(r.MatchedPolicies),
		"recommended_actions": toAnyStrings(r.RecommendedActions),
	}
	if r.EscalationReason != "" {
		m["escalation_reason"] = r.EscalationReason
	}
	if len(r.Errors) > 0 {
		m["errors"] = toAnyStrings(r.Errors)
	}
	return m
}

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

func asFloat(v any, def float64) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	default:
		return def
	}
}

func asStrings(v any) []string {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func asMapSlice(v any) []map[string]any {
	items, ok := v.([]any)
	if !ok {
		return nil
	}
	out := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if m, ok := item.(map[string]any); ok {
			out = append(out, m)
		}
	}
	return out
}

func toAnyStrings(items []string) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = item
	}
	return out
}
