// Package model defines the core domain types for the workflow service.
//
// Types correspond directly to database tables and API payloads. They use
// strong typing (UUIDs, time.Time, enums) and avoid interface{} wherever
// the shape is fixed; tool inputs/outputs stay map-typed because every
// tool call must flow through the audit sanitizer.
package model

import (
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the lifecycle state of a workflow run.
type RunStatus string

const (
	RunStatusPending   RunStatus = "pending"
	RunStatusRunning   RunStatus = "running"
	RunStatusCompleted RunStatus = "completed"
	RunStatusEscalated RunStatus = "escalated"
	RunStatusFailed    RunStatus = "failed"
)

// RunParams are the caller-supplied parameters for one workflow run.
type RunParams struct {
	WindowDays       int     `json:"analysis_window_days"`
	AnomalyThreshold float64 `json:"anomaly_threshold"`
}

// DefaultRunParams returns the documented parameter defaults.
func DefaultRunParams() RunParams {
	return RunParams{WindowDays: 30, AnomalyThreshold: 0.8}
}

// WorkflowRun tracks one pipeline execution and its result.
// Created "pending", flipped to "running" before the engine starts, and
// moved to a terminal status when the pipeline returns.
type WorkflowRun struct {
	ID           uuid.UUID       `json:"id"`
	CustomerID   uuid.UUID       `json:"customer_id"`
	Status       RunStatus       `json:"status"`
	InputParams  RunParams       `json:"input_params"`
	Result       *WorkflowResult `json:"result,omitempty"`
	ErrorMessage *string         `json:"error_message,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	CompletedAt  *time.Time      `json:"completed_at,omitempty"`
}

// EscalationRecord captures why a run was routed to human review.
type EscalationRecord struct {
	Reason          string    `json:"reason"`
	ConfidenceScore float64   `json:"confidence_score"`
	AnomalyCount    int       `json:"anomaly_count"`
	EscalatedAt     time.Time `json:"escalated_at"`
}

// WorkflowResult is the final record assembled by the finalize step.
type WorkflowResult struct {
	Status             string            `json:"status"`
	CustomerID         string            `json:"customer_id"`
	AnomaliesDetected  int               `json:"anomalies_detected"`
	ConfidenceScore    float64           `json:"confidence_score"`
	IsEscalated        bool              `json:"is_escalated"`
	Explanation        string            `json:"explanation"`
	MatchedPolicies    []string          `json:"matched_policies"`
	RecommendedActions []string          `json:"recommended_actions"`
	EscalationReason   string            `json:"escalation_reason,omitempty"`
	Escalation         *EscalationRecord `json:"escalation_data,omitempty"`
	Errors             []string          `json:"errors,omitempty"`
	Error              string            `json:"error,omitempty"`
}
