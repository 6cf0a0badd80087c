package model

import (
	"time"

	"github.com/google/uuid"
)

// AuditEvent is one append-only entry in a run's audit trail.
// Source of truth for execution history. Never mutated or deleted;
// ordering by OccurredAt reconstructs the full run.
type AuditEvent struct {
	ID         uuid.UUID      `json:"id"`
	RunID      uuid.UUID      `json:"run_id"`
	StepName   string         `json:"step_name"`
	ToolName   *string        `json:"tool_name,omitempty"`
	InputData  map[string]any `json:"input_data"`
	OutputData map[string]any `json:"output_data"`
	DurationMs int64          `json:"duration_ms"`
	OccurredAt time.Time      `json:"occurred_at"`
}
