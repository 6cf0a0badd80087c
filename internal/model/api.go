package model

import (
	"time"
)

// RunTaskRequest is the request body for POST /tasks/run.
// CustomerID is validated as a UUID string so a malformed id produces a
// 400 before any database work.
type RunTaskRequest struct {
	CustomerID       string   `json:"customer_id" validate:"required,uuid4"`
	WindowDays       *int     `json:"analysis_window_days,omitempty" validate:"omitempty,min=1,max=365"`
	AnomalyThreshold *float64 `json:"anomaly_threshold,omitempty" validate:"omitempty,min=0,max=1"`
}

// Params resolves the request parameters against the documented defaults.
func (r RunTaskRequest) Params() RunParams {
	p := DefaultRunParams()
	if r.WindowDays != nil {
		p.WindowDays = *r.WindowDays
	}
	if r.AnomalyThreshold != nil {
		p.AnomalyThreshold = *r.AnomalyThreshold
	}
	return p
}

// RunTaskResponse is the 202 body for POST /tasks/run.
type RunTaskResponse struct {
	TaskID     string    `json:"task_id"`
	CustomerID string    `json:"customer_id"`
	Status     RunStatus `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// GetTaskResponse is the body for GET /tasks/{task_id}.
type GetTaskResponse struct {
	TaskID          string          `json:"task_id"`
	CustomerID      string          `json:"customer_id"`
	Status          RunStatus       `json:"status"`
	CreatedAt       time.Time       `json:"created_at"`
	CompletedAt     *time.Time      `json:"completed_at,omitempty"`
	InputParams     RunParams       `json:"input_params"`
	Result          *WorkflowResult `json:"result,omitempty"`
	AuditEventCount int             `json:"audit_event_count"`
	DurationMs      *int64          `json:"duration_ms,omitempty"`
}

// AuditEventSummary is one entry in the GET /tasks/{task_id}/audit body.
// Input and output are already sanitized; they are safe to expose as-is.
type AuditEventSummary struct {
	ID         string         `json:"id"`
	StepName   string         `json:"step_name"`
	ToolName   *string        `json:"tool_name,omitempty"`
	InputData  map[string]any `json:"input_data"`
	OutputData map[string]any `json:"output_data"`
	DurationMs int64          `json:"duration_ms"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// GetAuditResponse is the body for GET /tasks/{task_id}/audit.
type GetAuditResponse struct {
	TaskID      string              `json:"task_id"`
	TotalEvents int                 `json:"total_events"`
	Events      []AuditEventSummary `json:"events"`
}

// CustomerSummary is one entry in the GET /customers body.
type CustomerSummary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Email       string `json:"email"`
	AccountType string `json:"account_type"`
}

// ListCustomersResponse is the body for GET /customers.
type ListCustomersResponse struct {
	Customers []CustomerSummary `json:"customers"`
	Total     int               `json:"total"`
}

// HealthResponse is the body for GET /health.
type HealthResponse struct {
	Status            string `json:"status"`
	Version           string `json:"version"`
	DatabaseConnected bool   `json:"database_connected"`
	EmbeddingProvider string `json:"embedding_provider"`
	MockMode          bool   `json:"mock_mode"`
}

// ErrorResponse is the standard error body for all endpoints.
type ErrorResponse struct {
	Error     ErrorDetail `json:"error"`
	RequestID string      `json:"request_id,omitempty"`
}

// ErrorDetail describes an API error.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error code constants for API error responses.
const (
	ErrCodeInvalidInput  = "INVALID_INPUT"
	ErrCodeNotFound      = "NOT_FOUND"
	ErrCodeRateLimited   = "RATE_LIMITED"
	ErrCodeInternalError = "INTERNAL_ERROR"
)
