// Package audit records an append-only trail of workflow execution.
// Every step and tool call produces exactly one event; event payloads are
// sanitized before persistence so the trail never stores secrets or
// unbounded blobs.
package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/guardrails"
	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/model"
)

// EventStore persists and reads back audit events. Implemented by the
// storage layer; tests substitute an in-memory fake.
type EventStore interface {
	InsertAuditEvent(ctx context.Context, event model.AuditEvent) error
	AuditEventsByRun(ctx context.Context, runID uuid.UUID) ([]model.AuditEvent, error)
}

// Logger writes the audit trail for a single workflow run.
// Construct one per run; it is not safe for concurrent use.
type Logger struct {
	store  EventStore
	runID  uuid.UUID
	log    *slog.Logger
	starts map[string]time.Time
}

// NewLogger creates a per-run audit logger.
func NewLogger(store EventStore, runID uuid.UUID, log *slog.Logger) *Logger {
	return &Logger{
		store:  store,
		runID:  runID,
		log:    log.With("run_id", runID),
		starts: make(map[string]time.Time),
	}
}

// RunID returns the run this logger belongs to.
func (l *Logger) RunID() uuid.UUID {
	return l.runID
}

// StepStart marks the beginning of a step for duration measurement.
// It records no event: a step produces exactly one event, on completion
// or error.
func (l *Logger) StepStart(step string) {
	l.starts[step] = time.Now()
}

// StepCompletion records a successful step with its sanitized input and
// output and the elapsed time since StepStart.
func (l *Logger) StepCompletion(ctx context.Context, step string, input, output any) error {
	return l.insert(ctx, model.AuditEvent{
		RunID:      l.runID,
		StepName:   step,
		InputData:  Sanitize(input),
		OutputData: Sanitize(output),
		DurationMs: l.elapsed(step),
	})
}

// ToolCall records one tool invocation made from within a step.
func (l *Logger) ToolCall(ctx context.Context, step, tool string, input, output any, duration time.Duration) error {
	return l.insert(ctx, model.AuditEvent{
		RunID:      l.runID,
		StepName:   step,
		ToolName:   &tool,
		InputData:  Sanitize(input),
		OutputData: Sanitize(output),
		DurationMs: duration.Milliseconds(),
	})
}

// Error records a failed step. The output encodes the error type and
// message so the trail shows what went wrong without parsing logs.
func (l *Logger) Error(ctx context.Context, step string, stepErr error, input any) error {
	return l.insert(ctx, model.AuditEvent{
		RunID:     l.runID,
		StepName:  step,
		InputData: Sanitize(input),
		OutputData: map[string]any{
			"error":         true,
			"error_type":    ErrorType(stepErr),
			"error_message": stepErr.Error(),
		},
		DurationMs: l.elapsed(step),
	})
}

// Trail returns the run's events ordered by occurrence.
func (l *Logger) Trail(ctx context.Context) ([]model.AuditEvent, error) {
	events, err := l.store.AuditEventsByRun(ctx, l.runID)
	if err != nil {
		return nil, fmt.Errorf("audit: load trail: %w", err)
	}
	return events, nil
}

func (l *Logger) insert(ctx context.Context, event model.AuditEvent) error {
	event.ID = uuid.New()
	event.OccurredAt = time.Now().UTC()
	if err := l.store.InsertAuditEvent(ctx, event); err != nil {
		l.log.ErrorContext(ctx, "audit event insert failed",
			"step", event.StepName, "error", err)
		return fmt.Errorf("audit: insert event: %w", err)
	}
	return nil
}

// elapsed returns milliseconds since StepStart and clears the timer.
// Zero when StepStart was never called for the step.
func (l *Logger) elapsed(step string) int64 {
	start, ok := l.starts[step]
	if !ok {
		return 0
	}
	delete(l.starts, step)
	return time.Since(start).Milliseconds()
}

// ErrorType names an error for the audit trail: the violation tag for
// guardrail violations, the dynamic type otherwise.
func ErrorType(err error) string {
	var v *guardrails.Violation
	if errors.As(err, &v) {
		return string(v.Type)
	}
	return fmt.Sprintf("%T", err)
}
