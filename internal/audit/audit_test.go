package audit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/guardrails"
	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/model"
)

type memStore struct {
	events    []model.AuditEvent
	insertErr error
}

func (s *memStore) InsertAuditEvent(_ context.Context, event model.AuditEvent) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.events = append(s.events, event)
	return nil
}

func (s *memStore) AuditEventsByRun(_ context.Context, runID uuid.UUID) ([]model.AuditEvent, error) {
	var out []model.AuditEvent
	for _, e := range s.events {
		if e.RunID == runID {
			out = append(out, e)
		}
	}
	return out, nil
}

func newTestLogger(store EventStore, runID uuid.UUID) *Logger {
	return NewLogger(store, runID, slog.New(slog.DiscardHandler))
}

func TestStepCompletionRecordsEvent(t *testing.T) {
	store := &memStore{}
	runID := uuid.New()
	l := newTestLogger(store, runID)

	l.StepStart("detect")
	time.Sleep(2 * time.Millisecond)
	err := l.StepCompletion(context.Background(), "detect",
		map[string]any{"customer_id": "c-1"},
		map[string]any{"anomaly_count": 2},
	)
	require.NoError(t, err)

	require.Len(t, store.events, 1)
	e := store.events[0]
	assert.Equal(t, runID, e.RunID)
	assert.Equal(t, "detect", e.StepName)
	assert.Nil(t, e.ToolName)
	assert.Equal(t, map[string]any{"customer_id": "c-1"}, e.InputData)
	assert.Equal(t, map[string]any{"anomaly_count": 2}, e.OutputData)
	assert.GreaterOrEqual(t, e.DurationMs, int64(1))
	assert.NotEqual(t, uuid.Nil, e.ID)
	assert.False(t, e.OccurredAt.IsZero())
}

func TestStepCompletionSanitizesPayloads(t *testing.T) {
	store := &memStore{}
	l := newTestLogger(store, uuid.New())

	err := l.StepCompletion(context.Background(), "ingest",
		map[string]any{"api_key": "sk-123"},
		map[string]any{"token": "abc"},
	)
	require.NoError(t, err)

	require.Len(t, store.events, 1)
	assert.Equal(t, "***REDACTED***", store.events[0].InputData["api_key"])
	assert.Equal(t, "***REDACTED***", store.events[0].OutputData["token"])
}

func TestToolCallRecordsToolName(t *testing.T) {
	store := &memStore{}
	l := newTestLogger(store, uuid.New())

	err := l.ToolCall(context.Background(), "detect", "anomaly_detector",
		map[string]any{"window_days": 30},
		map[string]any{"anomaly_count": 0},
		150*time.Millisecond,
	)
	require.NoError(t, err)

	require.Len(t, store.events, 1)
	e := store.events[0]
	require.NotNil(t, e.ToolName)
	assert.Equal(t, "anomaly_detector", *e.ToolName)
	assert.Equal(t, int64(150), e.DurationMs)
}

func TestErrorRecordsTypeAndMessage(t *testing.T) {
	store := &memStore{}
	l := newTestLogger(store, uuid.New())

	l.StepStart("evaluate")
	err := l.Error(context.Background(), "evaluate",
		errors.New("scoring unavailable"),
		map[string]any{"customer_id": "c-1"},
	)
	require.NoError(t, err)

	require.Len(t, store.events, 1)
	out := store.events[0].OutputData
	assert.Equal(t, true, out["error"])
	assert.Equal(t, "scoring unavailable", out["error_message"])
	assert.Equal(t, "*errors.errorString", out["error_type"])
}

func TestErrorNamesGuardrailViolations(t *testing.T) {
	store := &memStore{}
	l := newTestLogger(store, uuid.New())

	violation := &guardrails.Violation{
		Type:    guardrails.ViolationRateLimitExceeded,
		Message: "tool call limit exceeded: 21/20",
	}
	err := l.Error(context.Background(), "draft",
		fmt.Errorf("draft explanation: %w", violation), nil)
	require.NoError(t, err)

	require.Len(t, store.events, 1)
	assert.Equal(t, "rate_limit_exceeded", store.events[0].OutputData["error_type"])
}

func TestElapsedWithoutStepStartIsZero(t *testing.T) {
	store := &memStore{}
	l := newTestLogger(store, uuid.New())

	require.NoError(t, l.StepCompletion(context.Background(), "finalize", nil, nil))
	require.Len(t, store.events, 1)
	assert.Equal(t, int64(0), store.events[0].DurationMs)
}

func TestTrailReturnsOwnRunOnly(t *testing.T) {
	store := &memStore{}
	mine := uuid.New()
	other := uuid.New()

	require.NoError(t, newTestLogger(store, other).StepCompletion(context.Background(), "ingest", nil, nil))
	l := newTestLogger(store, mine)
	require.NoError(t, l.StepCompletion(context.Background(), "ingest", nil, nil))
	require.NoError(t, l.StepCompletion(context.Background(), "detect", nil, nil))

	trail, err := l.Trail(context.Background())
	require.NoError(t, err)
	require.Len(t, trail, 2)
	for _, e := range trail {
		assert.Equal(t, mine, e.RunID)
	}
}

func TestInsertFailureSurfacesError(t *testing.T) {
	store := &memStore{insertErr: errors.New("connection reset")}
	l := newTestLogger(store, uuid.New())

	err := l.StepCompletion(context.Background(), "ingest", nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "audit: insert event")
}
