package tools

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/audit"
	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/guardrails"
	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/model"
)

type memEventStore struct {
	events []model.AuditEvent
}

func (s *memEventStore) InsertAuditEvent(_ context.Context, event model.AuditEvent) error {
	s.events = append(s.events, event)
	return nil
}

func (s *memEventStore) AuditEventsByRun(_ context.Context, runID uuid.UUID) ([]model.AuditEvent, error) {
	var out []model.AuditEvent
	for _, e := range s.events {
		if e.RunID == runID {
			out = append(out, e)
		}
	}
	return out, nil
}

type memTxnStore struct {
	txns []model.Transaction
	err  error
}

func (s *memTxnStore) TransactionsByCustomer(_ context.Context, customerID uuid.UUID, start, end time.Time) ([]model.Transaction, error) {
	if s.err != nil {
		return nil, s.err
	}
	var out []model.Transaction
	for _, t := range s.txns {
		if t.CustomerID == customerID && !t.OccurredAt.Before(start) && !t.OccurredAt.After(end) {
			out = append(out, t)
		}
	}
	return out, nil
}

type echoTool struct {
	name string
	err  error
}

func (t *echoTool) Name() string        { return t.name }
func (t *echoTool) InputSchema() string { return `{"type": "object"}` }
func (t *echoTool) Execute(_ context.Context, input map[string]any) (map[string]any, error) {
	if t.err != nil {
		return nil, t.err
	}
	return map[string]any{"echo": input["msg"]}, nil
}

func newTestRegistry(t *testing.T, maxCalls int) (*Registry, *memEventStore) {
	t.Helper()
	store := &memEventStore{}
	logger := audit.NewLogger(store, uuid.New(), slog.New(slog.DiscardHandler))
	enforcer := guardrails.NewEnforcer(maxCalls)
	return NewRegistry(logger, enforcer, slog.New(slog.DiscardHandler)), store
}

func TestRegisterRejectsUnlistedTool(t *testing.T) {
	r, _ := newTestRegistry(t, 20)

	err := r.Register(&echoTool{name: "shell_executor"})
	var v *guardrails.Violation
	require.True(t, errors.As(err, &v))
	assert.Equal(t, guardrails.ViolationToolNotAllowed, v.Type)
	assert.Empty(t, r.RegisteredTools())
}

func TestInvokeAuditsSuccessfulCall(t *testing.T) {
	r, store := newTestRegistry(t, 20)
	require.NoError(t, r.Register(&echoTool{name: "anomaly_detector"}))

	out, err := r.Invoke(context.Background(), "anomaly_detector",
		map[string]any{"msg": "hi"}, "detect")
	require.NoError(t, err)
	assert.Equal(t, "hi", out["echo"])

	require.Len(t, store.events, 1)
	e := store.events[0]
	assert.Equal(t, "detect", e.StepName)
	require.NotNil(t, e.ToolName)
	assert.Equal(t, "anomaly_detector", *e.ToolName)
	assert.Equal(t, "hi", e.InputData["msg"])
}

func TestInvokeAuditsFailedCall(t *testing.T) {
	r, store := newTestRegistry(t, 20)
	require.NoError(t, r.Register(&echoTool{name: "anomaly_detector", err: errors.New("db down")}))

	_, err := r.Invoke(context.Background(), "anomaly_detector", map[string]any{}, "detect")
	require.EqualError(t, err, "db down")

	require.Len(t, store.events, 1)
	out := store.events[0].OutputData
	assert.Equal(t, true, out["error"])
	assert.Equal(t, "db down", out["error_message"])
}

func TestInvokeUnregisteredTool(t *testing.T) {
	r, store := newTestRegistry(t, 20)

	_, err := r.Invoke(context.Background(), "anomaly_detector", map[string]any{}, "detect")
	require.ErrorIs(t, err, ErrToolNotRegistered)
	assert.Empty(t, store.events, "unregistered tool must not produce audit events")
}

func TestInvokeRejectsUnlistedTool(t *testing.T) {
	r, store := newTestRegistry(t, 20)

	_, err := r.Invoke(context.Background(), "shell_executor", map[string]any{}, "detect")
	var v *guardrails.Violation
	require.True(t, errors.As(err, &v))
	assert.Equal(t, guardrails.ViolationToolNotAllowed, v.Type)
	assert.Empty(t, store.events)
}

func TestInvokeEnforcesRateLimit(t *testing.T) {
	r, _ := newTestRegistry(t, 2)
	require.NoError(t, r.Register(&echoTool{name: "anomaly_detector"}))

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		_, err := r.Invoke(ctx, "anomaly_detector", map[string]any{}, "detect")
		require.NoError(t, err)
	}

	_, err := r.Invoke(ctx, "anomaly_detector", map[string]any{}, "detect")
	var v *guardrails.Violation
	require.True(t, errors.As(err, &v))
	assert.Equal(t, guardrails.ViolationRateLimitExceeded, v.Type)
}

func TestInvokeValidatesInputSchema(t *testing.T) {
	r, store := newTestRegistry(t, 20)
	require.NoError(t, r.Register(NewDetector(&memTxnStore{})))

	_, err := r.Invoke(context.Background(), "anomaly_detector",
		map[string]any{"customer_id": uuid.NewString(), "threshold": "high"}, "detect")
	var v *guardrails.Violation
	require.True(t, errors.As(err, &v))
	assert.Equal(t, guardrails.ViolationInvalidSchema, v.Type)

	require.Len(t, store.events, 1)
	assert.Equal(t, "invalid_schema", store.events[0].OutputData["error_type"])
}

func TestRegisteredToolsSorted(t *testing.T) {
	r, _ := newTestRegistry(t, 20)
	require.NoError(t, r.Register(&echoTool{name: "transaction_analyzer"}))
	require.NoError(t, r.Register(&echoTool{name: "anomaly_detector"}))

	assert.Equal(t, []string{"anomaly_detector", "transaction_analyzer"}, r.RegisteredTools())
}
