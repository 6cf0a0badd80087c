package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/model"
	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/storage"
)

type memStore struct {
	customers map[uuid.UUID]model.Customer
	runs      map[uuid.UUID]*model.WorkflowRun
	events    map[uuid.UUID][]model.AuditEvent
	pingErr   error
}

func newMemStore() *memStore {
	return &memStore{
		customers: make(map[uuid.UUID]model.Customer),
		runs:      make(map[uuid.UUID]*model.WorkflowRun),
		events:    make(map[uuid.UUID][]model.AuditEvent),
	}
}

func (m *memStore) CreateRun(_ context.Context, customerID uuid.UUID, params model.RunParams) (model.WorkflowRun, error) {
	run := model.WorkflowRun{
		ID:          uuid.New(),
		CustomerID:  customerID,
		Status:      model.RunStatusPending,
		InputParams: params,
		CreatedAt:   time.Now().UTC(),
	}
	m.runs[run.ID] = &run
	return run, nil
}

func (m *memStore) GetRun(_ context.Context, id uuid.UUID) (model.WorkflowRun, error) {
	run, ok := m.runs[id]
	if !ok {
		return model.WorkflowRun{}, storage.ErrNotFound
	}
	return *run, nil
}

func (m *memStore) MarkRunRunning(_ context.Context, id uuid.UUID) error {
	run, ok := m.runs[id]
	if !ok || run.Status != model.RunStatusPending {
		return storage.ErrNotFound
	}
	run.Status = model.RunStatusRunning
	return nil
}

func (m *memStore) CompleteRun(_ context.Context, id uuid.UUID, status model.RunStatus, result *model.WorkflowResult, errorMessage *string) error {
	run, ok := m.runs[id]
	if !ok || run.Status != model.RunStatusRunning {
		return storage.ErrNotFound
	}
	now := time.Now().UTC()
	run.Status = status
	run.Result = result
	run.ErrorMessage = errorMessage
	run.CompletedAt = &now
	return nil
}

func (m *memStore) AuditEventsByRun(_ context.Context, runID uuid.UUID) ([]model.AuditEvent, error) {
	return m.events[runID], nil
}

func (m *memStore) CountAuditEventsByRun(_ context.Context, runID uuid.UUID) (int, error) {
	return len(m.events[runID]), nil
}

func (m *memStore) GetCustomer(_ context.Context, id uuid.UUID) (model.Customer, error) {
	c, ok := m.customers[id]
	if !ok {
		return model.Customer{}, storage.ErrNotFound
	}
	return c, nil
}

func (m *memStore) ListCustomers(_ context.Context, limit int) ([]model.Customer, error) {
	out := make([]model.Customer, 0, len(m.customers))
	for _, c := range m.customers {
		if len(out) == limit {
			break
		}
		out = append(out, c)
	}
	return out, nil
}

func (m *memStore) Ping(context.Context) error { return m.pingErr }

// fakeEngine returns a canned result and records each invocation. It also
// writes one audit event per run so count assertions have something to see.
type fakeEngine struct {
	store  *memStore
	result model.WorkflowResult
	err    error
	calls  int
}

func (f *fakeEngine) Execute(_ context.Context, runID, customerID uuid.UUID, _ model.RunParams) (model.WorkflowResult, error) {
	f.calls++
	if f.store != nil {
		f.store.events[runID] = append(f.store.events[runID], model.AuditEvent{
			ID:         uuid.New(),
			RunID:      runID,
			StepName:   "finalize",
			InputData:  map[string]any{},
			OutputData: map[string]any{},
			OccurredAt: time.Now().UTC(),
		})
	}
	result := f.result
	result.CustomerID = customerID.String()
	return result, f.err
}

func newTestServer(store *memStore, engine *fakeEngine) *Server {
	return New(Config{
		Store:               store,
		Engine:              engine,
		Logger:              slog.New(slog.DiscardHandler),
		Port:                0,
		Version:             "test",
		EmbeddingProvider:   "mock",
		MockMode:            true,
		MaxRequestBodyBytes: 1 << 20,
	})
}

func seedCustomer(store *memStore) model.Customer {
	c := model.Customer{
		ID:          uuid.New(),
		Name:        "Alice Abbott",
		Email:       "alice.abbott.0@example.com",
		AccountType: "checking",
		CreatedAt:   time.Now().UTC(),
	}
	store.customers[c.ID] = c
	return c
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestRunTaskCompletes(t *testing.T) {
	store := newMemStore()
	customer := seedCustomer(store)
	engine := &fakeEngine{store: store, result: model.WorkflowResult{
		Status:          "completed",
		ConfidenceScore: 0.95,
		Explanation:     "Analysis of 10 transactions identified 0 potential anomalies.",
	}}
	srv := newTestServer(store, engine)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/tasks/run",
		map[string]any{"customer_id": customer.ID.String()})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp model.RunTaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, customer.ID.String(), resp.CustomerID)
	assert.Equal(t, model.RunStatusCompleted, resp.Status)
	assert.Equal(t, 1, engine.calls)

	runID, err := uuid.Parse(resp.TaskID)
	require.NoError(t, err)
	run := store.runs[runID]
	require.NotNil(t, run)
	assert.Equal(t, model.RunStatusCompleted, run.Status)
	require.NotNil(t, run.Result)
	assert.Equal(t, 0.95, run.Result.ConfidenceScore)
	require.NotNil(t, run.CompletedAt)
}

func TestRunTaskEscalatedStatus(t *testing.T) {
	store := newMemStore()
	customer := seedCustomer(store)
	engine := &fakeEngine{store: store, result: model.WorkflowResult{
		Status:      "escalated",
		IsEscalated: true,
	}}
	srv := newTestServer(store, engine)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/tasks/run",
		map[string]any{"customer_id": customer.ID.String()})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp model.RunTaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.RunStatusEscalated, resp.Status)
}

func TestRunTaskEngineFailureMarksRunFailed(t *testing.T) {
	store := newMemStore()
	customer := seedCustomer(store)
	engine := &fakeEngine{
		store:  store,
		result: model.WorkflowResult{Status: "failed", Error: "workflow: step detect_anomalies: audit write failed"},
		err:    fmt.Errorf("workflow: step detect_anomalies: audit write failed"),
	}
	srv := newTestServer(store, engine)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/tasks/run",
		map[string]any{"customer_id": customer.ID.String()})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp model.RunTaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.RunStatusFailed, resp.Status)

	runID, err := uuid.Parse(resp.TaskID)
	require.NoError(t, err)
	require.NotNil(t, store.runs[runID].ErrorMessage)
	assert.Contains(t, *store.runs[runID].ErrorMessage, "audit write failed")
}

func TestRunTaskUnknownCustomer(t *testing.T) {
	store := newMemStore()
	srv := newTestServer(store, &fakeEngine{store: store})

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/tasks/run",
		map[string]any{"customer_id": uuid.New().String()})
	require.Equal(t, http.StatusNotFound, rec.Code)

	var resp model.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, model.ErrCodeNotFound, resp.Error.Code)
	assert.NotEmpty(t, resp.RequestID)
}

func TestRunTaskValidation(t *testing.T) {
	store := newMemStore()
	customer := seedCustomer(store)
	engine := &fakeEngine{store: store}
	srv := newTestServer(store, engine)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing customer_id", map[string]any{}},
		{"malformed customer_id", map[string]any{"customer_id": "not-a-uuid"}},
		{"window too large", map[string]any{
			"customer_id":          customer.ID.String(),
			"analysis_window_days": 1000,
		}},
		{"threshold out of range", map[string]any{
			"customer_id":       customer.ID.String(),
			"anomaly_threshold": 1.5,
		}},
		{"unknown field", map[string]any{
			"customer_id": customer.ID.String(),
			"bogus":       true,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv.Handler(), http.MethodPost, "/tasks/run", tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)

			var resp model.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, model.ErrCodeInvalidInput, resp.Error.Code)
		})
	}
	assert.Zero(t, engine.calls)
}

func TestRunTaskCustomParams(t *testing.T) {
	store := newMemStore()
	customer := seedCustomer(store)
	engine := &fakeEngine{store: store, result: model.WorkflowResult{Status: "completed"}}
	srv := newTestServer(store, engine)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/tasks/run", map[string]any{
		"customer_id":          customer.ID.String(),
		"analysis_window_days": 90,
		"anomaly_threshold":    0.5,
	})
	require.Equal(t, http.StatusAccepted, rec.Code)

	var resp model.RunTaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	runID, err := uuid.Parse(resp.TaskID)
	require.NoError(t, err)
	assert.Equal(t, 90, store.runs[runID].InputParams.WindowDays)
	assert.Equal(t, 0.5, store.runs[runID].InputParams.AnomalyThreshold)
}

func TestGetTask(t *testing.T) {
	store := newMemStore()
	customer := seedCustomer(store)
	engine := &fakeEngine{store: store, result: model.WorkflowResult{
		Status:          "completed",
		ConfidenceScore: 0.95,
	}}
	srv := newTestServer(store, engine)

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/tasks/run",
		map[string]any{"customer_id": customer.ID.String()})
	require.Equal(t, http.StatusAccepted, rec.Code)
	var created model.RunTaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, srv.Handler(), http.MethodGet, "/tasks/"+created.TaskID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.GetTaskResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, created.TaskID, resp.TaskID)
	assert.Equal(t, model.RunStatusCompleted, resp.Status)
	assert.Equal(t, 30, resp.InputParams.WindowDays)
	require.NotNil(t, resp.Result)
	assert.Equal(t, 0.95, resp.Result.ConfidenceScore)
	assert.Equal(t, 1, resp.AuditEventCount)
	require.NotNil(t, resp.DurationMs)
	require.NotNil(t, resp.CompletedAt)
}

func TestGetTaskNotFound(t *testing.T) {
	store := newMemStore()
	srv := newTestServer(store, &fakeEngine{store: store})

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/tasks/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, srv.Handler(), http.MethodGet, "/tasks/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAudit(t *testing.T) {
	store := newMemStore()
	customer := seedCustomer(store)
	run, err := store.CreateRun(context.Background(), customer.ID, model.DefaultRunParams())
	require.NoError(t, err)

	tool := "anomaly_detector"
	store.events[run.ID] = []model.AuditEvent{
		{
			ID:         uuid.New(),
			RunID:      run.ID,
			StepName:   "ingest_transactions",
			InputData:  map[string]any{"customer_id": customer.ID.String()},
			OutputData: map[string]any{},
			DurationMs: 12,
			OccurredAt: time.Now().UTC(),
		},
		{
			ID:         uuid.New(),
			RunID:      run.ID,
			StepName:   "detect_anomalies",
			ToolName:   &tool,
			InputData:  map[string]any{},
			OutputData: map[string]any{"anomalies_detected": float64(2)},
			DurationMs: 3,
			OccurredAt: time.Now().UTC(),
		},
	}

	srv := newTestServer(store, &fakeEngine{store: store})
	rec := doJSON(t, srv.Handler(), http.MethodGet, "/tasks/"+run.ID.String()+"/audit", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.GetAuditResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.TotalEvents)
	require.Len(t, resp.Events, 2)
	assert.Equal(t, "ingest_transactions", resp.Events[0].StepName)
	assert.Equal(t, customer.ID.String(), resp.Events[0].InputData["customer_id"])
	require.NotNil(t, resp.Events[1].ToolName)
	assert.Equal(t, "anomaly_detector", *resp.Events[1].ToolName)
}

func TestGetAuditNotFound(t *testing.T) {
	store := newMemStore()
	srv := newTestServer(store, &fakeEngine{store: store})

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/tasks/"+uuid.NewString()+"/audit", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListCustomers(t *testing.T) {
	store := newMemStore()
	seedCustomer(store)
	seedCustomer(store)
	srv := newTestServer(store, &fakeEngine{store: store})

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/customers", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.ListCustomersResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 2, resp.Total)
	assert.Len(t, resp.Customers, 2)
	assert.NotEmpty(t, resp.Customers[0].AccountType)
}

func TestHealth(t *testing.T) {
	store := newMemStore()
	srv := newTestServer(store, &fakeEngine{store: store})

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp model.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
	assert.True(t, resp.DatabaseConnected)
	assert.True(t, resp.MockMode)
	assert.Equal(t, "mock", resp.EmbeddingProvider)
}

func TestHealthDatabaseDown(t *testing.T) {
	store := newMemStore()
	store.pingErr = fmt.Errorf("connection refused")
	srv := newTestServer(store, &fakeEngine{store: store})

	rec := doJSON(t, srv.Handler(), http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var resp model.HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "unhealthy", resp.Status)
	assert.False(t, resp.DatabaseConnected)
}

func TestRequestIDPropagation(t *testing.T) {
	store := newMemStore()
	srv := newTestServer(store, &fakeEngine{store: store})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "req-123", rec.Header().Get("X-Request-ID"))

	rec = doJSON(t, srv.Handler(), http.MethodGet, "/health", nil)
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
