package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/model"
	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/storage"
)

// Store is the subset of storage methods the HTTP layer needs.
type Store interface {
	CreateRun(ctx context.Context, customerID uuid.UUID, params model.RunParams) (model.WorkflowRun, error)
	GetRun(ctx context.Context, id uuid.UUID) (model.WorkflowRun, error)
	MarkRunRunning(ctx context.Context, id uuid.UUID) error
	CompleteRun(ctx context.Context, id uuid.UUID, status model.RunStatus, result *model.WorkflowResult, errorMessage *string) error
	AuditEventsByRun(ctx context.Context, runID uuid.UUID) ([]model.AuditEvent, error)
	CountAuditEventsByRun(ctx context.Context, runID uuid.UUID) (int, error)
	GetCustomer(ctx context.Context, id uuid.UUID) (model.Customer, error)
	ListCustomers(ctx context.Context, limit int) ([]model.Customer, error)
	Ping(ctx context.Context) error
}

// WorkflowRunner executes one workflow run to completion.
type WorkflowRunner interface {
	Execute(ctx context.Context, runID, customerID uuid.UUID, params model.RunParams) (model.WorkflowResult, error)
}

// Handlers holds HTTP handler dependencies.
type Handlers struct {
	store               Store
	engine              WorkflowRunner
	validate            *validator.Validate
	logger              *slog.Logger
	version             string
	embeddingProvider   string
	mockMode            bool
	maxRequestBodyBytes int64
	openapiSpec         []byte
}

// HandlersDeps holds all dependencies for constructing Handlers.
type HandlersDeps struct {
	Store               Store
	Engine              WorkflowRunner
	Logger              *slog.Logger
	Version             string
	EmbeddingProvider   string
	MockMode            bool
	MaxRequestBodyBytes int64
	OpenAPISpec         []byte
}

// NewHandlers creates a new Handlers with all dependencies.
func NewHandlers(d HandlersDeps) *Handlers {
	return &Handlers{
		store:               d.Store,
		engine:              d.Engine,
		validate:            validator.New(validator.WithRequiredStructEnabled()),
		logger:              d.Logger,
		version:             d.Version,
		embeddingProvider:   d.EmbeddingProvider,
		mockMode:            d.MockMode,
		maxRequestBodyBytes: d.MaxRequestBodyBytes,
		openapiSpec:         d.OpenAPISpec,
	}
}

// HandleRunTask handles POST /tasks/run. The pipeline executes synchronously;
// the run record moves pending -> running -> terminal before the response is
// written, so callers that poll immediately always see a terminal status.
func (h *Handlers) HandleRunTask(w http.ResponseWriter, r *http.Request) {
	var req model.RunTaskRequest
	if err := decodeJSON(w, r, &req, h.maxRequestBodyBytes); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput,
			"invalid request body: "+err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, validationMessage(err))
		return
	}

	customerID, err := uuid.Parse(req.CustomerID)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput,
			"customer_id must be a valid UUID")
		return
	}

	ctx := r.Context()
	if _, err := h.store.GetCustomer(ctx, customerID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound,
				"customer not found: "+req.CustomerID)
			return
		}
		h.writeInternalError(w, r, "look up customer", err)
		return
	}

	params := req.Params()
	run, err := h.store.CreateRun(ctx, customerID, params)
	if err != nil {
		h.writeInternalError(w, r, "create run", err)
		return
	}
	if err := h.store.MarkRunRunning(ctx, run.ID); err != nil {
		h.writeInternalError(w, r, "mark run running", err)
		return
	}

	result, execErr := h.engine.Execute(ctx, run.ID, customerID, params)
	status, errMsg := terminalStatus(result, execErr)
	if err := h.store.CompleteRun(ctx, run.ID, status, &result, errMsg); err != nil {
		h.writeInternalError(w, r, "complete run", err)
		return
	}

	h.logger.InfoContext(ctx, "workflow run finished",
		"run_id", run.ID,
		"customer_id", customerID,
		"status", status,
		"is_escalated", result.IsEscalated,
	)

	writeJSON(w, http.StatusAccepted, model.RunTaskResponse{
		TaskID:     run.ID.String(),
		CustomerID: customerID.String(),
		Status:     status,
		CreatedAt:  run.CreatedAt,
	})
}

// HandleGetTask handles GET /tasks/{task_id}.
func (h *Handlers) HandleGetTask(w http.ResponseWriter, r *http.Request) {
	taskID, err := parseTaskID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	ctx := r.Context()
	run, err := h.store.GetRun(ctx, taskID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound,
				"task not found: "+taskID.String())
			return
		}
		h.writeInternalError(w, r, "get run", err)
		return
	}

	eventCount, err := h.store.CountAuditEventsByRun(ctx, run.ID)
	if err != nil {
		h.writeInternalError(w, r, "count audit events", err)
		return
	}

	resp := model.GetTaskResponse{
		TaskID:          run.ID.String(),
		CustomerID:      run.CustomerID.String(),
		Status:          run.Status,
		CreatedAt:       run.CreatedAt,
		CompletedAt:     run.CompletedAt,
		InputParams:     run.InputParams,
		Result:          run.Result,
		AuditEventCount: eventCount,
	}
	if run.CompletedAt != nil {
		d := run.CompletedAt.Sub(run.CreatedAt).Milliseconds()
		resp.DurationMs = &d
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandleGetAudit handles GET /tasks/{task_id}/audit. Events come back in
// execution order.
func (h *Handlers) HandleGetAudit(w http.ResponseWriter, r *http.Request) {
	taskID, err := parseTaskID(r)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, model.ErrCodeInvalidInput, err.Error())
		return
	}

	ctx := r.Context()
	if _, err := h.store.GetRun(ctx, taskID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, model.ErrCodeNotFound,
				"task not found: "+taskID.String())
			return
		}
		h.writeInternalError(w, r, "get run", err)
		return
	}

	events, err := h.store.AuditEventsByRun(ctx, taskID)
	if err != nil {
		h.writeInternalError(w, r, "list audit events", err)
		return
	}

	summaries := make([]model.AuditEventSummary, len(events))
	for i, e := range events {
		summaries[i] = model.AuditEventSummary{
			ID:         e.ID.String(),
			StepName:   e.StepName,
			ToolName:   e.ToolName,
			InputData:  e.InputData,
			OutputData: e.OutputData,
			DurationMs: e.DurationMs,
			OccurredAt: e.OccurredAt,
		}
	}
	writeJSON(w, http.StatusOK, model.GetAuditResponse{
		TaskID:      taskID.String(),
		TotalEvents: len(summaries),
		Events:      summaries,
	})
}

// maxCustomerListLimit bounds the GET /customers response size.
const maxCustomerListLimit = 200

// HandleListCustomers handles GET /customers.
func (h *Handlers) HandleListCustomers(w http.ResponseWriter, r *http.Request) {
	customers, err := h.store.ListCustomers(r.Context(), maxCustomerListLimit)
	if err != nil {
		h.writeInternalError(w, r, "list customers", err)
		return
	}

	summaries := make([]model.CustomerSummary, len(customers))
	for i, c := range customers {
		summaries[i] = model.CustomerSummary{
			ID:          c.ID.String(),
			Name:        c.Name,
			Email:       c.Email,
			AccountType: c.AccountType,
		}
	}
	writeJSON(w, http.StatusOK, model.ListCustomersResponse{
		Customers: summaries,
		Total:     len(summaries),
	})
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	httpStatus := http.StatusOK
	dbConnected := true

	if err := h.store.Ping(r.Context()); err != nil {
		status = "unhealthy"
		httpStatus = http.StatusServiceUnavailable
		dbConnected = false
	}

	writeJSON(w, httpStatus, model.HealthResponse{
		Status:            status,
		Version:           h.version,
		DatabaseConnected: dbConnected,
		EmbeddingProvider: h.embeddingProvider,
		MockMode:          h.mockMode,
	})
}

// HandleOpenAPISpec serves the embedded OpenAPI specification.
func (h *Handlers) HandleOpenAPISpec(w http.ResponseWriter, r *http.Request) {
	if len(h.openapiSpec) == 0 {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(h.openapiSpec)
}

func (h *Handlers) writeInternalError(w http.ResponseWriter, r *http.Request, action string, err error) {
	h.logger.ErrorContext(r.Context(), "handler error",
		"action", action,
		"error", err,
		"request_id", RequestIDFromContext(r.Context()),
	)
	writeError(w, r, http.StatusInternalServerError, model.ErrCodeInternalError,
		"failed to "+action)
}

// terminalStatus maps the engine's outcome onto a run status and optional
// error message for the run record.
func terminalStatus(result model.WorkflowResult, execErr error) (model.RunStatus, *string) {
	if execErr != nil {
		msg := execErr.Error()
		return model.RunStatusFailed, &msg
	}
	switch result.Status {
	case "escalated":
		return model.RunStatusEscalated, nil
	case "failed":
		msg := result.Error
		return model.RunStatusFailed, &msg
	default:
		return model.RunStatusCompleted, nil
	}
}

func parseTaskID(r *http.Request) (uuid.UUID, error) {
	raw := r.PathValue("task_id")
	if raw == "" {
		return uuid.Nil, fmt.Errorf("task_id is required")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid task_id: %s", raw)
	}
	return id, nil
}

// validationMessage flattens validator errors into a single readable line.
func validationMessage(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, len(verrs))
	for i, fe := range verrs {
		parts[i] = fmt.Sprintf("field %s failed %s validation", fe.Field(), fe.Tag())
	}
	return strings.Join(parts, "; ")
}
