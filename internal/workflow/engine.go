// Package workflow runs the seven-step transaction analysis pipeline:
// ingest, detect, retrieve, draft, evaluate, conditionally escalate, and
// finalize. The step order is fixed; the only branch is whether the
// escalate step runs, decided by the evaluate step. There are no retries
// and no cycles, and every run reaches finalize unless the audit trail
// itself cannot be written.
package workflow

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/audit"
	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/guardrails"
	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/model"
	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/retrieval"
	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/tools"
)

// Config carries the process-level pipeline settings.
type Config struct {
	// Runs whose draft confidence falls below this threshold escalate.
	ConfidenceThreshold float64
	// Per-run tool call quota.
	MaxToolCalls int
}

// runContext bundles the per-run collaborators handed to every step.
// A fresh one is assembled for each Execute call, so concurrent runs
// share nothing but the underlying stores.
type runContext struct {
	registry  *tools.Registry
	audit     *audit.Logger
	enforcer  *guardrails.Enforcer
	retrieval *retrieval.Service
	threshold float64
	log       *slog.Logger
}

// step is one pipeline stage. Steps handle their own failures: a
// returned error means the audit trail could not be written and the
// whole run must be marked failed.
type step struct {
	name string
	run  func(ctx context.Context, rc *runContext, state *State) error
}

// Engine executes workflow runs. Safe for concurrent use; all per-run
// state lives in the State and runContext created by Execute.
type Engine struct {
	txnStore   tools.TransactionStore
	eventStore audit.EventStore
	retrieval  *retrieval.Service
	cfg        Config
	log        *slog.Logger
}

// NewEngine creates a pipeline engine.
func NewEngine(txnStore tools.TransactionStore, eventStore audit.EventStore, retrievalSvc *retrieval.Service, cfg Config, log *slog.Logger) *Engine {
	return &Engine{
		txnStore:   txnStore,
		eventStore: eventStore,
		retrieval:  retrievalSvc,
		cfg:        cfg,
		log:        log,
	}
}

// Execute runs the full pipeline for one customer and returns the final
// result. A returned error means the run is failed; the result is still
// populated with status "failed" so the caller can persist it.
func (e *Engine) Execute(ctx context.Context, runID, customerID uuid.UUID, params model.RunParams) (model.WorkflowResult, error) {
	log := e.log.With("run_id", runID, "customer_id", customerID)
	log.InfoContext(ctx, "starting workflow run", "params", params)

	auditLog := audit.NewLogger(e.eventStore, runID, e.log)
	enforcer := guardrails.NewEnforcer(e.cfg.MaxToolCalls)
	registry := tools.NewRegistry(auditLog, enforcer, e.log)

	for _, tool := range []tools.Tool{
		tools.NewAnalyzer(e.txnStore),
		tools.NewDetector(e.txnStore),
		tools.NewDrafter(),
	} {
		if err := registry.Register(tool); err != nil {
			return failedResult(customerID, err), fmt.Errorf("workflow: register tools: %w", err)
		}
	}

	rc := &runContext{
		registry:  registry,
		audit:     auditLog,
		enforcer:  enforcer,
		retrieval: e.retrieval,
		threshold: e.cfg.ConfidenceThreshold,
		log:       log,
	}
	state := newState(runID, customerID, params)

	pipeline := []step{
		{name: stepIngest, run: ingestTransactions},
		{name: stepDetect, run: detectAnomalies},
		{name: stepRetrieve, run: retrievePolicies},
		{name: stepDraft, run: draftExplanation},
		{name: stepEvaluate, run: evaluateConfidence},
	}

	for _, st := range pipeline {
		if err := e.runStep(ctx, rc, state, st); err != nil {
			return failedResult(customerID, err), err
		}
	}

	if state.IsEscalated {
		if err := e.runStep(ctx, rc, state, step{name: stepEscalate, run: escalate}); err != nil {
			return failedResult(customerID, err), err
		}
	}
	if err := e.runStep(ctx, rc, state, step{name: stepFinalize, run: finalize}); err != nil {
		return failedResult(customerID, err), err
	}

	log.InfoContext(ctx, "workflow run finished",
		"status", state.FinalResult.Status,
		"anomalies", state.FinalResult.AnomaliesDetected,
		"escalated", state.FinalResult.IsEscalated,
		"tool_calls", enforcer.CallCount(),
	)
	return state.FinalResult, nil
}

func (e *Engine) runStep(ctx context.Context, rc *runContext, state *State, st step) error {
	if err := st.run(ctx, rc, state); err != nil {
		// The step could not record its own outcome; without a
		// trustworthy trail the run cannot stand.
		rc.log.ErrorContext(ctx, "workflow step failed fatally", "step", st.name, "error", err)
		if auditErr := rc.audit.Error(ctx, "workflow", err, nil); auditErr != nil {
			rc.log.ErrorContext(ctx, "audit write failed for fatal step error", "error", auditErr)
		}
		return fmt.Errorf("workflow: step %s: %w", st.name, err)
	}
	return nil
}

func failedResult(customerID uuid.UUID, err error) model.WorkflowResult {
	return model.WorkflowResult{
		Status:     "failed",
		CustomerID: customerID.String(),
		Error:      err.Error(),
	}
}
