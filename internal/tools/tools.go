// Package tools implements the workflow tool registry and the three
// analysis tools. All tool I/O travels as map[string]any so every call
// can flow through the audit sanitizer unchanged.
package tools

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/audit"
	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/guardrails"
)

// ErrToolNotRegistered is returned when a tool name passes the allowlist
// but was never registered with the registry.
var ErrToolNotRegistered = errors.New("tools: tool not registered")

// Tool is one invocable workflow tool. Execute validates nothing itself;
// the registry checks the input against InputSchema before dispatch.
type Tool interface {
	Name() string
	InputSchema() string
	Execute(ctx context.Context, input map[string]any) (map[string]any, error)
}

// Registry dispatches tool calls with guardrail enforcement and audit
// logging. Construct one per run alongside the run's enforcer and logger.
type Registry struct {
	tools    map[string]Tool
	auditLog *audit.Logger
	enforcer *guardrails.Enforcer
	log      *slog.Logger
}

// NewRegistry creates an empty registry bound to a run's audit logger
// and guardrail enforcer.
func NewRegistry(auditLog *audit.Logger, enforcer *guardrails.Enforcer, log *slog.Logger) *Registry {
	return &Registry{
		tools:    make(map[string]Tool),
		auditLog: auditLog,
		enforcer: enforcer,
		log:      log,
	}
}

// Register adds a tool. Registration fails for tools off the allowlist.
func (r *Registry) Register(tool Tool) error {
	if err := r.enforcer.CheckToolAllowlist(tool.Name()); err != nil {
		return err
	}
	r.tools[tool.Name()] = tool
	return nil
}

// RegisteredTools returns the registered tool names in sorted order.
func (r *Registry) RegisteredTools() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Invoke runs a registered tool with full guardrail checks. The call is
// counted against the run quota, the input is validated against the
// tool's schema, and both success and failure produce one audit event.
// Tool errors are returned to the calling step after being audited.
func (r *Registry) Invoke(ctx context.Context, name string, input map[string]any, step string) (map[string]any, error) {
	if err := r.enforcer.CheckToolAllowlist(name); err != nil {
		return nil, err
	}
	if err := r.enforcer.IncrementCall(); err != nil {
		return nil, err
	}

	tool, ok := r.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrToolNotRegistered, name)
	}

	start := time.Now()

	output, err := r.execute(ctx, tool, input)
	duration := time.Since(start)

	if err != nil {
		auditErr := r.auditLog.ToolCall(ctx, step, name, input, map[string]any{
			"error":         true,
			"error_type":    audit.ErrorType(err),
			"error_message": err.Error(),
		}, duration)
		if auditErr != nil {
			return nil, auditErr
		}
		r.log.ErrorContext(ctx, "tool call failed",
			"tool", name, "step", step, "error", err)
		return nil, err
	}

	if auditErr := r.auditLog.ToolCall(ctx, step, name, input, output, duration); auditErr != nil {
		return nil, auditErr
	}
	r.log.InfoContext(ctx, "tool call completed",
		"tool", name, "step", step, "duration_ms", duration.Milliseconds())
	return output, nil
}

func (r *Registry) execute(ctx context.Context, tool Tool, input map[string]any) (map[string]any, error) {
	if err := r.enforcer.ValidateSchema(input, tool.InputSchema()); err != nil {
		return nil, err
	}
	return tool.Execute(ctx, input)
}
