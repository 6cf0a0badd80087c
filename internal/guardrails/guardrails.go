// Package guardrails enforces safety checks on workflow execution:
// a tool allowlist, tool input schema validation, a content filter over
// drafted text, and a per-run tool call quota.
package guardrails

import (
	"fmt"
	"regexp"

	"github.com/xeipuuv/gojsonschema"
)

// ViolationType tags the kind of guardrail check that failed.
type ViolationType string

const (
	ViolationToolNotAllowed    ViolationType = "tool_not_allowed"
	ViolationInvalidSchema     ViolationType = "invalid_schema"
	ViolationProhibitedContent ViolationType = "prohibited_content"
	ViolationRateLimitExceeded ViolationType = "rate_limit_exceeded"
)

// Violation is returned by every failed guardrail check.
type Violation struct {
	Type    ViolationType
	Message string
}

func (v *Violation) Error() string {
	return fmt.Sprintf("guardrail violation (%s): %s", v.Type, v.Message)
}

// Allowed tools. The set is closed: registration and invocation both
// check against it.
var allowedTools = map[string]bool{
	"transaction_analyzer": true,
	"anomaly_detector":     true,
	"explanation_drafter":  true,
	"policy_retriever":     true,
}

// AllowedTools returns the allowlist in sorted order for error messages.
func AllowedTools() []string {
	return []string{"anomaly_detector", "explanation_drafter", "policy_retriever", "transaction_analyzer"}
}

// Prohibited patterns in drafted text, checked in order. This is a demo
// system: output must not reference real institutions, PII shapes,
// financial advice, legal guarantees, or compliance certifications.
var prohibitedPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(Wells Fargo|Bank of America|Chase|Citibank|Capital One|HSBC|Barclays)\b`),
	regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
	regexp.MustCompile(`\b\d{4}[- ]?\d{4}[- ]?\d{4}[- ]?\d{4}\b`),
	regexp.MustCompile(`(?i)\b(buy|sell|invest in|purchase|guaranteed returns)\b`),
	regexp.MustCompile(`(?i)\b(guaranteed|promise|warranty|legally binding)\b`),
	regexp.MustCompile(`(?i)\b(PCI DSS|SOC 2|GDPR compliant|certified by)\b`),
}

// Enforcer tracks guardrail state for a single workflow run.
// Construct a fresh Enforcer per run: the call counter never resets.
// Not safe for concurrent use; a run executes its steps sequentially.
type Enforcer struct {
	toolCallCount int
	maxToolCalls  int
}

// NewEnforcer creates an enforcer with the given per-run tool call quota.
func NewEnforcer(maxToolCalls int) *Enforcer {
	return &Enforcer{maxToolCalls: maxToolCalls}
}

// CheckToolAllowlist verifies that a tool is on the allowlist.
func (e *Enforcer) CheckToolAllowlist(name string) error {
	if !allowedTools[name] {
		return &Violation{
			Type:    ViolationToolNotAllowed,
			Message: fmt.Sprintf("tool %q is not on the allowlist (allowed: %v)", name, AllowedTools()),
		}
	}
	return nil
}

// ValidateSchema validates data against a JSON schema document.
func (e *Enforcer) ValidateSchema(data map[string]any, schema string) error {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(schema),
		gojsonschema.NewGoLoader(data),
	)
	if err != nil {
		return &Violation{
			Type:    ViolationInvalidSchema,
			Message: fmt.Sprintf("schema validation error: %v", err),
		}
	}
	if !result.Valid() {
		return &Violation{
			Type:    ViolationInvalidSchema,
			Message: fmt.Sprintf("input validation failed: %v", result.Errors()),
		}
	}
	return nil
}

// CheckContentSafety scans text against the prohibited patterns in order
// and fails on the first match, reporting the matched snippet.
func (e *Enforcer) CheckContentSafety(text string) error {
	for _, pattern := range prohibitedPatterns {
		if m := pattern.FindString(text); m != "" {
			return &Violation{
				Type:    ViolationProhibitedContent,
				Message: fmt.Sprintf("content contains prohibited pattern: %q", m),
			}
		}
	}
	return nil
}

// IncrementCall counts one tool call against the per-run quota.
// The call that takes the counter past the quota fails; calls up to and
// including the quota succeed.
func (e *Enforcer) IncrementCall() error {
	e.toolCallCount++
	if e.toolCallCount > e.maxToolCalls {
		return &Violation{
			Type:    ViolationRateLimitExceeded,
			Message: fmt.Sprintf("tool call limit exceeded: %d/%d", e.toolCallCount, e.maxToolCalls),
		}
	}
	return nil
}

// CallCount returns the number of tool calls recorded so far.
func (e *Enforcer) CallCount() int {
	return e.toolCallCount
}
