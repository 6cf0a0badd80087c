package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/model"
)

// InsertAuditEvent appends one audit event. The table is append-only:
// no update or delete methods exist on this type.
func (db *DB) InsertAuditEvent(ctx context.Context, event model.AuditEvent) error {
	inputJSON, err := json.Marshal(orEmpty(event.InputData))
	if err != nil {
		return fmt.Errorf("storage: marshal audit input: %w", err)
	}
	outputJSON, err := json.Marshal(orEmpty(event.OutputData))
	if err != nil {
		return fmt.Errorf("storage: marshal audit output: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO audit_events (id, run_id, step_name, tool_name, input_data, output_data, duration_ms, occurred_at)
		 VALUES ($1, $2, $3, $4, $5::jsonb, $6::jsonb, $7, $8)`,
		event.ID, event.RunID, event.StepName, event.ToolName,
		inputJSON, outputJSON, event.DurationMs, event.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("storage: insert audit event: %w", err)
	}
	return nil
}

// AuditEventsByRun returns a run's events ordered by occurrence.
func (db *DB) AuditEventsByRun(ctx context.Context, runID uuid.UUID) ([]model.AuditEvent, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, run_id, step_name, tool_name, input_data, output_data, duration_ms, occurred_at
		 FROM audit_events WHERE run_id = $1
		 ORDER BY occurred_at, id`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: query audit events: %w", err)
	}
	defer rows.Close()

	var events []model.AuditEvent
	for rows.Next() {
		var (
			event      model.AuditEvent
			inputJSON  []byte
			outputJSON []byte
		)
		if err := rows.Scan(
			&event.ID, &event.RunID, &event.StepName, &event.ToolName,
			&inputJSON, &outputJSON, &event.DurationMs, &event.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("storage: scan audit event: %w", err)
		}
		if err := json.Unmarshal(inputJSON, &event.InputData); err != nil {
			return nil, fmt.Errorf("storage: unmarshal audit input: %w", err)
		}
		if err := json.Unmarshal(outputJSON, &event.OutputData); err != nil {
			return nil, fmt.Errorf("storage: unmarshal audit output: %w", err)
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

// CountAuditEventsByRun returns the number of events in a run's trail.
func (db *DB) CountAuditEventsByRun(ctx context.Context, runID uuid.UUID) (int, error) {
	var count int
	err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM audit_events WHERE run_id = $1`, runID,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("storage: count audit events: %w", err)
	}
	return count, nil
}

func orEmpty(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return m
}
