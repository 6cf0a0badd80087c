package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sheier-tomer/enterprise-agent-workflow-demo/internal/model"
)

// CreateRun inserts a new workflow run in status pending and returns it.
func (db *DB) CreateRun(ctx context.Context, customerID uuid.UUID, params model.RunParams) (model.WorkflowRun, error) {
	run := model.WorkflowRun{
		ID:          uuid.New(),
		CustomerID:  customerID,
		Status:      model.RunStatusPending,
		InputParams: params,
		CreatedAt:   time.Now().UTC(),
	}

	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return model.WorkflowRun{}, fmt.Errorf("storage: marshal run params: %w", err)
	}

	_, err = db.pool.Exec(ctx,
		`INSERT INTO workflow_runs (id, customer_id, status, input_params, created_at)
		 VALUES ($1, $2, $3, $4::jsonb, $5)`,
		run.ID, run.CustomerID, string(run.Status), paramsJSON, run.CreatedAt,
	)
	if err != nil {
		return model.WorkflowRun{}, fmt.Errorf("storage: create run: %w", err)
	}
	return run, nil
}

// GetRun retrieves a run by ID.
func (db *DB) GetRun(ctx context.Context, id uuid.UUID) (model.WorkflowRun, error) {
	var (
		run        model.WorkflowRun
		paramsJSON []byte
		resultJSON []byte
	)
	err := db.pool.QueryRow(ctx,
		`SELECT id, customer_id, status, input_params, result, error_message, created_at, completed_at
		 FROM workflow_runs WHERE id = $1`, id,
	).Scan(
		&run.ID, &run.CustomerID, &run.Status, &paramsJSON, &resultJSON,
		&run.ErrorMessage, &run.CreatedAt, &run.CompletedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return model.WorkflowRun{}, fmt.Errorf("%w: run %s", ErrNotFound, id)
		}
		return model.WorkflowRun{}, fmt.Errorf("storage: get run: %w", err)
	}

	if err := json.Unmarshal(paramsJSON, &run.InputParams); err != nil {
		return model.WorkflowRun{}, fmt.Errorf("storage: unmarshal run params: %w", err)
	}
	if resultJSON != nil {
		run.Result = &model.WorkflowResult{}
		if err := json.Unmarshal(resultJSON, run.Result); err != nil {
			return model.WorkflowRun{}, fmt.Errorf("storage: unmarshal run result: %w", err)
		}
	}
	return run, nil
}

// MarkRunRunning flips a pending run to running before the engine starts.
func (db *DB) MarkRunRunning(ctx context.Context, id uuid.UUID) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE workflow_runs SET status = 'running' WHERE id = $1 AND status = 'pending'`, id,
	)
	if err != nil {
		return fmt.Errorf("storage: mark run running: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: pending run %s", ErrNotFound, id)
	}
	return nil
}

// CompleteRun moves a running run to a terminal status with its result.
// errorMessage is set only for failed runs.
func (db *DB) CompleteRun(ctx context.Context, id uuid.UUID, status model.RunStatus, result *model.WorkflowResult, errorMessage *string) error {
	var resultJSON []byte
	if result != nil {
		var err error
		resultJSON, err = json.Marshal(result)
		if err != nil {
			return fmt.Errorf("storage: marshal run result: %w", err)
		}
	}

	tag, err := db.pool.Exec(ctx,
		`UPDATE workflow_runs SET status = $1, result = $2::jsonb, error_message = $3, completed_at = $4
		 WHERE id = $5 AND status = 'running'`,
		string(status), resultJSON, errorMessage, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("storage: complete run: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: running run %s", ErrNotFound, id)
	}
	return nil
}

// ListRunsByCustomer returns a customer's runs, newest first.
func (db *DB) ListRunsByCustomer(ctx context.Context, customerID uuid.UUID, limit int) ([]model.WorkflowRun, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := db.pool.Query(ctx,
		`SELECT id, customer_id, status, input_params, result, error_message, created_at, completed_at
		 FROM workflow_runs WHERE customer_id = $1
		 ORDER BY created_at DESC LIMIT $2`,
		customerID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("storage: list runs: %w", err)
	}
	defer rows.Close()

	var runs []model.WorkflowRun
	for rows.Next() {
		var (
			run        model.WorkflowRun
			paramsJSON []byte
			resultJSON []byte
		)
		if err := rows.Scan(
			&run.ID, &run.CustomerID, &run.Status, &paramsJSON, &resultJSON,
			&run.ErrorMessage, &run.CreatedAt, &run.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("storage: scan run: %w", err)
		}
		if err := json.Unmarshal(paramsJSON, &run.InputParams); err != nil {
			return nil, fmt.Errorf("storage: unmarshal run params: %w", err)
		}
		if resultJSON != nil {
			run.Result = &model.WorkflowResult{}
			if err := json.Unmarshal(resultJSON, run.Result); err != nil {
				return nil, fmt.Errorf("storage: unmarshal run result: %w", err)
			}
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
