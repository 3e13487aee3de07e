package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"autofy/backend/pkg/models"
)

// PostgresWorkflowStore is a PostgreSQL implementation of the WorkflowStore
// interface. Steps, schedule and execution logs are stored as JSONB on the
// workflow row, so the whole aggregate is written atomically.
type PostgresWorkflowStore struct {
	db *pgxpool.Pool
}

// NewPostgresWorkflowStore creates a new PostgresWorkflowStore.
func NewPostgresWorkflowStore(db *pgxpool.Pool) *PostgresWorkflowStore {
	return &PostgresWorkflowStore{db: db}
}

// Create inserts a new workflow.
func (s *PostgresWorkflowStore) Create(ctx context.Context, workflow *models.Workflow) error {
	steps, schedule, logs, err := marshalAggregate(workflow)
	if err != nil {
		return err
	}

	_, err = s.db.Exec(ctx, `INSERT INTO workflows
		(id, user_id, name, steps, is_active, trigger_type, schedule, last_executed,
		 execution_count, success_count, failure_count, execution_logs, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		workflow.ID, workflow.UserID, workflow.Name, steps, workflow.IsActive,
		workflow.TriggerType, schedule, workflow.LastExecuted,
		workflow.ExecutionCount, workflow.SuccessCount, workflow.FailureCount, logs,
		workflow.CreatedAt, workflow.UpdatedAt)
	return err
}

// Get retrieves a workflow with its full run history.
func (s *PostgresWorkflowStore) Get(ctx context.Context, id string) (*models.Workflow, error) {
	row := s.db.QueryRow(ctx, `SELECT id, user_id, name, steps, is_active, trigger_type,
		schedule, last_executed, execution_count, success_count, failure_count,
		execution_logs, created_at, updated_at
		FROM workflows WHERE id = $1`, id)
	return scanWorkflow(row, true)
}

// ListByUser returns the user's workflows, newest first. Run history is left
// out of list views; it is only loaded with the full aggregate.
func (s *PostgresWorkflowStore) ListByUser(ctx context.Context, userID string) ([]*models.Workflow, error) {
	rows, err := s.db.Query(ctx, `SELECT id, user_id, name, steps, is_active, trigger_type,
		schedule, last_executed, execution_count, success_count, failure_count,
		created_at, updated_at
		FROM workflows WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var workflows []*models.Workflow
	for rows.Next() {
		workflow, err := scanWorkflow(rows, false)
		if err != nil {
			return nil, err
		}
		workflows = append(workflows, workflow)
	}
	return workflows, rows.Err()
}

// Save persists every mutable field of an existing workflow in one UPDATE.
func (s *PostgresWorkflowStore) Save(ctx context.Context, workflow *models.Workflow) error {
	steps, schedule, logs, err := marshalAggregate(workflow)
	if err != nil {
		return err
	}

	tag, err := s.db.Exec(ctx, `UPDATE workflows SET
		name = $2, steps = $3, is_active = $4, trigger_type = $5, schedule = $6,
		last_executed = $7, execution_count = $8, success_count = $9, failure_count = $10,
		execution_logs = $11, updated_at = now()
		WHERE id = $1`,
		workflow.ID, workflow.Name, steps, workflow.IsActive, workflow.TriggerType,
		schedule, workflow.LastExecuted, workflow.ExecutionCount, workflow.SuccessCount,
		workflow.FailureCount, logs)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a workflow and its history.
func (s *PostgresWorkflowStore) Delete(ctx context.Context, id string) error {
	tag, err := s.db.Exec(ctx, "DELETE FROM workflows WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func marshalAggregate(workflow *models.Workflow) (steps, schedule, logs []byte, err error) {
	steps, err = json.Marshal(workflow.Steps)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("failed to marshal steps: %w", err)
	}
	if workflow.Schedule != nil {
		schedule, err = json.Marshal(workflow.Schedule)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal schedule: %w", err)
		}
	}
	if workflow.ExecutionLogs == nil {
		logs = []byte("[]")
	} else {
		logs, err = json.Marshal(workflow.ExecutionLogs)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("failed to marshal execution logs: %w", err)
		}
	}
	return steps, schedule, logs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWorkflow(row rowScanner, withLogs bool) (*models.Workflow, error) {
	var workflow models.Workflow
	var steps, schedule, logs []byte

	dest := []any{
		&workflow.ID, &workflow.UserID, &workflow.Name, &steps, &workflow.IsActive,
		&workflow.TriggerType, &schedule, &workflow.LastExecuted,
		&workflow.ExecutionCount, &workflow.SuccessCount, &workflow.FailureCount,
	}
	if withLogs {
		dest = append(dest, &logs)
	}
	dest = append(dest, &workflow.CreatedAt, &workflow.UpdatedAt)

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(steps, &workflow.Steps); err != nil {
		return nil, fmt.Errorf("failed to unmarshal steps: %w", err)
	}
	if len(schedule) > 0 {
		workflow.Schedule = &models.Schedule{}
		if err := json.Unmarshal(schedule, workflow.Schedule); err != nil {
			return nil, fmt.Errorf("failed to unmarshal schedule: %w", err)
		}
	}
	if len(logs) > 0 {
		if err := json.Unmarshal(logs, &workflow.ExecutionLogs); err != nil {
			return nil, fmt.Errorf("failed to unmarshal execution logs: %w", err)
		}
	}
	return &workflow, nil
}
