// Package services contains the application services between the HTTP
// handlers and the engine/repository layers.
package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"autofy/backend/internal/engine"
	"autofy/backend/internal/repository"
	"autofy/backend/pkg/models"
)

// ErrWorkflowNotFound is returned when the requested workflow does not exist.
var ErrWorkflowNotFound = errors.New("workflow not found")

// RunSummary is one entry of the recent-executions feed in UserStats.
type RunSummary struct {
	WorkflowID   string           `json:"workflowId"`
	WorkflowName string           `json:"workflowName"`
	ExecutedAt   time.Time        `json:"executedAt"`
	Status       models.RunStatus `json:"status"`
}

// UserStats aggregates execution statistics across all of a user's workflows.
type UserStats struct {
	TotalWorkflows       int          `json:"totalWorkflows"`
	ActiveWorkflows      int          `json:"activeWorkflows"`
	TotalExecutions      int          `json:"totalExecutions"`
	SuccessfulExecutions int          `json:"successfulExecutions"`
	FailedExecutions     int          `json:"failedExecutions"`
	AverageSuccessRate   float64      `json:"averageSuccessRate"`
	RecentExecutions     []RunSummary `json:"recentExecutions"`
}

// WorkflowService implements workflow CRUD, execution and statistics.
type WorkflowService struct {
	workflows repository.WorkflowStore
	creds     repository.CredentialStore
	engine    *engine.Engine
}

// NewWorkflowService creates a new WorkflowService.
func NewWorkflowService(workflows repository.WorkflowStore, creds repository.CredentialStore, eng *engine.Engine) *WorkflowService {
	return &WorkflowService{
		workflows: workflows,
		creds:     creds,
		engine:    eng,
	}
}

// Create validates and stores a new workflow for the user.
func (s *WorkflowService) Create(ctx context.Context, userID, name string, triggerType models.TriggerType, schedule *models.Schedule, steps []models.Step) (*models.Workflow, error) {
	if strings.TrimSpace(name) == "" {
		return nil, errors.New("workflow name is required")
	}
	if triggerType == "" {
		triggerType = models.TriggerManual
	}

	now := time.Now().UTC()
	workflow := &models.Workflow{
		ID:          uuid.New().String(),
		UserID:      userID,
		Name:        strings.TrimSpace(name),
		Steps:       steps,
		IsActive:    true,
		TriggerType: triggerType,
		Schedule:    schedule,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := workflow.Validate(); err != nil {
		return nil, err
	}

	if err := s.workflows.Create(ctx, workflow); err != nil {
		return nil, fmt.Errorf("failed to create workflow: %w", err)
	}
	return workflow, nil
}

// Get returns a workflow with its full run history.
func (s *WorkflowService) Get(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, err := s.workflows.Get(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrWorkflowNotFound
	}
	return workflow, err
}

// List returns the user's workflows without run history, newest first.
func (s *WorkflowService) List(ctx context.Context, userID string) ([]*models.Workflow, error) {
	return s.workflows.ListByUser(ctx, userID)
}

// UpdateRequest carries the user-editable workflow fields. Nil fields are
// left unchanged; execution bookkeeping is never editable here.
type UpdateRequest struct {
	Name     *string
	Steps    []models.Step
	IsActive *bool
}

// Update applies user edits to a workflow.
func (s *WorkflowService) Update(ctx context.Context, id string, req UpdateRequest) (*models.Workflow, error) {
	workflow, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if strings.TrimSpace(*req.Name) == "" {
			return nil, errors.New("workflow name is required")
		}
		workflow.Name = strings.TrimSpace(*req.Name)
	}
	if req.Steps != nil {
		workflow.Steps = req.Steps
	}
	if req.IsActive != nil {
		workflow.IsActive = *req.IsActive
	}
	if err := workflow.Validate(); err != nil {
		return nil, err
	}

	workflow.UpdatedAt = time.Now().UTC()
	if err := s.workflows.Save(ctx, workflow); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrWorkflowNotFound
		}
		return nil, fmt.Errorf("failed to update workflow: %w", err)
	}
	return workflow, nil
}

// Delete removes a workflow. Deletion has no external side effects.
func (s *WorkflowService) Delete(ctx context.Context, id string) error {
	err := s.workflows.Delete(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrWorkflowNotFound
	}
	return err
}

// Execute resolves the owner's credential set, runs the engine, and returns
// the run record. The read here only identifies the owner; the engine loads
// the aggregate again under its per-workflow lock before mutating it. The
// engine persists the mutated aggregate; a persistence failure is returned as
// a hard error and must not be read as "the run did not happen", since
// earlier steps already had external effects.
func (s *WorkflowService) Execute(ctx context.Context, workflowID string) (*models.RunRecord, error) {
	workflow, err := s.Get(ctx, workflowID)
	if err != nil {
		return nil, err
	}

	apps, err := s.creds.ListByUser(ctx, workflow.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load connected apps: %w", err)
	}

	record, err := s.engine.Execute(ctx, workflowID, engine.NewCredentialSet(apps))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrWorkflowNotFound
	}
	return record, err
}

// Stats aggregates execution statistics across the user's workflows and
// collects the ten most recent runs, newest first.
func (s *WorkflowService) Stats(ctx context.Context, userID string) (*UserStats, error) {
	list, err := s.workflows.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	stats := &UserStats{RecentExecutions: []RunSummary{}}
	var rateSum float64
	for _, summary := range list {
		workflow, err := s.workflows.Get(ctx, summary.ID)
		if err != nil {
			return nil, err
		}

		stats.TotalWorkflows++
		if workflow.IsActive {
			stats.ActiveWorkflows++
		}
		stats.TotalExecutions += workflow.ExecutionCount
		stats.SuccessfulExecutions += workflow.SuccessCount
		stats.FailedExecutions += workflow.FailureCount
		rateSum += workflow.SuccessRate()

		logs := workflow.ExecutionLogs
		if len(logs) > 5 {
			logs = logs[len(logs)-5:]
		}
		for _, log := range logs {
			stats.RecentExecutions = append(stats.RecentExecutions, RunSummary{
				WorkflowID:   workflow.ID,
				WorkflowName: workflow.Name,
				ExecutedAt:   log.ExecutedAt,
				Status:       log.Status,
			})
		}
	}

	if stats.TotalWorkflows > 0 {
		avg := rateSum / float64(stats.TotalWorkflows)
		stats.AverageSuccessRate = math.Round(avg*100) / 100
	}

	sort.Slice(stats.RecentExecutions, func(i, j int) bool {
		return stats.RecentExecutions[i].ExecutedAt.After(stats.RecentExecutions[j].ExecutedAt)
	})
	if len(stats.RecentExecutions) > 10 {
		stats.RecentExecutions = stats.RecentExecutions[:10]
	}
	return stats, nil
}
