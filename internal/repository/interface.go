package repository

import (
	"context"
	"errors"

	"autofy/backend/pkg/models"
)

// ErrNotFound is returned when the requested row does not exist.
var ErrNotFound = errors.New("not found")

// WorkflowStore persists workflow aggregates. Save writes every mutable field
// of the aggregate, including counters and the bounded run history, in a
// single statement so a reader never observes a partially recorded run.
type WorkflowStore interface {
	// Create inserts a new workflow.
	Create(ctx context.Context, workflow *models.Workflow) error
	// Get retrieves a workflow with its full run history.
	Get(ctx context.Context, id string) (*models.Workflow, error)
	// ListByUser returns the user's workflows, newest first, without run history.
	ListByUser(ctx context.Context, userID string) ([]*models.Workflow, error)
	// Save persists the mutable fields of an existing workflow.
	Save(ctx context.Context, workflow *models.Workflow) error
	// Delete removes a workflow and its history.
	Delete(ctx context.Context, id string) error
}

// UserStore persists user accounts.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	Get(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
}

// CredentialStore persists connected-app credentials, keyed by
// (user, app name, account email).
type CredentialStore interface {
	// Upsert replaces any existing credential for the same key.
	Upsert(ctx context.Context, userID string, app models.ConnectedApp) error
	// ListByUser returns every connected app for the user.
	ListByUser(ctx context.Context, userID string) ([]models.ConnectedApp, error)
	// Delete disconnects one app account.
	Delete(ctx context.Context, userID, appName, accountEmail string) error
}
