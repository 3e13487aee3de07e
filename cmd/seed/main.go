package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"autofy/backend/internal/config"
	"autofy/backend/internal/logging"
	"autofy/backend/internal/repository"
	"autofy/backend/pkg/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
	id UUID PRIMARY KEY,
	name TEXT NOT NULL,
	email TEXT NOT NULL UNIQUE,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS connected_apps (
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	app_name TEXT NOT NULL,
	account_email TEXT NOT NULL,
	access_token TEXT NOT NULL,
	refresh_token TEXT,
	expiry TIMESTAMPTZ,
	scopes TEXT[],
	connected_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (user_id, app_name, account_email)
);
CREATE TABLE IF NOT EXISTS workflows (
	id UUID PRIMARY KEY,
	user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
	name TEXT NOT NULL,
	steps JSONB NOT NULL,
	is_active BOOLEAN NOT NULL DEFAULT TRUE,
	trigger_type TEXT NOT NULL DEFAULT 'manual',
	schedule JSONB,
	last_executed TIMESTAMPTZ,
	execution_count INT NOT NULL DEFAULT 0,
	success_count INT NOT NULL DEFAULT 0,
	failure_count INT NOT NULL DEFAULT 0,
	execution_logs JSONB NOT NULL DEFAULT '[]',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS workflows_user_created_idx ON workflows (user_id, created_at DESC);
`

func main() {
	ctx := context.Background()
	logger := logging.NewLogger()

	// Load config
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Connect to DB
	connStr := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DB.Host, cfg.DB.Port, cfg.DB.User, cfg.DB.Password, cfg.DB.Name, cfg.DB.SSLMode,
	)
	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pool.Close()

	// 1. Ensure schema exists
	if _, err := pool.Exec(ctx, schema); err != nil {
		log.Fatalf("Failed to create schema: %v", err)
	}
	logger.Info("Schema ready")

	users := repository.NewPostgresUserStore(pool)
	workflows := repository.NewPostgresWorkflowStore(pool)

	// 2. Ensure dev user exists
	email := "dev@localhost"
	user, err := users.GetByEmail(ctx, email)
	if err != nil {
		logger.Info("Creating dev user %s", email)
		user = &models.User{
			ID:        uuid.New().String(),
			Name:      "dev",
			Email:     email,
			CreatedAt: time.Now().UTC(),
		}
		if err := users.Create(ctx, user); err != nil {
			log.Fatalf("Failed to create dev user: %v", err)
		}
	} else {
		logger.Info("Found existing dev user %s", user.ID)
	}

	// 3. Check for existing workflows to prevent duplicates
	existing, err := workflows.ListByUser(ctx, user.ID)
	if err != nil {
		log.Fatalf("Failed to list existing workflows: %v", err)
	}
	existingMap := make(map[string]bool)
	for _, w := range existing {
		existingMap[w.Name] = true
	}

	// 4. Create seed workflows
	seeds := []struct {
		Name  string
		Steps []models.Step
	}{
		{
			Name: "Email to Sheet",
			Steps: []models.Step{
				{Type: models.StepTrigger, App: "Gmail", Event: "New Email", AccountEmail: email},
				{Type: models.StepAction, App: "Google Sheets", Event: "Add Row", AccountEmail: email,
					Config: map[string]interface{}{"spreadsheetId": "REPLACE_ME", "range": "Sheet1!A:B"}},
			},
		},
		{
			Name: "Daily Digest",
			Steps: []models.Step{
				{Type: models.StepTrigger, App: "Gmail", Event: "New Email", AccountEmail: email},
				{Type: models.StepAction, App: "Gmail", Event: "Send Email", AccountEmail: email,
					Config: map[string]interface{}{"to": email, "subject": "Daily digest"}},
			},
		},
		{
			Name: "Meeting Notes Folder",
			Steps: []models.Step{
				{Type: models.StepTrigger, App: "Google Calendar", Event: "New Event", AccountEmail: email},
				{Type: models.StepAction, App: "Google Drive", Event: "Create Folder", AccountEmail: email},
			},
		},
	}

	for _, seed := range seeds {
		if existingMap[seed.Name] {
			logger.Info("Skipping existing workflow %q", seed.Name)
			continue
		}

		now := time.Now().UTC()
		wf := &models.Workflow{
			ID:          uuid.New().String(),
			UserID:      user.ID,
			Name:        seed.Name,
			Steps:       seed.Steps,
			IsActive:    true,
			TriggerType: models.TriggerManual,
			CreatedAt:   now,
			UpdatedAt:   now,
		}

		if err := workflows.Create(ctx, wf); err != nil {
			log.Printf("Failed to create workflow %s: %v", seed.Name, err)
		} else {
			logger.Info("Seeded workflow %q (%s)", seed.Name, wf.ID)
		}
	}
	logger.Info("Seeding complete!")
}
