package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"autofy/backend/pkg/models"
)

// PostgresUserStore is a PostgreSQL implementation of the UserStore and
// CredentialStore interfaces. Connected apps live in their own table keyed by
// (user_id, app_name, account_email).
type PostgresUserStore struct {
	db *pgxpool.Pool
}

// NewPostgresUserStore creates a new PostgresUserStore.
func NewPostgresUserStore(db *pgxpool.Pool) *PostgresUserStore {
	return &PostgresUserStore{db: db}
}

// Create inserts a new user.
func (s *PostgresUserStore) Create(ctx context.Context, user *models.User) error {
	_, err := s.db.Exec(ctx,
		"INSERT INTO users (id, name, email, created_at) VALUES ($1, $2, $3, $4)",
		user.ID, user.Name, user.Email, user.CreatedAt)
	return err
}

// Get retrieves a user by ID.
func (s *PostgresUserStore) Get(ctx context.Context, id string) (*models.User, error) {
	return s.getUser(ctx, "SELECT id, name, email, created_at FROM users WHERE id = $1", id)
}

// GetByEmail retrieves a user by email address.
func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "SELECT id, name, email, created_at FROM users WHERE email = $1", email)
}

func (s *PostgresUserStore) getUser(ctx context.Context, query, arg string) (*models.User, error) {
	var user models.User
	err := s.db.QueryRow(ctx, query, arg).Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

// Upsert replaces any existing credential for the same (user, app, account).
func (s *PostgresUserStore) Upsert(ctx context.Context, userID string, app models.ConnectedApp) error {
	_, err := s.db.Exec(ctx, `INSERT INTO connected_apps
		(user_id, app_name, account_email, access_token, refresh_token, expiry, scopes, connected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (user_id, app_name, account_email) DO UPDATE SET
		access_token = EXCLUDED.access_token,
		refresh_token = EXCLUDED.refresh_token,
		expiry = EXCLUDED.expiry,
		scopes = EXCLUDED.scopes,
		connected_at = EXCLUDED.connected_at`,
		userID, app.AppName, app.AccountEmail, app.AccessToken, app.RefreshToken,
		app.Expiry, app.Scopes, app.ConnectedAt)
	return err
}

// ListByUser returns every connected app for the user.
func (s *PostgresUserStore) ListByUser(ctx context.Context, userID string) ([]models.ConnectedApp, error) {
	rows, err := s.db.Query(ctx, `SELECT app_name, account_email, access_token, refresh_token,
		expiry, scopes, connected_at
		FROM connected_apps WHERE user_id = $1 ORDER BY connected_at`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var apps []models.ConnectedApp
	for rows.Next() {
		var app models.ConnectedApp
		err := rows.Scan(&app.AppName, &app.AccountEmail, &app.AccessToken,
			&app.RefreshToken, &app.Expiry, &app.Scopes, &app.ConnectedAt)
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, rows.Err()
}

// Delete disconnects one app account.
func (s *PostgresUserStore) Delete(ctx context.Context, userID, appName, accountEmail string) error {
	tag, err := s.db.Exec(ctx,
		"DELETE FROM connected_apps WHERE user_id = $1 AND app_name = $2 AND account_email = $3",
		userID, appName, accountEmail)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
