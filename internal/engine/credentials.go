package engine

import (
	"autofy/backend/pkg/models"
)

// CredentialKey identifies one connected account within a user's credential set.
type CredentialKey struct {
	AppName      string
	AccountEmail string
}

// CredentialResolver supplies the connected-account credential a step needs.
// Credentials are read-only from the engine's perspective; refreshing tokens
// is the credential store's business.
type CredentialResolver interface {
	Find(appName, accountEmail string) (models.ConnectedApp, bool)
}

// CredentialSet is an in-memory CredentialResolver built from one user's
// connected apps.
type CredentialSet map[CredentialKey]models.ConnectedApp

// NewCredentialSet indexes a user's connected apps by (app, account email).
func NewCredentialSet(apps []models.ConnectedApp) CredentialSet {
	set := make(CredentialSet, len(apps))
	for _, app := range apps {
		set[CredentialKey{AppName: app.AppName, AccountEmail: app.AccountEmail}] = app
	}
	return set
}

// Find returns the credential for the exact (app, account email) pair.
func (s CredentialSet) Find(appName, accountEmail string) (models.ConnectedApp, bool) {
	cred, ok := s[CredentialKey{AppName: appName, AccountEmail: accountEmail}]
	return cred, ok
}
