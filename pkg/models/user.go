package models

import (
	"time"
)

// ConnectedApp is a stored authorization for one (user, app, account) triple.
// Token material never leaves the backend in API responses.
type ConnectedApp struct {
	AppName      string    `json:"appName"`
	AccountEmail string    `json:"accountEmail"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	Expiry       time.Time `json:"-"`
	Scopes       []string  `json:"scope,omitempty"`
	ConnectedAt  time.Time `json:"connectedAt"`
}

type User struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Email         string         `json:"email"`
	ConnectedApps []ConnectedApp `json:"connectedApps,omitempty"`
	CreatedAt     time.Time      `json:"createdAt"`
}
