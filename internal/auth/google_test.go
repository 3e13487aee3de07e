package auth

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"autofy/backend/internal/config"
	"autofy/backend/internal/repository"
	"autofy/backend/pkg/models"
)

// MockCredentialStore satisfies repository.CredentialStore
type MockCredentialStore struct {
	mock.Mock
}

func (m *MockCredentialStore) Upsert(ctx context.Context, userID string, app models.ConnectedApp) error {
	args := m.Called(ctx, userID, app)
	return args.Error(0)
}

func (m *MockCredentialStore) ListByUser(ctx context.Context, userID string) ([]models.ConnectedApp, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.ConnectedApp), args.Error(1)
}

func (m *MockCredentialStore) Delete(ctx context.Context, userID, appName, accountEmail string) error {
	args := m.Called(ctx, userID, appName, accountEmail)
	return args.Error(0)
}

func newTestConnector(creds *MockCredentialStore) *GoogleConnector {
	cfg := &config.Config{}
	cfg.Google.ClientID = "test-client"
	cfg.Google.ClientSecret = "test-secret"
	cfg.Google.RedirectURL = "http://localhost:8080/oauth2/google/callback"
	cfg.Google.FrontendURL = "http://localhost:3000"
	return NewGoogleConnector(cfg, creds, &NoOpLogger{})
}

func connectRequest(t *testing.T, g *GoogleConnector, app, userID string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest("GET", "/api/v1/connect/"+app, nil)
	if userID != "" {
		req = req.WithContext(context.WithValue(req.Context(), "user_id", userID))
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetPath("/api/v1/connect/:app")
	c.SetParamNames("app")
	c.SetParamValues(app)
	return rec, g.Connect(c)
}

func TestConnect_BuildsConsentURL(t *testing.T) {
	g := newTestConnector(new(MockCredentialStore))

	rec, err := connectRequest(t, g, "Gmail", "user-1")
	assert.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]string
	assert.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	authURL := resp["authUrl"]
	assert.Contains(t, authURL, "accounts.google.com")
	assert.Contains(t, authURL, "access_type=offline")
	assert.Contains(t, authURL, "prompt=consent")
	assert.Contains(t, authURL, "gmail.send")

	// state parameter round-trips user and app
	parsed, err := http.NewRequest("GET", authURL, nil)
	assert.NoError(t, err)
	raw, err := base64.URLEncoding.DecodeString(parsed.URL.Query().Get("state"))
	assert.NoError(t, err)
	var state connectState
	assert.NoError(t, json.Unmarshal(raw, &state))
	assert.Equal(t, "user-1", state.UserID)
	assert.Equal(t, "Gmail", state.App)
}

func TestConnect_RejectsUnknownApp(t *testing.T) {
	g := newTestConnector(new(MockCredentialStore))

	_, err := connectRequest(t, g, "Slack", "user-1")
	httpErr, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusBadRequest, httpErr.Code)
}

func TestConnect_RequiresUser(t *testing.T) {
	g := newTestConnector(new(MockCredentialStore))

	_, err := connectRequest(t, g, "Gmail", "")
	httpErr, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
}

func TestConnectedApps_ReturnsEmptyListNotNull(t *testing.T) {
	creds := new(MockCredentialStore)
	creds.On("ListByUser", mock.Anything, "user-1").Return(nil, nil)
	g := newTestConnector(creds)

	e := echo.New()
	req := httptest.NewRequest("GET", "/api/v1/connections", nil)
	req = req.WithContext(context.WithValue(req.Context(), "user_id", "user-1"))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	assert.NoError(t, g.ConnectedApps(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
	creds.AssertExpectations(t)
}

func TestDisconnect_RemovesCredential(t *testing.T) {
	creds := new(MockCredentialStore)
	creds.On("Delete", mock.Anything, "user-1", "Gmail", "a@b.com").Return(nil)
	g := newTestConnector(creds)

	e := echo.New()
	req := httptest.NewRequest("DELETE", "/api/v1/connections/Gmail/a@b.com", nil)
	req = req.WithContext(context.WithValue(req.Context(), "user_id", "user-1"))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("app", "email")
	c.SetParamValues("Gmail", "a@b.com")

	assert.NoError(t, g.Disconnect(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	creds.AssertExpectations(t)
}

func TestDisconnect_UnknownConnectionReturns404(t *testing.T) {
	creds := new(MockCredentialStore)
	creds.On("Delete", mock.Anything, "user-1", "Gmail", "a@b.com").Return(repository.ErrNotFound)
	g := newTestConnector(creds)

	e := echo.New()
	req := httptest.NewRequest("DELETE", "/api/v1/connections/Gmail/a@b.com", nil)
	req = req.WithContext(context.WithValue(req.Context(), "user_id", "user-1"))
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames("app", "email")
	c.SetParamValues("Gmail", "a@b.com")

	err := g.Disconnect(c)
	httpErr, ok := err.(*echo.HTTPError)
	assert.True(t, ok)
	assert.Equal(t, http.StatusNotFound, httpErr.Code)
	creds.AssertExpectations(t)
}
