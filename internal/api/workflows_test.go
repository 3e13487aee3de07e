package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autofy/backend/internal/engine"
	"autofy/backend/internal/repository"
	"autofy/backend/internal/services"
	"autofy/backend/pkg/models"
)

type memWorkflowStore struct {
	workflows map[string]*models.Workflow
}

func (s *memWorkflowStore) Create(ctx context.Context, workflow *models.Workflow) error {
	copied := *workflow
	s.workflows[workflow.ID] = &copied
	return nil
}

func (s *memWorkflowStore) Get(ctx context.Context, id string) (*models.Workflow, error) {
	workflow, ok := s.workflows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *workflow
	return &copied, nil
}

func (s *memWorkflowStore) ListByUser(ctx context.Context, userID string) ([]*models.Workflow, error) {
	var out []*models.Workflow
	for _, workflow := range s.workflows {
		if workflow.UserID == userID {
			copied := *workflow
			copied.ExecutionLogs = nil
			out = append(out, &copied)
		}
	}
	return out, nil
}

func (s *memWorkflowStore) Save(ctx context.Context, workflow *models.Workflow) error {
	if _, ok := s.workflows[workflow.ID]; !ok {
		return repository.ErrNotFound
	}
	copied := *workflow
	s.workflows[workflow.ID] = &copied
	return nil
}

func (s *memWorkflowStore) Delete(ctx context.Context, id string) error {
	if _, ok := s.workflows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.workflows, id)
	return nil
}

type memCredentialStore struct{}

func (memCredentialStore) Upsert(ctx context.Context, userID string, app models.ConnectedApp) error {
	return nil
}

func (memCredentialStore) ListByUser(ctx context.Context, userID string) ([]models.ConnectedApp, error) {
	return []models.ConnectedApp{
		{AppName: "Gmail", AccountEmail: "me@example.com", AccessToken: "tok"},
	}, nil
}

func (memCredentialStore) Delete(ctx context.Context, userID, appName, accountEmail string) error {
	return nil
}

type nopLogger struct{}

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}

func newTestServer(t *testing.T) (*Server, *memWorkflowStore) {
	t.Helper()
	registry := engine.NewRegistry()
	registry.Register("Gmail", "New Email", engine.AdapterFunc(
		func(ctx context.Context, cred models.ConnectedApp, config, runContext map[string]interface{}) engine.Outcome {
			return engine.Outcome{Success: true, Message: "Found 0 unread emails"}
		}))

	store := &memWorkflowStore{workflows: make(map[string]*models.Workflow)}
	eng := engine.New(registry, store, nopLogger{}, engine.Config{})
	svc := services.NewWorkflowService(store, memCredentialStore{}, eng)
	return NewServer(svc), store
}

func doRequest(t *testing.T, s *Server, method, path, body, asUser string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	g := e.Group("/api/v1")
	s.RegisterRoutes(g)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if asUser != "" {
		req = req.WithContext(context.WithValue(req.Context(), "user_id", asUser))
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func seedWorkflow(t *testing.T, store *memWorkflowStore, id, userID string) {
	t.Helper()
	require.NoError(t, store.Create(context.Background(), &models.Workflow{
		ID:       id,
		UserID:   userID,
		Name:     "Inbox watcher",
		IsActive: true,
		Steps: []models.Step{
			{Type: models.StepTrigger, App: "Gmail", Event: "New Email", AccountEmail: "me@example.com"},
		},
		TriggerType: models.TriggerManual,
	}))
}

func TestCreateWorkflow(t *testing.T) {
	s, store := newTestServer(t)

	body := `{"name":"Inbox watcher","steps":[{"type":"trigger","app":"Gmail","event":"New Email"}]}`
	rec := doRequest(t, s, http.MethodPost, "/api/v1/workflows", body, "user-1")

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var created models.Workflow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, "user-1", created.UserID)
	assert.True(t, created.IsActive)
	assert.Contains(t, store.workflows, created.ID)
}

func TestCreateWorkflowRejectsMissingSteps(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodPost, "/api/v1/workflows", `{"name":"empty"}`, "user-1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetWorkflowHidesForeignWorkflows(t *testing.T) {
	s, store := newTestServer(t)
	seedWorkflow(t, store, "wf-1", "owner")

	rec := doRequest(t, s, http.MethodGet, "/api/v1/workflows/wf-1", "", "intruder")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/v1/workflows/wf-1", "", "owner")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestListWorkflowsEmptyIsJSONArray(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/workflows", "", "user-1")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, "[]", rec.Body.String())
}

func TestExecuteWorkflowReturnsRunRecord(t *testing.T) {
	s, store := newTestServer(t)
	seedWorkflow(t, store, "wf-1", "user-1")

	rec := doRequest(t, s, http.MethodPost, "/api/v1/workflows/wf-1/execute", "", "user-1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var record models.RunRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &record))
	assert.Equal(t, models.RunSuccess, record.Status)
	require.Len(t, record.Results, 1)
	assert.Equal(t, "Found 0 unread emails", record.Results[0].Message)

	// bookkeeping persisted
	saved := store.workflows["wf-1"]
	assert.Equal(t, 1, saved.ExecutionCount)
	assert.Equal(t, 1, saved.SuccessCount)
}

func TestUpdateWorkflowPartialEdit(t *testing.T) {
	s, store := newTestServer(t)
	seedWorkflow(t, store, "wf-1", "user-1")

	rec := doRequest(t, s, http.MethodPut, "/api/v1/workflows/wf-1", `{"isActive":false}`, "user-1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.False(t, store.workflows["wf-1"].IsActive)
	assert.Equal(t, "Inbox watcher", store.workflows["wf-1"].Name)
}

func TestDeleteWorkflow(t *testing.T) {
	s, store := newTestServer(t)
	seedWorkflow(t, store, "wf-1", "user-1")

	rec := doRequest(t, s, http.MethodDelete, "/api/v1/workflows/wf-1", "", "user-1")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotContains(t, store.workflows, "wf-1")
}

func TestStats(t *testing.T) {
	s, store := newTestServer(t)
	seedWorkflow(t, store, "wf-1", "user-1")

	// run once so stats have something to report
	rec := doRequest(t, s, http.MethodPost, "/api/v1/workflows/wf-1/execute", "", "user-1")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doRequest(t, s, http.MethodGet, "/api/v1/stats", "", "user-1")
	require.Equal(t, http.StatusOK, rec.Code)

	var stats services.UserStats
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.Equal(t, 1, stats.TotalWorkflows)
	assert.Equal(t, 1, stats.TotalExecutions)
	assert.Equal(t, 100.0, stats.AverageSuccessRate)
	require.Len(t, stats.RecentExecutions, 1)
	assert.Equal(t, "wf-1", stats.RecentExecutions[0].WorkflowID)
}

func TestRequiresUserContext(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doRequest(t, s, http.MethodGet, "/api/v1/workflows", "", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestHandleHealth(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	HandleHealth(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var status HealthStatus
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.Equal(t, "ok", status.Status)
	assert.Equal(t, "autofy-backend", status.Service)
}
