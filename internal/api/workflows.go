// Package api contains the HTTP handlers for the workflow service
package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"autofy/backend/internal/services"
	"autofy/backend/pkg/models"
)

// Server holds the dependencies for the API server.
type Server struct {
	Workflows *services.WorkflowService
}

// NewServer creates a new Server.
func NewServer(workflows *services.WorkflowService) *Server {
	return &Server{Workflows: workflows}
}

// RegisterRoutes mounts the workflow routes on an echo group. The group is
// expected to already carry the auth middleware that injects user_id.
func (s *Server) RegisterRoutes(g *echo.Group) {
	g.GET("/workflows", s.ListWorkflows)
	g.POST("/workflows", s.CreateWorkflow)
	g.GET("/workflows/:id", s.GetWorkflow)
	g.PUT("/workflows/:id", s.UpdateWorkflow)
	g.DELETE("/workflows/:id", s.DeleteWorkflow)
	g.POST("/workflows/:id/execute", s.ExecuteWorkflow)
	g.GET("/stats", s.Stats)
}

func userID(c echo.Context) (string, error) {
	id, ok := c.Request().Context().Value("user_id").(string)
	if !ok || id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "user not found in context")
	}
	return id, nil
}

// ownedWorkflow loads a workflow and verifies it belongs to the caller.
// Foreign workflows are reported as not found rather than forbidden.
func (s *Server) ownedWorkflow(c echo.Context, id string) (*models.Workflow, error) {
	uid, err := userID(c)
	if err != nil {
		return nil, err
	}
	workflow, err := s.Workflows.Get(c.Request().Context(), id)
	if errors.Is(err, services.ErrWorkflowNotFound) {
		return nil, echo.NewHTTPError(http.StatusNotFound, "workflow not found")
	}
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if workflow.UserID != uid {
		return nil, echo.NewHTTPError(http.StatusNotFound, "workflow not found")
	}
	return workflow, nil
}

// ListWorkflows returns the caller's workflows without run history
// (GET /api/v1/workflows)
func (s *Server) ListWorkflows(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	workflows, err := s.Workflows.List(c.Request().Context(), uid)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if workflows == nil {
		workflows = []*models.Workflow{}
	}
	return c.JSON(http.StatusOK, workflows)
}

// CreateWorkflowRequest is the request body for creating a workflow.
type CreateWorkflowRequest struct {
	Name        string             `json:"name"`
	TriggerType models.TriggerType `json:"triggerType"`
	Schedule    *models.Schedule   `json:"schedule,omitempty"`
	Steps       []models.Step      `json:"steps"`
}

// CreateWorkflow creates a new workflow for the caller
// (POST /api/v1/workflows)
func (s *Server) CreateWorkflow(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	var req CreateWorkflowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}

	workflow, err := s.Workflows.Create(c.Request().Context(), uid, req.Name, req.TriggerType, req.Schedule, req.Steps)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, workflow)
}

// GetWorkflow returns a single workflow with its full run history
// (GET /api/v1/workflows/:id)
func (s *Server) GetWorkflow(c echo.Context) error {
	workflow, err := s.ownedWorkflow(c, c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, workflow)
}

// UpdateWorkflowRequest is the request body for editing a workflow.
// Omitted fields are left unchanged.
type UpdateWorkflowRequest struct {
	Name     *string       `json:"name,omitempty"`
	Steps    []models.Step `json:"steps,omitempty"`
	IsActive *bool         `json:"isActive,omitempty"`
}

// UpdateWorkflow applies edits to a workflow
// (PUT /api/v1/workflows/:id)
func (s *Server) UpdateWorkflow(c echo.Context) error {
	workflow, err := s.ownedWorkflow(c, c.Param("id"))
	if err != nil {
		return err
	}

	var req UpdateWorkflowRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request body: "+err.Error())
	}

	updated, err := s.Workflows.Update(c.Request().Context(), workflow.ID, services.UpdateRequest{
		Name:     req.Name,
		Steps:    req.Steps,
		IsActive: req.IsActive,
	})
	if errors.Is(err, services.ErrWorkflowNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "workflow not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, updated)
}

// DeleteWorkflow removes a workflow
// (DELETE /api/v1/workflows/:id)
func (s *Server) DeleteWorkflow(c echo.Context) error {
	workflow, err := s.ownedWorkflow(c, c.Param("id"))
	if err != nil {
		return err
	}

	if err := s.Workflows.Delete(c.Request().Context(), workflow.ID); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete workflow: "+err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

// ExecuteWorkflow runs a workflow immediately and returns the run record
// (POST /api/v1/workflows/:id/execute)
func (s *Server) ExecuteWorkflow(c echo.Context) error {
	workflow, err := s.ownedWorkflow(c, c.Param("id"))
	if err != nil {
		return err
	}

	record, err := s.Workflows.Execute(c.Request().Context(), workflow.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to execute workflow: "+err.Error())
	}
	return c.JSON(http.StatusOK, record)
}

// Stats returns aggregated execution statistics for the caller
// (GET /api/v1/stats)
func (s *Server) Stats(c echo.Context) error {
	uid, err := userID(c)
	if err != nil {
		return err
	}

	stats, err := s.Workflows.Stats(c.Request().Context(), uid)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, stats)
}
