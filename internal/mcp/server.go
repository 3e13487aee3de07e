package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"autofy/backend/internal/services"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

type Server struct {
	mcpServer *server.MCPServer
	workflows *services.WorkflowService
}

func NewServer(workflows *services.WorkflowService) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"Autofy Workflows",
			"1.0.0",
			server.WithToolCapabilities(true),
		),
		workflows: workflows,
	}

	s.registerTools()
	return s
}

func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(
		mcp.NewTool(
			"list_workflows",
			mcp.WithDescription("List a user's workflows"),
			mcp.WithString("userId", mcp.Required(), mcp.Description("The ID of the user")),
		),
		s.handleListWorkflows,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"run_workflow",
			mcp.WithDescription("Run a workflow immediately and return its run record"),
			mcp.WithString("workflowId", mcp.Required(), mcp.Description("The ID of the workflow to run")),
		),
		s.handleRunWorkflow,
	)

	s.mcpServer.AddTool(
		mcp.NewTool(
			"workflow_stats",
			mcp.WithDescription("Aggregate execution statistics for a user's workflows"),
			mcp.WithString("userId", mcp.Required(), mcp.Description("The ID of the user")),
		),
		s.handleWorkflowStats,
	)
}

func (s *Server) handleListWorkflows(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	userID, ok := args["userId"].(string)
	if !ok || userID == "" {
		return mcp.NewToolResultError("Missing required parameter: userId"), nil
	}

	workflows, err := s.workflows.List(ctx, userID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to list workflows: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(workflows)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleRunWorkflow(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	workflowID, ok := args["workflowId"].(string)
	if !ok || workflowID == "" {
		return mcp.NewToolResultError("Missing required parameter: workflowId"), nil
	}

	record, err := s.workflows.Execute(ctx, workflowID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to run workflow: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(record)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func (s *Server) handleWorkflowStats(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return mcp.NewToolResultError("Invalid arguments type"), nil
	}

	userID, ok := args["userId"].(string)
	if !ok || userID == "" {
		return mcp.NewToolResultError("Missing required parameter: userId"), nil
	}

	stats, err := s.workflows.Stats(ctx, userID)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to compute stats: %v", err)), nil
	}

	jsonBytes, _ := json.Marshal(stats)
	return mcp.NewToolResultText(string(jsonBytes)), nil
}

func MountHTTPHandlers(mux *http.ServeMux, mcpServer *server.MCPServer) {
	// Use SSE server for /mcp/sse and /mcp/message endpoints
	sseServer := server.NewSSEServer(mcpServer, server.WithStaticBasePath("/mcp"))

	mux.HandleFunc("/mcp", func(w http.ResponseWriter, r *http.Request) {
		// Direct POST for tool calls
		if r.Method == http.MethodPost {
			sseServer.ServeHTTP(w, r)
			return
		}
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	// SSE endpoints
	mux.HandleFunc("/mcp/sse", sseServer.ServeHTTP)
	mux.HandleFunc("/mcp/message", sseServer.ServeHTTP)
}
