package mcpserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/isdmx/execbox/config"
	"github.com/isdmx/execbox/execution"
	"github.com/isdmx/execbox/sandbox"
)

// Tool names
const (
	ToolExecuteCode        = "execute_code"
	ToolGetExecutionStatus = "get_execution_status"
)

// Coordinator is the part of the execution service the tools use
type Coordinator interface {
	Submit(ctx context.Context, req execution.Request) (execution.SubmitResult, error)
	Status(ctx context.Context, id string) (*execution.Record, error)
	Languages() []sandbox.Profile
}

// MCPServer represents the MCP server
type MCPServer struct {
	config    *config.Config
	logger    *zap.Logger
	svc       Coordinator
	mcpServer *server.MCPServer
}

// New creates a new MCPServer
func New(cfg *config.Config, logger *zap.Logger, svc Coordinator) (*MCPServer, error) {
	s := &MCPServer{
		config: cfg,
		logger: logger.Named("mcp"),
		svc:    svc,
	}

	// Log configuration parameters on startup
	s.logger.Info("configuration loaded",
		zap.String("server.transport", cfg.Server.Transport),
		zap.Int("server.http_port", cfg.Server.HTTPPort),
		zap.Int("sandbox.memory_mb", cfg.Sandbox.MemoryMB),
		zap.Float64("sandbox.cpu_cores", cfg.Sandbox.CPUCores),
		zap.Int("execution.default_timeout_sec", cfg.Execution.DefaultTimeoutSec),
		zap.Int("execution.max_concurrent", cfg.Execution.MaxConcurrent),
		zap.String("store.backend", cfg.Store.Backend),
		zap.Duration("store.ttl", cfg.Store.TTL),
	)

	s.mcpServer = server.NewMCPServer("execbox", "0.1.0",
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	)

	s.registerExecuteCodeTool()
	s.registerGetExecutionStatusTool()

	return s, nil
}

func (s *MCPServer) languageNames() []string {
	profiles := s.svc.Languages()
	names := make([]string, 0, len(profiles))
	for _, p := range profiles {
		names = append(names, p.Name)
	}
	return names
}

// registerExecuteCodeTool registers the execute_code tool
func (s *MCPServer) registerExecuteCodeTool() {
	tool := mcp.Tool{
		Name:        ToolExecuteCode,
		Description: "Run source code in an isolated container. Returns an execution id to poll with get_execution_status.",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"language": map[string]any{
					"type":        "string",
					"description": "Runtime language",
					"enum":        s.languageNames(),
				},
				"code": map[string]any{
					"type":        "string",
					"description": "Source code to run",
				},
				"input": map[string]any{
					"type":        "string",
					"description": "Text fed to the program on stdin (optional)",
				},
				"timeout": map[string]any{
					"type":        "number",
					"description": "Deadline in seconds, or in milliseconds when above 1000 (optional)",
				},
			},
			Required: []string{"language", "code"},
		},
	}

	s.mcpServer.AddTool(tool, s.handleExecuteCode)
}

// registerGetExecutionStatusTool registers the get_execution_status tool
func (s *MCPServer) registerGetExecutionStatusTool() {
	tool := mcp.Tool{
		Name:        ToolGetExecutionStatus,
		Description: "Fetch the current record of an execution",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]any{
				"execution_id": map[string]any{
					"type":        "string",
					"description": "Id returned by execute_code",
				},
			},
			Required: []string{"execution_id"},
		},
	}

	s.mcpServer.AddTool(tool, s.handleGetExecutionStatus)
}

// handleExecuteCode handles the execute_code tool
func (s *MCPServer) handleExecuteCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	code, err := request.RequireString("code")
	if err != nil {
		return errorResult(fmt.Sprintf("code parameter is required: %v", err)), nil
	}

	language, err := request.RequireString("language")
	if err != nil {
		return errorResult(fmt.Sprintf("language parameter is required: %v", err)), nil
	}

	req := execution.Request{Language: language, Code: code}

	args := request.GetArguments()
	if _, ok := args["input"]; ok {
		input := request.GetString("input", "")
		req.Input = &input
	}
	if raw, ok := args["timeout"]; ok {
		timeout, ok := raw.(float64)
		if !ok {
			return errorResult("timeout must be a number"), nil
		}
		req.Timeout = &timeout
	}

	result, err := s.svc.Submit(ctx, req)
	if err != nil {
		var verr *execution.ValidationError
		if errors.As(err, &verr) {
			return errorResult(verr.Message), nil
		}
		s.logger.Error("failed to submit execution", zap.String("language", language), zap.Error(err))
		return errorResult(fmt.Sprintf("Execution failed to start: %v", err)), nil
	}

	s.logger.Info("execution submitted",
		zap.String("execution_id", result.ExecutionID),
		zap.String("language", language))

	return jsonResult(result)
}

// handleGetExecutionStatus handles the get_execution_status tool
func (s *MCPServer) handleGetExecutionStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("execution_id")
	if err != nil {
		return errorResult(fmt.Sprintf("execution_id parameter is required: %v", err)), nil
	}

	rec, err := s.svc.Status(ctx, id)
	if errors.Is(err, execution.ErrNotFound) {
		return errorResult(fmt.Sprintf("Execution not found: %s", id)), nil
	}
	if err != nil {
		s.logger.Error("failed to load execution", zap.String("execution_id", id), zap.Error(err))
		return errorResult(fmt.Sprintf("Failed to load execution: %v", err)), nil
	}

	return jsonResult(rec)
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode tool result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: string(data),
			},
		},
	}, nil
}

func errorResult(message string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{
				Type: "text",
				Text: message,
			},
		},
		IsError: true,
	}
}

// ServeStdio starts the server on stdio
func (s *MCPServer) ServeStdio() error {
	s.logger.Info("starting MCP server on stdio")
	return server.ServeStdio(s.mcpServer)
}

// HTTPHandler returns the streamable HTTP transport for mounting on a router
func (s *MCPServer) HTTPHandler() http.Handler {
	return server.NewStreamableHTTPServer(s.mcpServer)
}

// GetMCPServer returns the underlying MCP server for fx
func (s *MCPServer) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}
