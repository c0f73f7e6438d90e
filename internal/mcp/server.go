package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"reportwiz/internal/service"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Server is the MCP server for reportwiz.
// It exposes the report engine as tools, resources, and prompts so AI agents
// can browse catalogs and fetch bounded pages of data.
type Server struct {
	mcp      *server.MCPServer
	emitter  EventEmitter
	approval *ApprovalQueue
	reports  *service.ReportService

	// confirmForce routes forced loads past the refusal threshold through
	// the approval queue.
	confirmForce bool
}

// Deps holds all dependencies passed to the MCP server.
type Deps struct {
	Emitter         EventEmitter
	Reports         *service.ReportService
	ConfirmForce    bool
	ApprovalTimeout time.Duration
}

// New creates and configures a new MCP server with all tools and resources.
func New(ctx context.Context, deps Deps) *Server {
	s := &Server{
		emitter:      deps.Emitter,
		approval:     NewApprovalQueue(ctx, deps.Emitter, deps.ApprovalTimeout),
		reports:      deps.Reports,
		confirmForce: deps.ConfirmForce,
	}

	s.mcp = server.NewMCPServer(
		"reportwiz-mcp",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(true, false),
		server.WithPromptCapabilities(true),
	)

	s.registerProfileTools()
	s.registerCatalogTools()
	s.registerQueryTools()
	s.registerResources()
	s.registerPrompts()

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	log.Println("[MCP] Starting stdio server...")
	return server.ServeStdio(s.mcp)
}

// DecideForce approves or rejects a pending forced load on behalf of the
// operator watching "mcp:approval-required" events.
func (s *Server) DecideForce(id string, approve bool) bool {
	return s.approval.Decide(id, approve)
}

// ── Helpers ────────────────────────────────────────────────

// textResult creates a simple text tool result.
func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

// jsonResult serializes v to JSON and wraps it in a text tool result.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal result: %w", err)
	}
	return textResult(string(data)), nil
}
