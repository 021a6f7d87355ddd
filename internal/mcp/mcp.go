// Package mcp exposes the coach, ledger, comparison and risk services as
// Model Context Protocol tools, so MCP clients can use the same operations
// as the HTTP API. The authenticated user comes from the request context.
package mcp

import (
	"log/slog"

	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/lifemosaic/negotiator/internal/service/coach"
	"github.com/lifemosaic/negotiator/internal/service/comparison"
	"github.com/lifemosaic/negotiator/internal/service/ledger"
	"github.com/lifemosaic/negotiator/internal/service/risk"
)

// Server wraps the MCP server with Negotiator's service layer.
type Server struct {
	mcpServer  *mcpserver.MCPServer
	coach      *coach.Service
	ledger     *ledger.Service
	comparison *comparison.Service
	risk       *risk.Service
	logger     *slog.Logger
}

// New creates and configures a new MCP server with all resources and tools.
func New(coachSvc *coach.Service, ledgerSvc *ledger.Service, comparisonSvc *comparison.Service, riskSvc *risk.Service, logger *slog.Logger, version string) *Server {
	s := &Server{
		coach:      coachSvc,
		ledger:     ledgerSvc,
		comparison: comparisonSvc,
		risk:       riskSvc,
		logger:     logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"negotiator",
		version,
		mcpserver.WithResourceCapabilities(false, true),
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithInstructions("Negotiator weighs everyday purchases against budget, health and sustainability. "+
			"Call negotiator_ask before a purchase, then negotiator_log_decision with what the user actually did."),
	)

	s.registerResources()
	s.registerTools()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}
