package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/lifemosaic/negotiator/internal/ctxutil"
	"github.com/lifemosaic/negotiator/internal/model"
)

const (
	uriRecentDecisions = "negotiator://decisions/recent"
	uriRiskOverview    = "negotiator://risk/overview"
)

var errNoUser = errors.New("mcp: authentication required")

func (s *Server) registerResources() {
	s.mcpServer.AddResource(
		mcplib.NewResource(
			uriRecentDecisions,
			"Recent Decisions",
			mcplib.WithResourceDescription("The user's 20 most recent logged decisions with savings"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleRecentDecisions,
	)

	s.mcpServer.AddResource(
		mcplib.NewResource(
			uriRiskOverview,
			"Risk Overview",
			mcplib.WithResourceDescription("Current burnout, injury, isolation and financial risk with default windows"),
			mcplib.WithMIMEType("application/json"),
		),
		s.handleRiskOverview,
	)
}

func (s *Server) handleRecentDecisions(ctx context.Context, _ mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	uid := ctxutil.UserIDFromContext(ctx)
	if uid == "" {
		return nil, errNoUser
	}
	entries, err := s.ledger.List(ctx, uid, 20, 0)
	if err != nil {
		return nil, fmt.Errorf("mcp: recent decisions: %w", err)
	}
	return jsonResource(uriRecentDecisions, entries)
}

func (s *Server) handleRiskOverview(ctx context.Context, _ mcplib.ReadResourceRequest) ([]mcplib.ResourceContents, error) {
	uid := ctxutil.UserIDFromContext(ctx)
	if uid == "" {
		return nil, errNoUser
	}
	overview := make([]model.RiskAssessment, 0, len(model.RiskDimensions))
	for _, d := range model.RiskDimensions {
		a, err := s.risk.Assess(ctx, uid, d, 0)
		if err != nil {
			return nil, fmt.Errorf("mcp: risk overview: %w", err)
		}
		overview = append(overview, a)
	}
	return jsonResource(uriRiskOverview, overview)
}

func jsonResource(uri string, v any) ([]mcplib.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("mcp: marshal %s: %w", uri, err)
	}
	return []mcplib.ResourceContents{
		mcplib.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}
