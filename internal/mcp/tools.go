package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/lifemosaic/negotiator/internal/ctxutil"
	"github.com/lifemosaic/negotiator/internal/model"
	"github.com/lifemosaic/negotiator/internal/service/coach"
	"github.com/lifemosaic/negotiator/internal/service/comparison"
	"github.com/lifemosaic/negotiator/internal/service/ledger"
	"github.com/lifemosaic/negotiator/internal/service/risk"
	"github.com/lifemosaic/negotiator/internal/storage"
)

func (s *Server) registerTools() {
	// negotiator_ask: structured impact analysis of a purchase or choice.
	s.mcpServer.AddTool(
		mcplib.NewTool("negotiator_ask",
			mcplib.WithDescription(`Analyze a purchase or everyday choice before the user makes it.

Returns a yes/no/maybe answer with cost, health and sustainability impacts,
one cheaper or healthier alternative, and a final recommendation.

EXAMPLE: query="Should I buy a $6 latte?", context={"budget": "tight"}`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithOpenWorldHintAnnotation(true),
			mcplib.WithString("query",
				mcplib.Description("The question, in the user's own words"),
				mcplib.Required(),
			),
			mcplib.WithObject("context",
				mcplib.Description("Optional facts about the user's situation (budget, goals, diet)"),
			),
		),
		s.handleAsk,
	)

	// negotiator_log_decision: record what the user did after an analysis.
	s.mcpServer.AddTool(
		mcplib.NewTool("negotiator_log_decision",
			mcplib.WithDescription(`Record what the user decided after an analysis.

Pass the impacts and alternative from the negotiator_ask result. Entries are
immutable; savings are computed when the user took the alternative.`),
			mcplib.WithDestructiveHintAnnotation(false),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithString("query", mcplib.Description("The original question"), mcplib.Required()),
			mcplib.WithString("item", mcplib.Description("What the decision was about, e.g. 'latte'"), mcplib.Required()),
			mcplib.WithString("decision_type",
				mcplib.Description("What the user did"),
				mcplib.Required(),
				mcplib.Enum(string(model.DecisionDidIt), string(model.DecisionTookAlternative), string(model.DecisionSkipped)),
			),
			mcplib.WithObject("impacts", mcplib.Description("The breakdown from the analysis"), mcplib.Required()),
			mcplib.WithObject("alternative", mcplib.Description("The alternative from the analysis")),
			mcplib.WithNumber("cost_actual", mcplib.Description("What the user actually paid, if known"), mcplib.Min(0)),
		),
		s.handleLogDecision,
	)

	// negotiator_history: decision history, newest first.
	s.mcpServer.AddTool(
		mcplib.NewTool("negotiator_history",
			mcplib.WithDescription("List the user's logged decisions, newest first, with savings."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithNumber("limit", mcplib.Min(1), mcplib.Max(ledger.MaxLimit), mcplib.DefaultNumber(ledger.DefaultLimit)),
			mcplib.WithNumber("offset", mcplib.Min(0), mcplib.DefaultNumber(0)),
		),
		s.handleHistory,
	)

	// negotiator_compare: before/after comparison around a date.
	s.mcpServer.AddTool(
		mcplib.NewTool("negotiator_compare",
			mcplib.WithDescription(`Compare a metric in the days before and after a change the user made.

EXAMPLE: metric="spending", intervention_date="2026-03-01" shows whether
daily spending went down after they started packing lunch.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithString("metric",
				mcplib.Required(),
				mcplib.Enum(string(model.MetricSpending), string(model.MetricWellness), string(model.MetricSustainability),
					string(model.MetricMovementMinutes), string(model.MetricSteps)),
			),
			mcplib.WithString("intervention_date", mcplib.Description("YYYY-MM-DD"), mcplib.Required()),
			mcplib.WithNumber("window_days", mcplib.Min(1), mcplib.Max(comparison.MaxWindowDays)),
		),
		s.handleCompare,
	)

	// negotiator_risk: composite risk for one dimension.
	s.mcpServer.AddTool(
		mcplib.NewTool("negotiator_risk",
			mcplib.WithDescription("Score the user's current burnout, injury, isolation or financial risk with ranked contributing factors."),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(true),
			mcplib.WithString("dimension",
				mcplib.Required(),
				mcplib.Enum(string(model.RiskBurnout), string(model.RiskInjury), string(model.RiskIsolation), string(model.RiskFinancial)),
			),
			mcplib.WithNumber("days", mcplib.Description("Lookback window; omit for the dimension default"), mcplib.Min(1)),
		),
		s.handleRisk,
	)
}

func (s *Server) handleAsk(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	if ctxutil.UserIDFromContext(ctx) == "" {
		return errorResult(errNoUser.Error()), nil
	}
	req := model.AskRequest{Query: request.GetString("query", "")}
	if c, ok := request.GetArguments()["context"].(map[string]any); ok {
		req.Context = c
	}

	result, err := s.coach.Ask(ctx, req)
	if err != nil {
		return s.serviceError("ask", err), nil
	}
	return jsonResult(result), nil
}

func (s *Server) handleLogDecision(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	uid := ctxutil.UserIDFromContext(ctx)
	if uid == "" {
		return errorResult(errNoUser.Error()), nil
	}

	// Round-trip the arguments through JSON so nested objects land in the
	// same types the HTTP API decodes.
	raw, err := json.Marshal(request.GetArguments())
	if err != nil {
		return errorResult(fmt.Sprintf("invalid arguments: %v", err)), nil
	}
	var req model.LogDecisionRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return errorResult(fmt.Sprintf("invalid_decision: %v", err)), nil
	}

	id, err := s.ledger.Record(ctx, uid, req)
	if err != nil {
		return s.serviceError("log decision", err), nil
	}
	return jsonResult(model.LogDecisionResponse{ID: id.String(), Message: "Decision logged successfully"}), nil
}

func (s *Server) handleHistory(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	uid := ctxutil.UserIDFromContext(ctx)
	if uid == "" {
		return errorResult(errNoUser.Error()), nil
	}
	limit, offset := ledger.NormalizePage(request.GetInt("limit", ledger.DefaultLimit), request.GetInt("offset", 0))

	entries, err := s.ledger.List(ctx, uid, limit, offset)
	if err != nil {
		return s.serviceError("history", err), nil
	}
	var saved float64
	for _, e := range entries {
		saved += e.Savings
	}
	return jsonResult(map[string]any{
		"decisions":   entries,
		"total_saved": saved,
		"has_more":    len(entries) == limit,
	}), nil
}

func (s *Server) handleCompare(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	uid := ctxutil.UserIDFromContext(ctx)
	if uid == "" {
		return errorResult(errNoUser.Error()), nil
	}
	date, err := time.Parse(time.DateOnly, request.GetString("intervention_date", ""))
	if err != nil {
		return errorResult("invalid_request: intervention_date must be YYYY-MM-DD"), nil
	}
	metric := model.Metric(request.GetString("metric", ""))

	result, err := s.comparison.Compare(ctx, uid, metric, date, request.GetInt("window_days", 0))
	if err != nil {
		return s.serviceError("compare", err), nil
	}
	return jsonResult(result), nil
}

func (s *Server) handleRisk(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	uid := ctxutil.UserIDFromContext(ctx)
	if uid == "" {
		return errorResult(errNoUser.Error()), nil
	}
	dim := model.RiskDimension(request.GetString("dimension", ""))

	a, err := s.risk.Assess(ctx, uid, dim, request.GetInt("days", 0))
	if err != nil {
		return s.serviceError("risk", err), nil
	}
	return jsonResult(a), nil
}

// serviceError renders a service failure as a tool error prefixed with the
// same code the HTTP API would return.
func (s *Server) serviceError(op string, err error) *mcplib.CallToolResult {
	switch {
	case errors.Is(err, coach.ErrInvalidRequest),
		errors.Is(err, comparison.ErrInvalidMetric),
		errors.Is(err, comparison.ErrInvalidWindow),
		errors.Is(err, comparison.ErrInvalidPeriod),
		errors.Is(err, comparison.ErrInvalidBreakdown),
		errors.Is(err, risk.ErrUnknownDimension),
		errors.Is(err, risk.ErrInvalidWindow):
		return errorResult(model.ErrCodeInvalidRequest + ": " + err.Error())
	case errors.Is(err, ledger.ErrInvalidDecision):
		return errorResult(model.ErrCodeInvalidDecision + ": " + err.Error())
	case errors.Is(err, storage.ErrNotFound):
		return errorResult(model.ErrCodeNotFound + ": not found")
	case errors.Is(err, storage.ErrTooManyEvents):
		return errorResult(model.ErrCodeInvalidRequest + ": too many events in range, narrow the dates")
	case errors.Is(err, coach.ErrMissingAPIKey):
		return errorResult(model.ErrCodeMissingAPIKey + ": the analysis service is not configured")
	case errors.Is(err, coach.ErrCoachUnavailable):
		s.logger.Warn("mcp: "+op+" failed", "error", err)
		return errorResult(model.ErrCodeCoachUnavailable + ": the analysis service is unavailable, try again shortly")
	default:
		s.logger.Error("mcp: "+op+" failed", "error", err)
		return errorResult(model.ErrCodeInternalError + ": internal error")
	}
}

func jsonResult(v any) *mcplib.CallToolResult {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("marshal result: %v", err))
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
	}
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
