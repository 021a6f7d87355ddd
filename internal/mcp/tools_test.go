package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifemosaic/negotiator/internal/auth"
	"github.com/lifemosaic/negotiator/internal/ctxutil"
	"github.com/lifemosaic/negotiator/internal/model"
	"github.com/lifemosaic/negotiator/internal/service/coach"
	"github.com/lifemosaic/negotiator/internal/service/comparison"
	"github.com/lifemosaic/negotiator/internal/service/ledger"
	"github.com/lifemosaic/negotiator/internal/service/reasoner"
	"github.com/lifemosaic/negotiator/internal/service/risk"
	"github.com/lifemosaic/negotiator/internal/storage"
	"github.com/lifemosaic/negotiator/internal/testutil"
)

const cannedAnalysis = `{
  "query": "Should I buy a $6 latte?",
  "answer": "maybe",
  "breakdown": {
    "cost_impact": {"immediate": 6, "budget_pct": 3, "opportunity_cost": "a week of bus fares"},
    "health_impact": {"calories": 190, "nutrition_quality": 4, "wellness_change": -1},
    "sustainability_impact": {"co2e_kg": 0.55, "packaging_waste": "Medium", "score_change": -2}
  },
  "alternative": {
    "suggestion": "Brew at home", "cost": 0.8, "cost_saved": 5.2, "calories": 40,
    "health_improvement": 2, "sustainability_improvement": 3, "reasoning": "Same caffeine, no cup"
  },
  "final_recommendation": "Make it at home on weekdays."
}`

var (
	testDB     *storage.DB
	testServer *Server
	// reply is what the stub model returns; tests swap it.
	reply func() (string, error)
)

func TestMain(m *testing.M) {
	tc := testutil.MustStartPostgres()
	code := setupAndRun(m, tc)
	tc.Terminate()
	os.Exit(code)
}

func setupAndRun(m *testing.M, tc *testutil.TestContainer) int {
	ctx := context.Background()
	logger := testutil.TestLogger()

	var err error
	testDB, err = tc.NewTestDB(ctx, logger)
	if err != nil {
		panic(err)
	}
	defer testDB.Close()

	r := reasoner.Func(func(context.Context, reasoner.Prompt) (string, error) { return reply() })
	testServer = New(
		coach.New(r, coach.Config{APIKey: "test-key", Timeout: 5 * time.Second}, logger),
		ledger.New(testDB, logger),
		comparison.New(testDB, testDB, 14, logger),
		risk.New(testDB, testDB, nil, logger),
		logger,
		"test",
	)
	return m.Run()
}

func userCtx(t *testing.T) (context.Context, string) {
	t.Helper()
	uid := "user-" + uuid.NewString()[:8]
	claims := &auth.Claims{}
	claims.Subject = uid
	return ctxutil.WithClaims(context.Background(), claims), uid
}

func toolRequest(name string, args map[string]any) mcplib.CallToolRequest {
	return mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{Name: name, Arguments: args},
	}
}

// parseToolText extracts the first TextContent text from a CallToolResult.
func parseToolText(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	for _, c := range result.Content {
		if tc, ok := c.(mcplib.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatal("no TextContent found in tool result")
	return ""
}

func askAnalysis(t *testing.T, ctx context.Context) model.AnalysisResult {
	t.Helper()
	reply = func() (string, error) { return "Here is my analysis:\n" + cannedAnalysis + "\nHope it helps!", nil }
	result, err := testServer.handleAsk(ctx, toolRequest("negotiator_ask", map[string]any{
		"query":   "Should I buy a $6 latte?",
		"context": map[string]any{"budget": "tight"},
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, parseToolText(t, result))

	var a model.AnalysisResult
	require.NoError(t, json.Unmarshal([]byte(parseToolText(t, result)), &a))
	return a
}

func TestHandleAsk(t *testing.T) {
	ctx, _ := userCtx(t)
	a := askAnalysis(t, ctx)
	assert.Equal(t, model.AnswerMaybe, a.Answer)
	assert.Equal(t, 5.2, a.Alternative.CostSaved)
}

func TestHandleAsk_Errors(t *testing.T) {
	ctx, _ := userCtx(t)

	result, err := testServer.handleAsk(ctx, toolRequest("negotiator_ask", map[string]any{"query": "   "}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, parseToolText(t, result), "invalid_request")

	reply = func() (string, error) { return "", errors.New("upstream 503: secret detail") }
	result, err = testServer.handleAsk(ctx, toolRequest("negotiator_ask", map[string]any{"query": "latte?"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, parseToolText(t, result), "coach_unavailable")
	assert.NotContains(t, parseToolText(t, result), "secret detail")

	reply = func() (string, error) { return "I cannot help with that.", nil }
	result, err = testServer.handleAsk(ctx, toolRequest("negotiator_ask", map[string]any{"query": "latte?"}))
	require.NoError(t, err)
	assert.Contains(t, parseToolText(t, result), "coach_unavailable")
}

func TestHandleAsk_NoUser(t *testing.T) {
	result, err := testServer.handleAsk(context.Background(), toolRequest("negotiator_ask", map[string]any{"query": "latte?"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestLogDecisionAndHistory(t *testing.T) {
	ctx, _ := userCtx(t)
	a := askAnalysis(t, ctx)

	impacts, err := json.Marshal(a.Breakdown)
	require.NoError(t, err)
	alt, err := json.Marshal(a.Alternative)
	require.NoError(t, err)
	var impactsArg, altArg map[string]any
	require.NoError(t, json.Unmarshal(impacts, &impactsArg))
	require.NoError(t, json.Unmarshal(alt, &altArg))

	result, err := testServer.handleLogDecision(ctx, toolRequest("negotiator_log_decision", map[string]any{
		"query":         a.Query,
		"item":          "latte",
		"decision_type": "took_alternative",
		"impacts":       impactsArg,
		"alternative":   altArg,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, parseToolText(t, result))

	var logged model.LogDecisionResponse
	require.NoError(t, json.Unmarshal([]byte(parseToolText(t, result)), &logged))
	_, err = uuid.Parse(logged.ID)
	require.NoError(t, err)

	result, err = testServer.handleHistory(ctx, toolRequest("negotiator_history", map[string]any{"limit": 10}))
	require.NoError(t, err)
	require.False(t, result.IsError, parseToolText(t, result))

	var hist struct {
		Decisions  []model.DecisionHistoryEntry `json:"decisions"`
		TotalSaved float64                      `json:"total_saved"`
		HasMore    bool                         `json:"has_more"`
	}
	require.NoError(t, json.Unmarshal([]byte(parseToolText(t, result)), &hist))
	require.Len(t, hist.Decisions, 1)
	assert.Equal(t, logged.ID, hist.Decisions[0].ID.String())
	assert.Equal(t, 5.2, hist.TotalSaved)
	assert.False(t, hist.HasMore)
}

func TestLogDecision_Invalid(t *testing.T) {
	ctx, _ := userCtx(t)
	result, err := testServer.handleLogDecision(ctx, toolRequest("negotiator_log_decision", map[string]any{
		"query":         "latte?",
		"item":          "latte",
		"decision_type": "maybe_later",
		"impacts":       map[string]any{},
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, parseToolText(t, result), "invalid_decision")
}

func TestHandleCompare(t *testing.T) {
	ctx, uid := userCtx(t)
	pivot := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	amount := func(v float64) *float64 { return &v }

	_, err := testDB.InsertEvents(ctx, []model.Event{
		{ID: uuid.New(), UserID: uid, EventType: model.EventSpending, OccurredAt: pivot.AddDate(0, 0, -3).Add(9 * time.Hour), Amount: amount(20)},
		{ID: uuid.New(), UserID: uid, EventType: model.EventSpending, OccurredAt: pivot.AddDate(0, 0, -2).Add(9 * time.Hour), Amount: amount(10)},
		{ID: uuid.New(), UserID: uid, EventType: model.EventSpending, OccurredAt: pivot.Add(9 * time.Hour), Amount: amount(9)},
	})
	require.NoError(t, err)

	result, err := testServer.handleCompare(ctx, toolRequest("negotiator_compare", map[string]any{
		"metric": "spending", "intervention_date": "2026-03-01", "window_days": 7,
	}))
	require.NoError(t, err)
	require.False(t, result.IsError, parseToolText(t, result))

	var cmp model.BeforeAfterComparison
	require.NoError(t, json.Unmarshal([]byte(parseToolText(t, result)), &cmp))
	assert.Equal(t, 15.0, cmp.BeforeAvg)
	assert.Equal(t, 9.0, cmp.AfterAvg)
	assert.Equal(t, -40.0, cmp.ChangePercent)

	result, err = testServer.handleCompare(ctx, toolRequest("negotiator_compare", map[string]any{
		"metric": "spending", "intervention_date": "March 1st",
	}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
}

func TestHandleRisk(t *testing.T) {
	ctx, _ := userCtx(t)

	result, err := testServer.handleRisk(ctx, toolRequest("negotiator_risk", map[string]any{"dimension": "isolation"}))
	require.NoError(t, err)
	require.False(t, result.IsError, parseToolText(t, result))

	var a model.RiskAssessment
	require.NoError(t, json.Unmarshal([]byte(parseToolText(t, result)), &a))
	assert.Equal(t, model.RiskIsolation, a.Dimension)
	assert.Equal(t, 7, a.Days)
	assert.Equal(t, model.LevelFor(a.Risk), a.Level)

	result, err = testServer.handleRisk(ctx, toolRequest("negotiator_risk", map[string]any{"dimension": "boredom"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, parseToolText(t, result), "invalid_request")
}

func TestResources(t *testing.T) {
	ctx, _ := userCtx(t)

	contents, err := testServer.handleRiskOverview(ctx, mcplib.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)
	text := contents[0].(mcplib.TextResourceContents)
	var overview []model.RiskAssessment
	require.NoError(t, json.Unmarshal([]byte(text.Text), &overview))
	assert.Len(t, overview, len(model.RiskDimensions))

	contents, err = testServer.handleRecentDecisions(ctx, mcplib.ReadResourceRequest{})
	require.NoError(t, err)
	require.Len(t, contents, 1)

	_, err = testServer.handleRecentDecisions(context.Background(), mcplib.ReadResourceRequest{})
	assert.ErrorIs(t, err, errNoUser)
}

func TestRegisterTools(t *testing.T) {
	// Tool listing is covered end to end by the server's MCP client test.
	assert.NotNil(t, testServer.mcpServer, "MCPServer should be initialized")
	assert.NotNil(t, testServer.MCPServer(), "MCPServer() accessor should work")
}

func TestErrorResult(t *testing.T) {
	result := errorResult("test error message")
	require.True(t, result.IsError)
	require.Len(t, result.Content, 1)

	tc, ok := result.Content[0].(mcplib.TextContent)
	require.True(t, ok, "content should be TextContent")
	assert.Equal(t, "test error message", tc.Text)
	assert.Equal(t, "text", tc.Type)
}
