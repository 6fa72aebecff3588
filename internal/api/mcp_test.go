package api

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/careerscope/careerscope/internal/career"
	"github.com/careerscope/careerscope/internal/insight"
	"github.com/careerscope/careerscope/internal/profile"
	"github.com/careerscope/careerscope/internal/synth"
)

func makeCallToolRequest(name string, args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	}
}

func toolText(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) != 1 {
		t.Fatalf("expected 1 content item, got %d", len(result.Content))
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		t.Fatalf("content is %T, want TextContent", result.Content[0])
	}
	return text.Text
}

func TestAnalyzeConversationTool(t *testing.T) {
	td := newTestDeps()
	td.analyzer.result = synth.AnalysisResult{
		Profile: profile.PersonProfile{Interests: []string{"biology"}},
		CareerCards: []career.CareerCard{
			{ID: "c1", Title: "Nurse", Industry: "Healthcare"},
		},
		DetectedInterests: []string{"biology"},
	}
	handler := mcpAnalyzeConversation(td.deps)

	result, err := handler(context.Background(), makeCallToolRequest("analyze_conversation_for_careers", map[string]any{
		"userId":              "u1",
		"conversationHistory": "User: I love biology\nAssistant: tell me more",
		"triggerReason":       "conversation_end",
	}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var body analysisResponse
	if err := json.Unmarshal([]byte(toolText(t, result)), &body); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if !body.Success {
		t.Error("success should be true")
	}
	if len(body.Analysis.CareerCards) != 1 || body.Analysis.CareerCards[0].Title != "Nurse" {
		t.Errorf("cards = %+v", body.Analysis.CareerCards)
	}
	if len(body.Analysis.DetectedInterests) != 1 {
		t.Errorf("detected interests = %v", body.Analysis.DetectedInterests)
	}
	if len(body.Analysis.UserProfile.Interests) != 1 {
		t.Errorf("user profile = %+v", body.Analysis.UserProfile)
	}

	if len(td.analyzer.gotMsgs) != 2 {
		t.Errorf("analyzer got %d messages, want 2", len(td.analyzer.gotMsgs))
	}
	if len(td.cards.inserted) != 1 {
		t.Errorf("inserted %d cards, want 1", len(td.cards.inserted))
	}
	// The transcript is cached so a follow-up call can reuse it.
	if got := td.deps.Sessions.Get("u1").Messages(); len(got) != 2 {
		t.Errorf("session holds %d messages, want 2", len(got))
	}
}

func TestAnalyzeConversationToolReusesSession(t *testing.T) {
	td := newTestDeps()
	td.analyzer.result = synth.AnalysisResult{}
	handler := mcpAnalyzeConversation(td.deps)

	first, err := handler(context.Background(), makeCallToolRequest("analyze_conversation_for_careers", map[string]any{
		"userId":              "u1",
		"conversationHistory": "User: I enjoy making things",
	}))
	if err != nil || first.IsError {
		t.Fatalf("first call failed: %v %v", err, first)
	}

	// No history on the second call: the cached session transcript is used.
	second, err := handler(context.Background(), makeCallToolRequest("analyze_conversation_for_careers", map[string]any{
		"userId": "u1",
	}))
	if err != nil || second.IsError {
		t.Fatalf("second call failed: %v %v", err, second)
	}
	if len(td.analyzer.gotMsgs) != 1 || td.analyzer.gotMsgs[0].Content != "I enjoy making things" {
		t.Errorf("second call messages = %+v", td.analyzer.gotMsgs)
	}
}

func TestAnalyzeConversationToolMissingUserID(t *testing.T) {
	td := newTestDeps()
	handler := mcpAnalyzeConversation(td.deps)

	result, err := handler(context.Background(), makeCallToolRequest("analyze_conversation_for_careers", map[string]any{
		"conversationHistory": "User: hello",
	}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !result.IsError {
		t.Fatal("missing userId should be a tool error")
	}

	var failure struct {
		Success   bool   `json:"success"`
		Error     string `json:"error"`
		Timestamp string `json:"timestamp"`
	}
	if err := json.Unmarshal([]byte(toolText(t, result)), &failure); err != nil {
		t.Fatalf("decoding failure: %v", err)
	}
	if failure.Success {
		t.Error("failure payload should have success false")
	}
	if !strings.Contains(failure.Error, "userId") {
		t.Errorf("error = %q", failure.Error)
	}
	if failure.Timestamp == "" {
		t.Error("failure payload should carry a timestamp")
	}
}

func TestAnalyzeConversationToolNoHistory(t *testing.T) {
	td := newTestDeps()
	handler := mcpAnalyzeConversation(td.deps)

	result, err := handler(context.Background(), makeCallToolRequest("analyze_conversation_for_careers", map[string]any{
		"userId": "u1",
	}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !result.IsError {
		t.Fatal("no history and no cached session should be a tool error")
	}
	if text := toolText(t, result); !strings.Contains(text, "conversationHistory") {
		t.Errorf("error should tell the caller to load history: %s", text)
	}
}

func TestGenerateRecommendationsTool(t *testing.T) {
	td := newTestDeps()
	td.profiles.profiles["u1"] = &profile.PersonProfile{Interests: []string{"biology"}}
	td.analyzer.cards = []career.CareerCard{
		{ID: "c1", Title: "Nurse", Industry: "Healthcare"},
		{ID: "c2", Title: "Biology Teacher", Industry: "Education"},
	}
	handler := mcpGenerateRecommendations(td.deps)

	result, err := handler(context.Background(), makeCallToolRequest("generate_career_recommendations", map[string]any{
		"userId": "u1",
	}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}

	var body struct {
		Success     bool                `json:"success"`
		CareerCards []career.CareerCard `json:"careerCards"`
	}
	if err := json.Unmarshal([]byte(toolText(t, result)), &body); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if !body.Success || len(body.CareerCards) != 2 {
		t.Errorf("body = %+v", body)
	}
	if len(td.cards.inserted) != 2 {
		t.Errorf("inserted %d cards, want 2", len(td.cards.inserted))
	}
}

func TestGenerateRecommendationsToolNoProfile(t *testing.T) {
	td := newTestDeps()
	handler := mcpGenerateRecommendations(td.deps)

	result, err := handler(context.Background(), makeCallToolRequest("generate_career_recommendations", map[string]any{
		"userId": "unknown",
	}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !result.IsError {
		t.Fatal("missing profile should be a tool error")
	}
	if text := toolText(t, result); !strings.Contains(text, "analyze_conversation_for_careers") {
		t.Errorf("error should point at the analysis tool: %s", text)
	}
}

func TestInstantInsightsTool(t *testing.T) {
	td := newTestDeps()
	td.insights.insights = []insight.Insight{{
		Field:         "nursing",
		Description:   "Clinical care",
		KeySkills:     []string{"clinical care"},
		GrowthOutlook: "high demand",
	}}
	handler := mcpInstantInsights(td.deps)

	result, err := handler(context.Background(), makeCallToolRequest("trigger_instant_insights", map[string]any{
		"careerFields": []any{"nursing", "teaching"},
	}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}
	if len(td.insights.gotFields) != 2 {
		t.Errorf("fields = %v", td.insights.gotFields)
	}

	// The tool emits the same card shape as POST /insights.
	var body struct {
		Success     bool          `json:"success"`
		CareerCards []insightView `json:"careerCards"`
	}
	if err := json.Unmarshal([]byte(toolText(t, result)), &body); err != nil {
		t.Fatalf("decoding result: %v", err)
	}
	if !body.Success || len(body.CareerCards) != 1 {
		t.Fatalf("body = %+v", body)
	}
	card := body.CareerCards[0]
	if card.Title != "nursing" {
		t.Errorf("title = %q, want the insight field", card.Title)
	}
	if len(card.SkillsRequired) != 1 || card.MarketOutlook != "high demand" {
		t.Errorf("card = %+v", card)
	}
	if card.Source != "careerscope" {
		t.Errorf("source = %q", card.Source)
	}
}

func TestInstantInsightsToolFallsBackToInterests(t *testing.T) {
	td := newTestDeps()
	td.profiles.profiles["u1"] = &profile.PersonProfile{Interests: []string{"biology"}}
	handler := mcpInstantInsights(td.deps)

	result, err := handler(context.Background(), makeCallToolRequest("trigger_instant_insights", map[string]any{
		"userId": "u1",
	}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %s", toolText(t, result))
	}
	if len(td.insights.gotFields) != 1 || td.insights.gotFields[0] != "biology" {
		t.Errorf("fields = %v", td.insights.gotFields)
	}
}

func TestInstantInsightsToolMissingArguments(t *testing.T) {
	td := newTestDeps()
	handler := mcpInstantInsights(td.deps)

	result, err := handler(context.Background(), makeCallToolRequest("trigger_instant_insights", map[string]any{}))
	if err != nil {
		t.Fatalf("handler: %v", err)
	}
	if !result.IsError {
		t.Fatal("no fields and no userId should be a tool error")
	}
	if text := toolText(t, result); !strings.Contains(text, "careerFields or userId") {
		t.Errorf("error = %s", text)
	}
}
