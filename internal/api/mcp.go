package api

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/careerscope/careerscope/internal/career"
	"github.com/careerscope/careerscope/internal/insight"
	"github.com/careerscope/careerscope/internal/profile"
	"github.com/careerscope/careerscope/internal/transcript"
)

// NewMCPServer creates an MCP server with the careerscope tools registered.
func NewMCPServer(deps Deps) *server.MCPServer {
	s := server.NewMCPServer(
		"careerscope",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions("careerscope analyzes conversations for career discovery: profiles, career cards, and field insights."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("analyze_conversation_for_careers",
			mcp.WithDescription("Analyze a conversation transcript, update the user's career profile, and generate matching career cards."),
			mcp.WithString("userId", mcp.Description("User the conversation belongs to"), mcp.Required()),
			mcp.WithString("conversationHistory", mcp.Description("Transcript as a JSON array of {role, content} objects or plain delimited text. Omit to analyze the cached session transcript.")),
			mcp.WithString("triggerReason", mcp.Description("Why analysis was requested")),
		),
		mcpAnalyzeConversation(deps),
	)

	s.AddTool(
		mcp.NewTool("generate_career_recommendations",
			mcp.WithDescription("Generate fresh career cards from the user's stored profile, without re-analyzing any conversation."),
			mcp.WithString("userId", mcp.Description("User to recommend for"), mcp.Required()),
		),
		mcpGenerateRecommendations(deps),
	)

	s.AddTool(
		mcp.NewTool("trigger_instant_insights",
			mcp.WithDescription("Generate short practical briefings for a set of career fields. Falls back to the user's profile interests when no fields are given."),
			mcp.WithString("userId", mcp.Description("User whose interests seed the fields when none are given")),
			mcp.WithArray("careerFields", mcp.Description("Career fields to brief on")),
		),
		mcpInstantInsights(deps),
	)

	return s
}

// NewStreamableServer wraps an MCP server in the HTTP transport used for
// remote clients: JSON-RPC over POST with an SSE response stream and 30s
// keep-alive heartbeats.
func NewStreamableServer(s *server.MCPServer) *server.StreamableHTTPServer {
	return server.NewStreamableHTTPServer(
		s,
		server.WithHeartbeatInterval(30*time.Second),
		server.WithStateLess(true),
	)
}

// analysisBody nests the analysis under its own key so the top level stays
// a plain success envelope.
type analysisResponse struct {
	Success  bool         `json:"success"`
	Analysis analysisBody `json:"analysis"`
}

type analysisBody struct {
	DetectedInterests []string              `json:"detectedInterests"`
	DetectedSkills    []string              `json:"detectedSkills"`
	DetectedGoals     []string              `json:"detectedGoals"`
	DetectedValues    []string              `json:"detectedValues"`
	UserProfile       profile.PersonProfile `json:"userProfile"`
	Confidence        float64               `json:"confidence"`
	CareerCards       []career.CareerCard   `json:"careerCards"`
	Timestamp         time.Time             `json:"timestamp"`
}

func mcpAnalyzeConversation(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := req.RequireString("userId")
		if err != nil {
			return mcpError("userId is required"), nil
		}
		trigger := req.GetString("triggerReason", "")

		session := deps.Sessions.Get(userID)
		history := req.GetArguments()["conversationHistory"]

		var msgs []transcript.Message
		if history != nil {
			msgs = transcript.Resolve(history, trigger)
			session.Append(msgs)
		} else {
			if session.Empty() {
				return mcpError("no conversation history available; send conversationHistory or load the session transcript first"), nil
			}
			msgs = session.Messages()
		}

		result, err := deps.Synth.Analyze(ctx, msgs)
		if err != nil {
			return mcpError(fmt.Sprintf("analysis failed: %v", err)), nil
		}

		merged, err := deps.Profiles.Upsert(userID, result.Profile)
		if err != nil {
			return mcpError(fmt.Sprintf("saving profile: %v", err)), nil
		}

		kept, err := persistNewCards(deps, userID, result.CareerCards)
		if err != nil {
			return mcpError(fmt.Sprintf("saving career cards: %v", err)), nil
		}
		if kept == nil {
			kept = []career.CareerCard{}
		}

		return mcpJSON(analysisResponse{
			Success: true,
			Analysis: analysisBody{
				DetectedInterests: result.DetectedInterests,
				DetectedSkills:    result.DetectedSkills,
				DetectedGoals:     result.DetectedGoals,
				DetectedValues:    result.DetectedValues,
				UserProfile:       merged,
				Confidence:        result.Confidence,
				CareerCards:       kept,
				Timestamp:         result.AnalyzedAt,
			},
		})
	}
}

func mcpGenerateRecommendations(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		userID, err := req.RequireString("userId")
		if err != nil {
			return mcpError("userId is required"), nil
		}

		p, err := deps.Profiles.Get(userID)
		if err != nil {
			return mcpError(fmt.Sprintf("loading profile: %v", err)), nil
		}
		if p == nil {
			return mcpError(fmt.Sprintf("no profile for user %s; run analyze_conversation_for_careers first", userID)), nil
		}

		cards := deps.Synth.Recommend(ctx, *p)
		kept, err := persistNewCards(deps, userID, cards)
		if err != nil {
			return mcpError(fmt.Sprintf("saving career cards: %v", err)), nil
		}
		if kept == nil {
			kept = []career.CareerCard{}
		}

		return mcpJSON(map[string]any{
			"success":     true,
			"careerCards": kept,
			"timestamp":   time.Now().UTC(),
		})
	}
}

func mcpInstantInsights(deps Deps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		fields := req.GetStringSlice("careerFields", nil)

		if len(fields) == 0 {
			userID := req.GetString("userId", "")
			if userID == "" {
				return mcpError("careerFields or userId is required"), nil
			}
			p, err := deps.Profiles.Get(userID)
			if err != nil {
				return mcpError(fmt.Sprintf("loading profile: %v", err)), nil
			}
			if p != nil {
				fields = p.Interests
			}
			if len(fields) == 0 {
				return mcpError(fmt.Sprintf("no career fields given and no interests on record for user %s", userID)), nil
			}
		}

		insights := deps.Insights.GenerateAll(ctx, fields, insight.UserContext{})

		// Same card-shaped remapping as POST /insights.
		return mcpJSON(map[string]any{
			"success":     true,
			"careerCards": insightViews(insights),
			"timestamp":   time.Now().UTC(),
		})
	}
}

func mcpJSON(v any) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return mcpError(fmt.Sprintf("failed to marshal result: %v", err)), nil
	}
	return mcpText(string(b)), nil
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: toolFailureJSON(msg)},
		},
		IsError: true,
	}
}
