package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/careerscope/careerscope/internal/career"
	"github.com/careerscope/careerscope/internal/insight"
	"github.com/careerscope/careerscope/internal/storage"
	"github.com/careerscope/careerscope/internal/transcript"
)

const maxRequestBodySize = 1 << 20 // 1MB
const maxPDFBodySize = 10 << 20    // 10MB

// NewAppHandler returns the REST surface: convenience endpoints mirroring the
// MCP tools plus raw embedding and ranking access. /health is unauthenticated;
// everything else requires the bearer token when one is configured.
func NewAppHandler(deps Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/health", handleHealth(deps))

	r.Group(func(r chi.Router) {
		if deps.Token != "" {
			r.Use(BearerAuth(deps.Token))
		} else {
			deps.logger().Warn("no API token configured, REST endpoints are unauthenticated")
		}

		r.Post("/analyze", handleAnalyze(deps))
		r.Post("/insights", handleInsights(deps))
		r.Post("/embedding", handleEmbedding(deps))
		r.Post("/rank", handleRank(deps))
		r.Post("/videos", handleCreateVideo(deps))
		r.Get("/profile/{userID}", handleGetProfile(deps))
		r.Get("/cards/{userID}", handleListCards(deps))
	})

	return r
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		if deps.Health != nil && !deps.Health(r.Context()) {
			status = "degraded"
		}
		writeJSON(w, map[string]any{
			"status":    status,
			"version":   deps.Version,
			"timestamp": time.Now().UTC(),
		})
	}
}

type analyzeRequest struct {
	UserID              string          `json:"userId"`
	ConversationHistory json.RawMessage `json:"conversationHistory"`
	TranscriptPDF       string          `json:"transcriptPdf"`
	TriggerReason       string          `json:"triggerReason"`
}

func handleAnalyze(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxPDFBodySize)
		defer r.Body.Close()

		var req analyzeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.UserID == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "userId is required")
			return
		}

		session := deps.Sessions.Get(req.UserID)

		var msgs []transcript.Message
		switch {
		case req.TranscriptPDF != "":
			data, err := base64.StdEncoding.DecodeString(req.TranscriptPDF)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "transcriptPdf is not valid base64")
				return
			}
			text, err := extractPDFText(data)
			if err != nil {
				httpError(w, http.StatusBadRequest, "invalid_request_error", "reading transcript PDF: %v", err)
				return
			}
			msgs = transcript.Resolve(text, req.TriggerReason)
			session.Append(msgs)
		case len(req.ConversationHistory) > 0:
			msgs = transcript.ResolveJSON(req.ConversationHistory, req.TriggerReason)
			session.Append(msgs)
		default:
			if session.Empty() {
				writeFailure(w, http.StatusBadRequest, "no conversation history available; send conversationHistory or load the session transcript first")
				return
			}
			msgs = session.Messages()
		}

		result, err := deps.Synth.Analyze(r.Context(), msgs)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "analysis failed: %v", err)
			return
		}

		merged, err := deps.Profiles.Upsert(req.UserID, result.Profile)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "saving profile: %v", err)
			return
		}
		kept, err := persistNewCards(deps, req.UserID, result.CareerCards)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "saving career cards: %v", err)
			return
		}
		if kept == nil {
			kept = []career.CareerCard{}
		}

		writeJSON(w, analysisResponse{
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

type insightsRequest struct {
	Interests []string `json:"interests"`
	Fields    []string `json:"fields"`
	UserID    string   `json:"userId"`
	Context   struct {
		Experience string `json:"experience"`
		Location   string `json:"location"`
	} `json:"context"`
}

// insightView is the wire shape of one insight on the REST surface. Field
// names here predate the internal ones and are kept for client compatibility.
type insightView struct {
	ID              string   `json:"id"`
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	SalaryRange     string   `json:"salaryRange"`
	SkillsRequired  []string `json:"skillsRequired"`
	TrainingPathway string   `json:"trainingPathway"`
	NextSteps       []string `json:"nextSteps"`
	MarketOutlook   string   `json:"marketOutlook"`
	Source          string   `json:"source"`
}

func handleInsights(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req insightsRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		fields := req.Interests
		if len(fields) == 0 {
			fields = req.Fields
		}
		if len(fields) == 0 && req.UserID != "" {
			p, err := deps.Profiles.Get(req.UserID)
			if err != nil {
				httpError(w, http.StatusInternalServerError, "api_error", "loading profile: %v", err)
				return
			}
			if p != nil {
				fields = p.Interests
			}
		}
		if len(fields) == 0 {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "interests is required")
			return
		}

		insights := deps.Insights.GenerateAll(r.Context(), fields, insight.UserContext{
			Experience: req.Context.Experience,
			Location:   req.Context.Location,
		})

		// Insights go out in the card shape (title/skillsRequired/marketOutlook)
		// rather than the internal field names; clients treat them as cards.
		writeJSON(w, map[string]any{
			"success":     true,
			"careerCards": insightViews(insights),
			"timestamp":   time.Now().UTC(),
		})
	}
}

// insightViews remaps insights into the card shape both surfaces emit.
func insightViews(insights []insight.Insight) []insightView {
	views := make([]insightView, len(insights))
	for i, ins := range insights {
		views[i] = insightView{
			ID:              uuid.New().String(),
			Title:           ins.Field,
			Description:     ins.Description,
			SalaryRange:     ins.SalaryRange,
			SkillsRequired:  ins.KeySkills,
			TrainingPathway: ins.TrainingPathway,
			NextSteps:       ins.NextSteps,
			MarketOutlook:   ins.GrowthOutlook,
			Source:          "careerscope",
		}
	}
	return views
}

func handleEmbedding(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req struct {
			Text  string `json:"text"`
			Query string `json:"query"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		text := req.Text
		if text == "" {
			text = req.Query
		}
		if text == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "text is required")
			return
		}

		vec, err := deps.Embedder.Embed(r.Context(), text)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "embedding failed: %v", err)
			return
		}
		writeJSON(w, map[string]any{
			"embedding": vec,
			"model":     deps.EmbedModel,
			"object":    "embedding",
		})
	}
}

func handleRank(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req struct {
			Query       string `json:"query"`
			ContentType string `json:"contentType"`
			Category    string `json:"category"`
			Limit       int    `json:"limit"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Query == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "query is required")
			return
		}
		if req.ContentType == "" {
			req.ContentType = "video"
		}

		ids, err := deps.Ranker.Rank(r.Context(), req.Query, req.ContentType, req.Category, req.Limit)
		if err != nil {
			httpError(w, http.StatusBadGateway, "api_error", "ranking failed: %v", err)
			return
		}
		if ids == nil {
			ids = []string{}
		}
		writeJSON(w, map[string]any{"videoIds": ids})
	}
}

func handleCreateVideo(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
		defer r.Body.Close()

		var req struct {
			ID         string `json:"id"`
			Title      string `json:"title"`
			Category   string `json:"category"`
			Popularity int    `json:"popularity"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}
		if req.Title == "" || req.Category == "" {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "title and category are required")
			return
		}
		if req.ID == "" {
			req.ID = uuid.New().String()
		}

		if err := deps.Videos.InsertVideo(storage.Video{
			ID:         req.ID,
			Title:      req.Title,
			Category:   req.Category,
			Popularity: req.Popularity,
		}); err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "saving video: %v", err)
			return
		}
		w.WriteHeader(http.StatusCreated)
		writeJSON(w, map[string]any{"id": req.ID})
	}
}

func handleGetProfile(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		p, err := deps.Profiles.Get(userID)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "loading profile: %v", err)
			return
		}
		if p == nil {
			httpError(w, http.StatusNotFound, "not_found", "no profile for user %s", userID)
			return
		}
		writeJSON(w, p)
	}
}

func handleListCards(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userID")

		recs, err := deps.Cards.ListCards(userID)
		if err != nil {
			httpError(w, http.StatusInternalServerError, "api_error", "listing cards: %v", err)
			return
		}

		cards := make([]career.CareerCard, 0, len(recs))
		for _, rec := range recs {
			var c career.CareerCard
			if err := json.Unmarshal([]byte(rec.PayloadJSON), &c); err != nil {
				deps.logger().Warn("skipping unreadable card payload", "card_id", rec.ID, "error", err)
				continue
			}
			if c.ID == "" {
				c.ID = rec.ID
			}
			cards = append(cards, c)
		}
		writeJSON(w, cards)
	}
}
