package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/careerscope/careerscope/internal/career"
	"github.com/careerscope/careerscope/internal/ingest"
	"github.com/careerscope/careerscope/internal/insight"
	"github.com/careerscope/careerscope/internal/profile"
	"github.com/careerscope/careerscope/internal/storage"
	"github.com/careerscope/careerscope/internal/synth"
	"github.com/careerscope/careerscope/internal/transcript"
)

// Analyzer runs conversation analysis and card generation.
type Analyzer interface {
	Analyze(ctx context.Context, msgs []transcript.Message) (synth.AnalysisResult, error)
	Recommend(ctx context.Context, p profile.PersonProfile) []career.CareerCard
}

// ProfileStore abstracts the profile manager for the API layer.
type ProfileStore interface {
	Get(userID string) (*profile.PersonProfile, error)
	Upsert(userID string, incoming profile.PersonProfile) (profile.PersonProfile, error)
}

// CardStore is the card and job persistence the API layer touches.
type CardStore interface {
	ListCards(userID string) ([]storage.CardRecord, error)
	InsertCards(cards []storage.CardRecord) error
	EnqueueJob(job storage.Job) error
}

// InsightGenerator fans out insight generation over fields.
type InsightGenerator interface {
	GenerateAll(ctx context.Context, fields []string, user insight.UserContext) []insight.Insight
}

// VideoStore persists catalog videos for ranking.
type VideoStore interface {
	InsertVideo(v storage.Video) error
}

// QueryRanker ranks stored content against a text query.
type QueryRanker interface {
	Rank(ctx context.Context, query, contentType, category string, k int) ([]string, error)
}

// TextEmbedder produces a raw embedding vector for a text.
type TextEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Deps holds everything the MCP and REST surfaces need.
type Deps struct {
	Cards    CardStore
	Profiles ProfileStore
	Synth    Analyzer
	Insights InsightGenerator
	Ranker   QueryRanker
	Embedder TextEmbedder
	Videos   VideoStore
	Sessions *transcript.Sessions

	Token      string
	EmbedModel string // embedding model name echoed on /embedding responses
	Version    string // reported by /health

	Health func(ctx context.Context) bool // optional upstream liveness probe
	Logger *slog.Logger
}

func (d Deps) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// persistNewCards stores cards whose dedup key is not already on record for
// the user and queues their embedding backfill. Returns the cards that were
// actually new, in input order.
func persistNewCards(deps Deps, userID string, cards []career.CareerCard) ([]career.CareerCard, error) {
	existing, err := deps.Cards.ListCards(userID)
	if err != nil {
		return nil, fmt.Errorf("listing existing cards: %w", err)
	}
	seen := make(map[string]struct{}, len(existing))
	for _, rec := range existing {
		seen[rec.DedupKey] = struct{}{}
	}

	var recs []storage.CardRecord
	var kept []career.CareerCard
	var ids []string
	for _, c := range cards {
		key := career.DedupKey(c.Title, c.Industry)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		payload, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("marshaling card %q: %w", c.Title, err)
		}
		recs = append(recs, storage.CardRecord{
			ID:          c.ID,
			UserID:      userID,
			DedupKey:    key,
			Title:       c.Title,
			Industry:    c.Industry,
			Confidence:  c.Confidence,
			PayloadJSON: string(payload),
			GeneratedAt: c.GeneratedAt,
		})
		kept = append(kept, c)
		ids = append(ids, c.ID)
	}

	if len(recs) == 0 {
		return kept, nil
	}
	if err := deps.Cards.InsertCards(recs); err != nil {
		return nil, fmt.Errorf("inserting cards: %w", err)
	}
	if err := ingest.Enqueue(deps.Cards, userID, ids); err != nil {
		// Cards are stored; the backfill can be retried out of band.
		deps.logger().Warn("queueing embedding backfill failed", "user_id", userID, "error", err)
	}
	return kept, nil
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
