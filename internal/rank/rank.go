package rank

import (
	"context"
	"fmt"
	"math"
	"sort"

	"github.com/careerscope/careerscope/internal/storage"
)

// CosineSimilarity returns the normalized dot product of two vectors.
// Mismatched dimensionality is treated as "no match" and returns 0, never an
// error; a zero vector against anything also yields 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

// Candidate is one stored embedding up for ranking.
type Candidate struct {
	ID     string
	Vector []float32
}

// TopK scores every candidate against the query and returns the ids of the
// top k, sorted by similarity descending. The sort is stable: ties keep
// their original relative order.
func TopK(query []float32, candidates []Candidate, k int) []string {
	type scored struct {
		id    string
		score float64
	}

	results := make([]scored, len(candidates))
	for i, c := range candidates {
		results[i] = scored{id: c.ID, score: CosineSimilarity(query, c.Vector)}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	if k > len(results) {
		k = len(results)
	}
	ids := make([]string, k)
	for i := 0; i < k; i++ {
		ids[i] = results[i].id
	}
	return ids
}

// EmbeddingSource lists stored embedding records by content type.
// Implemented by storage.Store.
type EmbeddingSource interface {
	ListEmbeddingsByType(contentType string) ([]storage.EmbeddingRecord, error)
}

// CategorySource is the non-semantic fallback: category-membership filtering
// ordered by popularity. Implemented by storage.Store.
type CategorySource interface {
	VideoIDsByCategory(category string, limit int) ([]string, error)
}

// Ranker embeds a query and ranks stored embeddings by cosine similarity.
// When the store holds no candidates for the content type, it falls back to
// the category path rather than silently returning nothing.
type Ranker struct {
	embedder   *Embedder
	embeddings EmbeddingSource
	categories CategorySource
}

// NewRanker wires a Ranker to its embedder and stores.
func NewRanker(embedder *Embedder, embeddings EmbeddingSource, categories CategorySource) *Ranker {
	return &Ranker{embedder: embedder, embeddings: embeddings, categories: categories}
}

// Rank returns up to k owner ids most similar to the query text among
// embeddings tagged with contentType. category feeds the fallback path.
func (r *Ranker) Rank(ctx context.Context, query, contentType, category string, k int) ([]string, error) {
	if k <= 0 {
		k = 5
	}

	records, err := r.embeddings.ListEmbeddingsByType(contentType)
	if err != nil {
		return nil, fmt.Errorf("listing embeddings for %q: %w", contentType, err)
	}

	if len(records) == 0 {
		ids, err := r.categories.VideoIDsByCategory(category, k)
		if err != nil {
			return nil, fmt.Errorf("category fallback for %q: %w", category, err)
		}
		return ids, nil
	}

	vec, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	candidates := make([]Candidate, len(records))
	for i, rec := range records {
		candidates[i] = Candidate{ID: rec.OwnerID, Vector: rec.Vector}
	}
	return TopK(vec, candidates, k), nil
}
