package rank

import (
	"context"
	"errors"
	"math"
	"reflect"
	"testing"

	"github.com/careerscope/careerscope/internal/storage"
)

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float64
	}{
		{"identical", []float32{1, 0}, []float32{1, 0}, 1},
		{"opposite", []float32{1, 0}, []float32{-1, 0}, -1},
		{"orthogonal", []float32{1, 0}, []float32{0, 1}, 0},
		{"length mismatch", []float32{1, 0}, []float32{1, 0, 0}, 0},
		{"zero vector", []float32{0, 0}, []float32{1, 1}, 0},
		{"both empty", nil, nil, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("CosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTopKStableTies(t *testing.T) {
	query := []float32{1, 0}
	candidates := []Candidate{
		{ID: "first", Vector: []float32{0.9, 0}},
		{ID: "second", Vector: []float32{0.9, 0}},
		{ID: "weak", Vector: []float32{0.3, 0.9}},
	}

	got := TopK(query, candidates, 2)
	if !reflect.DeepEqual(got, []string{"first", "second"}) {
		t.Errorf("tied candidates should keep input order, got %v", got)
	}
}

func TestTopKBounds(t *testing.T) {
	query := []float32{1}
	candidates := []Candidate{{ID: "a", Vector: []float32{1}}}

	if got := TopK(query, candidates, 5); len(got) != 1 {
		t.Errorf("k beyond candidate count should return all, got %v", got)
	}
	if got := TopK(query, nil, 3); len(got) != 0 {
		t.Errorf("no candidates should return empty, got %v", got)
	}
}

type mockEmbedClient struct {
	vec []float32
	err error
}

func (m *mockEmbedClient) Embed(_ context.Context, _ string, _ string) ([]float32, error) {
	return m.vec, m.err
}

type mockEmbeddingSource struct {
	records []storage.EmbeddingRecord
	err     error
}

func (m *mockEmbeddingSource) ListEmbeddingsByType(string) ([]storage.EmbeddingRecord, error) {
	return m.records, m.err
}

type mockCategorySource struct {
	ids    []string
	err    error
	called bool
}

func (m *mockCategorySource) VideoIDsByCategory(string, int) ([]string, error) {
	m.called = true
	return m.ids, m.err
}

func TestRankerSemanticPath(t *testing.T) {
	embeddings := &mockEmbeddingSource{records: []storage.EmbeddingRecord{
		{OwnerID: "close", Vector: []float32{1, 0}},
		{OwnerID: "far", Vector: []float32{0, 1}},
	}}
	categories := &mockCategorySource{}
	r := NewRanker(NewEmbedder(&mockEmbedClient{vec: []float32{1, 0}}, "m"), embeddings, categories)

	ids, err := r.Rank(context.Background(), "query", "video", "science", 1)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"close"}) {
		t.Errorf("ids = %v, want [close]", ids)
	}
	if categories.called {
		t.Error("category fallback should not run when embeddings exist")
	}
}

func TestRankerCategoryFallback(t *testing.T) {
	categories := &mockCategorySource{ids: []string{"v1", "v2"}}
	r := NewRanker(NewEmbedder(&mockEmbedClient{vec: []float32{1}}, "m"), &mockEmbeddingSource{}, categories)

	ids, err := r.Rank(context.Background(), "query", "video", "science", 5)
	if err != nil {
		t.Fatalf("Rank: %v", err)
	}
	if !reflect.DeepEqual(ids, []string{"v1", "v2"}) {
		t.Errorf("ids = %v, want category fallback results", ids)
	}
	if !categories.called {
		t.Error("category fallback should run when no embeddings exist")
	}
}

func TestRankerEmbedError(t *testing.T) {
	embeddings := &mockEmbeddingSource{records: []storage.EmbeddingRecord{
		{OwnerID: "a", Vector: []float32{1}},
	}}
	r := NewRanker(NewEmbedder(&mockEmbedClient{err: errors.New("backend down")}, "m"), embeddings, &mockCategorySource{})

	if _, err := r.Rank(context.Background(), "query", "video", "", 3); err == nil {
		t.Error("expected error when embedding fails")
	}
}

func TestEmbedBatch(t *testing.T) {
	e := NewEmbedder(&mockEmbedClient{vec: []float32{0.5}}, "m")

	vecs, err := e.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if len(vecs) != 3 {
		t.Fatalf("expected 3 vectors, got %d", len(vecs))
	}

	vecs, err = e.EmbedBatch(context.Background(), nil)
	if err != nil || vecs != nil {
		t.Errorf("empty input should return nil, nil; got %v, %v", vecs, err)
	}
}
