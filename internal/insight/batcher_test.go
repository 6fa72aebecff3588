package insight

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"testing"
)

type mockGenerator struct {
	mu       sync.Mutex
	inFlight int
	maxSeen  int
	failFor  map[string]bool
}

func (m *mockGenerator) Generate(_ context.Context, field string, _ UserContext) (Insight, error) {
	m.mu.Lock()
	m.inFlight++
	if m.inFlight > m.maxSeen {
		m.maxSeen = m.inFlight
	}
	m.mu.Unlock()

	defer func() {
		m.mu.Lock()
		m.inFlight--
		m.mu.Unlock()
	}()

	if m.failFor[field] {
		return Insight{}, errors.New("generation failed")
	}
	return Insight{Field: field, Description: "about " + field}, nil
}

func TestGenerateAllPartialFailure(t *testing.T) {
	gen := &mockGenerator{failFor: map[string]bool{"b": true, "d": true}}
	b := NewBatcher(gen, slog.New(slog.DiscardHandler))

	out := b.GenerateAll(context.Background(), []string{"a", "b", "c", "d", "e"}, UserContext{})

	if len(out) != 3 {
		t.Fatalf("expected 3 insights, got %d", len(out))
	}
	want := []string{"a", "c", "e"}
	for i, ins := range out {
		if ins.Field != want[i] {
			t.Errorf("insight %d field = %q, want %q (order must be preserved)", i, ins.Field, want[i])
		}
	}
}

func TestGenerateAllBoundsConcurrency(t *testing.T) {
	gen := &mockGenerator{}
	b := NewBatcher(gen, slog.New(slog.DiscardHandler))

	fields := make([]string, 10)
	for i := range fields {
		fields[i] = fmt.Sprintf("field-%d", i)
	}
	out := b.GenerateAll(context.Background(), fields, UserContext{})

	if len(out) != 10 {
		t.Fatalf("expected 10 insights, got %d", len(out))
	}
	if gen.maxSeen > batchSize {
		t.Errorf("saw %d concurrent generations, cap is %d", gen.maxSeen, batchSize)
	}
}

func TestGenerateAllEmpty(t *testing.T) {
	b := NewBatcher(&mockGenerator{}, slog.New(slog.DiscardHandler))

	if out := b.GenerateAll(context.Background(), nil, UserContext{}); len(out) != 0 {
		t.Errorf("expected no insights, got %v", out)
	}
}
