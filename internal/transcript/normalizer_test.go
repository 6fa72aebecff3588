package transcript

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestResolveDelimitedString(t *testing.T) {
	msgs := Resolve("user: I love biology\nassistant: tell me more\nuser: and chemistry", "chat")

	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Role != RoleUser || msgs[0].Content != "I love biology" {
		t.Errorf("unexpected first message: %+v", msgs[0])
	}
	if msgs[1].Role != RoleAssistant {
		t.Errorf("expected assistant role, got %q", msgs[1].Role)
	}
}

func TestResolveStringWithoutRoleLabels(t *testing.T) {
	msgs := Resolve("just some notes without labels", "chat")

	if len(msgs) != 1 {
		t.Fatalf("expected 1 message, got %d", len(msgs))
	}
	if msgs[0].Role != RoleAssistant {
		t.Errorf("unlabeled lines should default to assistant, got %q", msgs[0].Role)
	}
}

func TestResolveMessageSlice(t *testing.T) {
	in := []Message{
		{Role: RoleUser, Content: "hello"},
		{Role: RoleAssistant, Content: "hi"},
	}
	msgs := Resolve(in, "")

	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}
	if msgs[0].Content != "hello" {
		t.Errorf("unexpected content: %q", msgs[0].Content)
	}
}

func TestResolveAnySlice(t *testing.T) {
	in := []any{
		map[string]any{"role": "user", "content": "hey"},
		map[string]any{"role": "model", "content": "response"},
		map[string]any{"role": "USER", "content": "shouting"},
		map[string]any{"role": "user"}, // no content, dropped
	}
	msgs := Resolve(in, "")

	if len(msgs) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(msgs))
	}
	if msgs[0].Role != RoleUser {
		t.Errorf("literal user label should map to user, got %q", msgs[0].Role)
	}
	if msgs[1].Role != RoleAssistant {
		t.Errorf("unknown roles should map to assistant, got %q", msgs[1].Role)
	}
	// Only the exact label counts; a cased variant is not the user.
	if msgs[2].Role != RoleAssistant {
		t.Errorf("cased role label should map to assistant, got %q", msgs[2].Role)
	}
}

func TestResolveEmptyProducesPlaceholder(t *testing.T) {
	for _, in := range []any{nil, "", "   ", []Message{}, []any{}} {
		msgs := Resolve(in, "manual")
		if len(msgs) != 1 {
			t.Fatalf("Resolve(%v) returned %d messages, want 1", in, len(msgs))
		}
		if msgs[0].Role != RoleUser {
			t.Errorf("placeholder role = %q, want user", msgs[0].Role)
		}
		if !strings.Contains(msgs[0].Content, "manual") {
			t.Errorf("placeholder should carry trigger reason, got %q", msgs[0].Content)
		}
	}
}

func TestResolveEmptyDefaultsTriggerReason(t *testing.T) {
	msgs := Resolve(nil, "")
	if !strings.Contains(msgs[0].Content, "unspecified") {
		t.Errorf("missing trigger should read unspecified, got %q", msgs[0].Content)
	}
}

func TestResolveJSON(t *testing.T) {
	raw := json.RawMessage(`[{"role":"user","content":"hi"},{"role":"assistant","content":"hello"}]`)
	msgs := ResolveJSON(raw, "")
	if len(msgs) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(msgs))
	}

	raw = json.RawMessage(`"user: plain text transcript"`)
	msgs = ResolveJSON(raw, "")
	if len(msgs) != 1 || msgs[0].Content != "plain text transcript" {
		t.Errorf("unexpected messages from string JSON: %+v", msgs)
	}

	msgs = ResolveJSON(json.RawMessage(`{"bogus": true}`), "fallback")
	if len(msgs) != 1 || msgs[0].Role != RoleUser {
		t.Errorf("unparseable JSON should produce placeholder, got %+v", msgs)
	}
}

func TestRender(t *testing.T) {
	out := Render([]Message{
		{Role: RoleUser, Content: "one"},
		{Role: RoleAssistant, Content: "two"},
	})
	want := "user: one\nassistant: two"
	if out != want {
		t.Errorf("Render = %q, want %q", out, want)
	}
}

func TestSessionAppendAndReset(t *testing.T) {
	reg := NewSessions()

	s := reg.Get("alice")
	if !s.Empty() {
		t.Fatal("new session should be empty")
	}

	s.Append([]Message{{Role: RoleUser, Content: "hi"}})
	s.Append([]Message{{Role: RoleAssistant, Content: "hello"}})

	if got := reg.Get("alice").Messages(); len(got) != 2 {
		t.Fatalf("expected 2 cached messages, got %d", len(got))
	}

	// Mutating the returned slice must not affect the session.
	msgs := s.Messages()
	msgs[0].Content = "tampered"
	if s.Messages()[0].Content != "hi" {
		t.Error("Messages should return a copy")
	}

	fresh := reg.Start("alice")
	if !fresh.Empty() {
		t.Error("Start should reset the session")
	}
	if !reg.Get("alice").Empty() {
		t.Error("registry should hold the fresh session")
	}
}
