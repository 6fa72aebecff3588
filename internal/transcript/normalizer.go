package transcript

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one normalized conversation turn. Immutable once recorded;
// ordering is conversation order.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Resolve converts a heterogeneous history value (a delimited string, an
// array of message-like objects, or nothing at all) into an ordered,
// non-empty message sequence. Entries whose content is absent, not a string,
// or whitespace-only are dropped. When no real content survives, a single
// placeholder user message carrying the trigger reason is synthesized, so
// downstream stages always receive non-empty input. Resolve is total: it has
// no failure mode.
func Resolve(history any, triggerReason string) []Message {
	var msgs []Message

	switch h := history.(type) {
	case string:
		msgs = parseDelimited(h)
	case []Message:
		for _, m := range h {
			if strings.TrimSpace(m.Content) == "" {
				continue
			}
			msgs = append(msgs, Message{Role: coerceRole(m.Role), Content: m.Content})
		}
	case []any:
		for _, entry := range h {
			if m, ok := messageFromAny(entry); ok {
				msgs = append(msgs, m)
			}
		}
	case json.RawMessage:
		return ResolveJSON(h, triggerReason)
	}

	if len(msgs) == 0 {
		return []Message{{Role: RoleUser, Content: placeholder(triggerReason)}}
	}
	return msgs
}

// ResolveJSON resolves a raw JSON history value at the gateway boundary:
// first as an array of message objects, then as a delimited string.
func ResolveJSON(raw json.RawMessage, triggerReason string) []Message {
	if len(raw) == 0 {
		return Resolve(nil, triggerReason)
	}

	var entries []any
	if err := json.Unmarshal(raw, &entries); err == nil {
		return Resolve(entries, triggerReason)
	}

	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return Resolve(text, triggerReason)
	}

	return Resolve(nil, triggerReason)
}

// Render serializes messages to the "role: content" line format used in
// extraction prompts.
func Render(msgs []Message) string {
	var b strings.Builder
	for i, m := range msgs {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(m.Role)
		b.WriteString(": ")
		b.WriteString(m.Content)
	}
	return b.String()
}

// parseDelimited splits a one-message-per-line "role: content" string.
func parseDelimited(s string) []Message {
	var msgs []Message
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		role := ""
		content := line
		if idx := strings.Index(line, ":"); idx != -1 {
			role = strings.TrimSpace(line[:idx])
			content = strings.TrimSpace(line[idx+1:])
		}
		if content == "" {
			continue
		}
		msgs = append(msgs, Message{Role: coerceRole(role), Content: content})
	}
	return msgs
}

// messageFromAny extracts a Message from an object-shaped history entry.
// Content must be a non-empty string; anything else is discarded.
func messageFromAny(entry any) (Message, bool) {
	obj, ok := entry.(map[string]any)
	if !ok {
		return Message{}, false
	}

	content, ok := obj["content"].(string)
	if !ok || strings.TrimSpace(content) == "" {
		return Message{}, false
	}

	role, _ := obj["role"].(string)
	return Message{Role: coerceRole(role), Content: content}, true
}

// coerceRole maps a role label to user iff it is literally "user";
// anything else, including absent labels, coerces to assistant.
func coerceRole(label string) string {
	if strings.TrimSpace(label) == RoleUser {
		return RoleUser
	}
	return RoleAssistant
}

func placeholder(triggerReason string) string {
	if strings.TrimSpace(triggerReason) == "" {
		triggerReason = "unspecified"
	}
	return fmt.Sprintf("Conversation analysis requested (trigger: %s). No conversation content is available yet.", triggerReason)
}
