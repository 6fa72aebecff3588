package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/careerscope/careerscope/internal/llm"
)

// Typed extraction failures. Callers match with errors.Is; the synthesis
// pipeline absorbs these into safe defaults rather than propagating them.
var (
	ErrEmptyInput      = errors.New("input text is empty")
	ErrNoContent       = errors.New("completion service returned no content")
	ErrMalformedOutput = errors.New("completion output is not valid JSON")
	ErrUpstream        = errors.New("completion service unavailable")
)

// Temperatures per task class: low for profile/career extraction where
// determinism matters, higher for open-ended insight text.
const (
	StructuredTemperature = 0.2
	CreativeTemperature   = 0.7
)

const defaultRunPollInterval = 2 * time.Second

// CompletionClient is the subset of llm.Client the extractor needs.
type CompletionClient interface {
	Chat(ctx context.Context, model string, messages []llm.Message, opts llm.ChatOptions) (string, error)
	CreateRun(ctx context.Context, model string, messages []llm.Message, opts llm.ChatOptions) (llm.Run, error)
	GetRun(ctx context.Context, id string) (llm.Run, error)
}

// Options tune a single extraction call.
type Options struct {
	Temperature float64
	MaxTokens   int
	// LongRunning routes the call through the asynchronous run API with the
	// long timeout budget, polling until a terminal state.
	LongRunning bool
}

// Extractor wraps a structured-completion call: given a system instruction,
// an output schema, and input text, it fills a schema-shaped value or returns
// a typed failure. The schema shapes the request; the response is still
// manually re-parsed and never assumed structurally valid.
type Extractor struct {
	client       CompletionClient
	model        string
	pollInterval time.Duration
}

// New creates an Extractor bound to a completion client and model.
func New(client CompletionClient, model string) *Extractor {
	return &Extractor{client: client, model: model, pollInterval: defaultRunPollInterval}
}

// Extract runs one structured-completion call and unmarshals the response
// into out. Failure modes: ErrEmptyInput, ErrUpstream (network/timeout/non-2xx,
// including a run reaching a fatal status), ErrNoContent, ErrMalformedOutput.
func (e *Extractor) Extract(ctx context.Context, systemInstruction, userText string, schema *llm.Schema, out any, opts Options) error {
	if strings.TrimSpace(userText) == "" {
		return ErrEmptyInput
	}

	messages := []llm.Message{
		{Role: "system", Content: renderInstruction(systemInstruction, schema)},
		{Role: "user", Content: userText},
	}

	chatOpts := llm.ChatOptions{
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
		JSONOutput:  schema != nil,
	}

	var raw string
	var err error
	if opts.LongRunning {
		raw, err = e.extractViaRun(ctx, messages, chatOpts)
	} else {
		raw, err = e.client.Chat(ctx, e.model, messages, chatOpts)
	}
	if err != nil {
		var terminal *llm.TerminalRunError
		if errors.As(err, &terminal) {
			return fmt.Errorf("%w: %v", ErrUpstream, terminal)
		}
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}

	if strings.TrimSpace(raw) == "" {
		return ErrNoContent
	}

	payload, ok := extractJSON(raw)
	if !ok {
		return fmt.Errorf("%w: no JSON value in response", ErrMalformedOutput)
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedOutput, err)
	}
	return nil
}

func (e *Extractor) extractViaRun(ctx context.Context, messages []llm.Message, opts llm.ChatOptions) (string, error) {
	run, err := e.client.CreateRun(ctx, e.model, messages, opts)
	if err != nil {
		return "", err
	}
	done, err := llm.PollRun(ctx, e.client, run.ID, e.pollInterval, llm.LongCallTimeout)
	if err != nil {
		return "", err
	}
	return done.Output, nil
}

// renderInstruction appends a field listing derived from the schema so the
// completion is shaped toward the expected object.
func renderInstruction(systemInstruction string, schema *llm.Schema) string {
	if schema == nil || len(schema.Properties) == 0 {
		return systemInstruction
	}

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(systemInstruction)
	b.WriteString("\n\nRespond with a single JSON object containing exactly these fields:\n")
	for _, name := range names {
		prop := schema.Properties[name]
		fmt.Fprintf(&b, "- %q (%s)", name, prop.Type)
		if prop.Description != "" {
			b.WriteString(": " + prop.Description)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// extractJSON pulls the first JSON value out of a completion response.
// Models frequently wrap JSON in markdown code fences or prepend
// conversational filler; strip fences first, then slice between the
// outermost braces or brackets.
func extractJSON(resp string) (string, bool) {
	s := strings.TrimSpace(resp)

	if idx := strings.Index(s, "```"); idx != -1 {
		s = s[idx+3:]
		if strings.HasPrefix(s, "json") {
			s = s[4:]
		}
		if end := strings.Index(s, "```"); end != -1 {
			s = s[:end]
		}
	}

	objStart := strings.Index(s, "{")
	arrStart := strings.Index(s, "[")
	start := objStart
	endCh := "}"
	if start == -1 || (arrStart != -1 && arrStart < objStart) {
		start = arrStart
		endCh = "]"
	}
	if start == -1 {
		return "", false
	}
	end := strings.LastIndex(s, endCh)
	if end <= start {
		return "", false
	}
	return s[start : end+1], true
}
