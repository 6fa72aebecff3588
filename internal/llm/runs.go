package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// RunStatus is the lifecycle state of an asynchronous completion run.
type RunStatus string

const (
	RunStatusQueued     RunStatus = "queued"
	RunStatusInProgress RunStatus = "in_progress"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
	RunStatusCancelled  RunStatus = "cancelled"
	RunStatusExpired    RunStatus = "expired"
)

// Terminal reports whether the run has reached a final state.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s.Fatal()
}

// Fatal reports whether the run ended without producing output. A fatal
// status aborts the wait immediately rather than retrying.
func (s RunStatus) Fatal() bool {
	return s == RunStatusFailed || s == RunStatusCancelled || s == RunStatusExpired
}

// Run is the state of an asynchronous completion job on the service.
type Run struct {
	ID        string    `json:"id"`
	Status    RunStatus `json:"status"`
	Output    string    `json:"output"`
	LastError string    `json:"last_error,omitempty"`
}

// TerminalRunError is returned when a polled run reaches a fatal status.
type TerminalRunError struct {
	Status RunStatus
	Detail string
}

func (e *TerminalRunError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("run ended with status %q", e.Status)
	}
	return fmt.Sprintf("run ended with status %q: %s", e.Status, e.Detail)
}

// createRunRequest is the JSON body for POST /runs.
type createRunRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// CreateRun starts an asynchronous completion job for multi-step generation.
func (c *Client) CreateRun(ctx context.Context, model string, messages []Message, opts ChatOptions) (Run, error) {
	ctx, cancel := context.WithTimeout(ctx, ShortCallTimeout)
	defer cancel()

	var run Run
	err := c.post(ctx, "/runs", createRunRequest{
		Model:       model,
		Messages:    messages,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	}, &run)
	if err != nil {
		return Run{}, err
	}
	return run, nil
}

// GetRun fetches the current state of a run.
func (c *Client) GetRun(ctx context.Context, id string) (Run, error) {
	ctx, cancel := context.WithTimeout(ctx, ShortCallTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/runs/"+id, nil)
	if err != nil {
		return Run{}, fmt.Errorf("creating run request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Run{}, fmt.Errorf("fetching run %s: %w", id, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Run{}, fmt.Errorf("run %s: unexpected status %d", id, resp.StatusCode)
	}

	var run Run
	if err := json.NewDecoder(resp.Body).Decode(&run); err != nil {
		return Run{}, fmt.Errorf("decoding run response: %w", err)
	}
	return run, nil
}

// RunGetter is the subset of Client the poller needs.
type RunGetter interface {
	GetRun(ctx context.Context, id string) (Run, error)
}

// maxPollIterations is a hard cap independent of the wall-clock budget, so a
// misconfigured interval can never produce an unbounded loop.
const maxPollIterations = 200

// PollRun polls a run at a fixed interval until it reaches a terminal state.
// Completed runs are returned; fatal statuses (failed/cancelled/expired)
// abort the wait immediately with a TerminalRunError. The wait is bounded by
// maxWait and by a hard iteration cap.
func PollRun(ctx context.Context, rc RunGetter, id string, interval, maxWait time.Duration) (Run, error) {
	if interval <= 0 {
		interval = time.Second
	}
	if maxWait <= 0 {
		maxWait = LongCallTimeout
	}

	ctx, cancel := context.WithTimeout(ctx, maxWait)
	defer cancel()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for i := 0; i < maxPollIterations; i++ {
		run, err := rc.GetRun(ctx, id)
		if err != nil {
			return Run{}, fmt.Errorf("polling run %s: %w", id, err)
		}

		switch {
		case run.Status == RunStatusCompleted:
			return run, nil
		case run.Status.Fatal():
			return Run{}, &TerminalRunError{Status: run.Status, Detail: run.LastError}
		}

		select {
		case <-ctx.Done():
			return Run{}, fmt.Errorf("run %s did not complete within %s: %w", id, maxWait, ctx.Err())
		case <-ticker.C:
		}
	}

	return Run{}, fmt.Errorf("run %s did not complete within %d polls", id, maxPollIterations)
}
