package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/careerscope/careerscope/internal/career"
	"github.com/careerscope/careerscope/internal/storage"
	"github.com/google/uuid"
)

// JobTypeCardsEmbed backfills embeddings for freshly stored career cards.
const JobTypeCardsEmbed = "cards_embed"

// ContentTypeCareerCard tags card embeddings in the embedding store.
const ContentTypeCareerCard = "career_card"

// CardsEmbedPayload is the jobs-table payload for a cards_embed job.
type CardsEmbedPayload struct {
	UserID  string   `json:"user_id"`
	CardIDs []string `json:"card_ids"`
}

// JobStore abstracts the job queue and card/embedding persistence.
type JobStore interface {
	ClaimNextJob(types []string) (*storage.Job, error)
	CompleteJob(id string) error
	FailJob(id string, errMsg string) error
	GetCard(id string) (storage.CardRecord, error)
	InsertEmbeddings(records []storage.EmbeddingRecord) error
}

// BatchEmbedder generates embeddings for a batch of texts.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// Worker processes cards_embed jobs from the SQLite job queue.
type Worker struct {
	store    JobStore
	embedder BatchEmbedder
	poll     time.Duration
	logger   *slog.Logger
}

// NewWorker creates a Worker with the given dependencies.
// If pollInterval is <= 0, it defaults to 500ms.
func NewWorker(store JobStore, embedder BatchEmbedder, pollInterval time.Duration) *Worker {
	if pollInterval <= 0 {
		pollInterval = 500 * time.Millisecond
	}
	return &Worker{
		store:    store,
		embedder: embedder,
		poll:     pollInterval,
		logger:   slog.Default(),
	}
}

// Enqueue queues an embedding backfill for the given cards.
func Enqueue(store interface{ EnqueueJob(job storage.Job) error }, userID string, cardIDs []string) error {
	if len(cardIDs) == 0 {
		return nil
	}
	payload, err := json.Marshal(CardsEmbedPayload{UserID: userID, CardIDs: cardIDs})
	if err != nil {
		return fmt.Errorf("marshaling payload: %w", err)
	}
	return store.EnqueueJob(storage.Job{
		ID:          uuid.New().String(),
		Type:        JobTypeCardsEmbed,
		PayloadJSON: string(payload),
	})
}

// Run polls for jobs until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}

		done, err := w.RunOnce(ctx)
		if err != nil {
			w.logger.Error("worker iteration failed", "error", err)
		}
		if done {
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.poll):
		}
	}
}

// RunOnce claims and processes a single cards_embed job.
// Returns true if a job was processed (regardless of success/failure).
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	job, err := w.store.ClaimNextJob([]string{JobTypeCardsEmbed})
	if err != nil {
		return false, fmt.Errorf("claiming job: %w", err)
	}
	if job == nil {
		return false, nil
	}

	if err := w.processJob(ctx, job); err != nil {
		w.logger.Warn("job failed", "job_id", job.ID, "error", err)
		if failErr := w.store.FailJob(job.ID, err.Error()); failErr != nil {
			w.logger.Error("failed to mark job as failed", "job_id", job.ID, "error", failErr)
		}
		return true, nil
	}

	if err := w.store.CompleteJob(job.ID); err != nil {
		return true, fmt.Errorf("completing job %s: %w", job.ID, err)
	}
	return true, nil
}

func (w *Worker) processJob(ctx context.Context, job *storage.Job) error {
	var payload CardsEmbedPayload
	if err := json.Unmarshal([]byte(job.PayloadJSON), &payload); err != nil {
		return fmt.Errorf("parsing payload: %w", err)
	}

	var ids []string
	var texts []string
	for _, id := range payload.CardIDs {
		rec, err := w.store.GetCard(id)
		if err != nil {
			return fmt.Errorf("loading card %s: %w", id, err)
		}
		ids = append(ids, rec.ID)
		texts = append(texts, cardText(rec))
	}
	if len(texts) == 0 {
		return nil
	}

	vectors, err := w.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("embedding cards: %w", err)
	}

	records := make([]storage.EmbeddingRecord, len(vectors))
	now := time.Now().UTC()
	for i, vec := range vectors {
		records[i] = storage.EmbeddingRecord{
			ID:          uuid.New().String(),
			OwnerID:     ids[i],
			ContentType: ContentTypeCareerCard,
			Vector:      vec,
			CreatedAt:   now,
		}
	}

	if err := w.store.InsertEmbeddings(records); err != nil {
		return fmt.Errorf("inserting embeddings: %w", err)
	}
	return nil
}

// cardText builds the text to embed for a card: title, industry, and the
// description from the stored payload when it parses.
func cardText(rec storage.CardRecord) string {
	text := rec.Title + ". " + rec.Industry
	var card career.CareerCard
	if err := json.Unmarshal([]byte(rec.PayloadJSON), &card); err == nil && card.Description != "" {
		text += ". " + card.Description
	}
	return text
}
