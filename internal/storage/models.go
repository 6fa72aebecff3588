package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// ProfileRecord is the persisted form of a person profile. One row per user;
// list fields are stored as JSON arrays. Writes are upserts, never deletes.
type ProfileRecord struct {
	UserID      string
	Interests   []string
	Skills      []string
	Goals       []string
	Values      []string
	WorkStyle   []string
	CareerStage string
	LastUpdated time.Time
}

// CardRecord is the persisted form of a career card. The full card is kept in
// PayloadJSON; the remaining columns exist for dedup and category queries.
type CardRecord struct {
	ID          string
	UserID      string
	DedupKey    string
	Title       string
	Industry    string
	Confidence  float64
	Popularity  int
	PayloadJSON string
	GeneratedAt time.Time
}

// EmbeddingRecord is one stored embedding, tagged with the content type of
// the entity it belongs to ("career_card", "video", ...).
type EmbeddingRecord struct {
	ID          string
	OwnerID     string
	ContentType string
	Vector      []float32
	CreatedAt   time.Time
}

// Video is an indexed media item used by the non-semantic ranking fallback.
type Video struct {
	ID         string
	Title      string
	Category   string
	Popularity int
	CreatedAt  time.Time
}

type Job struct {
	ID          string
	Type        string
	PayloadJSON string
	Status      string // "pending", "running", "completed", "failed"
	Attempts    int
	MaxAttempts int
	RunAfter    time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
	LastError   string
}
