package storage

import (
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Store wraps a SQLite database with methods for profiles, career cards,
// embedding records, videos, and the background job queue.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "careerscope.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB exposes the underlying handle for components that need direct queries.
func (s *Store) DB() *sql.DB {
	return s.db
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%d_", &version); err != nil {
			return fmt.Errorf("parsing migration version from %q: %w", entry.Name(), err)
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

// --- User profiles ---

// UpsertProfile writes the profile row for a user, replacing any existing one.
// Profiles are never deleted from this path.
func (s *Store) UpsertProfile(p ProfileRecord) error {
	interests, err := marshalList(p.Interests)
	if err != nil {
		return err
	}
	skills, err := marshalList(p.Skills)
	if err != nil {
		return err
	}
	goals, err := marshalList(p.Goals)
	if err != nil {
		return err
	}
	values, err := marshalList(p.Values)
	if err != nil {
		return err
	}
	workStyle, err := marshalList(p.WorkStyle)
	if err != nil {
		return err
	}

	stage := p.CareerStage
	if stage == "" {
		stage = "exploring"
	}

	_, err = s.db.Exec(`
		INSERT INTO user_profiles (user_id, interests, skills, goals, values_json, work_style, career_stage, last_updated)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id) DO UPDATE SET
			interests = excluded.interests,
			skills = excluded.skills,
			goals = excluded.goals,
			values_json = excluded.values_json,
			work_style = excluded.work_style,
			career_stage = excluded.career_stage,
			last_updated = excluded.last_updated`,
		p.UserID, interests, skills, goals, values, workStyle, stage,
		p.LastUpdated.UTC().Format(time.RFC3339),
	)
	return err
}

// GetProfile returns the stored profile for a user, or ErrNotFound.
func (s *Store) GetProfile(userID string) (ProfileRecord, error) {
	var p ProfileRecord
	var interests, skills, goals, values, workStyle, lastUpdated string
	err := s.db.QueryRow(`
		SELECT user_id, interests, skills, goals, values_json, work_style, career_stage, last_updated
		FROM user_profiles WHERE user_id = ?`, userID,
	).Scan(&p.UserID, &interests, &skills, &goals, &values, &workStyle, &p.CareerStage, &lastUpdated)
	if err == sql.ErrNoRows {
		return ProfileRecord{}, ErrNotFound
	}
	if err != nil {
		return ProfileRecord{}, err
	}

	for _, pair := range []struct {
		raw    string
		target *[]string
	}{
		{interests, &p.Interests},
		{skills, &p.Skills},
		{goals, &p.Goals},
		{values, &p.Values},
		{workStyle, &p.WorkStyle},
	} {
		if err := json.Unmarshal([]byte(pair.raw), pair.target); err != nil {
			return ProfileRecord{}, fmt.Errorf("parsing profile list for %s: %w", userID, err)
		}
	}

	t, err := time.Parse(time.RFC3339, lastUpdated)
	if err != nil {
		return ProfileRecord{}, fmt.Errorf("parsing last_updated: %w", err)
	}
	p.LastUpdated = t
	return p, nil
}

func marshalList(v []string) (string, error) {
	if v == nil {
		v = []string{}
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshalling list: %w", err)
	}
	return string(b), nil
}

// --- Career cards ---

// InsertCards appends card records in a single transaction.
func (s *Store) InsertCards(cards []CardRecord) error {
	if len(cards) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning insert transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO career_cards (id, user_id, dedup_key, title, industry, confidence, popularity, payload_json, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for _, c := range cards {
		generatedAt := c.GeneratedAt
		if generatedAt.IsZero() {
			generatedAt = time.Now().UTC()
		}
		if _, err := stmt.Exec(c.ID, c.UserID, c.DedupKey, c.Title, c.Industry, c.Confidence, c.Popularity, c.PayloadJSON, generatedAt.UTC().Format(time.RFC3339)); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting card %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// ListCards returns all cards for a user in insertion order.
func (s *Store) ListCards(userID string) ([]CardRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, user_id, dedup_key, title, industry, confidence, popularity, payload_json, generated_at
		FROM career_cards WHERE user_id = ? ORDER BY rowid ASC`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []CardRecord
	for rows.Next() {
		var c CardRecord
		var generatedAt string
		if err := rows.Scan(&c.ID, &c.UserID, &c.DedupKey, &c.Title, &c.Industry, &c.Confidence, &c.Popularity, &c.PayloadJSON, &generatedAt); err != nil {
			return nil, err
		}
		t, err := time.Parse(time.RFC3339, generatedAt)
		if err != nil {
			return nil, fmt.Errorf("parsing generated_at: %w", err)
		}
		c.GeneratedAt = t
		results = append(results, c)
	}
	return results, rows.Err()
}

// GetCard returns a single card record, or ErrNotFound.
func (s *Store) GetCard(id string) (CardRecord, error) {
	var c CardRecord
	var generatedAt string
	err := s.db.QueryRow(`
		SELECT id, user_id, dedup_key, title, industry, confidence, popularity, payload_json, generated_at
		FROM career_cards WHERE id = ?`, id,
	).Scan(&c.ID, &c.UserID, &c.DedupKey, &c.Title, &c.Industry, &c.Confidence, &c.Popularity, &c.PayloadJSON, &generatedAt)
	if err == sql.ErrNoRows {
		return CardRecord{}, ErrNotFound
	}
	if err != nil {
		return CardRecord{}, err
	}
	t, err := time.Parse(time.RFC3339, generatedAt)
	if err != nil {
		return CardRecord{}, fmt.Errorf("parsing generated_at: %w", err)
	}
	c.GeneratedAt = t
	return c, nil
}

// --- Embedding records ---

// InsertEmbeddings stores embedding records, encoding vectors as
// little-endian float32 blobs.
func (s *Store) InsertEmbeddings(records []EmbeddingRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning insert transaction: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO embedding_records (id, owner_id, content_type, embedding, created_at)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("preparing insert statement: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		createdAt := r.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err := stmt.Exec(r.ID, r.OwnerID, r.ContentType, encodeFloat32s(r.Vector), createdAt.UTC().Format(time.RFC3339)); err != nil {
			tx.Rollback()
			return fmt.Errorf("inserting embedding %s: %w", r.ID, err)
		}
	}

	return tx.Commit()
}

// ListEmbeddingsByType returns all embedding records carrying the given
// content type tag.
func (s *Store) ListEmbeddingsByType(contentType string) ([]EmbeddingRecord, error) {
	rows, err := s.db.Query(`
		SELECT id, owner_id, content_type, embedding, created_at
		FROM embedding_records WHERE content_type = ? ORDER BY rowid ASC`, contentType,
	)
	if err != nil {
		return nil, fmt.Errorf("querying embeddings: %w", err)
	}
	defer rows.Close()

	var records []EmbeddingRecord
	for rows.Next() {
		var r EmbeddingRecord
		var blob []byte
		var createdAt string
		if err := rows.Scan(&r.ID, &r.OwnerID, &r.ContentType, &blob, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		vec, err := decodeFloat32s(blob)
		if err != nil {
			return nil, fmt.Errorf("decoding embedding for %s: %w", r.ID, err)
		}
		r.Vector = vec
		t, err := time.Parse(time.RFC3339, createdAt)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		r.CreatedAt = t
		records = append(records, r)
	}
	return records, rows.Err()
}

// --- Videos ---

// InsertVideo stores a media item for the category fallback path.
func (s *Store) InsertVideo(v Video) error {
	createdAt := v.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.Exec(`
		INSERT INTO videos (id, title, category, popularity, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		v.ID, v.Title, v.Category, v.Popularity, createdAt.UTC().Format(time.RFC3339),
	)
	return err
}

// VideoIDsByCategory returns video ids in a category ordered by popularity.
// Used when the embedding store has no candidates for semantic ranking.
func (s *Store) VideoIDsByCategory(category string, limit int) ([]string, error) {
	rows, err := s.db.Query(`
		SELECT id FROM videos WHERE category = ?
		ORDER BY popularity DESC, created_at DESC LIMIT ?`, category, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// --- Jobs ---

func (s *Store) EnqueueJob(job Job) error {
	now := time.Now().UTC().Format(time.RFC3339)
	runAfter := now
	if !job.RunAfter.IsZero() {
		runAfter = job.RunAfter.UTC().Format(time.RFC3339)
	}
	maxAttempts := job.MaxAttempts
	if maxAttempts == 0 {
		maxAttempts = 3
	}
	_, err := s.db.Exec(`
		INSERT INTO jobs (id, type, payload_json, status, attempts, max_attempts, run_after, created_at, updated_at)
		VALUES (?, ?, ?, 'pending', 0, ?, ?, ?, ?)`,
		job.ID, job.Type, job.PayloadJSON, maxAttempts, runAfter, now, now,
	)
	return err
}

// ClaimNextJob atomically claims the oldest runnable job of one of the given
// types, marking it running. Returns nil when no job is ready.
func (s *Store) ClaimNextJob(types []string) (*Job, error) {
	if len(types) == 0 {
		return nil, nil
	}

	now := time.Now().UTC().Format(time.RFC3339)
	placeholders := strings.Repeat(",?", len(types)-1)
	query := `SELECT id, type, payload_json, status, attempts, max_attempts, run_after, created_at, updated_at, last_error
		FROM jobs
		WHERE status = 'pending' AND run_after <= ? AND type IN (?` + placeholders + `)
		ORDER BY run_after ASC, created_at ASC
		LIMIT 1`

	args := make([]interface{}, 0, len(types)+1)
	args = append(args, now)
	for _, t := range types {
		args = append(args, t)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning claim transaction: %w", err)
	}

	var j Job
	var runAfter, createdAt, updatedAt string
	var lastError sql.NullString
	err = tx.QueryRow(query, args...).Scan(
		&j.ID, &j.Type, &j.PayloadJSON, &j.Status, &j.Attempts, &j.MaxAttempts,
		&runAfter, &createdAt, &updatedAt, &lastError,
	)
	if err == sql.ErrNoRows {
		tx.Rollback()
		return nil, nil
	}
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("selecting next job: %w", err)
	}

	res, err := tx.Exec(`UPDATE jobs SET status = 'running', updated_at = ? WHERE id = ? AND status = 'pending'`, now, j.ID)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("updating job status: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("checking updated job rows: %w", err)
	}
	if n != 1 {
		tx.Rollback()
		return nil, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing claim: %w", err)
	}

	j.Status = "running"
	j.LastError = lastError.String
	if j.RunAfter, err = time.Parse(time.RFC3339, runAfter); err != nil {
		return nil, fmt.Errorf("parsing run_after for job %s: %w", j.ID, err)
	}
	if j.CreatedAt, err = time.Parse(time.RFC3339, createdAt); err != nil {
		return nil, fmt.Errorf("parsing created_at for job %s: %w", j.ID, err)
	}
	if j.UpdatedAt, err = time.Parse(time.RFC3339, now); err != nil {
		return nil, fmt.Errorf("parsing updated_at for job %s: %w", j.ID, err)
	}
	return &j, nil
}

func (s *Store) CompleteJob(id string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	res, err := s.db.Exec(`UPDATE jobs SET status = 'completed', updated_at = ? WHERE id = ?`, now, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// FailJob records a failure, re-queueing with exponential backoff until the
// attempt budget is exhausted.
func (s *Store) FailJob(id string, errMsg string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning fail transaction: %w", err)
	}
	defer tx.Rollback()

	var attempts, maxAttempts int
	err = tx.QueryRow(`SELECT attempts, max_attempts FROM jobs WHERE id = ?`, id).Scan(&attempts, &maxAttempts)
	if err == sql.ErrNoRows {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	attempts++

	if attempts >= maxAttempts {
		_, err = tx.Exec(`UPDATE jobs SET status = 'failed', attempts = ?, last_error = ?, updated_at = ? WHERE id = ?`,
			attempts, errMsg, now.Format(time.RFC3339), id)
	} else {
		backoff := time.Duration(math.Pow(2, float64(attempts))) * time.Second
		runAfter := now.Add(backoff)
		_, err = tx.Exec(`UPDATE jobs SET status = 'pending', attempts = ?, last_error = ?, run_after = ?, updated_at = ? WHERE id = ?`,
			attempts, errMsg, runAfter.Format(time.RFC3339), now.Format(time.RFC3339), id)
	}

	if err != nil {
		return err
	}

	return tx.Commit()
}
