package profile

import (
	"errors"
	"fmt"
	"time"

	"github.com/careerscope/careerscope/internal/storage"
)

// Store defines the persistence operations the Manager needs.
// Implemented by storage.Store.
type Store interface {
	UpsertProfile(p storage.ProfileRecord) error
	GetProfile(userID string) (storage.ProfileRecord, error)
}

// Manager loads and upserts per-user profiles. All writes go through Merge,
// so persisted profiles keep their set semantics; nothing ever deletes one.
type Manager struct {
	store Store
}

// NewManager creates a Manager backed by the given store.
func NewManager(store Store) *Manager {
	return &Manager{store: store}
}

// Get returns the stored profile for a user, or nil when none exists yet.
func (m *Manager) Get(userID string) (*PersonProfile, error) {
	rec, err := m.store.GetProfile(userID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading profile for %s: %w", userID, err)
	}
	p := fromRecord(rec)
	return &p, nil
}

// Upsert merges the incoming profile into whatever is stored for the user
// and persists the result. Returns the merged profile.
func (m *Manager) Upsert(userID string, incoming PersonProfile) (PersonProfile, error) {
	previous, err := m.Get(userID)
	if err != nil {
		return PersonProfile{}, err
	}

	if incoming.LastUpdated.IsZero() {
		incoming.LastUpdated = time.Now().UTC()
	}
	merged := Merge(previous, incoming)

	if err := m.store.UpsertProfile(toRecord(userID, merged)); err != nil {
		return PersonProfile{}, fmt.Errorf("saving profile for %s: %w", userID, err)
	}
	return merged, nil
}

func fromRecord(rec storage.ProfileRecord) PersonProfile {
	return Normalize(PersonProfile{
		Interests:   rec.Interests,
		Skills:      rec.Skills,
		Goals:       rec.Goals,
		Values:      rec.Values,
		WorkStyle:   rec.WorkStyle,
		CareerStage: rec.CareerStage,
		LastUpdated: rec.LastUpdated,
	})
}

func toRecord(userID string, p PersonProfile) storage.ProfileRecord {
	return storage.ProfileRecord{
		UserID:      userID,
		Interests:   p.Interests,
		Skills:      p.Skills,
		Goals:       p.Goals,
		Values:      p.Values,
		WorkStyle:   p.WorkStyle,
		CareerStage: p.CareerStage,
		LastUpdated: p.LastUpdated,
	}
}
