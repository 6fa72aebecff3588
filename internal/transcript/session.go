package transcript

import "sync"

// Session holds the in-memory transcript cache for one user. It is passed by
// reference into pipeline calls and owned by the request handler; there is no
// process-wide cache. The cache only grows within a session (Empty →
// Populated, re-entrant) and returns to empty solely through an explicit
// new-session start.
type Session struct {
	mu       sync.Mutex
	messages []Message
}

// NewSession creates an empty session.
func NewSession() *Session {
	return &Session{}
}

// Append records new transcript chunks. The cached slice is replaced
// atomically; callers never observe a partially updated transcript.
func (s *Session) Append(msgs []Message) {
	if len(msgs) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := make([]Message, 0, len(s.messages)+len(msgs))
	updated = append(updated, s.messages...)
	updated = append(updated, msgs...)
	s.messages = updated
}

// Messages returns a copy of the cached transcript in conversation order.
func (s *Session) Messages() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Message, len(s.messages))
	copy(out, s.messages)
	return out
}

// Empty reports whether the session has recorded any content.
func (s *Session) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.messages) == 0
}

// Sessions is a per-user registry of transcript sessions.
type Sessions struct {
	mu     sync.Mutex
	byUser map[string]*Session
}

// NewSessions creates an empty registry.
func NewSessions() *Sessions {
	return &Sessions{byUser: make(map[string]*Session)}
}

// Get returns the session for a user, creating one if needed.
func (r *Sessions) Get(userID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byUser[userID]
	if !ok {
		s = NewSession()
		r.byUser[userID] = s
	}
	return s
}

// Start discards any existing session for the user and returns a fresh one.
func (r *Sessions) Start(userID string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	s := NewSession()
	r.byUser[userID] = s
	return s
}
