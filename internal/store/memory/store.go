// Package memory provides the in-memory review session registry.
// It is the single source of truth for session state; callers only ever
// receive copies, and all mutation goes through the store's methods.
package memory

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/litrev/internal/domain"
)

// Store is a bounded, concurrency-safe registry of review sessions.
type Store struct {
	mu          sync.RWMutex
	sessions    map[uuid.UUID]*domain.ReviewSession
	maxSessions int
}

// New creates a Store that holds at most maxSessions sessions before
// evicting the oldest ones.
func New(maxSessions int) *Store {
	return &Store{
		sessions:    make(map[uuid.UUID]*domain.ReviewSession),
		maxSessions: maxSessions,
	}
}

// CreateSession allocates a new pending session for the given request and
// returns a snapshot of it. Inserting beyond capacity triggers eviction of
// the oldest 10% of sessions (at least one), in-progress ones included.
func (s *Store) CreateSession(req domain.ReviewRequest) *domain.ReviewSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := &domain.ReviewSession{
		ID:        uuid.New(),
		Status:    domain.ReviewStatusPending,
		Request:   req,
		Messages:  []domain.Message{},
		Papers:    []domain.Paper{},
		CreatedAt: time.Now().UTC(),
	}
	s.sessions[session.ID] = session

	if len(s.sessions) > s.maxSessions {
		s.evictOldestLocked()
	}

	log.Info().Str("session_id", session.ID.String()).Str("topic", req.Topic).Msg("created review session")

	return snapshot(session)
}

// GetSession returns a snapshot of the session, or domain.ErrNotFound.
func (s *Store) GetSession(id uuid.UUID) (*domain.ReviewSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	session, ok := s.sessions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return snapshot(session), nil
}

// UpdateStatus sets the session status. CompletedAt is set exactly once,
// when the session first reaches a terminal status. No-op if id is absent;
// callers are trusted to supply forward-moving statuses (last write wins).
func (s *Store) UpdateStatus(id uuid.UUID, status domain.ReviewStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return
	}

	session.Status = status
	if status.IsTerminal() && session.CompletedAt == nil {
		now := time.Now().UTC()
		session.CompletedAt = &now
	}
}

// AppendMessage appends a transcript message with the current timestamp.
// No-op if id is absent (the session may have been evicted mid-review).
func (s *Store) AppendMessage(id uuid.UUID, source, content string, kind domain.MessageKind) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return
	}

	session.Messages = append(session.Messages, domain.Message{
		Source:    source,
		Content:   content,
		Timestamp: time.Now().UTC(),
		Kind:      kind,
	})
}

// AppendPaper appends a paper as-is. Deduplication is the caller's
// responsibility. No-op if id is absent.
func (s *Store) AppendPaper(id uuid.UUID, paper domain.Paper) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, ok := s.sessions[id]
	if !ok {
		return
	}

	session.Papers = append(session.Papers, paper)
}

// DeleteSession removes the session if present and reports whether it did.
func (s *Store) DeleteSession(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

// ListSessions returns a snapshot of sessions sorted by CreatedAt descending,
// sliced by offset and limit.
func (s *Store) ListSessions(limit, offset int) []*domain.ReviewSession {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]*domain.ReviewSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		all = append(all, session)
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return []*domain.ReviewSession{}
	}
	end := offset + limit
	if limit <= 0 || end > len(all) {
		end = len(all)
	}

	out := make([]*domain.ReviewSession, 0, end-offset)
	for _, session := range all[offset:end] {
		out = append(out, snapshot(session))
	}
	return out
}

// Len returns the number of stored sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// evictOldestLocked removes the oldest 10% of sessions by CreatedAt, at
// least one. This is a crude unbounded-memory safeguard, not an LRU cache:
// evicted sessions are gone for good, mid-review or not.
func (s *Store) evictOldestLocked() {
	byAge := make([]*domain.ReviewSession, 0, len(s.sessions))
	for _, session := range s.sessions {
		byAge = append(byAge, session)
	}
	sort.Slice(byAge, func(i, j int) bool {
		return byAge[i].CreatedAt.Before(byAge[j].CreatedAt)
	})

	toRemove := len(byAge) / 10
	if toRemove < 1 {
		toRemove = 1
	}
	for _, session := range byAge[:toRemove] {
		delete(s.sessions, session.ID)
	}

	log.Info().Int("evicted", toRemove).Int("remaining", len(s.sessions)).Msg("evicted oldest review sessions")
}

// snapshot deep-copies a session so readers never observe in-place appends.
func snapshot(session *domain.ReviewSession) *domain.ReviewSession {
	out := *session
	out.Messages = make([]domain.Message, len(session.Messages))
	copy(out.Messages, session.Messages)
	out.Papers = make([]domain.Paper, len(session.Papers))
	for i, p := range session.Papers {
		cp := p
		cp.Authors = append([]string(nil), p.Authors...)
		out.Papers[i] = cp
	}
	if session.CompletedAt != nil {
		t := *session.CompletedAt
		out.CompletedAt = &t
	}
	return &out
}
