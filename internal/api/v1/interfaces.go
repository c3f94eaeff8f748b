package v1

import (
	"github.com/google/uuid"

	"github.com/gosuda/litrev/internal/domain"
)

// SessionStore abstracts the session registry for handler testing.
// *memory.Store satisfies this interface.
type SessionStore interface {
	CreateSession(req domain.ReviewRequest) *domain.ReviewSession
	GetSession(id uuid.UUID) (*domain.ReviewSession, error)
	ListSessions(limit, offset int) []*domain.ReviewSession
	DeleteSession(id uuid.UUID) bool
}

// ReviewLauncher starts the background run for a freshly created
// session. The server wires this to the review coordinator; handlers
// never block on a running review.
type ReviewLauncher interface {
	Launch(sessionID uuid.UUID)
}
