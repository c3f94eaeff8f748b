// Package notify delivers best-effort completion notices for finished
// review sessions to external channels.
package notify

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/litrev/internal/domain"
)

// Sender delivers one notice to an external channel.
type Sender interface {
	Send(ctx context.Context, session *domain.ReviewSession) error
	Platform() string
}

// Notifier fans a terminal-session notice out to every registered
// sender. With none registered it only logs, so the review pipeline
// works without any outbound integration configured.
type Notifier struct {
	senders []Sender
}

// New creates a Notifier over the given senders.
func New(senders ...Sender) *Notifier {
	return &Notifier{senders: senders}
}

// ReviewFinished announces a session that reached a terminal status.
// Delivery is best-effort: failures are logged, never returned, because
// a notification must not affect the session outcome.
func (n *Notifier) ReviewFinished(ctx context.Context, session *domain.ReviewSession) {
	if len(n.senders) == 0 {
		log.Info().
			Stringer("session_id", session.ID).
			Str("status", string(session.Status)).
			Msg("review finished, no notification senders configured")
		return
	}

	for _, sender := range n.senders {
		if err := sender.Send(ctx, session); err != nil {
			log.Warn().
				Err(err).
				Str("platform", sender.Platform()).
				Stringer("session_id", session.ID).
				Msg("completion notice failed")
		}
	}
}

// Summary renders the one-line notice text shared by all senders.
func Summary(session *domain.ReviewSession) string {
	if session.Status == domain.ReviewStatusFailed {
		return fmt.Sprintf("Literature review on %q failed (session %s).", session.Request.Topic, session.ID)
	}

	return fmt.Sprintf(
		"Literature review on %q completed with %d papers (session %s).",
		session.Request.Topic, len(session.Papers), session.ID,
	)
}
