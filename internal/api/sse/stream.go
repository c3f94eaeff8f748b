// Package sse exposes the per-session review event stream as
// Server-Sent Events for clients that cannot hold a WebSocket.
package sse

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/litrev/internal/domain"
	"github.com/gosuda/litrev/internal/review"
)

// Subscriber is the pub/sub surface the stream needs. *redis.PubSub
// satisfies this interface.
type Subscriber interface {
	Subscribe(ctx context.Context, channel string) (<-chan []byte, func(), error)
}

// SessionGetter resolves sessions so unknown IDs 404 before upgrading.
// *memory.Store satisfies this interface.
type SessionGetter interface {
	GetSession(id uuid.UUID) (*domain.ReviewSession, error)
}

// Handler streams review events over SSE.
type Handler struct {
	pubsub  Subscriber
	store   SessionGetter
	channel func(uuid.UUID) string
}

// NewHandler creates an SSE handler. channel maps a session ID to its
// pub/sub channel name.
func NewHandler(pubsub Subscriber, store SessionGetter, channel func(uuid.UUID) string) *Handler {
	return &Handler{pubsub: pubsub, store: store, channel: channel}
}

// ServeHTTP forwards every published event for the session as one SSE
// data frame and ends the response after a terminal event. Sessions
// already in a terminal state get the terminal event immediately.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sessionID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, "invalid session id", http.StatusBadRequest)
		return
	}

	session, err := h.store.GetSession(sessionID)
	if err != nil {
		http.Error(w, "review session not found", http.StatusNotFound)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	// The stream outlives the server's write timeout; clear the deadline
	// for this connection only.
	_ = http.NewResponseController(w).SetWriteDeadline(time.Time{})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	if session.Status.IsTerminal() {
		writeFrame(w, flusher, terminalPayload(session))
		return
	}

	ctx := r.Context()
	messages, cleanup, err := h.pubsub.Subscribe(ctx, h.channel(sessionID))
	if err != nil {
		log.Error().Err(err).Stringer("session_id", sessionID).Msg("sse subscribe")
		http.Error(w, "stream unavailable", http.StatusInternalServerError)
		return
	}
	defer cleanup()

	// The terminal event may have been published between the session
	// lookup and the subscription; re-check so the client is not left
	// waiting on a channel that will never produce.
	if current, getErr := h.store.GetSession(sessionID); getErr == nil && current.Status.IsTerminal() {
		writeFrame(w, flusher, terminalPayload(current))
		return
	}

	flusher.Flush()

	for {
		select {
		case <-ctx.Done():
			return
		case payload, msgOK := <-messages:
			if !msgOK {
				return
			}
			writeFrame(w, flusher, payload)
			if isTerminal(payload) {
				return
			}
		}
	}
}

func writeFrame(w http.ResponseWriter, flusher http.Flusher, payload []byte) {
	if _, err := w.Write([]byte("data: " + string(payload) + "\n\n")); err != nil {
		return
	}
	flusher.Flush()
}

// terminalPayload synthesizes the terminal event for a session that
// finished before the client connected.
func terminalPayload(session *domain.ReviewSession) []byte {
	event := review.Event{
		Type:      review.EventComplete,
		SessionID: session.ID,
	}
	if session.Status == domain.ReviewStatusFailed {
		event.Type = review.EventError
		event.Error = failureText(session)
	}
	if session.CompletedAt != nil {
		event.Timestamp = *session.CompletedAt
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return []byte(`{"type":"error"}`)
	}
	return payload
}

// failureText recovers the recorded failure from the transcript; the
// coordinator appends the cause as the last error-kind message.
func failureText(session *domain.ReviewSession) string {
	for i := len(session.Messages) - 1; i >= 0; i-- {
		if session.Messages[i].Kind == domain.KindError {
			return session.Messages[i].Content
		}
	}
	return "review failed"
}

func isTerminal(payload []byte) bool {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return false
	}
	return probe.Type == review.EventComplete || probe.Type == review.EventError
}
