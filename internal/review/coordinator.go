// Package review drives a session from pending to a terminal status:
// it runs the turn sequence, persists the transcript and extracted
// papers, and fans events out to streaming subscribers.
package review

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/gosuda/litrev/internal/agents"
	"github.com/gosuda/litrev/internal/domain"
	"github.com/gosuda/litrev/internal/papers"
	redisstore "github.com/gosuda/litrev/internal/store/redis"
)

// Event types carried on the per-session stream. Plain transcript
// messages have no type; only terminal events are tagged.
const (
	EventComplete = "complete"
	EventError    = "error"
)

// Event is the wire envelope published for every streamed occurrence.
type Event struct {
	Type      string             `json:"type,omitempty"`
	Source    string             `json:"source,omitempty"`
	Content   string             `json:"content,omitempty"`
	Kind      domain.MessageKind `json:"message_type,omitempty"`
	SessionID uuid.UUID          `json:"session_id"`
	Error     string             `json:"error,omitempty"`
	Timestamp time.Time          `json:"timestamp"`
}

// SessionStore is the session persistence surface the coordinator needs.
type SessionStore interface {
	GetSession(id uuid.UUID) (*domain.ReviewSession, error)
	UpdateStatus(id uuid.UUID, status domain.ReviewStatus)
	AppendMessage(id uuid.UUID, source, content string, kind domain.MessageKind)
	AppendPaper(id uuid.UUID, paper domain.Paper)
}

// Publisher fans event payloads out to streaming subscribers.
type Publisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// CompletionNotifier announces sessions that reached a terminal status.
type CompletionNotifier interface {
	ReviewFinished(ctx context.Context, session *domain.ReviewSession)
}

// Runner is one single-use turn sequence.
type Runner interface {
	Run(ctx context.Context, topic string) (<-chan agents.Turn, error)
}

// RunnerFactory builds a fresh Runner for a request. Sequencers are
// single-use, so every session gets its own.
type RunnerFactory func(req domain.ReviewRequest) Runner

// Coordinator owns the lifecycle of running review sessions.
type Coordinator struct {
	store     SessionStore
	publisher Publisher
	notifier  CompletionNotifier
	newRunner RunnerFactory
}

// New assembles a Coordinator. publisher and notifier may be nil, in
// which case streaming and completion notices are skipped.
func New(store SessionStore, publisher Publisher, notifier CompletionNotifier, newRunner RunnerFactory) *Coordinator {
	return &Coordinator{
		store:     store,
		publisher: publisher,
		notifier:  notifier,
		newRunner: newRunner,
	}
}

// Run drives one session to a terminal status. It blocks until the
// sequence ends; callers start it in a goroutine. Each session is run
// at most once: the sequencer behind the Runner refuses restarts.
func (c *Coordinator) Run(ctx context.Context, sessionID uuid.UUID) {
	c.store.UpdateStatus(sessionID, domain.ReviewStatusInProgress)

	session, err := c.store.GetSession(sessionID)
	if err != nil {
		// Evicted between creation and start. Nothing to update or stream.
		log.Warn().Stringer("session_id", sessionID).Msg("session gone before review started")
		return
	}

	turns, err := c.newRunner(session.Request).Run(ctx, session.Request.Topic)
	if err != nil {
		c.fail(ctx, sessionID, err)
		return
	}

	seenTitles := make(map[string]struct{})

	for turn := range turns {
		if turn.Err != nil {
			c.fail(ctx, sessionID, turn.Err)
			return
		}

		source, content := splitWireMessage(turn.Message)
		kind := classify(source, content)

		c.store.AppendMessage(sessionID, source, content, kind)
		if source == string(domain.RoleSearcher) {
			c.extractPapers(sessionID, content, seenTitles)
		}

		c.publish(ctx, sessionID, Event{
			Source:    source,
			Content:   content,
			Kind:      kind,
			SessionID: sessionID,
			Timestamp: time.Now().UTC(),
		})
	}

	// A run cancelled between turns closes the channel without an error
	// turn; that is not a completed review.
	if err := ctx.Err(); err != nil {
		c.fail(ctx, sessionID, err)
		return
	}

	c.store.UpdateStatus(sessionID, domain.ReviewStatusCompleted)
	c.publish(ctx, sessionID, Event{
		Type:      EventComplete,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
	})
	c.notifyFinished(ctx, sessionID)

	log.Info().Stringer("session_id", sessionID).Msg("review completed")
}

// fail marks the session failed, records the failure in the transcript,
// and streams the terminal error event.
func (c *Coordinator) fail(ctx context.Context, sessionID uuid.UUID, cause error) {
	log.Error().Err(cause).Stringer("session_id", sessionID).Msg("review failed")

	c.store.AppendMessage(sessionID, string(domain.RoleSystem), "Review error: "+cause.Error(), domain.KindError)
	c.store.UpdateStatus(sessionID, domain.ReviewStatusFailed)

	c.publish(ctx, sessionID, Event{
		Type:      EventError,
		SessionID: sessionID,
		Error:     cause.Error(),
		Timestamp: time.Now().UTC(),
	})
	c.notifyFinished(ctx, sessionID)
}

// extractPapers parses the paper payload out of a searcher message and
// appends every valid record whose normalized title has not been stored
// for this session yet.
func (c *Coordinator) extractPapers(sessionID uuid.UUID, content string, seenTitles map[string]struct{}) {
	for _, paper := range papers.ParsePayload(content) {
		if !paper.Valid() {
			continue
		}
		key := papers.NormalizeTitle(paper.Title)
		if _, dup := seenTitles[key]; dup {
			continue
		}
		seenTitles[key] = struct{}{}
		c.store.AppendPaper(sessionID, paper)
	}
}

func (c *Coordinator) publish(ctx context.Context, sessionID uuid.UUID, event Event) {
	if c.publisher == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		log.Warn().Err(err).Stringer("session_id", sessionID).Msg("marshal stream event")
		return
	}

	if err := c.publisher.Publish(ctx, redisstore.ReviewChannel(sessionID), payload); err != nil {
		log.Warn().Err(err).Stringer("session_id", sessionID).Msg("publish stream event")
	}
}

func (c *Coordinator) notifyFinished(ctx context.Context, sessionID uuid.UUID) {
	if c.notifier == nil {
		return
	}

	session, err := c.store.GetSession(sessionID)
	if err != nil {
		return
	}
	c.notifier.ReviewFinished(ctx, session)
}

// splitWireMessage parses the "source: content" wire format. Anything
// without a bare-word source prefix is attributed to the system.
func splitWireMessage(raw string) (source, content string) {
	source, content, found := strings.Cut(raw, ": ")
	if !found || source == "" || strings.ContainsAny(source, " \n") {
		return string(domain.RoleSystem), raw
	}
	return source, content
}

// classify derives the message kind from its source. Content mentioning
// an error anywhere is classified as an error regardless of source.
func classify(source, content string) domain.MessageKind {
	if strings.Contains(strings.ToLower(content), "error") {
		return domain.KindError
	}

	switch domain.Role(source) {
	case domain.RolePlanner:
		return domain.KindPlanning
	case domain.RoleSearcher:
		return domain.KindSearch
	case domain.RoleSummarizer:
		return domain.KindSummary
	case domain.RoleCritic:
		return domain.KindCritique
	default:
		return domain.KindSystem
	}
}
