package review_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/litrev/internal/agents"
	"github.com/gosuda/litrev/internal/domain"
	"github.com/gosuda/litrev/internal/llm"
	"github.com/gosuda/litrev/internal/review"
	"github.com/gosuda/litrev/internal/store/memory"
)

type stubRunner struct {
	turns []agents.Turn
	err   error
}

func (r *stubRunner) Run(_ context.Context, _ string) (<-chan agents.Turn, error) {
	if r.err != nil {
		return nil, r.err
	}
	ch := make(chan agents.Turn, len(r.turns))
	for _, turn := range r.turns {
		ch <- turn
	}
	close(ch)
	return ch, nil
}

func factory(r review.Runner) review.RunnerFactory {
	return func(domain.ReviewRequest) review.Runner { return r }
}

type capturingPublisher struct {
	channels []string
	events   []review.Event
}

func (p *capturingPublisher) Publish(_ context.Context, channel string, payload []byte) error {
	var event review.Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return err
	}
	p.channels = append(p.channels, channel)
	p.events = append(p.events, event)
	return nil
}

type capturingNotifier struct {
	finished []*domain.ReviewSession
}

func (n *capturingNotifier) ReviewFinished(_ context.Context, session *domain.ReviewSession) {
	n.finished = append(n.finished, session)
}

// haltingSearcher blocks until the run is cancelled, like a provider
// call in flight when the process shuts down.
type haltingSearcher struct{}

func (haltingSearcher) Role() domain.Role { return domain.RoleSearcher }

func (haltingSearcher) SearchPapers(ctx context.Context, _ []string, _ int) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

type cannedAgent struct {
	role domain.Role
	text string
}

func (a cannedAgent) Role() domain.Role { return a.role }

func (a cannedAgent) Respond(context.Context, []llm.Message) (string, error) {
	return a.text, nil
}

const searcherPayload = "searcher: Retrieved 2 papers:\n```json\n" +
	`[
	  {"title": "GNN Survey", "authors": ["A"], "published": "2024-01-01", "summary": "s", "pdf_url": "u1"},
	  {"title": "gnn  survey", "authors": ["B"], "published": "2024-02-01", "summary": "s", "pdf_url": "u2"},
	  {"title": "Missing Fields"}
	]` + "\n```"

func TestCoordinator_Run(t *testing.T) {
	t.Parallel()

	t.Run("successful run persists transcript, papers and terminal state", func(t *testing.T) {
		t.Parallel()

		store := memory.New(10)
		session := store.CreateSession(domain.ReviewRequest{Topic: "gnn", NumPapers: 5})

		runner := &stubRunner{turns: []agents.Turn{
			{Message: `planner: ["q1", "q2"]`},
			{Message: searcherPayload},
			{Message: "summarizer: Draft review."},
			{Message: "critic: Coverage: 5.\nAPPROVED"},
		}}
		publisher := &capturingPublisher{}
		notifier := &capturingNotifier{}

		review.New(store, publisher, notifier, factory(runner)).Run(context.Background(), session.ID)

		got, err := store.GetSession(session.ID)
		require.NoError(t, err)

		assert.Equal(t, domain.ReviewStatusCompleted, got.Status)
		require.NotNil(t, got.CompletedAt)

		require.Len(t, got.Messages, 4)
		assert.Equal(t, "planner", got.Messages[0].Source)
		assert.Equal(t, domain.KindPlanning, got.Messages[0].Kind)
		assert.Equal(t, domain.KindSearch, got.Messages[1].Kind)
		assert.Equal(t, domain.KindSummary, got.Messages[2].Kind)
		assert.Equal(t, domain.KindCritique, got.Messages[3].Kind)

		// Duplicate-by-normalized-title and invalid records are dropped.
		require.Len(t, got.Papers, 1)
		assert.Equal(t, "GNN Survey", got.Papers[0].Title)

		// One event per message plus the terminal complete event.
		require.Len(t, publisher.events, 5)
		assert.Equal(t, "review:"+session.ID.String(), publisher.channels[0])
		assert.Empty(t, publisher.events[0].Type)
		assert.Equal(t, review.EventComplete, publisher.events[4].Type)
		assert.Equal(t, session.ID, publisher.events[4].SessionID)

		require.Len(t, notifier.finished, 1)
		assert.Equal(t, domain.ReviewStatusCompleted, notifier.finished[0].Status)
	})

	t.Run("papers already stored are not appended again", func(t *testing.T) {
		t.Parallel()

		store := memory.New(10)
		session := store.CreateSession(domain.ReviewRequest{Topic: "gnn"})

		runner := &stubRunner{turns: []agents.Turn{
			{Message: searcherPayload},
			{Message: searcherPayload},
		}}

		review.New(store, nil, nil, factory(runner)).Run(context.Background(), session.ID)

		got, err := store.GetSession(session.ID)
		require.NoError(t, err)
		assert.Len(t, got.Papers, 1)
	})

	t.Run("turn failure marks the session failed", func(t *testing.T) {
		t.Parallel()

		store := memory.New(10)
		session := store.CreateSession(domain.ReviewRequest{Topic: "gnn"})

		runner := &stubRunner{turns: []agents.Turn{
			{Message: "searcher: partial"},
			{Err: errors.New("model overloaded")},
		}}
		publisher := &capturingPublisher{}
		notifier := &capturingNotifier{}

		review.New(store, publisher, notifier, factory(runner)).Run(context.Background(), session.ID)

		got, err := store.GetSession(session.ID)
		require.NoError(t, err)

		assert.Equal(t, domain.ReviewStatusFailed, got.Status)
		require.NotNil(t, got.CompletedAt)

		last := got.Messages[len(got.Messages)-1]
		assert.Equal(t, "system", last.Source)
		assert.Equal(t, domain.KindError, last.Kind)
		assert.Contains(t, last.Content, "model overloaded")

		terminal := publisher.events[len(publisher.events)-1]
		assert.Equal(t, review.EventError, terminal.Type)
		assert.Contains(t, terminal.Error, "model overloaded")

		require.Len(t, notifier.finished, 1)
		assert.Equal(t, domain.ReviewStatusFailed, notifier.finished[0].Status)
	})

	t.Run("cancelled run is never recorded as completed", func(t *testing.T) {
		t.Parallel()

		// Repeated to shake out any timing window between the cancellation
		// and the sequencer's channel close.
		for range 30 {
			store := memory.New(10)
			session := store.CreateSession(domain.ReviewRequest{Topic: "gnn", NumPapers: 5})

			newRunner := func(domain.ReviewRequest) review.Runner {
				return agents.NewSequencer(nil, haltingSearcher{},
					cannedAgent{role: domain.RoleSummarizer, text: "Draft."},
					cannedAgent{role: domain.RoleCritic, text: "ok\nAPPROVED"},
					agents.Config{MaxTurns: 6, PlannerMaxTurns: 2, ApprovalToken: "APPROVED", PapersPerReview: 5})
			}
			coordinator := review.New(store, nil, nil, newRunner)

			ctx, cancel := context.WithCancel(context.Background())
			done := make(chan struct{})
			go func() {
				coordinator.Run(ctx, session.ID)
				close(done)
			}()
			cancel()
			<-done

			got, err := store.GetSession(session.ID)
			require.NoError(t, err)
			assert.Equal(t, domain.ReviewStatusFailed, got.Status)
		}
	})

	t.Run("channel closed under a cancelled context takes the failure path", func(t *testing.T) {
		t.Parallel()

		store := memory.New(10)
		session := store.CreateSession(domain.ReviewRequest{Topic: "gnn"})
		publisher := &capturingPublisher{}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		review.New(store, publisher, nil, factory(&stubRunner{})).Run(ctx, session.ID)

		got, err := store.GetSession(session.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ReviewStatusFailed, got.Status)

		terminal := publisher.events[len(publisher.events)-1]
		assert.Equal(t, review.EventError, terminal.Type)
	})

	t.Run("runner start failure marks the session failed", func(t *testing.T) {
		t.Parallel()

		store := memory.New(10)
		session := store.CreateSession(domain.ReviewRequest{Topic: "gnn"})

		review.New(store, nil, nil, factory(&stubRunner{err: errors.New("already started")})).
			Run(context.Background(), session.ID)

		got, err := store.GetSession(session.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ReviewStatusFailed, got.Status)
	})

	t.Run("session evicted before start is a no-op", func(t *testing.T) {
		t.Parallel()

		store := memory.New(10)
		publisher := &capturingPublisher{}

		review.New(store, publisher, nil, factory(&stubRunner{})).
			Run(context.Background(), uuid.New())

		assert.Empty(t, publisher.events)
	})

	t.Run("message without source prefix is attributed to system", func(t *testing.T) {
		t.Parallel()

		store := memory.New(10)
		session := store.CreateSession(domain.ReviewRequest{Topic: "gnn"})

		runner := &stubRunner{turns: []agents.Turn{
			{Message: "free-form text with no prefix"},
		}}

		review.New(store, nil, nil, factory(runner)).Run(context.Background(), session.ID)

		got, err := store.GetSession(session.ID)
		require.NoError(t, err)
		require.Len(t, got.Messages, 1)
		assert.Equal(t, "system", got.Messages[0].Source)
		assert.Equal(t, domain.KindSystem, got.Messages[0].Kind)
	})

	t.Run("content mentioning an error overrides source classification", func(t *testing.T) {
		t.Parallel()

		store := memory.New(10)
		session := store.CreateSession(domain.ReviewRequest{Topic: "gnn"})

		runner := &stubRunner{turns: []agents.Turn{
			{Message: "summarizer: An Error occurred while drafting."},
		}}

		review.New(store, nil, nil, factory(runner)).Run(context.Background(), session.ID)

		got, err := store.GetSession(session.ID)
		require.NoError(t, err)
		require.Len(t, got.Messages, 1)
		assert.Equal(t, "summarizer", got.Messages[0].Source)
		assert.Equal(t, domain.KindError, got.Messages[0].Kind)
	})
}
