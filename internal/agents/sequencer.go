package agents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/litrev/internal/domain"
	"github.com/gosuda/litrev/internal/llm"
)

// ErrAlreadyStarted is returned when Run is called on a sequencer that
// has already run. Sequencers are single-use.
var ErrAlreadyStarted = errors.New("agents: sequencer already started") //nolint:gochecknoglobals // sentinel error

// State is the lifecycle of one sequencer run.
type State string

const (
	StateNotStarted            State = "not_started"
	StateRunning               State = "running"
	StateTerminatedByCondition State = "terminated_by_condition"
	StateTerminatedByMaxTurns  State = "terminated_by_max_turns"
	StateFailed                State = "failed"
)

// Turn is one emitted sequencer output in "source: content" wire format.
// Err is set instead of Message on the final turn when a main-phase
// provider call fails or the run is cancelled; the channel closes right
// after.
type Turn struct {
	Message string
	Err     error
}

// Config bounds one sequencer run.
type Config struct {
	// MaxTurns caps the main phase. The run ends successfully when the
	// budget is spent even without critic approval.
	MaxTurns int

	// PlannerMaxTurns caps planning attempts before falling back to the
	// raw topic as the only query.
	PlannerMaxTurns int

	// ApprovalToken ends the run when the critic emits it on a line of
	// its own.
	ApprovalToken string

	// PapersPerReview is passed through to the searcher turn.
	PapersPerReview int
}

// Sequencer drives the fixed turn order over a shared transcript:
// an optional planning phase, one search turn, then summarizer and
// critic alternating until approval or budget exhaustion.
type Sequencer struct {
	planner    Agent
	searcher   PaperSearcher
	summarizer Agent
	critic     Agent
	cfg        Config

	mu    sync.Mutex
	state State
}

// NewSequencer assembles a single-use sequencer. planner may be nil, in
// which case the raw topic is the only search query.
func NewSequencer(planner Agent, searcher PaperSearcher, summarizer, critic Agent, cfg Config) *Sequencer {
	return &Sequencer{
		planner:    planner,
		searcher:   searcher,
		summarizer: summarizer,
		critic:     critic,
		cfg:        cfg,
		state:      StateNotStarted,
	}
}

// State returns the current lifecycle state.
func (s *Sequencer) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Sequencer) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Run starts the turn sequence and returns the channel turns are
// streamed on. The channel is closed when the run terminates; consumers
// may process a turn while the next one is being produced. Run returns
// ErrAlreadyStarted on any call after the first.
func (s *Sequencer) Run(ctx context.Context, topic string) (<-chan Turn, error) {
	s.mu.Lock()
	if s.state != StateNotStarted {
		s.mu.Unlock()
		return nil, fmt.Errorf("agents.Sequencer.Run: %w", ErrAlreadyStarted)
	}
	s.state = StateRunning
	s.mu.Unlock()

	out := make(chan Turn, 1)
	go s.run(ctx, topic, out)

	return out, nil
}

func (s *Sequencer) run(ctx context.Context, topic string, out chan<- Turn) {
	defer close(out)

	emit := func(role domain.Role, content string) bool {
		select {
		case out <- Turn{Message: string(role) + ": " + content}:
			return true
		case <-ctx.Done():
			// A cancelled run must surface as an error turn, never as a
			// silently closed channel the consumer would read as success.
			s.setState(StateFailed)
			out <- Turn{Err: fmt.Errorf("agents.Sequencer.run: %w", ctx.Err())}
			return false
		}
	}

	queries, ok := s.plan(ctx, topic, emit)
	if !ok {
		return
	}

	task := fmt.Sprintf(
		"Conduct a literature review on '%s', covering up to %d papers.",
		topic, s.cfg.PapersPerReview,
	)
	transcript := []llm.Message{{Role: llm.RoleUser, Content: task}}

	for turn := 0; turn < s.cfg.MaxTurns; turn++ {
		var (
			role    domain.Role
			content string
			err     error
		)

		switch {
		case turn == 0:
			role = s.searcher.Role()
			content, err = s.searcher.SearchPapers(ctx, queries, s.cfg.PapersPerReview)
		case turn%2 == 1:
			role = s.summarizer.Role()
			content, err = s.summarizer.Respond(ctx, transcript)
		default:
			role = s.critic.Role()
			content, err = s.critic.Respond(ctx, transcript)
		}

		if err != nil {
			// Unconditional send: the channel is buffered and the consumer
			// drains until close, so this cannot block forever, and racing
			// it against ctx.Done could drop the error turn.
			s.setState(StateFailed)
			out <- Turn{Err: fmt.Errorf("agents.Sequencer.run: %s turn: %w", role, err)}
			return
		}

		transcript = append(transcript, llm.Message{
			Role:    llm.RoleUser,
			Content: string(role) + ": " + content,
		})

		if !emit(role, content) {
			return
		}

		if role == domain.RoleCritic && hasApprovalLine(content, s.cfg.ApprovalToken) {
			s.setState(StateTerminatedByCondition)
			return
		}
	}

	// Spending the whole budget is a normal ending, not a failure.
	s.setState(StateTerminatedByMaxTurns)
}

// plan runs the planning phase and returns the search queries. Planner
// failures never abort the run: after PlannerMaxTurns unusable attempts
// the raw topic becomes the only query. The returned bool is false only
// when the run was cancelled mid-emit.
func (s *Sequencer) plan(ctx context.Context, topic string, emit func(domain.Role, string) bool) ([]string, bool) {
	if s.planner == nil {
		return []string{topic}, true
	}

	for attempt := 0; attempt < s.cfg.PlannerMaxTurns; attempt++ {
		content, err := s.planner.Respond(ctx, []llm.Message{{Role: llm.RoleUser, Content: topic}})
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt+1).Msg("planner turn failed")
			continue
		}

		if !emit(s.planner.Role(), content) {
			return nil, false
		}

		if queries := parseSubQueries(content); len(queries) > 0 {
			return queries, true
		}

		log.Warn().Int("attempt", attempt+1).Msg("planner output was not a query list")
	}

	log.Info().Str("topic", topic).Msg("planning exhausted, falling back to raw topic")

	return []string{topic}, true
}

// fencedBlockPattern matches a ```json fenced block; planners sometimes
// wrap the array despite being told not to.
var fencedBlockPattern = regexp.MustCompile("(?i)```json\\s*([\\s\\S]*?)\\s*```") //nolint:gochecknoglobals // compiled once

// parseSubQueries extracts the planner's JSON array of query strings.
// Returns nil when the content holds no usable array.
func parseSubQueries(content string) []string {
	candidate := strings.TrimSpace(content)
	if m := fencedBlockPattern.FindStringSubmatch(content); m != nil {
		candidate = m[1]
	}

	var queries []string
	if err := json.Unmarshal([]byte(candidate), &queries); err != nil {
		return nil
	}

	kept := queries[:0]
	for _, q := range queries {
		if strings.TrimSpace(q) != "" {
			kept = append(kept, q)
		}
	}
	if len(kept) == 0 {
		return nil
	}

	return kept
}

// hasApprovalLine reports whether token appears as a complete line of
// content. A substring inside a longer line does not count.
func hasApprovalLine(content, token string) bool {
	for _, line := range strings.Split(content, "\n") {
		if strings.TrimSpace(line) == token {
			return true
		}
	}
	return false
}
