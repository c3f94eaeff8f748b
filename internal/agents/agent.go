// Package agents implements the review participants and the turn sequencer
// that drives them over a shared transcript.
package agents

import (
	"context"

	"github.com/gosuda/litrev/internal/domain"
	"github.com/gosuda/litrev/internal/llm"
)

// Agent is one LLM-backed participant in a review. Roles differ only in
// their system prompt; there is no deeper hierarchy.
type Agent interface {
	// Role identifies the participant in the wire format and transcript.
	Role() domain.Role

	// Respond produces this role's next message given the running transcript.
	Respond(ctx context.Context, transcript []llm.Message) (string, error)
}

// roleAgent is the single strategy struct behind every LLM-backed role.
type roleAgent struct {
	role   domain.Role
	system string
	model  string
	client llm.Client
}

func (a *roleAgent) Role() domain.Role { return a.role }

func (a *roleAgent) Respond(ctx context.Context, transcript []llm.Message) (string, error) {
	messages := make([]llm.Message, 0, len(transcript)+1)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: a.system})
	messages = append(messages, transcript...)

	return a.client.Complete(ctx, a.model, messages)
}

// NewPlanner creates the agent that decomposes a topic into sub-queries.
func NewPlanner(client llm.Client, model string) Agent {
	return &roleAgent{role: domain.RolePlanner, system: plannerSystemPrompt, model: model, client: client}
}

// NewSummarizer creates the agent that writes (and revises) the review.
func NewSummarizer(client llm.Client, model string) Agent {
	return &roleAgent{role: domain.RoleSummarizer, system: summarizerSystemPrompt, model: model, client: client}
}

// NewCritic creates the agent that scores the draft and may approve it.
func NewCritic(client llm.Client, model, approvalToken string) Agent {
	return &roleAgent{role: domain.RoleCritic, system: criticSystemPrompt(approvalToken), model: model, client: client}
}
