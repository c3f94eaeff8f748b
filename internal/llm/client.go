// Package llm provides the language-model provider contract used by the
// review agents. The engine treats a completion as an opaque function from
// a transcript to text; anything vendor-specific stays behind Client.
package llm

import (
	"context"
	"errors"
)

// ErrCompletionFailed is returned when the provider call fails for any
// reason. The review engine treats all provider failures uniformly.
var ErrCompletionFailed = errors.New("llm: completion failed") //nolint:gochecknoglobals // sentinel error

// Chat roles understood by providers.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of a chat transcript sent to the provider.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Client produces a text completion for a transcript.
type Client interface {
	Complete(ctx context.Context, model string, messages []Message) (string, error)
}
