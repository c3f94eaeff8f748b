package agents

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/gosuda/litrev/internal/domain"
	"github.com/gosuda/litrev/internal/search"
)

// PaperSearcher is the one participant that talks to search providers
// instead of a language model. Its output is the JSON paper payload the
// rest of the pipeline parses papers out of.
type PaperSearcher interface {
	Role() domain.Role
	SearchPapers(ctx context.Context, queries []string, maxResults int) (string, error)
}

// Searcher retrieves papers for the planner's sub-queries and renders
// them as a fenced JSON block so downstream turns (and the transcript
// consumer) see a single well-known payload shape.
type Searcher struct {
	combined *search.Combined
}

// NewSearcher creates the search participant backed by the given
// provider aggregate.
func NewSearcher(combined *search.Combined) *Searcher {
	return &Searcher{combined: combined}
}

func (s *Searcher) Role() domain.Role { return domain.RoleSearcher }

// SearchPapers runs every query against every provider and returns the
// merged, deduplicated results as a fenced JSON array.
func (s *Searcher) SearchPapers(ctx context.Context, queries []string, maxResults int) (string, error) {
	found, err := s.combined.Search(ctx, queries, maxResults)
	if err != nil {
		return "", fmt.Errorf("agents.Searcher.SearchPapers: %w", err)
	}

	payload, err := json.MarshalIndent(found, "", "  ")
	if err != nil {
		return "", fmt.Errorf("agents.Searcher.SearchPapers: marshal results: %w", err)
	}

	return "Retrieved " + fmt.Sprint(len(found)) + " papers:\n```json\n" + string(payload) + "\n```", nil
}
