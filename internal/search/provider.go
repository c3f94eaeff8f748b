// Package search provides paper search providers and their fan-in.
package search

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/gosuda/litrev/internal/domain"
	"github.com/gosuda/litrev/internal/papers"
)

// ErrProviderFailed is returned when a provider request fails. The review
// engine treats all provider failures uniformly as "step failed".
var ErrProviderFailed = errors.New("search: provider request failed") //nolint:gochecknoglobals // sentinel error

// Provider is an external paper-search API. Implementations may return
// fewer results than requested.
type Provider interface {
	// Name identifies the provider in logs.
	Name() string

	// Search returns papers matching the query, at most maxResults.
	Search(ctx context.Context, query string, maxResults int) ([]domain.Paper, error)
}

// Combined fans a set of queries out to every provider, merges the results,
// and deduplicates by normalized title.
type Combined struct {
	providers []Provider
}

// NewCombined creates a Combined searcher over the given providers.
func NewCombined(providers ...Provider) *Combined {
	return &Combined{providers: providers}
}

// Search runs every query against every provider in order, combining and
// deduplicating results, truncated to maxResults. A single provider failure
// does not fail the whole search as long as another provider succeeds;
// only when every provider call fails is an error returned.
func (c *Combined) Search(ctx context.Context, queries []string, maxResults int) ([]domain.Paper, error) {
	var (
		merged   []domain.Paper
		lastErr  error
		anyOK    bool
		attempts int
	)

	for _, query := range queries {
		for _, provider := range c.providers {
			attempts++

			results, err := provider.Search(ctx, query, maxResults)
			if err != nil {
				log.Warn().Err(err).Str("provider", provider.Name()).Str("query", query).Msg("search provider failed")
				lastErr = err
				continue
			}

			anyOK = true
			merged = append(merged, results...)
		}
	}

	if attempts > 0 && !anyOK {
		return nil, lastErr
	}

	deduped := papers.Deduplicate(merged)
	if len(deduped) > maxResults {
		deduped = deduped[:maxResults]
	}

	return deduped, nil
}
