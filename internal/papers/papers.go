// Package papers normalizes heterogeneous search results into one shape,
// removes duplicates, and extracts structured paper lists from agent output.
package papers

import (
	"encoding/json"
	"regexp"
	"strings"

	"github.com/gosuda/litrev/internal/domain"
)

// fencedJSONPattern captures the body of a ```json fenced code block.
// Agents are told to emit raw JSON but often wrap it in markdown anyway.
var fencedJSONPattern = regexp.MustCompile("(?i)```json\\s*([\\s\\S]*?)\\s*```") //nolint:gochecknoglobals // compiled regexp

// NormalizeTitle lowercases, trims, and collapses internal whitespace so
// that trivially reformatted titles compare equal.
func NormalizeTitle(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// Deduplicate keeps the first valid occurrence per normalized title,
// preserving input order among kept records. Records failing the validity
// rule are discarded. Pure function: the input slice is not modified.
func Deduplicate(in []domain.Paper) []domain.Paper {
	seen := make(map[string]struct{}, len(in))
	out := make([]domain.Paper, 0, len(in))

	for _, p := range in {
		if !p.Valid() {
			continue
		}
		key := NormalizeTitle(p.Title)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, p)
	}

	return out
}

// ParsePayload extracts a paper list from agent message content. A fenced
// ```json block is tried first, then the raw content. Accepts either a
// direct JSON array or an object with a "papers" array field. Returns nil
// when no parseable payload is found; malformed list elements are skipped
// rather than failing the whole payload.
func ParsePayload(content string) []domain.Paper {
	candidates := make([]string, 0, 2)
	if m := fencedJSONPattern.FindStringSubmatch(content); m != nil {
		candidates = append(candidates, m[1])
	}
	candidates = append(candidates, content)

	for _, candidate := range candidates {
		if items := decodeItems(candidate); items != nil {
			return decodePapers(items)
		}
	}

	return nil
}

// decodeItems parses a candidate string into raw list elements, accepting
// a bare array or a {"papers": [...]} wrapper.
func decodeItems(candidate string) []json.RawMessage {
	trimmed := strings.TrimSpace(candidate)
	if trimmed == "" {
		return nil
	}

	var list []json.RawMessage
	if err := json.Unmarshal([]byte(trimmed), &list); err == nil {
		return list
	}

	var wrapper struct {
		Papers []json.RawMessage `json:"papers"`
	}
	if err := json.Unmarshal([]byte(trimmed), &wrapper); err == nil && wrapper.Papers != nil {
		return wrapper.Papers
	}

	return nil
}

func decodePapers(items []json.RawMessage) []domain.Paper {
	out := make([]domain.Paper, 0, len(items))
	for _, item := range items {
		var p domain.Paper
		if err := json.Unmarshal(item, &p); err != nil {
			continue
		}
		out = append(out, p)
	}
	return out
}
