package papers_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gosuda/litrev/internal/domain"
	"github.com/gosuda/litrev/internal/papers"
)

func validPaper(title string) domain.Paper {
	return domain.Paper{
		Title:     title,
		Authors:   []string{"X"},
		Published: "2024-01-01",
		Summary:   "s",
		PDFURL:    "u",
	}
}

func TestNormalizeTitle(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "lowercases", in: "Graph Neural Networks", want: "graph neural networks"},
		{name: "trims", in: "  GNN  ", want: "gnn"},
		{name: "collapses internal whitespace", in: "a  b\t c", want: "a b c"},
		{name: "empty", in: "", want: ""},
		{name: "only whitespace", in: " \t ", want: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, papers.NormalizeTitle(tc.in))
		})
	}
}

func TestDeduplicate(t *testing.T) {
	t.Parallel()

	t.Run("first occurrence wins", func(t *testing.T) {
		t.Parallel()

		a := validPaper("A")
		aLower := validPaper("a")
		aLower.PDFURL = "u2"
		b := validPaper("B")

		got := papers.Deduplicate([]domain.Paper{a, aLower, b})
		require.Len(t, got, 2)
		assert.Equal(t, "A", got[0].Title)
		assert.Equal(t, "u", got[0].PDFURL)
		assert.Equal(t, "B", got[1].Title)
	})

	t.Run("discards invalid records", func(t *testing.T) {
		t.Parallel()

		noURL := validPaper("NoURL")
		noURL.PDFURL = ""

		got := papers.Deduplicate([]domain.Paper{noURL, validPaper("Kept")})
		require.Len(t, got, 1)
		assert.Equal(t, "Kept", got[0].Title)
	})

	t.Run("idempotent", func(t *testing.T) {
		t.Parallel()

		in := []domain.Paper{validPaper("A"), validPaper("B"), validPaper("C")}
		once := papers.Deduplicate(in)
		twice := papers.Deduplicate(once)
		assert.Equal(t, once, twice)
	})

	t.Run("whitespace variants collapse", func(t *testing.T) {
		t.Parallel()

		got := papers.Deduplicate([]domain.Paper{
			validPaper("Deep  Learning"),
			validPaper(" deep learning "),
		})
		assert.Len(t, got, 1)
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		assert.Empty(t, papers.Deduplicate(nil))
	})
}

func TestParsePayload(t *testing.T) {
	t.Parallel()

	const onePaper = `[{"title":"A","authors":["X"],"published":"2024-01-01","summary":"s","pdf_url":"u"}]`

	t.Run("direct array", func(t *testing.T) {
		t.Parallel()

		got := papers.ParsePayload(onePaper)
		require.Len(t, got, 1)
		assert.Equal(t, "A", got[0].Title)
		assert.Equal(t, []string{"X"}, got[0].Authors)
	})

	t.Run("papers object wrapper", func(t *testing.T) {
		t.Parallel()

		got := papers.ParsePayload(`{"papers":` + onePaper + `}`)
		require.Len(t, got, 1)
		assert.Equal(t, "A", got[0].Title)
	})

	t.Run("fenced json block preferred", func(t *testing.T) {
		t.Parallel()

		content := "Here are the papers I found:\n```json\n" + onePaper + "\n```\nLet me know."
		got := papers.ParsePayload(content)
		require.Len(t, got, 1)
		assert.Equal(t, "A", got[0].Title)
	})

	t.Run("fence marker is case-insensitive", func(t *testing.T) {
		t.Parallel()

		content := "```JSON\n" + onePaper + "\n```"
		got := papers.ParsePayload(content)
		assert.Len(t, got, 1)
	})

	t.Run("prose returns nil", func(t *testing.T) {
		t.Parallel()
		assert.Nil(t, papers.ParsePayload("I could not find any papers."))
	})

	t.Run("non-object list elements are skipped", func(t *testing.T) {
		t.Parallel()

		got := papers.ParsePayload(`["just a string", {"title":"B","authors":["Y"],"published":"2024-02-02","summary":"s2","pdf_url":"u2"}]`)
		require.Len(t, got, 1)
		assert.Equal(t, "B", got[0].Title)
	})

	t.Run("partial records survive parsing but fail validity", func(t *testing.T) {
		t.Parallel()

		got := papers.ParsePayload(`[{"title":"OnlyTitle"}]`)
		require.Len(t, got, 1)
		assert.False(t, got[0].Valid())
	})
}

// Scenario from the engine contract: two records whose titles differ only
// by case must collapse to one stored paper.
func TestDeduplicate_CaseInsensitiveScenario(t *testing.T) {
	t.Parallel()

	payload := `[{"title":"A","authors":["X"],"published":"2024-01-01","summary":"s","pdf_url":"u"},` +
		`{"title":"a","authors":["Y"],"published":"2024-01-02","summary":"s2","pdf_url":"u2"}]`

	parsed := papers.ParsePayload(payload)
	require.Len(t, parsed, 2)

	got := papers.Deduplicate(parsed)
	require.Len(t, got, 1)
	assert.Equal(t, "A", got[0].Title)
}
