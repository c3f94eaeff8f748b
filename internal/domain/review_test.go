package domain_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/gosuda/litrev/internal/domain"
)

func TestReviewStatus_IsTerminal(t *testing.T) {
	t.Parallel()

	assert.False(t, domain.ReviewStatusPending.IsTerminal())
	assert.False(t, domain.ReviewStatusInProgress.IsTerminal())
	assert.True(t, domain.ReviewStatusCompleted.IsTerminal())
	assert.True(t, domain.ReviewStatusFailed.IsTerminal())
}

func TestValidateStatus(t *testing.T) {
	t.Parallel()

	for _, s := range domain.ValidReviewStatuses {
		assert.True(t, domain.ValidateStatus(s), "status %q should be valid", s)
	}
	assert.False(t, domain.ValidateStatus("cancelled"))
	assert.False(t, domain.ValidateStatus(""))
}

func TestPaper_Valid(t *testing.T) {
	t.Parallel()

	full := domain.Paper{
		Title:     "Attention Is All You Need",
		Authors:   []string{"Vaswani"},
		Published: "2017-06-12",
		Summary:   "Introduces the transformer architecture.",
		PDFURL:    "https://arxiv.org/pdf/1706.03762",
	}

	t.Run("all fields present", func(t *testing.T) {
		t.Parallel()
		assert.True(t, full.Valid())
	})

	t.Run("missing pdf_url", func(t *testing.T) {
		t.Parallel()
		p := full
		p.PDFURL = ""
		assert.False(t, p.Valid())
	})

	t.Run("no authors", func(t *testing.T) {
		t.Parallel()
		p := full
		p.Authors = nil
		assert.False(t, p.Valid())
	})

	t.Run("whitespace title", func(t *testing.T) {
		t.Parallel()
		p := full
		p.Title = "   "
		assert.False(t, p.Valid())
	})
}
