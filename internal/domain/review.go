package domain

import (
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ReviewStatus is the lifecycle state of a literature review session.
type ReviewStatus string

const (
	ReviewStatusPending    ReviewStatus = "pending"
	ReviewStatusInProgress ReviewStatus = "in_progress"
	ReviewStatusCompleted  ReviewStatus = "completed"
	ReviewStatusFailed     ReviewStatus = "failed"
)

// ValidReviewStatuses is the canonical set of known review statuses.
var ValidReviewStatuses = []ReviewStatus{ //nolint:gochecknoglobals // canonical enum list
	ReviewStatusPending,
	ReviewStatusInProgress,
	ReviewStatusCompleted,
	ReviewStatusFailed,
}

// ValidateStatus returns true if the given status is a known review status.
func ValidateStatus(s ReviewStatus) bool {
	return slices.Contains(ValidReviewStatuses, s)
}

// IsTerminal returns true for statuses that will never change again.
func (s ReviewStatus) IsTerminal() bool {
	return s == ReviewStatusCompleted || s == ReviewStatusFailed
}

// Role identifies which participant produced a message.
type Role string

const (
	RolePlanner    Role = "planner"
	RoleSearcher   Role = "searcher"
	RoleSummarizer Role = "summarizer"
	RoleCritic     Role = "critic"
	RoleSystem     Role = "system"
)

// MessageKind is the derived classification of a transcript message.
type MessageKind string

const (
	KindPlanning MessageKind = "planning"
	KindSearch   MessageKind = "search"
	KindSummary  MessageKind = "summary"
	KindCritique MessageKind = "critique"
	KindSystem   MessageKind = "system"
	KindError    MessageKind = "error"
)

// Message is one agent turn in a review transcript.
type Message struct {
	Source    string      `json:"source"`
	Content   string      `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
	Kind      MessageKind `json:"message_type"`
}

// Paper is one deduplicated search result attached to a review.
type Paper struct {
	Title     string   `json:"title"`
	Authors   []string `json:"authors"`
	Published string   `json:"published"`
	Summary   string   `json:"summary"`
	PDFURL    string   `json:"pdf_url"`
}

// Valid reports whether all five fields are present. Partial records are
// never stored.
func (p Paper) Valid() bool {
	if strings.TrimSpace(p.Title) == "" || len(p.Authors) == 0 {
		return false
	}
	return p.Published != "" && p.Summary != "" && p.PDFURL != ""
}

// ReviewRequest is the immutable snapshot of the originating parameters.
type ReviewRequest struct {
	Topic     string `json:"topic"`
	NumPapers int    `json:"num_papers"`
	Model     string `json:"model"`
}

// ReviewSession is one end-to-end review request's accumulated state.
// Instances are owned by the session store; callers only ever see copies.
type ReviewSession struct {
	ID          uuid.UUID     `json:"id"`
	Status      ReviewStatus  `json:"status"`
	Request     ReviewRequest `json:"request"`
	Messages    []Message     `json:"messages"`
	Papers      []Paper       `json:"papers"`
	CreatedAt   time.Time     `json:"created_at"`
	CompletedAt *time.Time    `json:"completed_at,omitempty"`
}
