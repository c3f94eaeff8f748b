package notify

import (
	"context"
	"fmt"

	slacklib "github.com/slack-go/slack"

	"github.com/gosuda/litrev/internal/domain"
)

// SlackAPI abstracts the subset of the Slack client used by the Slack
// sender. This allows testing without real HTTP calls.
type SlackAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slacklib.MsgOption) (string, string, error)
}

// Slack posts completion notices to a single Slack channel.
type Slack struct {
	api     SlackAPI
	channel string
}

// Compile-time interface check.
var _ Sender = (*Slack)(nil) //nolint:gochecknoglobals // compile-time check

// NewSlack creates a Slack sender from a bot token and target channel.
func NewSlack(botToken, channel string) *Slack {
	return &Slack{api: slacklib.New(botToken), channel: channel}
}

// NewSlackWithAPI creates a Slack sender over a custom API client.
func NewSlackWithAPI(api SlackAPI, channel string) *Slack {
	return &Slack{api: api, channel: channel}
}

func (s *Slack) Platform() string { return "slack" }

// Send posts the session notice with a Block Kit detail section.
func (s *Slack) Send(ctx context.Context, session *domain.ReviewSession) error {
	text := Summary(session)

	_, _, err := s.api.PostMessageContext(ctx, s.channel,
		slacklib.MsgOptionText(text, false),
		slacklib.MsgOptionBlocks(buildReviewBlocks(session)...),
	)
	if err != nil {
		return fmt.Errorf("notify.Slack.Send: %w", err)
	}

	return nil
}

// buildReviewBlocks builds the Block Kit layout for a finished review:
// the summary line, then one context line per attached paper.
func buildReviewBlocks(session *domain.ReviewSession) []slacklib.Block {
	blocks := []slacklib.Block{
		slacklib.NewSectionBlock(
			slacklib.NewTextBlockObject(slacklib.MarkdownType, Summary(session), false, false),
			nil,
			nil,
		),
	}

	for _, paper := range session.Papers {
		line := fmt.Sprintf("<%s|%s> (%s)", paper.PDFURL, paper.Title, paper.Published)
		blocks = append(blocks, slacklib.NewContextBlock("",
			slacklib.NewTextBlockObject(slacklib.MarkdownType, line, false, false),
		))
	}

	return blocks
}
