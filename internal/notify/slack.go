package notify

import (
	"fmt"

	slackapi "github.com/slack-go/slack"
)

// slackClient abstracts the Slack API methods we use, enabling test mocks.
type slackClient interface {
	PostMessage(channelID string, options ...slackapi.MsgOption) (string, string, error)
}

// Slack posts escalation events to a Slack channel.
type Slack struct {
	client    slackClient
	channelID string
}

// SlackOpts holds parameters for creating a Slack notifier.
type SlackOpts struct {
	Token     string // xoxb-... bot token
	ChannelID string
	// For testing: inject a mock client instead of the real Slack API.
	Client slackClient
}

// NewSlack creates a Slack notifier.
func NewSlack(opts SlackOpts) (*Slack, error) {
	if opts.ChannelID == "" {
		return nil, fmt.Errorf("slack: channel ID is required")
	}
	client := opts.Client
	if client == nil {
		if opts.Token == "" {
			return nil, fmt.Errorf("slack: token is required")
		}
		client = slackapi.New(opts.Token)
	}
	return &Slack{client: client, channelID: opts.ChannelID}, nil
}

// Name identifies this notifier in logs.
func (s *Slack) Name() string { return "slack" }

// Notify posts the event as an attachment with a severity color.
func (s *Slack) Notify(event Event) error {
	attachment := slackapi.Attachment{
		Title: event.Title,
		Text:  event.Body,
		Color: severityColor(event.Severity),
	}
	_, _, err := s.client.PostMessage(s.channelID,
		slackapi.MsgOptionAttachments(attachment))
	if err != nil {
		return fmt.Errorf("slack: post message: %w", err)
	}
	return nil
}
