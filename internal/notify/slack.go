// Package notify posts ratification requests to human channels.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/slack-go/slack"

	"github.com/resolvd/resolvd/internal/decision"
)

// SlackNotifier announces pending ratifications in a Slack channel so a
// human can approve or deny them from the CLI.
type SlackNotifier struct {
	api     *slack.Client
	channel string
}

// NewSlackNotifier creates a notifier. APIBase overrides the Slack API
// endpoint; leave it empty for the public API.
func NewSlackNotifier(botToken, channel, apiBase string) (*SlackNotifier, error) {
	if strings.TrimSpace(botToken) == "" {
		return nil, fmt.Errorf("missing slack bot token")
	}
	if strings.TrimSpace(channel) == "" {
		return nil, fmt.Errorf("missing slack channel")
	}
	opts := []slack.Option{}
	if base := strings.TrimSpace(apiBase); base != "" {
		opts = append(opts, slack.OptionAPIURL(strings.TrimRight(base, "/")+"/"))
	}
	return &SlackNotifier{
		api:     slack.New(botToken, opts...),
		channel: channel,
	}, nil
}

// NotifyRatification posts one message per pending ratification. The
// caller treats failure as best-effort.
func (n *SlackNotifier) NotifyRatification(ctx context.Context, req *decision.RatificationRequest) error {
	text := formatRatification(req)
	_, _, err := n.api.PostMessageContext(ctx, n.channel, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("slack post: %w", err)
	}
	return nil
}

func formatRatification(req *decision.RatificationRequest) string {
	var b strings.Builder
	b.WriteString(":raised_hand: Ratification needed\n")
	fmt.Fprintf(&b, "Notification: %s\n", req.NotificationID)
	if req.Category != "" {
		fmt.Fprintf(&b, "Category: %s\n", req.Category)
	}
	if req.Sender != "" {
		fmt.Fprintf(&b, "Sender: %s\n", req.Sender)
	}
	fmt.Fprintf(&b, "Proposed answer: %q\n", req.ProposedValue)
	fmt.Fprintf(&b, "Approve with: resolvd ratify %s --approve", req.RatificationID)
	return b.String()
}
