package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/slack-go/slack"
)

// SlackPoster is the part of the Slack API client used for posting.
type SlackPoster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

// SlackNotifier posts messages with a bot token.
type SlackNotifier struct {
	client  SlackPoster
	channel string
}

// NewSlackNotifier creates a notifier posting to channel.
func NewSlackNotifier(client SlackPoster, channel string) *SlackNotifier {
	return &SlackNotifier{client: client, channel: channel}
}

// Notify posts message to the configured channel.
func (s *SlackNotifier) Notify(ctx context.Context, message string) error {
	if s.channel == "" {
		return fmt.Errorf("slack channel is not configured")
	}
	if _, _, err := s.client.PostMessageContext(ctx, s.channel, slack.MsgOptionText(message, false)); err != nil {
		return fmt.Errorf("failed to send slack notification: %w", err)
	}
	return nil
}

// WebhookNotifier sends notifications to Slack via an incoming webhook.
type WebhookNotifier struct {
	WebhookURL string
	Client     *http.Client
}

// NewWebhookNotifier creates a new WebhookNotifier.
func NewWebhookNotifier(webhookURL string) *WebhookNotifier {
	return &WebhookNotifier{
		WebhookURL: webhookURL,
		Client:     &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify sends a message to the configured Slack webhook.
func (w *WebhookNotifier) Notify(ctx context.Context, message string) error {
	if w.WebhookURL == "" {
		return fmt.Errorf("slack webhook URL is not configured")
	}
	client := w.Client
	if client == nil {
		client = http.DefaultClient
	}
	msg := &slack.WebhookMessage{Text: message}
	if err := slack.PostWebhookCustomHTTPContext(ctx, w.WebhookURL, client, msg); err != nil {
		return fmt.Errorf("failed to send slack notification: %w", err)
	}
	return nil
}
