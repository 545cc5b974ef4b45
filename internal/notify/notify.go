// Package notify posts benchmark summaries to chat.
package notify

import (
	"context"
	"fmt"
	"os"
	"strings"

	"convbench/internal/benchmark"

	"github.com/slack-go/slack"
	"github.com/spf13/viper"
)

// Notifier delivers a text message.
type Notifier interface {
	Notify(ctx context.Context, message string) error
}

// FromConfig builds the notifier described by notifications.slack.*. It
// returns nil when notifications are disabled.
func FromConfig() (Notifier, error) {
	if !viper.GetBool("notifications.slack.enabled") {
		return nil, nil
	}

	if url := firstNonEmpty(viper.GetString("notifications.slack.webhook_url"), os.Getenv("SLACK_WEBHOOK_URL")); url != "" {
		return NewWebhookNotifier(url), nil
	}

	botToken := os.Getenv("SLACK_BOT_USER_TOKEN")
	if botToken == "" {
		return nil, fmt.Errorf("slack notifications enabled but neither SLACK_BOT_USER_TOKEN nor a webhook URL is set")
	}
	channel := viper.GetString("notifications.slack.channel")
	return NewSlackNotifier(slack.New(botToken), channel), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Summary renders run as a short chat message. Comparisons against the
// previous run are appended when given; those beyond threshold percent are
// marked.
func Summary(run benchmark.Run, comparisons []benchmark.Comparison, threshold float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "*convbench run %s*", run.ID)
	if run.Commit != "" {
		fmt.Fprintf(&b, " at `%s`", shortCommit(run.Commit))
	}
	b.WriteString("\n")
	for _, res := range run.Results {
		fmt.Fprintf(&b, "• %s (%s of %d legs): %.4f ms\n", res.Scenario, res.Reducer, len(res.Samples), res.Value)
	}

	var regressions int
	for _, c := range comparisons {
		marker := ""
		switch {
		case c.Regressed(threshold):
			marker = " :warning:"
			regressions++
		case c.Improved(threshold):
			marker = " :rocket:"
		}
		fmt.Fprintf(&b, "  %s%s\n", c.String(), marker)
	}
	if regressions > 0 {
		fmt.Fprintf(&b, "%d scenario(s) regressed by more than %.1f%%\n", regressions, threshold)
	}
	return strings.TrimRight(b.String(), "\n")
}

func shortCommit(c string) string {
	if len(c) > 8 {
		return c[:8]
	}
	return c
}
