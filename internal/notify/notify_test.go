package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"convbench/internal/benchmark"

	"github.com/slack-go/slack"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSlackPoster struct {
	channel string
	calls   int
	err     error
}

func (m *mockSlackPoster) PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error) {
	m.calls++
	m.channel = channelID
	return channelID, "1700000000.000100", m.err
}

func TestSlackNotifier(t *testing.T) {
	poster := &mockSlackPoster{}
	n := NewSlackNotifier(poster, "#benchmarks")
	require.NoError(t, n.Notify(context.Background(), "done"))
	assert.Equal(t, "#benchmarks", poster.channel)
	assert.Equal(t, 1, poster.calls)

	poster.err = errors.New("channel_not_found")
	assert.ErrorContains(t, n.Notify(context.Background(), "done"), "channel_not_found")

	assert.Error(t, NewSlackNotifier(poster, "").Notify(context.Background(), "done"))
}

func TestSlackNotifier_API(t *testing.T) {
	var text string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat.postMessage", r.URL.Path)
		require.NoError(t, r.ParseForm())
		text = r.PostForm.Get("text")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true,"channel":"C123","ts":"1700000000.000100"}`))
	}))
	defer server.Close()

	client := slack.New("xoxb-test", slack.OptionAPIURL(server.URL+"/"))
	n := NewSlackNotifier(client, "C123")
	require.NoError(t, n.Notify(context.Background(), "origin: 0.1800 ms"))
	assert.Equal(t, "origin: 0.1800 ms", text)
}

func TestWebhookNotifier(t *testing.T) {
	var received string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var payload map[string]any
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &payload)
		received, _ = payload["text"].(string)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	require.NoError(t, NewWebhookNotifier(server.URL).Notify(context.Background(), "run finished"))
	assert.Equal(t, "run finished", received)

	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer failing.Close()
	assert.Error(t, NewWebhookNotifier(failing.URL).Notify(context.Background(), "x"))

	assert.Error(t, NewWebhookNotifier("").Notify(context.Background(), "x"))
}

func TestFromConfig(t *testing.T) {
	defer viper.Reset()

	viper.Reset()
	n, err := FromConfig()
	require.NoError(t, err)
	assert.Nil(t, n)

	viper.Set("notifications.slack.enabled", true)
	t.Setenv("SLACK_BOT_USER_TOKEN", "")
	t.Setenv("SLACK_WEBHOOK_URL", "")
	_, err = FromConfig()
	assert.Error(t, err)

	t.Setenv("SLACK_BOT_USER_TOKEN", "xoxb-test")
	viper.Set("notifications.slack.channel", "#perf")
	n, err = FromConfig()
	require.NoError(t, err)
	assert.IsType(t, &SlackNotifier{}, n)

	viper.Set("notifications.slack.webhook_url", "https://hooks.slack.com/services/T/B/X")
	n, err = FromConfig()
	require.NoError(t, err)
	assert.IsType(t, &WebhookNotifier{}, n)
}

func TestSummary(t *testing.T) {
	prev := benchmark.Run{ID: "r1", Results: []benchmark.ComparisonResult{
		{Scenario: "origin", Value: 0.20},
		{Scenario: "opt", Value: 0.10},
	}}
	curr := benchmark.Run{
		ID:        "r2",
		Timestamp: time.Now(),
		Commit:    "0123456789abcdef",
		Results: []benchmark.ComparisonResult{
			{Scenario: "origin", Reducer: "sum", Value: 0.25, Samples: make([]benchmark.Sample, 2)},
			{Scenario: "opt", Reducer: "min", Value: 0.05, Samples: make([]benchmark.Sample, 2)},
		},
	}

	msg := Summary(curr, benchmark.Compare(prev, curr), 5)
	assert.Contains(t, msg, "*convbench run r2* at `01234567`")
	assert.Contains(t, msg, "• origin (sum of 2 legs): 0.2500 ms")
	assert.Contains(t, msg, "• opt (min of 2 legs): 0.0500 ms")
	assert.Contains(t, msg, ":warning:")
	assert.Contains(t, msg, ":rocket:")
	assert.Contains(t, msg, "1 scenario(s) regressed by more than 5.0%")

	plain := Summary(curr, nil, 5)
	assert.NotContains(t, plain, "regressed")
}
