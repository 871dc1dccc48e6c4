package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"natsdash/internal/models"
	"natsdash/internal/utils"
)

func testEvent(triggered bool) Event {
	return Event{
		RuleName:    "conns high",
		ClusterName: "prod",
		Metric:      models.MetricConnections,
		Operator:    models.OperatorGT,
		Threshold:   100,
		Value:       150,
		Triggered:   triggered,
		Timestamp:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestEventMessageFraming(t *testing.T) {
	triggered := testEvent(true).Message()
	assert.Contains(t, triggered, "🚨")
	assert.Contains(t, triggered, "connections > 100")
	assert.Contains(t, triggered, "150")

	resolved := testEvent(false).Message()
	assert.Contains(t, resolved, "✅")
	assert.Contains(t, resolved, "conns high")
}

func TestDispatchIsolatesChannelFailures(t *testing.T) {
	var delivered []byte
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		delivered, _ = io.ReadAll(r.Body)
	}))
	t.Cleanup(healthy.Close)
	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	t.Cleanup(broken.Close)

	channels := []models.NotificationChannel{
		{Name: "broken", Type: models.ChannelDiscord, Config: models.ChannelConfig{URL: broken.URL}},
		{Name: "healthy", Type: models.ChannelWebhook, Config: models.ChannelConfig{URL: healthy.URL}},
	}

	d := NewDispatcher(utils.NewLogger(""))
	// Must complete without panicking despite the failing channel.
	d.Dispatch(context.Background(), testEvent(true), channels)

	require.NotEmpty(t, delivered)
	var payload map[string]any
	require.NoError(t, json.Unmarshal(delivered, &payload))
	assert.Equal(t, "conns high", payload["alert"])
	assert.Equal(t, "prod", payload["cluster"])
	assert.Equal(t, "triggered", payload["status"])
	assert.Equal(t, float64(150), payload["value"])
}

func TestSendDiscordEmbedColors(t *testing.T) {
	var got discordPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	t.Cleanup(srv.Close)

	d := NewDispatcher(utils.NewLogger(""))
	cfg := models.ChannelConfig{URL: srv.URL}

	require.NoError(t, d.sendDiscord(context.Background(), cfg, testEvent(true)))
	require.Len(t, got.Embeds, 1)
	assert.Equal(t, colorTriggered, got.Embeds[0].Color)

	require.NoError(t, d.sendDiscord(context.Background(), cfg, testEvent(false)))
	assert.Equal(t, colorResolved, got.Embeds[0].Color)
}

func TestSendSlackAttachment(t *testing.T) {
	var got slackPayload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	t.Cleanup(srv.Close)

	d := NewDispatcher(utils.NewLogger(""))
	event := testEvent(true)
	require.NoError(t, d.sendSlack(context.Background(), models.ChannelConfig{URL: srv.URL}, event))

	require.Len(t, got.Attachments, 1)
	assert.Equal(t, "#DC2626", got.Attachments[0].Color)
	assert.Equal(t, event.Timestamp.Unix(), got.Attachments[0].TS)
	assert.Contains(t, got.Attachments[0].Text, "🚨")
}

func TestSendTelegramBuildsBotURL(t *testing.T) {
	var gotPath string
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
	}))
	t.Cleanup(srv.Close)

	prev := telegramAPIBase
	telegramAPIBase = srv.URL
	t.Cleanup(func() { telegramAPIBase = prev })

	d := NewDispatcher(utils.NewLogger(""))
	cfg := models.ChannelConfig{BotToken: "123:abc", ChatID: "42"}
	require.NoError(t, d.sendTelegram(context.Background(), cfg, testEvent(true)))

	assert.Equal(t, "/bot123:abc/sendMessage", gotPath)
	assert.Equal(t, "42", got["chat_id"])
	assert.Contains(t, got["text"], "🚨")
}

func TestSendWebhookGETOmitsBody(t *testing.T) {
	var gotMethod string
	var gotBody []byte
	var gotHeader string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotBody, _ = io.ReadAll(r.Body)
		gotHeader = r.Header.Get("X-Token")
	}))
	t.Cleanup(srv.Close)

	d := NewDispatcher(utils.NewLogger(""))
	cfg := models.ChannelConfig{
		URL:     srv.URL,
		Method:  "GET",
		Headers: map[string]string{"X-Token": "secret"},
	}
	require.NoError(t, d.sendWebhook(context.Background(), cfg, testEvent(false)))

	assert.Equal(t, http.MethodGet, gotMethod)
	assert.Empty(t, gotBody)
	assert.Equal(t, "secret", gotHeader)
}
