package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"natsdash/internal/models"
)

// telegramAPIBase is a hook for tests; production uses the public bot API.
var telegramAPIBase = "https://api.telegram.org"

// sendTelegram posts the event text via the bot sendMessage API.
func (d *Dispatcher) sendTelegram(ctx context.Context, cfg models.ChannelConfig, event Event) error {
	if cfg.BotToken == "" || cfg.ChatID == "" {
		return fmt.Errorf("telegram channel not configured")
	}
	payload := map[string]any{
		"chat_id":                  cfg.ChatID,
		"text":                     event.Message(),
		"disable_web_page_preview": true,
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", telegramAPIBase, cfg.BotToken)
	return d.postJSON(ctx, url, nil, payload)
}

type discordEmbed struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Color       int    `json:"color,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
}

type discordPayload struct {
	Embeds []discordEmbed `json:"embeds"`
}

// sendDiscord posts an embed with a status color to the webhook URL.
func (d *Dispatcher) sendDiscord(ctx context.Context, cfg models.ChannelConfig, event Event) error {
	if cfg.URL == "" {
		return fmt.Errorf("discord channel not configured")
	}
	color := colorResolved
	if event.Triggered {
		color = colorTriggered
	}
	payload := discordPayload{Embeds: []discordEmbed{{
		Title:       event.Title(),
		Description: event.Message(),
		Color:       color,
		Timestamp:   event.Timestamp.UTC().Format(time.RFC3339),
	}}}
	return d.postJSON(ctx, cfg.URL, nil, payload)
}

type slackAttachment struct {
	Color string `json:"color"`
	Title string `json:"title"`
	Text  string `json:"text"`
	TS    int64  `json:"ts"`
}

type slackPayload struct {
	Attachments []slackAttachment `json:"attachments"`
}

// sendSlack posts an attachment with a hex color and unix timestamp to the
// incoming-webhook URL.
func (d *Dispatcher) sendSlack(ctx context.Context, cfg models.ChannelConfig, event Event) error {
	if cfg.URL == "" {
		return fmt.Errorf("slack channel not configured")
	}
	color := fmt.Sprintf("#%06X", colorResolved)
	if event.Triggered {
		color = fmt.Sprintf("#%06X", colorTriggered)
	}
	payload := slackPayload{Attachments: []slackAttachment{{
		Color: color,
		Title: event.Title(),
		Text:  event.Message(),
		TS:    event.Timestamp.Unix(),
	}}}
	return d.postJSON(ctx, cfg.URL, nil, payload)
}

type webhookPayload struct {
	Alert     string  `json:"alert"`
	Cluster   string  `json:"cluster"`
	Value     float64 `json:"value"`
	Status    string  `json:"status"`
	Timestamp string  `json:"timestamp"`
}

// sendWebhook delivers the generic JSON envelope with any configured extra
// headers merged in. GET requests omit the body.
func (d *Dispatcher) sendWebhook(ctx context.Context, cfg models.ChannelConfig, event Event) error {
	if cfg.URL == "" {
		return fmt.Errorf("webhook channel not configured")
	}
	method := strings.ToUpper(strings.TrimSpace(cfg.Method))
	if method == "" {
		method = http.MethodPost
	}
	if method != http.MethodGet && method != http.MethodPost {
		return fmt.Errorf("unsupported webhook method %q", cfg.Method)
	}

	var body io.Reader
	if method != http.MethodGet {
		payload := webhookPayload{
			Alert:     event.RuleName,
			Cluster:   event.ClusterName,
			Value:     event.Value,
			Status:    event.status(),
			Timestamp: event.Timestamp.UTC().Format(time.RFC3339),
		}
		b, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, cfg.URL, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range cfg.Headers {
		req.Header.Set(k, v)
	}
	return d.do(req)
}

func (d *Dispatcher) postJSON(ctx context.Context, url string, headers map[string]string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return d.do(req)
}

func (d *Dispatcher) do(req *http.Request) error {
	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	return nil
}
