package models

import "time"

// Notification channel types.
const (
	ChannelTelegram = "telegram"
	ChannelDiscord  = "discord"
	ChannelSlack    = "slack"
	ChannelWebhook  = "webhook"
)

// NotificationChannel is one configured alert destination. Config carries
// the type-specific fields; unused fields stay empty.
type NotificationChannel struct {
	ID        int64         `json:"id"`
	Name      string        `json:"name"`
	Type      string        `json:"type"`
	Config    ChannelConfig `json:"config"`
	Enabled   bool          `json:"enabled"`
	CreatedAt time.Time     `json:"created_at"`
}

// ChannelConfig is the union of per-type channel settings, stored as JSON.
type ChannelConfig struct {
	// telegram
	BotToken string `json:"bot_token,omitempty"`
	ChatID   string `json:"chat_id,omitempty"`
	// discord / slack / webhook
	URL string `json:"url,omitempty"`
	// webhook only
	Method  string            `json:"method,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// ValidChannelType reports whether t is a deliverable channel type.
func ValidChannelType(t string) bool {
	switch t {
	case ChannelTelegram, ChannelDiscord, ChannelSlack, ChannelWebhook:
		return true
	}
	return false
}
