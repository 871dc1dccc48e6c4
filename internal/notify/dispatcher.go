// Package notify renders alert transitions into human messages and fans
// them out to the configured notification channels.
package notify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"natsdash/internal/models"
	"natsdash/internal/utils"
)

const deliveryTimeout = 10 * time.Second

// Status colors shared by the embed-style channels.
const (
	colorTriggered = 0xDC2626
	colorResolved  = 0x16A34A
)

// Event is one alert transition ready for delivery.
type Event struct {
	RuleName    string
	ClusterName string
	Metric      string
	Operator    string
	Threshold   float64
	Value       float64
	Triggered   bool
	Timestamp   time.Time
}

// Message renders the status line sent to every channel.
func (e Event) Message() string {
	symbol := models.OperatorSymbol(e.Operator)
	if e.Triggered {
		return fmt.Sprintf("🚨 ALERT %s [%s]: %s %s %s (current: %s)",
			e.RuleName, e.ClusterName, e.Metric, symbol,
			formatNumber(e.Threshold), formatNumber(e.Value))
	}
	return fmt.Sprintf("✅ RESOLVED %s [%s]: %s back within threshold (%s %s %s, current: %s)",
		e.RuleName, e.ClusterName, e.Metric, e.Metric, symbol,
		formatNumber(e.Threshold), formatNumber(e.Value))
}

// Title renders the short headline used by embed-style channels.
func (e Event) Title() string {
	if e.Triggered {
		return fmt.Sprintf("Alert triggered: %s", e.RuleName)
	}
	return fmt.Sprintf("Alert resolved: %s", e.RuleName)
}

func (e Event) status() string {
	if e.Triggered {
		return models.AlertStatusTriggered
	}
	return models.AlertStatusResolved
}

func formatNumber(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%g", v)
}

// Dispatcher delivers events to channels with per-channel failure isolation.
// Delivery is best-effort: failures are logged and never retried.
type Dispatcher struct {
	client *http.Client
	log    *utils.Logger
}

// NewDispatcher returns a Dispatcher logging delivery failures to log.
func NewDispatcher(log *utils.Logger) *Dispatcher {
	return &Dispatcher{
		client: &http.Client{Timeout: deliveryTimeout},
		log:    log,
	}
}

// Dispatch sends the event to every channel. One channel's failure does not
// prevent delivery attempts to the rest, and never propagates to the caller.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event, channels []models.NotificationChannel) {
	for _, ch := range channels {
		if err := d.deliver(ctx, ch, event); err != nil {
			d.log.Writef("notification to %q (%s) failed: %v", ch.Name, ch.Type, err)
		}
	}
}

// Deliver sends the event to a single channel and reports the failure to the
// caller. Used for channel test sends.
func (d *Dispatcher) Deliver(ctx context.Context, ch models.NotificationChannel, event Event) error {
	return d.deliver(ctx, ch, event)
}

// deliver selects the channel variant. Adding a channel type is one new
// constant plus one case here.
func (d *Dispatcher) deliver(ctx context.Context, ch models.NotificationChannel, event Event) error {
	switch ch.Type {
	case models.ChannelTelegram:
		return d.sendTelegram(ctx, ch.Config, event)
	case models.ChannelDiscord:
		return d.sendDiscord(ctx, ch.Config, event)
	case models.ChannelSlack:
		return d.sendSlack(ctx, ch.Config, event)
	case models.ChannelWebhook:
		return d.sendWebhook(ctx, ch.Config, event)
	default:
		return fmt.Errorf("unknown channel type %q", ch.Type)
	}
}
