package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"natsdash/internal/models"
	"natsdash/internal/notify"
)

type channelRequest struct {
	Name    string               `json:"name" binding:"required,max=128"`
	Type    string               `json:"type" binding:"required,channeltype"`
	Config  models.ChannelConfig `json:"config"`
	Enabled *bool                `json:"enabled"`
}

// validate checks the type-specific required config fields. The type itself
// is already constrained by the channeltype binding.
func (r channelRequest) validate(c *gin.Context) bool {
	switch r.Type {
	case models.ChannelTelegram:
		if r.Config.BotToken == "" || r.Config.ChatID == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "telegram channels require bot_token and chat_id"})
			return false
		}
	case models.ChannelDiscord, models.ChannelSlack:
		if !validWebhookURL(r.Config.URL) {
			c.JSON(http.StatusBadRequest, gin.H{"error": r.Type + " channels require a valid webhook url"})
			return false
		}
	case models.ChannelWebhook:
		if !validWebhookURL(r.Config.URL) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "webhook channels require a valid url"})
			return false
		}
		switch strings.ToUpper(r.Config.Method) {
		case "", http.MethodGet, http.MethodPost:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "webhook method must be GET or POST"})
			return false
		}
	}
	return true
}

func validWebhookURL(u string) bool {
	return strings.HasPrefix(u, "http://") || strings.HasPrefix(u, "https://")
}

func (r channelRequest) enabled() bool {
	if r.Enabled == nil {
		return true
	}
	return *r.Enabled
}

func (h *API) ListChannels(c *gin.Context) {
	channels, err := h.repo.ListChannels(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"channels": channels})
}

func (h *API) CreateChannel(c *gin.Context) {
	var req channelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.validate(c) {
		return
	}

	ch := &models.NotificationChannel{
		Name:    req.Name,
		Type:    req.Type,
		Config:  req.Config,
		Enabled: req.enabled(),
	}
	id, err := h.repo.CreateChannel(c.Request.Context(), ch)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ch.ID = id
	c.JSON(http.StatusCreated, ch)
}

func (h *API) UpdateChannel(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req channelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if !req.validate(c) {
		return
	}

	ch := &models.NotificationChannel{
		ID:      id,
		Name:    req.Name,
		Type:    req.Type,
		Config:  req.Config,
		Enabled: req.enabled(),
	}
	if err := h.repo.UpdateChannel(c.Request.Context(), ch); err != nil {
		notFoundOr500(c, err, "channel")
		return
	}
	c.JSON(http.StatusOK, ch)
}

func (h *API) DeleteChannel(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.repo.DeleteChannel(c.Request.Context(), id); err != nil {
		notFoundOr500(c, err, "channel")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

// TestChannel sends a synthetic resolved-state notification so the operator
// can verify the channel configuration end to end.
func (h *API) TestChannel(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	channels, err := h.repo.ListChannels(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	for _, ch := range channels {
		if ch.ID != id {
			continue
		}
		event := notify.Event{
			RuleName:    "Test notification",
			ClusterName: "natsdash",
			Metric:      models.MetricConnections,
			Operator:    models.OperatorGT,
			Threshold:   0,
			Value:       0,
			Triggered:   false,
			Timestamp:   time.Now().UTC(),
		}
		if err := h.dispatcher.Deliver(c.Request.Context(), ch, event); err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "delivered"})
		return
	}
	c.JSON(http.StatusNotFound, gin.H{"error": "channel not found"})
}
