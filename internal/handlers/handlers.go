// Package handlers wires the HTTP API: auth, cluster management, live
// monitoring aggregation, alerting, notification channels, and broker
// resource browsing.
package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"natsdash/internal/alerts"
	"natsdash/internal/broker"
	"natsdash/internal/middleware"
	"natsdash/internal/models"
	"natsdash/internal/monitor"
	"natsdash/internal/notify"
	"natsdash/internal/store"
	"natsdash/internal/utils"
)

func init() {
	if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
		_ = v.RegisterValidation("alertmetric", func(fl validator.FieldLevel) bool {
			return models.ValidMetric(fl.Field().String())
		})
		_ = v.RegisterValidation("alertop", func(fl validator.FieldLevel) bool {
			return models.ValidOperator(fl.Field().String())
		})
		_ = v.RegisterValidation("channeltype", func(fl validator.FieldLevel) bool {
			return models.ValidChannelType(fl.Field().String())
		})
	}
}

// API holds the shared dependencies of every handler.
type API struct {
	repo       *store.Repository
	auth       *middleware.AuthService
	scheduler  *alerts.Scheduler
	dispatcher *notify.Dispatcher
	fetcher    *monitor.Fetcher
	browser    *broker.Browser
	hub        *middleware.Hub
	log        *utils.Logger
}

func NewAPI(repo *store.Repository, auth *middleware.AuthService, scheduler *alerts.Scheduler,
	dispatcher *notify.Dispatcher, browser *broker.Browser, hub *middleware.Hub, log *utils.Logger) *API {
	return &API{
		repo:       repo,
		auth:       auth,
		scheduler:  scheduler,
		dispatcher: dispatcher,
		fetcher:    monitor.NewFetcher(),
		browser:    browser,
		hub:        hub,
		log:        log,
	}
}

// RegisterRoutes mounts all API routes on the router.
func (h *API) RegisterRoutes(r *gin.Engine) {
	r.GET("/healthz", h.Healthz)
	r.POST("/api/auth/login", h.Login)

	api := r.Group("/api", h.auth.RequireAPIAuth())
	{
		api.POST("/auth/logout", h.Logout)
		api.GET("/auth/me", h.Me)
		api.PUT("/auth/password", h.ChangePassword)

		api.GET("/system", h.SystemInfo)

		api.GET("/clusters", h.ListClusters)
		api.POST("/clusters", h.CreateCluster)
		api.GET("/clusters/:id", h.GetCluster)
		api.PUT("/clusters/:id", h.UpdateCluster)
		api.DELETE("/clusters/:id", h.DeleteCluster)

		api.GET("/clusters/:id/monitoring/varz", h.ClusterVarz)
		api.GET("/clusters/:id/monitoring/connz", h.ClusterConnz)
		api.GET("/clusters/:id/monitoring/subsz", h.ClusterSubsz)
		api.GET("/clusters/:id/monitoring/healthz", h.ClusterHealthz)

		api.GET("/clusters/:id/streams", h.ListStreams)
		api.GET("/clusters/:id/streams/:stream", h.GetStream)
		api.GET("/clusters/:id/streams/:stream/consumers", h.ListConsumers)
		api.GET("/clusters/:id/streams/:stream/consumers/:consumer", h.GetConsumer)
		api.GET("/clusters/:id/kv", h.ListKVBuckets)
		api.GET("/clusters/:id/kv/:bucket/keys", h.ListKVKeys)
		api.GET("/clusters/:id/objects", h.ListObjectBuckets)
		api.GET("/clusters/:id/objects/:bucket", h.ListObjects)

		api.GET("/clusters/:id/alerts", h.ListAlertRules)
		api.POST("/clusters/:id/alerts", h.CreateAlertRule)
		api.PUT("/alerts/:id", h.UpdateAlertRule)
		api.DELETE("/alerts/:id", h.DeleteAlertRule)
		api.GET("/alerts/:id/events", h.ListAlertEvents)
		api.GET("/alert-events", h.ListRecentAlertEvents)

		api.GET("/channels", h.ListChannels)
		api.POST("/channels", h.CreateChannel)
		api.PUT("/channels/:id", h.UpdateChannel)
		api.DELETE("/channels/:id", h.DeleteChannel)
		api.POST("/channels/:id/test", h.TestChannel)

		api.GET("/monitor/status", h.MonitorStatus)
		api.POST("/monitor/start", middleware.RequireAdmin(), h.MonitorStart)
		api.POST("/monitor/stop", middleware.RequireAdmin(), h.MonitorStop)
		api.PUT("/monitor/interval", middleware.RequireAdmin(), h.MonitorSetInterval)
	}

	r.GET("/ws", h.auth.RequireAPIAuth(), h.hub.HandleWebSocket)
}

// Healthz reports process liveness and database reachability.
func (h *API) Healthz(c *gin.Context) {
	if err := h.repo.DB().PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "error", "error": "database unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
		return 0, false
	}
	return id, true
}

// notFoundOr500 maps store lookup failures to the right status.
func notFoundOr500(c *gin.Context, err error, what string) {
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": what + " not found"})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
}
