package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"natsdash/internal/alerts"
)

// MonitorStatus reports whether the background sweep loop is running and at
// what interval.
func (h *API) MonitorStatus(c *gin.Context) {
	running, intervalMS := h.scheduler.Status()
	c.JSON(http.StatusOK, gin.H{"running": running, "interval_ms": intervalMS})
}

func (h *API) MonitorStart(c *gin.Context) {
	h.scheduler.Start()
	running, intervalMS := h.scheduler.Status()
	c.JSON(http.StatusOK, gin.H{"running": running, "interval_ms": intervalMS})
}

func (h *API) MonitorStop(c *gin.Context) {
	h.scheduler.Stop()
	running, intervalMS := h.scheduler.Status()
	c.JSON(http.StatusOK, gin.H{"running": running, "interval_ms": intervalMS})
}

type intervalRequest struct {
	IntervalMS int64 `json:"interval_ms" binding:"required"`
}

// MonitorSetInterval changes the sweep interval, restarting the loop when it
// is running.
func (h *API) MonitorSetInterval(c *gin.Context) {
	var req intervalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "interval_ms is required"})
		return
	}
	if err := h.scheduler.SetInterval(req.IntervalMS); err != nil {
		if errors.Is(err, alerts.ErrIntervalOutOfRange) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	running, intervalMS := h.scheduler.Status()
	c.JSON(http.StatusOK, gin.H{"running": running, "interval_ms": intervalMS})
}
