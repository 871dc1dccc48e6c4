package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"natsdash/internal/models"
)

type alertRuleRequest struct {
	Name      string  `json:"name" binding:"required,max=128"`
	Metric    string  `json:"metric" binding:"required,alertmetric"`
	Operator  string  `json:"operator" binding:"required,alertop"`
	Threshold float64 `json:"threshold"`
	Enabled   *bool   `json:"enabled"`
}

func (r alertRuleRequest) enabled() bool {
	if r.Enabled == nil {
		return true
	}
	return *r.Enabled
}

func (h *API) ListAlertRules(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if _, err := h.repo.ClusterByID(c.Request.Context(), id); err != nil {
		notFoundOr500(c, err, "cluster")
		return
	}
	rules, err := h.repo.ListAlertRulesByCluster(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"alerts": rules})
}

func (h *API) CreateAlertRule(c *gin.Context) {
	clusterID, ok := idParam(c)
	if !ok {
		return
	}
	if _, err := h.repo.ClusterByID(c.Request.Context(), clusterID); err != nil {
		notFoundOr500(c, err, "cluster")
		return
	}

	var req alertRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	rule := &models.AlertRule{
		ClusterID: clusterID,
		Name:      req.Name,
		Metric:    req.Metric,
		Operator:  req.Operator,
		Threshold: req.Threshold,
		Enabled:   req.enabled(),
	}
	id, err := h.repo.CreateAlertRule(c.Request.Context(), rule)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	created, err := h.repo.AlertRuleByID(c.Request.Context(), id)
	if err != nil {
		notFoundOr500(c, err, "alert rule")
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *API) UpdateAlertRule(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	existing, err := h.repo.AlertRuleByID(c.Request.Context(), id)
	if err != nil {
		notFoundOr500(c, err, "alert rule")
		return
	}

	var req alertRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	existing.Name = req.Name
	existing.Metric = req.Metric
	existing.Operator = req.Operator
	existing.Threshold = req.Threshold
	existing.Enabled = req.enabled()
	if err := h.repo.UpdateAlertRule(c.Request.Context(), existing); err != nil {
		notFoundOr500(c, err, "alert rule")
		return
	}
	c.JSON(http.StatusOK, existing)
}

func (h *API) DeleteAlertRule(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.repo.DeleteAlertRule(c.Request.Context(), id); err != nil {
		notFoundOr500(c, err, "alert rule")
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}

func eventLimit(c *gin.Context) (int, bool) {
	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 || limit > 1000 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be between 1 and 1000"})
		return 0, false
	}
	return limit, true
}

// ListAlertEvents returns the transition history of one rule, newest first.
func (h *API) ListAlertEvents(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	limit, ok := eventLimit(c)
	if !ok {
		return
	}
	if _, err := h.repo.AlertRuleByID(c.Request.Context(), id); err != nil {
		notFoundOr500(c, err, "alert rule")
		return
	}
	events, err := h.repo.ListAlertEventsByAlert(c.Request.Context(), id, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}

// ListRecentAlertEvents returns the newest transitions across all rules.
func (h *API) ListRecentAlertEvents(c *gin.Context) {
	limit, ok := eventLimit(c)
	if !ok {
		return
	}
	events, err := h.repo.ListRecentAlertEvents(c.Request.Context(), limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": events})
}
