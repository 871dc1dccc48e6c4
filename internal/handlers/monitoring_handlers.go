package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"natsdash/internal/models"
	"natsdash/internal/monitor"
)

// selectedEndpoints resolves the optional ?servers= query (comma separated,
// may repeat) against the cluster's configured endpoints. A selection that
// matches nothing is a client error.
func selectedEndpoints(c *gin.Context, cluster *models.Cluster) ([]string, bool) {
	var requested []string
	for _, raw := range c.QueryArray("servers") {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				requested = append(requested, part)
			}
		}
	}

	endpoints := cluster.FilterEndpoints(requested)
	if len(endpoints) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "no requested server matches a configured monitoring URL"})
		return nil, false
	}
	return endpoints, true
}

// respondAggregate returns the partial aggregate, or 502 when every
// requested endpoint failed. The per-server error rows ride along either way.
func respondAggregate[T any](c *gin.Context, results []monitor.Result[T], agg any) {
	for _, r := range results {
		if r.OK() {
			c.JSON(http.StatusOK, agg)
			return
		}
	}
	c.JSON(http.StatusBadGateway, gin.H{"error": "all monitoring endpoints failed", "result": agg})
}

func (h *API) monitoredCluster(c *gin.Context) (*models.Cluster, []string, bool) {
	id, ok := idParam(c)
	if !ok {
		return nil, nil, false
	}
	cluster, err := h.repo.ClusterByID(c.Request.Context(), id)
	if err != nil {
		notFoundOr500(c, err, "cluster")
		return nil, nil, false
	}
	endpoints, ok := selectedEndpoints(c, cluster)
	if !ok {
		return nil, nil, false
	}
	return cluster, endpoints, true
}

// ClusterVarz fans out to every selected endpoint's /varz and returns the
// cluster totals plus the per-server rows.
func (h *API) ClusterVarz(c *gin.Context) {
	_, endpoints, ok := h.monitoredCluster(c)
	if !ok {
		return
	}
	results, err := h.fetcher.CollectVarz(c.Request.Context(), endpoints)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	respondAggregate(c, results, monitor.AggregateVarz(results))
}

func (h *API) ClusterConnz(c *gin.Context) {
	_, endpoints, ok := h.monitoredCluster(c)
	if !ok {
		return
	}

	query := ""
	if limitStr := c.Query("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		query = "limit=" + url.QueryEscape(limitStr)
	}

	results, err := h.fetcher.CollectConnz(c.Request.Context(), endpoints, query)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	respondAggregate(c, results, monitor.AggregateConnz(results))
}

func (h *API) ClusterSubsz(c *gin.Context) {
	_, endpoints, ok := h.monitoredCluster(c)
	if !ok {
		return
	}
	results, err := h.fetcher.CollectSubsz(c.Request.Context(), endpoints)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	respondAggregate(c, results, monitor.AggregateSubsz(results))
}

func (h *API) ClusterHealthz(c *gin.Context) {
	_, endpoints, ok := h.monitoredCluster(c)
	if !ok {
		return
	}
	results, err := h.fetcher.CollectHealthz(c.Request.Context(), endpoints)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	respondAggregate(c, results, monitor.AggregateHealthz(results))
}
