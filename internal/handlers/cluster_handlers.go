package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"natsdash/internal/models"
)

type clusterRequest struct {
	Name           string   `json:"name" binding:"required,max=128"`
	Description    string   `json:"description" binding:"max=512"`
	NATSURL        string   `json:"nats_url" binding:"required,max=512"`
	MonitoringURLs []string `json:"monitoring_urls" binding:"required,min=1"`
}

func (h *API) ListClusters(c *gin.Context) {
	clusters, err := h.repo.ListClusters(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"clusters": clusters})
}

func (h *API) GetCluster(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	cluster, err := h.repo.ClusterByID(c.Request.Context(), id)
	if err != nil {
		notFoundOr500(c, err, "cluster")
		return
	}
	c.JSON(http.StatusOK, cluster)
}

func (h *API) CreateCluster(c *gin.Context) {
	var req clusterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	urls := models.NormalizeMonitoringURLs(req.MonitoringURLs)
	if len(urls) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one valid http(s) monitoring URL is required"})
		return
	}

	cluster := &models.Cluster{
		Name:           req.Name,
		Description:    req.Description,
		NATSURL:        req.NATSURL,
		MonitoringURLs: urls,
	}
	id, err := h.repo.CreateCluster(c.Request.Context(), cluster)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	created, err := h.repo.ClusterByID(c.Request.Context(), id)
	if err != nil {
		notFoundOr500(c, err, "cluster")
		return
	}
	h.log.Writef("cluster %q created with %d monitoring endpoints", created.Name, len(created.MonitoringURLs))
	c.JSON(http.StatusCreated, created)
}

func (h *API) UpdateCluster(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req clusterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	urls := models.NormalizeMonitoringURLs(req.MonitoringURLs)
	if len(urls) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "at least one valid http(s) monitoring URL is required"})
		return
	}

	cluster := &models.Cluster{
		ID:             id,
		Name:           req.Name,
		Description:    req.Description,
		NATSURL:        req.NATSURL,
		MonitoringURLs: urls,
	}
	if err := h.repo.UpdateCluster(c.Request.Context(), cluster); err != nil {
		notFoundOr500(c, err, "cluster")
		return
	}
	// The broker URL may have changed; drop any cached connection.
	h.browser.Invalidate(id)

	updated, err := h.repo.ClusterByID(c.Request.Context(), id)
	if err != nil {
		notFoundOr500(c, err, "cluster")
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (h *API) DeleteCluster(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.repo.DeleteCluster(c.Request.Context(), id); err != nil {
		notFoundOr500(c, err, "cluster")
		return
	}
	h.browser.Invalidate(id)
	h.log.Writef("cluster %d deleted", id)
	c.JSON(http.StatusOK, gin.H{"status": "deleted"})
}
