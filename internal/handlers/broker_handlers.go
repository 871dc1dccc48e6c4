package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"natsdash/internal/models"
)

func (h *API) brokerCluster(c *gin.Context) (*models.Cluster, bool) {
	id, ok := idParam(c)
	if !ok {
		return nil, false
	}
	cluster, err := h.repo.ClusterByID(c.Request.Context(), id)
	if err != nil {
		notFoundOr500(c, err, "cluster")
		return nil, false
	}
	return cluster, true
}

// brokerError maps connection and lookup failures against the broker itself
// to 502: the dashboard is fine, the upstream cluster is not reachable.
func brokerError(c *gin.Context, err error) {
	c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
}

func (h *API) ListStreams(c *gin.Context) {
	cluster, ok := h.brokerCluster(c)
	if !ok {
		return
	}
	streams, err := h.browser.ListStreams(c.Request.Context(), cluster)
	if err != nil {
		brokerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"streams": streams})
}

func (h *API) GetStream(c *gin.Context) {
	cluster, ok := h.brokerCluster(c)
	if !ok {
		return
	}
	info, err := h.browser.StreamInfo(c.Request.Context(), cluster, c.Param("stream"))
	if err != nil {
		brokerError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *API) ListConsumers(c *gin.Context) {
	cluster, ok := h.brokerCluster(c)
	if !ok {
		return
	}
	consumers, err := h.browser.ListConsumers(c.Request.Context(), cluster, c.Param("stream"))
	if err != nil {
		brokerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"consumers": consumers})
}

func (h *API) GetConsumer(c *gin.Context) {
	cluster, ok := h.brokerCluster(c)
	if !ok {
		return
	}
	info, err := h.browser.ConsumerInfo(c.Request.Context(), cluster, c.Param("stream"), c.Param("consumer"))
	if err != nil {
		brokerError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (h *API) ListKVBuckets(c *gin.Context) {
	cluster, ok := h.brokerCluster(c)
	if !ok {
		return
	}
	buckets, err := h.browser.KeyValueBuckets(c.Request.Context(), cluster)
	if err != nil {
		brokerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"buckets": buckets})
}

func (h *API) ListKVKeys(c *gin.Context) {
	cluster, ok := h.brokerCluster(c)
	if !ok {
		return
	}
	keys, err := h.browser.KeyValueKeys(c.Request.Context(), cluster, c.Param("bucket"))
	if err != nil {
		brokerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"keys": keys})
}

func (h *API) ListObjectBuckets(c *gin.Context) {
	cluster, ok := h.brokerCluster(c)
	if !ok {
		return
	}
	buckets, err := h.browser.ObjectBuckets(c.Request.Context(), cluster)
	if err != nil {
		brokerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"buckets": buckets})
}

func (h *API) ListObjects(c *gin.Context) {
	cluster, ok := h.brokerCluster(c)
	if !ok {
		return
	}
	objects, err := h.browser.ObjectList(c.Request.Context(), cluster, c.Param("bucket"))
	if err != nil {
		brokerError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"objects": objects})
}
