// Package models holds the persisted record types shared by the store,
// handlers, and the alert monitor.
package models

import (
	"net/url"
	"strings"
	"time"
)

// Cluster is one NATS cluster connection managed by the dashboard.
// MonitoringURLs is the ordered, deduplicated list of per-server HTTP
// monitoring endpoints used by the aggregation layer.
type Cluster struct {
	ID             int64     `json:"id"`
	Name           string    `json:"name"`
	Description    string    `json:"description"`
	NATSURL        string    `json:"nats_url"`
	MonitoringURLs []string  `json:"monitoring_urls"`
	CreatedAt      time.Time `json:"created_at"`
}

// NormalizeMonitoringURLs trims, deduplicates, and strips trailing slashes
// while preserving first-seen order. Invalid entries are dropped.
func NormalizeMonitoringURLs(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, raw := range urls {
		u := strings.TrimRight(strings.TrimSpace(raw), "/")
		if u == "" {
			continue
		}
		parsed, err := url.Parse(u)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// FilterEndpoints returns the members of requested that are configured on
// the cluster, in the cluster's configured order. An empty requested list
// selects every configured endpoint.
func (c *Cluster) FilterEndpoints(requested []string) []string {
	if len(requested) == 0 {
		out := make([]string, len(c.MonitoringURLs))
		copy(out, c.MonitoringURLs)
		return out
	}
	want := make(map[string]struct{}, len(requested))
	for _, r := range requested {
		want[strings.TrimRight(strings.TrimSpace(r), "/")] = struct{}{}
	}
	out := make([]string, 0, len(requested))
	for _, configured := range c.MonitoringURLs {
		if _, ok := want[configured]; ok {
			out = append(out, configured)
		}
	}
	return out
}
