// Package monitor fetches NATS server monitoring endpoints and reduces the
// per-server responses into cluster-level aggregates.
package monitor

// StatsKind selects which monitoring endpoint a fetch targets.
type StatsKind string

const (
	KindVarz    StatsKind = "varz"
	KindConnz   StatsKind = "connz"
	KindSubsz   StatsKind = "subsz"
	KindHealthz StatsKind = "healthz"
)

// Varz is the subset of a NATS server's /varz document the dashboard
// aggregates. JetStream stats are only present when JetStream is enabled.
type Varz struct {
	ServerID         string         `json:"server_id"`
	ServerName       string         `json:"server_name"`
	Version          string         `json:"version"`
	Uptime           string         `json:"uptime"`
	Connections      int64          `json:"connections"`
	TotalConnections int64          `json:"total_connections"`
	Subscriptions    int64          `json:"subscriptions"`
	SlowConsumers    int64          `json:"slow_consumers"`
	InMsgs           int64          `json:"in_msgs"`
	OutMsgs          int64          `json:"out_msgs"`
	InBytes          int64          `json:"in_bytes"`
	OutBytes         int64          `json:"out_bytes"`
	Routes           int64          `json:"routes"`
	Remotes          int64          `json:"remotes"`
	Leafnodes        int64          `json:"leafnodes"`
	JetStream        *JetStreamVarz `json:"jetstream,omitempty"`
}

// JetStreamVarz mirrors the jetstream block of /varz.
type JetStreamVarz struct {
	Stats *JetStreamStats `json:"stats,omitempty"`
}

// JetStreamStats carries JetStream resource usage for one server.
type JetStreamStats struct {
	Memory         int64            `json:"memory"`
	Store          int64            `json:"storage"`
	ReservedMemory int64            `json:"reserved_memory"`
	ReservedStore  int64            `json:"reserved_storage"`
	Accounts       int64            `json:"accounts"`
	API            JetStreamAPIStat `json:"api"`
}

// JetStreamAPIStat counts JetStream API traffic.
type JetStreamAPIStat struct {
	Total  int64 `json:"total"`
	Errors int64 `json:"errors"`
}

// Connz is the subset of /connz the dashboard aggregates.
type Connz struct {
	NumConnections int64      `json:"num_connections"`
	Total          int64      `json:"total"`
	Connections    []ConnInfo `json:"connections"`
}

// ConnInfo is one client connection row from /connz.
type ConnInfo struct {
	CID      uint64 `json:"cid"`
	IP       string `json:"ip"`
	Port     int    `json:"port"`
	Name     string `json:"name,omitempty"`
	Lang     string `json:"lang,omitempty"`
	Version  string `json:"version,omitempty"`
	Uptime   string `json:"uptime,omitempty"`
	InMsgs   int64  `json:"in_msgs"`
	OutMsgs  int64  `json:"out_msgs"`
	InBytes  int64  `json:"in_bytes"`
	OutBytes int64  `json:"out_bytes"`
	Subs     int64  `json:"subscriptions"`
}

// Subsz is the subset of /subsz the dashboard aggregates.
type Subsz struct {
	NumSubs      int64   `json:"num_subscriptions"`
	NumCache     int64   `json:"num_cache"`
	NumInserts   int64   `json:"num_inserts"`
	NumRemoves   int64   `json:"num_removes"`
	NumMatches   int64   `json:"num_matches"`
	CacheHitRate float64 `json:"cache_hit_rate"`
	MaxFanout    int64   `json:"max_fanout"`
	AvgFanout    float64 `json:"avg_fanout"`
}

// Healthz is a /healthz response body.
type Healthz struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}
