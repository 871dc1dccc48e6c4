package monitor

import "sort"

// VarzAggregate is the cluster-level reduction of per-server /varz results.
type VarzAggregate struct {
	Totals  VarzTotals   `json:"totals"`
	Servers []VarzServer `json:"servers"`
}

// VarzTotals sums additive counters across responding servers. JetStream
// is nil when no responding server reported JetStream stats.
type VarzTotals struct {
	Connections      int64            `json:"connections"`
	TotalConnections int64            `json:"total_connections"`
	Subscriptions    int64            `json:"subscriptions"`
	SlowConsumers    int64            `json:"slow_consumers"`
	InMsgs           int64            `json:"in_msgs"`
	OutMsgs          int64            `json:"out_msgs"`
	InBytes          int64            `json:"in_bytes"`
	OutBytes         int64            `json:"out_bytes"`
	Routes           int64            `json:"routes"`
	Remotes          int64            `json:"remotes"`
	Leafnodes        int64            `json:"leafnodes"`
	JetStream        *JetStreamTotals `json:"jetstream,omitempty"`
}

// JetStreamTotals sums JetStream usage across servers. Accounts is the max
// across servers: every server in a cluster reports the same multi-tenant
// account count, not a partition of it.
type JetStreamTotals struct {
	Memory         int64 `json:"memory"`
	Store          int64 `json:"storage"`
	ReservedMemory int64 `json:"reserved_memory"`
	ReservedStore  int64 `json:"reserved_storage"`
	Accounts       int64 `json:"accounts"`
	APITotal       int64 `json:"api_total"`
	APIErrors      int64 `json:"api_errors"`
}

// VarzServer is one endpoint's row kept alongside the totals for display.
// Failed endpoints carry zeroed stats and their error string.
type VarzServer struct {
	Endpoint string `json:"endpoint"`
	Stats    Varz   `json:"stats"`
	Error    string `json:"error,omitempty"`
}

// AggregateVarz reduces per-endpoint varz results to cluster totals.
// Failed results contribute a zeroed row and are excluded from totals.
func AggregateVarz(results []Result[Varz]) VarzAggregate {
	agg := VarzAggregate{Servers: make([]VarzServer, 0, len(results))}
	for _, r := range results {
		if !r.OK() {
			agg.Servers = append(agg.Servers, VarzServer{Endpoint: r.Endpoint, Error: r.Error})
			continue
		}
		v := *r.Data
		agg.Servers = append(agg.Servers, VarzServer{Endpoint: r.Endpoint, Stats: v})

		t := &agg.Totals
		t.Connections += v.Connections
		t.TotalConnections += v.TotalConnections
		t.Subscriptions += v.Subscriptions
		t.SlowConsumers += v.SlowConsumers
		t.InMsgs += v.InMsgs
		t.OutMsgs += v.OutMsgs
		t.InBytes += v.InBytes
		t.OutBytes += v.OutBytes
		t.Routes += v.Routes
		t.Remotes += v.Remotes
		t.Leafnodes += v.Leafnodes

		if v.JetStream == nil || v.JetStream.Stats == nil {
			continue
		}
		js := v.JetStream.Stats
		if t.JetStream == nil {
			t.JetStream = &JetStreamTotals{}
		}
		t.JetStream.Memory += js.Memory
		t.JetStream.Store += js.Store
		t.JetStream.ReservedMemory += js.ReservedMemory
		t.JetStream.ReservedStore += js.ReservedStore
		if js.Accounts > t.JetStream.Accounts {
			t.JetStream.Accounts = js.Accounts
		}
		t.JetStream.APITotal += js.API.Total
		t.JetStream.APIErrors += js.API.Errors
	}
	return agg
}

// TaggedConn is one client connection annotated with its source endpoint.
type TaggedConn struct {
	Endpoint string `json:"endpoint"`
	ConnInfo
}

// ConnzServer is one endpoint's connection count row.
type ConnzServer struct {
	Endpoint       string `json:"endpoint"`
	NumConnections int64  `json:"num_connections"`
	Error          string `json:"error,omitempty"`
}

// ConnzAggregate is the cluster-level reduction of per-server /connz results.
type ConnzAggregate struct {
	TotalConnections int64         `json:"total_connections"`
	Connections      []TaggedConn  `json:"connections"`
	Servers          []ConnzServer `json:"servers"`
}

// AggregateConnz sums live connection counts and concatenates every
// successful endpoint's connection list, sorted ascending by CID.
func AggregateConnz(results []Result[Connz]) ConnzAggregate {
	agg := ConnzAggregate{
		Connections: make([]TaggedConn, 0),
		Servers:     make([]ConnzServer, 0, len(results)),
	}
	for _, r := range results {
		if !r.OK() {
			agg.Servers = append(agg.Servers, ConnzServer{Endpoint: r.Endpoint, Error: r.Error})
			continue
		}
		agg.TotalConnections += r.Data.NumConnections
		agg.Servers = append(agg.Servers, ConnzServer{Endpoint: r.Endpoint, NumConnections: r.Data.NumConnections})
		for _, conn := range r.Data.Connections {
			agg.Connections = append(agg.Connections, TaggedConn{Endpoint: r.Endpoint, ConnInfo: conn})
		}
	}
	sort.Slice(agg.Connections, func(i, j int) bool {
		return agg.Connections[i].CID < agg.Connections[j].CID
	})
	return agg
}

// SubszServer is one endpoint's subscription stats row.
type SubszServer struct {
	Endpoint string `json:"endpoint"`
	Stats    Subsz  `json:"stats"`
	Error    string `json:"error,omitempty"`
}

// SubszAggregate is the cluster-level reduction of per-server /subsz results.
// Rate and fanout averages are arithmetic means over responding servers.
type SubszAggregate struct {
	NumSubs         int64         `json:"num_subscriptions"`
	NumCache        int64         `json:"num_cache"`
	NumInserts      int64         `json:"num_inserts"`
	NumRemoves      int64         `json:"num_removes"`
	NumMatches      int64         `json:"num_matches"`
	MaxFanout       int64         `json:"max_fanout"`
	AvgCacheHitRate float64       `json:"cache_hit_rate"`
	AvgFanout       float64       `json:"avg_fanout"`
	Servers         []SubszServer `json:"servers"`
}

// AggregateSubsz sums counters, takes the max of per-server max-fanout, and
// averages cache-hit-rate and avg-fanout over successful results only.
func AggregateSubsz(results []Result[Subsz]) SubszAggregate {
	agg := SubszAggregate{Servers: make([]SubszServer, 0, len(results))}
	var (
		hitRateSum float64
		fanoutSum  float64
		responded  int
	)
	for _, r := range results {
		if !r.OK() {
			agg.Servers = append(agg.Servers, SubszServer{Endpoint: r.Endpoint, Error: r.Error})
			continue
		}
		s := *r.Data
		agg.Servers = append(agg.Servers, SubszServer{Endpoint: r.Endpoint, Stats: s})
		agg.NumSubs += s.NumSubs
		agg.NumCache += s.NumCache
		agg.NumInserts += s.NumInserts
		agg.NumRemoves += s.NumRemoves
		agg.NumMatches += s.NumMatches
		if s.MaxFanout > agg.MaxFanout {
			agg.MaxFanout = s.MaxFanout
		}
		hitRateSum += s.CacheHitRate
		fanoutSum += s.AvgFanout
		responded++
	}
	if responded > 0 {
		agg.AvgCacheHitRate = hitRateSum / float64(responded)
		agg.AvgFanout = fanoutSum / float64(responded)
	}
	return agg
}

// Overall health statuses.
const (
	HealthOK       = "ok"
	HealthDegraded = "degraded"
	HealthError    = "error"
)

// HealthzServer is one endpoint's health row: the reported status for
// responding endpoints, or the fetch error otherwise.
type HealthzServer struct {
	Endpoint string `json:"endpoint"`
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
}

// HealthzAggregate is the cluster-level health summary.
type HealthzAggregate struct {
	Status       string          `json:"status"`
	HealthyCount int             `json:"healthy_count"`
	TotalCount   int             `json:"total_count"`
	Servers      []HealthzServer `json:"servers"`
}

// AggregateHealthz derives the overall cluster status: ok when every
// endpoint is healthy, error when none is, degraded otherwise. An endpoint
// that fetched fine but reports a non-"ok" status counts as unhealthy.
func AggregateHealthz(results []Result[Healthz]) HealthzAggregate {
	agg := HealthzAggregate{
		TotalCount: len(results),
		Servers:    make([]HealthzServer, 0, len(results)),
	}
	for _, r := range results {
		if !r.OK() {
			agg.Servers = append(agg.Servers, HealthzServer{Endpoint: r.Endpoint, Status: HealthError, Error: r.Error})
			continue
		}
		row := HealthzServer{Endpoint: r.Endpoint, Status: r.Data.Status, Error: r.Data.Error}
		agg.Servers = append(agg.Servers, row)
		if r.Data.Status == HealthOK {
			agg.HealthyCount++
		}
	}
	switch {
	case agg.TotalCount > 0 && agg.HealthyCount == agg.TotalCount:
		agg.Status = HealthOK
	case agg.HealthyCount == 0:
		agg.Status = HealthError
	default:
		agg.Status = HealthDegraded
	}
	return agg
}
