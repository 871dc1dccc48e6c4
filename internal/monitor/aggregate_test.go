package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func okVarz(endpoint string, v Varz) Result[Varz] {
	return Result[Varz]{Endpoint: endpoint, Data: &v}
}

func failed[T any](endpoint string) Result[T] {
	return Result[T]{Endpoint: endpoint, Error: endpoint + ": connection refused"}
}

func TestAggregateVarzSumsAcrossServers(t *testing.T) {
	results := []Result[Varz]{
		okVarz("http://s1:8222", Varz{
			Connections: 10, TotalConnections: 100, Subscriptions: 5,
			SlowConsumers: 1, InMsgs: 1000, OutMsgs: 2000,
			InBytes: 4096, OutBytes: 8192, Routes: 2, Remotes: 1, Leafnodes: 3,
		}),
		okVarz("http://s2:8222", Varz{
			Connections: 20, TotalConnections: 200, Subscriptions: 7,
			SlowConsumers: 2, InMsgs: 500, OutMsgs: 700,
			InBytes: 1024, OutBytes: 2048, Routes: 2, Remotes: 1, Leafnodes: 0,
		}),
	}

	agg := AggregateVarz(results)

	assert.Equal(t, int64(30), agg.Totals.Connections)
	assert.Equal(t, int64(300), agg.Totals.TotalConnections)
	assert.Equal(t, int64(12), agg.Totals.Subscriptions)
	assert.Equal(t, int64(3), agg.Totals.SlowConsumers)
	assert.Equal(t, int64(1500), agg.Totals.InMsgs)
	assert.Equal(t, int64(2700), agg.Totals.OutMsgs)
	assert.Equal(t, int64(5120), agg.Totals.InBytes)
	assert.Equal(t, int64(10240), agg.Totals.OutBytes)
	assert.Equal(t, int64(4), agg.Totals.Routes)
	assert.Equal(t, int64(2), agg.Totals.Remotes)
	assert.Equal(t, int64(3), agg.Totals.Leafnodes)
	assert.Nil(t, agg.Totals.JetStream)
	require.Len(t, agg.Servers, 2)
	assert.Empty(t, agg.Servers[0].Error)
	assert.Empty(t, agg.Servers[1].Error)
}

func TestAggregateVarzJetStreamAccountsTakMax(t *testing.T) {
	js := func(mem, accounts, apiTotal, apiErrors int64) *JetStreamVarz {
		return &JetStreamVarz{Stats: &JetStreamStats{
			Memory: mem, Store: mem * 2, ReservedMemory: 100, ReservedStore: 200,
			Accounts: accounts, API: JetStreamAPIStat{Total: apiTotal, Errors: apiErrors},
		}}
	}
	results := []Result[Varz]{
		okVarz("http://s1:8222", Varz{JetStream: js(1000, 4, 50, 1)},
		),
		okVarz("http://s2:8222", Varz{JetStream: js(500, 4, 30, 0)}),
	}

	agg := AggregateVarz(results)

	require.NotNil(t, agg.Totals.JetStream)
	assert.Equal(t, int64(1500), agg.Totals.JetStream.Memory)
	assert.Equal(t, int64(3000), agg.Totals.JetStream.Store)
	assert.Equal(t, int64(200), agg.Totals.JetStream.ReservedMemory)
	assert.Equal(t, int64(400), agg.Totals.JetStream.ReservedStore)
	// Each server reports the same multi-tenant account count.
	assert.Equal(t, int64(4), agg.Totals.JetStream.Accounts)
	assert.Equal(t, int64(80), agg.Totals.JetStream.APITotal)
	assert.Equal(t, int64(1), agg.Totals.JetStream.APIErrors)
}

func TestAggregateVarzAllFailuresYieldZeroTotals(t *testing.T) {
	results := []Result[Varz]{
		failed[Varz]("http://s1:8222"),
		failed[Varz]("http://s2:8222"),
	}

	agg := AggregateVarz(results)

	assert.Equal(t, VarzTotals{}, agg.Totals)
	require.Len(t, agg.Servers, 2)
	for _, row := range agg.Servers {
		assert.NotEmpty(t, row.Error)
		assert.Equal(t, Varz{}, row.Stats)
	}
}

func TestAggregateVarzPartialFailureExcludedFromTotals(t *testing.T) {
	results := []Result[Varz]{
		okVarz("http://s1:8222", Varz{Connections: 15}),
		failed[Varz]("http://s2:8222"),
	}

	agg := AggregateVarz(results)

	assert.Equal(t, int64(15), agg.Totals.Connections)
	require.Len(t, agg.Servers, 2)
	assert.Empty(t, agg.Servers[0].Error)
	assert.NotEmpty(t, agg.Servers[1].Error)
}

func TestAggregateConnzSortsGloballyByCID(t *testing.T) {
	results := []Result[Connz]{
		{Endpoint: "http://s1:8222", Data: &Connz{
			NumConnections: 2,
			Connections:    []ConnInfo{{CID: 5}, {CID: 1}},
		}},
		{Endpoint: "http://s2:8222", Data: &Connz{
			NumConnections: 2,
			Connections:    []ConnInfo{{CID: 3}, {CID: 2}},
		}},
	}

	agg := AggregateConnz(results)

	assert.Equal(t, int64(4), agg.TotalConnections)
	require.Len(t, agg.Connections, 4)
	cids := make([]uint64, 0, 4)
	for _, conn := range agg.Connections {
		cids = append(cids, conn.CID)
	}
	assert.Equal(t, []uint64{1, 2, 3, 5}, cids)
}

func TestAggregateConnzFailedEndpointContributesErrorRow(t *testing.T) {
	results := []Result[Connz]{
		{Endpoint: "http://s1:8222", Data: &Connz{NumConnections: 3, Connections: []ConnInfo{{CID: 9}}}},
		failed[Connz]("http://s2:8222"),
	}

	agg := AggregateConnz(results)

	assert.Equal(t, int64(3), agg.TotalConnections)
	require.Len(t, agg.Servers, 2)
	assert.Equal(t, int64(0), agg.Servers[1].NumConnections)
	assert.NotEmpty(t, agg.Servers[1].Error)
	assert.Len(t, agg.Connections, 1)
}

func TestAggregateSubszAveragesOverRespondersOnly(t *testing.T) {
	results := []Result[Subsz]{
		{Endpoint: "http://s1:8222", Data: &Subsz{
			NumSubs: 10, NumCache: 4, NumInserts: 20, NumRemoves: 5, NumMatches: 100,
			CacheHitRate: 0.8, MaxFanout: 7, AvgFanout: 2.0,
		}},
		{Endpoint: "http://s2:8222", Data: &Subsz{
			NumSubs: 6, NumCache: 2, NumInserts: 10, NumRemoves: 1, NumMatches: 40,
			CacheHitRate: 0.6, MaxFanout: 12, AvgFanout: 4.0,
		}},
		failed[Subsz]("http://s3:8222"),
	}

	agg := AggregateSubsz(results)

	assert.Equal(t, int64(16), agg.NumSubs)
	assert.Equal(t, int64(6), agg.NumCache)
	assert.Equal(t, int64(30), agg.NumInserts)
	assert.Equal(t, int64(6), agg.NumRemoves)
	assert.Equal(t, int64(140), agg.NumMatches)
	assert.Equal(t, int64(12), agg.MaxFanout)
	// Means divide by the two responders, not by three endpoints.
	assert.InDelta(t, 0.7, agg.AvgCacheHitRate, 1e-9)
	assert.InDelta(t, 3.0, agg.AvgFanout, 1e-9)
}

func TestAggregateSubszZeroRespondersZeroAverages(t *testing.T) {
	agg := AggregateSubsz([]Result[Subsz]{failed[Subsz]("http://s1:8222")})
	assert.Zero(t, agg.AvgCacheHitRate)
	assert.Zero(t, agg.AvgFanout)
}

func TestAggregateHealthzOverallStatus(t *testing.T) {
	ok := func(endpoint string) Result[Healthz] {
		return Result[Healthz]{Endpoint: endpoint, Data: &Healthz{Status: "ok"}}
	}

	t.Run("all ok", func(t *testing.T) {
		agg := AggregateHealthz([]Result[Healthz]{ok("a"), ok("b"), ok("c")})
		assert.Equal(t, HealthOK, agg.Status)
		assert.Equal(t, 3, agg.HealthyCount)
	})

	t.Run("mixed is degraded", func(t *testing.T) {
		agg := AggregateHealthz([]Result[Healthz]{ok("a"), failed[Healthz]("b"), ok("c")})
		assert.Equal(t, HealthDegraded, agg.Status)
		assert.Equal(t, 2, agg.HealthyCount)
		assert.Equal(t, 3, agg.TotalCount)
	})

	t.Run("all failed is error", func(t *testing.T) {
		agg := AggregateHealthz([]Result[Healthz]{
			failed[Healthz]("a"), failed[Healthz]("b"), failed[Healthz]("c"),
		})
		assert.Equal(t, HealthError, agg.Status)
		assert.Equal(t, 0, agg.HealthyCount)
	})
}

func TestAggregateHealthzUnhealthyPayloadCountsAgainstHealthy(t *testing.T) {
	results := []Result[Healthz]{
		{Endpoint: "a", Data: &Healthz{Status: "ok"}},
		// Fetched fine, but the server reports itself unavailable.
		{Endpoint: "b", Data: &Healthz{Status: "unavailable", Error: "jetstream not ready"}},
	}

	agg := AggregateHealthz(results)

	assert.Equal(t, HealthDegraded, agg.Status)
	assert.Equal(t, 1, agg.HealthyCount)
	assert.Equal(t, "unavailable", agg.Servers[1].Status)
}

func TestAggregateInputsNotMutated(t *testing.T) {
	conns := []ConnInfo{{CID: 5}, {CID: 1}}
	results := []Result[Connz]{
		{Endpoint: "http://s1:8222", Data: &Connz{NumConnections: 2, Connections: conns}},
	}

	_ = AggregateConnz(results)

	assert.Equal(t, uint64(5), conns[0].CID)
	assert.Equal(t, uint64(1), conns[1].CID)
}
