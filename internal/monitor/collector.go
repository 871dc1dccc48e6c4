package monitor

import (
	"context"
	"errors"
	"sync"
)

// ErrNoEndpoints is returned when a collect call is made with an empty
// endpoint list. Callers filter the requested subset against the cluster's
// configured endpoints before dispatch and must reject an empty result.
var ErrNoEndpoints = errors.New("no monitoring endpoints selected")

// CollectVarz fetches /varz from every endpoint concurrently and returns
// one result per endpoint in input order.
func (f *Fetcher) CollectVarz(ctx context.Context, endpoints []string) ([]Result[Varz], error) {
	return collect(ctx, endpoints, f.FetchVarz)
}

// CollectConnz fetches /connz from every endpoint concurrently. query is
// forwarded verbatim to each endpoint (e.g. a limit cap).
func (f *Fetcher) CollectConnz(ctx context.Context, endpoints []string, query string) ([]Result[Connz], error) {
	return collect(ctx, endpoints, func(ctx context.Context, endpoint string) Result[Connz] {
		return f.FetchConnz(ctx, endpoint, query)
	})
}

// CollectSubsz fetches /subsz from every endpoint concurrently.
func (f *Fetcher) CollectSubsz(ctx context.Context, endpoints []string) ([]Result[Subsz], error) {
	return collect(ctx, endpoints, f.FetchSubsz)
}

// CollectHealthz fetches /healthz from every endpoint concurrently.
func (f *Fetcher) CollectHealthz(ctx context.Context, endpoints []string) ([]Result[Healthz], error) {
	return collect(ctx, endpoints, f.FetchHealthz)
}

// collect starts all fetches at once and waits for every one to settle.
// One endpoint's failure never cancels or delays another's result, so a
// plain WaitGroup is used rather than an errgroup with shared context.
func collect[T any](ctx context.Context, endpoints []string, fetch func(context.Context, string) Result[T]) ([]Result[T], error) {
	if len(endpoints) == 0 {
		return nil, ErrNoEndpoints
	}
	results := make([]Result[T], len(endpoints))
	var wg sync.WaitGroup
	for i, endpoint := range endpoints {
		wg.Add(1)
		go func(i int, endpoint string) {
			defer wg.Done()
			results[i] = fetch(ctx, endpoint)
		}(i, endpoint)
	}
	wg.Wait()
	return results, nil
}
