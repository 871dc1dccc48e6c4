package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	fetchTimeout = 5 * time.Second

	// maxResponseBytes bounds monitoring response bodies; connz with a
	// large connection list is the biggest realistic payload.
	maxResponseBytes = 16 * 1024 * 1024
)

// Result is the outcome of fetching one stats document from one endpoint.
// Exactly one of Data/Error is meaningful; fetch failures never escape as
// Go errors past this boundary.
type Result[T any] struct {
	Endpoint string
	Data     *T
	Error    string
}

// OK reports whether the fetch succeeded and parsed.
func (r Result[T]) OK() bool {
	return r.Error == "" && r.Data != nil
}

// Fetcher issues bounded single-endpoint monitoring requests.
type Fetcher struct {
	client *http.Client
}

// NewFetcher returns a Fetcher with the standard monitoring timeout.
func NewFetcher() *Fetcher {
	return &Fetcher{
		client: &http.Client{Timeout: fetchTimeout},
	}
}

// FetchVarz retrieves and parses /varz from one endpoint.
func (f *Fetcher) FetchVarz(ctx context.Context, endpoint string) Result[Varz] {
	return fetchInto[Varz](ctx, f, endpoint, KindVarz, "")
}

// FetchConnz retrieves and parses /connz. query may carry a result-size cap
// such as "limit=100".
func (f *Fetcher) FetchConnz(ctx context.Context, endpoint, query string) Result[Connz] {
	return fetchInto[Connz](ctx, f, endpoint, KindConnz, query)
}

// FetchSubsz retrieves and parses /subsz from one endpoint.
func (f *Fetcher) FetchSubsz(ctx context.Context, endpoint string) Result[Subsz] {
	return fetchInto[Subsz](ctx, f, endpoint, KindSubsz, "")
}

// FetchHealthz retrieves and parses /healthz. NATS answers non-2xx when
// unhealthy but still returns a status document, so the body is parsed
// before the status code is judged.
func (f *Fetcher) FetchHealthz(ctx context.Context, endpoint string) Result[Healthz] {
	body, status, err := f.get(ctx, endpoint, KindHealthz, "")
	if err != nil {
		return Result[Healthz]{Endpoint: endpoint, Error: fmt.Sprintf("%s: %v", endpoint, err)}
	}
	var h Healthz
	if jsonErr := json.Unmarshal(body, &h); jsonErr != nil || h.Status == "" {
		if status < 200 || status >= 300 {
			return Result[Healthz]{Endpoint: endpoint, Error: fmt.Sprintf("%s: unexpected status %d", endpoint, status)}
		}
		if jsonErr != nil {
			return Result[Healthz]{Endpoint: endpoint, Error: fmt.Sprintf("%s: parse healthz: %v", endpoint, jsonErr)}
		}
	}
	return Result[Healthz]{Endpoint: endpoint, Data: &h}
}

func fetchInto[T any](ctx context.Context, f *Fetcher, endpoint string, kind StatsKind, query string) Result[T] {
	body, status, err := f.get(ctx, endpoint, kind, query)
	if err != nil {
		return Result[T]{Endpoint: endpoint, Error: fmt.Sprintf("%s: %v", endpoint, err)}
	}
	if status < 200 || status >= 300 {
		return Result[T]{Endpoint: endpoint, Error: fmt.Sprintf("%s: unexpected status %d", endpoint, status)}
	}
	data := new(T)
	if err := json.Unmarshal(body, data); err != nil {
		return Result[T]{Endpoint: endpoint, Error: fmt.Sprintf("%s: parse %s: %v", endpoint, kind, err)}
	}
	return Result[T]{Endpoint: endpoint, Data: data}
}

func (f *Fetcher) get(ctx context.Context, endpoint string, kind StatsKind, query string) ([]byte, int, error) {
	url := endpoint + "/" + string(kind)
	if query != "" {
		url += "?" + query
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read body: %w", err)
	}
	return body, resp.StatusCode, nil
}
