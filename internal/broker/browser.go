// Package broker browses JetStream resources (streams, consumers, KV and
// object buckets) over a cached NATS connection per cluster. All access is
// read-only.
package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"natsdash/internal/models"
)

const connectTimeout = 5 * time.Second

// Browser caches one NATS connection per cluster. Connections are lazily
// opened and dropped when the server closes them or the cluster's URL
// changes.
type Browser struct {
	mu    sync.Mutex
	conns map[int64]*clusterConn
}

type clusterConn struct {
	url string
	nc  *nats.Conn
	js  nats.JetStreamContext
}

// NewBrowser returns an empty connection cache.
func NewBrowser() *Browser {
	return &Browser{conns: make(map[int64]*clusterConn)}
}

// Close closes every cached connection. Called on shutdown.
func (b *Browser) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, cc := range b.conns {
		cc.nc.Close()
		delete(b.conns, id)
	}
}

// Invalidate drops the cached connection for a cluster, e.g. after its URL
// was edited or the cluster was deleted.
func (b *Browser) Invalidate(clusterID int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cc, ok := b.conns[clusterID]; ok {
		cc.nc.Close()
		delete(b.conns, clusterID)
	}
}

func (b *Browser) jetStream(cluster *models.Cluster) (nats.JetStreamContext, error) {
	if cluster.NATSURL == "" {
		return nil, fmt.Errorf("cluster %q has no NATS URL configured", cluster.Name)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if cc, ok := b.conns[cluster.ID]; ok {
		if cc.url == cluster.NATSURL && cc.nc.IsConnected() {
			return cc.js, nil
		}
		cc.nc.Close()
		delete(b.conns, cluster.ID)
	}

	nc, err := nats.Connect(cluster.NATSURL,
		nats.Name("natsdash"),
		nats.Timeout(connectTimeout),
		nats.MaxReconnects(2),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", cluster.NATSURL, err)
	}
	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("jetstream context: %w", err)
	}
	b.conns[cluster.ID] = &clusterConn{url: cluster.NATSURL, nc: nc, js: js}
	return js, nil
}

// ListStreams returns info for every stream on the cluster.
func (b *Browser) ListStreams(ctx context.Context, cluster *models.Cluster) ([]*nats.StreamInfo, error) {
	js, err := b.jetStream(cluster)
	if err != nil {
		return nil, err
	}
	streams := make([]*nats.StreamInfo, 0)
	for info := range js.Streams(nats.Context(ctx)) {
		streams = append(streams, info)
	}
	return streams, nil
}

// StreamInfo returns one stream's config and state.
func (b *Browser) StreamInfo(ctx context.Context, cluster *models.Cluster, stream string) (*nats.StreamInfo, error) {
	js, err := b.jetStream(cluster)
	if err != nil {
		return nil, err
	}
	return js.StreamInfo(stream, nats.Context(ctx))
}

// ListConsumers returns info for every consumer on a stream.
func (b *Browser) ListConsumers(ctx context.Context, cluster *models.Cluster, stream string) ([]*nats.ConsumerInfo, error) {
	js, err := b.jetStream(cluster)
	if err != nil {
		return nil, err
	}
	consumers := make([]*nats.ConsumerInfo, 0)
	for info := range js.Consumers(stream, nats.Context(ctx)) {
		consumers = append(consumers, info)
	}
	return consumers, nil
}

// ConsumerInfo returns one consumer's config and state.
func (b *Browser) ConsumerInfo(ctx context.Context, cluster *models.Cluster, stream, consumer string) (*nats.ConsumerInfo, error) {
	js, err := b.jetStream(cluster)
	if err != nil {
		return nil, err
	}
	return js.ConsumerInfo(stream, consumer, nats.Context(ctx))
}

// KeyValueBuckets returns the names of every KV bucket on the cluster.
func (b *Browser) KeyValueBuckets(ctx context.Context, cluster *models.Cluster) ([]string, error) {
	js, err := b.jetStream(cluster)
	if err != nil {
		return nil, err
	}
	buckets := make([]string, 0)
	for name := range js.KeyValueStoreNames() {
		buckets = append(buckets, name)
	}
	return buckets, nil
}

// KeyValueKeys returns the keys in one KV bucket.
func (b *Browser) KeyValueKeys(ctx context.Context, cluster *models.Cluster, bucket string) ([]string, error) {
	js, err := b.jetStream(cluster)
	if err != nil {
		return nil, err
	}
	kv, err := js.KeyValue(bucket)
	if err != nil {
		return nil, fmt.Errorf("open bucket %q: %w", bucket, err)
	}
	keys, err := kv.Keys(nats.Context(ctx))
	if err == nats.ErrNoKeysFound {
		return []string{}, nil
	}
	return keys, err
}

// ObjectBuckets returns the names of every object-store bucket.
func (b *Browser) ObjectBuckets(ctx context.Context, cluster *models.Cluster) ([]string, error) {
	js, err := b.jetStream(cluster)
	if err != nil {
		return nil, err
	}
	buckets := make([]string, 0)
	for name := range js.ObjectStoreNames(nats.Context(ctx)) {
		buckets = append(buckets, name)
	}
	return buckets, nil
}

// ObjectList returns the objects in one object-store bucket.
func (b *Browser) ObjectList(ctx context.Context, cluster *models.Cluster, bucket string) ([]*nats.ObjectInfo, error) {
	js, err := b.jetStream(cluster)
	if err != nil {
		return nil, err
	}
	obs, err := js.ObjectStore(bucket)
	if err != nil {
		return nil, fmt.Errorf("open bucket %q: %w", bucket, err)
	}
	objects, err := obs.List(nats.Context(ctx))
	if err == nats.ErrNoObjectsFound {
		return []*nats.ObjectInfo{}, nil
	}
	return objects, err
}
