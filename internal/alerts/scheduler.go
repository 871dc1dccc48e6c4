package alerts

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"natsdash/internal/models"
	"natsdash/internal/monitor"
	"natsdash/internal/notify"
	"natsdash/internal/store"
	"natsdash/internal/utils"
)

// Settings keys round-tripped through the store as opaque strings.
const (
	SettingCheckIntervalMS = "monitor.check_interval_ms"
	SettingAutoStart       = "monitor.auto_start"
)

// Interval bounds in milliseconds.
const (
	DefaultIntervalMS = 30000
	MinIntervalMS     = 5000
	MaxIntervalMS     = 3600000
)

// maxClusterSweeps bounds how many clusters are swept in parallel.
const maxClusterSweeps = 4

// ErrIntervalOutOfRange is returned by SetInterval for values outside the
// allowed bounds.
var ErrIntervalOutOfRange = fmt.Errorf("interval must be between %d and %d ms", MinIntervalMS, MaxIntervalMS)

// EventSink receives persisted alert events for live dashboard push.
type EventSink interface {
	AlertEventCreated(event models.AlertEvent, ruleName, clusterName string)
}

// Scheduler owns the monitor lifecycle: a repeating timer that sweeps every
// cluster, evaluates alert rules against the aggregated totals, persists
// transitions, and dispatches notifications.
type Scheduler struct {
	repo       *store.Repository
	fetcher    *monitor.Fetcher
	evaluator  *Evaluator
	dispatcher *notify.Dispatcher
	sink       EventSink
	log        *utils.Logger

	mu       sync.Mutex
	running  bool
	interval time.Duration
	stop     chan struct{}

	// sweeping is the single-flight guard: a tick that would overlap a
	// sweep still in flight is skipped rather than queued.
	sweeping atomic.Bool
}

// NewScheduler builds a stopped scheduler. The interval is loaded from the
// store, falling back to the default when unset or invalid. sink may be nil.
func NewScheduler(repo *store.Repository, dispatcher *notify.Dispatcher, sink EventSink, log *utils.Logger) *Scheduler {
	s := &Scheduler{
		repo:       repo,
		fetcher:    monitor.NewFetcher(),
		evaluator:  NewEvaluator(),
		dispatcher: dispatcher,
		sink:       sink,
		log:        log,
		interval:   DefaultIntervalMS * time.Millisecond,
	}
	if raw, err := repo.GetSetting(context.Background(), SettingCheckIntervalMS); err == nil && raw != "" {
		if ms, err := strconv.ParseInt(raw, 10, 64); err == nil && ms >= MinIntervalMS && ms <= MaxIntervalMS {
			s.interval = time.Duration(ms) * time.Millisecond
		}
	}
	return s
}

// AutoStart starts the scheduler when the persisted auto-start flag is set.
// Called once at process boot; runtime alert state starts as not-triggered.
func (s *Scheduler) AutoStart(ctx context.Context) {
	flag, err := s.repo.GetSetting(ctx, SettingAutoStart)
	if err != nil {
		s.log.Writef("monitor: read auto-start flag: %v", err)
		return
	}
	if flag == "true" {
		s.Start()
	}
}

// Start moves the scheduler to Running, performs one immediate sweep, then
// arms the repeating timer. A no-op when already running.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.stop = make(chan struct{})
	stop := s.stop
	interval := s.interval
	s.mu.Unlock()

	if err := s.repo.SetSetting(context.Background(), SettingAutoStart, "true"); err != nil {
		s.log.Writef("monitor: persist auto-start: %v", err)
	}
	s.log.Writef("monitor: started, interval %s", interval)

	go s.run(stop, interval)
}

func (s *Scheduler) run(stop chan struct{}, interval time.Duration) {
	s.Sweep(context.Background())
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			s.Sweep(context.Background())
		}
	}
}

// Stop disarms the timer and persists auto-start=false. An in-flight sweep
// runs to completion. A no-op when already stopped.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stop)
	s.stop = nil
	s.mu.Unlock()

	if err := s.repo.SetSetting(context.Background(), SettingAutoStart, "false"); err != nil {
		s.log.Writef("monitor: persist auto-start: %v", err)
	}
	s.log.Write("monitor: stopped")
}

// Shutdown disarms the timer without touching the persisted auto-start
// flag, so a running monitor resumes on the next boot.
func (s *Scheduler) Shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return
	}
	s.running = false
	close(s.stop)
	s.stop = nil
}

// SetInterval validates and persists a new check interval. When running,
// the timer is re-armed via stop+start, which performs one extra immediate
// sweep as a side effect.
func (s *Scheduler) SetInterval(ms int64) error {
	if ms < MinIntervalMS || ms > MaxIntervalMS {
		return ErrIntervalOutOfRange
	}
	if err := s.repo.SetSetting(context.Background(), SettingCheckIntervalMS, strconv.FormatInt(ms, 10)); err != nil {
		return err
	}

	s.mu.Lock()
	s.interval = time.Duration(ms) * time.Millisecond
	wasRunning := s.running
	s.mu.Unlock()

	if wasRunning {
		s.Stop()
		s.Start()
	}
	return nil
}

// Status reports the running flag and current interval in milliseconds.
func (s *Scheduler) Status() (bool, int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running, s.interval.Milliseconds()
}

// Sweep runs one full pass over all clusters. Overlapping invocations are
// skipped by the single-flight guard. Exported so the on-demand path and
// tests can drive a sweep directly.
func (s *Scheduler) Sweep(ctx context.Context) {
	if !s.sweeping.CompareAndSwap(false, true) {
		s.log.Write("monitor: sweep still in flight, skipping tick")
		return
	}
	defer s.sweeping.Store(false)

	clusters, err := s.repo.ListClusters(ctx)
	if err != nil {
		s.log.Writef("monitor: list clusters: %v", err)
		return
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxClusterSweeps)
	for _, cluster := range clusters {
		if len(cluster.MonitoringURLs) == 0 {
			continue
		}
		cluster := cluster
		g.Go(func() error {
			// Errors are contained per cluster so one broken cluster
			// cannot abort sweeping the rest.
			if err := s.sweepCluster(gctx, cluster); err != nil {
				s.log.Writef("monitor: sweep cluster %q: %v", cluster.Name, err)
			}
			return nil
		})
	}
	_ = g.Wait()

	if ids, err := s.repo.ListAlertRuleIDs(ctx); err == nil {
		s.evaluator.Prune(ids)
	}
}

func (s *Scheduler) sweepCluster(ctx context.Context, cluster models.Cluster) error {
	rules, err := s.repo.ListEnabledAlertRulesByCluster(ctx, cluster.ID)
	if err != nil {
		return fmt.Errorf("load rules: %w", err)
	}
	if len(rules) == 0 {
		return nil
	}

	results, err := s.fetcher.CollectVarz(ctx, cluster.MonitoringURLs)
	if err != nil {
		return fmt.Errorf("collect varz: %w", err)
	}
	agg := monitor.AggregateVarz(results)

	transitions := s.evaluator.Evaluate(agg.Totals, rules)
	if len(transitions) == 0 {
		return nil
	}

	channels, err := s.repo.ListEnabledChannels(ctx)
	if err != nil {
		s.log.Writef("monitor: load channels: %v", err)
		channels = nil
	}

	for _, tr := range transitions {
		s.handleTransition(ctx, cluster, tr, channels)
	}
	return nil
}

func (s *Scheduler) handleTransition(ctx context.Context, cluster models.Cluster, tr Transition, channels []models.NotificationChannel) {
	event := notify.Event{
		RuleName:    tr.Rule.Name,
		ClusterName: cluster.Name,
		Metric:      tr.Rule.Metric,
		Operator:    tr.Rule.Operator,
		Threshold:   tr.Rule.Threshold,
		Value:       tr.Value,
		Triggered:   tr.Triggered,
		Timestamp:   time.Now().UTC(),
	}

	record := models.AlertEvent{
		AlertID:   tr.Rule.ID,
		Status:    models.AlertStatusTriggered,
		Value:     tr.Value,
		Message:   event.Message(),
		CreatedAt: event.Timestamp,
	}
	if !tr.Triggered {
		record.Status = models.AlertStatusResolved
	}

	id, err := s.repo.InsertAlertEvent(ctx, &record)
	if err != nil {
		s.log.Writef("monitor: persist alert event for rule %d: %v", tr.Rule.ID, err)
	} else {
		record.ID = id
	}

	s.log.Writef("monitor: alert %q [%s] %s (value %.2f)",
		tr.Rule.Name, cluster.Name, record.Status, tr.Value)

	if s.sink != nil {
		s.sink.AlertEventCreated(record, tr.Rule.Name, cluster.Name)
	}
	if len(channels) > 0 {
		s.dispatcher.Dispatch(ctx, event, channels)
	}
}
