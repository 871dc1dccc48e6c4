// Package alerts evaluates threshold rules against aggregated cluster stats
// and drives the scheduled monitoring sweeps.
package alerts

import (
	"sync"

	"natsdash/internal/models"
	"natsdash/internal/monitor"
)

// Transition is one detected edge: a rule whose triggered state changed
// since the previous evaluation.
type Transition struct {
	Rule      models.AlertRule
	Value     float64
	Triggered bool
}

// Evaluator remembers each rule's last triggered state for the lifetime of
// the process. State is not persisted: after a restart every rule starts as
// not-triggered, so a still-breached rule re-fires on the next sweep.
type Evaluator struct {
	mu        sync.Mutex
	lastState map[int64]bool
}

// NewEvaluator returns an Evaluator with empty runtime state.
func NewEvaluator() *Evaluator {
	return &Evaluator{lastState: make(map[int64]bool)}
}

// Evaluate compares every enabled rule against the cluster totals and
// returns one transition per rule whose triggered state changed. Unchanged
// rules produce nothing. Disabled rules are skipped without reading or
// updating their remembered state.
func (e *Evaluator) Evaluate(totals monitor.VarzTotals, rules []models.AlertRule) []Transition {
	e.mu.Lock()
	defer e.mu.Unlock()

	var transitions []Transition
	for _, rule := range rules {
		if !rule.Enabled {
			continue
		}
		value, ok := metricValue(totals, rule.Metric)
		if !ok {
			continue
		}
		triggered := compare(value, rule.Operator, rule.Threshold)
		if triggered == e.lastState[rule.ID] {
			continue
		}
		e.lastState[rule.ID] = triggered
		transitions = append(transitions, Transition{Rule: rule, Value: value, Triggered: triggered})
	}
	return transitions
}

// Prune drops remembered state for rules that no longer exist. Stale
// entries are harmless; this just keeps the map from growing unbounded.
func (e *Evaluator) Prune(existingIDs []int64) {
	existing := make(map[int64]struct{}, len(existingIDs))
	for _, id := range existingIDs {
		existing[id] = struct{}{}
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	for id := range e.lastState {
		if _, ok := existing[id]; !ok {
			delete(e.lastState, id)
		}
	}
}

// metricValue maps an alert metric to its field in the varz totals. The
// rate metrics read cumulative message counts; see models metric constants.
func metricValue(totals monitor.VarzTotals, metric string) (float64, bool) {
	switch metric {
	case models.MetricConnections:
		return float64(totals.Connections), true
	case models.MetricSubscriptions:
		return float64(totals.Subscriptions), true
	case models.MetricSlowConsumers:
		return float64(totals.SlowConsumers), true
	case models.MetricInMsgsRate:
		return float64(totals.InMsgs), true
	case models.MetricOutMsgsRate:
		return float64(totals.OutMsgs), true
	}
	return 0, false
}

func compare(value float64, operator string, threshold float64) bool {
	switch operator {
	case models.OperatorGT:
		return value > threshold
	case models.OperatorLT:
		return value < threshold
	case models.OperatorGTE:
		return value >= threshold
	case models.OperatorLTE:
		return value <= threshold
	}
	return false
}
