package models

import "time"

// Alert metrics evaluated against aggregated varz totals.
const (
	MetricConnections   = "connections"
	MetricSubscriptions = "subscriptions"
	MetricSlowConsumers = "slow_consumers"
	// The rate metrics compare against cumulative in/out message counts,
	// not a per-second derivative. Names are kept for store compatibility.
	MetricInMsgsRate  = "in_msgs_rate"
	MetricOutMsgsRate = "out_msgs_rate"
)

// Comparison operators for alert rules.
const (
	OperatorGT  = "gt"
	OperatorLT  = "lt"
	OperatorGTE = "gte"
	OperatorLTE = "lte"
)

// AlertRule is a user-defined threshold on a cluster-level metric.
type AlertRule struct {
	ID        int64     `json:"id"`
	ClusterID int64     `json:"cluster_id"`
	Name      string    `json:"name"`
	Metric    string    `json:"metric"`
	Operator  string    `json:"operator"`
	Threshold float64   `json:"threshold"`
	Enabled   bool      `json:"enabled"`
	CreatedAt time.Time `json:"created_at"`
}

// Alert event statuses.
const (
	AlertStatusTriggered = "triggered"
	AlertStatusResolved  = "resolved"
)

// AlertEvent is one persisted edge transition of a rule. Append-only.
type AlertEvent struct {
	ID        int64     `json:"id"`
	AlertID   int64     `json:"alert_id"`
	Status    string    `json:"status"`
	Value     float64   `json:"value"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// ValidMetric reports whether m is an evaluable alert metric.
func ValidMetric(m string) bool {
	switch m {
	case MetricConnections, MetricSubscriptions, MetricSlowConsumers, MetricInMsgsRate, MetricOutMsgsRate:
		return true
	}
	return false
}

// ValidOperator reports whether op is a supported comparison.
func ValidOperator(op string) bool {
	switch op {
	case OperatorGT, OperatorLT, OperatorGTE, OperatorLTE:
		return true
	}
	return false
}

// OperatorSymbol renders the comparison for notification text.
func OperatorSymbol(op string) string {
	switch op {
	case OperatorGT:
		return ">"
	case OperatorLT:
		return "<"
	case OperatorGTE:
		return ">="
	case OperatorLTE:
		return "<="
	}
	return op
}
