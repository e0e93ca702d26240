// Package metrics defines and registers the custom Prometheus metrics of the
// users API. Metrics are registered with the default registry at package
// init through promauto and scraped from /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "users"

// ── User operation metrics ────────────────────────────────────────────────────

// OperationsTotal counts user operations by outcome.
// Labels:
//   - operation: signup, login, list_users, read_user, delete_user
//   - outcome: ok, bad_request, not_found, conflict, error
var OperationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "operations_total",
		Help:      "Total number of user operations, by operation and outcome.",
	},
	[]string{"operation", "outcome"},
)

// CacheLookupsTotal counts FindViewByID lookups against the Redis user cache.
// Label:
//   - result: hit, miss
var CacheLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_lookups_total",
		Help:      "Total number of user cache lookups, by result.",
	},
	[]string{"result"},
)

// ── Audit metrics ─────────────────────────────────────────────────────────────

// AuditQueueDepth tracks the number of audit events waiting in each worker channel.
// Label:
//   - worker_id: numeric worker index
var AuditQueueDepth = promauto.NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "audit_queue_depth",
		Help:      "Current number of audit events pending in each dispatcher worker channel.",
	},
	[]string{"worker_id"},
)

// AuditDroppedTotal counts audit events dropped because a worker queue was full.
var AuditDroppedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "audit_dropped_total",
		Help:      "Total number of audit events dropped on a full queue.",
	},
)
