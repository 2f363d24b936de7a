// Package metrics registers the observability counters and histograms
// spec.md §7 requires ("every dropped opportunity is counted in a metrics
// register"). The teacher has no metrics stack of its own; prometheus's
// client library is adopted wholesale rather than hand-rolled counters,
// per the rule that ambient concerns still reach for a real dependency.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the process-wide collector registry. A fresh (non-default)
// registry keeps these collectors out of prometheus's global default
// registry.
var Registry = prometheus.NewRegistry()

var (
	// DroppedOpportunities counts pending-tx events that produced no
	// dispatch, partitioned by reason.
	DroppedOpportunities = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fulcrum_dropped_opportunities_total",
		Help: "Pending-tx events that produced no dispatch, by reason.",
	}, []string{"reason"})

	// DispatchedCycles counts cycles actually submitted for execution.
	DispatchedCycles = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "fulcrum_dispatched_cycles_total",
		Help: "Arbitrage cycles submitted to the executor, by hop count.",
	}, []string{"hops"})

	// SearchLatency measures wall-clock time spent in one pending-tx
	// event's cycle search, to watch for deadline pressure (spec.md §5).
	SearchLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "fulcrum_search_latency_seconds",
		Help:    "Wall-clock time spent searching cycles for one pending-tx event.",
		Buckets: prometheus.ExponentialBuckets(1e-6, 2, 16), // 1µs .. ~32ms
	})

	// RefreshFailures counts failed block-boundary eth_call refreshes.
	RefreshFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "fulcrum_refresh_failures_total",
		Help: "Block-boundary pool-state refreshes that failed and were skipped.",
	})

	// OutboxDepth gauges the current depth of the SPSC outbox queue handing
	// dispatches to the I/O thread.
	OutboxDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "fulcrum_outbox_depth",
		Help: "Current number of pending dispatches queued for submission.",
	})
)

func init() {
	Registry.MustRegister(DroppedOpportunities, DispatchedCycles, SearchLatency, RefreshFailures, OutboxDepth)
}
