// Package metrics provides Prometheus collectors for the gateway and the
// client-side mirror.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Gateway ────────────────────────────────────────────────────────────────

// HTTPRequests counts gateway requests by route pattern, method and status.
var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pomo",
	Name:      "http_requests_total",
	Help:      "Total gateway HTTP requests.",
}, []string{"route", "method", "status"})

// HTTPLatency tracks gateway request duration in seconds.
var HTTPLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: "pomo",
	Name:      "http_request_duration_seconds",
	Help:      "Gateway HTTP request duration in seconds.",
	Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
}, []string{"route"})

// SessionsRecorded counts sessions stored through the gateway, by mode.
var SessionsRecorded = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pomo",
	Name:      "sessions_recorded_total",
	Help:      "Total sessions recorded.",
}, []string{"mode"})

// TasksCreated counts tasks created through the gateway.
var TasksCreated = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: "pomo",
	Name:      "tasks_created_total",
	Help:      "Total tasks created.",
})

// StoreErrors counts repository failures surfaced as 500s.
var StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pomo",
	Name:      "store_errors_total",
	Help:      "Total storage failures by operation.",
}, []string{"op"})

// ─── Mirror ─────────────────────────────────────────────────────────────────

// MirrorQueueDepth is the number of gateway writes waiting to be sent.
var MirrorQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: "pomo",
	Name:      "mirror_queue_depth",
	Help:      "Gateway writes waiting in the mirror queue.",
})

// MirrorRetries counts retried gateway writes by operation.
var MirrorRetries = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pomo",
	Name:      "mirror_retries_total",
	Help:      "Total retried gateway writes.",
}, []string{"op"})

// MirrorDropped counts writes abandoned after exhausting retries or
// overflowing the queue.
var MirrorDropped = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: "pomo",
	Name:      "mirror_dropped_total",
	Help:      "Total gateway writes dropped.",
}, []string{"op", "reason"})
