// Package metrics provides Prometheus metrics for PortSense.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "portsense"
)

// HTTP metrics
var (
	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// HTTPRequestDuration tracks HTTP request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)
)

// Monitoring cycle metrics
var (
	// CycleDuration tracks how long a full monitoring cycle takes.
	CycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of a full monitoring cycle in seconds",
			Buckets:   []float64{.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	// CyclesTotal counts completed monitoring cycles.
	CyclesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "cycles_total",
			Help:      "Total completed monitoring cycles",
		},
	)

	// CyclesRejected counts RunCycle calls rejected because a cycle
	// was already running.
	CyclesRejected = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "cycles_rejected_total",
			Help:      "Cycle invocations rejected by the single-flight guard",
		},
	)

	// ContainersProcessed counts containers processed by outcome:
	// updated, unchanged, skipped, or error.
	ContainersProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "containers_processed_total",
			Help:      "Containers processed per monitoring cycle by outcome",
		},
		[]string{"outcome"},
	)
)

// Alerting metrics
var (
	// AlertsCreated counts persisted alerts by severity.
	AlertsCreated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "created_total",
			Help:      "Total alerts created, by severity",
		},
		[]string{"severity"},
	)

	// AlertsSuppressed counts triggers dropped by the cooldown filter.
	AlertsSuppressed = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "suppressed_total",
			Help:      "Triggers suppressed by the cooldown filter",
		},
	)

	// RuleErrors counts rule predicates that panicked during evaluation.
	RuleErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "alerts",
			Name:      "rule_errors_total",
			Help:      "Rule evaluation errors (treated as non-matches)",
		},
	)
)

// Notification metrics
var (
	// NotificationsSent counts delivery attempts by channel and result.
	NotificationsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "sent_total",
			Help:      "Notification delivery attempts by channel and result",
		},
		[]string{"channel", "result"},
	)

	// NotificationsRateLimited counts dispatches dropped by the
	// anti-storm limiter.
	NotificationsRateLimited = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "notify",
			Name:      "rate_limited_total",
			Help:      "Dispatches dropped by the anti-storm rate limiter",
		},
	)
)

// Streaming metrics
var (
	// SSESubscribers tracks connected SSE viewers.
	SSESubscribers = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "subscribers",
			Help:      "Number of connected SSE subscribers",
		},
	)

	// SSEEventsDropped counts events dropped for slow subscribers.
	SSEEventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "stream",
			Name:      "events_dropped_total",
			Help:      "Change events dropped because a subscriber buffer was full",
		},
	)
)

// Tracking provider metrics
var (
	// ProviderRequests counts tracking provider calls by result.
	ProviderRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tracking",
			Name:      "provider_requests_total",
			Help:      "Tracking provider requests by result",
		},
		[]string{"result"},
	)
)
