// Package observability provides Prometheus metrics and HTTP middleware for
// monitoring the agentrelay adapter.
package observability

import "github.com/prometheus/client_golang/prometheus"

// PermissionLatencyBuckets covers the range a human approving a tool call
// actually takes: from near-instant (an already-open approval UI) out to
// several minutes (someone stepped away).
var PermissionLatencyBuckets = []float64{0.5, 1, 2, 5, 15, 30, 60, 120, 300, 600}

var (
	// RequestsTotal counts all HTTP requests by method, path and status class.
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentrelay_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	// RequestDuration records HTTP request duration in seconds by method and path.
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "agentrelay_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	// SessionsActive tracks the number of live sessions tracked by the manager.
	SessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "agentrelay_sessions_active",
			Help: "Sessions currently tracked by the session manager",
		},
	)

	// SessionsCreatedTotal counts sessions created since process start.
	SessionsCreatedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "agentrelay_sessions_created_total",
			Help: "Total sessions created",
		},
	)

	// SSEConnectionsActive tracks the number of open event-stream responses.
	SSEConnectionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "agentrelay_sse_connections_active",
			Help: "Active SSE event-stream connections",
		},
	)

	// TranslatorEventsTotal counts AgentEvents emitted by the Stream
	// Translator, by event type.
	TranslatorEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentrelay_translator_events_total",
			Help: "AgentEvents emitted by the stream translator",
		},
		[]string{"event_type"},
	)

	// PermissionRequestsTotal counts permission_request events raised by the
	// gate, by eventual resolution outcome.
	PermissionRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentrelay_permission_requests_total",
			Help: "Permission requests raised, by resolution",
		},
		[]string{"behavior"},
	)

	// PermissionLatency records the time between a permission_request being
	// raised and its resolution.
	PermissionLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "agentrelay_permission_latency_seconds",
			Help:    "Time between a permission request and its resolution",
			Buckets: PermissionLatencyBuckets,
		},
	)

	// ToolExecutionsTotal counts tool execution requests the subprocess
	// engine hands to the host, by name and outcome; calls rejected by the
	// allow list or lacking an executor count with status "error".
	ToolExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "agentrelay_tool_executions_total",
			Help: "Tool executions dispatched through the MCP registry",
		},
		[]string{"tool_name", "status"},
	)

	// SessionRateLimitRejectedTotal counts POST /sessions requests rejected
	// by the session-creation rate limiter.
	SessionRateLimitRejectedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "agentrelay_session_ratelimit_rejected_total",
			Help: "POST /sessions requests rejected by the rate limiter",
		},
	)

	// SessionsReapedTotal counts sessions aborted by the idle-session reaper.
	SessionsReapedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "agentrelay_sessions_reaped_total",
			Help: "Sessions aborted by the idle-session reaper",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		SessionsActive,
		SessionsCreatedTotal,
		SSEConnectionsActive,
		TranslatorEventsTotal,
		PermissionRequestsTotal,
		PermissionLatency,
		ToolExecutionsTotal,
		SessionRateLimitRejectedTotal,
		SessionsReapedTotal,
	)
}
