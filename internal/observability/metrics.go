package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce      sync.Once
	apiRequestsTotal  *prometheus.CounterVec
	apiLatencySeconds *prometheus.HistogramVec
	apiErrorsTotal    *prometheus.CounterVec
	queriesTotal      *prometheus.CounterVec
	toolCallsTotal    *prometheus.CounterVec
	activeSessions    prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used by the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		queriesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_queries_total",
			Help: "Natural-language queries handled by query agents, by outcome.",
		}, []string{"outcome"})

		toolCallsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "agent_tool_calls_total",
			Help: "Tool invocations made on behalf of query agents.",
		}, []string{"tool", "outcome"})

		activeSessions = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "agent_active_sessions",
			Help: "Number of open admin query sessions.",
		})

		prometheus.MustRegister(apiRequestsTotal, apiLatencySeconds, apiErrorsTotal, queriesTotal, toolCallsTotal, activeSessions)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// Queries exposes the query outcome counter.
func Queries() *prometheus.CounterVec {
	RegisterMetrics()
	return queriesTotal
}

// ToolCalls exposes the tool invocation counter.
func ToolCalls() *prometheus.CounterVec {
	RegisterMetrics()
	return toolCallsTotal
}

// ActiveSessions exposes the open session gauge.
func ActiveSessions() prometheus.Gauge {
	RegisterMetrics()
	return activeSessions
}
