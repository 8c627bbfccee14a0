package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HttpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookfinder_gateway_requests_total",
		Help: "Total number of HTTP requests to the web adapter",
	}, []string{"method", "path", "status"})

	HttpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bookfinder_gateway_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"path"})

	UpstreamRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "bookfinder_upstream_requests_total",
		Help: "Requests sent to Open Library by endpoint and outcome",
	}, []string{"endpoint", "outcome"})

	UpstreamRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "bookfinder_upstream_request_duration_seconds",
		Help:    "Latency of Open Library requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint"})

	StaleResponsesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookfinder_search_stale_responses_total",
		Help: "Search responses discarded because a newer intent superseded them",
	})

	DebounceSupersededTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "bookfinder_search_debounce_superseded_total",
		Help: "Pending filter changes replaced before their debounce window elapsed",
	})

	SessionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "bookfinder_sessions_active",
		Help: "Open WebSocket search sessions",
	})
)

// Upstream outcomes.
const (
	OutcomeOK        = "ok"
	OutcomeTransport = "transport_error"
	OutcomeStatus    = "status_error"
	OutcomeParse     = "parse_error"
)
