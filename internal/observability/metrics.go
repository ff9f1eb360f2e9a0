package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collaborator labels for upstream metrics.
const (
	CollaboratorGeolocation = "geolocation"
	CollaboratorForecast    = "forecast"
	CollaboratorGeneration  = "generation"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request. Chat latency is dominated by the generation call.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight. Watch for: saturation, capacity limits.
	HTTPRequestsInFlight prometheus.Gauge

	// Outbound calls per collaborator and outcome. Watch for: error vs success ratio.
	UpstreamCallsTotal *prometheus.CounterVec

	// Outbound latency per collaborator. Timeouts are 8s geo, 15s forecast, 20s generation.
	UpstreamDuration *prometheus.HistogramVec

	// Upstream failures by category (see client.CategorizeError).
	UpstreamErrorsTotal *prometheus.CounterVec

	// Chat requests by outcome: success, fallback, validation, location, forecast, disabled, internal.
	ChatRequestsTotal *prometheus.CounterVec

	// Replies replaced by the fixed fallback because generation failed.
	GenerationFallbacksTotal prometheus.Counter

	// Days returned by the forecast provider per request. Watch for: short series.
	ForecastDaysReturned prometheus.Histogram
)

func init() {
	registry = prometheus.NewRegistry()

	registry.MustRegister(
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)

	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "httpRequestsTotal",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "statusCode"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "httpRequestDurationSeconds",
			Help:    "HTTP request latency in seconds (per request)",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 45},
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	UpstreamCallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstreamCallsTotal",
			Help: "Total number of outbound collaborator calls",
		},
		[]string{"collaborator", "status"},
	)
	UpstreamDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "upstreamDurationSeconds",
			Help:    "Outbound collaborator latency in seconds (per call)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 20},
		},
		[]string{"collaborator", "status"},
	)
	UpstreamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "upstreamErrorsTotal",
			Help: "Outbound collaborator failures by error category",
		},
		[]string{"collaborator", "category"},
	)
	ChatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatRequestsTotal",
			Help: "Chat requests by outcome",
		},
		[]string{"outcome"},
	)
	GenerationFallbacksTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "generationFallbacksTotal",
			Help: "Chat replies replaced by the fallback text after a generation failure",
		},
	)
	ForecastDaysReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "forecastDaysReturned",
			Help:    "Number of forecast days returned by the forecast provider",
			Buckets: []float64{1, 3, 7, 10, 14, 17},
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		UpstreamCallsTotal, UpstreamDuration, UpstreamErrorsTotal,
		ChatRequestsTotal, GenerationFallbacksTotal, ForecastDaysReturned,
	)
}

// RecordUpstreamCall records one outbound call with its status label and latency.
func RecordUpstreamCall(collaborator, status string, seconds float64) {
	UpstreamCallsTotal.WithLabelValues(collaborator, status).Inc()
	UpstreamDuration.WithLabelValues(collaborator, status).Observe(seconds)
}

// RecordUpstreamError records a categorized outbound failure.
func RecordUpstreamError(collaborator, category string) {
	UpstreamErrorsTotal.WithLabelValues(collaborator, category).Inc()
}

// RecordChatOutcome increments the chat outcome counter.
func RecordChatOutcome(outcome string) {
	ChatRequestsTotal.WithLabelValues(outcome).Inc()
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
