package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry *prometheus.Registry

	// HTTP request rate. Watch for: sudden drops (service down) or spikes (traffic surge).
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTP request latency per request.
	HTTPRequestDuration *prometheus.HistogramVec

	// Concurrent requests in flight.
	HTTPRequestsInFlight prometheus.Gauge

	// Open-Meteo call rate by endpoint (geocoding, forecast) and status.
	WeatherAPICallsTotal *prometheus.CounterVec

	// Open-Meteo latency per request. Watch for: p99 approaching the fetch timeout.
	WeatherAPIDuration *prometheus.HistogramVec

	// Open-Meteo failures by endpoint and error category.
	WeatherAPIErrorsTotal *prometheus.CounterVec

	// Terminal outcome of each fetch cycle: ready, failed, idle, canceled, superseded.
	FetchesTotal *prometheus.CounterVec

	// Weather codes with no glyph. Non-zero means the upstream enumeration grew.
	WeatherCodeUnknownTotal prometheus.Counter

	// Forecast cache hits and misses.
	CacheHitsTotal   *prometheus.CounterVec
	CacheMissesTotal *prometheus.CounterVec

	// Cache and store backend errors by operation.
	CacheErrorsTotal *prometheus.CounterVec
	StoreErrorsTotal *prometheus.CounterVec

	// Rate limit denials.
	RateLimitDeniedTotal prometheus.Counter

	// Browser sessions currently held by the registry.
	ActiveSessions prometheus.Gauge
)

// Fetch outcome labels.
const (
	OutcomeReady      = "ready"
	OutcomeFailed     = "failed"
	OutcomeIdle       = "idle"
	OutcomeCanceled   = "canceled"
	OutcomeSuperseded = "superseded"
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
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "httpRequestsInFlight",
			Help: "Number of HTTP requests currently being served",
		},
	)
	WeatherAPICallsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiCallsTotal",
			Help: "Total number of Open-Meteo API calls",
		},
		[]string{"endpoint", "status"},
	)
	WeatherAPIDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "weatherApiDurationSeconds",
			Help:    "Open-Meteo API latency in seconds (per request)",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"endpoint", "status"},
	)
	WeatherAPIErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "weatherApiErrorsTotal",
			Help: "Open-Meteo API failures by error category",
		},
		[]string{"endpoint", "category"},
	)
	FetchesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "forecastFetchesTotal",
			Help: "Forecast fetch cycles by terminal outcome",
		},
		[]string{"outcome"},
	)
	WeatherCodeUnknownTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "weatherCodeUnknownTotal",
			Help: "Weather codes that matched no icon bucket",
		},
	)
	CacheHitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheHitsTotal",
			Help: "Total number of forecast cache hits",
		},
		[]string{"cacheType"},
	)
	CacheMissesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheMissesTotal",
			Help: "Total number of forecast cache misses",
		},
		[]string{"cacheType"},
	)
	CacheErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "cacheErrorsTotal",
			Help: "Forecast cache backend errors by operation",
		},
		[]string{"operation"},
	)
	StoreErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storeErrorsTotal",
			Help: "Location store errors by operation",
		},
		[]string{"operation"},
	)
	RateLimitDeniedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "rateLimitDeniedTotal",
			Help: "Total number of requests denied by rate limiter (429)",
		},
	)
	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "activeSessions",
			Help: "Browser sessions currently held in memory",
		},
	)

	registry.MustRegister(
		HTTPRequestsTotal, HTTPRequestDuration, HTTPRequestsInFlight,
		WeatherAPICallsTotal, WeatherAPIDuration, WeatherAPIErrorsTotal,
		FetchesTotal, WeatherCodeUnknownTotal,
		CacheHitsTotal, CacheMissesTotal, CacheErrorsTotal, StoreErrorsTotal,
		RateLimitDeniedTotal, ActiveSessions,
	)
}

// RecordFetchOutcome counts a terminal fetch outcome.
func RecordFetchOutcome(outcome string) {
	FetchesTotal.WithLabelValues(outcome).Inc()
}

// MetricsHandler returns an http.Handler that serves application and runtime metrics.
func MetricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}
