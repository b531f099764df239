package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/linkvault-api/internal/models"
)

// Access outcomes recorded by the share engine.
const (
	OutcomeGranted          = "granted"
	OutcomeInvalid          = "invalid"
	OutcomeExpired          = "expired"
	OutcomeExhausted        = "exhausted"
	OutcomePasswordRequired = "password_required"
	OutcomePasswordInvalid  = "password_invalid"
	OutcomeWrongKind        = "wrong_kind"
)

// MetricsService encapsulates Prometheus instrumentation.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	sharesCreated   *prometheus.CounterVec
	shareAccess     *prometheus.CounterVec
	reaperDeleted   prometheus.Counter
	reaperDuration  prometheus.Histogram
	payloadFailures prometheus.Counter
}

// NewMetricsService registers core Prometheus collectors on a private registry.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	sharesCreated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "shares_created_total",
		Help: "Shares created by payload kind",
	}, []string{"kind"})

	shareAccess := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "share_access_total",
		Help: "Share view and download attempts by outcome",
	}, []string{"operation", "outcome"})

	reaperDeleted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "share_reaper_deleted_total",
		Help: "Expired shares removed by the reaper",
	})

	reaperDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "share_reaper_sweep_seconds",
		Help:    "Duration of reaper sweeps",
		Buckets: prometheus.DefBuckets,
	})

	payloadFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "share_payload_delete_failures_total",
		Help: "Failed attempts to remove stored share payloads",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheHits, cacheMisses, sharesCreated, shareAccess, reaperDeleted, reaperDuration, payloadFailures, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		sharesCreated:   sharesCreated,
		shareAccess:     shareAccess,
		reaperDeleted:   reaperDeleted,
		reaperDuration:  reaperDuration,
		payloadFailures: payloadFailures,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Registry exposes the underlying registry for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveHTTPRequest records request metrics. path should be the route
// template so share tokens never become label values.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordCacheOperation records a cache hit or miss.
func (m *MetricsService) RecordCacheOperation(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
		return
	}
	m.cacheMisses.Inc()
}

// ShareCreated counts a newly created share.
func (m *MetricsService) ShareCreated(kind models.ShareKind) {
	if m == nil {
		return
	}
	m.sharesCreated.WithLabelValues(string(kind)).Inc()
}

// ShareAccess counts a view or download attempt and its outcome.
func (m *MetricsService) ShareAccess(operation, outcome string) {
	if m == nil {
		return
	}
	m.shareAccess.WithLabelValues(operation, outcome).Inc()
}

// ReaperSweep records one completed sweep.
func (m *MetricsService) ReaperSweep(deleted int, duration time.Duration) {
	if m == nil {
		return
	}
	m.reaperDeleted.Add(float64(deleted))
	m.reaperDuration.Observe(duration.Seconds())
}

// PayloadDeleteFailed counts a failed payload removal.
func (m *MetricsService) PayloadDeleteFailed() {
	if m == nil {
		return
	}
	m.payloadFailures.Inc()
}
