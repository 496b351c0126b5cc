package service

import (
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/timetable-engine-api/internal/models"
)

// MetricsService encapsulates Prometheus instrumentation for the engine.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	runsTotal        *prometheus.CounterVec
	repairIterations prometheus.Histogram
	residualRuns     prometheus.Counter
	conflictsTotal   *prometheus.CounterVec
	oracleDuration   *prometheus.HistogramVec
	oracleFailures   *prometheus.CounterVec
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	cacheWrite       prometheus.Observer
	dbQueryDuration  *prometheus.HistogramVec
}

// NewMetricsService registers the engine's Prometheus collectors.
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

	runsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_runs_total",
		Help: "Total number of completed timetable runs by terminal status",
	}, []string{"status"})

	repairIterations := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "timetable_repair_iterations",
		Help:    "Number of repair iterations spent per run",
		Buckets: []float64{0, 1, 2, 3},
	})

	residualRuns := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "timetable_runs_residual_conflicts_total",
		Help: "Runs that finalized with unresolved conflicts",
	})

	conflictsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timetable_conflicts_total",
		Help: "Conflicts detected during validation, by rule",
	}, []string{"rule"})

	oracleDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "oracle_call_duration_seconds",
		Help:    "Duration of candidate oracle calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	oracleFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "oracle_call_failures_total",
		Help: "Failed candidate oracle calls, by operation",
	}, []string{"operation"})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, runsTotal, repairIterations, residualRuns,
		conflictsTotal, oracleDuration, oracleFailures, cacheHits, cacheMisses, cacheWrite, dbQueryDuration, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:         registry,
		handler:          handler,
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		runsTotal:        runsTotal,
		repairIterations: repairIterations,
		residualRuns:     residualRuns,
		conflictsTotal:   conflictsTotal,
		oracleDuration:   oracleDuration,
		oracleFailures:   oracleFailures,
		cacheHits:        cacheHits,
		cacheMisses:      cacheMisses,
		cacheWrite:       cacheWrite,
		dbQueryDuration:  dbQueryDuration,
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

// ObserveHTTPRequest records per-request latency and volume.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
}

// RecordRun publishes terminal run metrics.
func (m *MetricsService) RecordRun(status models.RunStatus, iterations, residualConflicts int) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(string(status)).Inc()
	m.repairIterations.Observe(float64(iterations))
	if residualConflicts > 0 {
		m.residualRuns.Inc()
	}
}

// RecordConflicts counts detected conflicts by rule.
func (m *MetricsService) RecordConflicts(conflicts []models.Conflict) {
	if m == nil {
		return
	}
	for _, conflict := range conflicts {
		m.conflictsTotal.WithLabelValues(string(conflict.Rule)).Inc()
	}
}

// ObserveOracleCall records oracle call timing and failures.
func (m *MetricsService) ObserveOracleCall(operation string, success bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.oracleDuration.WithLabelValues(operation).Observe(duration.Seconds())
	if !success {
		m.oracleFailures.WithLabelValues(operation).Inc()
	}
}

// RecordCacheHit tracks cache lookup outcomes.
func (m *MetricsService) RecordCacheHit(hit bool) {
	if m == nil {
		return
	}
	if hit {
		m.cacheHits.Inc()
	} else {
		m.cacheMisses.Inc()
	}
}

// ObserveCacheWrite tracks the duration of cache set operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}
