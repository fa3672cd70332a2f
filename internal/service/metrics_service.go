package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Division outcomes used as metric labels.
const (
	OutcomeSuccess = "success"
	OutcomeFailed  = "failed"
	OutcomeRetried = "retried"
	OutcomeSkipped = "skipped"
)

// MetricsSnapshot is a lightweight view of the counters for the readiness endpoint.
type MetricsSnapshot struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	Divisions                uint64    `json:"divisions"`
	DivisionFailures         uint64    `json:"division_failures"`
	AverageDivisionMs        float64   `json:"average_division_ms"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// MetricsService encapsulates Prometheus instrumentation for HTTP, cache and divider activity.
type MetricsService struct {
	registry         *prometheus.Registry
	handler          http.Handler
	requestDuration  *prometheus.HistogramVec
	requestTotal     *prometheus.CounterVec
	cacheLatency     prometheus.Observer
	cacheWrite       prometheus.Observer
	cacheHitRatio    prometheus.Gauge
	cacheHits        prometheus.Counter
	cacheMisses      prometheus.Counter
	divisionDuration *prometheus.HistogramVec
	divisionsTotal   *prometheus.CounterVec
	phaseMoves       *prometheus.CounterVec
	sheetHours       *prometheus.CounterVec
	queueJobs        *prometheus.CounterVec

	cacheHitCount         uint64
	cacheMissCount        uint64
	requestCount          uint64
	requestDurationTotal  uint64
	divisionCount         uint64
	divisionFailures      uint64
	divisionDurationTotal uint64
}

// NewMetricsService registers the collectors on a private registry.
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

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	divisionDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "timesheet_division_duration_seconds",
		Help:    "Duration of one employee-month division",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"alias"})

	divisionsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timesheet_divisions_total",
		Help: "Employee-month divisions by outcome",
	}, []string{"alias", "outcome"})

	phaseMoves := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timesheet_phase_moves_total",
		Help: "Shifts moved between sheets per divider phase",
	}, []string{"phase"})

	sheetHours := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "timesheet_hours_total",
		Help: "Hours materialised per timesheet type",
	}, []string{"sheet"})

	queueJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "divider_queue_jobs_total",
		Help: "Divider queue job attempts by outcome",
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		divisionDuration, divisionsTotal, phaseMoves, sheetHours, queueJobs, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:         registry,
		handler:          handler,
		requestDuration:  requestDuration,
		requestTotal:     requestTotal,
		cacheLatency:     cacheLatency,
		cacheWrite:       cacheWrite,
		cacheHitRatio:    cacheHitRatio,
		cacheHits:        cacheHits,
		cacheMisses:      cacheMisses,
		divisionDuration: divisionDuration,
		divisionsTotal:   divisionsTotal,
		phaseMoves:       phaseMoves,
		sheetHours:       sheetHours,
		queueJobs:        queueJobs,
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

// Registry exposes the private registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	if m.cacheLatency != nil {
		m.cacheLatency.Observe(duration.Seconds())
	}
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	total := hits + misses
	if total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil || m.cacheWrite == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDivision records one employee-month division attempt.
func (m *MetricsService) ObserveDivision(alias, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	if alias == "" {
		alias = "unknown"
	}
	m.divisionsTotal.WithLabelValues(alias, outcome).Inc()
	if outcome == OutcomeRetried {
		return
	}
	m.divisionDuration.WithLabelValues(alias).Observe(duration.Seconds())
	atomic.AddUint64(&m.divisionCount, 1)
	atomic.AddUint64(&m.divisionDurationTotal, uint64(duration.Nanoseconds()))
	if outcome == OutcomeFailed {
		atomic.AddUint64(&m.divisionFailures, 1)
	}
}

// ObserveReport feeds phase moves and sheet totals of a successful division.
func (m *MetricsService) ObserveReport(report DivisionReport, sheets map[string]float64) {
	if m == nil {
		return
	}
	for _, phase := range report.Phases {
		if phase.Moved > 0 {
			m.phaseMoves.WithLabelValues(phase.Phase).Add(float64(phase.Moved))
		}
	}
	for sheet, hours := range sheets {
		if hours > 0 {
			m.sheetHours.WithLabelValues(sheet).Add(hours)
		}
	}
}

// ObserveQueueJob counts divider queue attempts.
func (m *MetricsService) ObserveQueueJob(outcome string) {
	if m == nil {
		return
	}
	m.queueJobs.WithLabelValues(outcome).Inc()
}

// Snapshot returns aggregated metrics suitable for the readiness endpoint.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)
	divisions := atomic.LoadUint64(&m.divisionCount)
	failures := atomic.LoadUint64(&m.divisionFailures)
	divDuration := atomic.LoadUint64(&m.divisionDurationTotal)

	var cacheRatio float64
	if totalLookups := hits + misses; totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	var avgDivisionMs float64
	if divisions > 0 {
		avgDivisionMs = float64(divDuration) / float64(divisions) / float64(time.Millisecond)
	}

	return MetricsSnapshot{
		CacheHitRatio:            cacheRatio,
		CacheHits:                hits,
		CacheMisses:              misses,
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		Divisions:                divisions,
		DivisionFailures:         failures,
		AverageDivisionMs:        avgDivisionMs,
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
