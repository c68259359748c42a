package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/sisacad-enrollment/internal/models"
)

// MetricsSnapshot is a lightweight summary of the process counters.
type MetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	ReservationsGranted      uint64    `json:"reservations_granted"`
	ReservationsRejected     uint64    `json:"reservations_rejected"`
	SectionsEnrolled         uint64    `json:"sections_enrolled"`
	HoldsSwept               uint64    `json:"holds_swept"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// MetricsService encapsulates Prometheus instrumentation for the API and the sweeper.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	reservations    *prometheus.CounterVec
	confirmOutcomes *prometheus.CounterVec
	sweepReleased   *prometheus.CounterVec
	auditDropped    prometheus.Counter

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	grantedCount         uint64
	rejectedCount        uint64
	enrolledCount        uint64
	sweptCount           uint64
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

	reservations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollment_reservations_total",
		Help: "Seat reservation attempts by result",
	}, []string{"result"})

	confirmOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollment_confirm_outcomes_total",
		Help: "Per-section confirmation outcomes",
	}, []string{"status"})

	sweepReleased := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollment_sweep_released_total",
		Help: "Expired rows released by the sweeper",
	}, []string{"kind"})

	auditDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "enrollment_audit_dropped_total",
		Help: "Failure audit records that could not be queued",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		reservations, confirmOutcomes, sweepReleased, auditDropped, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		reservations:    reservations,
		confirmOutcomes: confirmOutcomes,
		sweepReleased:   sweepReleased,
		auditDropped:    auditDropped,
	}
}

// Registerer exposes the registry so other components (cron jobs) can add collectors.
func (m *MetricsService) Registerer() prometheus.Registerer {
	if m == nil {
		return nil
	}
	return m.registry
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
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordReservation counts a reservation attempt.
func (m *MetricsService) RecordReservation(granted bool) {
	if m == nil {
		return
	}
	if granted {
		m.reservations.WithLabelValues("granted").Inc()
		atomic.AddUint64(&m.grantedCount, 1)
		return
	}
	m.reservations.WithLabelValues("rejected").Inc()
	atomic.AddUint64(&m.rejectedCount, 1)
}

// RecordConfirmOutcome counts one section outcome of a confirmation.
func (m *MetricsService) RecordConfirmOutcome(status string) {
	if m == nil {
		return
	}
	m.confirmOutcomes.WithLabelValues(status).Inc()
	if status == models.OutcomeEnrolled {
		atomic.AddUint64(&m.enrolledCount, 1)
	}
}

// RecordSweep counts rows released by a sweep.
func (m *MetricsService) RecordSweep(reservations, items int64) {
	if m == nil {
		return
	}
	m.sweepReleased.WithLabelValues("reservation").Add(float64(reservations))
	m.sweepReleased.WithLabelValues("cart_item").Add(float64(items))
	atomic.AddUint64(&m.sweptCount, uint64(reservations))
}

// RecordAuditDropped counts a failure audit that never reached the queue.
func (m *MetricsService) RecordAuditDropped() {
	if m == nil {
		return
	}
	m.auditDropped.Inc()
}

// Snapshot returns aggregated counters for the admin summary endpoint.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if total := hits + misses; total > 0 {
		cacheRatio = float64(hits) / float64(total)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return MetricsSnapshot{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		CacheHitRatio:            cacheRatio,
		ReservationsGranted:      atomic.LoadUint64(&m.grantedCount),
		ReservationsRejected:     atomic.LoadUint64(&m.rejectedCount),
		SectionsEnrolled:         atomic.LoadUint64(&m.enrolledCount),
		HoldsSwept:               atomic.LoadUint64(&m.sweptCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}
