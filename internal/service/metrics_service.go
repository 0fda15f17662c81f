package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/academic-timetable-api/internal/dto"
	"github.com/noah-isme/academic-timetable-api/internal/models"
)

const metricsNamespace = "timetable"

// MetricsService owns the Prometheus registry for the scheduling engine and keeps a few
// running totals for the JSON summary.
type MetricsService struct {
	registry *prometheus.Registry
	handler  http.Handler

	requestDuration   *prometheus.HistogramVec
	schedulingTotal   *prometheus.CounterVec
	schedulingLatency *prometheus.HistogramVec
	conflictsTotal    *prometheus.CounterVec
	txRetries         *prometheus.CounterVec
	bulkItems         *prometheus.CounterVec
	bookingEvents     *prometheus.CounterVec
	cacheLookups      *prometheus.HistogramVec
	cacheWrite        prometheus.Observer
	dbQueryDuration   *prometheus.HistogramVec

	requests           atomic.Uint64
	requestNanos       atomic.Uint64
	cacheHits          atomic.Uint64
	cacheMisses        atomic.Uint64
	schedulingOps      atomic.Uint64
	schedulingRejected atomic.Uint64
	retries            atomic.Uint64
	dbQueries          atomic.Uint64
	dbNanos            atomic.Uint64

	mu          sync.Mutex
	byDimension map[models.ConflictDimension]uint64
	bulkBuckets map[string]uint64
}

// NewMetricsService registers the engine collectors alongside the Go runtime and process collectors.
func NewMetricsService() *MetricsService {
	m := &MetricsService{
		registry:    prometheus.NewRegistry(),
		byDimension: map[models.ConflictDimension]uint64{},
		bulkBuckets: map[string]uint64{},
	}

	m.requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	m.schedulingTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "operations_total",
		Help:      "Engine operations by outcome (ok, online, rejected, conflict, capacity_exhausted, invalid, error).",
	}, []string{"operation", "outcome"})

	m.schedulingLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Name:      "operation_duration_seconds",
		Help:      "Engine operation latency. Bulk runs land in the upper buckets.",
		Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"operation"})

	m.conflictsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "conflicts_total",
		Help:      "Violated constraints by stage (check, recheck) and dimension.",
	}, []string{"stage", "dimension"})

	m.txRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "tx_retries_total",
		Help:      "Scheduling transactions retried after serialization, deadlock or lock timeout failures.",
	}, []string{"operation"})

	m.bulkItems = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "bulk_items_total",
		Help:      "Bulk run results by bucket (scheduled, conflicts, warnings).",
	}, []string{"operation", "bucket"})

	m.bookingEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Name:      "booking_events_total",
		Help:      "Booking events handled by the sink queue.",
	}, []string{"type", "status"})

	m.cacheLookups = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "cache",
		Name:      "lookup_seconds",
		Help:      "Redis lookups for catalog and booking views by result.",
		Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
	}, []string{"result"})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "cache",
		Name:      "write_seconds",
		Help:      "Redis snapshot writes.",
		Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
	})
	m.cacheWrite = cacheWrite

	m.dbQueryDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: metricsNamespace,
		Subsystem: "db",
		Name:      "query_duration_seconds",
		Help:      "Booking store queries, lock acquisition included.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"query"})

	m.registry.MustRegister(
		m.requestDuration, m.schedulingTotal, m.schedulingLatency, m.conflictsTotal, m.txRetries,
		m.bulkItems, m.bookingEvents, m.cacheLookups, cacheWrite, m.dbQueryDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m.handler = promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
	return m
}

// Handler exposes the Prometheus scrape endpoint.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records one request against its route template.
func (m *MetricsService) ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requestDuration.WithLabelValues(method, route, strconv.Itoa(status)).Observe(duration.Seconds())
	m.requests.Add(1)
	m.requestNanos.Add(uint64(duration.Nanoseconds()))
}

// ObserveScheduling records the outcome and latency of an engine operation.
func (m *MetricsService) ObserveScheduling(operation, outcome string, duration time.Duration) {
	if m == nil {
		return
	}
	m.schedulingTotal.WithLabelValues(operation, outcome).Inc()
	m.schedulingLatency.WithLabelValues(operation).Observe(duration.Seconds())
	m.schedulingOps.Add(1)
	switch outcome {
	case "ok", "online":
	default:
		m.schedulingRejected.Add(1)
	}
}

// RecordConflicts counts each violated constraint once per dimension.
func (m *MetricsService) RecordConflicts(stage string, conflicts []models.BookingConflict) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, conflict := range conflicts {
		m.conflictsTotal.WithLabelValues(stage, string(conflict.Dimension)).Inc()
		m.byDimension[conflict.Dimension]++
	}
}

// RecordTxRetry counts a retried scheduling transaction.
func (m *MetricsService) RecordTxRetry(operation string) {
	if m == nil {
		return
	}
	m.txRetries.WithLabelValues(operation).Inc()
	m.retries.Add(1)
}

// AddBulkItems counts bulk results per bucket.
func (m *MetricsService) AddBulkItems(operation, bucket string, count int) {
	if m == nil || count <= 0 {
		return
	}
	m.bulkItems.WithLabelValues(operation, bucket).Add(float64(count))
	m.mu.Lock()
	m.bulkBuckets[bucket] += uint64(count)
	m.mu.Unlock()
}

// RecordBookingEvent counts events drained by the booking sink.
func (m *MetricsService) RecordBookingEvent(eventType string, failed bool) {
	if m == nil {
		return
	}
	status := "handled"
	if failed {
		status = "failed"
	}
	m.bookingEvents.WithLabelValues(eventType, status).Inc()
}

// RecordCacheOperation records a lookup as a hit or a miss.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	result := "miss"
	if hit {
		result = "hit"
		m.cacheHits.Add(1)
	} else {
		m.cacheMisses.Add(1)
	}
	m.cacheLookups.WithLabelValues(result).Observe(duration.Seconds())
}

// ObserveCacheWrite tracks snapshot writes.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// ObserveDBQuery records booking store timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
	m.dbQueries.Add(1)
	m.dbNanos.Add(uint64(duration.Nanoseconds()))
}

// Snapshot summarises the running totals for /metrics/summary.
func (m *MetricsService) Snapshot() dto.MetricsSnapshot {
	if m == nil {
		return dto.MetricsSnapshot{}
	}
	hits, misses := m.cacheHits.Load(), m.cacheMisses.Load()

	m.mu.Lock()
	conflicts := make(map[string]uint64, len(m.byDimension))
	for dimension, count := range m.byDimension {
		conflicts[string(dimension)] = count
	}
	buckets := make(map[string]uint64, len(m.bulkBuckets))
	for bucket, count := range m.bulkBuckets {
		buckets[bucket] = count
	}
	m.mu.Unlock()

	return dto.MetricsSnapshot{
		RequestsTotal:            m.requests.Load(),
		AverageRequestDurationMs: averageMillis(m.requestNanos.Load(), m.requests.Load()),
		SchedulingOperations:     m.schedulingOps.Load(),
		SchedulingRejected:       m.schedulingRejected.Load(),
		ConflictsByDimension:     conflicts,
		BulkItems:                buckets,
		TxRetries:                m.retries.Load(),
		CacheHits:                hits,
		CacheMisses:              misses,
		CacheHitRatio:            ratio(hits, hits+misses),
		DBQueryCount:             m.dbQueries.Load(),
		AverageDBQueryDurationMs: averageMillis(m.dbNanos.Load(), m.dbQueries.Load()),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}

func averageMillis(totalNanos, count uint64) float64 {
	if count == 0 {
		return 0
	}
	return float64(totalNanos) / float64(count) / float64(time.Millisecond)
}

func ratio(part, total uint64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}
