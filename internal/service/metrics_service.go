package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/noah-isme/course-market-api/internal/models"
)

// Stream authorization outcomes recorded by the gate.
const (
	StreamOutcomeGranted  = "granted"
	StreamOutcomeDenied   = "denied"
	StreamOutcomeNotFound = "not_found"
	StreamOutcomeError    = "error"
)

// MetricsService encapsulates Prometheus instrumentation.
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
	dbQueryDuration *prometheus.HistogramVec

	purchasesInitiated *prometheus.CounterVec
	purchaseReviews    *prometheus.CounterVec
	streamDecisions    *prometheus.CounterVec
	pendingPurchases   prometheus.Gauge
	stalePurchases     prometheus.Gauge

	cacheHitCount  uint64
	cacheMissCount uint64
}

// NewMetricsService registers core Prometheus collectors.
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

	dbQueryDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query"})

	purchasesInitiated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "purchases_initiated_total",
		Help: "Purchase attempts recorded, by item type",
	}, []string{"item_type"})

	purchaseReviews := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "purchase_reviews_total",
		Help: "Admin purchase reviews, by outcome",
	}, []string{"outcome"})

	streamDecisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "stream_authorizations_total",
		Help: "Stream gate decisions, by outcome",
	}, []string{"outcome"})

	pendingPurchases := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "purchases_pending",
		Help: "Purchases awaiting admin review",
	})

	stalePurchases := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "purchases_pending_stale",
		Help: "Pending purchases older than the review threshold",
	})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		dbQueryDuration, purchasesInitiated, purchaseReviews, streamDecisions, pendingPurchases, stalePurchases, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:           registry,
		handler:            handler,
		requestDuration:    requestDuration,
		requestTotal:       requestTotal,
		cacheLatency:       cacheLatency,
		cacheWrite:         cacheWrite,
		cacheHitRatio:      cacheHitRatio,
		cacheHits:          cacheHits,
		cacheMisses:        cacheMisses,
		dbQueryDuration:    dbQueryDuration,
		purchasesInitiated: purchasesInitiated,
		purchaseReviews:    purchaseReviews,
		streamDecisions:    streamDecisions,
		pendingPurchases:   pendingPurchases,
		stalePurchases:     stalePurchases,
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

// Registry returns the underlying registry, mostly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
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

// ObserveDBQuery records database query timing.
func (m *MetricsService) ObserveDBQuery(label string, duration time.Duration) {
	if m == nil {
		return
	}
	m.dbQueryDuration.WithLabelValues(label).Observe(duration.Seconds())
}

// RecordPurchaseInitiated counts a new purchase attempt.
func (m *MetricsService) RecordPurchaseInitiated(itemType models.ItemType) {
	if m == nil {
		return
	}
	m.purchasesInitiated.WithLabelValues(string(itemType)).Inc()
}

// RecordPurchaseReview counts an admin review outcome.
func (m *MetricsService) RecordPurchaseReview(outcome string) {
	if m == nil {
		return
	}
	m.purchaseReviews.WithLabelValues(outcome).Inc()
}

// RecordStreamDecision counts a stream gate decision.
func (m *MetricsService) RecordStreamDecision(outcome string) {
	if m == nil {
		return
	}
	m.streamDecisions.WithLabelValues(outcome).Inc()
}

// SetPendingPurchases publishes the current review queue depth.
func (m *MetricsService) SetPendingPurchases(stats models.PendingStats) {
	if m == nil {
		return
	}
	m.pendingPurchases.Set(float64(stats.Total))
	m.stalePurchases.Set(float64(stats.Stale))
}
