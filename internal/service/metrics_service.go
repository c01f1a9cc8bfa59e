package service

import (
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation. A nil receiver is
// valid and records nothing.
type MetricsService struct {
	registry          *prometheus.Registry
	handler           http.Handler
	requestDuration   *prometheus.HistogramVec
	requestTotal      *prometheus.CounterVec
	cacheLatency      prometheus.Observer
	cacheWrite        prometheus.Observer
	cacheHitRatio     prometheus.Gauge
	cacheHits         prometheus.Counter
	cacheMisses       prometheus.Counter
	cacheInvalidated  prometheus.Counter
	contextResolution *prometheus.HistogramVec
	contextTotal      *prometheus.CounterVec
	quoteTransitions  *prometheus.CounterVec
	policyChanges     *prometheus.CounterVec
	distributionJobs  *prometheus.CounterVec

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
		Help:    "Latency for cache lookups",
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

	cacheInvalidated := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_invalidated_keys_total",
		Help: "Cache keys dropped by thread invalidation",
	})

	contextResolution := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "context_resolution_seconds",
		Help:    "Time spent walking a conversation thread",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	contextTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "context_resolutions_total",
		Help: "Thread walks by kind",
	}, []string{"kind"})

	quoteTransitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "quote_transitions_total",
		Help: "Persisted quote state transitions",
	}, []string{"from", "to"})

	policyChanges := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "policy_changes_total",
		Help: "Quote approval policy change attempts by outcome",
	}, []string{"outcome"})

	distributionJobs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "distribution_jobs_total",
		Help: "Distribution job attempts by result",
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(
		requestDuration, requestTotal,
		cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses, cacheInvalidated,
		contextResolution, contextTotal, quoteTransitions, policyChanges, distributionJobs,
		goroutines,
	)

	return &MetricsService{
		registry:          registry,
		handler:           promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration:   requestDuration,
		requestTotal:      requestTotal,
		cacheLatency:      cacheLatency,
		cacheWrite:        cacheWrite,
		cacheHitRatio:     cacheHitRatio,
		cacheHits:         cacheHits,
		cacheMisses:       cacheMisses,
		cacheInvalidated:  cacheInvalidated,
		contextResolution: contextResolution,
		contextTotal:      contextTotal,
		quoteTransitions:  quoteTransitions,
		policyChanges:     policyChanges,
		distributionJobs:  distributionJobs,
	}
}

// Registry exposes the underlying registry, mainly for tests.
func (m *MetricsService) Registry() *prometheus.Registry {
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

// ObserveHTTPRequest records request metrics.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := strconv.Itoa(status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
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

// RecordCacheInvalidation counts keys removed by an invalidation.
func (m *MetricsService) RecordCacheInvalidation(keys int) {
	if m == nil || keys <= 0 {
		return
	}
	m.cacheInvalidated.Add(float64(keys))
}

// ObserveContextResolution records one ancestor or descendant walk.
func (m *MetricsService) ObserveContextResolution(kind string, duration time.Duration) {
	if m == nil {
		return
	}
	m.contextTotal.WithLabelValues(kind).Inc()
	m.contextResolution.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordQuoteTransition counts a persisted quote state change.
func (m *MetricsService) RecordQuoteTransition(from, to string) {
	if m == nil {
		return
	}
	m.quoteTransitions.WithLabelValues(from, to).Inc()
}

// RecordPolicyChange counts a policy change attempt.
func (m *MetricsService) RecordPolicyChange(outcome string) {
	if m == nil {
		return
	}
	m.policyChanges.WithLabelValues(outcome).Inc()
}

// RecordDistributionJob counts a distribution job attempt.
func (m *MetricsService) RecordDistributionJob(result string) {
	if m == nil {
		return
	}
	m.distributionJobs.WithLabelValues(result).Inc()
}
