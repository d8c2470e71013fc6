package content

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for content API operations.
var (
	requestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leaknews_content_requests_total",
		Help: "Total content API requests by operation and status",
	}, []string{"op", "status"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "leaknews_content_request_duration_seconds",
		Help:    "Content API request duration in seconds by operation",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	}, []string{"op"})

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leaknews_content_errors_total",
		Help: "Total content API errors by class",
	}, []string{"class"})

	retriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leaknews_content_retries_total",
		Help: "Total number of retry attempts by error class",
	}, []string{"error_class"})

	listingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leaknews_content_listings_total",
		Help: "Validated listing responses by kind",
	}, []string{"kind"})

	// CacheHits tracks response cache hits by layer (memory, redis).
	CacheHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leaknews_content_cache_hits_total",
		Help: "Total number of content response cache hits",
	}, []string{"layer"})

	// CacheMisses tracks response cache misses by layer.
	CacheMisses = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leaknews_content_cache_misses_total",
		Help: "Total number of content response cache misses",
	}, []string{"layer"})

	// CacheEvictions tracks entries dropped to stay within a size limit.
	CacheEvictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leaknews_content_cache_evictions_total",
		Help: "Total number of cache entries evicted for capacity",
	}, []string{"layer"})

	// CacheErrors tracks cache operation errors.
	CacheErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "leaknews_content_cache_errors_total",
		Help: "Total number of cache operation errors",
	}, []string{"operation"})
)
