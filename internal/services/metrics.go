package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	CacheHits        *prometheus.CounterVec // labels: cache ("pages", "details")
	CacheMisses      *prometheus.CounterVec
	StoreLatency     *prometheus.HistogramVec // label: operation
	SearchSuperseded prometheus.Counter
}

var globalMetrics *Metrics

// InitMetrics registers the Prometheus metrics. Call once at startup; tests
// skip it and the record helpers no-op.
func InitMetrics() *Metrics {
	globalMetrics = &Metrics{
		CacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "regdesk_cache_hits_total",
			Help: "Total cache hits by cache name",
		}, []string{"cache"}),

		CacheMisses: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "regdesk_cache_misses_total",
			Help: "Total cache misses by cache name",
		}, []string{"cache"}),

		StoreLatency: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "regdesk_store_request_duration_seconds",
			Help:    "Document store request latency in seconds",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
		}, []string{"operation"}),

		SearchSuperseded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "regdesk_search_superseded_total",
			Help: "Searches cancelled because the same principal issued a newer one",
		}),
	}
	return globalMetrics
}

func recordCacheHit(cache string) {
	if globalMetrics != nil {
		globalMetrics.CacheHits.WithLabelValues(cache).Inc()
	}
}

func recordCacheMiss(cache string) {
	if globalMetrics != nil {
		globalMetrics.CacheMisses.WithLabelValues(cache).Inc()
	}
}

func recordStoreLatency(operation string, seconds float64) {
	if globalMetrics != nil {
		globalMetrics.StoreLatency.WithLabelValues(operation).Observe(seconds)
	}
}

func recordSearchSuperseded() {
	if globalMetrics != nil {
		globalMetrics.SearchSuperseded.Inc()
	}
}
