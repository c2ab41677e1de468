// Package metrics holds the Prometheus collectors for bunbetsu. Each
// Collector owns its registry so tests can create as many as they need.
package metrics

import (
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector holds all Prometheus metrics for the application. A nil
// *Collector is valid and records nothing.
type Collector struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Catalog metrics
	Mutations      *prometheus.CounterVec
	CatalogVersion prometheus.Gauge

	// Result cache metrics
	CacheLookups       *prometheus.CounterVec
	CacheInvalidations *prometheus.CounterVec
}

// NewCollector creates a collector with the given metric namespace.
func NewCollector(namespace string) *Collector {
	c := &Collector{
		registry: prometheus.NewRegistry(),
		HTTPRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),
		HTTPDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),
		Mutations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "catalog_mutations_total",
				Help:      "Catalog mutations by operation and outcome code",
			},
			[]string{"operation", "outcome"},
		),
		CatalogVersion: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "catalog_version",
				Help:      "Last catalog version observed by this process",
			},
		),
		CacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "result_cache_lookups_total",
				Help:      "Result cache lookups by query family and outcome",
			},
			[]string{"query", "outcome"},
		),
		CacheInvalidations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "result_cache_invalidations_total",
				Help:      "Result cache tag invalidations",
			},
			[]string{"tag"},
		),
	}

	c.registry.MustRegister(
		c.HTTPRequests,
		c.HTTPDuration,
		c.Mutations,
		c.CatalogVersion,
		c.CacheLookups,
		c.CacheInvalidations,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return c
}

// Registry returns the collector's registry.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// ObserveHTTP records one request.
func (c *Collector) ObserveHTTP(method, route, status string, d time.Duration) {
	if c == nil {
		return
	}
	c.HTTPRequests.WithLabelValues(method, route, status).Inc()
	c.HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveMutation records a mutation outcome. outcome is "ok" or a result
// code.
func (c *Collector) ObserveMutation(operation, outcome string) {
	if c == nil {
		return
	}
	c.Mutations.WithLabelValues(operation, outcome).Inc()
}

// SetVersion records the latest catalog version.
func (c *Collector) SetVersion(v int64) {
	if c == nil {
		return
	}
	c.CatalogVersion.Set(float64(v))
}

// CacheHit implements resultcache.Observer.
func (c *Collector) CacheHit(key string) {
	if c == nil {
		return
	}
	c.CacheLookups.WithLabelValues(queryFamily(key), "hit").Inc()
}

// CacheMiss implements resultcache.Observer.
func (c *Collector) CacheMiss(key string) {
	if c == nil {
		return
	}
	c.CacheLookups.WithLabelValues(queryFamily(key), "miss").Inc()
}

// CacheInvalidated implements resultcache.Observer.
func (c *Collector) CacheInvalidated(tag string) {
	if c == nil {
		return
	}
	c.CacheInvalidations.WithLabelValues(tag).Inc()
}

// queryFamily drops the per-entity suffix of a cache key so labels stay
// bounded: admin:items:category:12 becomes admin:items:category.
func queryFamily(key string) string {
	if i := strings.LastIndexByte(key, ':'); i >= 0 {
		suffix := key[i+1:]
		if suffix != "" && strings.Trim(suffix, "0123456789") == "" {
			return key[:i]
		}
	}
	return key
}
