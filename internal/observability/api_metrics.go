package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// APICollector exposes HTTP API metrics and the result cache's hit rate.
type APICollector struct {
	gatherer prometheus.Gatherer

	Requests         *prometheus.CounterVec
	RequestDurations *prometheus.HistogramVec

	CacheHits    prometheus.Counter
	CacheMisses  prometheus.Counter
	CacheEntries prometheus.Gauge
}

// NewAPICollector registers API metrics against reg (global registry when nil).
func NewAPICollector(reg prometheus.Registerer) (*APICollector, error) {
	reg, gatherer := registryPair(reg)

	requests, err := register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "ascent_api_requests_total",
		Help: "Handled API requests, labeled by route, method and status code.",
	}, []string{"route", "method", "code"}), "ascent_api_requests_total")
	if err != nil {
		return nil, err
	}
	durations, err := register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "ascent_api_request_duration_seconds",
		Help:    "API request latency in seconds.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"route", "method", "code"}), "ascent_api_request_duration_seconds")
	if err != nil {
		return nil, err
	}
	hits, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ascent_api_cache_hits_total",
		Help: "Simulation requests answered from the result cache.",
	}), "ascent_api_cache_hits_total")
	if err != nil {
		return nil, err
	}
	misses, err := register(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "ascent_api_cache_misses_total",
		Help: "Simulation requests that had to be run.",
	}), "ascent_api_cache_misses_total")
	if err != nil {
		return nil, err
	}
	entries, err := register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ascent_api_cache_entries",
		Help: "Results currently held in the cache.",
	}), "ascent_api_cache_entries")
	if err != nil {
		return nil, err
	}

	return &APICollector{
		gatherer:         gatherer,
		Requests:         requests,
		RequestDurations: durations,
		CacheHits:        hits,
		CacheMisses:      misses,
		CacheEntries:     entries,
	}, nil
}

// Instrument wraps next so its requests are counted and timed under route.
func (c *APICollector) Instrument(route string, next http.Handler) http.Handler {
	if c == nil {
		return next
	}
	labels := prometheus.Labels{"route": route}
	next = promhttp.InstrumentHandlerDuration(c.RequestDurations.MustCurryWith(labels), next)
	return promhttp.InstrumentHandlerCounter(c.Requests.MustCurryWith(labels), next)
}

// CacheLookup records a cache hit or miss.
func (c *APICollector) CacheLookup(hit bool) {
	if c == nil {
		return
	}
	if hit {
		c.CacheHits.Inc()
		return
	}
	c.CacheMisses.Inc()
}

// SetCacheEntries updates the cache size gauge.
func (c *APICollector) SetCacheEntries(n int) {
	if c == nil {
		return
	}
	c.CacheEntries.Set(float64(n))
}

// Handler exposes a /metrics handler over the collector's gatherer.
func (c *APICollector) Handler() http.Handler {
	if c == nil {
		return handlerFor(nil)
	}
	return handlerFor(c.gatherer)
}
