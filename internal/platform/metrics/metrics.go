package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds Prometheus counters and gauges for the dissector viewer.
type Metrics struct {
	registry          *prometheus.Registry
	requestsTotal     prometheus.Counter
	errorsTotal       prometheus.Counter
	loadsTotal        *prometheus.CounterVec
	loadDuration      prometheus.Histogram
	archiveCacheTotal *prometheus.CounterVec
	stateWritesTotal  *prometheus.CounterVec
	stateSubscribers  prometheus.Gauge
}

// New creates and registers Prometheus metrics on a private registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dissector_requests_total",
		Help: "Total number of HTTP requests received",
	})
	errorsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dissector_errors_total",
		Help: "Total number of HTTP responses with error status (4xx or 5xx)",
	})
	loadsTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dissector_loads_total",
		Help: "Track loads by result",
	}, []string{"result"})
	loadDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "dissector_load_duration_seconds",
		Help:    "Time to fetch, unpack and parse a track's dissector document",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
	})
	archiveCacheTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dissector_archive_cache_total",
		Help: "Archive cache lookups by outcome (hit or miss)",
	}, []string{"outcome"})
	stateWritesTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dissector_state_writes_total",
		Help: "Writes to application state cells",
	}, []string{"cell"})
	stateSubscribers := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dissector_state_stream_subscribers",
		Help: "Number of connected state event stream clients",
	})

	registry.MustRegister(
		requestsTotal,
		errorsTotal,
		loadsTotal,
		loadDuration,
		archiveCacheTotal,
		stateWritesTotal,
		stateSubscribers,
	)

	return &Metrics{
		registry:          registry,
		requestsTotal:     requestsTotal,
		errorsTotal:       errorsTotal,
		loadsTotal:        loadsTotal,
		loadDuration:      loadDuration,
		archiveCacheTotal: archiveCacheTotal,
		stateWritesTotal:  stateWritesTotal,
		stateSubscribers:  stateSubscribers,
	}
}

// IncRequests increments the total request counter.
func (m *Metrics) IncRequests() {
	m.requestsTotal.Inc()
}

// IncErrors increments the errors counter.
func (m *Metrics) IncErrors() {
	m.errorsTotal.Inc()
}

// ObserveLoad records one track load. result is "ok" or an error class.
func (m *Metrics) ObserveLoad(result string, d time.Duration) {
	m.loadsTotal.WithLabelValues(result).Inc()
	m.loadDuration.Observe(d.Seconds())
}

// IncArchiveCache records a cache lookup outcome.
func (m *Metrics) IncArchiveCache(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	m.archiveCacheTotal.WithLabelValues(outcome).Inc()
}

// IncStateWrite increments the write counter for a state cell.
func (m *Metrics) IncStateWrite(cell string) {
	m.stateWritesTotal.WithLabelValues(cell).Inc()
}

// SetStateSubscribers sets the event stream subscribers gauge.
func (m *Metrics) SetStateSubscribers(n int) {
	m.stateSubscribers.Set(float64(n))
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler returns an http.Handler that serves Prometheus metrics.
// updateGauges is called before each scrape to refresh gauge values.
func (m *Metrics) Handler(updateGauges func()) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if updateGauges != nil {
			updateGauges()
		}
		promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}).ServeHTTP(w, r)
	})
}
