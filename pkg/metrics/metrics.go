package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "collmock"

// Rebuild results.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Resolution outcomes.
const (
	OutcomeHit       = "hit"
	OutcomeMiss      = "miss"
	OutcomePreflight = "preflight"
)

// Collection states.
const (
	StateLoaded  = "loaded"
	StateSkipped = "skipped"
)

// Metrics holds the collectors of one process.
type Metrics struct {
	Registry *prometheus.Registry

	rebuilds        *prometheus.CounterVec
	rebuildDuration prometheus.Histogram
	collections     *prometheus.GaugeVec
	endpoints       prometheus.Gauge
	resolutions     *prometheus.CounterVec
	watchEvents     *prometheus.CounterVec
}

// New creates and registers all collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		rebuilds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rebuilds_total",
			Help:      "Total number of rebuild passes by result.",
		}, []string{"result"}),
		rebuildDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "rebuild_duration_seconds",
			Help:      "Duration of rebuild passes in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
		}),
		collections: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "collections",
			Help:      "Collections seen by the last pass, by state.",
		}, []string{"state"}),
		endpoints: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "endpoints",
			Help:      "Endpoint stubs generated by the last successful pass.",
		}),
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Mock requests handled, by outcome.",
		}, []string{"outcome"}),
		watchEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "watch_events_total",
			Help:      "Filesystem events observed in the collections directory.",
		}, []string{"op"}),
	}

	m.Registry.MustRegister(
		m.rebuilds,
		m.rebuildDuration,
		m.collections,
		m.endpoints,
		m.resolutions,
		m.watchEvents,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveRebuild records the result and duration of a pass.
func (m *Metrics) ObserveRebuild(result string, d time.Duration) {
	if m == nil {
		return
	}
	m.rebuilds.WithLabelValues(result).Inc()
	m.rebuildDuration.Observe(d.Seconds())
}

// SetCollections records how many collections the last pass loaded and skipped.
func (m *Metrics) SetCollections(loaded, skipped int) {
	if m == nil {
		return
	}
	m.collections.WithLabelValues(StateLoaded).Set(float64(loaded))
	m.collections.WithLabelValues(StateSkipped).Set(float64(skipped))
}

// SetEndpoints records the number of generated stubs.
func (m *Metrics) SetEndpoints(n int) {
	if m == nil {
		return
	}
	m.endpoints.Set(float64(n))
}

// ObserveResolve counts one handled mock request.
func (m *Metrics) ObserveResolve(outcome string) {
	if m == nil {
		return
	}
	m.resolutions.WithLabelValues(outcome).Inc()
}

// ObserveWatchEvent counts one filesystem event.
func (m *Metrics) ObserveWatchEvent(op string) {
	if m == nil {
		return
	}
	m.watchEvents.WithLabelValues(op).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{Registry: m.Registry})
}
