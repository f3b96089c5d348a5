// Package metrics provides Prometheus instrumentation for event dispatch.
//
// Attach the observer when creating a target and expose the registry:
//
//	target := event.New[Order](event.WithObserver(metrics.NewObserver()))
//	r.Get("/metrics", metrics.Handler())
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shashiranjanraj/eventtarget/pkg/event"
)

// ─────────────────────────────────────────────
// Built-in dispatch metrics
// ─────────────────────────────────────────────

var (
	// FiresTotal counts firings that reached at least one listener.
	FiresTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eventtarget",
			Subsystem: "dispatch",
			Name:      "fires_total",
			Help:      "Total number of event firings with at least one listener.",
		},
		[]string{"event", "mode"},
	)

	// ListenerDuration tracks the time from invocation to settlement.
	ListenerDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "eventtarget",
			Subsystem: "dispatch",
			Name:      "listener_duration_seconds",
			Help:      "Time from listener invocation until its result settled.",
			Buckets:   prometheus.DefBuckets, // .005 .01 .025 .05 .1 .25 .5 1 2.5 5 10
		},
		[]string{"mode", "kind"},
	)

	// ListenerFailures counts listener errors and rejections.
	ListenerFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "eventtarget",
			Subsystem: "dispatch",
			Name:      "listener_failures_total",
			Help:      "Total listener invocations that failed or were rejected.",
		},
		[]string{"mode", "kind"},
	)

	// ListenersPerFire tracks how many listeners each firing reached.
	ListenersPerFire = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "eventtarget",
			Subsystem: "dispatch",
			Name:      "listeners_per_fire",
			Help:      "Number of listeners registered at the time of each firing.",
			Buckets:   []float64{1, 2, 4, 8, 16, 32, 64},
		},
		[]string{"mode"},
	)
)

// ─────────────────────────────────────────────
// Registry
// ─────────────────────────────────────────────

// DefaultRegistry is the Prometheus registry used by this module.
var DefaultRegistry = prometheus.NewRegistry()

func init() {
	// Go runtime metrics (GC, goroutines, memory)
	DefaultRegistry.MustRegister(collectors.NewGoCollector())
	// OS process metrics (CPU, open FDs)
	DefaultRegistry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	DefaultRegistry.MustRegister(
		FiresTotal,
		ListenerDuration,
		ListenerFailures,
		ListenersPerFire,
	)
}

// Register adds a collector to DefaultRegistry.
func Register(c prometheus.Collector) error {
	return DefaultRegistry.Register(c)
}

// MustRegister panics if registration fails.
func MustRegister(c ...prometheus.Collector) {
	DefaultRegistry.MustRegister(c...)
}

// ─────────────────────────────────────────────
// event.Observer
// ─────────────────────────────────────────────

// Observer feeds the dispatch metrics. It implements event.Observer.
type Observer struct{}

var _ event.Observer = Observer{}

// NewObserver returns an Observer writing to the package metrics.
func NewObserver() Observer { return Observer{} }

// Fired implements event.Observer.
func (Observer) Fired(name string, mode event.Mode, listeners int) {
	FiresTotal.WithLabelValues(name, mode.String()).Inc()
	ListenersPerFire.WithLabelValues(mode.String()).Observe(float64(listeners))
}

// ListenerSettled implements event.Observer.
func (Observer) ListenerSettled(_ string, mode event.Mode, kind event.Kind, elapsed time.Duration, err error) {
	ListenerDuration.WithLabelValues(mode.String(), kind.String()).Observe(elapsed.Seconds())
	if err != nil {
		ListenerFailures.WithLabelValues(mode.String(), kind.String()).Inc()
	}
}

// ─────────────────────────────────────────────
// /metrics endpoint handler
// ─────────────────────────────────────────────

// Handler returns an http.HandlerFunc that exposes the Prometheus metrics page.
func Handler() http.HandlerFunc {
	h := promhttp.HandlerFor(DefaultRegistry, promhttp.HandlerOpts{
		EnableOpenMetrics: true, // enables text/plain AND OpenMetrics formats
	})
	return h.ServeHTTP
}
