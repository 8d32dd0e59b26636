// Package obsmetrics exposes Prometheus counters and histograms for QRT
// evaluations: how many ran, how long they took, which error kind (if
// any) they failed with, and how many wsrepl sessions are live.
package obsmetrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the registered collectors for one process.
type Metrics struct {
	evaluationsTotal    *prometheus.CounterVec
	evaluationDuration  prometheus.Histogram
	evaluationErrors    *prometheus.CounterVec
	loopKillsTotal      prometheus.Counter
	invocationsTotal    prometheus.Counter
	stackDepth          prometheus.Gauge
	activeSessions      prometheus.Gauge
	registry            *prometheus.Registry
}

// Config controls metric naming.
type Config struct {
	Namespace       string
	DurationBuckets []float64
}

// DefaultConfig returns the namespace and bucket layout used by `qrt serve`.
func DefaultConfig() Config {
	return Config{
		Namespace:       "qrt",
		DurationBuckets: []float64{0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
	}
}

// New registers and returns a fresh collector set.
func New(cfg Config) *Metrics {
	if cfg.Namespace == "" {
		cfg = DefaultConfig()
	}
	if len(cfg.DurationBuckets) == 0 {
		cfg.DurationBuckets = DefaultConfig().DurationBuckets
	}

	registry := prometheus.NewRegistry()
	m := &Metrics{registry: registry}

	m.evaluationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: "evaluator",
		Name:      "evaluations_total",
		Help:      "Total number of top-level Evaluate calls, by outcome.",
	}, []string{"outcome"})

	m.evaluationDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: cfg.Namespace,
		Subsystem: "evaluator",
		Name:      "evaluation_duration_seconds",
		Help:      "Wall time of a top-level Evaluate call.",
		Buckets:   cfg.DurationBuckets,
	})

	m.evaluationErrors = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: "evaluator",
		Name:      "evaluation_errors_total",
		Help:      "Total evaluation failures, by error kind.",
	}, []string{"kind"})

	m.loopKillsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: "evaluator",
		Name:      "loop_kills_total",
		Help:      "Total number of loop-kill invocations across all evaluations.",
	})

	m.invocationsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: cfg.Namespace,
		Subsystem: "evaluator",
		Name:      "invocations_total",
		Help:      "Total number of nested `!` jump/macro invocations.",
	})

	m.stackDepth = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Subsystem: "evaluator",
		Name:      "stack_depth",
		Help:      "Deepest operand stack observed during the most recent evaluation.",
	})

	m.activeSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: cfg.Namespace,
		Subsystem: "wsrepl",
		Name:      "active_sessions",
		Help:      "Number of currently connected wsrepl sessions.",
	})

	registry.MustRegister(
		m.evaluationsTotal,
		m.evaluationDuration,
		m.evaluationErrors,
		m.loopKillsTotal,
		m.invocationsTotal,
		m.stackDepth,
		m.activeSessions,
	)

	return m
}

// Handler returns the HTTP handler serving this registry's /metrics page.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveEvaluation records one completed top-level evaluation.
func (m *Metrics) ObserveEvaluation(seconds float64, errKind string) {
	m.evaluationDuration.Observe(seconds)
	if errKind == "" {
		m.evaluationsTotal.WithLabelValues("ok").Inc()
		return
	}
	m.evaluationsTotal.WithLabelValues("error").Inc()
	m.evaluationErrors.WithLabelValues(errKind).Inc()
}

// IncLoopKill records a loop-kill invocation.
func (m *Metrics) IncLoopKill() { m.loopKillsTotal.Inc() }

// IncInvocation records a nested `!` invocation.
func (m *Metrics) IncInvocation() { m.invocationsTotal.Inc() }

// ObserveStats folds a completed evaluation's post-hoc counters — an
// evaluator.Stats gathered alongside evaluator.Hooks — into the registered
// collectors: every loop kill and invocation the run made, and the
// deepest operand stack it reached.
func (m *Metrics) ObserveStats(loopKills, invocations, maxStackDepth int) {
	for i := 0; i < loopKills; i++ {
		m.IncLoopKill()
	}
	for i := 0; i < invocations; i++ {
		m.IncInvocation()
	}
	m.stackDepth.Set(float64(maxStackDepth))
}

// SessionOpened/SessionClosed track wsrepl session count.
func (m *Metrics) SessionOpened() { m.activeSessions.Inc() }
func (m *Metrics) SessionClosed() { m.activeSessions.Dec() }
