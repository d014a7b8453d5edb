// Package metrics exposes prometheus collectors for the binding engine.
//
// A nil *Metrics is valid and records nothing, so components can take an
// optional collector without guarding every call site.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const subsystem = "binding"

// DefaultNamespace is used when New is called with an empty namespace.
const DefaultNamespace = "bindkit"

// Result label values.
const (
	ResultSuccess = "success"
	ResultError   = "error"
)

// Metrics holds the collectors for expression evaluation, bindings and watches.
type Metrics struct {
	compilationTime *prometheus.HistogramVec
	evaluationTime  *prometheus.HistogramVec
	activations     *prometheus.CounterVec
	pushes          *prometheus.CounterVec
	deliveries      prometheus.Counter
	failures        *prometheus.CounterVec
}

// New creates an unregistered set of collectors.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Metrics{
		compilationTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "expression_compilation_duration_seconds",
				Help:      "Path expression compilation time in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.00001, 2, 10),
			},
			[]string{"result"},
		),
		evaluationTime: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "expression_evaluation_duration_seconds",
				Help:      "Path expression evaluation time in seconds.",
				Buckets:   prometheus.ExponentialBuckets(0.000001, 2, 12),
			},
			[]string{"result"},
		),
		activations: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "activations_total",
				Help:      "Binding activations by result.",
			},
			[]string{"result"},
		),
		pushes: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "pushes_total",
				Help:      "Values propagated by bindings, by direction.",
			},
			[]string{"direction"},
		),
		deliveries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "watch_deliveries_total",
				Help:      "Change events delivered to watch handlers.",
			},
		),
		failures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "handler_failures_total",
				Help:      "Handler invocations that did not complete, by reason.",
			},
			[]string{"reason"},
		),
	}
}

// MustRegister registers every collector with registry.
func (m *Metrics) MustRegister(registry prometheus.Registerer) {
	if m == nil {
		return
	}
	registry.MustRegister(m.Collectors()...)
}

// Collectors returns every collector owned by m.
func (m *Metrics) Collectors() []prometheus.Collector {
	if m == nil {
		return nil
	}
	return []prometheus.Collector{
		m.compilationTime,
		m.evaluationTime,
		m.activations,
		m.pushes,
		m.deliveries,
		m.failures,
	}
}

// ObserveCompilation records an expression compilation.
func (m *Metrics) ObserveCompilation(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.compilationTime.WithLabelValues(result(err)).Observe(d.Seconds())
}

// ObserveEvaluation records an expression evaluation.
func (m *Metrics) ObserveEvaluation(d time.Duration, err error) {
	if m == nil {
		return
	}
	m.evaluationTime.WithLabelValues(result(err)).Observe(d.Seconds())
}

// ObserveActivation records a binding activation attempt.
func (m *Metrics) ObserveActivation(err error) {
	if m == nil {
		return
	}
	m.activations.WithLabelValues(result(err)).Inc()
}

// IncPush records a value propagated in direction ("forward" or "reverse").
func (m *Metrics) IncPush(direction string) {
	if m == nil {
		return
	}
	m.pushes.WithLabelValues(direction).Inc()
}

// IncDelivered records one event delivered to a watch handler.
func (m *Metrics) IncDelivered() {
	if m == nil {
		return
	}
	m.deliveries.Inc()
}

// IncFailure records a failed handler invocation. Reason is "error", "panic"
// or "missing".
func (m *Metrics) IncFailure(reason string) {
	if m == nil {
		return
	}
	m.failures.WithLabelValues(reason).Inc()
}

func result(err error) string {
	if err != nil {
		return ResultError
	}
	return ResultSuccess
}
