package svcmgr

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/sentinelos/sentinel/pkg/registry"
)

// PrometheusMetricsCollector implements MetricsCollector using Prometheus metrics
type PrometheusMetricsCollector struct {
	stateTransitions *prometheus.CounterVec

	startDuration *prometheus.HistogramVec
	stopDuration  *prometheus.HistogramVec
	sweepDuration prometheus.Histogram

	restarts         *prometheus.CounterVec
	admissionDenials *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewPrometheusMetricsCollector creates a new Prometheus metrics collector
func NewPrometheusMetricsCollector(namespace string) *PrometheusMetricsCollector {
	if namespace == "" {
		namespace = "sentinel"
	}

	pmc := &PrometheusMetricsCollector{
		registry: prometheus.NewRegistry(),
	}

	pmc.stateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "service_state_transitions_total",
			Help:      "Total number of service state transitions",
		},
		[]string{"service", "from_state", "to_state"},
	)

	pmc.startDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "service_start_duration_seconds",
			Help:      "Duration of service start operations",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"service", "status"},
	)

	pmc.stopDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "service_stop_duration_seconds",
			Help:      "Duration of service stop operations",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"service"},
	)

	pmc.sweepDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "monitor_sweep_duration_seconds",
			Help:      "Duration of health monitor sweeps over the registry",
			Buckets:   prometheus.DefBuckets,
		},
	)

	pmc.restarts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "service_restarts_total",
			Help:      "Total number of automatic service restarts",
		},
		[]string{"service"},
	)

	pmc.admissionDenials = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admission_denials_total",
			Help:      "Total number of starts refused by the resource check",
		},
		[]string{"service"},
	)

	pmc.registry.MustRegister(
		pmc.stateTransitions,
		pmc.startDuration,
		pmc.stopDuration,
		pmc.sweepDuration,
		pmc.restarts,
		pmc.admissionDenials,
	)

	return pmc
}

// ServiceStateTransition records a state transition
func (pmc *PrometheusMetricsCollector) ServiceStateTransition(name string, fromState, toState registry.Status) {
	pmc.stateTransitions.WithLabelValues(name, fromState.String(), toState.String()).Inc()
}

// ServiceStartDuration records the duration of a start operation
func (pmc *PrometheusMetricsCollector) ServiceStartDuration(name string, duration time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	pmc.startDuration.WithLabelValues(name, status).Observe(duration.Seconds())
}

// ServiceStopDuration records the duration of a stop operation
func (pmc *PrometheusMetricsCollector) ServiceStopDuration(name string, duration time.Duration) {
	pmc.stopDuration.WithLabelValues(name).Observe(duration.Seconds())
}

// ServiceRestart records an automatic restart
func (pmc *PrometheusMetricsCollector) ServiceRestart(name string) {
	pmc.restarts.WithLabelValues(name).Inc()
}

// AdmissionDenied records a refused start
func (pmc *PrometheusMetricsCollector) AdmissionDenied(name string) {
	pmc.admissionDenials.WithLabelValues(name).Inc()
}

// MonitorSweep records one monitor pass
func (pmc *PrometheusMetricsCollector) MonitorSweep(duration time.Duration) {
	pmc.sweepDuration.Observe(duration.Seconds())
}

// Registry returns the Prometheus registry for HTTP handler setup
func (pmc *PrometheusMetricsCollector) Registry() *prometheus.Registry {
	return pmc.registry
}

// Compile-time interface compliance check
var _ MetricsCollector = (*PrometheusMetricsCollector)(nil)
