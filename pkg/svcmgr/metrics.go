package svcmgr

import (
	"time"

	"github.com/sentinelos/sentinel/pkg/registry"
)

// MetricsCollector defines the interface for collecting orchestrator metrics
type MetricsCollector interface {
	// ServiceStateTransition records a state transition for a service
	ServiceStateTransition(name string, fromState, toState registry.Status)

	// ServiceStartDuration records the duration of a start operation
	ServiceStartDuration(name string, duration time.Duration, err error)

	// ServiceStopDuration records the duration of a stop operation
	ServiceStopDuration(name string, duration time.Duration)

	// ServiceRestart records an automatic restart by the monitor
	ServiceRestart(name string)

	// AdmissionDenied records a start refused by the resource check
	AdmissionDenied(name string)

	// MonitorSweep records one monitor pass over the registry
	MonitorSweep(duration time.Duration)
}

// noopMetricsCollector is a no-op implementation of MetricsCollector
type noopMetricsCollector struct{}

func (n *noopMetricsCollector) ServiceStateTransition(name string, fromState, toState registry.Status) {
}
func (n *noopMetricsCollector) ServiceStartDuration(name string, duration time.Duration, err error) {}
func (n *noopMetricsCollector) ServiceStopDuration(name string, duration time.Duration)            {}
func (n *noopMetricsCollector) ServiceRestart(name string)                                         {}
func (n *noopMetricsCollector) AdmissionDenied(name string)                                        {}
func (n *noopMetricsCollector) MonitorSweep(duration time.Duration)                                {}

// NewNoopMetricsCollector creates a no-op metrics collector
func NewNoopMetricsCollector() MetricsCollector {
	return &noopMetricsCollector{}
}
