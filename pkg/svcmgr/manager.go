// Package svcmgr orchestrates the lifecycle of registered backend services:
// admission, launch, quota attachment, supervised running and teardown.
//
// All host interaction goes through collaborator interfaces (process
// launch, resource quotas, firewall); the orchestrator itself only drives
// the per-service state machine and never touches processes directly.
package svcmgr

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/sentinelos/sentinel/pkg/hostinfo"
	"github.com/sentinelos/sentinel/pkg/registry"
)

// endpointSet is the firewall set tracking active tunnel endpoints.
const endpointSet = "tunnel_endpoints"

// Manager drives service records through their state machine. Operations
// on the same service name are serialized by the record lock; the monitor
// respects the same lock, so an operator start and a monitor-triggered
// restart never interleave on one record.
type Manager struct {
	registry *registry.Registry
	launcher ProcessLauncher
	governor QuotaGovernor
	firewall RulesetApplier
	host     hostinfo.Provider
	metrics  MetricsCollector

	artifactDir string

	memoryFloorMB  uint64
	cpuWarnPercent float64

	stopGrace    time.Duration
	stopPoll     time.Duration
	pollInterval time.Duration
	maxRestarts  int

	monitorCancel context.CancelFunc
	monitorDone   chan struct{}
}

// New creates a Manager over reg. The governor and firewall collaborators
// are optional; without them quotas and firewall marking are skipped.
func New(reg *registry.Registry, opts ...Option) *Manager {
	m := &Manager{
		registry:       reg,
		launcher:       NewOSLauncher(),
		host:           hostinfo.NewSysProvider(),
		metrics:        NewNoopMetricsCollector(),
		artifactDir:    "/var/lib/sentinel/artifacts",
		memoryFloorMB:  512,
		cpuWarnPercent: 80,
		stopGrace:      5 * time.Second,
		stopPoll:       500 * time.Millisecond,
		pollInterval:   10 * time.Second,
		maxRestarts:    3,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// transition moves rec to a new status under its held lock and records the
// metric. All status writes funnel through here.
func (m *Manager) transition(rec *registry.Record, to registry.Status) {
	from := rec.Status
	if from == to {
		return
	}
	rec.Status = to
	m.metrics.ServiceStateTransition(rec.Name, from, to)
}

// Start is the operator-facing start. It resets the restart counter unless
// the service sits in Error, so a retry after exhausted automatic restarts
// keeps its history visible.
func (m *Manager) Start(ctx context.Context, name string) error {
	rec, ok := m.registry.Get(name)
	if !ok {
		return ErrServiceNotFound(name)
	}

	rec.Lock()
	defer rec.Unlock()

	switch rec.Status {
	case registry.StatusRunning, registry.StatusStarting, registry.StatusStopping:
		return ErrAlreadyRunning(name, rec.PID)
	}

	if rec.Status != registry.StatusError {
		rec.RestartCount = 0
	}

	started := time.Now()
	err := m.startLocked(ctx, rec)
	m.metrics.ServiceStartDuration(name, time.Since(started), err)
	return err
}

// startLocked runs the admission check and launch sequence. Callers hold
// the record lock.
func (m *Manager) startLocked(ctx context.Context, rec *registry.Record) error {
	snap, err := m.host.Snapshot(ctx)
	if err != nil {
		// The one condition allowed to fail the command without touching
		// service state.
		return ErrSnapshotFailed(err)
	}

	if memoryHeavyProtocols[rec.Protocol] && snap.MemoryAvailableMB < m.memoryFloorMB {
		admErr := ErrAdmissionDenied(rec.Name, snap.MemoryAvailableMB, m.memoryFloorMB)
		rec.LastError = admErr.Error()
		m.transition(rec, registry.StatusError)
		m.metrics.AdmissionDenied(rec.Name)
		return admErr
	}
	if cpuHeavyProtocols[rec.Protocol] && snap.CPUUsagePercent > m.cpuWarnPercent {
		log.Printf("Service %s: starting CPU-bound backend under CPU pressure (%.0f%% used)",
			rec.Name, snap.CPUUsagePercent)
	}

	m.transition(rec, registry.StatusStarting)

	spec, err := WriteArtifact(m.artifactDir, rec.Name, rec.Config)
	if err != nil {
		rec.LastError = err.Error()
		m.transition(rec, registry.StatusError)
		return err
	}

	pid, err := m.launcher.Launch(ctx, spec)
	if err != nil {
		launchErr := ErrLaunchFailed(rec.Name, "", err)
		rec.LastError = launchErr.Error()
		m.transition(rec, registry.StatusError)
		return launchErr
	}

	rec.PID = pid
	rec.StartTime = time.Now()
	rec.LastError = ""
	m.transition(rec, registry.StatusRunning)
	if pid == 0 {
		log.Printf("Service %s: running, no supervised process", rec.Name)
	} else {
		log.Printf("Service %s: running with pid %d", rec.Name, pid)
	}

	m.attachQuota(rec)
	m.markEndpoint(ctx, rec)

	return nil
}

// attachQuota creates and attaches a resource quota for constrained
// protocol classes. Quota failures never fail a start; the backend just
// runs unconstrained.
func (m *Manager) attachQuota(rec *registry.Record) {
	if m.governor == nil || rec.PID == 0 {
		return
	}
	limits := quotaPlan(rec.Protocol, m.memoryFloorMB)
	if len(limits) == 0 {
		return
	}

	handle, err := m.governor.Create(rec.Name)
	if err != nil {
		log.Printf("Service %s: quota create failed, running unconstrained: %v", rec.Name, err)
		return
	}
	for _, limit := range limits {
		if err := m.governor.SetLimit(handle, limit.kind, limit.value); err != nil {
			log.Printf("Service %s: quota limit failed: %v", rec.Name, err)
		}
	}
	if err := m.governor.Attach(handle, rec.PID); err != nil {
		log.Printf("Service %s: quota attach failed: %v", rec.Name, err)
		if derr := m.governor.Destroy(handle); derr != nil {
			log.Printf("Service %s: quota cleanup failed: %v", rec.Name, derr)
		}
		return
	}
	rec.QuotaHandle = handle
}

// markEndpoint records the tunnel endpoint in the firewall's tracking set,
// best-effort.
func (m *Manager) markEndpoint(ctx context.Context, rec *registry.Record) {
	if m.firewall == nil || rec.Config == nil || rec.Config.Endpoint == nil {
		return
	}
	if err := m.firewall.AddElement(ctx, endpointSet, rec.Config.Endpoint.Host); err != nil {
		log.Printf("Service %s: firewall endpoint marking failed: %v", rec.Name, err)
	}
}

// Stop brings a service down gracefully. Stopping an already stopped
// service is a no-op, never an error.
func (m *Manager) Stop(ctx context.Context, name string) error {
	rec, ok := m.registry.Get(name)
	if !ok {
		return ErrServiceNotFound(name)
	}

	rec.Lock()
	defer rec.Unlock()

	started := time.Now()
	err := m.stopLocked(ctx, rec)
	m.metrics.ServiceStopDuration(name, time.Since(started))
	return err
}

// stopLocked terminates the backend: termination signal, liveness polls
// for the grace period, then kill. Callers hold the record lock.
func (m *Manager) stopLocked(ctx context.Context, rec *registry.Record) error {
	if rec.Status == registry.StatusStopped {
		return nil
	}
	if rec.PID == 0 || !m.launcher.PIDAlive(rec.PID) {
		// Nothing live to signal; just settle the record.
		m.releaseLocked(rec)
		return nil
	}

	m.transition(rec, registry.StatusStopping)

	if err := m.launcher.Signal(rec.PID, SignalTerminate); err != nil {
		log.Printf("Service %s: termination signal failed: %v", rec.Name, err)
	}

	deadline := time.Now().Add(m.stopGrace)
	for time.Now().Before(deadline) {
		if !m.launcher.PIDAlive(rec.PID) {
			m.releaseLocked(rec)
			return nil
		}
		select {
		case <-ctx.Done():
			// Cascade timeout: escalate immediately instead of waiting out
			// the full grace period.
			return m.killLocked(rec)
		case <-time.After(m.stopPoll):
		}
	}

	return m.killLocked(rec)
}

func (m *Manager) killLocked(rec *registry.Record) error {
	log.Printf("Service %s: did not exit in time, killing pid %d", rec.Name, rec.PID)
	if err := m.launcher.Signal(rec.PID, SignalKill); err != nil && m.launcher.PIDAlive(rec.PID) {
		termErr := ErrTerminationFailed(rec.Name, rec.PID, err)
		rec.LastError = termErr.Error()
		m.transition(rec, registry.StatusError)
		return termErr
	}
	m.releaseLocked(rec)
	return nil
}

// releaseLocked destroys the quota and settles the record into Stopped.
func (m *Manager) releaseLocked(rec *registry.Record) {
	m.releaseQuotaLocked(rec)
	rec.PID = 0
	rec.StartTime = time.Time{}
	m.transition(rec, registry.StatusStopped)
}

// Restart stops then starts a service under one record lock. It does not
// reset the restart counter; only an operator start does.
func (m *Manager) Restart(ctx context.Context, name string) error {
	rec, ok := m.registry.Get(name)
	if !ok {
		return ErrServiceNotFound(name)
	}

	rec.Lock()
	defer rec.Unlock()

	if err := m.stopLocked(ctx, rec); err != nil {
		return err
	}
	return m.startLocked(ctx, rec)
}

// ServiceStatus is the per-service status line reported to the operator.
type ServiceStatus struct {
	registry.View

	Uptime      time.Duration
	CPUPercent  float64
	MemoryRSSMB uint64
}

// Status reports every registered service with live per-process usage for
// running backends. Usage read failures leave the usage fields zero.
func (m *Manager) Status(ctx context.Context) []ServiceStatus {
	views := m.registry.Views()
	statuses := make([]ServiceStatus, 0, len(views))
	for _, view := range views {
		status := ServiceStatus{View: view}
		if view.Status == registry.StatusRunning && view.PID != 0 {
			status.Uptime = time.Since(view.StartTime)
			if usage, err := m.host.ProcessUsage(ctx, view.PID); err == nil {
				status.CPUPercent = usage.CPUPercent
				status.MemoryRSSMB = usage.MemoryRSSMB
			}
		}
		statuses = append(statuses, status)
	}
	return statuses
}

// Shutdown stops the monitor, then stops every service in parallel. Each
// stop gets its own timeout so one stuck backend cannot block the rest of
// the cascade.
func (m *Manager) Shutdown(ctx context.Context) {
	m.StopMonitor()

	var wg sync.WaitGroup
	for _, name := range m.registry.Names() {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			stopCtx, cancel := context.WithTimeout(ctx, m.stopGrace+2*time.Second)
			defer cancel()
			if err := m.Stop(stopCtx, name); err != nil {
				log.Printf("Shutdown: stop of %s failed: %v", name, err)
			}
		}(name)
	}
	wg.Wait()
}
