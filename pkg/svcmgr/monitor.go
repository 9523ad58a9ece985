package svcmgr

import (
	"context"
	"log"
	"time"

	"github.com/sentinelos/sentinel/pkg/registry"
)

// maxRestartsMessage is the terminal diagnostic left on a record once
// automatic restarts are exhausted.
const maxRestartsMessage = "max restarts exceeded"

// StartMonitor launches the health monitor loop. It runs until the context
// is cancelled or StopMonitor is called.
func (m *Manager) StartMonitor(ctx context.Context) {
	if m.monitorCancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	m.monitorCancel = cancel
	m.monitorDone = make(chan struct{})

	go func() {
		defer close(m.monitorDone)
		log.Printf("Health monitor started (interval %s)", m.pollInterval)

		ticker := time.NewTicker(m.pollInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				log.Printf("Health monitor stopped")
				return
			case <-ticker.C:
				m.sweep(ctx)
			}
		}
	}()
}

// StopMonitor cancels the monitor loop and waits for it to exit.
func (m *Manager) StopMonitor() {
	if m.monitorCancel == nil {
		return
	}
	m.monitorCancel()
	<-m.monitorDone
	m.monitorCancel = nil
	m.monitorDone = nil
}

// sweep is one monitor pass: find Running records whose process died and
// apply bounded automatic restart.
func (m *Manager) sweep(ctx context.Context) {
	started := time.Now()

	for _, name := range m.registry.Names() {
		rec, ok := m.registry.Get(name)
		if !ok {
			continue
		}

		rec.Lock()
		// A running record without a PID belongs to a one-shot setup
		// backend; there is no process to probe.
		if rec.Status == registry.StatusRunning && rec.PID != 0 && !m.launcher.PIDAlive(rec.PID) {
			m.handleDeathLocked(ctx, rec)
		}
		rec.Unlock()

		if ctx.Err() != nil {
			break
		}
	}

	m.metrics.MonitorSweep(time.Since(started))
}

// handleDeathLocked reacts to a dead backend found by the sweep. Restarts
// are bounded; past the bound the record becomes a terminal Error that only
// an explicit operator start clears.
func (m *Manager) handleDeathLocked(ctx context.Context, rec *registry.Record) {
	log.Printf("Service %s: process %d found dead", rec.Name, rec.PID)

	if rec.RestartCount >= m.maxRestarts {
		rec.LastError = ErrMaxRestartsExceeded(rec.Name, rec.RestartCount).Error()
		m.releaseQuotaLocked(rec)
		rec.PID = 0
		rec.StartTime = time.Time{}
		m.transition(rec, registry.StatusError)
		log.Printf("Service %s: %s (%d attempts), operator action required", rec.Name, maxRestartsMessage, rec.RestartCount)
		return
	}

	rec.RestartCount++
	m.metrics.ServiceRestart(rec.Name)
	log.Printf("Service %s: automatic restart %d/%d", rec.Name, rec.RestartCount, m.maxRestarts)

	// The process is already gone; settle the record and relaunch. A
	// failed relaunch leaves the record in Error with its diagnostic.
	m.releaseLocked(rec)
	if err := m.startLocked(ctx, rec); err != nil {
		log.Printf("Service %s: automatic restart failed: %v", rec.Name, err)
	}
}

// releaseQuotaLocked destroys a dangling quota without touching the rest
// of the record.
func (m *Manager) releaseQuotaLocked(rec *registry.Record) {
	if rec.QuotaHandle != "" && m.governor != nil {
		if err := m.governor.Destroy(rec.QuotaHandle); err != nil {
			log.Printf("Service %s: quota destroy failed: %v", rec.Name, err)
		}
		rec.QuotaHandle = ""
	}
}
