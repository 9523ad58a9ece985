package svcmgr

import (
	"time"

	"github.com/sentinelos/sentinel/pkg/hostinfo"
)

// Option configures the Manager
type Option func(*Manager)

// WithLauncher sets the process-launch collaborator
func WithLauncher(l ProcessLauncher) Option {
	return func(m *Manager) {
		m.launcher = l
	}
}

// WithGovernor sets the resource-quota collaborator
func WithGovernor(g QuotaGovernor) Option {
	return func(m *Manager) {
		m.governor = g
	}
}

// WithFirewall sets the firewall collaborator
func WithFirewall(f RulesetApplier) Option {
	return func(m *Manager) {
		m.firewall = f
	}
}

// WithHostInfo sets the resource-snapshot provider
func WithHostInfo(p hostinfo.Provider) Option {
	return func(m *Manager) {
		m.host = p
	}
}

// WithMetricsCollector sets the metrics collector
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(m *Manager) {
		m.metrics = mc
	}
}

// WithArtifactDir sets where native backend config artifacts are written
func WithArtifactDir(dir string) Option {
	return func(m *Manager) {
		m.artifactDir = dir
	}
}

// WithMemoryFloorMB sets the minimum available memory required to admit a
// memory-heavy backend
func WithMemoryFloorMB(mb uint64) Option {
	return func(m *Manager) {
		m.memoryFloorMB = mb
	}
}

// WithCPUWarnPercent sets the CPU usage level above which starting a
// CPU-bound backend logs a warning
func WithCPUWarnPercent(pct float64) Option {
	return func(m *Manager) {
		m.cpuWarnPercent = pct
	}
}

// WithStopGrace sets how long a stop waits after the termination signal
// before escalating to a kill
func WithStopGrace(d time.Duration) Option {
	return func(m *Manager) {
		m.stopGrace = d
	}
}

// WithStopPollInterval sets how often a stop re-checks process liveness
func WithStopPollInterval(d time.Duration) Option {
	return func(m *Manager) {
		m.stopPoll = d
	}
}

// WithPollInterval sets the health monitor poll interval
func WithPollInterval(d time.Duration) Option {
	return func(m *Manager) {
		m.pollInterval = d
	}
}

// WithMaxRestarts sets the automatic restart bound applied by the monitor
func WithMaxRestarts(n int) Option {
	return func(m *Manager) {
		m.maxRestarts = n
	}
}
