package svcmgr

import "context"

// Signal is the kind of signal delivered to a backend process.
type Signal int

const (
	// SignalTerminate asks the process to exit gracefully.
	SignalTerminate Signal = iota
	// SignalKill forcibly terminates the process.
	SignalKill
)

// LaunchSpec is the launch contract handed to the process collaborator:
// which binary to run, with what arguments, and how its PID is resolved
// afterwards.
type LaunchSpec struct {
	// Backend is the executable name of the backend binary.
	Backend string

	// Args is the full argument vector, excluding the binary itself.
	Args []string

	// ArtifactPath is the native config file written for this launch.
	ArtifactPath string

	// PIDFile, when non-empty, is where the backend writes its PID. PID
	// resolution reads it first; name lookup is only the fallback.
	PIDFile string

	// ProcessName is the name used for the fallback process-table lookup.
	ProcessName string

	// OneShot marks a setup tool that configures the kernel and exits
	// (wg-quick up). A clean exit is a successful launch; the resolved
	// PID stays zero when no userspace process remains.
	OneShot bool
}

// ProcessLauncher is the process-launch collaborator boundary. The
// orchestrator never spawns or signals processes itself.
type ProcessLauncher interface {
	// Launch starts the backend and resolves its PID. A failure carries
	// captured stderr in the error text.
	Launch(ctx context.Context, spec LaunchSpec) (pid int, err error)

	// Signal delivers a signal to pid.
	Signal(pid int, sig Signal) error

	// PIDAlive reports whether pid refers to a live process.
	PIDAlive(pid int) bool
}

// LimitKind selects which resource a quota limit constrains.
type LimitKind int

const (
	LimitMemoryMB LimitKind = iota
	LimitCPUPercent
)

// QuotaGovernor is the resource-quota collaborator boundary. Quotas apply
// only to memory-heavy or CPU-bound protocol classes; lightweight backends
// run unconstrained.
type QuotaGovernor interface {
	Create(name string) (handle string, err error)
	SetLimit(handle string, kind LimitKind, value uint64) error
	Attach(handle string, pid int) error
	Destroy(handle string) error
}

// RulesetApplier is the firewall collaborator boundary. The orchestrator
// never generates or parses firewall syntax itself.
type RulesetApplier interface {
	ApplyRuleset(ctx context.Context, ruleset string) error
	AddElement(ctx context.Context, setName, value string) error
}
