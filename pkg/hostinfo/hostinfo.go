// Package hostinfo probes host resource state: CPU and memory counters via
// gopsutil, plus a sysfs scan for VirtIO devices on virtualized hosts.
package hostinfo

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/shirou/gopsutil/v4/cpu"
	"github.com/shirou/gopsutil/v4/mem"
	"github.com/shirou/gopsutil/v4/process"
)

// Snapshot is a point-in-time view of host resources. All admission
// decisions read from a Snapshot taken at decision time, never from cached
// state.
type Snapshot struct {
	CPUCount          int
	CPUUsagePercent   float64
	MemoryTotalMB     uint64
	MemoryAvailableMB uint64

	VirtIONetDevices   []string
	VirtIOBlockDevices []string
}

// ProcessUsage is the per-process resource view reported in status output.
type ProcessUsage struct {
	CPUPercent  float64
	MemoryRSSMB uint64
}

// Provider supplies resource snapshots and per-process usage. The orchestrator
// and monitor take a Provider at construction instead of reading the host
// directly, so tests substitute fixed values.
type Provider interface {
	Snapshot(ctx context.Context) (Snapshot, error)
	ProcessUsage(ctx context.Context, pid int) (ProcessUsage, error)
}

// SysProvider reads live counters through gopsutil and scans sysfs for
// VirtIO devices.
type SysProvider struct {
	sysfsRoot string
}

// Option configures a SysProvider.
type Option func(*SysProvider)

// WithSysfsRoot overrides the sysfs mount point, used by tests with a
// synthetic tree.
func WithSysfsRoot(root string) Option {
	return func(p *SysProvider) {
		p.sysfsRoot = root
	}
}

// NewSysProvider returns a Provider backed by the live host.
func NewSysProvider(opts ...Option) *SysProvider {
	p := &SysProvider{sysfsRoot: "/sys"}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Snapshot reads CPU and memory counters and scans for VirtIO devices.
// Counter read failures propagate; the caller treats them as a hard failure
// of the requesting command. The sysfs scan is best-effort.
func (p *SysProvider) Snapshot(ctx context.Context) (Snapshot, error) {
	var snap Snapshot

	count, err := cpu.CountsWithContext(ctx, true)
	if err != nil {
		return snap, err
	}
	snap.CPUCount = count

	// Instantaneous usage since the previous call; the first call of a
	// process reports 0.
	percents, err := cpu.PercentWithContext(ctx, 0, false)
	if err != nil {
		return snap, err
	}
	if len(percents) > 0 {
		snap.CPUUsagePercent = percents[0]
	}

	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return snap, err
	}
	snap.MemoryTotalMB = vm.Total / (1 << 20)
	snap.MemoryAvailableMB = vm.Available / (1 << 20)

	snap.VirtIONetDevices = p.virtioNetDevices()
	snap.VirtIOBlockDevices = p.virtioBlockDevices()

	return snap, nil
}

// ProcessUsage reports CPU and resident memory for one backend PID.
func (p *SysProvider) ProcessUsage(ctx context.Context, pid int) (ProcessUsage, error) {
	var usage ProcessUsage

	proc, err := process.NewProcessWithContext(ctx, int32(pid))
	if err != nil {
		return usage, err
	}
	if cpuPct, err := proc.CPUPercentWithContext(ctx); err == nil {
		usage.CPUPercent = cpuPct
	}
	info, err := proc.MemoryInfoWithContext(ctx)
	if err != nil {
		return usage, err
	}
	usage.MemoryRSSMB = info.RSS / (1 << 20)
	return usage, nil
}

// virtioNetDevices lists network interfaces whose backing driver resolves
// to a virtio driver.
func (p *SysProvider) virtioNetDevices() []string {
	entries, err := os.ReadDir(filepath.Join(p.sysfsRoot, "class", "net"))
	if err != nil {
		return nil
	}

	var devices []string
	for _, entry := range entries {
		name := entry.Name()
		if name == "lo" {
			continue
		}
		driver, err := filepath.EvalSymlinks(filepath.Join(p.sysfsRoot, "class", "net", name, "device", "driver"))
		if err != nil {
			continue
		}
		if strings.Contains(filepath.Base(driver), "virtio") {
			devices = append(devices, name)
		}
	}
	return devices
}

// virtioBlockDevices lists vd* block devices.
func (p *SysProvider) virtioBlockDevices() []string {
	entries, err := os.ReadDir(filepath.Join(p.sysfsRoot, "block"))
	if err != nil {
		return nil
	}

	var devices []string
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "vd") {
			devices = append(devices, entry.Name())
		}
	}
	return devices
}

// QueueCount reports the RX queue count of a network interface, defaulting
// to 4 when the queue directory cannot be read.
func (p *SysProvider) QueueCount(device string) int {
	entries, err := os.ReadDir(filepath.Join(p.sysfsRoot, "class", "net", device, "queues"))
	if err != nil {
		return 4
	}
	count := 0
	for _, entry := range entries {
		if strings.HasPrefix(entry.Name(), "rx-") {
			count++
		}
	}
	if count == 0 {
		return 4
	}
	return count
}
