package svcmgr

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// cpuPeriodUsec is the cgroup v2 cpu.max accounting period.
const cpuPeriodUsec = 100000

// CgroupGovernor implements QuotaGovernor on a cgroup v2 hierarchy. Each
// quota is one child cgroup under the governor's root; the handle is the
// cgroup path.
type CgroupGovernor struct {
	root string
}

// NewCgroupGovernor returns a governor rooted at /sys/fs/cgroup/sentinel,
// or at root when non-empty.
func NewCgroupGovernor(root string) *CgroupGovernor {
	if root == "" {
		root = "/sys/fs/cgroup/sentinel"
	}
	return &CgroupGovernor{root: root}
}

func (g *CgroupGovernor) Create(name string) (string, error) {
	path := filepath.Join(g.root, name)
	if err := os.MkdirAll(path, 0o755); err != nil {
		return "", fmt.Errorf("create cgroup %s: %w", path, err)
	}
	return path, nil
}

func (g *CgroupGovernor) SetLimit(handle string, kind LimitKind, value uint64) error {
	switch kind {
	case LimitMemoryMB:
		bytes := strconv.FormatUint(value<<20, 10)
		return os.WriteFile(filepath.Join(handle, "memory.max"), []byte(bytes), 0o644)
	case LimitCPUPercent:
		// percent of one CPU; 200 means two full cores.
		quota := value * cpuPeriodUsec / 100
		line := fmt.Sprintf("%d %d", quota, cpuPeriodUsec)
		return os.WriteFile(filepath.Join(handle, "cpu.max"), []byte(line), 0o644)
	}
	return fmt.Errorf("unknown limit kind %d", kind)
}

func (g *CgroupGovernor) Attach(handle string, pid int) error {
	return os.WriteFile(filepath.Join(handle, "cgroup.procs"), []byte(strconv.Itoa(pid)), 0o644)
}

func (g *CgroupGovernor) Destroy(handle string) error {
	// Rmdir only succeeds once the cgroup is empty, which it is after the
	// member process exits.
	return os.Remove(handle)
}

// Compile-time interface compliance check
var _ QuotaGovernor = (*CgroupGovernor)(nil)
