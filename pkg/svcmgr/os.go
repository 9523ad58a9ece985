package svcmgr

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/shirou/gopsutil/v4/process"
)

// OSLauncher launches backend processes with os/exec and resolves PIDs by
// reading the backend's PID file when it writes one, falling back to a
// process-table name scan only when the file cannot be read.
type OSLauncher struct {
	// pidWait bounds how long Launch waits for a daemonizing backend to
	// write its PID file.
	pidWait time.Duration

	// failFast is how long a foreground backend gets to crash before its
	// PID is accepted as live.
	failFast time.Duration
}

// NewOSLauncher returns a launcher with production timeouts.
func NewOSLauncher() *OSLauncher {
	return &OSLauncher{
		pidWait:  5 * time.Second,
		failFast: time.Second,
	}
}

// Launch starts the backend described by spec. Captured stderr rides along
// in the returned error when the process fails to come up.
func (l *OSLauncher) Launch(ctx context.Context, spec LaunchSpec) (int, error) {
	cmd := exec.Command(spec.Backend, spec.Args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	// Own session: backends must survive orchestrator restarts and never
	// receive its terminal signals.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setsid: true}

	if err := cmd.Start(); err != nil {
		return 0, err
	}

	if spec.OneShot {
		// Setup tool: it configures the kernel and exits. Exit 0 means
		// the tunnel is up even though no process remains; a userspace
		// helper left behind is found by name.
		done := make(chan error, 1)
		go func() { done <- cmd.Wait() }()
		select {
		case err := <-done:
			if err != nil {
				return 0, launchError(err, &stderr)
			}
		case <-ctx.Done():
			_ = cmd.Process.Kill()
			return 0, ctx.Err()
		}
		pid, _ := scanByName(spec.ProcessName)
		return pid, nil
	}

	if spec.PIDFile != "" {
		// Daemonizing backend: the started process forks and exits; the
		// real PID lands in the file.
		go func() { _ = cmd.Wait() }()
		pid, err := l.awaitPIDFile(ctx, spec)
		if err != nil {
			return 0, launchError(err, &stderr)
		}
		return pid, nil
	}

	// Foreground backend: a short window catches immediate config or
	// binary errors.
	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	select {
	case err := <-done:
		if err == nil {
			err = errors.New("backend exited immediately")
		}
		return 0, launchError(err, &stderr)
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		return 0, ctx.Err()
	case <-time.After(l.failFast):
	}
	return cmd.Process.Pid, nil
}

func launchError(err error, stderr *bytes.Buffer) error {
	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		return fmt.Errorf("%w: %s", err, msg)
	}
	return err
}

// awaitPIDFile polls for the PID file, then falls back to a name scan.
func (l *OSLauncher) awaitPIDFile(ctx context.Context, spec LaunchSpec) (int, error) {
	deadline := time.Now().Add(l.pidWait)
	for time.Now().Before(deadline) {
		if pid, err := readPIDFile(spec.PIDFile); err == nil && l.PIDAlive(pid) {
			return pid, nil
		}
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(100 * time.Millisecond):
		}
	}

	if pid, ok := scanByName(spec.ProcessName); ok {
		return pid, nil
	}
	return 0, fmt.Errorf("no PID file at %s and no %s process found", spec.PIDFile, spec.ProcessName)
}

func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("malformed pid file %s", path)
	}
	return pid, nil
}

// scanByName finds a process by executable name. Fallback only: ambiguous
// on hosts running more than one instance of a backend.
func scanByName(name string) (int, bool) {
	if name == "" {
		return 0, false
	}
	procs, err := process.Processes()
	if err != nil {
		return 0, false
	}
	for _, proc := range procs {
		pname, err := proc.Name()
		if err != nil {
			continue
		}
		if pname == name {
			return int(proc.Pid), true
		}
	}
	return 0, false
}

// Signal delivers a termination or kill signal to pid.
func (l *OSLauncher) Signal(pid int, sig Signal) error {
	switch sig {
	case SignalKill:
		return syscall.Kill(pid, syscall.SIGKILL)
	default:
		return syscall.Kill(pid, syscall.SIGTERM)
	}
}

// PIDAlive probes liveness with a null signal.
func (l *OSLauncher) PIDAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	err := syscall.Kill(pid, 0)
	return err == nil || errors.Is(err, syscall.EPERM)
}

// Compile-time interface compliance check
var _ ProcessLauncher = (*OSLauncher)(nil)
