package svcmgr

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestOSLauncher() *OSLauncher {
	return &OSLauncher{
		pidWait:  time.Second,
		failFast: 50 * time.Millisecond,
	}
}

func TestOSLauncherOneShotCleanExit(t *testing.T) {
	l := newTestOSLauncher()

	// wg-quick semantics: configure and exit 0, leaving no process.
	pid, err := l.Launch(context.Background(), LaunchSpec{
		Backend: "true",
		OneShot: true,
	})

	require.NoError(t, err)
	assert.Zero(t, pid)
}

func TestOSLauncherOneShotFailureCarriesStderr(t *testing.T) {
	l := newTestOSLauncher()

	_, err := l.Launch(context.Background(), LaunchSpec{
		Backend: "sh",
		Args:    []string{"-c", "echo boom >&2; exit 3"},
		OneShot: true,
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "boom")
}

func TestOSLauncherForegroundImmediateExitFails(t *testing.T) {
	l := newTestOSLauncher()

	// A foreground daemon that exits inside the fail-fast window is a
	// launch failure, one-shot tools aside.
	_, err := l.Launch(context.Background(), LaunchSpec{Backend: "true"})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "exited immediately")
}

func TestOSLauncherForegroundSurvivesFailFast(t *testing.T) {
	l := newTestOSLauncher()

	pid, err := l.Launch(context.Background(), LaunchSpec{
		Backend: "sleep",
		Args:    []string{"10"},
	})

	require.NoError(t, err)
	require.NotZero(t, pid)
	assert.True(t, l.PIDAlive(pid))

	require.NoError(t, l.Signal(pid, SignalKill))
}
