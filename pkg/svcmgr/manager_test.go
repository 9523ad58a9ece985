package svcmgr

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sentinelos/sentinel/pkg/hostinfo"
	"github.com/sentinelos/sentinel/pkg/parser"
	"github.com/sentinelos/sentinel/pkg/registry"
)

// fakeLauncher is an in-memory ProcessLauncher. All accesses are mutex
// guarded so tests can run the monitor concurrently.
type fakeLauncher struct {
	mu       sync.Mutex
	nextPID  int
	alive    map[int]bool
	launches []LaunchSpec
	signals  []Signal

	launchErr    error
	bornDead     bool
	ignoreTerm   bool
	oneShotNoPID bool
}

func newFakeLauncher() *fakeLauncher {
	return &fakeLauncher{nextPID: 1000, alive: map[int]bool{}}
}

func (f *fakeLauncher) Launch(ctx context.Context, spec LaunchSpec) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.launchErr != nil {
		return 0, f.launchErr
	}
	if spec.OneShot && f.oneShotNoPID {
		f.launches = append(f.launches, spec)
		return 0, nil
	}
	f.nextPID++
	pid := f.nextPID
	f.alive[pid] = !f.bornDead
	f.launches = append(f.launches, spec)
	return pid, nil
}

func (f *fakeLauncher) Signal(pid int, sig Signal) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.signals = append(f.signals, sig)
	if sig == SignalKill || (sig == SignalTerminate && !f.ignoreTerm) {
		f.alive[pid] = false
	}
	return nil
}

func (f *fakeLauncher) PIDAlive(pid int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.alive[pid]
}

func (f *fakeLauncher) kill(pid int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.alive[pid] = false
}

func (f *fakeLauncher) livePIDs() []int {
	f.mu.Lock()
	defer f.mu.Unlock()
	var pids []int
	for pid, ok := range f.alive {
		if ok {
			pids = append(pids, pid)
		}
	}
	return pids
}

func (f *fakeLauncher) launchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.launches)
}

type fakeGovernor struct {
	mu        sync.Mutex
	created   []string
	attached  map[string]int
	destroyed []string
}

func newFakeGovernor() *fakeGovernor {
	return &fakeGovernor{attached: map[string]int{}}
}

func (f *fakeGovernor) Create(name string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, name)
	return "quota/" + name, nil
}

func (f *fakeGovernor) SetLimit(handle string, kind LimitKind, value uint64) error { return nil }

func (f *fakeGovernor) Attach(handle string, pid int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attached[handle] = pid
	return nil
}

func (f *fakeGovernor) Destroy(handle string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.destroyed = append(f.destroyed, handle)
	return nil
}

type fakeHost struct {
	cpuPercent  float64
	availableMB uint64
	snapErr     error
}

func (f *fakeHost) Snapshot(ctx context.Context) (hostinfo.Snapshot, error) {
	if f.snapErr != nil {
		return hostinfo.Snapshot{}, f.snapErr
	}
	return hostinfo.Snapshot{
		CPUCount:          4,
		CPUUsagePercent:   f.cpuPercent,
		MemoryTotalMB:     2048,
		MemoryAvailableMB: f.availableMB,
	}, nil
}

func (f *fakeHost) ProcessUsage(ctx context.Context, pid int) (hostinfo.ProcessUsage, error) {
	return hostinfo.ProcessUsage{CPUPercent: 1.5, MemoryRSSMB: 24}, nil
}

type fakeFirewall struct {
	mu       sync.Mutex
	elements map[string][]string
}

func newFakeFirewall() *fakeFirewall {
	return &fakeFirewall{elements: map[string][]string{}}
}

func (f *fakeFirewall) ApplyRuleset(ctx context.Context, ruleset string) error { return nil }

func (f *fakeFirewall) AddElement(ctx context.Context, setName, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.elements[setName] = append(f.elements[setName], value)
	return nil
}

const wgSample = "[Interface]\nPrivateKey = cHJpdmF0ZQ==\nAddress = 10.0.0.2/32\n\n[Peer]\nPublicKey = cHVibGlj\nEndpoint = 203.0.113.7:51820\nAllowedIPs = 0.0.0.0/0\n"

func registerService(t *testing.T, reg *registry.Registry, name, hint, raw string) *registry.Record {
	t.Helper()
	res := parser.New(parser.DefaultProfile()).Parse(hint, raw)
	require.True(t, res.Parsed, "parse failed: %v", res.Errors)
	rec, err := reg.Register(name, res.Protocol, res.Config)
	require.NoError(t, err)
	return rec
}

type testEnv struct {
	reg      *registry.Registry
	launcher *fakeLauncher
	governor *fakeGovernor
	firewall *fakeFirewall
	host     *fakeHost
	mgr      *Manager
}

func newTestEnv(t *testing.T, extra ...Option) *testEnv {
	env := &testEnv{
		reg:      registry.New(),
		launcher: newFakeLauncher(),
		governor: newFakeGovernor(),
		firewall: newFakeFirewall(),
		host:     &fakeHost{availableMB: 1024},
	}
	opts := []Option{
		WithLauncher(env.launcher),
		WithGovernor(env.governor),
		WithFirewall(env.firewall),
		WithHostInfo(env.host),
		WithArtifactDir(t.TempDir()),
		WithStopGrace(100 * time.Millisecond),
		WithStopPollInterval(5 * time.Millisecond),
		WithPollInterval(20 * time.Millisecond),
	}
	env.mgr = New(env.reg, append(opts, extra...)...)
	return env
}

func TestStartRunsService(t *testing.T) {
	env := newTestEnv(t)
	rec := registerService(t, env.reg, "wg-home", "auto", wgSample)

	require.NoError(t, env.mgr.Start(context.Background(), "wg-home"))

	view := rec.View()
	assert.Equal(t, registry.StatusRunning, view.Status)
	assert.NotZero(t, view.PID)
	assert.False(t, view.StartTime.IsZero())
	assert.Equal(t, 1, env.launcher.launchCount())
	assert.Equal(t, []string{"203.0.113.7"}, env.firewall.elements[endpointSet])
}

func TestStartOneShotBackendRunsWithoutPID(t *testing.T) {
	env := newTestEnv(t)
	env.launcher.oneShotNoPID = true
	rec := registerService(t, env.reg, "wg-home", "auto", wgSample)

	// wg-quick exits 0 after configuring the interface; the service still
	// reaches Running, just without a supervised PID.
	require.NoError(t, env.mgr.Start(context.Background(), "wg-home"))

	view := rec.View()
	assert.Equal(t, registry.StatusRunning, view.Status)
	assert.Zero(t, view.PID)
	assert.False(t, view.StartTime.IsZero())

	require.NoError(t, env.mgr.Stop(context.Background(), "wg-home"))
	assert.Equal(t, registry.StatusStopped, rec.View().Status)
}

func TestStartUnknownService(t *testing.T) {
	env := newTestEnv(t)

	err := env.mgr.Start(context.Background(), "ghost")
	assert.True(t, IsErrorCode(err, ErrorCodeServiceNotFound))
}

func TestStartAlreadyRunning(t *testing.T) {
	env := newTestEnv(t)
	registerService(t, env.reg, "wg-home", "auto", wgSample)

	require.NoError(t, env.mgr.Start(context.Background(), "wg-home"))
	err := env.mgr.Start(context.Background(), "wg-home")

	assert.True(t, IsErrorCode(err, ErrorCodeAlreadyRunning))
	assert.Equal(t, 1, env.launcher.launchCount(), "second start must not launch")
}

func TestAdmissionDeniedOnLowMemory(t *testing.T) {
	env := newTestEnv(t)
	env.host.availableMB = 256
	rec := registerService(t, env.reg, "proxy", "auto",
		"vless://8f3c2d44-9a7b-4ef0-9d2f-aaaa56789012@example.com:443")

	err := env.mgr.Start(context.Background(), "proxy")

	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrorCodeAdmissionDenied))
	view := rec.View()
	assert.Equal(t, registry.StatusError, view.Status)
	assert.Zero(t, view.PID, "denied start must not record a PID")
	assert.Contains(t, view.LastError, "ADMISSION_DENIED")
	assert.Zero(t, env.launcher.launchCount(), "denied start must not launch")
}

func TestAdmissionIgnoresLightweightProtocols(t *testing.T) {
	env := newTestEnv(t)
	env.host.availableMB = 256

	registerService(t, env.reg, "wg-home", "auto", wgSample)
	assert.NoError(t, env.mgr.Start(context.Background(), "wg-home"))
}

func TestCPUPressureWarnsButStarts(t *testing.T) {
	env := newTestEnv(t)
	env.host.cpuPercent = 95
	rec := registerService(t, env.reg, "sb", "sing-box",
		`{"outbounds": [{"type": "vless", "server": "sb.example.com", "server_port": 443}]}`)

	require.NoError(t, env.mgr.Start(context.Background(), "sb"))
	assert.Equal(t, registry.StatusRunning, rec.View().Status)
}

func TestSnapshotFailureFailsCommand(t *testing.T) {
	env := newTestEnv(t)
	env.host.snapErr = errors.New("proc unreadable")
	rec := registerService(t, env.reg, "wg-home", "auto", wgSample)

	err := env.mgr.Start(context.Background(), "wg-home")

	assert.True(t, IsErrorCode(err, ErrorCodeSnapshotFailed))
	assert.Equal(t, registry.StatusStopped, rec.View().Status, "service state untouched")
}

func TestLaunchFailure(t *testing.T) {
	env := newTestEnv(t)
	env.launcher.launchErr = errors.New("exec: xray: no such file: stderr says boom")
	rec := registerService(t, env.reg, "proxy", "auto",
		"vless://8f3c2d44-9a7b-4ef0-9d2f-aaaa56789012@example.com:443")

	err := env.mgr.Start(context.Background(), "proxy")

	require.Error(t, err)
	assert.True(t, IsErrorCode(err, ErrorCodeLaunchFailed))
	assert.False(t, IsErrorCode(err, ErrorCodeAdmissionDenied), "launch failure is not an admission denial")
	view := rec.View()
	assert.Equal(t, registry.StatusError, view.Status)
	assert.Contains(t, view.LastError, "boom")
}

func TestStopIsIdempotent(t *testing.T) {
	env := newTestEnv(t)
	rec := registerService(t, env.reg, "wg-home", "auto", wgSample)

	require.NoError(t, env.mgr.Start(context.Background(), "wg-home"))
	require.NoError(t, env.mgr.Stop(context.Background(), "wg-home"))

	view := rec.View()
	assert.Equal(t, registry.StatusStopped, view.Status)
	assert.Zero(t, view.PID)
	assert.True(t, view.StartTime.IsZero())

	assert.NoError(t, env.mgr.Stop(context.Background(), "wg-home"), "second stop is a no-op")
}

func TestStopEscalatesToKill(t *testing.T) {
	env := newTestEnv(t)
	env.launcher.ignoreTerm = true
	rec := registerService(t, env.reg, "wg-home", "auto", wgSample)

	require.NoError(t, env.mgr.Start(context.Background(), "wg-home"))
	require.NoError(t, env.mgr.Stop(context.Background(), "wg-home"))

	assert.Equal(t, registry.StatusStopped, rec.View().Status)
	assert.Contains(t, env.launcher.signals, SignalKill)
}

func TestQuotaLifecycleForHeavyBackend(t *testing.T) {
	env := newTestEnv(t)
	registerService(t, env.reg, "proxy", "auto",
		"vless://8f3c2d44-9a7b-4ef0-9d2f-aaaa56789012@example.com:443")

	require.NoError(t, env.mgr.Start(context.Background(), "proxy"))
	assert.Equal(t, []string{"proxy"}, env.governor.created)
	assert.Contains(t, env.governor.attached, "quota/proxy")

	require.NoError(t, env.mgr.Stop(context.Background(), "proxy"))
	assert.Equal(t, []string{"quota/proxy"}, env.governor.destroyed)
}

func TestNoQuotaForLightweightBackend(t *testing.T) {
	env := newTestEnv(t)
	registerService(t, env.reg, "wg-home", "auto", wgSample)

	require.NoError(t, env.mgr.Start(context.Background(), "wg-home"))
	assert.Empty(t, env.governor.created)
}

func TestOperatorStartResetsRestartCount(t *testing.T) {
	env := newTestEnv(t)
	rec := registerService(t, env.reg, "wg-home", "auto", wgSample)

	rec.Lock()
	rec.RestartCount = 2
	rec.Unlock()

	require.NoError(t, env.mgr.Start(context.Background(), "wg-home"))
	assert.Zero(t, rec.View().RestartCount)
}

func TestStartFromErrorKeepsRestartCount(t *testing.T) {
	env := newTestEnv(t)
	rec := registerService(t, env.reg, "wg-home", "auto", wgSample)

	rec.Lock()
	rec.Status = registry.StatusError
	rec.RestartCount = 3
	rec.Unlock()

	require.NoError(t, env.mgr.Start(context.Background(), "wg-home"))
	view := rec.View()
	assert.Equal(t, registry.StatusRunning, view.Status)
	assert.Equal(t, 3, view.RestartCount)
}

func TestRestartKeepsRestartCount(t *testing.T) {
	env := newTestEnv(t)
	rec := registerService(t, env.reg, "wg-home", "auto", wgSample)

	require.NoError(t, env.mgr.Start(context.Background(), "wg-home"))
	firstPID := rec.View().PID

	rec.Lock()
	rec.RestartCount = 1
	rec.Unlock()

	require.NoError(t, env.mgr.Restart(context.Background(), "wg-home"))
	view := rec.View()
	assert.Equal(t, registry.StatusRunning, view.Status)
	assert.NotEqual(t, firstPID, view.PID)
	assert.Equal(t, 1, view.RestartCount)
}

func TestStatusReportsUsage(t *testing.T) {
	env := newTestEnv(t)
	registerService(t, env.reg, "wg-home", "auto", wgSample)
	registerService(t, env.reg, "idle", "tor", "SocksPort 9050\n")

	require.NoError(t, env.mgr.Start(context.Background(), "wg-home"))

	statuses := env.mgr.Status(context.Background())
	require.Len(t, statuses, 2)

	byName := map[string]ServiceStatus{}
	for _, s := range statuses {
		byName[s.Name] = s
	}
	assert.Equal(t, registry.StatusRunning, byName["wg-home"].Status)
	assert.Equal(t, uint64(24), byName["wg-home"].MemoryRSSMB)
	assert.Equal(t, registry.StatusStopped, byName["idle"].Status)
	assert.Zero(t, byName["idle"].MemoryRSSMB)
}

func TestShutdownStopsEverything(t *testing.T) {
	env := newTestEnv(t)
	a := registerService(t, env.reg, "wg-home", "auto", wgSample)
	b := registerService(t, env.reg, "onion", "tor", "SocksPort 9050\n")

	require.NoError(t, env.mgr.Start(context.Background(), "wg-home"))
	require.NoError(t, env.mgr.Start(context.Background(), "onion"))

	// One backend ignores the termination signal; the cascade must still
	// bring both down.
	env.launcher.ignoreTerm = true
	env.mgr.Shutdown(context.Background())

	assert.Equal(t, registry.StatusStopped, a.View().Status)
	assert.Equal(t, registry.StatusStopped, b.View().Status)
	assert.Empty(t, env.launcher.livePIDs())
}
