package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sentinelos/sentinel/pkg/config"
	"github.com/sentinelos/sentinel/pkg/hostinfo"
	"github.com/sentinelos/sentinel/pkg/nftables"
	"github.com/sentinelos/sentinel/pkg/parser"
	"github.com/sentinelos/sentinel/pkg/registry"
	"github.com/sentinelos/sentinel/pkg/svcmgr"
)

func cmdServe(args []string) error {
	fs := newFlagSet("serve")
	configPath := fs.StringP("config", "c", "/etc/sentinel/sentineld.yaml", "daemon config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}

	log.Printf("Starting sentineld")
	log.Printf("  Listen: %s", cfg.Listen)
	log.Printf("  State dir: %s", cfg.StateDir)
	log.Printf("  Monitor interval: %s, max restarts: %d", cfg.Monitor.PollInterval, cfg.Monitor.MaxRestarts)

	if err := os.MkdirAll(cfg.StateDir, 0o700); err != nil {
		return fmt.Errorf("state dir: %w", err)
	}

	host := hostinfo.NewSysProvider()
	snap, err := host.Snapshot(context.Background())
	if err != nil {
		return fmt.Errorf("host snapshot: %w", err)
	}
	log.Printf("  Host: %d CPUs, %d MB memory, virtio nics %v",
		snap.CPUCount, snap.MemoryTotalMB, snap.VirtIONetDevices)

	metrics := svcmgr.NewPrometheusMetricsCollector("sentinel")
	reg := registry.New()
	mgr := svcmgr.New(reg,
		svcmgr.WithHostInfo(host),
		svcmgr.WithGovernor(svcmgr.NewCgroupGovernor("")),
		svcmgr.WithFirewall(nftables.New()),
		svcmgr.WithMetricsCollector(metrics),
		svcmgr.WithArtifactDir(cfg.ArtifactDir),
		svcmgr.WithMemoryFloorMB(cfg.Admission.MemoryFloorMB),
		svcmgr.WithCPUWarnPercent(cfg.Admission.CPUWarnPercent),
		svcmgr.WithStopGrace(cfg.Stop.Grace),
		svcmgr.WithStopPollInterval(cfg.Stop.PollInterval),
		svcmgr.WithPollInterval(cfg.Monitor.PollInterval),
		svcmgr.WithMaxRestarts(cfg.Monitor.MaxRestarts),
	)

	p := parser.New(parserProfile(snap))
	registerServices(p, reg, cfg.Services)

	mgr.StartMonitor(context.Background())
	autoStart(mgr, cfg.Services)

	server := &http.Server{
		Addr:    cfg.Listen,
		Handler: newMux(mgr, metrics),
	}
	go func() {
		log.Printf("Operator surface listening on %s", cfg.Listen)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	log.Printf("Shutdown signal received")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
	mgr.Shutdown(ctx)

	log.Printf("sentineld stopped")
	return nil
}

// parserProfile derives the tuning-hint profile from the live snapshot.
func parserProfile(snap hostinfo.Snapshot) parser.HostProfile {
	profile := parser.HostProfile{
		CPUCount:     snap.CPUCount,
		MemoryMB:     snap.MemoryTotalMB,
		VirtIOQueues: 4,
	}
	if len(snap.VirtIONetDevices) > 0 {
		profile.VirtIOQueues = hostinfo.NewSysProvider().QueueCount(snap.VirtIONetDevices[0])
	}
	return profile
}

// registerServices parses and registers every configured service. A service
// whose config fails to parse is skipped with a log line; it must not take
// the daemon down.
func registerServices(p *parser.Parser, reg *registry.Registry, services []config.ServiceConfig) {
	for _, svc := range services {
		raw, err := svc.RawConfig()
		if err != nil {
			log.Printf("Service %s: %v, skipping", svc.Name, err)
			continue
		}
		res := p.Parse(svc.Protocol, raw)
		for _, warning := range res.Warnings {
			log.Printf("Service %s: parse warning: %s", svc.Name, warning)
		}
		if !res.Parsed {
			log.Printf("Service %s: config rejected (%s), skipping", svc.Name, strings.Join(res.Errors, "; "))
			continue
		}
		if _, err := reg.Register(svc.Name, res.Protocol, res.Config); err != nil {
			log.Printf("Service %s: %v", svc.Name, err)
			continue
		}
		log.Printf("Service %s: registered (%s)", svc.Name, res.Protocol)
	}
}

func autoStart(mgr *svcmgr.Manager, services []config.ServiceConfig) {
	for _, svc := range services {
		if !svc.AutoStart {
			continue
		}
		if err := mgr.Start(context.Background(), svc.Name); err != nil {
			log.Printf("Service %s: auto-start failed: %v", svc.Name, err)
		}
	}
}

// commandResult is the advisory envelope every mutating endpoint returns.
type commandResult struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`
}

func newMux(mgr *svcmgr.Manager, metrics *svcmgr.PrometheusMetricsCollector) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "ok")
	})

	mux.Handle("GET /metrics", promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{}))

	mux.HandleFunc("GET /status", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, statusPayload(mgr.Status(r.Context())))
	})

	lifecycle := func(op func(context.Context, string) error) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			name := r.PathValue("name")
			if err := op(r.Context(), name); err != nil {
				code := http.StatusInternalServerError
				if svcmgr.IsErrorCode(err, svcmgr.ErrorCodeServiceNotFound) {
					code = http.StatusNotFound
				}
				writeJSON(w, code, commandResult{Error: err.Error()})
				return
			}
			writeJSON(w, http.StatusOK, commandResult{OK: true})
		}
	}
	mux.HandleFunc("POST /services/{name}/start", lifecycle(mgr.Start))
	mux.HandleFunc("POST /services/{name}/stop", lifecycle(mgr.Stop))
	mux.HandleFunc("POST /services/{name}/restart", lifecycle(mgr.Restart))

	return mux
}

// serviceStatusJSON is the wire form of one status line.
type serviceStatusJSON struct {
	Name         string  `json:"name"`
	Protocol     string  `json:"protocol"`
	Status       string  `json:"status"`
	PID          int     `json:"pid,omitempty"`
	RestartCount int     `json:"restart_count"`
	LastError    string  `json:"last_error,omitempty"`
	UptimeSec    int64   `json:"uptime_sec,omitempty"`
	CPUPercent   float64 `json:"cpu_percent,omitempty"`
	MemoryRSSMB  uint64  `json:"memory_rss_mb,omitempty"`
}

func statusPayload(statuses []svcmgr.ServiceStatus) []serviceStatusJSON {
	out := make([]serviceStatusJSON, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, serviceStatusJSON{
			Name:         s.Name,
			Protocol:     string(s.Protocol),
			Status:       s.Status.String(),
			PID:          s.PID,
			RestartCount: s.RestartCount,
			LastError:    s.LastError,
			UptimeSec:    int64(s.Uptime.Seconds()),
			CPUPercent:   s.CPUPercent,
			MemoryRSSMB:  s.MemoryRSSMB,
		})
	}
	return out
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("Response encode error: %v", err)
	}
}
