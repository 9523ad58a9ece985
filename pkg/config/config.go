// Package config loads the sentineld daemon configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the daemon configuration loaded from YAML.
type Config struct {
	// Listen is the address of the HTTP operator surface.
	Listen string `yaml:"listen"`

	// StateDir is where runtime state (tor data dirs, PID files) lives.
	StateDir string `yaml:"state_dir"`

	// ArtifactDir is where native backend config artifacts are written.
	ArtifactDir string `yaml:"artifact_dir"`

	// Admission bounds resource-based start refusal.
	Admission AdmissionConfig `yaml:"admission"`

	// Monitor configures the health monitor loop.
	Monitor MonitorConfig `yaml:"monitor"`

	// Stop configures graceful termination.
	Stop StopConfig `yaml:"stop"`

	// Services declares the managed services.
	Services []ServiceConfig `yaml:"services"`
}

// AdmissionConfig bounds resource-based start refusal.
type AdmissionConfig struct {
	// MemoryFloorMB is the minimum available memory required to admit a
	// memory-heavy backend.
	MemoryFloorMB uint64 `yaml:"memory_floor_mb"`

	// CPUWarnPercent is the usage level above which CPU-bound backends
	// log a warning at start.
	CPUWarnPercent float64 `yaml:"cpu_warn_percent"`
}

// MonitorConfig configures the health monitor loop.
type MonitorConfig struct {
	// PollInterval between liveness sweeps.
	PollInterval time.Duration `yaml:"poll_interval"`

	// MaxRestarts bounds automatic restarts per service.
	MaxRestarts int `yaml:"max_restarts"`
}

// StopConfig configures graceful termination.
type StopConfig struct {
	// Grace is how long a stop waits after the termination signal before
	// escalating to a kill.
	Grace time.Duration `yaml:"grace"`

	// PollInterval is how often a stop re-checks liveness.
	PollInterval time.Duration `yaml:"poll_interval"`
}

// ServiceConfig declares one managed service.
type ServiceConfig struct {
	// Name is the unique service name.
	Name string `yaml:"name"`

	// Protocol hint; "auto" runs detection.
	Protocol string `yaml:"protocol"`

	// Config is the raw connection string or config blob, inline.
	Config string `yaml:"config"`

	// ConfigFile is read instead when Config is empty.
	ConfigFile string `yaml:"config_file"`

	// AutoStart starts the service when the daemon comes up.
	AutoStart bool `yaml:"auto_start"`
}

// Load reads and validates a daemon configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// Validate checks the configuration and fills defaults.
func (c *Config) Validate() error {
	if c.Listen == "" {
		c.Listen = "127.0.0.1:8737"
	}
	if c.StateDir == "" {
		c.StateDir = "/var/lib/sentinel"
	}
	if c.ArtifactDir == "" {
		c.ArtifactDir = c.StateDir + "/artifacts"
	}

	if c.Admission.MemoryFloorMB == 0 {
		c.Admission.MemoryFloorMB = 512
	}
	if c.Admission.CPUWarnPercent == 0 {
		c.Admission.CPUWarnPercent = 80
	}
	if c.Admission.CPUWarnPercent < 0 || c.Admission.CPUWarnPercent > 100 {
		return fmt.Errorf("admission.cpu_warn_percent must be between 0 and 100, got: %g", c.Admission.CPUWarnPercent)
	}

	if c.Monitor.PollInterval == 0 {
		c.Monitor.PollInterval = 10 * time.Second
	}
	if c.Monitor.PollInterval < time.Second {
		return fmt.Errorf("monitor.poll_interval must be at least 1s, got: %s", c.Monitor.PollInterval)
	}
	if c.Monitor.MaxRestarts == 0 {
		c.Monitor.MaxRestarts = 3
	}
	if c.Monitor.MaxRestarts < 0 {
		return fmt.Errorf("monitor.max_restarts must not be negative, got: %d", c.Monitor.MaxRestarts)
	}

	if c.Stop.Grace == 0 {
		c.Stop.Grace = 5 * time.Second
	}
	if c.Stop.PollInterval == 0 {
		c.Stop.PollInterval = 500 * time.Millisecond
	}
	if c.Stop.PollInterval > c.Stop.Grace {
		return fmt.Errorf("stop.poll_interval (%s) exceeds stop.grace (%s)", c.Stop.PollInterval, c.Stop.Grace)
	}

	seen := map[string]bool{}
	for i := range c.Services {
		svc := &c.Services[i]
		if svc.Name == "" {
			return fmt.Errorf("services[%d]: name is required", i)
		}
		if seen[svc.Name] {
			return fmt.Errorf("duplicate service name: %s", svc.Name)
		}
		seen[svc.Name] = true

		if svc.Protocol == "" {
			svc.Protocol = "auto"
		}
		if svc.Config == "" && svc.ConfigFile == "" {
			return fmt.Errorf("service %s: one of config or config_file is required", svc.Name)
		}
		if svc.Config != "" && svc.ConfigFile != "" {
			return fmt.Errorf("service %s: config and config_file are mutually exclusive", svc.Name)
		}
	}

	return nil
}

// RawConfig returns the service's raw configuration text, reading
// ConfigFile when the config is not inline.
func (s *ServiceConfig) RawConfig() (string, error) {
	if s.Config != "" {
		return s.Config, nil
	}
	data, err := os.ReadFile(s.ConfigFile)
	if err != nil {
		return "", fmt.Errorf("service %s: read config file: %w", s.Name, err)
	}
	return string(data), nil
}
