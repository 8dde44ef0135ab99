// Package config provides configuration parsing for net-meter.
package config

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"gitlab.com/tinyland/lab/net-meter/history"
)

// Config represents the net-meter configuration.
type Config struct {
	// Sampling controls the tick that drives every counter.
	Sampling SamplingConfig `yaml:"sampling"`

	// History sizes the per-counter windows.
	History history.SeriesConfig `yaml:"history"`

	// Interfaces classifies network interfaces as cellular or wifi.
	Interfaces InterfacesConfig `yaml:"interfaces"`

	// Retry configures the circuit breaker around each sampler.
	Retry RetryConfig `yaml:"retry"`

	// Daemon holds daemon-level settings.
	Daemon DaemonConfig `yaml:"daemon"`

	// Alerts lists threshold rules evaluated every tick.
	Alerts []AlertRule `yaml:"alerts"`

	// Display holds TUI and chart rendering settings.
	Display DisplayConfig `yaml:"display"`

	// Top configures the busiest-process list.
	Top TopConfig `yaml:"top"`
}

// SamplingConfig controls the sampling tick.
type SamplingConfig struct {
	// Interval is a duration string (e.g. "5s") between samples.
	Interval string `yaml:"interval"`
}

// InterfacesConfig lists interface name prefixes per link type.
type InterfacesConfig struct {
	Cell []string `yaml:"cell"`
	Wifi []string `yaml:"wifi"`
}

// RetryConfig configures sampler circuit breakers.
type RetryConfig struct {
	// MaxFailures is the number of consecutive failures that opens a circuit.
	MaxFailures int `yaml:"max_failures"`
	// ResetTimeout is a duration string for the first open period.
	ResetTimeout string `yaml:"reset_timeout"`
}

// DaemonConfig holds daemon-level settings.
type DaemonConfig struct {
	// CacheDir holds the PID file, persisted history, latest frame and health file.
	CacheDir string `yaml:"cache_dir"`
	// LogFile is the path for daemon log output.
	LogFile string `yaml:"log_file"`
	// Persist restores history on start and saves it on every tick.
	Persist bool `yaml:"persist"`
	// ListenAddr serves /metrics and /healthz when set (e.g. "127.0.0.1:9273").
	ListenAddr string `yaml:"listen_addr"`
}

// AlertRule raises an alert when a counter stays above a threshold.
type AlertRule struct {
	// Counter is the label of the watched counter (e.g. "cpu").
	Counter string `yaml:"counter"`
	// Threshold is compared against the newest fine-resolution value.
	Threshold int64 `yaml:"threshold"`
	// MaxHits is how many ticks above threshold are tolerated before the
	// alert turns critical.
	MaxHits int `yaml:"max_hits"`
}

// DisplayConfig holds rendering settings.
type DisplayConfig struct {
	// Theme selects the color theme: "default" or "mono".
	Theme string `yaml:"theme"`
	// ChartWidth and ChartHeight size PNG exports in pixels.
	ChartWidth  int `yaml:"chart_width"`
	ChartHeight int `yaml:"chart_height"`
}

// TopConfig configures the busiest-process list shown by -top and the TUI.
type TopConfig struct {
	// Limit caps the number of processes listed.
	Limit int `yaml:"limit"`
	// Refresh is a duration string between TUI list updates.
	Refresh string `yaml:"refresh"`
	// Window is a duration string that -top measures CPU time over.
	Window string `yaml:"window"`
}

// DefaultConfig returns a Config populated with sensible defaults.
func DefaultConfig() *Config {
	home, _ := os.UserHomeDir()

	return &Config{
		Sampling: SamplingConfig{
			Interval: "5s",
		},
		History: history.DefaultSeriesConfig(),
		Interfaces: InterfacesConfig{
			Cell: []string{"rmnet", "wwan", "ppp", "ccmni"},
			Wifi: []string{"wlan", "wlp", "wlx"},
		},
		Retry: RetryConfig{
			MaxFailures:  3,
			ResetTimeout: "30s",
		},
		Daemon: DaemonConfig{
			CacheDir: filepath.Join(home, ".cache", "net-meter"),
			LogFile:  filepath.Join(home, ".local", "log", "net-meter.log"),
			Persist:  true,
		},
		Alerts: []AlertRule{
			{Counter: "cpu", Threshold: 90, MaxHits: 5},
		},
		Display: DisplayConfig{
			Theme:       "default",
			ChartWidth:  800,
			ChartHeight: 400,
		},
		Top: TopConfig{
			Limit:   10,
			Refresh: "30s",
			Window:  "1s",
		},
	}
}

// LoadConfig loads configuration from a YAML file, merging with defaults.
// A missing file yields the defaults.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	if path == "" {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return config, nil
}

// Validate checks the configuration for required fields and logical consistency.
func (c *Config) Validate() error {
	d, err := time.ParseDuration(c.Sampling.Interval)
	if err != nil {
		return fmt.Errorf("sampling.interval: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("sampling.interval must be positive, got %s", c.Sampling.Interval)
	}

	tiers := []struct {
		name string
		tc   history.TierConfig
	}{
		{"fine", c.History.Fine},
		{"medium", c.History.Medium},
		{"coarse", c.History.Coarse},
	}
	for _, t := range tiers {
		if t.tc.Capacity <= 0 {
			return fmt.Errorf("history.%s.capacity must be positive, got %d", t.name, t.tc.Capacity)
		}
		if t.tc.SubSampleRate <= 0 {
			return fmt.Errorf("history.%s.sub_sample_rate must be positive, got %d", t.name, t.tc.SubSampleRate)
		}
	}
	if c.History.Alpha <= 0 || c.History.Alpha > 1 {
		return fmt.Errorf("history.alpha must be in (0, 1], got %g", c.History.Alpha)
	}

	if len(c.Interfaces.Cell) == 0 && len(c.Interfaces.Wifi) == 0 {
		return fmt.Errorf("interfaces: at least one cell or wifi prefix is required")
	}

	if c.Retry.MaxFailures <= 0 {
		return fmt.Errorf("retry.max_failures must be positive, got %d", c.Retry.MaxFailures)
	}
	if _, err := time.ParseDuration(c.Retry.ResetTimeout); err != nil {
		return fmt.Errorf("retry.reset_timeout: %w", err)
	}

	if c.Daemon.CacheDir == "" {
		return fmt.Errorf("daemon.cache_dir is required")
	}
	if c.Daemon.LogFile == "" {
		return fmt.Errorf("daemon.log_file is required")
	}
	if c.Daemon.ListenAddr != "" {
		if _, _, err := net.SplitHostPort(c.Daemon.ListenAddr); err != nil {
			return fmt.Errorf("daemon.listen_addr: %w", err)
		}
	}

	for i, r := range c.Alerts {
		if r.Counter == "" {
			return fmt.Errorf("alerts[%d].counter is required", i)
		}
		if r.MaxHits < 0 {
			return fmt.Errorf("alerts[%d].max_hits must be non-negative, got %d", i, r.MaxHits)
		}
	}

	validThemes := map[string]bool{"default": true, "mono": true}
	if !validThemes[c.Display.Theme] {
		return fmt.Errorf("display.theme must be 'default' or 'mono', got %q", c.Display.Theme)
	}
	if c.Display.ChartWidth <= 0 || c.Display.ChartHeight <= 0 {
		return fmt.Errorf("display chart size must be positive, got %dx%d", c.Display.ChartWidth, c.Display.ChartHeight)
	}

	if c.Top.Limit <= 0 {
		return fmt.Errorf("top.limit must be positive, got %d", c.Top.Limit)
	}
	for _, f := range []struct{ name, value string }{
		{"refresh", c.Top.Refresh},
		{"window", c.Top.Window},
	} {
		if d, err := time.ParseDuration(f.value); err != nil || d <= 0 {
			return fmt.Errorf("top.%s must be a positive duration, got %q", f.name, f.value)
		}
	}

	return nil
}

// SamplingInterval returns the parsed sampling interval, falling back to 5s
// when the string does not parse.
func (c *Config) SamplingInterval() time.Duration {
	return parseDuration(c.Sampling.Interval, 5*time.Second)
}

// RetryResetTimeout returns the parsed circuit breaker reset timeout.
func (c *Config) RetryResetTimeout() time.Duration {
	return parseDuration(c.Retry.ResetTimeout, 30*time.Second)
}

// TopRefresh returns the parsed TUI refresh period of the process list.
func (c *Config) TopRefresh() time.Duration {
	return parseDuration(c.Top.Refresh, 30*time.Second)
}

// TopWindow returns the parsed measurement window of -top.
func (c *Config) TopWindow() time.Duration {
	return parseDuration(c.Top.Window, time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// SaveConfig saves configuration to a YAML file.
func SaveConfig(config *Config, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(config)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}
