package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"gitlab.com/tinyland/lab/net-meter/cache"
	"gitlab.com/tinyland/lab/net-meter/collectors"
	"gitlab.com/tinyland/lab/net-meter/config"
	"gitlab.com/tinyland/lab/net-meter/meter"
	"gitlab.com/tinyland/lab/net-meter/metrics"
	"gitlab.com/tinyland/lab/net-meter/monitor"
)

const pidFileName = "net-meter.pid"

// daemon runs the monitor in the background and publishes its output to the
// cache after every tick: the latest frame and alert status for -banner and
// -png, the heartbeat for -health and, when persistence is on, the full
// counter history for the next start.
type daemon struct {
	config  *config.Config
	logger  *slog.Logger
	store   *cache.Store
	monitor *monitor.Monitor
	pidFile string
}

// newDaemon creates the cache store and a monitor over the configured
// samplers.
func newDaemon(cfg *config.Config, logger *slog.Logger) (*daemon, error) {
	return newDaemonWithRegistry(cfg, logger, buildRegistry(cfg, logger))
}

func newDaemonWithRegistry(cfg *config.Config, logger *slog.Logger, registry *collectors.Registry) (*daemon, error) {
	store, err := cache.NewStore(cfg.Daemon.CacheDir, logger)
	if err != nil {
		return nil, fmt.Errorf("daemon: create cache store: %w", err)
	}

	d := &daemon{
		config:  cfg,
		logger:  logger,
		store:   store,
		pidFile: filepath.Join(cfg.Daemon.CacheDir, pidFileName),
	}
	d.monitor, err = newMonitor(cfg, logger, registry, d.publish)
	if err != nil {
		return nil, fmt.Errorf("daemon: %w", err)
	}
	return d, nil
}

func (d *daemon) writePIDFile() error {
	if err := os.MkdirAll(filepath.Dir(d.pidFile), 0o700); err != nil {
		return fmt.Errorf("create PID file directory: %w", err)
	}
	pid := os.Getpid()
	if err := os.WriteFile(d.pidFile, []byte(strconv.Itoa(pid)), 0o644); err != nil {
		return fmt.Errorf("write PID file: %w", err)
	}
	d.logger.Info("wrote PID file", "path", d.pidFile, "pid", pid)
	return nil
}

func (d *daemon) removePIDFile() {
	if err := os.Remove(d.pidFile); err != nil && !os.IsNotExist(err) {
		d.logger.Error("failed to remove PID file", "path", d.pidFile, "error", err)
		return
	}
	d.logger.Info("removed PID file", "path", d.pidFile)
}

// isRunning reports whether the PID file names a live process. Corrupt or
// stale PID files are removed.
func (d *daemon) isRunning() (bool, int) {
	return pidAlive(d.pidFile, d.logger)
}

func pidAlive(pidFile string, logger *slog.Logger) (bool, int) {
	data, err := os.ReadFile(pidFile)
	if err != nil {
		return false, 0
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		logger.Warn("corrupt PID file, removing", "path", pidFile, "content", string(data))
		_ = os.Remove(pidFile)
		return false, 0
	}

	// Signal 0 probes for existence. EPERM means the process exists but
	// belongs to someone else.
	if err := unix.Kill(pid, 0); err != nil && !errors.Is(err, unix.EPERM) {
		logger.Warn("stale PID file, removing", "path", pidFile, "pid", pid)
		_ = os.Remove(pidFile)
		return false, 0
	}
	return true, pid
}

// restore loads persisted history into the monitor. Missing or unusable
// history is not an error.
func (d *daemon) restore() int {
	if !d.config.Daemon.Persist {
		return 0
	}
	states, _, err := cache.GetTyped[[]meter.CounterState](d.store, cache.KeyHistory, 365*24*time.Hour)
	if err != nil {
		d.logger.Warn("history load failed", "error", err)
		return 0
	}
	if states == nil {
		return 0
	}
	n := d.monitor.Restore(*states)
	d.logger.Info("restored history", "counters", n)
	return n
}

// persist writes the full counter history.
func (d *daemon) persist() error {
	states := d.monitor.State()
	if err := cache.SetTyped(d.store, cache.KeyHistory, &states); err != nil {
		return fmt.Errorf("persist history: %w", err)
	}
	return nil
}

// publish is the monitor's AfterTick hook. Write failures are logged and the
// loop carries on.
func (d *daemon) publish(r monitor.Report) {
	code := meter.InitialResolution(d.monitor.Ref())
	frame, err := d.monitor.Frame(code)
	if err != nil {
		d.logger.Error("frame build failed", "resolution", code, "error", err)
	} else if err := cache.SetTyped(d.store, cache.KeyFrame, &frame); err != nil {
		d.logger.Error("frame write failed", "error", err)
	}

	st := r.Status
	if err := cache.SetTyped(d.store, cache.KeyStatus, &st); err != nil {
		d.logger.Error("status write failed", "error", err)
	}

	if d.config.Daemon.Persist {
		if err := d.persist(); err != nil {
			d.logger.Error("history write failed", "error", err)
		}
	}

	if err := writeHealth(d.store, r); err != nil {
		d.logger.Error("health write failed", "error", err)
	}
}

// run checks for another instance, writes the PID file, restores history
// and runs the monitor until ctx is cancelled.
func (d *daemon) run(ctx context.Context) error {
	if running, pid := d.isRunning(); running {
		return fmt.Errorf("daemon already running (PID %d)", pid)
	}
	if err := d.writePIDFile(); err != nil {
		return err
	}
	defer d.removePIDFile()

	d.restore()
	d.logger.Info("daemon started",
		"interval", d.monitor.Interval().String(),
		"cache_dir", d.store.Dir(),
	)

	var served chan error
	if addr := d.config.Daemon.ListenAddr; addr != "" {
		served = make(chan error, 1)
		srv := metrics.NewServer(addr, d.monitor, d.logger)
		go func() {
			served <- srv.Run(ctx)
		}()
	}

	err := d.monitor.Run(ctx)
	if served != nil {
		if serr := <-served; serr != nil {
			d.logger.Error("metrics server stopped", "error", serr)
		}
	}
	d.shutdown()
	return err
}

// shutdown persists history and logs the final cache state.
func (d *daemon) shutdown() {
	d.logger.Info("daemon shutting down gracefully")
	if d.config.Daemon.Persist {
		if err := d.persist(); err != nil {
			d.logger.Error("final history write failed", "error", err)
		}
	}
	if meta, err := d.store.Meta(); err == nil {
		for key, ts := range meta.LastUpdate {
			d.logger.Info("cache entry at shutdown",
				"key", key,
				"age", time.Since(ts).Round(time.Millisecond).String(),
				"bytes", meta.Sizes[key],
			)
		}
	}
}
