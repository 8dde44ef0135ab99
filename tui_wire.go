package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"gitlab.com/tinyland/lab/net-meter/cache"
	"gitlab.com/tinyland/lab/net-meter/config"
	"gitlab.com/tinyland/lab/net-meter/display/tui"
	"gitlab.com/tinyland/lab/net-meter/meter"
)

// runTUI runs an in-process monitor behind the graph view. History is seeded
// from the daemon's cache when available; it is written back on exit only
// when no daemon owns the cache.
func runTUI(ctx context.Context, cfg *config.Config, theme string, logger *slog.Logger) error {
	mon, err := newMonitor(cfg, logger, buildRegistry(cfg, logger), nil)
	if err != nil {
		return err
	}

	store, err := cache.NewStore(cfg.Daemon.CacheDir, logger)
	if err != nil {
		return err
	}
	if cfg.Daemon.Persist {
		states, _, err := cache.GetTyped[[]meter.CounterState](store, cache.KeyHistory, 365*24*time.Hour)
		if err != nil {
			logger.Warn("history load failed", "error", err)
		} else if states != nil {
			logger.Info("restored history", "counters", mon.Restore(*states))
		}
	}

	zones := zone.New()
	defer zones.Close()

	if theme == "" {
		theme = cfg.Display.Theme
	}
	model := tui.NewModel(ctx, tui.Options{
		Monitor:    mon,
		Theme:      theme,
		Zones:      zones,
		Top:        newTop(cfg, logger),
		TopRefresh: cfg.TopRefresh(),
	})

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithMouseCellMotion(), tea.WithContext(ctx))
	_, runErr := p.Run()

	if cfg.Daemon.Persist {
		pidFile := filepath.Join(cfg.Daemon.CacheDir, pidFileName)
		if running, _ := pidAlive(pidFile, logger); !running {
			states := mon.State()
			if err := cache.SetTyped(store, cache.KeyHistory, &states); err != nil {
				logger.Error("history write failed", "error", err)
			}
		}
	}

	return tuiExitError(ctx, runErr)
}

// tuiExitError treats a program killed by a cancelled context (SIGINT or
// SIGTERM) as a clean exit.
func tuiExitError(ctx context.Context, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return fmt.Errorf("tui: %w", err)
}
