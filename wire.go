package main

import (
	"log/slog"

	"gitlab.com/tinyland/lab/net-meter/collectors"
	"gitlab.com/tinyland/lab/net-meter/collectors/netstat"
	"gitlab.com/tinyland/lab/net-meter/collectors/procs"
	"gitlab.com/tinyland/lab/net-meter/collectors/retry"
	"gitlab.com/tinyland/lab/net-meter/collectors/sysmetrics"
	"gitlab.com/tinyland/lab/net-meter/config"
	"gitlab.com/tinyland/lab/net-meter/monitor"
	"gitlab.com/tinyland/lab/net-meter/status"
)

// buildRegistry registers the network and cpu samplers, each behind its own
// circuit breaker so a failing /proc read is skipped instead of retried
// every tick.
func buildRegistry(cfg *config.Config, logger *slog.Logger) *collectors.Registry {
	registry := collectors.NewRegistry()
	rcfg := retryConfig(cfg, logger)

	net := netstat.New(netstatConfig(cfg), logger)
	registry.Register(retry.NewCircuitBreaker(net, rcfg))

	cpu := sysmetrics.NewCPUSampler(logger)
	registry.Register(retry.NewCircuitBreaker(cpu, rcfg))

	return registry
}

// newTop builds the busiest-process sampler used by -top and the TUI.
func newTop(cfg *config.Config, logger *slog.Logger) *procs.Top {
	pcfg := procs.DefaultConfig()
	pcfg.Limit = cfg.Top.Limit
	return procs.New(pcfg, logger)
}

// netstatConfig maps configured interface prefixes onto the sampler,
// keeping the defaults for an empty list.
func netstatConfig(cfg *config.Config) netstat.Config {
	ncfg := netstat.DefaultConfig()
	if len(cfg.Interfaces.Cell) > 0 {
		ncfg.CellPrefixes = cfg.Interfaces.Cell
	}
	if len(cfg.Interfaces.Wifi) > 0 {
		ncfg.WifiPrefixes = cfg.Interfaces.Wifi
	}
	return ncfg
}

func retryConfig(cfg *config.Config, logger *slog.Logger) retry.Config {
	rcfg := retry.DefaultConfig()
	if cfg.Retry.MaxFailures > 0 {
		rcfg.MaxFailures = cfg.Retry.MaxFailures
	}
	rcfg.ResetTimeout = cfg.RetryResetTimeout()
	if rcfg.MaxResetTimeout < rcfg.ResetTimeout {
		rcfg.MaxResetTimeout = rcfg.ResetTimeout
	}
	rcfg.Logger = logger
	return rcfg
}

// alertRules converts configured alert rules.
func alertRules(rules []config.AlertRule) []status.Rule {
	out := make([]status.Rule, len(rules))
	for i, r := range rules {
		out[i] = status.Rule{
			Counter:   r.Counter,
			Threshold: r.Threshold,
			MaxHits:   r.MaxHits,
		}
	}
	return out
}

// newMonitor builds a monitor over registry.
func newMonitor(cfg *config.Config, logger *slog.Logger, registry *collectors.Registry, afterTick func(monitor.Report)) (*monitor.Monitor, error) {
	return monitor.New(monitor.Config{
		Interval:  cfg.SamplingInterval(),
		Series:    cfg.History,
		Rules:     alertRules(cfg.Alerts),
		Logger:    logger,
		AfterTick: afterTick,
	}, registry)
}
