package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"time"

	"gitlab.com/tinyland/lab/net-meter/cache"
	"gitlab.com/tinyland/lab/net-meter/collectors"
	"gitlab.com/tinyland/lab/net-meter/collectors/netstat"
	"gitlab.com/tinyland/lab/net-meter/collectors/sysmetrics"
	"gitlab.com/tinyland/lab/net-meter/config"
	"gitlab.com/tinyland/lab/net-meter/internal/format"
)

const rule = "------------------------------------------------------------"

// runDiagnostics checks the config, each sampler's data source, the cache
// and the daemon, and returns the number of problems found.
func runDiagnostics(ctx context.Context, w io.Writer, cfg *config.Config, configPath string, samplers []collectors.Sampler, logger *slog.Logger) int {
	problems := 0
	fmt.Fprintln(w, "🔍 net-meter diagnostics")
	fmt.Fprintln(w, rule)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "📁 Config: %s\n", configPath)
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(w, "   ❌ %v\n", err)
		problems++
	} else {
		fmt.Fprintf(w, "   ✅ valid, sampling every %s\n", cfg.SamplingInterval())
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "📡 Samplers")
	fmt.Fprintln(w, rule)
	for _, s := range samplers {
		problems += diagnoseSampler(ctx, w, s, cfg.SamplingInterval())
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "💾 Cache: %s\n", cfg.Daemon.CacheDir)
	fmt.Fprintln(w, rule)
	store, err := cache.NewStore(cfg.Daemon.CacheDir, logger)
	if err != nil {
		fmt.Fprintf(w, "   ❌ %v\n", err)
		problems++
	} else if meta, err := store.Meta(); err != nil {
		fmt.Fprintf(w, "   ❌ %v\n", err)
		problems++
	} else if len(meta.LastUpdate) == 0 {
		fmt.Fprintln(w, "   ⚠️  empty, the daemon has not written anything yet")
	} else {
		keys := make([]string, 0, len(meta.LastUpdate))
		for k := range meta.LastUpdate {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "   %-8s %9s  updated %s\n", k, format.FormatBytes(meta.Sizes[k]), format.FormatTimeSince(meta.LastUpdate[k]))
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "⚙️  Daemon")
	fmt.Fprintln(w, rule)
	if running, pid := pidAlive(filepath.Join(cfg.Daemon.CacheDir, pidFileName), logger); running {
		fmt.Fprintf(w, "   ✅ running (PID %d)\n", pid)
	} else {
		fmt.Fprintln(w, "   ⚠️  not running")
	}
	fmt.Fprintln(w)

	if problems == 0 {
		fmt.Fprintln(w, "✨ All diagnostics passed!")
	} else {
		fmt.Fprintf(w, "❌ %d problem(s) found\n", problems)
	}
	return problems
}

// diagnoseSampler seeds a sampler, waits briefly and prints one reading per
// label. Delta samplers report zero on the seeding call.
func diagnoseSampler(ctx context.Context, w io.Writer, s collectors.Sampler, interval time.Duration) int {
	fmt.Fprintf(w, "   %s: ", s.Name())
	if _, err := s.Sample(ctx); err != nil {
		fmt.Fprintf(w, "❌ %v\n", err)
		return 1
	}

	wait := min(interval, time.Second)
	select {
	case <-ctx.Done():
		fmt.Fprintf(w, "❌ %v\n", ctx.Err())
		return 1
	case <-time.After(wait):
	}

	readings, err := s.Sample(ctx)
	if err != nil {
		fmt.Fprintf(w, "❌ %v\n", err)
		return 1
	}
	fmt.Fprintln(w, "✅")
	for _, r := range readings {
		fmt.Fprintf(w, "      %-9s %d over %s\n", r.Label, r.Value, wait)
	}
	return 0
}

// diagnosticSamplers returns bare samplers, without circuit breakers, so
// every error surfaces.
func diagnosticSamplers(cfg *config.Config, logger *slog.Logger) []collectors.Sampler {
	return []collectors.Sampler{
		netstat.New(netstatConfig(cfg), logger),
		sysmetrics.NewCPUSampler(logger),
	}
}
