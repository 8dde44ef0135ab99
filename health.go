package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"time"

	"gitlab.com/tinyland/lab/net-meter/cache"
	"gitlab.com/tinyland/lab/net-meter/monitor"
)

// HealthStatus is the daemon heartbeat written after every tick.
type HealthStatus struct {
	Status   string            `json:"status"`
	PID      int               `json:"pid"`
	LastPoll time.Time         `json:"last_poll"`
	Ticks    uint64            `json:"ticks"`
	Alerts   string            `json:"alerts"`
	Samplers map[string]string `json:"samplers"`
}

// writeHealth records the outcome of a tick. Status is "degraded" when any
// sampler failed.
func writeHealth(store *cache.Store, r monitor.Report) error {
	h := HealthStatus{
		Status:   "ok",
		PID:      os.Getpid(),
		LastPoll: r.At,
		Ticks:    r.Seq,
		Alerts:   r.Status.Overall.String(),
		Samplers: r.Samplers,
	}
	for _, s := range r.Samplers {
		if s != "ok" {
			h.Status = "degraded"
			break
		}
	}
	return cache.SetTyped(store, cache.KeyHealth, &h)
}

// readHealth loads the heartbeat. A missing file is an error.
func readHealth(store *cache.Store) (*HealthStatus, error) {
	h, _, err := cache.GetTyped[HealthStatus](store, cache.KeyHealth, time.Hour)
	if err != nil {
		return nil, fmt.Errorf("read health: %w", err)
	}
	if h == nil {
		return nil, fmt.Errorf("no health file in %s", store.Dir())
	}
	return h, nil
}

// checkHealth reports whether the daemon is alive: the heartbeat exists and
// the last poll was within 2x the sampling interval. It returns the process
// exit code, 0 for healthy.
func checkHealth(store *cache.Store, interval time.Duration, jsonOutput bool, stdout, stderr io.Writer) int {
	h, err := readHealth(store)
	if err != nil {
		if jsonOutput {
			fmt.Fprintln(stdout, `{"status":"missing","error":"no health file found"}`)
		} else {
			fmt.Fprintln(stderr, "daemon not running (no health file)")
		}
		return 1
	}

	threshold := 2 * interval
	age := time.Since(h.LastPoll)
	stale := age > threshold

	if jsonOutput {
		out := map[string]any{
			"status":    h.Status,
			"pid":       h.PID,
			"last_poll": h.LastPoll.Format(time.RFC3339),
			"age":       age.Round(time.Second).String(),
			"stale":     stale,
			"ticks":     h.Ticks,
			"alerts":    h.Alerts,
			"samplers":  h.Samplers,
		}
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Fprintln(stdout, string(data))
	} else if stale {
		fmt.Fprintf(stderr, "daemon stale (last poll %s ago, threshold %s)\n", age.Round(time.Second), threshold)
	} else {
		fmt.Fprintf(stdout, "daemon %s (PID %d, %d ticks, last poll %s ago, alerts %s)\n",
			h.Status, h.PID, h.Ticks, age.Round(time.Second), h.Alerts)
		names := make([]string, 0, len(h.Samplers))
		for name := range h.Samplers {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(stdout, "  %s: %s\n", name, h.Samplers[name])
		}
	}

	if stale {
		return 1
	}
	return 0
}
