package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"gitlab.com/tinyland/lab/net-meter/collectors/procs"
	"gitlab.com/tinyland/lab/net-meter/display/widgets"
)

// taskSampler is the part of procs.Top that -top needs.
type taskSampler interface {
	Sample(ctx context.Context) ([]procs.Task, error)
}

// runTop seeds the sampler, waits one window and prints the processes that
// used CPU during it, busiest first.
func runTop(ctx context.Context, w io.Writer, top taskSampler, window time.Duration, jsonOutput bool, width int) error {
	if _, err := top.Sample(ctx); err != nil {
		return err
	}

	timer := time.NewTimer(window)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
	}

	tasks, err := top.Sample(ctx)
	if err != nil {
		return err
	}

	if jsonOutput {
		if tasks == nil {
			tasks = []procs.Task{}
		}
		data, err := json.MarshalIndent(tasks, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(w, string(data))
		return nil
	}

	if len(tasks) == 0 {
		fmt.Fprintln(w, "no busy processes")
		return nil
	}
	for _, line := range widgets.RenderTasks(tasks, width) {
		fmt.Fprintln(w, line)
	}
	return nil
}
