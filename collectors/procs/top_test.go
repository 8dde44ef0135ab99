package procs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"
)

// fakeProc is a procfs root holding /proc/stat and per-process stat files.
type fakeProc struct {
	t    *testing.T
	root string
}

func newFakeProc(t *testing.T) *fakeProc {
	t.Helper()
	return &fakeProc{t: t, root: t.TempDir()}
}

// cpu writes /proc/stat with user, system and idle ticks.
func (p *fakeProc) cpu(user, system, idle uint64) {
	p.t.Helper()
	body := fmt.Sprintf("cpu  %d 0 %d %d 0 0 0 0 0 0\ncpu0 %d 0 %d %d 0 0 0 0 0 0\nbtime 1700000000\n",
		user, system, idle, user, system, idle)
	p.writeFile("stat", body)
}

// proc writes /proc/<pid>/stat with the given utime and stime ticks.
func (p *fakeProc) proc(pid int, comm string, utime, stime uint64) {
	p.t.Helper()
	tail := strings.TrimSpace(strings.Repeat("0 ", 27))
	line := fmt.Sprintf("%d (%s) S 1 %d %d 0 -1 4194560 100 0 0 0 %d %d 0 0 20 0 1 0 100 1000000 100 18446744073709551615 %s\n",
		pid, comm, pid, pid, utime, stime, tail)
	p.writeFile(filepath.Join(fmt.Sprint(pid), "stat"), line)
}

func (p *fakeProc) writeFile(rel, body string) {
	p.t.Helper()
	path := filepath.Join(p.root, rel)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		p.t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		p.t.Fatal(err)
	}
}

func (p *fakeProc) top(limit int) *Top {
	return New(Config{ProcPath: p.root, Limit: limit}, nil)
}

func TestSampleRanksByShare(t *testing.T) {
	proc := newFakeProc(t)
	ctx := context.Background()

	proc.cpu(1000, 500, 8500)
	proc.proc(1, "init", 10, 10)
	proc.proc(200, "chrome", 100, 50)
	proc.proc(300, "idle app", 5, 5)
	if err := os.MkdirAll(filepath.Join(proc.root, "self"), 0o755); err != nil {
		t.Fatal(err)
	}

	top := proc.top(0)
	seed, err := top.Sample(ctx)
	if err != nil {
		t.Fatalf("seed Sample: %v", err)
	}
	if len(seed) != 0 {
		t.Errorf("seed Sample = %v, want empty", seed)
	}

	// 1000 ticks elapse machine-wide.
	proc.cpu(1500, 700, 8800)
	proc.proc(1, "init", 15, 15)
	proc.proc(200, "chrome", 300, 100)
	proc.proc(300, "idle app", 5, 5)
	proc.proc(400, "sh", 900, 0)
	if err := os.MkdirAll(filepath.Join(proc.root, "500"), 0o755); err != nil {
		t.Fatal(err)
	}

	got, err := top.Sample(ctx)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	want := []Task{
		{PID: 200, Name: "chrome", Permille: 250},
		{PID: 1, Name: "init", Permille: 10},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("Sample = %+v, want %+v", got, want)
	}
	if got[0].Percent() != 25 {
		t.Errorf("Percent() = %g, want 25", got[0].Percent())
	}
}

func TestSampleLimit(t *testing.T) {
	proc := newFakeProc(t)
	ctx := context.Background()
	top := proc.top(1)

	proc.cpu(0, 0, 1000)
	proc.proc(10, "a", 0, 0)
	proc.proc(11, "b", 0, 0)
	_, _ = top.Sample(ctx)

	proc.cpu(100, 0, 1900)
	proc.proc(10, "a", 20, 0)
	proc.proc(11, "b", 80, 0)
	got, err := top.Sample(ctx)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if len(got) != 1 || got[0].Name != "b" {
		t.Errorf("Sample = %+v, want only b", got)
	}
}

func TestSampleNoElapsedTime(t *testing.T) {
	proc := newFakeProc(t)
	ctx := context.Background()
	top := proc.top(0)

	proc.cpu(100, 100, 100)
	proc.proc(1, "init", 1, 1)
	_, _ = top.Sample(ctx)
	proc.proc(1, "init", 50, 1)

	got, err := top.Sample(ctx)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Sample with a frozen clock = %v, want empty", got)
	}
}

func TestSampleErrors(t *testing.T) {
	t.Run("missing procfs", func(t *testing.T) {
		top := New(Config{ProcPath: filepath.Join(t.TempDir(), "absent")}, nil)
		if _, err := top.Sample(context.Background()); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("missing stat", func(t *testing.T) {
		if _, err := newFakeProc(t).top(0).Sample(context.Background()); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		proc := newFakeProc(t)
		proc.cpu(1, 1, 1)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := proc.top(0).Sample(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	})
}

func TestNewDefaults(t *testing.T) {
	top := New(Config{}, nil)
	if top.cfg.ProcPath != "/proc" || top.cfg.Limit != DefaultLimit {
		t.Errorf("cfg = %+v, want /proc and limit %d", top.cfg, DefaultLimit)
	}
}
