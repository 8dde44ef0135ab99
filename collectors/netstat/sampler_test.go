package netstat

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"testing"

	"gitlab.com/tinyland/lab/net-meter/collectors"
)

const netDevHeader = `Inter-|   Receive                                                |  Transmit
 face |bytes    packets errs drop fifo frame compressed multicast|bytes    packets errs drop fifo colls carrier compressed
`

// netDev renders a /proc/net/dev body from iface -> {rx, tx}.
func netDev(ifaces map[string][2]uint64) string {
	names := make([]string, 0, len(ifaces))
	for name := range ifaces {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	b.WriteString(netDevHeader)
	for _, name := range names {
		c := ifaces[name]
		fmt.Fprintf(&b, "%6s: %d 10 0 0 0 0 0 0 %d 20 0 0 0 0 0 0\n", name, c[0], c[1])
	}
	return b.String()
}

// fakeProc is a procfs root holding only net/dev.
type fakeProc struct {
	t    *testing.T
	root string
}

func newFakeProc(t *testing.T) *fakeProc {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "net"), 0o755); err != nil {
		t.Fatal(err)
	}
	return &fakeProc{t: t, root: root}
}

func (p *fakeProc) write(body string) {
	p.t.Helper()
	if err := os.WriteFile(filepath.Join(p.root, "net", "dev"), []byte(body), 0o644); err != nil {
		p.t.Fatal(err)
	}
}

func (p *fakeProc) sampler() *Sampler {
	cfg := DefaultConfig()
	cfg.ProcPath = p.root
	return New(cfg, nil)
}

func readingsMap(rs []collectors.Reading) map[string]int64 {
	m := make(map[string]int64, len(rs))
	for _, r := range rs {
		m[r.Label] = r.Value
	}
	return m
}

func TestSampleDeltas(t *testing.T) {
	proc := newFakeProc(t)
	s := proc.sampler()
	ctx := context.Background()

	proc.write(netDev(map[string][2]uint64{"lo": {100, 100}, "wlan0": {1000, 500}, "rmnet0": {300, 200}}))
	first, err := s.Sample(ctx)
	if err != nil {
		t.Fatalf("seed Sample: %v", err)
	}
	for _, r := range first {
		if r.Value != 0 {
			t.Errorf("seed reading %s = %d, want 0", r.Label, r.Value)
		}
	}

	proc.write(netDev(map[string][2]uint64{"lo": {900, 900}, "wlan0": {1600, 700}, "rmnet0": {350, 260}}))
	second, err := s.Sample(ctx)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	got := readingsMap(second)
	want := map[string]int64{
		LabelCellIn:  50,
		LabelCellOut: 60,
		LabelWifiIn:  600,
		LabelWifiOut: 200,
	}
	for label, v := range want {
		if got[label] != v {
			t.Errorf("%s = %d, want %d", label, got[label], v)
		}
	}
	if len(second) != 4 {
		t.Errorf("got %d readings, want 4", len(second))
	}
}

func TestSampleCounterResetAndNewInterface(t *testing.T) {
	proc := newFakeProc(t)
	s := proc.sampler()
	ctx := context.Background()

	proc.write(netDev(map[string][2]uint64{"wlan0": {5000, 5000}}))
	_, _ = s.Sample(ctx)

	proc.write(netDev(map[string][2]uint64{"wlan0": {10, 20}, "wlan1": {999, 999}}))
	got, _ := s.Sample(ctx)
	if m := readingsMap(got); m[LabelWifiIn] != 0 || m[LabelWifiOut] != 0 {
		t.Errorf("reset/new interface should contribute 0, got %v", m)
	}

	proc.write(netDev(map[string][2]uint64{"wlan0": {30, 50}, "wlan1": {1000, 1001}}))
	got, _ = s.Sample(ctx)
	if m := readingsMap(got); m[LabelWifiIn] != 21 || m[LabelWifiOut] != 32 {
		t.Errorf("after reseed got %v, want wifi-in 21 wifi-out 32", m)
	}
}

func TestSampleErrors(t *testing.T) {
	t.Run("missing procfs", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.ProcPath = filepath.Join(t.TempDir(), "absent")
		if _, err := New(cfg, nil).Sample(context.Background()); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("missing net/dev", func(t *testing.T) {
		proc := newFakeProc(t)
		if _, err := proc.sampler().Sample(context.Background()); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("malformed counter", func(t *testing.T) {
		proc := newFakeProc(t)
		proc.write(netDevHeader + " wlan0: lots 10 0 0 0 0 0 0 5 20 0 0 0 0 0 0\n")
		if _, err := proc.sampler().Sample(context.Background()); err == nil {
			t.Error("expected error")
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		proc := newFakeProc(t)
		proc.write(netDevHeader)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if _, err := proc.sampler().Sample(ctx); !errors.Is(err, context.Canceled) {
			t.Errorf("err = %v, want context.Canceled", err)
		}
	})
}

func TestNewDefaultsProcPath(t *testing.T) {
	s := New(Config{}, nil)
	if s.cfg.ProcPath != "/proc" {
		t.Errorf("ProcPath = %q, want /proc", s.cfg.ProcPath)
	}
}

func TestClassify(t *testing.T) {
	s := New(Config{CellPrefixes: []string{"rmnet"}, WifiPrefixes: []string{"wl"}}, nil)
	tests := map[string]ifaceClass{
		"rmnet_data0": classCell,
		"wlan0":       classWifi,
		"wlp3s0":      classWifi,
		"eth0":        classOther,
		"lo":          classOther,
	}
	for name, want := range tests {
		if got := s.classify(name); got != want {
			t.Errorf("classify(%q) = %d, want %d", name, got, want)
		}
	}
}
