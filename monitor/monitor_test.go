package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"gitlab.com/tinyland/lab/net-meter/collectors"
	"gitlab.com/tinyland/lab/net-meter/collectors/retry"
	"gitlab.com/tinyland/lab/net-meter/history"
	"gitlab.com/tinyland/lab/net-meter/meter"
	"gitlab.com/tinyland/lab/net-meter/status"
)

func testSeries() history.SeriesConfig {
	return history.SeriesConfig{
		Fine:   history.TierConfig{Capacity: 8, SubSampleRate: 1},
		Medium: history.TierConfig{Capacity: 6, SubSampleRate: 2},
		Coarse: history.TierConfig{Capacity: 480, SubSampleRate: 1},
		Alpha:  1,
	}
}

func netMock(steps ...[]int64) *collectors.MockSampler {
	return collectors.NewMockSampler("netstat", NetworkLabels, steps...)
}

func cpuMock(steps ...[]int64) *collectors.MockSampler {
	return collectors.NewMockSampler("sysmetrics", []string{meter.LabelCPU}, steps...)
}

func newTestMonitor(t *testing.T, rules []status.Rule, samplers ...collectors.Sampler) *Monitor {
	t.Helper()
	reg := collectors.NewRegistry()
	for _, s := range samplers {
		reg.Register(s)
	}
	m, err := New(Config{Interval: time.Second, Series: testSeries(), Rules: rules}, reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return m
}

func current(t *testing.T, m *Monitor, label string) int64 {
	t.Helper()
	c, ok := m.Counter(label)
	if !ok {
		t.Fatalf("no counter %q", label)
	}
	v, err := c.Current(0)
	if err != nil {
		t.Fatalf("Current(%s): %v", label, err)
	}
	return v
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Config{Series: testSeries()}, nil); err == nil {
		t.Error("expected error for zero interval")
	}

	bad := testSeries()
	bad.Alpha = 0
	_, err := New(Config{Interval: time.Second, Series: bad}, nil)
	if !errors.Is(err, history.ErrConfiguration) {
		t.Errorf("expected ErrConfiguration, got %v", err)
	}
}

func TestCountersCreated(t *testing.T) {
	m := newTestMonitor(t, nil)

	net := m.Network()
	if len(net) != len(NetworkLabels) {
		t.Fatalf("expected %d network counters, got %d", len(NetworkLabels), len(net))
	}
	for i, c := range net {
		if c.Label() != NetworkLabels[i] {
			t.Errorf("counter %d label %q, want %q", i, c.Label(), NetworkLabels[i])
		}
	}
	if m.Percent().Label() != meter.LabelCPU {
		t.Errorf("percent label %q", m.Percent().Label())
	}
	if m.Ref() != net[0] {
		t.Error("reference counter should be the first network counter")
	}
	if m.Status().Overall != status.LevelUnknown {
		t.Errorf("status before first tick = %s, want unknown", m.Status().Overall)
	}
}

func TestTickIngestsReadings(t *testing.T) {
	net := netMock([]int64{100, 200, 300, 400}, []int64{1, 2, 3, 4})
	cpu := cpuMock([]int64{42})
	m := newTestMonitor(t, nil, net, cpu)

	r := m.Tick(context.Background())
	if r.Seq != 1 {
		t.Errorf("Seq = %d, want 1", r.Seq)
	}
	if r.Samplers["netstat"] != "ok" || r.Samplers["sysmetrics"] != "ok" {
		t.Errorf("unexpected sampler health: %v", r.Samplers)
	}

	want := map[string]int64{
		meter.LabelCellIn:  100,
		meter.LabelCellOut: 200,
		meter.LabelWifiIn:  300,
		meter.LabelWifiOut: 400,
		meter.LabelCPU:     42,
	}
	for label, v := range want {
		if got := current(t, m, label); got != v {
			t.Errorf("%s = %d, want %d", label, got, v)
		}
	}

	m.Tick(context.Background())
	if got := current(t, m, meter.LabelWifiOut); got != 4 {
		t.Errorf("wifi-out after second tick = %d, want 4", got)
	}
	c, _ := m.Counter(meter.LabelWifiOut)
	if c.Total() != 404 {
		t.Errorf("wifi-out total = %d, want 404", c.Total())
	}
	if m.Ticks() != 2 {
		t.Errorf("Ticks = %d, want 2", m.Ticks())
	}
}

func TestTickFailedSamplerIngestsNothing(t *testing.T) {
	net := netMock([]int64{10, 10, 10, 10}).FailAt(1, errors.New("proc unavailable"))
	cpu := cpuMock([]int64{5})
	m := newTestMonitor(t, nil, net, cpu)

	m.Tick(context.Background())
	r := m.Tick(context.Background())

	if r.Samplers["netstat"] != "proc unavailable" {
		t.Errorf("netstat health = %q", r.Samplers["netstat"])
	}
	cellIn, _ := m.Counter(meter.LabelCellIn)
	if size, _ := cellIn.Series().Size(0); size != 1 {
		t.Errorf("cell-in size after failed tick = %d, want 1", size)
	}
	cpuC := m.Percent()
	if size, _ := cpuC.Series().Size(0); size != 2 {
		t.Errorf("cpu size = %d, want 2 (unaffected by netstat failure)", size)
	}

	m.Tick(context.Background())
	if size, _ := cellIn.Series().Size(0); size != 2 {
		t.Errorf("cell-in size after recovery = %d, want 2", size)
	}
}

func TestTickSkipsOpenCircuit(t *testing.T) {
	failing := netMock([]int64{1, 1, 1, 1})
	for i := 0; i < 10; i++ {
		failing.FailAt(i, errors.New("boom"))
	}
	cb := retry.NewCircuitBreaker(failing, retry.Config{
		MaxFailures:       1,
		ResetTimeout:      time.Hour,
		MaxResetTimeout:   time.Hour,
		BackoffMultiplier: 2,
	})
	m := newTestMonitor(t, nil, cb)

	m.Tick(context.Background()) // opens the circuit
	m.Tick(context.Background()) // skipped

	if failing.Calls() != 1 {
		t.Errorf("expected the open circuit to skip the sampler, calls=%d", failing.Calls())
	}
	cellIn, _ := m.Counter(meter.LabelCellIn)
	if size, _ := cellIn.Series().Size(0); size != 0 {
		t.Errorf("expected no ingestion, size=%d", size)
	}
}

func TestUnknownLabelDropped(t *testing.T) {
	odd := collectors.NewMockSampler("odd", []string{"mic", meter.LabelCPU}, []int64{99, 7})
	m := newTestMonitor(t, nil, odd)

	m.Tick(context.Background())
	if got := current(t, m, meter.LabelCPU); got != 7 {
		t.Errorf("cpu = %d, want 7", got)
	}
	if _, ok := m.Counter("mic"); ok {
		t.Error("unexpected counter for unknown label")
	}
}

func TestAlertsEvaluatedEachTick(t *testing.T) {
	cpu := cpuMock([]int64{95}, []int64{96}, []int64{10})
	m := newTestMonitor(t, []status.Rule{{Counter: meter.LabelCPU, Threshold: 90, MaxHits: 1}}, cpu)

	levels := []status.Level{status.LevelWarning, status.LevelCritical, status.LevelCritical}
	for i, want := range levels {
		r := m.Tick(context.Background())
		if r.Status.Overall != want {
			t.Errorf("tick %d: overall = %s, want %s", i, r.Status.Overall, want)
		}
	}

	m.Reset()
	r := m.Tick(context.Background())
	if r.Status.Overall != status.LevelHealthy {
		t.Errorf("after reset: overall = %s, want healthy", r.Status.Overall)
	}
}

func TestResetKeepsHistory(t *testing.T) {
	cpu := cpuMock([]int64{30})
	m := newTestMonitor(t, nil, cpu)
	m.Tick(context.Background())
	m.Tick(context.Background())

	m.Reset()

	if m.Percent().Total() != 0 {
		t.Errorf("total after reset = %d", m.Percent().Total())
	}
	if size, _ := m.Percent().Series().Size(0); size != 2 {
		t.Errorf("history size after reset = %d, want 2", size)
	}
}

func TestPrimeDiscardsFirstSample(t *testing.T) {
	net := netMock([]int64{1000, 1000, 1000, 1000}, []int64{5, 6, 7, 8})
	m := newTestMonitor(t, nil, net)

	m.Prime(context.Background())
	m.Tick(context.Background())

	if got := current(t, m, meter.LabelCellIn); got != 5 {
		t.Errorf("cell-in = %d, want 5 (primed sample discarded)", got)
	}
	if m.Ticks() != 1 {
		t.Errorf("Prime should not count as a tick, Ticks=%d", m.Ticks())
	}
}

func TestFrame(t *testing.T) {
	net := netMock([]int64{10, 20, 30, 40})
	cpu := cpuMock([]int64{50})
	m := newTestMonitor(t, nil, net, cpu)
	for i := 0; i < 3; i++ {
		m.Tick(context.Background())
	}

	f, err := m.Frame(1)
	if err != nil {
		t.Fatalf("Frame: %v", err)
	}
	if f.XRange != 8 {
		t.Errorf("XRange = %d, want 8", f.XRange)
	}
	// max over lookback 1..2 is 40, +4 -> 44, next multiple of ten -> 50.
	if f.YRange != 50 {
		t.Errorf("YRange = %d, want 50", f.YRange)
	}
	if len(f.Counters) != 4 || f.Percent == nil {
		t.Fatalf("unexpected frame shape: %d counters, percent=%v", len(f.Counters), f.Percent)
	}
	if f.Banner != "1hour" {
		t.Errorf("Banner = %q", f.Banner)
	}

	if _, err := m.Frame(6); !errors.Is(err, history.ErrOutOfRange) {
		t.Errorf("expected ErrOutOfRange for code 6, got %v", err)
	}
}

func TestStateRestore(t *testing.T) {
	net := netMock([]int64{1, 2, 3, 4}, []int64{5, 6, 7, 8})
	cpu := cpuMock([]int64{9})
	m := newTestMonitor(t, nil, net, cpu)
	m.Tick(context.Background())
	m.Tick(context.Background())

	states := m.State()
	if len(states) != 5 {
		t.Fatalf("expected 5 states, got %d", len(states))
	}

	fresh := newTestMonitor(t, nil)
	states = append(states, meter.CounterState{Label: "mic"})
	if n := fresh.Restore(states); n != 5 {
		t.Errorf("restored %d counters, want 5", n)
	}

	if got := current(t, fresh, meter.LabelWifiOut); got != 8 {
		t.Errorf("restored wifi-out = %d, want 8", got)
	}
	if fresh.Percent().Total() != 18 {
		t.Errorf("restored cpu total = %d, want 18", fresh.Percent().Total())
	}
	if fresh.Network()[0] != fresh.Ref() {
		t.Error("restored reference counter mismatch")
	}
	want, _ := m.Ref().Query(0)
	got, _ := fresh.Ref().Query(0)
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("restored cell-in %v, want %v", got, want)
	}
}

func TestRestoreSkipsMismatchedSizing(t *testing.T) {
	cpu := cpuMock([]int64{9})
	m := newTestMonitor(t, nil, cpu)
	m.Tick(context.Background())
	states := m.State()

	reg := collectors.NewRegistry()
	other := testSeries()
	other.Fine.Capacity = 16
	resized, err := New(Config{Interval: time.Second, Series: other}, reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if n := resized.Restore(states); n != 0 {
		t.Errorf("restored %d counters into a resized monitor, want 0", n)
	}
}

func TestRunTicksAndStops(t *testing.T) {
	cpu := cpuMock([]int64{1}, []int64{2})
	reg := collectors.NewRegistry()
	reg.Register(cpu)

	var mu sync.Mutex
	var reports []Report
	done := make(chan struct{})

	m, err := New(Config{
		Interval: 10 * time.Millisecond,
		Series:   testSeries(),
		AfterTick: func(r Report) {
			mu.Lock()
			defer mu.Unlock()
			reports = append(reports, r)
			if len(reports) == 3 {
				close(done)
			}
		},
	}, reg)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- m.Run(ctx) }()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for ticks")
	}
	cancel()

	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Run returned %v, want context.Canceled", err)
	}

	mu.Lock()
	defer mu.Unlock()
	for i, r := range reports[:3] {
		if r.Seq != uint64(i+1) {
			t.Errorf("report %d Seq = %d", i, r.Seq)
		}
	}
	// First sample went to Prime, so the first tick ingested the second step.
	if cpu.Calls() < 4 {
		t.Errorf("expected prime plus three ticks, calls=%d", cpu.Calls())
	}
}

func TestConcurrentReadersDuringTicks(t *testing.T) {
	net := netMock([]int64{1, 2, 3, 4}, []int64{5, 6, 7, 8})
	cpu := cpuMock([]int64{10}, []int64{20})
	m := newTestMonitor(t, nil, net, cpu)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ctx.Err() == nil {
				if f, err := m.Frame(0); err == nil && f.XRange != 4 {
					t.Errorf("unexpected XRange %d", f.XRange)
					return
				}
				_ = m.State()
			}
		}()
	}

	for i := 0; i < 200; i++ {
		m.Tick(ctx)
	}
	cancel()
	wg.Wait()

	if m.Ticks() != 200 {
		t.Errorf("Ticks = %d, want 200", m.Ticks())
	}
}
