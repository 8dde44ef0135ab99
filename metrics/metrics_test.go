package metrics

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"gitlab.com/tinyland/lab/net-meter/collectors"
	"gitlab.com/tinyland/lab/net-meter/history"
	"gitlab.com/tinyland/lab/net-meter/meter"
	"gitlab.com/tinyland/lab/net-meter/monitor"
	"gitlab.com/tinyland/lab/net-meter/status"
)

func newTestMonitor(t *testing.T, netErr error) *monitor.Monitor {
	t.Helper()
	ns := collectors.NewMockSampler("netstat", monitor.NetworkLabels, []int64{1000, 200, 3000, 400})
	if netErr != nil {
		ns.FailAt(1, netErr)
	}
	reg := collectors.NewRegistry()
	reg.Register(ns)
	reg.Register(collectors.NewMockSampler("sysmetrics", []string{meter.LabelCPU}, []int64{75}))

	tier := history.TierConfig{Capacity: 8, SubSampleRate: 1}
	mon, err := monitor.New(monitor.Config{
		Interval: time.Minute,
		Series:   history.SeriesConfig{Fine: tier, Medium: tier, Coarse: tier, Alpha: 1},
		Rules:    []status.Rule{{Counter: meter.LabelCPU, Threshold: 50, MaxHits: 3}},
	}, reg)
	if err != nil {
		t.Fatalf("monitor.New: %v", err)
	}
	return mon
}

func get(t *testing.T, srv *httptest.Server, path string) (int, string) {
	t.Helper()
	resp, err := http.Get(srv.URL + path)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatal(err)
	}
	return resp.StatusCode, string(body)
}

func TestCollectorCount(t *testing.T) {
	mon := newTestMonitor(t, nil)
	c := NewCollector(mon)

	// Before the first tick: totals, ticks and level only.
	if n := testutil.CollectAndCount(c); n != 4+1+1 {
		t.Errorf("metrics before tick = %d, want 6", n)
	}

	mon.Tick(context.Background())
	// 4 current + 4 totals + cpu + ticks + 2 samplers + level + 1 rule.
	if n := testutil.CollectAndCount(c); n != 14 {
		t.Errorf("metrics after tick = %d, want 14", n)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	mon := newTestMonitor(t, nil)
	mon.Tick(context.Background())
	mon.Tick(context.Background())

	srv := httptest.NewServer(NewServer("", mon, nil).Handler())
	defer srv.Close()

	code, body := get(t, srv, "/metrics")
	if code != http.StatusOK {
		t.Fatalf("status = %d", code)
	}
	for _, want := range []string{
		`netmeter_counter_bytes_total{label="wifi-in"} 6000`,
		`netmeter_counter_current_bytes{label="cell-in"} 1000`,
		`netmeter_cpu_percent 75`,
		`netmeter_ticks_total 2`,
		`netmeter_sampler_up{sampler="netstat"} 1`,
		`netmeter_alert_hits{counter="cpu",rule="0"} 2`,
		`netmeter_alert_level 1`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics missing %q", want)
		}
	}
}

func TestMetricsRejectsPost(t *testing.T) {
	srv := httptest.NewServer(NewServer("", newTestMonitor(t, nil), nil).Handler())
	defer srv.Close()

	resp, err := http.Post(srv.URL+"/metrics", "text/plain", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("POST /metrics = %d, want 405", resp.StatusCode)
	}
}

func TestHealthz(t *testing.T) {
	tests := []struct {
		name       string
		ticks      int
		netErr     error
		now        time.Duration // offset from the last tick
		wantCode   int
		wantStatus string
	}{
		{"starting", 0, nil, 0, http.StatusOK, "starting"},
		{"ok", 1, nil, time.Second, http.StatusOK, "ok"},
		{"degraded", 2, errors.New("proc unavailable"), time.Second, http.StatusOK, "degraded"},
		{"stale", 1, nil, 3 * time.Minute, http.StatusServiceUnavailable, "stale"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mon := newTestMonitor(t, tt.netErr)
			for i := 0; i < tt.ticks; i++ {
				mon.Tick(context.Background())
			}
			s := NewServer("", mon, nil)
			last := mon.Report().At
			s.now = func() time.Time { return last.Add(tt.now) }

			srv := httptest.NewServer(s.Handler())
			defer srv.Close()

			code, body := get(t, srv, "/healthz")
			if code != tt.wantCode {
				t.Errorf("code = %d, want %d", code, tt.wantCode)
			}
			var h Health
			if err := json.Unmarshal([]byte(body), &h); err != nil {
				t.Fatalf("decode: %v\n%s", err, body)
			}
			if h.Status != tt.wantStatus {
				t.Errorf("status = %q, want %q", h.Status, tt.wantStatus)
			}
			if h.Ticks != uint64(tt.ticks) {
				t.Errorf("ticks = %d, want %d", h.Ticks, tt.ticks)
			}
		})
	}
}

func TestServeShutdown(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	s := NewServer(ln.Addr().String(), newTestMonitor(t, nil), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	var resp *http.Response
	for i := 0; i < 50; i++ {
		resp, err = http.Get("http://" + ln.Addr().String() + "/healthz")
		if err == nil {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if err != nil {
		t.Fatalf("server never answered: %v", err)
	}
	resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Serve() = %v, want nil after cancel", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestRunBadAddress(t *testing.T) {
	s := NewServer("not-an-address", newTestMonitor(t, nil), nil)
	if err := s.Run(context.Background()); err == nil {
		t.Error("expected listen error")
	}
}
