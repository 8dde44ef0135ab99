package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"gopkg.in/yaml.v3"

	"gitlab.com/tinyland/lab/net-meter/cache"
	"gitlab.com/tinyland/lab/net-meter/config"
	"gitlab.com/tinyland/lab/net-meter/meter"
)

// writeConfig saves cfg as YAML next to its cache dir and returns the path.
func writeConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	data, err := yaml.Marshal(cfg)
	if err != nil {
		t.Fatalf("yaml.Marshal: %v", err)
	}
	path := filepath.Join(filepath.Dir(cfg.Daemon.CacheDir), "config.yaml")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// publishedConfig runs a few daemon ticks against mock samplers and returns a
// config file pointing at the resulting cache.
func publishedConfig(t *testing.T, ticks int) (string, *daemon) {
	t.Helper()
	d, cfg := newTestDaemon(t)
	// Keep the published data fresh for the duration of the test.
	cfg.Sampling.Interval = "1m"
	ctx := context.Background()
	for i := 0; i < ticks; i++ {
		d.publish(d.monitor.Tick(ctx))
	}
	return writeConfig(t, cfg), d
}

func runArgs(args ...string) (code int, stdout, stderr string) {
	var out, errOut bytes.Buffer
	code = run(args, &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestRun_NoConfigCommands(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		wantCode int
		wantOut  string
	}{
		{"version", []string{"-version"}, 0, "net-meter " + version},
		{"keys table", []string{"-keys"}, 0, "timescale"},
		{"keys category", []string{"-keys", "-keys-category", "data"}, 0, "reset totals"},
		{"keys json", []string{"-keys", "-keys-format", "json"}, 0, `"category"`},
		{"man page", []string{"-man"}, 0, ".TH NET-METER 1"},
		{"bad flag", []string{"-no-such-flag"}, 2, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, out, _ := runArgs(tt.args...)
			if code != tt.wantCode {
				t.Fatalf("exit code = %d, want %d", code, tt.wantCode)
			}
			if !strings.Contains(out, tt.wantOut) {
				t.Errorf("stdout missing %q:\n%s", tt.wantOut, out)
			}
		})
	}
}

func TestRun_KeysBadFormat(t *testing.T) {
	code, _, errOut := runArgs("-keys", "-keys-format", "xml")
	if code != 1 || !strings.Contains(errOut, "keys:") {
		t.Errorf("code = %d, stderr = %q", code, errOut)
	}
}

func TestRun_Usage(t *testing.T) {
	cfg := testConfig(t)
	code, out, _ := runArgs("-config", writeConfig(t, cfg))
	if code != 0 {
		t.Fatalf("exit code = %d", code)
	}
	for _, want := range []string{"Usage: net-meter", "-daemon", "-png", "-top"} {
		if !strings.Contains(out, want) {
			t.Errorf("usage missing %q", want)
		}
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Display.ChartWidth = 0
	code, _, errOut := runArgs("-config", writeConfig(t, cfg), "-banner")
	if code != 1 || !strings.Contains(errOut, "invalid config") {
		t.Errorf("code = %d, stderr = %q", code, errOut)
	}
}

func TestRun_ThemeOverrideValidated(t *testing.T) {
	cfg := testConfig(t)
	code, _, errOut := runArgs("-config", writeConfig(t, cfg), "-theme", "neon", "-chart")
	if code != 1 || !strings.Contains(errOut, "display.theme") {
		t.Errorf("code = %d, stderr = %q", code, errOut)
	}
}

func TestRun_ChartWithoutData(t *testing.T) {
	cfg := testConfig(t)
	code, _, errOut := runArgs("-config", writeConfig(t, cfg), "-chart")
	if code != 1 || !strings.Contains(errOut, "no cached frame") {
		t.Errorf("code = %d, stderr = %q", code, errOut)
	}
}

func TestRun_PNG(t *testing.T) {
	path, _ := publishedConfig(t, 3)
	out := filepath.Join(t.TempDir(), "graph.png")

	code, _, errOut := runArgs("-config", path, "-png", out)
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, errOut)
	}
	img, err := imaging.Open(out)
	if err != nil {
		t.Fatalf("imaging.Open: %v", err)
	}
	if b := img.Bounds(); b.Dx() != 800 || b.Dy() != 400 {
		t.Errorf("image size = %dx%d, want 800x400", b.Dx(), b.Dy())
	}
}

func TestRun_Chart(t *testing.T) {
	path, d := publishedConfig(t, 3)
	frame, _, err := cache.GetTyped[meter.Frame](d.store, cache.KeyFrame, time.Hour)
	if err != nil || frame == nil {
		t.Fatalf("frame not published: %v", err)
	}

	code, out, errOut := runArgs("-config", path, "-chart", "-term-width", "40")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, errOut)
	}
	if !strings.Contains(out, frame.Banner) {
		t.Errorf("chart output missing banner %q", frame.Banner)
	}
}

func TestRun_Banner(t *testing.T) {
	path, _ := publishedConfig(t, 3)
	code, out, errOut := runArgs("-config", path, "-banner", "-term-width", "90")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, errOut)
	}
	if !strings.Contains(out, "net-meter") || !strings.Contains(out, meter.LabelCPU) {
		t.Errorf("banner output:\n%s", out)
	}
}

func TestRun_Health(t *testing.T) {
	path, _ := publishedConfig(t, 2)
	code, out, errOut := runArgs("-config", path, "-health", "-json")
	if code != 0 {
		t.Fatalf("exit code = %d, stderr = %s", code, errOut)
	}
	var h HealthStatus
	if err := json.Unmarshal([]byte(out), &h); err != nil {
		t.Fatalf("health output is not JSON: %v\n%s", err, out)
	}
	if h.Ticks != 2 {
		t.Errorf("ticks = %d, want 2", h.Ticks)
	}
}

func TestDefaultConfigPath(t *testing.T) {
	p := defaultConfigPath()
	if !strings.HasSuffix(p, filepath.Join(".config", "net-meter", "config.yaml")) {
		t.Errorf("defaultConfigPath() = %q", p)
	}
}

func TestNewLogger(t *testing.T) {
	tests := []struct {
		verbose   bool
		wantDebug bool
	}{
		{false, false},
		{true, true},
	}
	for _, tt := range tests {
		var buf bytes.Buffer
		l := newLogger(&buf, tt.verbose)
		if got := l.Enabled(context.Background(), slog.LevelDebug); got != tt.wantDebug {
			t.Errorf("verbose=%v: debug enabled = %v", tt.verbose, got)
		}
		l.Info("hello", "k", "v")
		if !strings.Contains(buf.String(), "k=v") {
			t.Errorf("text handler output = %q", buf.String())
		}
	}
}

func TestOpenLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "net-meter.log")
	w, closeFn, err := openLogFile(path)
	if err != nil {
		t.Fatalf("openLogFile: %v", err)
	}
	newLogger(w, false).Info("started")
	closeFn()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "msg=started") {
		t.Errorf("log file = %q", data)
	}
}
