package widgets

import (
	"strings"
	"testing"
)

func TestRenderGauge(t *testing.T) {
	tests := []struct {
		name    string
		percent float64
		filled  int
		text    string
	}{
		{"half", 50, 10, "50%"},
		{"zero", 0, 0, "0%"},
		{"full", 100, 20, "100%"},
		{"clamp high", 150, 20, "100%"},
		{"clamp low", -10, 0, "0%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultGaugeConfig()
			cfg.Percent = tt.percent
			got := RenderGauge(cfg)

			if n := strings.Count(got, "█"); n != tt.filled {
				t.Errorf("filled = %d, want %d (%q)", n, tt.filled, got)
			}
			if n := strings.Count(got, "░"); n != 20-tt.filled {
				t.Errorf("empty = %d, want %d", n, 20-tt.filled)
			}
			if !strings.Contains(got, tt.text) {
				t.Errorf("expected %q in %q", tt.text, got)
			}
		})
	}
}

func TestRenderGaugeLabelAndWidth(t *testing.T) {
	got := RenderGauge(GaugeConfig{Width: 0, Percent: 25, Label: "cpu"})
	if !strings.HasPrefix(got, "cpu ") {
		t.Errorf("expected label prefix, got %q", got)
	}
	if strings.Contains(got, "%") {
		t.Errorf("ShowPercent=false should omit percentage, got %q", got)
	}
	if n := strings.Count(got, "█") + strings.Count(got, "░"); n != 20 {
		t.Errorf("default width should be 20 cells, got %d", n)
	}
}

func TestGaugeColor(t *testing.T) {
	tests := []struct {
		percent float64
		want    string
	}{
		{10, "#22C55E"},
		{70, "#EAB308"},
		{95, "#EF4444"},
	}
	for _, tt := range tests {
		if got := string(gaugeColor(tt.percent, 70, 90)); got != tt.want {
			t.Errorf("gaugeColor(%v) = %s, want %s", tt.percent, got, tt.want)
		}
	}
}
