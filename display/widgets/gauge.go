package widgets

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// GaugeConfig controls a horizontal bar gauge for percentage counters.
type GaugeConfig struct {
	// Width is the total character width of the bar.
	Width int
	// Percent is the value from 0 to 100; values outside are clamped.
	Percent float64
	// Label is optional text shown to the left of the bar.
	Label string
	// ShowPercent appends "XX%".
	ShowPercent bool
	// ThresholdWarning and ThresholdDanger switch the bar to yellow and red.
	ThresholdWarning float64
	ThresholdDanger  float64
}

// DefaultGaugeConfig returns a 20 cell gauge turning yellow at 70% and red
// at 90%.
func DefaultGaugeConfig() GaugeConfig {
	return GaugeConfig{
		Width:            20,
		ShowPercent:      true,
		ThresholdWarning: 70,
		ThresholdDanger:  90,
	}
}

func gaugeColor(percent, warning, danger float64) lipgloss.Color {
	switch {
	case percent >= danger:
		return lipgloss.Color("#EF4444")
	case percent >= warning:
		return lipgloss.Color("#EAB308")
	default:
		return lipgloss.Color("#22C55E")
	}
}

// RenderGauge renders [Label] ████████░░░░ [XX%].
func RenderGauge(cfg GaugeConfig) string {
	percent := math.Max(0, math.Min(100, cfg.Percent))

	width := cfg.Width
	if width <= 0 {
		width = 20
	}
	filled := int(math.Round(percent / 100.0 * float64(width)))

	style := lipgloss.NewStyle().Foreground(gaugeColor(percent, cfg.ThresholdWarning, cfg.ThresholdDanger))
	bar := style.Render(strings.Repeat("█", filled)) + strings.Repeat("░", width-filled)

	var sb strings.Builder
	if cfg.Label != "" {
		sb.WriteString(cfg.Label)
		sb.WriteString(" ")
	}
	sb.WriteString(bar)
	if cfg.ShowPercent {
		fmt.Fprintf(&sb, " %3.0f%%", percent)
	}
	return sb.String()
}
