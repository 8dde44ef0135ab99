// Package widgets renders counter history as single-line terminal widgets.
package widgets

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// sparkBlocks contains 8 unicode block characters for sparkline rendering,
// ordered from lowest to highest.
var sparkBlocks = []rune{'▁', '▂', '▃', '▄', '▅', '▆', '▇', '█'}

// SparklineConfig controls the appearance of a sparkline.
type SparklineConfig struct {
	// Values are counter points, newest first, as held in a snapshot.
	Values []int64
	// Width is the number of cells. If 0, uses len(Values). Missing history
	// is padded with spaces on the left (oldest) side.
	Width int
	// Max is the value drawn as a full block. Sharing one Max across
	// counters keeps their sparklines comparable. If <= 0, the largest
	// visible value is used.
	Max int64
	// Label is optional text shown before the sparkline.
	Label string
	// Color is the lipgloss color for the sparkline characters.
	Color lipgloss.Color
}

// RenderSparkline draws values oldest to newest, left to right.
func RenderSparkline(cfg SparklineConfig) string {
	if len(cfg.Values) == 0 {
		return ""
	}

	width := cfg.Width
	if width <= 0 {
		width = len(cfg.Values)
	}
	values := cfg.Values
	if len(values) > width {
		values = values[:width]
	}

	top := cfg.Max
	if top <= 0 {
		for _, v := range values {
			if v > top {
				top = v
			}
		}
	}

	runes := make([]rune, 0, width)
	for i := 0; i < width-len(values); i++ {
		runes = append(runes, ' ')
	}
	for i := len(values) - 1; i >= 0; i-- {
		runes = append(runes, sparkBlock(values[i], top))
	}

	out := string(runes)
	if cfg.Color != "" {
		out = lipgloss.NewStyle().Foreground(cfg.Color).Render(out)
	}
	if cfg.Label != "" {
		out = cfg.Label + " " + out
	}
	return out
}

func sparkBlock(v, top int64) rune {
	if top <= 0 || v <= 0 {
		return sparkBlocks[0]
	}
	if v >= top {
		return sparkBlocks[len(sparkBlocks)-1]
	}
	return sparkBlocks[v*int64(len(sparkBlocks)-1)/top]
}

// PadLabel right-pads a label so sparklines line up.
func PadLabel(label string, width int) string {
	if n := lipgloss.Width(label); n < width {
		return label + strings.Repeat(" ", width-n)
	}
	return label
}
