package color

import (
	"fmt"
	stdcolor "image/color"
	"strconv"

	"github.com/charmbracelet/lipgloss"

	"gitlab.com/tinyland/lab/net-meter/meter"
)

// Palette assigns a color to every counter plus chart chrome.
type Palette struct {
	Name       string
	Series     map[string]string // counter label -> #RRGGBB
	Background string
	Grid       string
	Text       string
}

var palettes = map[string]Palette{
	"default": {
		Name: "default",
		Series: map[string]string{
			meter.LabelCellIn:  "#FF0000",
			meter.LabelCellOut: "#00FF00",
			meter.LabelWifiIn:  "#D65B06",
			meter.LabelWifiOut: "#F0E70F",
			meter.LabelCPU:     "#C0C0C0",
		},
		Background: "#0000FF",
		Grid:       "#000000",
		Text:       "#FFFFFF",
	},
	"mono": {
		Name: "mono",
		Series: map[string]string{
			meter.LabelCellIn:  "#FFFFFF",
			meter.LabelCellOut: "#C0C0C0",
			meter.LabelWifiIn:  "#A0A0A0",
			meter.LabelWifiOut: "#808080",
			meter.LabelCPU:     "#606060",
		},
		Background: "#000000",
		Grid:       "#303030",
		Text:       "#FFFFFF",
	},
}

// fallbackSeries colors counters the palette does not know.
const fallbackSeries = "#7C3AED"

// PaletteFor returns the named palette, or the default one.
func PaletteFor(name string) Palette {
	if p, ok := palettes[name]; ok {
		return p
	}
	return palettes["default"]
}

// Hex returns the hex color for a counter label.
func (p Palette) Hex(label string) string {
	if h, ok := p.Series[label]; ok {
		return h
	}
	return fallbackSeries
}

// Lipgloss returns the terminal color for a counter label.
func (p Palette) Lipgloss(label string) lipgloss.Color {
	return lipgloss.Color(p.Hex(label))
}

// RGBA returns the image color for a counter label.
func (p Palette) RGBA(label string) stdcolor.NRGBA {
	c, err := ParseHex(p.Hex(label))
	if err != nil {
		return stdcolor.NRGBA{A: 0xff}
	}
	return c
}

// ParseHex parses "#RRGGBB" into an opaque color.
func ParseHex(s string) (stdcolor.NRGBA, error) {
	if len(s) != 7 || s[0] != '#' {
		return stdcolor.NRGBA{}, fmt.Errorf("color: invalid hex %q", s)
	}
	v, err := strconv.ParseUint(s[1:], 16, 32)
	if err != nil {
		return stdcolor.NRGBA{}, fmt.Errorf("color: invalid hex %q: %w", s, err)
	}
	return stdcolor.NRGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}

// MustParseHex is ParseHex for palette constants.
func MustParseHex(s string) stdcolor.NRGBA {
	c, err := ParseHex(s)
	if err != nil {
		panic(err)
	}
	return c
}
