package tui

import (
	"github.com/charmbracelet/lipgloss"

	"gitlab.com/tinyland/lab/net-meter/display/color"
)

// ThemePreset is a color scheme for the chrome around the graph. The graph
// itself is colored by the named palette.
type ThemePreset struct {
	Name        string
	Description string
	Palette     string
	Primary     lipgloss.Color
	Secondary   lipgloss.Color
	Muted       lipgloss.Color
	ShowBorders bool
}

var (
	// DefaultTheme matches the classic blue graph.
	DefaultTheme = ThemePreset{
		Name:        "default",
		Description: "Blue graph with colored series",
		Palette:     "default",
		Primary:     lipgloss.Color("#7C3AED"),
		Secondary:   lipgloss.Color("#06B6D4"),
		Muted:       lipgloss.Color("#6B7280"),
		ShowBorders: true,
	}

	// MonoTheme is for terminals without reliable color.
	MonoTheme = ThemePreset{
		Name:        "mono",
		Description: "Grayscale",
		Palette:     "mono",
		Primary:     lipgloss.Color("#FFFFFF"),
		Secondary:   lipgloss.Color("#C0C0C0"),
		Muted:       lipgloss.Color("#808080"),
		ShowBorders: false,
	}
)

var allPresets = []ThemePreset{DefaultTheme, MonoTheme}

// GetThemePreset returns the named preset, or DefaultTheme.
func GetThemePreset(name string) ThemePreset {
	for _, p := range allPresets {
		if p.Name == name {
			return p
		}
	}
	return DefaultTheme
}

// AllThemePresets returns all presets.
func AllThemePresets() []ThemePreset {
	out := make([]ThemePreset, len(allPresets))
	copy(out, allPresets)
	return out
}

// PaletteFor returns the graph palette of the preset.
func (p ThemePreset) PaletteFor() color.Palette {
	return color.PaletteFor(p.Palette)
}

// styles holds the rendered chrome for one preset.
type styles struct {
	header lipgloss.Style
	title  lipgloss.Style
	banner lipgloss.Style
	footer lipgloss.Style
	muted  lipgloss.Style
}

func newStyles(p ThemePreset) styles {
	header := lipgloss.NewStyle().MarginBottom(1)
	if p.ShowBorders {
		header = header.
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(p.Muted)
	}
	return styles{
		header: header,
		title:  lipgloss.NewStyle().Bold(true).Foreground(p.Primary),
		banner: lipgloss.NewStyle().Bold(true).Foreground(p.Secondary).Underline(true),
		footer: lipgloss.NewStyle().Foreground(p.Muted).MarginTop(1),
		muted:  lipgloss.NewStyle().Foreground(p.Muted),
	}
}
