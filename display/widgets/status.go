package widgets

import (
	"github.com/charmbracelet/lipgloss"

	"gitlab.com/tinyland/lab/net-meter/status"
)

var levelIcons = map[status.Level]string{
	status.LevelHealthy:  "●", // ●
	status.LevelWarning:  "●",
	status.LevelCritical: "●",
	status.LevelUnknown:  "○", // ○
}

var levelColors = map[status.Level]lipgloss.Color{
	status.LevelHealthy:  lipgloss.Color("#22C55E"),
	status.LevelWarning:  lipgloss.Color("#EAB308"),
	status.LevelCritical: lipgloss.Color("#EF4444"),
	status.LevelUnknown:  lipgloss.Color("#6B7280"),
}

// RenderLevel renders a colored dot followed by text. Empty text renders the
// dot alone.
func RenderLevel(level status.Level, text string) string {
	icon, ok := levelIcons[level]
	if !ok {
		icon = levelIcons[status.LevelUnknown]
	}
	dot := lipgloss.NewStyle().Foreground(levelColors[level]).Render(icon)
	if text == "" {
		return dot
	}
	return dot + " " + text
}

// RenderAlerts renders one line per alert that is not healthy. A fully
// healthy status renders a single summary line.
func RenderAlerts(st status.SystemStatus) []string {
	var lines []string
	for _, a := range st.Alerts {
		if a.Level == status.LevelHealthy {
			continue
		}
		lines = append(lines, RenderLevel(a.Level, a.Reason))
	}
	if len(lines) == 0 {
		lines = append(lines, RenderLevel(st.Overall, st.Overall.String()))
	}
	return lines
}

// LevelColor returns the color used for a level.
func LevelColor(level status.Level) lipgloss.Color {
	if c, ok := levelColors[level]; ok {
		return c
	}
	return levelColors[status.LevelUnknown]
}
