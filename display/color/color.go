// Package color decides whether terminal output is colored and holds the
// per-counter palettes shared by the TUI, the banner and PNG charts.
//
// NO_COLOR (https://no-color.org/) and pipe/redirect detection switch
// lipgloss to the Ascii profile so styled renders produce plain text.
package color

import (
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
	"github.com/muesli/termenv"
)

// ShouldDisableColor reports whether NO_COLOR is set or stdout is not a
// terminal.
func ShouldDisableColor() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return true
	}
	fd := os.Stdout.Fd()
	return !isatty.IsTerminal(fd) && !isatty.IsCygwinTerminal(fd)
}

// Apply configures the global lipgloss renderer based on ShouldDisableColor
// and returns whether color is enabled.
func Apply() bool {
	if ShouldDisableColor() {
		ForceDisable()
		return false
	}
	return true
}

// ForceDisable unconditionally switches lipgloss to plain text.
func ForceDisable() {
	lipgloss.SetColorProfile(termenv.Ascii)
}

// StripANSI removes ANSI escape sequences from s.
func StripANSI(s string) string {
	result := make([]byte, 0, len(s))
	inEscape := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inEscape:
			if (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || c == '~' {
				inEscape = false
			}
		case c == '\x1b':
			inEscape = true
		default:
			result = append(result, c)
		}
	}
	return string(result)
}
