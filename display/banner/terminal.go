package banner

import (
	"os"
	"strconv"

	"github.com/charmbracelet/x/term"
)

// Fallback terminal size when neither the TTY nor the environment knows.
const (
	defaultCols = 80
	defaultRows = 24
)

// DetectTerminalSize returns the terminal dimensions from the stdout TTY,
// then COLUMNS/LINES, then 80x24.
func DetectTerminalSize() (width, height int) {
	if w, h, err := term.GetSize(os.Stdout.Fd()); err == nil && w > 0 && h > 0 {
		return w, h
	}
	return envInt("COLUMNS", defaultCols), envInt("LINES", defaultRows)
}

func envInt(name string, fallback int) int {
	if v, err := strconv.Atoi(os.Getenv(name)); err == nil && v > 0 {
		return v
	}
	return fallback
}
