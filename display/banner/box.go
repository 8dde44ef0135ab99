package banner

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// BoxStyle defines Unicode box-drawing characters.
type BoxStyle struct {
	TopLeft, TopRight, BottomLeft, BottomRight rune
	Horizontal, Vertical                       rune
}

// RoundedBox uses rounded corner box-drawing characters.
var RoundedBox = BoxStyle{
	TopLeft: '╭', TopRight: '╮', BottomLeft: '╰', BottomRight: '╯',
	Horizontal: '─', Vertical: '│',
}

// SharpBox uses sharp corner box-drawing characters.
var SharpBox = BoxStyle{
	TopLeft: '┌', TopRight: '┐', BottomLeft: '└', BottomRight: '┘',
	Horizontal: '─', Vertical: '│',
}

// RenderBox wraps content lines in a box of the given total width. Lines
// are padded or cut to fit; ANSI styling does not count toward width.
func RenderBox(lines []string, width int, title string, style BoxStyle, titleColor lipgloss.Color) string {
	if width < 8 {
		width = defaultCols
	}
	inner := width - 2
	h := string(style.Horizontal)

	var sb strings.Builder
	sb.WriteRune(style.TopLeft)
	if title != "" {
		title = ansi.Truncate(title, inner-4, "")
		styled := lipgloss.NewStyle().Foreground(titleColor).Bold(true).Render(title)
		sb.WriteString(h + " " + styled + " ")
		if rest := inner - lipgloss.Width(title) - 3; rest > 0 {
			sb.WriteString(strings.Repeat(h, rest))
		}
	} else {
		sb.WriteString(strings.Repeat(h, inner))
	}
	sb.WriteRune(style.TopRight)
	sb.WriteByte('\n')

	for _, line := range lines {
		sb.WriteRune(style.Vertical)
		sb.WriteByte(' ')
		sb.WriteString(fit(line, inner-2))
		sb.WriteByte(' ')
		sb.WriteRune(style.Vertical)
		sb.WriteByte('\n')
	}

	sb.WriteRune(style.BottomLeft)
	sb.WriteString(strings.Repeat(h, inner))
	sb.WriteRune(style.BottomRight)
	return sb.String()
}

// fit pads or truncates s to exactly width visible cells.
func fit(s string, width int) string {
	if width <= 0 {
		return ""
	}
	if w := lipgloss.Width(s); w < width {
		return s + strings.Repeat(" ", width-w)
	}
	return ansi.Truncate(s, width, "")
}
