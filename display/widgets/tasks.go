package widgets

import (
	"fmt"

	"gitlab.com/tinyland/lab/net-meter/collectors/procs"
	"gitlab.com/tinyland/lab/net-meter/internal/format"
)

// RenderTasks renders one "12.3%  name" line per task, cut to width.
// A width of zero or less leaves lines uncut.
func RenderTasks(tasks []procs.Task, width int) []string {
	lines := make([]string, 0, len(tasks))
	for _, t := range tasks {
		line := fmt.Sprintf("%5.1f%%  %s", t.Percent(), t.Name)
		if width > 0 {
			line = format.TruncateWithEllipsis(line, width)
		}
		lines = append(lines, line)
	}
	return lines
}
