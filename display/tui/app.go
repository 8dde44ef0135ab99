// Package tui is the interactive graph view. It drives its own monitor: every
// interval it takes one sample, and every (resolution+1)*3 samples it redraws
// the graph at the current timescale. A process panel can replace the graph.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"

	"gitlab.com/tinyland/lab/net-meter/collectors/procs"
	"gitlab.com/tinyland/lab/net-meter/display/chart"
	"gitlab.com/tinyland/lab/net-meter/display/color"
	"gitlab.com/tinyland/lab/net-meter/display/widgets"
	"gitlab.com/tinyland/lab/net-meter/internal/format"
	"gitlab.com/tinyland/lab/net-meter/meter"
	"gitlab.com/tinyland/lab/net-meter/monitor"
)

// timescaleZone marks the clickable banner.
const timescaleZone = "timescale"

// Process panel timing. The first sample only seeds, so the second follows
// quickly.
const (
	defaultTopRefresh = 30 * time.Second
	topFirstDelay     = time.Second
)

// Minimum graph area in cells.
const (
	minGraphCols = 20
	minGraphRows = 4
)

type (
	primedMsg  struct{}
	tickMsg    time.Time
	sampledMsg struct{ report monitor.Report }
	topTickMsg struct{ gen int }
	topMsg     struct {
		gen   int
		tasks []procs.Task
		err   error
	}
)

// TaskSampler lists the busiest processes since its previous call.
type TaskSampler interface {
	Sample(ctx context.Context) ([]procs.Task, error)
}

// Options configures a Model.
type Options struct {
	Monitor *monitor.Monitor
	Theme   string
	// Zones tracks clickable regions. A nil manager disables mouse toggling.
	Zones *zone.Manager
	// OnTick, if set, runs after every sample with the tick report.
	OnTick func(monitor.Report)
	// Top feeds the process panel. A nil sampler disables the panel.
	Top TaskSampler
	// TopRefresh is the panel update period. Zero means 30s.
	TopRefresh time.Duration
}

// Model is the top-level Bubbletea model.
type Model struct {
	ctx     context.Context
	mon     *monitor.Monitor
	zones   *zone.Manager
	onTick  func(monitor.Report)
	theme   ThemePreset
	palette color.Palette
	styles  styles
	help    help.Model

	resolution  int
	sinceRedraw int
	frame       meter.Frame
	frameErr    error
	graph       string
	report      monitor.Report

	top        TaskSampler
	topRefresh time.Duration
	showTop    bool
	topGen     int
	topSamples int
	tasks      []procs.Task
	topErr     error

	width    int
	height   int
	ready    bool
	showHelp bool
}

// NewModel returns a Model starting at the coarsest resolution the monitor's
// history supports.
func NewModel(ctx context.Context, opts Options) Model {
	theme := GetThemePreset(opts.Theme)
	m := Model{
		ctx:        ctx,
		mon:        opts.Monitor,
		zones:      opts.Zones,
		onTick:     opts.OnTick,
		theme:      theme,
		palette:    theme.PaletteFor(),
		styles:     newStyles(theme),
		help:       help.New(),
		resolution: meter.InitialResolution(opts.Monitor.Ref()),
		top:        opts.Top,
		topRefresh: opts.TopRefresh,
	}
	if m.topRefresh <= 0 {
		m.topRefresh = defaultTopRefresh
	}
	m.refreshFrame()
	return m
}

// Resolution returns the current resolution code.
func (m Model) Resolution() int {
	return m.resolution
}

// Frame returns the frame currently drawn.
func (m Model) Frame() meter.Frame {
	return m.frame
}

// RedrawEvery is the number of samples between redraws at a resolution.
func RedrawEvery(code int) int {
	return (code + 1) * 3
}

// Init primes the samplers off the UI goroutine.
func (m Model) Init() tea.Cmd {
	mon, ctx := m.mon, m.ctx
	return func() tea.Msg {
		mon.Prime(ctx)
		return primedMsg{}
	}
}

func (m Model) scheduleTick() tea.Cmd {
	return tea.Tick(m.mon.Interval(), func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) topCmd() tea.Cmd {
	top, ctx, gen := m.top, m.ctx, m.topGen
	return func() tea.Msg {
		tasks, err := top.Sample(ctx)
		return topMsg{gen: gen, tasks: tasks, err: err}
	}
}

func (m Model) sampleCmd() tea.Cmd {
	mon, ctx := m.mon, m.ctx
	return func() tea.Msg {
		return sampledMsg{report: mon.Tick(ctx)}
	}
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Toggle):
			m.toggle()
		case key.Matches(msg, keys.Top):
			if m.top == nil {
				break
			}
			m.showTop = !m.showTop
			if m.showTop {
				// A new generation orphans refreshes still scheduled from
				// an earlier opening.
				m.topGen++
				m.topSamples = 0
				m.tasks, m.topErr = nil, nil
				return m, m.topCmd()
			}
		case key.Matches(msg, keys.Reset):
			m.mon.Reset()
			m.refreshFrame()
		case key.Matches(msg, keys.Help):
			m.showHelp = !m.showHelp
			m.help.ShowAll = m.showHelp
		}

	case tea.MouseMsg:
		if msg.Action == tea.MouseActionRelease && msg.Button == tea.MouseButtonLeft && m.inZone(msg) {
			m.toggle()
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		m.ready = true
		m.renderGraph()

	case primedMsg:
		return m, m.scheduleTick()

	case tickMsg:
		return m, m.sampleCmd()

	case topMsg:
		if msg.gen != m.topGen || !m.showTop {
			return m, nil
		}
		m.tasks, m.topErr = msg.tasks, msg.err
		m.topSamples++
		delay := m.topRefresh
		if m.topSamples == 1 {
			delay = topFirstDelay
		}
		gen := m.topGen
		return m, tea.Tick(delay, func(time.Time) tea.Msg {
			return topTickMsg{gen: gen}
		})

	case topTickMsg:
		if msg.gen != m.topGen || !m.showTop {
			return m, nil
		}
		return m, m.topCmd()

	case sampledMsg:
		m.report = msg.report
		if m.onTick != nil {
			m.onTick(msg.report)
		}
		m.sinceRedraw++
		if m.sinceRedraw >= RedrawEvery(m.resolution) {
			m.refreshFrame()
		}
		return m, m.scheduleTick()
	}

	return m, nil
}

func (m *Model) toggle() {
	m.resolution = meter.Toggle(m.resolution, m.mon.Ref())
	m.refreshFrame()
}

func (m Model) inZone(msg tea.MouseMsg) bool {
	if m.zones == nil {
		return false
	}
	z := m.zones.Get(timescaleZone)
	return z != nil && z.InBounds(msg)
}

// refreshFrame snapshots the monitor at the current resolution.
func (m *Model) refreshFrame() {
	m.sinceRedraw = 0
	f, err := m.mon.Frame(m.resolution)
	m.frame, m.frameErr = f, err
	m.renderGraph()
}

// graphSize returns the graph area left after header, legend and footer.
func (m Model) graphSize() (cols, rows int) {
	cols = m.width - 2
	rows = m.height - 8 - len(m.frame.Counters)
	if m.frame.Percent != nil {
		rows--
	}
	return max(cols, minGraphCols), max(rows, minGraphRows)
}

func (m *Model) renderGraph() {
	m.graph = ""
	if !m.ready || m.frameErr != nil {
		return
	}
	cols, rows := m.graphSize()
	// Render at several pixels per cell so the downscale smooths the lines.
	img, err := chart.Render(m.frame, chart.Options{
		Width:    max(cols*4, 200),
		Height:   max(rows*8, 100),
		Palette:  m.palette,
		RateUnit: "bytes/tick",
	})
	if err != nil {
		m.frameErr = err
		return
	}
	m.graph = chart.HalfBlocks(img, cols, rows)
}

// View implements tea.Model.
func (m Model) View() string {
	if !m.ready {
		return "Initializing..."
	}

	parts := []string{m.renderHeader()}
	switch {
	case m.showTop:
		parts = append(parts, m.renderTasks())
	case m.frameErr != nil:
		parts = append(parts, m.styles.muted.Render("no graph: "+m.frameErr.Error()))
	default:
		parts = append(parts, m.graph)
	}
	parts = append(parts, m.renderBanner())
	parts = append(parts, m.renderLegend()...)
	parts = append(parts, m.renderFooter())

	out := lipgloss.JoinVertical(lipgloss.Left, parts...)
	if m.zones != nil {
		out = m.zones.Scan(out)
	}
	return out
}

// renderTasks fills the graph area with the process list.
func (m Model) renderTasks() string {
	lines := []string{m.styles.banner.Render("top processes")}
	switch {
	case m.topErr != nil:
		lines = append(lines, m.styles.muted.Render("top: "+m.topErr.Error()))
	case len(m.tasks) == 0 && m.topSamples <= 1:
		lines = append(lines, m.styles.muted.Render("collecting..."))
	case len(m.tasks) == 0:
		lines = append(lines, m.styles.muted.Render("no busy processes"))
	default:
		lines = append(lines, widgets.RenderTasks(m.tasks, m.width-2)...)
	}
	_, rows := m.graphSize()
	for len(lines) < rows {
		lines = append(lines, "")
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderHeader() string {
	title := m.styles.title.Render("net-meter")
	dot := widgets.RenderLevel(m.report.Status.Overall, "")
	return m.styles.header.Width(m.width).Render(title + "  " + dot)
}

func (m Model) renderBanner() string {
	text := m.styles.banner.Render(meter.Banner(m.resolution))
	if m.zones != nil {
		text = m.zones.Mark(timescaleZone, text)
	}
	return text + m.styles.muted.Render(fmt.Sprintf("  y max %s/tick", format.FormatBytes(m.frame.YRange)))
}

// renderLegend lists each counter with its latest value and total.
func (m Model) renderLegend() []string {
	interval := m.mon.Interval()
	lines := make([]string, 0, len(m.frame.Counters)+1)
	for _, s := range m.frame.Counters {
		var current int64
		if len(s.Values) > 0 {
			current = s.Values[0]
		}
		label := lipgloss.NewStyle().Foreground(m.palette.Lipgloss(s.Label)).Render(widgets.PadLabel(s.Label, 9))
		lines = append(lines, fmt.Sprintf("%s %-12s total %s", label, format.FormatRate(current, interval), format.FormatBytes(s.Total)))
	}
	if p := m.frame.Percent; p != nil && len(p.Values) > 0 {
		g := widgets.DefaultGaugeConfig()
		g.Label = lipgloss.NewStyle().Foreground(m.palette.Lipgloss(p.Label)).Render(widgets.PadLabel(p.Label, 8))
		g.Percent = float64(p.Values[0])
		lines = append(lines, widgets.RenderGauge(g))
	}
	if m.report.Seq > 0 {
		lines = append(lines, widgets.RenderAlerts(m.report.Status)...)
	}
	return lines
}

func (m Model) renderFooter() string {
	var sb strings.Builder
	sb.WriteString(m.help.View(keys))
	if !m.report.At.IsZero() {
		fmt.Fprintf(&sb, "  sample %d, %s", m.report.Seq, format.FormatTimeSince(m.report.At))
	}
	return m.styles.footer.Width(m.width).Render(sb.String())
}
