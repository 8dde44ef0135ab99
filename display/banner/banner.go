// Package banner renders the last frame written by the daemon as a compact
// boxed summary for shell prompts. It reads only the cache, never samples.
package banner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"gitlab.com/tinyland/lab/net-meter/cache"
	"gitlab.com/tinyland/lab/net-meter/display/color"
	"gitlab.com/tinyland/lab/net-meter/display/widgets"
	"gitlab.com/tinyland/lab/net-meter/internal/format"
	"gitlab.com/tinyland/lab/net-meter/meter"
	"gitlab.com/tinyland/lab/net-meter/status"
)

// labelWidth is the padded width of counter labels.
const labelWidth = 9

// Config controls banner generation.
type Config struct {
	// CacheDir is the daemon cache directory.
	CacheDir string
	// MaxAge marks the cached frame stale once exceeded.
	MaxAge time.Duration
	// Interval is the sampling interval the daemon uses; rates are per second
	// when it is positive.
	Interval time.Duration
	// Palette colors the sparklines.
	Palette color.Palette
	// Hostname overrides os.Hostname().
	Hostname string
	// TermWidth overrides terminal width detection.
	TermWidth int
	Logger    *slog.Logger
}

// DefaultConfig returns defaults matching the daemon defaults.
func DefaultConfig() Config {
	home, _ := os.UserHomeDir()
	return Config{
		CacheDir: filepath.Join(home, ".cache", "net-meter"),
		MaxAge:   time.Minute,
		Interval: 5 * time.Second,
		Palette:  color.PaletteFor("default"),
	}
}

// Banner renders cached daemon output.
type Banner struct {
	config Config
	// uptime is swapped in tests.
	uptime func() time.Duration
}

// New creates a Banner. A nil logger discards output.
func New(cfg Config) *Banner {
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.Palette.Name == "" {
		cfg.Palette = color.PaletteFor("default")
	}
	return &Banner{config: cfg, uptime: systemUptime}
}

// Generate reads the cached frame and status and renders the banner. A
// missing frame renders a hint instead of failing.
func (b *Banner) Generate(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	store, err := cache.NewStore(b.config.CacheDir, b.config.Logger)
	if err != nil {
		return "", fmt.Errorf("banner: %w", err)
	}

	frame, fresh, err := cache.GetTyped[meter.Frame](store, cache.KeyFrame, b.config.MaxAge)
	if err != nil {
		b.config.Logger.Warn("banner: failed to load frame", "error", err)
	}
	st, _, err := cache.GetTyped[status.SystemStatus](store, cache.KeyStatus, b.config.MaxAge)
	if err != nil {
		b.config.Logger.Warn("banner: failed to load status", "error", err)
	}

	width := b.config.TermWidth
	if width <= 0 {
		width, _ = DetectTerminalSize()
	}

	var lines []string
	if frame == nil {
		lines = append(lines, "no data yet, start the daemon with -daemon")
	} else {
		lines = append(lines, b.counterLines(*frame, width-4)...)
	}
	if st != nil {
		lines = append(lines, widgets.RenderAlerts(*st)...)
	}
	lines = append(lines, b.footer(store.Age(cache.KeyFrame), frame != nil, fresh))

	title := "net-meter · " + format.TruncateWithEllipsis(b.hostname(), maxHostname)
	if frame != nil {
		title += " · " + frame.Banner
	}
	return RenderBox(lines, width, title, RoundedBox, titleColor(st)), nil
}

// counterLines renders one sparkline per network counter plus a cpu gauge.
func (b *Banner) counterLines(f meter.Frame, inner int) []string {
	const statsWidth = 30
	spark := inner - labelWidth - statsWidth - 2
	if spark > f.XRange {
		spark = f.XRange
	}

	lines := make([]string, 0, len(f.Counters)+1)
	for _, s := range f.Counters {
		var current int64
		if len(s.Values) > 0 {
			current = s.Values[0]
		}
		line := widgets.PadLabel(s.Label, labelWidth)
		if spark > 0 {
			line += widgets.RenderSparkline(widgets.SparklineConfig{
				Values: f.Visible(s),
				Width:  spark,
				Max:    f.YRange,
				Color:  b.config.Palette.Lipgloss(s.Label),
			}) + "  "
		}
		line += fmt.Sprintf("%-12s total %s", format.FormatRate(current, b.config.Interval), format.FormatBytes(s.Total))
		lines = append(lines, line)
	}

	if f.Percent != nil && len(f.Percent.Values) > 0 {
		g := widgets.DefaultGaugeConfig()
		g.Label = widgets.PadLabel(f.Percent.Label, labelWidth-1)
		g.Percent = float64(f.Percent.Values[0])
		if spark > g.Width {
			g.Width = spark
		}
		lines = append(lines, widgets.RenderGauge(g))
	}
	return lines
}

func (b *Banner) footer(age time.Duration, haveFrame, fresh bool) string {
	parts := make([]string, 0, 2)
	if up := b.uptime(); up > 0 {
		parts = append(parts, "up "+format.FormatDuration(up))
	}
	if haveFrame {
		updated := "updated " + format.FormatDuration(age) + " ago"
		if !fresh {
			updated += " (stale)"
		}
		parts = append(parts, updated)
	}
	return strings.Join(parts, " · ")
}

// maxHostname caps the hostname shown in the title.
const maxHostname = 24

func (b *Banner) hostname() string {
	if b.config.Hostname != "" {
		return b.config.Hostname
	}
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "unknown"
}

func titleColor(st *status.SystemStatus) lipgloss.Color {
	level := status.LevelUnknown
	if st != nil {
		level = st.Overall
	}
	return widgets.LevelColor(level)
}

// parseUptimeSeconds reads the first field of /proc/uptime.
func parseUptimeSeconds(data []byte) (float64, error) {
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty uptime")
	}
	secs, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, fmt.Errorf("parse uptime: %w", err)
	}
	return secs, nil
}
