// Package manpage generates the roff man page for net-meter from the compiled
// keybinding registry and build information.
//
// Usage:
//
//	net-meter -man | man -l -
//	net-meter -man > ~/.local/share/man/man1/net-meter.1
package manpage

import (
	"fmt"
	"strings"
	"time"

	"gitlab.com/tinyland/lab/net-meter/display/tui"
	"gitlab.com/tinyland/lab/net-meter/history"
	"gitlab.com/tinyland/lab/net-meter/meter"
)

// Generate returns the complete man(1) page.
func Generate(version, commit, date string) string {
	var b strings.Builder

	writeHeader(&b, version)
	writeName(&b)
	writeSynopsis(&b)
	writeDescription(&b)
	writeOptions(&b)
	writeKeybindings(&b)
	writeConfiguration(&b)
	writeFiles(&b)
	writeExamples(&b)
	writeExitStatus(&b)
	writeSeeAlso(&b)
	writeFooter(&b, version, commit, date)

	return b.String()
}

// roffEscape escapes characters roff would otherwise interpret.
func roffEscape(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `-`, `\-`)
	s = strings.ReplaceAll(s, `.`, `\&.`)
	return s
}

func writeHeader(b *strings.Builder, version string) {
	month := time.Now().Format("January 2006")
	fmt.Fprintf(b, ".TH NET-METER 1 \"%s\" \"net-meter %s\" \"User Commands\"\n", month, version)
}

func writeName(b *strings.Builder) {
	b.WriteString(`.SH NAME
net\-meter \- graph cellular, wifi and CPU load over six timescales
`)
}

func writeSynopsis(b *strings.Builder) {
	b.WriteString(`.SH SYNOPSIS
.B net\-meter
[\fIOPTIONS\fR]
`)
}

func writeDescription(b *strings.Builder) {
	b.WriteString(`.SH DESCRIPTION
.B net\-meter
samples per-interface byte counters and CPU usage at a fixed interval and
keeps three smoothed history tiers per counter. The graph can be viewed at
the following timescales:
`)
	for code := 0; code < history.NumResolutions; code++ {
		fmt.Fprintf(b, ".IP \\(bu 2\n%s\n", meter.Banner(code))
	}
	b.WriteString(`.PP
The daemon (\fB\-daemon\fR) publishes the latest frame, alert status and
health to a cache directory. \fB\-banner\fR, \fB\-chart\fR, \fB\-png\fR and
\fB\-health\fR read that cache and exit. \fB\-tui\fR runs its own sampler.
`)
}

func writeOptions(b *strings.Builder) {
	b.WriteString(".SH OPTIONS\n")

	flags := []struct {
		flag string
		arg  string
		desc string
	}{
		{"config", "PATH", "Path to the YAML configuration file. Default: ~/.config/net\\-meter/config.yaml."},
		{"daemon", "", "Run the sampling daemon. Writes a PID file, restores persisted history and publishes to the cache directory after every tick."},
		{"tui", "", "Launch the interactive graph. The timescale starts at the coarsest resolution the history fills."},
		{"banner", "", "Print a boxed summary of the cached frame: one sparkline and rate per counter, the CPU gauge and active alerts."},
		{"chart", "", "Print the cached frame as a half-block terminal chart."},
		{"png", "PATH", "Render the cached frame to an image. The format follows the file extension."},
		{"health", "", "Check the daemon heartbeat. Exit code 0 means the last tick was within twice the sampling interval."},
		{"top", "", "Measure CPU time over top.window and list the busiest processes, highest share first."},
		{"json", "", "Print JSON instead of text. Used with \\fB\\-health\\fR and \\fB\\-top\\fR."},
		{"keys", "", "Print the TUI keybindings."},
		{"keys\\-category", "CATEGORY", "Only print bindings of one category: view, data or system."},
		{"keys\\-format", "FORMAT", "Keybinding output format: table (default) or json."},
		{"diagnose", "", "Check the configuration, each data source, the cache and the daemon PID."},
		{"theme", "THEME", "Color theme: default or mono. Overrides the config file."},
		{"term\\-width", "N", "Override terminal width detection. 0 (default) means auto-detect."},
		{"verbose", "", "Enable debug logging."},
		{"version", "", "Print the version, commit hash and build date, then exit."},
		{"man", "", "Print this man page in roff format."},
	}

	for _, f := range flags {
		b.WriteString(".TP\n")
		if f.arg != "" {
			fmt.Fprintf(b, ".BR \\-%s \" \\fI%s\\fR\"\n", f.flag, f.arg)
		} else {
			fmt.Fprintf(b, ".B \\-%s\n", f.flag)
		}
		b.WriteString(f.desc + "\n")
	}
}

func writeKeybindings(b *strings.Builder) {
	b.WriteString(`.SH KEYBINDINGS
Active in the interactive graph (\fB\-tui\fR). Clicking the timescale
banner also cycles the timescale.
`)

	registry := tui.DefaultRegistry()
	categories := []struct {
		cat  tui.KeyCategory
		name string
	}{
		{tui.CategoryView, "View"},
		{tui.CategoryData, "Data"},
		{tui.CategorySystem, "System"},
	}
	for _, cat := range categories {
		entries := registry.ByCategory(cat.cat)
		if len(entries) == 0 {
			continue
		}
		fmt.Fprintf(b, ".SS %s\n", cat.name)
		for _, e := range entries {
			keysStr := strings.Join(e.Binding.Keys(), ", ")
			fmt.Fprintf(b, ".TP\n.B %s\n%s\n", roffEscape(keysStr), e.Binding.Help().Desc)
		}
	}
}

func writeConfiguration(b *strings.Builder) {
	b.WriteString(`.SH CONFIGURATION
Configuration is read from
.B ~/.config/net\-meter/config.yaml
or the path given with \fB\-config\fR. A missing file means defaults.
.SS sampling
.TP
.B interval
Duration between samples. Default: "5s".
.SS history
.TP
.B fine, medium, coarse
Each tier has a \fBcapacity\fR and a \fBsub_sample_rate\fR. Defaults keep
24 hours in the coarse tier.
.TP
.B alpha
Smoothing factor in (0, 1]. Default: 0.5.
.SS interfaces
.TP
.B cell, wifi
Interface name prefixes counted as cellular or wifi traffic.
.SS retry
.TP
.B max_failures, reset_timeout
Circuit breaker settings for each data source.
.SS daemon
.TP
.B cache_dir
Default: ~/.cache/net\-meter.
.TP
.B log_file
Default: ~/.local/log/net\-meter.log.
.TP
.B persist
Restore history on start and save it after every tick. Default: true.
.TP
.B listen_addr
When set, the daemon serves Prometheus metrics on \fI/metrics\fR and a
JSON liveness check on \fI/healthz\fR. Default: disabled.
.SS alerts
.PP
A list of rules, each with a \fBcounter\fR, a \fBthreshold\fR and the
number of hits (\fBmax_hits\fR) tolerated before the alert is critical.
.SS display
.TP
.B theme
"default" or "mono".
.TP
.B chart_width, chart_height
Image size for \fB\-png\fR in pixels. Default: 800x400.
.SS top
.TP
.B limit
Processes listed by \fB\-top\fR and the TUI process panel. Default: 10.
.TP
.B refresh
Update period of the TUI process panel. Default: "30s".
.TP
.B window
Measurement window of \fB\-top\fR. Default: "1s".
`)
}

func writeFiles(b *strings.Builder) {
	b.WriteString(`.SH FILES
.TP
.I ~/.config/net\-meter/config.yaml
Configuration file.
.TP
.I ~/.cache/net\-meter/history.json
Persisted counter history.
.TP
.I ~/.cache/net\-meter/frame.json
Latest frame, read by \fB\-banner\fR, \fB\-chart\fR and \fB\-png\fR.
.TP
.I ~/.cache/net\-meter/status.json
Alert status of the latest tick.
.TP
.I ~/.cache/net\-meter/health.json
Daemon heartbeat, read by \fB\-health\fR.
.TP
.I ~/.cache/net\-meter/net\-meter.pid
PID file of the running daemon.
.TP
.I ~/.local/log/net\-meter.log
Daemon log file.
`)
}

func writeExamples(b *strings.Builder) {
	b.WriteString(`.SH EXAMPLES
.nf
net\-meter \-daemon &
net\-meter \-banner
net\-meter \-png /tmp/net.png
net\-meter \-health \-json
net\-meter \-tui \-theme mono
net\-meter \-keys \-keys\-format json
.fi
`)
}

func writeExitStatus(b *strings.Builder) {
	b.WriteString(".SH EXIT STATUS\n")
	b.WriteString(".TP\n.B 0\n")
	b.WriteString("Success. For \\fB\\-health\\fR, the daemon is healthy.\n")
	b.WriteString(".TP\n.B 1\n")
	b.WriteString("Failure. For \\fB\\-health\\fR, the heartbeat is stale or missing.\n")
	b.WriteString(".TP\n.B 2\n")
	b.WriteString("Invalid command line.\n")
}

func writeSeeAlso(b *strings.Builder) {
	b.WriteString(`.SH SEE ALSO
.BR proc (5),
.BR systemctl (1)
`)
}

func writeFooter(b *strings.Builder, version, commit, date string) {
	fmt.Fprintf(b, ".SH VERSION\n%s (%s) built %s\n", version, commit, date)
}
