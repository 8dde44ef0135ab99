// net-meter graphs network traffic and CPU load over six timescales, from
// the last 30 minutes to the last 24 hours.
//
// A background daemon samples /proc every interval, keeps multi-resolution
// history per counter and publishes the latest frame to a cache directory.
// One-shot commands render that frame as a banner, a terminal chart or a PNG;
// the TUI runs its own monitor.
//
// Usage:
//
//	net-meter [flags]
//
// Flags:
//
//	-config string    Path to configuration file (default: ~/.config/net-meter/config.yaml)
//	-daemon           Run background daemon
//	-tui              Launch interactive graph
//	-banner           Print a summary banner from the cached frame
//	-chart            Print the cached frame as a terminal chart
//	-png string       Render the cached frame to a PNG file
//	-health           Check daemon health status
//	-top              List the processes using the most CPU
//	-json             Output as JSON (with -health or -top)
//	-keys             Print TUI keybindings
//	-diagnose         Check config, data sources, cache and daemon
//	-theme string     Theme override (default|mono)
//	-verbose          Enable debug logging
//	-version          Print version and exit
//	-man              Print the man page
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gitlab.com/tinyland/lab/net-meter/cache"
	"gitlab.com/tinyland/lab/net-meter/config"
	"gitlab.com/tinyland/lab/net-meter/display/banner"
	"gitlab.com/tinyland/lab/net-meter/display/chart"
	"gitlab.com/tinyland/lab/net-meter/display/color"
	"gitlab.com/tinyland/lab/net-meter/display/tui"
	"gitlab.com/tinyland/lab/net-meter/docs/manpage"
	"gitlab.com/tinyland/lab/net-meter/meter"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run parses args, dispatches to one mode and returns the exit code.
func run(args []string, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("net-meter", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath  = fs.String("config", "", "Path to configuration file (default: ~/.config/net-meter/config.yaml)")
		runDaemon   = fs.Bool("daemon", false, "Run background daemon")
		runTUIFlag  = fs.Bool("tui", false, "Launch interactive graph")
		runBanner   = fs.Bool("banner", false, "Print a summary banner from the cached frame")
		runChart    = fs.Bool("chart", false, "Print the cached frame as a terminal chart")
		pngPath     = fs.String("png", "", "Render the cached frame to a PNG file")
		runHealth   = fs.Bool("health", false, "Check daemon health status")
		runTopFlag  = fs.Bool("top", false, "List the processes using the most CPU")
		jsonOutput  = fs.Bool("json", false, "Output as JSON (with -health or -top)")
		showKeys    = fs.Bool("keys", false, "Print TUI keybindings")
		keysFormat  = fs.String("keys-format", "table", "Keybinding output format (table|json)")
		keysCat     = fs.String("keys-category", "", "Only print keybindings of one category (view|data|system)")
		runDiagnose = fs.Bool("diagnose", false, "Check config, data sources, cache and daemon")
		themeFlag   = fs.String("theme", "", "Theme override (default|mono)")
		termWidth   = fs.Int("term-width", 0, "Terminal width override (0 = auto-detect)")
		verbose     = fs.Bool("verbose", false, "Enable debug logging")
		showVersion = fs.Bool("version", false, "Print version and exit")
		showMan     = fs.Bool("man", false, "Print the man page in roff format")
	)
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	// ---------------------------------------------------------------
	// Commands that don't require config
	// ---------------------------------------------------------------

	if *showVersion {
		fmt.Fprintf(stdout, "net-meter %s (%s) built %s\n", version, commit, date)
		return 0
	}

	if *showMan {
		fmt.Fprint(stdout, manpage.Generate(version, commit, date))
		return 0
	}

	if *showKeys {
		if err := runKeysCommand(stdout, *keysCat, *keysFormat); err != nil {
			fmt.Fprintf(stderr, "keys: %v\n", err)
			return 1
		}
		return 0
	}

	// ---------------------------------------------------------------
	// Load configuration (required for remaining modes)
	// ---------------------------------------------------------------

	if *configPath == "" {
		*configPath = defaultConfigPath()
	}
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "failed to load config: %v\n", err)
		return 1
	}
	if *themeFlag != "" {
		cfg.Display.Theme = *themeFlag
	}

	logger := newLogger(stderr, *verbose)

	if *runDiagnose {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if runDiagnostics(ctx, stdout, cfg, *configPath, diagnosticSamplers(cfg, logger), logger) > 0 {
			return 1
		}
		return 0
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(stderr, "invalid config: %v\n", err)
		return 1
	}

	// ---------------------------------------------------------------
	// Cache readers
	// ---------------------------------------------------------------

	if *runHealth {
		store, err := cache.NewStore(cfg.Daemon.CacheDir, logger)
		if err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return 1
		}
		return checkHealth(store, cfg.SamplingInterval(), *jsonOutput, stdout, stderr)
	}

	if *runBanner || *runChart || *pngPath != "" {
		color.Apply()
	}

	if *runBanner {
		b := banner.New(banner.Config{
			CacheDir:  cfg.Daemon.CacheDir,
			MaxAge:    2 * cfg.SamplingInterval(),
			Interval:  cfg.SamplingInterval(),
			Palette:   tui.GetThemePreset(cfg.Display.Theme).PaletteFor(),
			TermWidth: *termWidth,
			Logger:    logger,
		})
		out, err := b.Generate(context.Background())
		if err != nil {
			fmt.Fprintf(stderr, "banner render failed: %v\n", err)
			return 1
		}
		fmt.Fprintln(stdout, out)
		return 0
	}

	if *runChart || *pngPath != "" {
		frame, err := loadFrame(cfg, logger)
		if err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return 1
		}
		opts := chart.Options{
			Width:   cfg.Display.ChartWidth,
			Height:  cfg.Display.ChartHeight,
			Palette: tui.GetThemePreset(cfg.Display.Theme).PaletteFor(),
		}
		if *pngPath != "" {
			if err := chart.Save(*frame, opts, *pngPath); err != nil {
				fmt.Fprintf(stderr, "%v\n", err)
				return 1
			}
			logger.Info("chart written", "path", *pngPath, "banner", frame.Banner)
			return 0
		}
		img, err := chart.Render(*frame, opts)
		if err != nil {
			fmt.Fprintf(stderr, "%v\n", err)
			return 1
		}
		cols, rows := banner.DetectTerminalSize()
		if *termWidth > 0 {
			cols = *termWidth
		}
		fmt.Fprintln(stdout, chart.HalfBlocks(img, cols, max(rows-2, 4)))
		fmt.Fprintln(stdout, frame.Banner)
		return 0
	}

	// ---------------------------------------------------------------
	// Long-running modes
	// ---------------------------------------------------------------

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *runTopFlag {
		if err := runTop(ctx, stdout, newTop(cfg, logger), cfg.TopWindow(), *jsonOutput, *termWidth); err != nil {
			if errors.Is(err, context.Canceled) {
				return 0
			}
			fmt.Fprintf(stderr, "top: %v\n", err)
			return 1
		}
		return 0
	}

	if *runTUIFlag {
		defer func() {
			if r := recover(); r != nil {
				// Attempt to restore terminal from alt-screen before printing error.
				fmt.Fprint(stdout, "\x1b[?1049l\x1b[?25h")
				fmt.Fprintf(stderr, "net-meter: TUI panic: %v\n", r)
				os.Exit(1)
			}
		}()
		// The alt screen owns the terminal; keep logs out of it.
		tuiLogger := logger
		if !*verbose {
			tuiLogger = newLogger(io.Discard, false)
		}
		if err := runTUI(ctx, cfg, *themeFlag, tuiLogger); err != nil {
			fmt.Fprintf(stderr, "TUI error: %v\n", err)
			return 1
		}
		return 0
	}

	if *runDaemon {
		logOut, closeLog, err := openLogFile(cfg.Daemon.LogFile)
		if err != nil {
			fmt.Fprintf(stderr, "%v, logging to stderr\n", err)
			logOut, closeLog = stderr, func() {}
		}
		defer closeLog()
		dlogger := newLogger(logOut, *verbose)

		d, err := newDaemon(cfg, dlogger)
		if err != nil {
			fmt.Fprintf(stderr, "daemon init failed: %v\n", err)
			return 1
		}
		fmt.Fprintf(stderr, "starting net-meter daemon %s\n", version)
		if err := d.run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			fmt.Fprintf(stderr, "daemon error: %v\n", err)
			return 1
		}
		return 0
	}

	// ---------------------------------------------------------------
	// Default: print usage
	// ---------------------------------------------------------------

	fmt.Fprintf(stdout, "net-meter %s (%s) built %s\n\n", version, commit, date)
	fmt.Fprintln(stdout, "Usage: net-meter [flags]")
	fmt.Fprintln(stdout)
	fs.SetOutput(stdout)
	fs.PrintDefaults()
	return 0
}

func defaultConfigPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "net-meter", "config.yaml")
}

// newLogger returns a text logger at Info, or Debug when verbose.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// openLogFile opens path for appending, creating its directory.
func openLogFile(path string) (io.Writer, func(), error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// loadFrame reads the frame the daemon last published. A stale frame is
// returned with a warning.
func loadFrame(cfg *config.Config, logger *slog.Logger) (*meter.Frame, error) {
	store, err := cache.NewStore(cfg.Daemon.CacheDir, logger)
	if err != nil {
		return nil, err
	}
	frame, fresh, err := cache.GetTyped[meter.Frame](store, cache.KeyFrame, 2*cfg.SamplingInterval())
	if err != nil {
		return nil, err
	}
	if frame == nil {
		return nil, fmt.Errorf("no cached frame in %s, start the daemon with -daemon", cfg.Daemon.CacheDir)
	}
	if !fresh {
		logger.Warn("cached frame is stale", "age", store.Age(cache.KeyFrame).Round(time.Second).String())
	}
	return frame, nil
}
