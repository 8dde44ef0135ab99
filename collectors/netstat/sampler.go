// Package netstat samples per-tick network byte counts from /proc/net/dev,
// split into cellular and wifi traffic by interface name.
package netstat

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/prometheus/procfs"

	"gitlab.com/tinyland/lab/net-meter/collectors"
	"gitlab.com/tinyland/lab/net-meter/meter"
)

const samplerName = "netstat"

// Counter labels produced by the sampler. They name meter counters, so a
// reading always finds its counter.
const (
	LabelCellIn  = meter.LabelCellIn
	LabelCellOut = meter.LabelCellOut
	LabelWifiIn  = meter.LabelWifiIn
	LabelWifiOut = meter.LabelWifiOut
)

// Config selects which interfaces count as cellular or wifi.
type Config struct {
	// CellPrefixes match cellular interface names (e.g. "rmnet", "wwan").
	CellPrefixes []string
	// WifiPrefixes match wifi interface names (e.g. "wlan", "wlp").
	WifiPrefixes []string
	// ProcPath is the procfs mount point.
	ProcPath string
}

// DefaultConfig returns prefixes for common Linux and Android interface names.
func DefaultConfig() Config {
	return Config{
		CellPrefixes: []string{"rmnet", "wwan", "ppp", "ccmni"},
		WifiPrefixes: []string{"wlan", "wlp", "wlx"},
		ProcPath:     procfs.DefaultMountPoint,
	}
}

// ifaceCounters holds the cumulative byte counters of one interface.
type ifaceCounters struct {
	rx uint64
	tx uint64
}

// Sampler implements collectors.Sampler for network traffic. Each reading is
// the number of bytes moved since the previous Sample call.
type Sampler struct {
	cfg    Config
	logger *slog.Logger

	prev map[string]ifaceCounters
}

// New creates a Sampler. If logger is nil, a no-op logger is used.
func New(cfg Config, logger *slog.Logger) *Sampler {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if cfg.ProcPath == "" {
		cfg.ProcPath = procfs.DefaultMountPoint
	}
	return &Sampler{cfg: cfg, logger: logger}
}

// Name returns the sampler's unique identifier.
func (s *Sampler) Name() string {
	return samplerName
}

// Labels returns the four traffic labels in display order.
func (s *Sampler) Labels() []string {
	return []string{LabelCellIn, LabelCellOut, LabelWifiIn, LabelWifiOut}
}

// Sample reads /proc/net/dev and returns per-class byte deltas. Interfaces
// seen for the first time, and interfaces whose counters went backwards,
// contribute 0 for this tick.
func (s *Sampler) Sample(ctx context.Context) ([]collectors.Reading, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	current, err := s.readNetDev()
	if err != nil {
		return nil, err
	}

	var cellIn, cellOut, wifiIn, wifiOut int64
	for name, cur := range current {
		prev, seen := s.prev[name]
		if !seen {
			continue
		}
		rx := delta(prev.rx, cur.rx)
		tx := delta(prev.tx, cur.tx)

		switch s.classify(name) {
		case classCell:
			cellIn += rx
			cellOut += tx
		case classWifi:
			wifiIn += rx
			wifiOut += tx
		}
	}
	s.prev = current

	s.logger.Debug("netstat sampled",
		"cell_in", cellIn, "cell_out", cellOut,
		"wifi_in", wifiIn, "wifi_out", wifiOut,
		"interfaces", len(current),
	)

	return []collectors.Reading{
		{Label: LabelCellIn, Value: cellIn},
		{Label: LabelCellOut, Value: cellOut},
		{Label: LabelWifiIn, Value: wifiIn},
		{Label: LabelWifiOut, Value: wifiOut},
	}, nil
}

func delta(prev, cur uint64) int64 {
	if cur < prev {
		return 0
	}
	return int64(cur - prev)
}

type ifaceClass int

const (
	classOther ifaceClass = iota
	classCell
	classWifi
)

func (s *Sampler) classify(name string) ifaceClass {
	for _, p := range s.cfg.CellPrefixes {
		if strings.HasPrefix(name, p) {
			return classCell
		}
	}
	for _, p := range s.cfg.WifiPrefixes {
		if strings.HasPrefix(name, p) {
			return classWifi
		}
	}
	return classOther
}

// readNetDev returns the cumulative counters of every interface.
func (s *Sampler) readNetDev() (map[string]ifaceCounters, error) {
	fs, err := procfs.NewFS(s.cfg.ProcPath)
	if err != nil {
		return nil, fmt.Errorf("netstat: open procfs %s: %w", s.cfg.ProcPath, err)
	}
	dev, err := fs.NetDev()
	if err != nil {
		return nil, fmt.Errorf("netstat: read net/dev: %w", err)
	}

	result := make(map[string]ifaceCounters, len(dev))
	for name, line := range dev {
		result[name] = ifaceCounters{rx: line.RxBytes, tx: line.TxBytes}
	}
	return result, nil
}

// Compile-time interface compliance check.
var _ collectors.Sampler = (*Sampler)(nil)
