package history

import "fmt"

// Tier identifies one of the three rollup windows of a Series.
type Tier int

const (
	TierFine Tier = iota
	TierMedium
	TierCoarse
	tierCount
)

// String returns the tier name.
func (t Tier) String() string {
	switch t {
	case TierFine:
		return "fine"
	case TierMedium:
		return "medium"
	case TierCoarse:
		return "coarse"
	default:
		return fmt.Sprintf("tier(%d)", int(t))
	}
}

// NumResolutions is the number of valid resolution codes (0..5).
const NumResolutions = 6

// resolutionTiers maps a resolution code to the window answering it.
// The finer zoom levels share a buffer.
var resolutionTiers = [NumResolutions]Tier{
	TierFine, TierFine, TierFine,
	TierMedium, TierMedium,
	TierCoarse,
}

// TierFor returns the tier serving a resolution code.
func TierFor(code int) (Tier, error) {
	if code < 0 || code >= NumResolutions {
		return 0, fmt.Errorf("%w: resolution %d not in [0, %d)", ErrOutOfRange, code, NumResolutions)
	}
	return resolutionTiers[code], nil
}

// TierConfig sizes a single window.
type TierConfig struct {
	Capacity      int `yaml:"capacity" json:"capacity"`
	SubSampleRate int `yaml:"sub_sample_rate" json:"sub_sample_rate"`
}

// SeriesConfig sizes the three windows of a Series.
type SeriesConfig struct {
	Fine   TierConfig `yaml:"fine" json:"fine"`
	Medium TierConfig `yaml:"medium" json:"medium"`
	Coarse TierConfig `yaml:"coarse" json:"coarse"`
	Alpha  float64    `yaml:"alpha" json:"alpha"`
}

// DefaultSeriesConfig returns the stock sizing. At a 5 second tick the fine
// window spans one hour, the medium six hours and the coarse one day.
func DefaultSeriesConfig() SeriesConfig {
	return SeriesConfig{
		Fine:   TierConfig{Capacity: 720, SubSampleRate: 1},
		Medium: TierConfig{Capacity: 360, SubSampleRate: 12},
		Coarse: TierConfig{Capacity: 720, SubSampleRate: 24},
		Alpha:  DefaultAlpha,
	}
}

func (c SeriesConfig) tiers() [tierCount]TierConfig {
	return [tierCount]TierConfig{c.Fine, c.Medium, c.Coarse}
}

// Series is one signal's history at three resolutions sharing one ingestion
// point.
type Series struct {
	windows [tierCount]*Window
}

// NewSeries creates the three windows described by cfg.
func NewSeries(cfg SeriesConfig) (*Series, error) {
	s := &Series{}
	for i, tc := range cfg.tiers() {
		w, err := NewWindow(tc.Capacity, tc.SubSampleRate, cfg.Alpha)
		if err != nil {
			return nil, fmt.Errorf("%s window: %w", Tier(i), err)
		}
		s.windows[i] = w
	}
	return s, nil
}

// Ingest forwards one raw sample to the fine, medium and coarse windows, in
// that order.
func (s *Series) Ingest(raw int64) {
	for _, w := range s.windows {
		w.Ingest(raw)
	}
}

// Window returns the window for a tier.
func (s *Series) Window(t Tier) *Window {
	return s.windows[t]
}

// Resolve returns the window answering a resolution code.
func (s *Series) Resolve(code int) (*Window, error) {
	t, err := TierFor(code)
	if err != nil {
		return nil, err
	}
	return s.windows[t], nil
}

// Query returns the resolved window's history, newest first.
func (s *Series) Query(code int) ([]int64, error) {
	w, err := s.Resolve(code)
	if err != nil {
		return nil, err
	}
	return w.Values(), nil
}

// Current returns the newest committed value at a resolution.
func (s *Series) Current(code int) (int64, error) {
	w, err := s.Resolve(code)
	if err != nil {
		return 0, err
	}
	return w.Lookback(0)
}

// SeriesState is the serializable form of a Series.
type SeriesState struct {
	Fine   WindowState `json:"fine"`
	Medium WindowState `json:"medium"`
	Coarse WindowState `json:"coarse"`
}

// State captures all three windows.
func (s *Series) State() SeriesState {
	return SeriesState{
		Fine:   s.windows[TierFine].State(),
		Medium: s.windows[TierMedium].State(),
		Coarse: s.windows[TierCoarse].State(),
	}
}

// RestoreSeries rebuilds a series from a captured state.
func RestoreSeries(st SeriesState) (*Series, error) {
	s := &Series{}
	for i, ws := range [tierCount]WindowState{st.Fine, st.Medium, st.Coarse} {
		w, err := RestoreWindow(ws)
		if err != nil {
			return nil, fmt.Errorf("%s window: %w", Tier(i), err)
		}
		s.windows[i] = w
	}
	return s, nil
}

// Matches reports whether the state was produced with the given sizing, so a
// config change does not resurrect history of a different shape.
func (st SeriesState) Matches(cfg SeriesConfig) bool {
	states := [tierCount]WindowState{st.Fine, st.Medium, st.Coarse}
	for i, tc := range cfg.tiers() {
		ws := states[i]
		if ws.Capacity != tc.Capacity || ws.SubSampleRate != tc.SubSampleRate || ws.Alpha != cfg.Alpha {
			return false
		}
	}
	return true
}
