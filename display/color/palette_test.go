package color

import (
	stdcolor "image/color"
	"testing"

	"gitlab.com/tinyland/lab/net-meter/meter"
)

func TestParseHex(t *testing.T) {
	tests := []struct {
		in      string
		want    stdcolor.NRGBA
		wantErr bool
	}{
		{"#D65B06", stdcolor.NRGBA{R: 0xD6, G: 0x5B, B: 0x06, A: 0xff}, false},
		{"#000000", stdcolor.NRGBA{A: 0xff}, false},
		{"#ffffff", stdcolor.NRGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}, false},
		{"D65B06", stdcolor.NRGBA{}, true},
		{"#D65B0", stdcolor.NRGBA{}, true},
		{"#GGGGGG", stdcolor.NRGBA{}, true},
	}
	for _, tt := range tests {
		got, err := ParseHex(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseHex(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseHex(%q) = %+v, want %+v", tt.in, got, tt.want)
		}
	}
}

func TestPaletteFor(t *testing.T) {
	if p := PaletteFor("mono"); p.Name != "mono" {
		t.Errorf("PaletteFor(mono) = %s", p.Name)
	}
	if p := PaletteFor("neon"); p.Name != "default" {
		t.Errorf("unknown palette should fall back to default, got %s", p.Name)
	}
}

func TestPaletteColors(t *testing.T) {
	p := PaletteFor("default")
	labels := []string{meter.LabelCellIn, meter.LabelCellOut, meter.LabelWifiIn, meter.LabelWifiOut, meter.LabelCPU}
	seen := make(map[string]bool)
	for _, l := range labels {
		h := p.Hex(l)
		if seen[h] {
			t.Errorf("duplicate color %s for %s", h, l)
		}
		seen[h] = true
		if _, err := ParseHex(h); err != nil {
			t.Errorf("palette color for %s does not parse: %v", l, err)
		}
	}

	if got := p.RGBA(meter.LabelWifiIn); got != (stdcolor.NRGBA{R: 0xD6, G: 0x5B, B: 0x06, A: 0xff}) {
		t.Errorf("wifi-in RGBA = %+v", got)
	}
	if got := p.Hex("mic"); got != fallbackSeries {
		t.Errorf("unknown label color = %s, want fallback", got)
	}
	if got := string(p.Lipgloss(meter.LabelCellIn)); got != "#FF0000" {
		t.Errorf("cell-in lipgloss color = %s", got)
	}
}

func TestMustParseHexPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic for invalid hex")
		}
	}()
	MustParseHex("nope")
}
