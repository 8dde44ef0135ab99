// Package chart draws a meter.Frame as a raster image: byte counters share
// the left y axis, the percentage counter uses a 0-100 axis on the right, and
// the newest point sits at the right edge.
package chart

import (
	"fmt"
	"image"
	stdcolor "image/color"
	"io"

	"github.com/disintegration/imaging"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"gitlab.com/tinyland/lab/net-meter/display/color"
	"gitlab.com/tinyland/lab/net-meter/internal/format"
	"gitlab.com/tinyland/lab/net-meter/meter"
)

// axisTicks is the number of tick marks per axis.
const axisTicks = 3

// footer is the strip below the plot reserved for the timescale banner.
const footer = 14

// Options sizes and colors a chart.
type Options struct {
	Width   int
	Height  int
	Palette color.Palette
	// RateUnit labels the y axis; empty means "bytes/tick".
	RateUnit string
}

// DefaultOptions returns an 800x400 chart in the default palette.
func DefaultOptions() Options {
	return Options{Width: 800, Height: 400, Palette: color.PaletteFor("default")}
}

// Render draws f into a new image.
func Render(f meter.Frame, opts Options) (*image.NRGBA, error) {
	if opts.Width <= 2*footer || opts.Height <= 2*footer {
		return nil, fmt.Errorf("chart: size %dx%d too small", opts.Width, opts.Height)
	}
	pal := opts.Palette
	if pal.Name == "" {
		pal = color.PaletteFor("default")
	}

	img := imaging.New(opts.Width, opts.Height, color.MustParseHex(pal.Background))
	plotH := opts.Height - footer
	proj := meter.NewProjection(opts.Width, plotH, f.XRange, f.YRange)
	pct := meter.NewProjection(opts.Width, plotH, f.XRange, meter.PercentRange)

	for _, s := range f.Counters {
		drawSeries(img, proj, f.Visible(s), pal.RGBA(s.Label))
	}
	if f.Percent != nil {
		drawSeries(img, pct, f.Visible(*f.Percent), pal.RGBA(f.Percent.Label))
	}

	axis := color.MustParseHex(pal.Grid)
	drawAxes(img, proj, pct, axis)

	text := color.MustParseHex(pal.Text)
	unit := opts.RateUnit
	if unit == "" {
		unit = "bytes/tick"
	}
	drawText(img, int(proj.X(0))+10, int(proj.Y(f.YRange))+12, fmt.Sprintf("%s %s", format.FormatBytes(f.YRange), unit), text)
	drawText(img, int(pct.X(f.XRange))-30, int(pct.Y(meter.PercentRange))+12, "100%", text)
	drawText(img, int(proj.X(f.XRange/2)), opts.Height-3, f.Banner, text)

	// Legend, two per row like the axis labels above it.
	for i, s := range f.Counters {
		x := int(proj.X(f.XRange/2)) - 60 + (i%2)*80
		y := int(proj.Y(f.YRange)) + 12 + (i/2)*14
		drawText(img, x, y, s.Label, pal.RGBA(s.Label))
	}
	if f.Percent != nil {
		y := int(proj.Y(f.YRange)) + 12 + ((len(f.Counters)+1)/2)*14
		drawText(img, int(proj.X(f.XRange/2))-60, y, f.Percent.Label, pal.RGBA(f.Percent.Label))
	}

	return img, nil
}

// Save renders f and writes it to path; the format follows the extension.
func Save(f meter.Frame, opts Options, path string) error {
	img, err := Render(f, opts)
	if err != nil {
		return err
	}
	if err := imaging.Save(img, path); err != nil {
		return fmt.Errorf("chart: save %s: %w", path, err)
	}
	return nil
}

// Encode renders f as PNG into w.
func Encode(w io.Writer, f meter.Frame, opts Options) error {
	img, err := Render(f, opts)
	if err != nil {
		return err
	}
	if err := imaging.Encode(w, img, imaging.PNG); err != nil {
		return fmt.Errorf("chart: encode: %w", err)
	}
	return nil
}

// drawSeries connects consecutive points, values newest first. The point
// steps back from the newest sits at x = XRange - steps.
func drawSeries(img *image.NRGBA, p meter.Projection, values []int64, c stdcolor.NRGBA) {
	for i := 1; i < len(values); i++ {
		x0, y0 := p.X(p.XRange-i+1), p.Y(values[i-1])
		x1, y1 := p.X(p.XRange-i), p.Y(values[i])
		drawLine(img, int(x0), int(y0), int(x1), int(y1), c)
	}
	if len(values) == 1 {
		img.SetNRGBA(int(p.X(p.XRange)), int(p.Y(values[0])), c)
	}
}

func drawAxes(img *image.NRGBA, p, pct meter.Projection, c stdcolor.NRGBA) {
	x0, y0 := int(p.X(0)), int(p.Y(0))
	drawLine(img, x0, y0, int(p.X(p.XRange)), y0, c)
	drawLine(img, x0, y0, x0, int(p.Y(p.YRange)), c)
	xr := int(pct.X(pct.XRange))
	drawLine(img, xr, int(pct.Y(0)), xr, int(pct.Y(meter.PercentRange)), c)

	xStep := p.XRange / axisTicks
	yStep := p.YRange / axisTicks
	for i := 1; i <= axisTicks; i++ {
		tx := int(p.X(xStep * i))
		drawLine(img, tx, y0, tx, y0-10, c)
		ty := int(p.Y(yStep * int64(i)))
		drawLine(img, x0, ty, x0+10, ty, c)
	}
}

// drawLine rasterizes a segment with Bresenham's algorithm, clipped to the
// image bounds.
func drawLine(img *image.NRGBA, x0, y0, x1, y1 int, c stdcolor.NRGBA) {
	dx := abs(x1 - x0)
	dy := -abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	b := img.Bounds()
	err := dx + dy
	for {
		if image.Pt(x0, y0).In(b) {
			img.SetNRGBA(x0, y0, c)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func drawText(img *image.NRGBA, x, y int, s string, c stdcolor.NRGBA) {
	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(c),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(x, y),
	}
	d.DrawString(s)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
