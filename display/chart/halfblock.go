package chart

import (
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
)

// HalfBlocks renders img as cols x rows terminal cells. Each cell shows two
// pixels stacked vertically: the upper half block takes the top pixel as
// foreground and the bottom pixel as background, in 24-bit ANSI color.
func HalfBlocks(img image.Image, cols, rows int) string {
	if cols <= 0 || rows <= 0 {
		return ""
	}
	resized := imaging.Resize(img, cols, rows*2, imaging.Lanczos)
	b := resized.Bounds()

	var sb strings.Builder
	for y := b.Min.Y; y < b.Max.Y; y += 2 {
		if y > b.Min.Y {
			sb.WriteByte('\n')
		}
		for x := b.Min.X; x < b.Max.X; x++ {
			top := resized.NRGBAAt(x, y)
			bot := top
			if y+1 < b.Max.Y {
				bot = resized.NRGBAAt(x, y+1)
			}
			fmt.Fprintf(&sb, "\033[38;2;%d;%d;%dm\033[48;2;%d;%d;%dm▀",
				top.R, top.G, top.B, bot.R, bot.G, bot.B)
		}
		sb.WriteString("\033[0m")
	}
	return sb.String()
}
