package meter

import "gitlab.com/tinyland/lab/net-meter/history"

// coarsestCode is the resolution served by the coarse window.
const coarsestCode = history.NumResolutions - 1

// banners names the time span shown at each resolution.
var banners = [history.NumResolutions]string{
	"30min", "1hour", "3hours", "6hours", "12hours", "24hours",
}

// Banner returns the display label for a resolution code.
func Banner(code int) string {
	if code < 0 || code >= len(banners) {
		return "invalid"
	}
	return banners[code]
}

// InitialResolution picks the coarsest resolution with enough history to be
// worth drawing, judged by how full the reference counter's coarse window is.
func InitialResolution(ref *Counter) int {
	view := ref.Series()
	capacity, err := view.Capacity(coarsestCode)
	if err != nil {
		return 0
	}
	size, err := view.Size(coarsestCode)
	if err != nil {
		return 0
	}

	capacity -= capacity / 10
	switch {
	case size > capacity/2:
		return 5
	case size > capacity/4:
		return 4
	case size > capacity/8:
		return 3
	case size > capacity/24:
		return 2
	case size > capacity/48:
		return 1
	default:
		return 0
	}
}

// Toggle advances to the next resolution, wrapping to the finest one past the
// coarsest resolution the history can support.
func Toggle(current int, ref *Counter) int {
	next := (current + 1) % history.NumResolutions
	if next > InitialResolution(ref) {
		return 0
	}
	return next
}
