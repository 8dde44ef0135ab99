package format

import (
	"fmt"
	"time"
)

var byteUnits = []string{"B", "KB", "MB", "GB", "TB", "PB"}

// FormatBytes renders a byte count with binary (1024) prefixes: "512 B",
// "1.5 KB", "23.0 MB". Negative counts are rendered as 0.
func FormatBytes(n int64) string {
	if n <= 0 {
		return "0 B"
	}
	if n < 1024 {
		return fmt.Sprintf("%d B", n)
	}

	v := float64(n)
	unit := 0
	for v >= 1024 && unit < len(byteUnits)-1 {
		v /= 1024
		unit++
	}
	return fmt.Sprintf("%.1f %s", v, byteUnits[unit])
}

// FormatRate renders bytes moved during one interval as a per-second rate,
// e.g. "1.5 KB/s".
func FormatRate(bytes int64, interval time.Duration) string {
	if interval <= 0 {
		return FormatBytes(bytes) + "/tick"
	}
	perSec := int64(float64(bytes) / interval.Seconds())
	return FormatBytes(perSec) + "/s"
}
