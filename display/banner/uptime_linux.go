//go:build linux

package banner

import (
	"os"
	"time"
)

func systemUptime() time.Duration {
	data, err := os.ReadFile("/proc/uptime")
	if err != nil {
		return 0
	}
	secs, err := parseUptimeSeconds(data)
	if err != nil {
		return 0
	}
	return time.Duration(secs * float64(time.Second)).Truncate(time.Second)
}
