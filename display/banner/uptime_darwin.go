//go:build darwin

package banner

import (
	"time"

	"golang.org/x/sys/unix"
)

// systemUptime derives uptime from kern.boottime.
func systemUptime() time.Duration {
	tv, err := unix.SysctlTimeval("kern.boottime")
	if err != nil {
		return 0
	}
	return time.Since(time.Unix(tv.Sec, int64(tv.Usec)*1000)).Truncate(time.Second)
}
