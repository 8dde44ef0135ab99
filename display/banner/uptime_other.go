//go:build !linux && !darwin

package banner

import "time"

func systemUptime() time.Duration { return 0 }
