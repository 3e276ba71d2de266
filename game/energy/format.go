package energy

import (
	"fmt"
	"strconv"
	"time"
)

func itoa(v int) string { return strconv.Itoa(v) }

// Countdown is the time left until the next unit regenerates at now.
// It is zero for a full pool.
func Countdown(p Pool, now time.Time) time.Duration {
	at := NextUnitAt(p)
	if at.IsZero() || !at.After(now) {
		return 0
	}
	return at.Sub(now)
}

// FormatCountdown renders d as m:ss, or h:mm:ss from one hour up.
// Partial seconds round up so a pending unit never shows 0:00.
func FormatCountdown(d time.Duration) string {
	if d <= 0 {
		return "0:00"
	}
	secs := int64((d + time.Second - 1) / time.Second)
	h, m, s := secs/3600, secs/60%60, secs%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%d:%02d", m, s)
}
