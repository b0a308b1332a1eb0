package catacombs

import (
	"fmt"
	"time"
)

// FormatDuration renders a run time the way the HUD shows it: "7s" under a
// minute, "03m 10s" under an hour and "01h 03m 10s" otherwise.
func FormatDuration(d time.Duration) string {
	secs := int(d / time.Second)
	if secs < 0 {
		secs = 0
	}
	h, m, s := secs/3600, secs/60%60, secs%60
	switch {
	case secs < 60:
		return fmt.Sprintf("%ds", s)
	case secs >= 3600:
		return fmt.Sprintf("%02dh %02dm %02ds", h, m, s)
	default:
		return fmt.Sprintf("%02dm %02ds", m, s)
	}
}
