package engine

import (
	"fmt"
	"time"
)

// FormatDuration renders d as MM:SS, rounding partial seconds up so a
// running timer shows 25:00 until a full second has passed.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64((d + time.Second - 1) / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
