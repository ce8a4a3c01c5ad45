package feed

import (
	"fmt"
	"time"
)

// FormatTimeAgo renders a creation timestamp relative to now:
// "Just now" under a minute, then minutes, hours, days. Floor division
// at every boundary.
func FormatTimeAgo(timestamp, now time.Time) string {
	minutes := int(now.Sub(timestamp) / time.Minute)

	if minutes < 1 {
		return "Just now"
	}
	if minutes < 60 {
		return fmt.Sprintf("%dm ago", minutes)
	}

	hours := minutes / 60
	if hours < 24 {
		return fmt.Sprintf("%dh ago", hours)
	}

	days := hours / 24
	return fmt.Sprintf("%dd ago", days)
}
