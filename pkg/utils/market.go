package utils

import (
	"fmt"
	"time"
)

// ParseEndDate parses the end date formats the gamma API emits.
func ParseEndDate(s string) (time.Time, error) {
	layouts := []string{
		time.RFC3339,
		"2006-01-02T15:04:05Z",
		"2006-01-02",
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized end date: %q", s)
}

// TimeUntilEnd returns the duration until a market's end date. Negative
// when the market has already ended, zero when the date is unparseable.
func TimeUntilEnd(endDate string) time.Duration {
	t, err := ParseEndDate(endDate)
	if err != nil {
		return 0
	}
	return time.Until(t)
}

// IsEndingSoon reports whether the market ends within the threshold.
func IsEndingSoon(endDate string, threshold time.Duration) bool {
	t, err := ParseEndDate(endDate)
	if err != nil {
		return false
	}
	remaining := time.Until(t)
	return remaining > 0 && remaining <= threshold
}

// FormatDuration renders a duration in compact d/h/m form.
func FormatDuration(d time.Duration) string {
	if d < 0 {
		d = -d
	}
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60

	switch {
	case days > 0:
		return fmt.Sprintf("%dd %dh", days, hours)
	case hours > 0:
		return fmt.Sprintf("%dh %dm", hours, minutes)
	default:
		return fmt.Sprintf("%dm", minutes)
	}
}
