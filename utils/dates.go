package utils

import (
	"fmt"
	"time"
)

// DateLayout is the wire/storage format for calendar dates.
const DateLayout = "2006-01-02"

// ParseDate parses a "2006-01-02" string into a UTC midnight time.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders a time as its "2006-01-02" calendar date.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Midnight truncates a time to UTC midnight of the same calendar date.
func Midnight(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MinutesToClock renders minutes-from-midnight as "HH:MM" for user-facing
// error messages.
func MinutesToClock(m int) string {
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}
