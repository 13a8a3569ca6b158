package util

import (
	"fmt"
	"time"
)

// DateLayout is the ISO calendar date format used on the wire and in exports.
const DateLayout = "2006-01-02"

// ParseDate parses an ISO calendar date (YYYY-MM-DD) as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// TruncateDay drops the time component, keeping the calendar date of t in UTC.
func TruncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// AddDays shifts a calendar date by n days.
func AddDays(t time.Time, n int) time.Time {
	return TruncateDay(t).AddDate(0, 0, n)
}

// DaysBetween returns the number of whole calendar days from `from` to `to`.
// Negative when to precedes from.
func DaysBetween(from, to time.Time) int {
	return int(TruncateDay(to).Sub(TruncateDay(from)).Hours() / 24)
}

// DateRange returns every calendar date in [from, to] inclusive.
func DateRange(from, to time.Time) []time.Time {
	n := DaysBetween(from, to)
	if n < 0 {
		return nil
	}
	out := make([]time.Time, 0, n+1)
	for i := 0; i <= n; i++ {
		out = append(out, AddDays(from, i))
	}
	return out
}
