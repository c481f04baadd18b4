package util

import (
	"strings"
	"time"
)

// DateLayout is the calendar-date format used across data files and prompts.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD date, or the date part of an RFC3339 / "YYYY-MM-DD HH:MM:SS" timestamp.
// Returns (t, true) at UTC midnight if any worked.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return Day(t), true
	}
	if len(s) >= len(DateLayout) {
		if t, err := time.Parse(DateLayout, s[:len(DateLayout)]); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ParseDateDefault parses a date or returns def if empty/invalid.
func ParseDateDefault(s string, def time.Time) time.Time {
	if t, ok := ParseDate(s); ok {
		return t
	}
	return def
}

// FormatDate renders t as YYYY-MM-DD.
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// Day truncates t to UTC midnight of its calendar date.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// NextBusinessDay advances one weekday. No holiday calendar.
func NextBusinessDay(t time.Time) time.Time {
	switch t.Weekday() {
	case time.Friday:
		return t.AddDate(0, 0, 3)
	case time.Saturday:
		return t.AddDate(0, 0, 2)
	default:
		return t.AddDate(0, 0, 1)
	}
}

// InRange reports whether start <= t <= end, comparing calendar dates.
func InRange(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
