package util

import (
	"strconv"
	"time"
)

// DateLayout is the calendar-date form used in snapshots and file names.
const DateLayout = time.DateOnly

// ParseTime tries RFC3339, RFC3339Nano, a bare date and unix seconds.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0).UTC(), true
	}
	return time.Time{}, false
}

// DateKey formats t as YYYY-MM-DD in t's location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Yesterday returns the previous calendar day and today, as date keys.
func Yesterday(now time.Time) (from, to string) {
	today := StartOfDay(now)
	return DateKey(today.AddDate(0, 0, -1)), DateKey(today)
}

// Lookback returns the window [now-days, now] starting at midnight.
func Lookback(now time.Time, days int) (time.Time, time.Time) {
	if days < 1 {
		days = 1
	}
	return StartOfDay(now).AddDate(0, 0, -days), now
}

// IsWeekend reports whether t falls on Saturday or Sunday.
func IsWeekend(t time.Time) bool {
	wd := t.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}

