package utils

import "time"

// DaysBetween counts calendar days from start to end, ignoring the time of
// day. It is negative when end is before start.
func DaysBetween(start, end time.Time) int {
	return int(DateOnly(end).Sub(DateOnly(start)).Hours() / 24)
}

// FirstOfMonth returns midnight on the first day of t's month.
func FirstOfMonth(t time.Time) time.Time {
	year, month, _ := t.Date()
	return time.Date(year, month, 1, 0, 0, 0, 0, t.Location())
}

// DayInMonth returns the given day of month's month, clamped to the month's last day.
func DayInMonth(month time.Time, day int) time.Time {
	first := FirstOfMonth(month)
	last := first.AddDate(0, 1, -1).Day()
	if day < 1 {
		day = 1
	}
	if day > last {
		day = last
	}
	return first.AddDate(0, 0, day-1)
}

// MonthLabel formats a month as "January 2025".
func MonthLabel(t time.Time) string {
	return t.Format("January 2006")
}

// DateOnly keeps t's calendar date at midnight UTC. Stored dates are always
// normalized this way so equality and range queries compare cleanly.
func DateOnly(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
