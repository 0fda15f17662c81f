package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the wire format for calendar dates.
const DateLayout = "2006-01-02"

// Weekdays lists weekday names in calendar order starting Monday.
var Weekdays = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday", "Sunday"}

// ParseClock converts an HH:MM 24-hour string into minutes after midnight.
func ParseClock(value string) (int, error) {
	parsed, err := time.Parse("15:04", strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: expected HH:MM", value)
	}
	return parsed.Hour()*60 + parsed.Minute(), nil
}

// FormatClock renders minutes after midnight as HH:MM.
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// ParseWindow parses a start/end pair and enforces start < end.
func ParseWindow(startValue, endValue string) (start, end int, err error) {
	if start, err = ParseClock(startValue); err != nil {
		return 0, 0, err
	}
	if end, err = ParseClock(endValue); err != nil {
		return 0, 0, err
	}
	if start >= end {
		return 0, 0, fmt.Errorf("start_time %s must be before end_time %s", startValue, endValue)
	}
	return start, end, nil
}

// ParseDate parses a YYYY-MM-DD date in UTC.
func ParseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(DateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", value)
	}
	return parsed, nil
}

// NormalizeWeekday returns the canonical weekday name, or "" when the value is not a weekday.
func NormalizeWeekday(value string) string {
	trimmed := strings.TrimSpace(value)
	for _, day := range Weekdays {
		if strings.EqualFold(day, trimmed) || strings.EqualFold(day[:3], trimmed) {
			return day
		}
	}
	return ""
}

// WeekdayIndex returns the Monday-based position of a weekday name, or -1.
func WeekdayIndex(value string) int {
	name := NormalizeWeekday(value)
	for i, day := range Weekdays {
		if day == name {
			return i
		}
	}
	return -1
}
