// Package timeres resolves loosely-specified time strings into
// offset-qualified ISO-8601 datetimes. Every function is pure and total:
// unparseable input yields a zero result, never a panic or error escape.
package timeres

import (
	"fmt"
	"regexp"
	"time"
)

// DefaultReminderTime is the local time assigned when a reminder resolves to
// a date with no time of day.
const DefaultReminderTime = "09:00:00"

var offsetPattern = regexp.MustCompile(`^[+-]\d{2}:\d{2}$`)

// Layouts accepted for input, split by whether they carry an explicit offset.
var (
	layoutsWithOffset = []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04Z07:00",
		"2006-01-02 15:04:05Z07:00",
		"2006-01-02 15:04:05.999999999Z07:00",
	}
	layoutsNoOffset = []string{
		"2006-01-02T15:04:05.999999999",
		"2006-01-02T15:04:05",
		"2006-01-02T15:04",
		"2006-01-02 15:04:05",
		"2006-01-02 15:04",
		"2006-01-02",
	}
)

// parseISO parses an ISO-8601 date or datetime. hasOffset reports whether the
// input carried its own offset (a trailing "Z" counts as +00:00).
func parseISO(value string) (t time.Time, hasOffset bool, ok bool) {
	for _, layout := range layoutsWithOffset {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true, true
		}
	}
	for _, layout := range layoutsNoOffset {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, false, true
		}
	}
	return time.Time{}, false, false
}

// parseOffset turns "+HH:MM"/"-HH:MM" into a fixed-zone location.
func parseOffset(offset string) (*time.Location, bool) {
	if !offsetPattern.MatchString(offset) {
		return nil, false
	}
	var hours, minutes int
	if _, err := fmt.Sscanf(offset[1:], "%02d:%02d", &hours, &minutes); err != nil {
		return nil, false
	}
	seconds := hours*3600 + minutes*60
	if offset[0] == '-' {
		seconds = -seconds
	}
	return time.FixedZone("", seconds), true
}

// formatISO renders t with an explicit numeric offset ("+00:00", never "Z").
func formatISO(t time.Time) string {
	if t.Nanosecond() != 0 {
		return t.Format("2006-01-02T15:04:05.999999-07:00")
	}
	return t.Format("2006-01-02T15:04:05-07:00")
}

// OffsetFromUserTime extracts the "+HH:MM" offset from the caller-supplied
// user time. Falls back to "+00:00" when absent or unparseable.
func OffsetFromUserTime(userTimeISO string) string {
	t, hasOffset, ok := parseISO(userTimeISO)
	if !ok || !hasOffset {
		return "+00:00"
	}
	_, seconds := t.Zone()
	sign := "+"
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	return fmt.Sprintf("%s%02d:%02d", sign, seconds/3600, (seconds%3600)/60)
}

// EnsureISODatetime normalizes value into an offset-qualified ISO datetime.
// A value with no offset is assigned defaultOffset; a date-only value becomes
// midnight in that offset. Idempotent: normalizing an already-normalized
// string returns it unchanged. ok is false for empty or unparseable input.
func EnsureISODatetime(value, defaultOffset string) (string, bool) {
	if value == "" {
		return "", false
	}
	t, hasOffset, ok := parseISO(value)
	if !ok {
		return "", false
	}
	if !hasOffset {
		loc, locOK := parseOffset(defaultOffset)
		if !locOK {
			loc = time.UTC
		}
		t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), loc)
	}
	return formatISO(t), true
}

// EnsureISODate normalizes value to "YYYY-MM-DD". ok is false for empty or
// unparseable input.
func EnsureISODate(value string) (string, bool) {
	if value == "" {
		return "", false
	}
	t, _, ok := parseISO(value)
	if !ok {
		return "", false
	}
	return t.Format("2006-01-02"), true
}

// DateToDatetimeISO combines a "YYYY-MM-DD" date, an optional "HH:MM[:SS]"
// time (default 09:00:00), and an offset into an ISO datetime.
func DateToDatetimeISO(dateStr, timeStr, offset string) (string, bool) {
	if dateStr == "" {
		return "", false
	}
	if timeStr == "" {
		timeStr = DefaultReminderTime
	}
	if len(timeStr) == 5 {
		timeStr += ":00"
	}
	combined := dateStr + "T" + timeStr + offset
	if _, _, ok := parseISO(combined); !ok {
		return "", false
	}
	return combined, true
}

// AddMinutes shifts an ISO datetime forward by the given minutes, preserving
// its offset.
func AddMinutes(value string, minutes int) (string, bool) {
	t, _, ok := parseISO(value)
	if !ok {
		return "", false
	}
	return formatISO(t.Add(time.Duration(minutes) * time.Minute)), true
}

// ComputeLocalDay returns the calendar date of userTimeISO in its own offset.
// On parse failure it falls back to the current UTC date.
func ComputeLocalDay(userTimeISO string) string {
	if t, _, ok := parseISO(userTimeISO); ok {
		return t.Format("2006-01-02")
	}
	return time.Now().UTC().Format("2006-01-02")
}

// IsDateOnly reports whether value has no time-of-day component.
func IsDateOnly(value string) bool {
	for _, c := range value {
		if c == 'T' || c == ' ' {
			return false
		}
	}
	return true
}

// UTCNowISO returns the current UTC time with an explicit "+00:00" offset.
func UTCNowISO() string {
	return formatISO(time.Now().UTC())
}
