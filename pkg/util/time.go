package util

import (
	"strings"
	"time"
)

// DayStart returns 00:00:00 of t's calendar day in t's location.
func DayStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DayEnd returns 23:59:59 of t's calendar day in t's location. Second
// granularity matches the archive's epoch-second timestamps, so the bound
// is inclusive.
func DayEnd(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 0, t.Location())
}

// TimeRangeOf parses a time range expression into an inclusive [start, end]
// pair in the local timezone. Accepted forms:
//
//	2024            whole year
//	2024-05         whole month
//	2024-05-20      whole day
//	A~B             start of A's range to end of B's range (mixed granularity ok)
//
// A reversed A~B is swapped rather than rejected. ok is false for anything
// unparseable, including the empty string.
func TimeRangeOf(s string) (start time.Time, end time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, time.Time{}, false
	}

	if i := strings.Index(s, "~"); i >= 0 {
		from, _, okFrom := parsePoint(strings.TrimSpace(s[:i]))
		_, to, okTo := parsePoint(strings.TrimSpace(s[i+1:]))
		if !okFrom || !okTo {
			return time.Time{}, time.Time{}, false
		}
		if to.Before(from) {
			from, to = DayStart(to), DayEnd(from)
		}
		return from, to, true
	}

	return parsePoint(s)
}

// parsePoint expands a single date expression to the range it covers.
func parsePoint(s string) (time.Time, time.Time, bool) {
	if t, err := time.ParseInLocation("2006-01-02", s, time.Local); err == nil {
		return DayStart(t), DayEnd(t), true
	}
	if t, err := time.ParseInLocation("2006-01", s, time.Local); err == nil {
		return DayStart(t), DayEnd(t.AddDate(0, 1, -1)), true
	}
	if t, err := time.ParseInLocation("2006", s, time.Local); err == nil {
		return DayStart(t), DayEnd(t.AddDate(1, 0, -1)), true
	}
	return time.Time{}, time.Time{}, false
}
