package core

import (
	"strings"
	"time"
)

const (
	DateLayout    = "2006-01-02"
	DisplayLayout = "02/01/2006"

	// InvalidDisplayDate is what an unparseable date renders as.
	InvalidDisplayDate = "NaN/NaN/NaN"
)

// ParseDateOnly interprets a YYYY-MM-DD string at midnight in loc, not at
// UTC midnight, so the calendar day never shifts across time zones. A nil
// loc means time.Local.
func ParseDateOnly(s string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseDisplayDate is the inverse of DisplayDate.
func ParseDisplayDate(s string, loc *time.Location) (time.Time, bool) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DisplayLayout, s, loc)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// DisplayDate formats t as DD/MM/YYYY.
func DisplayDate(t time.Time) string {
	if t.IsZero() {
		return InvalidDisplayDate
	}
	return t.Format(DisplayLayout)
}

// DisplayDateString parses a YYYY-MM-DD string and formats it as DD/MM/YYYY.
func DisplayDateString(s string, loc *time.Location) string {
	t, ok := ParseDateOnly(s, loc)
	if !ok {
		return InvalidDisplayDate
	}
	return DisplayDate(t)
}

// FormatDateOnly renders t as YYYY-MM-DD in its own location.
func FormatDateOnly(t time.Time) string {
	return t.Format(DateLayout)
}

// StartOfDay returns midnight of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59.999 of t's calendar day in t's location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// AddDays moves t by n calendar days, keeping it at midnight across DST changes.
func AddDays(t time.Time, n int) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d+n, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same year, month and day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
