package filter

import (
	"time"

	"expensetrack/internal/core"
)

// Defaults are the values a summary page starts from: today, the
// Monday-to-Sunday week containing today, and the current month.
type Defaults struct {
	Day       string
	WeekStart string
	WeekEnd   string
	Month     string
}

// DefaultSelectorValues computes the initial selector values for now, in now's location.
func DefaultSelectorValues(now time.Time) Defaults {
	today := core.StartOfDay(now)
	// Weekday is 0 for Sunday; Monday is (day+6)%7 days back.
	monday := core.AddDays(today, -((int(today.Weekday()) + 6) % 7))
	return Defaults{
		Day:       core.FormatDateOnly(today),
		WeekStart: core.FormatDateOnly(monday),
		WeekEnd:   core.FormatDateOnly(core.AddDays(monday, 6)),
		Month:     today.Format("2006-01"),
	}
}

// Selector returns the selector for mode built from the default values.
func (d Defaults) Selector(mode TimeMode) Selector {
	switch mode {
	case Daily:
		return Day(d.Day)
	case Weekly:
		return Week(d.WeekStart, d.WeekEnd)
	case Monthly:
		return Month(d.Month)
	default:
		return All()
	}
}

// WeekFrom returns the six-days-later end date for a chosen week start.
// When start does not parse, end is empty and the selector matches nothing.
func WeekFrom(start string, loc *time.Location) Selector {
	d, ok := core.ParseDateOnly(start, loc)
	if !ok {
		return Week(start, "")
	}
	return Week(start, core.FormatDateOnly(core.AddDays(d, 6)))
}
