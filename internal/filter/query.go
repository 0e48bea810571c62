package filter

import (
	"net/url"
	"strings"
	"time"

	"expensetrack/internal/core"
)

// FromQuery builds a selector from mode, date, start, end, month and
// repeated category parameters. Missing values fall back to the defaults
// for now; a start date without an end gets the six-days-later end. The
// mode defaults to Daily.
func FromQuery(q url.Values, now time.Time, loc *time.Location) (Selector, error) {
	mode := Daily
	if q.Has("mode") {
		m, err := ParseTimeMode(q.Get("mode"))
		if err != nil {
			return Selector{}, err
		}
		mode = m
	}

	defaults := DefaultSelectorValues(now.In(loc))
	var sel Selector
	switch mode {
	case Daily:
		sel = Day(valueOr(q, "date", defaults.Day))
	case Weekly:
		start := valueOr(q, "start", defaults.WeekStart)
		switch {
		case q.Get("end") != "":
			sel = Week(start, q.Get("end"))
		case q.Has("start"):
			sel = WeekFrom(start, loc)
		default:
			sel = Week(start, defaults.WeekEnd)
		}
	case Monthly:
		// An explicit empty month matches every month.
		if q.Has("month") {
			sel = Month(strings.TrimSpace(q.Get("month")))
		} else {
			sel = Month(defaults.Month)
		}
	default:
		sel = All()
	}

	for _, c := range q["category"] {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		if c == AllCategories {
			sel.Categories = nil
			continue
		}
		if !sel.Selected(core.Category(c)) {
			sel.Categories = append(sel.Categories, core.Category(c))
		}
	}
	return sel, nil
}

func valueOr(q url.Values, key, fallback string) string {
	if v := strings.TrimSpace(q.Get(key)); v != "" {
		return v
	}
	return fallback
}

// Query is the inverse of FromQuery.
func (s Selector) Query() url.Values {
	q := url.Values{}
	q.Set("mode", s.Mode.Param())
	switch s.Mode {
	case Daily:
		q.Set("date", s.Day)
	case Weekly:
		q.Set("start", s.WeekStart)
		q.Set("end", s.WeekEnd)
	case Monthly:
		q.Set("month", s.Month)
	}
	for _, c := range s.Categories {
		q.Add("category", string(c))
	}
	return q
}
