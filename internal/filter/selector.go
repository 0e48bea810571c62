// Package filter selects the expenses that fall inside a time window and a
// category selection.
package filter

import (
	"fmt"
	"slices"
	"strings"

	"expensetrack/internal/core"
)

// TimeMode is the active temporal filter.
type TimeMode int

const (
	AllTime TimeMode = iota
	Daily
	Weekly
	Monthly
)

// AllCategories is the pseudo-category that clears the category selection.
const AllCategories = "All"

// TimeModes lists the modes in the order the UI offers them.
var TimeModes = []TimeMode{Daily, Weekly, Monthly, AllTime}

func (m TimeMode) String() string {
	switch m {
	case Daily:
		return "Daily"
	case Weekly:
		return "Weekly"
	case Monthly:
		return "Monthly"
	default:
		return "All Time"
	}
}

// Param is the query-string form of the mode.
func (m TimeMode) Param() string {
	switch m {
	case Daily:
		return "daily"
	case Weekly:
		return "weekly"
	case Monthly:
		return "monthly"
	default:
		return "all"
	}
}

// ParseTimeMode accepts display names and query-string forms.
func ParseTimeMode(s string) (TimeMode, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), " ", "")) {
	case "daily", "day":
		return Daily, nil
	case "weekly", "week":
		return Weekly, nil
	case "monthly", "month":
		return Monthly, nil
	case "alltime", "all", "":
		return AllTime, nil
	default:
		return AllTime, fmt.Errorf("unknown time mode %q", s)
	}
}

// Selector holds exactly one time mode with its bound values plus an
// independent category selection. Only the fields of the active mode are
// consulted. An empty category selection means no restriction.
type Selector struct {
	Mode       TimeMode
	Day        string // Daily: YYYY-MM-DD
	WeekStart  string // Weekly: YYYY-MM-DD, inclusive
	WeekEnd    string // Weekly: YYYY-MM-DD, inclusive through the end of the day
	Month      string // Monthly: YYYY-MM, empty matches every month
	Categories []core.Category
}

func Day(date string) Selector {
	return Selector{Mode: Daily, Day: date}
}

func Week(start, end string) Selector {
	return Selector{Mode: Weekly, WeekStart: start, WeekEnd: end}
}

func Month(yearMonth string) Selector {
	return Selector{Mode: Monthly, Month: yearMonth}
}

func All() Selector {
	return Selector{Mode: AllTime}
}

// WithCategories returns a copy of s restricted to cats.
func (s Selector) WithCategories(cats ...core.Category) Selector {
	s.Categories = append([]core.Category(nil), cats...)
	return s
}

// Toggle adds c to the selection, or removes it when already selected.
// Toggling AllCategories clears the selection.
func (s Selector) Toggle(c core.Category) Selector {
	if string(c) == AllCategories {
		s.Categories = nil
		return s
	}
	cats := append([]core.Category(nil), s.Categories...)
	if i := slices.Index(cats, c); i >= 0 {
		s.Categories = slices.Delete(cats, i, i+1)
		return s
	}
	s.Categories = append(cats, c)
	return s
}

// Selected reports whether c is part of the category selection.
func (s Selector) Selected(c core.Category) bool {
	return slices.Contains(s.Categories, c)
}

// Key is a canonical string for the selector, suitable as a cache key.
// Values of inactive modes are ignored and category order does not matter.
func (s Selector) Key() string {
	var b strings.Builder
	b.WriteString(s.Mode.Param())
	switch s.Mode {
	case Daily:
		b.WriteString(":" + s.Day)
	case Weekly:
		b.WriteString(":" + s.WeekStart + ".." + s.WeekEnd)
	case Monthly:
		b.WriteString(":" + s.Month)
	}
	if len(s.Categories) > 0 {
		cats := make([]string, 0, len(s.Categories))
		for _, c := range s.Categories {
			cats = append(cats, string(c))
		}
		slices.Sort(cats)
		cats = slices.Compact(cats)
		b.WriteString("|" + strings.Join(cats, ","))
	}
	return b.String()
}
