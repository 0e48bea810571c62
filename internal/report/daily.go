// Package report groups filtered expenses into day and category buckets and
// computes their totals.
package report

import (
	"slices"
	"time"

	"expensetrack/internal/core"
)

// DayLabel is the relative name of a day bucket.
type DayLabel string

const (
	Today     DayLabel = "Today"
	Yesterday DayLabel = "Yesterday"
	Earlier   DayLabel = "Earlier"
)

// DayGroup is one DD/MM/YYYY bucket of the expense list.
type DayGroup struct {
	Key      string // DD/MM/YYYY, or core.InvalidDisplayDate
	Date     time.Time
	Label    DayLabel
	Expenses []core.Expense
	Total    core.Amount
	Count    int
}

// LabelFor names day relative to now. Both are compared as calendar days in
// now's location.
func LabelFor(day, now time.Time) DayLabel {
	if day.IsZero() {
		return Earlier
	}
	today := core.StartOfDay(now)
	day = day.In(now.Location())
	switch {
	case core.SameDay(day, today):
		return Today
	case core.SameDay(day, core.AddDays(today, -1)):
		return Yesterday
	default:
		return Earlier
	}
}

// GroupByDay sorts expenses newest first and buckets them by display date.
// Buckets come out newest first with the invalid-date bucket last, and every
// bucket is labelled relative to now.
func GroupByDay(expenses []core.Expense, now time.Time, loc *time.Location) []DayGroup {
	if loc == nil {
		loc = time.Local
	}
	now = now.In(loc)

	sorted := sortByDateDesc(expenses, loc)
	index := make(map[string]int)
	groups := make([]DayGroup, 0)
	for _, e := range sorted {
		d, ok := core.ParseDateOnly(e.Date, loc)
		key := core.InvalidDisplayDate
		if ok {
			key = core.DisplayDate(d)
		}
		i, seen := index[key]
		if !seen {
			i = len(groups)
			index[key] = i
			groups = append(groups, DayGroup{Key: key, Total: core.Sum()})
		}
		g := &groups[i]
		g.Expenses = append(g.Expenses, e)
		g.Total = g.Total.Add(e.Amount)
		g.Count++
	}

	// Order by the date parsed back from the bucket key.
	for i := range groups {
		if d, ok := core.ParseDisplayDate(groups[i].Key, loc); ok {
			groups[i].Date = d
		}
		groups[i].Label = LabelFor(groups[i].Date, now)
	}
	slices.SortStableFunc(groups, func(a, b DayGroup) int {
		return compareDesc(a.Date, b.Date)
	})
	return groups
}

// sortByDateDesc returns a copy of expenses ordered newest first. Equal dates
// keep their input order and malformed dates go last.
func sortByDateDesc(expenses []core.Expense, loc *time.Location) []core.Expense {
	type dated struct {
		e core.Expense
		d time.Time
	}
	tmp := make([]dated, len(expenses))
	for i, e := range expenses {
		d, _ := core.ParseDateOnly(e.Date, loc)
		tmp[i] = dated{e: e, d: d}
	}
	slices.SortStableFunc(tmp, func(a, b dated) int {
		return compareDesc(a.d, b.d)
	})
	out := make([]core.Expense, len(tmp))
	for i, t := range tmp {
		out[i] = t.e
	}
	return out
}

// compareDesc orders times newest first with zero times last.
func compareDesc(a, b time.Time) int {
	switch {
	case a.IsZero() && b.IsZero():
		return 0
	case a.IsZero():
		return 1
	case b.IsZero():
		return -1
	}
	return b.Compare(a)
}
