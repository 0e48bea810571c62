package report

import (
	"sort"
	"time"

	"expensetrack/internal/core"
)

type (
	// CategoryGroup is the bucket of one category label.
	CategoryGroup struct {
		Category core.Category
		Expenses []core.Expense // newest first
		Total    core.Amount
		Count    int
	}

	// Summary is the category breakdown of a filtered expense list.
	Summary struct {
		Categories []CategoryGroup // first-appearance order
		Total      core.Amount
		Count      int
	}

	// DetailDay is one day inside an expanded category.
	DetailDay struct {
		Key      string // YYYY-MM-DD, or InvalidDetailKey
		Display  string // DD/MM/YYYY
		Expenses []core.Expense
		Total    core.Amount
	}
)

// InvalidDetailKey collects expenses whose date cannot be parsed.
const InvalidDetailKey = "invalid"

// GroupByCategory buckets expenses by category, with an absent category
// counted as Other. Totals never skip invalid amounts: a single invalid
// amount makes its bucket total and the grand total invalid.
func GroupByCategory(expenses []core.Expense, loc *time.Location) Summary {
	if loc == nil {
		loc = time.Local
	}
	index := make(map[core.Category]int)
	groups := make([]CategoryGroup, 0)
	for _, e := range expenses {
		cat := e.Category.OrOther()
		i, ok := index[cat]
		if !ok {
			i = len(groups)
			index[cat] = i
			groups = append(groups, CategoryGroup{Category: cat, Total: core.Sum()})
		}
		g := &groups[i]
		g.Expenses = append(g.Expenses, e)
		g.Total = g.Total.Add(e.Amount)
		g.Count++
	}
	for i := range groups {
		groups[i].Expenses = sortByDateDesc(groups[i].Expenses, loc)
	}
	return Summary{
		Categories: groups,
		Total:      GrandTotal(expenses),
		Count:      len(expenses),
	}
}

// GrandTotal sums every amount in expenses.
func GrandTotal(expenses []core.Expense) core.Amount {
	total := core.Sum()
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// Category returns the bucket for c, if present.
func (s Summary) Category(c core.Category) (CategoryGroup, bool) {
	for _, g := range s.Categories {
		if g.Category == c {
			return g, true
		}
	}
	return CategoryGroup{}, false
}

// DetailByDay splits a category bucket into days. Day keys are the UTC
// calendar date of the stored value, ordered newest first, with the invalid
// key last.
func DetailByDay(group CategoryGroup) []DetailDay {
	index := make(map[string]int)
	days := make([]DetailDay, 0)
	for _, e := range group.Expenses {
		key := InvalidDetailKey
		if t, ok := core.ParseDateOnly(e.Date, time.UTC); ok {
			key = t.Format(core.DateLayout)
		}
		i, ok := index[key]
		if !ok {
			i = len(days)
			index[key] = i
			days = append(days, DetailDay{Key: key, Display: core.DisplayDateString(key, time.UTC), Total: core.Sum()})
		}
		d := &days[i]
		d.Expenses = append(d.Expenses, e)
		d.Total = d.Total.Add(e.Amount)
	}
	sort.SliceStable(days, func(i, j int) bool {
		a, b := days[i].Key, days[j].Key
		if a == InvalidDetailKey || b == InvalidDetailKey {
			return b == InvalidDetailKey && a != InvalidDetailKey
		}
		return a > b
	})
	return days
}
