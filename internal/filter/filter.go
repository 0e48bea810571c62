package filter

import (
	"strconv"
	"strings"
	"time"

	"expensetrack/internal/core"
)

// Apply returns the expenses, in input order, whose date lies in the
// selector's time window and whose category is selected. Both constraints
// must hold. Expenses with malformed dates only pass AllTime. Apply never
// modifies all and always returns a non-nil slice.
func Apply(all []core.Expense, sel Selector, loc *time.Location) []core.Expense {
	if loc == nil {
		loc = time.Local
	}
	w := newWindow(sel, loc)
	cats := make(map[core.Category]struct{}, len(sel.Categories))
	for _, c := range sel.Categories {
		cats[c] = struct{}{}
	}

	out := make([]core.Expense, 0, len(all))
	for _, e := range all {
		d, ok := core.ParseDateOnly(e.Date, loc)
		if !w.contains(d, ok) {
			continue
		}
		if len(cats) > 0 {
			if _, ok := cats[e.Category]; !ok {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

// window is a selector with its bounds parsed once.
type window struct {
	mode  TimeMode
	valid bool

	day        time.Time
	start, end time.Time
	year       int
	month      time.Month
	anyMonth   bool
}

func newWindow(sel Selector, loc *time.Location) window {
	w := window{mode: sel.Mode}
	switch sel.Mode {
	case Daily:
		w.day, w.valid = core.ParseDateOnly(sel.Day, loc)
	case Weekly:
		start, okStart := core.ParseDateOnly(sel.WeekStart, loc)
		end, okEnd := core.ParseDateOnly(sel.WeekEnd, loc)
		w.start, w.end = start, core.EndOfDay(end)
		w.valid = okStart && okEnd
	case Monthly:
		if strings.TrimSpace(sel.Month) == "" {
			w.anyMonth, w.valid = true, true
			break
		}
		w.year, w.month, w.valid = parseYearMonth(sel.Month)
	default:
		w.valid = true
	}
	return w
}

func (w window) contains(d time.Time, ok bool) bool {
	switch w.mode {
	case Daily:
		return ok && w.valid && core.SameDay(d, w.day)
	case Weekly:
		return ok && w.valid && !d.Before(w.start) && !d.After(w.end)
	case Monthly:
		if w.anyMonth {
			return true
		}
		return ok && w.valid && d.Year() == w.year && d.Month() == w.month
	default:
		return true
	}
}

// parseYearMonth reads YYYY-MM. A single-digit month is tolerated.
func parseYearMonth(s string) (int, time.Month, bool) {
	ys, ms, found := strings.Cut(strings.TrimSpace(s), "-")
	if !found {
		return 0, 0, false
	}
	y, err := strconv.Atoi(ys)
	if err != nil {
		return 0, 0, false
	}
	m, err := strconv.Atoi(ms)
	if err != nil || m < 1 || m > 12 {
		return 0, 0, false
	}
	return y, time.Month(m), true
}
