package report

import (
	"github.com/shopspring/decimal"

	"expensetrack/internal/core"
)

// Palette is cycled through for chart slices.
var Palette = []string{"#4f46e5", "#10b981", "#f59e0b", "#ef4444", "#6366f1"}

// Slice is one category of the breakdown chart.
type Slice struct {
	Category core.Category `json:"category"`
	Amount   core.Amount   `json:"amount"`
	Percent  float64       `json:"percent"`
	Color    string        `json:"color"`
}

// Breakdown returns the per-category totals of expenses in first-seen order.
// Percent is each slice's share of the grand total, or 0 when the grand
// total is zero or invalid.
func Breakdown(expenses []core.Expense) []Slice {
	index := make(map[core.Category]int)
	out := make([]Slice, 0)
	for _, e := range expenses {
		cat := e.Category.OrOther()
		i, ok := index[cat]
		if !ok {
			i = len(out)
			index[cat] = i
			out = append(out, Slice{
				Category: cat,
				Amount:   core.Sum(),
				Color:    Palette[i%len(Palette)],
			})
		}
		out[i].Amount = out[i].Amount.Add(e.Amount)
	}

	total := GrandTotal(expenses)
	if !total.Valid || total.Value.IsZero() {
		return out
	}
	hundred := decimal.NewFromInt(100)
	for i := range out {
		if !out[i].Amount.Valid {
			continue
		}
		pct := out[i].Amount.Value.Mul(hundred).Div(total.Value).Round(1)
		out[i].Percent = pct.InexactFloat64()
	}
	return out
}
