package report

import (
	"testing"
	"time"

	"expensetrack/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exp(id int64, date, amount string, cat core.Category) core.Expense {
	return core.Expense{ID: id, Title: "t", Amount: core.AmountFromString(amount), Category: cat, Date: date}
}

func TestLabelFor(t *testing.T) {
	now := time.Date(2024, 6, 10, 18, 45, 0, 0, time.UTC)
	day := func(s string) time.Time {
		d, ok := core.ParseDateOnly(s, time.UTC)
		require.True(t, ok)
		return d
	}

	assert.Equal(t, Today, LabelFor(day("2024-06-10"), now))
	assert.Equal(t, Yesterday, LabelFor(day("2024-06-09"), now))
	assert.Equal(t, Earlier, LabelFor(day("2024-06-08"), now))
	assert.Equal(t, Earlier, LabelFor(time.Time{}, now))
}

func TestGroupByDay(t *testing.T) {
	now := time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)
	input := []core.Expense{
		exp(1, "2024-06-08", "5", core.Food),
		exp(2, "2024-06-10", "1.50", core.Food),
		exp(3, "broken", "2", core.Food),
		exp(4, "2024-06-09", "3", core.Travel),
		exp(5, "2024-06-10", "2.25", core.Bills),
	}

	groups := GroupByDay(input, now, time.UTC)
	require.Len(t, groups, 4)

	assert.Equal(t, "10/06/2024", groups[0].Key)
	assert.Equal(t, Today, groups[0].Label)
	assert.Equal(t, 2, groups[0].Count)
	assert.Equal(t, "3.75", groups[0].Total.String())
	// Same-day expenses keep their input order.
	assert.Equal(t, int64(2), groups[0].Expenses[0].ID)
	assert.Equal(t, int64(5), groups[0].Expenses[1].ID)

	assert.Equal(t, "09/06/2024", groups[1].Key)
	assert.Equal(t, Yesterday, groups[1].Label)
	assert.Equal(t, "08/06/2024", groups[2].Key)
	assert.Equal(t, Earlier, groups[2].Label)

	assert.Equal(t, core.InvalidDisplayDate, groups[3].Key)
	assert.Equal(t, Earlier, groups[3].Label)
}

func TestGroupByDayOrdersAcrossMonths(t *testing.T) {
	// Display keys do not sort lexicographically; buckets must follow the dates.
	input := []core.Expense{
		exp(1, "2024-01-31", "1", core.Food),
		exp(2, "2024-02-01", "1", core.Food),
		exp(3, "2023-12-31", "1", core.Food),
	}
	groups := GroupByDay(input, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), time.UTC)
	require.Len(t, groups, 3)
	assert.Equal(t, []string{"01/02/2024", "31/01/2024", "31/12/2023"},
		[]string{groups[0].Key, groups[1].Key, groups[2].Key})
}

func TestGroupByCategory(t *testing.T) {
	input := []core.Expense{
		exp(1, "2024-06-01", "10", core.Travel),
		exp(2, "2024-06-03", "2.50", core.Food),
		exp(3, "2024-06-02", "4", ""),
		exp(4, "2024-06-05", "1", core.Travel),
		exp(5, "2024-06-04", "7", "Gifts"),
	}

	s := GroupByCategory(input, time.UTC)
	require.Len(t, s.Categories, 4)
	assert.Equal(t, []core.Category{core.Travel, core.Food, core.Other, "Gifts"},
		[]core.Category{s.Categories[0].Category, s.Categories[1].Category, s.Categories[2].Category, s.Categories[3].Category})

	travel, ok := s.Category(core.Travel)
	require.True(t, ok)
	assert.Equal(t, "11.00", travel.Total.String())
	assert.Equal(t, 2, travel.Count)
	assert.Equal(t, int64(4), travel.Expenses[0].ID, "members sorted newest first")

	other, ok := s.Category(core.Other)
	require.True(t, ok)
	assert.Equal(t, int64(3), other.Expenses[0].ID)

	_, ok = s.Category(core.Health)
	assert.False(t, ok)
}

func TestSummaryTotalsMatchBuckets(t *testing.T) {
	input := []core.Expense{
		exp(1, "2024-06-01", "10.10", core.Travel),
		exp(2, "2024-06-03", "0.20", core.Food),
		exp(3, "2024-06-02", "4.05", ""),
		exp(4, "2024-06-05", "1", core.Travel),
		exp(5, "bad", "99.99", core.Food),
	}
	s := GroupByCategory(input, time.UTC)

	sum := core.Sum()
	count := 0
	for _, g := range s.Categories {
		sum = sum.Add(g.Total)
		count += g.Count
	}
	assert.True(t, sum.Equal(s.Total), "%s != %s", sum, s.Total)
	assert.Equal(t, "115.34", s.Total.String())
	assert.Equal(t, len(input), count)
	assert.Equal(t, len(input), s.Count)
}

func TestInvalidAmountPropagates(t *testing.T) {
	input := []core.Expense{
		exp(1, "2024-06-01", "10", core.Food),
		exp(2, "2024-06-01", "abc", core.Food),
		exp(3, "2024-06-01", "5", core.Bills),
	}
	s := GroupByCategory(input, time.UTC)

	food, _ := s.Category(core.Food)
	bills, _ := s.Category(core.Bills)
	assert.Equal(t, "NaN", food.Total.String())
	assert.Equal(t, "5.00", bills.Total.String())
	assert.Equal(t, "NaN", s.Total.String())
	assert.Equal(t, 3, s.Count)

	days := GroupByDay(input, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), time.UTC)
	require.Len(t, days, 1)
	assert.False(t, days[0].Total.Valid)
}

func TestEmptyInput(t *testing.T) {
	s := GroupByCategory(nil, time.UTC)
	assert.Empty(t, s.Categories)
	assert.Equal(t, "0.00", s.Total.String())
	assert.Equal(t, 0, s.Count)
	assert.Empty(t, GroupByDay(nil, time.Now(), nil))
	assert.Empty(t, Breakdown(nil))
}

func TestDetailByDay(t *testing.T) {
	g := CategoryGroup{
		Category: core.Food,
		Expenses: []core.Expense{
			exp(1, "2024-06-01", "1", core.Food),
			exp(2, "oops", "1", core.Food),
			exp(3, "2024-06-03", "2", core.Food),
			exp(4, "2024-06-01", "3", core.Food),
		},
	}
	days := DetailByDay(g)
	require.Len(t, days, 3)

	assert.Equal(t, "2024-06-03", days[0].Key)
	assert.Equal(t, "03/06/2024", days[0].Display)
	assert.Equal(t, "2024-06-01", days[1].Key)
	assert.Len(t, days[1].Expenses, 2)
	assert.Equal(t, "4.00", days[1].Total.String())
	assert.Equal(t, InvalidDetailKey, days[2].Key)
	assert.Equal(t, core.InvalidDisplayDate, days[2].Display)
}

func TestDetailByDayTrimsStoredDates(t *testing.T) {
	g := CategoryGroup{
		Category: core.Food,
		Expenses: []core.Expense{
			exp(1, " 2024-06-01", "1", core.Food),
			exp(2, "2024-06-01\n", "2", core.Food),
		},
	}
	days := DetailByDay(g)
	require.Len(t, days, 1)
	assert.Equal(t, "2024-06-01", days[0].Key)
	assert.Equal(t, "01/06/2024", days[0].Display)
	assert.Equal(t, "3.00", days[0].Total.String())
}

func TestBreakdown(t *testing.T) {
	input := []core.Expense{
		exp(1, "2024-06-01", "30", core.Food),
		exp(2, "2024-06-01", "10", core.Travel),
		exp(3, "2024-06-01", "10", core.Food),
		exp(4, "2024-06-01", "10", core.Bills),
		exp(5, "2024-06-01", "10", core.Rent),
		exp(6, "2024-06-01", "10", core.Health),
		exp(7, "2024-06-01", "10", ""),
	}
	slices := Breakdown(input)
	require.Len(t, slices, 6)

	assert.Equal(t, core.Food, slices[0].Category)
	assert.Equal(t, "40.00", slices[0].Amount.String())
	assert.InDelta(t, 44.4, slices[0].Percent, 0.001)
	assert.Equal(t, Palette[0], slices[0].Color)
	assert.Equal(t, Palette[0], slices[5].Color, "palette cycles")
	assert.Equal(t, core.Other, slices[5].Category)

	zero := Breakdown([]core.Expense{exp(1, "2024-06-01", "0", core.Food)})
	require.Len(t, zero, 1)
	assert.Zero(t, zero[0].Percent)
}
