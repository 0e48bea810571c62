package http

import (
	"strings"

	"expensetrack/internal/core"
)

// CurrencySymbol prefixes every rendered amount.
const CurrencySymbol = "₹"

// formatAmount renders an amount with the currency symbol, e.g. "₹12.50".
func formatAmount(a core.Amount) string {
	return CurrencySymbol + a.String()
}

var categoryIcons = map[core.Category]string{
	core.Food:          "🍽️",
	core.Travel:        "🚌",
	core.Shopping:      "🛍️",
	core.Bills:         "💡",
	core.Rent:          "🏠",
	core.Entertainment: "🎬",
	core.Education:     "📚",
	core.Health:        "❤️",
	core.Subscriptions: "📶",
}

// categoryIcon returns the icon of a known category; anything else gets coins.
func categoryIcon(c core.Category) string {
	if icon, ok := categoryIcons[c]; ok {
		return icon
	}
	return "🪙"
}

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
