package core

import (
	"errors"
	"strings"
	"time"
)

const (
	Food          Category = "Food"
	Travel        Category = "Travel"
	Shopping      Category = "Shopping"
	Bills         Category = "Bills"
	Rent          Category = "Rent"
	Entertainment Category = "Entertainment"
	Education     Category = "Education"
	Health        Category = "Health"
	Subscriptions Category = "Subscriptions"
	Other         Category = "Other"
)

type (
	// Category is an expense label. The closed set below is what forms and
	// filters offer, but any label read back from storage is kept verbatim.
	Category string

	Expense struct {
		ID       int64    `json:"id"`
		Title    string   `json:"title"`
		Amount   Amount   `json:"amount"`
		Category Category `json:"category,omitempty"`
		Date     string   `json:"date"` // YYYY-MM-DD
	}
)

var (
	ErrEmptyTitle    = errors.New("empty title")
	ErrTitleTooLong  = errors.New("title too long (max 200 characters)")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrEmptyCategory = errors.New("empty category")
	ErrInvalidDate   = errors.New("invalid date")
)

// Categories lists the known labels in display order.
var Categories = []Category{
	Food, Travel, Shopping, Bills, Rent, Entertainment, Education, Health, Subscriptions, Other,
}

func (c Category) String() string {
	return string(c)
}

// Known reports whether c belongs to the fixed enumeration.
func (c Category) Known() bool {
	for _, k := range Categories {
		if k == c {
			return true
		}
	}
	return false
}

// OrOther returns Other when the label is absent.
func (c Category) OrOther() Category {
	if c == "" {
		return Other
	}
	return c
}

// ParseCategory matches s case-insensitively against the known labels and
// falls back to the trimmed input for anything else.
func ParseCategory(s string) Category {
	s = strings.TrimSpace(s)
	for _, k := range Categories {
		if strings.EqualFold(string(k), s) {
			return k
		}
	}
	return Category(s)
}

// ParsedDate anchors the expense date at local midnight in loc.
func (e Expense) ParsedDate(loc *time.Location) (time.Time, bool) {
	return ParseDateOnly(e.Date, loc)
}

// Validate checks the fields a user must provide when adding or editing an
// expense. Records loaded from storage are never validated.
func (e Expense) Validate() error {
	title := strings.TrimSpace(e.Title)
	if title == "" {
		return ErrEmptyTitle
	}
	if len(title) > 200 {
		return ErrTitleTooLong
	}
	if !e.Amount.Valid || e.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(string(e.Category)) == "" {
		return ErrEmptyCategory
	}
	if _, ok := ParseDateOnly(e.Date, time.UTC); !ok {
		return ErrInvalidDate
	}
	return nil
}
