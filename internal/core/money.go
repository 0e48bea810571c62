// Package core provides the expense model and amount handling.
//
// This file contains the Amount type: a decimal value that can also be
// invalid. Invalid amounts come from malformed stored data and are carried
// through totals instead of being dropped.
package core

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount is a decimal money value. The zero value is an invalid amount.
type Amount struct {
	Value decimal.Decimal
	Valid bool
}

// NewAmount wraps d as a valid amount.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Value: d, Valid: true}
}

// AmountFromString coerces s the way stored data is coerced: surrounding
// whitespace is ignored and anything that is not a decimal number yields an
// invalid amount.
func AmountFromString(s string) Amount {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Amount{}
	}
	return NewAmount(d)
}

// MustAmount parses s and panics on failure. Intended for tests and constants.
func MustAmount(s string) Amount {
	a := AmountFromString(s)
	if !a.Valid {
		panic("core: invalid amount " + s)
	}
	return a
}

// ParseAmountInput parses a user-typed amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and
// rounds half-up to two decimal places. Signs are rejected.
//
// Examples:
//
//	ParseAmountInput("12.34")  -> 12.34
//	ParseAmountInput("12,345") -> 12.35
//	ParseAmountInput("-1")     -> ErrInvalidAmount
func ParseAmountInput(s string) (Amount, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Amount{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Amount{}, ErrInvalidAmount
	}
	if strings.ContainsAny(s, "eE") {
		return Amount{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Amount{}, ErrInvalidAmount
	}
	return NewAmount(d.Round(2)), nil
}

// Add returns a+b. The result is invalid if either operand is.
func (a Amount) Add(b Amount) Amount {
	if !a.Valid || !b.Valid {
		return Amount{}
	}
	return NewAmount(a.Value.Add(b.Value))
}

// Sum adds up amounts starting from zero.
func Sum(amounts ...Amount) Amount {
	total := NewAmount(decimal.Zero)
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

func (a Amount) IsNegative() bool {
	return a.Valid && a.Value.IsNegative()
}

func (a Amount) Equal(b Amount) bool {
	if !a.Valid || !b.Valid {
		return false
	}
	return a.Value.Equal(b.Value)
}

// Float64 returns the amount for charting. Invalid amounts return 0, false.
func (a Amount) Float64() (float64, bool) {
	if !a.Valid {
		return 0, false
	}
	return a.Value.InexactFloat64(), true
}

// String renders two decimals, or NaN for an invalid amount.
func (a Amount) String() string {
	if !a.Valid {
		return "NaN"
	}
	return a.Value.StringFixed(2)
}

// MarshalJSON writes a bare number, or null for an invalid amount.
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid {
		return []byte("null"), nil
	}
	return []byte(a.Value.String()), nil
}

// UnmarshalJSON accepts numbers and numeric strings. Any other value,
// including null, decodes to an invalid amount without failing.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*a = Amount{}
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		*a = AmountFromString(s)
		return nil
	}
	*a = AmountFromString(string(data))
	return nil
}
