// Package core provides money parsing and handling utilities.
//
// This file contains the Money type used for transaction amounts and report
// totals. Amounts are unit-less decimals; arithmetic never goes through
// float64 so that report sums stay exact.
package core

import (
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Money is a unit-less decimal amount. It encodes as a bare JSON number.
type Money struct {
	d decimal.Decimal
}

// NewMoney converts a float, such as a legacy double amount, to Money.
func NewMoney(v float64) Money {
	return Money{d: decimal.NewFromFloat(v)}
}

// MoneyFromInt returns Money for a whole number.
func MoneyFromInt(v int64) Money {
	return Money{d: decimal.NewFromInt(v)}
}

// ParseMoney parses a decimal string.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Sign and
// magnitude are not checked here; see Money.Validate.
//
// Examples:
//
//	ParseMoney("12.34") -> 12.34, nil
//	ParseMoney("12,34") -> 12.34, nil
//	ParseMoney("")      -> 0, ErrInvalidAmount
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return Money{d: d}, nil
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{d: m.d.Add(o.d)}
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return Money{d: m.d.Sub(o.d)}
}

func (m Money) IsZero() bool     { return m.d.IsZero() }
func (m Money) IsPositive() bool { return m.d.IsPositive() }

// Equal compares by value, so 70 and 70.00 are equal.
func (m Money) Equal(o Money) bool {
	return m.d.Equal(o.d)
}

// Float64 returns the nearest float64, for stores that keep amounts as doubles.
func (m Money) Float64() float64 {
	return m.d.InexactFloat64()
}

func (m Money) String() string {
	return m.d.String()
}

// Validate reports whether m is usable as a transaction amount.
func (m Money) Validate() error {
	if !m.d.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// MarshalJSON writes the amount as a JSON number.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.d.String()), nil
}

// UnmarshalJSON accepts a JSON number or a numeric string. HTML forms tend to
// post amounts as strings.
func (m *Money) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	if s == "null" {
		return ErrInvalidAmount
	}
	if strings.HasPrefix(s, `"`) {
		unquoted, err := strconv.Unquote(s)
		if err != nil {
			return ErrInvalidAmount
		}
		s = unquoted
	}
	parsed, err := ParseMoney(s)
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
