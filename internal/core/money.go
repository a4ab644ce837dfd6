// Package core holds the domain model of the bookkeeping ledger: accounts,
// transactions, EMI records and the money type they share.
//
// Amounts are stored as integer minor units (cents/paise). Decimal parsing
// happens once at the boundary; everything past it is int64 arithmetic.
package core

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// Money is a signed amount in currency minor units.
type Money struct {
	Cents int64
}

// ParseAmount converts a user-entered decimal string into minor units with
// half-up rounding on the third decimal place. Thousands separators
// (commas) are tolerated. Negative amounts are rejected; transaction
// direction is carried by the credit/debit type, not by a sign.
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	if s == "" {
		return Money{}, &ValidationError{Field: "amount", Reason: "empty"}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, &ValidationError{Field: "amount", Reason: "not a number"}
	}
	if d.IsNegative() {
		return Money{}, &ValidationError{Field: "amount", Reason: "must not be negative"}
	}
	cents := d.Shift(2).Round(0)
	if !cents.IsInteger() || cents.BigInt().BitLen() > 62 {
		return Money{}, &ValidationError{Field: "amount", Reason: "out of range"}
	}
	return Money{Cents: cents.IntPart()}, nil
}

// ParseSignedAmount is ParseAmount without the non-negativity rule, used
// for initial balances and correction targets which may legitimately be
// negative (credit-card debt).
func ParseSignedAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "-") {
		m, err := ParseAmount(s[1:])
		if err != nil {
			return Money{}, err
		}
		return m.Neg(), nil
	}
	return ParseAmount(s)
}

func (m Money) Add(n Money) Money { return Money{Cents: m.Cents + n.Cents} }
func (m Money) Sub(n Money) Money { return Money{Cents: m.Cents - n.Cents} }
func (m Money) Neg() Money        { return Money{Cents: -m.Cents} }
func (m Money) IsZero() bool      { return m.Cents == 0 }
func (m Money) IsNegative() bool  { return m.Cents < 0 }

// Abs returns the magnitude, used for credit-card usage where balances are
// negative-for-debt by convention.
func (m Money) Abs() Money {
	if m.Cents < 0 {
		return Money{Cents: -m.Cents}
	}
	return m
}

// Format renders the amount in the given ISO currency code for display.
func (m Money) Format(currencyCode string) string {
	return money.New(m.Cents, currencyCode).Display()
}

// Decimal returns the amount as a major-unit decimal string ("12.34"),
// the representation used in JSON responses and spreadsheet exports.
func (m Money) Decimal() string {
	return decimal.New(m.Cents, -2).StringFixed(2)
}
