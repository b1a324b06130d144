// Package core provides money parsing and handling utilities.
//
// Amounts are exact decimals (shopspring/decimal); currency metadata such as
// the number of minor units comes from the ISO table in go-money.
package core

import (
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// ParseAmount converts a user supplied string into a strictly positive amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs are
// rejected: direction is carried by the transaction, never by the amount.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-1")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = normalizeDecimal(s)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseSignedAmount parses a signed decimal, used for initial wallet balances.
func ParseSignedAmount(s string) (decimal.Decimal, error) {
	s = normalizeDecimal(s)
	if s == "" {
		return decimal.Zero, ErrInvalidBalance
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidBalance
	}
	return d, nil
}

func normalizeDecimal(s string) string {
	s = strings.TrimSpace(s)
	// Normalize decimal comma to dot
	return strings.ReplaceAll(s, ",", ".")
}

// NormalizeCurrency upper-cases and trims an ISO 4217 code.
func NormalizeCurrency(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidateCurrency checks that code is a known ISO 4217 currency.
func ValidateCurrency(code string) error {
	code = NormalizeCurrency(code)
	if code == "" {
		return ErrEmptyCurrency
	}
	if money.GetCurrency(code) == nil {
		return ErrUnknownCurrency
	}
	return nil
}

// MinorUnits returns the number of fraction digits used by the currency, 2 if unknown.
func MinorUnits(code string) int32 {
	if c := money.GetCurrency(NormalizeCurrency(code)); c != nil {
		return int32(c.Fraction)
	}
	return 2
}

// RoundToCurrency rounds an amount half-up to the currency's minor units.
func RoundToCurrency(amount decimal.Decimal, code string) decimal.Decimal {
	return amount.Round(MinorUnits(code))
}

// FormatAmount renders an amount with the currency's symbol and grouping.
func FormatAmount(amount decimal.Decimal, code string) string {
	code = NormalizeCurrency(code)
	c := money.GetCurrency(code)
	if c == nil {
		return amount.StringFixed(2) + " " + code
	}
	minor := amount.Shift(int32(c.Fraction)).Round(0).IntPart()
	return c.Formatter().Format(minor)
}
