// Package core provides the domain types shared by reporting and export.
//
// This file contains functions for parsing monetary amounts from the decimal
// text stored with each expense and formatting them for documents.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseAmount converts stored decimal text into an exact decimal value.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators, and any
// number of fractional digits. Signs, exponents, thousands separators and
// empty input are rejected. Zero is a valid amount.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,5")  -> 12.5, nil
//	ParseAmount("-1")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	// Normalize decimal comma to dot
	s = strings.ReplaceAll(s, ",", ".")
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return decimal.Zero, ErrInvalidAmount
	}
	if parts[0] == "" && (len(parts) == 1 || parts[1] == "") {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, part := range parts {
		for _, r := range part {
			if !unicode.IsDigit(r) || r > unicode.MaxASCII {
				return decimal.Zero, ErrInvalidAmount
			}
		}
	}
	intPart := parts[0]
	if intPart == "" {
		intPart = "0"
	}
	s = intPart
	if len(parts) == 2 && parts[1] != "" {
		s += "." + parts[1]
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// RecordAmount parses the amount of rec, reporting the record on failure.
func RecordAmount(rec ExpenseRecord) (decimal.Decimal, error) {
	d, err := ParseAmount(rec.Amount)
	if err != nil {
		return decimal.Zero, &AmountError{RecordID: rec.ID, Value: rec.Amount}
	}
	return d, nil
}

// FormatAmount renders d with exactly two decimals, half-up rounded.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// Percent returns part/whole*100 rounded to two decimals. whole must not be zero.
func Percent(part, whole decimal.Decimal) decimal.Decimal {
	return part.Mul(hundred).Div(whole).Round(2)
}
