package utils

import (
	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// RoundMinor rounds an amount to the minor unit of the given ISO 4217
// currency (2 decimal places for GBP). Used at report-generation time only;
// intermediate matching arithmetic stays unrounded.
func RoundMinor(amount decimal.Decimal, currencyCode string) decimal.Decimal {
	fraction := 2
	if c := money.GetCurrency(currencyCode); c != nil {
		fraction = c.Fraction
	}
	return amount.Round(int32(fraction))
}

// IsKnownCurrency reports whether code is a recognised ISO 4217 currency.
func IsKnownCurrency(code string) bool {
	return money.GetCurrency(code) != nil
}
