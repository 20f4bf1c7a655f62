// Package money formats amounts for user-facing messages.
package money

import (
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var (
	printer = message.NewPrinter(language.BrazilianPortuguese)
	unit    = currency.BRL
)

// Format renders v as a Brazilian real amount, e.g. "R$ 1.234,50".
func Format(v float64) string {
	return printer.Sprint(currency.Symbol(unit.Amount(v)))
}

// Decimal renders v with two decimals using the locale separators.
func Decimal(v float64) string {
	return printer.Sprintf("%.2f", v)
}
