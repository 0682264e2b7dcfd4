package utils

import (
	"fmt"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// ParseCurrency validates an ISO 4217 code.
func ParseCurrency(code string) (currency.Unit, error) {
	unit, err := currency.ParseISO(code)
	if err != nil {
		return currency.Unit{}, fmt.Errorf("invalid currency %q: %w", code, err)
	}
	return unit, nil
}

// FormatAmount renders minor units for display in the given language, e.g.
// 2000 EUR in French reads "€ 20,00".
func FormatAmount(cents int64, unit currency.Unit, lang language.Tag) string {
	p := message.NewPrinter(lang)
	return p.Sprint(currency.Symbol(unit.Amount(float64(cents) / 100)))
}
