package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const minorUnitScale = 100

var hundred = decimal.NewFromInt(minorUnitScale)

// ToMinorUnits converts a display amount into the gateway's smallest unit (×100). Amounts finer
// than one minor unit are rejected rather than rounded; trailing zeros such as "1.500" are fine.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	if amount.IsNegative() {
		return 0, fmt.Errorf("domain: negative amount %s", amount.String())
	}
	minor := amount.Mul(hundred)
	if !minor.IsInteger() {
		return 0, fmt.Errorf("domain: amount %s has more than two decimal places", amount.String())
	}
	return minor.IntPart(), nil
}

// FromMinorUnits converts a gateway minor-unit amount back into display units.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, 0).Div(hundred)
}

// FormatAmount renders the amount with the currency symbol for the given locale, e.g. "₹ 45,000.00".
func FormatAmount(locale, currencyCode string, amount decimal.Decimal) string {
	tag, err := language.Parse(strings.TrimSpace(locale))
	if err != nil {
		tag = language.English
	}
	unit, err := currency.ParseISO(strings.ToUpper(strings.TrimSpace(currencyCode)))
	if err != nil {
		return amount.StringFixed(2) + " " + strings.ToUpper(currencyCode)
	}
	printer := message.NewPrinter(tag)
	return printer.Sprint(currency.Symbol(unit.Amount(amount.InexactFloat64())))
}
