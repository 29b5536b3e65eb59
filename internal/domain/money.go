package domain

import (
	"github.com/shopspring/decimal"
)

var (
	// Hundred is the shared constant used for percentage conversions.
	Hundred = decimal.NewFromInt(100)
	// One is the shared decimal constant 1.
	One = decimal.NewFromInt(1)
)

// Round2 rounds to two fractional digits, half away from zero, matching the
// host platform's currency rounding.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// Truncate2 cuts to two fractional digits toward zero. The gateway-facing
// unit price for tax-inclusive stores is derived this way; the compensation
// line absorbs whatever the cut discards.
func Truncate2(d decimal.Decimal) decimal.Decimal {
	return d.Truncate(2)
}

// FormatAmount renders a decimal with exactly two fractional digits for the
// gateway wire format.
func FormatAmount(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// PercentOf returns amount * percent / 100 without rounding.
func PercentOf(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Mul(percent).Div(Hundred)
}

// ApplyDiscountPercent reduces amount by the given discount percentage.
func ApplyDiscountPercent(amount, percent decimal.Decimal) decimal.Decimal {
	return amount.Sub(PercentOf(amount, percent))
}

// TaxRate converts a tax percent into the 1+p/100 multiplier used to strip or
// add tax.
func TaxRate(taxPercent decimal.Decimal) decimal.Decimal {
	return One.Add(taxPercent.Div(Hundred))
}
