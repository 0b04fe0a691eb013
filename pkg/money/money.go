// Package money renders integer cent amounts for API payloads.
package money

import "github.com/shopspring/decimal"

// Format renders cents as a fixed two-decimal string, e.g. 2000 -> "20.00".
func Format(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}

// Multiply returns unit*qty in cents.
func Multiply(unitCents int64, qty int) int64 {
	return decimal.NewFromInt(unitCents).Mul(decimal.NewFromInt(int64(qty))).IntPart()
}

// ParseCents converts a decimal string such as "10.5" into cents, rounding
// half away from zero.
func ParseCents(value string) (int64, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, err
	}
	return d.Shift(2).Round(0).IntPart(), nil
}
