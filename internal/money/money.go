// Package money implements the rounding rule used for every displayed
// amount: each line is rounded to cents on its own, then the rounded lines
// are summed. Cart and order totals both go through here so a total always
// equals the sum of its displayed lines.
package money

import "github.com/shopspring/decimal"

const cents = 2

// Round2 rounds to two decimal places, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(cents)
}

// Subtotal is round2(unit * qty).
func Subtotal(unit decimal.Decimal, qty int) decimal.Decimal {
	return Round2(unit.Mul(decimal.NewFromInt(int64(qty))))
}

// Sum adds already rounded subtotals.
func Sum(subtotals ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, s := range subtotals {
		total = total.Add(s)
	}
	return Round2(total)
}
