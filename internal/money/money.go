// Package money computes cart and order totals with decimal arithmetic so that
// amounts never drift through float addition.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"

	"storefront/internal/models"
)

const currencySymbol = "₱"

// Totals is the numeric summary carried through cart and checkout state.
type Totals struct {
	Subtotal float64 `json:"subtotal"`
	Shipping float64 `json:"shipping"`
	Total    float64 `json:"total"`
}

// LineTotal is price × quantity.
func LineTotal(price float64, quantity int) decimal.Decimal {
	return decimal.NewFromFloat(price).Mul(decimal.NewFromInt(int64(quantity)))
}

// Subtotal sums price × quantity over the lines.
func Subtotal(lines []models.CartLine) decimal.Decimal {
	sum := decimal.Zero
	for _, line := range lines {
		sum = sum.Add(LineTotal(line.Price, line.Quantity))
	}
	return sum
}

// Compute returns subtotal, shipping and total. An empty (zero) subtotal reports
// zero shipping and zero total.
func Compute(lines []models.CartLine, shippingFee float64) Totals {
	subtotal := Subtotal(lines)
	if !subtotal.IsPositive() {
		return Totals{}
	}
	shipping := decimal.NewFromFloat(shippingFee)
	return Totals{
		Subtotal: subtotal.InexactFloat64(),
		Shipping: shipping.InexactFloat64(),
		Total:    subtotal.Add(shipping).InexactFloat64(),
	}
}

// Format renders an amount for display, e.g. ₱1,420.00.
func Format(amount float64) string {
	d := decimal.NewFromFloat(amount).Round(2)
	sign := ""
	if d.IsNegative() {
		sign = "-"
		d = d.Neg()
	}
	whole := d.Truncate(0).String()
	frac := d.Sub(d.Truncate(0)).Shift(2).Round(0).IntPart()

	grouped := make([]byte, 0, len(whole)+len(whole)/3)
	for i := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			grouped = append(grouped, ',')
		}
		grouped = append(grouped, whole[i])
	}
	return sign + currencySymbol + string(grouped) + fmt.Sprintf(".%02d", frac)
}
