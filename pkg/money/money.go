// Package money does currency arithmetic on integer paise.
package money

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// TaxCalculator applies a percentage rate to integer amounts.
type TaxCalculator struct {
	rate decimal.Decimal // fraction, 0.18 for 18%
}

// NewTaxCalculator parses a percentage such as "18" or "12.5".
func NewTaxCalculator(percent string) (*TaxCalculator, error) {
	p, err := decimal.NewFromString(percent)
	if err != nil {
		return nil, fmt.Errorf("invalid tax percent %q: %w", percent, err)
	}
	if p.IsNegative() {
		return nil, fmt.Errorf("tax percent must not be negative, got %s", percent)
	}
	return &TaxCalculator{rate: p.Div(decimal.NewFromInt(100))}, nil
}

// Tax returns round(amount * rate), rounding half away from zero.
func (t *TaxCalculator) Tax(amount int64) int64 {
	return decimal.NewFromInt(amount).Mul(t.rate).Round(0).IntPart()
}

// Totals returns tax and total for a subtotal.
func (t *TaxCalculator) Totals(subtotal int64) (tax, total int64) {
	tax = t.Tax(subtotal)
	return tax, subtotal + tax
}

// Percent returns the configured rate as a percentage string.
func (t *TaxCalculator) Percent() string {
	return t.rate.Mul(decimal.NewFromInt(100)).String()
}

// LineTotal multiplies a unit price by a quantity, failing on overflow.
func LineTotal(unitPrice int64, quantity int) (int64, error) {
	total := decimal.NewFromInt(unitPrice).Mul(decimal.NewFromInt(int64(quantity)))
	if !total.IsInteger() || total.GreaterThan(decimal.NewFromInt(maxAmount)) {
		return 0, fmt.Errorf("line total overflows: %d x %d", unitPrice, quantity)
	}
	return total.IntPart(), nil
}

const maxAmount = int64(1) << 53
