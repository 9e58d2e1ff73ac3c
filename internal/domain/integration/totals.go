package integration

import "github.com/shopspring/decimal"

// DefaultTotalTolerance is the default absolute tolerance for total validation.
var DefaultTotalTolerance = decimal.NewFromFloat(0.01)

// TotalsCheck is the outcome of comparing an order's stated total against its parts.
type TotalsCheck struct {
	ItemsSubtotal decimal.Decimal
	Tax           decimal.Decimal
	Shipping      decimal.Decimal
	Discount      decimal.Decimal
	Calculated    decimal.Decimal
	Stated        decimal.Decimal
	// Difference is Stated - Calculated.
	Difference decimal.Decimal
	Tolerance  decimal.Decimal
	IsValid    bool
}

// ValidateTotals checks that
// Σ qty×(unit+option) + tax + shipping − discount equals the stated amount within tolerance.
func ValidateTotals(o *SourceOrder, tolerance decimal.Decimal) TotalsCheck {
	if tolerance.IsNegative() {
		tolerance = tolerance.Neg()
	}
	subtotal := o.ItemsSubtotal()
	calculated := subtotal.Add(o.tax).Add(o.shippingCost).Sub(o.discount)
	diff := o.amount.Sub(calculated)

	return TotalsCheck{
		ItemsSubtotal: subtotal,
		Tax:           o.tax,
		Shipping:      o.shippingCost,
		Discount:      o.discount,
		Calculated:    calculated,
		Stated:        o.amount,
		Difference:    diff,
		Tolerance:     tolerance,
		IsValid:       diff.Abs().LessThanOrEqual(tolerance),
	}
}
