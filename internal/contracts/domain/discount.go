package contracts

import (
	"time"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Discount is the discount metadata attached to a price component.
// Value is a percentage when IsPercentage is set, otherwise an absolute
// amount in the unit of the component price.
type Discount struct {
	IsPercentage bool
	Value        decimal.Decimal
	Type         string
	FirstNKWh    *decimal.Decimal
	FirstNMonths *int
	UntilDate    *time.Time
}

// ActiveOn reports whether the discount applies on the billing date.
func (d *Discount) ActiveOn(billingDate time.Time) bool {
	if d == nil {
		return false
	}
	return d.UntilDate == nil || billingDate.Before(*d.UntilDate)
}

// AppliesToPeriod reports whether the discount covers the 1-based billing
// period index.
func (d *Discount) AppliesToPeriod(periodIndex int) bool {
	if d == nil {
		return false
	}
	return d.FirstNMonths == nil || periodIndex <= *d.FirstNMonths
}

// ApplyDiscount returns the discounted unit price. Absent or expired
// discounts return base unchanged. Absolute discounts never go below zero.
func ApplyDiscount(base decimal.Decimal, d *Discount, billingDate time.Time) decimal.Decimal {
	if !d.ActiveOn(billingDate) {
		return base
	}
	if d.IsPercentage {
		return base.Mul(decimal.NewFromInt(1).Sub(d.Value.Div(hundred)))
	}
	effective := base.Sub(d.Value)
	if effective.IsNegative() {
		return decimal.Zero
	}
	return effective
}

// ApplyPeriodDiscount is ApplyDiscount restricted to discounts that cover the
// billing period index. Used for monthly fees.
func ApplyPeriodDiscount(base decimal.Decimal, d *Discount, billingDate time.Time, periodIndex int) decimal.Decimal {
	if !d.AppliesToPeriod(periodIndex) {
		return base
	}
	return ApplyDiscount(base, d, billingDate)
}

// DiscountedCost returns the cost of quantity units at base price for one
// billing period. When FirstNKWh is set only the first N units of the billing
// year are discounted; consumedBefore is the quantity already billed earlier
// in that year. The result is in the unit of base times quantity.
func DiscountedCost(base decimal.Decimal, d *Discount, billingDate time.Time, periodIndex int, quantity, consumedBefore decimal.Decimal) decimal.Decimal {
	if !d.ActiveOn(billingDate) || !d.AppliesToPeriod(periodIndex) {
		return base.Mul(quantity)
	}
	effective := ApplyDiscount(base, d, billingDate)
	if d.FirstNKWh == nil {
		return effective.Mul(quantity)
	}

	remaining := d.FirstNKWh.Sub(consumedBefore)
	if remaining.IsNegative() {
		remaining = decimal.Zero
	}
	discounted := decimal.Min(quantity, remaining)
	return discounted.Mul(effective).Add(quantity.Sub(discounted).Mul(base))
}
