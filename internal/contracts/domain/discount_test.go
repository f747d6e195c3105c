package contracts

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func intPtr(v int) *int { return &v }

func TestApplyDiscount_Percentage(t *testing.T) {
	d := &Discount{IsPercentage: true, Value: dec("10")}
	got := ApplyDiscount(dec("100"), d, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, got.Equal(dec("90")), "got %s", got)
}

func TestApplyDiscount_AbsoluteFloorsAtZero(t *testing.T) {
	d := &Discount{Value: dec("150")}
	got := ApplyDiscount(dec("100"), d, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, got.IsZero(), "got %s", got)

	d = &Discount{Value: dec("0.5")}
	got = ApplyDiscount(dec("8.5"), d, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.True(t, got.Equal(dec("8")), "got %s", got)
}

func TestApplyDiscount_AbsentOrExpired(t *testing.T) {
	billing := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	assert.True(t, ApplyDiscount(dec("7"), nil, billing).Equal(dec("7")))

	until := billing
	d := &Discount{IsPercentage: true, Value: dec("50"), UntilDate: &until}
	assert.True(t, ApplyDiscount(dec("7"), d, billing).Equal(dec("7")), "until date is exclusive")
	assert.True(t, ApplyDiscount(dec("7"), d, billing.Add(-time.Hour)).Equal(dec("3.5")))
}

func TestDiscount_AppliesToPeriod(t *testing.T) {
	d := &Discount{FirstNMonths: intPtr(3)}
	assert.True(t, d.AppliesToPeriod(1))
	assert.True(t, d.AppliesToPeriod(3))
	assert.False(t, d.AppliesToPeriod(4))

	var none *Discount
	assert.False(t, none.AppliesToPeriod(1))
	assert.True(t, (&Discount{}).AppliesToPeriod(12))
}

func TestDiscountedCost_FirstNKWhBlends(t *testing.T) {
	billing := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	n := dec("1000")
	d := &Discount{IsPercentage: true, Value: dec("100"), FirstNKWh: &n}

	// 1500 kWh at 10 c with the first 1000 free.
	cost := DiscountedCost(dec("10"), d, billing, 1, dec("1500"), decimal.Zero)
	assert.True(t, cost.Equal(dec("5000")), "got %s", cost)

	// 800 kWh already billed: only 200 remain discounted.
	cost = DiscountedCost(dec("10"), d, billing, 2, dec("500"), dec("800"))
	assert.True(t, cost.Equal(dec("3000")), "got %s", cost)

	// Allowance used up.
	cost = DiscountedCost(dec("10"), d, billing, 3, dec("500"), dec("1200"))
	assert.True(t, cost.Equal(dec("5000")), "got %s", cost)
}

func TestDiscountedCost_PeriodLimit(t *testing.T) {
	billing := time.Date(2024, 1, 31, 0, 0, 0, 0, time.UTC)
	d := &Discount{IsPercentage: true, Value: dec("20"), FirstNMonths: intPtr(2)}

	assert.True(t, DiscountedCost(dec("10"), d, billing, 2, dec("100"), decimal.Zero).Equal(dec("800")))
	assert.True(t, DiscountedCost(dec("10"), d, billing, 3, dec("100"), decimal.Zero).Equal(dec("1000")))
}
