package spotprice

import (
	"time"

	"github.com/shopspring/decimal"
)

// SpotPriceHour is one hourly day-ahead price, in c/kWh without tax, with the
// VAT rate in force for that hour.
type SpotPriceHour struct {
	Region          string
	Timestamp       time.Time
	PriceWithoutTax decimal.Decimal
	VATRate         decimal.Decimal
}

// Validate checks hour invariants.
func (h SpotPriceHour) Validate() error {
	if h.Region == "" {
		return ErrEmptyRegion
	}
	if h.Timestamp.IsZero() || !h.Timestamp.Equal(h.Timestamp.Truncate(time.Hour)) {
		return ErrInvalidTimestamp
	}
	return nil
}

// PriceWithTax returns the price including VAT.
func (h SpotPriceHour) PriceWithTax() decimal.Decimal {
	return h.PriceWithoutTax.Mul(decimal.NewFromInt(1).Add(h.VATRate))
}
