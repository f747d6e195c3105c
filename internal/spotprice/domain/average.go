package spotprice

import (
	"time"

	"github.com/shopspring/decimal"
)

// SpotPriceAverage is a derived statistic over the hourly series. Rows are
// disposable and replaced on every recomputation of their key.
type SpotPriceAverage struct {
	Region          string
	PeriodType      PeriodType
	TimeKey         TimeKey
	PeriodStart     time.Time
	PeriodEnd       time.Time
	AvgWithoutTax   decimal.Decimal
	AvgWithTax      decimal.Decimal
	DayAvgWithTax   *decimal.Decimal
	NightAvgWithTax *decimal.Decimal
	Min             decimal.Decimal
	Max             decimal.Decimal
	HoursCount      int
	CalculatedAt    time.Time
}

// LatestAverages is the read model used by pricing and the API.
type LatestAverages struct {
	Region      string
	Daily       *SpotPriceAverage
	Monthly     *SpotPriceAverage
	Rolling30d  *SpotPriceAverage
	Rolling365d *SpotPriceAverage
}
