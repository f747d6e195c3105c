package spotprice

import (
	"time"

	"github.com/shopspring/decimal"
)

// AveragePlaces is the number of decimal places averages are rounded to.
const AveragePlaces = 6

// Day hours are local [DayStartHour, DayEndHour).
const (
	DayStartHour = 7
	DayEndHour   = 22
)

// IsDayHour reports whether the hour starting at t is a day hour in loc.
func IsDayHour(t time.Time, loc *time.Location) bool {
	h := t.In(loc).Hour()
	return h >= DayStartHour && h < DayEndHour
}

// Aggregate computes the average row for [start, end) over the given hours.
// Hours outside the window or for another region are ignored. CalculatedAt is
// copied from calculatedAt; every other field depends only on the window and
// the hours, not on their order.
func Aggregate(region string, periodType PeriodType, timeKey TimeKey, start, end time.Time, hours []SpotPriceHour, loc *time.Location, calculatedAt time.Time) (SpotPriceAverage, error) {
	if region == "" {
		return SpotPriceAverage{}, ErrEmptyRegion
	}
	if !periodType.IsValid() {
		return SpotPriceAverage{}, ErrInvalidPeriodType
	}
	if !start.Before(end) {
		return SpotPriceAverage{}, ErrInvalidPeriod
	}
	if loc == nil {
		loc = time.UTC
	}

	var (
		count                  int
		sumWithout, sumWith    decimal.Decimal
		dayCount, nightCount   int
		daySum, nightSum       decimal.Decimal
		minWithTax, maxWithTax decimal.Decimal
	)
	for _, h := range hours {
		if h.Region != region || h.Timestamp.Before(start) || !h.Timestamp.Before(end) {
			continue
		}
		withTax := h.PriceWithTax()
		if count == 0 {
			minWithTax, maxWithTax = withTax, withTax
		} else {
			minWithTax = decimal.Min(minWithTax, withTax)
			maxWithTax = decimal.Max(maxWithTax, withTax)
		}
		count++
		sumWithout = sumWithout.Add(h.PriceWithoutTax)
		sumWith = sumWith.Add(withTax)
		if IsDayHour(h.Timestamp, loc) {
			dayCount++
			daySum = daySum.Add(withTax)
		} else {
			nightCount++
			nightSum = nightSum.Add(withTax)
		}
	}
	if count == 0 {
		return SpotPriceAverage{}, ErrNoSpotPrices
	}

	return SpotPriceAverage{
		Region:          region,
		PeriodType:      periodType,
		TimeKey:         timeKey,
		PeriodStart:     start.UTC(),
		PeriodEnd:       end.UTC(),
		AvgWithoutTax:   mean(sumWithout, count),
		AvgWithTax:      mean(sumWith, count),
		DayAvgWithTax:   optionalMean(daySum, dayCount),
		NightAvgWithTax: optionalMean(nightSum, nightCount),
		Min:             minWithTax.Round(AveragePlaces),
		Max:             maxWithTax.Round(AveragePlaces),
		HoursCount:      count,
		CalculatedAt:    calculatedAt.UTC(),
	}, nil
}

func mean(sum decimal.Decimal, n int) decimal.Decimal {
	return sum.Div(decimal.NewFromInt(int64(n))).Round(AveragePlaces)
}

func optionalMean(sum decimal.Decimal, n int) *decimal.Decimal {
	if n == 0 {
		return nil
	}
	m := mean(sum, n)
	return &m
}
