package spotprice

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is one upstream price observation in c/kWh without tax. The
// feed delivers hourly or quarter-hourly points.
type PricePoint struct {
	Timestamp time.Time
	Price     decimal.Decimal
}

// RateFunc returns the VAT rate in force at t.
type RateFunc func(t time.Time) decimal.Decimal

// FoldHourly turns price points into hourly rows for [start, end). Points
// with a zero timestamp or outside the window are dropped and counted as
// malformed. Points sharing an hour are averaged, so quarter-hour prices
// fold into one hourly mean. The result is ordered by timestamp.
func FoldHourly(region string, points []PricePoint, start, end time.Time, rate RateFunc) ([]SpotPriceHour, int) {
	type bucket struct {
		sum   decimal.Decimal
		count int64
	}
	buckets := make(map[time.Time]*bucket)
	malformed := 0
	for _, p := range points {
		if p.Timestamp.IsZero() || p.Timestamp.Before(start) || !p.Timestamp.Before(end) {
			malformed++
			continue
		}
		hour := p.Timestamp.UTC().Truncate(time.Hour)
		b, ok := buckets[hour]
		if !ok {
			b = &bucket{}
			buckets[hour] = b
		}
		b.sum = b.sum.Add(p.Price)
		b.count++
	}

	hours := make([]SpotPriceHour, 0, len(buckets))
	for hour, b := range buckets {
		price := b.sum
		if b.count > 1 {
			price = b.sum.Div(decimal.NewFromInt(b.count)).Round(AveragePlaces)
		}
		hours = append(hours, SpotPriceHour{
			Region:          region,
			Timestamp:       hour,
			PriceWithoutTax: price,
			VATRate:         rate(hour),
		})
	}
	sort.Slice(hours, func(i, j int) bool { return hours[i].Timestamp.Before(hours[j].Timestamp) })
	return hours, malformed
}
