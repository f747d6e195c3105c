package spotstats

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	contractsapp "electricity-compare/internal/contracts/application"
	spotprice "electricity-compare/internal/spotprice/domain"
)

// LatestAveragesReader returns the latest averages of a region.
type LatestAveragesReader interface {
	GetLatestAverages(ctx context.Context, region string) (*spotprice.LatestAverages, error)
}

// Reader serves spot statistics to the pricing engine from the spot series.
type Reader struct {
	averages LatestAveragesReader
	hours    spotprice.HourRepository
}

// NewReader constructs a reader.
func NewReader(averages LatestAveragesReader, hours spotprice.HourRepository) *Reader {
	return &Reader{averages: averages, hours: hours}
}

// RollingAverages returns the day and night averages of the rolling 365 day
// window. It returns nil when the window has no day or night average yet.
func (r *Reader) RollingAverages(ctx context.Context, region string) (*contractsapp.SpotAverages, error) {
	if r == nil || r.averages == nil {
		return nil, errors.New("spot statistics: nil averages reader")
	}
	latest, err := r.averages.GetLatestAverages(ctx, region)
	if err != nil {
		return nil, err
	}
	if latest == nil || latest.Rolling365d == nil {
		return nil, nil
	}
	avg := latest.Rolling365d
	if avg.DayAvgWithTax == nil || avg.NightAvgWithTax == nil {
		return nil, nil
	}
	return &contractsapp.SpotAverages{Day: *avg.DayAvgWithTax, Night: *avg.NightAvgWithTax}, nil
}

// HourlyPricesWithTax returns stored hourly prices with tax for [start, end),
// keyed by UTC hour start.
func (r *Reader) HourlyPricesWithTax(ctx context.Context, region string, start, end time.Time) (map[time.Time]decimal.Decimal, error) {
	if r == nil || r.hours == nil {
		return nil, errors.New("spot statistics: nil hour repository")
	}
	hours, err := r.hours.ListRange(ctx, region, start, end)
	if err != nil {
		return nil, err
	}
	prices := make(map[time.Time]decimal.Decimal, len(hours))
	for _, h := range hours {
		prices[h.Timestamp.UTC()] = h.PriceWithTax()
	}
	return prices, nil
}
