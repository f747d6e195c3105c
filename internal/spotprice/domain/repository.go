package spotprice

import (
	"context"
	"time"
)

// HourRepository stores the hourly series. Inserts skip existing
// (region, timestamp) rows.
type HourRepository interface {
	InsertIfAbsent(ctx context.Context, hours []SpotPriceHour) (int, error)
	ListRange(ctx context.Context, region string, start, end time.Time) ([]SpotPriceHour, error)
	LatestTimestamp(ctx context.Context, region string) (time.Time, bool, error)
}

// AverageRepository stores averages keyed by (region, period type, time key).
type AverageRepository interface {
	Upsert(ctx context.Context, average SpotPriceAverage) error
	Get(ctx context.Context, region string, periodType PeriodType, timeKey TimeKey) (*SpotPriceAverage, error)
	Latest(ctx context.Context, region string, periodType PeriodType) (*SpotPriceAverage, error)
	// Delete removes the row of a key. Missing rows are not an error.
	Delete(ctx context.Context, region string, periodType PeriodType, timeKey TimeKey) error
}

// LatestAveragesCache caches the latest averages read model per region.
type LatestAveragesCache interface {
	Get(ctx context.Context, region string) (*LatestAverages, bool, error)
	Set(ctx context.Context, region string, averages *LatestAverages) error
	Invalidate(ctx context.Context, region string) error
}
