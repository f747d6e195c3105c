package memory

import (
	"context"
	"sync"

	spotprice "electricity-compare/internal/spotprice/domain"
)

type averageKey struct {
	region     string
	periodType spotprice.PeriodType
	timeKey    spotprice.TimeKey
}

// AverageRepository is an in-memory keyed average store for demo/testing.
type AverageRepository struct {
	mu     sync.RWMutex
	data   map[averageKey]spotprice.SpotPriceAverage
	writes int
}

// NewAverageRepository constructs a repository.
func NewAverageRepository() *AverageRepository {
	return &AverageRepository{data: make(map[averageKey]spotprice.SpotPriceAverage)}
}

// Upsert replaces the row for the average's key.
func (r *AverageRepository) Upsert(ctx context.Context, average spotprice.SpotPriceAverage) error {
	_ = ctx
	if average.Region == "" {
		return spotprice.ErrEmptyRegion
	}
	if !average.PeriodType.IsValid() {
		return spotprice.ErrInvalidPeriodType
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[averageKey{region: average.Region, periodType: average.PeriodType, timeKey: average.TimeKey}] = average
	r.writes++
	return nil
}

// Get loads the average for a key.
func (r *AverageRepository) Get(ctx context.Context, region string, periodType spotprice.PeriodType, timeKey spotprice.TimeKey) (*spotprice.SpotPriceAverage, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	avg, ok := r.data[averageKey{region: region, periodType: periodType, timeKey: timeKey}]
	if !ok {
		return nil, spotprice.ErrAverageNotFound
	}
	return &avg, nil
}

// Latest returns the average with the latest period start for a type.
func (r *AverageRepository) Latest(ctx context.Context, region string, periodType spotprice.PeriodType) (*spotprice.SpotPriceAverage, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var latest *spotprice.SpotPriceAverage
	for key, avg := range r.data {
		if key.region != region || key.periodType != periodType {
			continue
		}
		if latest == nil || avg.PeriodStart.After(latest.PeriodStart) {
			avg := avg
			latest = &avg
		}
	}
	if latest == nil {
		return nil, spotprice.ErrAverageNotFound
	}
	return latest, nil
}

// Delete removes the row of a key.
func (r *AverageRepository) Delete(ctx context.Context, region string, periodType spotprice.PeriodType, timeKey spotprice.TimeKey) error {
	_ = ctx
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.data, averageKey{region: region, periodType: periodType, timeKey: timeKey})
	return nil
}

// Len returns the number of stored rows.
func (r *AverageRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}

// Writes returns the number of upserts performed.
func (r *AverageRepository) Writes() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.writes
}
