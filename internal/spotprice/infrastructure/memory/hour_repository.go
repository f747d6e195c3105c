package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	spotprice "electricity-compare/internal/spotprice/domain"
)

type hourKey struct {
	region string
	at     int64
}

// HourRepository is an in-memory hourly series for demo/testing.
type HourRepository struct {
	mu   sync.RWMutex
	data map[hourKey]spotprice.SpotPriceHour
}

// NewHourRepository constructs a repository.
func NewHourRepository() *HourRepository {
	return &HourRepository{data: make(map[hourKey]spotprice.SpotPriceHour)}
}

// InsertIfAbsent stores hours whose (region, timestamp) is new.
func (r *HourRepository) InsertIfAbsent(ctx context.Context, hours []spotprice.SpotPriceHour) (int, error) {
	_ = ctx
	for _, h := range hours {
		if err := h.Validate(); err != nil {
			return 0, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	inserted := 0
	for _, h := range hours {
		key := hourKey{region: h.Region, at: h.Timestamp.Unix()}
		if _, ok := r.data[key]; ok {
			continue
		}
		h.Timestamp = h.Timestamp.UTC()
		r.data[key] = h
		inserted++
	}
	return inserted, nil
}

// ListRange returns hours in [start, end) ordered by timestamp.
func (r *HourRepository) ListRange(ctx context.Context, region string, start, end time.Time) ([]spotprice.SpotPriceHour, error) {
	_ = ctx
	if region == "" {
		return nil, spotprice.ErrEmptyRegion
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	var result []spotprice.SpotPriceHour
	for key, h := range r.data {
		if key.region != region || h.Timestamp.Before(start) || !h.Timestamp.Before(end) {
			continue
		}
		result = append(result, h)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Timestamp.Before(result[j].Timestamp) })
	return result, nil
}

// LatestTimestamp returns the newest stored hour of a region.
func (r *HourRepository) LatestTimestamp(ctx context.Context, region string) (time.Time, bool, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()

	var latest time.Time
	found := false
	for key, h := range r.data {
		if key.region != region {
			continue
		}
		if !found || h.Timestamp.After(latest) {
			latest = h.Timestamp
			found = true
		}
	}
	return latest, found, nil
}

// Count returns the number of stored hours.
func (r *HourRepository) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.data)
}
