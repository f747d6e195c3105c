package memory

import (
	"context"
	"sync"

	spotprice "electricity-compare/internal/spotprice/domain"
)

// LatestAveragesCache keeps latest averages per region in process.
type LatestAveragesCache struct {
	mu   sync.RWMutex
	data map[string]spotprice.LatestAverages
}

// NewLatestAveragesCache constructs a cache.
func NewLatestAveragesCache() *LatestAveragesCache {
	return &LatestAveragesCache{data: make(map[string]spotprice.LatestAverages)}
}

// Get returns the cached averages of a region.
func (c *LatestAveragesCache) Get(ctx context.Context, region string) (*spotprice.LatestAverages, bool, error) {
	_ = ctx
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.data[region]
	if !ok {
		return nil, false, nil
	}
	return &v, true, nil
}

// Set stores the averages of a region.
func (c *LatestAveragesCache) Set(ctx context.Context, region string, averages *spotprice.LatestAverages) error {
	_ = ctx
	if averages == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[region] = *averages
	return nil
}

// Invalidate drops the cached averages of a region.
func (c *LatestAveragesCache) Invalidate(ctx context.Context, region string) error {
	_ = ctx
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, region)
	return nil
}
