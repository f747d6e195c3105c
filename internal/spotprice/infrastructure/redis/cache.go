package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"

	spotprice "electricity-compare/internal/spotprice/domain"
)

const (
	defaultKeyPrefix = "spot:latest:"
	defaultTTL       = 15 * time.Minute
)

// LatestAveragesCache stores latest averages as JSON in Redis.
type LatestAveragesCache struct {
	client goredis.Cmdable
	prefix string
	ttl    time.Duration
}

// CacheOption configures the cache.
type CacheOption func(*LatestAveragesCache)

// WithKeyPrefix overrides the key prefix.
func WithKeyPrefix(prefix string) CacheOption {
	return func(c *LatestAveragesCache) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

// WithTTL overrides the entry ttl.
func WithTTL(ttl time.Duration) CacheOption {
	return func(c *LatestAveragesCache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

// NewLatestAveragesCache constructs a cache. It returns nil for a nil client.
func NewLatestAveragesCache(client goredis.Cmdable, opts ...CacheOption) *LatestAveragesCache {
	if client == nil {
		return nil
	}
	c := &LatestAveragesCache{client: client, prefix: defaultKeyPrefix, ttl: defaultTTL}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get returns the cached averages of a region.
func (c *LatestAveragesCache) Get(ctx context.Context, region string) (*spotprice.LatestAverages, bool, error) {
	if c == nil || c.client == nil {
		return nil, false, errors.New("latest averages cache: nil client")
	}
	raw, err := c.client.Get(ctx, c.key(region)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	var latest spotprice.LatestAverages
	if err := json.Unmarshal(raw, &latest); err != nil {
		// A stale encoding is treated as a miss.
		_ = c.client.Del(ctx, c.key(region)).Err()
		return nil, false, nil
	}
	return &latest, true, nil
}

// Set stores the averages of a region.
func (c *LatestAveragesCache) Set(ctx context.Context, region string, averages *spotprice.LatestAverages) error {
	if c == nil || c.client == nil {
		return errors.New("latest averages cache: nil client")
	}
	if averages == nil {
		return nil
	}
	raw, err := json.Marshal(averages)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, c.key(region), raw, c.ttl).Err()
}

// Invalidate drops the cached averages of a region.
func (c *LatestAveragesCache) Invalidate(ctx context.Context, region string) error {
	if c == nil || c.client == nil {
		return errors.New("latest averages cache: nil client")
	}
	return c.client.Del(ctx, c.key(region)).Err()
}

func (c *LatestAveragesCache) key(region string) string {
	return c.prefix + region
}
