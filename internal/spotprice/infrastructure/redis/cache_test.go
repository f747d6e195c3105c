package redis

import (
	"context"
	"os"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	spotprice "electricity-compare/internal/spotprice/domain"
)

func TestNewLatestAveragesCache_NilClient(t *testing.T) {
	assert.Nil(t, NewLatestAveragesCache(nil))
}

func TestLatestAveragesCache_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	client := goredis.NewClient(&goredis.Options{Addr: addr})
	defer client.Close()

	ctx := context.Background()
	cache := NewLatestAveragesCache(client, WithKeyPrefix("test:spot:latest:"), WithTTL(time.Minute))
	require.NoError(t, cache.Invalidate(ctx, "FI"))

	_, ok, err := cache.Get(ctx, "FI")
	require.NoError(t, err)
	assert.False(t, ok)

	day := decimal.RequireFromString("9.123456")
	latest := &spotprice.LatestAverages{
		Region: "FI",
		Daily: &spotprice.SpotPriceAverage{
			Region:        "FI",
			PeriodType:    spotprice.PeriodDaily,
			TimeKey:       "20240315",
			AvgWithTax:    decimal.RequireFromString("8.5"),
			DayAvgWithTax: &day,
			HoursCount:    24,
		},
	}
	require.NoError(t, cache.Set(ctx, "FI", latest))

	got, ok, err := cache.Get(ctx, "FI")
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, got.Daily)
	assert.Equal(t, spotprice.TimeKey("20240315"), got.Daily.TimeKey)
	assert.True(t, got.Daily.DayAvgWithTax.Equal(day))
	assert.Nil(t, got.Monthly)

	require.NoError(t, cache.Invalidate(ctx, "FI"))
	_, ok, err = cache.Get(ctx, "FI")
	require.NoError(t, err)
	assert.False(t, ok)
}
