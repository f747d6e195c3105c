package spotstats

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	spotprice "electricity-compare/internal/spotprice/domain"
	"electricity-compare/internal/spotprice/infrastructure/memory"
)

type staticAverages struct{ latest *spotprice.LatestAverages }

func (s staticAverages) GetLatestAverages(ctx context.Context, region string) (*spotprice.LatestAverages, error) {
	return s.latest, nil
}

func TestRollingAverages(t *testing.T) {
	day := decimal.RequireFromString("9.5")
	night := decimal.RequireFromString("4.25")
	reader := NewReader(staticAverages{latest: &spotprice.LatestAverages{
		Region:      "FI",
		Rolling365d: &spotprice.SpotPriceAverage{DayAvgWithTax: &day, NightAvgWithTax: &night},
	}}, nil)

	averages, err := reader.RollingAverages(context.Background(), "FI")
	require.NoError(t, err)
	require.NotNil(t, averages)
	assert.True(t, averages.Day.Equal(day))
	assert.True(t, averages.Night.Equal(night))
}

func TestRollingAverages_MissingWindow(t *testing.T) {
	reader := NewReader(staticAverages{latest: &spotprice.LatestAverages{Region: "FI"}}, nil)
	averages, err := reader.RollingAverages(context.Background(), "FI")
	require.NoError(t, err)
	assert.Nil(t, averages)
}

func TestHourlyPricesWithTax(t *testing.T) {
	repo := memory.NewHourRepository()
	start := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	_, err := repo.InsertIfAbsent(context.Background(), []spotprice.SpotPriceHour{
		{Region: "FI", Timestamp: start, PriceWithoutTax: decimal.RequireFromString("10"), VATRate: decimal.RequireFromString("0.24")},
		{Region: "FI", Timestamp: start.Add(time.Hour), PriceWithoutTax: decimal.RequireFromString("5"), VATRate: decimal.RequireFromString("0.255")},
	})
	require.NoError(t, err)

	prices, err := NewReader(nil, repo).HourlyPricesWithTax(context.Background(), "FI", start, start.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, prices, 2)
	assert.Equal(t, "12.4", prices[start].String())
	assert.Equal(t, "6.275", prices[start.Add(time.Hour)].String())
}
