package spotprice

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func flatRate(time.Time) decimal.Decimal { return dec("0.255") }

func TestFoldHourly_QuarterHours(t *testing.T) {
	start := time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	points := []PricePoint{
		{Timestamp: start, Price: dec("4")},
		{Timestamp: start.Add(15 * time.Minute), Price: dec("5")},
		{Timestamp: start.Add(30 * time.Minute), Price: dec("6")},
		{Timestamp: start.Add(45 * time.Minute), Price: dec("7")},
		{Timestamp: start.Add(time.Hour), Price: dec("-0.5")},
		{Timestamp: time.Time{}, Price: dec("1")},
		{Timestamp: end, Price: dec("1")},
		{Timestamp: start.Add(-time.Minute), Price: dec("1")},
	}

	hours, malformed := FoldHourly("FI", points, start, end, flatRate)
	assert.Equal(t, 3, malformed)
	require.Len(t, hours, 2)
	assert.Equal(t, start, hours[0].Timestamp)
	assert.True(t, hours[0].PriceWithoutTax.Equal(dec("5.5")), "got %s", hours[0].PriceWithoutTax)
	assert.True(t, hours[1].PriceWithoutTax.Equal(dec("-0.5")))
	assert.True(t, hours[1].VATRate.Equal(dec("0.255")))
	assert.Equal(t, "FI", hours[1].Region)
}

func TestFoldHourly_UsesRateOfEachHour(t *testing.T) {
	boundary := time.Date(2024, 8, 31, 21, 0, 0, 0, time.UTC)
	rate := func(ts time.Time) decimal.Decimal {
		if ts.Before(boundary) {
			return dec("0.24")
		}
		return dec("0.255")
	}
	points := []PricePoint{
		{Timestamp: boundary.Add(-time.Hour), Price: dec("3")},
		{Timestamp: boundary, Price: dec("3")},
	}
	hours, malformed := FoldHourly("FI", points, boundary.Add(-time.Hour), boundary.Add(time.Hour), rate)
	assert.Zero(t, malformed)
	require.Len(t, hours, 2)
	assert.True(t, hours[0].VATRate.Equal(dec("0.24")))
	assert.True(t, hours[1].VATRate.Equal(dec("0.255")))
}
