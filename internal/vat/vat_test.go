package vat

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func helsinki(t *testing.T, year int, month time.Month, day, hour int) time.Time {
	t.Helper()
	loc, err := time.LoadLocation(DefaultZone)
	require.NoError(t, err)
	return time.Date(year, month, day, hour, 0, 0, 0, loc)
}

func TestRateFor_Boundaries(t *testing.T) {
	cases := []struct {
		name string
		at   time.Time
		want string
	}{
		{"before reduced period", helsinki(t, 2022, time.November, 30, 23), "0.24"},
		{"reduced period starts", helsinki(t, 2022, time.December, 1, 0), "0.1"},
		{"last reduced day", helsinki(t, 2023, time.April, 30, 23), "0.1"},
		{"reduced period ends", helsinki(t, 2023, time.May, 1, 0), "0.24"},
		{"day before raise", helsinki(t, 2024, time.August, 31, 23), "0.24"},
		{"raise starts", helsinki(t, 2024, time.September, 1, 0), "0.255"},
		{"long after raise", helsinki(t, 2026, time.January, 15, 12), "0.255"},
		{"early history", helsinki(t, 2015, time.June, 1, 12), "0.24"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := RateFor(tc.at)
			assert.True(t, got.Equal(decimal.RequireFromString(tc.want)), "got %s want %s", got, tc.want)
		})
	}
}

func TestRateFor_ConvertsToLocalDate(t *testing.T) {
	// 2024-08-31T21:30Z is already 2024-09-01 00:30 in Helsinki (UTC+3).
	at := time.Date(2024, time.August, 31, 21, 30, 0, 0, time.UTC)
	assert.True(t, RateFor(at).Equal(decimal.RequireFromString("0.255")))

	// 2022-11-30T21:59Z is 23:59 local on the 30th (UTC+2 in winter).
	at = time.Date(2022, time.November, 30, 21, 59, 0, 0, time.UTC)
	assert.True(t, RateFor(at).Equal(decimal.RequireFromString("0.24")))
}

func TestRateFor_OnlyKnownRates(t *testing.T) {
	allowed := []decimal.Decimal{rateReduced, rateStandard, rateRaised}
	start := time.Date(2021, time.January, 1, 0, 0, 0, 0, time.UTC)
	for d := start; d.Before(time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)); d = d.Add(13 * time.Hour) {
		rate := RateFor(d)
		found := false
		for _, a := range allowed {
			if rate.Equal(a) {
				found = true
				break
			}
		}
		require.True(t, found, "unexpected rate %s at %s", rate, d)
	}
}

func TestNewResolver_SortsSchedule(t *testing.T) {
	r, err := NewResolver("Europe/Helsinki", Schedule{
		{EffectiveFrom: date(2030, time.January, 1), Rate: decimal.RequireFromString("0.3")},
		{Rate: decimal.RequireFromString("0.2")},
	})
	require.NoError(t, err)
	assert.True(t, r.RateFor(helsinki(t, 2029, time.December, 31, 12)).Equal(decimal.RequireFromString("0.2")))
	assert.True(t, r.RateFor(helsinki(t, 2030, time.January, 1, 0)).Equal(decimal.RequireFromString("0.3")))
}
