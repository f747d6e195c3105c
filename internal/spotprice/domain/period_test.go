package spotprice

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCalendarPeriod_LocalBoundaries(t *testing.T) {
	loc := helsinki(t)

	// 22:30 UTC on Dec 31 is already Jan 1 in Helsinki.
	p, err := CalendarPeriod(PeriodYearly, time.Date(2023, 12, 31, 22, 30, 0, 0, time.UTC), loc)
	require.NoError(t, err)
	assert.Equal(t, TimeKey("2024"), p.TimeKey)
	assert.Equal(t, time.Date(2023, 12, 31, 22, 0, 0, 0, time.UTC), p.Start)

	m, err := CalendarPeriod(PeriodMonthly, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), loc)
	require.NoError(t, err)
	assert.Equal(t, TimeKey("202403"), m.TimeKey)
	// The month spans the spring DST switch.
	assert.Equal(t, 31*24-1, int(m.End.Sub(m.Start).Hours()))

	prev, err := m.Previous(loc)
	require.NoError(t, err)
	assert.Equal(t, TimeKey("202402"), prev.TimeKey)
	assert.Equal(t, m.Start, prev.End)
}

func TestRollingWindow_TruncatesToHour(t *testing.T) {
	now := time.Date(2024, 5, 10, 13, 47, 12, 0, time.UTC)
	w, err := RollingWindow(PeriodRolling365d, now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 5, 10, 13, 0, 0, 0, time.UTC), w.End)
	assert.Equal(t, time.Date(2023, 5, 11, 13, 0, 0, 0, time.UTC), w.Start)
	assert.Equal(t, LiveTimeKey, w.TimeKey)

	_, err = RollingWindow(PeriodDaily, now)
	assert.ErrorIs(t, err, ErrInvalidPeriodType)
}

func TestCalendarPeriodsBetween(t *testing.T) {
	loc := helsinki(t)
	from := time.Date(2024, 1, 20, 0, 0, 0, 0, loc)
	to := time.Date(2024, 3, 2, 0, 0, 0, 0, loc)

	periods, err := CalendarPeriodsBetween(PeriodMonthly, from, to, loc)
	require.NoError(t, err)
	keys := make([]TimeKey, 0, len(periods))
	for _, p := range periods {
		keys = append(keys, p.TimeKey)
	}
	assert.Equal(t, []TimeKey{"202401", "202402", "202403"}, keys)

	_, err = CalendarPeriodsBetween(PeriodMonthly, to, from, loc)
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestSpotPriceHour_Validate(t *testing.T) {
	ok := SpotPriceHour{Region: "FI", Timestamp: time.Date(2024, 1, 1, 5, 0, 0, 0, time.UTC)}
	assert.NoError(t, ok.Validate())

	bad := ok
	bad.Timestamp = bad.Timestamp.Add(15 * time.Minute)
	assert.ErrorIs(t, bad.Validate(), ErrInvalidTimestamp)

	bad = ok
	bad.Region = ""
	assert.ErrorIs(t, bad.Validate(), ErrEmptyRegion)
}
