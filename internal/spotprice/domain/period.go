package spotprice

import (
	"time"
)

// PeriodType is the window a spot price average covers.
type PeriodType string

const (
	PeriodDaily       PeriodType = "daily"
	PeriodMonthly     PeriodType = "monthly"
	PeriodYearly      PeriodType = "yearly"
	PeriodRolling30d  PeriodType = "rolling_30d"
	PeriodRolling365d PeriodType = "rolling_365d"
)

// PeriodTypes lists every supported period type.
var PeriodTypes = []PeriodType{PeriodDaily, PeriodMonthly, PeriodYearly, PeriodRolling30d, PeriodRolling365d}

// IsValid reports whether the period type is supported.
func (p PeriodType) IsValid() bool {
	switch p {
	case PeriodDaily, PeriodMonthly, PeriodYearly, PeriodRolling30d, PeriodRolling365d:
		return true
	default:
		return false
	}
}

// IsRolling reports whether the period is a trailing window.
func (p PeriodType) IsRolling() bool {
	return p == PeriodRolling30d || p == PeriodRolling365d
}

// RollingDays returns the window length of a rolling period type.
func (p PeriodType) RollingDays() int {
	switch p {
	case PeriodRolling30d:
		return 30
	case PeriodRolling365d:
		return 365
	default:
		return 0
	}
}

// TimeKey is the persisted key of a period within a period type.
// Unique key: region + period type + time key.
type TimeKey string

// LiveTimeKey is the single key of a rolling window row.
const LiveTimeKey TimeKey = "live"

// String returns the raw string for storage.
func (k TimeKey) String() string { return string(k) }

// NewTimeKey builds the key for a period starting at periodStart, formatted
// in loc. Rolling types always map to LiveTimeKey.
func NewTimeKey(periodType PeriodType, periodStart time.Time, loc *time.Location) (TimeKey, error) {
	if periodType.IsRolling() {
		return LiveTimeKey, nil
	}
	if periodStart.IsZero() {
		return "", ErrInvalidPeriod
	}
	layout, err := timeKeyLayout(periodType)
	if err != nil {
		return "", err
	}
	return TimeKey(periodStart.In(loc).Format(layout)), nil
}

func timeKeyLayout(periodType PeriodType) (string, error) {
	switch periodType {
	case PeriodDaily:
		return "20060102", nil
	case PeriodMonthly:
		return "200601", nil
	case PeriodYearly:
		return "2006", nil
	default:
		return "", ErrInvalidPeriodType
	}
}

// Period is a half-open window [Start, End) in UTC.
type Period struct {
	Type    PeriodType
	TimeKey TimeKey
	Start   time.Time
	End     time.Time
}

// CalendarPeriod returns the calendar period of the given type containing t,
// with boundaries at local midnight in loc.
func CalendarPeriod(periodType PeriodType, t time.Time, loc *time.Location) (Period, error) {
	local := t.In(loc)
	var start, end time.Time
	switch periodType {
	case PeriodDaily:
		start = time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
		end = start.AddDate(0, 0, 1)
	case PeriodMonthly:
		start = time.Date(local.Year(), local.Month(), 1, 0, 0, 0, 0, loc)
		end = start.AddDate(0, 1, 0)
	case PeriodYearly:
		start = time.Date(local.Year(), time.January, 1, 0, 0, 0, 0, loc)
		end = start.AddDate(1, 0, 0)
	default:
		return Period{}, ErrInvalidPeriodType
	}
	key, err := NewTimeKey(periodType, start, loc)
	if err != nil {
		return Period{}, err
	}
	return Period{Type: periodType, TimeKey: key, Start: start.UTC(), End: end.UTC()}, nil
}

// Previous returns the calendar period immediately before p.
func (p Period) Previous(loc *time.Location) (Period, error) {
	return CalendarPeriod(p.Type, p.Start.Add(-time.Hour), loc)
}

// RollingWindow returns the trailing window [now - N days, now) with now
// truncated to the hour.
func RollingWindow(periodType PeriodType, now time.Time) (Period, error) {
	days := periodType.RollingDays()
	if days == 0 {
		return Period{}, ErrInvalidPeriodType
	}
	end := now.UTC().Truncate(time.Hour)
	return Period{
		Type:    periodType,
		TimeKey: LiveTimeKey,
		Start:   end.AddDate(0, 0, -days),
		End:     end,
	}, nil
}

// CalendarPeriodsBetween lists the calendar periods of the given type that
// overlap [from, to).
func CalendarPeriodsBetween(periodType PeriodType, from, to time.Time, loc *time.Location) ([]Period, error) {
	if !from.Before(to) {
		return nil, ErrInvalidDateRange
	}
	var periods []Period
	cursor := from
	for cursor.Before(to) {
		p, err := CalendarPeriod(periodType, cursor, loc)
		if err != nil {
			return nil, err
		}
		periods = append(periods, p)
		cursor = p.End
	}
	return periods, nil
}
