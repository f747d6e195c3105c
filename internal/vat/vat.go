// Package vat resolves the Finnish electricity VAT rate for a point in time.
package vat

import (
	"sort"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
)

// DefaultZone is the zone in which the schedule dates are expressed.
const DefaultZone = "Europe/Helsinki"

// Change is one entry of the VAT schedule: Rate applies from EffectiveFrom (a
// zone-local calendar date) until the next entry.
type Change struct {
	EffectiveFrom time.Time
	Rate          decimal.Decimal
}

// Schedule is an ordered list of VAT changes. The first entry with a zero
// EffectiveFrom is the base rate.
type Schedule []Change

var (
	rateStandard = decimal.RequireFromString("0.24")
	rateReduced  = decimal.RequireFromString("0.10")
	rateRaised   = decimal.RequireFromString("0.255")
)

// FinnishSchedule is the electricity VAT history.
var FinnishSchedule = Schedule{
	{Rate: rateStandard},
	{EffectiveFrom: date(2022, time.December, 1), Rate: rateReduced},
	{EffectiveFrom: date(2023, time.May, 1), Rate: rateStandard},
	{EffectiveFrom: date(2024, time.September, 1), Rate: rateRaised},
}

// Resolver looks up VAT rates for instants in a fixed zone.
type Resolver struct {
	location *time.Location
	schedule Schedule
}

var defaultResolver = mustResolver(DefaultZone, FinnishSchedule)

// NewResolver builds a resolver for the given IANA zone and schedule.
func NewResolver(zone string, schedule Schedule) (*Resolver, error) {
	if zone == "" {
		zone = DefaultZone
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return nil, err
	}
	if len(schedule) == 0 {
		schedule = FinnishSchedule
	}
	sorted := append(Schedule(nil), schedule...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].EffectiveFrom.Before(sorted[j].EffectiveFrom)
	})
	return &Resolver{location: loc, schedule: sorted}, nil
}

func mustResolver(zone string, schedule Schedule) *Resolver {
	r, err := NewResolver(zone, schedule)
	if err != nil {
		panic(err)
	}
	return r
}

// Location returns the zone used for calendar comparisons.
func (r *Resolver) Location() *time.Location { return r.location }

// RateFor returns the VAT rate in force on the zone-local date of t.
func (r *Resolver) RateFor(t time.Time) decimal.Decimal {
	local := t.In(r.location)
	day := date(local.Year(), local.Month(), local.Day())

	rate := rateStandard
	for _, change := range r.schedule {
		if change.EffectiveFrom.After(day) {
			break
		}
		rate = change.Rate
	}
	return rate
}

// RateFor resolves the rate with the default Finnish schedule.
func RateFor(t time.Time) decimal.Decimal {
	return defaultResolver.RateFor(t)
}

// date returns a zone-less calendar date used for schedule comparison.
func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
