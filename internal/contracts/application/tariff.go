package application

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	contracts "electricity-compare/internal/contracts/domain"
)

var (
	defaultDayShare = decimal.RequireFromString("0.85")
	one             = decimal.NewFromInt(1)
	centsPerEuro    = decimal.NewFromInt(100)
	weekdayShare    = decimal.NewFromInt(5).Div(decimal.NewFromInt(7))
)

// DaySplit is the share of consumption assumed to fall in day hours.
// DayShare applies to basic living load and FlexibleDayShare to the rest
// (heating, water, sauna, vehicle, cooling). A zero FlexibleDayShare falls
// back to DayShare.
type DaySplit struct {
	DayShare         decimal.Decimal
	FlexibleDayShare decimal.Decimal
}

// DefaultDaySplit is the 85/15 day/night household split.
func DefaultDaySplit() DaySplit {
	return DaySplit{DayShare: defaultDayShare, FlexibleDayShare: defaultDayShare}
}

func (s DaySplit) withDefaults() DaySplit {
	if s.DayShare.IsZero() {
		s.DayShare = defaultDayShare
	}
	if s.FlexibleDayShare.IsZero() {
		s.FlexibleDayShare = s.DayShare
	}
	return s
}

// effectiveDayShare weights the two shares by the usage breakdown.
func (s DaySplit) effectiveDayShare(usage *contracts.EnergyUsage) decimal.Decimal {
	if usage == nil || usage.Total <= 0 {
		return s.DayShare
	}
	basic := usage.BasicLiving
	if basic > usage.Total {
		basic = usage.Total
	}
	flexible := usage.Total - basic
	weighted := decimal.NewFromInt(int64(basic)).Mul(s.DayShare).
		Add(decimal.NewFromInt(int64(flexible)).Mul(s.FlexibleDayShare))
	return weighted.Div(decimal.NewFromInt(int64(usage.Total)))
}

// billingPeriod is one month of a twelve month billing year starting at the
// reference date.
type billingPeriod struct {
	index int
	month time.Month
	start time.Time
	end   time.Time
	date  time.Time
	kwh   decimal.Decimal
}

func billingPeriods(ref time.Time, months [contracts.MonthsPerYear]decimal.Decimal) []billingPeriod {
	first := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, ref.Location())
	periods := make([]billingPeriod, 0, contracts.MonthsPerYear)
	for i := 0; i < contracts.MonthsPerYear; i++ {
		start := first.AddDate(0, i, 0)
		date := start
		if i == 0 {
			date = ref
		}
		periods = append(periods, billingPeriod{
			index: i + 1,
			month: start.Month(),
			start: start,
			end:   start.AddDate(0, 1, 0),
			date:  date,
			kwh:   months[start.Month()-1],
		})
	}
	return periods
}

func isWinterMonth(m time.Month) bool {
	return m >= time.November || m <= time.March
}

// meter prices consumption against one component, tracking the quantity
// billed so far in the year for first-N-kWh discounts.
type meter struct {
	component contracts.PriceComponent
	consumed  decimal.Decimal
}

func newMeter(component contracts.PriceComponent) *meter {
	return &meter{component: component}
}

// cost returns the cost of kwh in cents.
func (m *meter) cost(p billingPeriod, kwh decimal.Decimal) decimal.Decimal {
	c := contracts.DiscountedCost(m.component.Price, m.component.Discount, p.date, p.index, kwh, m.consumed)
	m.consumed = m.consumed.Add(kwh)
	return c
}

// HourlyConsumption is metered consumption for one hour.
type HourlyConsumption struct {
	HourStart time.Time
	KWh       decimal.Decimal
}

type pricingInput struct {
	contract     *contracts.Contract
	components   map[contracts.ComponentType]contracts.PriceComponent
	usage        *contracts.EnergyUsage
	split        DaySplit
	spotDay      *decimal.Decimal
	spotNight    *decimal.Decimal
	hourly       []HourlyConsumption
	hourlyPrices map[time.Time]decimal.Decimal
}

func (in *pricingInput) price(t contracts.ComponentType) decimal.Decimal {
	return in.components[t].Price
}

// tariff is the per-model pricing rule. energyCosts returns the energy cost
// of each billing period in cents; fees are handled by the engine.
type tariff interface {
	required() []contracts.ComponentType
	energyCosts(in *pricingInput, periods []billingPeriod) ([]decimal.Decimal, error)
	describe(in *pricingInput, result *contracts.PricingResult)
}

func selectTariff(contract *contracts.Contract) (tariff, error) {
	switch {
	case contract.PricingModel == contracts.PricingModelSpot:
		return spotTariff{}, nil
	case contract.Metering == contracts.MeteringSeasonal:
		return seasonalTariff{}, nil
	case contract.Metering == contracts.MeteringTime,
		contract.PricingModel == contracts.PricingModelTimeOfUse:
		return timeOfUseTariff{}, nil
	case contract.PricingModel == contracts.PricingModelFixed,
		contract.PricingModel == contracts.PricingModelOpenEnded:
		return generalTariff{}, nil
	default:
		return nil, fmt.Errorf("%w: %s/%s", contracts.ErrUnsupportedPricingModel, contract.PricingModel, contract.Metering)
	}
}

type generalTariff struct{}

func (generalTariff) required() []contracts.ComponentType {
	return []contracts.ComponentType{contracts.ComponentMonthly, contracts.ComponentGeneral}
}

func (generalTariff) energyCosts(in *pricingInput, periods []billingPeriod) ([]decimal.Decimal, error) {
	general := newMeter(in.components[contracts.ComponentGeneral])
	costs := make([]decimal.Decimal, len(periods))
	for i, p := range periods {
		costs[i] = general.cost(p, p.kwh)
	}
	return costs, nil
}

func (generalTariff) describe(in *pricingInput, result *contracts.PricingResult) {
	result.GeneralKWhPrice = decimalPtr(in.price(contracts.ComponentGeneral))
}

type timeOfUseTariff struct{}

func (timeOfUseTariff) required() []contracts.ComponentType {
	return []contracts.ComponentType{contracts.ComponentMonthly, contracts.ComponentDay, contracts.ComponentNight}
}

func (timeOfUseTariff) energyCosts(in *pricingInput, periods []billingPeriod) ([]decimal.Decimal, error) {
	share := in.split.effectiveDayShare(in.usage)
	day := newMeter(in.components[contracts.ComponentDay])
	night := newMeter(in.components[contracts.ComponentNight])
	costs := make([]decimal.Decimal, len(periods))
	for i, p := range periods {
		dayKWh := p.kwh.Mul(share)
		costs[i] = day.cost(p, dayKWh).Add(night.cost(p, p.kwh.Sub(dayKWh)))
	}
	return costs, nil
}

func (timeOfUseTariff) describe(in *pricingInput, result *contracts.PricingResult) {
	result.DayKWhPrice = decimalPtr(in.price(contracts.ComponentDay))
	result.NightKWhPrice = decimalPtr(in.price(contracts.ComponentNight))
}

// seasonalTariff prices weekday daytime consumption in November to March at
// the winter day price and everything else at the other-time price.
type seasonalTariff struct{}

func (seasonalTariff) required() []contracts.ComponentType {
	return []contracts.ComponentType{contracts.ComponentMonthly, contracts.ComponentSeasonalWinterDay, contracts.ComponentSeasonalOther}
}

func (seasonalTariff) energyCosts(in *pricingInput, periods []billingPeriod) ([]decimal.Decimal, error) {
	winterShare := in.split.effectiveDayShare(in.usage).Mul(weekdayShare)
	winterDay := newMeter(in.components[contracts.ComponentSeasonalWinterDay])
	other := newMeter(in.components[contracts.ComponentSeasonalOther])
	costs := make([]decimal.Decimal, len(periods))
	for i, p := range periods {
		if !isWinterMonth(p.month) {
			costs[i] = other.cost(p, p.kwh)
			continue
		}
		winterKWh := p.kwh.Mul(winterShare)
		costs[i] = winterDay.cost(p, winterKWh).Add(other.cost(p, p.kwh.Sub(winterKWh)))
	}
	return costs, nil
}

func (seasonalTariff) describe(in *pricingInput, result *contracts.PricingResult) {
	result.SeasonalWinterDayKWhPrice = decimalPtr(in.price(contracts.ComponentSeasonalWinterDay))
	result.SeasonalOtherKWhPrice = decimalPtr(in.price(contracts.ComponentSeasonalOther))
}

// spotTariff passes the wholesale price through with a margin. With an
// hourly profile each hour is priced at its own spot price; otherwise the
// day and night averages are blended by the day share.
type spotTariff struct{}

func (spotTariff) required() []contracts.ComponentType {
	return []contracts.ComponentType{contracts.ComponentMonthly, contracts.ComponentSpotMargin}
}

func (spotTariff) energyCosts(in *pricingInput, periods []billingPeriod) ([]decimal.Decimal, error) {
	margin := newMeter(in.components[contracts.ComponentSpotMargin])
	costs := make([]decimal.Decimal, len(periods))

	if len(in.hourly) > 0 {
		spotCents := make([]decimal.Decimal, len(periods))
		for _, h := range in.hourly {
			price, ok := in.hourlyPrices[h.HourStart.UTC()]
			if !ok {
				return nil, fmt.Errorf("%w: no spot price for %s", contracts.ErrIncompleteTariffData, h.HourStart.UTC().Format(time.RFC3339))
			}
			for i, p := range periods {
				if !h.HourStart.Before(p.start) && h.HourStart.Before(p.end) {
					spotCents[i] = spotCents[i].Add(h.KWh.Mul(price))
					break
				}
			}
		}
		for i, p := range periods {
			costs[i] = spotCents[i].Add(margin.cost(p, p.kwh))
		}
		return costs, nil
	}

	if in.spotDay == nil || in.spotNight == nil {
		return nil, fmt.Errorf("%w: no spot averages for region %s", contracts.ErrIncompleteTariffData, in.contract.Region)
	}
	share := in.split.effectiveDayShare(in.usage)
	spot := in.spotDay.Mul(share).Add(in.spotNight.Mul(one.Sub(share)))
	for i, p := range periods {
		costs[i] = spot.Mul(p.kwh).Add(margin.cost(p, p.kwh))
	}
	return costs, nil
}

func (spotTariff) describe(in *pricingInput, result *contracts.PricingResult) {
	result.Margin = decimalPtr(in.price(contracts.ComponentSpotMargin))
	result.IsSpotContract = true
	if len(in.hourly) == 0 {
		result.SpotDayAvg = copyDecimal(in.spotDay)
		result.SpotNightAvg = copyDecimal(in.spotNight)
	}
}

func missingComponents(t tariff, components map[contracts.ComponentType]contracts.PriceComponent) []contracts.ComponentType {
	var missing []contracts.ComponentType
	for _, required := range t.required() {
		if _, ok := components[required]; !ok {
			missing = append(missing, required)
		}
	}
	return missing
}

func decimalPtr(d decimal.Decimal) *decimal.Decimal { return &d }

func copyDecimal(d *decimal.Decimal) *decimal.Decimal {
	if d == nil {
		return nil
	}
	v := *d
	return &v
}
