package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	contracts "electricity-compare/internal/contracts/domain"
	"electricity-compare/internal/observability/metrics"
)

// DefaultRegion is used for contracts without a price region.
const DefaultRegion = "FI"

// CostRequest asks for the cost of one contract. Usage wins over
// Consumption; HourlyProfile switches spot contracts to hour-by-hour pricing.
// SpotDayAvg and SpotNightAvg override the stored rolling averages when both
// are set.
type CostRequest struct {
	ContractID    string
	Usage         *contracts.EnergyUsage
	Consumption   int
	SpotDayAvg    *decimal.Decimal
	SpotNightAvg  *decimal.Decimal
	FuseSize      *string
	ReferenceDate *time.Time
	HourlyProfile []HourlyConsumption
}

// SpotAverages are the day and night spot price averages with tax, c/kWh.
type SpotAverages struct {
	Day   decimal.Decimal
	Night decimal.Decimal
}

// SpotStatistics reads spot price statistics for spot contracts.
type SpotStatistics interface {
	RollingAverages(ctx context.Context, region string) (*SpotAverages, error)
	HourlyPricesWithTax(ctx context.Context, region string, start, end time.Time) (map[time.Time]decimal.Decimal, error)
}

// EmissionsEstimator estimates the CO2 of consumption under an energy mix.
type EmissionsEstimator interface {
	EstimateEmissions(sources contracts.EnergySources, kwh int) (decimal.Decimal, bool)
}

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// SystemClock uses time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// PricingEngine computes contract costs from stored price components.
type PricingEngine struct {
	reader    contracts.ComponentReader
	spot      SpotStatistics
	emissions EmissionsEstimator
	split     DaySplit
	location  *time.Location
	clock     Clock
	logger    *zap.Logger
}

// PricingOption configures the engine.
type PricingOption func(*PricingEngine)

// WithSpotStatistics sets the spot statistics source.
func WithSpotStatistics(spot SpotStatistics) PricingOption {
	return func(e *PricingEngine) { e.spot = spot }
}

// WithEmissionsEstimator enables CO2 estimates in results.
func WithEmissionsEstimator(estimator EmissionsEstimator) PricingOption {
	return func(e *PricingEngine) { e.emissions = estimator }
}

// WithDaySplit overrides the day/night split.
func WithDaySplit(split DaySplit) PricingOption {
	return func(e *PricingEngine) { e.split = split.withDefaults() }
}

// WithLocation sets the zone billing months are counted in.
func WithLocation(loc *time.Location) PricingOption {
	return func(e *PricingEngine) {
		if loc != nil {
			e.location = loc
		}
	}
}

// WithClock overrides the clock.
func WithClock(clock Clock) PricingOption {
	return func(e *PricingEngine) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) PricingOption {
	return func(e *PricingEngine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// NewPricingEngine constructs the engine.
func NewPricingEngine(reader contracts.ComponentReader, opts ...PricingOption) (*PricingEngine, error) {
	if reader == nil {
		return nil, errors.New("pricing engine: nil component reader")
	}
	engine := &PricingEngine{
		reader:   reader,
		split:    DefaultDaySplit(),
		location: time.UTC,
		clock:    SystemClock{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(engine)
	}
	return engine, nil
}

// CalculateCost prices one contract for a usage profile.
func (e *PricingEngine) CalculateCost(ctx context.Context, req CostRequest) (*contracts.PricingResult, error) {
	if req.ContractID == "" {
		return nil, contracts.ErrEmptyContractID
	}
	usage, err := e.resolveUsage(req)
	if err != nil {
		return nil, err
	}

	contract, components, err := e.reader.LoadPricingData(ctx, req.ContractID)
	if err != nil {
		return nil, err
	}
	if contract == nil {
		return nil, contracts.ErrContractNotFound
	}

	result, err := e.price(ctx, contract, components, usage, req)
	outcome := metrics.ResultSuccess
	switch {
	case errors.Is(err, contracts.ErrIncompleteTariffData):
		outcome = metrics.PricingOutcomeIncomplete
	case err != nil:
		outcome = metrics.ResultError
	}
	metrics.IncPricing(string(contract.PricingModel), outcome)
	if err != nil {
		e.logger.Debug("contract pricing failed",
			zap.String("contract_id", contract.ID),
			zap.String("pricing_model", string(contract.PricingModel)),
			zap.Error(err),
		)
		return nil, err
	}
	return result, nil
}

func (e *PricingEngine) resolveUsage(req CostRequest) (*contracts.EnergyUsage, error) {
	if len(req.HourlyProfile) > 0 {
		total := decimal.Zero
		for _, h := range req.HourlyProfile {
			if h.KWh.IsNegative() {
				return nil, contracts.ErrInvalidUsage
			}
			total = total.Add(h.KWh)
		}
		return contracts.NewUsage(int(total.Round(0).IntPart())), nil
	}
	if req.Usage != nil {
		if err := req.Usage.Validate(); err != nil {
			return nil, err
		}
		return req.Usage, nil
	}
	if req.Consumption < 0 {
		return nil, contracts.ErrInvalidUsage
	}
	return contracts.NewUsage(req.Consumption), nil
}

func (e *PricingEngine) price(ctx context.Context, contract *contracts.Contract, components []contracts.PriceComponent, usage *contracts.EnergyUsage, req CostRequest) (*contracts.PricingResult, error) {
	t, err := selectTariff(contract)
	if err != nil {
		return nil, err
	}
	current := contracts.CurrentComponents(components, req.FuseSize)
	if missing := missingComponents(t, current); len(missing) > 0 {
		return nil, &contracts.IncompleteTariffDataError{
			ContractID: contract.ID,
			Model:      contract.PricingModel,
			Missing:    missing,
		}
	}

	in := &pricingInput{
		contract:   contract,
		components: current,
		usage:      usage,
		split:      e.split,
	}

	ref := e.clock.Now().In(e.location)
	if req.ReferenceDate != nil {
		ref = req.ReferenceDate.In(e.location)
	}
	if len(req.HourlyProfile) > 0 {
		ref = earliestHour(req.HourlyProfile).In(e.location)
	}
	periods := billingPeriods(ref, usage.MonthlyKWh())

	if contract.IsSpot() {
		if err := e.loadSpotInputs(ctx, in, req, periods); err != nil {
			return nil, err
		}
	}

	energy, err := t.energyCosts(in, periods)
	if err != nil {
		return nil, err
	}

	fee := current[contracts.ComponentMonthly]
	result := &contracts.PricingResult{
		ContractID:           contract.ID,
		PricingModel:         contract.PricingModel,
		Metering:             contract.Metering,
		AnnualConsumptionKWh: usage.Total,
		MonthlyFixedFee:      decimalPtr(fee.Price),
	}

	total := decimal.Zero
	for i, p := range periods {
		monthly := contracts.ApplyPeriodDiscount(fee.Price, fee.Discount, p.date, p.index).
			Add(energy[i].Div(centsPerEuro))
		total = total.Add(monthly)
		result.MonthlyCosts[p.month-1] = monthly.Round(2)
	}
	result.TotalCost = total.Round(2)
	result.AvgMonthlyCost = total.Div(decimal.NewFromInt(contracts.MonthsPerYear)).Round(2)
	t.describe(in, result)

	if e.emissions != nil {
		if co2, ok := e.emissions.EstimateEmissions(contract.EnergySources, usage.Total); ok {
			result.EmissionsKgCO2 = &co2
		}
	}
	return result, nil
}

func (e *PricingEngine) loadSpotInputs(ctx context.Context, in *pricingInput, req CostRequest, periods []billingPeriod) error {
	region := in.contract.Region
	if region == "" {
		region = DefaultRegion
	}

	if len(req.HourlyProfile) > 0 {
		if e.spot == nil {
			return fmt.Errorf("%w: no spot price source", contracts.ErrIncompleteTariffData)
		}
		prices, err := e.spot.HourlyPricesWithTax(ctx, region, periods[0].start.UTC(), periods[len(periods)-1].end.UTC())
		if err != nil {
			return err
		}
		in.hourly = req.HourlyProfile
		in.hourlyPrices = prices
		for i := range periods {
			periods[i].kwh = decimal.Zero
		}
		for _, h := range req.HourlyProfile {
			for i := range periods {
				if !h.HourStart.Before(periods[i].start) && h.HourStart.Before(periods[i].end) {
					periods[i].kwh = periods[i].kwh.Add(h.KWh)
					break
				}
			}
		}
		return nil
	}

	if req.SpotDayAvg != nil && req.SpotNightAvg != nil {
		in.spotDay, in.spotNight = req.SpotDayAvg, req.SpotNightAvg
		return nil
	}
	if e.spot == nil {
		return fmt.Errorf("%w: no spot averages for region %s", contracts.ErrIncompleteTariffData, region)
	}
	averages, err := e.spot.RollingAverages(ctx, region)
	if err != nil {
		return err
	}
	if averages != nil {
		in.spotDay = decimalPtr(averages.Day)
		in.spotNight = decimalPtr(averages.Night)
	}
	return nil
}

func earliestHour(hours []HourlyConsumption) time.Time {
	earliest := hours[0].HourStart
	for _, h := range hours[1:] {
		if h.HourStart.Before(earliest) {
			earliest = h.HourStart
		}
	}
	return earliest
}
