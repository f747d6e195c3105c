package estimator

import (
	"github.com/shopspring/decimal"

	contracts "electricity-compare/internal/contracts/domain"
)

// EmissionFactors are life-cycle emissions in gCO2 per kWh by source.
type EmissionFactors struct {
	Renewable decimal.Decimal
	Nuclear   decimal.Decimal
	Fossil    decimal.Decimal
}

// DefaultEmissionFactors are averages for the Nordic market.
func DefaultEmissionFactors() EmissionFactors {
	return EmissionFactors{
		Renewable: decimal.NewFromInt(15),
		Nuclear:   decimal.NewFromInt(5),
		Fossil:    decimal.NewFromInt(750),
	}
}

// Emissions estimates CO2 from a contract energy mix.
type Emissions struct {
	factors EmissionFactors
}

// NewEmissions constructs an estimator with the given factors.
func NewEmissions(factors EmissionFactors) *Emissions {
	return &Emissions{factors: factors}
}

var hundred = decimal.NewFromInt(100)
var thousand = decimal.NewFromInt(1000)

// EstimateEmissions returns kgCO2 per year for kwh under the mix, rounded to
// two decimals. It reports false when the contract declares no mix.
func (e *Emissions) EstimateEmissions(sources contracts.EnergySources, kwh int) (decimal.Decimal, bool) {
	if sources.IsZero() || kwh < 0 {
		return decimal.Zero, false
	}
	grams := sources.RenewablePercent.Mul(e.factors.Renewable).
		Add(sources.NuclearPercent.Mul(e.factors.Nuclear)).
		Add(sources.FossilPercent.Mul(e.factors.Fossil)).
		Div(hundred)
	return grams.Mul(decimal.NewFromInt(int64(kwh))).Div(thousand).Round(2), true
}

// EstimateEmissions uses the default factors.
func EstimateEmissions(sources contracts.EnergySources, kwh int) (decimal.Decimal, bool) {
	return NewEmissions(DefaultEmissionFactors()).EstimateEmissions(sources, kwh)
}
