package contracts

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricingModel is the tariff shape of a contract.
type PricingModel string

const (
	PricingModelFixed     PricingModel = "Fixed"
	PricingModelSpot      PricingModel = "Spot"
	PricingModelOpenEnded PricingModel = "OpenEnded"
	PricingModelTimeOfUse PricingModel = "TimeOfUse"
)

// IsValid reports whether the pricing model is supported.
func (m PricingModel) IsValid() bool {
	switch m {
	case PricingModelFixed, PricingModelSpot, PricingModelOpenEnded, PricingModelTimeOfUse:
		return true
	default:
		return false
	}
}

// Metering is how consumption is metered for a contract.
type Metering string

const (
	MeteringGeneral  Metering = "General"
	MeteringTime     Metering = "Time"
	MeteringSeasonal Metering = "Seasonal"
)

// IsValid reports whether the metering type is supported.
func (m Metering) IsValid() bool {
	switch m {
	case MeteringGeneral, MeteringTime, MeteringSeasonal:
		return true
	default:
		return false
	}
}

// EnergySources is the declared production mix of a contract, in percent.
type EnergySources struct {
	RenewablePercent decimal.Decimal
	NuclearPercent   decimal.Decimal
	FossilPercent    decimal.Decimal
}

// IsZero reports whether no mix was declared.
func (s EnergySources) IsZero() bool {
	return s.RenewablePercent.IsZero() && s.NuclearPercent.IsZero() && s.FossilPercent.IsZero()
}

// Contract is an electricity retail contract.
type Contract struct {
	ID                       string
	UpstreamID               string
	CompanySlug              string
	Name                     string
	PricingModel             PricingModel
	Metering                 Metering
	ConsumptionLimitationMin *int
	ConsumptionLimitationMax *int
	Region                   string
	EnergySources            EnergySources
	CreatedAt                time.Time
	UpdatedAt                time.Time
}

// Validate checks the contract invariants.
func (c *Contract) Validate() error {
	if c.ID == "" {
		return ErrEmptyContractID
	}
	if !c.PricingModel.IsValid() || !c.Metering.IsValid() {
		return ErrUnsupportedPricingModel
	}
	return nil
}

// IsSpot reports whether the contract follows the spot price.
func (c *Contract) IsSpot() bool { return c.PricingModel == PricingModelSpot }

// IsConsumptionInRange reports whether the annual consumption is accepted by
// the contract. Bounds are inclusive and a nil bound is unbounded.
func (c *Contract) IsConsumptionInRange(kwh int) bool {
	if c.ConsumptionLimitationMin != nil && kwh < *c.ConsumptionLimitationMin {
		return false
	}
	if c.ConsumptionLimitationMax != nil && kwh > *c.ConsumptionLimitationMax {
		return false
	}
	return true
}
