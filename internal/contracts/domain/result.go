package contracts

import "github.com/shopspring/decimal"

// PricingResult is the cost of one contract for one usage profile. Pointer
// fields are set only when they apply to the contract's pricing model.
type PricingResult struct {
	ContractID           string
	PricingModel         PricingModel
	Metering             Metering
	AnnualConsumptionKWh int
	TotalCost            decimal.Decimal
	AvgMonthlyCost       decimal.Decimal
	MonthlyCosts         [MonthsPerYear]decimal.Decimal

	MonthlyFixedFee           *decimal.Decimal
	Margin                    *decimal.Decimal
	GeneralKWhPrice           *decimal.Decimal
	DayKWhPrice               *decimal.Decimal
	NightKWhPrice             *decimal.Decimal
	SeasonalWinterDayKWhPrice *decimal.Decimal
	SeasonalOtherKWhPrice     *decimal.Decimal
	SpotDayAvg                *decimal.Decimal
	SpotNightAvg              *decimal.Decimal
	IsSpotContract            bool
	EmissionsKgCO2            *decimal.Decimal
}
