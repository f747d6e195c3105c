package http

import (
	"time"

	"github.com/shopspring/decimal"

	contractapp "electricity-compare/internal/contracts/application"
	contracts "electricity-compare/internal/contracts/domain"
)

type usageDTO struct {
	Total              int               `json:"total"`
	BasicLiving        int               `json:"basic_living"`
	RoomHeating        *int              `json:"room_heating,omitempty"`
	Water              *int              `json:"water,omitempty"`
	Sauna              *int              `json:"sauna,omitempty"`
	ElectricityVehicle *int              `json:"electricity_vehicle,omitempty"`
	Cooling            *int              `json:"cooling,omitempty"`
	HeatingByMonth     []decimal.Decimal `json:"heating_by_month,omitempty"`
}

func (u *usageDTO) toDomain() (*contracts.EnergyUsage, error) {
	if u == nil {
		return nil, nil
	}
	usage := &contracts.EnergyUsage{
		Total:              u.Total,
		BasicLiving:        u.BasicLiving,
		RoomHeating:        u.RoomHeating,
		Water:              u.Water,
		Sauna:              u.Sauna,
		ElectricityVehicle: u.ElectricityVehicle,
		Cooling:            u.Cooling,
	}
	if usage.BasicLiving == 0 {
		usage.BasicLiving = usage.Total
	}
	if len(u.HeatingByMonth) > 0 {
		if len(u.HeatingByMonth) != contracts.MonthsPerYear {
			return nil, contracts.ErrInvalidUsage
		}
		var months [contracts.MonthsPerYear]decimal.Decimal
		copy(months[:], u.HeatingByMonth)
		usage.HeatingElectricityUseByMonth = &months
	}
	return usage, usage.Validate()
}

func fromUsage(usage contracts.EnergyUsage) usageDTO {
	dto := usageDTO{
		Total:              usage.Total,
		BasicLiving:        usage.BasicLiving,
		RoomHeating:        usage.RoomHeating,
		Water:              usage.Water,
		Sauna:              usage.Sauna,
		ElectricityVehicle: usage.ElectricityVehicle,
		Cooling:            usage.Cooling,
	}
	if usage.HeatingElectricityUseByMonth != nil {
		dto.HeatingByMonth = append([]decimal.Decimal(nil), usage.HeatingElectricityUseByMonth[:]...)
	}
	return dto
}

type hourDTO struct {
	HourStart time.Time       `json:"hour_start"`
	KWh       decimal.Decimal `json:"kwh"`
}

type costRequest struct {
	Consumption   int              `json:"consumption"`
	Usage         *usageDTO        `json:"usage"`
	SpotDayAvg    *decimal.Decimal `json:"spot_day_avg"`
	SpotNightAvg  *decimal.Decimal `json:"spot_night_avg"`
	FuseSize      *string          `json:"fuse_size"`
	ReferenceDate string           `json:"reference_date"`
	HourlyProfile []hourDTO        `json:"hourly_profile"`
}

type resultDTO struct {
	ContractID                string            `json:"contract_id"`
	PricingModel              string            `json:"pricing_model"`
	Metering                  string            `json:"metering"`
	AnnualConsumptionKWh      int               `json:"annual_consumption_kwh"`
	TotalCost                 decimal.Decimal   `json:"total_cost"`
	AvgMonthlyCost            decimal.Decimal   `json:"avg_monthly_cost"`
	MonthlyCosts              []decimal.Decimal `json:"monthly_costs"`
	MonthlyFixedFee           *decimal.Decimal  `json:"monthly_fixed_fee,omitempty"`
	Margin                    *decimal.Decimal  `json:"margin,omitempty"`
	GeneralKWhPrice           *decimal.Decimal  `json:"general_kwh_price,omitempty"`
	DayKWhPrice               *decimal.Decimal  `json:"day_kwh_price,omitempty"`
	NightKWhPrice             *decimal.Decimal  `json:"night_kwh_price,omitempty"`
	SeasonalWinterDayKWhPrice *decimal.Decimal  `json:"seasonal_winter_day_kwh_price,omitempty"`
	SeasonalOtherKWhPrice     *decimal.Decimal  `json:"seasonal_other_kwh_price,omitempty"`
	SpotDayAvg                *decimal.Decimal  `json:"spot_day_avg,omitempty"`
	SpotNightAvg              *decimal.Decimal  `json:"spot_night_avg,omitempty"`
	IsSpotContract            bool              `json:"is_spot_contract"`
	EmissionsKgCO2            *decimal.Decimal  `json:"emissions_kg_co2,omitempty"`
}

func fromResult(r *contracts.PricingResult) resultDTO {
	return resultDTO{
		ContractID:                r.ContractID,
		PricingModel:              string(r.PricingModel),
		Metering:                  string(r.Metering),
		AnnualConsumptionKWh:      r.AnnualConsumptionKWh,
		TotalCost:                 r.TotalCost,
		AvgMonthlyCost:            r.AvgMonthlyCost,
		MonthlyCosts:              append([]decimal.Decimal(nil), r.MonthlyCosts[:]...),
		MonthlyFixedFee:           r.MonthlyFixedFee,
		Margin:                    r.Margin,
		GeneralKWhPrice:           r.GeneralKWhPrice,
		DayKWhPrice:               r.DayKWhPrice,
		NightKWhPrice:             r.NightKWhPrice,
		SeasonalWinterDayKWhPrice: r.SeasonalWinterDayKWhPrice,
		SeasonalOtherKWhPrice:     r.SeasonalOtherKWhPrice,
		SpotDayAvg:                r.SpotDayAvg,
		SpotNightAvg:              r.SpotNightAvg,
		IsSpotContract:            r.IsSpotContract,
		EmissionsKgCO2:            r.EmissionsKgCO2,
	}
}

type contractDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	CompanySlug  string `json:"company_slug"`
	PricingModel string `json:"pricing_model"`
	Metering     string `json:"metering"`
	Region       string `json:"region"`
}

func fromContract(c contracts.Contract) contractDTO {
	return contractDTO{
		ID:           c.ID,
		Name:         c.Name,
		CompanySlug:  c.CompanySlug,
		PricingModel: string(c.PricingModel),
		Metering:     string(c.Metering),
		Region:       c.Region,
	}
}

type rankedDTO struct {
	Rank     int         `json:"rank"`
	Contract contractDTO `json:"contract"`
	Result   resultDTO   `json:"result"`
}

type excludedDTO struct {
	Contract contractDTO `json:"contract"`
	Reason   string      `json:"reason"`
	Missing  []string    `json:"missing,omitempty"`
}

type comparisonDTO struct {
	Postcode             string        `json:"postcode,omitempty"`
	AnnualConsumptionKWh int           `json:"annual_consumption_kwh"`
	Ranked               []rankedDTO   `json:"ranked"`
	Excluded             []excludedDTO `json:"excluded"`
}

func fromRankResult(postcode string, r *contractapp.RankResult) comparisonDTO {
	dto := comparisonDTO{
		Postcode:             postcode,
		AnnualConsumptionKWh: r.AnnualConsumptionKWh,
		Ranked:               make([]rankedDTO, 0, len(r.Ranked)),
		Excluded:             make([]excludedDTO, 0, len(r.Excluded)),
	}
	for _, ranked := range r.Ranked {
		dto.Ranked = append(dto.Ranked, rankedDTO{
			Rank:     ranked.Rank,
			Contract: fromContract(ranked.Contract),
			Result:   fromResult(ranked.Result),
		})
	}
	for _, excluded := range r.Excluded {
		e := excludedDTO{Contract: fromContract(excluded.Contract), Reason: excluded.Reason}
		for _, m := range excluded.Missing {
			e.Missing = append(e.Missing, string(m))
		}
		dto.Excluded = append(dto.Excluded, e)
	}
	return dto
}
