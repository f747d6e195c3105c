package estimator

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	contracts "electricity-compare/internal/contracts/domain"
)

var (
	ErrInvalidBuildingType  = errors.New("estimator: invalid building type")
	ErrInvalidHeatingMethod = errors.New("estimator: invalid heating method")
	ErrInvalidParams        = errors.New("estimator: invalid building parameters")
)

// BuildingType is the kind of dwelling.
type BuildingType string

const (
	BuildingApartment BuildingType = "apartment"
	BuildingRowHouse  BuildingType = "row_house"
	BuildingDetached  BuildingType = "detached"
)

// HeatingMethod is the primary room heating of a dwelling.
type HeatingMethod string

const (
	HeatingDirectElectric HeatingMethod = "electricity"
	HeatingStorage        HeatingMethod = "storage_electricity"
	HeatingAirToWater     HeatingMethod = "air_to_water_heat_pump"
	HeatingGroundSource   HeatingMethod = "ground_source_heat_pump"
	HeatingAirSource      HeatingMethod = "air_source_heat_pump"
	HeatingDistrict       HeatingMethod = "district"
	HeatingOil            HeatingMethod = "oil"
	HeatingWood           HeatingMethod = "wood"
)

// BuildingParams describe a household for consumption estimation.
type BuildingParams struct {
	BuildingType        BuildingType  `json:"building_type"`
	AreaM2              int           `json:"area_m2"`
	Residents           int           `json:"residents"`
	HeatingMethod       HeatingMethod `json:"heating_method"`
	ElectricWaterHeater bool          `json:"electric_water_heater"`
	SaunaPerWeek        int           `json:"sauna_per_week"`
	EVKmPerWeek         int           `json:"ev_km_per_week"`
	Cooling             bool          `json:"cooling"`
}

// Result is the estimated annual consumption.
type Result struct {
	Usage contracts.EnergyUsage
}

const (
	residentKWh       = 400
	waterKWhPerPerson = 1000
	saunaKWhPerUse    = 7
	evKWhPerKm        = "0.18"
	coolingKWhPerM2   = 5
	weeksPerYear      = 52
)

var baseLoadKWh = map[BuildingType]int{
	BuildingApartment: 1000,
	BuildingRowHouse:  1500,
	BuildingDetached:  2000,
}

// Annual electric heating demand in kWh per m2.
var heatingKWhPerM2 = map[HeatingMethod]int{
	HeatingDirectElectric: 120,
	HeatingStorage:        120,
	HeatingAirSource:      80,
	HeatingAirToWater:     50,
	HeatingGroundSource:   40,
	HeatingDistrict:       0,
	HeatingOil:            0,
	HeatingWood:           0,
}

// Heating load share per calendar month, January first. Sums to 1.
var heatingMonthShares = [contracts.MonthsPerYear]string{
	"0.16", "0.14", "0.13", "0.09", "0.05", "0.02",
	"0.01", "0.02", "0.05", "0.09", "0.11", "0.13",
}

// ParseBuildingType normalizes a building type name.
func ParseBuildingType(s string) (BuildingType, error) {
	t := BuildingType(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := baseLoadKWh[t]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidBuildingType, s)
	}
	return t, nil
}

// ParseHeatingMethod normalizes a heating method name.
func ParseHeatingMethod(s string) (HeatingMethod, error) {
	m := HeatingMethod(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := heatingKWhPerM2[m]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidHeatingMethod, s)
	}
	return m, nil
}

// EstimateConsumption estimates the annual kWh of a household. Room heating
// is spread over the months by a Finnish heating season profile.
func EstimateConsumption(params BuildingParams) (*Result, error) {
	base, ok := baseLoadKWh[params.BuildingType]
	if !ok {
		return nil, ErrInvalidBuildingType
	}
	perM2, ok := heatingKWhPerM2[params.HeatingMethod]
	if !ok {
		return nil, ErrInvalidHeatingMethod
	}
	if params.AreaM2 <= 0 || params.Residents <= 0 || params.SaunaPerWeek < 0 || params.EVKmPerWeek < 0 {
		return nil, ErrInvalidParams
	}

	usage := contracts.EnergyUsage{BasicLiving: base + residentKWh*params.Residents}
	total := usage.BasicLiving

	if perM2 > 0 {
		heating := perM2 * params.AreaM2
		usage.RoomHeating = &heating
		total += heating

		var byMonth [contracts.MonthsPerYear]decimal.Decimal
		for i, share := range heatingMonthShares {
			byMonth[i] = decimal.NewFromInt(int64(heating)).Mul(decimal.RequireFromString(share))
		}
		usage.HeatingElectricityUseByMonth = &byMonth
	}
	if params.ElectricWaterHeater {
		water := waterKWhPerPerson * params.Residents
		usage.Water = &water
		total += water
	}
	if params.SaunaPerWeek > 0 {
		sauna := saunaKWhPerUse * params.SaunaPerWeek * weeksPerYear
		usage.Sauna = &sauna
		total += sauna
	}
	if params.EVKmPerWeek > 0 {
		ev := int(decimal.NewFromInt(int64(params.EVKmPerWeek * weeksPerYear)).
			Mul(decimal.RequireFromString(evKWhPerKm)).Round(0).IntPart())
		usage.ElectricityVehicle = &ev
		total += ev
	}
	if params.Cooling {
		cooling := coolingKWhPerM2 * params.AreaM2
		usage.Cooling = &cooling
		total += cooling
	}
	usage.Total = total
	return &Result{Usage: usage}, nil
}
