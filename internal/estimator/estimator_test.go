package estimator

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contracts "electricity-compare/internal/contracts/domain"
)

func TestEstimateConsumption_Apartment(t *testing.T) {
	result, err := EstimateConsumption(BuildingParams{
		BuildingType:  BuildingApartment,
		AreaM2:        60,
		Residents:     2,
		HeatingMethod: HeatingDistrict,
	})
	require.NoError(t, err)
	assert.Equal(t, 1800, result.Usage.Total)
	assert.Equal(t, 1800, result.Usage.BasicLiving)
	assert.Nil(t, result.Usage.RoomHeating)
	assert.Nil(t, result.Usage.HeatingElectricityUseByMonth)
}

func TestEstimateConsumption_ElectricHeatedHouse(t *testing.T) {
	result, err := EstimateConsumption(BuildingParams{
		BuildingType:        BuildingDetached,
		AreaM2:              150,
		Residents:           4,
		HeatingMethod:       HeatingDirectElectric,
		ElectricWaterHeater: true,
		SaunaPerWeek:        2,
		EVKmPerWeek:         200,
		Cooling:             true,
	})
	require.NoError(t, err)
	usage := result.Usage

	require.NotNil(t, usage.RoomHeating)
	assert.Equal(t, 18000, *usage.RoomHeating)
	assert.Equal(t, 3600, usage.BasicLiving)
	assert.Equal(t, 4000, *usage.Water)
	assert.Equal(t, 728, *usage.Sauna)
	assert.Equal(t, 1872, *usage.ElectricityVehicle)
	assert.Equal(t, 750, *usage.Cooling)
	assert.Equal(t, 3600+18000+4000+728+1872+750, usage.Total)

	require.NotNil(t, usage.HeatingElectricityUseByMonth)
	sum := decimal.Zero
	for _, m := range usage.HeatingElectricityUseByMonth {
		sum = sum.Add(m)
	}
	assert.True(t, sum.Equal(decimal.NewFromInt(18000)))
	assert.True(t, usage.HeatingElectricityUseByMonth[0].Equal(decimal.NewFromInt(2880)))
	assert.True(t, usage.HeatingElectricityUseByMonth[6].Equal(decimal.NewFromInt(180)))
}

func TestEstimateConsumption_Invalid(t *testing.T) {
	_, err := EstimateConsumption(BuildingParams{BuildingType: "castle", AreaM2: 10, Residents: 1, HeatingMethod: HeatingOil})
	require.ErrorIs(t, err, ErrInvalidBuildingType)

	_, err = EstimateConsumption(BuildingParams{BuildingType: BuildingApartment, AreaM2: 10, Residents: 1, HeatingMethod: "peat"})
	require.ErrorIs(t, err, ErrInvalidHeatingMethod)

	_, err = EstimateConsumption(BuildingParams{BuildingType: BuildingApartment, AreaM2: 0, Residents: 1, HeatingMethod: HeatingOil})
	require.ErrorIs(t, err, ErrInvalidParams)
}

func TestParse(t *testing.T) {
	bt, err := ParseBuildingType(" Row_House ")
	require.NoError(t, err)
	assert.Equal(t, BuildingRowHouse, bt)

	hm, err := ParseHeatingMethod("GROUND_SOURCE_HEAT_PUMP")
	require.NoError(t, err)
	assert.Equal(t, HeatingGroundSource, hm)

	_, err = ParseHeatingMethod("")
	require.ErrorIs(t, err, ErrInvalidHeatingMethod)
}

func TestEstimateEmissions(t *testing.T) {
	sources := contracts.EnergySources{
		RenewablePercent: decimal.NewFromInt(60),
		NuclearPercent:   decimal.NewFromInt(30),
		FossilPercent:    decimal.NewFromInt(10),
	}
	// (60*15 + 30*5 + 10*750) / 100 = 85.5 g/kWh
	kg, ok := EstimateEmissions(sources, 5000)
	require.True(t, ok)
	assert.Equal(t, "427.5", kg.String())

	_, ok = EstimateEmissions(contracts.EnergySources{}, 5000)
	assert.False(t, ok)
}
