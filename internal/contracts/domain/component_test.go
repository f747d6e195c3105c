package contracts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }

func strPtr(s string) *string { return &s }

func TestSelectCurrent_LatestDateWins(t *testing.T) {
	rows := []PriceComponent{
		{ID: "a", Price: dec("5"), PriceDate: day(2024, 1, 1)},
		{ID: "b", Price: dec("6"), PriceDate: day(2024, 3, 1)},
		{ID: "c", Price: dec("7"), PriceDate: day(2024, 2, 1)},
	}
	got, ok := SelectCurrent(rows)
	require.True(t, ok)
	assert.Equal(t, "b", got.ID)
}

func TestSelectCurrent_PrefersNonZeroOnSameDate(t *testing.T) {
	rows := []PriceComponent{
		{ID: "zero", Price: dec("0"), PriceDate: day(2024, 3, 1)},
		{ID: "real", Price: dec("6.2"), PriceDate: day(2024, 3, 1)},
		{ID: "old", Price: dec("5"), PriceDate: day(2024, 1, 1)},
	}
	got, ok := SelectCurrent(rows)
	require.True(t, ok)
	assert.Equal(t, "real", got.ID)

	// A zero price on the latest date is still taken when nothing else shares it.
	got, ok = SelectCurrent(rows[:1])
	require.True(t, ok)
	assert.Equal(t, "zero", got.ID)
}

func TestSelectCurrent_Empty(t *testing.T) {
	_, ok := SelectCurrent(nil)
	assert.False(t, ok)
}

func TestCurrentComponents_FuseSize(t *testing.T) {
	rows := []PriceComponent{
		{ID: "g", Type: ComponentGeneral, Price: dec("8"), PriceDate: day(2024, 1, 1)},
		{ID: "m-unsized", Type: ComponentMonthly, Price: dec("3.9"), PriceDate: day(2024, 1, 1)},
		{ID: "m-25", Type: ComponentMonthly, Price: dec("5.9"), PriceDate: day(2023, 6, 1), FuseSize: strPtr("3x25A")},
		{ID: "m-35", Type: ComponentMonthly, Price: dec("7.9"), PriceDate: day(2024, 6, 1), FuseSize: strPtr("3x35A")},
	}

	got := CurrentComponents(rows, strPtr("3x25A"))
	assert.Equal(t, "g", got[ComponentGeneral].ID)
	assert.Equal(t, "m-25", got[ComponentMonthly].ID)

	got = CurrentComponents(rows, nil)
	assert.Equal(t, "m-35", got[ComponentMonthly].ID)

	got = CurrentComponents(rows, strPtr("3x63A"))
	assert.Equal(t, "m-unsized", got[ComponentMonthly].ID)
}

func TestContract_IsConsumptionInRange(t *testing.T) {
	c := Contract{ConsumptionLimitationMin: intPtr(2000), ConsumptionLimitationMax: intPtr(10000)}
	assert.False(t, c.IsConsumptionInRange(1999))
	assert.True(t, c.IsConsumptionInRange(2000))
	assert.True(t, c.IsConsumptionInRange(10000))
	assert.False(t, c.IsConsumptionInRange(10001))

	open := Contract{}
	assert.True(t, open.IsConsumptionInRange(0))
	assert.True(t, open.IsConsumptionInRange(1_000_000))
}

func TestIncompleteTariffDataError_Is(t *testing.T) {
	err := error(&IncompleteTariffDataError{ContractID: "c1", Model: PricingModelFixed, Missing: []ComponentType{ComponentMonthly}})
	assert.ErrorIs(t, err, ErrIncompleteTariffData)
	assert.Contains(t, err.Error(), "Monthly")
}
