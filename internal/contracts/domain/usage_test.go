package contracts

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestMonthlyKWh_Even(t *testing.T) {
	months := NewUsage(6000).MonthlyKWh()
	for _, m := range months {
		assert.True(t, m.Equal(dec("500")), "got %s", m)
	}
}

func TestMonthlyKWh_HeatingProfile(t *testing.T) {
	var heating [MonthsPerYear]decimal.Decimal
	heating[0] = dec("1200")
	heating[11] = dec("1200")
	usage := &EnergyUsage{Total: 8400, BasicLiving: 6000, HeatingElectricityUseByMonth: &heating}

	months := usage.MonthlyKWh()
	assert.True(t, months[0].Equal(dec("1700")), "got %s", months[0])
	assert.True(t, months[5].Equal(dec("500")), "got %s", months[5])

	sum := decimal.Zero
	for _, m := range months {
		sum = sum.Add(m)
	}
	assert.True(t, sum.Equal(dec("8400")), "got %s", sum)
}

func TestMonthlyKWh_NeverNegative(t *testing.T) {
	var heating [MonthsPerYear]decimal.Decimal
	heating[0] = dec("2400")
	usage := &EnergyUsage{Total: 1200, HeatingElectricityUseByMonth: &heating}

	months := usage.MonthlyKWh()
	assert.True(t, months[1].IsZero(), "got %s", months[1])
	assert.True(t, months[0].Equal(dec("2300")), "got %s", months[0])
}
