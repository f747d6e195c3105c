package contracts

import (
	"github.com/shopspring/decimal"
)

// MonthsPerYear is the number of billing periods in a year.
const MonthsPerYear = 12

// EnergyUsage is a household consumption profile in kWh per year. Total is
// authoritative; the parts are optional breakdowns.
type EnergyUsage struct {
	Total                        int
	BasicLiving                  int
	RoomHeating                  *int
	Water                        *int
	Sauna                        *int
	ElectricityVehicle           *int
	Cooling                      *int
	HeatingElectricityUseByMonth *[MonthsPerYear]decimal.Decimal
}

// NewUsage returns a usage profile with only a total.
func NewUsage(total int) *EnergyUsage {
	return &EnergyUsage{Total: total, BasicLiving: total}
}

// Validate checks the profile can be priced.
func (u *EnergyUsage) Validate() error {
	if u == nil || u.Total < 0 || u.BasicLiving < 0 {
		return ErrInvalidUsage
	}
	return nil
}

// MonthlyKWh splits the annual total over the calendar months. When a monthly
// heating profile is given, the non-heating part is spread evenly and each
// month carries its own heating load. Months never go negative.
func (u *EnergyUsage) MonthlyKWh() [MonthsPerYear]decimal.Decimal {
	var months [MonthsPerYear]decimal.Decimal
	total := decimal.NewFromInt(int64(u.Total))
	twelve := decimal.NewFromInt(MonthsPerYear)

	if u.HeatingElectricityUseByMonth == nil {
		for i := range months {
			months[i] = total.Div(twelve)
		}
		return months
	}

	heating := decimal.Zero
	for _, h := range u.HeatingElectricityUseByMonth {
		heating = heating.Add(h)
	}
	base := total.Sub(heating).Div(twelve)
	for i, h := range u.HeatingElectricityUseByMonth {
		m := base.Add(h)
		if m.IsNegative() {
			m = decimal.Zero
		}
		months[i] = m
	}
	return months
}

// FlexibleKWh is the part of the total that is not basic living load.
func (u *EnergyUsage) FlexibleKWh() int {
	flexible := u.Total - u.BasicLiving
	if flexible < 0 {
		return 0
	}
	return flexible
}
