package contracts

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// ComponentType is the kind of unit price or fee a price component carries.
type ComponentType string

const (
	ComponentGeneral           ComponentType = "General"
	ComponentMonthly           ComponentType = "Monthly"
	ComponentNight             ComponentType = "Night"
	ComponentDay               ComponentType = "Day"
	ComponentSeasonalWinterDay ComponentType = "SeasonalWinterDay"
	ComponentSeasonalOther     ComponentType = "SeasonalOther"
	ComponentSpotMargin        ComponentType = "SpotMargin"
)

// IsValid reports whether the component type is known.
func (t ComponentType) IsValid() bool {
	switch t {
	case ComponentGeneral, ComponentMonthly, ComponentNight, ComponentDay,
		ComponentSeasonalWinterDay, ComponentSeasonalOther, ComponentSpotMargin:
		return true
	default:
		return false
	}
}

// PaymentUnit values used by the catalog feed.
const (
	PaymentUnitCentsPerKWh   = "c/kWh"
	PaymentUnitEurosPerMonth = "EUR/month"
)

// PriceComponent is one dated observation of a contract unit price or fee.
// Rows are never updated; a new observation date creates a new row.
type PriceComponent struct {
	ID          string
	ContractID  string
	Type        ComponentType
	Price       decimal.Decimal
	PaymentUnit string
	PriceDate   time.Time
	FuseSize    *string
	Discount    *Discount
}

// Validate checks component invariants.
func (c PriceComponent) Validate() error {
	if c.ContractID == "" {
		return ErrEmptyContractID
	}
	if !c.Type.IsValid() || c.PriceDate.IsZero() {
		return ErrInvalidComponent
	}
	return nil
}

// fuseKey returns the fuse size or "" for unsized rows.
func (c PriceComponent) fuseKey() string {
	if c.FuseSize == nil {
		return ""
	}
	return *c.FuseSize
}

// SelectCurrent picks the current row from observations of one contract and
// type: the latest price date wins, and among rows sharing that date a
// non-zero price is preferred because the feed occasionally publishes
// transient zero prices.
func SelectCurrent(components []PriceComponent) (PriceComponent, bool) {
	if len(components) == 0 {
		return PriceComponent{}, false
	}

	best := components[0]
	for _, c := range components[1:] {
		switch {
		case c.PriceDate.After(best.PriceDate):
			best = c
		case c.PriceDate.Equal(best.PriceDate) && best.Price.IsZero() && !c.Price.IsZero():
			best = c
		}
	}
	return best, true
}

// CurrentComponents groups observations by type and selects the current row
// of each. When fuseSize is set, rows for other fuse sizes are ignored and a
// matching sized row is preferred over an unsized one.
func CurrentComponents(components []PriceComponent, fuseSize *string) map[ComponentType]PriceComponent {
	byType := make(map[ComponentType][]PriceComponent)
	for _, c := range components {
		byType[c.Type] = append(byType[c.Type], c)
	}

	result := make(map[ComponentType]PriceComponent, len(byType))
	for componentType, rows := range byType {
		var sized, unsized []PriceComponent
		for _, row := range rows {
			key := row.fuseKey()
			switch {
			case key == "":
				unsized = append(unsized, row)
			case fuseSize != nil && key == *fuseSize:
				sized = append(sized, row)
			case fuseSize == nil:
				unsized = append(unsized, row)
			}
		}
		candidates := sized
		if len(candidates) == 0 {
			candidates = unsized
		}
		if current, ok := SelectCurrent(candidates); ok {
			result[componentType] = current
		}
	}
	return result
}

// SortComponents orders components deterministically for persistence and tests.
func SortComponents(components []PriceComponent) {
	sort.SliceStable(components, func(i, j int) bool {
		a, b := components[i], components[j]
		if a.ContractID != b.ContractID {
			return a.ContractID < b.ContractID
		}
		if a.Type != b.Type {
			return a.Type < b.Type
		}
		if a.fuseKey() != b.fuseKey() {
			return a.fuseKey() < b.fuseKey()
		}
		return a.PriceDate.Before(b.PriceDate)
	})
}
