package contracts

import "time"

// Company is an electricity retailer.
type Company struct {
	Slug string
	Name string
}

// ContractPostcode marks a contract as offered in a postcode area.
type ContractPostcode struct {
	ContractID string
	Postcode   string
}

// CatalogSnapshot is the normalized result of one catalog sync cycle. It is
// applied as a single unit.
type CatalogSnapshot struct {
	ObservedAt time.Time
	Companies  []Company
	Contracts  []Contract
	Components []PriceComponent
	Postcodes  []ContractPostcode
	// Futures are announced components dated after ObservedAt.
	Futures []PriceComponent
	// RetainPostcodes are postcodes whose fetch failed this cycle. Contracts
	// already active in them stay active.
	RetainPostcodes []string
}

// ActiveContractIDs lists the contracts seen in the snapshot.
func (s CatalogSnapshot) ActiveContractIDs() []string {
	ids := make([]string, 0, len(s.Contracts))
	seen := make(map[string]struct{}, len(s.Contracts))
	for _, c := range s.Contracts {
		if _, ok := seen[c.ID]; ok {
			continue
		}
		seen[c.ID] = struct{}{}
		ids = append(ids, c.ID)
	}
	return ids
}

// ApplyStats counts rows written by a snapshot.
type ApplyStats struct {
	Companies          int
	Contracts          int
	ComponentsInserted int
	Postcodes          int
	Futures            int
	ActiveContracts    int
}
