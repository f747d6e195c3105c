package contracts

import "context"

// ComponentReader loads a contract and every stored component observation in
// one consistent read.
type ComponentReader interface {
	LoadPricingData(ctx context.Context, contractID string) (*Contract, []PriceComponent, error)
}

// ContractRepository lists and loads contracts.
type ContractRepository interface {
	Get(ctx context.Context, id string) (*Contract, error)
	ListActive(ctx context.Context) ([]Contract, error)
	ListActiveByPostcode(ctx context.Context, postcode string) ([]Contract, error)
}

// CatalogWriter applies a catalog snapshot atomically: companies, contracts,
// components (insert-if-absent), postcodes and futures, with the active
// contract set fully replaced.
type CatalogWriter interface {
	ApplySnapshot(ctx context.Context, snapshot CatalogSnapshot) (ApplyStats, error)
}
