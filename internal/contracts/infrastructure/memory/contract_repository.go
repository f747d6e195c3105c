package memory

import (
	"context"
	"sort"
	"sync"

	contracts "electricity-compare/internal/contracts/domain"
)

type componentKey struct {
	contractID string
	typ        contracts.ComponentType
	fuseSize   string
	priceDate  string
}

// ContractRepository is an in-memory contract store for demo/testing.
// It implements the reader, repository and catalog writer interfaces.
type ContractRepository struct {
	mu         sync.RWMutex
	companies  map[string]contracts.Company
	contracts  map[string]contracts.Contract
	components map[componentKey]contracts.PriceComponent
	futures    map[componentKey]contracts.PriceComponent
	postcodes  map[contracts.ContractPostcode]struct{}
	active     map[string]struct{}
}

// NewContractRepository constructs a repository.
func NewContractRepository() *ContractRepository {
	return &ContractRepository{
		companies:  make(map[string]contracts.Company),
		contracts:  make(map[string]contracts.Contract),
		components: make(map[componentKey]contracts.PriceComponent),
		futures:    make(map[componentKey]contracts.PriceComponent),
		postcodes:  make(map[contracts.ContractPostcode]struct{}),
		active:     make(map[string]struct{}),
	}
}

func keyOf(c contracts.PriceComponent) componentKey {
	key := componentKey{contractID: c.ContractID, typ: c.Type, priceDate: c.PriceDate.Format("2006-01-02")}
	if c.FuseSize != nil {
		key.fuseSize = *c.FuseSize
	}
	return key
}

// PutContract stores a contract and marks it active.
func (r *ContractRepository) PutContract(contract contracts.Contract, postcodes ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contracts[contract.ID] = contract
	r.active[contract.ID] = struct{}{}
	for _, p := range postcodes {
		r.postcodes[contracts.ContractPostcode{ContractID: contract.ID, Postcode: p}] = struct{}{}
	}
}

// AddComponents inserts components that are not stored yet and returns the
// number inserted.
func (r *ContractRepository) AddComponents(components ...contracts.PriceComponent) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.insertComponents(r.components, components)
}

func (r *ContractRepository) insertComponents(target map[componentKey]contracts.PriceComponent, components []contracts.PriceComponent) int {
	inserted := 0
	for _, c := range components {
		key := keyOf(c)
		if _, ok := target[key]; ok {
			continue
		}
		target[key] = c
		inserted++
	}
	return inserted
}

// LoadPricingData returns the contract and all of its component observations.
func (r *ContractRepository) LoadPricingData(ctx context.Context, contractID string) (*contracts.Contract, []contracts.PriceComponent, error) {
	_ = ctx
	if contractID == "" {
		return nil, nil, contracts.ErrEmptyContractID
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	contract, ok := r.contracts[contractID]
	if !ok {
		return nil, nil, contracts.ErrContractNotFound
	}
	var components []contracts.PriceComponent
	for key, c := range r.components {
		if key.contractID == contractID {
			components = append(components, c)
		}
	}
	contracts.SortComponents(components)
	return &contract, components, nil
}

// Get loads a contract.
func (r *ContractRepository) Get(ctx context.Context, id string) (*contracts.Contract, error) {
	_ = ctx
	if id == "" {
		return nil, contracts.ErrEmptyContractID
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	contract, ok := r.contracts[id]
	if !ok {
		return nil, contracts.ErrContractNotFound
	}
	return &contract, nil
}

// ListActive returns the active contracts ordered by id.
func (r *ContractRepository) ListActive(ctx context.Context) ([]contracts.Contract, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]contracts.Contract, 0, len(r.active))
	for id := range r.active {
		if c, ok := r.contracts[id]; ok {
			result = append(result, c)
		}
	}
	sortContracts(result)
	return result, nil
}

// ListActiveByPostcode returns the active contracts offered in a postcode.
func (r *ContractRepository) ListActiveByPostcode(ctx context.Context, postcode string) ([]contracts.Contract, error) {
	_ = ctx
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []contracts.Contract
	for p := range r.postcodes {
		if p.Postcode != postcode {
			continue
		}
		if _, ok := r.active[p.ContractID]; !ok {
			continue
		}
		if c, ok := r.contracts[p.ContractID]; ok {
			result = append(result, c)
		}
	}
	sortContracts(result)
	return result, nil
}

// ApplySnapshot writes a catalog snapshot. The whole snapshot is applied
// under one lock so readers never see a partial state.
func (r *ContractRepository) ApplySnapshot(ctx context.Context, snapshot contracts.CatalogSnapshot) (contracts.ApplyStats, error) {
	if err := ctx.Err(); err != nil {
		return contracts.ApplyStats{}, err
	}
	for _, c := range snapshot.Contracts {
		if err := c.Validate(); err != nil {
			return contracts.ApplyStats{}, err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var stats contracts.ApplyStats
	for _, company := range snapshot.Companies {
		r.companies[company.Slug] = company
		stats.Companies++
	}
	for _, c := range snapshot.Contracts {
		if existing, ok := r.contracts[c.ID]; ok {
			c.CreatedAt = existing.CreatedAt
		}
		r.contracts[c.ID] = c
		stats.Contracts++
	}
	stats.ComponentsInserted = r.insertComponents(r.components, snapshot.Components)
	for _, p := range snapshot.Postcodes {
		r.postcodes[p] = struct{}{}
		stats.Postcodes++
	}
	stats.Futures = r.insertComponents(r.futures, snapshot.Futures)

	active := make(map[string]struct{}, len(snapshot.Contracts))
	for _, postcode := range snapshot.RetainPostcodes {
		for p := range r.postcodes {
			if p.Postcode != postcode {
				continue
			}
			if _, ok := r.active[p.ContractID]; ok {
				active[p.ContractID] = struct{}{}
			}
		}
	}
	for _, id := range snapshot.ActiveContractIDs() {
		active[id] = struct{}{}
	}
	r.active = active
	stats.ActiveContracts = len(r.active)
	return stats, nil
}

// Company returns a stored company.
func (r *ContractRepository) Company(slug string) (contracts.Company, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.companies[slug]
	return c, ok
}

// Futures returns stored future-dated components of a contract.
func (r *ContractRepository) Futures(contractID string) []contracts.PriceComponent {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var result []contracts.PriceComponent
	for key, c := range r.futures {
		if key.contractID == contractID {
			result = append(result, c)
		}
	}
	contracts.SortComponents(result)
	return result
}

func sortContracts(list []contracts.Contract) {
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
}
