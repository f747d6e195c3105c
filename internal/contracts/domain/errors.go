package contracts

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrEmptyContractID is returned when a contract id is empty.
	ErrEmptyContractID = errors.New("contracts: empty contract id")
	// ErrContractNotFound is returned when a contract cannot be found.
	ErrContractNotFound = errors.New("contracts: not found")
	// ErrIncompleteTariffData is returned when a mandatory price component is missing.
	ErrIncompleteTariffData = errors.New("contracts: incomplete tariff data")
	// ErrUnsupportedPricingModel is returned for unknown pricing model / metering combinations.
	ErrUnsupportedPricingModel = errors.New("contracts: unsupported pricing model")
	// ErrInvalidComponent is returned when a price component fails validation.
	ErrInvalidComponent = errors.New("contracts: invalid price component")
	// ErrInvalidUsage is returned when the consumption input is unusable.
	ErrInvalidUsage = errors.New("contracts: invalid energy usage")
	// ErrConsumptionOutOfRange is returned when consumption falls outside the contract limits.
	ErrConsumptionOutOfRange = errors.New("contracts: consumption outside contract limits")
)

// IncompleteTariffDataError names the components a contract is missing for its
// pricing model.
type IncompleteTariffDataError struct {
	ContractID string
	Model      PricingModel
	Missing    []ComponentType
}

func (e *IncompleteTariffDataError) Error() string {
	names := make([]string, 0, len(e.Missing))
	for _, m := range e.Missing {
		names = append(names, string(m))
	}
	return fmt.Sprintf("contracts: incomplete tariff data for %s (%s): missing %s", e.ContractID, e.Model, strings.Join(names, ", "))
}

// Is matches ErrIncompleteTariffData.
func (e *IncompleteTariffDataError) Is(target error) bool {
	return target == ErrIncompleteTariffData
}
