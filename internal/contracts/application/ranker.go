package application

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	contracts "electricity-compare/internal/contracts/domain"
	"electricity-compare/internal/observability/metrics"
)

const defaultRankConcurrency = 8

// Exclusion reasons.
const (
	ExclusionIncompleteData      = "incomplete_tariff_data"
	ExclusionConsumptionOutRange = "consumption_out_of_range"
)

// RankRequest selects the candidate contracts and the usage to price them with.
// An empty Postcode ranks every active contract.
type RankRequest struct {
	Postcode      string
	Usage         *contracts.EnergyUsage
	Consumption   int
	FuseSize      *string
	ReferenceDate *time.Time
}

// RankedContract is one priced contract.
type RankedContract struct {
	Rank     int
	Contract contracts.Contract
	Result   *contracts.PricingResult
}

// Exclusion is a contract left out of the ranking.
type Exclusion struct {
	Contract contracts.Contract
	Reason   string
	Missing  []contracts.ComponentType
}

// RankResult is the ordered comparison plus the contracts that could not be
// priced.
type RankResult struct {
	AnnualConsumptionKWh int
	Ranked               []RankedContract
	Excluded             []Exclusion
}

// Ranker prices all candidate contracts and orders them by total cost.
type Ranker struct {
	contracts   contracts.ContractRepository
	engine      *PricingEngine
	concurrency int
	logger      *zap.Logger
}

// NewRanker constructs a ranker.
func NewRanker(repo contracts.ContractRepository, engine *PricingEngine, logger *zap.Logger) (*Ranker, error) {
	if repo == nil {
		return nil, errors.New("ranker: nil contract repository")
	}
	if engine == nil {
		return nil, errors.New("ranker: nil pricing engine")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ranker{contracts: repo, engine: engine, concurrency: defaultRankConcurrency, logger: logger}, nil
}

// Rank prices the candidates. Contracts with incomplete tariff data or a
// consumption limit that excludes the usage are reported in Excluded and
// never ranked with a zero cost.
func (r *Ranker) Rank(ctx context.Context, req RankRequest) (*RankResult, error) {
	usage := req.Usage
	if usage == nil {
		if req.Consumption < 0 {
			return nil, contracts.ErrInvalidUsage
		}
		usage = contracts.NewUsage(req.Consumption)
	}
	if err := usage.Validate(); err != nil {
		return nil, err
	}

	var candidates []contracts.Contract
	var err error
	if req.Postcode != "" {
		candidates, err = r.contracts.ListActiveByPostcode(ctx, req.Postcode)
	} else {
		candidates, err = r.contracts.ListActive(ctx)
	}
	if err != nil {
		return nil, err
	}

	result := &RankResult{AnnualConsumptionKWh: usage.Total}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for _, candidate := range candidates {
		candidate := candidate
		if !candidate.IsConsumptionInRange(usage.Total) {
			mu.Lock()
			result.Excluded = append(result.Excluded, Exclusion{Contract: candidate, Reason: ExclusionConsumptionOutRange})
			mu.Unlock()
			metrics.IncPricing(string(candidate.PricingModel), metrics.PricingOutcomeOutOfRange)
			continue
		}
		g.Go(func() error {
			priced, err := r.engine.CalculateCost(gctx, CostRequest{
				ContractID:    candidate.ID,
				Usage:         usage,
				FuseSize:      req.FuseSize,
				ReferenceDate: req.ReferenceDate,
			})
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				if !errors.Is(err, contracts.ErrIncompleteTariffData) {
					return err
				}
				exclusion := Exclusion{Contract: candidate, Reason: ExclusionIncompleteData}
				var incomplete *contracts.IncompleteTariffDataError
				if errors.As(err, &incomplete) {
					exclusion.Missing = incomplete.Missing
				}
				result.Excluded = append(result.Excluded, exclusion)
				return nil
			}
			result.Ranked = append(result.Ranked, RankedContract{Contract: candidate, Result: priced})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.Slice(result.Ranked, func(i, j int) bool {
		a, b := result.Ranked[i], result.Ranked[j]
		if cmp := a.Result.TotalCost.Cmp(b.Result.TotalCost); cmp != 0 {
			return cmp < 0
		}
		return a.Contract.ID < b.Contract.ID
	})
	for i := range result.Ranked {
		result.Ranked[i].Rank = i + 1
	}
	sort.Slice(result.Excluded, func(i, j int) bool {
		return result.Excluded[i].Contract.ID < result.Excluded[j].Contract.ID
	})

	r.logger.Debug("contracts ranked",
		zap.String("postcode", req.Postcode),
		zap.Int("ranked", len(result.Ranked)),
		zap.Int("excluded", len(result.Excluded)),
	)
	return result, nil
}
