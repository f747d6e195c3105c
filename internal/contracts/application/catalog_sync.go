package application

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	contracts "electricity-compare/internal/contracts/domain"
	"electricity-compare/internal/observability/metrics"
)

// ErrAllPostcodesFailed is returned when no postcode could be fetched.
var ErrAllPostcodesFailed = errors.New("catalog sync: every postcode failed")

var idNamespace = uuid.MustParse("0f6b3c1e-58a4-4a8e-9d55-6c7f3e2b9a10")

// RawContract is a catalog feed record before normalization.
type RawContract struct {
	UpstreamID     string
	CompanyName    string
	Name           string
	PricingModel   string
	Metering       string
	ConsumptionMin *int
	ConsumptionMax *int
	Region         string
	EnergySources  contracts.EnergySources
	Prices         []RawPrice
}

// RawPrice is a catalog feed price entry. PriceDate is optional.
type RawPrice struct {
	Type        string
	Price       decimal.Decimal
	PaymentUnit string
	PriceDate   *time.Time
	FuseSize    *string
	Discount    *contracts.Discount
}

// CatalogFeed fetches the contracts offered in a postcode area.
type CatalogFeed interface {
	FetchContracts(ctx context.Context, postcode string) ([]RawContract, error)
}

// PostcodeSource lists the postcodes to sync.
type PostcodeSource interface {
	ListPostcodes(ctx context.Context) ([]string, error)
}

// SyncReport summarizes one catalog sync run.
type SyncReport struct {
	RunID           string
	StartedAt       time.Time
	FinishedAt      time.Time
	Postcodes       int
	FailedPostcodes int
	Malformed       int
	Applied         contracts.ApplyStats
}

// CatalogSyncService mirrors the catalog feed into the contract store.
type CatalogSyncService struct {
	postcodes PostcodeSource
	feed      CatalogFeed
	writer    contracts.CatalogWriter
	clock     Clock
	location  *time.Location
	logger    *zap.Logger
}

// NewCatalogSyncService constructs the service.
func NewCatalogSyncService(postcodes PostcodeSource, feed CatalogFeed, writer contracts.CatalogWriter, clock Clock, loc *time.Location, logger *zap.Logger) (*CatalogSyncService, error) {
	if postcodes == nil {
		return nil, errors.New("catalog sync: nil postcode source")
	}
	if feed == nil {
		return nil, errors.New("catalog sync: nil catalog feed")
	}
	if writer == nil {
		return nil, errors.New("catalog sync: nil catalog writer")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogSyncService{
		postcodes: postcodes,
		feed:      feed,
		writer:    writer,
		clock:     clock,
		location:  loc,
		logger:    logger,
	}, nil
}

// Sync fetches every postcode and applies the normalized catalog in one
// write. A failing postcode is skipped and its active contracts are kept;
// if all fail nothing is written.
func (s *CatalogSyncService) Sync(ctx context.Context) (report *SyncReport, err error) {
	started := s.clock.Now()
	report = &SyncReport{RunID: uuid.NewString(), StartedAt: started}
	logger := s.logger.With(zap.String("run_id", report.RunID))
	defer func() {
		result := metrics.ResultSuccess
		if err != nil {
			result = metrics.ResultError
		}
		metrics.ObserveCatalogSync(result, s.clock.Now().Sub(started))
	}()

	postcodes, err := s.postcodes.ListPostcodes(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog sync: list postcodes: %w", err)
	}
	report.Postcodes = len(postcodes)
	if len(postcodes) == 0 {
		logger.Warn("catalog sync skipped: no postcodes")
		report.FinishedAt = s.clock.Now()
		return report, nil
	}

	n := newNormalizer(s.observationDate(started))
	var (
		lastErr error
		failed  []string
	)
	for _, postcode := range postcodes {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		records, err := s.feed.FetchContracts(ctx, postcode)
		if err != nil {
			report.FailedPostcodes++
			failed = append(failed, postcode)
			lastErr = err
			logger.Warn("catalog postcode failed", zap.String("postcode", postcode), zap.Error(err))
			continue
		}
		for _, record := range records {
			n.add(postcode, record)
		}
	}
	report.Malformed = n.malformed
	metrics.AddMalformedRecords("catalog", n.malformed)

	if report.FailedPostcodes == len(postcodes) {
		return nil, fmt.Errorf("%w: %w", ErrAllPostcodesFailed, lastErr)
	}

	snapshot := n.snapshot()
	snapshot.RetainPostcodes = failed
	stats, err := s.writer.ApplySnapshot(ctx, snapshot)
	if err != nil {
		return nil, fmt.Errorf("catalog sync: apply snapshot: %w", err)
	}
	report.Applied = stats
	report.FinishedAt = s.clock.Now()

	logger.Info("catalog sync finished",
		zap.Int("postcodes", report.Postcodes),
		zap.Int("failed_postcodes", report.FailedPostcodes),
		zap.Int("contracts", stats.Contracts),
		zap.Int("components_inserted", stats.ComponentsInserted),
		zap.Int("futures", stats.Futures),
		zap.Int("malformed", report.Malformed),
	)
	return report, nil
}

func (s *CatalogSyncService) observationDate(now time.Time) time.Time {
	local := now.In(s.location)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, time.UTC)
}

type normalizer struct {
	observed   time.Time
	companies  map[string]contracts.Company
	contracts  map[string]contracts.Contract
	order      []string
	components map[string]contracts.PriceComponent
	futures    map[string]contracts.PriceComponent
	postcodes  map[contracts.ContractPostcode]struct{}
	malformed  int
}

func newNormalizer(observed time.Time) *normalizer {
	return &normalizer{
		observed:   observed,
		companies:  make(map[string]contracts.Company),
		contracts:  make(map[string]contracts.Contract),
		components: make(map[string]contracts.PriceComponent),
		futures:    make(map[string]contracts.PriceComponent),
		postcodes:  make(map[contracts.ContractPostcode]struct{}),
	}
}

// ContractID derives the stable contract id for an upstream id.
func ContractID(upstreamID string) string {
	return uuid.NewSHA1(idNamespace, []byte("contract:"+upstreamID)).String()
}

func (n *normalizer) add(postcode string, raw RawContract) {
	upstreamID := strings.TrimSpace(raw.UpstreamID)
	model := contracts.PricingModel(raw.PricingModel)
	metering := contracts.Metering(raw.Metering)
	if metering == "" {
		metering = contracts.MeteringGeneral
	}
	companySlug := slug.Make(raw.CompanyName)
	if upstreamID == "" || companySlug == "" || !model.IsValid() || !metering.IsValid() {
		n.malformed++
		return
	}

	id := ContractID(upstreamID)
	n.companies[companySlug] = contracts.Company{Slug: companySlug, Name: strings.TrimSpace(raw.CompanyName)}
	n.postcodes[contracts.ContractPostcode{ContractID: id, Postcode: postcode}] = struct{}{}
	if _, seen := n.contracts[id]; seen {
		return
	}

	n.order = append(n.order, id)
	n.contracts[id] = contracts.Contract{
		ID:                       id,
		UpstreamID:               upstreamID,
		CompanySlug:              companySlug,
		Name:                     strings.TrimSpace(raw.Name),
		PricingModel:             model,
		Metering:                 metering,
		ConsumptionLimitationMin: raw.ConsumptionMin,
		ConsumptionLimitationMax: raw.ConsumptionMax,
		Region:                   raw.Region,
		EnergySources:            raw.EnergySources,
	}

	for _, price := range raw.Prices {
		component := contracts.PriceComponent{
			ContractID:  id,
			Type:        contracts.ComponentType(price.Type),
			Price:       price.Price,
			PaymentUnit: price.PaymentUnit,
			PriceDate:   n.observed,
			FuseSize:    price.FuseSize,
			Discount:    price.Discount,
		}
		if price.PriceDate != nil {
			component.PriceDate = dateOnly(*price.PriceDate)
		}
		if err := component.Validate(); err != nil {
			n.malformed++
			continue
		}
		component.ID = componentID(component)
		target := n.components
		if component.PriceDate.After(n.observed) {
			target = n.futures
		}
		if existing, ok := target[component.ID]; ok && !existing.Price.IsZero() && component.Price.IsZero() {
			continue
		}
		target[component.ID] = component
	}
}

func (n *normalizer) snapshot() contracts.CatalogSnapshot {
	snapshot := contracts.CatalogSnapshot{ObservedAt: n.observed}
	for _, company := range n.companies {
		snapshot.Companies = append(snapshot.Companies, company)
	}
	for _, id := range n.order {
		snapshot.Contracts = append(snapshot.Contracts, n.contracts[id])
	}
	for _, c := range n.components {
		snapshot.Components = append(snapshot.Components, c)
	}
	for _, c := range n.futures {
		snapshot.Futures = append(snapshot.Futures, c)
	}
	for p := range n.postcodes {
		snapshot.Postcodes = append(snapshot.Postcodes, p)
	}
	contracts.SortComponents(snapshot.Components)
	contracts.SortComponents(snapshot.Futures)
	sortCompanies(snapshot.Companies)
	sortPostcodes(snapshot.Postcodes)
	return snapshot
}

func componentID(c contracts.PriceComponent) string {
	fuse := ""
	if c.FuseSize != nil {
		fuse = *c.FuseSize
	}
	key := strings.Join([]string{c.ContractID, string(c.Type), fuse, c.PriceDate.Format("2006-01-02")}, "|")
	return uuid.NewSHA1(idNamespace, []byte(key)).String()
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func sortCompanies(companies []contracts.Company) {
	sort.Slice(companies, func(i, j int) bool { return companies[i].Slug < companies[j].Slug })
}

func sortPostcodes(postcodes []contracts.ContractPostcode) {
	sort.Slice(postcodes, func(i, j int) bool {
		if postcodes[i].Postcode != postcodes[j].Postcode {
			return postcodes[i].Postcode < postcodes[j].Postcode
		}
		return postcodes[i].ContractID < postcodes[j].ContractID
	})
}
