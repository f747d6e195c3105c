package application

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	contracts "electricity-compare/internal/contracts/domain"
	"electricity-compare/internal/contracts/infrastructure/memory"
)

type staticPostcodes []string

func (p staticPostcodes) ListPostcodes(ctx context.Context) ([]string, error) { return p, nil }

type fakeFeed struct {
	records map[string][]RawContract
	failing map[string]bool
}

func (f *fakeFeed) FetchContracts(ctx context.Context, postcode string) ([]RawContract, error) {
	if f.failing[postcode] {
		return nil, errors.New("upstream down")
	}
	return f.records[postcode], nil
}

type failingWriter struct{}

func (failingWriter) ApplySnapshot(ctx context.Context, snapshot contracts.CatalogSnapshot) (contracts.ApplyStats, error) {
	return contracts.ApplyStats{}, errors.New("write failed")
}

var syncNow = time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC)

func rawFixed(upstreamID string) RawContract {
	return RawContract{
		UpstreamID:   upstreamID,
		CompanyName:  "Sähkö Oy Ääni",
		Name:         "Kiinteä 12 kk",
		PricingModel: "Fixed",
		Metering:     "General",
		Prices: []RawPrice{
			{Type: "General", Price: dec("7.9"), PaymentUnit: contracts.PaymentUnitCentsPerKWh},
			{Type: "Monthly", Price: dec("3.5"), PaymentUnit: contracts.PaymentUnitEurosPerMonth},
		},
	}
}

func TestCatalogSync_AppliesSnapshot(t *testing.T) {
	future := syncNow.AddDate(0, 1, 0)
	withFuture := rawFixed("up-2")
	withFuture.Prices = append(withFuture.Prices, RawPrice{Type: "General", Price: dec("6.9"), PriceDate: &future})

	feed := &fakeFeed{records: map[string][]RawContract{
		"00100": {rawFixed("up-1"), withFuture, {UpstreamID: "", PricingModel: "Fixed"}},
		"33100": {rawFixed("up-1")},
	}}
	repo := memory.NewContractRepository()
	svc, err := NewCatalogSyncService(staticPostcodes{"00100", "33100"}, feed, repo, fixedClock{now: syncNow}, time.UTC, nil)
	require.NoError(t, err)

	report, err := svc.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Postcodes)
	assert.Equal(t, 1, report.Malformed)
	assert.Equal(t, 2, report.Applied.Contracts)
	assert.Equal(t, 4, report.Applied.ComponentsInserted)
	assert.Equal(t, 1, report.Applied.Futures)
	assert.Equal(t, 3, report.Applied.Postcodes)

	company, ok := repo.Company("sahko-oy-aani")
	require.True(t, ok)
	assert.Equal(t, "Sähkö Oy Ääni", company.Name)

	active, err := repo.ListActiveByPostcode(context.Background(), "33100")
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, ContractID("up-1"), active[0].ID)

	_, components, err := repo.LoadPricingData(context.Background(), ContractID("up-1"))
	require.NoError(t, err)
	require.Len(t, components, 2)
	assert.Equal(t, time.Date(2024, 6, 10, 0, 0, 0, 0, time.UTC), components[0].PriceDate)
	assert.Len(t, repo.Futures(ContractID("up-2")), 1)

	// A second run with the same data inserts no new component rows.
	report, err = svc.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Applied.ComponentsInserted)
}

func TestCatalogSync_ReplacesActiveSet(t *testing.T) {
	feed := &fakeFeed{records: map[string][]RawContract{"00100": {rawFixed("up-1"), rawFixed("up-2")}}}
	repo := memory.NewContractRepository()
	svc, err := NewCatalogSyncService(staticPostcodes{"00100"}, feed, repo, fixedClock{now: syncNow}, time.UTC, nil)
	require.NoError(t, err)

	_, err = svc.Sync(context.Background())
	require.NoError(t, err)

	feed.records["00100"] = []RawContract{rawFixed("up-2")}
	_, err = svc.Sync(context.Background())
	require.NoError(t, err)

	active, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, ContractID("up-2"), active[0].ID)
}

func TestCatalogSync_FailedPostcodeKeepsActiveContracts(t *testing.T) {
	feed := &fakeFeed{
		records: map[string][]RawContract{
			"00100": {rawFixed("up-1")},
			"33100": {rawFixed("up-3")},
		},
		failing: map[string]bool{},
	}
	repo := memory.NewContractRepository()
	svc, err := NewCatalogSyncService(staticPostcodes{"00100", "33100"}, feed, repo, fixedClock{now: syncNow}, time.UTC, nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Sync(ctx)
	require.NoError(t, err)
	before, err := repo.ListActiveByPostcode(ctx, "33100")
	require.NoError(t, err)
	require.Len(t, before, 1)

	feed.failing["33100"] = true
	report, err := svc.Sync(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, report.FailedPostcodes)
	assert.Equal(t, 2, report.Applied.ActiveContracts)

	after, err := repo.ListActiveByPostcode(ctx, "33100")
	require.NoError(t, err)
	require.Len(t, after, 1)
	assert.Equal(t, ContractID("up-3"), after[0].ID)

	// Once the postcode answers again its dropped contracts go inactive.
	feed.failing["33100"] = false
	feed.records["33100"] = nil
	_, err = svc.Sync(ctx)
	require.NoError(t, err)
	after, err = repo.ListActiveByPostcode(ctx, "33100")
	require.NoError(t, err)
	assert.Empty(t, after)
}

func TestCatalogSync_PartialAndTotalFailure(t *testing.T) {
	feed := &fakeFeed{
		records: map[string][]RawContract{"00100": {rawFixed("up-1")}},
		failing: map[string]bool{"33100": true},
	}
	repo := memory.NewContractRepository()
	svc, err := NewCatalogSyncService(staticPostcodes{"00100", "33100"}, feed, repo, fixedClock{now: syncNow}, time.UTC, nil)
	require.NoError(t, err)

	report, err := svc.Sync(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.FailedPostcodes)
	assert.Equal(t, 1, report.Applied.ActiveContracts)

	feed.failing["00100"] = true
	_, err = svc.Sync(context.Background())
	assert.ErrorIs(t, err, ErrAllPostcodesFailed)

	// The earlier catalog stays in place.
	active, err := repo.ListActive(context.Background())
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestCatalogSync_WriteFailure(t *testing.T) {
	feed := &fakeFeed{records: map[string][]RawContract{"00100": {rawFixed("up-1")}}}
	svc, err := NewCatalogSyncService(staticPostcodes{"00100"}, feed, failingWriter{}, fixedClock{now: syncNow}, time.UTC, nil)
	require.NoError(t, err)

	_, err = svc.Sync(context.Background())
	assert.Error(t, err)
}
