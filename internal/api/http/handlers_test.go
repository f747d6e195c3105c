package apihttp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"electricity-compare/internal/audit"
	contractapp "electricity-compare/internal/contracts/application"
	contracts "electricity-compare/internal/contracts/domain"
	"electricity-compare/internal/jobs"
	spotapp "electricity-compare/internal/spotprice/application"
	spotprice "electricity-compare/internal/spotprice/domain"
	"electricity-compare/internal/spotprice/infrastructure/memory"
	"electricity-compare/internal/upstream"
)

func seedHours(t *testing.T, repo spotprice.HourRepository, start time.Time, n int) {
	t.Helper()
	hours := make([]spotprice.SpotPriceHour, 0, n)
	for i := 0; i < n; i++ {
		hours = append(hours, spotprice.SpotPriceHour{
			Region:          "FI",
			Timestamp:       start.Add(time.Duration(i) * time.Hour),
			PriceWithoutTax: decimal.NewFromInt(int64(10 + i)),
			VATRate:         decimal.RequireFromString("0.24"),
		})
	}
	_, err := repo.InsertIfAbsent(context.Background(), hours)
	require.NoError(t, err)
}

func TestSpotHoursHandler(t *testing.T) {
	repo := memory.NewHourRepository()
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	seedHours(t, repo, start, 3)
	handler := NewSpotHoursHandler(repo)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/spot/hours?region=FI&from=2024-03-01T00:00:00Z&to=2024-03-01T02:00:00Z", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	require.Equal(t, http.StatusOK, resp.Code)

	var rows []map[string]any
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "12.4", rows[0]["price_with_tax"])
}

func TestSpotHoursHandler_Validation(t *testing.T) {
	handler := NewSpotHoursHandler(memory.NewHourRepository())
	for _, target := range []string{
		"/api/v1/spot/hours?from=2024-03-01T00:00:00Z&to=2024-03-02T00:00:00Z",
		"/api/v1/spot/hours?region=FI&from=yesterday&to=2024-03-02T00:00:00Z",
		"/api/v1/spot/hours?region=FI&from=2024-03-02T00:00:00Z&to=2024-03-01T00:00:00Z",
		"/api/v1/spot/hours?region=FI&from=2020-01-01T00:00:00Z&to=2024-03-01T00:00:00Z",
	} {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, target, nil))
		assert.Equal(t, http.StatusBadRequest, resp.Code, target)
	}
}

func TestExportSpotHoursCSV(t *testing.T) {
	repo := memory.NewHourRepository()
	seedHours(t, repo, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), 2)
	handler := NewExportSpotHoursCSVHandler(repo)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/api/v1/exports/spot-hours.csv?region=FI&from=2024-03-01T00:00:00Z&to=2024-03-02T00:00:00Z", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	lines := strings.Split(strings.TrimSpace(resp.Body.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "region,timestamp,price_without_tax,vat_rate,price_with_tax", lines[0])
	assert.Equal(t, "FI,2024-03-01T00:00:00Z,10,0.24,12.4", lines[1])
}

func TestStatusFor(t *testing.T) {
	cases := map[error]int{
		contracts.ErrContractNotFound:                          http.StatusNotFound,
		&contracts.IncompleteTariffDataError{ContractID: "c1"}: http.StatusUnprocessableEntity,
		fmt.Errorf("wrap: %w", spotprice.ErrInvalidDateRange):  http.StatusBadRequest,
		jobs.ErrJobRunning:                                     http.StatusConflict,
		fmt.Errorf("fetch: %w", upstream.ErrUnavailable):       http.StatusBadGateway,
		errors.New("disk on fire"):                             http.StatusInternalServerError,
	}
	for err, want := range cases {
		assert.Equal(t, want, StatusFor(err), err.Error())
	}
}

type fakeBackfiller struct {
	report *spotapp.BackfillReport
	err    error
	calls  int
	from   time.Time
	to     time.Time
}

func (f *fakeBackfiller) Backfill(ctx context.Context, region string, from, to time.Time) (*spotapp.BackfillReport, error) {
	f.calls++
	f.from, f.to = from, to
	return f.report, f.err
}

type fakeSyncer struct {
	report *contractapp.SyncReport
	err    error
}

func (f *fakeSyncer) Sync(ctx context.Context) (*contractapp.SyncReport, error) {
	return f.report, f.err
}

type recordingAudit struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (a *recordingAudit) Log(ctx context.Context, entry audit.Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, entry)
	return nil
}

type busyRunner struct{}

func (busyRunner) Exec(ctx context.Context, job jobs.Job) error { return jobs.ErrJobRunning }

func helsinki(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Europe/Helsinki")
	require.NoError(t, err)
	return loc
}

func TestAdminBackfill(t *testing.T) {
	backfill := &fakeBackfiller{report: &spotapp.BackfillReport{
		Region:   "FI",
		Inserted: 744,
		Failed:   1,
		Chunks: []spotapp.BackfillChunk{
			{Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Inserted: 744},
			{Start: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), Err: errors.New("feed down")},
		},
	}}
	auditLog := &recordingAudit{}
	handler, err := NewAdminHandler(backfill, &fakeSyncer{}, nil, auditLog, helsinki(t), nil)
	require.NoError(t, err)

	body := bytes.NewBufferString(`{"region":"FI","from":"2024-01-01","to":"2024-03-01"}`)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/admin/spot/backfill", body))
	require.Equal(t, http.StatusOK, resp.Code)

	var out backfillResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Equal(t, 744, out.Inserted)
	assert.Equal(t, 1, out.Failed)
	assert.Equal(t, "feed down", out.Chunks[1].Error)
	assert.Equal(t, time.Date(2023, 12, 31, 22, 0, 0, 0, time.UTC), backfill.from)

	require.Len(t, auditLog.entries, 1)
	assert.Equal(t, "spot.backfill", auditLog.entries[0].Action)
	assert.Equal(t, "FI", auditLog.entries[0].ResourceID)
}

func TestAdminBackfill_InvalidRange(t *testing.T) {
	backfill := &fakeBackfiller{err: spotprice.ErrInvalidDateRange}
	handler, err := NewAdminHandler(backfill, &fakeSyncer{}, nil, nil, time.UTC, nil)
	require.NoError(t, err)

	body := bytes.NewBufferString(`{"region":"FI","from":"2024-03-01","to":"2024-01-01"}`)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/admin/spot/backfill", body))
	assert.Equal(t, http.StatusBadRequest, resp.Code)

	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/admin/spot/backfill", bytes.NewBufferString(`{"region":"FI","from":"soon"}`)))
	assert.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestAdminCatalogSync(t *testing.T) {
	syncer := &fakeSyncer{report: &contractapp.SyncReport{
		RunID:     "run-1",
		Postcodes: 2,
		Applied:   contracts.ApplyStats{Contracts: 5, ActiveContracts: 5},
	}}
	handler, err := NewAdminHandler(&fakeBackfiller{}, syncer, nil, nil, time.UTC, nil)
	require.NoError(t, err)

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/admin/catalog/sync", nil))
	require.Equal(t, http.StatusOK, resp.Code)
	var out syncResponse
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &out))
	assert.Equal(t, "run-1", out.RunID)
	assert.Equal(t, 5, out.ActiveContracts)

	syncer.err = fmt.Errorf("%w: %w", contractapp.ErrAllPostcodesFailed, upstream.ErrUnavailable)
	syncer.report = nil
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/admin/catalog/sync", nil))
	assert.Equal(t, http.StatusBadGateway, resp.Code)
}

func TestAdminCatalogSync_Busy(t *testing.T) {
	handler, err := NewAdminHandler(&fakeBackfiller{}, &fakeSyncer{}, busyRunner{}, nil, time.UTC, nil)
	require.NoError(t, err)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/admin/catalog/sync", nil))
	assert.Equal(t, http.StatusConflict, resp.Code)
}
