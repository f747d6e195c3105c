package apihttp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"electricity-compare/internal/audit"
	contractapp "electricity-compare/internal/contracts/application"
	"electricity-compare/internal/jobs"
	spotapp "electricity-compare/internal/spotprice/application"
)

const dateLayout = "2006-01-02"

// Backfiller ingests a historic range of a region.
type Backfiller interface {
	Backfill(ctx context.Context, region string, from, to time.Time) (*spotapp.BackfillReport, error)
}

// JobRunner runs a job unless it is already running.
type JobRunner interface {
	Exec(ctx context.Context, job jobs.Job) error
}

// AdminHandler serves the administrative endpoints. Every call is audited.
type AdminHandler struct {
	backfill Backfiller
	catalog  jobs.CatalogSyncer
	runner   JobRunner
	audit    audit.Logger
	location *time.Location
	logger   *zap.Logger
}

// NewAdminHandler constructs an AdminHandler. runner and auditLogger are optional.
func NewAdminHandler(backfill Backfiller, catalog jobs.CatalogSyncer, runner JobRunner, auditLogger audit.Logger, loc *time.Location, logger *zap.Logger) (*AdminHandler, error) {
	if backfill == nil || catalog == nil {
		return nil, errors.New("admin handler: nil service")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if runner == nil {
		runner = jobs.NewScheduler(jobs.WithLogger(logger))
	}
	return &AdminHandler{
		backfill: backfill,
		catalog:  catalog,
		runner:   runner,
		audit:    auditLogger,
		location: loc,
		logger:   logger,
	}, nil
}

// ServeHTTP handles /api/v1/admin/ subroutes.
func (h *AdminHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	switch r.URL.Path {
	case "/api/v1/admin/spot/backfill":
		h.handleBackfill(w, r)
	case "/api/v1/admin/catalog/sync":
		h.handleCatalogSync(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type backfillRequest struct {
	Region string `json:"region"`
	From   string `json:"from"`
	To     string `json:"to"`
}

type backfillChunkResponse struct {
	Start    time.Time `json:"start"`
	End      time.Time `json:"end"`
	Inserted int       `json:"inserted"`
	Error    string    `json:"error,omitempty"`
}

type backfillResponse struct {
	Region   string                  `json:"region"`
	Inserted int                     `json:"inserted"`
	Failed   int                     `json:"failed"`
	Chunks   []backfillChunkResponse `json:"chunks"`
}

func (h *AdminHandler) handleBackfill(w http.ResponseWriter, r *http.Request) {
	var req backfillRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.Region == "" {
		http.Error(w, "region is required", http.StatusBadRequest)
		return
	}
	from, err := parseInstant(req.From, h.location)
	if err != nil {
		http.Error(w, "from: "+err.Error(), http.StatusBadRequest)
		return
	}
	to, err := parseInstant(req.To, h.location)
	if err != nil {
		http.Error(w, "to: "+err.Error(), http.StatusBadRequest)
		return
	}

	var report *spotapp.BackfillReport
	job := jobs.Job{
		Name:    "spot-backfill-" + req.Region,
		Timeout: 2 * time.Hour,
		Run: func(ctx context.Context) error {
			var runErr error
			report, runErr = h.backfill.Backfill(ctx, req.Region, from, to)
			return runErr
		},
	}
	runErr := h.runner.Exec(r.Context(), job)
	h.record(r, "spot.backfill", "region", req.Region, req, runErr)
	if runErr != nil && report == nil {
		WriteError(w, runErr)
		return
	}

	resp := backfillResponse{Region: report.Region, Inserted: report.Inserted, Failed: report.Failed}
	for _, chunk := range report.Chunks {
		c := backfillChunkResponse{Start: chunk.Start, End: chunk.End, Inserted: chunk.Inserted}
		if chunk.Err != nil {
			c.Error = chunk.Err.Error()
		}
		resp.Chunks = append(resp.Chunks, c)
	}
	status := http.StatusOK
	if runErr != nil {
		status = StatusFor(runErr)
	}
	WriteJSON(w, status, resp)
}

type syncResponse struct {
	RunID              string    `json:"run_id"`
	StartedAt          time.Time `json:"started_at"`
	FinishedAt         time.Time `json:"finished_at"`
	Postcodes          int       `json:"postcodes"`
	FailedPostcodes    int       `json:"failed_postcodes"`
	Malformed          int       `json:"malformed"`
	Companies          int       `json:"companies"`
	Contracts          int       `json:"contracts"`
	ComponentsInserted int       `json:"components_inserted"`
	Futures            int       `json:"futures"`
	ActiveContracts    int       `json:"active_contracts"`
}

func (h *AdminHandler) handleCatalogSync(w http.ResponseWriter, r *http.Request) {
	var report *contractapp.SyncReport
	job := jobs.Job{
		Name:    jobs.JobCatalogSync,
		Timeout: time.Hour,
		Run: func(ctx context.Context) error {
			var runErr error
			report, runErr = h.catalog.Sync(ctx)
			return runErr
		},
	}
	runErr := h.runner.Exec(r.Context(), job)
	h.record(r, "catalog.sync", "catalog", "", nil, runErr)
	if runErr != nil {
		WriteError(w, runErr)
		return
	}
	WriteJSON(w, http.StatusOK, syncResponse{
		RunID:              report.RunID,
		StartedAt:          report.StartedAt,
		FinishedAt:         report.FinishedAt,
		Postcodes:          report.Postcodes,
		FailedPostcodes:    report.FailedPostcodes,
		Malformed:          report.Malformed,
		Companies:          report.Applied.Companies,
		Contracts:          report.Applied.Contracts,
		ComponentsInserted: report.Applied.ComponentsInserted,
		Futures:            report.Applied.Futures,
		ActiveContracts:    report.Applied.ActiveContracts,
	})
}

func (h *AdminHandler) record(r *http.Request, action, resourceType, resourceID string, payload any, runErr error) {
	if h.audit == nil {
		return
	}
	metadata := map[string]any{"request": payload}
	if runErr != nil {
		metadata["error"] = runErr.Error()
	}
	entry := audit.FromRequest(r, action, resourceType, resourceID, metadata)
	if err := h.audit.Log(r.Context(), entry); err != nil {
		h.logger.Warn("audit log failed", zap.String("action", action), zap.Error(err))
	}
}

// parseInstant accepts RFC3339 or a local calendar date.
func parseInstant(value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("is required")
	}
	if t, err := time.Parse(timeLayout, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.ParseInLocation(dateLayout, value, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("must be RFC3339 or %s", dateLayout)
	}
	return t.UTC(), nil
}
