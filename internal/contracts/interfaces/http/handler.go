package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	apihttp "electricity-compare/internal/api/http"
	contractapp "electricity-compare/internal/contracts/application"
	contracts "electricity-compare/internal/contracts/domain"
	"electricity-compare/internal/estimator"
	"electricity-compare/internal/observability/metrics"
	"electricity-compare/internal/referencedata"
)

const (
	contractsPrefix = "/api/v1/contracts/"
	dateLayout      = "2006-01-02"
	maxBodyBytes    = 4 << 20
)

// CostCalculator prices one contract.
type CostCalculator interface {
	CalculateCost(ctx context.Context, req contractapp.CostRequest) (*contracts.PricingResult, error)
}

// ContractRanker ranks candidate contracts.
type ContractRanker interface {
	Rank(ctx context.Context, req contractapp.RankRequest) (*contractapp.RankResult, error)
}

// Handler provides the pricing HTTP endpoints.
type Handler struct {
	engine    CostCalculator
	ranker    ContractRanker
	postcodes referencedata.Lookup
	location  *time.Location
	logger    *zap.Logger
}

// NewHandler constructs a handler. postcodes is optional; without it any
// well-formed postcode is accepted.
func NewHandler(engine CostCalculator, ranker ContractRanker, postcodes referencedata.Lookup, loc *time.Location, logger *zap.Logger) (*Handler, error) {
	if engine == nil || ranker == nil {
		return nil, errors.New("contracts handler: nil service")
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{engine: engine, ranker: ranker, postcodes: postcodes, location: loc, logger: logger}, nil
}

// ServeHTTP handles contract cost, estimate and comparison routes.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case strings.HasPrefix(path, contractsPrefix) && strings.HasSuffix(path, "/cost"):
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		id := strings.TrimSuffix(strings.TrimPrefix(path, contractsPrefix), "/cost")
		if id == "" || strings.Contains(id, "/") {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		h.handleCost(w, r, id)
	case path == "/api/v1/estimate":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleEstimate(w, r)
	case path == "/api/v1/comparison", path == "/api/v1/comparison.xlsx", path == "/api/v1/comparison.pdf":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleComparison(w, r, strings.TrimPrefix(strings.TrimPrefix(path, "/api/v1/comparison"), "."))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) handleCost(w http.ResponseWriter, r *http.Request, contractID string) {
	var body costRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	usage, err := body.Usage.toDomain()
	if err != nil {
		apihttp.WriteError(w, err)
		return
	}
	req := contractapp.CostRequest{
		ContractID:   contractID,
		Usage:        usage,
		Consumption:  body.Consumption,
		SpotDayAvg:   body.SpotDayAvg,
		SpotNightAvg: body.SpotNightAvg,
		FuseSize:     body.FuseSize,
	}
	if body.ReferenceDate != "" {
		ref, err := time.ParseInLocation(dateLayout, body.ReferenceDate, h.location)
		if err != nil {
			http.Error(w, "reference_date must be YYYY-MM-DD", http.StatusBadRequest)
			return
		}
		req.ReferenceDate = &ref
	}
	for _, hour := range body.HourlyProfile {
		req.HourlyProfile = append(req.HourlyProfile, contractapp.HourlyConsumption{HourStart: hour.HourStart.UTC(), KWh: hour.KWh})
	}

	result, err := h.engine.CalculateCost(r.Context(), req)
	if err != nil {
		apihttp.WriteError(w, err)
		return
	}
	apihttp.WriteJSON(w, http.StatusOK, fromResult(result))
}

type estimateResponse struct {
	Usage usageDTO `json:"usage"`
}

func (h *Handler) handleEstimate(w http.ResponseWriter, r *http.Request) {
	var raw struct {
		estimator.BuildingParams
		BuildingType  string `json:"building_type"`
		HeatingMethod string `json:"heating_method"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&raw); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	params := raw.BuildingParams
	var err error
	if params.BuildingType, err = estimator.ParseBuildingType(raw.BuildingType); err != nil {
		apihttp.WriteError(w, err)
		return
	}
	if params.HeatingMethod, err = estimator.ParseHeatingMethod(raw.HeatingMethod); err != nil {
		apihttp.WriteError(w, err)
		return
	}
	result, err := estimator.EstimateConsumption(params)
	if err != nil {
		apihttp.WriteError(w, err)
		return
	}
	apihttp.WriteJSON(w, http.StatusOK, estimateResponse{Usage: fromUsage(result.Usage)})
}

func (h *Handler) handleComparison(w http.ResponseWriter, r *http.Request, format string) {
	query := r.URL.Query()
	postcode := query.Get("postcode")
	if postcode != "" {
		if err := h.checkPostcode(r.Context(), postcode); err != nil {
			apihttp.WriteError(w, err)
			return
		}
	}
	consumption, err := strconv.Atoi(query.Get("consumption"))
	if err != nil || consumption < 0 {
		http.Error(w, "consumption must be a non-negative integer", http.StatusBadRequest)
		return
	}
	req := contractapp.RankRequest{Postcode: postcode, Consumption: consumption}
	if fuse := query.Get("fuse_size"); fuse != "" {
		req.FuseSize = &fuse
	}

	result, err := h.ranker.Rank(r.Context(), req)
	if err != nil {
		apihttp.WriteError(w, err)
		return
	}
	dto := fromRankResult(postcode, result)

	switch format {
	case "":
		apihttp.WriteJSON(w, http.StatusOK, dto)
	case "xlsx", "pdf":
		h.writeExport(w, format, dto)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) writeExport(w http.ResponseWriter, format string, dto comparisonDTO) {
	started := time.Now()
	var (
		data        []byte
		err         error
		contentType string
	)
	switch format {
	case "xlsx":
		data, err = BuildComparisonXLSX(dto)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		data, err = BuildComparisonPDF(dto)
		contentType = "application/pdf"
	}
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultError
	}
	metrics.ObserveComparisonExport(format, result, time.Since(started))
	if err != nil {
		h.logger.Error("comparison export failed", zap.String("format", format), zap.Error(err))
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=comparison."+format)
	_, _ = w.Write(data)
}

func (h *Handler) checkPostcode(ctx context.Context, postcode string) error {
	if !referencedata.ValidPostcode(postcode) {
		return referencedata.ErrInvalidPostcode
	}
	if h.postcodes == nil {
		return nil
	}
	_, err := h.postcodes.GetPostcode(ctx, postcode)
	return err
}
