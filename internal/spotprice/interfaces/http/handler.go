package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	apihttp "electricity-compare/internal/api/http"
	spotapp "electricity-compare/internal/spotprice/application"
	spotprice "electricity-compare/internal/spotprice/domain"
)

const maxPushPoints = 10000

// AverageService is the aggregation surface used by the handler.
type AverageService interface {
	GetLatestAverages(ctx context.Context, region string) (*spotprice.LatestAverages, error)
	CalculateByType(ctx context.Context, region, periodType string) (int, error)
}

// PointIngester stores pushed price points.
type PointIngester interface {
	IngestPoints(ctx context.Context, region string, points []spotprice.PricePoint) (*spotapp.IngestReport, error)
}

// Handler provides spot price HTTP endpoints.
type Handler struct {
	averages      AverageService
	ingester      PointIngester
	defaultRegion string
}

// NewHandler constructs a handler. ingester may be nil when push ingest is disabled.
func NewHandler(averages AverageService, ingester PointIngester, defaultRegion string) (*Handler, error) {
	if averages == nil {
		return nil, errors.New("spot handler: nil average service")
	}
	return &Handler{averages: averages, ingester: ingester, defaultRegion: defaultRegion}, nil
}

// ServeHTTP handles /api/v1/spot/averages, its calculate subroute and
// /ingest/spot-prices.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/v1/spot/averages":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleLatest(w, r)
	case "/api/v1/spot/averages/calculate":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleCalculate(w, r)
	case "/ingest/spot-prices":
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handlePush(w, r)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (h *Handler) region(r *http.Request) string {
	if region := r.URL.Query().Get("region"); region != "" {
		return region
	}
	return h.defaultRegion
}

func (h *Handler) handleLatest(w http.ResponseWriter, r *http.Request) {
	latest, err := h.averages.GetLatestAverages(r.Context(), h.region(r))
	if err != nil {
		apihttp.WriteError(w, err)
		return
	}
	apihttp.WriteJSON(w, http.StatusOK, latestResponse{
		Region:      latest.Region,
		Daily:       toAverageDTO(latest.Daily),
		Monthly:     toAverageDTO(latest.Monthly),
		Rolling30d:  toAverageDTO(latest.Rolling30d),
		Rolling365d: toAverageDTO(latest.Rolling365d),
	})
}

func (h *Handler) handleCalculate(w http.ResponseWriter, r *http.Request) {
	region := h.region(r)
	periodType := r.URL.Query().Get("type")
	n, err := h.averages.CalculateByType(r.Context(), region, periodType)
	if err != nil {
		apihttp.WriteError(w, err)
		return
	}
	if periodType == "" {
		periodType = "all"
	}
	apihttp.WriteJSON(w, http.StatusOK, calculateResponse{Region: region, Type: periodType, Rows: n})
}

func (h *Handler) handlePush(w http.ResponseWriter, r *http.Request) {
	if h.ingester == nil {
		http.Error(w, "push ingest disabled", http.StatusServiceUnavailable)
		return
	}
	var req pushRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	if req.Region == "" {
		http.Error(w, "region is required", http.StatusBadRequest)
		return
	}
	if len(req.Prices) > maxPushPoints {
		http.Error(w, "too many prices", http.StatusRequestEntityTooLarge)
		return
	}

	points := make([]spotprice.PricePoint, 0, len(req.Prices))
	for _, p := range req.Prices {
		ts, err := time.Parse(time.RFC3339, p.Timestamp)
		if err != nil || p.Price == nil {
			points = append(points, spotprice.PricePoint{})
			continue
		}
		points = append(points, spotprice.PricePoint{Timestamp: ts.UTC(), Price: *p.Price})
	}

	report, err := h.ingester.IngestPoints(r.Context(), req.Region, points)
	if err != nil {
		apihttp.WriteError(w, err)
		return
	}
	apihttp.WriteJSON(w, http.StatusOK, ingestResponse{
		Region:    report.Region,
		Start:     report.Start,
		End:       report.End,
		Received:  report.Received,
		Malformed: report.Malformed,
		Hours:     report.Hours,
		Inserted:  report.Inserted,
		Skipped:   report.Skipped,
	})
}

type pushRequest struct {
	Region string      `json:"region"`
	Prices []pushPrice `json:"prices"`
}

type pushPrice struct {
	Timestamp string           `json:"timestamp"`
	Price     *decimal.Decimal `json:"price"`
}

type ingestResponse struct {
	Region    string    `json:"region"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Received  int       `json:"received"`
	Malformed int       `json:"malformed"`
	Hours     int       `json:"hours"`
	Inserted  int       `json:"inserted"`
	Skipped   int       `json:"skipped"`
}

type calculateResponse struct {
	Region string `json:"region"`
	Type   string `json:"type"`
	Rows   int    `json:"rows"`
}

type latestResponse struct {
	Region      string      `json:"region"`
	Daily       *averageDTO `json:"daily"`
	Monthly     *averageDTO `json:"monthly"`
	Rolling30d  *averageDTO `json:"rolling_30d"`
	Rolling365d *averageDTO `json:"rolling_365d"`
}

type averageDTO struct {
	PeriodType      string           `json:"period_type"`
	TimeKey         string           `json:"time_key"`
	PeriodStart     time.Time        `json:"period_start"`
	PeriodEnd       time.Time        `json:"period_end"`
	AvgWithoutTax   decimal.Decimal  `json:"avg_without_tax"`
	AvgWithTax      decimal.Decimal  `json:"avg_with_tax"`
	DayAvgWithTax   *decimal.Decimal `json:"day_avg_with_tax,omitempty"`
	NightAvgWithTax *decimal.Decimal `json:"night_avg_with_tax,omitempty"`
	Min             decimal.Decimal  `json:"min"`
	Max             decimal.Decimal  `json:"max"`
	HoursCount      int              `json:"hours_count"`
	CalculatedAt    time.Time        `json:"calculated_at"`
}

func toAverageDTO(avg *spotprice.SpotPriceAverage) *averageDTO {
	if avg == nil {
		return nil
	}
	return &averageDTO{
		PeriodType:      string(avg.PeriodType),
		TimeKey:         avg.TimeKey.String(),
		PeriodStart:     avg.PeriodStart.UTC(),
		PeriodEnd:       avg.PeriodEnd.UTC(),
		AvgWithoutTax:   avg.AvgWithoutTax,
		AvgWithTax:      avg.AvgWithTax,
		DayAvgWithTax:   avg.DayAvgWithTax,
		NightAvgWithTax: avg.NightAvgWithTax,
		Min:             avg.Min,
		Max:             avg.Max,
		HoursCount:      avg.HoursCount,
		CalculatedAt:    avg.CalculatedAt.UTC(),
	}
}
