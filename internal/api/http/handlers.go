package apihttp

import (
	"encoding/csv"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	spotprice "electricity-compare/internal/spotprice/domain"
)

const (
	timeLayout = time.RFC3339

	maxHoursRange = 400 * 24 * time.Hour
)

// SpotHoursHandler serves the stored hourly series.
type SpotHoursHandler struct {
	hours spotprice.HourRepository
}

// NewSpotHoursHandler constructs a SpotHoursHandler.
func NewSpotHoursHandler(hours spotprice.HourRepository) *SpotHoursHandler {
	return &SpotHoursHandler{hours: hours}
}

// ServeHTTP handles GET /api/v1/spot/hours.
func (h *SpotHoursHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rows, ok := h.load(w, r)
	if !ok {
		return
	}
	WriteJSON(w, http.StatusOK, rows)
}

// ExportSpotHoursCSVHandler serves the hourly series as CSV.
type ExportSpotHoursCSVHandler struct {
	hours *SpotHoursHandler
}

// NewExportSpotHoursCSVHandler constructs an ExportSpotHoursCSVHandler.
func NewExportSpotHoursCSVHandler(hours spotprice.HourRepository) *ExportSpotHoursCSVHandler {
	return &ExportSpotHoursCSVHandler{hours: NewSpotHoursHandler(hours)}
}

// ServeHTTP handles GET /api/v1/exports/spot-hours.csv.
func (h *ExportSpotHoursCSVHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	rows, ok := h.hours.load(w, r)
	if !ok {
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	writer := csv.NewWriter(w)
	_ = writer.Write([]string{
		"region",
		"timestamp",
		"price_without_tax",
		"vat_rate",
		"price_with_tax",
	})
	for _, row := range rows {
		_ = writer.Write([]string{
			row.Region,
			row.Timestamp.Format(timeLayout),
			row.PriceWithoutTax.String(),
			row.VATRate.String(),
			row.PriceWithTax.String(),
		})
	}
	writer.Flush()
}

type hourRow struct {
	Region          string          `json:"region"`
	Timestamp       time.Time       `json:"timestamp"`
	PriceWithoutTax decimal.Decimal `json:"price_without_tax"`
	VATRate         decimal.Decimal `json:"vat_rate"`
	PriceWithTax    decimal.Decimal `json:"price_with_tax"`
}

func (h *SpotHoursHandler) load(w http.ResponseWriter, r *http.Request) ([]hourRow, bool) {
	if h == nil || h.hours == nil {
		http.Error(w, "server not ready", http.StatusServiceUnavailable)
		return nil, false
	}
	region := r.URL.Query().Get("region")
	if region == "" {
		http.Error(w, "region is required", http.StatusBadRequest)
		return nil, false
	}
	from, err := parseTimeQuery(r, "from")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	to, err := parseTimeQuery(r, "to")
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return nil, false
	}
	if !to.After(from) {
		http.Error(w, "to must be after from", http.StatusBadRequest)
		return nil, false
	}
	if to.Sub(from) > maxHoursRange {
		http.Error(w, "range too large", http.StatusBadRequest)
		return nil, false
	}

	hours, err := h.hours.ListRange(r.Context(), region, from, to)
	if err != nil {
		WriteError(w, err)
		return nil, false
	}
	rows := make([]hourRow, 0, len(hours))
	for _, hour := range hours {
		rows = append(rows, hourRow{
			Region:          hour.Region,
			Timestamp:       hour.Timestamp.UTC(),
			PriceWithoutTax: hour.PriceWithoutTax,
			VATRate:         hour.VATRate,
			PriceWithTax:    hour.PriceWithTax(),
		})
	}
	return rows, true
}

func parseTimeQuery(r *http.Request, key string) (time.Time, error) {
	value := r.URL.Query().Get(key)
	if value == "" {
		return time.Time{}, errors.New(key + " is required")
	}
	parsed, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, errors.New(key + " must be RFC3339")
	}
	return parsed.UTC(), nil
}
