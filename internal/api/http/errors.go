package apihttp

import (
	"encoding/json"
	"errors"
	"net/http"

	contractapp "electricity-compare/internal/contracts/application"
	contracts "electricity-compare/internal/contracts/domain"
	"electricity-compare/internal/estimator"
	"electricity-compare/internal/jobs"
	"electricity-compare/internal/referencedata"
	spotprice "electricity-compare/internal/spotprice/domain"
	"electricity-compare/internal/upstream"
)

// StatusFor maps domain errors to HTTP status codes.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, contracts.ErrContractNotFound),
		errors.Is(err, spotprice.ErrAverageNotFound),
		errors.Is(err, spotprice.ErrNoSpotPrices),
		errors.Is(err, referencedata.ErrPostcodeNotFound),
		errors.Is(err, referencedata.ErrMunicipalityNotFound):
		return http.StatusNotFound
	case errors.Is(err, contracts.ErrIncompleteTariffData),
		errors.Is(err, contracts.ErrConsumptionOutOfRange),
		errors.Is(err, contracts.ErrUnsupportedPricingModel):
		return http.StatusUnprocessableEntity
	case errors.Is(err, jobs.ErrJobRunning),
		errors.Is(err, jobs.ErrJobLocked):
		return http.StatusConflict
	case errors.Is(err, upstream.ErrUnavailable),
		errors.Is(err, upstream.ErrBadResponse),
		errors.Is(err, contractapp.ErrAllPostcodesFailed):
		return http.StatusBadGateway
	case errors.Is(err, contracts.ErrEmptyContractID),
		errors.Is(err, contracts.ErrInvalidUsage),
		errors.Is(err, spotprice.ErrEmptyRegion),
		errors.Is(err, spotprice.ErrInvalidDateRange),
		errors.Is(err, spotprice.ErrInvalidPeriodType),
		errors.Is(err, referencedata.ErrInvalidPostcode),
		errors.Is(err, estimator.ErrInvalidBuildingType),
		errors.Is(err, estimator.ErrInvalidHeatingMethod),
		errors.Is(err, estimator.ErrInvalidParams):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err with its mapped status. Internal errors are not echoed.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	http.Error(w, message, status)
}

// WriteJSON encodes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
