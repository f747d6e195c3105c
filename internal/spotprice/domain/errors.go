package spotprice

import "errors"

var (
	// ErrEmptyRegion is returned when the price region is empty.
	ErrEmptyRegion = errors.New("spotprice: empty region")
	// ErrInvalidTimestamp is returned when an hour timestamp is zero or not hour aligned.
	ErrInvalidTimestamp = errors.New("spotprice: invalid timestamp")
	// ErrInvalidPeriodType is returned when the period type is unsupported.
	ErrInvalidPeriodType = errors.New("spotprice: invalid period type")
	// ErrInvalidPeriod is returned when a period is empty or reversed.
	ErrInvalidPeriod = errors.New("spotprice: invalid period")
	// ErrInvalidDateRange is returned when a requested range starts after it ends.
	ErrInvalidDateRange = errors.New("spotprice: invalid date range")
	// ErrNoSpotPrices is returned when a period contains no stored hours.
	ErrNoSpotPrices = errors.New("spotprice: no spot prices in period")
	// ErrAverageNotFound is returned when no average is stored for a key.
	ErrAverageNotFound = errors.New("spotprice: average not found")
)
