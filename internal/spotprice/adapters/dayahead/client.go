package dayahead

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	spotprice "electricity-compare/internal/spotprice/domain"
	"electricity-compare/internal/upstream"
)

// ErrUpstreamUnavailable is returned when the day-ahead feed cannot be reached.
var ErrUpstreamUnavailable = upstream.ErrUnavailable

// ErrUnsupportedUnit is returned for price units the client cannot convert.
var ErrUnsupportedUnit = errors.New("dayahead: unsupported price unit")

const dayAheadPath = "/api/v1/day-ahead"

var mwhToCentsPerKWh = decimal.NewFromInt(10)

// Client reads day-ahead prices.
type Client struct {
	http   *upstream.Client
	logger *zap.Logger
}

// NewClient constructs a day-ahead feed client.
func NewClient(baseURL string, logger *zap.Logger, opts ...upstream.Option) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = append([]upstream.Option{upstream.WithLogger(logger)}, opts...)
	httpClient, err := upstream.NewClient("dayahead", baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{http: httpClient, logger: logger}, nil
}

type dayAheadResponse struct {
	Unit       string        `json:"unit"`
	Resolution string        `json:"resolution"`
	Prices     []priceRecord `json:"prices"`
}

type priceRecord struct {
	Timestamp string           `json:"timestamp"`
	Price     *decimal.Decimal `json:"price"`
}

// FetchDayAhead returns prices for [start, end) in c/kWh without tax.
// Records with an unparsable timestamp or a missing price are returned with
// a zero timestamp so the caller counts them as malformed.
func (c *Client) FetchDayAhead(ctx context.Context, region string, start, end time.Time) ([]spotprice.PricePoint, error) {
	query := url.Values{}
	query.Set("area", region)
	query.Set("start", start.UTC().Format(time.RFC3339))
	query.Set("end", end.UTC().Format(time.RFC3339))

	var resp dayAheadResponse
	if err := c.http.GetJSON(ctx, dayAheadPath, query, &resp); err != nil {
		if errors.Is(err, upstream.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}

	scale, err := unitScale(resp.Unit)
	if err != nil {
		return nil, err
	}

	points := make([]spotprice.PricePoint, 0, len(resp.Prices))
	for _, rec := range resp.Prices {
		ts, err := time.Parse(time.RFC3339, rec.Timestamp)
		if err != nil || rec.Price == nil {
			points = append(points, spotprice.PricePoint{})
			continue
		}
		points = append(points, spotprice.PricePoint{
			Timestamp: ts.UTC(),
			Price:     rec.Price.Div(scale),
		})
	}
	c.logger.Debug("day-ahead prices fetched",
		zap.String("region", region),
		zap.String("resolution", resp.Resolution),
		zap.Int("count", len(points)),
	)
	return points, nil
}

func unitScale(unit string) (decimal.Decimal, error) {
	switch strings.ToLower(strings.ReplaceAll(unit, " ", "")) {
	case "", "eur/mwh":
		return mwhToCentsPerKWh, nil
	case "c/kwh", "snt/kwh":
		return decimal.NewFromInt(1), nil
	default:
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrUnsupportedUnit, unit)
	}
}
