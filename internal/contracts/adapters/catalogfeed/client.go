package catalogfeed

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	contractsapp "electricity-compare/internal/contracts/application"
	contracts "electricity-compare/internal/contracts/domain"
	"electricity-compare/internal/upstream"
)

// ErrUpstreamUnavailable is returned when the catalog feed cannot be reached.
var ErrUpstreamUnavailable = upstream.ErrUnavailable

const contractsPath = "/api/v1/contracts"

// Client reads the contract catalog feed.
type Client struct {
	http   *upstream.Client
	logger *zap.Logger
}

// NewClient constructs a catalog feed client.
func NewClient(baseURL string, logger *zap.Logger, opts ...upstream.Option) (*Client, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts = append([]upstream.Option{upstream.WithLogger(logger)}, opts...)
	httpClient, err := upstream.NewClient("catalogfeed", baseURL, opts...)
	if err != nil {
		return nil, err
	}
	return &Client{http: httpClient, logger: logger}, nil
}

type contractsResponse struct {
	Contracts []contractRecord `json:"contracts"`
}

type contractRecord struct {
	ID                    string         `json:"id"`
	Name                  string         `json:"name"`
	Company               companyRecord  `json:"company"`
	PricingModel          string         `json:"pricingModel"`
	Metering              string         `json:"metering"`
	Region                string         `json:"region"`
	ConsumptionLimitation *limitRecord   `json:"consumptionLimitation"`
	EnergySources         *sourcesRecord `json:"energySources"`
	Prices                []priceRecord  `json:"prices"`
}

type companyRecord struct {
	Name string `json:"name"`
}

type limitRecord struct {
	Min *int `json:"min"`
	Max *int `json:"max"`
}

type sourcesRecord struct {
	Renewable decimal.Decimal `json:"renewable"`
	Nuclear   decimal.Decimal `json:"nuclear"`
	Fossil    decimal.Decimal `json:"fossil"`
}

type priceRecord struct {
	Type     string          `json:"type"`
	Price    decimal.Decimal `json:"price"`
	Unit     string          `json:"unit"`
	Date     string          `json:"date"`
	FuseSize string          `json:"fuseSize"`
	Discount *discountRecord `json:"discount"`
}

type discountRecord struct {
	IsPercentage bool             `json:"isPercentage"`
	Value        decimal.Decimal  `json:"value"`
	Type         string           `json:"type"`
	FirstNKWh    *decimal.Decimal `json:"firstNKwh"`
	FirstNMonths *int             `json:"firstNMonths"`
	UntilDate    string           `json:"untilDate"`
}

// FetchContracts returns the raw contracts offered in a postcode area.
// Records with unparseable dates lose only the affected field.
func (c *Client) FetchContracts(ctx context.Context, postcode string) ([]contractsapp.RawContract, error) {
	if postcode == "" {
		return nil, errors.New("catalogfeed: empty postcode")
	}

	var resp contractsResponse
	if err := c.http.GetJSON(ctx, contractsPath, url.Values{"postcode": {postcode}}, &resp); err != nil {
		if errors.Is(err, upstream.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("catalogfeed: postcode %s: %w", postcode, err)
	}

	result := make([]contractsapp.RawContract, 0, len(resp.Contracts))
	for _, record := range resp.Contracts {
		result = append(result, c.toRaw(record))
	}
	return result, nil
}

func (c *Client) toRaw(record contractRecord) contractsapp.RawContract {
	raw := contractsapp.RawContract{
		UpstreamID:   record.ID,
		CompanyName:  record.Company.Name,
		Name:         record.Name,
		PricingModel: normalizePricingModel(record.PricingModel),
		Metering:     normalizeMetering(record.Metering),
		Region:       strings.ToUpper(strings.TrimSpace(record.Region)),
	}
	if record.ConsumptionLimitation != nil {
		raw.ConsumptionMin = record.ConsumptionLimitation.Min
		raw.ConsumptionMax = record.ConsumptionLimitation.Max
	}
	if record.EnergySources != nil {
		raw.EnergySources = contracts.EnergySources{
			RenewablePercent: record.EnergySources.Renewable,
			NuclearPercent:   record.EnergySources.Nuclear,
			FossilPercent:    record.EnergySources.Fossil,
		}
	}

	for _, p := range record.Prices {
		price := contractsapp.RawPrice{
			Type:        p.Type,
			Price:       p.Price,
			PaymentUnit: p.Unit,
		}
		if p.Date != "" {
			if date, ok := parseDate(p.Date); ok {
				price.PriceDate = &date
			} else {
				c.logger.Debug("catalog price date ignored", zap.String("contract", record.ID), zap.String("date", p.Date))
			}
		}
		if fuse := strings.TrimSpace(p.FuseSize); fuse != "" {
			price.FuseSize = &fuse
		}
		if p.Discount != nil {
			discount := &contracts.Discount{
				IsPercentage: p.Discount.IsPercentage,
				Value:        p.Discount.Value,
				Type:         p.Discount.Type,
				FirstNKWh:    p.Discount.FirstNKWh,
				FirstNMonths: p.Discount.FirstNMonths,
			}
			if until, ok := parseDate(p.Discount.UntilDate); ok {
				discount.UntilDate = &until
			}
			price.Discount = discount
		}
		raw.Prices = append(raw.Prices, price)
	}
	return raw
}

func parseDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func normalizePricingModel(value string) string {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(value), "_", "")) {
	case "fixed", "fixedprice":
		return string(contracts.PricingModelFixed)
	case "spot", "spotprice", "exchange":
		return string(contracts.PricingModelSpot)
	case "openended", "open":
		return string(contracts.PricingModelOpenEnded)
	case "timeofuse", "tou":
		return string(contracts.PricingModelTimeOfUse)
	default:
		return value
	}
}

func normalizeMetering(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "general":
		return string(contracts.MeteringGeneral)
	case "time", "daynight":
		return string(contracts.MeteringTime)
	case "seasonal":
		return string(contracts.MeteringSeasonal)
	default:
		return value
	}
}
