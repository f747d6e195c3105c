package catalogfeed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"electricity-compare/internal/upstream"
)

const feedBody = `{
  "contracts": [
    {
      "id": "c-100",
      "name": "Pörssisähkö",
      "company": {"name": "Energia Oy"},
      "pricingModel": "SPOT",
      "metering": "general",
      "region": "fi",
      "consumptionLimitation": {"max": 20000},
      "energySources": {"renewable": 60, "nuclear": 30, "fossil": 10},
      "prices": [
        {"type": "SpotMargin", "price": "0.49", "unit": "c/kWh", "date": "2024-06-01"},
        {"type": "Monthly", "price": 4.9, "unit": "EUR/month", "fuseSize": "3x25A",
         "discount": {"isPercentage": true, "value": 100, "firstNMonths": 3, "untilDate": "2024-12-31"}}
      ]
    }
  ]
}`

func TestFetchContracts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/contracts", r.URL.Path)
		assert.Equal(t, "00100", r.URL.Query().Get("postcode"))
		_, _ = w.Write([]byte(feedBody))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, nil)
	require.NoError(t, err)

	records, err := client.FetchContracts(context.Background(), "00100")
	require.NoError(t, err)
	require.Len(t, records, 1)

	raw := records[0]
	assert.Equal(t, "c-100", raw.UpstreamID)
	assert.Equal(t, "Spot", raw.PricingModel)
	assert.Equal(t, "General", raw.Metering)
	assert.Equal(t, "FI", raw.Region)
	assert.Nil(t, raw.ConsumptionMin)
	require.NotNil(t, raw.ConsumptionMax)
	assert.Equal(t, 20000, *raw.ConsumptionMax)
	assert.Equal(t, "60", raw.EnergySources.RenewablePercent.String())

	require.Len(t, raw.Prices, 2)
	require.NotNil(t, raw.Prices[0].PriceDate)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), *raw.Prices[0].PriceDate)
	assert.Equal(t, "0.49", raw.Prices[0].Price.String())

	monthly := raw.Prices[1]
	assert.Nil(t, monthly.PriceDate)
	require.NotNil(t, monthly.FuseSize)
	assert.Equal(t, "3x25A", *monthly.FuseSize)
	require.NotNil(t, monthly.Discount)
	assert.True(t, monthly.Discount.IsPercentage)
	require.NotNil(t, monthly.Discount.UntilDate)
	assert.Equal(t, 3, *monthly.Discount.FirstNMonths)
}

func TestFetchContracts_Unavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, nil, upstream.WithRetryPolicy(upstream.RetryPolicy{InitialInterval: time.Millisecond, MaxRetries: 1}))
	require.NoError(t, err)

	_, err = client.FetchContracts(context.Background(), "00100")
	assert.ErrorIs(t, err, ErrUpstreamUnavailable)
}
