package dayahead

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"electricity-compare/internal/upstream"
)

func fastRetry() upstream.Option {
	return upstream.WithRetryPolicy(upstream.RetryPolicy{
		InitialInterval: time.Millisecond,
		MaxInterval:     time.Millisecond,
		MaxRetries:      2,
	})
}

func TestFetchDayAhead_ConvertsEurPerMWh(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/day-ahead", r.URL.Path)
		assert.Equal(t, "FI", r.URL.Query().Get("area"))
		assert.Equal(t, "2024-03-14T00:00:00Z", r.URL.Query().Get("start"))
		_, _ = w.Write([]byte(`{"unit":"EUR/MWh","resolution":"PT15M","prices":[
			{"timestamp":"2024-03-14T00:00:00Z","price":52.3},
			{"timestamp":"2024-03-14T00:15:00Z","price":"-4.1"},
			{"timestamp":"garbage","price":1},
			{"timestamp":"2024-03-14T00:45:00Z"}
		]}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, nil)
	require.NoError(t, err)

	start := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)
	points, err := client.FetchDayAhead(context.Background(), "FI", start, start.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, points, 4)
	assert.True(t, points[0].Timestamp.Equal(start))
	assert.Equal(t, "5.23", points[0].Price.String())
	assert.Equal(t, "-0.41", points[1].Price.String())
	assert.True(t, points[2].Timestamp.IsZero())
	assert.True(t, points[3].Timestamp.IsZero())
}

func TestFetchDayAhead_CentsPassThrough(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"unit":"c/kWh","prices":[{"timestamp":"2024-03-14T00:00:00Z","price":7.5}]}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, nil)
	require.NoError(t, err)
	points, err := client.FetchDayAhead(context.Background(), "FI", time.Now(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "7.5", points[0].Price.String())
}

func TestFetchDayAhead_UnsupportedUnit(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"unit":"USD/MWh","prices":[]}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, nil)
	require.NoError(t, err)
	_, err = client.FetchDayAhead(context.Background(), "FI", time.Now(), time.Now().Add(time.Hour))
	require.ErrorIs(t, err, ErrUnsupportedUnit)
}

func TestFetchDayAhead_RetriesThenUnavailable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, nil, fastRetry())
	require.NoError(t, err)
	_, err = client.FetchDayAhead(context.Background(), "FI", time.Now(), time.Now().Add(time.Hour))
	require.ErrorIs(t, err, ErrUpstreamUnavailable)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchDayAhead_RecoversAfterTransientFailure(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte(`{"unit":"EUR/MWh","prices":[{"timestamp":"2024-03-14T00:00:00Z","price":10}]}`))
	}))
	defer srv.Close()

	client, err := NewClient(srv.URL, nil, fastRetry())
	require.NoError(t, err)
	points, err := client.FetchDayAhead(context.Background(), "FI", time.Now(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.Equal(t, "1", points[0].Price.String())
}
