package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetry() RetryPolicy {
	return RetryPolicy{InitialInterval: time.Millisecond, MaxInterval: 2 * time.Millisecond, MaxRetries: 3}
}

func TestGetJSON_RetriesTransientFailures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		assert.Equal(t, "FI", r.URL.Query().Get("area"))
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"value": 42}`))
	}))
	defer srv.Close()

	client, err := NewClient("test", srv.URL+"/", WithRetryPolicy(fastRetry()), WithToken("secret"))
	require.NoError(t, err)

	var out struct {
		Value int `json:"value"`
	}
	require.NoError(t, client.GetJSON(context.Background(), "/api", url.Values{"area": {"FI"}}, &out))
	assert.Equal(t, 42, out.Value)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestGetJSON_GivesUpAsUnavailable(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	client, err := NewClient("test", srv.URL, WithRetryPolicy(fastRetry()))
	require.NoError(t, err)

	err = client.GetJSON(context.Background(), "/api", nil, nil)
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(4), atomic.LoadInt32(&calls))
}

func TestGetJSON_ClientErrorsAreNotRetried(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad area", http.StatusBadRequest)
	}))
	defer srv.Close()

	client, err := NewClient("test", srv.URL, WithRetryPolicy(fastRetry()))
	require.NoError(t, err)

	err = client.GetJSON(context.Background(), "/api", nil, nil)
	assert.ErrorIs(t, err, ErrBadResponse)
	assert.Contains(t, err.Error(), "bad area")
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestNewClient_EmptyBaseURL(t *testing.T) {
	_, err := NewClient("test", "")
	assert.Error(t, err)
}
