package fred

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"MarketBrief/internal/service/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSeriesSkipsMissingObservations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fred/series/observations", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "DGS10", q.Get("series_id"))
		assert.Equal(t, "key", q.Get("api_key"))
		assert.Equal(t, "json", q.Get("file_type"))
		assert.Equal(t, "2025-03-07", q.Get("observation_start"))
		assert.Equal(t, "2025-03-14", q.Get("observation_end"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"observations":[
			{"date":"2025-03-12","value":"4.31"},
			{"date":"2025-03-13","value":"."},
			{"date":"2025-03-14","value":"4.27"}
		]}`))
	}))
	defer srv.Close()

	c := New(provider.Options{BaseURL: srv.URL, APIKey: "key"})
	from := time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

	got, err := c.Series(context.Background(), Treasury10Y, from, to)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"2025-03-12": 4.31, "2025-03-14": 4.27}, got)
}

func TestSeriesRetriesServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(`{"observations":[{"date":"2025-03-14","value":"0.33"}]}`))
	}))
	defer srv.Close()

	c := New(provider.Options{BaseURL: srv.URL, APIKey: "key", Retries: 2, Backoff: time.Millisecond})
	got, err := c.Series(context.Background(), "DGS2", time.Now(), time.Now())
	require.NoError(t, err)
	assert.Equal(t, 0.33, got["2025-03-14"])
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestSeriesReportsAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error_code":400,"error_message":"Bad Request. The series does not exist."}`))
	}))
	defer srv.Close()

	c := New(provider.Options{BaseURL: srv.URL, Retries: 3, Backoff: time.Millisecond})
	_, err := c.Series(context.Background(), "NOPE", time.Now(), time.Now())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "NOPE")
	assert.Contains(t, err.Error(), "400")
}
