package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketBrief/internal/domain/models"
	"MarketBrief/internal/repository"
	icache "MarketBrief/internal/service/cache"
	"MarketBrief/internal/usecase"
	"MarketBrief/pkg/http/middleware"
	"MarketBrief/pkg/queue"
)

type envelope struct {
	Status int             `json:"status"`
	Data   json.RawMessage `json:"data"`
}

type recordingQueue struct {
	types []string
	err   error
}

func (q *recordingQueue) Enqueue(_ context.Context, msgType string, _ interface{}) (string, error) {
	if q.err != nil {
		return "", q.err
	}
	q.types = append(q.types, msgType)
	return "job-1", nil
}

type denyAll struct{}

func (denyAll) Allow(string) bool { return false }

func testDocument() *models.SnapshotDocument {
	return &models.SnapshotDocument{
		SpreadSeries: []string{"2024-05-02: -0.35"},
		Indices:      "^GSPC: Open: 5000.00 Close: 5050.00. ^DJI: Open: 38000.00 Close: 37900.00. ",
		Equities:     "AAPL 2024-05-02: Open: $171.00 Close: $173.00. ",
		News: "\n📰 Broad Market News for 2024-05-03:\n" +
			"0. Stocks rally as Fed holds rates   Source: Reuters  URL: https://x/0\n" +
			"1. Oil prices jump on supply worries   Source: AP  URL: https://x/1\n",
		EconomicIndicators: map[string]string{"CPI": "2024-04-01: 313.55"},
		YieldData: map[string]map[string]float64{
			"2Y":  {"2024-05-02": 4.9},
			"10Y": {"2024-05-02": 4.55},
		},
	}
}

func newTestServer(t *testing.T, doc *models.SnapshotDocument, limiter middleware.Allower) *echo.Echo {
	t.Helper()
	return newTestServerWithQueue(t, doc, limiter, nil)
}

func newTestServerWithQueue(t *testing.T, doc *models.SnapshotDocument, limiter middleware.Allower, q queue.Enqueuer) *echo.Echo {
	t.Helper()
	store := repository.NewFileStore(t.TempDir(), "market_data.json", "Daily_write_ups")
	if doc != nil {
		_, err := store.Save(context.Background(), doc)
		require.NoError(t, err)
	}
	uc := usecase.NewDashboard(icache.NewSnapshotCache(store.Load, nil, time.Hour), store, nil, nil)
	h := NewDashboardHandler(nil, uc, nil, limiter)
	if q != nil {
		h.WithCollectQueue(q)
	}

	e := echo.New()
	h.RegisterRoutes(e)
	return e
}

func do(t *testing.T, e *echo.Echo, method, target string) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

func TestDashboardRoutes(t *testing.T) {
	e := newTestServer(t, testDocument(), nil)

	tests := []struct {
		name   string
		method string
		target string
		status int
	}{
		{"overview", http.MethodGet, "/api/overview", http.StatusOK},
		{"indices", http.MethodGet, "/api/indices", http.StatusOK},
		{"equities", http.MethodGet, "/api/equities?ticker=aapl", http.StatusOK},
		{"yield curve", http.MethodGet, "/api/yield-curve", http.StatusOK},
		{"spreads", http.MethodGet, "/api/spreads?name=10Y-2Y", http.StatusOK},
		{"bad spread", http.MethodGet, "/api/spreads?name=10Y", http.StatusBadRequest},
		{"indicators", http.MethodGet, "/api/indicators", http.StatusOK},
		{"news default", http.MethodGet, "/api/news", http.StatusOK},
		{"news limit too small", http.MethodGet, "/api/news?limit=3", http.StatusBadRequest},
		{"news limit zero", http.MethodGet, "/api/news?limit=0", http.StatusBadRequest},
		{"news limit too large", http.MethodGet, "/api/news?limit=25", http.StatusBadRequest},
		{"news unknown category", http.MethodGet, "/api/news?categories=Sports", http.StatusBadRequest},
		{"writeup", http.MethodGet, "/api/writeup", http.StatusOK},
		{"refresh", http.MethodPost, "/api/cache/refresh", http.StatusAccepted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, env := do(t, e, tt.method, tt.target)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.status, env.Status)
		})
	}
}

func TestDashboardNewsFilter(t *testing.T) {
	e := newTestServer(t, testDocument(), nil)
	_, env := do(t, e, http.MethodGet, "/api/news?categories=commodities&limit=5")

	var res usecase.NewsResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, []string{models.CategoryCommodities}, res.Categories)
	assert.Equal(t, 5, res.Limit)
	require.Len(t, res.Items, 1)
	assert.Equal(t, "Oil prices jump on supply worries", res.Items[0].Headline)
}

func TestDashboardEquitiesTicker(t *testing.T) {
	e := newTestServer(t, testDocument(), nil)
	_, env := do(t, e, http.MethodGet, "/api/equities?ticker=aapl")

	var res struct {
		Rows  []models.EquityRecord `json:"rows"`
		Total int                   `json:"total"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, 1, res.Total)
	assert.Equal(t, "AAPL", res.Rows[0].Ticker)
}

func TestDashboardWriteupFallback(t *testing.T) {
	e := newTestServer(t, testDocument(), nil)
	_, env := do(t, e, http.MethodGet, "/api/writeup")

	var res usecase.Writeup
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.False(t, res.Available)
	assert.Equal(t, usecase.WriteupFallback, res.Text)
}

func TestDashboardWithoutSnapshot(t *testing.T) {
	e := newTestServer(t, nil, nil)
	rec, _ := do(t, e, http.MethodGet, "/api/indices")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestDashboardRateLimited(t *testing.T) {
	e := newTestServer(t, testDocument(), denyAll{})
	rec, _ := do(t, e, http.MethodGet, "/api/indices")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestDashboardCollect(t *testing.T) {
	rec, _ := do(t, newTestServer(t, testDocument(), nil), http.MethodPost, "/api/collect")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	q := &recordingQueue{}
	rec, env := do(t, newTestServerWithQueue(t, testDocument(), nil, q), http.MethodPost, "/api/collect")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"job_id":"job-1"}`, string(env.Data))
	assert.Equal(t, []string{usecase.CollectJobType}, q.types)

	q.err = errors.New("redis down")
	rec, _ = do(t, newTestServerWithQueue(t, testDocument(), nil, q), http.MethodPost, "/api/collect")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
