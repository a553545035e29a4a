package newsapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"MarketBrief/internal/service/provider"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeadlinesConcatenatesQueriesAndSkipsFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/v2/everything", r.URL.Path)
		assert.Equal(t, "2025-03-13", q.Get("from"))
		assert.Equal(t, "2025-03-14", q.Get("to"))
		assert.Equal(t, "en", q.Get("language"))
		assert.Equal(t, "publishedAt", q.Get("sortBy"))
		assert.Equal(t, "100", q.Get("pageSize"))
		switch q.Get("q") {
		case "stocks":
			_, _ = w.Write([]byte(`{"status":"ok","articles":[
				{"source":{"name":"Reuters"},"title":"Stocks rally","url":"https://r.test/1"},
				{"source":{"name":"CNBC"},"title":"Nasdaq jumps","url":"https://c.test/2"}]}`))
		case "oil":
			_, _ = w.Write([]byte(`{"status":"error","code":"rateLimited","message":"slow down"}`))
		default:
			_, _ = w.Write([]byte(`{"status":"ok","articles":[
				{"source":{"name":"AP"},"title":"CPI cools","url":"https://a.test/3"}]}`))
		}
	}))
	defer srv.Close()

	c := New(provider.Options{BaseURL: srv.URL, APIKey: "k"}, []string{"stocks", "oil", "cpi"}, 0)
	got, err := c.Headlines(context.Background(), "2025-03-13", "2025-03-14")
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "Stocks rally", got[0].Title)
	assert.Equal(t, "CNBC", got[1].Source)
	assert.Equal(t, "https://a.test/3", got[2].URL)
}

func TestHeadlinesFailsWhenEveryQueryFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"status":"error","code":"apiKeyInvalid"}`))
	}))
	defer srv.Close()

	c := New(provider.Options{BaseURL: srv.URL}, []string{"a", "b"}, 50)
	_, err := c.Headlines(context.Background(), "2025-03-13", "2025-03-14")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 news queries failed")
}

func TestDefaultQueries(t *testing.T) {
	c := New(provider.Options{BaseURL: "http://unused"}, nil, 0)
	assert.Len(t, c.queries, 6)
	assert.Equal(t, 100, c.pageSize)
}
