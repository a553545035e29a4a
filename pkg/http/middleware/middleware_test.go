package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	applogger "MarketBrief/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

type countingAllower struct{ left int }

func (a *countingAllower) Allow(string) bool {
	if a.left <= 0 {
		return false
	}
	a.left--
	return true
}

func newEcho(mw ...echo.MiddlewareFunc) *echo.Echo {
	e := echo.New()
	e.Use(mw...)
	e.GET("/ok", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })
	e.GET("/panic", func(c echo.Context) error { panic(errors.New("boom")) })
	return e
}

func serve(e *echo.Echo, method, path string, hdr map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRateLimitRejectsWhenBucketEmpty(t *testing.T) {
	e := newEcho(RateLimit(&countingAllower{left: 1}))

	assert.Equal(t, http.StatusOK, serve(e, http.MethodGet, "/ok", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, serve(e, http.MethodGet, "/ok", nil).Code)
}

func TestRecoverTurnsPanicInto500(t *testing.T) {
	e := newEcho(Recover(applogger.Nop()))

	rec := serve(e, http.MethodGet, "/panic", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal Server Error")
}

func TestCORSPreflight(t *testing.T) {
	e := newEcho(CORS(DefaultCORSConfig()))
	e.OPTIONS("/ok", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := serve(e, http.MethodOptions, "/ok", map[string]string{"Origin": "http://example.test"})
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://example.test", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodGet)
}

func TestCORSRejectsUnknownOrigin(t *testing.T) {
	e := newEcho(CORS(CORSConfig{AllowOrigins: []string{"http://a.test"}}))

	rec := serve(e, http.MethodGet, "/ok", map[string]string{"Origin": "http://b.test"})
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestStatusClass(t *testing.T) {
	assert.Equal(t, "2xx", statusClass(204))
	assert.Equal(t, "4xx", statusClass(429))
	assert.Equal(t, "5xx", statusClass(503))
}
