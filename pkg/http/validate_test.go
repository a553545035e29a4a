package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pageRequest struct {
	Limit  int    `query:"limit" default:"10" validate:"min=5,max=20"`
	Symbol string `query:"symbol" validate:"omitempty,max=4"`
}

func bindQuery(t *testing.T, query string) (*pageRequest, interface{}) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/?"+query, nil)
	c := e.NewContext(req, httptest.NewRecorder())
	out := &pageRequest{}
	return out, ReadAndValidateRequest(c, out)
}

func TestReadAndValidateRequestDefaults(t *testing.T) {
	req, verr := bindQuery(t, "")
	assert.Nil(t, verr)
	assert.Equal(t, 10, req.Limit)
}

func TestReadAndValidateRequestExplicitZeroIsValidated(t *testing.T) {
	req, verr := bindQuery(t, "limit=0")
	errs, ok := verr.([]ValidationError)
	require.True(t, ok)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_MIN", errs[0].Code)
	assert.Equal(t, "limit", errs[0].Field)
	assert.Equal(t, 0, req.Limit)
}

func TestReadAndValidateRequestReportsQueryNames(t *testing.T) {
	_, verr := bindQuery(t, "limit=30&symbol=TOOLONG")
	errs, ok := verr.([]ValidationError)
	require.True(t, ok)
	require.Len(t, errs, 2)

	assert.Equal(t, "ERR_MAX", errs[0].Code)
	assert.Equal(t, "limit", errs[0].Field)
	assert.Equal(t, "limit must be at most 20", errs[0].Message)
	assert.Equal(t, map[string]interface{}{"max": "20"}, errs[0].Params)
	assert.Equal(t, "symbol must be at most 4 characters", errs[1].Message)
}

func TestReadAndValidateRequestBindError(t *testing.T) {
	_, verr := bindQuery(t, "limit=abc")
	errs, ok := verr.([]ValidationError)
	require.True(t, ok)
	require.Len(t, errs, 1)
	assert.Equal(t, "ERR_BIND", errs[0].Code)
}
