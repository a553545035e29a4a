package marketdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketBrief/internal/domain/models"
)

func TestComputeSpreadInnerJoin(t *testing.T) {
	t.Parallel()
	long := map[string]float64{"2024-01-01": 5.0, "2024-01-02": 5.1}
	short := map[string]float64{"2024-01-01": 4.0}

	got := ComputeSpread(long, short)
	assert.Equal(t, map[string]float64{"2024-01-01": 1.0}, got)

	_, diags := ComputeSpreadWithDiagnostics("10Y-2Y", long, short)
	require.Len(t, diags, 1)
	assert.Equal(t, models.DateJoinMismatch, diags[0].Kind)
	assert.Equal(t, "2024-01-02", diags[0].Input)
}

func TestPercentChange(t *testing.T) {
	t.Parallel()

	got, err := PercentChange(50, 55)
	require.NoError(t, err)
	assert.InDelta(t, 10.0, got, 1e-12)

	_, err = PercentChange(0, 10)
	assert.ErrorIs(t, err, ErrDivisionByZero)
}

func TestLatestCurve(t *testing.T) {
	t.Parallel()

	data := map[string]map[string]float64{
		"3M":  {"2024-06-03": 5.40, "2024-06-04": 5.41},
		"2Y":  {"2024-06-03": 4.80, "2024-06-04": 4.77},
		"10Y": {"2024-06-03": 4.40, "2024-06-04": 4.33},
		"20Y": {"2024-06-03": 4.60},
	}
	order := []string{"3M", "2Y", "10Y", "20Y", "30Y"}

	date, curve := LatestCurve(data, order)
	assert.Equal(t, "2024-06-04", date)
	require.Len(t, curve, len(order))
	for i, tenor := range order {
		assert.Equal(t, tenor, curve[i].Tenor)
	}
	require.NotNil(t, curve[0].Yield)
	assert.Equal(t, 5.41, *curve[0].Yield)
	assert.Equal(t, 4.33, *curve[2].Yield)
	assert.Nil(t, curve[3].Yield, "20Y has no print on the latest date")
	assert.Nil(t, curve[4].Yield, "30Y absent entirely")
}

func TestLatestCurveEmpty(t *testing.T) {
	t.Parallel()
	date, curve := LatestCurve(nil, models.Tenors)
	assert.Equal(t, "", date)
	require.Len(t, curve, len(models.Tenors))
	for _, p := range curve {
		assert.Nil(t, p.Yield)
	}
}

func TestSpreadSeries(t *testing.T) {
	t.Parallel()
	data := map[string]map[string]float64{
		"10Y": {"2024-06-03": 4.40, "2024-06-04": 4.30},
		"2Y":  {"2024-06-04": 4.80},
	}

	got, diags, err := SpreadSeries(data, "10Y-2Y")
	require.NoError(t, err)
	assert.Len(t, got, 1)
	assert.InDelta(t, -0.5, got["2024-06-04"], 1e-9)
	assert.Len(t, diags, 1)

	recs := SpreadRecords("10Y-2Y", got)
	require.Len(t, recs, 1)
	assert.True(t, IsInverted(recs[0].Value))

	_, _, err = SpreadSeries(data, "10Y")
	assert.ErrorIs(t, err, ErrUnknownSpread)
	_, _, err = SpreadSeries(data, "30Y-5Y")
	assert.ErrorIs(t, err, ErrUnknownSpread)
}

func TestSpreadRecordsOrdered(t *testing.T) {
	t.Parallel()
	recs := SpreadRecords("5Y-2Y", map[string]float64{"2024-01-03": 3, "2024-01-01": 1, "2024-01-02": 2})
	require.Len(t, recs, 3)
	assert.Equal(t, "2024-01-01", recs[0].Date)
	assert.Equal(t, "2024-01-03", recs[2].Date)
}

func TestParseDatedValues(t *testing.T) {
	t.Parallel()

	dv, err := ParseDatedValue("2024-06-04: -0.47")
	require.NoError(t, err)
	assert.Equal(t, models.DatedValue{Date: "2024-06-04", Value: -0.47}, dv)

	series, diags := ParseDatedSeries(models.FieldSpreadSeries, []string{"2024-06-03: 0.10", "nope", "2024-06-04: 0.12"})
	assert.Len(t, series, 2)
	require.Len(t, diags, 1)
	assert.Equal(t, "nope", diags[0].Input)

	inds, diags := ParseIndicators(map[string]string{
		"CPI":                    "2024-04-01: 313.55",
		"Initial Jobless Claims": "2024-05-25: 229,000.00",
		"Broken":                 "n/a",
	})
	require.Len(t, inds, 2)
	assert.Equal(t, "CPI", inds[0].Name)
	assert.Equal(t, 229000.0, inds[1].Value)
	assert.Len(t, diags, 1)
}

func TestParseDatedValueRejectsBadDates(t *testing.T) {
	t.Parallel()
	for _, in := range []string{"abcdefghij: 1", "2024-13-01: 1", "2024-6-4: 1", "2024-06-04 1"} {
		_, err := ParseDatedValue(in)
		assert.Error(t, err, in)
	}

	series, diags := ParseDatedSeries(models.FieldSpreadSeries, []string{"abcdefghij: 1", "2024-06-04: 0.12"})
	require.Len(t, series, 1)
	require.Len(t, diags, 1)
	assert.Equal(t, models.MalformedRecord, diags[0].Kind)
}
