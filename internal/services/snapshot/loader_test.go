package snapshot

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketBrief/internal/domain/models"
	"MarketBrief/internal/services/marketdata"
)

const fullDoc = `{
  "tenyrtwoyr": ["2024-06-03: -0.41", "2024-06-04: -0.44"],
  "indice_data_str": "^GSPC: Open: 5,283.40 Close: 5,291.34. ^VIX: Open: 0 Close: 12.6. ",
  "ticker_data": "AAPL 2024-06-04: Open: $194.64 Close: $194.35. ",
  "newsstr": "\n📰 Broad Market News for 2024-06-04:\n0. Oil slides   Source: Reuters  URL: https://r\n",
  "economic_indicators": {"CPI": "2024-04-01: 313.55"},
  "yield_data": {"10Y": {"2024-06-04": 4.33}, "2Y": {"2024-06-04": 4.77}},
  "yield_spreads": {"10Y-2Y": {"2024-06-04": -0.44}},
  "meta": {"run_id": "r1", "as_of": "2024-06-04", "collected_at": "2024-06-04T21:00:00Z"}
}`

func TestLoadFullDocument(t *testing.T) {
	t.Parallel()

	v, err := Load([]byte(fullDoc))
	require.NoError(t, err)

	assert.Empty(t, v.Unavailable)
	require.Len(t, v.Snapshot.SpreadSeries, 2)
	assert.Equal(t, -0.44, v.Snapshot.SpreadSeries[1].Value)

	require.Len(t, v.Indices, 1)
	assert.Equal(t, 5283.40, v.Indices[0].Open)
	require.Len(t, v.Diagnostics, 1)
	assert.Equal(t, models.ArithmeticInvalid, v.Diagnostics[0].Kind)

	require.Len(t, v.Equities, 1)
	require.Len(t, v.News, 1)
	assert.Equal(t, []string{models.CategoryCommodities}, v.News[0].Categories)
	require.Len(t, v.Indicators, 1)
	assert.Equal(t, "r1", v.Snapshot.Meta.RunID)
	assert.Equal(t, 4.33, v.Snapshot.YieldCurve["10Y"]["2024-06-04"])
}

func TestLoadMissingFields(t *testing.T) {
	t.Parallel()

	v, err := Load([]byte(`{"indice_data_str": "^DJI: Open: 100 Close: 101."}`))
	require.NoError(t, err)

	assert.Len(t, v.Indices, 1)
	assert.True(t, v.Available(models.FieldIndices))
	assert.False(t, v.Available(models.FieldNews))
	assert.False(t, v.Available(models.FieldYieldData))

	missing := models.CountByKind(v.Diagnostics)[models.MissingField]
	assert.Equal(t, 6, missing)
	assert.NotNil(t, v.Snapshot.YieldCurve)
	assert.NotNil(t, v.Snapshot.EconomicIndicators)
}

func TestLoadWrongTypedKeyKeepsOtherSections(t *testing.T) {
	t.Parallel()

	v, err := Load([]byte(`{
  "tenyrtwoyr": "2024-01-01: 0.5",
  "indice_data_str": "^GSPC: Open: 100 Close: 110. ",
  "ticker_data": 42,
  "newsstr": "",
  "economic_indicators": {"CPI": "2024-04-01: 313.55", "GDP": 7},
  "yield_data": {"10Y": {"2024-01-02": 4.1}},
  "yield_spreads": {}
}`))
	require.NoError(t, err)

	require.Len(t, v.Indices, 1)
	assert.Equal(t, 110.0, v.Indices[0].Close)
	require.Len(t, v.Indicators, 1)
	assert.Empty(t, v.Snapshot.SpreadSeries)
	assert.Empty(t, v.Equities)

	assert.False(t, v.Available(models.FieldSpreadSeries))
	assert.False(t, v.Available(models.FieldEquities))
	assert.True(t, v.Available(models.FieldIndices))
	assert.Equal(t, 3, models.CountByKind(v.Diagnostics)[models.MalformedRecord])
}

func TestLoadNullYieldIsGap(t *testing.T) {
	t.Parallel()

	v, err := Load([]byte(`{"yield_data": {"10Y": {"2024-01-02": 4.1}, "20Y": {"2024-01-02": null}}}`))
	require.NoError(t, err)

	date, points := marketdata.LatestCurve(v.Snapshot.YieldCurve, models.Tenors)
	assert.Equal(t, "2024-01-02", date)
	for _, p := range points {
		switch p.Tenor {
		case "10Y":
			require.NotNil(t, p.Yield)
			assert.Equal(t, 4.1, *p.Yield)
		case "20Y":
			assert.Nil(t, p.Yield)
		}
	}
	assert.NotContains(t, v.Snapshot.YieldCurve["20Y"], "2024-01-02")
}

func TestLoadInvalidJSON(t *testing.T) {
	t.Parallel()
	_, err := Load([]byte(`{"tenyrtwoyr": [`))
	assert.Error(t, err)
}

func TestFormattedSentencesParseBack(t *testing.T) {
	t.Parallel()

	bars := []models.Bar{{Date: "2024-06-03", Open: 1150.5, Close: 1163.25}, {Date: "2024-06-04", Open: 1164, Close: 1164.37}}
	equities := ""
	for _, b := range bars {
		equities += FormatEquitySentence("NVDA", b)
	}
	indices := FormatIndexSentence("^GSPC", 5283.4, 5291.34) + FormatIndexSentence("GC=F", 2350, 2337.5)
	news := FormatNewsBlob("2024-06-04", []models.Article{
		{Title: "Fed holds\nrates", Source: "AP", URL: "https://a"},
		{Title: "Dow slips", Source: "WSJ", URL: "https://b"},
	})

	doc := models.SnapshotDocument{
		SpreadSeries: FormatDatedSeries(map[string]float64{"2024-06-04": -0.44, "2024-06-03": -0.41}),
		Indices:      indices,
		Equities:     equities,
		News:         news,
	}
	v := Build(doc, nil)

	assert.Empty(t, v.Diagnostics)
	require.Len(t, v.Equities, 2)
	assert.Equal(t, "NVDA", v.Equities[0].Ticker)
	assert.Equal(t, 1163.25, v.Equities[0].Close)
	require.Len(t, v.Indices, 2)
	assert.Equal(t, "Gold", v.Indices[1].DisplayName)
	require.Len(t, v.News, 2)
	assert.Equal(t, "Fed holds rates", v.News[0].Headline)
	assert.Equal(t, 1, v.News[1].Sequence)
	assert.Equal(t, []string{"2024-06-03: -0.41", "2024-06-04: -0.44"}, doc.SpreadSeries)
}

func TestFormatNewsBlobCaps(t *testing.T) {
	t.Parallel()
	arts := make([]models.Article, 60)
	for i := range arts {
		arts[i] = models.Article{Title: "Stocks", Source: "S", URL: "u"}
	}
	items := Build(models.SnapshotDocument{News: FormatNewsBlob("2024-06-04", arts)}, nil).News
	assert.Len(t, items, MaxNewsLines)
}
