package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketBrief/internal/domain/models"
	drepo "MarketBrief/internal/domain/repository"
	"MarketBrief/internal/repository"
	icache "MarketBrief/internal/service/cache"
	"MarketBrief/internal/services/marketdata"
)

const dashboardNews = "\n📰 Broad Market News for 2024-05-03:\n" +
	"0. Stocks rally as Fed holds rates   Source: Reuters  URL: https://x/0\n" +
	"1. Oil prices jump on supply worries   Source: AP  URL: https://x/1\n" +
	"2. Apple earnings beat estimates   Source: CNBC  URL: https://x/2\n"

func sampleDocument() *models.SnapshotDocument {
	return &models.SnapshotDocument{
		SpreadSeries: []string{"2024-05-01: -0.40", "2024-05-02: -0.35"},
		Indices:      "^GSPC: Open: 5000.00 Close: 5050.00. ^DJI: Open: 38000.00 Close: 37900.00. ",
		Equities:     "AAPL 2024-05-01: Open: $170.00 Close: $171.00. MSFT 2024-05-01: Open: $400.00 Close: $404.00. AAPL 2024-05-02: Open: $171.00 Close: $173.00. ",
		News:         dashboardNews,
		EconomicIndicators: map[string]string{
			"CPI":                    "2024-04-01: 313.55",
			"Initial Jobless Claims": "2024-04-27: 208000.00",
		},
		YieldData: map[string]map[string]float64{
			"2Y":  {"2024-05-01": 5.0, "2024-05-02": 4.9},
			"10Y": {"2024-05-01": 4.6, "2024-05-02": 4.55},
			"3M":  {"2024-05-01": 5.45},
		},
		YieldSpreads: map[string]map[string]float64{
			"10Y-2Y": {"2024-05-01": -0.4, "2024-05-02": -0.35},
		},
		Meta: &models.SnapshotMeta{RunID: "run-1", AsOf: "2024-05-03"},
	}
}

func newDashboard(t *testing.T, doc *models.SnapshotDocument) (*Dashboard, *repository.FileStore) {
	t.Helper()
	store := repository.NewFileStore(t.TempDir(), "market_data.json", "Daily_write_ups")
	if doc != nil {
		_, err := store.Save(context.Background(), doc)
		require.NoError(t, err)
	}
	cache := icache.NewSnapshotCache(store.Load, nil, time.Hour)
	d := NewDashboard(cache, store, nil, nil)
	d.now = func() time.Time { return time.Date(2024, 5, 3, 9, 0, 0, 0, time.UTC) }
	return d, store
}

func TestDashboardOverview(t *testing.T) {
	d, store := newDashboard(t, sampleDocument())
	_, err := store.SaveWriteup(context.Background(), "2024-05-03", "brief")
	require.NoError(t, err)

	ov, err := d.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-1", ov.RunID)
	assert.Equal(t, 2, ov.Counts["indices"])
	assert.Equal(t, 3, ov.Counts["equities"])
	assert.Equal(t, 3, ov.Counts["news"])
	assert.Empty(t, ov.Unavailable)
	assert.True(t, ov.WriteupAvailable)
	assert.Equal(t, "store", ov.Source)
}

func TestDashboardMissingSnapshot(t *testing.T) {
	d, _ := newDashboard(t, nil)
	_, err := d.Indices(context.Background())
	assert.ErrorIs(t, err, drepo.ErrSnapshotNotFound)
}

func TestDashboardEquitiesFilter(t *testing.T) {
	d, _ := newDashboard(t, sampleDocument())

	all, err := d.Equities(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	aapl, err := d.Equities(context.Background(), "AAPL")
	require.NoError(t, err)
	require.Len(t, aapl, 2)
	assert.Equal(t, "2024-05-02", aapl[1].Date)

	none, err := d.Equities(context.Background(), "TSLA")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestDashboardYieldCurve(t *testing.T) {
	d, _ := newDashboard(t, sampleDocument())
	curve, err := d.YieldCurve(context.Background())
	require.NoError(t, err)
	assert.True(t, curve.Available)
	assert.Equal(t, "2024-05-02", curve.Date)
	require.Len(t, curve.Points, len(models.Tenors))
	for _, p := range curve.Points {
		switch p.Tenor {
		case "2Y":
			require.NotNil(t, p.Yield)
			assert.InDelta(t, 4.9, *p.Yield, 1e-9)
		case "3M":
			assert.Nil(t, p.Yield)
		}
	}
}

func TestDashboardSpreads(t *testing.T) {
	d, _ := newDashboard(t, sampleDocument())

	t.Run("stored and derived", func(t *testing.T) {
		s, err := d.Spreads(context.Background(), []string{"10Y-2Y", "10Y-3M"})
		require.NoError(t, err)
		assert.Len(t, s.Headline, 2)
		require.Len(t, s.Series["10Y-2Y"], 2)
		assert.True(t, s.Inverted["10Y-2Y"])
		require.Len(t, s.Series["10Y-3M"], 1)
		assert.InDelta(t, -0.85, s.Series["10Y-3M"][0].Value, 1e-9)
	})

	t.Run("tenor without data is omitted", func(t *testing.T) {
		s, err := d.Spreads(context.Background(), []string{"30Y-5Y"})
		require.NoError(t, err)
		assert.NotContains(t, s.Series, "30Y-5Y")
	})

	t.Run("bad name", func(t *testing.T) {
		_, err := d.Spreads(context.Background(), []string{"10Y"})
		assert.ErrorIs(t, err, marketdata.ErrUnknownSpread)
	})
}

func TestDashboardIndicatorsSorted(t *testing.T) {
	d, _ := newDashboard(t, sampleDocument())
	ind, err := d.Indicators(context.Background())
	require.NoError(t, err)
	require.Len(t, ind, 2)
	assert.Equal(t, "CPI", ind[0].Name)
	assert.Equal(t, "Initial Jobless Claims", ind[1].Name)
}

func TestDashboardNews(t *testing.T) {
	d, _ := newDashboard(t, sampleDocument())

	res, err := d.News(context.Background(), nil, 0)
	require.NoError(t, err)
	assert.Equal(t, marketdata.DefaultCategories, res.Categories)
	assert.Equal(t, DefaultNewsLimit, res.Limit)
	require.NotEmpty(t, res.Items)
	assert.Equal(t, 0, res.Items[0].Sequence)

	res, err = d.News(context.Background(), []string{models.CategoryCommodities}, 5)
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Equal(t, 1, res.Items[0].Sequence)

	res, err = d.News(context.Background(), nil, 100)
	require.NoError(t, err)
	assert.Equal(t, MaxNewsLimit, res.Limit)
}

func TestDashboardWriteupFallback(t *testing.T) {
	d, store := newDashboard(t, sampleDocument())
	day := time.Date(2024, 5, 3, 9, 0, 0, 0, time.UTC)

	w, err := d.Writeup(context.Background(), day)
	require.NoError(t, err)
	assert.False(t, w.Available)
	assert.Equal(t, WriteupFallback, w.Text)

	_, err = store.SaveWriteup(context.Background(), "2024-05-03", "Today's brief")
	require.NoError(t, err)
	w, err = d.Writeup(context.Background(), day)
	require.NoError(t, err)
	assert.True(t, w.Available)
	assert.Equal(t, "Today's brief", w.Text)
}

func TestDashboardRefreshReloads(t *testing.T) {
	d, store := newDashboard(t, sampleDocument())
	ov, err := d.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-1", ov.RunID)

	doc := sampleDocument()
	doc.Meta.RunID = "run-2"
	_, err = store.Save(context.Background(), doc)
	require.NoError(t, err)

	ov, err = d.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-1", ov.RunID)

	d.Refresh()
	ov, err = d.Overview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-2", ov.RunID)
}
