package marketdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketBrief/internal/domain/models"
)

func TestCategorize(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		headline string
		want     []string
	}{
		{"economy", "Fed raises interest rates", []string{models.CategoryEconomy}},
		{"other", "Random unrelated sentence", []string{models.CategoryOther}},
		{"two categories", "Oil climbs as dollar weakens", []string{models.CategoryCommodities, models.CategoryCurrencies}},
		{"case insensitive", "NASDAQ closes higher", []string{models.CategoryMarkets}},
		{"markets and companies", "Nvidia CEO lifts stock", []string{models.CategoryMarkets, models.CategoryCompanies}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, Categorize(tt.headline))
		})
	}
}

func TestSplitNewsBlob(t *testing.T) {
	t.Parallel()

	t.Run("header then numbered line", func(t *testing.T) {
		t.Parallel()
		items, skipped := SplitNewsBlob("Broad Market News:\n1. Title A   Source: Reuters  URL: http://x")
		require.Len(t, items, 1)
		assert.Zero(t, skipped)
		assert.Equal(t, 1, items[0].Sequence)
		assert.Equal(t, "Title A", items[0].Headline)
		assert.Equal(t, "Reuters", items[0].Source)
		assert.Equal(t, "http://x", items[0].URL)
		assert.Equal(t, []string{models.CategoryOther}, items[0].Categories)
	})

	t.Run("collector layout", func(t *testing.T) {
		t.Parallel()
		blob := "\n📰 Broad Market News for 2024-06-04:\n" +
			"0. Stocks rally on Fed hopes   Source: CNBC  URL: https://a\n" +
			"not a headline\n" +
			"\n" +
			"1. Gold hits record   Source: Bloomberg  URL: https://b\n"
		items, skipped := SplitNewsBlob(blob)
		require.Len(t, items, 2)
		assert.Equal(t, 1, skipped)
		assert.Equal(t, 0, items[0].Sequence)
		assert.Equal(t, []string{models.CategoryMarkets, models.CategoryEconomy}, items[0].Categories)
		assert.Equal(t, "Gold hits record", items[1].Headline)
	})

	t.Run("empty", func(t *testing.T) {
		t.Parallel()
		items, skipped := SplitNewsBlob("")
		assert.Empty(t, items)
		assert.Zero(t, skipped)
	})
}

func TestFilterByCategory(t *testing.T) {
	t.Parallel()

	items := []models.NewsItem{
		{Sequence: 0, Categories: []string{models.CategoryMarkets}},
		{Sequence: 1, Categories: []string{models.CategoryOther}},
		{Sequence: 2, Categories: []string{models.CategoryEconomy, models.CategoryCurrencies}},
		{Sequence: 3, Categories: []string{models.CategoryMarkets}},
	}

	got := FilterByCategory(items, DefaultCategories, 2)
	require.Len(t, got, 2)
	assert.Equal(t, 0, got[0].Sequence)
	assert.Equal(t, 2, got[1].Sequence)

	got = FilterByCategory(items, []string{models.CategoryMarkets}, 0)
	assert.Len(t, got, 2)

	assert.Empty(t, FilterByCategory(items, nil, 10))
}
