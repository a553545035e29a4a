package marketdata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"MarketBrief/internal/domain/models"
)

func TestParseIndices(t *testing.T) {
	t.Parallel()

	t.Run("single sentence", func(t *testing.T) {
		t.Parallel()
		recs, diags := ParseIndices("^GSPC: Open: 5000 Close: 5050.")
		require.Len(t, recs, 1)
		assert.Empty(t, diags)
		assert.Equal(t, "^GSPC", recs[0].Symbol)
		assert.Equal(t, "S&P 500", recs[0].DisplayName)
		assert.Equal(t, 5000.0, recs[0].Open)
		assert.Equal(t, 5050.0, recs[0].Close)
		assert.InDelta(t, (5050.0-5000.0)/5000.0*100, recs[0].ChangePct, 1e-12)
	})

	t.Run("thousands separators", func(t *testing.T) {
		t.Parallel()
		recs, diags := ParseIndices("^DJI: Open: 1,234.56 Close: 39,100.25.")
		require.Len(t, recs, 1)
		assert.Empty(t, diags)
		assert.Equal(t, 1234.56, recs[0].Open)
		assert.Equal(t, 39100.25, recs[0].Close)
	})

	t.Run("empty input", func(t *testing.T) {
		t.Parallel()
		recs, diags := ParseIndices("")
		assert.Empty(t, recs)
		assert.Empty(t, diags)
	})

	t.Run("malformed sentence does not stop the batch", func(t *testing.T) {
		t.Parallel()
		recs, diags := ParseIndices("^GSPC: Open: 100 Close: 110. garbage. ^DJI: Open: 200 Close: 190.")
		require.Len(t, recs, 2)
		require.Len(t, diags, 1)
		assert.Equal(t, "^GSPC", recs[0].Symbol)
		assert.Equal(t, "^DJI", recs[1].Symbol)
		assert.InDelta(t, 10.0, recs[0].ChangePct, 1e-9)
		assert.InDelta(t, -5.0, recs[1].ChangePct, 1e-9)
		assert.Equal(t, models.MalformedRecord, diags[0].Kind)
		assert.Equal(t, "garbage", diags[0].Input)
	})

	t.Run("zero open is dropped", func(t *testing.T) {
		t.Parallel()
		recs, diags := ParseIndices("^VIX: Open: 0 Close: 14.2. ^RUT: Open: 2000 Close: 2010.")
		require.Len(t, recs, 1)
		assert.Equal(t, "^RUT", recs[0].Symbol)
		require.Len(t, diags, 1)
		assert.Equal(t, models.ArithmeticInvalid, diags[0].Kind)
	})

	t.Run("futures and unknown symbols", func(t *testing.T) {
		t.Parallel()
		recs, diags := ParseIndices("CL=F: Open: 78.10 Close: 79.00. DX-Y.NYB: Open: 104.2 Close: 104.0. ^FTSE: Open: 8000 Close: 8100.")
		assert.Empty(t, diags)
		require.Len(t, recs, 3)
		assert.Equal(t, "WTI Crude", recs[0].DisplayName)
		assert.Equal(t, "US Dollar Index", recs[1].DisplayName)
		assert.Equal(t, "^FTSE", recs[2].DisplayName)
	})

	t.Run("deterministic", func(t *testing.T) {
		t.Parallel()
		in := "^GSPC: Open: 100 Close: 110. x. ^IXIC: Open: 1,000 Close: 990."
		r1, d1 := ParseIndices(in)
		r2, d2 := ParseIndices(in)
		assert.Equal(t, r1, r2)
		assert.Equal(t, d1, d2)
	})
}

func TestParseEquities(t *testing.T) {
	t.Parallel()

	in := "AAPL 2024-05-01: Open: $170.00 Close: $173.40. " +
		"msft 2024-05-01: Open: $1,400.00 Close: $1,386.00. " +
		"bad sentence. " +
		"BRK.B 2024-05-02: Open: $400 Close: $404. "

	recs, diags := ParseEquities(in)
	require.Len(t, recs, 3)
	require.Len(t, diags, 1)

	assert.Equal(t, "AAPL", recs[0].Ticker)
	assert.Equal(t, "2024-05-01", recs[0].Date)
	assert.InDelta(t, 2.0, recs[0].ChangePct, 1e-9)

	assert.Equal(t, "MSFT", recs[1].Ticker)
	assert.Equal(t, 1400.0, recs[1].Open)
	assert.InDelta(t, -1.0, recs[1].ChangePct, 1e-9)

	assert.Equal(t, "BRK.B", recs[2].Ticker)
	assert.Equal(t, models.MalformedRecord, diags[0].Kind)
	assert.Equal(t, models.FieldEquities, diags[0].Field)
}

func TestParseEquitiesRejectsBadDate(t *testing.T) {
	t.Parallel()
	recs, diags := ParseEquities("NVDA 2024-13-45: Open: $1 Close: $2.")
	assert.Empty(t, recs)
	require.Len(t, diags, 1)
	assert.Equal(t, models.MalformedRecord, diags[0].Kind)
}

func TestLatestByTicker(t *testing.T) {
	t.Parallel()
	recs := []models.EquityRecord{
		{Ticker: "AAPL", Date: "2024-05-01", Close: 1},
		{Ticker: "TSLA", Date: "2024-05-02", Close: 2},
		{Ticker: "AAPL", Date: "2024-05-02", Close: 3},
	}
	latest := LatestByTicker(recs)
	require.Len(t, latest, 2)
	assert.Equal(t, "AAPL", latest[0].Ticker)
	assert.Equal(t, 3.0, latest[0].Close)
	assert.Equal(t, "TSLA", latest[1].Ticker)

	groups := GroupByTicker(recs)
	assert.Len(t, groups["AAPL"], 2)
	assert.Len(t, groups["TSLA"], 1)
}

func TestSplitSentencesKeepsDecimals(t *testing.T) {
	t.Parallel()
	got := SplitSentences("a 1.5 b.  c 2.25.d. ")
	assert.Equal(t, []string{"a 1.5 b", "c 2.25.d"}, got)
}
