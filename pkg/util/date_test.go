package util

import (
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	require.True(t, ok)
	assert.Equal(t, s, got.UTC().Format(time.RFC3339))
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	require.True(t, ok)
	assert.Equal(t, ts, got.Unix())
}

func TestParseTimeDate(t *testing.T) {
	got, ok := ParseTime("2025-03-14")
	require.True(t, ok)
	assert.Equal(t, "2025-03-14", DateKey(got))
}

func TestYesterday(t *testing.T) {
	now := time.Date(2025, 3, 1, 15, 4, 0, 0, time.UTC)
	from, to := Yesterday(now)
	assert.Equal(t, "2025-02-28", from)
	assert.Equal(t, "2025-03-01", to)
}

func TestLookback(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC)
	from, to := Lookback(now, 7)
	assert.Equal(t, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC), from)
	assert.Equal(t, now, to)

	from, _ = Lookback(now, 0)
	assert.Equal(t, "2025-03-09", DateKey(from))
}

func TestClampAndCSV(t *testing.T) {
	assert.Equal(t, 5, Clamp(1, 5, 20))
	assert.Equal(t, 20, Clamp(99, 5, 20))
	assert.Equal(t, 10, Clamp(10, 5, 20))
	assert.Equal(t, []string{"Markets", "Economy"}, SplitCSV(" Markets, ,Economy "))
	assert.Nil(t, SplitCSV(""))
	assert.Equal(t, 7, ParseIntDefault(" 7 ", 3))
	assert.Equal(t, 3, ParseIntDefault("x", 3))
}
