package snapshot

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"MarketBrief/internal/domain/models"
)

// MaxNewsLines caps the number of headlines written to the news blob.
const MaxNewsLines = 41

// Money formats v with two decimals.
func Money(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

// FormatDatedValue renders "YYYY-MM-DD: v.vv".
func FormatDatedValue(date string, v float64) string {
	return fmt.Sprintf("%s: %s", date, Money(v))
}

// FormatDatedSeries renders a date->value map as dated strings in date order.
func FormatDatedSeries(series map[string]float64) []string {
	dates := make([]string, 0, len(series))
	for d := range series {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	out := make([]string, 0, len(dates))
	for _, d := range dates {
		out = append(out, FormatDatedValue(d, series[d]))
	}
	return out
}

// FormatIndexSentence renders one index quote in the parser's sentence form.
func FormatIndexSentence(symbol string, open, close float64) string {
	return fmt.Sprintf("%s: Open: %s Close: %s. ", symbol, Money(open), Money(close))
}

// FormatEquitySentence renders one daily bar in the parser's sentence form.
func FormatEquitySentence(ticker string, bar models.Bar) string {
	return fmt.Sprintf("%s %s: Open: $%s Close: $%s. ", ticker, bar.Date, Money(bar.Open), Money(bar.Close))
}

// FormatNewsBlob renders the header and up to MaxNewsLines numbered headlines.
func FormatNewsBlob(asOf string, articles []models.Article) string {
	var b strings.Builder
	fmt.Fprintf(&b, "\n📰 Broad Market News for %s:\n", asOf)
	for i, a := range articles {
		if i >= MaxNewsLines {
			break
		}
		title := strings.Join(strings.Fields(a.Title), " ")
		fmt.Fprintf(&b, "%d. %s   Source: %s  URL: %s\n", i, title, a.Source, a.URL)
	}
	return b.String()
}
