// Package marketdata turns the collector's sentence strings into typed records
// and derives spreads, curves and news categories from them. Everything here is
// pure: the same input always yields the same records and diagnostics.
package marketdata

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"MarketBrief/internal/domain/models"
)

var (
	// a period ends a sentence only when followed by whitespace or end of text,
	// so decimal points stay inside their numbers
	sentenceBreak = regexp.MustCompile(`\.(?:\s+|$)`)

	indexSentence = regexp.MustCompile(
		`(?i)^(\^?[A-Z0-9=.\-]+)\s*:\s*open:\s*([\d,.]+)\s*close:\s*([\d,.]+)$`)

	equitySentence = regexp.MustCompile(
		`(?i)^([A-Z0-9.\-]+)\s+(\d{4}-\d{2}-\d{2})\s*:\s*open:\s*\$([\d,.]+)\s*close:\s*\$([\d,.]+)$`)
)

// IndexNames maps quote symbols to display names.
var IndexNames = map[string]string{
	"^GSPC":    "S&P 500",
	"^DJI":     "Dow Jones",
	"^IXIC":    "NASDAQ",
	"^RUT":     "Russell 2000",
	"^VIX":     "VIX",
	"CL=F":     "WTI Crude",
	"BZ=F":     "Brent Crude",
	"GC=F":     "Gold",
	"DX-Y.NYB": "US Dollar Index",
}

// DisplayName returns the display name for symbol, or symbol itself.
func DisplayName(symbol string) string {
	if name, ok := IndexNames[symbol]; ok {
		return name
	}
	return symbol
}

// SplitSentences splits text on a period followed by optional whitespace and
// drops empty pieces.
func SplitSentences(text string) []string {
	parts := sentenceBreak.Split(text, -1)
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// ParseIndices parses "SYMBOL: Open: NUM Close: NUM" sentences in input order.
// Sentences that do not match, or whose open is zero, are skipped and reported.
func ParseIndices(text string) ([]models.IndexRecord, []models.Diagnostic) {
	var (
		records []models.IndexRecord
		diags   []models.Diagnostic
	)
	for _, s := range SplitSentences(text) {
		m := indexSentence.FindStringSubmatch(s)
		if m == nil {
			diags = append(diags, malformed(models.FieldIndices, s, "sentence does not match index pattern"))
			continue
		}
		open, err1 := ParseNumber(m[2])
		closePx, err2 := ParseNumber(m[3])
		if err := errors.Join(err1, err2); err != nil {
			diags = append(diags, malformed(models.FieldIndices, s, err.Error()))
			continue
		}
		chg, err := PercentChange(open, closePx)
		if err != nil {
			diags = append(diags, arithmetic(models.FieldIndices, s, err))
			continue
		}
		symbol := strings.ToUpper(m[1])
		records = append(records, models.IndexRecord{
			Symbol:      symbol,
			DisplayName: DisplayName(symbol),
			Open:        open,
			Close:       closePx,
			ChangePct:   chg,
		})
	}
	return records, diags
}

// ParseEquities parses "TICKER YYYY-MM-DD: Open: $NUM Close: $NUM" sentences in
// input order. Tickers are upper-cased.
func ParseEquities(text string) ([]models.EquityRecord, []models.Diagnostic) {
	var (
		records []models.EquityRecord
		diags   []models.Diagnostic
	)
	for _, s := range SplitSentences(text) {
		m := equitySentence.FindStringSubmatch(s)
		if m == nil {
			diags = append(diags, malformed(models.FieldEquities, s, "sentence does not match equity pattern"))
			continue
		}
		if _, err := time.Parse(time.DateOnly, m[2]); err != nil {
			diags = append(diags, malformed(models.FieldEquities, s, "invalid date "+m[2]))
			continue
		}
		open, err1 := ParseNumber(m[3])
		closePx, err2 := ParseNumber(m[4])
		if err := errors.Join(err1, err2); err != nil {
			diags = append(diags, malformed(models.FieldEquities, s, err.Error()))
			continue
		}
		chg, err := PercentChange(open, closePx)
		if err != nil {
			diags = append(diags, arithmetic(models.FieldEquities, s, err))
			continue
		}
		records = append(records, models.EquityRecord{
			Ticker:    strings.ToUpper(m[1]),
			Date:      m[2],
			Open:      open,
			Close:     closePx,
			ChangePct: chg,
		})
	}
	return records, diags
}

// GroupByTicker groups records per ticker keeping input order inside each group.
func GroupByTicker(records []models.EquityRecord) map[string][]models.EquityRecord {
	out := make(map[string][]models.EquityRecord)
	for _, r := range records {
		out[r.Ticker] = append(out[r.Ticker], r)
	}
	return out
}

// LatestByTicker returns the most recent bar of each ticker, ordered by first
// appearance of the ticker.
func LatestByTicker(records []models.EquityRecord) []models.EquityRecord {
	idx := make(map[string]int)
	var out []models.EquityRecord
	for _, r := range records {
		i, seen := idx[r.Ticker]
		if !seen {
			idx[r.Ticker] = len(out)
			out = append(out, r)
			continue
		}
		if r.Date > out[i].Date {
			out[i] = r
		}
	}
	return out
}

// ParseNumber parses a decimal number, ignoring thousands separators.
func ParseNumber(s string) (float64, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(strings.TrimSpace(s), ",", ""))
	if err != nil {
		return 0, fmt.Errorf("parse number %q: %w", s, err)
	}
	f, _ := d.Float64()
	return f, nil
}

func malformed(field, input, msg string) models.Diagnostic {
	return models.Diagnostic{Kind: models.MalformedRecord, Field: field, Input: input, Message: msg}
}

func arithmetic(field, input string, err error) models.Diagnostic {
	return models.Diagnostic{Kind: models.ArithmeticInvalid, Field: field, Input: input, Message: err.Error()}
}
