package marketdata

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"MarketBrief/internal/domain/models"
)

var (
	// ErrDivisionByZero is returned by PercentChange when open is zero.
	ErrDivisionByZero = errors.New("percent change: open is zero")
	// ErrUnknownSpread is returned for spread names that are not LONG-SHORT tenors.
	ErrUnknownSpread = errors.New("unknown spread")
)

// PercentChange returns (close-open)/open*100.
func PercentChange(open, close float64) (float64, error) {
	if open == 0 {
		return 0, ErrDivisionByZero
	}
	return (close - open) / open * 100, nil
}

// ComputeSpread returns long minus short for the dates present in both series.
func ComputeSpread(long, short map[string]float64) map[string]float64 {
	out := make(map[string]float64)
	for date, l := range long {
		if s, ok := short[date]; ok {
			out[date] = l - s
		}
	}
	return out
}

// ComputeSpreadWithDiagnostics is ComputeSpread that also reports every date
// found on only one leg, in date order.
func ComputeSpreadWithDiagnostics(name string, long, short map[string]float64) (map[string]float64, []models.Diagnostic) {
	out := ComputeSpread(long, short)
	var diags []models.Diagnostic
	for _, date := range unionDates(long, short) {
		if _, ok := out[date]; ok {
			continue
		}
		diags = append(diags, models.Diagnostic{
			Kind:    models.DateJoinMismatch,
			Field:   name,
			Input:   date,
			Message: "date missing on one leg",
		})
	}
	return out, diags
}

// LatestCurve picks the greatest date across all tenors and returns that
// day's yield per tenor in tenorOrder. Tenors without an observation on that
// date get a nil yield.
func LatestCurve(yieldData map[string]map[string]float64, tenorOrder []string) (string, []models.CurvePoint) {
	latest := ""
	for _, series := range yieldData {
		for date := range series {
			if date > latest {
				latest = date
			}
		}
	}

	points := make([]models.CurvePoint, 0, len(tenorOrder))
	for _, tenor := range tenorOrder {
		p := models.CurvePoint{Tenor: tenor}
		if v, ok := yieldData[tenor][latest]; ok && latest != "" {
			p.Yield = &v
		}
		points = append(points, p)
	}
	return latest, points
}

// SplitSpreadName splits "10Y-2Y" into its long and short tenors.
func SplitSpreadName(name string) (long, short string, err error) {
	long, short, ok := strings.Cut(name, "-")
	if !ok || long == "" || short == "" {
		return "", "", fmt.Errorf("%w: %q", ErrUnknownSpread, name)
	}
	return long, short, nil
}

// SpreadSeries derives the named spread from curve data.
func SpreadSeries(yieldData map[string]map[string]float64, name string) (map[string]float64, []models.Diagnostic, error) {
	long, short, err := SplitSpreadName(name)
	if err != nil {
		return nil, nil, err
	}
	if yieldData[long] == nil || yieldData[short] == nil {
		return nil, nil, fmt.Errorf("%w: no curve data for %q", ErrUnknownSpread, name)
	}
	out, diags := ComputeSpreadWithDiagnostics(name, yieldData[long], yieldData[short])
	return out, diags, nil
}

// SpreadRecords flattens a date->value series into records ordered by date.
func SpreadRecords(name string, series map[string]float64) []models.SpreadRecord {
	dates := make([]string, 0, len(series))
	for d := range series {
		dates = append(dates, d)
	}
	sort.Strings(dates)

	out := make([]models.SpreadRecord, 0, len(dates))
	for _, d := range dates {
		out = append(out, models.SpreadRecord{Name: name, Date: d, Value: series[d]})
	}
	return out
}

// IsInverted reports whether a spread value signals an inverted curve.
func IsInverted(v float64) bool { return v < 0 }

// ParseDatedValue parses "YYYY-MM-DD: value".
func ParseDatedValue(s string) (models.DatedValue, error) {
	date, raw, ok := strings.Cut(s, ":")
	date = strings.TrimSpace(date)
	if !ok {
		return models.DatedValue{}, fmt.Errorf("dated value %q: expected \"YYYY-MM-DD: value\"", s)
	}
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return models.DatedValue{}, fmt.Errorf("dated value %q: bad date: %w", s, err)
	}
	v, err := ParseNumber(raw)
	if err != nil {
		return models.DatedValue{}, fmt.Errorf("dated value %q: %w", s, err)
	}
	return models.DatedValue{Date: date, Value: v}, nil
}

// ParseDatedSeries parses a list of dated values, skipping and reporting bad entries.
func ParseDatedSeries(field string, values []string) ([]models.DatedValue, []models.Diagnostic) {
	out := make([]models.DatedValue, 0, len(values))
	var diags []models.Diagnostic
	for _, s := range values {
		dv, err := ParseDatedValue(s)
		if err != nil {
			diags = append(diags, malformed(field, s, err.Error()))
			continue
		}
		out = append(out, dv)
	}
	return out, diags
}

// ParseIndicators turns name -> "date: value" into indicators sorted by name.
func ParseIndicators(raw map[string]string) ([]models.Indicator, []models.Diagnostic) {
	names := make([]string, 0, len(raw))
	for n := range raw {
		names = append(names, n)
	}
	sort.Strings(names)

	out := make([]models.Indicator, 0, len(names))
	var diags []models.Diagnostic
	for _, n := range names {
		dv, err := ParseDatedValue(raw[n])
		if err != nil {
			diags = append(diags, malformed(models.FieldIndicators, raw[n], err.Error()))
			continue
		}
		out = append(out, models.Indicator{Name: n, Date: dv.Date, Value: dv.Value})
	}
	return out, diags
}

func unionDates(a, b map[string]float64) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for d := range a {
		seen[d] = struct{}{}
	}
	for d := range b {
		seen[d] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for d := range seen {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}
