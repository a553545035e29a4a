package models

// Tenors is the fixed display order of the Treasury curve.
var Tenors = []string{"3M", "6M", "1Y", "2Y", "3Y", "5Y", "7Y", "10Y", "20Y", "30Y"}

// KeySpreads are the spreads charted by the dashboard, long leg first.
var KeySpreads = []string{"10Y-2Y", "10Y-3M", "5Y-2Y", "30Y-5Y"}

// IndexRecord is one index, commodity or FX quote for the day.
type IndexRecord struct {
	Symbol      string  `json:"symbol"`
	DisplayName string  `json:"display_name"`
	Open        float64 `json:"open"`
	Close       float64 `json:"close"`
	ChangePct   float64 `json:"change_pct"`
}

// EquityRecord is one daily bar for one ticker.
type EquityRecord struct {
	Ticker    string  `json:"ticker"`
	Date      string  `json:"date"`
	Open      float64 `json:"open"`
	Close     float64 `json:"close"`
	ChangePct float64 `json:"change_pct"`
}

// CurvePoint is a tenor on the current curve. Yield is nil when the tenor
// has no observation on the curve date.
type CurvePoint struct {
	Tenor string   `json:"tenor"`
	Yield *float64 `json:"yield"`
}

// SpreadRecord is long minus short yield on one date.
type SpreadRecord struct {
	Name  string  `json:"name"`
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// DatedValue is the parsed form of a "YYYY-MM-DD: value" string.
type DatedValue struct {
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Indicator is the latest print of a macro series.
type Indicator struct {
	Name  string  `json:"name"`
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Bar is a daily open/close pair returned by a quote provider.
type Bar struct {
	Date  string
	Open  float64
	Close float64
}
