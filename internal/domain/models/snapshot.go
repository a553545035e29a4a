package models

import "time"

// Snapshot JSON keys.
const (
	FieldSpreadSeries = "tenyrtwoyr"
	FieldIndices      = "indice_data_str"
	FieldEquities     = "ticker_data"
	FieldNews         = "newsstr"
	FieldIndicators   = "economic_indicators"
	FieldYieldData    = "yield_data"
	FieldYieldSpreads = "yield_spreads"
)

// SnapshotDocument is the persisted JSON form of one collection run.
type SnapshotDocument struct {
	SpreadSeries       []string                      `json:"tenyrtwoyr"`
	Indices            string                        `json:"indice_data_str"`
	Equities           string                        `json:"ticker_data"`
	News               string                        `json:"newsstr"`
	EconomicIndicators map[string]string             `json:"economic_indicators"`
	YieldData          map[string]map[string]float64 `json:"yield_data,omitempty"`
	YieldSpreads       map[string]map[string]float64 `json:"yield_spreads,omitempty"`
	Meta               *SnapshotMeta                 `json:"meta,omitempty"`
}

// SnapshotMeta identifies the run that produced a snapshot.
type SnapshotMeta struct {
	RunID       string    `json:"run_id"`
	AsOf        string    `json:"as_of"`
	CollectedAt time.Time `json:"collected_at"`
}

// MarketSnapshot is the typed, read-only view of a snapshot document.
type MarketSnapshot struct {
	Meta               SnapshotMeta
	SpreadSeries       []DatedValue
	IndicesText        string
	EquitiesText       string
	NewsText           string
	EconomicIndicators map[string]string
	YieldCurve         map[string]map[string]float64
	YieldSpreads       map[string]map[string]float64
}

// SnapshotEvent announces a newly written snapshot.
type SnapshotEvent struct {
	RunID       string         `json:"run_id"`
	AsOf        string         `json:"as_of"`
	CollectedAt time.Time      `json:"collected_at"`
	Location    string         `json:"location"`
	Counts      map[string]int `json:"counts"`
}
