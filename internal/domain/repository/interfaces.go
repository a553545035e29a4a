package repository

import (
	"context"
	"errors"
	"time"

	"MarketBrief/internal/domain/models"
)

var (
	ErrSnapshotNotFound = errors.New("snapshot not found")
	ErrWriteupNotFound  = errors.New("writeup not found")
)

// SnapshotStore persists the latest market snapshot document.
type SnapshotStore interface {
	Save(ctx context.Context, doc *models.SnapshotDocument) (location string, err error)
	Load(ctx context.Context) ([]byte, error)
}

// WriteupStore persists the daily generated brief, one per calendar date.
type WriteupStore interface {
	SaveWriteup(ctx context.Context, date, text string) (location string, err error)
	LoadWriteup(ctx context.Context, date string) (string, error)
}

// ArchiveBatch is the parsed content of one snapshot, ready for columnar storage.
type ArchiveBatch struct {
	Meta       models.SnapshotMeta
	Indices    []models.IndexRecord
	Equities   []models.EquityRecord
	Spreads    []models.SpreadRecord
	Curve      []models.CurvePoint
	CurveDate  string
	Indicators []models.Indicator
	News       []models.NewsItem
}

// Archive keeps every collected snapshot for later analysis.
type Archive interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, batch *ArchiveBatch) error
	Health(ctx context.Context) error
	Close() error
}

// EventPublisher announces freshly written snapshots.
type EventPublisher interface {
	PublishSnapshot(ctx context.Context, ev *models.SnapshotEvent) error
	Close() error
}

// SeriesSource returns a dated macro series, date -> value.
type SeriesSource interface {
	Series(ctx context.Context, id string, from, to time.Time) (map[string]float64, error)
}

// QuoteSource returns daily open/close bars for a symbol.
type QuoteSource interface {
	DailyBars(ctx context.Context, symbol string, from, to time.Time) ([]models.Bar, error)
}

// NewsSource returns headlines published between from and to (YYYY-MM-DD).
type NewsSource interface {
	Headlines(ctx context.Context, from, to string) ([]models.Article, error)
}

// Summarizer turns a prompt into prose.
type Summarizer interface {
	Summarize(ctx context.Context, prompt string) (string, error)
}

type Metrics interface {
	RecordProviderCall(provider string, err error, seconds float64)
	RecordError(kind string)
	RecordDiagnostics(diags []models.Diagnostic)
	RecordSnapshot(asOf time.Time, sections map[string]int)
	RecordLatency(op string, seconds float64)
}
