package usecase

import (
	"context"
	"errors"
	"sort"
	"time"

	"MarketBrief/internal/domain/models"
	drepo "MarketBrief/internal/domain/repository"
	icache "MarketBrief/internal/service/cache"
	"MarketBrief/internal/services/marketdata"
	applogger "MarketBrief/pkg/logger"
	"MarketBrief/pkg/util"
)

// WriteupFallback is shown when no brief exists for the day.
const WriteupFallback = "Daily writeup not available for today."

// Default and allowed news limits.
const (
	DefaultNewsLimit = 10
	MinNewsLimit     = 5
	MaxNewsLimit     = 20
)

// Overview summarizes the snapshot currently served.
type Overview struct {
	RunID            string                        `json:"run_id,omitempty"`
	AsOf             string                        `json:"as_of,omitempty"`
	CollectedAt      *time.Time                    `json:"collected_at,omitempty"`
	Counts           map[string]int                `json:"counts"`
	Diagnostics      map[models.DiagnosticKind]int `json:"diagnostics"`
	Unavailable      []string                      `json:"unavailable,omitempty"`
	NewsSkipped      int                           `json:"news_skipped"`
	WriteupAvailable bool                          `json:"writeup_available"`
	Source           string                        `json:"source"`
	LoadedAt         time.Time                     `json:"loaded_at"`
	ExpiresAt        time.Time                     `json:"expires_at"`
}

// YieldCurve is the most recent curve in tenor order.
type YieldCurve struct {
	Date      string              `json:"date"`
	Points    []models.CurvePoint `json:"points"`
	Available bool                `json:"available"`
}

// Spreads holds the headline spread and the requested curve spreads.
type Spreads struct {
	Headline []models.DatedValue              `json:"headline"`
	Series   map[string][]models.SpreadRecord `json:"series"`
	Inverted map[string]bool                  `json:"inverted"`
}

// NewsResult is a filtered headline list.
type NewsResult struct {
	Categories []string          `json:"categories"`
	Limit      int               `json:"limit"`
	Items      []models.NewsItem `json:"items"`
}

// Writeup is the daily brief or the fallback text.
type Writeup struct {
	Date      string `json:"date"`
	Text      string `json:"text"`
	Available bool   `json:"available"`
}

// Dashboard answers read queries from the cached snapshot. Parsing happens
// once per cache fill.
type Dashboard struct {
	cache    *icache.SnapshotCache
	writeups drepo.WriteupStore
	metrics  drepo.Metrics
	l        *applogger.Logger
	now      func() time.Time
}

// NewDashboard creates the dashboard use case. metrics may be nil.
func NewDashboard(cache *icache.SnapshotCache, writeups drepo.WriteupStore, metrics drepo.Metrics, l *applogger.Logger) *Dashboard {
	if l == nil {
		l = applogger.Nop()
	}
	return &Dashboard{cache: cache, writeups: writeups, metrics: metrics, l: l, now: time.Now}
}

func (d *Dashboard) snapshot(ctx context.Context) (*icache.CachedSnapshot, error) {
	start := time.Now()
	snap, err := d.cache.Get(ctx)
	if d.metrics != nil {
		d.metrics.RecordLatency("snapshot_load", time.Since(start).Seconds())
	}
	if err != nil {
		if d.metrics != nil {
			d.metrics.RecordError("snapshot_load")
		}
		return nil, err
	}
	return snap, nil
}

// Overview reports what the current snapshot contains.
func (d *Dashboard) Overview(ctx context.Context) (*Overview, error) {
	snap, err := d.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	v := snap.View
	out := &Overview{
		Counts: map[string]int{
			"indices":       len(v.Indices),
			"equities":      len(v.Equities),
			"indicators":    len(v.Indicators),
			"news":          len(v.News),
			"spread_points": len(v.Snapshot.SpreadSeries),
		},
		Diagnostics: models.CountByKind(v.Diagnostics),
		Unavailable: v.Unavailable,
		NewsSkipped: v.NewsSkipped,
		Source:      snap.Source,
		LoadedAt:    snap.LoadedAt,
		ExpiresAt:   snap.ExpiresAt,
	}
	if meta := v.Snapshot.Meta; meta.RunID != "" {
		out.RunID = meta.RunID
		out.AsOf = meta.AsOf
		collected := meta.CollectedAt
		out.CollectedAt = &collected
	}
	if d.writeups != nil {
		_, err := d.writeups.LoadWriteup(ctx, util.DateKey(d.now()))
		out.WriteupAvailable = err == nil
	}
	return out, nil
}

// Indices returns the parsed index quotes.
func (d *Dashboard) Indices(ctx context.Context) ([]models.IndexRecord, error) {
	snap, err := d.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return nonNil(snap.View.Indices), nil
}

// Equities returns every equity bar, or only those of ticker when set.
func (d *Dashboard) Equities(ctx context.Context, ticker string) ([]models.EquityRecord, error) {
	snap, err := d.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if ticker == "" {
		return nonNil(snap.View.Equities), nil
	}
	return nonNil(marketdata.GroupByTicker(snap.View.Equities)[ticker]), nil
}

// YieldCurve returns the latest curve. Available is false when the snapshot
// carries no curve data.
func (d *Dashboard) YieldCurve(ctx context.Context) (*YieldCurve, error) {
	snap, err := d.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	curve := snap.View.Snapshot.YieldCurve
	date, points := marketdata.LatestCurve(curve, models.Tenors)
	return &YieldCurve{Date: date, Points: points, Available: len(curve) > 0}, nil
}

// Spreads returns the headline series plus the named spreads, or every key
// spread when names is empty. Stored spreads win over ones derived from the curve.
func (d *Dashboard) Spreads(ctx context.Context, names []string) (*Spreads, error) {
	snap, err := d.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		names = models.KeySpreads
	}

	ms := snap.View.Snapshot
	out := &Spreads{
		Headline: nonNil(ms.SpreadSeries),
		Series:   make(map[string][]models.SpreadRecord, len(names)),
		Inverted: make(map[string]bool, len(names)),
	}
	for _, name := range names {
		series, ok := ms.YieldSpreads[name]
		if !ok {
			derived, _, err := marketdata.SpreadSeries(ms.YieldCurve, name)
			if err != nil {
				if _, _, serr := marketdata.SplitSpreadName(name); serr != nil {
					return nil, serr
				}
				d.l.Debug("spread unavailable", applogger.String("spread", name), applogger.Error(err))
				continue
			}
			series = derived
		}
		records := marketdata.SpreadRecords(name, series)
		out.Series[name] = records
		if n := len(records); n > 0 {
			out.Inverted[name] = marketdata.IsInverted(records[n-1].Value)
		}
	}
	return out, nil
}

// Indicators returns the latest macro prints sorted by name.
func (d *Dashboard) Indicators(ctx context.Context) ([]models.Indicator, error) {
	snap, err := d.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	out := append([]models.Indicator(nil), snap.View.Indicators...)
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return nonNil(out), nil
}

// News filters headlines by category. Empty categories select the defaults;
// a limit of zero selects DefaultNewsLimit and others are clamped to
// [MinNewsLimit, MaxNewsLimit].
func (d *Dashboard) News(ctx context.Context, categories []string, limit int) (*NewsResult, error) {
	snap, err := d.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if len(categories) == 0 {
		categories = marketdata.DefaultCategories
	}
	if limit == 0 {
		limit = DefaultNewsLimit
	}
	limit = util.Clamp(limit, MinNewsLimit, MaxNewsLimit)
	return &NewsResult{
		Categories: categories,
		Limit:      limit,
		Items:      marketdata.FilterByCategory(snap.View.News, categories, limit),
	}, nil
}

// Writeup returns the brief written for the date of today, or the fallback.
func (d *Dashboard) Writeup(ctx context.Context, today time.Time) (*Writeup, error) {
	date := util.DateKey(today)
	out := &Writeup{Date: date, Text: WriteupFallback}
	if d.writeups == nil {
		return out, nil
	}
	text, err := d.writeups.LoadWriteup(ctx, date)
	switch {
	case errors.Is(err, drepo.ErrWriteupNotFound):
		return out, nil
	case err != nil:
		return nil, err
	}
	out.Text = text
	out.Available = true
	return out, nil
}

// Refresh drops the cached snapshot so the next query reloads it.
func (d *Dashboard) Refresh() {
	d.cache.Invalidate()
	d.l.Info("snapshot cache invalidated")
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
