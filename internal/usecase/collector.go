package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"MarketBrief/internal/domain/models"
	drepo "MarketBrief/internal/domain/repository"
	icache "MarketBrief/internal/service/cache"
	"MarketBrief/internal/service/gemini"
	"MarketBrief/internal/services/marketdata"
	"MarketBrief/internal/services/snapshot"
	pkgcache "MarketBrief/pkg/cache"
	applogger "MarketBrief/pkg/logger"
	"MarketBrief/pkg/util"

	"github.com/google/uuid"
)

// ErrRunInProgress is returned when another collection holds the run lock.
var ErrRunInProgress = errors.New("collector: run already in progress")

const (
	runLockKey = "collector:run"
	// indicatorLookbackDays covers monthly releases, which a one-week window usually misses.
	indicatorLookbackDays = 90
	// indexLookbackDays reaches back over weekends and holidays to the last session.
	indexLookbackDays = 7
)

// CollectorConfig lists what to collect. CurveSeries maps tenors to series
// ids and Indicators maps display names to series ids.
type CollectorConfig struct {
	Tickers      []string
	Indices      []string
	CurveSeries  map[string]string
	Indicators   map[string]string
	LookbackDays int
	Interval     time.Duration
	RunLockTTL   time.Duration
	SnapshotTTL  time.Duration
	SkipWriteup  bool
}

// RunReport summarizes one collection.
type RunReport struct {
	RunID          string            `json:"run_id"`
	AsOf           string            `json:"as_of"`
	Location       string            `json:"location"`
	WriteupPath    string            `json:"writeup_path,omitempty"`
	Counts         map[string]int    `json:"counts"`
	ProviderErrors map[string]string `json:"provider_errors,omitempty"`
	Diagnostics    int               `json:"diagnostics"`
	Duration       time.Duration     `json:"duration"`
}

func (r *RunReport) fail(source string, err error) {
	if r.ProviderErrors == nil {
		r.ProviderErrors = make(map[string]string)
	}
	r.ProviderErrors[source] = err.Error()
}

// Collector gathers one market snapshot per run and writes the daily brief.
type Collector struct {
	cfg        CollectorConfig
	series     drepo.SeriesSource
	quotes     drepo.QuoteSource
	news       drepo.NewsSource
	summarizer drepo.Summarizer
	store      drepo.SnapshotStore
	writeups   drepo.WriteupStore
	archive    drepo.Archive
	publisher  drepo.EventPublisher
	shared     pkgcache.Service
	metrics    drepo.Metrics
	l          *applogger.Logger
	now        func() time.Time
	newID      func() string
	localLock  sync.Mutex
}

// CollectorDeps groups the collector's collaborators. Archive, Publisher,
// Shared and Summarizer are optional.
type CollectorDeps struct {
	Series     drepo.SeriesSource
	Quotes     drepo.QuoteSource
	News       drepo.NewsSource
	Summarizer drepo.Summarizer
	Store      drepo.SnapshotStore
	Writeups   drepo.WriteupStore
	Archive    drepo.Archive
	Publisher  drepo.EventPublisher
	Shared     pkgcache.Service
	Metrics    drepo.Metrics
	Logger     *applogger.Logger
}

// NewCollector creates a collector.
func NewCollector(cfg CollectorConfig, deps CollectorDeps) *Collector {
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 7
	}
	if cfg.RunLockTTL <= 0 {
		cfg.RunLockTTL = 10 * time.Minute
	}
	if cfg.SnapshotTTL <= 0 {
		cfg.SnapshotTTL = 24 * time.Hour
	}
	l := deps.Logger
	if l == nil {
		l = applogger.Nop()
	}
	return &Collector{
		cfg:        cfg,
		series:     deps.Series,
		quotes:     deps.Quotes,
		news:       deps.News,
		summarizer: deps.Summarizer,
		store:      deps.Store,
		writeups:   deps.Writeups,
		archive:    deps.Archive,
		publisher:  deps.Publisher,
		shared:     deps.Shared,
		metrics:    deps.Metrics,
		l:          l.With(applogger.String("component", "collector")),
		now:        time.Now,
		newID:      func() string { return uuid.NewString() },
	}
}

// Start runs once, then again every Interval until ctx is cancelled.
// With no interval it returns after the first run.
func (c *Collector) Start(ctx context.Context) error {
	if _, err := c.Run(ctx, c.now()); err != nil && !errors.Is(err, ErrRunInProgress) {
		if c.cfg.Interval <= 0 {
			return err
		}
		c.l.Error("collection failed", applogger.Error(err))
	}
	if c.cfg.Interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(c.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if _, err := c.Run(ctx, c.now()); err != nil {
				if errors.Is(err, ErrRunInProgress) {
					c.l.Warn("skipping tick, previous run still active")
					continue
				}
				c.l.Error("collection failed", applogger.Error(err))
			}
		}
	}
}

// Run collects every section for the date of today. Provider failures leave
// their section empty; only failing to save the snapshot fails the run.
func (c *Collector) Run(ctx context.Context, today time.Time) (*RunReport, error) {
	unlock, err := c.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	start := c.now()
	asOf := util.DateKey(today)
	report := &RunReport{RunID: c.newID(), AsOf: asOf, Counts: make(map[string]int)}
	log := c.l.With(applogger.String("run_id", report.RunID), applogger.String("as_of", asOf))
	log.Info("collection started")

	from, to := util.Lookback(today, c.cfg.LookbackDays)
	doc := &models.SnapshotDocument{
		EconomicIndicators: map[string]string{},
		Meta:               &models.SnapshotMeta{RunID: report.RunID, AsOf: asOf, CollectedAt: start.UTC()},
	}

	yieldData := c.collectCurve(ctx, report, from, to)
	c.fillSpreads(doc, report, yieldData)
	doc.EconomicIndicators = c.collectIndicators(ctx, report, today)
	doc.Equities = c.collectEquities(ctx, report, from, today)
	doc.Indices = c.collectIndices(ctx, report, today)
	doc.News = c.collectNews(ctx, report, today)

	location, err := c.store.Save(ctx, doc)
	if err != nil {
		c.recordError("save")
		return report, fmt.Errorf("save snapshot: %w", err)
	}
	report.Location = location
	c.share(ctx, doc)

	view := snapshot.Build(*doc, nil)
	report.Diagnostics = len(view.Diagnostics)
	report.Counts["indices"] = len(view.Indices)
	report.Counts["equities"] = len(view.Equities)
	report.Counts["news"] = len(view.News)
	report.Counts["indicators"] = len(view.Indicators)
	if c.metrics != nil {
		c.metrics.RecordDiagnostics(view.Diagnostics)
		c.metrics.RecordSnapshot(start, report.Counts)
	}

	c.archiveView(ctx, log, doc, view)
	c.publish(ctx, log, report)
	c.writeBrief(ctx, log, report, doc)

	report.Duration = c.now().Sub(start)
	if c.metrics != nil {
		c.metrics.RecordLatency("collect", report.Duration.Seconds())
	}
	log.Info("collection finished",
		applogger.String("location", location),
		applogger.Int("diagnostics", report.Diagnostics),
		applogger.Int("provider_errors", len(report.ProviderErrors)),
		applogger.Duration("duration_ms", report.Duration),
	)
	return report, nil
}

// lock takes the shared run lock when a cache is configured, else a process-local one.
func (c *Collector) lock(ctx context.Context) (func(), error) {
	if c.shared == nil {
		if !c.localLock.TryLock() {
			return nil, ErrRunInProgress
		}
		return c.localLock.Unlock, nil
	}
	ok, err := c.shared.TryLock(ctx, runLockKey, c.cfg.RunLockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		return nil, ErrRunInProgress
	}
	return func() {
		if err := c.shared.Unlock(context.WithoutCancel(ctx), runLockKey); err != nil {
			c.l.Warn("release run lock", applogger.Error(err))
		}
	}, nil
}

// call times one provider request and records its outcome.
func (c *Collector) call(provider string, fn func() error) error {
	start := time.Now()
	err := fn()
	if c.metrics != nil {
		c.metrics.RecordProviderCall(provider, err, time.Since(start).Seconds())
	}
	return err
}

func (c *Collector) recordError(kind string) {
	if c.metrics != nil {
		c.metrics.RecordError(kind)
	}
}

func (c *Collector) collectCurve(ctx context.Context, report *RunReport, from, to time.Time) map[string]map[string]float64 {
	yieldData := make(map[string]map[string]float64)
	if c.series == nil {
		return yieldData
	}
	for _, tenor := range models.Tenors {
		id, ok := c.cfg.CurveSeries[tenor]
		if !ok {
			continue
		}
		var obs map[string]float64
		err := c.call("fred", func() (err error) {
			obs, err = c.series.Series(ctx, id, from, to)
			return err
		})
		if err != nil {
			c.l.Warn("curve series failed", applogger.String("series", id), applogger.Error(err))
			report.fail("fred:"+id, err)
			continue
		}
		if len(obs) > 0 {
			yieldData[tenor] = obs
		}
	}
	report.Counts["curve_tenors"] = len(yieldData)
	return yieldData
}

// fillSpreads derives the headline 10Y-2Y series and every key spread from the
// curve. Both maps are keyed by tenor or spread name, then date.
func (c *Collector) fillSpreads(doc *models.SnapshotDocument, report *RunReport, yieldData map[string]map[string]float64) {
	if len(yieldData) == 0 {
		return
	}
	doc.YieldData = yieldData
	doc.YieldSpreads = make(map[string]map[string]float64)
	for _, name := range models.KeySpreads {
		series, _, err := marketdata.SpreadSeries(yieldData, name)
		if err != nil {
			continue
		}
		doc.YieldSpreads[name] = series
		if name == "10Y-2Y" {
			doc.SpreadSeries = snapshot.FormatDatedSeries(series)
			report.Counts["spread_points"] = len(series)
		}
	}
}

func (c *Collector) collectIndicators(ctx context.Context, report *RunReport, today time.Time) map[string]string {
	out := make(map[string]string)
	if c.series == nil {
		return out
	}
	from, to := util.Lookback(today, indicatorLookbackDays)
	for _, name := range sortedKeys(c.cfg.Indicators) {
		id := c.cfg.Indicators[name]
		var obs map[string]float64
		err := c.call("fred", func() (err error) {
			obs, err = c.series.Series(ctx, id, from, to)
			return err
		})
		if err != nil {
			c.l.Warn("indicator failed", applogger.String("indicator", name), applogger.Error(err))
			report.fail("fred:"+id, err)
			continue
		}
		if date, ok := latestKey(obs); ok {
			out[name] = snapshot.FormatDatedValue(date, obs[date])
		}
	}
	return out
}

func (c *Collector) collectEquities(ctx context.Context, report *RunReport, from, today time.Time) string {
	if c.quotes == nil {
		return ""
	}
	var b strings.Builder
	for _, ticker := range c.cfg.Tickers {
		var bars []models.Bar
		err := c.call("yahoo", func() (err error) {
			bars, err = c.quotes.DailyBars(ctx, ticker, from, today.AddDate(0, 0, 1))
			return err
		})
		if err != nil {
			c.l.Warn("equity bars failed", applogger.String("ticker", ticker), applogger.Error(err))
			report.fail("yahoo:"+ticker, err)
			continue
		}
		for _, bar := range bars {
			if d, ok := util.ParseTime(bar.Date); ok && util.IsWeekend(d) {
				continue
			}
			b.WriteString(snapshot.FormatEquitySentence(ticker, bar))
		}
	}
	return b.String()
}

// collectIndices keeps the most recent bar on or before today for each symbol.
func (c *Collector) collectIndices(ctx context.Context, report *RunReport, today time.Time) string {
	if c.quotes == nil {
		return ""
	}
	asOf := util.DateKey(today)
	from := util.StartOfDay(today).AddDate(0, 0, -indexLookbackDays)
	var b strings.Builder
	for _, symbol := range c.cfg.Indices {
		var bars []models.Bar
		err := c.call("yahoo", func() (err error) {
			bars, err = c.quotes.DailyBars(ctx, symbol, from, today.AddDate(0, 0, 1))
			return err
		})
		if err != nil {
			c.l.Warn("index quote failed", applogger.String("symbol", symbol), applogger.Error(err))
			report.fail("yahoo:"+symbol, err)
			continue
		}
		var last *models.Bar
		for i := range bars {
			if bars[i].Date <= asOf && (last == nil || bars[i].Date > last.Date) {
				last = &bars[i]
			}
		}
		if last == nil {
			c.l.Warn("no recent session", applogger.String("symbol", symbol))
			continue
		}
		b.WriteString(snapshot.FormatIndexSentence(symbol, last.Open, last.Close))
	}
	return b.String()
}

func (c *Collector) collectNews(ctx context.Context, report *RunReport, today time.Time) string {
	asOf := util.DateKey(today)
	if c.news == nil {
		return snapshot.FormatNewsBlob(asOf, nil)
	}
	from, to := util.Yesterday(today)
	var articles []models.Article
	err := c.call("newsapi", func() (err error) {
		articles, err = c.news.Headlines(ctx, from, to)
		return err
	})
	if err != nil {
		c.l.Warn("news failed", applogger.Error(err))
		report.fail("newsapi", err)
	}
	return snapshot.FormatNewsBlob(asOf, articles)
}

// share pushes the raw snapshot to the shared cache for dashboards on other hosts.
func (c *Collector) share(ctx context.Context, doc *models.SnapshotDocument) {
	if c.shared == nil {
		return
	}
	raw, err := json.Marshal(doc)
	if err == nil {
		err = c.shared.Set(ctx, icache.SnapshotKey, raw, c.cfg.SnapshotTTL)
	}
	if err != nil {
		c.recordError("share")
		c.l.Warn("share snapshot", applogger.Error(err))
	}
}

func (c *Collector) archiveView(ctx context.Context, log *applogger.Logger, doc *models.SnapshotDocument, view *snapshot.View) {
	if c.archive == nil {
		return
	}
	batch := &drepo.ArchiveBatch{
		Meta:       *doc.Meta,
		Indices:    view.Indices,
		Equities:   view.Equities,
		Indicators: view.Indicators,
		News:       view.News,
	}
	for _, name := range models.KeySpreads {
		if series, _, err := marketdata.SpreadSeries(doc.YieldData, name); err == nil {
			batch.Spreads = append(batch.Spreads, marketdata.SpreadRecords(name, series)...)
		}
	}
	batch.CurveDate, batch.Curve = marketdata.LatestCurve(doc.YieldData, models.Tenors)

	start := time.Now()
	if err := c.archive.Store(ctx, batch); err != nil {
		c.recordError("archive")
		log.Error("archive snapshot", applogger.Error(err))
		return
	}
	if c.metrics != nil {
		c.metrics.RecordLatency("archive", time.Since(start).Seconds())
	}
}

func (c *Collector) publish(ctx context.Context, log *applogger.Logger, report *RunReport) {
	if c.publisher == nil {
		return
	}
	ev := &models.SnapshotEvent{
		RunID:       report.RunID,
		AsOf:        report.AsOf,
		CollectedAt: c.now().UTC(),
		Location:    report.Location,
		Counts:      report.Counts,
	}
	if err := c.publisher.PublishSnapshot(ctx, ev); err != nil {
		c.recordError("publish")
		log.Error("publish snapshot event", applogger.Error(err))
	}
}

// writeBrief asks the summarizer for the daily brief. A failure leaves no file.
func (c *Collector) writeBrief(ctx context.Context, log *applogger.Logger, report *RunReport, doc *models.SnapshotDocument) {
	if c.summarizer == nil || c.writeups == nil || c.cfg.SkipWriteup {
		return
	}
	var text string
	err := c.call("gemini", func() (err error) {
		text, err = c.summarizer.Summarize(ctx, gemini.BuildBriefPrompt(report.AsOf, doc))
		return err
	})
	if err != nil {
		report.fail("gemini", err)
		log.Error("generate brief", applogger.Error(err))
		return
	}
	path, err := c.writeups.SaveWriteup(ctx, report.AsOf, text)
	if err != nil {
		c.recordError("writeup")
		log.Error("save brief", applogger.Error(err))
		return
	}
	report.WriteupPath = path
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func latestKey(m map[string]float64) (string, bool) {
	var latest string
	for k := range m {
		if k > latest {
			latest = k
		}
	}
	return latest, latest != ""
}
