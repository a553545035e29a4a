package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	domrepo "MarketBrief/internal/domain/repository"
	applogger "MarketBrief/pkg/logger"
)

// batchInserter is satisfied by *pkg/clickhouse.Client.
type batchInserter interface {
	InitSchema(ctx context.Context, stmts []string) error
	InsertBatch(ctx context.Context, table string, columns []string, rows [][]any) error
	Health(ctx context.Context) error
	Close() error
}

type archiveTable struct {
	name    string
	columns []string
	rows    func(b *domrepo.ArchiveBatch) [][]any
}

var archiveTables = []archiveTable{
	{
		name:    "mb_snapshots",
		columns: []string{"run_id", "as_of", "collected_at", "indices", "equities", "spreads", "curve_points", "indicators", "news"},
		rows: func(b *domrepo.ArchiveBatch) [][]any {
			return [][]any{{
				b.Meta.RunID, day(b.Meta.AsOf), b.Meta.CollectedAt,
				uint32(len(b.Indices)), uint32(len(b.Equities)), uint32(len(b.Spreads)),
				uint32(len(b.Curve)), uint32(len(b.Indicators)), uint32(len(b.News)),
			}}
		},
	},
	{
		name:    "mb_index_quotes",
		columns: []string{"run_id", "as_of", "symbol", "display_name", "open", "close", "change_pct"},
		rows: func(b *domrepo.ArchiveBatch) [][]any {
			out := make([][]any, 0, len(b.Indices))
			for _, r := range b.Indices {
				out = append(out, []any{b.Meta.RunID, day(b.Meta.AsOf), r.Symbol, r.DisplayName, r.Open, r.Close, r.ChangePct})
			}
			return out
		},
	},
	{
		name:    "mb_equity_bars",
		columns: []string{"run_id", "ticker", "date", "open", "close", "change_pct"},
		rows: func(b *domrepo.ArchiveBatch) [][]any {
			out := make([][]any, 0, len(b.Equities))
			for _, r := range b.Equities {
				out = append(out, []any{b.Meta.RunID, r.Ticker, day(r.Date), r.Open, r.Close, r.ChangePct})
			}
			return out
		},
	},
	{
		name:    "mb_spreads",
		columns: []string{"run_id", "name", "date", "value"},
		rows: func(b *domrepo.ArchiveBatch) [][]any {
			out := make([][]any, 0, len(b.Spreads))
			for _, r := range b.Spreads {
				out = append(out, []any{b.Meta.RunID, r.Name, day(r.Date), r.Value})
			}
			return out
		},
	},
	{
		name:    "mb_yield_curve",
		columns: []string{"run_id", "date", "tenor", "yield"},
		rows: func(b *domrepo.ArchiveBatch) [][]any {
			if b.CurveDate == "" {
				return nil
			}
			out := make([][]any, 0, len(b.Curve))
			for _, p := range b.Curve {
				out = append(out, []any{b.Meta.RunID, day(b.CurveDate), p.Tenor, p.Yield})
			}
			return out
		},
	},
	{
		name:    "mb_indicators",
		columns: []string{"run_id", "name", "date", "value"},
		rows: func(b *domrepo.ArchiveBatch) [][]any {
			out := make([][]any, 0, len(b.Indicators))
			for _, r := range b.Indicators {
				out = append(out, []any{b.Meta.RunID, r.Name, day(r.Date), r.Value})
			}
			return out
		},
	},
	{
		name:    "mb_news",
		columns: []string{"run_id", "as_of", "seq", "headline", "source", "url", "categories"},
		rows: func(b *domrepo.ArchiveBatch) [][]any {
			out := make([][]any, 0, len(b.News))
			for _, n := range b.News {
				out = append(out, []any{b.Meta.RunID, day(b.Meta.AsOf), uint32(n.Sequence), n.Headline, n.Source, n.URL, n.Categories})
			}
			return out
		},
	},
}

// ArchiveSchema returns the idempotent DDL for the archive tables.
func ArchiveSchema(database string) []string {
	stmts := []string{fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", database)}
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS %s.mb_snapshots (
			run_id String, as_of Date, collected_at DateTime64(3, 'UTC'),
			indices UInt32, equities UInt32, spreads UInt32, curve_points UInt32, indicators UInt32, news UInt32
		) ENGINE = ReplacingMergeTree ORDER BY (as_of, run_id)`,
		`CREATE TABLE IF NOT EXISTS %s.mb_index_quotes (
			run_id String, as_of Date, symbol LowCardinality(String), display_name String,
			open Float64, close Float64, change_pct Float64
		) ENGINE = ReplacingMergeTree ORDER BY (symbol, as_of, run_id)`,
		`CREATE TABLE IF NOT EXISTS %s.mb_equity_bars (
			run_id String, ticker LowCardinality(String), date Date,
			open Float64, close Float64, change_pct Float64
		) ENGINE = ReplacingMergeTree ORDER BY (ticker, date)`,
		`CREATE TABLE IF NOT EXISTS %s.mb_spreads (
			run_id String, name LowCardinality(String), date Date, value Float64
		) ENGINE = ReplacingMergeTree ORDER BY (name, date)`,
		`CREATE TABLE IF NOT EXISTS %s.mb_yield_curve (
			run_id String, date Date, tenor LowCardinality(String), yield Nullable(Float64)
		) ENGINE = ReplacingMergeTree ORDER BY (date, tenor)`,
		`CREATE TABLE IF NOT EXISTS %s.mb_indicators (
			run_id String, name LowCardinality(String), date Date, value Float64
		) ENGINE = ReplacingMergeTree ORDER BY (name, date)`,
		`CREATE TABLE IF NOT EXISTS %s.mb_news (
			run_id String, as_of Date, seq UInt32, headline String, source String, url String,
			categories Array(LowCardinality(String))
		) ENGINE = ReplacingMergeTree ORDER BY (as_of, run_id, seq)`,
	}
	for _, d := range ddl {
		stmts = append(stmts, fmt.Sprintf(d, database))
	}
	return stmts
}

// CHArchive stores parsed snapshots in ClickHouse, one table per record kind.
type CHArchive struct {
	ch       batchInserter
	database string
	l        *applogger.Logger
}

var _ domrepo.Archive = (*CHArchive)(nil)

// NewCHArchive creates an archive over ch using database for table names.
func NewCHArchive(ch batchInserter, database string, l *applogger.Logger) *CHArchive {
	if l == nil {
		l = applogger.Nop()
	}
	return &CHArchive{ch: ch, database: database, l: l}
}

// Init creates the archive tables.
func (a *CHArchive) Init(ctx context.Context) error {
	return a.ch.InitSchema(ctx, ArchiveSchema(a.database))
}

// Store inserts every non-empty section of batch. It stops at the first failing table.
func (a *CHArchive) Store(ctx context.Context, batch *domrepo.ArchiveBatch) error {
	if batch == nil || batch.Meta.RunID == "" {
		return fmt.Errorf("archive: run id is required")
	}
	for _, t := range archiveTables {
		rows := t.rows(batch)
		if len(rows) == 0 {
			continue
		}
		table := a.database + "." + t.name
		start := time.Now()
		if err := a.ch.InsertBatch(ctx, table, t.columns, rows); err != nil {
			a.l.Error("clickhouse archive insert error",
				applogger.String("table", table),
				applogger.String("run_id", batch.Meta.RunID),
				applogger.Error(err),
			)
			return fmt.Errorf("archive %s: %w", t.name, err)
		}
		a.l.Debug("clickhouse archive insert",
			applogger.String("table", table),
			applogger.Int("rows", len(rows)),
			applogger.Duration("duration_ms", time.Since(start)),
		)
	}
	return nil
}

// Health pings ClickHouse.
func (a *CHArchive) Health(ctx context.Context) error {
	return a.ch.Health(ctx)
}

// Close releases the connection pool.
func (a *CHArchive) Close() error {
	return a.ch.Close()
}

// day converts a YYYY-MM-DD key to a UTC midnight for Date columns.
func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}
	}
	return t
}
