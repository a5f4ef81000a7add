package costreport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/eunmann/s3-cost-report/internal/logctx"
	"github.com/eunmann/s3-cost-report/pkg/logging"
)

// RowReader streams raw result rows for one table. Next returns
// io.EOF after the last row.
type RowReader interface {
	Next() ([]string, error)
	Close() error
}

// QuerySource supplies, per logical source table, the raw rows with
// the 6-field schema (prefix, storage_class, access_tier,
// object_count, total_size_bytes, estimated_cost) already computed
// for the given partition.
type QuerySource interface {
	Query(ctx context.Context, table, partition string) (RowReader, error)
}

// ReportSink persists a rendered report under a destination key and
// returns the stored location.
type ReportSink interface {
	Store(ctx context.Context, key string, body []byte) (string, error)
}

// NotificationSink delivers the report summary.
type NotificationSink interface {
	Send(ctx context.Context, subject, textBody, htmlBody string) error
}

// Config parameterizes one report run.
type Config struct {
	// Tables are the logical source tables to query.
	Tables []string
	// Partition is the opaque partition label threaded into the
	// report key and notification subject.
	Partition string
	// TopN is the number of ranked prefixes to report.
	TopN int
	// ReportPrefix is prepended to the generated report key.
	ReportPrefix string
	// Concurrency bounds parallel table ingestion (default 4).
	Concurrency int
}

// Result summarizes a completed report run.
type Result struct {
	Partition      string
	ReportKey      string
	ReportLocation string
	Entries        []RankedEntry
	TablesQueried  int
	TablesSkipped  int
	RowsRead       uint64
	Prefixes       int
	Duration       time.Duration
}

// Pipeline runs the full report flow: query every table, aggregate,
// rank, render, store, notify. Notify may be nil to skip the summary.
type Pipeline struct {
	Source  QuerySource
	Reports ReportSink
	Notify  NotificationSink
}

// Run executes one report run. Tables whose query or row stream fails
// are skipped with a warning; the run fails only on context
// cancellation, report storage failure, or notification failure.
func (p *Pipeline) Run(ctx context.Context, cfg Config) (*Result, error) {
	start := time.Now()
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}

	log := logctx.From(ctx)
	log.Info().
		Str("partition", cfg.Partition).
		Int("tables", len(cfg.Tables)).
		Int("top_n", cfg.TopN).
		Msg("starting report run")

	// Each table ingests into its own partial aggregator; a nil slot
	// marks a skipped table.
	partials := make([]*Aggregator, len(cfg.Tables))
	rowCounts := make([]uint64, len(cfg.Tables))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Concurrency)

	for i, table := range cfg.Tables {
		g.Go(func() error {
			tctx := logctx.WithStr(gctx, "table", table)
			tableStart := time.Now()
			agg, rows, err := p.ingestTable(tctx, table, cfg.Partition)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				tlog := logctx.From(tctx)
				tlog.Warn().Err(err).Msg("skipping table")
				return nil
			}
			partials[i] = agg
			rowCounts[i] = rows
			logging.TableDone(logctx.From(tctx), "ingest", time.Since(tableStart)).
				Rows(rows).
				Int("prefixes", agg.Len()).
				Msg("table ingested")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("ingest tables: %w", err)
	}

	// Merge partials in configured table order so breakdown order,
	// and therefore report bytes, are reproducible run to run.
	agg := NewAggregator()
	var rowsRead uint64
	skipped := 0
	for i := range cfg.Tables {
		if partials[i] == nil {
			skipped++
			continue
		}
		agg.Merge(partials[i])
		rowsRead += rowCounts[i]
	}

	entries := Rank(agg.Accumulators(), cfg.TopN)

	body, err := RenderCSV(entries)
	if err != nil {
		return nil, err
	}

	key := ReportKey(cfg.ReportPrefix, cfg.TopN, cfg.Partition)
	location, err := p.Reports.Store(ctx, key, body)
	if err != nil {
		return nil, fmt.Errorf("store report: %w", err)
	}

	log.Info().
		Str("location", location).
		Int("entries", len(entries)).
		Int("prefixes", agg.Len()).
		Msg("report stored")

	if p.Notify != nil {
		summary := Summary{
			TopN:           cfg.TopN,
			Partition:      cfg.Partition,
			ReportLocation: location,
			Entries:        entries,
		}
		if err := p.Notify.Send(ctx, summary.Subject(), summary.Text(), summary.HTML()); err != nil {
			return nil, fmt.Errorf("send notification: %w", err)
		}
		log.Info().Str("subject", summary.Subject()).Msg("summary notification sent")
	}

	duration := time.Since(start)
	log.Info().
		Dur("duration", duration).
		Uint64("rows_read", rowsRead).
		Int("tables_skipped", skipped).
		Msg("report run complete")

	return &Result{
		Partition:      cfg.Partition,
		ReportKey:      key,
		ReportLocation: location,
		Entries:        entries,
		TablesQueried:  len(cfg.Tables) - skipped,
		TablesSkipped:  skipped,
		RowsRead:       rowsRead,
		Prefixes:       agg.Len(),
		Duration:       duration,
	}, nil
}

// ingestTable normalizes and aggregates one table's rows into a fresh
// partial aggregator. Any stream error discards the partial so a
// half-read table never contributes.
func (p *Pipeline) ingestTable(ctx context.Context, table, partition string) (*Aggregator, uint64, error) {
	rows, err := p.Source.Query(ctx, table, partition)
	if err != nil {
		return nil, 0, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	agg := NewAggregator()
	var count uint64
	for {
		fields, err := rows.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read row: %w", err)
		}

		count++
		m, ok := NormalizeRow(fields)
		if !ok {
			continue
		}
		agg.Add(table, m)
	}

	return agg, count, nil
}
