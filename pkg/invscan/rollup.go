package invscan

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/eunmann/s3-cost-report/internal/logctx"
	"github.com/eunmann/s3-cost-report/pkg/inventory"
	"github.com/eunmann/s3-cost-report/pkg/logging"
	"github.com/eunmann/s3-cost-report/pkg/pricing"
	"github.com/eunmann/s3-cost-report/pkg/tiers"
)

// rollupKey identifies one (top-level prefix, storage tier) group.
type rollupKey struct {
	prefix string
	tier   tiers.Key
}

// rollupStat accumulates objects and bytes for one group.
type rollupStat struct {
	objects uint64
	bytes   uint64
}

// scanStats totals one file, or the whole scan.
type scanStats struct {
	objects uint64
	bytes   uint64
}

// scanFiles reads every data file into its own partial rollup, then
// merges the partials. Addition commutes, so merge order never affects
// totals.
func (s *Source) scanFiles(ctx context.Context, files []dataFile) (map[rollupKey]rollupStat, scanStats, error) {
	log := logctx.From(ctx)
	start := time.Now()
	tracker := logging.NewScanTracker(len(files))

	partials := make([]map[rollupKey]rollupStat, len(files))
	stats := make([]scanStats, len(files))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for i, df := range files {
		g.Go(func() error {
			fileStart := time.Now()
			rollup, st, err := scanFile(gctx, df)
			if err != nil {
				return err
			}
			partials[i] = rollup
			stats[i] = st

			elapsed := time.Since(fileStart)
			tracker.Record(st.objects, st.bytes, elapsed)
			logging.FileDone(log, "scan", elapsed).
				Str("file", filepath.Base(df.path)).
				Objects(st.objects).
				Bytes(st.bytes).
				Progress(tracker).
				Msg("inventory file scanned")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, scanStats{}, fmt.Errorf("scan inventory files: %w", err)
	}

	merged := make(map[rollupKey]rollupStat)
	var total scanStats
	for i := range partials {
		for k, st := range partials[i] {
			acc := merged[k]
			acc.objects += st.objects
			acc.bytes += st.bytes
			merged[k] = acc
		}
		total.objects += stats[i].objects
		total.bytes += stats[i].bytes
	}

	logging.PhaseDone(log, "scan", time.Since(start)).
		Int("files", len(files)).
		Objects(total.objects).
		Bytes(total.bytes).
		Int("groups", len(merged)).
		Rate(total.bytes).
		Msg("inventory scan complete")

	return merged, total, nil
}

// scanFile folds one data file into a fresh rollup map.
func scanFile(ctx context.Context, df dataFile) (map[rollupKey]rollupStat, scanStats, error) {
	r, err := inventory.Open(df.path, df.cols)
	if err != nil {
		return nil, scanStats{}, fmt.Errorf("open %s: %w", df.path, err)
	}
	defer r.Close()

	rollup := make(map[rollupKey]rollupStat)
	var stats scanStats
	for {
		select {
		case <-ctx.Done():
			return nil, scanStats{}, ctx.Err()
		default:
		}

		row, err := r.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, scanStats{}, fmt.Errorf("read %s: %w", df.path, err)
		}

		k := rollupKey{
			prefix: topPrefix(row.Key),
			tier:   tiers.FromInventory(row.StorageClass, row.AccessTier),
		}
		st := rollup[k]
		st.objects++
		st.bytes += row.Size
		rollup[k] = st

		stats.objects++
		stats.bytes += row.Size
	}
	return rollup, stats, nil
}

// topPrefix returns the first run of non-slash characters in key,
// skipping leading slashes, matching regexp_extract("key", '([^/]+)', 1).
// Keys with no such run group under the empty prefix.
func topPrefix(key string) string {
	start := 0
	for start < len(key) && key[start] == '/' {
		start++
	}
	end := start
	for end < len(key) && key[end] != '/' {
		end++
	}
	return key[start:end]
}

// rollupRows renders the merged rollup as 6-field rows in the raw
// result schema, ordered by prefix then tier key.
func rollupRows(rollup map[rollupKey]rollupStat, pt pricing.PriceTable) [][]string {
	keys := make([]rollupKey, 0, len(rollup))
	for k := range rollup {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, func(a, b rollupKey) int {
		if c := strings.Compare(a.prefix, b.prefix); c != 0 {
			return c
		}
		return tiers.Compare(a.tier, b.tier)
	})

	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		st := rollup[k]
		cost := pt.CostFor(k.tier.PricingKey(), st.bytes)
		rows = append(rows, []string{
			k.prefix,
			k.tier.StorageClass,
			k.tier.AccessTier,
			strconv.FormatUint(st.objects, 10),
			strconv.FormatUint(st.bytes, 10),
			strconv.FormatFloat(cost, 'f', -1, 64),
		})
	}
	return rows
}

// sliceReader replays precomputed rows as a costreport.RowReader.
type sliceReader struct {
	rows [][]string
	idx  int
}

func newSliceReader(rows [][]string) *sliceReader {
	return &sliceReader{rows: rows}
}

func (r *sliceReader) Next() ([]string, error) {
	if r.idx >= len(r.rows) {
		return nil, io.EOF
	}
	row := r.rows[r.idx]
	r.idx++
	return row, nil
}

func (r *sliceReader) Close() error { return nil }
