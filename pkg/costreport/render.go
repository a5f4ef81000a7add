package costreport

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"slices"
	"strconv"
)

const bytesPerGB = 1 << 30

// reportColumns is the fixed report schema. Summary rows leave the
// five tier cells blank; breakdown rows leave the three total cells
// blank.
var reportColumns = []string{
	"rank",
	"table",
	"prefix",
	"total_cost",
	"total_size_gb",
	"total_objects",
	"storage_class",
	"access_tier",
	"tier_object_count",
	"tier_size_gb",
	"tier_cost",
}

// Header returns the report column names in output order.
func Header() []string {
	return slices.Clone(reportColumns)
}

// RenderRows renders ranked entries into report rows: one summary row
// per entry followed by its breakdown rows sorted by tier cost
// descending. The sort is stable, so equal-cost tiers keep arrival
// order.
func RenderRows(entries []RankedEntry) [][]string {
	rows := make([][]string, 0, 2*len(entries))

	for _, e := range entries {
		acc := e.Acc
		rank := strconv.Itoa(e.Rank)

		rows = append(rows, []string{
			rank,
			acc.Table,
			acc.Prefix,
			formatDecimal(acc.TotalCost),
			formatDecimal(sizeGB(acc.TotalBytes)),
			strconv.FormatUint(acc.TotalObjects, 10),
			"", "", "", "", "",
		})

		breakdown := slices.Clone(acc.Breakdown)
		slices.SortStableFunc(breakdown, func(x, y Measurement) int {
			switch {
			case x.Cost > y.Cost:
				return -1
			case x.Cost < y.Cost:
				return 1
			}
			return 0
		})

		for _, m := range breakdown {
			rows = append(rows, []string{
				rank,
				acc.Table,
				acc.Prefix,
				"", "", "",
				m.Tier.StorageClass,
				m.Tier.AccessTier,
				strconv.FormatUint(m.Count, 10),
				formatDecimal(sizeGB(m.Bytes)),
				formatDecimal(m.Cost),
			})
		}
	}

	return rows
}

// RenderCSV renders the header plus all report rows as CSV text.
// Rendering the same ranked list twice yields byte-identical output.
func RenderCSV(entries []RankedEntry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(reportColumns); err != nil {
		return nil, fmt.Errorf("write report header: %w", err)
	}
	for _, row := range RenderRows(entries) {
		if err := w.Write(row); err != nil {
			return nil, fmt.Errorf("write report row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush report: %w", err)
	}

	return buf.Bytes(), nil
}

// ReportKey builds the destination key for a rendered report.
func ReportKey(prefix string, topN int, partition string) string {
	return fmt.Sprintf("%stop_%d_s3_cost_report_%s.csv", prefix, topN, partition)
}

func sizeGB(b uint64) float64 {
	return float64(b) / bytesPerGB
}

func formatDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', 6, 64)
}
