// Package athenaquery runs the per-table cost rollup query on Athena
// and streams the result CSV back from S3. It implements the report
// pipeline's query source.
package athenaquery

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/eunmann/s3-cost-report/pkg/pricing"
	"github.com/eunmann/s3-cost-report/pkg/tiers"
)

// DefaultPartition returns the partition label for the most recent
// complete inventory delivery: yesterday in UTC, in the dt format the
// inventory tables are partitioned by.
func DefaultPartition(now time.Time) string {
	return now.UTC().AddDate(0, 0, -1).Format("2006-01-02") + "-01-00"
}

// BuildQuery renders the per-table rollup SQL: per (prefix, storage
// class, access tier) object counts, total bytes, and estimated
// monthly cost priced from pt. The prefix is the first path segment of
// the object key. CASE arms emit in sorted pricing-key order with the
// Intelligent-Tiering block last, so the generated SQL is
// deterministic for a given price table.
func BuildQuery(table, partition string, pt pricing.PriceTable) string {
	var b strings.Builder

	b.WriteString("SELECT\n")
	b.WriteString("  regexp_extract(\"key\", '([^/]+)', 1) AS prefix,\n")
	b.WriteString("  storage_class,\n")
	b.WriteString("  COALESCE(intelligent_tiering_access_tier, '') AS intelligent_tiering_access_tier,\n")
	b.WriteString("  COUNT(*) AS object_count,\n")
	b.WriteString("  SUM(\"size\") AS total_size,\n")
	b.WriteString("  CASE\n")

	var tiered []tiers.Key
	for _, pk := range pt.Keys() {
		key := tiers.ParsePricingKey(pk)
		if key.StorageClass == tiers.IntelligentTiering && key.AccessTier != "" {
			tiered = append(tiered, key)
			continue
		}
		rate, _ := pt.RateFor(pk)
		fmt.Fprintf(&b, "    WHEN storage_class = '%s' THEN %s\n", key.StorageClass, costExpr(rate))
	}

	if len(tiered) > 0 {
		fmt.Fprintf(&b, "    WHEN storage_class = '%s' THEN\n      CASE\n", tiers.IntelligentTiering)
		for _, key := range tiered {
			rate, _ := pt.RateFor(key.PricingKey())
			fmt.Fprintf(&b, "        WHEN COALESCE(intelligent_tiering_access_tier, '') = '%s' THEN %s\n",
				key.AccessTier, costExpr(rate))
		}
		b.WriteString("        ELSE 0\n      END\n")
	}

	b.WriteString("    ELSE 0\n")
	b.WriteString("  END AS estimated_cost_usd\n")
	fmt.Fprintf(&b, "FROM %s\n", table)
	fmt.Fprintf(&b, "WHERE dt = '%s'\n", partition)
	b.WriteString("GROUP BY 1, storage_class, COALESCE(intelligent_tiering_access_tier, '')")

	return b.String()
}

func costExpr(rate float64) string {
	return fmt.Sprintf("SUM(\"size\") * %s / (1024 * 1024 * 1024)",
		strconv.FormatFloat(rate, 'g', -1, 64))
}
