package athenaquery

import (
	"strings"
	"testing"
	"time"

	"github.com/eunmann/s3-cost-report/pkg/pricing"
)

func TestBuildQuery(t *testing.T) {
	sql := BuildQuery("inventory_bucket_a", "2026-08-24-01-00", pricing.Default())

	wantParts := []string{
		`regexp_extract("key", '([^/]+)', 1) AS prefix`,
		`COALESCE(intelligent_tiering_access_tier, '') AS intelligent_tiering_access_tier`,
		`COUNT(*) AS object_count`,
		`SUM("size") AS total_size`,
		`WHEN storage_class = 'DEEP_ARCHIVE' THEN SUM("size") * 0.00099 / (1024 * 1024 * 1024)`,
		`WHEN storage_class = 'GLACIER' THEN SUM("size") * 0.0036 / (1024 * 1024 * 1024)`,
		`WHEN storage_class = 'STANDARD' THEN SUM("size") * 0.021 / (1024 * 1024 * 1024)`,
		`WHEN storage_class = 'INTELLIGENT_TIERING' THEN`,
		`WHEN COALESCE(intelligent_tiering_access_tier, '') = 'ARCHIVE_INSTANT_ACCESS' THEN SUM("size") * 0.004 / (1024 * 1024 * 1024)`,
		`WHEN COALESCE(intelligent_tiering_access_tier, '') = 'FREQUENT' THEN SUM("size") * 0.021 / (1024 * 1024 * 1024)`,
		`WHEN COALESCE(intelligent_tiering_access_tier, '') = 'INFREQUENT' THEN SUM("size") * 0.0125 / (1024 * 1024 * 1024)`,
		"FROM inventory_bucket_a",
		`WHERE dt = '2026-08-24-01-00'`,
		`GROUP BY 1, storage_class, COALESCE(intelligent_tiering_access_tier, '')`,
	}
	for _, part := range wantParts {
		if !strings.Contains(sql, part) {
			t.Errorf("query missing %q\nquery:\n%s", part, sql)
		}
	}
}

func TestBuildQueryArmOrder(t *testing.T) {
	sql := BuildQuery("t", "2026-08-24-01-00", pricing.Default())

	// Flat storage-class arms come first in sorted order, then the
	// Intelligent-Tiering block, itself sorted by access tier.
	order := []string{
		"'DEEP_ARCHIVE'",
		"'GLACIER'",
		"'STANDARD'",
		"'INTELLIGENT_TIERING'",
		"'ARCHIVE_INSTANT_ACCESS'",
		"'FREQUENT'",
		"'INFREQUENT'",
	}
	prev := -1
	for _, marker := range order {
		idx := strings.Index(sql, marker)
		if idx < 0 {
			t.Fatalf("query missing %q\nquery:\n%s", marker, sql)
		}
		if idx < prev {
			t.Errorf("%q appears out of order\nquery:\n%s", marker, sql)
		}
		prev = idx
	}

	if got := BuildQuery("t", "2026-08-24-01-00", pricing.Default()); got != sql {
		t.Error("repeated builds differ")
	}
}

func TestBuildQueryEmptyPriceTable(t *testing.T) {
	sql := BuildQuery("t", "2026-08-24-01-00", pricing.PriceTable{})

	if strings.Contains(sql, "WHEN") {
		t.Errorf("empty price table should emit no WHEN arms\nquery:\n%s", sql)
	}
	if !strings.Contains(sql, "ELSE 0") {
		t.Errorf("query missing ELSE 0 arm\nquery:\n%s", sql)
	}
}

func TestDefaultPartition(t *testing.T) {
	sydney := time.FixedZone("AEST", 10*60*60)

	tests := []struct {
		name string
		now  time.Time
		want string
	}{
		{
			name: "midday",
			now:  time.Date(2026, 8, 25, 12, 0, 0, 0, time.UTC),
			want: "2026-08-24-01-00",
		},
		{
			name: "new year",
			now:  time.Date(2026, 1, 1, 0, 30, 0, 0, time.UTC),
			want: "2025-12-31-01-00",
		},
		{
			name: "non-UTC zone normalized first",
			now:  time.Date(2026, 8, 25, 1, 0, 0, 0, sydney),
			want: "2026-08-23-01-00",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DefaultPartition(tt.now); got != tt.want {
				t.Errorf("DefaultPartition(%v) = %q, want %q", tt.now, got, tt.want)
			}
		})
	}
}
