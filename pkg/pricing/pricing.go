// Package pricing provides the static price table used to estimate monthly
// storage cost per tier.
package pricing

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/eunmann/s3-cost-report/pkg/fileutil"
)

// PriceTable contains per-GB-month pricing keyed by pricing key
// (see tiers.Key.PricingKey).
type PriceTable struct {
	// PerGBMonth maps pricing keys to USD per GB per month.
	PerGBMonth map[string]float64 `json:"per_gb_month"`
}

// Default returns the built-in US East 1 pricing used by the report.
// These are approximate prices and should be updated regularly.
func Default() PriceTable {
	return PriceTable{
		PerGBMonth: map[string]float64{
			"STANDARD":     0.0210,
			"GLACIER":      0.0036,
			"DEEP_ARCHIVE": 0.00099,
			"INTELLIGENT_TIERING_FREQUENT":               0.0210,
			"INTELLIGENT_TIERING_INFREQUENT":             0.0125,
			"INTELLIGENT_TIERING_ARCHIVE_INSTANT_ACCESS": 0.0040,
		},
	}
}

// Load loads a price table from a JSON file.
func Load(path string) (PriceTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return PriceTable{}, fmt.Errorf("open price table: %w", err)
	}
	defer f.Close()

	var pt PriceTable
	if err := json.NewDecoder(f).Decode(&pt); err != nil {
		return PriceTable{}, fmt.Errorf("parse price table: %w", err)
	}
	return pt, nil
}

// Save saves a price table to a JSON file.
func Save(path string, pt PriceTable) error {
	data, err := json.MarshalIndent(pt, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal price table: %w", err)
	}

	if err := fileutil.WriteAtomic(path, data, 0644); err != nil {
		return fmt.Errorf("write price table: %w", err)
	}

	return nil
}

const bytesPerGB = 1 << 30

// RateFor returns the per-GB-month rate for a pricing key.
func (pt PriceTable) RateFor(key string) (float64, bool) {
	rate, ok := pt.PerGBMonth[key]
	return rate, ok
}

// CostFor estimates the monthly USD cost of bytes stored under a
// pricing key. Keys without a price cost zero, matching the report
// query's ELSE 0 arm.
func (pt PriceTable) CostFor(key string, bytes uint64) float64 {
	rate, ok := pt.PerGBMonth[key]
	if !ok {
		return 0
	}
	return float64(bytes) * rate / bytesPerGB
}

// Keys returns the pricing keys in sorted order.
func (pt PriceTable) Keys() []string {
	return slices.Sorted(maps.Keys(pt.PerGBMonth))
}
