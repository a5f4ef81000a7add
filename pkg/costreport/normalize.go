// Package costreport implements the cost-attribution report core: it
// normalizes raw query rows into measurements, folds them into
// per-(table, prefix) accumulators, ranks the most expensive prefixes,
// and renders the CSV report and its notification summary. The Pipeline
// type orchestrates a full run against pluggable query, storage, and
// notification collaborators.
package costreport

import (
	"math"
	"strconv"

	"github.com/eunmann/s3-cost-report/pkg/tiers"
)

// Placeholders substituted for missing row fields.
const (
	EmptyPrefix  = "(empty)"
	UnknownClass = "UNKNOWN"
)

// Measurement is one tier-level observation for a (table, prefix):
// object count, total bytes, and estimated monthly cost for a single
// storage tier. Immutable once created.
type Measurement struct {
	Prefix string
	Tier   tiers.Key
	Count  uint64
	Bytes  uint64
	Cost   float64
}

// NormalizeRow parses one raw result row into a Measurement. The row
// layout is: prefix, storage class, access tier, object count, total
// size in bytes, estimated cost. Rows with fewer than six fields are
// discarded (ok=false). Empty prefix and storage class fields get
// placeholders. Numeric fields that fail to parse, are negative, or
// are not finite coerce to zero so malformed upstream data never
// aborts a report run.
func NormalizeRow(fields []string) (Measurement, bool) {
	if len(fields) < 6 {
		return Measurement{}, false
	}

	prefix := fields[0]
	if prefix == "" {
		prefix = EmptyPrefix
	}

	class := fields[1]
	if class == "" {
		class = UnknownClass
	}

	return Measurement{
		Prefix: prefix,
		Tier:   tiers.Key{StorageClass: class, AccessTier: fields[2]},
		Count:  parseCount(fields[3]),
		Bytes:  parseCount(fields[4]),
		Cost:   parseCost(fields[5]),
	}, true
}

// parseCount parses a non-negative integer, accepting real-number
// notation and truncating toward zero ("10.7" -> 10, "1e3" -> 1000).
func parseCount(s string) uint64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return 0
	}
	if f >= math.MaxUint64 {
		return math.MaxUint64
	}
	return uint64(f)
}

// parseCost parses a non-negative cost value.
func parseCost(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}
