// Package benchutil generates synthetic S3 inventory objects and
// pre-aggregated result rows for benchmarks.
package benchutil

import (
	"fmt"
	"math/rand/v2"
	"os"
	"slices"
	"strconv"
	"strings"
	"testing"

	"github.com/eunmann/s3-cost-report/pkg/tiers"
)

// BenchmarkSeed seeds generators so benchmark data is reproducible
// across runs.
const BenchmarkSeed = 1729

// BenchmarkSizes are the row counts quick benchmark runs sweep.
var BenchmarkSizes = []int{1000, 10000, 100000}

// ScalingSizes extend the sweep for long runs gated behind
// S3COST_LONG_BENCH=1.
var ScalingSizes = []int{10000, 50000, 100000, 250000, 500000}

// SkipIfNoLongBench skips scaling benchmarks unless S3COST_LONG_BENCH
// is set.
func SkipIfNoLongBench(b *testing.B) {
	if os.Getenv("S3COST_LONG_BENCH") == "" {
		b.Skip("set S3COST_LONG_BENCH=1 to run scaling benchmark")
	}
}

// FakeObject is one synthetic inventory object.
type FakeObject struct {
	Key          string
	Size         uint64
	StorageClass string
	AccessTier   string
}

// GeneratorConfig shapes the synthetic data.
type GeneratorConfig struct {
	// NumObjects is how many objects or rows to generate.
	NumObjects int
	// NumPrefixes is the number of distinct top-level prefixes.
	NumPrefixes int
	// MaxDepth is the maximum directory depth below the top-level prefix.
	MaxDepth int
	// TierDistribution maps tier keys to their probability (0.0-1.0).
	// If nil, all objects use STANDARD.
	TierDistribution map[tiers.Key]float64
	// Seed for reproducible generation. 0 = use BenchmarkSeed.
	Seed int64
}

// DefaultConfig returns a tier mix resembling a bucket with lifecycle
// rules: mostly STANDARD with archive and Intelligent-Tiering spread.
func DefaultConfig(numObjects int) GeneratorConfig {
	return GeneratorConfig{
		NumObjects:  numObjects,
		NumPrefixes: 50,
		MaxDepth:    5,
		TierDistribution: map[tiers.Key]float64{
			{StorageClass: "STANDARD"}:                                                  0.60,
			{StorageClass: "GLACIER"}:                                                   0.10,
			{StorageClass: "DEEP_ARCHIVE"}:                                              0.05,
			{StorageClass: "INTELLIGENT_TIERING", AccessTier: "FREQUENT"}:               0.15,
			{StorageClass: "INTELLIGENT_TIERING", AccessTier: "INFREQUENT"}:             0.05,
			{StorageClass: "INTELLIGENT_TIERING", AccessTier: "ARCHIVE_INSTANT_ACCESS"}: 0.05,
		},
		Seed: BenchmarkSeed,
	}
}

// sizeBuckets is the object size distribution: buckets of [lo, hi)
// ranges with percentage weights summing to 100. Mostly small objects
// with a long tail of multi-gigabyte ones.
var sizeBuckets = []struct {
	weight int
	lo, hi uint64
}{
	{10, 0, 1 << 10},
	{30, 1 << 10, 1 << 20},
	{40, 1 << 20, 100 << 20},
	{10, 100 << 20, 1 << 30},
	{10, 1 << 30, 5 << 30},
}

// Generator produces reproducible synthetic inventory data.
type Generator struct {
	cfg  GeneratorConfig
	rng  *rand.Rand
	keys []tiers.Key
	cum  []float64
}

// NewGenerator creates a generator with cfg's zero fields defaulted.
func NewGenerator(cfg GeneratorConfig) *Generator {
	if cfg.Seed == 0 {
		cfg.Seed = BenchmarkSeed
	}
	if cfg.NumPrefixes <= 0 {
		cfg.NumPrefixes = 50
	}
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = 5
	}

	g := &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewPCG(uint64(cfg.Seed), 0)),
	}
	for key := range cfg.TierDistribution {
		g.keys = append(g.keys, key)
	}
	// Fixed key order keeps generation reproducible for a given seed.
	slices.SortFunc(g.keys, tiers.Compare)
	for _, key := range g.keys {
		g.cum = append(g.cum, cfg.TierDistribution[key])
	}
	for i := 1; i < len(g.cum); i++ {
		g.cum[i] += g.cum[i-1]
	}
	return g
}

// Objects returns NumObjects synthetic inventory objects.
func (g *Generator) Objects() []FakeObject {
	objects := make([]FakeObject, g.cfg.NumObjects)
	for i := range objects {
		tier := g.tier()
		objects[i] = FakeObject{
			Key:          g.objectKey(),
			Size:         g.size(),
			StorageClass: tier.StorageClass,
			AccessTier:   tier.AccessTier,
		}
	}
	return objects
}

// Rows returns synthetic result rows in the report row layout: prefix,
// storage class, access tier, object count, total size, estimated cost.
// One row per (prefix, tier) pair drawn from the configured shape.
func (g *Generator) Rows() [][]string {
	rows := make([][]string, g.cfg.NumObjects)
	for i := range rows {
		tier := g.tier()
		count := uint64(1 + g.rng.IntN(10000))
		size := g.size() * count
		cost := float64(size) * 0.021 / (1 << 30)

		rows[i] = []string{
			g.prefixName(),
			tier.StorageClass,
			tier.AccessTier,
			strconv.FormatUint(count, 10),
			strconv.FormatUint(size, 10),
			strconv.FormatFloat(cost, 'f', -1, 64),
		}
	}
	return rows
}

func (g *Generator) objectKey() string {
	var sb strings.Builder
	sb.WriteString(g.prefixName())
	for range g.rng.IntN(g.cfg.MaxDepth) {
		sb.WriteByte('/')
		sb.WriteString(g.segment())
	}
	sb.WriteByte('/')
	sb.WriteString(g.filename())
	return sb.String()
}

func (g *Generator) prefixName() string {
	return fmt.Sprintf("dataset-%03d", g.rng.IntN(g.cfg.NumPrefixes))
}

// segment produces one path segment in a data-lake layout: partition
// dates, owner ids, or pipeline stages.
func (g *Generator) segment() string {
	switch g.rng.IntN(3) {
	case 0:
		return fmt.Sprintf("dt=%04d-%02d-%02d",
			2021+g.rng.IntN(5), 1+g.rng.IntN(12), 1+g.rng.IntN(28))
	case 1:
		owners := []string{"team", "svc", "job", "run", "batch"}
		return fmt.Sprintf("%s=%04d", owners[g.rng.IntN(len(owners))], g.rng.IntN(2000))
	default:
		stages := []string{"landing", "staged", "curated", "rejected", "scratch", "snapshots"}
		return stages[g.rng.IntN(len(stages))]
	}
}

func (g *Generator) filename() string {
	extensions := []string{".parquet", ".orc", ".csv.gz", ".json.gz", ".avro"}
	return fmt.Sprintf("part-%05d-%08x%s",
		g.rng.IntN(100000), g.rng.Uint32(), extensions[g.rng.IntN(len(extensions))])
}

func (g *Generator) size() uint64 {
	n := g.rng.IntN(100)
	for _, b := range sizeBuckets {
		if n < b.weight {
			return b.lo + g.rng.Uint64N(b.hi-b.lo)
		}
		n -= b.weight
	}
	return 1 << 20
}

// tier draws a tier key from the configured distribution. Weights that
// sum below 1 round up into the last key.
func (g *Generator) tier() tiers.Key {
	if len(g.keys) == 0 {
		return tiers.Key{StorageClass: "STANDARD"}
	}

	r := g.rng.Float64()
	for i, c := range g.cum {
		if r < c {
			return g.keys[i]
		}
	}
	return g.keys[len(g.keys)-1]
}
