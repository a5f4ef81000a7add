package costreport

import (
	"math"
	"testing"

	"github.com/eunmann/s3-cost-report/pkg/tiers"
)

func standardMeasurement(prefix string, count, bytes uint64, cost float64) Measurement {
	return Measurement{
		Prefix: prefix,
		Tier:   tiers.Key{StorageClass: "STANDARD"},
		Count:  count,
		Bytes:  bytes,
		Cost:   cost,
	}
}

func findAccumulator(t *testing.T, accs []*Accumulator, table, prefix string) *Accumulator {
	t.Helper()
	for _, acc := range accs {
		if acc.Table == table && acc.Prefix == prefix {
			return acc
		}
	}
	t.Fatalf("accumulator for (%s, %s) not found", table, prefix)
	return nil
}

func TestAggregator(t *testing.T) {
	t.Run("single measurement", func(t *testing.T) {
		agg := NewAggregator()
		agg.Add("inv_bucket_a", standardMeasurement("logs", 100, 1073741824, 0.021))

		if agg.Len() != 1 {
			t.Fatalf("expected 1 accumulator, got %d", agg.Len())
		}

		acc := findAccumulator(t, agg.Accumulators(), "inv_bucket_a", "logs")
		if acc.TotalObjects != 100 {
			t.Errorf("expected 100 objects, got %d", acc.TotalObjects)
		}
		if acc.TotalBytes != 1073741824 {
			t.Errorf("expected 1073741824 bytes, got %d", acc.TotalBytes)
		}
		if acc.TotalCost != 0.021 {
			t.Errorf("expected cost 0.021, got %v", acc.TotalCost)
		}
		if len(acc.Breakdown) != 1 {
			t.Errorf("expected 1 breakdown entry, got %d", len(acc.Breakdown))
		}
	})

	t.Run("tiers accumulate into one prefix", func(t *testing.T) {
		agg := NewAggregator()
		agg.Add("inv", standardMeasurement("data", 10, 1000, 1.5))
		agg.Add("inv", Measurement{
			Prefix: "data",
			Tier:   tiers.Key{StorageClass: "GLACIER"},
			Count:  5,
			Bytes:  500,
			Cost:   0.5,
		})

		if agg.Len() != 1 {
			t.Fatalf("expected 1 accumulator, got %d", agg.Len())
		}

		acc := findAccumulator(t, agg.Accumulators(), "inv", "data")
		if acc.TotalObjects != 15 {
			t.Errorf("expected 15 objects, got %d", acc.TotalObjects)
		}
		if acc.TotalBytes != 1500 {
			t.Errorf("expected 1500 bytes, got %d", acc.TotalBytes)
		}
		if acc.TotalCost != 2.0 {
			t.Errorf("expected cost 2.0, got %v", acc.TotalCost)
		}
		if len(acc.Breakdown) != 2 {
			t.Errorf("expected 2 breakdown entries, got %d", len(acc.Breakdown))
		}
	})

	t.Run("repeated tier appends without merging", func(t *testing.T) {
		agg := NewAggregator()
		agg.Add("inv", standardMeasurement("data", 10, 1000, 1.0))
		agg.Add("inv", standardMeasurement("data", 20, 2000, 2.0))

		acc := findAccumulator(t, agg.Accumulators(), "inv", "data")
		if len(acc.Breakdown) != 2 {
			t.Errorf("expected 2 breakdown entries, got %d", len(acc.Breakdown))
		}
		if acc.TotalObjects != 30 {
			t.Errorf("expected 30 objects, got %d", acc.TotalObjects)
		}
	})

	t.Run("same prefix in different tables stays separate", func(t *testing.T) {
		agg := NewAggregator()
		agg.Add("inv_a", standardMeasurement("logs", 1, 10, 0.1))
		agg.Add("inv_b", standardMeasurement("logs", 2, 20, 0.2))

		if agg.Len() != 2 {
			t.Fatalf("expected 2 accumulators, got %d", agg.Len())
		}

		a := findAccumulator(t, agg.Accumulators(), "inv_a", "logs")
		if a.TotalObjects != 1 {
			t.Errorf("inv_a: expected 1 object, got %d", a.TotalObjects)
		}
		b := findAccumulator(t, agg.Accumulators(), "inv_b", "logs")
		if b.TotalObjects != 2 {
			t.Errorf("inv_b: expected 2 objects, got %d", b.TotalObjects)
		}
	})
}

func TestAggregatorMerge(t *testing.T) {
	t.Run("overlapping keys sum", func(t *testing.T) {
		a := NewAggregator()
		a.Add("inv", standardMeasurement("data", 10, 1000, 1.0))

		b := NewAggregator()
		b.Add("inv", standardMeasurement("data", 5, 500, 0.5))
		b.Add("inv", standardMeasurement("logs", 3, 300, 0.3))

		a.Merge(b)

		if a.Len() != 2 {
			t.Fatalf("expected 2 accumulators after merge, got %d", a.Len())
		}

		data := findAccumulator(t, a.Accumulators(), "inv", "data")
		if data.TotalObjects != 15 {
			t.Errorf("data: expected 15 objects, got %d", data.TotalObjects)
		}
		if data.TotalBytes != 1500 {
			t.Errorf("data: expected 1500 bytes, got %d", data.TotalBytes)
		}
		if data.TotalCost != 1.5 {
			t.Errorf("data: expected cost 1.5, got %v", data.TotalCost)
		}
		if len(data.Breakdown) != 2 {
			t.Errorf("data: expected 2 breakdown entries, got %d", len(data.Breakdown))
		}

		logs := findAccumulator(t, a.Accumulators(), "inv", "logs")
		if logs.TotalObjects != 3 {
			t.Errorf("logs: expected 3 objects, got %d", logs.TotalObjects)
		}
	})

	t.Run("merge into empty aggregator", func(t *testing.T) {
		a := NewAggregator()
		b := NewAggregator()
		b.Add("inv", standardMeasurement("data", 10, 1000, 1.0))

		a.Merge(b)

		if a.Len() != 1 {
			t.Fatalf("expected 1 accumulator, got %d", a.Len())
		}
		acc := findAccumulator(t, a.Accumulators(), "inv", "data")
		if acc.TotalObjects != 10 {
			t.Errorf("expected 10 objects, got %d", acc.TotalObjects)
		}
	})

	t.Run("totals are order independent", func(t *testing.T) {
		build := func() (*Aggregator, *Aggregator) {
			a := NewAggregator()
			a.Add("inv", standardMeasurement("data", 10, 1000, 1.0))
			a.Add("inv", standardMeasurement("logs", 1, 100, 0.1))

			b := NewAggregator()
			b.Add("inv", standardMeasurement("data", 5, 500, 0.5))
			b.Add("inv", standardMeasurement("exports", 7, 700, 0.7))
			return a, b
		}

		first, second := build()
		first.Merge(second)

		a2, b2 := build()
		b2.Merge(a2)

		for _, key := range []string{"data", "logs", "exports"} {
			x := findAccumulator(t, first.Accumulators(), "inv", key)
			y := findAccumulator(t, b2.Accumulators(), "inv", key)
			if x.TotalObjects != y.TotalObjects {
				t.Errorf("%s: objects differ by merge order: %d vs %d", key, x.TotalObjects, y.TotalObjects)
			}
			if x.TotalBytes != y.TotalBytes {
				t.Errorf("%s: bytes differ by merge order: %d vs %d", key, x.TotalBytes, y.TotalBytes)
			}
			if x.TotalCost != y.TotalCost {
				t.Errorf("%s: cost differs by merge order: %v vs %v", key, x.TotalCost, y.TotalCost)
			}
			if len(x.Breakdown) != len(y.Breakdown) {
				t.Errorf("%s: breakdown length differs by merge order: %d vs %d", key, len(x.Breakdown), len(y.Breakdown))
			}
		}
	})
}

func TestTotalSizeGB(t *testing.T) {
	tests := []struct {
		name  string
		bytes uint64
		want  float64
	}{
		{"one GiB", 1 << 30, 1.0},
		{"half GiB", 1 << 29, 0.5},
		{"zero", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			acc := Accumulator{TotalBytes: tt.bytes}
			if got := acc.TotalSizeGB(); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("TotalSizeGB() = %v, want %v", got, tt.want)
			}
		})
	}
}
