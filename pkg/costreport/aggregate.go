package costreport

// Accumulator carries the running totals and tier breakdown for one
// (table, prefix) pair. It is mutated only during aggregation and is
// treated as read-only once handed to the ranker.
type Accumulator struct {
	Table        string
	Prefix       string
	TotalObjects uint64
	TotalBytes   uint64
	TotalCost    float64
	// Breakdown holds one entry per ingested measurement in arrival
	// order. Measurements for the same tier stay separate entries;
	// the totals above count every one of them.
	Breakdown []Measurement
}

// TotalSizeGB returns the total size in binary gigabytes.
func (a *Accumulator) TotalSizeGB() float64 {
	return float64(a.TotalBytes) / bytesPerGB
}

type prefixKey struct {
	table  string
	prefix string
}

// Aggregator folds measurements into per-(table, prefix) accumulators.
// It is not safe for concurrent use; parallel ingestion builds one
// Aggregator per table and merges them afterwards.
type Aggregator struct {
	accs map[prefixKey]*Accumulator
}

// NewAggregator returns an empty aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{accs: make(map[prefixKey]*Accumulator)}
}

// Add folds one measurement into the accumulator for (table, m.Prefix),
// creating it on first sight. Totals are commutative over arrival
// order; the breakdown records arrival order.
func (a *Aggregator) Add(table string, m Measurement) {
	k := prefixKey{table: table, prefix: m.Prefix}
	acc, ok := a.accs[k]
	if !ok {
		acc = &Accumulator{Table: table, Prefix: m.Prefix}
		a.accs[k] = acc
	}

	acc.TotalObjects += m.Count
	acc.TotalBytes += m.Bytes
	acc.TotalCost += m.Cost
	acc.Breakdown = append(acc.Breakdown, m)
}

// Merge folds other into a, summing totals and concatenating
// breakdowns. other must not be used afterwards. Merge order never
// changes totals, but it sets breakdown order, so callers merge
// partials in a fixed order when byte-identical reports matter.
func (a *Aggregator) Merge(other *Aggregator) {
	for k, o := range other.accs {
		acc, ok := a.accs[k]
		if !ok {
			a.accs[k] = o
			continue
		}
		acc.TotalObjects += o.TotalObjects
		acc.TotalBytes += o.TotalBytes
		acc.TotalCost += o.TotalCost
		acc.Breakdown = append(acc.Breakdown, o.Breakdown...)
	}
}

// Len returns the number of distinct (table, prefix) accumulators.
func (a *Aggregator) Len() int {
	return len(a.accs)
}

// Accumulators returns all accumulators in unspecified order.
func (a *Aggregator) Accumulators() []*Accumulator {
	out := make([]*Accumulator, 0, len(a.accs))
	for _, acc := range a.accs {
		out = append(out, acc)
	}
	return out
}
