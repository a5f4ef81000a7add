package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/renderer"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/eunmann/s3-cost-report/pkg/costreport"
	"github.com/eunmann/s3-cost-report/pkg/pricing"
)

func newTable(w io.Writer, headers []string, alignments []tw.Align) *tablewriter.Table {
	table := tablewriter.NewTable(w,
		tablewriter.WithRenderer(renderer.NewBlueprint(tw.Rendition{
			Settings: tw.Settings{Separators: tw.Separators{BetweenRows: tw.On}},
		})))
	table.Header(headers)
	table.Configure(func(c *tablewriter.Config) {
		c.Row.Alignment.PerColumn = alignments
	})
	return table
}

// printEntries renders the ranked entries as a terminal table with a
// total-cost footer.
func printEntries(w io.Writer, result *costreport.Result) {
	table := newTable(w,
		[]string{"#", "Table", "Prefix", "Objects", "Size (GB)", "Cost (USD/mo)"},
		[]tw.Align{tw.AlignRight, tw.AlignLeft, tw.AlignLeft, tw.AlignRight, tw.AlignRight, tw.AlignRight})

	var totalCost float64
	for _, e := range result.Entries {
		totalCost += e.Acc.TotalCost
		table.Append([]string{
			strconv.Itoa(e.Rank),
			e.Acc.Table,
			e.Acc.Prefix,
			strconv.FormatUint(e.Acc.TotalObjects, 10),
			fmt.Sprintf("%.2f", e.Acc.TotalSizeGB()),
			fmt.Sprintf("%.6f", e.Acc.TotalCost),
		})
	}
	table.Footer([]string{"", "", "Total", "", "", fmt.Sprintf("%.6f", totalCost)})
	table.Render()

	fmt.Fprintf(w, "report: %s (partition %s)\n", result.ReportLocation, result.Partition)
}

// printPriceTable renders the price table in sorted key order.
func printPriceTable(w io.Writer, pt pricing.PriceTable) {
	table := newTable(w,
		[]string{"Pricing Key", "USD / GB-Month"},
		[]tw.Align{tw.AlignLeft, tw.AlignRight})

	for _, key := range pt.Keys() {
		rate, _ := pt.RateFor(key)
		table.Append([]string{key, strconv.FormatFloat(rate, 'f', -1, 64)})
	}
	table.Render()
}
