package costreport

import (
	"fmt"
	"strings"

	"github.com/eunmann/s3-cost-report/pkg/humanfmt"
)

// Summary formats a ranked list into notification bodies. TopN is the
// configured N, kept in the subject even when fewer entries ranked.
// Partition is the opaque partition label. ReportLocation, when set,
// is appended as a footer pointing at the stored report.
type Summary struct {
	TopN           int
	Partition      string
	ReportLocation string
	Entries        []RankedEntry
}

// Subject returns the notification subject line.
func (s Summary) Subject() string {
	return fmt.Sprintf("Top %d S3 prefixes by estimated cost for dt=%s", s.TopN, s.Partition)
}

// Text returns the plain-text body: one numbered line per entry with
// cost to the cent and size in GB.
func (s Summary) Text() string {
	var b strings.Builder
	b.WriteString(s.Subject())
	b.WriteString(":\n\n")

	for _, e := range s.Entries {
		fmt.Fprintf(&b, "%d. Table: %s, Prefix: %s, Cost: %s, Size: %s\n",
			e.Rank, e.Acc.Table, e.Acc.Prefix, humanfmt.USD(e.Acc.TotalCost), humanfmt.GB(e.Acc.TotalBytes))
	}

	if s.ReportLocation != "" {
		fmt.Fprintf(&b, "\nReport CSV written to: %s\n", s.ReportLocation)
	}

	return b.String()
}

// HTML returns the markup body: the same entries as an ordered list.
func (s Summary) HTML() string {
	var b strings.Builder
	b.WriteString("<html><body><h3>")
	b.WriteString(s.Subject())
	b.WriteString("</h3><ol>")

	for _, e := range s.Entries {
		fmt.Fprintf(&b, "<li>Table: %s, Prefix: %s, Cost: %s, Size: %s</li>",
			e.Acc.Table, e.Acc.Prefix, humanfmt.USD(e.Acc.TotalCost), humanfmt.GB(e.Acc.TotalBytes))
	}

	b.WriteString("</ol>")
	if s.ReportLocation != "" {
		fmt.Fprintf(&b, "<p>Report CSV written to: %s</p>", s.ReportLocation)
	}
	b.WriteString("</body></html>")

	return b.String()
}
