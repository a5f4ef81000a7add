package costreport

import (
	"strings"
	"testing"
)

func testSummary() Summary {
	return Summary{
		TopN:           15,
		Partition:      "2025-01-14-01-00",
		ReportLocation: "s3://bucket/reports/top_15_s3_cost_report_2025-01-14-01-00.csv",
		Entries: []RankedEntry{
			{Rank: 1, Acc: &Accumulator{Table: "inv_a", Prefix: "data", TotalCost: 5.0, TotalBytes: 1 << 30}},
			{Rank: 2, Acc: &Accumulator{Table: "inv_b", Prefix: "logs", TotalCost: 0.5, TotalBytes: 1 << 29}},
		},
	}
}

func TestSummarySubject(t *testing.T) {
	got := testSummary().Subject()
	want := "Top 15 S3 prefixes by estimated cost for dt=2025-01-14-01-00"
	if got != want {
		t.Errorf("Subject() = %q, want %q", got, want)
	}
}

func TestSummaryText(t *testing.T) {
	got := testSummary().Text()
	want := strings.Join([]string{
		"Top 15 S3 prefixes by estimated cost for dt=2025-01-14-01-00:",
		"",
		"1. Table: inv_a, Prefix: data, Cost: $5.00, Size: 1.00 GB",
		"2. Table: inv_b, Prefix: logs, Cost: $0.50, Size: 0.50 GB",
		"",
		"Report CSV written to: s3://bucket/reports/top_15_s3_cost_report_2025-01-14-01-00.csv",
		"",
	}, "\n")

	if got != want {
		t.Errorf("Text() mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestSummaryHTML(t *testing.T) {
	got := testSummary().HTML()
	want := "<html><body>" +
		"<h3>Top 15 S3 prefixes by estimated cost for dt=2025-01-14-01-00</h3>" +
		"<ol>" +
		"<li>Table: inv_a, Prefix: data, Cost: $5.00, Size: 1.00 GB</li>" +
		"<li>Table: inv_b, Prefix: logs, Cost: $0.50, Size: 0.50 GB</li>" +
		"</ol>" +
		"<p>Report CSV written to: s3://bucket/reports/top_15_s3_cost_report_2025-01-14-01-00.csv</p>" +
		"</body></html>"

	if got != want {
		t.Errorf("HTML() mismatch:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestSummaryNoEntries(t *testing.T) {
	s := Summary{TopN: 15, Partition: "2025-01-14-01-00"}

	wantText := "Top 15 S3 prefixes by estimated cost for dt=2025-01-14-01-00:\n\n"
	if got := s.Text(); got != wantText {
		t.Errorf("Text() = %q, want %q", got, wantText)
	}

	wantHTML := "<html><body>" +
		"<h3>Top 15 S3 prefixes by estimated cost for dt=2025-01-14-01-00</h3>" +
		"<ol></ol>" +
		"</body></html>"
	if got := s.HTML(); got != wantHTML {
		t.Errorf("HTML() = %q, want %q", got, wantHTML)
	}
}

func TestSummarySubjectUsesConfiguredN(t *testing.T) {
	// The subject reflects the requested N even when fewer prefixes
	// existed than asked for.
	s := Summary{
		TopN:      15,
		Partition: "2025-01-14-01-00",
		Entries: []RankedEntry{
			{Rank: 1, Acc: &Accumulator{Table: "inv", Prefix: "data", TotalCost: 1.0}},
		},
	}

	if !strings.HasPrefix(s.Subject(), "Top 15 ") {
		t.Errorf("Subject() = %q, want Top 15 prefix", s.Subject())
	}
}
