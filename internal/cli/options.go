package cli

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/eunmann/s3-cost-report/pkg/athenaquery"
	"github.com/eunmann/s3-cost-report/pkg/pricing"
)

// envOr returns the environment value for key, or def when the
// variable is unset or empty.
func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// envIntOr parses an integer environment variable, or returns def when
// the variable is unset or empty.
func envIntOr(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

// splitTables parses a comma-separated table list, dropping blanks.
func splitTables(s string) []string {
	var tables []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tables = append(tables, t)
		}
	}
	return tables
}

// loadPriceTable loads the price override file, or the built-in rates.
func loadPriceTable(path string) (pricing.PriceTable, error) {
	if path == "" {
		return pricing.Default(), nil
	}
	return pricing.Load(path)
}

// reportFlags holds the parsed flag values shared by the report and
// schedule commands. Flag defaults come from the environment, so the
// precedence is flag, then environment, then built-in default.
type reportFlags struct {
	database     *string
	tables       *string
	partition    *string
	outputBucket *string
	outputPrefix *string
	reportPrefix *string
	top          *int
	region       *string
	sender       *string
	recipient    *string
	sesRoleARN   *string
	noEmail      *bool
	print        *bool
	prices       *string
	pollInterval *time.Duration
}

func registerReportFlags(fs *flag.FlagSet) (*reportFlags, error) {
	topDefault, err := envIntOr("TOP_N", 15)
	if err != nil {
		return nil, err
	}

	return &reportFlags{
		database:     fs.String("database", envOr("ATHENA_DATABASE", "s3_inventory"), "Athena database holding the inventory tables"),
		tables:       fs.String("tables", os.Getenv("TABLE_NAMES"), "comma-separated inventory table names"),
		partition:    fs.String("partition", "", "inventory partition (dt) to query; default: yesterday"),
		outputBucket: fs.String("output-bucket", os.Getenv("OUTPUT_BUCKET"), "S3 bucket for Athena results and reports"),
		outputPrefix: fs.String("output-prefix", envOr("OUTPUT_PREFIX", "athena-results/"), "key prefix for Athena result objects"),
		reportPrefix: fs.String("report-prefix", envOr("REPORT_PREFIX", "reports/"), "key prefix for stored reports"),
		top:          fs.Int("top", topDefault, "number of ranked prefixes to report"),
		region:       fs.String("region", envOr("AWS_REGION", "us-east-1"), "AWS region"),
		sender:       fs.String("sender", os.Getenv("SENDER_EMAIL"), "SES sender address"),
		recipient:    fs.String("recipient", os.Getenv("RECIPIENT_EMAIL"), "SES recipient address"),
		sesRoleARN:   fs.String("ses-role-arn", os.Getenv("SES_ROLE_ARN"), "IAM role to assume for SES sends"),
		noEmail:      fs.Bool("no-email", false, "skip the summary email"),
		print:        fs.Bool("print", false, "print ranked entries to stdout"),
		prices:       fs.String("prices", "", "price table JSON overriding built-in rates"),
		pollInterval: fs.Duration("poll-interval", athenaquery.DefaultPollInterval, "Athena poll interval"),
	}, nil
}

// reportOptions is the validated configuration for one report run.
type reportOptions struct {
	database     string
	tables       []string
	partition    string
	outputBucket string
	outputPrefix string
	reportPrefix string
	topN         int
	region       string
	sender       string
	recipient    string
	sesRoleARN   string
	noEmail      bool
	print        bool
	pricesPath   string
	pollInterval time.Duration
}

// options validates the parsed flags and fills in the default
// partition for now. The schedule command calls this per run so the
// partition tracks the clock.
func (f *reportFlags) options(now time.Time) (*reportOptions, error) {
	tables := splitTables(*f.tables)
	if len(tables) == 0 {
		return nil, errors.New("--tables is required (or TABLE_NAMES)")
	}
	if *f.outputBucket == "" {
		return nil, errors.New("--output-bucket is required (or OUTPUT_BUCKET)")
	}
	if *f.top <= 0 {
		return nil, errors.New("--top must be positive")
	}

	opts := &reportOptions{
		database:     *f.database,
		tables:       tables,
		partition:    *f.partition,
		outputBucket: *f.outputBucket,
		outputPrefix: *f.outputPrefix,
		reportPrefix: *f.reportPrefix,
		topN:         *f.top,
		region:       *f.region,
		sender:       *f.sender,
		recipient:    *f.recipient,
		sesRoleARN:   *f.sesRoleARN,
		noEmail:      *f.noEmail,
		print:        *f.print,
		pricesPath:   *f.prices,
		pollInterval: *f.pollInterval,
	}
	if opts.partition == "" {
		opts.partition = athenaquery.DefaultPartition(now)
	}
	if !opts.noEmail && (opts.sender == "" || opts.recipient == "") {
		return nil, errors.New("--sender and --recipient are required unless --no-email is set")
	}
	return opts, nil
}
