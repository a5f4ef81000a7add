// Package cli implements the command-line interface for s3cost-report.
package cli

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/robfig/cron/v3"

	"github.com/eunmann/s3-cost-report/internal/logctx"
	"github.com/eunmann/s3-cost-report/pkg/athenaquery"
	"github.com/eunmann/s3-cost-report/pkg/costreport"
	"github.com/eunmann/s3-cost-report/pkg/invscan"
	"github.com/eunmann/s3-cost-report/pkg/logging"
	"github.com/eunmann/s3-cost-report/pkg/notify"
	"github.com/eunmann/s3-cost-report/pkg/pricing"
	"github.com/eunmann/s3-cost-report/pkg/s3io"
)

const usage = "usage: s3cost-report [--debug] [--log-human] <command> [options]\ncommands: report, scan, schedule, pricing"

// Run executes the CLI with the given arguments. Global flags come
// before the subcommand.
func Run(args []string) error {
	global := flag.NewFlagSet("s3cost-report", flag.ContinueOnError)
	debug := global.Bool("debug", false, "enable debug logging")
	human := global.Bool("log-human", false, "human-friendly console logging")
	if err := global.Parse(args); err != nil {
		return err
	}

	logging.Init(*debug, *human)

	rest := global.Args()
	if len(rest) == 0 {
		return errors.New(usage)
	}

	switch rest[0] {
	case "report":
		return runReport(rest[1:])
	case "scan":
		return runScan(rest[1:])
	case "schedule":
		return runSchedule(rest[1:])
	case "pricing":
		return runPricing(rest[1:])
	default:
		return fmt.Errorf("unknown command: %s", rest[0])
	}
}

func runReport(args []string) error {
	fs := flag.NewFlagSet("report", flag.ContinueOnError)
	rf, err := registerReportFlags(fs)
	if err != nil {
		return err
	}
	if err := fs.Parse(args); err != nil {
		return err
	}

	opts, err := rf.options(time.Now())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := executeReport(ctx, opts)
	if err != nil {
		return err
	}
	if opts.print {
		printEntries(os.Stdout, result)
	}
	return nil
}

// executeReport wires the Athena-backed pipeline and runs it once.
func executeReport(ctx context.Context, opts *reportOptions) (*costreport.Result, error) {
	pt, err := loadPriceTable(opts.pricesPath)
	if err != nil {
		return nil, err
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(opts.region))
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}
	s3Client := s3io.NewClientWithConfig(awsCfg)

	source := athenaquery.NewSource(athena.NewFromConfig(awsCfg), s3Client, athenaquery.Config{
		Database:     opts.database,
		OutputBucket: opts.outputBucket,
		OutputPrefix: opts.outputPrefix,
		Pricing:      pt,
		PollInterval: opts.pollInterval,
	})

	var notifier costreport.NotificationSink
	if !opts.noEmail {
		n, err := notify.New(ctx, notify.Config{
			Sender:    opts.sender,
			Recipient: opts.recipient,
			Region:    opts.region,
			RoleARN:   opts.sesRoleARN,
		})
		if err != nil {
			return nil, err
		}
		notifier = n
	}

	pipeline := &costreport.Pipeline{
		Source:  source,
		Reports: s3io.NewReportStore(s3Client, opts.outputBucket),
		Notify:  notifier,
	}

	ctx = logctx.WithLogger(ctx, *logging.L())
	return pipeline.Run(ctx, costreport.Config{
		Tables:       opts.tables,
		Partition:    opts.partition,
		TopN:         opts.topN,
		ReportPrefix: opts.reportPrefix,
	})
}

func runScan(args []string) error {
	fs := flag.NewFlagSet("scan", flag.ContinueOnError)
	topDefault, err := envIntOr("TOP_N", 15)
	if err != nil {
		return err
	}

	manifest := fs.String("manifest", "", "s3:// URI of an inventory manifest.json")
	localDir := fs.String("local-dir", "", "directory of inventory data files to scan")
	table := fs.String("table", "", "table label for the report (default: bucket or directory name)")
	partition := fs.String("partition", "", "partition label for the report (default: yesterday)")
	reportDir := fs.String("report-dir", ".", "directory for locally stored reports")
	reportPrefix := fs.String("report-prefix", envOr("REPORT_PREFIX", "reports/"), "key prefix for stored reports")
	outputBucket := fs.String("output-bucket", "", "store the report in this S3 bucket instead of locally")
	top := fs.Int("top", topDefault, "number of ranked prefixes to report")
	concurrency := fs.Int("concurrency", 4, "parallel downloads and file scans")
	downloadDir := fs.String("download-dir", "", "directory for downloaded data files (default: temp dir)")
	keepFiles := fs.Bool("keep-files", false, "keep downloaded data files after the scan")
	prices := fs.String("prices", "", "price table JSON overriding built-in rates")
	print := fs.Bool("print", false, "print ranked entries to stdout")

	if err := fs.Parse(args); err != nil {
		return err
	}

	if (*manifest == "") == (*localDir == "") {
		return errors.New("exactly one of --manifest or --local-dir is required")
	}
	if *top <= 0 {
		return errors.New("--top must be positive")
	}

	pt, err := loadPriceTable(*prices)
	if err != nil {
		return err
	}

	tableLabel := *table
	if tableLabel == "" {
		if *manifest != "" {
			bucket, _, err := s3io.ParseS3URI(*manifest)
			if err != nil {
				return fmt.Errorf("parse manifest URI: %w", err)
			}
			tableLabel = bucket
		} else {
			tableLabel = filepath.Base(filepath.Clean(*localDir))
		}
	}

	part := *partition
	if part == "" {
		part = athenaquery.DefaultPartition(time.Now())
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var client *s3io.Client
	if *manifest != "" || *outputBucket != "" {
		client, err = s3io.NewClient(ctx, envOr("AWS_REGION", ""))
		if err != nil {
			return err
		}
	}

	source, err := invscan.New(client, invscan.Config{
		ManifestURI: *manifest,
		LocalDir:    *localDir,
		Pricing:     pt,
		Concurrency: *concurrency,
		DownloadDir: *downloadDir,
		KeepFiles:   *keepFiles,
	})
	if err != nil {
		return err
	}

	var store costreport.ReportSink
	if *outputBucket != "" {
		store = s3io.NewReportStore(client, *outputBucket)
	} else {
		store = &s3io.LocalStore{Dir: *reportDir}
	}

	pipeline := &costreport.Pipeline{Source: source, Reports: store}

	ctx = logctx.WithLogger(ctx, *logging.L())
	result, err := pipeline.Run(ctx, costreport.Config{
		Tables:       []string{tableLabel},
		Partition:    part,
		TopN:         *top,
		ReportPrefix: *reportPrefix,
	})
	if err != nil {
		return err
	}
	if *print {
		printEntries(os.Stdout, result)
	}
	return nil
}

func runSchedule(args []string) error {
	fs := flag.NewFlagSet("schedule", flag.ContinueOnError)
	rf, err := registerReportFlags(fs)
	if err != nil {
		return err
	}
	cronExpr := fs.String("cron", "0 6 * * *", "cron schedule for report runs (UTC)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	// Validate the report flags up front; the partition is recomputed
	// per run so a long-lived daemon tracks the clock.
	if _, err := rf.options(time.Now()); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logging.WithPhase("schedule")

	c := cron.New(cron.WithLocation(time.UTC))
	_, err = c.AddFunc(*cronExpr, func() {
		opts, err := rf.options(time.Now())
		if err != nil {
			log.Error().Err(err).Msg("scheduled report run skipped")
			return
		}

		start := time.Now()
		if _, err := executeReport(ctx, opts); err != nil {
			log.Error().Err(err).
				Dur("duration", time.Since(start)).
				Str("partition", opts.partition).
				Msg("scheduled report run failed")
		}
	})
	if err != nil {
		return fmt.Errorf("parse cron expression: %w", err)
	}

	log.Info().Str("cron", *cronExpr).Msg("report scheduler started")
	c.Start()
	<-ctx.Done()

	log.Info().Msg("stopping report scheduler")
	<-c.Stop().Done()
	return nil
}

func runPricing(args []string) error {
	fs := flag.NewFlagSet("pricing", flag.ContinueOnError)
	out := fs.String("out", "", "write the price table to this JSON file")
	show := fs.Bool("show", false, "print the price table")
	prices := fs.String("prices", "", "price table JSON to use instead of built-in rates")
	if err := fs.Parse(args); err != nil {
		return err
	}

	if *out == "" && !*show {
		return errors.New("pricing requires --out or --show")
	}

	pt, err := loadPriceTable(*prices)
	if err != nil {
		return err
	}

	if *out != "" {
		if err := pricing.Save(*out, pt); err != nil {
			return err
		}
		logging.L().Info().Str("path", *out).Msg("price table written")
	}
	if *show {
		printPriceTable(os.Stdout, pt)
	}
	return nil
}
