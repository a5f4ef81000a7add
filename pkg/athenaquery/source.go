package athenaquery

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"

	"github.com/eunmann/s3-cost-report/internal/logctx"
	"github.com/eunmann/s3-cost-report/pkg/costreport"
	"github.com/eunmann/s3-cost-report/pkg/pricing"
	"github.com/eunmann/s3-cost-report/pkg/s3io"
)

// DefaultPollInterval is how often query execution state is checked.
const DefaultPollInterval = 5 * time.Second

// API is the subset of the Athena client the source calls.
type API interface {
	StartQueryExecution(ctx context.Context, params *athena.StartQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error)
	GetQueryExecution(ctx context.Context, params *athena.GetQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error)
}

// ObjectStreamer fetches result objects from S3. *s3io.Client
// satisfies it.
type ObjectStreamer interface {
	StreamObject(ctx context.Context, bucket, key string) (io.ReadCloser, error)
}

// Config parameterizes an Athena-backed query source.
type Config struct {
	// Database is the Glue database holding the inventory tables.
	Database string
	// OutputBucket and OutputPrefix locate Athena's result objects;
	// results land at s3://OutputBucket/OutputPrefix{queryID}.csv.
	OutputBucket string
	OutputPrefix string
	// Pricing is the price table baked into the generated SQL.
	Pricing pricing.PriceTable
	// PollInterval overrides DefaultPollInterval when positive.
	PollInterval time.Duration
}

// Source runs the rollup query on Athena, one execution per table, and
// streams each result CSV from S3. It implements costreport.QuerySource.
type Source struct {
	athena  API
	results ObjectStreamer
	cfg     Config
}

// NewSource creates a Source over an Athena client and a result
// streamer.
func NewSource(api API, results ObjectStreamer, cfg Config) *Source {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Source{athena: api, results: results, cfg: cfg}
}

// Query starts the rollup query for one table, waits for it to finish,
// and returns a reader over the result rows.
func (s *Source) Query(ctx context.Context, table, partition string) (costreport.RowReader, error) {
	out, err := s.athena.StartQueryExecution(ctx, &athena.StartQueryExecutionInput{
		QueryString: aws.String(BuildQuery(table, partition, s.cfg.Pricing)),
		QueryExecutionContext: &types.QueryExecutionContext{
			Database: aws.String(s.cfg.Database),
		},
		ResultConfiguration: &types.ResultConfiguration{
			OutputLocation: aws.String(s3io.URI(s.cfg.OutputBucket, s.cfg.OutputPrefix)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("start query execution: %w", err)
	}

	queryID := aws.ToString(out.QueryExecutionId)
	log := logctx.From(ctx)
	log.Debug().
		Str("query_id", queryID).
		Str("database", s.cfg.Database).
		Msg("query started")

	if err := s.waitForQuery(ctx, queryID); err != nil {
		return nil, err
	}

	key := s.cfg.OutputPrefix + queryID + ".csv"
	body, err := s.results.StreamObject(ctx, s.cfg.OutputBucket, key)
	if err != nil {
		return nil, fmt.Errorf("stream query result: %w", err)
	}

	return newResultReader(body), nil
}

// waitForQuery polls execution state at cfg.PollInterval until the
// query reaches a terminal state.
func (s *Source) waitForQuery(ctx context.Context, queryID string) error {
	log := logctx.From(ctx)
	for {
		out, err := s.athena.GetQueryExecution(ctx, &athena.GetQueryExecutionInput{
			QueryExecutionId: aws.String(queryID),
		})
		if err != nil {
			return fmt.Errorf("get query execution: %w", err)
		}

		var state types.QueryExecutionState
		var reason string
		if out.QueryExecution != nil && out.QueryExecution.Status != nil {
			state = out.QueryExecution.Status.State
			reason = aws.ToString(out.QueryExecution.Status.StateChangeReason)
		}

		switch state {
		case types.QueryExecutionStateSucceeded:
			return nil
		case types.QueryExecutionStateFailed, types.QueryExecutionStateCancelled:
			if reason == "" {
				reason = "no state change reason"
			}
			return fmt.Errorf("query %s %s: %s", queryID, strings.ToLower(string(state)), reason)
		}

		log.Debug().Str("query_id", queryID).Str("state", string(state)).Msg("query running")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(s.cfg.PollInterval):
		}
	}
}

// resultReader streams data rows from an Athena result CSV. Athena
// writes a header row first; Next skips it. Returned slices are valid
// only until the next call.
type resultReader struct {
	body          io.ReadCloser
	csv           *csv.Reader
	headerSkipped bool
}

func newResultReader(body io.ReadCloser) *resultReader {
	cr := csv.NewReader(body)
	cr.ReuseRecord = true
	cr.FieldsPerRecord = -1
	return &resultReader{body: body, csv: cr}
}

func (r *resultReader) Next() ([]string, error) {
	if !r.headerSkipped {
		r.headerSkipped = true
		if _, err := r.csv.Read(); err != nil {
			if errors.Is(err, io.EOF) {
				return nil, io.EOF
			}
			return nil, fmt.Errorf("read result header: %w", err)
		}
	}

	fields, err := r.csv.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("read result row: %w", err)
	}
	return fields, nil
}

func (r *resultReader) Close() error {
	return r.body.Close()
}
