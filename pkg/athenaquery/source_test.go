package athenaquery

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"

	"github.com/eunmann/s3-cost-report/pkg/pricing"
)

// fakeAthena plays back a scripted sequence of execution states, one
// per GetQueryExecution call, holding the last state forever.
type fakeAthena struct {
	queryID  string
	states   []types.QueryExecutionState
	reason   string
	startErr error
	getErr   error

	startInput *athena.StartQueryExecutionInput
	getCalls   int
}

func (f *fakeAthena) StartQueryExecution(_ context.Context, params *athena.StartQueryExecutionInput, _ ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error) {
	f.startInput = params
	if f.startErr != nil {
		return nil, f.startErr
	}
	return &athena.StartQueryExecutionOutput{QueryExecutionId: aws.String(f.queryID)}, nil
}

func (f *fakeAthena) GetQueryExecution(_ context.Context, params *athena.GetQueryExecutionInput, _ ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	idx := f.getCalls
	if idx >= len(f.states) {
		idx = len(f.states) - 1
	}
	f.getCalls++

	status := &types.QueryExecutionStatus{State: f.states[idx]}
	if f.reason != "" {
		status.StateChangeReason = aws.String(f.reason)
	}
	return &athena.GetQueryExecutionOutput{
		QueryExecution: &types.QueryExecution{
			QueryExecutionId: params.QueryExecutionId,
			Status:           status,
		},
	}, nil
}

type fakeStreamer struct {
	body string
	err  error

	bucket string
	key    string
}

func (f *fakeStreamer) StreamObject(_ context.Context, bucket, key string) (io.ReadCloser, error) {
	f.bucket, f.key = bucket, key
	if f.err != nil {
		return nil, f.err
	}
	return io.NopCloser(strings.NewReader(f.body)), nil
}

func testConfig() Config {
	return Config{
		Database:     "s3_inventory",
		OutputBucket: "results-bucket",
		OutputPrefix: "athena-results/",
		Pricing:      pricing.Default(),
		PollInterval: time.Millisecond,
	}
}

func TestSourceQuery(t *testing.T) {
	api := &fakeAthena{
		queryID: "qid-123",
		states: []types.QueryExecutionState{
			types.QueryExecutionStateQueued,
			types.QueryExecutionStateRunning,
			types.QueryExecutionStateSucceeded,
		},
	}
	streamer := &fakeStreamer{
		body: "prefix,storage_class,intelligent_tiering_access_tier,object_count,total_size,estimated_cost_usd\n" +
			"logs,STANDARD,,10,1073741824,0.021\n" +
			"data,GLACIER,,5,2147483648,0.0072\n",
	}
	src := NewSource(api, streamer, testConfig())

	rows, err := src.Query(context.Background(), "inventory_bucket_a", "2026-08-24-01-00")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	defer rows.Close()

	if api.startInput == nil {
		t.Fatal("StartQueryExecution not called")
	}
	if got := aws.ToString(api.startInput.QueryExecutionContext.Database); got != "s3_inventory" {
		t.Errorf("database = %q, want s3_inventory", got)
	}
	if got := aws.ToString(api.startInput.ResultConfiguration.OutputLocation); got != "s3://results-bucket/athena-results/" {
		t.Errorf("output location = %q", got)
	}
	sql := aws.ToString(api.startInput.QueryString)
	if !strings.Contains(sql, "FROM inventory_bucket_a") {
		t.Errorf("query string missing table:\n%s", sql)
	}
	if !strings.Contains(sql, "WHERE dt = '2026-08-24-01-00'") {
		t.Errorf("query string missing partition:\n%s", sql)
	}

	if api.getCalls != 3 {
		t.Errorf("getCalls = %d, want 3", api.getCalls)
	}
	if streamer.bucket != "results-bucket" || streamer.key != "athena-results/qid-123.csv" {
		t.Errorf("streamed s3://%s/%s, want s3://results-bucket/athena-results/qid-123.csv",
			streamer.bucket, streamer.key)
	}

	// Header row is skipped; data rows come back verbatim.
	first, err := rows.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if first[0] != "logs" || first[1] != "STANDARD" || first[3] != "10" {
		t.Errorf("first row = %v", first)
	}
	second, err := rows.Next()
	if err != nil {
		t.Fatalf("Next: %v", err)
	}
	if second[0] != "data" {
		t.Errorf("second row = %v", second)
	}
	if _, err := rows.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next after last row = %v, want io.EOF", err)
	}
}

func TestSourceQueryFailed(t *testing.T) {
	api := &fakeAthena{
		queryID: "qid-f",
		states:  []types.QueryExecutionState{types.QueryExecutionStateFailed},
		reason:  "SYNTAX_ERROR: table not found",
	}
	streamer := &fakeStreamer{}
	src := NewSource(api, streamer, testConfig())

	_, err := src.Query(context.Background(), "missing_table", "2026-08-24-01-00")
	if err == nil {
		t.Fatal("expected error for failed query")
	}
	if !strings.Contains(err.Error(), "failed") || !strings.Contains(err.Error(), "SYNTAX_ERROR") {
		t.Errorf("error = %v, want failure state and reason", err)
	}
	if streamer.bucket != "" {
		t.Error("result streamed despite failed query")
	}
}

func TestSourceQueryCancelledState(t *testing.T) {
	api := &fakeAthena{
		queryID: "qid-c",
		states:  []types.QueryExecutionState{types.QueryExecutionStateCancelled},
	}
	src := NewSource(api, &fakeStreamer{}, testConfig())

	_, err := src.Query(context.Background(), "t", "2026-08-24-01-00")
	if err == nil || !strings.Contains(err.Error(), "cancelled") {
		t.Errorf("error = %v, want cancelled state", err)
	}
}

func TestSourceQueryStartError(t *testing.T) {
	api := &fakeAthena{startErr: errors.New("access denied")}
	src := NewSource(api, &fakeStreamer{}, testConfig())

	_, err := src.Query(context.Background(), "t", "2026-08-24-01-00")
	if err == nil || !strings.Contains(err.Error(), "start query execution") {
		t.Errorf("error = %v, want start wrap", err)
	}
}

func TestSourceQueryPollError(t *testing.T) {
	api := &fakeAthena{queryID: "qid-p", getErr: errors.New("throttled")}
	src := NewSource(api, &fakeStreamer{}, testConfig())

	_, err := src.Query(context.Background(), "t", "2026-08-24-01-00")
	if err == nil || !strings.Contains(err.Error(), "get query execution") {
		t.Errorf("error = %v, want poll wrap", err)
	}
}

func TestSourceQueryStreamError(t *testing.T) {
	api := &fakeAthena{
		queryID: "qid-s",
		states:  []types.QueryExecutionState{types.QueryExecutionStateSucceeded},
	}
	src := NewSource(api, &fakeStreamer{err: errors.New("no such key")}, testConfig())

	_, err := src.Query(context.Background(), "t", "2026-08-24-01-00")
	if err == nil || !strings.Contains(err.Error(), "stream query result") {
		t.Errorf("error = %v, want stream wrap", err)
	}
}

func TestSourceQueryContextCanceled(t *testing.T) {
	api := &fakeAthena{
		queryID: "qid-ctx",
		states:  []types.QueryExecutionState{types.QueryExecutionStateRunning},
	}
	cfg := testConfig()
	cfg.PollInterval = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := NewSource(api, &fakeStreamer{}, cfg)
	_, err := src.Query(ctx, "t", "2026-08-24-01-00")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestResultReaderEmptyBody(t *testing.T) {
	r := newResultReader(io.NopCloser(strings.NewReader("")))
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next on empty body = %v, want io.EOF", err)
	}
}

func TestResultReaderHeaderOnly(t *testing.T) {
	r := newResultReader(io.NopCloser(strings.NewReader("prefix,storage_class\n")))
	if _, err := r.Next(); !errors.Is(err, io.EOF) {
		t.Errorf("Next on header-only body = %v, want io.EOF", err)
	}
}
