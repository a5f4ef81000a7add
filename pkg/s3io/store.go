package s3io

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/eunmann/s3-cost-report/pkg/fileutil"
)

const reportContentType = "text/csv"

// PutObjectAPI is the subset of the S3 API the report store uses.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// ReportStore persists rendered reports as S3 objects. It satisfies the
// report pipeline's sink interface.
type ReportStore struct {
	api    PutObjectAPI
	bucket string
}

// NewReportStore creates a ReportStore writing to the given bucket.
func NewReportStore(client *Client, bucket string) *ReportStore {
	return &ReportStore{api: client.s3, bucket: bucket}
}

// Store uploads the report body under key and returns its s3:// URI.
func (s *ReportStore) Store(ctx context.Context, key string, body []byte) (string, error) {
	_, err := s.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(reportContentType),
	})
	if err != nil {
		return "", fmt.Errorf("put report s3://%s/%s: %w", s.bucket, key, err)
	}

	return URI(s.bucket, key), nil
}

// LocalStore persists rendered reports on the local filesystem, for
// offline scan runs. The report key becomes a path under Dir.
type LocalStore struct {
	Dir string
}

// Store writes the report body atomically and returns its absolute path.
func (s LocalStore) Store(_ context.Context, key string, body []byte) (string, error) {
	path := filepath.Join(s.Dir, filepath.FromSlash(key))
	if err := fileutil.WriteAtomic(path, body, 0644); err != nil {
		return "", fmt.Errorf("write report %s: %w", path, err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve report path %s: %w", path, err)
	}
	return abs, nil
}
