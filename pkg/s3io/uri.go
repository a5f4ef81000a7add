package s3io

import (
	"errors"
	"fmt"
	"strings"
)

// ParseS3URI splits an s3://bucket/key URI into bucket and key. The key
// may be empty.
func ParseS3URI(uri string) (string, string, error) {
	rest, ok := strings.CutPrefix(uri, "s3://")
	if !ok {
		return "", "", errors.New("invalid S3 URI: must start with s3://")
	}

	bucket, key, _ := strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", errors.New("invalid S3 URI: missing bucket name")
	}
	return bucket, key, nil
}

// URI formats a bucket and key as an s3:// URI.
func URI(bucket, key string) string {
	return "s3://" + bucket + "/" + key
}

// ParseBucketIdentifier extracts the bucket name from either a plain
// bucket name or an S3 bucket ARN. Inventory manifests write the
// destination bucket in both forms:
//
//   - plain: "my-bucket"
//   - ARN:   "arn:aws:s3:::my-bucket"
func ParseBucketIdentifier(bucketOrARN string) (string, error) {
	switch {
	case bucketOrARN == "":
		return "", errors.New("empty bucket identifier")
	case strings.HasPrefix(bucketOrARN, "arn:"):
		return parseBucketARN(bucketOrARN)
	case strings.Contains(bucketOrARN, "://"):
		return "", fmt.Errorf("invalid bucket identifier %q: looks like a URI", bucketOrARN)
	}
	return bucketOrARN, nil
}

// parseBucketARN extracts the bucket name from an S3 bucket ARN
// (arn:partition:service:region:account:resource; region and account
// are empty for bucket ARNs).
func parseBucketARN(arn string) (string, error) {
	// SplitN keeps any colons inside the resource segment intact.
	parts := strings.SplitN(arn, ":", 6)
	switch {
	case len(parts) < 6:
		return "", fmt.Errorf("invalid ARN %q: expected at least 6 colon-separated parts", arn)
	case parts[0] != "arn":
		return "", fmt.Errorf("invalid ARN %q: must start with 'arn:'", arn)
	case parts[2] != "s3":
		return "", fmt.Errorf("invalid S3 ARN %q: service must be 's3', got %q", arn, parts[2])
	}

	// Access-point ARNs carry a path after the bucket name.
	name, _, _ := strings.Cut(parts[5], "/")
	if name == "" {
		return "", fmt.Errorf("invalid S3 ARN %q: missing bucket name", arn)
	}
	return name, nil
}
