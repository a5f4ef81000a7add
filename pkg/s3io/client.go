// Package s3io provides the S3 plumbing for report runs: streaming
// Athena result objects, fetching inventory manifests, downloading
// inventory data files, and storing rendered reports.
package s3io

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Client wraps the AWS S3 client with the operations the report needs.
type Client struct {
	s3 *s3.Client
}

// NewClient creates a Client from the default AWS configuration chain.
// An empty region defers to the environment and shared config.
func NewClient(ctx context.Context, region string) (*Client, error) {
	var opts []func(*config.LoadOptions) error
	if region != "" {
		opts = append(opts, config.WithRegion(region))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load AWS config: %w", err)
	}

	return &Client{s3: s3.NewFromConfig(cfg)}, nil
}

// NewClientWithConfig creates a Client from an existing AWS config.
func NewClientWithConfig(cfg aws.Config) *Client {
	return &Client{s3: s3.NewFromConfig(cfg)}
}

// S3 returns the underlying S3 client for use with the transfer manager.
func (c *Client) S3() *s3.Client {
	return c.s3
}

// StreamObject returns a reader over an S3 object's body.
func (c *Client) StreamObject(ctx context.Context, bucket, key string) (io.ReadCloser, error) {
	resp, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object s3://%s/%s: %w", bucket, key, err)
	}
	return resp.Body, nil
}

// FetchManifest fetches and parses an S3 Inventory manifest.
func (c *Client) FetchManifest(ctx context.Context, bucket, key string) (*Manifest, error) {
	body, err := c.StreamObject(ctx, bucket, key)
	if err != nil {
		return nil, fmt.Errorf("fetch manifest: %w", err)
	}
	defer body.Close()

	manifest, err := ParseManifest(body)
	if err != nil {
		return nil, fmt.Errorf("parse manifest s3://%s/%s: %w", bucket, key, err)
	}
	return manifest, nil
}

// PutObject writes body to an S3 object.
func (c *Client) PutObject(ctx context.Context, bucket, key string, body []byte, contentType string) error {
	in := &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(body),
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}

	if _, err := c.s3.PutObject(ctx, in); err != nil {
		return fmt.Errorf("put object s3://%s/%s: %w", bucket, key, err)
	}
	return nil
}
