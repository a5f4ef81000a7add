package s3io

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// defaultPartSize is the ranged-GET part size for inventory data files.
const defaultPartSize int64 = 16 << 20

// DownloaderConfig configures the S3 transfer manager used for
// inventory data files.
type DownloaderConfig struct {
	// Concurrency is the number of parallel ranged parts per object.
	// Defaults to NumCPU clamped to [4, 16].
	Concurrency int

	// PartSize is the ranged part size in bytes. Defaults to 16 MiB.
	PartSize int64
}

// DefaultDownloaderConfig returns defaults sized for the current machine.
func DefaultDownloaderConfig() DownloaderConfig {
	return DownloaderConfig{
		Concurrency: min(max(runtime.NumCPU(), 4), 16),
		PartSize:    defaultPartSize,
	}
}

func (c DownloaderConfig) withDefaults() DownloaderConfig {
	def := DefaultDownloaderConfig()
	if c.Concurrency <= 0 {
		c.Concurrency = def.Concurrency
	}
	if c.PartSize <= 0 {
		c.PartSize = def.PartSize
	}
	return c
}

// Downloader fetches S3 objects to local files using parallel ranged
// GETs. Inventory data files come down this way because the Parquet
// reader needs random access.
type Downloader struct {
	manager *manager.Downloader
	config  DownloaderConfig
}

// NewDownloader creates a Downloader over the client's S3 connection.
func NewDownloader(client *Client, cfg DownloaderConfig) *Downloader {
	cfg = cfg.withDefaults()
	mgr := manager.NewDownloader(client.S3(), func(d *manager.Downloader) {
		d.Concurrency = cfg.Concurrency
		d.PartSize = cfg.PartSize
		d.BufferProvider = manager.NewPooledBufferedWriterReadFromProvider(int(cfg.PartSize))
	})
	return &Downloader{manager: mgr, config: cfg}
}

// DownloadResult describes a completed object download.
type DownloadResult struct {
	Bytes    int64
	Duration time.Duration
}

// DownloadToFile downloads an S3 object to destPath. A failed download
// removes the partial file.
func (d *Downloader) DownloadToFile(ctx context.Context, bucket, key, destPath string) (*DownloadResult, error) {
	out, err := os.Create(destPath)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", destPath, err)
	}
	defer out.Close()

	start := time.Now()
	n, err := d.manager.Download(ctx, out, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		os.Remove(destPath)
		return nil, fmt.Errorf("download s3://%s/%s: %w", bucket, key, err)
	}
	return &DownloadResult{Bytes: n, Duration: time.Since(start)}, nil
}

// Config returns the effective configuration.
func (d *Downloader) Config() DownloaderConfig {
	return d.config
}
