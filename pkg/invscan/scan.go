// Package invscan computes per-prefix cost rollups directly from S3
// Inventory data files, without Athena. It implements the report
// pipeline's query source for offline and local runs.
package invscan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/eunmann/s3-cost-report/internal/logctx"
	"github.com/eunmann/s3-cost-report/pkg/costreport"
	"github.com/eunmann/s3-cost-report/pkg/inventory"
	"github.com/eunmann/s3-cost-report/pkg/logging"
	"github.com/eunmann/s3-cost-report/pkg/pricing"
	"github.com/eunmann/s3-cost-report/pkg/s3io"
)

// Config configures an inventory scan source.
type Config struct {
	// ManifestURI is the s3:// URI of an inventory manifest.json.
	// Exactly one of ManifestURI and LocalDir must be set.
	ManifestURI string
	// LocalDir scans inventory data files already on disk.
	LocalDir string
	// Pricing prices each (prefix, tier) group.
	Pricing pricing.PriceTable
	// Concurrency bounds parallel downloads and file scans (default 4).
	Concurrency int
	// DownloadDir receives manifest-mode data files. Empty means a
	// temporary directory removed after the scan.
	DownloadDir string
	// KeepFiles leaves downloaded data files in place after the scan.
	KeepFiles bool
}

// manifestFetcher and fileDownloader are the narrow S3 surfaces the
// source needs; *s3io.Client and *s3io.Downloader satisfy them.
type manifestFetcher interface {
	FetchManifest(ctx context.Context, bucket, key string) (*s3io.Manifest, error)
}

type fileDownloader interface {
	DownloadToFile(ctx context.Context, bucket, key, destPath string) (*s3io.DownloadResult, error)
}

// Source scans S3 Inventory files and emits one pre-aggregated row per
// (top-level prefix, storage tier) group. It implements
// costreport.QuerySource.
type Source struct {
	cfg      Config
	fetch    manifestFetcher
	download fileDownloader
}

// New creates a scan source. client may be nil for local-directory
// scans.
func New(client *s3io.Client, cfg Config) (*Source, error) {
	if (cfg.ManifestURI == "") == (cfg.LocalDir == "") {
		return nil, errors.New("exactly one of ManifestURI or LocalDir must be set")
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}

	s := &Source{cfg: cfg}
	if cfg.ManifestURI != "" {
		if client == nil {
			return nil, errors.New("manifest scans need an S3 client")
		}
		s.fetch = client
		s.download = s3io.NewDownloader(client, s3io.DefaultDownloaderConfig())
	}
	return s, nil
}

// dataFile is one resolved inventory data file ready to read.
type dataFile struct {
	path string
	cols inventory.Columns
}

// Query scans the configured inventory and returns the rollup rows.
// The table and partition arguments label the scan; they do not change
// which files are read.
func (s *Source) Query(ctx context.Context, table, partition string) (costreport.RowReader, error) {
	log := logctx.From(ctx)

	evt := log.Info().Str("table", table).Str("partition", partition)
	if s.cfg.ManifestURI != "" {
		evt = evt.Str("manifest", s.cfg.ManifestURI)
	} else {
		evt = evt.Str("dir", s.cfg.LocalDir)
	}
	evt.Msg("starting inventory scan")

	files, cleanup, err := s.resolveFiles(ctx)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	rollup, _, err := s.scanFiles(ctx, files)
	if err != nil {
		return nil, err
	}

	return newSliceReader(rollupRows(rollup, s.cfg.Pricing)), nil
}

// resolveFiles produces the local paths of the inventory data files,
// downloading them first in manifest mode. cleanup removes anything
// the resolution step created.
func (s *Source) resolveFiles(ctx context.Context) ([]dataFile, func(), error) {
	if s.cfg.LocalDir != "" {
		files, err := s.localFiles()
		return files, func() {}, err
	}
	return s.manifestFiles(ctx)
}

// localFiles lists inventory data files in LocalDir, in name order.
// Local CSV files carry no manifest, so they must use the default
// tiered column layout; Parquet files are self-describing.
func (s *Source) localFiles() ([]dataFile, error) {
	entries, err := os.ReadDir(s.cfg.LocalDir)
	if err != nil {
		return nil, fmt.Errorf("read inventory dir: %w", err)
	}

	var files []dataFile
	for _, entry := range entries {
		if entry.IsDir() || !isInventoryFile(entry.Name()) {
			continue
		}
		files = append(files, dataFile{
			path: filepath.Join(s.cfg.LocalDir, entry.Name()),
			cols: inventory.DefaultColumns(),
		})
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no inventory files in %s", s.cfg.LocalDir)
	}
	return files, nil
}

// isInventoryFile matches the extensions inventory data files use.
func isInventoryFile(name string) bool {
	lower := strings.ToLower(name)
	return strings.HasSuffix(lower, ".csv") ||
		strings.HasSuffix(lower, ".gz") ||
		strings.HasSuffix(lower, ".parquet")
}

// manifestFiles fetches the manifest and downloads every data file it
// lists.
func (s *Source) manifestFiles(ctx context.Context) ([]dataFile, func(), error) {
	bucket, key, err := s3io.ParseS3URI(s.cfg.ManifestURI)
	if err != nil {
		return nil, nil, fmt.Errorf("parse manifest URI: %w", err)
	}

	manifest, err := s.fetch.FetchManifest(ctx, bucket, key)
	if err != nil {
		return nil, nil, err
	}

	cols, err := manifestColumns(manifest)
	if err != nil {
		return nil, nil, err
	}

	destBucket, err := manifest.DestinationBucketName()
	if err != nil {
		return nil, nil, fmt.Errorf("resolve destination bucket: %w", err)
	}

	dir := s.cfg.DownloadDir
	removeDir := false
	if dir == "" {
		dir, err = os.MkdirTemp("", "invscan-*")
		if err != nil {
			return nil, nil, fmt.Errorf("create download dir: %w", err)
		}
		removeDir = true
	} else if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("create download dir: %w", err)
	}

	paths, err := s.downloadFiles(ctx, destBucket, manifest.Files, dir)
	if err != nil {
		if removeDir {
			os.RemoveAll(dir)
		}
		return nil, nil, err
	}

	files := make([]dataFile, len(paths))
	for i, p := range paths {
		files[i] = dataFile{path: p, cols: cols}
	}

	cleanup := func() {
		if s.cfg.KeepFiles {
			return
		}
		if removeDir {
			os.RemoveAll(dir)
			return
		}
		for _, p := range paths {
			os.Remove(p)
		}
	}
	return files, cleanup, nil
}

// downloadFiles downloads the manifest's data files concurrently. Any
// failure removes the files already downloaded.
func (s *Source) downloadFiles(ctx context.Context, bucket string, manifestFiles []s3io.ManifestFile, dir string) ([]string, error) {
	log := logctx.From(ctx)
	paths := make([]string, len(manifestFiles))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for i, mf := range manifestFiles {
		g.Go(func() error {
			dest := filepath.Join(dir, filepath.Base(mf.Key))
			res, err := s.download.DownloadToFile(gctx, bucket, mf.Key, dest)
			if err != nil {
				return fmt.Errorf("download %s: %w", mf.Key, err)
			}
			paths[i] = dest

			logging.FileDone(log, "download", res.Duration).
				Str("key", mf.Key).
				Bytes(uint64(res.Bytes)).
				Msg("inventory file downloaded")
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, p := range paths {
			if p != "" {
				os.Remove(p)
			}
		}
		return nil, err
	}
	return paths, nil
}

// manifestColumns maps the manifest's file schema to reader column
// indices. Parquet readers detect columns from the file itself and
// ignore these.
func manifestColumns(m *s3io.Manifest) (inventory.Columns, error) {
	keyCol, err := m.KeyColumnIndex()
	if err != nil {
		return inventory.Columns{}, fmt.Errorf("locate key column: %w", err)
	}
	sizeCol, err := m.SizeColumnIndex()
	if err != nil {
		return inventory.Columns{}, fmt.Errorf("locate size column: %w", err)
	}
	return inventory.Columns{
		Key:          keyCol,
		Size:         sizeCol,
		StorageClass: m.StorageClassColumnIndex(),
		AccessTier:   m.AccessTierColumnIndex(),
	}, nil
}
