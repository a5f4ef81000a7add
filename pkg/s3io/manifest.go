package s3io

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
)

// Format is the data format of S3 Inventory files.
type Format int

const (
	// FormatCSV indicates CSV (possibly gzip-compressed) inventory files.
	FormatCSV Format = iota
	// FormatParquet indicates Parquet inventory files.
	FormatParquet
)

// Manifest holds the parts of an S3 Inventory manifest.json a scan
// needs: where the data files live, their format, and the column
// layout of CSV files. Other manifest fields are ignored.
type Manifest struct {
	DestinationBucket string         `json:"destinationBucket"`
	FileFormat        string         `json:"fileFormat"`
	FileSchema        string         `json:"fileSchema"`
	Files             []ManifestFile `json:"files"`
}

// ManifestFile is one inventory data file listed in the manifest.
type ManifestFile struct {
	Key  string `json:"key"`
	Size int64  `json:"size"`
}

// ParseManifest decodes and validates an S3 Inventory manifest.json.
func ParseManifest(r io.Reader) (*Manifest, error) {
	var m Manifest
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("decode manifest: %w", err)
	}
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("validate manifest: %w", err)
	}
	return &m, nil
}

func (m *Manifest) validate() error {
	switch {
	case m.DestinationBucket == "":
		return errors.New("manifest missing destinationBucket")
	case len(m.Files) == 0:
		return errors.New("manifest has no files")
	}
	if f := strings.ToUpper(m.FileFormat); f != "" && f != "CSV" && f != "PARQUET" {
		return fmt.Errorf("unsupported file format: %s (supported: CSV, Parquet)", m.FileFormat)
	}
	return nil
}

// DetectFormat determines the inventory format from the fileFormat
// field, falling back to the first file's extension. Unrecognized
// manifests default to CSV.
func (m *Manifest) DetectFormat() Format {
	switch strings.ToUpper(m.FileFormat) {
	case "CSV":
		return FormatCSV
	case "PARQUET":
		return FormatParquet
	}

	if len(m.Files) > 0 &&
		strings.HasSuffix(strings.ToLower(m.Files[0].Key), ".parquet") {
		return FormatParquet
	}
	return FormatCSV
}

// DestinationBucketName returns the destination bucket as a plain name,
// unwrapping an ARN if the manifest uses one.
func (m *Manifest) DestinationBucketName() (string, error) {
	return ParseBucketIdentifier(m.DestinationBucket)
}

// KeyColumnIndex returns the index of the Key column in the file schema.
func (m *Manifest) KeyColumnIndex() (int, error) {
	return m.columnIndex("Key")
}

// SizeColumnIndex returns the index of the Size column in the file schema.
func (m *Manifest) SizeColumnIndex() (int, error) {
	return m.columnIndex("Size")
}

// StorageClassColumnIndex returns the index of the StorageClass column,
// or -1 if the inventory omits it.
func (m *Manifest) StorageClassColumnIndex() int {
	idx, err := m.columnIndex("StorageClass")
	if err != nil {
		return -1
	}
	return idx
}

// AccessTierColumnIndex returns the index of the
// IntelligentTieringAccessTier column, or -1 if the inventory omits it.
func (m *Manifest) AccessTierColumnIndex() int {
	idx, err := m.columnIndex("IntelligentTieringAccessTier")
	if err != nil {
		return -1
	}
	return idx
}

// columnIndex resolves a column name in the comma-separated fileSchema,
// case-insensitively.
func (m *Manifest) columnIndex(name string) (int, error) {
	idx := slices.IndexFunc(strings.Split(m.FileSchema, ","), func(col string) bool {
		return strings.EqualFold(strings.TrimSpace(col), name)
	})
	if idx < 0 {
		return -1, fmt.Errorf("column %q not found in schema: %s", name, m.FileSchema)
	}
	return idx, nil
}
