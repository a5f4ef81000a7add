// Package inventory provides readers for AWS S3 Inventory data files
// in CSV (optionally gzip-compressed) and Parquet formats.
package inventory

import "strings"

// Row is one object record from an inventory data file. StorageClass
// and AccessTier are empty when the inventory omits them.
type Row struct {
	Key          string
	Size         uint64
	StorageClass string
	AccessTier   string
}

// Reader streams inventory rows. Next returns io.EOF after the last row.
type Reader interface {
	Next() (Row, error)
	Close() error
}

// Columns locates the inventory fields within a CSV data file,
// normally taken from the manifest's fileSchema. Key and Size are
// required; StorageClass and AccessTier are -1 when the inventory
// omits them. Parquet files ignore Columns and detect fields from
// their schema.
type Columns struct {
	Key          int
	Size         int
	StorageClass int
	AccessTier   int
}

// DefaultColumns is the layout of a minimal tiered inventory schema
// (Bucket, Key, Size, StorageClass, IntelligentTieringAccessTier),
// used for local CSV files when no manifest is available.
func DefaultColumns() Columns {
	return Columns{Key: 1, Size: 2, StorageClass: 3, AccessTier: 4}
}

// Open opens an inventory data file with the reader matching its
// extension: .parquet files stream through the Parquet reader,
// everything else reads as CSV, gunzipped when the name ends in .gz.
func Open(path string, cols Columns) (Reader, error) {
	if strings.HasSuffix(strings.ToLower(path), ".parquet") {
		return OpenParquet(path)
	}
	return OpenCSV(path, cols)
}
