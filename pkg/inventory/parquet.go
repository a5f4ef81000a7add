package inventory

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/parquet-go/parquet-go"
)

// parquetReader streams inventory rows from a Parquet file, one row
// group at a time.
type parquetReader struct {
	file *os.File
	cols Columns

	rowGroups []parquet.RowGroup
	groupIdx  int
	rows      parquet.Rows
	buf       []parquet.Row
	bufIdx    int
	bufLen    int
}

// OpenParquet opens a Parquet inventory data file, locating the
// inventory columns by name in the file schema.
func OpenParquet(path string) (Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open inventory file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat inventory file: %w", err)
	}

	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open parquet file: %w", err)
	}

	cols, err := detectParquetColumns(pf.Schema())
	if err != nil {
		f.Close()
		return nil, err
	}

	return &parquetReader{
		file:      f,
		cols:      cols,
		rowGroups: pf.RowGroups(),
		groupIdx:  -1,
		buf:       make([]parquet.Row, 1024),
	}, nil
}

// detectParquetColumns locates the inventory columns in a Parquet
// schema by their Hive-compatible names.
func detectParquetColumns(schema *parquet.Schema) (Columns, error) {
	cols := Columns{Key: -1, Size: -1, StorageClass: -1, AccessTier: -1}

	for i, field := range schema.Fields() {
		switch field.Name() {
		case "key":
			cols.Key = i
		case "size":
			cols.Size = i
		case "storage_class":
			cols.StorageClass = i
		case "intelligent_tiering_access_tier":
			cols.AccessTier = i
		}
	}

	if cols.Key < 0 {
		return cols, errors.New("parquet schema missing 'key' column")
	}
	if cols.Size < 0 {
		return cols, errors.New("parquet schema missing 'size' column")
	}

	return cols, nil
}

func (r *parquetReader) Next() (Row, error) {
	for {
		if r.bufIdx < r.bufLen {
			row := r.buf[r.bufIdx]
			r.bufIdx++
			return r.toRow(row), nil
		}

		if r.rows != nil {
			n, err := r.rows.ReadRows(r.buf)
			if n > 0 {
				r.bufIdx = 0
				r.bufLen = n
				continue
			}
			if err != nil && !errors.Is(err, io.EOF) {
				return Row{}, fmt.Errorf("read parquet rows: %w", err)
			}
			r.rows.Close()
			r.rows = nil
		}

		r.groupIdx++
		if r.groupIdx >= len(r.rowGroups) {
			return Row{}, io.EOF
		}
		r.rows = r.rowGroups[r.groupIdx].Rows()
	}
}

func (r *parquetReader) toRow(row parquet.Row) Row {
	var out Row

	for _, val := range row {
		if val.IsNull() {
			continue
		}

		switch val.Column() {
		case r.cols.Key:
			out.Key = val.String()
		case r.cols.Size:
			// Corrupt negative sizes read as zero.
			if v := val.Int64(); v > 0 {
				out.Size = uint64(v)
			}
		case r.cols.StorageClass:
			out.StorageClass = val.String()
		case r.cols.AccessTier:
			out.AccessTier = val.String()
		}
	}

	return out
}

func (r *parquetReader) Close() error {
	if r.rows != nil {
		r.rows.Close()
		r.rows = nil
	}
	if r.file != nil {
		err := r.file.Close()
		r.file = nil
		if err != nil {
			return fmt.Errorf("close inventory file: %w", err)
		}
	}
	return nil
}
