package inventory

import (
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// csvReader reads inventory rows from CSV data. Short rows and rows
// with an empty key are skipped; unparsable sizes read as zero.
type csvReader struct {
	csv     *csv.Reader
	cols    Columns
	closers []io.Closer
}

// OpenCSV opens a CSV inventory data file, decompressing when the
// path ends in .gz.
func OpenCSV(path string, cols Columns) (Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open inventory file: %w", err)
	}

	r, err := NewCSVReader(f, path, cols)
	if err != nil {
		f.Close()
		return nil, err
	}
	return r, nil
}

// NewCSVReader reads inventory rows from a raw CSV stream,
// decompressing when name ends in .gz. Closing the reader closes rc;
// on error the caller keeps ownership of rc.
func NewCSVReader(rc io.ReadCloser, name string, cols Columns) (Reader, error) {
	r := &csvReader{cols: cols, closers: []io.Closer{rc}}

	var src io.Reader = rc
	if strings.HasSuffix(strings.ToLower(name), ".gz") {
		gz, err := gzip.NewReader(rc)
		if err != nil {
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		r.closers = append(r.closers, gz)
		src = gz
	}

	r.csv = csv.NewReader(src)
	r.csv.ReuseRecord = true
	// Inventory exports vary field counts and quote loosely.
	r.csv.FieldsPerRecord = -1
	r.csv.LazyQuotes = true
	return r, nil
}

func (r *csvReader) Next() (Row, error) {
	for {
		fields, err := r.csv.Read()
		if errors.Is(err, io.EOF) {
			return Row{}, io.EOF
		}
		if err != nil {
			return Row{}, fmt.Errorf("read CSV row: %w", err)
		}
		if row, ok := r.parse(fields); ok {
			return row, nil
		}
	}
}

// parse maps one CSV record onto a Row. ok is false for records the
// scan drops: short rows and rows missing a key.
func (r *csvReader) parse(fields []string) (row Row, ok bool) {
	c := r.cols
	if len(fields) <= c.Key || len(fields) <= c.Size || fields[c.Key] == "" {
		return Row{}, false
	}

	row.Key = fields[c.Key]
	if size, err := strconv.ParseUint(strings.TrimSpace(fields[c.Size]), 10, 64); err == nil {
		row.Size = size
	}
	if c.StorageClass >= 0 && len(fields) > c.StorageClass {
		row.StorageClass = fields[c.StorageClass]
	}
	if c.AccessTier >= 0 && len(fields) > c.AccessTier {
		row.AccessTier = fields[c.AccessTier]
	}
	return row, true
}

func (r *csvReader) Close() error {
	var errs []error
	// The gzip layer closes ahead of the stream beneath it.
	for i := len(r.closers) - 1; i >= 0; i-- {
		errs = append(errs, r.closers[i].Close())
	}
	return errors.Join(errs...)
}
