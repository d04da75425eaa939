// Package roster decodes roster exports into header-keyed rows.
package roster

import (
	"bytes"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dimchansky/utfbom"
	"github.com/go-gota/gota/dataframe"
)

// Row is one roster line keyed by column header.
type Row map[string]string

// Get returns the trimmed value of a column, or "" when the column is absent.
func (r Row) Get(column string) string {
	return r[column]
}

// Source is a decoded roster file plus its provenance.
type Source struct {
	Name    string
	Hash    string
	Headers []string
	Rows    []Row
}

// Len is the number of data rows.
func (s *Source) Len() int {
	return len(s.Rows)
}

// Open reads a roster file from disk. The source name is the file's base name.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open roster file: %w", err)
	}
	defer f.Close()

	return Load(filepath.Base(path), f)
}

// Load decodes CSV content. The hash covers the raw bytes as received.
func Load(name string, r io.Reader) (*Source, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read roster: %w", err)
	}

	sum := sha256.Sum256(content)
	src := &Source{
		Name: name,
		Hash: hex.EncodeToString(sum[:]),
	}

	// Trim the Byte Order Marker if it's present
	records, err := readRecords(utfbom.SkipOnly(bytes.NewReader(content)))
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		// header only, or nothing at all
		return src, nil
	}

	// cell text is kept verbatim, "NA" is a legitimate surname
	df := dataframe.LoadRecords(records,
		dataframe.HasHeader(true),
		dataframe.DetectTypes(false),
		dataframe.NaNValues([]string{}),
	)
	if df.Err != nil {
		return nil, fmt.Errorf("failed to parse roster csv: %w", df.Err)
	}

	src.Headers = normalizeHeaders(records[0])
	src.Rows = toRows(src.Headers, df.Records()[1:])
	return src, nil
}

// readRecords tolerates ragged rows: short rows are padded with absent
// cells and extra trailing cells are dropped.
func readRecords(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse roster csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	width := len(records[0])
	for i, record := range records[1:] {
		switch {
		case len(record) < width:
			padded := make([]string, width)
			copy(padded, record)
			records[i+1] = padded
		case len(record) > width:
			records[i+1] = record[:width]
		}
	}
	return records, nil
}

func normalizeHeaders(headers []string) []string {
	out := make([]string, len(headers))
	for i, h := range headers {
		out[i] = strings.TrimSpace(h)
	}
	return out
}

func toRows(headers []string, records [][]string) []Row {
	rows := make([]Row, 0, len(records))
	for _, record := range records {
		row := make(Row, len(headers))
		for idx, val := range record {
			if idx >= len(headers) {
				break
			}
			row[headers[idx]] = strings.TrimSpace(val)
		}
		rows = append(rows, row)
	}
	return rows
}
